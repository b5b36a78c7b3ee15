// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// stridedcopy transposes random tensors with operators.Transpose, verifies the results and reports
// the copy throughput.
//
// Example:
//
//	stridedcopy -shape=64,32,16 -perm=2,0,1 -device=accelerator -iterations=100 -workers=4
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/muesli/termenv"
	"k8s.io/klog/v2"
)

var (
	flagShape = flag.String("shape", "2,3,4", "Comma-separated dimensions of the tensor to transpose.")
	flagPerm  = flag.String("perm", "", "Comma-separated permutation of the axes. "+
		"Axis i of the output is axis perm[i] of the input. Defaults to reversing the axes.")
	flagDevice     = flag.String("device", "host", "Where to run the copies: \"host\" or \"accelerator\".")
	flagDeviceNum  = flag.Int("device_num", 0, "Device number, if -device=accelerator.")
	flagDType      = flag.String("dtype", "float32", "Element type: float32, float64, float16, bfloat16, int32 or int64.")
	flagIterations = flag.Int("iterations", 100, "Number of transposes run by each worker.")
	flagWorkers    = flag.Int("workers", 1, "Number of workers running transposes concurrently, each on its own context.")
	flagPlain      = flag.Bool("plain", false, "Plain ASCII output, without colors.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if flag.NArg() > 0 {
		klog.Errorf("Unexpected arguments %q. See 'stridedcopy -help'.", flag.Args())
		os.Exit(1)
	}
	if *flagPlain {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	var cfg *config
	err := exceptions.TryCatch[error](func() {
		cfg = parseConfig(*flagShape, *flagPerm, *flagDevice, *flagDeviceNum, *flagDType, *flagIterations, *flagWorkers)
	})
	if err != nil {
		klog.Fatalf("Invalid flags: %v", err)
	}
	if !*flagPlain {
		cfg.progress = os.Stderr
	}
	klog.V(1).Infof("Running %s", cfg)
	rep, err := run(cfg)
	if err != nil {
		klog.Fatalf("Failed: %+v", err)
	}
	fmt.Println(titleStyle.Render("Strided copy"))
	fmt.Println(renderReport(rep))
}

var (
	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

func renderReport(rep *report) string {
	table := newPlainTable()
	table.Row("shape", fmt.Sprintf("%v", rep.shape))
	table.Row("permutation", fmt.Sprintf("%v", rep.permutation))
	table.Row("rank", fmt.Sprintf("%d", len(rep.shape)))
	table.Row("dtype", rep.dtype.String())
	table.Row("device", rep.place.String())
	table.Row("workers", humanize.Comma(int64(rep.numWorkers)))
	table.Row("# copies", humanize.Comma(int64(rep.numCopies)))
	table.Row("# transfers / copy", humanize.Comma(int64(rep.transfersPerCopy)))
	table.Row("bytes / copy", humanize.Bytes(uint64(rep.bytesPerCopy)))
	table.Row("elapsed", rep.elapsed.String())
	table.Row("throughput", rep.throughput())
	table.Row("verified", fmt.Sprintf("%v", rep.verified))
	return table.Render()
}
