// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"maps"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/stridedcopy/internal/workerspool"
	"github.com/gomlx/stridedcopy/memory"
	"github.com/gomlx/stridedcopy/operators"
	"github.com/gomlx/stridedcopy/platform"
	"github.com/gomlx/stridedcopy/types/ddim"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// config of a benchmark run, built from the command line flags.
type config struct {
	shape, permutation []int
	place              platform.Place
	dtype              dtypes.DType
	iterations         int
	numWorkers         int

	// progress, if not nil, receives a progress bar.
	progress io.Writer
}

// report of a benchmark run.
type report struct {
	shape, permutation []int
	place              platform.Place
	dtype              dtypes.DType
	numWorkers         int
	numCopies          int
	transfersPerCopy   int
	bytesPerCopy       int
	elapsed            time.Duration
	verified           bool
}

func (r *report) throughput() string {
	if r.elapsed <= 0 {
		return "n/a"
	}
	bytesPerSec := float64(r.bytesPerCopy) * float64(r.numCopies) / r.elapsed.Seconds()
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}

// parseInts parses a comma-separated list of integers. It panics on invalid values.
func parseInts(name, value string) []int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	ints := make([]int, len(parts))
	for ii, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			exceptions.Panicf("invalid -%s=%q: %v", name, value, err)
		}
		ints[ii] = v
	}
	return ints
}

var dtypeNames = map[string]dtypes.DType{
	"float32":  dtypes.Float32,
	"float64":  dtypes.Float64,
	"float16":  dtypes.Float16,
	"bfloat16": dtypes.BFloat16,
	"int32":    dtypes.Int32,
	"int64":    dtypes.Int64,
}

// parseConfig validates the flag values. It panics with an error on invalid values.
func parseConfig(shapeFlag, permFlag, device string, deviceNum int, dtypeFlag string, iterations, numWorkers int) *config {
	cfg := &config{
		shape:       parseInts("shape", shapeFlag),
		permutation: parseInts("perm", permFlag),
		iterations:  iterations,
		numWorkers:  numWorkers,
	}
	rank := len(cfg.shape)
	if rank == 0 || rank > ddim.MaxRank {
		exceptions.Panicf("-shape=%q has rank %d, it must be between 1 and %d", shapeFlag, rank, ddim.MaxRank)
	}
	for _, dim := range cfg.shape {
		if dim < 0 {
			exceptions.Panicf("-shape=%q has negative dimensions", shapeFlag)
		}
	}
	if cfg.permutation == nil {
		cfg.permutation = make([]int, rank)
		for axis := range rank {
			cfg.permutation[axis] = rank - 1 - axis
		}
	}
	sorted := slices.Sorted(slices.Values(cfg.permutation))
	for axis, value := range sorted {
		if len(sorted) != rank || value != axis {
			exceptions.Panicf("-perm=%q is not a permutation of the %d axes of -shape=%q", permFlag, rank, shapeFlag)
		}
	}

	switch strings.ToLower(device) {
	case "host", "cpu":
		cfg.place = platform.CPUPlace()
	case "accelerator", "gpu":
		if !platform.AcceleratorSupport {
			exceptions.Panicf("-device=%q: accelerator support not available in this build", device)
		}
		if deviceNum < 0 {
			exceptions.Panicf("invalid -device_num=%d", deviceNum)
		}
		cfg.place = platform.AcceleratorPlace(deviceNum)
	default:
		exceptions.Panicf("unknown -device=%q, valid values are \"host\" or \"accelerator\"", device)
	}

	dtype, found := dtypeNames[strings.ToLower(dtypeFlag)]
	if !found {
		exceptions.Panicf("unsupported -dtype=%q, valid values are %v", dtypeFlag, slices.Sorted(maps.Keys(dtypeNames)))
	}
	cfg.dtype = dtype

	if iterations <= 0 || numWorkers <= 0 {
		exceptions.Panicf("-iterations (%d) and -workers (%d) must be positive", iterations, numWorkers)
	}
	return cfg
}

// run executes the benchmark configured in cfg for its dtype.
func run(cfg *config) (*report, error) {
	switch cfg.dtype {
	case dtypes.Float32:
		return benchmark(cfg, func(v int) float32 { return float32(v) })
	case dtypes.Float64:
		return benchmark(cfg, func(v int) float64 { return float64(v) })
	case dtypes.Float16:
		return benchmark(cfg, func(v int) float16.Float16 { return float16.Fromfloat32(float32(v)) })
	case dtypes.BFloat16:
		return benchmark(cfg, func(v int) bfloat16.BFloat16 { return bfloat16.FromFloat32(float32(v)) })
	case dtypes.Int32:
		return benchmark(cfg, func(v int) int32 { return int32(v) })
	case dtypes.Int64:
		return benchmark(cfg, func(v int) int64 { return int64(v) })
	}
	return nil, errors.Errorf("dtype %s not supported", cfg.dtype)
}

// benchmark runs cfg.iterations transposes in each of the cfg.numWorkers workers, and verifies
// the last result of each worker. Values are small integers, exactly representable in all dtypes.
func benchmark[E dtypes.Supported](cfg *config, fromInt func(int) E) (*report, error) {
	shape := ddim.Make(cfg.shape...)
	size := shape.Product()
	input := make([]E, size)
	for ii := range input {
		input[ii] = fromInt(rand.IntN(256) - 128)
	}
	want := naiveTranspose(input, cfg.shape, cfg.permutation)

	rep := &report{
		shape:        cfg.shape,
		permutation:  cfg.permutation,
		place:        cfg.place,
		dtype:        dtypes.FromGenericsType[E](),
		numWorkers:   cfg.numWorkers,
		numCopies:    cfg.numWorkers * cfg.iterations,
		bytesPerCopy: size * memory.SizeOf[E](),
	}
	rep.transfersPerCopy = transfersPerCopy(cfg.shape, cfg.permutation)

	var bar *progressbar.ProgressBar
	if cfg.progress != nil {
		bar = progressbar.NewOptions(rep.numCopies,
			progressbar.OptionSetDescription("Transposing"),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("copies"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionSetWriter(cfg.progress),
			progressbar.OptionClearOnFinish(),
		)
	}

	pool := workerspool.New()
	pool.SetMaxParallelism(cfg.numWorkers)
	start := time.Now()
	err := pool.Map(cfg.numWorkers, func(worker int) error {
		got, err := transposeWorker(cfg, input, worker, func() {
			if bar != nil {
				_ = bar.Add(1)
			}
		})
		if err != nil {
			return err
		}
		if !slices.Equal(got, want) {
			return errors.Errorf("worker #%d: transposed values don't match the expected ones", worker)
		}
		return nil
	})
	rep.elapsed = time.Since(start)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return nil, err
	}
	rep.verified = true
	klog.V(1).Infof("%d copies of %s in %s", rep.numCopies, humanize.Bytes(uint64(rep.bytesPerCopy)), rep.elapsed)
	return rep, nil
}

// transposeWorker runs cfg.iterations transposes on its own context and returns the transposed values.
func transposeWorker[E dtypes.Supported](cfg *config, input []E, worker int, onCopy func()) (output []E, err error) {
	var ctx *platform.Context
	if cfg.place.IsHost() {
		ctx = platform.NewCPUContext()
	} else {
		ctx = platform.NewAcceleratorContext(cfg.place.DeviceNum)
	}
	defer func() {
		if closeErr := ctx.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()
	klog.V(2).Infof("worker #%d running on %s", worker, ctx)

	hostIn, err := operators.FromValues(input, cfg.shape...)
	if err != nil {
		return nil, err
	}
	defer hostIn.Free()
	outDims := make([]int, len(cfg.shape))
	for ii, axis := range cfg.permutation {
		outDims[ii] = cfg.shape[axis]
	}
	hostOut, err := operators.NewTensor[E](platform.CPUPlace(), outDims...)
	if err != nil {
		return nil, err
	}
	defer hostOut.Free()

	in, out := hostIn, hostOut
	if cfg.place.IsAccelerator() {
		if in, err = operators.NewTensor[E](cfg.place, cfg.shape...); err != nil {
			return nil, err
		}
		defer in.Free()
		if out, err = operators.NewTensor[E](cfg.place, outDims...); err != nil {
			return nil, err
		}
		defer out.Free()
		numBytes := hostIn.Size() * memory.SizeOf[E]()
		if err = memory.CopyOnStream(cfg.place, in.Data.Raw(), platform.CPUPlace(), hostIn.Data.Raw(), numBytes, ctx.Stream()); err != nil {
			return nil, err
		}
	}

	for range cfg.iterations {
		if err = operators.Transpose(ctx, in, cfg.permutation, out); err != nil {
			return nil, err
		}
		onCopy()
	}

	if cfg.place.IsAccelerator() {
		numBytes := hostOut.Size() * memory.SizeOf[E]()
		if err = memory.CopyOnStream(platform.CPUPlace(), hostOut.Data.Raw(), cfg.place, out.Data.Raw(), numBytes, ctx.Stream()); err != nil {
			return nil, err
		}
	}
	if err = ctx.Synchronize(); err != nil {
		return nil, err
	}
	values, err := hostOut.Values()
	if err != nil {
		return nil, err
	}
	return slices.Clone(values), nil
}

// naiveTranspose transposes the row-major values of the given shape, one element at a time.
func naiveTranspose[E any](values []E, shape, permutation []int) []E {
	rank := len(shape)
	inStrides := ddim.Strides(ddim.Make(shape...)).Dims()
	outDims := make([]int, rank)
	for ii, axis := range permutation {
		outDims[ii] = shape[axis]
	}
	output := make([]E, len(values))
	outIndex := make([]int, rank)
	for flat := range output {
		remainder := flat
		for axis := rank - 1; axis >= 0; axis-- {
			if outDims[axis] > 0 {
				outIndex[axis] = remainder % outDims[axis]
				remainder /= outDims[axis]
			}
		}
		inFlat := 0
		for ii, axis := range permutation {
			inFlat += outIndex[ii] * inStrides[axis]
		}
		output[flat] = values[inFlat]
	}
	return output
}

// transfersPerCopy returns the number of backend transfers issued by one transpose: one per
// innermost run when the innermost axis stays innermost, one per element otherwise.
func transfersPerCopy(shape, permutation []int) int {
	rank := len(shape)
	total := 1
	for _, dim := range shape {
		total *= dim
	}
	if total == 0 {
		return 0
	}
	innermost := shape[permutation[rank-1]]
	if permutation[rank-1] == rank-1 || innermost == 1 {
		return total / innermost
	}
	return total
}

func (c *config) String() string {
	return fmt.Sprintf("shape=%v, perm=%v, place=%s, dtype=%s, iterations=%d, workers=%d",
		c.shape, c.permutation, c.place, c.dtype, c.iterations, c.numWorkers)
}
