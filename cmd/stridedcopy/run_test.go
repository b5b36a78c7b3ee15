// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/stridedcopy/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg := parseConfig("2, 3,4", "", "host", 0, "BFloat16", 10, 2)
	assert.Equal(t, []int{2, 3, 4}, cfg.shape)
	assert.Equal(t, []int{2, 1, 0}, cfg.permutation)
	assert.True(t, cfg.place.IsHost())
	assert.Equal(t, dtypes.BFloat16, cfg.dtype)
	assert.Equal(t, 10, cfg.iterations)
	assert.Equal(t, 2, cfg.numWorkers)

	cfg = parseConfig("5,6", "0,1", "cpu", 0, "int64", 1, 1)
	assert.Equal(t, []int{0, 1}, cfg.permutation)
	assert.Equal(t, dtypes.Int64, cfg.dtype)

	for _, args := range [][]string{
		{"", ""},
		{"1,2,3,4,5,6,7,8,9,10", ""},
		{"2,x", ""},
		{"2,-3", ""},
		{"2,3", "0"},
		{"2,3", "0,0"},
		{"2,3", "1,2"},
	} {
		err := exceptions.TryCatch[error](func() { parseConfig(args[0], args[1], "host", 0, "float32", 1, 1) })
		require.Error(t, err, "shape=%q, perm=%q", args[0], args[1])
	}
	require.Error(t, exceptions.TryCatch[error](func() { parseConfig("2", "", "tpu", 0, "float32", 1, 1) }))
	require.Error(t, exceptions.TryCatch[error](func() { parseConfig("2", "", "host", 0, "string", 1, 1) }))
	require.Error(t, exceptions.TryCatch[error](func() { parseConfig("2", "", "host", 0, "float32", 0, 1) }))
}

func TestNaiveTranspose(t *testing.T) {
	got := naiveTranspose([]int{0, 1, 2, 3, 4, 5}, []int{2, 3}, []int{1, 0})
	assert.Equal(t, []int{0, 3, 1, 4, 2, 5}, got)
	assert.Empty(t, naiveTranspose([]int{}, []int{2, 0}, []int{1, 0}))
}

func TestTransfersPerCopy(t *testing.T) {
	assert.Equal(t, 6, transfersPerCopy([]int{2, 3, 4}, []int{1, 0, 2}))
	assert.Equal(t, 24, transfersPerCopy([]int{2, 3, 4}, []int{2, 1, 0}))
	assert.Equal(t, 6, transfersPerCopy([]int{2, 3, 1}, []int{2, 1, 0}))
	assert.Equal(t, 0, transfersPerCopy([]int{2, 0, 4}, []int{2, 1, 0}))
}

func TestRun(t *testing.T) {
	devices := []string{"host"}
	if platform.AcceleratorSupport {
		devices = append(devices, "accelerator")
	}
	for _, device := range devices {
		for _, dtype := range []string{"float32", "float64", "float16", "bfloat16", "int32", "int64"} {
			t.Run(device+"/"+dtype, func(t *testing.T) {
				cfg := parseConfig("3,4,5", "1,2,0", device, 0, dtype, 3, 2)
				var progress bytes.Buffer
				cfg.progress = &progress
				rep, err := run(cfg)
				require.NoError(t, err)
				assert.True(t, rep.verified)
				assert.Equal(t, 6, rep.numCopies)
				assert.Equal(t, 60, rep.transfersPerCopy)
				assert.Equal(t, 60*int(dtypeNames[dtype].Memory()), rep.bytesPerCopy)
				assert.Contains(t, renderReport(rep), "[3 4 5]")
			})
		}
	}
}
