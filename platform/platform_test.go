// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package platform

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestPlace(t *testing.T) {
	require.True(t, CPUPlace().IsHost())
	require.False(t, CPUPlace().IsAccelerator())
	require.Equal(t, "CPUPlace", CPUPlace().String())

	p := AcceleratorPlace(1)
	require.True(t, p.IsAccelerator())
	require.Equal(t, 1, p.DeviceNum)
	require.Equal(t, "AcceleratorPlace(1)", p.String())
	require.NotEqual(t, AcceleratorPlace(0), p)
	require.Panics(t, func() { _ = AcceleratorPlace(-1) })
}

func TestContext(t *testing.T) {
	cpu := NewCPUContext()
	require.Nil(t, cpu.Stream())
	require.True(t, cpu.Place().IsHost())
	require.NoError(t, cpu.Synchronize())
	require.NoError(t, cpu.Close())

	accel := NewAcceleratorContext(2)
	require.NotNil(t, accel.Stream())
	require.Equal(t, AcceleratorPlace(2), accel.Place())
	require.Equal(t, 2, accel.Stream().DeviceNum())
	require.NoError(t, accel.Synchronize())
	require.NoError(t, accel.Close())

	stream := NewStream(3)
	shared := NewAcceleratorContextWithStream(stream)
	require.Same(t, stream, shared.Stream())
	require.Equal(t, 3, shared.Place().DeviceNum)
	require.NoError(t, shared.Close())
}

func TestStreamOrder(t *testing.T) {
	s := NewStream(0)
	defer func() { require.NoError(t, s.Close()) }()

	var order []int // Only touched by the stream worker until Synchronize returns.
	const numOps = 100
	for ii := range numOps {
		require.NoError(t, s.Enqueue("append", func() error {
			order = append(order, ii)
			return nil
		}))
	}
	require.NoError(t, s.Synchronize())
	require.Len(t, order, numOps)
	for ii, got := range order {
		require.Equal(t, ii, got)
	}
	require.Equal(t, int64(numOps+1), s.NumIssued()) // Plus the event recorded by Synchronize.
	require.GreaterOrEqual(t, s.NumExecuted(), int64(numOps))
}

func TestStreamEvent(t *testing.T) {
	s := NewStream(0)
	defer func() { require.NoError(t, s.Close()) }()

	release := make(chan struct{})
	require.NoError(t, s.Enqueue("blocked", func() error {
		<-release
		return nil
	}))
	event, err := s.RecordEvent()
	require.NoError(t, err)
	require.False(t, event.Done())
	close(release)
	<-event.WaitChan()
	require.True(t, event.Done())
	event.Wait()
}

func TestStreamStickyError(t *testing.T) {
	s := NewStream(0)
	failure := errors.New("transfer failed")
	var ranAfter bool
	require.NoError(t, s.Enqueue("ok", func() error { return nil }))
	require.NoError(t, s.Enqueue("fails", func() error { return failure }))
	require.NoError(t, s.Enqueue("after", func() error {
		ranAfter = true
		return nil
	}))
	err := s.Synchronize()
	require.Error(t, err)
	require.ErrorIs(t, err, failure)
	require.Contains(t, err.Error(), `"fails"`)
	require.False(t, ranAfter)
	require.ErrorIs(t, s.Err(), failure)
	require.ErrorIs(t, s.Close(), failure)
}

func TestStreamClosed(t *testing.T) {
	s := NewStream(0)
	var count int
	for range 10 {
		require.NoError(t, s.Enqueue("count", func() error {
			count++
			return nil
		}))
	}
	require.NoError(t, s.Close())
	require.Equal(t, 10, count)
	require.NoError(t, s.Close())
	require.Error(t, s.Enqueue("late", func() error { return nil }))
	_, err := s.RecordEvent()
	require.Error(t, err)
	require.NoError(t, s.Synchronize())
}

func TestStreamConcurrentIssue(t *testing.T) {
	s := NewStream(0)
	defer func() { require.NoError(t, s.Close()) }()
	var mu sync.Mutex
	total := 0
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = s.Enqueue("add", func() error {
					mu.Lock()
					total++
					mu.Unlock()
					return nil
				})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, s.Synchronize())
	require.Equal(t, 8*50, total)
}
