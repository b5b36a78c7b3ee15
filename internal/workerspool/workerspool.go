// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool runs tasks on goroutines with a bounded parallelism.
package workerspool

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// Pool bounds the number of tasks running concurrently.
type Pool struct {
	// maxParallelism is the limit of tasks running at the same time: 0 disables parallelism
	// (tasks run inline) and a negative value means unlimited.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Should be signaled whenever numRunning is decreased.
	numRunning     int
}

// New return a new Pool of workers with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	w := &Pool{}
	w.maxParallelism = runtime.NumCPU()
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// IsUnlimited returns whether parallelism is unlimited (maxParallelism < 0)
func (w *Pool) IsUnlimited() bool {
	return w.maxParallelism < 0
}

// MaxParallelism returns the limit of tasks running at the same time.
// If 0 parallelism is disabled, if -1 it is unlimited.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// SetMaxParallelism sets the maxParallelism.
//
// It should only be changed before any task starts running.
func (w *Pool) SetMaxParallelism(maxParallelism int) {
	w.maxParallelism = maxParallelism
}

// NumRunning returns the number of tasks currently running in the pool's goroutines.
func (w *Pool) NumRunning() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.numRunning
}

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedIsFull() bool {
	if w.maxParallelism < 0 {
		return false
	}
	return w.numRunning >= w.maxParallelism
}

// WaitToStart waits until there is a worker available and starts the task in a new goroutine.
//
// If parallelism is disabled (maxParallelism is 0), it runs the task inline and returns when it is finished.
func (w *Pool) WaitToStart(task func()) {
	if w.maxParallelism == 0 {
		task()
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.lockedIsFull() {
		w.cond.Wait()
	}
	w.numRunning++
	go func() {
		defer w.taskDone()
		task()
	}()
}

func (w *Pool) taskDone() {
	w.mu.Lock()
	w.numRunning--
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Saturate starts one copy of task per available worker and waits for all of them to finish.
//
// With parallelism disabled the task runs once inline; with unlimited parallelism it runs
// runtime.NumCPU() times.
func (w *Pool) Saturate(task func()) {
	if w.maxParallelism == 0 {
		task()
		return
	}
	numTasks := w.maxParallelism
	if w.IsUnlimited() {
		numTasks = runtime.NumCPU()
	}
	var wg sync.WaitGroup
	wg.Add(numTasks)
	for range numTasks {
		w.WaitToStart(func() {
			defer wg.Done()
			task()
		})
	}
	wg.Wait()
}

// Map runs fn(i) for i in [0, n), at most MaxParallelism() at a time, and waits for all of them.
//
// It returns the error of the lowest index that failed, if any. All tasks are run regardless of failures.
func (w *Pool) Map(n int, fn func(i int) error) error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		w.WaitToStart(func() {
			defer wg.Done()
			errs[i] = fn(i)
		})
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return errors.WithMessagef(err, "task #%d of %d failed", i, n)
		}
	}
	return nil
}
