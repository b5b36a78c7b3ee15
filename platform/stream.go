// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package platform

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Stream executes work for an accelerator device asynchronously, in the order it was issued.
//
// Failures are sticky: after the first operation fails, the following operations are skipped
// (events still trigger) and the error is reported by Err, Synchronize and Close.
//
// Streams are safe for concurrent use, but the relative order of work issued concurrently
// from different goroutines is undefined.
type Stream struct {
	id        uuid.UUID
	deviceNum int

	mu     sync.Mutex
	cond   sync.Cond // Signaled when the queue grows or the stream is closed.
	queue  []streamOp
	closed bool
	err    error

	numIssued, numExecuted atomic.Int64
	stopped                *Event
}

type streamOp struct {
	name  string
	fn    func() error
	event *Event
}

// NewStream creates a stream for the accelerator deviceNum and starts its worker.
//
// Call Close when the stream is no longer needed.
func NewStream(deviceNum int) *Stream {
	s := &Stream{
		id:        uuid.New(),
		deviceNum: deviceNum,
		stopped:   newEvent(),
	}
	s.cond = sync.Cond{L: &s.mu}
	go s.run()
	klog.V(2).Infof("%s: created", s)
	return s
}

// DeviceNum of the accelerator this stream issues work to.
func (s *Stream) DeviceNum() int { return s.deviceNum }

// String implements fmt.Stringer.
func (s *Stream) String() string {
	return fmt.Sprintf("Stream(device=%d, id=%s)", s.deviceNum, s.id.String()[:8])
}

// Enqueue issues fn to be executed after all work previously issued on the stream.
// It returns once fn is queued, not when it is executed.
//
// It fails only if the stream is closed. Errors returned by fn are reported asynchronously, see Err.
func (s *Stream) Enqueue(name string, fn func() error) error {
	return s.push(streamOp{name: name, fn: fn})
}

// RecordEvent returns an event that triggers once all work issued so far has finished.
func (s *Stream) RecordEvent() (*Event, error) {
	event := newEvent()
	if err := s.push(streamOp{name: "event", event: event}); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Stream) push(op streamOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.Errorf("%s: cannot enqueue %q, stream is closed", s, op.name)
	}
	s.queue = append(s.queue, op)
	s.numIssued.Add(1)
	klog.V(3).Infof("%s: enqueued %q (%d pending)", s, op.name, len(s.queue))
	s.cond.Signal()
	return nil
}

// Synchronize blocks until all work issued so far is finished, and returns the stream error, if any.
func (s *Stream) Synchronize() error {
	event, err := s.RecordEvent()
	if err != nil {
		// Closed stream: wait for the worker to drain the queue.
		s.stopped.Wait()
		return s.Err()
	}
	event.Wait()
	return s.Err()
}

// Err returns the first error of an operation executed on the stream, or nil.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// NumIssued returns the number of operations (including events) issued so far.
func (s *Stream) NumIssued() int64 { return s.numIssued.Load() }

// NumExecuted returns the number of operations (including events and skipped operations) finished so far.
func (s *Stream) NumExecuted() int64 { return s.numExecuted.Load() }

// Close stops accepting work, waits for the issued work to finish and stops the worker.
// It returns the stream error, if any. It can be called more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.cond.Broadcast()
	}
	s.mu.Unlock()
	s.stopped.Wait()
	return s.Err()
}

// run is the stream worker.
func (s *Stream) run() {
	defer s.stopped.trigger()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			klog.V(2).Infof("%s: stopped after %d operations", s, s.numExecuted.Load())
			return
		}
		op := s.queue[0]
		s.queue[0] = streamOp{}
		s.queue = s.queue[1:]
		failed := s.err != nil
		s.mu.Unlock()

		s.execute(op, failed)
		s.numExecuted.Add(1)
	}
}

func (s *Stream) execute(op streamOp, failed bool) {
	if op.event != nil {
		op.event.trigger()
		return
	}
	if failed {
		klog.V(2).Infof("%s: skipping %q after a previous failure", s, op.name)
		return
	}
	err := op.fn()
	if err == nil {
		return
	}
	klog.Warningf("%s: %q failed: %v", s, op.name, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = errors.WithMessagef(err, "%s: %q failed", s, op.name)
	}
}
