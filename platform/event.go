// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package platform

import "sync"

// Event is a marker recorded on a Stream: it triggers once all the work issued on the stream
// before it has finished. Once triggered it never changes state.
type Event struct {
	muTrigger sync.Mutex
	wait      chan struct{}
}

func newEvent() *Event {
	return &Event{wait: make(chan struct{})}
}

// trigger the event; triggering it more than once is a no-op.
func (e *Event) trigger() {
	e.muTrigger.Lock()
	defer e.muTrigger.Unlock()
	if e.Done() {
		return
	}
	close(e.wait)
}

// Wait blocks until the event is triggered.
func (e *Event) Wait() {
	<-e.wait
}

// Done returns whether the event has been triggered, without blocking.
func (e *Event) Done() bool {
	select {
	case <-e.wait:
		return true
	default:
		return false
	}
}

// WaitChan returns a channel closed when the event triggers, to be used in a `select`.
func (e *Event) WaitChan() <-chan struct{} {
	return e.wait
}
