// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package platform

import "fmt"

// Context is the execution context of memory operations: where they run (Place) and, for
// accelerators, the Stream used to issue them.
//
// Code that needs to branch on the backend switches on Place().Kind.
type Context struct {
	place  Place
	stream *Stream
}

// NewCPUContext returns a context that runs memory operations synchronously on the host.
func NewCPUContext() *Context {
	return &Context{place: CPUPlace()}
}

// NewAcceleratorContext returns a context for the accelerator deviceNum, with its own Stream.
//
// The context can be created even if accelerator support is not available: the
// operations issued on it will fail instead.
//
// Call Close to release the stream.
func NewAcceleratorContext(deviceNum int) *Context {
	return &Context{
		place:  AcceleratorPlace(deviceNum),
		stream: NewStream(deviceNum),
	}
}

// NewAcceleratorContextWithStream returns a context for the accelerator the stream belongs to,
// sharing the given stream. Closing the returned context closes the stream.
func NewAcceleratorContextWithStream(stream *Stream) *Context {
	return &Context{
		place:  AcceleratorPlace(stream.DeviceNum()),
		stream: stream,
	}
}

// Place where the operations of this context run.
func (c *Context) Place() Place { return c.place }

// Stream returns the accelerator execution stream, or nil for a host context.
func (c *Context) Stream() *Stream { return c.stream }

// Synchronize waits for all work issued on the context to finish. It's a no-op for host contexts.
func (c *Context) Synchronize() error {
	if c.stream == nil {
		return nil
	}
	return c.stream.Synchronize()
}

// Close releases the resources associated with the context. It's a no-op for host contexts.
func (c *Context) Close() error {
	if c.stream == nil {
		return nil
	}
	return c.stream.Close()
}

// String implements fmt.Stringer.
func (c *Context) String() string {
	if c.stream == nil {
		return fmt.Sprintf("Context(%s)", c.place)
	}
	return fmt.Sprintf("Context(%s, %s)", c.place, c.stream)
}
