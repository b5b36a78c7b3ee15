// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package memory allocates buffers on host or accelerator places, and copies byte ranges between them.
//
// It provides the two transfer primitives the operators rely on:
//
//   - Copy: synchronous copy between host places, complete when it returns.
//   - CopyOnStream: copy issued on an accelerator Stream, it returns once the copy is enqueued.
//
// Pointers (Pointer and the element typed Ptr) don't own memory: they only reference
// an offset in an Allocation, which is released with Allocation.Free.
package memory

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/stridedcopy/platform"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Allocation is a contiguous block of memory on a Place.
//
// Accelerator allocations must only be read or written through a Stream.
type Allocation struct {
	place platform.Place
	size  int

	mu    sync.Mutex
	data  []byte
	freed bool
}

// Alloc allocates numBytes (zero initialized) on the given place.
//
// The storage is 8-bytes aligned, so it can hold any of the supported element types.
func Alloc(place platform.Place, numBytes int) (*Allocation, error) {
	if numBytes < 0 {
		return nil, errors.Errorf("memory.Alloc(%s, %d): negative number of bytes", place, numBytes)
	}
	if place.IsAccelerator() && !platform.AcceleratorSupport {
		return nil, errors.Errorf("memory.Alloc(%s, %s): accelerator support not available",
			place, humanize.Bytes(uint64(numBytes)))
	}
	a := &Allocation{place: place, size: numBytes}
	if numBytes > 0 {
		words := make([]uint64, (numBytes+7)/8)
		a.data = unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), numBytes)
	}
	klog.V(3).Infof("memory: allocated %s on %s", humanize.Bytes(uint64(numBytes)), place)
	return a, nil
}

// AllocFor allocates space for numElems elements of type E on the given place.
func AllocFor[E dtypes.Supported](place platform.Place, numElems int) (*Allocation, error) {
	if numElems < 0 {
		return nil, errors.Errorf("memory.AllocFor[%s](%s, %d): negative number of elements",
			dtypes.FromGenericsType[E](), place, numElems)
	}
	return Alloc(place, numElems*SizeOf[E]())
}

// HostAllocationOf allocates host memory holding a copy of values.
func HostAllocationOf[E dtypes.Supported](values []E) (*Allocation, error) {
	a, err := AllocFor[E](platform.CPUPlace(), len(values))
	if err != nil {
		return nil, err
	}
	flat, err := HostSlice[E](a)
	if err != nil {
		return nil, err
	}
	copy(flat, values)
	return a, nil
}

// Place where the allocation lives.
func (a *Allocation) Place() platform.Place { return a.place }

// Size in bytes of the allocation.
func (a *Allocation) Size() int { return a.size }

// Ptr returns a pointer to the start of the allocation.
func (a *Allocation) Ptr() Pointer { return Pointer{alloc: a} }

// Free releases the memory. Using the allocation afterwards returns errors.
// It can be called more than once.
func (a *Allocation) Free() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed {
		return
	}
	a.freed = true
	a.data = nil
	klog.V(3).Infof("memory: freed %s on %s", humanize.Bytes(uint64(a.size)), a.place)
}

// IsFreed returns whether Free was called.
func (a *Allocation) IsFreed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.freed
}

// String implements fmt.Stringer.
func (a *Allocation) String() string {
	return fmt.Sprintf("Allocation(%s, %s)", a.place, humanize.Bytes(uint64(a.size)))
}

// bytes returns the storage, or an error if it was freed.
func (a *Allocation) bytes() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed {
		return nil, errors.Errorf("%s was already freed", a)
	}
	return a.data, nil
}

// HostSlice returns the contents of a host allocation as a slice of E, with as many elements as fit.
//
// The slice shares the allocation storage and is invalid after Allocation.Free.
func HostSlice[E dtypes.Supported](a *Allocation) ([]E, error) {
	if !a.place.IsHost() {
		return nil, errors.Errorf("memory.HostSlice(%s): only host allocations can be accessed directly", a)
	}
	data, err := a.bytes()
	if err != nil {
		return nil, err
	}
	numElems := len(data) / SizeOf[E]()
	if numElems == 0 {
		return []E{}, nil
	}
	return unsafe.Slice((*E)(unsafe.Pointer(unsafe.SliceData(data))), numElems), nil
}

// SizeOf returns the size in bytes of one element of type E.
func SizeOf[E dtypes.Supported]() int {
	return int(dtypes.FromGenericsType[E]().Memory())
}
