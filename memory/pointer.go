// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package memory

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/stridedcopy/platform"
	"github.com/pkg/errors"
)

// Pointer references a byte offset in an Allocation. The zero value is a nil pointer.
//
// Pointer arithmetic is unchecked: bounds are checked when the pointer is used in a copy.
type Pointer struct {
	alloc  *Allocation
	offset int
}

// IsNil returns whether the pointer doesn't reference any allocation.
func (p Pointer) IsNil() bool { return p.alloc == nil }

// Allocation referenced by the pointer.
func (p Pointer) Allocation() *Allocation { return p.alloc }

// Offset in bytes from the start of the allocation.
func (p Pointer) Offset() int { return p.offset }

// Add returns the pointer moved by numBytes (which can be negative).
func (p Pointer) Add(numBytes int) Pointer {
	return Pointer{alloc: p.alloc, offset: p.offset + numBytes}
}

// Place of the referenced allocation. It panics for a nil pointer.
func (p Pointer) Place() platform.Place {
	if p.alloc == nil {
		exceptions.Panicf("memory.Pointer.Place() called on a nil pointer")
	}
	return p.alloc.place
}

// String implements fmt.Stringer.
func (p Pointer) String() string {
	if p.alloc == nil {
		return "Pointer(nil)"
	}
	return fmt.Sprintf("Pointer(%s+%d)", p.alloc.place, p.offset)
}

// span returns the numBytes starting at p, checking that p lives in place and the range is valid.
func (p Pointer) span(place platform.Place, numBytes int) ([]byte, error) {
	if p.alloc == nil {
		return nil, errors.New("nil pointer")
	}
	if p.alloc.place != place {
		return nil, errors.Errorf("%s doesn't live in %s", p, place)
	}
	data, err := p.alloc.bytes()
	if err != nil {
		return nil, err
	}
	if p.offset < 0 || numBytes < 0 || p.offset+numBytes > len(data) {
		return nil, errors.Errorf("%s: range of %d bytes out of bounds for %s", p, numBytes, p.alloc)
	}
	return data[p.offset : p.offset+numBytes], nil
}

// Ptr is a Pointer to elements of type E: arithmetic is done in number of elements.
type Ptr[E dtypes.Supported] struct {
	raw      Pointer
	elemSize int
}

// PtrOf returns the element pointer for the given raw pointer.
func PtrOf[E dtypes.Supported](p Pointer) Ptr[E] {
	return Ptr[E]{raw: p, elemSize: SizeOf[E]()}
}

// ElemPtr returns a pointer to the start of the allocation, for elements of type E.
func ElemPtr[E dtypes.Supported](a *Allocation) Ptr[E] {
	return PtrOf[E](a.Ptr())
}

// Add returns the pointer moved by numElems elements (which can be negative).
func (p Ptr[E]) Add(numElems int) Ptr[E] {
	return Ptr[E]{raw: p.raw.Add(numElems * p.elemSize), elemSize: p.elemSize}
}

// Raw returns the untyped pointer.
func (p Ptr[E]) Raw() Pointer { return p.raw }

// IsNil returns whether the pointer doesn't reference any allocation.
func (p Ptr[E]) IsNil() bool { return p.raw.IsNil() }

// String implements fmt.Stringer.
func (p Ptr[E]) String() string {
	return fmt.Sprintf("Ptr[%s](%s)", dtypes.FromGenericsType[E](), p.raw)
}
