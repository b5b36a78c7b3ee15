// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package operators implements tensor layout operators (transpose, concatenation, split and slice)
// on top of stridedcopy.CopyWithStrides.
//
// All operators take a platform.Context and issue their copies on its backend. For accelerator
// contexts the copies are only issued when an operator returns: synchronize the context before
// reading the outputs from the host.
package operators

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/stridedcopy/memory"
	"github.com/gomlx/stridedcopy/platform"
	"github.com/gomlx/stridedcopy/types/ddim"
	"github.com/pkg/errors"
)

// Tensor is a dense row-major tensor of elements of type E.
//
// Data points to the first element and Dims holds the extent of each axis. Tensors created with
// NewTensor or FromValues own their allocation, released with Free.
type Tensor[E dtypes.Supported] struct {
	Data memory.Ptr[E]
	Dims ddim.DDim

	alloc *memory.Allocation
}

// NewTensor allocates a zero-initialized tensor with the given dimensions in place.
func NewTensor[E dtypes.Supported](place platform.Place, dims ...int) (*Tensor[E], error) {
	shape, err := makeShape(dims)
	if err != nil {
		return nil, err
	}
	alloc, err := memory.AllocFor[E](place, shape.Product())
	if err != nil {
		return nil, errors.WithMessagef(err, "operators.NewTensor(%s, %v)", place, dims)
	}
	return &Tensor[E]{Data: memory.ElemPtr[E](alloc), Dims: shape, alloc: alloc}, nil
}

// FromValues creates a host tensor with a copy of the flat values, in row-major order.
func FromValues[E dtypes.Supported](values []E, dims ...int) (*Tensor[E], error) {
	shape, err := makeShape(dims)
	if err != nil {
		return nil, err
	}
	if shape.Product() != len(values) {
		return nil, errors.Errorf("operators.FromValues: %d values given for shape %s (size %d)",
			len(values), shape, shape.Product())
	}
	alloc, err := memory.HostAllocationOf(values)
	if err != nil {
		return nil, err
	}
	return &Tensor[E]{Data: memory.ElemPtr[E](alloc), Dims: shape, alloc: alloc}, nil
}

func makeShape(dims []int) (ddim.DDim, error) {
	if len(dims) == 0 || len(dims) > ddim.MaxRank {
		return ddim.DDim{}, errors.Errorf("tensor rank %d not supported, it must be between 1 and %d", len(dims), ddim.MaxRank)
	}
	for axis, dim := range dims {
		if dim < 0 {
			return ddim.DDim{}, errors.Errorf("negative dimension %d for axis %d in %v", dim, axis, dims)
		}
	}
	return ddim.Make(dims...), nil
}

// Rank returns the number of axes.
func (t *Tensor[E]) Rank() int { return t.Dims.Rank() }

// Size returns the number of elements.
func (t *Tensor[E]) Size() int { return t.Dims.Product() }

// Strides returns the row-major element strides of the tensor.
func (t *Tensor[E]) Strides() ddim.DDim { return ddim.Strides(t.Dims) }

// Place where the tensor data lives.
func (t *Tensor[E]) Place() platform.Place { return t.Data.Raw().Place() }

// Values returns the flat values of a host tensor. The returned slice shares the tensor memory.
func (t *Tensor[E]) Values() ([]E, error) {
	if t.alloc == nil {
		return nil, errors.Errorf("Tensor.Values(): tensor %s doesn't own its data", t)
	}
	return memory.HostSlice[E](t.alloc)
}

// Free releases the tensor allocation. It is a no-op for tensors that don't own their data.
func (t *Tensor[E]) Free() {
	if t.alloc != nil {
		t.alloc.Free()
	}
}

// String implements fmt.Stringer.
func (t *Tensor[E]) String() string {
	return fmt.Sprintf("Tensor[%s]%s", dtypes.FromGenericsType[E](), t.Dims)
}
