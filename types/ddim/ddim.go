// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ddim defines fixed-rank dimension values and the rank-tagged dynamic descriptor DDim.
//
// A fixed-rank value statically encodes its rank in its type: Dim1 is a single extent (or stride),
// and Dim[T] prepends one outer axis (its head) to a lower rank value T (its tail). The aliases
// Dim2 ... Dim9 name the supported instantiations, so code generic on a Fixed type parameter
// can recurse from rank R to rank R-1 entirely at compile time.
//
// DDim erases the rank: it holds exactly one of Dim1 ... Dim9, and recovers the concrete type
// either with a Visitor (see DDim.Apply) or with a checked downcast (see As).
//
// The same types are used for shapes (dimension extents) and for strides (number of elements to
// advance for each step on an axis).
//
// ## Glossary
//
//   - Rank: number of axes of a tensor view.
//   - Head: extent (or stride) of the outermost axis of a fixed-rank value.
//   - Tail: the remaining inner axes, a fixed-rank value with one axis less.
package ddim

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// MaxRank is the largest rank supported. Descriptors of higher rank cannot be constructed.
const MaxRank = 9

// ErrRankMismatch is returned (wrapped) when a descriptor doesn't hold the requested rank.
var ErrRankMismatch = errors.New("rank mismatch")

// Fixed is implemented by the fixed-rank values Dim1 ... Dim9 (and only by them).
type Fixed interface {
	// Rank returns the number of axes, fixed by the type.
	Rank() int

	// Head returns the value of the outermost axis.
	Head() int

	// Dims returns the values from the outermost to the innermost axis.
	Dims() []int

	fmt.Stringer

	isFixed()
}

// Dim1 is a rank-1 value. It has no tail.
type Dim1 struct {
	head int
}

// Rank of a Dim1 is always 1.
func (d Dim1) Rank() int { return 1 }

// Head returns the single value of Dim1.
func (d Dim1) Head() int { return d.head }

// Dims returns the one-element slice with the head.
func (d Dim1) Dims() []int { return []int{d.head} }

// String implements fmt.Stringer.
func (d Dim1) String() string { return fmt.Sprintf("%v", d.Dims()) }

func (d Dim1) isFixed() {}

// Dim prepends an outer axis to the lower rank value T.
type Dim[T Fixed] struct {
	head int
	tail T
}

// Rank returns 1 plus the rank of the tail.
func (d Dim[T]) Rank() int { return 1 + d.tail.Rank() }

// Head returns the value of the outermost axis.
func (d Dim[T]) Head() int { return d.head }

// Tail returns the inner axes.
func (d Dim[T]) Tail() T { return d.tail }

// Dims returns the values from the outermost to the innermost axis.
func (d Dim[T]) Dims() []int {
	dims := make([]int, 0, d.Rank())
	dims = append(dims, d.head)
	return append(dims, d.tail.Dims()...)
}

// String implements fmt.Stringer.
func (d Dim[T]) String() string { return fmt.Sprintf("%v", d.Dims()) }

func (d Dim[T]) isFixed() {}

// Supported fixed-rank types.
type (
	Dim2 = Dim[Dim1]
	Dim3 = Dim[Dim2]
	Dim4 = Dim[Dim3]
	Dim5 = Dim[Dim4]
	Dim6 = Dim[Dim5]
	Dim7 = Dim[Dim6]
	Dim8 = Dim[Dim7]
	Dim9 = Dim[Dim8]
)

// Cons returns the value with the given head and tail.
func Cons[T Fixed](head int, tail T) Dim[T] {
	return Dim[T]{head: head, tail: tail}
}

// One returns the rank-1 value.
func One(head int) Dim1 {
	return Dim1{head: head}
}

// DDim is a dynamically ranked descriptor: it holds one of Dim1 ... Dim9.
//
// The zero value is invalid, use Make to create one.
type DDim struct {
	fixed Fixed
}

// Make returns the DDim with the given values, one per axis, from the outermost to the innermost.
//
// It panics if the rank is 0 or larger than MaxRank: the rank limit is a configuration
// constraint, not something recoverable when copying.
func Make(dims ...int) DDim {
	if len(dims) == 0 || len(dims) > MaxRank {
		exceptions.Panicf("ddim.Make(%v): rank %d not supported, it must be between 1 and %d", dims, len(dims), MaxRank)
	}
	return DDim{fixed: fromSlice(dims)}
}

// FromFixed returns the DDim holding the given fixed-rank value.
func FromFixed[D Fixed](d D) DDim {
	return DDim{fixed: d}
}

func fromSlice(dims []int) Fixed {
	head, inner := dims[0], dims[1:]
	switch len(dims) {
	case 1:
		return One(head)
	case 2:
		return Cons(head, fromSlice(inner).(Dim1))
	case 3:
		return Cons(head, fromSlice(inner).(Dim2))
	case 4:
		return Cons(head, fromSlice(inner).(Dim3))
	case 5:
		return Cons(head, fromSlice(inner).(Dim4))
	case 6:
		return Cons(head, fromSlice(inner).(Dim5))
	case 7:
		return Cons(head, fromSlice(inner).(Dim6))
	case 8:
		return Cons(head, fromSlice(inner).(Dim7))
	case 9:
		return Cons(head, fromSlice(inner).(Dim8))
	}
	exceptions.Panicf("rank %d not supported", len(dims))
	return nil
}

// Ok returns whether the descriptor holds a value. The zero DDim{} is not ok.
func (d DDim) Ok() bool { return d.fixed != nil }

// Rank returns the number of axes, or 0 for an invalid descriptor.
func (d DDim) Rank() int {
	if d.fixed == nil {
		return 0
	}
	return d.fixed.Rank()
}

// Dims returns the values of each axis, from the outermost to the innermost.
func (d DDim) Dims() []int {
	if d.fixed == nil {
		return nil
	}
	return d.fixed.Dims()
}

// Dim returns the value of the given axis. Negative values count from the end,
// so -1 refers to the innermost axis. It panics for an out-of-bounds axis.
func (d DDim) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += d.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= d.Rank() {
		exceptions.Panicf("DDim.Dim(%d) out-of-bounds for rank %d (ddim=%s)", axis, d.Rank(), d)
	}
	return d.Dims()[adjustedAxis]
}

// Product returns the product of all values. For a shape, it's the number of elements.
func (d DDim) Product() int {
	product := 1
	for _, dim := range d.Dims() {
		product *= dim
	}
	return product
}

// Equal returns whether both descriptors have the same rank and values.
func (d DDim) Equal(other DDim) bool {
	return slices.Equal(d.Dims(), other.Dims())
}

// String implements fmt.Stringer.
func (d DDim) String() string {
	if d.fixed == nil {
		return "DDim<invalid>"
	}
	return d.fixed.String()
}

// Strides returns the row-major (contiguous) strides of a shape: the innermost axis has
// stride 1, and each outer axis the product of the inner extents.
func Strides(shape DDim) DDim {
	dims := shape.Dims()
	if len(dims) == 0 {
		exceptions.Panicf("ddim.Strides(%s): invalid shape", shape)
	}
	strides := make([]int, len(dims))
	strides[len(dims)-1] = 1
	for axis := len(dims) - 2; axis >= 0; axis-- {
		strides[axis] = strides[axis+1] * dims[axis+1]
	}
	return Make(strides...)
}

// As returns the value held by d as the fixed-rank type D.
//
// It returns an error wrapping ErrRankMismatch if d holds a different rank.
func As[D Fixed](d DDim) (D, error) {
	value, ok := d.fixed.(D)
	if !ok {
		var want D
		return want, errors.Wrapf(ErrRankMismatch, "ddim %s has rank %d, wanted rank %d", d, d.Rank(), want.Rank())
	}
	return value, nil
}
