// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stridedcopy

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/stridedcopy/memory"
	"github.com/gomlx/stridedcopy/platform"
	"github.com/gomlx/stridedcopy/types/ddim"
	"github.com/pkg/errors"
)

// ErrUnsupportedBackend is returned (wrapped) when the copy requires a backend not available in this build.
var ErrUnsupportedBackend = errors.New("unsupported backend")

// Backend transfer primitives, variables so tests can observe the issued transfers.
var (
	hostCopy   = memory.Copy
	streamCopy = memory.CopyOnStream
)

// copyFunc copies one block of rank D: dstDim.Head() groups of the inner axes.
type copyFunc[E dtypes.Supported, D ddim.Fixed] func(ctx *platform.Context, src memory.Ptr[E], srcStride, dstDim, dstStride D, dst memory.Ptr[E]) error

// CopyRank copies the tensor view of shape dstDim from src to dst, for a rank known at compile time.
//
// srcStride and dstStride are the number of elements to advance on each axis, in src and dst respectively.
// Transfers are issued sequentially, outer axes first. See CopyWithStrides for the rank agnostic version.
func CopyRank[E dtypes.Supported, D ddim.Fixed](ctx *platform.Context, src memory.Ptr[E], srcStride, dstDim, dstStride D, dst memory.Ptr[E]) error {
	return engineFor[E, D]()(ctx, src, srcStride, dstDim, dstStride, dst)
}

// engineFor returns the copy function specialized for rank D: the rank-1 base case wrapped by one
// nesting level per additional axis.
func engineFor[E dtypes.Supported, D ddim.Fixed]() copyFunc[E, D] {
	var engine any
	switch any(*new(D)).(type) {
	case ddim.Dim1:
		engine = base[E]()
	case ddim.Dim2:
		engine = nest(base[E]())
	case ddim.Dim3:
		engine = nest(nest(base[E]()))
	case ddim.Dim4:
		engine = nest(nest(nest(base[E]())))
	case ddim.Dim5:
		engine = nest(nest(nest(nest(base[E]()))))
	case ddim.Dim6:
		engine = nest(nest(nest(nest(nest(base[E]())))))
	case ddim.Dim7:
		engine = nest(nest(nest(nest(nest(nest(base[E]()))))))
	case ddim.Dim8:
		engine = nest(nest(nest(nest(nest(nest(nest(base[E]())))))))
	case ddim.Dim9:
		engine = nest(nest(nest(nest(nest(nest(nest(nest(base[E]()))))))))
	default:
		exceptions.Panicf("stridedcopy: rank %d not supported, max rank is %d", (*new(D)).Rank(), ddim.MaxRank)
	}
	return engine.(copyFunc[E, D])
}

// nest returns the copy function for one more (outer) axis than inner.
func nest[E dtypes.Supported, T ddim.Fixed](inner copyFunc[E, T]) copyFunc[E, ddim.Dim[T]] {
	return func(ctx *platform.Context, src memory.Ptr[E], srcStride, dstDim, dstStride ddim.Dim[T], dst memory.Ptr[E]) error {
		for range dstDim.Head() {
			if err := inner(ctx, src, srcStride.Tail(), dstDim.Tail(), dstStride.Tail(), dst); err != nil {
				return err
			}
			src = src.Add(srcStride.Head())
			dst = dst.Add(dstStride.Head())
		}
		return nil
	}
}

func base[E dtypes.Supported]() copyFunc[E, ddim.Dim1] {
	return copyRank1[E]
}

// copyRank1 copies dstDim.Head() elements. If the run is contiguous on both sides it's a single transfer,
// otherwise one transfer per element.
func copyRank1[E dtypes.Supported](ctx *platform.Context, src memory.Ptr[E], srcStride, dstDim, dstStride ddim.Dim1, dst memory.Ptr[E]) error {
	numElems := dstDim.Head()
	if numElems <= 0 {
		return nil
	}
	if numElems == 1 || (srcStride.Head() == 1 && dstStride.Head() == 1) {
		return transfer(ctx, src, dst, numElems)
	}
	for range numElems {
		if err := transfer(ctx, src, dst, 1); err != nil {
			return err
		}
		src = src.Add(srcStride.Head())
		dst = dst.Add(dstStride.Head())
	}
	return nil
}

// transfer issues the copy of numElems contiguous elements on the backend of ctx.
func transfer[E dtypes.Supported](ctx *platform.Context, src, dst memory.Ptr[E], numElems int) error {
	numBytes := numElems * memory.SizeOf[E]()
	place := ctx.Place()
	switch place.Kind {
	case platform.Host:
		return hostCopy(place, dst.Raw(), place, src.Raw(), numBytes)
	case platform.Accelerator:
		if !platform.AcceleratorSupport {
			return errors.Wrapf(ErrUnsupportedBackend, "cannot copy on %s: accelerator support not available in this build (compiled=%v)",
				place, platform.AcceleratorCompiled)
		}
		return streamCopy(place, dst.Raw(), place, src.Raw(), numBytes, ctx.Stream())
	}
	return errors.Wrapf(ErrUnsupportedBackend, "cannot copy on %s", place)
}
