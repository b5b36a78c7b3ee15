// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package stridedcopy copies strided multi-dimensional tensor views between buffers.
//
// The source and destination are described by a base pointer and per-axis strides (in number of
// elements), and the copied region by the destination shape. Strides can describe any layout:
// contiguous, transposed or sliced views.
//
// The copy loop is specialized per rank at compile time: the engine for rank R iterates the
// outermost axis and calls the engine for rank R-1, down to the rank-1 base case that issues the
// actual memory transfers. CopyWithStrides takes rank-erased descriptors (ddim.DDim) and selects
// the specialized engine matching the rank of the destination shape.
//
// Transfers go to the backend of the platform.Context:
//
//   - Host: synchronous copies, complete when CopyWithStrides returns.
//   - Accelerator: copies issued on the context stream, in the order outer axes first. They may
//     complete after CopyWithStrides returns: synchronize the stream before reading the destination.
//
// The supported ranks go from 1 to ddim.MaxRank (9).
//
// The innermost axis of the destination shape is copied with a single transfer when both innermost
// strides are 1. Otherwise each element of the innermost axis is a separate transfer.
package stridedcopy

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/stridedcopy/memory"
	"github.com/gomlx/stridedcopy/platform"
	"github.com/gomlx/stridedcopy/types/ddim"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrRankMismatch is returned (wrapped) when the strides and the destination shape have different ranks.
var ErrRankMismatch = ddim.ErrRankMismatch

// CopyWithStrides copies the tensor view of shape dstDim from src to dst.
//
// srcStride and dstStride are the element strides of each axis in src and dst, and must have
// the same rank as dstDim, otherwise an error wrapping ErrRankMismatch is returned and nothing is copied.
// An axis with extent 0 makes the copy a no-op. Negative extents are rejected.
//
// It returns once all transfers are issued, which for host contexts means they are complete.
// Transfer failures are returned as is; the contents of dst are then undefined.
func CopyWithStrides[E dtypes.Supported](ctx *platform.Context, src memory.Ptr[E], srcStride, dstDim, dstStride ddim.DDim, dst memory.Ptr[E]) error {
	if ctx == nil {
		return errors.New("stridedcopy.CopyWithStrides: nil context")
	}
	for axis, extent := range dstDim.Dims() {
		if extent < 0 {
			return errors.Errorf("stridedcopy.CopyWithStrides: negative extent %d for axis %d of shape %s", extent, axis, dstDim)
		}
	}
	if klog.V(3).Enabled() {
		klog.Infof("CopyWithStrides[%s](%s): shape=%s, srcStride=%s, dstStride=%s",
			dtypes.FromGenericsType[E](), ctx, dstDim, srcStride, dstStride)
	}
	return dstDim.Apply(copyDimVisitor[E]{
		ctx:       ctx,
		src:       src,
		srcStride: srcStride,
		dstStride: dstStride,
		dst:       dst,
	})
}
