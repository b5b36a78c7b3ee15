// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stridedcopy

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/stridedcopy/memory"
	"github.com/gomlx/stridedcopy/platform"
	"github.com/gomlx/stridedcopy/types/ddim"
	"github.com/pkg/errors"
)

// copyDimVisitor is applied to the destination shape: it recovers the static rank of the
// shape, downcasts the strides to the same rank and calls the engine specialized for it.
type copyDimVisitor[E dtypes.Supported] struct {
	ctx                  *platform.Context
	src                  memory.Ptr[E]
	srcStride, dstStride ddim.DDim
	dst                  memory.Ptr[E]
}

var _ ddim.Visitor = copyDimVisitor[float32]{}

func (v copyDimVisitor[E]) VisitDim1(dstDim ddim.Dim1) error { return visit(v, dstDim) }
func (v copyDimVisitor[E]) VisitDim2(dstDim ddim.Dim2) error { return visit(v, dstDim) }
func (v copyDimVisitor[E]) VisitDim3(dstDim ddim.Dim3) error { return visit(v, dstDim) }
func (v copyDimVisitor[E]) VisitDim4(dstDim ddim.Dim4) error { return visit(v, dstDim) }
func (v copyDimVisitor[E]) VisitDim5(dstDim ddim.Dim5) error { return visit(v, dstDim) }
func (v copyDimVisitor[E]) VisitDim6(dstDim ddim.Dim6) error { return visit(v, dstDim) }
func (v copyDimVisitor[E]) VisitDim7(dstDim ddim.Dim7) error { return visit(v, dstDim) }
func (v copyDimVisitor[E]) VisitDim8(dstDim ddim.Dim8) error { return visit(v, dstDim) }
func (v copyDimVisitor[E]) VisitDim9(dstDim ddim.Dim9) error { return visit(v, dstDim) }

func visit[E dtypes.Supported, D ddim.Fixed](v copyDimVisitor[E], dstDim D) error {
	srcStride, err := ddim.As[D](v.srcStride)
	if err != nil {
		return errors.WithMessagef(err, "source strides don't match destination shape %s", dstDim)
	}
	dstStride, err := ddim.As[D](v.dstStride)
	if err != nil {
		return errors.WithMessagef(err, "destination strides don't match destination shape %s", dstDim)
	}
	return CopyRank(v.ctx, v.src, srcStride, dstDim, dstStride, v.dst)
}
