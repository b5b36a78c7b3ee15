// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package operators

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/stridedcopy/operators/stridedcopy"
	"github.com/gomlx/stridedcopy/platform"
	"github.com/gomlx/stridedcopy/types/ddim"
	"github.com/pkg/errors"
)

// adjustAxis returns the axis for the given rank, where negative values count from the end.
func adjustAxis(axis, rank int) (int, error) {
	adjusted := axis
	if adjusted < 0 {
		adjusted += rank
	}
	if adjusted < 0 || adjusted >= rank {
		return 0, errors.Errorf("axis %d out of range for rank %d", axis, rank)
	}
	return adjusted, nil
}

// Transpose copies in into out with its axes permuted: axis i of out is axis permutation[i] of in.
//
// out must have been allocated with the permuted dimensions.
func Transpose[E dtypes.Supported](ctx *platform.Context, in *Tensor[E], permutation []int, out *Tensor[E]) error {
	rank := in.Rank()
	if len(permutation) != rank || out.Rank() != rank {
		return errors.Errorf("operators.Transpose(%s, %v, %s): permutation and output must have rank %d",
			in, permutation, out, rank)
	}
	used := make([]bool, rank)
	for _, axis := range permutation {
		if axis < 0 || axis >= rank || used[axis] {
			return errors.Errorf("operators.Transpose(%s, %v): invalid permutation", in, permutation)
		}
		used[axis] = true
	}
	inDims, inStrides, outDims := in.Dims.Dims(), in.Strides().Dims(), out.Dims.Dims()
	srcStrides := make([]int, rank)
	for ii, axis := range permutation {
		if outDims[ii] != inDims[axis] {
			return errors.Errorf("operators.Transpose(%s, %v): output dimensions should be %v, got %s",
				in, permutation, permuted(inDims, permutation), out.Dims)
		}
		srcStrides[ii] = inStrides[axis]
	}
	return stridedcopy.CopyWithStrides(ctx, in.Data, ddim.Make(srcStrides...), out.Dims, out.Strides(), out.Data)
}

func permuted(dims, permutation []int) []int {
	result := make([]int, len(permutation))
	for ii, axis := range permutation {
		result[ii] = dims[axis]
	}
	return result
}

// checkConcatShapes verifies that the parts can be concatenated into whole along axis (already adjusted).
func checkConcatShapes[E dtypes.Supported](axis int, whole *Tensor[E], parts []*Tensor[E]) error {
	wholeDims := whole.Dims.Dims()
	total := 0
	for ii, part := range parts {
		partDims := part.Dims.Dims()
		if len(partDims) != len(wholeDims) {
			return errors.Errorf("part #%d %s has rank %d, wanted rank %d", ii, part, len(partDims), len(wholeDims))
		}
		for otherAxis, dim := range partDims {
			if otherAxis != axis && dim != wholeDims[otherAxis] {
				return errors.Errorf("part #%d %s is incompatible with %s on axis %d", ii, part, whole, otherAxis)
			}
		}
		total += partDims[axis]
	}
	if total != wholeDims[axis] {
		return errors.Errorf("parts add up to %d on axis %d, but %s has %d", total, axis, whole, wholeDims[axis])
	}
	return nil
}

// Concat copies the inputs one after the other along axis into out.
//
// All inputs must have the same dimensions as out except on axis, where their extents must add up
// to out's. Negative axis values count from the end.
func Concat[E dtypes.Supported](ctx *platform.Context, axis int, ins []*Tensor[E], out *Tensor[E]) error {
	if len(ins) == 0 {
		return errors.New("operators.Concat: no inputs given")
	}
	adjustedAxis, err := adjustAxis(axis, out.Rank())
	if err != nil {
		return errors.WithMessage(err, "operators.Concat")
	}
	if err := checkConcatShapes(adjustedAxis, out, ins); err != nil {
		return errors.WithMessagef(err, "operators.Concat(axis=%d)", axis)
	}
	outStrides := out.Strides()
	axisStride := outStrides.Dim(adjustedAxis)
	offset := 0
	for ii, in := range ins {
		dst := out.Data.Add(offset * axisStride)
		if err := stridedcopy.CopyWithStrides(ctx, in.Data, in.Strides(), in.Dims, outStrides, dst); err != nil {
			return errors.WithMessagef(err, "operators.Concat: copying input #%d", ii)
		}
		offset += in.Dims.Dim(adjustedAxis)
	}
	return nil
}

// Split copies consecutive blocks of in along axis into each of the outputs. It is the inverse of Concat.
func Split[E dtypes.Supported](ctx *platform.Context, axis int, in *Tensor[E], outs []*Tensor[E]) error {
	if len(outs) == 0 {
		return errors.New("operators.Split: no outputs given")
	}
	adjustedAxis, err := adjustAxis(axis, in.Rank())
	if err != nil {
		return errors.WithMessage(err, "operators.Split")
	}
	if err := checkConcatShapes(adjustedAxis, in, outs); err != nil {
		return errors.WithMessagef(err, "operators.Split(axis=%d)", axis)
	}
	inStrides := in.Strides()
	axisStride := inStrides.Dim(adjustedAxis)
	offset := 0
	for ii, out := range outs {
		src := in.Data.Add(offset * axisStride)
		if err := stridedcopy.CopyWithStrides(ctx, src, inStrides, out.Dims, out.Strides(), out.Data); err != nil {
			return errors.WithMessagef(err, "operators.Split: copying output #%d", ii)
		}
		offset += out.Dims.Dim(adjustedAxis)
	}
	return nil
}

// Slice copies into out the block of in starting at starts, with out's dimensions.
func Slice[E dtypes.Supported](ctx *platform.Context, in *Tensor[E], starts []int, out *Tensor[E]) error {
	rank := in.Rank()
	if len(starts) != rank || out.Rank() != rank {
		return errors.Errorf("operators.Slice(%s, starts=%v, %s): starts and output must have rank %d", in, starts, out, rank)
	}
	inDims, inStrides, outDims := in.Dims.Dims(), in.Strides().Dims(), out.Dims.Dims()
	offset := 0
	for axis, start := range starts {
		if start < 0 || start+outDims[axis] > inDims[axis] {
			return errors.Errorf("operators.Slice(%s, starts=%v, %s): slice [%d, %d) out of range for axis %d",
				in, starts, out, start, start+outDims[axis], axis)
		}
		offset += start * inStrides[axis]
	}
	return stridedcopy.CopyWithStrides(ctx, in.Data.Add(offset), in.Strides(), out.Dims, out.Strides(), out.Data)
}
