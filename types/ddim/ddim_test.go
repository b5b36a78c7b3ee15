// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ddim

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	d := Make(4, 3, 2)
	require.True(t, d.Ok())
	require.Equal(t, 3, d.Rank())
	require.Equal(t, []int{4, 3, 2}, d.Dims())
	require.Equal(t, 24, d.Product())
	require.Equal(t, "[4 3 2]", d.String())
	require.Equal(t, 4, d.Dim(0))
	require.Equal(t, 2, d.Dim(-1))
	require.Panics(t, func() { _ = d.Dim(3) })
	require.Panics(t, func() { _ = d.Dim(-4) })

	for rank := 1; rank <= MaxRank; rank++ {
		dims := make([]int, rank)
		for ii := range dims {
			dims[ii] = ii + 1
		}
		d := Make(dims...)
		require.Equal(t, rank, d.Rank())
		require.Equal(t, dims, d.Dims())
	}

	require.Panics(t, func() { _ = Make() })
	require.Panics(t, func() { _ = Make(1, 1, 1, 1, 1, 1, 1, 1, 1, 1) })

	var invalid DDim
	require.False(t, invalid.Ok())
	require.Equal(t, 0, invalid.Rank())
	require.Equal(t, "DDim<invalid>", invalid.String())
}

func TestHeadTail(t *testing.T) {
	d, err := As[Dim3](Make(5, 7, 11))
	require.NoError(t, err)
	require.Equal(t, 3, d.Rank())
	require.Equal(t, 5, d.Head())
	require.Equal(t, 7, d.Tail().Head())
	require.Equal(t, 11, d.Tail().Tail().Head())
	require.Equal(t, 1, d.Tail().Tail().Rank())
	require.Equal(t, []int{7, 11}, d.Tail().Dims())

	built := Cons(5, Cons(7, One(11)))
	require.Equal(t, d, built)
	require.True(t, FromFixed(built).Equal(Make(5, 7, 11)))
	require.False(t, FromFixed(built).Equal(Make(5, 7)))
}

func TestAs(t *testing.T) {
	_, err := As[Dim2](Make(2, 3, 4))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRankMismatch))
	require.Contains(t, err.Error(), "rank 3")
	require.Contains(t, err.Error(), "rank 2")

	_, err = As[Dim1](DDim{})
	require.ErrorIs(t, err, ErrRankMismatch)

	d9, err := As[Dim9](Make(1, 2, 3, 4, 5, 6, 7, 8, 9))
	require.NoError(t, err)
	require.Equal(t, 9, d9.Rank())
}

func TestStrides(t *testing.T) {
	require.Equal(t, []int{12, 4, 1}, Strides(Make(2, 3, 4)).Dims())
	require.Equal(t, []int{1}, Strides(Make(7)).Dims())
	require.Equal(t, []int{0, 0, 1}, Strides(Make(5, 0, 0)).Dims())
	require.Panics(t, func() { _ = Strides(DDim{}) })
}

// rankRecorder records which visitor method was called.
type rankRecorder struct {
	rank int
	dims []int
}

func (r *rankRecorder) record(d Fixed) error {
	r.rank, r.dims = d.Rank(), d.Dims()
	return nil
}

func (r *rankRecorder) VisitDim1(d Dim1) error { return r.record(d) }
func (r *rankRecorder) VisitDim2(d Dim2) error { return r.record(d) }
func (r *rankRecorder) VisitDim3(d Dim3) error { return r.record(d) }
func (r *rankRecorder) VisitDim4(d Dim4) error { return r.record(d) }
func (r *rankRecorder) VisitDim5(d Dim5) error { return r.record(d) }
func (r *rankRecorder) VisitDim6(d Dim6) error { return r.record(d) }
func (r *rankRecorder) VisitDim7(d Dim7) error { return r.record(d) }
func (r *rankRecorder) VisitDim8(d Dim8) error { return r.record(d) }
func (r *rankRecorder) VisitDim9(d Dim9) error { return r.record(d) }

func TestApply(t *testing.T) {
	for rank := 1; rank <= MaxRank; rank++ {
		dims := make([]int, rank)
		for ii := range dims {
			dims[ii] = 10 + ii
		}
		r := &rankRecorder{}
		require.NoError(t, Make(dims...).Apply(r))
		require.Equal(t, rank, r.rank)
		require.Equal(t, dims, r.dims)
	}

	r := &rankRecorder{}
	require.Error(t, DDim{}.Apply(r))
	require.Equal(t, 0, r.rank)
}
