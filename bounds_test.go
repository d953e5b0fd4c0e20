/*
Copyright © 2015-2022 Leo Antunes <leo@costela.net>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/
package golpk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSized(t *testing.T, m, n int) *Problem {
	t.Helper()

	p, err := NewProblem(WithTermOut(false))
	require.NoError(t, err)
	_, err = p.AddRows(m)
	require.NoError(t, err)
	_, err = p.AddCols(n)
	require.NoError(t, err)
	return p
}

func TestBatchBounds(t *testing.T) {
	p := newSized(t, 2, 3)

	// inferred types
	require.NoError(t, p.SetRowsBounds([]int{1, 2}, nil, []float64{1, 2}, []float64{1, 5}))
	assert.Equal(t, Fixed, p.RowType(1))
	assert.Equal(t, Double, p.RowType(2))
	assert.Equal(t, 5.0, p.RowUpper(2))

	require.NoError(t, p.SetColsBounds([]int{1, 3},
		[]BoundType{Lower, Free}, []float64{-1, 0}, []float64{0, 0}))
	assert.Equal(t, Lower, p.ColType(1))
	assert.Equal(t, -1.0, p.ColLower(1))
	assert.True(t, math.IsInf(p.ColUpper(1), 1))
	assert.Equal(t, Free, p.ColType(3))

	require.NoError(t, p.SetColsBoundsObjCoefs([]int{2}, []BoundType{Upper}, []float64{0}, []float64{9}, []float64{4}))
	assert.Equal(t, Upper, p.ColType(2))
	assert.Equal(t, 9.0, p.ColUpper(2))
	assert.Equal(t, []float64{0, 4, 0}, p.ObjCoefs([]int{1, 2, 3}))
}

func TestBatchBoundsAreAtomic(t *testing.T) {
	p := newSized(t, 2, 2)
	require.NoError(t, p.SetRowBounds(1, Upper, 0, 3))

	// the second entry is invalid, so the first must not be applied
	err := p.SetRowsBounds([]int{1, 2}, []BoundType{Lower, Double}, []float64{1, 5}, []float64{0, 4})
	assert.ErrorIs(t, err, ErrInvalidBounds)
	assert.Equal(t, Upper, p.RowType(1))
	assert.Equal(t, 3.0, p.RowUpper(1))

	err = p.SetRowsBounds([]int{1, 3}, nil, []float64{0, 0}, []float64{1, 1})
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, Upper, p.RowType(1))

	err = p.SetColsBounds([]int{1}, nil, []float64{0, 1}, []float64{1})
	assert.ErrorIs(t, err, ErrLength)

	err = p.SetColsBoundsObjCoefs([]int{1, 2}, nil, []float64{0, 0}, []float64{1, 1}, []float64{1, math.Inf(1)})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, 0.0, p.ObjCoef(1))
	assert.Equal(t, Fixed, p.ColType(1))

	err = p.SetColsKind([]int{1, 2}, []VarKind{Binary, VarKind(9)})
	assert.ErrorIs(t, err, ErrInvalidKind)
	assert.Equal(t, 0, p.NumInt())
}

func TestSetRhsZero(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.SetRhsZero())
	for i := 1; i <= p.NumRows(); i++ {
		assert.Equal(t, Fixed, p.RowType(i))
		assert.Equal(t, 0.0, p.RowLower(i))
		assert.Equal(t, 0.0, p.RowUpper(i))
	}

	require.NoError(t, p.Simplex(nil))
	assert.Equal(t, Optimal, p.Status())
	assert.InDelta(t, 0, p.ObjVal(), delta)
}

func TestColsKind(t *testing.T) {
	p := newSized(t, 0, 3)
	require.NoError(t, p.SetColsKind([]int{1, 3}, []VarKind{Binary, Integer}))
	assert.Equal(t, []VarKind{Binary, Continuous, Integer}, p.ColsKind([]int{1, 2, 3}))
	assert.Equal(t, 2, p.NumInt())
	assert.Equal(t, 1, p.NumBin())
	assert.Equal(t, Double, p.ColType(1))
	assert.Equal(t, 1.0, p.ColUpper(1))

	require.NoError(t, p.SetObjCoefs([]int{0, 2}, []float64{7, -2}))
	assert.Equal(t, 7.0, p.ObjCoef(0))
	assert.Equal(t, -2.0, p.ObjCoef(2))
}

func TestCopyTo(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.SetName("plant"))
	require.NoError(t, p.Simplex(nil))

	dst := newSized(t, 5, 5)
	require.NoError(t, p.CopyTo(dst, true))
	assert.Equal(t, "plant", dst.Name())
	assert.Equal(t, 3, dst.NumRows())
	assert.Equal(t, 9, dst.NumNonzeros())
	assert.Equal(t, Optimal, dst.Status())
	assert.InDelta(t, p.ObjVal(), dst.ObjVal(), delta)

	assert.ErrorIs(t, p.CopyTo(p, true), ErrInvalidOption)
}

func TestIndexLifecycle(t *testing.T) {
	p := newSized(t, 2, 0)
	require.NoError(t, p.SetRowName(1, "a"))
	require.NoError(t, p.SetRowName(2, "a"))
	require.NoError(t, p.CreateIndex())

	// duplicates resolve to the lowest ordinal
	i, err := p.FindRow("a")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	require.NoError(t, p.DeleteIndex())
	_, err = p.FindRow("a")
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestSortMatrix(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.SetMatRow(1, []int{3, 1, 2}, []float64{1, 1, 1}))
	require.NoError(t, p.Simplex(nil))
	obj := p.ObjVal()

	require.NoError(t, p.SortMatrix())
	ind, val := p.MatRow(1)
	assert.Equal(t, []int{1, 2, 3}, ind)
	assert.Equal(t, []float64{1, 1, 1}, val)
	ind, _ = p.MatCol(2)
	assert.Equal(t, []int{1, 2, 3}, ind)

	assert.Equal(t, Optimal, p.Status())
	assert.Equal(t, obj, p.ObjVal())
}
