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
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	delta = 0.0000001 // acceptable numerical deviation for test results
)

var inf = math.Inf(1)

// lpData describes a problem densely. Row i has bounds [rlb[i], rub[i]]
// and column j [clb[j], cub[j]], infinities meaning no bound.
type lpData struct {
	dir      Direction
	c        []float64
	a        [][]float64
	rlb, rub []float64
	clb, cub []float64
	integer  []int // 1-based integer columns
}

func buildProblem(t testing.TB, d lpData) *Problem {
	t.Helper()

	p, err := NewProblem()
	require.NoError(t, err)
	p.TermOut(false)
	if d.dir != 0 {
		require.NoError(t, p.SetObjDir(d.dir))
	}
	if len(d.a) > 0 {
		_, err = p.AddRows(len(d.a))
		require.NoError(t, err)
	}
	_, err = p.AddCols(len(d.c))
	require.NoError(t, err)

	var ia, ja []int
	var ar []float64
	for i, row := range d.a {
		for j, v := range row {
			if v != 0 {
				ia, ja, ar = append(ia, i+1), append(ja, j+1), append(ar, v)
			}
		}
		require.NoError(t, p.SetRowBounds(i+1, boundsOf(d.rlb[i], d.rub[i]), d.rlb[i], d.rub[i]))
	}
	require.NoError(t, p.LoadMatrix(ia, ja, ar))
	for j, c := range d.c {
		require.NoError(t, p.SetObjCoef(j+1, c))
		require.NoError(t, p.SetColBounds(j+1, boundsOf(d.clb[j], d.cub[j]), d.clb[j], d.cub[j]))
	}
	for _, j := range d.integer {
		require.NoError(t, p.SetColKind(j, Integer))
	}
	return p
}

func TestNewProblemDefaults(t *testing.T) {
	p, err := NewProblem(WithName("p1"))
	require.NoError(t, err)

	assert.Equal(t, "p1", p.Name())
	assert.Equal(t, Minimize, p.ObjDir())
	assert.Equal(t, 0, p.NumRows())
	assert.Equal(t, 0, p.NumCols())
	assert.Equal(t, Undefined, p.Status())
	assert.Equal(t, Undefined, p.MIPStatus())
}

func TestNewProblemOptionError(t *testing.T) {
	_, err := NewProblem(WithLogger(nil))
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestAddRowsCols(t *testing.T) {
	p, err := NewProblem()
	require.NoError(t, err)

	first, err := p.AddRows(3)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	first, err = p.AddRows(2)
	require.NoError(t, err)
	assert.Equal(t, 4, first)
	assert.Equal(t, 5, p.NumRows())
	assert.Equal(t, Free, p.RowType(1))
	assert.Equal(t, Basic, p.RowStat(1))

	first, err = p.AddCols(2)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, Fixed, p.ColType(2))
	assert.Equal(t, 0.0, p.ColLower(2))
	assert.Equal(t, NonBasicFixed, p.ColStat(2))
	assert.Equal(t, Continuous, p.ColKind(2))

	_, err = p.AddRows(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestAddZeroRowsIsNoop(t *testing.T) {
	p := buildProblem(t, lpData{
		dir: Maximize,
		c:   []float64{1, 1},
		a:   [][]float64{{1, 1}},
		rlb: []float64{-inf}, rub: []float64{4},
		clb: []float64{0, 0}, cub: []float64{inf, inf},
	})
	require.NoError(t, p.Simplex(nil))
	require.Equal(t, Optimal, p.Status())

	next, err := p.AddRows(0)
	require.NoError(t, err)
	assert.Equal(t, 2, next)
	next, err = p.AddCols(0)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	assert.Equal(t, 1, p.NumRows())
	assert.Equal(t, Optimal, p.Status(), "adding nothing must keep the solution")
	assert.True(t, p.BfExists())
}

func TestStructuralChangeInvalidates(t *testing.T) {
	p := buildProblem(t, lpData{
		dir: Maximize,
		c:   []float64{1},
		a:   [][]float64{{1}},
		rlb: []float64{-inf}, rub: []float64{4},
		clb: []float64{0}, cub: []float64{inf},
	})
	require.NoError(t, p.Simplex(nil))
	require.Equal(t, Optimal, p.Status())

	// bounds and coefficients keep the solution
	require.NoError(t, p.SetObjCoef(1, 2))
	assert.Equal(t, Optimal, p.Status())

	_, err := p.AddRows(1)
	require.NoError(t, err)
	assert.Equal(t, Undefined, p.Status())
	assert.False(t, p.BfExists())
}

func TestBoundsValidation(t *testing.T) {
	p, err := NewProblem()
	require.NoError(t, err)
	_, err = p.AddRows(1)
	require.NoError(t, err)
	_, err = p.AddCols(1)
	require.NoError(t, err)

	assert.ErrorIs(t, p.SetRowBounds(1, Double, 3, 1), ErrInvalidBounds)
	assert.ErrorIs(t, p.SetRowBounds(1, Double, 1, 1), ErrInvalidBounds)
	assert.ErrorIs(t, p.SetColBounds(1, Lower, math.NaN(), 0), ErrInvalidBounds)
	assert.ErrorIs(t, p.SetColBounds(1, BoundType(9), 0, 0), ErrInvalidType)
	assert.ErrorIs(t, p.SetColBounds(2, Free, 0, 0), ErrOutOfRange)

	require.NoError(t, p.SetColBounds(1, Upper, 17, 5))
	assert.Equal(t, math.Inf(-1), p.ColLower(1))
	assert.Equal(t, 5.0, p.ColUpper(1))
	assert.Equal(t, NonBasicUpper, p.ColStat(1))

	require.NoError(t, p.SetColBounds(1, Fixed, 2, 2))
	assert.Equal(t, 2.0, p.ColUpper(1))
	assert.Equal(t, NonBasicFixed, p.ColStat(1))
}

func TestNames(t *testing.T) {
	p, err := NewProblem()
	require.NoError(t, err)
	_, err = p.AddRows(2)
	require.NoError(t, err)
	_, err = p.AddCols(2)
	require.NoError(t, err)

	require.NoError(t, p.SetRowName(1, "cap"))
	require.NoError(t, p.SetColName(2, "y"))
	assert.ErrorIs(t, p.SetColName(1, "bad\nname"), ErrInvalidName)

	_, err = p.FindRow("cap")
	assert.ErrorIs(t, err, ErrNoIndex)

	require.NoError(t, p.CreateIndex())
	i, err := p.FindRow("cap")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	// the index follows renames
	require.NoError(t, p.SetColName(1, "x"))
	j, err := p.FindCol("x")
	require.NoError(t, err)
	assert.Equal(t, 1, j)

	require.NoError(t, p.DelCols([]int{1}))
	j, err = p.FindCol("y")
	require.NoError(t, err)
	assert.Equal(t, 1, j)
	j, err = p.FindCol("x")
	require.NoError(t, err)
	assert.Equal(t, 0, j)
}

func TestLoadMatrixDuplicate(t *testing.T) {
	p, err := NewProblem()
	require.NoError(t, err)
	_, err = p.AddRows(2)
	require.NoError(t, err)
	_, err = p.AddCols(2)
	require.NoError(t, err)

	err = p.LoadMatrix([]int{1, 2, 1}, []int{1, 2, 1}, []float64{1, 2, 3})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, 1, dup.Row)
	assert.Equal(t, 1, dup.Col)
	assert.Equal(t, 1, dup.First)
	assert.Equal(t, 3, dup.Then)
	assert.Equal(t, 0, p.NumNonzeros(), "nothing changes on error")

	err = CheckDup(2, 2, []int{2, 1, 2}, []int{1, 1, 1})
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, 1, dup.First)
	assert.Equal(t, 3, dup.Then)

	assert.NoError(t, CheckDup(2, 2, []int{1, 2}, []int{1, 1}))
	assert.ErrorIs(t, CheckDup(2, 2, []int{3}, []int{1}), ErrOutOfRange)
}

func TestMatrixRowsCols(t *testing.T) {
	p, err := NewProblem()
	require.NoError(t, err)
	_, err = p.AddRows(2)
	require.NoError(t, err)
	_, err = p.AddCols(3)
	require.NoError(t, err)

	require.NoError(t, p.LoadMatrix([]int{1, 1, 2, 2}, []int{3, 1, 2, 3}, []float64{1, 2, 3, 0}))
	assert.Equal(t, 3, p.NumNonzeros(), "zeros are dropped")

	ind, val := p.MatRow(1)
	assert.Equal(t, []int{1, 3}, ind)
	assert.Equal(t, []float64{2, 1}, val)

	require.NoError(t, p.SetMatCol(3, []int{2}, []float64{5}))
	ind, val = p.MatCol(3)
	assert.Equal(t, []int{2}, ind)
	assert.Equal(t, []float64{5}, val)
	ind, _ = p.MatRow(1)
	assert.Equal(t, []int{1}, ind)

	require.NoError(t, p.DelRows([]int{1}))
	assert.Equal(t, 1, p.NumRows())
	assert.Equal(t, 2, p.NumNonzeros())
	assert.ErrorIs(t, p.DelRows([]int{1, 1}), ErrOutOfRange)
}

func TestCopyAndErase(t *testing.T) {
	p := buildProblem(t, lpData{
		dir: Maximize,
		c:   []float64{1, 2},
		a:   [][]float64{{1, 1}},
		rlb: []float64{-inf}, rub: []float64{4},
		clb: []float64{0, 0}, cub: []float64{inf, 3},
	})
	require.NoError(t, p.SetColName(1, "x"))

	q, err := p.Copy(true)
	require.NoError(t, err)
	assert.Equal(t, "x", q.ColName(1))
	assert.Equal(t, Maximize, q.ObjDir())
	assert.Equal(t, 2, q.NumNonzeros())

	q2, err := p.Copy(false)
	require.NoError(t, err)
	assert.Equal(t, "", q2.ColName(1))

	require.NoError(t, q.Erase())
	assert.Equal(t, 0, q.NumCols())
	assert.Equal(t, 2, p.NumCols(), "copies are independent")

	q.Delete()
	_, err = q.AddRows(1)
	assert.ErrorIs(t, err, ErrDeleted)
	assert.ErrorIs(t, q.Simplex(nil), ErrDeleted)
}

func TestConcurrentAccess(t *testing.T) {
	p := buildProblem(t, lpData{
		dir: Maximize,
		c:   []float64{1, 1},
		a:   [][]float64{{1, 2}, {3, 1}},
		rlb: []float64{-inf, -inf}, rub: []float64{4, 6},
		clb: []float64{0, 0}, cub: []float64{inf, inf},
	})

	var wg sync.WaitGroup
	for k := 0; k < 8; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Simplex(nil))
			_ = p.ObjVal()
			_ = p.ColPrim(1)
		}()
	}
	wg.Wait()
	assert.InDelta(t, 2.8, p.ObjVal(), delta)
}
