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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNppSingletonOnUnboundedColumn(t *testing.T) {
	// x free, x >= 5, x <= 3
	conflict := lpData{
		c:   []float64{1},
		a:   [][]float64{{1}, {1}},
		rlb: []float64{5, -inf}, rub: []float64{inf, 3},
		clb: []float64{-inf}, cub: []float64{inf},
	}
	np := newNpp(buildProblem(t, conflict), false)
	assert.ErrorIs(t, np.process(), ErrNoPrimalFeasible)
	assert.Equal(t, 5.0, np.clb[0])

	// max x, 2x <= 7, x >= 0
	capped := lpData{
		dir: Maximize,
		c:   []float64{1},
		a:   [][]float64{{2}},
		rlb: []float64{-inf}, rub: []float64{7},
		clb: []float64{0}, cub: []float64{inf},
	}
	np = newNpp(buildProblem(t, capped), false)
	require.NoError(t, np.process())
	assert.Equal(t, 0.0, np.clb[0])
	assert.Equal(t, 3.5, np.cub[0])
	assert.False(t, np.colOn[0])
	assert.Equal(t, 3.5, np.cval[0])

	// the integer column is rounded down to the implied bound
	capped.integer = []int{1}
	np = newNpp(buildProblem(t, capped), true)
	require.NoError(t, np.process())
	assert.Equal(t, 3.0, np.cub[0])
}

func TestPresolveSingletonRows(t *testing.T) {
	parm := DefaultSmcp()
	parm.Presolve = true

	p := buildProblem(t, lpData{
		c:   []float64{1},
		a:   [][]float64{{1}, {1}},
		rlb: []float64{5, -inf}, rub: []float64{inf, 3},
		clb: []float64{-inf}, cub: []float64{inf},
	})
	assert.ErrorIs(t, p.Simplex(parm), ErrNoPrimalFeasible)
	assert.Equal(t, NoFeasible, p.Status())

	p = buildProblem(t, lpData{
		dir: Maximize,
		c:   []float64{1},
		a:   [][]float64{{2}},
		rlb: []float64{-inf}, rub: []float64{7},
		clb: []float64{0}, cub: []float64{inf},
	})
	require.NoError(t, p.Simplex(parm))
	assert.Equal(t, Optimal, p.Status())
	assert.InDelta(t, 3.5, p.ObjVal(), delta)
	assert.InDelta(t, 3.5, p.ColPrim(1), delta)
	assert.InDelta(t, 7, p.RowPrim(1), delta)
	assert.InDelta(t, 0.5, p.RowDual(1), delta)
}

func TestModelSolveSingletonRow(t *testing.T) {
	model, err := NewModel("singleton", Maximize, WithTermOut(false))
	require.NoError(t, err)
	x, err := model.AddDefinedVariable("x", IntegerVariable, 1, 0, inf)
	require.NoError(t, err)
	require.NoError(t, model.AddConstraint(-inf, 7, []*Variable{x}, []float64{2}))

	result, err := model.Solve()
	require.NoError(t, err)
	assert.Equal(t, SolutionOptimal, result.Status())
	assert.InDelta(t, 3, result.ObjectiveValue(), delta)
	assert.InDelta(t, 3, result.Value(x), delta)
}
