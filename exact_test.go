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

func TestExactPlant(t *testing.T) {
	p := buildProblem(t, plantData())

	require.NoError(t, p.Exact(nil))
	require.Equal(t, Optimal, p.Status())
	assert.InDelta(t, 2200.0/3, p.ObjVal(), 1e-12)
	assert.InDelta(t, 100.0/3, p.ColPrim(1), 1e-12)
	assert.InDelta(t, 200.0/3, p.ColPrim(2), 1e-12)
	assert.InDelta(t, 10.0/3, p.RowDual(1), 1e-12)
	assert.False(t, p.BfExists())
}

func TestExactAfterSimplex(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.Simplex(nil))
	approx := p.ObjVal()

	// starting from the optimal basis only recomputes the solution
	require.NoError(t, p.Exact(nil))
	assert.Equal(t, Optimal, p.Status())
	assert.InDelta(t, approx, p.ObjVal(), 1e-9)
}

func TestExactStatuses(t *testing.T) {
	p := buildProblem(t, lpData{
		c:   []float64{1},
		a:   [][]float64{{1}, {1}},
		rlb: []float64{5, -inf}, rub: []float64{inf, 3},
		clb: []float64{-inf}, cub: []float64{inf},
	})
	require.NoError(t, p.Exact(nil))
	assert.Equal(t, NoFeasible, p.PrimStatus())

	p = buildProblem(t, lpData{
		dir: Maximize,
		c:   []float64{1, 1},
		a:   [][]float64{{1, -1}},
		rlb: []float64{-inf}, rub: []float64{1},
		clb: []float64{0, 0}, cub: []float64{inf, inf},
	})
	require.NoError(t, p.Exact(nil))
	assert.Equal(t, Unbounded, p.Status())

	parm := DefaultSmcp()
	parm.ItLim = 0
	p = buildProblem(t, plantData())
	assert.ErrorIs(t, p.Exact(parm), ErrIterLimit)
}

func TestExactBoundFlips(t *testing.T) {
	// x1 in [0, 2] reaches its upper bound before the row binds
	p := buildProblem(t, lpData{
		dir: Maximize,
		c:   []float64{2, 1},
		a:   [][]float64{{1, 1}},
		rlb: []float64{-inf}, rub: []float64{10},
		clb: []float64{0, 0}, cub: []float64{2, inf},
	})
	require.NoError(t, p.Exact(nil))
	require.Equal(t, Optimal, p.Status())
	assert.InDelta(t, 12, p.ObjVal(), 1e-12)
	assert.InDelta(t, 2, p.ColPrim(1), 1e-12)
	assert.InDelta(t, 8, p.ColPrim(2), 1e-12)
}

func TestExactMatchesSimplex(t *testing.T) {
	data := lpData{
		c: []float64{2, 3, -1, 1},
		a: [][]float64{
			{1, 1, 1, 1},
			{2, -1, 0, 3},
			{0, 1, -2, 0},
		},
		rlb: []float64{2, -inf, -4}, rub: []float64{10, 8, 4},
		clb: []float64{0, -1, 0, -inf}, cub: []float64{inf, 5, 3, inf},
	}

	p := buildProblem(t, data)
	require.NoError(t, p.Simplex(nil))
	require.Equal(t, Optimal, p.Status())

	q := buildProblem(t, data)
	require.NoError(t, q.Exact(nil))
	require.Equal(t, Optimal, q.Status())
	assert.InDelta(t, p.ObjVal(), q.ObjVal(), 1e-9)
}
