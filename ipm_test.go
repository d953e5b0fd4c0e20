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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteriorPlant(t *testing.T) {
	p := buildProblem(t, plantData())

	require.NoError(t, p.Interior(nil))
	assert.Equal(t, Optimal, p.IptStatus())
	assert.InDelta(t, 733.3333333, p.IptObjVal(), 1e-5)
	assert.InDelta(t, 33.3333333, p.IptColPrim(1), 1e-5)
	assert.InDelta(t, 66.6666667, p.IptColPrim(2), 1e-5)
	assert.InDelta(t, 3.3333333, p.IptRowDual(1), 1e-5)
	assert.Equal(t, Undefined, p.Status(), "the basic solution is untouched")

	for _, cond := range []KKTCond{KKTPrimalEq, KKTPrimalBound, KKTDualEq, KKTDualBound} {
		e, err := p.CheckKKT(InteriorSolution, cond)
		require.NoError(t, err)
		assert.NotEqual(t, byte('?'), e.Quality(), "condition %d", cond)
	}
}

func TestInteriorMatchesSimplex(t *testing.T) {
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
	require.NoError(t, q.Interior(nil))
	require.Equal(t, Optimal, q.IptStatus())
	assert.InDelta(t, p.ObjVal(), q.IptObjVal(), 1e-5)
}

func TestInteriorErrors(t *testing.T) {
	p := buildProblem(t, lpData{
		c:   []float64{1},
		clb: []float64{0}, cub: []float64{inf},
	})
	assert.ErrorIs(t, p.Interior(nil), ErrFail, "no rows")

	p = buildProblem(t, plantData())
	parm := DefaultIptcp()
	parm.ItLim = 0
	assert.Error(t, p.Interior(parm))
	assert.NotEqual(t, Optimal, p.IptStatus())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.InteriorContext(ctx, nil), context.Canceled)
}

func TestInteriorNoFeasible(t *testing.T) {
	// x >= 5 and x <= 3 cannot both hold
	for name, clb := range map[string]float64{"nonneg": 0, "free": -inf} {
		t.Run(name, func(t *testing.T) {
			p := buildProblem(t, lpData{
				c:   []float64{1},
				a:   [][]float64{{1}, {1}},
				rlb: []float64{5, -inf}, rub: []float64{inf, 3},
				clb: []float64{clb}, cub: []float64{inf},
			})

			assert.ErrorIs(t, p.Interior(nil), ErrNoFeasible)
			assert.Equal(t, NoFeasible, p.IptStatus())
			assert.Equal(t, Undefined, p.Status(), "the basic solution is untouched")
		})
	}
}
