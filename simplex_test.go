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
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// plantData is the classic three product planning example:
// max 10x1 + 6x2 + 4x3 with three capacity rows. z = 733.33.
func plantData() lpData {
	return lpData{
		dir: Maximize,
		c:   []float64{10, 6, 4},
		a: [][]float64{
			{1, 1, 1},
			{10, 4, 5},
			{2, 2, 6},
		},
		rlb: []float64{-inf, -inf, -inf},
		rub: []float64{100, 600, 300},
		clb: []float64{0, 0, 0},
		cub: []float64{inf, inf, inf},
	}
}

// primOf returns the primal value of variable k (rows first, then columns).
func primOf(p *Problem, k int) float64 {
	if k <= p.NumRows() {
		return p.RowPrim(k)
	}
	return p.ColPrim(k - p.NumRows())
}

func TestSimplexMaxSum(t *testing.T) {
	p := buildProblem(t, lpData{
		dir: Maximize,
		c:   []float64{1, 1},
		a:   [][]float64{{1, 1}},
		rlb: []float64{-inf}, rub: []float64{4},
		clb: []float64{0, 0}, cub: []float64{inf, inf},
	})

	require.NoError(t, p.Simplex(nil))
	assert.Equal(t, Optimal, p.Status())
	assert.InDelta(t, 4, p.ObjVal(), delta)
	assert.InDelta(t, 4, p.ColPrim(1)+p.ColPrim(2), delta)
	assert.InDelta(t, 1, p.RowDual(1), delta)
}

func TestSimplexInfeasible(t *testing.T) {
	p := buildProblem(t, lpData{
		c:   []float64{1},
		a:   [][]float64{{1}, {1}},
		rlb: []float64{5, -inf}, rub: []float64{inf, 3},
		clb: []float64{-inf}, cub: []float64{inf},
	})

	require.NoError(t, p.Simplex(nil))
	assert.Equal(t, NoFeasible, p.PrimStatus())
	assert.Equal(t, NoFeasible, p.Status())

	q := buildProblem(t, lpData{
		c:   []float64{1},
		a:   [][]float64{{1}, {1}},
		rlb: []float64{5, -inf}, rub: []float64{inf, 3},
		clb: []float64{-inf}, cub: []float64{inf},
	})
	parm := DefaultSmcp()
	parm.Presolve = true
	assert.ErrorIs(t, q.Simplex(parm), ErrNoPrimalFeasible)
	assert.Equal(t, NoFeasible, q.PrimStatus())
}

func TestSimplexUnbounded(t *testing.T) {
	p := buildProblem(t, lpData{
		dir: Maximize,
		c:   []float64{1},
		clb: []float64{0}, cub: []float64{inf},
	})

	require.NoError(t, p.Simplex(nil))
	assert.Equal(t, Unbounded, p.Status())
	assert.Equal(t, Feasible, p.PrimStatus())
	assert.Equal(t, NoFeasible, p.DualStatus())
	assert.Equal(t, 1, p.UnbndRay(), "the only column is the unbounded direction")

	q := buildProblem(t, lpData{
		dir: Maximize,
		c:   []float64{1},
		clb: []float64{0}, cub: []float64{inf},
	})
	parm := DefaultSmcp()
	parm.Presolve = true
	assert.ErrorIs(t, q.Simplex(parm), ErrNoDualFeasible)
}

func TestSimplexNoRows(t *testing.T) {
	p := buildProblem(t, lpData{
		c:   []float64{1, -1},
		clb: []float64{2, 0}, cub: []float64{inf, 5},
	})

	require.NoError(t, p.Simplex(nil))
	assert.Equal(t, Optimal, p.Status())
	assert.InDelta(t, -3, p.ObjVal(), delta)
	assert.InDelta(t, 2, p.ColPrim(1), delta)
	assert.InDelta(t, 5, p.ColPrim(2), delta)
}

func TestSimplexEmpty(t *testing.T) {
	p, err := NewProblem()
	require.NoError(t, err)
	require.NoError(t, p.SetObjCoef(0, 7))

	require.NoError(t, p.Simplex(nil))
	assert.Equal(t, Optimal, p.Status())
	assert.InDelta(t, 7, p.ObjVal(), delta)
}

func TestSimplexPlant(t *testing.T) {
	for name, tweak := range map[string]func(*Smcp){
		"primal":     func(*Smcp) {},
		"dual":       func(parm *Smcp) { parm.Meth = Dual },
		"dualprimal": func(parm *Smcp) { parm.Meth = DualPrimal },
		"textbook":   func(parm *Smcp) { parm.Pricing, parm.RTest = PricingStd, RatioStd },
		"presolve":   func(parm *Smcp) { parm.Presolve = true },
	} {
		t.Run(name, func(t *testing.T) {
			parm := DefaultSmcp()
			tweak(parm)

			p := buildProblem(t, plantData())
			require.NoError(t, p.Simplex(parm))
			require.Equal(t, Optimal, p.Status())
			assert.InDelta(t, 733.3333333, p.ObjVal(), 1e-6)
			assert.InDelta(t, 33.3333333, p.ColPrim(1), 1e-6)
			assert.InDelta(t, 66.6666667, p.ColPrim(2), 1e-6)
			assert.InDelta(t, 0, p.ColPrim(3), 1e-6)
			assert.InDelta(t, 3.3333333, p.RowDual(1), 1e-6)
			assert.InDelta(t, 0.6666667, p.RowDual(2), 1e-6)
			assert.InDelta(t, 0, p.RowDual(3), 1e-6)
			assert.InDelta(t, -2.6666667, p.ColDual(3), 1e-6)
		})
	}
}

func TestSimplexDeterminism(t *testing.T) {
	solve := func() *Solution {
		p := buildProblem(t, plantData())
		require.NoError(t, p.Scale(ScaleAuto))
		require.NoError(t, p.AdvBasis())
		require.NoError(t, p.Simplex(nil))
		s, err := p.Solution(BasicSolution)
		require.NoError(t, err)
		return s
	}

	first := solve()
	for k := 0; k < 5; k++ {
		assert.Equal(t, first, solve())
	}
}

func TestSimplexWarmStart(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.Simplex(nil))
	require.Equal(t, Optimal, p.Status())

	// a tighter capacity makes the old basis primal infeasible
	require.NoError(t, p.SetRowBounds(1, Upper, 0, 50))
	parm := DefaultSmcp()
	parm.Meth = Dual
	require.NoError(t, p.Simplex(parm))
	require.Equal(t, Optimal, p.Status())
	assert.InDelta(t, 500, p.ObjVal(), 1e-6)
	assert.InDelta(t, 50, p.ColPrim(1), 1e-6)
	kkt, err := p.CheckKKT(BasicSolution, KKTDualBound)
	require.NoError(t, err)
	assert.Equal(t, byte('H'), kkt.Quality())
}

func TestSimplexLimits(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.StdBasis())
	parm := DefaultSmcp()
	parm.ItLim = 0
	assert.ErrorIs(t, p.Simplex(parm), ErrIterLimit)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p = buildProblem(t, plantData())
	assert.ErrorIs(t, p.SimplexContext(ctx, nil), context.Canceled)

	parm = DefaultSmcp()
	parm.TolBnd = 2
	assert.ErrorIs(t, p.Simplex(parm), ErrInvalidOption)
}

func TestScaleIdempotent(t *testing.T) {
	data := lpData{
		c: []float64{1, 1000, 0.001},
		a: [][]float64{
			{1000, 0.01, 1},
			{0.001, 200, 30},
		},
		rlb: []float64{1, 2}, rub: []float64{inf, inf},
		clb: []float64{0, 0, 0}, cub: []float64{inf, inf, inf},
	}
	p := buildProblem(t, data)
	require.NoError(t, p.Simplex(nil))
	require.Equal(t, Optimal, p.Status())
	want := p.ObjVal()

	q := buildProblem(t, data)
	require.NoError(t, q.Scale(ScaleAuto))
	rows := []float64{q.RowScale(1), q.RowScale(2)}
	cols := []float64{q.ColScale(1), q.ColScale(2), q.ColScale(3)}
	assert.NotEqual(t, []float64{1, 1}, rows, "badly scaled matrix must get factors")

	require.NoError(t, q.Scale(ScaleAuto))
	assert.Equal(t, rows, []float64{q.RowScale(1), q.RowScale(2)})
	assert.Equal(t, cols, []float64{q.ColScale(1), q.ColScale(2), q.ColScale(3)})

	require.NoError(t, q.Simplex(nil))
	require.Equal(t, Optimal, q.Status())
	assert.InDelta(t, want, q.ObjVal(), 1e-9)
	ind, val := q.MatRow(1)
	assert.Equal(t, []int{1, 2, 3}, ind)
	assert.Equal(t, []float64{1000, 0.01, 1}, val, "scaling never changes stored coefficients")

	require.NoError(t, q.Unscale())
	assert.Equal(t, 1.0, q.RowScale(2))
	assert.Equal(t, 1.0, q.ColScale(3))
	assert.ErrorIs(t, q.Scale(ScaleFlag(0x1000)), ErrInvalidOption)
}

func TestBasisOperations(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.Simplex(nil))
	require.NoError(t, p.Factorize())
	require.True(t, p.BfExists())
	m := p.NumRows()

	for k := 1; k <= m; k++ {
		b, err := p.BHead(k)
		require.NoError(t, err)
		var slot int
		if b <= m {
			slot, err = p.RowBind(b)
		} else {
			slot, err = p.ColBind(b - m)
		}
		require.NoError(t, err)
		assert.Equal(t, k, slot)
	}

	// <B^-1 u, v> == <u, B^-T v>
	u := []float64{1, -2, 3}
	v := []float64{0.5, 4, -1}
	x := append([]float64(nil), u...)
	y := append([]float64(nil), v...)
	require.NoError(t, p.Ftran(x))
	require.NoError(t, p.Btran(y))
	assert.InDelta(t, floats.Dot(x, v), floats.Dot(u, y), 1e-9)

	// every basic variable is a combination of the non-basic ones
	for k := 1; k <= m; k++ {
		b, err := p.BHead(k)
		require.NoError(t, err)
		ind, val, err := p.EvalTabRow(b)
		require.NoError(t, err)
		sum := 0.0
		for s := range ind {
			sum += val[s] * primOf(p, ind[s])
		}
		assert.InDelta(t, primOf(p, b), sum, 1e-7)

		for n, q := range ind {
			cind, cval, err := p.EvalTabCol(q)
			require.NoError(t, err)
			pos := -1
			for s, c := range cind {
				if c == b {
					pos = s
				}
			}
			require.GreaterOrEqual(t, pos, 0)
			assert.InDelta(t, val[n], cval[pos], 1e-9)
		}
	}

	_, _, err := p.EvalTabRow(m + 3)
	assert.ErrorIs(t, err, ErrInvalidStatus, "column 3 is non-basic")
}

func TestRanges(t *testing.T) {
	p := buildProblem(t, plantData())
	_, err := p.AnalyzeCoef(4)
	assert.Error(t, err, "no optimal basis yet")

	require.NoError(t, p.Simplex(nil))
	m := p.NumRows()

	r, err := p.AnalyzeCoef(m + 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, r.Coef1, 10.0)
	assert.GreaterOrEqual(t, r.Coef2, 10.0)

	// x3 is non-basic at zero; its cost may decrease freely
	r, err = p.AnalyzeCoef(m + 3)
	require.NoError(t, err)
	assert.Equal(t, -inf, r.Coef1)
	assert.InDelta(t, 6.6666667, r.Coef2, 1e-6)

	br, err := p.AnalyzeBound(m + 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, br.Value1, 0.0)
	assert.GreaterOrEqual(t, br.Value2, 0.0)

	_, err = p.AnalyzeBound(m + 1)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

// TestSimplexAgainstGonum compares objective values with gonum's dense
// simplex on random bounded problems min c'x, Ax <= b, x >= 0.
func TestSimplexAgainstGonum(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	for trial := 0; trial < 20; trial++ {
		m, n := 2+rnd.Intn(5), 2+rnd.Intn(6)
		data := lpData{
			c:   make([]float64, n),
			a:   make([][]float64, m),
			rlb: make([]float64, m), rub: make([]float64, m),
			clb: make([]float64, n), cub: make([]float64, n),
		}
		// standard form for gonum: [A I] [x; s] = b
		std := mat.NewDense(m, n+m, nil)
		cstd := make([]float64, n+m)
		for j := 0; j < n; j++ {
			data.c[j] = -1 - 9*rnd.Float64()
			data.cub[j] = inf
			cstd[j] = data.c[j]
		}
		for i := 0; i < m; i++ {
			data.a[i] = make([]float64, n)
			for j := 0; j < n; j++ {
				data.a[i][j] = 1 + float64(rnd.Intn(10))
				std.Set(i, j, data.a[i][j])
			}
			std.Set(i, n+i, 1)
			data.rlb[i], data.rub[i] = -inf, 10+90*rnd.Float64()
		}

		b := append([]float64(nil), data.rub...)
		want, _, err := lp.Simplex(cstd, std, b, 1e-10, nil)
		require.NoError(t, err)

		p := buildProblem(t, data)
		require.NoError(t, p.Simplex(nil))
		require.Equal(t, Optimal, p.Status(), "trial %d", trial)
		assert.InDelta(t, want, p.ObjVal(), 1e-6, "trial %d", trial)

		idx := make([]int, n)
		for j := range idx {
			idx[j] = j + 1
		}
		x := p.ColsPrim(idx)
		assert.InDelta(t, p.ObjVal(), floats.Dot(data.c, x), 1e-6)
	}
}

// randomFeasibleData returns an LP with free, ranged and equality rows and
// every column bound type. The rows are built around a point inside the
// column bounds, so the LP is primal feasible but may be unbounded.
func randomFeasibleData(rnd *rand.Rand) lpData {
	m, n := 2+rnd.Intn(4), 2+rnd.Intn(5)
	d := lpData{dir: Minimize}
	if rnd.Intn(2) == 0 {
		d.dir = Maximize
	}
	x0 := make([]float64, n)
	for j := 0; j < n; j++ {
		d.c = append(d.c, float64(rnd.Intn(11)-5))
		v := float64(rnd.Intn(11) - 5)
		lb, ub := -inf, inf
		switch rnd.Intn(5) {
		case 0:
			x0[j] = v
		case 1:
			lb, x0[j] = v, v+float64(rnd.Intn(3))
		case 2:
			ub, x0[j] = v, v-float64(rnd.Intn(3))
		case 3:
			lb, ub = v, v+float64(1+rnd.Intn(4))
			x0[j] = lb + (ub-lb)*rnd.Float64()
		case 4:
			lb, ub, x0[j] = v, v, v
		}
		d.clb, d.cub = append(d.clb, lb), append(d.cub, ub)
	}
	for i := 0; i < m; i++ {
		row := make([]float64, n)
		act := 0.0
		for j := range row {
			if rnd.Intn(3) > 0 {
				row[j] = float64(rnd.Intn(9) - 4)
			}
			act += row[j] * x0[j]
		}
		d.a = append(d.a, row)
		lb, ub := -inf, inf
		switch rnd.Intn(5) {
		case 1:
			lb = act - float64(rnd.Intn(3))
		case 2:
			ub = act + float64(rnd.Intn(3))
		case 3:
			lb, ub = act-float64(1+rnd.Intn(3)), act+float64(rnd.Intn(3))
		case 4:
			lb, ub = act, act
		}
		d.rlb, d.rub = append(d.rlb, lb), append(d.rub, ub)
	}
	return d
}

// lpOutcome folds the presolver's early returns into the status the
// simplex method reports for the same problem.
func lpOutcome(t *testing.T, p *Problem, err error) SolStatus {
	t.Helper()
	switch {
	case err == nil:
		return p.Status()
	case errors.Is(err, ErrNoDualFeasible):
		return Unbounded
	case errors.Is(err, ErrNoPrimalFeasible):
		return NoFeasible
	}
	require.NoError(t, err)
	return Undefined
}

func TestSimplexSettingsAgree(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))

	var settings []*Smcp
	for _, meth := range []Method{Primal, Dual, DualPrimal} {
		for _, pricing := range []Pricing{PricingStd, PricingPSE} {
			for _, rtest := range []RatioTest{RatioStd, RatioHarris} {
				for _, presolve := range []bool{false, true} {
					parm := DefaultSmcp()
					parm.Meth, parm.Pricing, parm.RTest, parm.Presolve = meth, pricing, rtest, presolve
					settings = append(settings, parm)
				}
			}
		}
	}

	for trial := 0; trial < 40; trial++ {
		data := randomFeasibleData(rnd)

		ref := buildProblem(t, data)
		require.NoError(t, ref.Simplex(nil))
		want := ref.Status()
		require.Contains(t, []SolStatus{Optimal, Unbounded}, want, "trial %d", trial)

		for _, parm := range settings {
			name := fmt.Sprintf("%d/meth%d-pricing%x-rtest%x-presolve%t", trial, parm.Meth, parm.Pricing, parm.RTest, parm.Presolve)
			t.Run(name, func(t *testing.T) {
				p := buildProblem(t, data)
				got := lpOutcome(t, p, p.Simplex(parm))
				require.Equal(t, want, got)
				if want != Optimal {
					return
				}
				assert.InDelta(t, ref.ObjVal(), p.ObjVal(), 1e-6*(1+math.Abs(ref.ObjVal())))

				pe, err := p.CheckKKT(BasicSolution, KKTPrimalEq)
				require.NoError(t, err)
				assert.NotEqual(t, byte('?'), pe.Quality())
				pb, err := p.CheckKKT(BasicSolution, KKTPrimalBound)
				require.NoError(t, err)
				assert.NotEqual(t, byte('?'), pb.Quality())
			})
		}
	}
}
