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

	"gonum.org/v1/gonum/mat"
)

// spvec is a sparse vector with 0-based indices.
type spvec struct {
	ind []int
	val []float64
}

// luFactor is a factorization B0 = L*U of an initial basis matrix whose
// k-th column is the column of the variable in basis slot k.
type luFactor interface {
	// solve overwrites x, indexed by row, with B0^-1 x, indexed by slot.
	solve(x []float64)
	// solveTrans overwrites x, indexed by slot, with B0^-T x, indexed by row.
	solveTrans(x []float64)
}

func newLUFactor(parm *Bfcp, m int, cols []spvec) (luFactor, error) {
	if m == 0 {
		return emptyLU{}, nil
	}
	switch parm.Type {
	case BfDenseLU:
		return newDenseLU(parm, m, cols)
	default:
		return newSparseLU(parm, m, cols)
	}
}

type emptyLU struct{}

func (emptyLU) solve([]float64)      {}
func (emptyLU) solveTrans([]float64) {}

// denseLU keeps B0 as a gonum LU decomposition.
type denseLU struct {
	lu  mat.LU
	dst mat.VecDense
}

func newDenseLU(_ *Bfcp, m int, cols []spvec) (*denseLU, error) {
	a := mat.NewDense(m, m, nil)
	for k, c := range cols {
		for t, i := range c.ind {
			a.Set(i, k, c.val[t])
		}
	}
	f := &denseLU{}
	f.lu.Factorize(a)

	cond := f.lu.Cond()
	switch {
	case math.IsInf(cond, 0) || math.IsNaN(cond):
		return nil, ErrSingular
	case cond > 1/epsilon:
		return nil, ErrCond
	}
	return f, nil
}

const epsilon = 2.220446049250313e-16

func (f *denseLU) solve(x []float64) {
	f.solveVec(x, false)
}

func (f *denseLU) solveTrans(x []float64) {
	f.solveVec(x, true)
}

func (f *denseLU) solveVec(x []float64, trans bool) {
	b := mat.NewVecDense(len(x), x)
	// a condition error is already caught when factorizing
	_ = f.lu.SolveVecTo(&f.dst, trans, b)
	copy(x, f.dst.RawVector().Data)
}

// sparseLU is a Markowitz threshold LU factorization. Pivots are applied in
// order: step k eliminates row prow[k] with column (slot) pcol[k].
type sparseLU struct {
	m    int
	prow []int
	pcol []int
	diag []float64
	lcol []spvec // multipliers of step k, by row
	urow []spvec // off-diagonal part of pivot row k, by slot
	work []float64
}

// activeMatrix is the active submatrix during elimination, kept both by row
// and by column.
type activeMatrix struct {
	rows []map[int]float64
	cols []map[int]struct{}
}

func newSparseLU(parm *Bfcp, m int, cols []spvec) (*sparseLU, error) {
	am := activeMatrix{
		rows: make([]map[int]float64, m),
		cols: make([]map[int]struct{}, m),
	}
	for i := range am.rows {
		am.rows[i] = make(map[int]float64)
	}
	maxOrig := 0.0
	for k, c := range cols {
		am.cols[k] = make(map[int]struct{}, len(c.ind))
		for t, i := range c.ind {
			if c.val[t] == 0 {
				continue
			}
			am.rows[i][k] = c.val[t]
			am.cols[k][i] = struct{}{}
			maxOrig = math.Max(maxOrig, math.Abs(c.val[t]))
		}
	}

	f := &sparseLU{
		m:    m,
		prow: make([]int, 0, m),
		pcol: make([]int, 0, m),
		diag: make([]float64, 0, m),
		lcol: make([]spvec, 0, m),
		urow: make([]spvec, 0, m),
		work: make([]float64, m),
	}
	rowDone := make([]bool, m)
	colDone := make([]bool, m)
	maxAct := maxOrig

	for step := 0; step < m; step++ {
		p, q := searchPivot(parm, &am, rowDone, colDone)
		if p < 0 {
			return nil, ErrSingular
		}
		piv := am.rows[p][q]
		if math.Abs(piv) <= parm.EpsTol*math.Max(maxOrig, 1) {
			return nil, ErrSingular
		}

		// pivot row, without the pivot itself
		var u spvec
		for j, v := range am.rows[p] {
			delete(am.cols[j], p)
			if j == q {
				continue
			}
			u.ind = append(u.ind, j)
			u.val = append(u.val, v)
		}
		sortSpvec(&u)

		var l spvec
		for i := range am.cols[q] {
			if i == p {
				continue
			}
			mult := am.rows[i][q] / piv
			delete(am.rows[i], q)
			l.ind = append(l.ind, i)
			l.val = append(l.val, mult)
			for t, j := range u.ind {
				v := am.rows[i][j] - mult*u.val[t]
				if math.Abs(v) <= parm.EpsTol*maxOrig {
					delete(am.rows[i], j)
					delete(am.cols[j], i)
					continue
				}
				am.rows[i][j] = v
				am.cols[j][i] = struct{}{}
				maxAct = math.Max(maxAct, math.Abs(v))
			}
		}
		sortSpvec(&l)
		am.rows[p] = nil
		am.cols[q] = nil
		rowDone[p] = true
		colDone[q] = true

		if maxAct > parm.MaxGro*math.Max(maxOrig, 1) {
			return nil, ErrCond
		}

		f.prow = append(f.prow, p)
		f.pcol = append(f.pcol, q)
		f.diag = append(f.diag, piv)
		f.lcol = append(f.lcol, l)
		f.urow = append(f.urow, u)
	}
	return f, nil
}

// searchPivot picks the pivot of the next elimination step. Column
// singletons are taken right away; otherwise the PivLim sparsest columns
// (and rows, with Suhl's heuristic) are searched for the entry with the
// smallest Markowitz product among those passing the PivTol threshold.
func searchPivot(parm *Bfcp, am *activeMatrix, rowDone, colDone []bool) (int, int) {
	type cand struct{ idx, cnt int }
	var colCands, rowCands []cand
	keep := func(list []cand, c cand, max int) []cand {
		list = append(list, c)
		for k := len(list) - 1; k > 0 && list[k].cnt < list[k-1].cnt; k-- {
			list[k], list[k-1] = list[k-1], list[k]
		}
		if len(list) > max {
			list = list[:max]
		}
		return list
	}

	lim := maxOf(parm.PivLim, 1)
	for j, done := range colDone {
		if done {
			continue
		}
		cnt := len(am.cols[j])
		if cnt == 0 {
			return -1, -1
		}
		if cnt == 1 {
			for i := range am.cols[j] {
				if am.rows[i][j] != 0 {
					return i, j
				}
			}
		}
		colCands = keep(colCands, cand{j, cnt}, lim)
	}
	if parm.Suhl {
		for i, done := range rowDone {
			if done {
				continue
			}
			if len(am.rows[i]) == 0 {
				return -1, -1
			}
			rowCands = keep(rowCands, cand{i, len(am.rows[i])}, lim)
		}
	}

	bestP, bestQ := -1, -1
	bestProd := math.MaxInt
	bestRatio := math.Inf(+1)
	consider := func(i, j int, colMax float64) {
		v := math.Abs(am.rows[i][j])
		if v == 0 || v < parm.PivTol*colMax {
			return
		}
		prod := (len(am.rows[i]) - 1) * (len(am.cols[j]) - 1)
		ratio := colMax / v
		if prod < bestProd || (prod == bestProd && ratio < bestRatio) {
			bestP, bestQ, bestProd, bestRatio = i, j, prod, ratio
		}
	}
	colMax := func(j int) float64 {
		max := 0.0
		for i := range am.cols[j] {
			max = math.Max(max, math.Abs(am.rows[i][j]))
		}
		return max
	}

	for _, c := range colCands {
		cm := colMax(c.idx)
		for i := range am.cols[c.idx] {
			consider(i, c.idx, cm)
		}
	}
	for _, r := range rowCands {
		for j := range am.rows[r.idx] {
			consider(r.idx, j, colMax(j))
		}
	}
	return bestP, bestQ
}

func sortSpvec(v *spvec) {
	for k := 1; k < len(v.ind); k++ {
		for t := k; t > 0 && v.ind[t] < v.ind[t-1]; t-- {
			v.ind[t], v.ind[t-1] = v.ind[t-1], v.ind[t]
			v.val[t], v.val[t-1] = v.val[t-1], v.val[t]
		}
	}
}

func (f *sparseLU) solve(x []float64) {
	// forward: apply the row eliminations to the right hand side
	for k := 0; k < f.m; k++ {
		xp := x[f.prow[k]]
		if xp == 0 {
			continue
		}
		l := f.lcol[k]
		for t, i := range l.ind {
			x[i] -= l.val[t] * xp
		}
	}
	// backward: solve with the pivot rows, result by slot
	w := f.work
	for k := f.m - 1; k >= 0; k-- {
		s := x[f.prow[k]]
		u := f.urow[k]
		for t, j := range u.ind {
			s -= u.val[t] * w[j]
		}
		w[f.pcol[k]] = s / f.diag[k]
	}
	copy(x, w)
}

func (f *sparseLU) solveTrans(x []float64) {
	// x is indexed by slot; z by row
	z := f.work
	for k := 0; k < f.m; k++ {
		zp := x[f.pcol[k]] / f.diag[k]
		z[f.prow[k]] = zp
		if zp == 0 {
			continue
		}
		u := f.urow[k]
		for t, j := range u.ind {
			x[j] -= u.val[t] * zp
		}
	}
	for k := f.m - 1; k >= 0; k-- {
		l := f.lcol[k]
		s := z[f.prow[k]]
		for t, i := range l.ind {
			s -= l.val[t] * z[i]
		}
		z[f.prow[k]] = s
	}
	copy(x, z)
}
