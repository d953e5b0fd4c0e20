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
	"math"
)

const nppEps = 1e-9

// nppSource records the singleton row that implied a column bound.
type nppSource struct {
	row   int // 0-based, -1 if the bound is the column's own
	lower bool
}

// npp removes free rows, empty rows, row singletons, fixed columns and
// empty columns from a problem, and maps solutions of the reduced problem
// back to the original one.
type npp struct {
	p   *Problem
	mip bool

	rowOn, colOn []bool
	rlb, rub     []float64
	clb, cub     []float64
	lbSrc, ubSrc []nppSource

	// removed columns: the bound they were fixed at and a status relative
	// to clb/cub
	cval  []float64
	cstat []VarStatus
	c0    float64

	red        *Problem
	rmap, cmap []int // reduced 0-based index -> original 0-based index
}

func newNpp(p *Problem, mip bool) *npp {
	m, n := p.m(), p.n()
	np := &npp{
		p:     p,
		mip:   mip,
		rowOn: make([]bool, m),
		colOn: make([]bool, n),
		rlb:   make([]float64, m),
		rub:   make([]float64, m),
		clb:   make([]float64, n),
		cub:   make([]float64, n),
		lbSrc: make([]nppSource, n),
		ubSrc: make([]nppSource, n),
		cval:  make([]float64, n),
		cstat: make([]VarStatus, n),
	}
	for i, r := range p.rows {
		np.rowOn[i] = true
		np.rlb[i], np.rub[i] = r.lb, r.ub
	}
	for j, c := range p.cols {
		np.colOn[j] = true
		np.clb[j], np.cub[j] = c.lb, c.ub
		np.lbSrc[j].row, np.ubSrc[j].row = -1, -1
		if mip && c.kind == Integer {
			np.clb[j], np.cub[j] = roundBounds(np.clb[j], np.cub[j])
		}
	}
	return np
}

// roundBounds rounds the bounds of an integer column inwards.
func roundBounds(lb, ub float64) (float64, float64) {
	if !isInf(lb) {
		lb = math.Ceil(lb - nppEps)
	}
	if !isInf(ub) {
		ub = math.Floor(ub + nppEps)
	}
	return lb, ub
}

func nppTol(v float64) float64 {
	return nppEps * (1 + math.Abs(v))
}

// process applies the reductions until none is left. It returns
// ErrNoPrimalFeasible or ErrNoDualFeasible when it detects that the problem
// has no feasible or no bounded solution.
func (np *npp) process() error {
	p := np.p
	sign := 1.0
	if p.dir == Maximize {
		sign = -1
	}
	for changed := true; changed; {
		changed = false
		for i, r := range p.rows {
			if !np.rowOn[i] {
				continue
			}
			if isInf(np.rlb[i]) && isInf(np.rub[i]) {
				np.rowOn[i] = false
				changed = true
				continue
			}
			var single *element
			cnt := 0
			for e := r.ptr; e != nil; e = e.rnext {
				if np.colOn[e.col.j-1] {
					single = e
					cnt++
				}
			}
			switch cnt {
			case 0:
				if np.rlb[i] > nppTol(np.rlb[i]) || np.rub[i] < -nppTol(np.rub[i]) {
					return ErrNoPrimalFeasible
				}
				np.rowOn[i] = false
				changed = true
			case 1:
				if err := np.singleton(i, single); err != nil {
					return err
				}
				np.rowOn[i] = false
				changed = true
			}
		}

		for j, c := range p.cols {
			if !np.colOn[j] {
				continue
			}
			if np.clb[j] == np.cub[j] {
				np.fixCol(j, np.clb[j], NonBasicFixed)
				changed = true
				continue
			}
			active := false
			for e := c.ptr; e != nil; e = e.cnext {
				if np.rowOn[e.row.i-1] {
					active = true
					break
				}
			}
			if active {
				continue
			}
			cost := sign * c.coef
			switch {
			case cost > 0 && isInf(np.clb[j]), cost < 0 && isInf(np.cub[j]):
				return ErrNoDualFeasible
			case cost > 0:
				np.fixCol(j, np.clb[j], NonBasicLower)
			case cost < 0:
				np.fixCol(j, np.cub[j], NonBasicUpper)
			case !isInf(np.clb[j]):
				np.fixCol(j, np.clb[j], NonBasicLower)
			case !isInf(np.cub[j]):
				np.fixCol(j, np.cub[j], NonBasicUpper)
			default:
				np.fixCol(j, 0, NonBasicFree)
			}
			changed = true
		}
	}
	return nil
}

// singleton turns row i, whose only active element is e, into bounds on
// the column of e.
func (np *npp) singleton(i int, e *element) error {
	j, a := e.col.j-1, e.val
	lo, hi := np.rlb[i]/a, np.rub[i]/a
	loSide, hiSide := true, false
	if a < 0 {
		lo, hi = hi, lo
		loSide, hiSide = false, true
	}
	if np.mip && e.col.kind == Integer {
		lo, hi = roundBounds(lo, hi)
	}
	if !isInf(lo) && (isInf(np.clb[j]) || lo > np.clb[j]+nppTol(np.clb[j])) {
		np.clb[j] = lo
		np.lbSrc[j] = nppSource{row: i, lower: loSide}
	}
	if !isInf(hi) && (isInf(np.cub[j]) || hi < np.cub[j]-nppTol(np.cub[j])) {
		np.cub[j] = hi
		np.ubSrc[j] = nppSource{row: i, lower: hiSide}
	}
	if np.clb[j] > np.cub[j] {
		if np.clb[j]-np.cub[j] > nppTol(np.clb[j]) {
			return ErrNoPrimalFeasible
		}
		np.cub[j] = np.clb[j]
	}
	return nil
}

// fixCol removes column j at value v, moving its contribution into the row
// bounds and the objective constant.
func (np *npp) fixCol(j int, v float64, stat VarStatus) {
	c := np.p.cols[j]
	np.colOn[j] = false
	np.cval[j], np.cstat[j] = v, stat
	np.c0 += c.coef * v
	if v == 0 {
		return
	}
	for e := c.ptr; e != nil; e = e.cnext {
		i := e.row.i - 1
		np.rlb[i] -= e.val * v
		np.rub[i] -= e.val * v
	}
}

// build creates the reduced problem from what process left active.
func (np *npp) build() error {
	p := np.p
	red, err := NewProblem(WithLogger(p.logger))
	if err != nil {
		return err
	}
	red.termOut = p.termOut
	red.bfcp = p.bfcp
	red.dir = p.dir
	red.c0 = p.c0 + np.c0

	rpos := make([]int, p.m())
	for i := range p.rows {
		rpos[i] = -1
		if np.rowOn[i] {
			rpos[i] = len(np.rmap)
			np.rmap = append(np.rmap, i)
		}
	}
	for j := range p.cols {
		if np.colOn[j] {
			np.cmap = append(np.cmap, j)
		}
	}
	red.addRows(len(np.rmap))
	red.addCols(len(np.cmap))
	for k, i := range np.rmap {
		red.setRowBounds(red.rows[k], boundsOf(np.rlb[i], np.rub[i]), np.rlb[i], np.rub[i])
	}
	var ia, ja []int
	var ar []float64
	for k, j := range np.cmap {
		c, rc := p.cols[j], red.cols[k]
		red.setColBounds(rc, boundsOf(np.clb[j], np.cub[j]), np.clb[j], np.cub[j])
		rc.coef = c.coef
		if np.mip {
			rc.kind = c.kind
		}
		for e := c.ptr; e != nil; e = e.cnext {
			if r := rpos[e.row.i-1]; r >= 0 {
				ia = append(ia, r+1)
				ja = append(ja, k+1)
				ar = append(ar, e.val)
			}
		}
	}
	red.loadMatrix(ia, ja, ar)
	red.stdBasis()
	np.red = red
	return nil
}

// colStat maps the status of column j, relative to its presolved bounds,
// to a status in the original problem. It may make the column basic in
// place of the singleton row that implied its active bound.
func (np *npp) colStat(j int, stat VarStatus, rstat []VarStatus) VarStatus {
	c := np.p.cols[j]
	atLower := func() VarStatus {
		switch {
		case np.clb[j] == c.lb && c.typ == Fixed:
			return NonBasicFixed
		case np.clb[j] == c.lb:
			return NonBasicLower
		case np.clb[j] == c.ub:
			return NonBasicUpper
		case np.lbSrc[j].row >= 0:
			rstat[np.lbSrc[j].row] = np.rowSideStat(np.lbSrc[j])
			return Basic
		}
		return NonBasicLower
	}
	atUpper := func() VarStatus {
		switch {
		case np.cub[j] == c.ub && c.typ == Fixed:
			return NonBasicFixed
		case np.cub[j] == c.ub:
			return NonBasicUpper
		case np.cub[j] == c.lb:
			return NonBasicLower
		case np.ubSrc[j].row >= 0:
			rstat[np.ubSrc[j].row] = np.rowSideStat(np.ubSrc[j])
			return Basic
		}
		return NonBasicUpper
	}
	switch stat {
	case Basic:
		return Basic
	case NonBasicLower:
		return atLower()
	case NonBasicUpper:
		return atUpper()
	case NonBasicFixed:
		if np.lbSrc[j].row < 0 && np.clb[j] != c.lb && np.clb[j] != c.ub {
			return atUpper()
		}
		return atLower()
	}
	return NonBasicFree
}

func (np *npp) rowSideStat(src nppSource) VarStatus {
	switch {
	case np.p.rows[src.row].typ == Fixed:
		return NonBasicFixed
	case src.lower:
		return NonBasicLower
	}
	return NonBasicUpper
}

// recoverBasis installs a basis for the original problem from the
// statuses of the reduced one.
func (np *npp) recoverBasis() {
	p, red := np.p, np.red
	rstat := make([]VarStatus, p.m())
	for i := range rstat {
		rstat[i] = Basic
	}
	for k, i := range np.rmap {
		rstat[i] = red.rows[k].stat
	}
	cstat := make([]VarStatus, p.n())
	for j := range p.cols {
		if !np.colOn[j] {
			cstat[j] = np.colStat(j, np.cstat[j], rstat)
		}
	}
	for k, j := range np.cmap {
		cstat[j] = np.colStat(j, red.cols[k].stat, rstat)
	}
	for i, r := range p.rows {
		r.stat = rstat[i]
		if r.stat != Basic {
			r.stat = nonBasicStat(r.typ, r.stat)
		}
	}
	for j, c := range p.cols {
		c.stat = cstat[j]
		if c.stat != Basic {
			c.stat = nonBasicStat(c.typ, c.stat)
		}
	}
	p.invalidateBasis()
}

// colValues expands the column values of the reduced problem to all
// columns of the original one.
func (np *npp) colValues(red []float64) []float64 {
	x := make([]float64, np.p.n())
	copy(x, np.cval)
	for k, j := range np.cmap {
		x[j] = red[k]
	}
	return x
}

func (np *npp) summary(lev MsgLevel) {
	p := np.p
	if !p.termOut {
		return
	}
	p.msgf(lev, MsgAll, "presolve: %d rows, %d columns, %d non-zeros", p.m(), p.n(), p.nnz)
	p.msgf(lev, MsgAll, "presolve: %d rows, %d columns, %d non-zeros remain", np.red.m(), np.red.n(), np.red.nnz)
}

func (p *Problem) presolveLP(ctx context.Context, parm *Smcp) error {
	np := newNpp(p, false)
	switch err := np.process(); err {
	case nil:
	case ErrNoPrimalFeasible:
		if p.termOut {
			p.msgf(parm.MsgLev, MsgAll, "presolve: problem has no primal feasible solution")
		}
		p.pbsStat = NoFeasible
		return err
	case ErrNoDualFeasible:
		if p.termOut {
			p.msgf(parm.MsgLev, MsgAll, "presolve: problem has no dual feasible solution")
		}
		p.dbsStat = NoFeasible
		return err
	default:
		return err
	}
	if err := np.build(); err != nil {
		return err
	}
	np.summary(parm.MsgLev)

	sub := *parm
	sub.Presolve = false
	if err := np.red.runSimplex(ctx, &sub); err != nil {
		return err
	}
	switch {
	case np.red.pbsStat == NoFeasible:
		p.pbsStat = NoFeasible
		return ErrNoPrimalFeasible
	case np.red.dbsStat == NoFeasible:
		p.dbsStat = NoFeasible
		return ErrNoDualFeasible
	}

	np.recoverBasis()
	sub.Meth = Primal
	err := p.runSimplex(ctx, &sub)
	switch err {
	case ErrBadBasis, ErrSingular, ErrCond:
		if p.termOut {
			p.msgf(parm.MsgLev, MsgAll, "presolve: recovered basis rejected, restarting from the standard basis")
		}
		p.stdBasis()
		err = p.runSimplex(ctx, &sub)
	}
	return err
}
