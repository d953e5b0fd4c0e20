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
	"math/bits"
)

// maxBinRange is the largest bound range of an integer column replaced by
// binary columns.
const maxBinRange = 1<<15 - 1

func (p *Problem) presolveMIP(ctx context.Context, parm *Iocp) error {
	if p.termOut {
		p.msgf(parm.MsgLev, MsgAll, "intopt: preprocessing %d rows, %d columns (%d integer), %d non-zeros",
			p.m(), p.n(), p.numInt(), p.nnz)
	}
	np := newNpp(p, true)
	switch err := np.process(); err {
	case nil:
	case ErrNoPrimalFeasible:
		if p.termOut {
			p.msgf(parm.MsgLev, MsgAll, "PROBLEM HAS NO PRIMAL FEASIBLE SOLUTION")
		}
		p.mipStat = NoFeasible
		return err
	case ErrNoDualFeasible:
		if p.termOut {
			p.msgf(parm.MsgLev, MsgAll, "PROBLEM HAS NO DUAL FEASIBLE SOLUTION")
		}
		return err
	default:
		return err
	}
	if err := np.build(); err != nil {
		return err
	}
	np.summary(parm.MsgLev)

	work := np.red
	var bm *binMap
	if parm.Binarize {
		work, bm = binarize(work)
		if p.termOut {
			p.msgf(parm.MsgLev, MsgAll, "intopt: %d integer columns replaced by %d binary columns", bm.replaced, bm.added)
		}
	}

	if p.termOut {
		p.msgf(parm.MsgLev, MsgAll, "intopt: solving LP relaxation")
	}
	smcp := DefaultSmcp()
	smcp.MsgLev = MsgErr
	if parm.MsgLev >= MsgAll {
		smcp.MsgLev = MsgOn
	}
	smcp.TmLim = parm.TmLim
	if err := work.runSimplex(ctx, smcp); err != nil {
		return err
	}
	switch work.status() {
	case Optimal:
	case NoFeasible, Infeasible:
		if p.termOut {
			p.msgf(parm.MsgLev, MsgAll, "PROBLEM HAS NO PRIMAL FEASIBLE SOLUTION")
		}
		p.mipStat = NoFeasible
		return ErrNoPrimalFeasible
	default:
		if p.termOut {
			p.msgf(parm.MsgLev, MsgAll, "PROBLEM HAS NO DUAL FEASIBLE SOLUTION")
		}
		return ErrNoDualFeasible
	}

	err := newIOS(ctx, work, parm).solve()
	switch work.mipStat {
	case Optimal, Feasible:
		xr := make([]float64, work.n())
		for j, c := range work.cols {
			xr[j] = c.mipx
		}
		if bm != nil {
			xr = bm.expand(xr)
		}
		x := np.colValues(xr)
		for j, c := range p.cols {
			if c.kind == Integer {
				x[j] = math.Round(x[j])
			}
		}
		p.storeMIP(x, work.mipStat)
	default:
		p.mipStat = work.mipStat
	}
	return err
}

// binMap records how the columns of a problem map to the columns of its
// binarized copy: column j equals base[j] plus the sum of 2^t times the
// binary columns first[j] .. first[j]+nbits[j]-1, or is column first[j]
// itself when nbits[j] is 0.
type binMap struct {
	first, nbits []int
	base         []float64

	replaced, added int
}

func (bm *binMap) expand(xb []float64) []float64 {
	x := make([]float64, len(bm.first))
	for j := range x {
		if bm.nbits[j] == 0 {
			x[j] = xb[bm.first[j]]
			continue
		}
		x[j] = bm.base[j]
		for t := 0; t < bm.nbits[j]; t++ {
			x[j] += math.Ldexp(math.Round(xb[bm.first[j]+t]), t)
		}
	}
	return x
}

// binarize returns a copy of p where every integer column with finite
// bounds and a range from 2 to maxBinRange is replaced by binary columns.
func binarize(p *Problem) (*Problem, *binMap) {
	n := p.n()
	bm := &binMap{
		first: make([]int, n),
		nbits: make([]int, n),
		base:  make([]float64, n),
	}
	q, _ := NewProblem(WithLogger(p.logger))
	q.termOut = p.termOut
	q.bfcp = p.bfcp
	q.dir = p.dir
	q.c0 = p.c0
	q.addRows(p.m())
	for i, r := range p.rows {
		q.setRowBounds(q.rows[i], r.typ, r.lb, r.ub)
	}

	ncols := 0
	var extra []int // columns needing a range row
	for j, c := range p.cols {
		bm.first[j] = ncols
		rng := c.ub - c.lb
		if c.kind == Integer && !isInf(c.lb) && !isInf(c.ub) && rng >= 2 && rng <= maxBinRange {
			bm.nbits[j] = bits.Len(uint(rng))
			bm.base[j] = c.lb
			bm.replaced++
			bm.added += bm.nbits[j]
			if rng != float64(uint(1)<<bm.nbits[j]-1) {
				extra = append(extra, j)
			}
			ncols += bm.nbits[j]
		} else {
			ncols++
		}
	}
	q.addCols(ncols)
	for j, c := range p.cols {
		if bm.nbits[j] == 0 {
			qc := q.cols[bm.first[j]]
			q.setColBounds(qc, c.typ, c.lb, c.ub)
			qc.kind = c.kind
			qc.coef = c.coef
			continue
		}
		q.c0 += c.coef * c.lb
		for t := 0; t < bm.nbits[j]; t++ {
			qc := q.cols[bm.first[j]+t]
			q.setColKind(qc, Binary)
			qc.coef = c.coef * math.Ldexp(1, t)
		}
	}

	var ia, ja []int
	var ar []float64
	for i, r := range p.rows {
		for e := r.ptr; e != nil; e = e.rnext {
			j := e.col.j - 1
			if bm.nbits[j] == 0 {
				ia, ja, ar = append(ia, i+1), append(ja, bm.first[j]+1), append(ar, e.val)
				continue
			}
			qr := q.rows[i]
			q.setRowBounds(qr, qr.typ, qr.lb-e.val*bm.base[j], qr.ub-e.val*bm.base[j])
			for t := 0; t < bm.nbits[j]; t++ {
				ia, ja, ar = append(ia, i+1), append(ja, bm.first[j]+t+1), append(ar, e.val*math.Ldexp(1, t))
			}
		}
	}
	if len(extra) > 0 {
		first := q.addRows(len(extra))
		for k, j := range extra {
			i := first + k
			q.setRowBounds(q.rows[i-1], Upper, 0, p.cols[j].ub-p.cols[j].lb)
			for t := 0; t < bm.nbits[j]; t++ {
				ia, ja, ar = append(ia, i), append(ja, bm.first[j]+t+1), append(ar, math.Ldexp(1, t))
			}
		}
	}
	q.loadMatrix(ia, ja, ar)
	q.stdBasis()
	return q, bm
}
