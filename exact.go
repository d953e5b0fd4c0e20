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
	"math/big"
	"time"
)

// Exact solves the LP relaxation with a primal simplex method in exact
// rational arithmetic, starting from the current basis. Only the limits,
// MsgLev, OutFrq and OutDly fields of parm are used; pricing and ratio test
// follow Bland's rule.
func (p *Problem) Exact(parm *Smcp) error {
	return p.ExactContext(context.Background(), parm)
}

// ExactContext is like Exact and stops early when ctx is done.
func (p *Problem) ExactContext(ctx context.Context, parm *Smcp) (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if parm == nil {
		parm = DefaultSmcp()
	}
	if err := parm.validate(); err != nil {
		return err
	}
	defer recoverSolve(p.logger, &err)

	return p.exact(ctx, parm)
}

// rbound is an optional rational bound.
type rbound struct {
	v   big.Rat
	inf bool
}

// xspx is the dense rational tableau T = B^-1 [I | -A] with the basic
// values, rows ordered by basis slot.
type xspx struct {
	p    *Problem
	parm *Smcp
	ctx  context.Context

	m, nv int
	t     [][]big.Rat
	l, u  []rbound
	typ   []BoundType
	cost  []big.Rat
	stat  []VarStatus
	head  []int
	beta  []big.Rat

	it    int
	start time.Time
	phase int
}

func (p *Problem) exact(ctx context.Context, parm *Smcp) error {
	p.pbsStat, p.dbsStat = Undefined, Undefined
	p.someRay = 0
	m, n := p.m(), p.n()
	xs := &xspx{
		p: p, parm: parm, ctx: ctx,
		m: m, nv: m + n,
		t:     make([][]big.Rat, m),
		l:     make([]rbound, m+n),
		u:     make([]rbound, m+n),
		typ:   make([]BoundType, m+n),
		cost:  make([]big.Rat, m+n),
		stat:  make([]VarStatus, m+n),
		beta:  make([]big.Rat, m),
		start: time.Now(),
	}
	sign := 1.0
	if p.dir == Maximize {
		sign = -1
	}
	setBounds := func(k int, typ BoundType, lb, ub float64) {
		xs.typ[k] = typ
		xs.l[k].inf = isInf(lb)
		if !xs.l[k].inf {
			xs.l[k].v.SetFloat64(lb)
		}
		xs.u[k].inf = isInf(ub)
		if !xs.u[k].inf {
			xs.u[k].v.SetFloat64(ub)
		}
	}
	for i, r := range p.rows {
		xs.t[i] = make([]big.Rat, m+n)
		xs.t[i][i].SetInt64(1)
		for e := r.ptr; e != nil; e = e.rnext {
			xs.t[i][m+e.col.j-1].SetFloat64(-e.val)
		}
		setBounds(i, r.typ, r.lb, r.ub)
		xs.stat[i] = r.stat
	}
	for j, c := range p.cols {
		setBounds(m+j, c.typ, c.lb, c.ub)
		xs.cost[m+j].SetFloat64(sign * c.coef)
		xs.stat[m+j] = c.stat
	}
	for k := range xs.stat {
		if xs.stat[k] == Basic {
			xs.head = append(xs.head, k)
		} else {
			xs.stat[k] = nonBasicStat(xs.typ[k], xs.stat[k])
		}
	}
	if len(xs.head) != m {
		return ErrBadBasis
	}
	if p.termOut {
		p.msgf(parm.MsgLev, MsgAll, "exact simplex: %d rows, %d columns, %d non-zeros", m, n, p.nnz)
	}
	if !xs.invert() {
		if p.termOut {
			p.msgf(parm.MsgLev, MsgErr, "exact simplex: initial basis matrix is singular")
		}
		return ErrSingular
	}
	xs.computeBeta()

	err := xs.run()
	xs.store(sign)
	return err
}

// invert turns the tableau into B^-1 [I | -A] by Gauss-Jordan elimination
// on the basic columns. It reports false for a singular basis.
func (xs *xspx) invert() bool {
	assigned := make([]bool, xs.m)
	order := make([]int, xs.m)
	for s, k := range xs.head {
		r := -1
		for i := 0; i < xs.m; i++ {
			if !assigned[i] && xs.t[i][k].Sign() != 0 {
				r = i
				break
			}
		}
		if r < 0 {
			return false
		}
		assigned[r] = true
		order[s] = r
		xs.pivot(r, k)
	}
	rows := make([][]big.Rat, xs.m)
	for s, r := range order {
		rows[s] = xs.t[r]
	}
	xs.t = rows
	return true
}

// pivot scales row r so that column k has a one there and eliminates
// column k from every other row.
func (xs *xspx) pivot(r, k int) {
	var inv, f, tmp big.Rat
	inv.Inv(&xs.t[r][k])
	pr := xs.t[r]
	for j := range pr {
		if pr[j].Sign() != 0 {
			pr[j].Mul(&pr[j], &inv)
		}
	}
	for i := range xs.t {
		if i == r || xs.t[i][k].Sign() == 0 {
			continue
		}
		f.Set(&xs.t[i][k])
		ri := xs.t[i]
		for j := range pr {
			if pr[j].Sign() == 0 {
				continue
			}
			tmp.Mul(&f, &pr[j])
			ri[j].Sub(&ri[j], &tmp)
		}
	}
}

func (xs *xspx) nbValue(k int) *big.Rat {
	switch xs.stat[k] {
	case NonBasicLower, NonBasicFixed:
		return &xs.l[k].v
	case NonBasicUpper:
		return &xs.u[k].v
	}
	return new(big.Rat)
}

func (xs *xspx) computeBeta() {
	var tmp big.Rat
	for s := range xs.beta {
		xs.beta[s].SetInt64(0)
		for k := 0; k < xs.nv; k++ {
			if xs.stat[k] == Basic || xs.t[s][k].Sign() == 0 {
				continue
			}
			tmp.Mul(&xs.t[s][k], xs.nbValue(k))
			xs.beta[s].Sub(&xs.beta[s], &tmp)
		}
	}
}

// violation returns -1 if basic slot s is below its lower bound, +1 if it
// is above its upper bound, 0 otherwise.
func (xs *xspx) violation(s int) int {
	k := xs.head[s]
	if !xs.l[k].inf && xs.beta[s].Cmp(&xs.l[k].v) < 0 {
		return -1
	}
	if !xs.u[k].inf && xs.beta[s].Cmp(&xs.u[k].v) > 0 {
		return +1
	}
	return 0
}

func (xs *xspx) run() error {
	for {
		infeasible := false
		for s := range xs.head {
			if xs.violation(s) != 0 {
				infeasible = true
				break
			}
		}
		xs.phase = 2
		if infeasible {
			xs.phase = 1
		}

		if err := xs.ctx.Err(); err != nil {
			return err
		}
		if xs.it >= xs.parm.ItLim {
			return ErrIterLimit
		}
		if int(time.Since(xs.start)/time.Millisecond) >= xs.parm.TmLim {
			return ErrTimeLimit
		}
		if xs.it%xs.parm.OutFrq == 0 && xs.p.termOut {
			mark := ' '
			if xs.phase == 2 {
				mark = '*'
			}
			xs.p.msgf(xs.parm.MsgLev, MsgOn, "%c%6d: phase %d", mark, xs.it, xs.phase)
		}

		cost := xs.cost
		if xs.phase == 1 {
			cost = make([]big.Rat, xs.nv)
			for s, k := range xs.head {
				cost[k].SetInt64(int64(xs.violation(s)))
			}
		}
		d := xs.reducedCosts(cost)

		q, dir := -1, 0
		for k := 0; k < xs.nv && q < 0; k++ {
			switch xs.stat[k] {
			case NonBasicLower:
				if d[k].Sign() < 0 {
					q, dir = k, 1
				}
			case NonBasicUpper:
				if d[k].Sign() > 0 {
					q, dir = k, -1
				}
			case NonBasicFree:
				if d[k].Sign() != 0 {
					q, dir = k, -d[k].Sign()
				}
			}
		}
		if q < 0 {
			if xs.phase == 1 {
				xs.p.pbsStat, xs.p.dbsStat = NoFeasible, Infeasible
			} else {
				xs.p.pbsStat, xs.p.dbsStat = Feasible, Feasible
			}
			return nil
		}

		r, theta := xs.ratioTest(q, dir)
		var flip *big.Rat
		if xs.typ[q] == Double {
			flip = new(big.Rat).Sub(&xs.u[q].v, &xs.l[q].v)
		}
		if r < 0 && flip == nil {
			if xs.phase == 1 {
				return ErrFail
			}
			xs.p.pbsStat, xs.p.dbsStat = Feasible, NoFeasible
			xs.p.someRay = q + 1
			return nil
		}
		xs.it++

		var tmp big.Rat
		if r < 0 || (flip != nil && flip.Cmp(theta) <= 0) {
			for s := range xs.beta {
				tmp.Mul(&xs.t[s][q], flip)
				tmp.Mul(&tmp, big.NewRat(int64(dir), 1))
				xs.beta[s].Sub(&xs.beta[s], &tmp)
			}
			if xs.stat[q] == NonBasicLower {
				xs.stat[q] = NonBasicUpper
			} else {
				xs.stat[q] = NonBasicLower
			}
			continue
		}

		leave := xs.head[r]
		viol := xs.violation(r)
		var xq big.Rat
		xq.Mul(theta, big.NewRat(int64(dir), 1))
		xq.Add(&xq, xs.nbValue(q))
		delta := -xs.t[r][q].Sign() * dir
		for s := range xs.beta {
			tmp.Mul(&xs.t[s][q], theta)
			tmp.Mul(&tmp, big.NewRat(int64(dir), 1))
			xs.beta[s].Sub(&xs.beta[s], &tmp)
		}
		atLower := delta < 0
		if viol < 0 {
			atLower = true
		} else if viol > 0 {
			atLower = false
		}
		switch {
		case xs.typ[leave] == Fixed:
			xs.stat[leave] = NonBasicFixed
		case atLower:
			xs.stat[leave] = NonBasicLower
		default:
			xs.stat[leave] = NonBasicUpper
		}
		xs.pivot(r, q)
		xs.head[r] = q
		xs.stat[q] = Basic
		xs.beta[r].Set(&xq)
	}
}

func (xs *xspx) reducedCosts(cost []big.Rat) []big.Rat {
	d := make([]big.Rat, xs.nv)
	var tmp big.Rat
	for k := 0; k < xs.nv; k++ {
		if xs.stat[k] == Basic {
			continue
		}
		d[k].Set(&cost[k])
		for s, b := range xs.head {
			if cost[b].Sign() == 0 || xs.t[s][k].Sign() == 0 {
				continue
			}
			tmp.Mul(&cost[b], &xs.t[s][k])
			d[k].Sub(&d[k], &tmp)
		}
	}
	return d
}

// ratioTest returns the slot leaving when q moves in direction dir, ties
// broken by the smallest variable index, or -1 if nothing blocks.
func (xs *xspx) ratioTest(q, dir int) (int, *big.Rat) {
	best := -1
	var bestT *big.Rat
	for s, k := range xs.head {
		a := xs.t[s][q]
		if a.Sign() == 0 {
			continue
		}
		// the basic variable moves by delta per unit step
		delta := new(big.Rat).Mul(&a, big.NewRat(int64(-dir), 1))
		lo, hi := xs.l[k], xs.u[k]
		switch xs.violation(s) {
		case -1:
			lo = rbound{inf: true}
			hi = xs.l[k]
		case +1:
			lo = xs.u[k]
			hi = rbound{inf: true}
		}
		var t *big.Rat
		switch {
		case delta.Sign() < 0 && !lo.inf:
			t = new(big.Rat).Sub(&xs.beta[s], &lo.v)
			t.Quo(t, new(big.Rat).Neg(delta))
		case delta.Sign() > 0 && !hi.inf:
			t = new(big.Rat).Sub(&hi.v, &xs.beta[s])
			t.Quo(t, delta)
		default:
			continue
		}
		if t.Sign() < 0 {
			t.SetInt64(0)
		}
		if best < 0 || t.Cmp(bestT) < 0 || (t.Cmp(bestT) == 0 && k < xs.head[best]) {
			best, bestT = s, t
		}
	}
	return best, bestT
}

// store writes the statuses and the rounded solution back to the problem.
func (xs *xspx) store(sign float64) {
	p := xs.p
	d := xs.reducedCosts(xs.cost)
	vals := make([]float64, xs.nv)
	duals := make([]float64, xs.nv)
	for k := 0; k < xs.nv; k++ {
		if xs.stat[k] != Basic {
			vals[k], _ = xs.nbValue(k).Float64()
			f, _ := d[k].Float64()
			duals[k] = sign * f
		}
	}
	for s, k := range xs.head {
		vals[k], _ = xs.beta[s].Float64()
	}
	for i, r := range p.rows {
		r.stat, r.prim, r.dual = xs.stat[i], vals[i], duals[i]
	}
	for j, c := range p.cols {
		k := xs.m + j
		c.stat, c.prim, c.dual = xs.stat[k], vals[k], duals[k]
	}
	obj := p.c0
	for _, c := range p.cols {
		obj += c.coef * c.prim
	}
	p.objVal = obj
	p.invalidateBasis()
}
