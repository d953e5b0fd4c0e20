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
	"time"

	"gonum.org/v1/gonum/floats"
)

// spx is the working copy a simplex run operates on. Variables are numbered
// 0..m+n-1, rows (auxiliary variables) first. The data is scaled: a
// variable's working value is sigma times its problem value, and the
// columns of the working matrix are those of [I | -R*A*S].
type spx struct {
	p    *Problem
	parm *Smcp
	ctx  context.Context

	m, n, nv int
	ncol     []spvec // columns of -R*A*S
	arow     []spvec // rows of R*A*S, by structural index
	typ      []BoundType
	l, u     []float64
	coef     []float64 // costs in minimization sense
	c0       float64
	sign     float64 // 1 for minimization, -1 for maximization
	sigma    []float64

	stat []VarStatus
	head []int // basis slot -> variable
	pos  []int // variable -> basis slot, -1 if non-basic
	beta []float64
	bf   *bfd

	// devex reference weights, by variable
	weight []float64

	it       int
	start    time.Time
	lastOut  int
	degen    int
	bland    bool
	phase    int
	refactor bool

	pbs, dbs SolStatus
	ray      int
}

func newSpx(ctx context.Context, p *Problem, parm *Smcp) (*spx, error) {
	m, n := p.m(), p.n()
	sx := &spx{
		p:      p,
		parm:   parm,
		ctx:    ctx,
		m:      m,
		n:      n,
		nv:     m + n,
		ncol:   make([]spvec, n),
		arow:   make([]spvec, m),
		typ:    make([]BoundType, m+n),
		l:      make([]float64, m+n),
		u:      make([]float64, m+n),
		coef:   make([]float64, m+n),
		sigma:  make([]float64, m+n),
		stat:   make([]VarStatus, m+n),
		pos:    make([]int, m+n),
		beta:   make([]float64, m),
		weight: make([]float64, m+n),
		sign:   1,
		start:  time.Now(),
		pbs:    Undefined,
		dbs:    Undefined,
		ray:    -1,
	}
	if p.dir == Maximize {
		sx.sign = -1
	}
	sx.c0 = p.c0

	for i, r := range p.rows {
		sx.typ[i] = r.typ
		sx.l[i] = r.lb * r.rii
		sx.u[i] = r.ub * r.rii
		sx.sigma[i] = r.rii
		sx.stat[i] = r.stat
		for e := r.ptr; e != nil; e = e.rnext {
			j := e.col.j - 1
			v := r.rii * e.val * e.col.sjj
			sx.arow[i].ind = append(sx.arow[i].ind, j)
			sx.arow[i].val = append(sx.arow[i].val, v)
			sx.ncol[j].ind = append(sx.ncol[j].ind, i)
			sx.ncol[j].val = append(sx.ncol[j].val, -v)
		}
	}
	for j, c := range p.cols {
		k := m + j
		sx.typ[k] = c.typ
		sx.l[k] = c.lb / c.sjj
		sx.u[k] = c.ub / c.sjj
		sx.sigma[k] = 1 / c.sjj
		sx.coef[k] = sx.sign * c.coef * c.sjj
		sx.stat[k] = c.stat
	}
	for k := range sx.weight {
		sx.weight[k] = 1
	}

	for k := 0; k < sx.nv; k++ {
		if sx.typ[k] == Double && !(sx.l[k] < sx.u[k]) {
			return nil, ErrBound
		}
		if sx.stat[k] != Basic {
			sx.stat[k] = nonBasicStat(sx.typ[k], sx.stat[k])
		}
	}

	if p.valid && p.bfd != nil && len(p.head) == m {
		sx.head = make([]int, m)
		for k, v := range p.head {
			sx.head[k] = v - 1
		}
		sx.bf = p.bfd
		sx.setPos()
		return sx, nil
	}

	sx.head = make([]int, 0, m)
	for k := 0; k < sx.nv; k++ {
		if sx.stat[k] == Basic {
			sx.head = append(sx.head, k)
		}
	}
	if len(sx.head) != m {
		return nil, ErrBadBasis
	}
	sx.setPos()
	if err := sx.factorize(); err != nil {
		return nil, err
	}
	return sx, nil
}

func (sx *spx) setPos() {
	for k := range sx.pos {
		sx.pos[k] = -1
	}
	for slot, k := range sx.head {
		sx.pos[k] = slot
	}
}

// col returns column k of [I | -R*A*S].
func (sx *spx) col(k int) spvec {
	if k < sx.m {
		return spvec{ind: []int{k}, val: []float64{1}}
	}
	return sx.ncol[k-sx.m]
}

func (sx *spx) factorize() error {
	cols := make([]spvec, sx.m)
	for slot, k := range sx.head {
		cols[slot] = sx.col(k)
	}
	bf, err := newBFD(&sx.p.bfcp, sx.m, cols)
	if err != nil {
		return err
	}
	sx.bf = bf
	return nil
}

// nbValue is the working value of a non-basic variable.
func (sx *spx) nbValue(k int) float64 {
	switch sx.stat[k] {
	case NonBasicLower, NonBasicFixed:
		return sx.l[k]
	case NonBasicUpper:
		return sx.u[k]
	}
	return 0
}

func (sx *spx) value(k int) float64 {
	if sx.stat[k] == Basic {
		return sx.beta[sx.pos[k]]
	}
	return sx.nbValue(k)
}

// computeBeta recomputes the basic values from the non-basic ones.
func (sx *spx) computeBeta() {
	r := sx.beta
	for i := range r {
		r[i] = 0
	}
	for k := 0; k < sx.nv; k++ {
		if sx.stat[k] == Basic {
			continue
		}
		x := sx.nbValue(k)
		if x == 0 {
			continue
		}
		c := sx.col(k)
		for t, i := range c.ind {
			r[i] -= c.val[t] * x
		}
	}
	sx.bf.ftran(r)
}

// computePi returns the simplex multipliers for the given costs.
func (sx *spx) computePi(cost []float64) []float64 {
	pi := make([]float64, sx.m)
	for slot, k := range sx.head {
		pi[slot] = cost[k]
	}
	sx.bf.btran(pi)
	return pi
}

func (sx *spx) reducedCost(k int, cost, pi []float64) float64 {
	c := sx.col(k)
	d := cost[k]
	for t, i := range c.ind {
		d -= pi[i] * c.val[t]
	}
	return d
}

// ftranCol returns B^-1 times column k.
func (sx *spx) ftranCol(k int) []float64 {
	alpha := make([]float64, sx.m)
	c := sx.col(k)
	for t, i := range c.ind {
		alpha[i] = c.val[t]
	}
	sx.bf.ftran(alpha)
	return alpha
}

// pivotRow returns row p of the simplex table B^-1 [I | -R*A*S] for the
// non-basic variables; entries of basic variables are zero.
func (sx *spx) pivotRow(p int) []float64 {
	rho := make([]float64, sx.m)
	rho[p] = 1
	sx.bf.btran(rho)
	row := make([]float64, sx.nv)
	for i, ri := range rho {
		if ri == 0 {
			continue
		}
		row[i] = ri
		a := sx.arow[i]
		for t, j := range a.ind {
			row[sx.m+j] -= ri * a.val[t]
		}
	}
	for k := range row {
		if sx.stat[k] == Basic {
			row[k] = 0
		}
	}
	return row
}

// changeBasis makes q basic in slot p. The caller sets the new status of
// the leaving variable.
func (sx *spx) changeBasis(p, q int, alpha []float64) error {
	leave := sx.head[p]
	sx.head[p] = q
	sx.pos[q] = p
	sx.pos[leave] = -1
	sx.stat[q] = Basic

	if err := sx.bf.update(p, alpha); err != nil {
		if err := sx.factorize(); err != nil {
			return err
		}
		sx.refactor = true
	}
	return nil
}

// leaveStat returns the status of a variable leaving the basis at its
// lower (atLower) or upper bound.
func (sx *spx) leaveStat(k int, atLower bool) VarStatus {
	switch {
	case sx.typ[k] == Fixed:
		return NonBasicFixed
	case sx.typ[k] == Free:
		return NonBasicFree
	case atLower:
		return NonBasicLower
	default:
		return NonBasicUpper
	}
}

func (sx *spx) tolBnd(b float64) float64 {
	return sx.parm.TolBnd * (1 + math.Abs(b))
}

// infeasibility returns the sum of bound violations of the basic variables.
func (sx *spx) infeasibility() float64 {
	sum := 0.0
	for slot, k := range sx.head {
		b := sx.beta[slot]
		switch {
		case b < sx.l[k]-sx.tolBnd(sx.l[k]):
			sum += sx.l[k] - b
		case b > sx.u[k]+sx.tolBnd(sx.u[k]):
			sum += b - sx.u[k]
		}
	}
	return sum
}

// objective returns the objective value of the current point in the
// problem's own sense.
func (sx *spx) objective() float64 {
	x := make([]float64, sx.n)
	c := make([]float64, sx.n)
	for j := 0; j < sx.n; j++ {
		k := sx.m + j
		x[j] = sx.value(k)
		c[j] = sx.coef[k]
	}
	return sx.c0 + sx.sign*floats.Dot(c, x)
}

// checkLimits returns a non-nil error when the run must stop.
func (sx *spx) checkLimits() error {
	if err := sx.ctx.Err(); err != nil {
		return err
	}
	if sx.it >= sx.parm.ItLim {
		sx.msg(MsgOn, "ITERATION LIMIT EXCEEDED; SEARCH TERMINATED")
		return ErrIterLimit
	}
	if sx.elapsed() >= sx.parm.TmLim {
		sx.msg(MsgOn, "TIME LIMIT EXCEEDED; SEARCH TERMINATED")
		return ErrTimeLimit
	}
	return nil
}

func (sx *spx) elapsed() int {
	return int(time.Since(sx.start) / time.Millisecond)
}

func (sx *spx) msg(lev MsgLevel, format string, args ...interface{}) {
	if sx.p.termOut {
		sx.p.msgf(sx.parm.MsgLev, lev, format, args...)
	}
}

// progress writes a progress line every OutFrq iterations.
func (sx *spx) progress(force bool) {
	if !force && (sx.it-sx.lastOut < sx.parm.OutFrq || sx.elapsed() < sx.parm.OutDly) {
		return
	}
	sx.lastOut = sx.it
	mark := ' '
	if sx.phase == 2 {
		mark = '*'
	}
	sx.msg(MsgOn, "%c%6d: obj = %17.9e inf = %11.3e (%d)",
		mark, sx.it, sx.objective(), sx.infeasibility(), sx.nfree())
}

// nfree counts non-basic free variables.
func (sx *spx) nfree() int {
	cnt := 0
	for k := 0; k < sx.nv; k++ {
		if sx.stat[k] == NonBasicFree {
			cnt++
		}
	}
	return cnt
}

// store writes statuses, basis, factorization and the unscaled basic
// solution back to the problem.
func (sx *spx) store() {
	p := sx.p
	pi := sx.computePi(sx.coef)

	p.head = make([]int, sx.m)
	for slot, k := range sx.head {
		p.head[slot] = k + 1
	}
	p.bfd = sx.bf
	p.valid = true

	for k := 0; k < sx.nv; k++ {
		x := sx.value(k) / sx.sigma[k]
		d := 0.0
		if sx.stat[k] != Basic {
			d = sx.sign * sx.reducedCost(k, sx.coef, pi) * sx.sigma[k]
		}
		bind := 0
		if sx.pos[k] >= 0 {
			bind = sx.pos[k] + 1
		}
		if k < sx.m {
			r := p.rows[k]
			r.stat, r.prim, r.dual, r.bind = sx.stat[k], x, d, bind
		} else {
			c := p.cols[k-sx.m]
			c.stat, c.prim, c.dual, c.bind = sx.stat[k], x, d, bind
		}
	}
	obj := p.c0
	for _, c := range p.cols {
		obj += c.coef * c.prim
	}
	p.objVal = obj
	p.pbsStat, p.dbsStat = sx.pbs, sx.dbs
	p.someRay = 0
	if sx.ray >= 0 {
		p.someRay = sx.ray + 1
	}
}
