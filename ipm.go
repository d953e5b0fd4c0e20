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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Interior solves the LP relaxation with a primal-dual interior-point
// method. The result is stored as the interior-point solution and does not
// touch the basis. A nil parm uses DefaultIptcp.
func (p *Problem) Interior(parm *Iptcp) error {
	return p.InteriorContext(context.Background(), parm)
}

// InteriorContext is like Interior and stops early when ctx is done.
func (p *Problem) InteriorContext(ctx context.Context, parm *Iptcp) (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if parm == nil {
		parm = DefaultIptcp()
	}
	if err := parm.validate(); err != nil {
		return err
	}
	defer recoverSolve(p.logger, &err)

	return p.interior(ctx, parm)
}

// zterm is one standard-form variable in the expression of a column.
type zterm struct {
	k    int
	coef float64
}

// stdForm is the problem min c'z s.t. Az = b, z >= 0 equivalent to the
// original one. Column j of the original problem equals
// shift[j] + sum of coef*z over terms[j].
type stdForm struct {
	m, n  int
	acol  []spvec // columns of A
	b, c  []float64
	shift []float64
	terms [][]zterm
	rowOf []int // original row -> standard row, -1 if free
}

func (sf *stdForm) newVar(cost float64) int {
	sf.acol = append(sf.acol, spvec{})
	sf.c = append(sf.c, cost)
	sf.n++
	return sf.n - 1
}

func (sf *stdForm) newRow(rhs float64) int {
	sf.b = append(sf.b, rhs)
	sf.m++
	return sf.m - 1
}

func (sf *stdForm) add(i, k int, v float64) {
	sf.acol[k].ind = append(sf.acol[k].ind, i)
	sf.acol[k].val = append(sf.acol[k].val, v)
}

func newStdForm(p *Problem, sign float64) *stdForm {
	sf := &stdForm{
		shift: make([]float64, p.n()),
		terms: make([][]zterm, p.n()),
		rowOf: make([]int, p.m()),
	}
	for j, c := range p.cols {
		cost := sign * c.coef
		switch c.typ {
		case Lower:
			sf.shift[j] = c.lb
			sf.terms[j] = []zterm{{sf.newVar(cost), 1}}
		case Upper:
			sf.shift[j] = c.ub
			sf.terms[j] = []zterm{{sf.newVar(-cost), -1}}
		case Double:
			sf.shift[j] = c.lb
			k := sf.newVar(cost)
			sf.terms[j] = []zterm{{k, 1}}
			t := sf.newVar(0)
			i := sf.newRow(c.ub - c.lb)
			sf.add(i, k, 1)
			sf.add(i, t, 1)
		case Free:
			sf.terms[j] = []zterm{{sf.newVar(cost), 1}, {sf.newVar(-cost), -1}}
		case Fixed:
			sf.shift[j] = c.lb
		}
	}

	for ii, r := range p.rows {
		sf.rowOf[ii] = -1
		var rhs float64
		switch r.typ {
		case Free:
			continue
		case Lower, Double, Fixed:
			rhs = r.lb
		case Upper:
			rhs = r.ub
		}
		i := sf.newRow(rhs)
		sf.rowOf[ii] = i
		for e := r.ptr; e != nil; e = e.rnext {
			j := e.col.j - 1
			sf.b[i] -= e.val * sf.shift[j]
			for _, t := range sf.terms[j] {
				sf.add(i, t.k, e.val*t.coef)
			}
		}
		switch r.typ {
		case Lower:
			sf.add(i, sf.newVar(0), -1)
		case Upper:
			sf.add(i, sf.newVar(0), 1)
		case Double:
			s := sf.newVar(0)
			sf.add(i, s, -1)
			t := sf.newVar(0)
			k := sf.newRow(r.ub - r.lb)
			sf.add(k, s, 1)
			sf.add(k, t, 1)
		}
	}
	return sf
}

func (sf *stdForm) mulA(dst, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for k, col := range sf.acol {
		if x[k] == 0 {
			continue
		}
		for t, i := range col.ind {
			dst[i] += col.val[t] * x[k]
		}
	}
}

func (sf *stdForm) mulAT(dst, y []float64) {
	for k, col := range sf.acol {
		v := 0.0
		for t, i := range col.ind {
			v += col.val[t] * y[i]
		}
		dst[k] = v
	}
}

// ipm holds the iterates of the predictor-corrector method.
type ipm struct {
	sf   *stdForm
	parm *Iptcp

	x, y, s []float64
	d       []float64
	chol    mat.Cholesky
	reg     float64
}

// factor forms A*D*A' with D = X/S and factorizes it, raising the
// regularization until the Cholesky factorization succeeds.
func (ip *ipm) factor() bool {
	sf := ip.sf
	for k := range ip.d {
		ip.d[k] = ip.x[k] / ip.s[k]
	}
	mm := mat.NewSymDense(sf.m, nil)
	for k, col := range sf.acol {
		dk := ip.d[k]
		for a, i := range col.ind {
			for b := a; b < len(col.ind); b++ {
				r, c := i, col.ind[b]
				mm.SetSym(r, c, mm.At(r, c)+dk*col.val[a]*col.val[b])
			}
		}
	}
	maxDiag := 0.0
	for i := 0; i < sf.m; i++ {
		maxDiag = math.Max(maxDiag, mm.At(i, i))
	}
	if maxDiag == 0 {
		maxDiag = 1
	}
	for reg := ip.reg; reg <= 1e-4; reg *= 100 {
		m := mat.NewSymDense(sf.m, nil)
		m.CopySym(mm)
		for i := 0; i < sf.m; i++ {
			m.SetSym(i, i, m.At(i, i)+reg*maxDiag)
		}
		if ip.chol.Factorize(m) {
			return true
		}
	}
	return false
}

// direction solves the Newton system for residuals rb, rc and the
// complementarity right-hand side rxs.
func (ip *ipm) direction(rb, rc, rxs []float64) (dx, dy, ds []float64, ok bool) {
	sf := ip.sf
	tmp := make([]float64, sf.n)
	for k := range tmp {
		tmp[k] = rxs[k]/ip.s[k] + ip.d[k]*rc[k]
	}
	rhs := make([]float64, sf.m)
	sf.mulA(rhs, tmp)
	for i := range rhs {
		rhs[i] = -rb[i] - rhs[i]
	}
	var dyv mat.VecDense
	if err := ip.chol.SolveVecTo(&dyv, mat.NewVecDense(sf.m, rhs)); err != nil {
		if _, cond := err.(mat.Condition); !cond {
			return nil, nil, nil, false
		}
	}
	dy = make([]float64, sf.m)
	for i := range dy {
		dy[i] = dyv.AtVec(i)
	}
	ds = make([]float64, sf.n)
	sf.mulAT(ds, dy)
	dx = make([]float64, sf.n)
	for k := range ds {
		ds[k] = -rc[k] - ds[k]
		dx[k] = rxs[k]/ip.s[k] - ip.d[k]*ds[k]
	}
	for _, v := range dx {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, nil, false
		}
	}
	return dx, dy, ds, true
}

// maxStep returns the largest step in (0, 1] keeping v + a*dv >= 0.
func maxStep(v, dv []float64) float64 {
	a := 1.0
	for k := range v {
		if dv[k] < 0 {
			a = math.Min(a, -v[k]/dv[k])
		}
	}
	return a
}

// start computes Mehrotra's initial point.
func (ip *ipm) start() bool {
	sf := ip.sf
	for k := range ip.x {
		ip.x[k], ip.s[k] = 1, 1
	}
	if !ip.factor() {
		return false
	}
	// with D = I: x = A'(AA')^-1 b, y = (AA')^-1 A c, s = c - A'y
	rb := make([]float64, sf.m)
	for i := range rb {
		rb[i] = -sf.b[i]
	}
	zero := make([]float64, sf.n)
	negc := make([]float64, sf.n)
	floats.ScaleTo(negc, -1, sf.c)
	xt, _, _, ok := ip.direction(rb, zero, zero)
	if !ok {
		return false
	}
	_, yt, st, ok := ip.direction(make([]float64, sf.m), negc, zero)
	if !ok {
		return false
	}
	copy(ip.y, yt)

	dx := math.Max(-1.5*floats.Min(xt), 0)
	ds := math.Max(-1.5*floats.Min(st), 0)
	floats.AddConst(dx, xt)
	floats.AddConst(ds, st)
	xs := floats.Dot(xt, st)
	sx, ss := floats.Sum(xt), floats.Sum(st)
	if xs > 0 && sx > 0 && ss > 0 {
		floats.AddConst(0.5*xs/ss, xt)
		floats.AddConst(0.5*xs/sx, st)
	}
	for k := range xt {
		ip.x[k] = math.Max(xt[k], 1e-2)
		ip.s[k] = math.Max(st[k], 1e-2)
	}
	return true
}

func (p *Problem) interior(ctx context.Context, parm *Iptcp) error {
	p.iptStat, p.iptObj = Undefined, 0
	for _, r := range p.rows {
		r.pval, r.dval = 0, 0
	}
	for _, c := range p.cols {
		c.pval, c.dval = 0, 0
	}
	if p.m() == 0 || p.n() == 0 {
		if p.termOut {
			p.msgf(parm.MsgLev, MsgErr, "interior: unable to solve empty problem")
		}
		return ErrFail
	}
	sign := 1.0
	if p.dir == Maximize {
		sign = -1
	}
	sf := newStdForm(p, sign)
	if p.termOut {
		p.msgf(parm.MsgLev, MsgAll, "interior: original LP has %d rows, %d columns, %d non-zeros", p.m(), p.n(), p.nnz)
		p.msgf(parm.MsgLev, MsgAll, "interior: working LP has %d rows, %d columns", sf.m, sf.n)
		p.msgf(parm.MsgLev, MsgAll, "interior: ordering algorithm %d ignored by the dense Cholesky factorization", int(parm.OrdAlg))
	}
	if sf.m == 0 || sf.n == 0 {
		if p.termOut {
			p.msgf(parm.MsgLev, MsgErr, "interior: working LP is empty")
		}
		return ErrFail
	}

	ip := &ipm{
		sf: sf, parm: parm,
		x:   make([]float64, sf.n),
		y:   make([]float64, sf.m),
		s:   make([]float64, sf.n),
		d:   make([]float64, sf.n),
		reg: 1e-12,
	}
	var err error
	if ip.start() {
		err = ip.run(ctx, p)
	} else {
		err = ErrInstability
	}
	switch err {
	case ErrNoFeasible, ErrNoConvergence, ErrInstability:
		if p.noFeasible(ctx) {
			if p.termOut {
				p.msgf(parm.MsgLev, MsgAll, "interior: problem has no primal or dual feasible solution")
			}
			err = ErrNoFeasible
		} else if err == ErrNoFeasible {
			err = ErrNoConvergence
		}
	}
	switch err {
	case nil:
		p.iptStat = Optimal
	case ErrNoFeasible:
		p.iptStat = NoFeasible
		return err
	default:
		return err
	}
	ip.store(p, sign)
	return nil
}

func (ip *ipm) run(ctx context.Context, p *Problem) error {
	sf, parm := ip.sf, ip.parm
	nb, nc := 1+floats.Norm(sf.b, 2), 1+floats.Norm(sf.c, 2)
	rb := make([]float64, sf.m)
	rc := make([]float64, sf.n)
	rxs := make([]float64, sf.n)
	best := math.Inf(1)
	bestIt := 0

	for it := 0; ; it++ {
		// rb = Ax - b, rc = A'y + s - c
		sf.mulA(rb, ip.x)
		floats.Sub(rb, sf.b)
		sf.mulAT(rc, ip.y)
		floats.Add(rc, ip.s)
		floats.Sub(rc, sf.c)

		pobj := floats.Dot(sf.c, ip.x)
		dobj := floats.Dot(sf.b, ip.y)
		rpi := floats.Norm(rb, 2) / nb
		rdi := floats.Norm(rc, 2) / nc
		gap := math.Abs(pobj-dobj) / (1 + math.Abs(pobj))
		if p.termOut {
			p.msgf(parm.MsgLev, MsgOn, "%3d: obj = %17.9e; rpi = %8.1e; rdi = %8.1e; gap = %8.1e", it, pobj, rpi, rdi, gap)
		}
		if rpi < parm.TolFeas && rdi < parm.TolFeas && gap < parm.TolGap {
			if p.termOut {
				p.msgf(parm.MsgLev, MsgAll, "OPTIMAL SOLUTION FOUND")
			}
			return nil
		}

		phi := rpi + rdi + gap
		if phi < best {
			best, bestIt = phi, it
		}
		switch {
		case it > 0 && phi > 1e-5 && phi >= 1e5*best,
			floats.Norm(ip.x, math.Inf(1)) > 1e12 || floats.Norm(ip.y, math.Inf(1)) > 1e12:
			if p.termOut {
				p.msgf(parm.MsgLev, MsgAll, "PROBLEM HAS NO FEASIBLE PRIMAL/DUAL SOLUTION")
			}
			return ErrNoFeasible
		case it-bestIt > 30:
			if p.termOut {
				p.msgf(parm.MsgLev, MsgErr, "NO CONVERGENCE; SEARCH TERMINATED")
			}
			return ErrNoConvergence
		case it >= parm.ItLim:
			if p.termOut {
				p.msgf(parm.MsgLev, MsgErr, "ITERATION LIMIT EXCEEDED; SEARCH TERMINATED")
			}
			return ErrIterLimit
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if !ip.factor() {
			return ErrInstability
		}
		mu := floats.Dot(ip.x, ip.s) / float64(sf.n)

		// predictor
		for k := range rxs {
			rxs[k] = -ip.x[k] * ip.s[k]
		}
		dxa, _, dsa, ok := ip.direction(rb, rc, rxs)
		if !ok {
			return ErrInstability
		}
		ap, ad := maxStep(ip.x, dxa), maxStep(ip.s, dsa)
		muAff := 0.0
		for k := range ip.x {
			muAff += (ip.x[k] + ap*dxa[k]) * (ip.s[k] + ad*dsa[k])
		}
		muAff /= float64(sf.n)
		sigma := math.Pow(muAff/mu, 3)

		// corrector
		for k := range rxs {
			rxs[k] = -ip.x[k]*ip.s[k] - dxa[k]*dsa[k] + sigma*mu
		}
		dx, dy, ds, ok := ip.direction(rb, rc, rxs)
		if !ok {
			return ErrInstability
		}
		ap = math.Min(1, 0.9995*maxStep(ip.x, dx))
		ad = math.Min(1, 0.9995*maxStep(ip.s, ds))
		floats.AddScaled(ip.x, ap, dx)
		floats.AddScaled(ip.y, ad, dy)
		floats.AddScaled(ip.s, ad, ds)
		for k := range ip.x {
			if !(ip.x[k] > 0) || !(ip.s[k] > 0) {
				return ErrInstability
			}
		}
	}
}

// noFeasible tells whether a problem the interior-point method failed on
// has no primal or no dual feasible solution. Diverging iterates only
// suggest it, so the verdict comes from the simplex method on a copy.
func (p *Problem) noFeasible(ctx context.Context) bool {
	q := &Problem{logger: p.logger}
	p.copyTo(q, false)
	q.stdBasis()
	parm := DefaultSmcp()
	parm.MsgLev = MsgOff
	if err := q.runSimplex(ctx, parm); err != nil {
		return false
	}
	return q.pbsStat == NoFeasible || q.dbsStat == NoFeasible
}

// store maps the standard-form solution back to the problem.
func (ip *ipm) store(p *Problem, sign float64) {
	sf := ip.sf
	x := make([]float64, p.n())
	for j, c := range p.cols {
		x[j] = sf.shift[j]
		for _, t := range sf.terms[j] {
			x[j] += t.coef * ip.x[t.k]
		}
		c.pval = x[j]
	}
	lambda := make([]float64, p.m())
	for i, r := range p.rows {
		r.pval = rowActivity(r, x)
		if k := sf.rowOf[i]; k >= 0 {
			lambda[i] = ip.y[k]
		}
		r.dval = sign * lambda[i]
	}
	obj := p.c0
	for j, c := range p.cols {
		d := sign * c.coef
		for e := c.ptr; e != nil; e = e.cnext {
			d -= e.val * lambda[e.row.i-1]
		}
		c.dval = sign * d
		obj += c.coef * x[j]
	}
	p.iptObj = obj
}
