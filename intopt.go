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
	"strings"
	"time"
)

// Intopt solves the problem as a mixed integer program with LP based
// branch-and-cut. Without presolve the current basic solution must be an
// optimal solution of the LP relaxation, otherwise ErrRoot is returned.
// A nil parm uses DefaultIocp.
//
// A nil error means the search completed; MIPStatus tells whether an
// integer optimum was found.
func (p *Problem) Intopt(parm *Iocp) error {
	return p.IntoptContext(context.Background(), parm)
}

// IntoptContext is like Intopt and stops the search when ctx is done,
// keeping the best solution found so far.
func (p *Problem) IntoptContext(ctx context.Context, parm *Iocp) (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if parm == nil {
		parm = DefaultIocp()
	}
	if err := parm.validate(); err != nil {
		return err
	}
	defer recoverSolve(p.logger, &err)

	return p.intopt(ctx, parm)
}

func (p *Problem) intopt(ctx context.Context, parm *Iocp) error {
	p.mipStat, p.mipObj = Undefined, 0
	for _, r := range p.rows {
		r.mipx = 0
	}
	for _, c := range p.cols {
		c.mipx = 0
		if c.kind != Integer {
			continue
		}
		if (!isInf(c.lb) && c.lb != math.Floor(c.lb)) || (!isInf(c.ub) && c.ub != math.Floor(c.ub)) {
			if p.termOut {
				p.msgf(parm.MsgLev, MsgErr, "intopt: integer column %d has non-integer bound", c.j)
			}
			return ErrBound
		}
	}
	for _, r := range p.rows {
		if r.typ == Double && r.lb >= r.ub {
			return ErrBound
		}
	}

	if parm.Presolve {
		return p.presolveMIP(ctx, parm)
	}
	if p.status() != Optimal {
		if p.termOut {
			p.msgf(parm.MsgLev, MsgErr, "intopt: optimal basis to initial LP relaxation not provided")
		}
		return ErrRoot
	}
	if p.termOut {
		p.msgf(parm.MsgLev, MsgAll, "intopt: %d rows, %d columns (%d integer, %d binary), %d non-zeros",
			p.m(), p.n(), p.numInt(), p.numBin(), p.nnz)
	}
	return newIOS(ctx, p, parm).solve()
}

// clone returns a copy of p sharing its logger, without names.
func (p *Problem) clone() *Problem {
	q := &Problem{logger: p.logger, termOut: p.termOut}
	p.copyTo(q, false)
	return q
}

// storeMIP installs x as the MIP solution of p.
func (p *Problem) storeMIP(x []float64, stat SolStatus) {
	obj := p.c0
	for j, c := range p.cols {
		c.mipx = x[j]
		obj += c.coef * x[j]
	}
	for _, r := range p.rows {
		r.mipx = rowActivity(r, x)
	}
	p.mipObj = obj
	p.mipStat = stat
}

// ios is the state of a branch-and-cut search. The LP relaxations are
// solved on wp, a copy of p whose column bounds are set per node and to
// which cuts are appended.
type ios struct {
	p, wp *Problem
	parm  *Iocp
	ctx   context.Context
	smcp  Smcp
	sign  float64

	m0, n  int
	isInt  []bool
	rootLb []float64
	rootUb []float64

	active   []*node
	curr     *node
	selected *node
	nextID   int
	brSel    int
	brDown   bool

	inc    []float64
	incObj float64
	hasInc bool

	rootBound float64
	rootInf   float64
	pcDn      []float64
	pcUp      []float64
	pcDnN     []int
	pcUpN     []int
	ncuts     int

	start   time.Time
	lastOut time.Time
	cb      func(*Tree)
	tree    Tree
}

func newIOS(ctx context.Context, p *Problem, parm *Iocp) *ios {
	d := &ios{
		p:      p,
		wp:     p.clone(),
		parm:   parm,
		ctx:    ctx,
		smcp:   *DefaultSmcp(),
		sign:   1,
		m0:     p.m(),
		n:      p.n(),
		isInt:  make([]bool, p.n()),
		rootLb: make([]float64, p.n()),
		rootUb: make([]float64, p.n()),
		pcDn:   make([]float64, p.n()),
		pcUp:   make([]float64, p.n()),
		pcDnN:  make([]int, p.n()),
		pcUpN:  make([]int, p.n()),
		start:  time.Now(),
	}
	if p.dir == Maximize {
		d.sign = -1
	}
	d.smcp.Meth = DualPrimal
	d.smcp.MsgLev = MsgErr
	if parm.MsgLev == MsgDbg {
		d.smcp.MsgLev = MsgAll
	}
	d.lastOut = d.start
	d.tree.ios = d
	for j, c := range p.cols {
		d.isInt[j] = c.kind == Integer
		d.rootLb[j], d.rootUb[j] = c.lb, c.ub
	}
	switch {
	case parm.Callback != nil:
		d.cb = parm.Callback
	case parm.CbFunc:
		d.cb = logCallback
	}
	return d
}

func (d *ios) newNode(parent *node) *node {
	d.nextID++
	nd := &node{id: d.nextID, brCol: -1, bound: math.Inf(-1)}
	if parent == nil {
		nd.lb = append([]float64(nil), d.rootLb...)
		nd.ub = append([]float64(nil), d.rootUb...)
	} else {
		nd.level = parent.level + 1
		nd.lb = append([]float64(nil), parent.lb...)
		nd.ub = append([]float64(nil), parent.ub...)
		nd.bound = parent.bound
	}
	if d.parm.CbSize > 0 {
		nd.data = make([]byte, d.parm.CbSize)
	}
	return nd
}

func (d *ios) callback(r Reason) {
	if d.cb == nil {
		return
	}
	d.tree.reason = r
	d.cb(&d.tree)
	d.tree.reason = 0
}

func (d *ios) msg(lev MsgLevel, format string, args ...interface{}) {
	if d.p.termOut {
		d.p.msgf(d.parm.MsgLev, lev, format, args...)
	}
}

func (d *ios) solve() error {
	root := d.newNode(nil)
	root.rowStat = make([]VarStatus, d.wp.m())
	root.colStat = make([]VarStatus, d.n)
	for i, r := range d.wp.rows {
		root.rowStat[i] = r.stat
	}
	for j, c := range d.wp.cols {
		root.colStat[j] = c.stat
	}
	d.curr = root

	err := d.loop()
	d.progress(true)
	d.finish(err)
	return err
}

func (d *ios) loop() error {
	for {
		if d.curr == nil {
			if len(d.active) == 0 {
				return nil
			}
			d.curr = d.selectNode()
		}
		if err := d.checkLimits(); err != nil {
			return err
		}
		d.progress(false)

		next, err := d.process(d.curr)
		if err != nil {
			return err
		}
		d.curr = next

		if d.hasInc && d.parm.MIPGap > 0 && d.gap() <= d.parm.MIPGap {
			d.msg(MsgAll, "RELATIVE MIP GAP TOLERANCE REACHED; SEARCH TERMINATED")
			return ErrMIPGap
		}
	}
}

func (d *ios) checkLimits() error {
	if err := d.ctx.Err(); err != nil {
		return err
	}
	if d.elapsed() >= d.parm.TmLim {
		d.msg(MsgAll, "TIME LIMIT EXCEEDED; SEARCH TERMINATED")
		return ErrTimeLimit
	}
	return nil
}

func (d *ios) elapsed() int {
	return int(time.Since(d.start) / time.Millisecond)
}

// apply sets the bounds and the warm start basis of nd on the working
// problem.
func (d *ios) apply(nd *node) {
	wp := d.wp
	for j, c := range wp.cols {
		wp.setColBounds(c, boundsOf(nd.lb[j], nd.ub[j]), nd.lb[j], nd.ub[j])
		st := nd.colStat[j]
		if st != Basic {
			st = nonBasicStat(c.typ, st)
		}
		c.stat = st
	}
	for i, r := range wp.rows {
		st := Basic
		if i < len(nd.rowStat) {
			st = nd.rowStat[i]
		}
		if st != Basic {
			st = nonBasicStat(r.typ, st)
		}
		r.stat = st
	}
	wp.invalidateBasis()
}

// solveLP solves the LP relaxation of the working problem from its
// current basis.
func (d *ios) solveLP() error {
	parm := d.smcp
	parm.TmLim = d.parm.TmLim - d.elapsed()
	if parm.TmLim <= 0 {
		return ErrTimeLimit
	}
	err := d.wp.runSimplex(d.ctx, &parm)
	switch err {
	case ErrSingular, ErrCond, ErrFail, ErrBadBasis:
		d.msg(MsgDbg, "node LP failed (%v), restarting from the standard basis", err)
		d.wp.stdBasis()
		parm.Meth = Primal
		err = d.wp.runSimplex(d.ctx, &parm)
	}
	switch err {
	case nil, ErrTimeLimit:
		return err
	case ErrSingular, ErrCond, ErrFail, ErrBadBasis, ErrIterLimit:
		d.msg(MsgErr, "intopt: unable to solve LP relaxation: %v", err)
		return ErrFail
	}
	return err
}

// lpObj is the objective of the working LP in minimization sense.
func (d *ios) lpObj() float64 {
	return d.sign * d.wp.objVal
}

// dominated reports whether a node with local bound z cannot improve the
// incumbent.
func (d *ios) dominated(z float64) bool {
	if !d.hasInc {
		return false
	}
	inc := d.sign * d.incObj
	return !(z < inc-d.parm.TolObj*(1+math.Abs(inc)))
}

func (d *ios) fractional(j int) bool {
	if !d.isInt[j] {
		return false
	}
	return !isIntegral(d.wp.cols[j].prim, d.parm.TolInt)
}

// process solves the LP relaxation of nd and either prunes it or branches.
// It returns the child to continue diving with, if any.
func (d *ios) process(nd *node) (*node, error) {
	d.apply(nd)
	if d.parm.PPTech == PPAll || (d.parm.PPTech == PPRoot && nd.level == 0) {
		if !d.propagate(nd) {
			d.msg(MsgDbg, "node %d: infeasible after bound propagation", nd.id)
			return nil, nil
		}
	}
	d.callback(ReasonPrepro)

	var z float64
	for round := 0; ; round++ {
		if err := d.solveLP(); err != nil {
			return nil, err
		}
		switch d.wp.status() {
		case Optimal:
		case NoFeasible:
			d.msg(MsgDbg, "node %d: LP relaxation has no feasible solution", nd.id)
			return nil, nil
		default:
			if nd.level == 0 {
				return nil, ErrNoDualFeasible
			}
			return nil, ErrFail
		}
		z = d.lpObj()
		if round == 0 {
			d.updatePseudocost(nd, z)
		}
		nd.bound = z
		if d.dominated(z) {
			return nil, nil
		}

		before := d.wp.m()
		d.callback(ReasonRowGen)
		if nd.level == 0 && round < maxCutRounds {
			d.genCuts()
			d.callback(ReasonCutGen)
		}
		if d.wp.m() == before {
			break
		}
	}

	var cand []int
	sumInf := 0.0
	for j := 0; j < d.n; j++ {
		if d.fractional(j) {
			cand = append(cand, j)
			f := frac(d.wp.cols[j].prim)
			sumInf += math.Min(f, 1-f)
		}
	}
	if nd.level == 0 {
		d.rootBound, d.rootInf = z, sumInf
		d.msg(MsgAll, "root LP relaxation: obj = %.9e, %d fractional, %d cuts", d.sign*z, len(cand), d.ncuts)
	}
	if len(cand) == 0 {
		if d.offer(d.lpValues(), "LP", false) {
			d.callback(ReasonBingo)
		}
		return nil, nil
	}

	d.callback(ReasonHeur)
	if nd.level == 0 && d.parm.FPHeur && !d.hasInc {
		d.feasPump()
	}
	if d.dominated(z) {
		return nil, nil
	}

	j, down := d.chooseBranch(cand)
	return d.branch(nd, j, down, sumInf), nil
}

func (d *ios) lpValues() []float64 {
	x := make([]float64, d.n)
	for j, c := range d.wp.cols {
		x[j] = c.prim
	}
	return x
}

// branch creates the two children of nd splitting on column j and returns
// the one to dive into.
func (d *ios) branch(nd *node, j int, down bool, sumInf float64) *node {
	x := d.wp.cols[j].prim
	f := frac(x)
	rowStat := make([]VarStatus, d.wp.m())
	for i, r := range d.wp.rows {
		rowStat[i] = r.stat
	}
	colStat := make([]VarStatus, d.n)
	for k, c := range d.wp.cols {
		colStat[k] = c.stat
	}

	dn := d.newNode(nd)
	dn.ub[j] = math.Floor(x)
	dn.brCol, dn.brDown, dn.brFrac = j, true, f
	up := d.newNode(nd)
	up.lb[j] = math.Ceil(x)
	up.brCol, up.brDown, up.brFrac = j, false, f
	for _, c := range []*node{dn, up} {
		c.rowStat, c.colStat = rowStat, colStat
		c.est = nd.bound
		if d.hasInc && d.rootInf > 0 {
			c.est += (d.sign*d.incObj - d.rootBound) / d.rootInf * sumInf
		}
	}
	d.msg(MsgDbg, "node %d: branch on column %d (%g), down first: %t", nd.id, j+1, x, down)

	first, second := dn, up
	if !down {
		first, second = up, dn
	}
	if d.parm.BtTech == BacktrackBFS {
		d.active = append(d.active, first, second)
		return nil
	}
	d.active = append(d.active, second)
	return first
}

// selectNode removes the next node to process from the active list.
func (d *ios) selectNode() *node {
	d.selected = nil
	if len(d.active) > 1 {
		d.callback(ReasonSelect)
	}
	k := -1
	if d.selected != nil {
		for i, nd := range d.active {
			if nd == d.selected {
				k = i
			}
		}
	}
	if k < 0 {
		k = d.backtrack()
	}
	nd := d.active[k]
	d.active = append(d.active[:k], d.active[k+1:]...)
	return nd
}

func (d *ios) backtrack() int {
	best := func(key func(nd *node) float64) int {
		k := 0
		for i, nd := range d.active {
			a, b := key(nd), key(d.active[k])
			if a < b || (a == b && nd.level > d.active[k].level) {
				k = i
			}
		}
		return k
	}
	switch d.parm.BtTech {
	case BacktrackBFS:
		return 0
	case BacktrackBLB:
		return best(func(nd *node) float64 { return nd.bound })
	case BacktrackBPH:
		if d.hasInc {
			return best(func(nd *node) float64 { return nd.est })
		}
	}
	return len(d.active) - 1
}

// bestBound is the smallest local bound over the unexplored nodes, in
// minimization sense.
func (d *ios) bestBound() float64 {
	bb := math.Inf(1)
	if d.curr != nil {
		bb = d.curr.bound
	}
	for _, nd := range d.active {
		bb = math.Min(bb, nd.bound)
	}
	if math.IsInf(bb, 1) && d.hasInc {
		return d.sign * d.incObj
	}
	return bb
}

// gap is the relative gap between the incumbent and the best bound.
func (d *ios) gap() float64 {
	if !d.hasInc {
		return math.Inf(1)
	}
	inc := d.sign * d.incObj
	bb := d.bestBound()
	if math.IsInf(bb, -1) {
		return math.Inf(1)
	}
	return math.Abs(inc-bb) / (math.Abs(inc) + epsilon)
}

// offer checks x against bounds, integrality and, with checkRows, the
// rows of the problem, and installs it as the incumbent if it is better.
func (d *ios) offer(x []float64, source string, checkRows bool) bool {
	const tol = 1e-6
	y := make([]float64, d.n)
	for j, v := range x {
		if !isFinite(v) {
			return false
		}
		if d.isInt[j] {
			if !isIntegral(v, d.parm.TolInt) {
				return false
			}
			v = math.Round(v)
		}
		if v < d.rootLb[j]-tol*(1+math.Abs(d.rootLb[j])) || v > d.rootUb[j]+tol*(1+math.Abs(d.rootUb[j])) {
			return false
		}
		y[j] = v
	}
	if checkRows {
		for _, r := range d.p.rows {
			v := rowActivity(r, y)
			if v < r.lb-tol*(1+math.Abs(r.lb)) || v > r.ub+tol*(1+math.Abs(r.ub)) {
				return false
			}
		}
	}
	obj := d.p.c0
	for j, c := range d.p.cols {
		obj += c.coef * y[j]
	}
	if d.hasInc && !(d.sign*obj < d.sign*d.incObj) {
		return false
	}
	d.inc, d.incObj, d.hasInc = y, obj, true
	d.msg(MsgOn, "+%6d: >>>>> %17.9e (%s)", d.nextID, obj, source)
	return true
}

func formatObj(v float64) string {
	return fmt.Sprintf("%17.9e", v)
}

func formatGap(g float64) string {
	if g > 9.999 {
		return "huge"
	}
	return fmt.Sprintf("%5.1f%%", 100*g)
}

func (d *ios) progress(force bool) {
	now := time.Now()
	if !force && (now.Sub(d.start) < time.Duration(d.parm.OutDly)*time.Millisecond ||
		now.Sub(d.lastOut) < time.Duration(d.parm.OutFrq)*time.Millisecond) {
		return
	}
	d.lastOut = now
	rel := ">="
	if d.sign < 0 {
		rel = "<="
	}
	inc := "not found yet"
	gap := ""
	if d.hasInc {
		inc = strings.TrimSpace(formatObj(d.incObj))
		if g := d.gap(); !math.IsInf(g, 0) {
			gap = formatGap(g)
		}
	}
	bb := d.bestBound()
	d.msg(MsgOn, "+%6d: mip = %17s %s %17s %6s (%d; %d)", d.nextID, inc, rel,
		strings.TrimSpace(formatObj(d.sign*bb)), gap, len(d.active), d.nextID-len(d.active))
}

// finish installs the incumbent in p.
func (d *ios) finish(err error) {
	switch {
	case d.hasInc && err == nil:
		d.p.storeMIP(d.inc, Optimal)
		d.msg(MsgAll, "INTEGER OPTIMAL SOLUTION FOUND")
	case d.hasInc:
		d.p.storeMIP(d.inc, Feasible)
	case err == nil:
		d.p.mipStat = NoFeasible
		d.msg(MsgAll, "PROBLEM HAS NO INTEGER FEASIBLE SOLUTION")
	default:
		d.p.mipStat = Undefined
	}
}

// propagate tightens the bounds of the integer columns of nd from the rows
// of the working problem. It reports false if nd is infeasible.
func (d *ios) propagate(nd *node) bool {
	const tol = 1e-6
	for pass := 0; pass < 5; pass++ {
		changed := false
		for _, r := range d.wp.rows {
			if r.typ == Free {
				continue
			}
			var minSum, maxSum float64
			minInf, maxInf := 0, 0
			for e := r.ptr; e != nil; e = e.rnext {
				j := e.col.j - 1
				lo, hi := nd.lb[j], nd.ub[j]
				if e.val < 0 {
					lo, hi = hi, lo
				}
				if isInf(lo) {
					minInf++
				} else {
					minSum += e.val * lo
				}
				if isInf(hi) {
					maxInf++
				} else {
					maxSum += e.val * hi
				}
			}
			if minInf == 0 && minSum > r.ub+tol*(1+math.Abs(r.ub)) {
				return false
			}
			if maxInf == 0 && maxSum < r.lb-tol*(1+math.Abs(r.lb)) {
				return false
			}
			for e := r.ptr; e != nil; e = e.rnext {
				j := e.col.j - 1
				if !d.isInt[j] {
					continue
				}
				lo, hi := nd.lb[j], nd.ub[j]
				if e.val < 0 {
					lo, hi = hi, lo
				}
				// activity of the rest of the row
				restMin, okMin := rest(minSum, minInf, e.val, lo)
				restMax, okMax := rest(maxSum, maxInf, e.val, hi)
				newLb, newUb := nd.lb[j], nd.ub[j]
				if okMin && !isInf(r.ub) {
					v := (r.ub - restMin) / e.val
					if e.val > 0 {
						newUb = math.Min(newUb, math.Floor(v+tol))
					} else {
						newLb = math.Max(newLb, math.Ceil(v-tol))
					}
				}
				if okMax && !isInf(r.lb) {
					v := (r.lb - restMax) / e.val
					if e.val > 0 {
						newLb = math.Max(newLb, math.Ceil(v-tol))
					} else {
						newUb = math.Min(newUb, math.Floor(v+tol))
					}
				}
				if newLb > newUb {
					return false
				}
				if newLb != nd.lb[j] || newUb != nd.ub[j] {
					nd.lb[j], nd.ub[j] = newLb, newUb
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	for j, c := range d.wp.cols {
		if c.lb != nd.lb[j] || c.ub != nd.ub[j] {
			d.wp.setColBounds(c, boundsOf(nd.lb[j], nd.ub[j]), nd.lb[j], nd.ub[j])
		}
	}
	return true
}

// rest returns the activity bound of a row without the term a*v, given the
// finite part sum and the number ninf of infinite terms.
func rest(sum float64, ninf int, a, v float64) (float64, bool) {
	switch {
	case ninf == 0:
		return sum - a*v, true
	case ninf == 1 && isInf(v):
		return sum, true
	}
	return 0, false
}
