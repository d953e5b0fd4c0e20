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

	"github.com/pkg/errors"
)

// errNotDualFeasible reports a basis the dual simplex cannot start from or
// has lost dual feasibility through round-off.
var errNotDualFeasible = errors.New("basis is not dual feasible")

// makeDualFeasible moves double-bounded non-basic variables to the bound
// matching the sign of their reduced cost and reports whether the basis is
// dual feasible afterwards.
func (sx *spx) makeDualFeasible() bool {
	pi := sx.computePi(sx.coef)
	ok := true
	for k := 0; k < sx.nv; k++ {
		st := sx.stat[k]
		if st == Basic || st == NonBasicFixed {
			continue
		}
		d := sx.reducedCost(k, sx.coef, pi)
		eps := sx.parm.TolDj * (1 + math.Abs(sx.coef[k]))
		switch {
		case st == NonBasicLower && d < -eps:
			if sx.typ[k] != Double {
				ok = false
			} else {
				sx.stat[k] = NonBasicUpper
			}
		case st == NonBasicUpper && d > eps:
			if sx.typ[k] != Double {
				ok = false
			} else {
				sx.stat[k] = NonBasicLower
			}
		case st == NonBasicFree && math.Abs(d) > eps:
			ok = false
		}
	}
	return ok
}

// dual runs the dual simplex from a dual feasible basis.
func (sx *spx) dual() error {
	sx.computeBeta()
	sx.phase = 2
	failures := 0

	for {
		if sx.refactor {
			sx.computeBeta()
			sx.refactor = false
		}
		sx.progress(false)
		if err := sx.checkLimits(); err != nil {
			sx.pbs, sx.dbs = Infeasible, Feasible
			return err
		}

		p := sx.chooseDualLeaving()
		if p < 0 {
			if !sx.dualFeasible() {
				return errNotDualFeasible
			}
			sx.progress(true)
			sx.msg(MsgAll, "OPTIMAL LP SOLUTION FOUND")
			sx.pbs, sx.dbs = Feasible, Feasible
			return nil
		}
		leave := sx.head[p]
		b := sx.beta[p]
		below := b < sx.l[leave]
		target := sx.u[leave]
		if below {
			target = sx.l[leave]
		}

		row := sx.pivotRow(p)
		pi := sx.computePi(sx.coef)
		q, step := sx.dualRatioTest(row, pi, below)
		if q < 0 {
			sx.progress(true)
			sx.msg(MsgAll, "PROBLEM HAS NO PRIMAL FEASIBLE SOLUTION")
			sx.pbs, sx.dbs = NoFeasible, Feasible
			return nil
		}

		alpha := sx.ftranCol(q)
		if math.Abs(alpha[p]) <= sx.parm.TolPiv || math.Abs(alpha[p]-row[q]) > 1e-6*(1+math.Abs(row[q])) {
			failures++
			if failures > 3 {
				return ErrFail
			}
			if err := sx.factorize(); err != nil {
				return err
			}
			sx.refactor = true
			continue
		}

		if step <= 1e-12 {
			sx.degen++
			if sx.parm.AntiCycle == CycleBland && sx.degen >= blandAfter {
				sx.bland = true
			}
		} else {
			sx.degen = 0
			sx.bland = false
		}

		sx.it++
		dq := (b - target) / alpha[p]
		xq := sx.nbValue(q) + dq
		for i := range sx.beta {
			sx.beta[i] -= alpha[i] * dq
		}
		sx.stat[leave] = sx.leaveStat(leave, below)
		if err := sx.changeBasis(p, q, alpha); err != nil {
			sx.pbs, sx.dbs = Infeasible, Feasible
			return err
		}
		sx.beta[p] = xq

		obj := sx.objective()
		if sx.sign > 0 && obj > sx.parm.ObjUL {
			sx.msg(MsgOn, "OBJECTIVE UPPER LIMIT REACHED; SEARCH TERMINATED")
			sx.pbs, sx.dbs = Infeasible, Feasible
			return ErrObjUpperLimit
		}
		if sx.sign < 0 && obj < sx.parm.ObjLL {
			sx.msg(MsgOn, "OBJECTIVE LOWER LIMIT REACHED; SEARCH TERMINATED")
			sx.pbs, sx.dbs = Infeasible, Feasible
			return ErrObjLowerLimit
		}
	}
}

// chooseDualLeaving picks the basic variable with the largest bound
// violation, or -1 if the basis is primal feasible.
func (sx *spx) chooseDualLeaving() int {
	best, bestR := -1, 0.0
	for slot, k := range sx.head {
		b := sx.beta[slot]
		var r float64
		switch {
		case b < sx.l[k]-sx.tolBnd(sx.l[k]):
			r = sx.l[k] - b
		case b > sx.u[k]+sx.tolBnd(sx.u[k]):
			r = b - sx.u[k]
		default:
			continue
		}
		if sx.bland {
			if best < 0 || k < sx.head[best] {
				best = slot
			}
			continue
		}
		if r > bestR {
			best, bestR = slot, r
		}
	}
	return best
}

// dualRatioTest picks the entering variable for the pivot row, keeping the
// reduced costs sign-correct. It returns -1 if no variable qualifies.
func (sx *spx) dualRatioTest(row, pi []float64, below bool) (int, float64) {
	type cand struct {
		k    int
		d, a float64
		eps  float64
	}
	var cands []cand
	tol := sx.parm.TolPiv
	for k := 0; k < sx.nv; k++ {
		st := sx.stat[k]
		a := row[k]
		if st == Basic || st == NonBasicFixed || math.Abs(a) <= tol {
			continue
		}
		// x_B[p] moves by -a per unit increase of x_k
		incr := -a > 0
		ok := false
		switch st {
		case NonBasicLower:
			ok = incr == below
		case NonBasicUpper:
			ok = incr != below
		case NonBasicFree:
			ok = true
		}
		if !ok {
			continue
		}
		d := sx.reducedCost(k, sx.coef, pi)
		switch st {
		case NonBasicLower:
			d = math.Max(d, 0)
		case NonBasicUpper:
			d = math.Max(-d, 0)
		default:
			d = math.Abs(d)
		}
		cands = append(cands, cand{k, d, math.Abs(a), sx.parm.TolDj * (1 + math.Abs(sx.coef[k]))})
	}
	if len(cands) == 0 {
		return -1, 0
	}

	if sx.parm.RTest == RatioStd || sx.bland {
		best := 0
		for t := 1; t < len(cands); t++ {
			c, b := cands[t], cands[best]
			rc, rb := c.d/c.a, b.d/b.a
			if rc < rb || (rc == rb && (sx.bland && c.k < b.k || !sx.bland && c.a > b.a)) {
				best = t
			}
		}
		return cands[best].k, cands[best].d / cands[best].a
	}

	tmax := math.Inf(+1)
	for _, c := range cands {
		tmax = math.Min(tmax, (c.d+c.eps)/c.a)
	}
	best := -1
	for t, c := range cands {
		if c.d/c.a <= tmax && (best < 0 || c.a > cands[best].a) {
			best = t
		}
	}
	return cands[best].k, cands[best].d / cands[best].a
}

// dualFeasible checks the reduced costs of the current basis.
func (sx *spx) dualFeasible() bool {
	pi := sx.computePi(sx.coef)
	for k := 0; k < sx.nv; k++ {
		st := sx.stat[k]
		if st == Basic || st == NonBasicFixed {
			continue
		}
		d := sx.reducedCost(k, sx.coef, pi)
		eps := 10 * sx.parm.TolDj * (1 + math.Abs(sx.coef[k]))
		switch {
		case st == NonBasicLower && d < -eps,
			st == NonBasicUpper && d > eps,
			st == NonBasicFree && math.Abs(d) > eps:
			return false
		}
	}
	return true
}
