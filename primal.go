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

import "math"

// blandAfter is the number of consecutive degenerate pivots after which
// Bland's rule is used, when enabled.
const blandAfter = 50

// primal runs the two-phase primal simplex from the current basis.
func (sx *spx) primal() error {
	sx.computeBeta()
	sx.phase = 0
	failures := 0

	for {
		if sx.refactor {
			sx.computeBeta()
			sx.refactor = false
		}

		infeasible := sx.infeasibility() > 0
		switch {
		case infeasible && sx.phase != 1:
			sx.phase = 1
			sx.resetWeights()
		case !infeasible && sx.phase != 2:
			if sx.phase == 1 {
				sx.msg(MsgAll, "feasible basis found after %d iterations", sx.it)
			}
			sx.phase = 2
			sx.resetWeights()
		}
		sx.progress(false)

		if err := sx.checkLimits(); err != nil {
			sx.primalStatus()
			return err
		}

		cost := sx.coef
		if sx.phase == 1 {
			cost = sx.phase1Cost()
		}
		pi := sx.computePi(cost)
		q, dir := sx.choosePrimalEntering(cost, pi)
		if q < 0 {
			sx.progress(true)
			if sx.phase == 1 {
				sx.msg(MsgAll, "PROBLEM HAS NO PRIMAL FEASIBLE SOLUTION")
				sx.pbs, sx.dbs = NoFeasible, Infeasible
			} else {
				sx.msg(MsgAll, "OPTIMAL LP SOLUTION FOUND")
				sx.pbs, sx.dbs = Feasible, Feasible
			}
			return nil
		}

		alpha := sx.ftranCol(q)
		p, theta := sx.primalRatioTest(alpha, dir)

		flip := math.Inf(+1)
		if sx.typ[q] == Double {
			flip = sx.u[q] - sx.l[q]
		}
		if p < 0 && isInf(flip) {
			if sx.phase == 1 {
				// the phase 1 objective is bounded; this is round-off
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
			sx.progress(true)
			sx.msg(MsgAll, "PROBLEM HAS UNBOUNDED SOLUTION")
			sx.pbs, sx.dbs = Feasible, NoFeasible
			sx.ray = q
			return nil
		}

		sx.it++
		if p < 0 || flip <= theta {
			// the entering variable jumps to its opposite bound
			for i := range sx.beta {
				sx.beta[i] -= alpha[i] * dir * flip
			}
			if sx.stat[q] == NonBasicLower {
				sx.stat[q] = NonBasicUpper
			} else {
				sx.stat[q] = NonBasicLower
			}
			sx.degen = 0
			continue
		}

		if theta <= 1e-12 {
			sx.degen++
			if sx.parm.AntiCycle == CycleBland && sx.degen >= blandAfter && !sx.bland {
				sx.msg(MsgDbg, "switching to Bland's rule after %d degenerate pivots", sx.degen)
				sx.bland = true
			}
		} else {
			sx.degen = 0
			sx.bland = false
		}

		if sx.parm.Pricing == PricingPSE {
			sx.updateDevex(p, q, alpha[p])
		}

		leave := sx.head[p]
		xq := sx.nbValue(q) + dir*theta
		atLower := -alpha[p]*dir < 0
		if b := sx.beta[p]; sx.phase == 1 {
			// an infeasible variable leaves at the bound it violated
			switch {
			case b < sx.l[leave]-sx.tolBnd(sx.l[leave]):
				atLower = true
			case b > sx.u[leave]+sx.tolBnd(sx.u[leave]):
				atLower = false
			}
		}
		for i := range sx.beta {
			sx.beta[i] -= alpha[i] * dir * theta
		}
		sx.stat[leave] = sx.leaveStat(leave, atLower)
		if err := sx.changeBasis(p, q, alpha); err != nil {
			sx.primalStatus()
			return err
		}
		sx.beta[p] = xq
	}
}

// primalStatus sets the statuses of a primal run stopped early.
func (sx *spx) primalStatus() {
	sx.pbs = Infeasible
	if sx.phase == 2 {
		sx.pbs = Feasible
	}
	sx.dbs = Infeasible
}

func (sx *spx) resetWeights() {
	for k := range sx.weight {
		sx.weight[k] = 1
	}
	sx.degen = 0
	sx.bland = false
}

// phase1Cost penalizes basic variables outside their bounds.
func (sx *spx) phase1Cost() []float64 {
	cost := make([]float64, sx.nv)
	for slot, k := range sx.head {
		b := sx.beta[slot]
		switch {
		case b < sx.l[k]-sx.tolBnd(sx.l[k]):
			cost[k] = -1
		case b > sx.u[k]+sx.tolBnd(sx.u[k]):
			cost[k] = +1
		}
	}
	return cost
}

// choosePrimalEntering picks the entering variable and the direction it
// moves in, or -1 if the current basis is optimal for cost.
func (sx *spx) choosePrimalEntering(cost, pi []float64) (int, float64) {
	best, bestDir, bestScore := -1, 0.0, 0.0
	for k := 0; k < sx.nv; k++ {
		var dir float64
		switch sx.stat[k] {
		case Basic, NonBasicFixed:
			continue
		}
		d := sx.reducedCost(k, cost, pi)
		eps := sx.parm.TolDj * (1 + math.Abs(cost[k]))
		switch sx.stat[k] {
		case NonBasicLower:
			if d < -eps {
				dir = 1
			}
		case NonBasicUpper:
			if d > eps {
				dir = -1
			}
		case NonBasicFree:
			if d < -eps {
				dir = 1
			} else if d > eps {
				dir = -1
			}
		}
		if dir == 0 {
			continue
		}
		if sx.bland {
			return k, dir
		}
		score := d * d
		if sx.parm.Pricing == PricingPSE {
			score /= sx.weight[k]
		}
		if score > bestScore {
			best, bestDir, bestScore = k, dir, score
		}
	}
	return best, bestDir
}

// primalRatioTest returns the basis slot leaving when the entering variable
// moves by theta in direction dir, or -1 if no basic variable blocks it.
func (sx *spx) primalRatioTest(alpha []float64, dir float64) (int, float64) {
	// bounds of basic variables; in phase 1 an infeasible variable may only
	// move up to the bound it violates
	bounds := func(slot int) (float64, float64) {
		k := sx.head[slot]
		lo, hi, b := sx.l[k], sx.u[k], sx.beta[slot]
		if sx.phase == 1 {
			switch {
			case b < lo-sx.tolBnd(lo):
				return math.Inf(-1), lo
			case b > hi+sx.tolBnd(hi):
				return hi, math.Inf(+1)
			}
		}
		return lo, hi
	}
	step := func(slot int, relax bool) float64 {
		delta := -alpha[slot] * dir
		lo, hi := bounds(slot)
		b := sx.beta[slot]
		switch {
		case delta < 0 && !isInf(lo):
			if relax {
				lo -= sx.tolBnd(lo)
			}
			return math.Max(b-lo, 0) / -delta
		case delta > 0 && !isInf(hi):
			if relax {
				hi += sx.tolBnd(hi)
			}
			return math.Max(hi-b, 0) / delta
		}
		return math.Inf(+1)
	}

	tol := sx.parm.TolPiv
	if sx.parm.RTest == RatioStd || sx.bland {
		best, bestT := -1, math.Inf(+1)
		for slot := range alpha {
			if math.Abs(alpha[slot]) <= tol {
				continue
			}
			t := step(slot, false)
			if t < bestT || (t == bestT && best >= 0 && sx.bland && sx.head[slot] < sx.head[best]) ||
				(t == bestT && best >= 0 && !sx.bland && math.Abs(alpha[slot]) > math.Abs(alpha[best])) {
				best, bestT = slot, t
			}
		}
		return best, bestT
	}

	// Harris' two-pass test
	tmax := math.Inf(+1)
	for slot := range alpha {
		if math.Abs(alpha[slot]) <= tol {
			continue
		}
		tmax = math.Min(tmax, step(slot, true))
	}
	if isInf(tmax) {
		return -1, tmax
	}
	best, bestAlpha := -1, 0.0
	for slot := range alpha {
		a := math.Abs(alpha[slot])
		if a <= tol {
			continue
		}
		if step(slot, false) <= tmax && a > bestAlpha {
			best, bestAlpha = slot, a
		}
	}
	return best, step(best, false)
}

// updateDevex updates the reference weights for q entering in slot p.
func (sx *spx) updateDevex(p, q int, apq float64) {
	row := sx.pivotRow(p)
	wq := sx.weight[q]
	for k := 0; k < sx.nv; k++ {
		if sx.stat[k] == Basic || k == q || row[k] == 0 {
			continue
		}
		r := row[k] / apq
		sx.weight[k] = math.Max(sx.weight[k], r*r*wq)
	}
	leave := sx.head[p]
	sx.weight[leave] = math.Max(wq/(apq*apq), 1)
	if sx.weight[leave] > 1e6 {
		sx.resetWeights()
	}
}
