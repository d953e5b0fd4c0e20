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
)

// chooseBranch selects the column to branch upon among the fractional
// columns cand, and whether the down child is processed first.
func (d *ios) chooseBranch(cand []int) (int, bool) {
	d.brSel = -1
	d.callback(ReasonBranch)
	if d.brSel >= 0 {
		return d.brSel, d.brDown
	}

	switch d.parm.BrTech {
	case BranchFirst:
		return d.nearest(cand[0])
	case BranchLast:
		return d.nearest(cand[len(cand)-1])
	case BranchDTH:
		if j, down, ok := d.branchDTH(cand); ok {
			return j, down
		}
	case BranchPCH:
		return d.branchPCH(cand)
	}
	return d.branchMost(cand)
}

// nearest branches on j towards the nearer integer first.
func (d *ios) nearest(j int) (int, bool) {
	return j, frac(d.wp.cols[j].prim) < 0.5
}

func (d *ios) branchMost(cand []int) (int, bool) {
	best, bestScore := cand[0], -1.0
	for _, j := range cand {
		f := frac(d.wp.cols[j].prim)
		if s := math.Min(f, 1-f); s > bestScore {
			best, bestScore = j, s
		}
	}
	return d.nearest(best)
}

// penalties estimates the objective degradation of the down and up
// branches on basic column j with one dual simplex step (Driebeck and
// Tomlin). The degradations are in minimization sense; +Inf means the
// branch is infeasible.
func (d *ios) penalties(j int) (dn, up float64, ok bool) {
	wp := d.wp
	c := wp.cols[j]
	if !wp.valid || c.stat != Basic {
		return 0, 0, false
	}
	ind, val, err := wp.evalTabRow(wp.m() + j + 1)
	if err != nil {
		d.msg(MsgDbg, "penalties of column %d: %v", j+1, err)
		return 0, 0, false
	}
	f := frac(c.prim)
	dn, up = math.Inf(1), math.Inf(1)
	for t, k := range ind {
		alpha := val[t]
		if math.Abs(alpha) < 1e-9 {
			continue
		}
		var dk float64
		if k <= wp.m() {
			dk = wp.rows[k-1].dual
		} else {
			dk = wp.cols[k-wp.m()-1].dual
		}
		dk = math.Abs(d.sign * dk)
		switch wp.varStat(k) {
		case NonBasicLower:
			// x[k] can only increase; x[j] moves by alpha per unit
			if alpha < 0 {
				dn = math.Min(dn, dk*f/-alpha)
			} else {
				up = math.Min(up, dk*(1-f)/alpha)
			}
		case NonBasicUpper:
			if alpha > 0 {
				dn = math.Min(dn, dk*f/alpha)
			} else {
				up = math.Min(up, dk*(1-f)/-alpha)
			}
		case NonBasicFree:
			dn, up = 0, 0
		}
	}
	return dn, up, true
}

func (d *ios) branchDTH(cand []int) (int, bool, bool) {
	best, bestDown, bestScore := -1, true, -1.0
	for _, j := range cand {
		dn, up, ok := d.penalties(j)
		if !ok {
			return 0, false, false
		}
		if s := math.Max(dn, up); s > bestScore {
			best, bestDown, bestScore = j, dn <= up, s
		}
	}
	d.msg(MsgDbg, "branch: column %d, degradation %g", best+1, bestScore)
	return best, bestDown, best >= 0
}

// branchPCH scores columns by the product of their down and up pseudo-costs,
// initialized from the Driebeck-Tomlin penalties.
func (d *ios) branchPCH(cand []int) (int, bool) {
	const eps = 1e-6
	best, bestDown, bestScore := cand[0], true, -1.0
	for _, j := range cand {
		f := frac(d.wp.cols[j].prim)
		var dn, up float64
		pdn, pup, ok := d.penalties(j)
		if d.pcDnN[j] > 0 {
			dn = d.pcDn[j] / float64(d.pcDnN[j]) * f
		} else if ok {
			dn = math.Min(pdn, 1e30)
		}
		if d.pcUpN[j] > 0 {
			up = d.pcUp[j] / float64(d.pcUpN[j]) * (1 - f)
		} else if ok {
			up = math.Min(pup, 1e30)
		}
		if s := math.Max(dn, eps) * math.Max(up, eps); s > bestScore {
			best, bestDown, bestScore = j, dn <= up, s
		}
	}
	return best, bestDown
}

// updatePseudocost records the degradation per unit of change observed when
// solving the child nd, whose parent had local bound nd.bound.
func (d *ios) updatePseudocost(nd *node, z float64) {
	j := nd.brCol
	if j < 0 || isInf(nd.bound) {
		return
	}
	delta := math.Max(z-nd.bound, 0)
	if nd.brDown {
		if nd.brFrac > 0 {
			d.pcDn[j] += delta / nd.brFrac
			d.pcDnN[j]++
		}
	} else if nd.brFrac < 1 {
		d.pcUp[j] += delta / (1 - nd.brFrac)
		d.pcUpN[j]++
	}
}
