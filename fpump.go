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
	"sort"
)

const fpMaxIter = 50

// feasPump runs the feasibility pump heuristic at the root: it alternates
// between rounding the binary columns of the LP solution and solving an LP
// that minimizes the distance to the rounded point, until the LP solution
// is integral. It is only applied when every integer column is binary.
func (d *ios) feasPump() {
	var bin []int
	for j := 0; j < d.n; j++ {
		if !d.isInt[j] {
			continue
		}
		if !d.binary(j) {
			return
		}
		bin = append(bin, j)
	}
	if len(bin) == 0 {
		return
	}
	d.msg(MsgAll, "applying feasibility pump heuristic")

	fp := d.wp.clone()
	fp.dir = Minimize
	fp.c0 = 0
	for _, c := range fp.cols {
		c.coef = 0
	}
	parm := d.smcp
	x := d.lpValues()
	prev := make([]float64, d.n)
	for j := range prev {
		prev[j] = -1
	}
	rnd := make([]float64, d.n)

	for it := 0; it < fpMaxIter; it++ {
		if d.checkLimits() != nil {
			return
		}
		same := true
		for _, j := range bin {
			rnd[j] = math.Round(x[j])
			if rnd[j] != prev[j] {
				same = false
			}
		}
		if same {
			d.fpPerturb(bin, x, rnd)
		}
		copy(prev, rnd)

		for _, j := range bin {
			if rnd[j] == 0 {
				fp.cols[j].coef = 1
			} else {
				fp.cols[j].coef = -1
			}
		}
		parm.TmLim = d.parm.TmLim - d.elapsed()
		if parm.TmLim <= 0 {
			return
		}
		if err := fp.runSimplex(d.ctx, &parm); err != nil || fp.status() != Optimal {
			return
		}
		integral := true
		for j, c := range fp.cols {
			x[j] = c.prim
			if d.isInt[j] && !isIntegral(x[j], d.parm.TolInt) {
				integral = false
			}
		}
		if integral {
			d.offer(x, "feasibility pump", true)
			return
		}
	}
}

// fpPerturb flips the rounding of the binary columns farthest from their
// rounded values, to leave a cycle.
func (d *ios) fpPerturb(bin []int, x, rnd []float64) {
	order := append([]int(nil), bin...)
	sort.SliceStable(order, func(p, q int) bool {
		return math.Abs(x[order[p]]-rnd[order[p]]) > math.Abs(x[order[q]]-rnd[order[q]])
	})
	flips := len(order) / 10
	if flips < 1 {
		flips = 1
	}
	for _, j := range order[:flips] {
		rnd[j] = 1 - rnd[j]
	}
}
