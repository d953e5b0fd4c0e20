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
	"strconv"
	"strings"
)

const (
	maxCutRounds = 10
	maxGMICuts   = 50
	cutViolTol   = 1e-6
)

// cut is a constraint sum val[t]*x[ind[t]] (typ) rhs over 0-based column
// indices.
type cut struct {
	ind []int
	val []float64
	typ BoundType
	rhs float64
}

func (d *ios) addCut(ind []int, val []float64, typ BoundType, rhs float64) {
	wp := d.wp
	i := wp.addRows(1)
	r := wp.rows[i-1]
	wp.setRowBounds(r, typ, rhs, rhs)
	cols := make([]int, len(ind))
	for k, j := range ind {
		cols[k] = j + 1
	}
	wp.setMatRow(r, cols, val)
	d.ncuts++
}

// genCuts adds the violated cuts found by the enabled generators. The
// generators read the simplex table, so all cuts are collected before the
// first one changes the working problem.
func (d *ios) genCuts() int {
	var cuts []cut
	if d.parm.GMICuts {
		cuts = append(cuts, d.gmiCuts()...)
	}
	if d.parm.MIRCuts {
		cuts = append(cuts, d.mirCuts()...)
	}
	if d.parm.CovCuts {
		cuts = append(cuts, d.coverCuts()...)
	}
	if d.parm.ClqCuts {
		cuts = append(cuts, d.cliqueCuts()...)
	}
	for _, c := range cuts {
		d.addCut(c.ind, c.val, c.typ, c.rhs)
	}
	if len(cuts) > 0 {
		d.msg(MsgDbg, "cuts: %d added", len(cuts))
	}
	return len(cuts)
}

// sparseCut turns a dense coefficient vector into a cut, rejecting it when
// its coefficients span too many orders of magnitude or when it is not
// violated by the current LP solution.
func (d *ios) sparseCut(coef []float64, typ BoundType, rhs float64) (cut, bool) {
	c := cut{typ: typ, rhs: rhs}
	amin, amax := math.Inf(1), 0.0
	for j, v := range coef {
		if math.Abs(v) < 1e-12 {
			continue
		}
		c.ind = append(c.ind, j)
		c.val = append(c.val, v)
		amin = math.Min(amin, math.Abs(v))
		amax = math.Max(amax, math.Abs(v))
	}
	if len(c.ind) == 0 || amax/amin > 1e8 || !isFinite(rhs) {
		return c, false
	}
	act := 0.0
	for k, j := range c.ind {
		act += c.val[k] * d.wp.cols[j].prim
	}
	tol := cutViolTol * (1 + math.Abs(rhs))
	switch typ {
	case Lower:
		return c, act < rhs-tol
	case Upper:
		return c, act > rhs+tol
	}
	return c, false
}

// addTerm adds g*x[k] to coef, expanding a row variable into its columns.
func (d *ios) addTerm(coef []float64, k int, g float64) {
	m := d.wp.m()
	if k > m {
		coef[k-m-1] += g
		return
	}
	for e := d.wp.rows[k-1].ptr; e != nil; e = e.rnext {
		coef[e.col.j-1] += g * e.val
	}
}

// gmiCuts derives Gomory mixed integer cuts from the rows of the optimal
// simplex table of basic integer columns with fractional values.
func (d *ios) gmiCuts() []cut {
	wp := d.wp
	if !wp.valid {
		return nil
	}
	m := wp.m()
	var out []cut
	for j := 0; j < d.n && len(out) < maxGMICuts; j++ {
		c := wp.cols[j]
		if !d.fractional(j) || c.stat != Basic {
			continue
		}
		f0 := frac(c.prim)
		if f0 < 0.01 || f0 > 0.99 {
			continue
		}
		ind, val, err := wp.evalTabRow(m + j + 1)
		if err != nil {
			d.msg(MsgDbg, "gmi cuts: %v", err)
			return out
		}
		coef := make([]float64, d.n)
		rhs := 1.0
		ok := true
		for t, k := range ind {
			var sgn, bnd float64
			switch wp.varStat(k) {
			case NonBasicLower:
				sgn = 1
			case NonBasicUpper:
				sgn = -1
			case NonBasicFixed:
				continue
			default:
				ok = false
			}
			if !ok {
				break
			}
			if k <= m {
				bnd = wp.rows[k-1].lb
				if sgn < 0 {
					bnd = wp.rows[k-1].ub
				}
			} else {
				bnd = wp.cols[k-m-1].lb
				if sgn < 0 {
					bnd = wp.cols[k-m-1].ub
				}
			}
			// x[b] + sum a*t = beta
			a := -sgn * val[t]
			var g float64
			if k > m && d.isInt[k-m-1] {
				fk := frac(a)
				if fk <= f0 {
					g = fk / f0
				} else {
					g = (1 - fk) / (1 - f0)
				}
			} else if a >= 0 {
				g = a / f0
			} else {
				g = -a / (1 - f0)
			}
			if g == 0 {
				continue
			}
			// g*t with t = sgn*(x[k] - bnd)
			rhs += g * sgn * bnd
			d.addTerm(coef, k, g*sgn)
		}
		if !ok {
			continue
		}
		if ct, viol := d.sparseCut(coef, Lower, rhs); viol {
			out = append(out, ct)
		}
	}
	return out
}

// mirCuts applies mixed integer rounding to single rows, each side taken
// as sum a*x <= b.
func (d *ios) mirCuts() []cut {
	var out []cut
	for i := 0; i < d.m0; i++ {
		r := d.wp.rows[i]
		if !isInf(r.ub) {
			if ct, ok := d.mirRow(r, 1, r.ub); ok {
				out = append(out, ct)
			}
		}
		if !isInf(r.lb) {
			if ct, ok := d.mirRow(r, -1, -r.lb); ok {
				out = append(out, ct)
			}
		}
	}
	return out
}

func (d *ios) mirRow(r *row, sgn, b float64) (cut, bool) {
	type term struct {
		j    int
		a, y float64
	}
	var terms []term
	hasInt := false
	for e := r.ptr; e != nil; e = e.rnext {
		j := e.col.j - 1
		lb := d.wp.cols[j].lb
		if isInf(lb) {
			return cut{}, false
		}
		a := sgn * e.val
		b -= a * lb
		terms = append(terms, term{j: j, a: a, y: d.wp.cols[j].prim - lb})
		if d.isInt[j] {
			hasInt = true
		}
	}
	if !hasInt {
		return cut{}, false
	}

	var deltas []float64
	seen := map[float64]bool{}
	for _, t := range terms {
		if d.isInt[t.j] && t.y > 1e-9 && !seen[math.Abs(t.a)] && len(deltas) < 8 {
			seen[math.Abs(t.a)] = true
			deltas = append(deltas, math.Abs(t.a))
		}
	}

	var best cut
	bestViol := 0.0
	for _, delta := range deltas {
		beta := b / delta
		f := frac(beta)
		if f < 0.05 || f > 0.95 {
			continue
		}
		coef := make([]float64, d.n)
		rhs := math.Floor(beta)
		for _, t := range terms {
			switch {
			case d.isInt[t.j]:
				at := t.a / delta
				coef[t.j] = math.Floor(at) + math.Max(0, frac(at)-f)/(1-f)
			case t.a < 0:
				coef[t.j] = t.a / (delta * (1 - f))
			}
		}
		viol := -rhs
		for _, t := range terms {
			viol += coef[t.j] * t.y
		}
		if viol <= bestViol {
			continue
		}
		// back from y = x - lb to x
		for _, t := range terms {
			rhs += coef[t.j] * d.wp.cols[t.j].lb
		}
		if ct, ok := d.sparseCut(coef, Upper, rhs); ok {
			best, bestViol = ct, viol
		}
	}
	return best, bestViol > 0
}

// binary reports whether column j is an integer column with bounds [0,1]
// at the root.
func (d *ios) binary(j int) bool {
	return d.isInt[j] && d.rootLb[j] == 0 && d.rootUb[j] == 1
}

// knapsack returns the row side sum a*x <= b over binary columns, with
// columns of negative coefficients complemented, or false if the row has
// a non-binary column.
func (d *ios) knapsack(r *row, sgn, b float64) (ind []int, a []float64, compl []bool, rhs float64, ok bool) {
	for e := r.ptr; e != nil; e = e.rnext {
		j := e.col.j - 1
		if !d.binary(j) {
			return nil, nil, nil, 0, false
		}
		v := sgn * e.val
		ind = append(ind, j)
		if v < 0 {
			b -= v
			a = append(a, -v)
			compl = append(compl, true)
		} else {
			a = append(a, v)
			compl = append(compl, false)
		}
	}
	return ind, a, compl, b, len(ind) > 1
}

// coverCuts separates minimal-ish cover inequalities for knapsack rows.
func (d *ios) coverCuts() []cut {
	var out []cut
	for i := 0; i < d.m0; i++ {
		r := d.wp.rows[i]
		for _, side := range []struct{ sgn, b float64 }{{1, r.ub}, {-1, -r.lb}} {
			if isInf(side.b) {
				continue
			}
			ind, a, compl, b, ok := d.knapsack(r, side.sgn, side.b)
			if !ok || b < 0 {
				continue
			}
			z := make([]float64, len(ind))
			order := make([]int, len(ind))
			for k, j := range ind {
				z[k] = d.wp.cols[j].prim
				if compl[k] {
					z[k] = 1 - z[k]
				}
				order[k] = k
			}
			sort.SliceStable(order, func(p, q int) bool {
				return (1-z[order[p]])/a[order[p]] < (1-z[order[q]])/a[order[q]]
			})
			var cover []int
			sum := 0.0
			for _, k := range order {
				if a[k] > b {
					continue
				}
				cover = append(cover, k)
				sum += a[k]
				if sum > b+1e-9 {
					break
				}
			}
			if sum <= b+1e-9 || len(cover) < 2 {
				continue
			}
			coef := make([]float64, d.n)
			rhs := float64(len(cover) - 1)
			for _, k := range cover {
				if compl[k] {
					coef[ind[k]] -= 1
					rhs--
				} else {
					coef[ind[k]] += 1
				}
			}
			if ct, viol := d.sparseCut(coef, Upper, rhs); viol {
				out = append(out, ct)
			}
		}
	}
	return out
}

// cliqueCuts builds the conflict graph of binary columns that cannot both
// be one and separates clique inequalities sum x <= 1.
func (d *ios) cliqueCuts() []cut {
	const maxRowLen = 100
	adj := map[int]map[int]bool{}
	link := func(j, k int) {
		if adj[j] == nil {
			adj[j] = map[int]bool{}
		}
		if adj[k] == nil {
			adj[k] = map[int]bool{}
		}
		adj[j][k], adj[k][j] = true, true
	}
	for i := 0; i < d.m0; i++ {
		r := d.wp.rows[i]
		for _, side := range []struct{ sgn, b float64 }{{1, r.ub}, {-1, -r.lb}} {
			if isInf(side.b) {
				continue
			}
			var ind []int
			var a []float64
			minAct := 0.0
			ok := true
			for e := r.ptr; e != nil; e = e.rnext {
				j := e.col.j - 1
				if !d.binary(j) {
					ok = false
					break
				}
				v := side.sgn * e.val
				minAct += math.Min(0, v)
				if v > 0 {
					ind = append(ind, j)
					a = append(a, v)
				}
			}
			if !ok || len(ind) > maxRowLen {
				continue
			}
			for p := 0; p < len(ind); p++ {
				for q := p + 1; q < len(ind); q++ {
					if minAct+a[p]+a[q] > side.b+1e-9 {
						link(ind[p], ind[q])
					}
				}
			}
		}
	}
	if len(adj) == 0 {
		return nil
	}

	x := func(j int) float64 { return d.wp.cols[j].prim }
	byValue := func(s []int) {
		sort.SliceStable(s, func(p, q int) bool {
			if x(s[p]) != x(s[q]) {
				return x(s[p]) > x(s[q])
			}
			return s[p] < s[q]
		})
	}
	var seeds []int
	for j := range adj {
		if d.fractional(j) {
			seeds = append(seeds, j)
		}
	}
	byValue(seeds)

	var out []cut
	found := map[string]bool{}
	for _, j := range seeds {
		clique := []int{j}
		var cand []int
		for k := range adj[j] {
			cand = append(cand, k)
		}
		byValue(cand)
		for _, k := range cand {
			all := true
			for _, c := range clique {
				if !adj[c][k] {
					all = false
					break
				}
			}
			if all {
				clique = append(clique, k)
			}
		}
		sum := 0.0
		for _, c := range clique {
			sum += x(c)
		}
		if len(clique) < 2 || sum <= 1+cutViolTol {
			continue
		}
		sort.Ints(clique)
		keys := make([]string, len(clique))
		for k, c := range clique {
			keys[k] = strconv.Itoa(c)
		}
		key := strings.Join(keys, ",")
		if found[key] {
			continue
		}
		found[key] = true
		coef := make([]float64, d.n)
		for _, c := range clique {
			coef[c] = 1
		}
		if ct, viol := d.sparseCut(coef, Upper, 1); viol {
			out = append(out, ct)
		}
	}
	return out
}
