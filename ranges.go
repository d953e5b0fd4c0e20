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
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
)

// BoundRange is the result of AnalyzeBound: the active bound of a
// non-basic variable can move within [Value1, Value2] while the basis
// stays primal feasible. Var1 and Var2 are the ordinals of the basic
// variables that limit the range, 0 if it is unlimited.
type BoundRange struct {
	Value1 float64
	Var1   int
	Value2 float64
	Var2   int
}

// CoefRange is the result of AnalyzeCoef: the objective coefficient of a
// variable can move within [Coef1, Coef2] while the basis stays optimal.
// Var1 and Var2 are the ordinals of the variables entering the basis at
// the limits, and Value1, Value2 the values the analyzed variable takes in
// the adjacent bases.
type CoefRange struct {
	Coef1  float64
	Var1   int
	Value1 float64
	Coef2  float64
	Var2   int
	Value2 float64
}

func (p *Problem) checkOptimalBasis(k int) error {
	if p.deleted {
		return ErrDeleted
	}
	if !inRange(k, 1, p.m()+p.n()) {
		return errors.Wrapf(ErrOutOfRange, "variable %d", k)
	}
	if err := p.needFactorization(); err != nil {
		return err
	}
	if p.pbsStat != Feasible || p.dbsStat != Feasible {
		return errors.Wrap(ErrInvalidStatus, "basic solution is not optimal")
	}
	return nil
}

func (p *Problem) varBounds(k int) (float64, float64) {
	if k <= p.m() {
		r := p.rows[k-1]
		return r.lb, r.ub
	}
	c := p.cols[k-p.m()-1]
	return c.lb, c.ub
}

func (p *Problem) varPrim(k int) float64 {
	if k <= p.m() {
		return p.rows[k-1].prim
	}
	return p.cols[k-p.m()-1].prim
}

// varDual is the reduced cost of k in minimization sense.
func (p *Problem) varDual(k int) float64 {
	d := p.rawDual(k)
	if p.dir == Maximize {
		return -d
	}
	return d
}

func (p *Problem) rawDual(k int) float64 {
	if k <= p.m() {
		return p.rows[k-1].dual
	}
	return p.cols[k-p.m()-1].dual
}

// AnalyzeBound analyzes the active bound of non-basic variable k in an
// optimal basis.
func (p *Problem) AnalyzeBound(k int) (BoundRange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkOptimalBasis(k); err != nil {
		return BoundRange{}, err
	}
	if p.varStat(k) == Basic {
		return BoundRange{}, errors.Wrapf(ErrInvalidStatus, "variable %d is basic", k)
	}
	return p.analyzeBound(k)
}

func (p *Problem) analyzeBound(k int) (BoundRange, error) {
	v := p.varPrim(k)
	ind, val, err := p.evalTabCol(k)
	if err != nil {
		return BoundRange{}, err
	}
	// step is how far x[k] can move in direction dir before a basic
	// variable reaches one of its bounds
	step := func(dir float64) (float64, int) {
		best, who := math.Inf(1), 0
		for t, b := range ind {
			a := dir * val[t]
			if math.Abs(a) < 1e-12 {
				continue
			}
			lb, ub := p.varBounds(b)
			x := p.varPrim(b)
			var s float64
			switch {
			case a > 0 && !isInf(ub):
				s = (ub - x) / a
			case a < 0 && !isInf(lb):
				s = (lb - x) / a
			default:
				continue
			}
			s = math.Max(s, 0)
			if s < best {
				best, who = s, b
			}
		}
		return best, who
	}
	var r BoundRange
	s1, w1 := step(-1)
	s2, w2 := step(+1)
	r.Value1, r.Var1 = v-s1, w1
	r.Value2, r.Var2 = v+s2, w2
	return r, nil
}

// AnalyzeCoef analyzes the objective coefficient of variable k in an
// optimal basis.
func (p *Problem) AnalyzeCoef(k int) (CoefRange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkOptimalBasis(k); err != nil {
		return CoefRange{}, err
	}
	return p.analyzeCoef(k)
}

func (p *Problem) varCoef(k int) float64 {
	if k <= p.m() {
		return 0
	}
	return p.cols[k-p.m()-1].coef
}

// enterValue returns the value of x[track] after non-basic variable q
// enters the basis moving in its feasible direction.
func (p *Problem) enterValue(q, track int) (float64, error) {
	ind, val, err := p.evalTabCol(q)
	if err != nil {
		return 0, err
	}
	dir := 1.0
	if p.varStat(q) == NonBasicUpper {
		dir = -1
	}
	lq, uq := p.varBounds(q)
	t := math.Inf(1)
	if !isInf(lq) && !isInf(uq) {
		t = uq - lq
	}
	var rate float64
	for s, b := range ind {
		a := dir * val[s]
		if b == track {
			rate = a
		}
		if math.Abs(a) < 1e-12 {
			continue
		}
		lb, ub := p.varBounds(b)
		x := p.varPrim(b)
		switch {
		case a > 0 && !isInf(ub):
			t = math.Min(t, math.Max((ub-x)/a, 0))
		case a < 0 && !isInf(lb):
			t = math.Min(t, math.Max((lb-x)/a, 0))
		}
	}
	if track == q {
		rate = dir
	}
	if rate == 0 {
		return p.varPrim(track), nil
	}
	if math.IsInf(t, 1) {
		return math.Copysign(math.Inf(1), rate), nil
	}
	return p.varPrim(track) + rate*t, nil
}

func (p *Problem) analyzeCoef(k int) (CoefRange, error) {
	sign := 1.0
	if p.dir == Maximize {
		sign = -1
	}
	c := p.varCoef(k)
	x := p.varPrim(k)
	inf := math.Inf(1)

	// dLo, dHi bound the change of the minimization-sense cost of k
	dLo, dHi := -inf, inf
	var vLo, vHi int
	if p.varStat(k) != Basic {
		d := p.varDual(k)
		switch p.varStat(k) {
		case NonBasicLower:
			dLo, vLo = -d, k
		case NonBasicUpper:
			dHi, vHi = -d, k
		case NonBasicFree:
			dLo, dHi, vLo, vHi = 0, 0, k, k
		}
	} else {
		ind, val, err := p.evalTabRow(k)
		if err != nil {
			return CoefRange{}, err
		}
		for t, j := range ind {
			tau := val[t]
			if math.Abs(tau) < 1e-12 {
				continue
			}
			d := p.varDual(j)
			// d[j] changes by delta*tau
			st := p.varStat(j)
			switch st {
			case NonBasicLower, NonBasicUpper:
			case NonBasicFree:
				dLo, dHi, vLo, vHi = 0, 0, j, j
				continue
			default:
				continue
			}
			lim := -d / tau
			up := (st == NonBasicLower && tau < 0) || (st == NonBasicUpper && tau > 0)
			if up {
				if lim < dHi {
					dHi, vHi = math.Max(lim, 0), j
				}
			} else if lim > dLo {
				dLo, vLo = math.Min(lim, 0), j
			}
		}
	}

	var r CoefRange
	value := func(v int) (float64, error) {
		if v == 0 {
			return x, nil
		}
		return p.enterValue(v, k)
	}
	if sign > 0 {
		r.Coef1, r.Var1 = c+dLo, vLo
		r.Coef2, r.Var2 = c+dHi, vHi
	} else {
		r.Coef1, r.Var1 = c-dHi, vHi
		r.Coef2, r.Var2 = c-dLo, vLo
	}
	var err error
	if r.Value1, err = value(r.Var1); err != nil {
		return CoefRange{}, err
	}
	if r.Value2, err = value(r.Var2); err != nil {
		return CoefRange{}, err
	}
	return r, nil
}

// PrintRanges writes a sensitivity analysis report for the variables in
// list (ordinals as in BHead), or for all variables if list is empty.
func (p *Problem) PrintRanges(w io.Writer, list []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if err := p.needFactorization(); err != nil {
		return err
	}
	if p.pbsStat != Feasible || p.dbsStat != Feasible {
		return errors.Wrap(ErrInvalidStatus, "basic solution is not optimal")
	}
	m, n := p.m(), p.n()
	if len(list) == 0 {
		list = make([]int, m+n)
		for k := range list {
			list[k] = k + 1
		}
	}
	for _, k := range list {
		if !inRange(k, 1, m+n) {
			return errors.Wrapf(ErrOutOfRange, "variable %d", k)
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "GOLPK %s - SENSITIVITY ANALYSIS REPORT\n\n", version)
	fmt.Fprintf(bw, "Problem:    %s\n", p.name)
	fmt.Fprintf(bw, "Objective:  %s%.10g (%s)\n\n", objLabel(p.objName), p.objVal, p.dir)

	header := func(what string) {
		fmt.Fprintf(bw, "   No. %-12s St      Activity         Slack   Lower bound       Activity      Obj coef  Obj value at Limiting\n", what+" name")
		fmt.Fprintf(bw, "                                          Marginal   Upper bound          range         range   break point variable\n")
		fmt.Fprintf(bw, "------ ------------ -- ------------- ------------- -------------  ------------- ------------- ------------- ------------\n")
	}
	section := func(rows bool) error {
		first := true
		for _, k := range list {
			if (k <= m) != rows {
				continue
			}
			if first {
				if rows {
					header("Row")
				} else {
					header("Column")
				}
				first = false
			}
			if err := p.printRange(bw, k); err != nil {
				return errors.Wrapf(err, "analyzing variable %d", k)
			}
		}
		if !first {
			fmt.Fprintln(bw)
		}
		return nil
	}
	if err := section(true); err != nil {
		return err
	}
	if err := section(false); err != nil {
		return err
	}
	fmt.Fprintln(bw, "End of report")
	return bw.Flush()
}

func (p *Problem) printRange(w io.Writer, k int) error {
	m := p.m()
	var name string
	var no int
	if k <= m {
		name, no = p.rows[k-1].name, k
	} else {
		name, no = p.cols[k-m-1].name, k-m
	}
	lb, ub := p.varBounds(k)
	x := p.varPrim(k)
	stat := p.varStat(k)
	slack := math.Inf(1)
	if !isInf(lb) {
		slack = x - lb
	}
	if !isInf(ub) {
		slack = math.Min(slack, ub-x)
	}
	dual := p.rawDual(k)

	var act1, act2 float64
	var lim1, lim2 string
	if stat != Basic {
		br, err := p.analyzeBound(k)
		if err != nil {
			return err
		}
		act1, act2 = br.Value1, br.Value2
		lim1, lim2 = p.varName(br.Var1), p.varName(br.Var2)
	} else {
		act1, act2 = math.Inf(-1), math.Inf(1)
	}
	cr, err := p.analyzeCoef(k)
	if err != nil {
		return err
	}
	obj1 := p.objVal + (cr.Coef1-p.varCoef(k))*x
	obj2 := p.objVal + (cr.Coef2-p.varCoef(k))*x
	if stat == Basic {
		lim1, lim2 = p.varName(cr.Var1), p.varName(cr.Var2)
	}

	fmt.Fprintf(w, "%6d %-12s %-2s %13s %13s %13s  %13s %13s %13s %s\n",
		no, trunc(name, 12), stat, fmtNum(x), fmtNum(slack), fmtNum(lb), fmtNum(act1), fmtNum(cr.Coef1), fmtNum(obj1), lim1)
	fmt.Fprintf(w, "%6s %-12s %-2s %13s %13s %13s  %13s %13s %13s %s\n",
		"", "", "", "", fmtNum(dual), fmtNum(ub), fmtNum(act2), fmtNum(cr.Coef2), fmtNum(obj2), lim2)
	return nil
}

func (p *Problem) varName(k int) string {
	switch {
	case k == 0:
		return ""
	case k <= p.m():
		if name := p.rows[k-1].name; name != "" {
			return name
		}
		return fmt.Sprintf("r%d", k)
	default:
		if name := p.cols[k-p.m()-1].name; name != "" {
			return name
		}
		return fmt.Sprintf("c%d", k-p.m())
	}
}

func fmtNum(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return fmt.Sprintf("%.6g", v)
}

func trunc(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
