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

// KKTCond selects the optimality condition checked by CheckKKT.
type KKTCond int

const (
	KKTPrimalEq    KKTCond = 1 // rows equal the activity of the columns
	KKTPrimalBound KKTCond = 2 // variables within their bounds
	KKTDualEq      KKTCond = 3 // reduced costs consistent with the row duals
	KKTDualBound   KKTCond = 4 // reduced costs have the right sign
)

// KKTError is the largest absolute and relative error found by CheckKKT,
// with the ordinals (rows 1..m, columns m+1..m+n) where they occur. An
// ordinal of 0 means no error.
type KKTError struct {
	AbsErr float64
	AbsInd int
	RelErr float64
	RelInd int
}

func (e *KKTError) record(k int, abs, ref float64) {
	rel := abs / (1 + math.Abs(ref))
	if abs > e.AbsErr {
		e.AbsErr, e.AbsInd = abs, k
	}
	if rel > e.RelErr {
		e.RelErr, e.RelInd = rel, k
	}
}

// Quality grades a relative error the way solution reports do: H(igh),
// M(edium), L(ow) or ? for wrong.
func (e KKTError) Quality() byte {
	switch {
	case e.RelErr <= 1e-9:
		return 'H'
	case e.RelErr <= 1e-6:
		return 'M'
	case e.RelErr <= 1e-3:
		return 'L'
	}
	return '?'
}

// CheckKKT checks the Karush-Kuhn-Tucker condition cond for the solution
// of the given kind. Dual conditions are not defined for MIP solutions.
func (p *Problem) CheckKKT(kind SolutionKind, cond KKTCond) (KKTError, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return KKTError{}, ErrDeleted
	}
	switch kind {
	case BasicSolution, InteriorSolution, MIPSolution:
	default:
		return KKTError{}, errors.Wrapf(ErrInvalidValue, "solution kind %d", int(kind))
	}
	if kind == MIPSolution && (cond == KKTDualEq || cond == KKTDualBound) {
		return KKTError{}, errors.Wrap(ErrInvalidValue, "dual conditions are not defined for MIP solutions")
	}
	switch cond {
	case KKTPrimalEq:
		return p.kktPE(kind), nil
	case KKTPrimalBound:
		return p.kktPB(kind), nil
	case KKTDualEq:
		return p.kktDE(kind), nil
	case KKTDualBound:
		return p.kktDB(kind), nil
	}
	return KKTError{}, errors.Wrapf(ErrInvalidValue, "condition %d", int(cond))
}

func (p *Problem) solValues(kind SolutionKind) (rp, rd, cp, cd []float64) {
	rp, rd = make([]float64, p.m()), make([]float64, p.m())
	cp, cd = make([]float64, p.n()), make([]float64, p.n())
	for i, r := range p.rows {
		switch kind {
		case BasicSolution:
			rp[i], rd[i] = r.prim, r.dual
		case InteriorSolution:
			rp[i], rd[i] = r.pval, r.dval
		default:
			rp[i] = r.mipx
		}
	}
	for j, c := range p.cols {
		switch kind {
		case BasicSolution:
			cp[j], cd[j] = c.prim, c.dual
		case InteriorSolution:
			cp[j], cd[j] = c.pval, c.dval
		default:
			cp[j] = c.mipx
		}
	}
	return rp, rd, cp, cd
}

func (p *Problem) kktPE(kind SolutionKind) KKTError {
	var e KKTError
	rp, _, cp, _ := p.solValues(kind)
	for i, r := range p.rows {
		sum := 0.0
		for el := r.ptr; el != nil; el = el.rnext {
			sum += el.val * cp[el.col.j-1]
		}
		e.record(i+1, math.Abs(rp[i]-sum), rp[i])
	}
	return e
}

func boundViolation(x, lb, ub float64) (float64, float64) {
	switch {
	case !isInf(lb) && x < lb:
		return lb - x, lb
	case !isInf(ub) && x > ub:
		return x - ub, ub
	}
	return 0, 0
}

func (p *Problem) kktPB(kind SolutionKind) KKTError {
	var e KKTError
	rp, _, cp, _ := p.solValues(kind)
	for i, r := range p.rows {
		abs, ref := boundViolation(rp[i], r.lb, r.ub)
		e.record(i+1, abs, ref)
	}
	for j, c := range p.cols {
		abs, ref := boundViolation(cp[j], c.lb, c.ub)
		e.record(p.m()+j+1, abs, ref)
	}
	return e
}

func (p *Problem) kktDE(kind SolutionKind) KKTError {
	var e KKTError
	_, rd, _, cd := p.solValues(kind)
	for j, c := range p.cols {
		d := c.coef
		for el := c.ptr; el != nil; el = el.cnext {
			d -= el.val * rd[el.row.i-1]
		}
		e.record(p.m()+j+1, math.Abs(cd[j]-d), d)
	}
	return e
}

// dualViolation is how far the reduced cost d of a variable is from the
// sign its status or, without status, its bounds allow. d is in
// minimization sense.
func dualViolation(d float64, stat VarStatus, lb, ub float64, hasStat bool) float64 {
	if !hasStat {
		switch {
		case isInf(lb) && isInf(ub):
			stat = NonBasicFree
		case isInf(ub):
			stat = NonBasicLower
		case isInf(lb):
			stat = NonBasicUpper
		default:
			stat = NonBasicFixed
		}
	}
	switch stat {
	case Basic, NonBasicFree:
		return math.Abs(d)
	case NonBasicLower:
		return math.Max(-d, 0)
	case NonBasicUpper:
		return math.Max(d, 0)
	}
	return 0
}

func (p *Problem) kktDB(kind SolutionKind) KKTError {
	var e KKTError
	_, rd, _, cd := p.solValues(kind)
	sign := 1.0
	if p.dir == Maximize {
		sign = -1
	}
	basic := kind == BasicSolution
	for i, r := range p.rows {
		e.record(i+1, dualViolation(sign*rd[i], r.stat, r.lb, r.ub, basic), rd[i])
	}
	for j, c := range p.cols {
		e.record(p.m()+j+1, dualViolation(sign*cd[j], c.stat, c.lb, c.ub, basic), cd[j])
	}
	return e
}
