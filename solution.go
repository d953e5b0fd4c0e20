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
	"github.com/pkg/errors"
)

const version = "1.0"

// Version returns the library version.
func Version() string {
	return version
}

// Status returns the status of the basic solution, combining its primal
// and dual statuses.
func (p *Problem) Status() SolStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status()
}

func (p *Problem) status() SolStatus {
	if p.deleted {
		return Undefined
	}
	if p.pbsStat != Feasible {
		return p.pbsStat
	}
	switch p.dbsStat {
	case Feasible:
		return Optimal
	case NoFeasible:
		return Unbounded
	}
	return Feasible
}

// PrimStatus returns the primal status of the basic solution.
func (p *Problem) PrimStatus() SolStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return Undefined
	}
	return p.pbsStat
}

// DualStatus returns the dual status of the basic solution.
func (p *Problem) DualStatus() SolStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return Undefined
	}
	return p.dbsStat
}

// ObjVal returns the objective value of the basic solution.
func (p *Problem) ObjVal() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return 0
	}
	return p.objVal
}

// UnbndRay returns the ordinal of a variable that causes unboundedness, as
// reported by the last simplex run: k <= m is row k, k > m is column k-m.
// It returns 0 if no such variable is known.
func (p *Problem) UnbndRay() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return 0
	}
	return p.someRay
}

func (p *Problem) rowValue(i int, f func(r *row) float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkRow(i) != nil {
		return 0
	}
	return f(p.rows[i-1])
}

func (p *Problem) colValue(j int, f func(c *column) float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkCol(j) != nil {
		return 0
	}
	return f(p.cols[j-1])
}

func (p *Problem) rowValues(idx []int, f func(r *row) float64) []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]float64, len(idx))
	for k, i := range idx {
		if p.checkRow(i) == nil {
			out[k] = f(p.rows[i-1])
		}
	}
	return out
}

func (p *Problem) colValues(idx []int, f func(c *column) float64) []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]float64, len(idx))
	for k, j := range idx {
		if p.checkCol(j) == nil {
			out[k] = f(p.cols[j-1])
		}
	}
	return out
}

func rowPrim(r *row) float64    { return r.prim }
func rowDual(r *row) float64    { return r.dual }
func colPrim(c *column) float64 { return c.prim }
func colDual(c *column) float64 { return c.dual }
func rowIptP(r *row) float64    { return r.pval }
func rowIptD(r *row) float64    { return r.dval }
func colIptP(c *column) float64 { return c.pval }
func colIptD(c *column) float64 { return c.dval }
func rowMIP(r *row) float64     { return r.mipx }
func colMIP(c *column) float64  { return c.mipx }

// RowPrim returns the primal value of row i in the basic solution.
func (p *Problem) RowPrim(i int) float64 { return p.rowValue(i, rowPrim) }

// RowDual returns the dual value (shadow price) of row i in the basic
// solution.
func (p *Problem) RowDual(i int) float64 { return p.rowValue(i, rowDual) }

// ColPrim returns the primal value of column j in the basic solution.
func (p *Problem) ColPrim(j int) float64 { return p.colValue(j, colPrim) }

// ColDual returns the reduced cost of column j in the basic solution.
func (p *Problem) ColDual(j int) float64 { return p.colValue(j, colDual) }

func (p *Problem) RowsPrim(idx []int) []float64 { return p.rowValues(idx, rowPrim) }
func (p *Problem) RowsDual(idx []int) []float64 { return p.rowValues(idx, rowDual) }
func (p *Problem) ColsPrim(idx []int) []float64 { return p.colValues(idx, colPrim) }
func (p *Problem) ColsDual(idx []int) []float64 { return p.colValues(idx, colDual) }

// IptStatus returns the status of the interior-point solution.
func (p *Problem) IptStatus() SolStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return Undefined
	}
	return p.iptStat
}

// IptObjVal returns the objective value of the interior-point solution.
func (p *Problem) IptObjVal() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return 0
	}
	return p.iptObj
}

func (p *Problem) IptRowPrim(i int) float64 { return p.rowValue(i, rowIptP) }
func (p *Problem) IptRowDual(i int) float64 { return p.rowValue(i, rowIptD) }
func (p *Problem) IptColPrim(j int) float64 { return p.colValue(j, colIptP) }
func (p *Problem) IptColDual(j int) float64 { return p.colValue(j, colIptD) }

func (p *Problem) IptRowsPrim(idx []int) []float64 { return p.rowValues(idx, rowIptP) }
func (p *Problem) IptRowsDual(idx []int) []float64 { return p.rowValues(idx, rowIptD) }
func (p *Problem) IptColsPrim(idx []int) []float64 { return p.colValues(idx, colIptP) }
func (p *Problem) IptColsDual(idx []int) []float64 { return p.colValues(idx, colIptD) }

// MIPStatus returns the status of the MIP solution.
func (p *Problem) MIPStatus() SolStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return Undefined
	}
	return p.mipStat
}

// MIPObjVal returns the objective value of the MIP solution.
func (p *Problem) MIPObjVal() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return 0
	}
	return p.mipObj
}

func (p *Problem) MIPRowVal(i int) float64 { return p.rowValue(i, rowMIP) }
func (p *Problem) MIPColVal(j int) float64 { return p.colValue(j, colMIP) }

func (p *Problem) MIPRowsVal(idx []int) []float64 { return p.rowValues(idx, rowMIP) }
func (p *Problem) MIPColsVal(idx []int) []float64 { return p.colValues(idx, colMIP) }

// Solution is a snapshot of one of the solutions of a problem. Statuses
// and the primal/dual split are only meaningful for the basic solution;
// a MIP solution has no duals.
type Solution struct {
	Kind       SolutionKind
	Status     SolStatus
	PrimStatus SolStatus
	DualStatus SolStatus
	Obj        float64

	RowPrim, RowDual []float64
	ColPrim, ColDual []float64
	RowStat          []VarStatus
	ColStat          []VarStatus
}

// Solution returns a copy of the solution of the given kind.
func (p *Problem) Solution(kind SolutionKind) (*Solution, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return nil, ErrDeleted
	}
	m, n := p.m(), p.n()
	s := &Solution{
		Kind:    kind,
		RowPrim: make([]float64, m),
		ColPrim: make([]float64, n),
	}
	switch kind {
	case BasicSolution:
		s.Status, s.PrimStatus, s.DualStatus, s.Obj = p.status(), p.pbsStat, p.dbsStat, p.objVal
		s.RowDual, s.ColDual = make([]float64, m), make([]float64, n)
		s.RowStat, s.ColStat = make([]VarStatus, m), make([]VarStatus, n)
		for i, r := range p.rows {
			s.RowPrim[i], s.RowDual[i], s.RowStat[i] = r.prim, r.dual, r.stat
		}
		for j, c := range p.cols {
			s.ColPrim[j], s.ColDual[j], s.ColStat[j] = c.prim, c.dual, c.stat
		}
	case InteriorSolution:
		s.Status, s.Obj = p.iptStat, p.iptObj
		s.RowDual, s.ColDual = make([]float64, m), make([]float64, n)
		for i, r := range p.rows {
			s.RowPrim[i], s.RowDual[i] = r.pval, r.dval
		}
		for j, c := range p.cols {
			s.ColPrim[j], s.ColDual[j] = c.pval, c.dval
		}
	case MIPSolution:
		s.Status, s.Obj = p.mipStat, p.mipObj
		for i, r := range p.rows {
			s.RowPrim[i] = r.mipx
		}
		for j, c := range p.cols {
			s.ColPrim[j] = c.mipx
		}
	default:
		return nil, errors.Wrapf(ErrInvalidValue, "solution kind %d", int(kind))
	}
	return s, nil
}

// rowActivity computes the activity of r for the given column values.
func rowActivity(r *row, x []float64) float64 {
	v := 0.0
	for e := r.ptr; e != nil; e = e.rnext {
		v += e.val * x[e.col.j-1]
	}
	return v
}
