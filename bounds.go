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

func isInf(v float64) bool { return math.IsInf(v, 0) }

// checkBounds validates a bound pair for the given type. Only the sides the
// type uses are looked at.
func checkBounds(typ BoundType, lb, ub float64) error {
	switch typ {
	case Free:
		return nil
	case Lower:
		if !isFinite(lb) {
			return errors.Wrapf(ErrInvalidBounds, "lower bound %g", lb)
		}
	case Upper:
		if !isFinite(ub) {
			return errors.Wrapf(ErrInvalidBounds, "upper bound %g", ub)
		}
	case Double:
		if !isFinite(lb) || !isFinite(ub) {
			return errors.Wrapf(ErrInvalidBounds, "bounds [%g, %g]", lb, ub)
		}
		if lb >= ub {
			return errors.Wrapf(ErrInvalidBounds, "lower bound %g not below upper bound %g", lb, ub)
		}
	case Fixed:
		if !isFinite(lb) || lb != ub {
			return errors.Wrapf(ErrInvalidBounds, "fixed bounds [%g, %g]", lb, ub)
		}
	default:
		return errors.Wrapf(ErrInvalidType, "%d", int(typ))
	}
	return nil
}

// normBounds stores infinities for the sides a type does not use.
func normBounds(typ BoundType, lb, ub float64) (float64, float64) {
	switch typ {
	case Free:
		return math.Inf(-1), math.Inf(+1)
	case Lower:
		return lb, math.Inf(+1)
	case Upper:
		return math.Inf(-1), ub
	case Fixed:
		return lb, lb
	}
	return lb, ub
}

// nonBasicStat returns the non-basic status matching a bound type. old is
// kept for double bounded variables when it names one of the bounds.
func nonBasicStat(typ BoundType, old VarStatus) VarStatus {
	switch typ {
	case Free:
		return NonBasicFree
	case Lower:
		return NonBasicLower
	case Upper:
		return NonBasicUpper
	case Fixed:
		return NonBasicFixed
	}
	if old == NonBasicUpper {
		return NonBasicUpper
	}
	return NonBasicLower
}

func (p *Problem) setRowBounds(r *row, typ BoundType, lb, ub float64) {
	r.typ = typ
	r.lb, r.ub = normBounds(typ, lb, ub)
	if r.stat != Basic {
		r.stat = nonBasicStat(typ, r.stat)
	}
}

func (p *Problem) setColBounds(c *column, typ BoundType, lb, ub float64) {
	c.typ = typ
	c.lb, c.ub = normBounds(typ, lb, ub)
	if c.stat != Basic {
		c.stat = nonBasicStat(typ, c.stat)
	}
}

// SetRowBounds sets the type and bounds of row i.
func (p *Problem) SetRowBounds(i int, typ BoundType, lb, ub float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkRow(i); err != nil {
		return err
	}
	if err := checkBounds(typ, lb, ub); err != nil {
		return errors.WithMessagef(err, "row %d", i)
	}
	p.setRowBounds(p.rows[i-1], typ, lb, ub)
	return nil
}

// SetColBounds sets the type and bounds of column j.
func (p *Problem) SetColBounds(j int, typ BoundType, lb, ub float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkCol(j); err != nil {
		return err
	}
	if err := checkBounds(typ, lb, ub); err != nil {
		return errors.WithMessagef(err, "column %d", j)
	}
	p.setColBounds(p.cols[j-1], typ, lb, ub)
	return nil
}

// batchTypes returns the bound types for a batch update. Without explicit
// types a pair is Fixed when lb == ub and Double otherwise.
func batchTypes(n int, types []BoundType, lb, ub []float64) ([]BoundType, error) {
	if len(lb) != n || len(ub) != n || (types != nil && len(types) != n) {
		return nil, errors.Wrapf(ErrLength, "expected %d bounds", n)
	}
	if types != nil {
		return types, nil
	}
	out := make([]BoundType, n)
	for k := range out {
		if lb[k] == ub[k] {
			out[k] = Fixed
		} else {
			out[k] = Double
		}
	}
	return out, nil
}

// SetRowsBounds sets the bounds of the rows listed in idx. A nil types
// slice infers Fixed or Double from each pair. Nothing changes unless every
// entry is valid.
func (p *Problem) SetRowsBounds(idx []int, types []BoundType, lb, ub []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	types, err := batchTypes(len(idx), types, lb, ub)
	if err != nil {
		return err
	}
	for k, i := range idx {
		if err := p.checkRow(i); err != nil {
			return err
		}
		if err := checkBounds(types[k], lb[k], ub[k]); err != nil {
			return errors.WithMessagef(err, "row %d", i)
		}
	}
	for k, i := range idx {
		p.setRowBounds(p.rows[i-1], types[k], lb[k], ub[k])
	}
	return nil
}

// SetColsBounds sets the bounds of the columns listed in idx, like
// SetRowsBounds.
func (p *Problem) SetColsBounds(idx []int, types []BoundType, lb, ub []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.setColsBounds(idx, types, lb, ub, nil)
}

// SetColsBoundsObjCoefs sets bounds and objective coefficients of the
// columns listed in idx in one step.
func (p *Problem) SetColsBoundsObjCoefs(idx []int, types []BoundType, lb, ub, coefs []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(coefs) != len(idx) {
		return errors.Wrapf(ErrLength, "%d indices for %d coefficients", len(idx), len(coefs))
	}
	return p.setColsBounds(idx, types, lb, ub, coefs)
}

func (p *Problem) setColsBounds(idx []int, types []BoundType, lb, ub, coefs []float64) error {
	types, err := batchTypes(len(idx), types, lb, ub)
	if err != nil {
		return err
	}
	for k, j := range idx {
		if err := p.checkCol(j); err != nil {
			return err
		}
		if err := checkBounds(types[k], lb[k], ub[k]); err != nil {
			return errors.WithMessagef(err, "column %d", j)
		}
		if coefs != nil && !isFinite(coefs[k]) {
			return errors.Wrapf(ErrInvalidValue, "column %d: objective coefficient %g", j, coefs[k])
		}
	}
	for k, j := range idx {
		c := p.cols[j-1]
		p.setColBounds(c, types[k], lb[k], ub[k])
		if coefs != nil {
			c.coef = coefs[k]
		}
	}
	return nil
}

// SetRhsZero fixes every row at zero.
func (p *Problem) SetRhsZero() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	for _, r := range p.rows {
		p.setRowBounds(r, Fixed, 0, 0)
	}
	return nil
}

func (p *Problem) RowType(i int) BoundType {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkRow(i) != nil {
		return 0
	}
	return p.rows[i-1].typ
}

// RowLower returns the lower bound of row i, -Inf if it has none.
func (p *Problem) RowLower(i int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkRow(i) != nil {
		return 0
	}
	return p.rows[i-1].lb
}

// RowUpper returns the upper bound of row i, +Inf if it has none.
func (p *Problem) RowUpper(i int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkRow(i) != nil {
		return 0
	}
	return p.rows[i-1].ub
}

func (p *Problem) ColType(j int) BoundType {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkCol(j) != nil {
		return 0
	}
	return p.cols[j-1].typ
}

// ColLower returns the lower bound of column j, -Inf if it has none.
func (p *Problem) ColLower(j int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkCol(j) != nil {
		return 0
	}
	return p.cols[j-1].lb
}

// ColUpper returns the upper bound of column j, +Inf if it has none.
func (p *Problem) ColUpper(j int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkCol(j) != nil {
		return 0
	}
	return p.cols[j-1].ub
}

func (p *Problem) RowsTypes(idx []int) []BoundType {
	out := make([]BoundType, len(idx))
	for k, i := range idx {
		out[k] = p.RowType(i)
	}
	return out
}

func (p *Problem) RowsLower(idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = p.RowLower(i)
	}
	return out
}

func (p *Problem) RowsUpper(idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = p.RowUpper(i)
	}
	return out
}

func (p *Problem) ColsLower(idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, j := range idx {
		out[k] = p.ColLower(j)
	}
	return out
}

func (p *Problem) ColsUpper(idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, j := range idx {
		out[k] = p.ColUpper(j)
	}
	return out
}
