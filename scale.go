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

// ScaleFlag selects the scaling steps of Scale.
type ScaleFlag int

const (
	ScaleGeometric   ScaleFlag = 0x01 // iterative geometric mean scaling
	ScaleEquilibrate ScaleFlag = 0x10 // equilibration scaling
	ScalePowerOfTwo  ScaleFlag = 0x20 // round factors to powers of two
	ScaleSkip        ScaleFlag = 0x40 // skip if the problem is well scaled
	ScaleAuto        ScaleFlag = 0x80 // choose automatically
)

const scaleFlagMask = ScaleGeometric | ScaleEquilibrate | ScalePowerOfTwo | ScaleSkip | ScaleAuto

// SetRowScale sets the scale factor of row i.
func (p *Problem) SetRowScale(i int, rii float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkRow(i); err != nil {
		return err
	}
	if !(rii > 0) || isInf(rii) {
		return errors.Wrapf(ErrInvalidValue, "row %d: scale factor %g", i, rii)
	}
	p.rows[i-1].rii = rii
	p.invalidateBasis()
	return nil
}

func (p *Problem) RowScale(i int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkRow(i) != nil {
		return 1
	}
	return p.rows[i-1].rii
}

// SetColScale sets the scale factor of column j.
func (p *Problem) SetColScale(j int, sjj float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkCol(j); err != nil {
		return err
	}
	if !(sjj > 0) || isInf(sjj) {
		return errors.Wrapf(ErrInvalidValue, "column %d: scale factor %g", j, sjj)
	}
	p.cols[j-1].sjj = sjj
	p.invalidateBasis()
	return nil
}

func (p *Problem) ColScale(j int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkCol(j) != nil {
		return 1
	}
	return p.cols[j-1].sjj
}

// Unscale resets every scale factor to one.
func (p *Problem) Unscale() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	p.unscale()
	return nil
}

func (p *Problem) unscale() {
	for _, r := range p.rows {
		r.rii = 1
	}
	for _, c := range p.cols {
		c.sjj = 1
	}
	p.invalidateBasis()
}

// Scale computes row and column scale factors for the constraint matrix.
// The coefficients themselves are never changed; the solvers work on
// R*A*S and report unscaled results.
func (p *Problem) Scale(flags ScaleFlag) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if flags&^scaleFlagMask != 0 {
		return errors.Wrapf(ErrInvalidOption, "scale flags %#x", int(flags))
	}
	if flags&ScaleAuto != 0 {
		flags = ScaleGeometric | ScaleEquilibrate | ScalePowerOfTwo | ScaleSkip
	}
	p.scale(flags)
	return nil
}

func (p *Problem) scale(flags ScaleFlag) {
	p.unscale()
	if p.nnz == 0 {
		return
	}
	if flags&ScaleSkip != 0 && p.scaleRatio() <= 10 {
		return
	}
	if flags&ScaleGeometric != 0 {
		p.gmScaling(0.90, 15)
	}
	if flags&ScaleEquilibrate != 0 {
		p.eqScaling()
	}
	if flags&ScalePowerOfTwo != 0 {
		for _, r := range p.rows {
			r.rii = roundPow2(r.rii)
		}
		for _, c := range p.cols {
			c.sjj = roundPow2(c.sjj)
		}
	}
}

func roundPow2(v float64) float64 {
	return math.Exp2(math.Round(math.Log2(v)))
}

// scaleRatio returns max|a~ij| / min|a~ij| for the scaled matrix.
func (p *Problem) scaleRatio() float64 {
	lo, hi := math.Inf(+1), 0.0
	for _, r := range p.rows {
		for e := r.ptr; e != nil; e = e.rnext {
			v := math.Abs(r.rii * e.val * e.col.sjj)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi == 0 {
		return 1
	}
	return hi / lo
}

// gmScaling runs geometric mean passes over rows and columns until the
// ratio improves by less than tau or itMax passes are done.
func (p *Problem) gmScaling(tau float64, itMax int) {
	ratio := p.scaleRatio()
	for it := 0; it < itMax; it++ {
		for _, r := range p.rows {
			lo, hi := math.Inf(+1), 0.0
			for e := r.ptr; e != nil; e = e.rnext {
				v := math.Abs(r.rii * e.val * e.col.sjj)
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			if hi > 0 {
				r.rii /= math.Sqrt(lo * hi)
			}
		}
		for _, c := range p.cols {
			lo, hi := math.Inf(+1), 0.0
			for e := c.ptr; e != nil; e = e.cnext {
				v := math.Abs(e.row.rii * e.val * c.sjj)
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			if hi > 0 {
				c.sjj /= math.Sqrt(lo * hi)
			}
		}
		next := p.scaleRatio()
		if next > tau*ratio {
			break
		}
		ratio = next
	}
}

// eqScaling makes the largest element of each row, then of each column,
// equal to one in magnitude.
func (p *Problem) eqScaling() {
	for _, r := range p.rows {
		hi := 0.0
		for e := r.ptr; e != nil; e = e.rnext {
			hi = math.Max(hi, math.Abs(r.rii*e.val*e.col.sjj))
		}
		if hi > 0 {
			r.rii /= hi
		}
	}
	for _, c := range p.cols {
		hi := 0.0
		for e := c.ptr; e != nil; e = e.cnext {
			hi = math.Max(hi, math.Abs(e.row.rii*e.val*c.sjj))
		}
		if hi > 0 {
			c.sjj /= hi
		}
	}
}
