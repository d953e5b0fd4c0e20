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
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// SetRowStat sets the basis status of row i. A non-basic status that does
// not fit the row's bound type is replaced by the one that does.
func (p *Problem) SetRowStat(i int, stat VarStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkRow(i); err != nil {
		return err
	}
	if !stat.valid() {
		return errors.Wrapf(ErrInvalidStatus, "row %d: status %d", i, int(stat))
	}
	r := p.rows[i-1]
	p.setStat(&r.stat, r.typ, stat)
	return nil
}

// SetColStat sets the basis status of column j, like SetRowStat.
func (p *Problem) SetColStat(j int, stat VarStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkCol(j); err != nil {
		return err
	}
	if !stat.valid() {
		return errors.Wrapf(ErrInvalidStatus, "column %d: status %d", j, int(stat))
	}
	c := p.cols[j-1]
	p.setStat(&c.stat, c.typ, stat)
	return nil
}

func (p *Problem) setStat(dst *VarStatus, typ BoundType, stat VarStatus) {
	if stat != Basic {
		stat = nonBasicStat(typ, stat)
	}
	if (*dst == Basic) != (stat == Basic) {
		p.invalidateBasis()
	}
	*dst = stat
}

func (p *Problem) RowStat(i int) VarStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkRow(i) != nil {
		return 0
	}
	return p.rows[i-1].stat
}

func (p *Problem) ColStat(j int) VarStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkCol(j) != nil {
		return 0
	}
	return p.cols[j-1].stat
}

func (p *Problem) RowsStat(idx []int) []VarStatus {
	out := make([]VarStatus, len(idx))
	for k, i := range idx {
		out[k] = p.RowStat(i)
	}
	return out
}

func (p *Problem) ColsStat(idx []int) []VarStatus {
	out := make([]VarStatus, len(idx))
	for k, j := range idx {
		out[k] = p.ColStat(j)
	}
	return out
}

// colStdStat is the non-basic status a column gets in the standard basis.
func colStdStat(c *column) VarStatus {
	if c.typ == Double && math.Abs(c.lb) > math.Abs(c.ub) {
		return NonBasicUpper
	}
	return nonBasicStat(c.typ, NonBasicLower)
}

// StdBasis installs the trivial basis: every row basic, every column
// non-basic.
func (p *Problem) StdBasis() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	p.stdBasis()
	return nil
}

func (p *Problem) stdBasis() {
	for _, r := range p.rows {
		r.stat = Basic
	}
	for _, c := range p.cols {
		c.stat = colStdStat(c)
	}
	p.invalidateBasis()
}

// AdvBasis installs a triangular basis built by repeatedly pivoting on row
// singletons of the active submatrix.
func (p *Problem) AdvBasis() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	p.advBasis()
	return nil
}

func (p *Problem) advBasis() {
	p.stdBasis()
	m := p.m()
	rowOn := make([]bool, m)
	cnt := make([]int, m)
	colOn := make([]bool, p.n())
	for j, c := range p.cols {
		colOn[j] = c.typ != Fixed
	}
	for i, r := range p.rows {
		rowOn[i] = r.typ != Free
		for e := r.ptr; e != nil; e = e.rnext {
			if colOn[e.col.j-1] {
				cnt[i]++
			}
		}
	}
	colMax := func(c *column) float64 {
		max := 0.0
		for e := c.ptr; e != nil; e = e.cnext {
			if rowOn[e.row.i-1] {
				max = math.Max(max, math.Abs(e.val))
			}
		}
		return max
	}
	dropCol := func(c *column) {
		colOn[c.j-1] = false
		for e := c.ptr; e != nil; e = e.cnext {
			cnt[e.row.i-1]--
		}
	}

	for {
		// an active row with a single active column pivots on it
		best := -1
		for i := 0; i < m; i++ {
			if rowOn[i] && cnt[i] == 1 && (best < 0 || p.rows[i].typ == Fixed) {
				best = i
			}
		}
		if best < 0 {
			// drop the densest active row; its auxiliary variable stays basic
			for i := 0; i < m; i++ {
				if rowOn[i] && (best < 0 || cnt[i] > cnt[best]) {
					best = i
				}
			}
			if best < 0 || cnt[best] == 0 {
				break
			}
			rowOn[best] = false
			continue
		}
		r := p.rows[best]
		var piv *element
		for e := r.ptr; e != nil; e = e.rnext {
			if colOn[e.col.j-1] {
				piv = e
			}
		}
		rowOn[best] = false
		c := piv.col
		if math.Abs(piv.val) < 0.01*colMax(c) {
			dropCol(c)
			continue
		}
		dropCol(c)
		c.stat = Basic
		r.stat = nonBasicStat(r.typ, NonBasicLower)
	}
}

// CpxBasis installs the crash basis of Bixby (1992): columns are taken in
// order of preference (free, one bound, two bounds; small cost first) as
// long as the basis matrix stays triangular with dominant pivots.
func (p *Problem) CpxBasis() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	p.cpxBasis()
	return nil
}

func (p *Problem) cpxBasis() {
	p.stdBasis()
	m := p.m()
	covered := make([]bool, m) // a chosen column pivots in this row
	touched := make([]int, m)  // chosen columns with a non-zero here
	pivot := make([]float64, m)

	cmax := 0.0
	for _, c := range p.cols {
		cmax = math.Max(cmax, math.Abs(c.coef))
	}
	if cmax == 0 {
		cmax = 1
	}
	class := func(c *column) float64 {
		switch c.typ {
		case Free:
			return 0
		case Lower, Upper:
			return 1
		}
		return 2
	}
	var order []*column
	for _, c := range p.cols {
		if c.typ != Fixed && c.ptr != nil {
			order = append(order, c)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := class(order[a]), class(order[b])
		if ca != cb {
			return ca < cb
		}
		return math.Abs(order[a].coef) < math.Abs(order[b].coef)
	})

	for _, c := range order {
		amax := 0.0
		for e := c.ptr; e != nil; e = e.cnext {
			amax = math.Max(amax, math.Abs(e.val))
		}
		ok := true
		for e := c.ptr; e != nil; e = e.cnext {
			i := e.row.i - 1
			if covered[i] && math.Abs(e.val) > 0.01*pivot[i] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		var pick *element
		for e := c.ptr; e != nil; e = e.cnext {
			i := e.row.i - 1
			if e.row.typ == Free || covered[i] || touched[i] > 0 {
				continue
			}
			if math.Abs(e.val) >= 0.99*amax && (pick == nil || math.Abs(e.val) > math.Abs(pick.val)) {
				pick = e
			}
		}
		if pick == nil {
			for e := c.ptr; e != nil; e = e.cnext {
				i := e.row.i - 1
				if e.row.typ == Free || covered[i] {
					continue
				}
				if pick == nil || math.Abs(e.val) > math.Abs(pick.val) {
					pick = e
				}
			}
		}
		if pick == nil || math.Abs(pick.val) < 0.01*amax {
			continue
		}
		i := pick.row.i - 1
		covered[i] = true
		pivot[i] = math.Abs(pick.val)
		for e := c.ptr; e != nil; e = e.cnext {
			touched[e.row.i-1]++
		}
		c.stat = Basic
		pick.row.stat = nonBasicStat(pick.row.typ, NonBasicLower)
	}
}

// WarmUp factorizes the current basis if needed and computes the basic
// solution belonging to it, with its primal and dual feasibility statuses.
func (p *Problem) WarmUp() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	defer recoverSolve(p.logger, &err)

	return p.warmUp()
}

func (p *Problem) warmUp() error {
	p.pbsStat, p.dbsStat = Undefined, Undefined
	sx, err := newSpx(context.Background(), p, DefaultSmcp())
	if err != nil {
		p.invalidateBasis()
		return err
	}
	sx.computeBeta()
	sx.pbs, sx.dbs = Infeasible, Infeasible
	if sx.infeasibility() == 0 {
		sx.pbs = Feasible
	}
	if sx.dualFeasible() {
		sx.dbs = Feasible
	}
	sx.store()
	return nil
}

// Factorize computes the factorization of the current basis matrix.
func (p *Problem) Factorize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	p.invalidateBasis()
	sx, err := newSpx(context.Background(), p, DefaultSmcp())
	if err != nil {
		return err
	}
	p.installBasis(sx)
	return nil
}

func (p *Problem) installBasis(sx *spx) {
	p.head = make([]int, sx.m)
	for _, r := range p.rows {
		r.bind = 0
	}
	for _, c := range p.cols {
		c.bind = 0
	}
	for slot, k := range sx.head {
		p.head[slot] = k + 1
		if k < sx.m {
			p.rows[k].bind = slot + 1
		} else {
			p.cols[k-sx.m].bind = slot + 1
		}
	}
	p.bfd = sx.bf
	p.valid = true
}

// BfExists reports whether a factorization of the current basis exists.
func (p *Problem) BfExists() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.valid
}

// BfUpdated reports whether the factorization was updated since it was
// last computed from scratch.
func (p *Problem) BfUpdated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.valid && p.bfd.updated()
}

// SetBfcp changes the factorization parameters; nil restores the
// defaults. The current factorization is dropped.
func (p *Problem) SetBfcp(parm *Bfcp) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if parm == nil {
		parm = DefaultBfcp()
	}
	if err := parm.validate(); err != nil {
		return err
	}
	p.bfcp = *parm
	p.invalidateBasis()
	return nil
}

func (p *Problem) Bfcp() Bfcp {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.bfcp
}

// BHead returns the ordinal of the variable in basis slot k: i for row i,
// m+j for column j.
func (p *Problem) BHead(k int) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.needFactorization(); err != nil {
		return 0, err
	}
	if !inRange(k, 1, p.m()) {
		return 0, errors.Wrapf(ErrOutOfRange, "basis slot %d", k)
	}
	return p.head[k-1], nil
}

// RowBind returns the basis slot of row i, 0 if it is non-basic.
func (p *Problem) RowBind(i int) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.needFactorization(); err != nil {
		return 0, err
	}
	if err := p.checkRow(i); err != nil {
		return 0, err
	}
	return p.rows[i-1].bind, nil
}

// ColBind returns the basis slot of column j, 0 if it is non-basic.
func (p *Problem) ColBind(j int) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.needFactorization(); err != nil {
		return 0, err
	}
	if err := p.checkCol(j); err != nil {
		return 0, err
	}
	return p.cols[j-1].bind, nil
}

func (p *Problem) needFactorization() error {
	if p.deleted {
		return ErrDeleted
	}
	if !p.valid {
		return ErrNoFactorization
	}
	return nil
}

// sigmaOf is the scale of variable k (1-based ordinal) in the working space.
func (p *Problem) sigmaOf(k int) float64 {
	if k <= p.m() {
		return p.rows[k-1].rii
	}
	return 1 / p.cols[k-p.m()-1].sjj
}

// Ftran solves B*x = b for the unscaled basis matrix B. x, given as b
// indexed by row, is overwritten with the solution indexed by basis slot.
func (p *Problem) Ftran(x []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.needFactorization(); err != nil {
		return err
	}
	if len(x) != p.m() {
		return errors.Wrapf(ErrLength, "vector of length %d for %d rows", len(x), p.m())
	}
	for i, r := range p.rows {
		x[i] *= r.rii
	}
	p.bfd.ftran(x)
	for slot, k := range p.head {
		x[slot] /= p.sigmaOf(k)
	}
	return nil
}

// Btran solves B'*x = b for the unscaled basis matrix B. x, given as b
// indexed by basis slot, is overwritten with the solution indexed by row.
func (p *Problem) Btran(x []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.needFactorization(); err != nil {
		return err
	}
	if len(x) != p.m() {
		return errors.Wrapf(ErrLength, "vector of length %d for %d rows", len(x), p.m())
	}
	for slot, k := range p.head {
		x[slot] /= p.sigmaOf(k)
	}
	p.bfd.btran(x)
	for i, r := range p.rows {
		x[i] *= r.rii
	}
	return nil
}

func (p *Problem) varStat(k int) VarStatus {
	if k <= p.m() {
		return p.rows[k-1].stat
	}
	return p.cols[k-p.m()-1].stat
}

func (p *Problem) varBind(k int) int {
	if k <= p.m() {
		return p.rows[k-1].bind
	}
	return p.cols[k-p.m()-1].bind
}

// EvalTabRow returns the row of the simplex table for basic variable k
// (ordinal as in BHead): x[k] = sum val[t] * x[ind[t]] over the non-basic
// variables ind.
func (p *Problem) EvalTabRow(k int) ([]int, []float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.needFactorization(); err != nil {
		return nil, nil, err
	}
	if !inRange(k, 1, p.m()+p.n()) {
		return nil, nil, errors.Wrapf(ErrOutOfRange, "variable %d", k)
	}
	if p.varStat(k) != Basic {
		return nil, nil, errors.Wrapf(ErrInvalidStatus, "variable %d is not basic", k)
	}
	return p.evalTabRow(k)
}

func (p *Problem) evalTabRow(k int) ([]int, []float64, error) {
	sx, err := newSpx(context.Background(), p, DefaultSmcp())
	if err != nil {
		return nil, nil, err
	}
	row := sx.pivotRow(p.varBind(k) - 1)
	var ind []int
	var val []float64
	for j, a := range row {
		if sx.stat[j] == Basic || a == 0 {
			continue
		}
		ind = append(ind, j+1)
		val = append(val, -a*sx.sigma[j]/sx.sigma[k-1])
	}
	return ind, val, nil
}

// EvalTabCol returns the column of the simplex table for non-basic variable
// k: the basic variables ind change by val[t] per unit of x[k].
func (p *Problem) EvalTabCol(k int) ([]int, []float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.needFactorization(); err != nil {
		return nil, nil, err
	}
	if !inRange(k, 1, p.m()+p.n()) {
		return nil, nil, errors.Wrapf(ErrOutOfRange, "variable %d", k)
	}
	if p.varStat(k) == Basic {
		return nil, nil, errors.Wrapf(ErrInvalidStatus, "variable %d is basic", k)
	}
	return p.evalTabCol(k)
}

func (p *Problem) evalTabCol(k int) ([]int, []float64, error) {
	sx, err := newSpx(context.Background(), p, DefaultSmcp())
	if err != nil {
		return nil, nil, err
	}
	alpha := sx.ftranCol(k - 1)
	var ind []int
	var val []float64
	for slot, a := range alpha {
		if a == 0 {
			continue
		}
		b := sx.head[slot]
		ind = append(ind, b+1)
		val = append(val, -a*sx.sigma[k-1]/sx.sigma[b])
	}
	return ind, val, nil
}
