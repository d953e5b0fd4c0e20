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
	"sort"

	"github.com/pkg/errors"
)

// element is a non-zero of the constraint matrix, linked into the list of
// its row and the list of its column.
type element struct {
	row          *row
	col          *column
	val          float64
	rprev, rnext *element
	cprev, cnext *element
}

// link inserts a new element at the head of both lists.
func (p *Problem) link(r *row, c *column, val float64) *element {
	e := &element{row: r, col: c, val: val}
	e.rnext = r.ptr
	if r.ptr != nil {
		r.ptr.rprev = e
	}
	r.ptr = e
	e.cnext = c.ptr
	if c.ptr != nil {
		c.ptr.cprev = e
	}
	c.ptr = e
	p.nnz++
	return e
}

func (p *Problem) unlinkFromCol(e *element) {
	if e.cprev == nil {
		e.col.ptr = e.cnext
	} else {
		e.cprev.cnext = e.cnext
	}
	if e.cnext != nil {
		e.cnext.cprev = e.cprev
	}
}

func (p *Problem) unlinkFromRow(e *element) {
	if e.rprev == nil {
		e.row.ptr = e.rnext
	} else {
		e.rprev.rnext = e.rnext
	}
	if e.rnext != nil {
		e.rnext.rprev = e.rprev
	}
}

func (p *Problem) clearRow(r *row) {
	for e := r.ptr; e != nil; e = e.rnext {
		p.unlinkFromCol(e)
		p.nnz--
	}
	r.ptr = nil
}

func (p *Problem) clearCol(c *column) {
	for e := c.ptr; e != nil; e = e.cnext {
		p.unlinkFromRow(e)
		p.nnz--
	}
	c.ptr = nil
}

// checkTriplets validates a coordinate list against an m x n matrix: every
// index in range, every value finite and no (i, j) pair given twice.
func checkTriplets(m, n int, ia, ja []int, ar []float64) error {
	if len(ia) != len(ja) || (ar != nil && len(ar) != len(ia)) {
		return errors.Wrapf(ErrLength, "element arrays of different length")
	}
	for k := range ia {
		if !inRange(ia[k], 1, m) {
			return errors.Wrapf(ErrOutOfRange, "element %d: row %d", k+1, ia[k])
		}
		if !inRange(ja[k], 1, n) {
			return errors.Wrapf(ErrOutOfRange, "element %d: column %d", k+1, ja[k])
		}
		if ar != nil && !isFinite(ar[k]) {
			return errors.Wrapf(ErrInvalidValue, "element %d: value %g", k+1, ar[k])
		}
	}

	pos := make([]int, len(ia))
	for k := range pos {
		pos[k] = k
	}
	sort.SliceStable(pos, func(a, b int) bool {
		if ia[pos[a]] != ia[pos[b]] {
			return ia[pos[a]] < ia[pos[b]]
		}
		return ja[pos[a]] < ja[pos[b]]
	})
	for k := 1; k < len(pos); k++ {
		a, b := pos[k-1], pos[k]
		if ia[a] == ia[b] && ja[a] == ja[b] {
			return &DuplicateError{Row: ia[a], Col: ja[a], First: a + 1, Then: b + 1}
		}
	}
	return nil
}

// CheckDup checks the coordinate lists ia, ja of an m x n matrix for
// indices out of range and duplicate elements. A duplicate is reported as a
// *DuplicateError carrying both positions.
func CheckDup(m, n int, ia, ja []int) error {
	if m < 0 || n < 0 {
		return errors.Wrapf(ErrOutOfRange, "matrix size %d x %d", m, n)
	}
	return checkTriplets(m, n, ia, ja, nil)
}

// LoadMatrix replaces the whole constraint matrix by the elements given in
// coordinate form. Zero values are dropped. Nothing changes on error.
func (p *Problem) LoadMatrix(ia, ja []int, ar []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if ar == nil && len(ia) > 0 {
		return errors.Wrap(ErrLength, "missing element values")
	}
	if err := checkTriplets(p.m(), p.n(), ia, ja, ar); err != nil {
		return err
	}
	p.loadMatrix(ia, ja, ar)
	return nil
}

func (p *Problem) loadMatrix(ia, ja []int, ar []float64) {
	for _, r := range p.rows {
		r.ptr = nil
	}
	for _, c := range p.cols {
		c.ptr = nil
	}
	p.nnz = 0

	pos := make([]int, 0, len(ia))
	for k := range ia {
		if ar[k] != 0 {
			pos = append(pos, k)
		}
	}
	// descending order, so head insertion leaves both lists ascending
	sort.Slice(pos, func(a, b int) bool {
		if ia[pos[a]] != ia[pos[b]] {
			return ia[pos[a]] > ia[pos[b]]
		}
		return ja[pos[a]] > ja[pos[b]]
	})
	for _, k := range pos {
		p.link(p.rows[ia[k]-1], p.cols[ja[k]-1], ar[k])
	}
	p.structureChanged()
}

// SetMatRow replaces the content of row i. ind holds column ordinals.
func (p *Problem) SetMatRow(i int, ind []int, val []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkRow(i); err != nil {
		return err
	}
	ia := make([]int, len(ind))
	for k := range ia {
		ia[k] = i
	}
	if err := checkTriplets(p.m(), p.n(), ia, ind, val); err != nil {
		return errors.WithMessagef(err, "row %d", i)
	}
	p.setMatRow(p.rows[i-1], ind, val)
	return nil
}

func (p *Problem) setMatRow(r *row, ind []int, val []float64) {
	p.clearRow(r)
	for k := len(ind) - 1; k >= 0; k-- {
		if val[k] != 0 {
			p.link(r, p.cols[ind[k]-1], val[k])
		}
	}
	p.structureChanged()
}

// SetMatCol replaces the content of column j. ind holds row ordinals.
func (p *Problem) SetMatCol(j int, ind []int, val []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkCol(j); err != nil {
		return err
	}
	ja := make([]int, len(ind))
	for k := range ja {
		ja[k] = j
	}
	if err := checkTriplets(p.m(), p.n(), ind, ja, val); err != nil {
		return errors.WithMessagef(err, "column %d", j)
	}
	p.setMatCol(p.cols[j-1], ind, val)
	return nil
}

func (p *Problem) setMatCol(c *column, ind []int, val []float64) {
	p.clearCol(c)
	for k := len(ind) - 1; k >= 0; k-- {
		if val[k] != 0 {
			p.link(p.rows[ind[k]-1], c, val[k])
		}
	}
	p.structureChanged()
}

// MatRow returns the column ordinals and values of the non-zeros of row i.
func (p *Problem) MatRow(i int) ([]int, []float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkRow(i) != nil {
		return nil, nil
	}
	return p.matRow(p.rows[i-1])
}

func (p *Problem) matRow(r *row) ([]int, []float64) {
	var ind []int
	var val []float64
	for e := r.ptr; e != nil; e = e.rnext {
		ind = append(ind, e.col.j)
		val = append(val, e.val)
	}
	return ind, val
}

// MatCol returns the row ordinals and values of the non-zeros of column j.
func (p *Problem) MatCol(j int) ([]int, []float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkCol(j) != nil {
		return nil, nil
	}
	return p.matCol(p.cols[j-1])
}

func (p *Problem) matCol(c *column) ([]int, []float64) {
	var ind []int
	var val []float64
	for e := c.ptr; e != nil; e = e.cnext {
		ind = append(ind, e.row.i)
		val = append(val, e.val)
	}
	return ind, val
}

// SortMatrix orders every row list by column and every column list by row.
func (p *Problem) SortMatrix() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	p.sortMatrix()
	return nil
}

func (p *Problem) sortMatrix() {
	var ia, ja []int
	var ar []float64
	for _, r := range p.rows {
		for e := r.ptr; e != nil; e = e.rnext {
			ia = append(ia, r.i)
			ja = append(ja, e.col.j)
			ar = append(ar, e.val)
		}
	}
	valid, head, bfd := p.valid, p.head, p.bfd
	pbs, dbs, ipt, mip, ray := p.pbsStat, p.dbsStat, p.iptStat, p.mipStat, p.someRay
	p.loadMatrix(ia, ja, ar)
	// reordering the lists changes nothing the basis or solutions depend on
	p.valid, p.head, p.bfd = valid, head, bfd
	p.pbsStat, p.dbsStat, p.iptStat, p.mipStat, p.someRay = pbs, dbs, ipt, mip, ray
}

// checkDelList validates a deletion list: indices in range and none twice.
func checkDelList(what string, idx []int, max int) error {
	seen := make(map[int]struct{}, len(idx))
	for _, k := range idx {
		if !inRange(k, 1, max) {
			return errors.Wrapf(ErrOutOfRange, "%s %d", what, k)
		}
		if _, ok := seen[k]; ok {
			return errors.Wrapf(ErrOutOfRange, "%s %d given twice", what, k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// DelRows deletes the rows listed in idx and renumbers the remaining ones
// contiguously. Nothing changes unless the whole list is valid.
func (p *Problem) DelRows(idx []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if err := checkDelList("row", idx, p.m()); err != nil {
		return err
	}
	p.delRows(idx)
	return nil
}

func (p *Problem) delRows(idx []int) {
	if len(idx) == 0 {
		return
	}
	del := make(map[int]bool, len(idx))
	for _, i := range idx {
		del[i] = true
	}
	kept := p.rows[:0]
	for _, r := range p.rows {
		if del[r.i] {
			p.clearRow(r)
			if p.index != nil {
				p.index.removeRow(r)
			}
			continue
		}
		kept = append(kept, r)
	}
	for k := len(kept); k < len(p.rows); k++ {
		p.rows[k] = nil
	}
	p.rows = kept
	for k, r := range p.rows {
		r.i = k + 1
	}
	p.structureChanged()
}

// DelCols deletes the columns listed in idx and renumbers the remaining
// ones contiguously.
func (p *Problem) DelCols(idx []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if err := checkDelList("column", idx, p.n()); err != nil {
		return err
	}
	p.delCols(idx)
	return nil
}

func (p *Problem) delCols(idx []int) {
	if len(idx) == 0 {
		return
	}
	del := make(map[int]bool, len(idx))
	for _, j := range idx {
		del[j] = true
	}
	kept := p.cols[:0]
	for _, c := range p.cols {
		if del[c.j] {
			p.clearCol(c)
			if p.index != nil {
				p.index.removeCol(c)
			}
			continue
		}
		kept = append(kept, c)
	}
	for k := len(kept); k < len(p.cols); k++ {
		p.cols[k] = nil
	}
	p.cols = kept
	for k, c := range p.cols {
		c.j = k + 1
	}
	p.structureChanged()
}
