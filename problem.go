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
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// maxNameLen is the longest name accepted for problems, rows and columns.
const maxNameLen = 255

// Problem is an LP/MIP problem instance: rows (auxiliary variables),
// columns (structural variables), the constraint matrix linking them, the
// objective, the current basis and the three solutions computed on it.
//
// Rows and columns are addressed by 1-based ordinals. All methods are safe
// for concurrent use; calls on the same problem are serialized.
type Problem struct {
	mu      sync.RWMutex
	deleted bool
	logger  Logger
	termOut bool
	bfcp    Bfcp

	name    string
	objName string
	dir     Direction
	c0      float64

	rows []*row
	cols []*column
	nnz  int

	index *nameIndex

	// head[k-1] is the ordinal of the variable in basis slot k; rows are
	// 1..m and columns m+1..m+n. Only meaningful while valid.
	valid bool
	head  []int
	bfd   *bfd

	pbsStat SolStatus
	dbsStat SolStatus
	objVal  float64
	someRay int

	iptStat SolStatus
	iptObj  float64

	mipStat SolStatus
	mipObj  float64
}

type row struct {
	i      int
	name   string
	typ    BoundType
	lb, ub float64
	rii    float64
	ptr    *element
	stat   VarStatus
	bind   int
	prim   float64
	dual   float64
	pval   float64
	dval   float64
	mipx   float64
}

type column struct {
	j      int
	name   string
	kind   VarKind
	typ    BoundType
	lb, ub float64
	coef   float64
	sjj    float64
	ptr    *element
	stat   VarStatus
	bind   int
	prim   float64
	dual   float64
	pval   float64
	dval   float64
	mipx   float64
}

// NewProblem creates an empty minimization problem.
func NewProblem(opts ...Option) (*Problem, error) {
	p := &Problem{
		logger:  noopLogger{},
		termOut: true,
		bfcp:    *DefaultBfcp(),
	}
	p.reset()

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, errors.Wrap(err, "could not apply option")
		}
	}

	return p, nil
}

func (p *Problem) reset() {
	p.name = ""
	p.objName = ""
	p.dir = Minimize
	p.c0 = 0
	p.rows = nil
	p.cols = nil
	p.nnz = 0
	p.index = nil
	p.invalidateBasis()
	p.head = nil
	p.pbsStat, p.dbsStat = Undefined, Undefined
	p.objVal = 0
	p.someRay = 0
	p.iptStat, p.iptObj = Undefined, 0
	p.mipStat, p.mipObj = Undefined, 0
}

// Delete releases the problem. Every erroring method returns ErrDeleted
// afterwards and getters return zero values.
func (p *Problem) Delete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset()
	p.deleted = true
}

// Erase removes all content from the problem, keeping its options.
func (p *Problem) Erase() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	p.reset()
	return nil
}

// TermOut enables or disables solver output to the logger and returns the
// previous setting.
func (p *Problem) TermOut(on bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.termOut
	p.termOut = on
	return old
}

func (p *Problem) m() int { return len(p.rows) }
func (p *Problem) n() int { return len(p.cols) }

func (p *Problem) checkRow(i int) error {
	if p.deleted {
		return ErrDeleted
	}
	if !inRange(i, 1, p.m()) {
		return errors.Wrapf(ErrOutOfRange, "row %d", i)
	}
	return nil
}

func (p *Problem) checkCol(j int) error {
	if p.deleted {
		return ErrDeleted
	}
	if !inRange(j, 1, p.n()) {
		return errors.Wrapf(ErrOutOfRange, "column %d", j)
	}
	return nil
}

func checkName(name string) error {
	if len(name) > maxNameLen {
		return errors.Wrapf(ErrInvalidName, "name longer than %d bytes", maxNameLen)
	}
	if !utf8.ValidString(name) {
		return errors.Wrap(ErrInvalidName, "name is not valid UTF-8")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return errors.Wrapf(ErrInvalidName, "name %q contains control characters", name)
		}
	}
	return nil
}

func (p *Problem) setName(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	p.name = name
	return nil
}

// SetName sets the problem name.
func (p *Problem) SetName(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	return p.setName(name)
}

func (p *Problem) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.name
}

// SetObjName sets the name of the objective function.
func (p *Problem) SetObjName(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if err := checkName(name); err != nil {
		return err
	}
	p.objName = name
	return nil
}

func (p *Problem) ObjName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.objName
}

// SetObjDir sets the optimization direction.
func (p *Problem) SetObjDir(dir Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if dir != Minimize && dir != Maximize {
		return errors.Wrapf(ErrInvalidOption, "direction %d", int(dir))
	}
	p.dir = dir
	return nil
}

func (p *Problem) ObjDir() Direction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.dir
}

// AddRows appends n free rows and returns the ordinal of the first one.
// Adding zero rows changes nothing and returns the ordinal the next row
// would get.
func (p *Problem) AddRows(n int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return 0, ErrDeleted
	}
	if n < 0 {
		return 0, errors.Wrapf(ErrOutOfRange, "cannot add %d rows", n)
	}
	return p.addRows(n), nil
}

func (p *Problem) addRows(n int) int {
	first := p.m() + 1
	if n == 0 {
		return first
	}
	for k := 0; k < n; k++ {
		p.rows = append(p.rows, &row{
			i:    first + k,
			typ:  Free,
			lb:   math.Inf(-1),
			ub:   math.Inf(+1),
			rii:  1,
			stat: Basic,
		})
	}
	p.structureChanged()
	return first
}

// AddCols appends n columns, continuous and fixed at zero, and returns the
// ordinal of the first one.
func (p *Problem) AddCols(n int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return 0, ErrDeleted
	}
	if n < 0 {
		return 0, errors.Wrapf(ErrOutOfRange, "cannot add %d columns", n)
	}
	return p.addCols(n), nil
}

func (p *Problem) addCols(n int) int {
	first := p.n() + 1
	if n == 0 {
		return first
	}
	for k := 0; k < n; k++ {
		p.cols = append(p.cols, &column{
			j:    first + k,
			kind: Continuous,
			typ:  Fixed,
			sjj:  1,
			stat: NonBasicFixed,
		})
	}
	p.structureChanged()
	return first
}

// structureChanged drops the factorization and every solution.
func (p *Problem) structureChanged() {
	p.invalidateBasis()
	p.pbsStat, p.dbsStat = Undefined, Undefined
	p.someRay = 0
	p.iptStat = Undefined
	p.mipStat = Undefined
}

func (p *Problem) invalidateBasis() {
	p.valid = false
	p.bfd = nil
}

// SetRowName sets the name of row i. The empty string removes it.
func (p *Problem) SetRowName(i int, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkRow(i); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	p.setRowName(p.rows[i-1], name)
	return nil
}

func (p *Problem) setRowName(r *row, name string) {
	if p.index != nil {
		p.index.removeRow(r)
	}
	r.name = name
	if p.index != nil {
		p.index.addRow(r)
	}
}

func (p *Problem) RowName(i int) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkRow(i) != nil {
		return ""
	}
	return p.rows[i-1].name
}

// SetColName sets the name of column j. The empty string removes it.
func (p *Problem) SetColName(j int, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkCol(j); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	p.setColName(p.cols[j-1], name)
	return nil
}

func (p *Problem) setColName(c *column, name string) {
	if p.index != nil {
		p.index.removeCol(c)
	}
	c.name = name
	if p.index != nil {
		p.index.addCol(c)
	}
}

func (p *Problem) ColName(j int) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkCol(j) != nil {
		return ""
	}
	return p.cols[j-1].name
}

// SetRowNames names the rows listed in idx. Nothing changes unless every
// index and name is valid.
func (p *Problem) SetRowNames(idx []int, names []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(idx) != len(names) {
		return errors.Wrapf(ErrLength, "%d indices for %d names", len(idx), len(names))
	}
	for k, i := range idx {
		if err := p.checkRow(i); err != nil {
			return err
		}
		if err := checkName(names[k]); err != nil {
			return err
		}
	}
	for k, i := range idx {
		p.setRowName(p.rows[i-1], names[k])
	}
	return nil
}

// SetColNames names the columns listed in idx.
func (p *Problem) SetColNames(idx []int, names []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(idx) != len(names) {
		return errors.Wrapf(ErrLength, "%d indices for %d names", len(idx), len(names))
	}
	for k, j := range idx {
		if err := p.checkCol(j); err != nil {
			return err
		}
		if err := checkName(names[k]); err != nil {
			return err
		}
	}
	for k, j := range idx {
		p.setColName(p.cols[j-1], names[k])
	}
	return nil
}

func (p *Problem) NumRows() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.m()
}

func (p *Problem) NumCols() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.n()
}

// NumNonzeros returns the number of constraint matrix elements.
func (p *Problem) NumNonzeros() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.nnz
}

// NumInt returns the number of integer columns, binary ones included.
func (p *Problem) NumInt() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.numInt()
}

func (p *Problem) numInt() int {
	cnt := 0
	for _, c := range p.cols {
		if c.kind == Integer {
			cnt++
		}
	}
	return cnt
}

// NumBin returns the number of binary columns.
func (p *Problem) NumBin() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.numBin()
}

func (p *Problem) numBin() int {
	cnt := 0
	for _, c := range p.cols {
		if c.isBinary() {
			cnt++
		}
	}
	return cnt
}

func (c *column) isBinary() bool {
	return c.kind == Integer && c.typ == Double && c.lb == 0 && c.ub == 1
}

// SetColKind sets the kind of column j. Binary makes the column integer
// with bounds [0,1].
func (p *Problem) SetColKind(j int, kind VarKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkCol(j); err != nil {
		return err
	}
	if kind < Continuous || kind > Binary {
		return errors.Wrapf(ErrInvalidKind, "column %d: kind %d", j, int(kind))
	}
	p.setColKind(p.cols[j-1], kind)
	return nil
}

func (p *Problem) setColKind(c *column, kind VarKind) {
	switch kind {
	case Binary:
		c.kind = Integer
		p.setColBounds(c, Double, 0, 1)
	default:
		c.kind = kind
	}
}

// SetColsKind sets the kinds of the columns listed in idx.
func (p *Problem) SetColsKind(idx []int, kinds []VarKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(idx) != len(kinds) {
		return errors.Wrapf(ErrLength, "%d indices for %d kinds", len(idx), len(kinds))
	}
	for k, j := range idx {
		if err := p.checkCol(j); err != nil {
			return err
		}
		if kinds[k] < Continuous || kinds[k] > Binary {
			return errors.Wrapf(ErrInvalidKind, "column %d: kind %d", j, int(kinds[k]))
		}
	}
	for k, j := range idx {
		p.setColKind(p.cols[j-1], kinds[k])
	}
	return nil
}

// ColKind returns the kind of column j, Binary for integer columns with
// bounds [0,1].
func (p *Problem) ColKind(j int) VarKind {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.checkCol(j) != nil {
		return 0
	}
	c := p.cols[j-1]
	if c.isBinary() {
		return Binary
	}
	return c.kind
}

func (p *Problem) ColsKind(idx []int) []VarKind {
	out := make([]VarKind, len(idx))
	for k, j := range idx {
		out[k] = p.ColKind(j)
	}
	return out
}

// SetObjCoef sets the objective coefficient of column j; j = 0 sets the
// constant term.
func (p *Problem) SetObjCoef(j int, coef float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if !inRange(j, 0, p.n()) {
		return errors.Wrapf(ErrOutOfRange, "column %d", j)
	}
	if !isFinite(coef) {
		return errors.Wrapf(ErrInvalidValue, "objective coefficient %g", coef)
	}
	if j == 0 {
		p.c0 = coef
	} else {
		p.cols[j-1].coef = coef
	}
	return nil
}

// SetObjCoefs sets the objective coefficients of the columns listed in idx.
func (p *Problem) SetObjCoefs(idx []int, coefs []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if len(idx) != len(coefs) {
		return errors.Wrapf(ErrLength, "%d indices for %d coefficients", len(idx), len(coefs))
	}
	for k, j := range idx {
		if !inRange(j, 0, p.n()) {
			return errors.Wrapf(ErrOutOfRange, "column %d", j)
		}
		if !isFinite(coefs[k]) {
			return errors.Wrapf(ErrInvalidValue, "objective coefficient %g", coefs[k])
		}
	}
	for k, j := range idx {
		if j == 0 {
			p.c0 = coefs[k]
		} else {
			p.cols[j-1].coef = coefs[k]
		}
	}
	return nil
}

// ObjCoef returns the objective coefficient of column j, or the constant
// term for j = 0.
func (p *Problem) ObjCoef(j int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted || !inRange(j, 0, p.n()) {
		return 0
	}
	if j == 0 {
		return p.c0
	}
	return p.cols[j-1].coef
}

func (p *Problem) ObjCoefs(idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, j := range idx {
		out[k] = p.ObjCoef(j)
	}
	return out
}

// Copy returns a deep copy of the problem including its basis and
// solutions. Names are copied only if names is set.
func (p *Problem) Copy(names bool) (*Problem, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return nil, ErrDeleted
	}
	q := &Problem{logger: p.logger, termOut: p.termOut}
	p.copyTo(q, names)
	return q, nil
}

// CopyTo replaces the content of dst by a copy of p.
func (p *Problem) CopyTo(dst *Problem, names bool) error {
	if dst == p {
		return errors.Wrap(ErrInvalidOption, "cannot copy a problem onto itself")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	dst.mu.Lock()
	defer dst.mu.Unlock()

	if p.deleted || dst.deleted {
		return ErrDeleted
	}
	p.copyTo(dst, names)
	return nil
}

func (p *Problem) copyTo(q *Problem, names bool) {
	q.reset()
	q.bfcp = p.bfcp
	if names {
		q.name = p.name
		q.objName = p.objName
	}
	q.dir = p.dir
	q.c0 = p.c0

	q.rows = make([]*row, p.m())
	for i, r := range p.rows {
		nr := *r
		nr.ptr = nil
		nr.bind = 0
		if !names {
			nr.name = ""
		}
		q.rows[i] = &nr
	}
	q.cols = make([]*column, p.n())
	for j, c := range p.cols {
		nc := *c
		nc.ptr = nil
		nc.bind = 0
		if !names {
			nc.name = ""
		}
		q.cols[j] = &nc
	}
	// walk backwards so head insertion keeps the row order
	for i := p.m() - 1; i >= 0; i-- {
		r := p.rows[i]
		var elems []*element
		for e := r.ptr; e != nil; e = e.rnext {
			elems = append(elems, e)
		}
		for k := len(elems) - 1; k >= 0; k-- {
			e := elems[k]
			q.link(q.rows[e.row.i-1], q.cols[e.col.j-1], e.val)
		}
	}
	q.nnz = p.nnz

	q.pbsStat, q.dbsStat = p.pbsStat, p.dbsStat
	q.objVal = p.objVal
	q.someRay = p.someRay
	q.iptStat, q.iptObj = p.iptStat, p.iptObj
	q.mipStat, q.mipObj = p.mipStat, p.mipObj
}
