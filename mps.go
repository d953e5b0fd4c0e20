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
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MPSFormat selects the MPS dialect.
type MPSFormat int

const (
	MPSDeck MPSFormat = 1 // fixed column positions
	MPSFile MPSFormat = 2 // free, blank separated
)

// field spans of fixed MPS data lines: columns 2-3, 5-12, 15-22, 25-36,
// 40-47 and 50-61.
var mpsSpans = [6][2]int{{1, 3}, {4, 12}, {14, 22}, {24, 36}, {39, 47}, {49, 61}}

type mpsSection int

const (
	mpsNone mpsSection = iota
	mpsObjSense
	mpsRows
	mpsColumns
	mpsRHS
	mpsRanges
	mpsBounds
	mpsEnd
)

var mpsHeaders = map[string]mpsSection{
	"OBJSENSE": mpsObjSense,
	"ROWS":     mpsRows,
	"COLUMNS":  mpsColumns,
	"RHS":      mpsRHS,
	"RANGES":   mpsRanges,
	"BOUNDS":   mpsBounds,
	"ENDATA":   mpsEnd,
}

// mpsReader accumulates a problem while reading the sections in order.
type mpsReader struct {
	lr     *lineReader
	format MPSFormat
	q      *Problem

	objRow  string
	rowType []byte
	rows    map[string]int
	cols    map[string]int
	integer bool
	ia, ja  []int
	ar      []float64
	rhs     []float64
	bounded map[int]bool
}

// ReadMPS replaces the problem by the one read from r in the given MPS
// format. Integer columns between MARKER lines default to bounds [0,1].
// The problem is unchanged on error.
func (p *Problem) ReadMPS(r io.Reader, format MPSFormat) error {
	if format != MPSDeck && format != MPSFile {
		return errors.Wrapf(ErrInvalidOption, "MPS format %d", int(format))
	}
	if err := p.checkAlive(); err != nil {
		return err
	}
	mr := &mpsReader{
		lr:      newLineReader(r, "mps"),
		format:  format,
		q:       scratch(),
		rows:    map[string]int{},
		cols:    map[string]int{},
		bounded: map[int]bool{},
	}
	if err := mr.read(); err != nil {
		return err
	}
	return p.commit(mr.q)
}

// fields splits a data line of the given section into the six fixed
// fields, empty where absent.
func (mr *mpsReader) fields(sec mpsSection) ([6]string, error) {
	var f [6]string
	line := mr.lr.text
	if mr.format == MPSDeck {
		for k, sp := range mpsSpans {
			if sp[0] >= len(line) {
				break
			}
			end := sp[1]
			if end > len(line) {
				end = len(line)
			}
			f[k] = strings.TrimSpace(line[sp[0]:end])
		}
		return f, nil
	}

	t := strings.Fields(line)
	switch sec {
	case mpsRows:
		if len(t) != 2 {
			return f, mr.lr.errorf("wrong number of fields")
		}
		f[0], f[1] = t[0], t[1]
	case mpsColumns:
		if len(t) == 3 && t[1] == "'MARKER'" {
			f[1], f[2], f[4] = t[0], t[1], t[2]
			return f, nil
		}
		if len(t) != 3 && len(t) != 5 {
			return f, mr.lr.errorf("wrong number of fields")
		}
		copy(f[1:], t)
	case mpsRHS, mpsRanges:
		switch len(t) {
		case 2, 4:
			copy(f[2:], t)
		case 3, 5:
			copy(f[1:], t)
		default:
			return f, mr.lr.errorf("wrong number of fields")
		}
	case mpsBounds:
		if len(t) < 2 {
			return f, mr.lr.errorf("wrong number of fields")
		}
		f[0] = t[0]
		want := 3
		switch t[0] {
		case "FR", "MI", "PL", "BV":
			want = 2
		}
		switch len(t) {
		case want:
			copy(f[2:], t[1:])
		case want + 1:
			copy(f[1:], t[1:])
		default:
			return f, mr.lr.errorf("wrong number of fields")
		}
	default:
		copy(f[1:], t)
	}
	return f, nil
}

func (mr *mpsReader) read() error {
	lr := mr.lr
	sec := mpsNone
	seenName := false
	for lr.next() {
		line := lr.text
		if strings.TrimSpace(line) == "" || line[0] == '*' {
			continue
		}
		if line[0] != ' ' && line[0] != '\t' {
			t := strings.Fields(line)
			if t[0] == "NAME" {
				if seenName || sec != mpsNone {
					return lr.errorf("misplaced NAME")
				}
				seenName = true
				if len(line) > 4 {
					mr.q.name = strings.TrimSpace(line[4:])
				}
				continue
			}
			next, ok := mpsHeaders[t[0]]
			if !ok {
				return lr.errorf("unknown section %q", t[0])
			}
			if next <= sec {
				return lr.errorf("section %s out of order", t[0])
			}
			if err := mr.enter(next); err != nil {
				return err
			}
			sec = next
			if sec == mpsEnd {
				break
			}
			if sec == mpsObjSense && len(t) > 1 {
				if err := mr.objSense(t[1]); err != nil {
					return err
				}
			}
			continue
		}

		f, err := mr.fields(sec)
		if err != nil {
			return err
		}
		switch sec {
		case mpsObjSense:
			err = mr.objSense(strings.TrimSpace(line))
		case mpsRows:
			err = mr.row(f)
		case mpsColumns:
			err = mr.column(f)
		case mpsRHS:
			err = mr.pairs(f, mr.setRHS)
		case mpsRanges:
			err = mr.pairs(f, mr.setRange)
		case mpsBounds:
			err = mr.bound(f)
		default:
			err = lr.errorf("data line outside of a section")
		}
		if err != nil {
			return err
		}
	}
	if err := lr.err(); err != nil {
		return err
	}
	if sec != mpsEnd {
		return errors.Wrap(ErrFormat, "mps: missing ENDATA")
	}
	return nil
}

// enter runs the work due when the reader moves on to section sec.
func (mr *mpsReader) enter(sec mpsSection) error {
	if sec > mpsColumns && mr.rhs == nil {
		if err := checkTriplets(mr.q.m(), mr.q.n(), mr.ia, mr.ja, mr.ar); err != nil {
			return errors.Wrap(err, "mps")
		}
		mr.q.loadMatrix(mr.ia, mr.ja, mr.ar)
		mr.rhs = make([]float64, mr.q.m())
		for i := range mr.rowType {
			mr.applyRow(i, 0)
		}
	}
	if sec == mpsEnd && mr.integer {
		return mr.lr.errorf("missing INTEND marker")
	}
	return nil
}

func (mr *mpsReader) objSense(s string) error {
	switch strings.ToUpper(s) {
	case "MAX", "MAXIMIZE":
		mr.q.dir = Maximize
	case "MIN", "MINIMIZE":
		mr.q.dir = Minimize
	default:
		return mr.lr.errorf("unknown objective sense %q", s)
	}
	return nil
}

func (mr *mpsReader) row(f [6]string) error {
	name := f[1]
	if name == "" {
		return mr.lr.errorf("missing row name")
	}
	if _, ok := mr.rows[name]; ok || name == mr.objRow {
		return mr.lr.errorf("row %q defined twice", name)
	}
	typ := strings.ToUpper(f[0])
	switch typ {
	case "N":
		if mr.objRow == "" {
			mr.objRow = name
			mr.q.objName = name
			return nil
		}
	case "L", "G", "E":
	default:
		return mr.lr.errorf("unknown row type %q", f[0])
	}
	if err := checkName(name); err != nil {
		return mr.lr.errorf("%v", err)
	}
	i := mr.q.addRows(1)
	mr.q.rows[i-1].name = name
	mr.rows[name] = i
	mr.rowType = append(mr.rowType, typ[0])
	return nil
}

// applyRow sets the bounds of row i (0-based) from its sense and rhs.
func (mr *mpsReader) applyRow(i int, rhs float64) {
	r := mr.q.rows[i]
	switch mr.rowType[i] {
	case 'L':
		mr.q.setRowBounds(r, Upper, 0, rhs)
	case 'G':
		mr.q.setRowBounds(r, Lower, rhs, 0)
	case 'E':
		mr.q.setRowBounds(r, Fixed, rhs, rhs)
	}
}

func (mr *mpsReader) column(f [6]string) error {
	if f[2] == "'MARKER'" {
		switch f[4] {
		case "'INTORG'":
			if mr.integer {
				return mr.lr.errorf("nested INTORG marker")
			}
			mr.integer = true
		case "'INTEND'":
			if !mr.integer {
				return mr.lr.errorf("INTEND marker without INTORG")
			}
			mr.integer = false
		default:
			return mr.lr.errorf("unknown marker %q", f[4])
		}
		return nil
	}

	name := f[1]
	if name == "" {
		return mr.lr.errorf("missing column name")
	}
	j, ok := mr.cols[name]
	if !ok {
		if err := checkName(name); err != nil {
			return mr.lr.errorf("%v", err)
		}
		j = mr.q.addCols(1)
		c := mr.q.cols[j-1]
		c.name = name
		mr.q.setColBounds(c, Lower, 0, 0)
		if mr.integer {
			c.kind = Integer
			mr.q.setColBounds(c, Double, 0, 1)
		}
		mr.cols[name] = j
	} else if j != mr.q.n() {
		return mr.lr.errorf("column %q is not contiguous", name)
	}

	for k := 2; k+1 < 6; k += 2 {
		if f[k] == "" {
			break
		}
		v, err := mr.lr.float(f[k+1])
		if err != nil {
			return err
		}
		if f[k] == mr.objRow {
			mr.q.cols[j-1].coef = v
			continue
		}
		i, ok := mr.rows[f[k]]
		if !ok {
			return mr.lr.errorf("unknown row %q", f[k])
		}
		mr.ia, mr.ja, mr.ar = append(mr.ia, i), append(mr.ja, j), append(mr.ar, v)
	}
	return nil
}

func (mr *mpsReader) pairs(f [6]string, set func(row string, v float64) error) error {
	for k := 2; k+1 < 6; k += 2 {
		if f[k] == "" {
			break
		}
		v, err := mr.lr.float(f[k+1])
		if err != nil {
			return err
		}
		if err := set(f[k], v); err != nil {
			return err
		}
	}
	return nil
}

func (mr *mpsReader) setRHS(name string, v float64) error {
	if name == mr.objRow {
		mr.q.c0 = -v
		return nil
	}
	i, ok := mr.rows[name]
	if !ok {
		return mr.lr.errorf("unknown row %q", name)
	}
	mr.rhs[i-1] = v
	mr.applyRow(i-1, v)
	return nil
}

// setRange turns a row into a double bounded one. RANGES must follow RHS,
// which the section order guarantees.
func (mr *mpsReader) setRange(name string, v float64) error {
	i, ok := mr.rows[name]
	if !ok {
		return mr.lr.errorf("unknown row %q", name)
	}
	r := mr.q.rows[i-1]
	rhs, rng := mr.rhs[i-1], math.Abs(v)
	lb, ub := rhs, rhs
	switch mr.rowType[i-1] {
	case 'N':
		return mr.lr.errorf("range on free row %q", name)
	case 'L':
		lb = rhs - rng
	case 'G':
		ub = rhs + rng
	case 'E':
		if v > 0 {
			ub = rhs + rng
		} else {
			lb = rhs - rng
		}
	}
	if lb == ub {
		mr.q.setRowBounds(r, Fixed, lb, ub)
	} else {
		mr.q.setRowBounds(r, Double, lb, ub)
	}
	return nil
}

func (mr *mpsReader) bound(f [6]string) error {
	typ := strings.ToUpper(f[0])
	j, ok := mr.cols[f[2]]
	if !ok {
		return mr.lr.errorf("unknown column %q", f[2])
	}
	c := mr.q.cols[j-1]
	lb, ub := c.lb, c.ub
	inf := math.Inf(1)
	var v float64
	switch typ {
	case "UP", "LO", "FX", "LI", "UI":
		var err error
		if v, err = mr.lr.float(f[3]); err != nil {
			return err
		}
	}
	switch typ {
	case "UP", "UI":
		if v < 0 && lb == 0 && !mr.bounded[j] {
			lb = -inf
		}
		ub = v
	case "LO", "LI":
		lb = v
	case "FX":
		lb, ub = v, v
	case "FR":
		lb, ub = -inf, inf
	case "MI":
		lb = -inf
	case "PL":
		ub = inf
	case "BV":
		lb, ub = 0, 1
	default:
		return mr.lr.errorf("unknown bound type %q", f[0])
	}
	switch typ {
	case "LI", "UI", "BV":
		c.kind = Integer
	}
	mr.bounded[j] = true
	if !isInf(lb) && !isInf(ub) && lb > ub {
		return mr.lr.errorf("column %q: lower bound %g above upper bound %g", f[2], lb, ub)
	}
	mr.q.setColBounds(c, boundsOf(lb, ub), lb, ub)
	return nil
}

// WriteMPS writes the problem in the given MPS format. Names that the
// format cannot carry are replaced by R and C followed by the ordinal.
func (p *Problem) WriteMPS(w io.Writer, format MPSFormat) error {
	if format != MPSDeck && format != MPSFile {
		return errors.Wrapf(ErrInvalidOption, "MPS format %d", int(format))
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return ErrDeleted
	}
	mw := &mpsWriter{w: bufio.NewWriter(w), format: format}
	p.writeMPS(mw)
	return errors.Wrap(mw.w.Flush(), "could not write problem")
}

type mpsWriter struct {
	w      *bufio.Writer
	format MPSFormat
}

func (mw *mpsWriter) name(name, prefix string, k int) string {
	ok := name != "" && !strings.ContainsAny(name, " \t") && name[0] != '*'
	if mw.format == MPSDeck && len(name) > 8 {
		ok = false
	}
	if ok {
		return name
	}
	return fmt.Sprintf("%s%d", prefix, k)
}

// num formats v, shortened to 12 characters for fixed MPS.
func (mw *mpsWriter) num(v float64) string {
	s := formatFloat(v)
	if mw.format == MPSFile || len(s) <= 12 {
		return s
	}
	for prec := 12; prec > 0; prec-- {
		s = strconv.FormatFloat(v, 'g', prec, 64)
		if len(s) <= 12 {
			break
		}
	}
	return s
}

func (mw *mpsWriter) line(f ...string) {
	if mw.format == MPSFile {
		fmt.Fprintf(mw.w, " %s\n", strings.TrimRight(strings.Join(f, " "), " "))
		return
	}
	var b strings.Builder
	for k, s := range f {
		for b.Len() < mpsSpans[k][0] {
			b.WriteByte(' ')
		}
		if k == 3 || k == 5 {
			// numbers are right aligned in their field
			width := mpsSpans[k][1] - mpsSpans[k][0]
			fmt.Fprintf(&b, "%*s", width, s)
			continue
		}
		b.WriteString(s)
	}
	fmt.Fprintln(mw.w, strings.TrimRight(b.String(), " "))
}

func (p *Problem) writeMPS(mw *mpsWriter) {
	w := mw.w
	obj := p.objName
	if obj == "" || mw.name(obj, "", 0) != obj {
		obj = "obj"
	}
	rowName := func(r *row) string { return mw.name(r.name, "R", r.i) }
	colName := func(c *column) string { return mw.name(c.name, "C", c.j) }

	fmt.Fprintf(w, "* Problem:    %s\n", p.name)
	class := "LP"
	if p.numInt() > 0 {
		class = "MIP"
	}
	fmt.Fprintf(w, "* Class:      %s\n", class)
	fmt.Fprintf(w, "* Rows:       %d\n", p.m())
	fmt.Fprintf(w, "* Columns:    %d\n", p.n())
	fmt.Fprintf(w, "* Non-zeros:  %d\n", p.nnz)
	fmt.Fprintln(w, "*")
	name := p.name
	if strings.ContainsAny(name, " \t") || (mw.format == MPSDeck && len(name) > 8) {
		name = ""
	}
	if mw.format == MPSDeck {
		fmt.Fprintf(w, "NAME          %s\n", name)
	} else {
		fmt.Fprintf(w, "NAME %s\n", name)
	}
	if p.dir == Maximize {
		fmt.Fprintln(w, "OBJSENSE")
		fmt.Fprintln(w, "    MAX")
	}

	fmt.Fprintln(w, "ROWS")
	mw.line("N", obj)
	for _, r := range p.rows {
		typ := "N"
		switch r.typ {
		case Lower, Double:
			typ = "G"
		case Upper:
			typ = "L"
		case Fixed:
			typ = "E"
		}
		mw.line(typ, rowName(r))
	}

	fmt.Fprintln(w, "COLUMNS")
	inInt, marker := false, 0
	for _, c := range p.cols {
		if (c.kind == Integer) != inInt {
			tag := "'INTORG'"
			if inInt {
				tag = "'INTEND'"
			}
			marker++
			mw.line("", fmt.Sprintf("M%07d", marker), "'MARKER'", "", tag)
			inInt = !inInt
		}
		// entries are written in pairs
		var pend []string
		flush := func() {
			mw.line(append([]string{"", colName(c)}, pend...)...)
			pend = pend[:0]
		}
		if c.coef != 0 || c.ptr == nil {
			pend = append(pend, obj, mw.num(c.coef))
		}
		for e := c.ptr; e != nil; e = e.cnext {
			pend = append(pend, rowName(e.row), mw.num(e.val))
			if len(pend) == 4 {
				flush()
			}
		}
		if len(pend) > 0 {
			flush()
		}
	}
	if inInt {
		marker++
		mw.line("", fmt.Sprintf("M%07d", marker), "'MARKER'", "", "'INTEND'")
	}

	var rhs [][2]string
	if p.c0 != 0 {
		rhs = append(rhs, [2]string{obj, mw.num(-p.c0)})
	}
	var ranges [][2]string
	for _, r := range p.rows {
		v := 0.0
		switch r.typ {
		case Lower, Double, Fixed:
			v = r.lb
		case Upper:
			v = r.ub
		}
		if v != 0 {
			rhs = append(rhs, [2]string{rowName(r), mw.num(v)})
		}
		if r.typ == Double {
			ranges = append(ranges, [2]string{rowName(r), mw.num(r.ub - r.lb)})
		}
	}
	writePairs := func(section string, pairs [][2]string) {
		if len(pairs) == 0 {
			return
		}
		fmt.Fprintln(w, section)
		for k := 0; k < len(pairs); k += 2 {
			f := []string{"", section, pairs[k][0], pairs[k][1]}
			if k+1 < len(pairs) {
				f = append(f, pairs[k+1][0], pairs[k+1][1])
			}
			mw.line(f...)
		}
	}
	writePairs("RHS", rhs)
	writePairs("RANGES", ranges)

	var bounds [][]string
	bound := func(typ string, c *column, v ...float64) {
		f := []string{typ, "BND", colName(c)}
		for _, x := range v {
			f = append(f, mw.num(x))
		}
		bounds = append(bounds, f)
	}
	for _, c := range p.cols {
		integer := c.kind == Integer
		switch c.typ {
		case Free:
			bound("FR", c)
		case Lower:
			if c.lb != 0 {
				bound("LO", c, c.lb)
			}
			if integer {
				bound("PL", c)
			}
		case Upper:
			bound("MI", c)
			bound("UP", c, c.ub)
		case Double:
			if c.lb != 0 {
				bound("LO", c, c.lb)
			}
			if !integer || c.ub != 1 {
				bound("UP", c, c.ub)
			}
		case Fixed:
			bound("FX", c, c.lb)
		}
	}
	if len(bounds) > 0 {
		fmt.Fprintln(w, "BOUNDS")
		for _, f := range bounds {
			mw.line(f...)
		}
	}
	fmt.Fprintln(w, "ENDATA")
}
