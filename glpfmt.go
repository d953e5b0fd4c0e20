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
	"strings"

	"github.com/pkg/errors"
)

// WriteProb writes the problem in the native text format. Numbers are
// written with enough digits to be read back exactly.
//
//	p lp|mip min|max rows cols nonzeros
//	n p|z name            problem and objective names
//	i row f|l lb|u ub|d lb ub|s val
//	j col [c|i|b] f|l lb|u ub|d lb ub|s val
//	n i|j ordinal name
//	a 0 0|col coef        objective constant and coefficients
//	a row col val
//	e o f
//
// Rows not listed are free, columns not listed are continuous and fixed at
// zero.
func (p *Problem) WriteProb(w io.Writer) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return ErrDeleted
	}
	bw := bufio.NewWriter(w)
	mip := p.numInt() > 0
	kind, dir := "lp", "min"
	if mip {
		kind = "mip"
	}
	if p.dir == Maximize {
		dir = "max"
	}
	fmt.Fprintf(bw, "c Problem:    %s\n", p.name)
	fmt.Fprintf(bw, "c Rows:       %d\n", p.m())
	if mip {
		fmt.Fprintf(bw, "c Columns:    %d (%d integer, %d binary)\n", p.n(), p.numInt(), p.numBin())
	} else {
		fmt.Fprintf(bw, "c Columns:    %d\n", p.n())
	}
	fmt.Fprintf(bw, "c Non-zeros:  %d\n", p.nnz)
	fmt.Fprintln(bw, "c")
	fmt.Fprintf(bw, "p %s %s %d %d %d\n", kind, dir, p.m(), p.n(), p.nnz)
	if p.name != "" {
		fmt.Fprintf(bw, "n p %s\n", p.name)
	}
	if p.objName != "" {
		fmt.Fprintf(bw, "n z %s\n", p.objName)
	}

	for _, r := range p.rows {
		if r.typ != Free {
			fmt.Fprintf(bw, "i %d %s\n", r.i, glpBounds(r.typ, r.lb, r.ub))
		}
	}
	for _, c := range p.cols {
		switch {
		case mip && c.isBinary():
			fmt.Fprintf(bw, "j %d b\n", c.j)
		case mip && c.kind == Integer:
			fmt.Fprintf(bw, "j %d i %s\n", c.j, glpBounds(c.typ, c.lb, c.ub))
		case c.typ == Fixed && c.lb == 0:
		case mip:
			fmt.Fprintf(bw, "j %d c %s\n", c.j, glpBounds(c.typ, c.lb, c.ub))
		default:
			fmt.Fprintf(bw, "j %d %s\n", c.j, glpBounds(c.typ, c.lb, c.ub))
		}
	}
	for _, r := range p.rows {
		if r.name != "" {
			fmt.Fprintf(bw, "n i %d %s\n", r.i, r.name)
		}
	}
	for _, c := range p.cols {
		if c.name != "" {
			fmt.Fprintf(bw, "n j %d %s\n", c.j, c.name)
		}
	}
	if p.c0 != 0 {
		fmt.Fprintf(bw, "a 0 0 %s\n", formatFloat(p.c0))
	}
	for _, c := range p.cols {
		if c.coef != 0 {
			fmt.Fprintf(bw, "a 0 %d %s\n", c.j, formatFloat(c.coef))
		}
	}
	for _, r := range p.rows {
		for e := r.ptr; e != nil; e = e.rnext {
			fmt.Fprintf(bw, "a %d %d %s\n", r.i, e.col.j, formatFloat(e.val))
		}
	}
	fmt.Fprintln(bw, "e o f")
	return errors.Wrap(bw.Flush(), "could not write problem")
}

func glpBounds(typ BoundType, lb, ub float64) string {
	switch typ {
	case Lower:
		return "l " + formatFloat(lb)
	case Upper:
		return "u " + formatFloat(ub)
	case Double:
		return "d " + formatFloat(lb) + " " + formatFloat(ub)
	case Fixed:
		return "s " + formatFloat(lb)
	}
	return "f"
}

// ReadProb replaces the problem by the one read from r, written in the
// format of WriteProb. The problem is unchanged on error.
func (p *Problem) ReadProb(r io.Reader) error {
	if err := p.checkAlive(); err != nil {
		return err
	}
	q, err := readProb(r)
	if err != nil {
		return err
	}
	return p.commit(q)
}

func readProb(r io.Reader) (*Problem, error) {
	lr := newLineReader(r, "glp")
	q := scratch()
	var (
		mip        bool
		seenP      bool
		nnz        int
		ia, ja     []int
		ar         []float64
		rowSeen    = map[int]bool{}
		colSeen    = map[int]bool{}
		objSeen    = map[int]bool{}
		rowNamed   = map[int]bool{}
		colNamed   = map[int]bool{}
		terminated bool
	)

	for lr.next() {
		f := strings.Fields(lr.text)
		if len(f) == 0 || f[0] == "c" {
			continue
		}
		if terminated {
			return nil, lr.errorf("data after end of file marker")
		}
		if !seenP && f[0] != "p" {
			return nil, lr.errorf("problem line missing")
		}
		switch f[0] {
		case "p":
			if seenP {
				return nil, lr.errorf("duplicate problem line")
			}
			if len(f) != 6 {
				return nil, lr.errorf("wrong problem line")
			}
			switch f[1] {
			case "lp":
			case "mip":
				mip = true
			default:
				return nil, lr.errorf("unknown problem kind %q", f[1])
			}
			switch f[2] {
			case "min":
				q.dir = Minimize
			case "max":
				q.dir = Maximize
			default:
				return nil, lr.errorf("unknown objective direction %q", f[2])
			}
			m, err := lr.int(f[3])
			if err != nil {
				return nil, err
			}
			n, err := lr.int(f[4])
			if err != nil {
				return nil, err
			}
			if nnz, err = lr.int(f[5]); err != nil {
				return nil, err
			}
			if m < 0 || n < 0 || nnz < 0 {
				return nil, lr.errorf("negative problem size")
			}
			q.addRows(m)
			q.addCols(n)
			seenP = true

		case "n":
			if err := readGlpName(lr, q, f, rowNamed, colNamed); err != nil {
				return nil, err
			}

		case "i":
			if len(f) < 3 {
				return nil, lr.errorf("wrong row descriptor")
			}
			i, err := lr.int(f[1])
			if err != nil {
				return nil, err
			}
			if !inRange(i, 1, q.m()) {
				return nil, lr.errorf("row %d out of range", i)
			}
			if rowSeen[i] {
				return nil, lr.errorf("row %d described twice", i)
			}
			rowSeen[i] = true
			typ, lb, ub, err := readGlpBounds(lr, f[2:])
			if err != nil {
				return nil, err
			}
			q.setRowBounds(q.rows[i-1], typ, lb, ub)

		case "j":
			if len(f) < 3 {
				return nil, lr.errorf("wrong column descriptor")
			}
			j, err := lr.int(f[1])
			if err != nil {
				return nil, err
			}
			if !inRange(j, 1, q.n()) {
				return nil, lr.errorf("column %d out of range", j)
			}
			if colSeen[j] {
				return nil, lr.errorf("column %d described twice", j)
			}
			colSeen[j] = true
			c := q.cols[j-1]
			rest := f[2:]
			if mip {
				switch rest[0] {
				case "c":
				case "i":
					c.kind = Integer
				case "b":
					if len(rest) != 1 {
						return nil, lr.errorf("binary column %d has bounds", j)
					}
					q.setColKind(c, Binary)
					continue
				default:
					return nil, lr.errorf("unknown column kind %q", rest[0])
				}
				rest = rest[1:]
			}
			typ, lb, ub, err := readGlpBounds(lr, rest)
			if err != nil {
				return nil, err
			}
			q.setColBounds(c, typ, lb, ub)

		case "a":
			if len(f) != 4 {
				return nil, lr.errorf("wrong coefficient descriptor")
			}
			i, err := lr.int(f[1])
			if err != nil {
				return nil, err
			}
			j, err := lr.int(f[2])
			if err != nil {
				return nil, err
			}
			v, err := lr.float(f[3])
			if err != nil {
				return nil, err
			}
			if math.IsInf(v, 0) {
				return nil, lr.errorf("infinite coefficient")
			}
			switch {
			case i == 0 && j == 0:
				q.c0 = v
			case i == 0:
				if !inRange(j, 1, q.n()) {
					return nil, lr.errorf("column %d out of range", j)
				}
				if objSeen[j] {
					return nil, lr.errorf("objective coefficient of column %d given twice", j)
				}
				objSeen[j] = true
				q.cols[j-1].coef = v
			default:
				if !inRange(i, 1, q.m()) || !inRange(j, 1, q.n()) {
					return nil, lr.errorf("element (%d,%d) out of range", i, j)
				}
				ia, ja, ar = append(ia, i), append(ja, j), append(ar, v)
			}

		case "e":
			if len(f) != 3 || f[1] != "o" || f[2] != "f" {
				return nil, lr.errorf("wrong end of file marker")
			}
			terminated = true

		default:
			return nil, lr.errorf("unknown line type %q", f[0])
		}
	}
	if err := lr.err(); err != nil {
		return nil, err
	}
	if !seenP {
		return nil, errors.Wrap(ErrFormat, "glp: empty file")
	}
	if !terminated {
		return nil, errors.Wrap(ErrFormat, "glp: missing end of file marker")
	}
	if len(ia) != nnz {
		return nil, errors.Wrapf(ErrFormat, "glp: %d non-zeros announced, %d found", nnz, len(ia))
	}
	if err := checkTriplets(q.m(), q.n(), ia, ja, ar); err != nil {
		return nil, errors.Wrap(err, "glp")
	}
	q.loadMatrix(ia, ja, ar)
	return q, nil
}

func readGlpName(lr *lineReader, q *Problem, f []string, rowNamed, colNamed map[int]bool) error {
	if len(f) < 3 {
		return lr.errorf("wrong name descriptor")
	}
	if err := checkName(f[len(f)-1]); err != nil {
		return lr.errorf("%v", err)
	}
	switch f[1] {
	case "p", "z":
		if len(f) != 3 {
			return lr.errorf("wrong name descriptor")
		}
		if f[1] == "p" {
			q.name = f[2]
		} else {
			q.objName = f[2]
		}
		return nil
	case "i", "j":
	default:
		return lr.errorf("unknown name descriptor %q", f[1])
	}
	if len(f) != 4 {
		return lr.errorf("wrong name descriptor")
	}
	k, err := lr.int(f[2])
	if err != nil {
		return err
	}
	if f[1] == "i" {
		if !inRange(k, 1, q.m()) || rowNamed[k] {
			return lr.errorf("bad row name for row %d", k)
		}
		rowNamed[k] = true
		q.rows[k-1].name = f[3]
		return nil
	}
	if !inRange(k, 1, q.n()) || colNamed[k] {
		return lr.errorf("bad column name for column %d", k)
	}
	colNamed[k] = true
	q.cols[k-1].name = f[3]
	return nil
}

func readGlpBounds(lr *lineReader, f []string) (BoundType, float64, float64, error) {
	inf := math.Inf(1)
	want := map[string]int{"f": 1, "l": 2, "u": 2, "d": 3, "s": 2}
	if len(f) == 0 || want[f[0]] != len(f) {
		return 0, 0, 0, lr.errorf("wrong bounds")
	}
	vals := make([]float64, 0, 2)
	for _, s := range f[1:] {
		v, err := lr.float(s)
		if err != nil {
			return 0, 0, 0, err
		}
		if math.IsInf(v, 0) {
			return 0, 0, 0, lr.errorf("infinite bound")
		}
		vals = append(vals, v)
	}
	switch f[0] {
	case "f":
		return Free, -inf, inf, nil
	case "l":
		return Lower, vals[0], inf, nil
	case "u":
		return Upper, -inf, vals[0], nil
	case "s":
		return Fixed, vals[0], vals[0], nil
	}
	if vals[0] >= vals[1] {
		return 0, 0, 0, lr.errorf("lower bound %g not below upper bound %g", vals[0], vals[1])
	}
	return Double, vals[0], vals[1], nil
}
