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
	"strings"

	"github.com/pkg/errors"
)

var solLetters = map[SolStatus]string{
	Undefined:  "u",
	Feasible:   "f",
	Infeasible: "i",
	NoFeasible: "n",
	Optimal:    "o",
}

var statLetters = map[VarStatus]string{
	Basic:         "b",
	NonBasicLower: "l",
	NonBasicUpper: "u",
	NonBasicFree:  "f",
	NonBasicFixed: "s",
}

func letterOf[K comparable](m map[K]string, s string) (K, bool) {
	for k, v := range m {
		if v == s {
			return k, true
		}
	}
	var zero K
	return zero, false
}

// WriteSol writes the basic solution in a text format ReadSol reads back:
//
//	s bas rows cols u|f|i|n u|f|i|n obj
//	i row b|l|u|f|s prim dual
//	j col b|l|u|f|s prim dual
//	e o f
func (p *Problem) WriteSol(w io.Writer) error {
	return p.writeSolution(w, BasicSolution)
}

// WriteIpt writes the interior-point solution:
//
//	s ipt rows cols u|o|i|n obj
//	i row prim dual
//	j col prim dual
func (p *Problem) WriteIpt(w io.Writer) error {
	return p.writeSolution(w, InteriorSolution)
}

// WriteMIP writes the MIP solution:
//
//	s mip rows cols u|o|f|n obj
//	i row val
//	j col val
func (p *Problem) WriteMIP(w io.Writer) error {
	return p.writeSolution(w, MIPSolution)
}

func (p *Problem) writeSolution(w io.Writer, kind SolutionKind) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return ErrDeleted
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "c Problem:    %s\n", p.name)
	fmt.Fprintf(bw, "c Rows:       %d\n", p.m())
	fmt.Fprintf(bw, "c Columns:    %d\n", p.n())
	fmt.Fprintf(bw, "c Non-zeros:  %d\n", p.nnz)

	switch kind {
	case BasicSolution:
		fmt.Fprintf(bw, "c Status:     %s\n", p.status())
		fmt.Fprintf(bw, "c Objective:  %s%.10g (%s)\n", objLabel(p.objName), p.objVal, p.dir)
		fmt.Fprintln(bw, "c")
		fmt.Fprintf(bw, "s bas %d %d %s %s %s\n", p.m(), p.n(),
			solLetters[p.pbsStat], solLetters[p.dbsStat], formatFloat(p.objVal))
		for _, r := range p.rows {
			fmt.Fprintf(bw, "i %d %s %s %s\n", r.i, statLetters[r.stat], formatFloat(r.prim), formatFloat(r.dual))
		}
		for _, c := range p.cols {
			fmt.Fprintf(bw, "j %d %s %s %s\n", c.j, statLetters[c.stat], formatFloat(c.prim), formatFloat(c.dual))
		}
	case InteriorSolution:
		fmt.Fprintf(bw, "c Status:     %s\n", p.iptStat)
		fmt.Fprintf(bw, "c Objective:  %s%.10g (%s)\n", objLabel(p.objName), p.iptObj, p.dir)
		fmt.Fprintln(bw, "c")
		fmt.Fprintf(bw, "s ipt %d %d %s %s\n", p.m(), p.n(), solLetters[p.iptStat], formatFloat(p.iptObj))
		for _, r := range p.rows {
			fmt.Fprintf(bw, "i %d %s %s\n", r.i, formatFloat(r.pval), formatFloat(r.dval))
		}
		for _, c := range p.cols {
			fmt.Fprintf(bw, "j %d %s %s\n", c.j, formatFloat(c.pval), formatFloat(c.dval))
		}
	case MIPSolution:
		fmt.Fprintf(bw, "c Status:     %s\n", mipStatusLabel(p.mipStat))
		fmt.Fprintf(bw, "c Objective:  %s%.10g (%s)\n", objLabel(p.objName), p.mipObj, p.dir)
		fmt.Fprintln(bw, "c")
		fmt.Fprintf(bw, "s mip %d %d %s %s\n", p.m(), p.n(), solLetters[p.mipStat], formatFloat(p.mipObj))
		for _, r := range p.rows {
			fmt.Fprintf(bw, "i %d %s\n", r.i, formatFloat(r.mipx))
		}
		for _, c := range p.cols {
			fmt.Fprintf(bw, "j %d %s\n", c.j, formatFloat(c.mipx))
		}
	}
	fmt.Fprintln(bw, "e o f")
	return errors.Wrap(bw.Flush(), "could not write solution")
}

// solFile holds a solution read from a file before it is stored.
type solFile struct {
	pst, dst SolStatus
	obj      float64
	rowStat  []VarStatus
	colStat  []VarStatus
	rp, rd   []float64
	cp, cd   []float64
}

// ReadSol reads a basic solution written by WriteSol. Row and column
// counts must match the problem. The statuses read replace the basis, so
// the factorization is dropped.
func (p *Problem) ReadSol(r io.Reader) error {
	return p.readSolution(r, BasicSolution)
}

// ReadIpt reads an interior-point solution written by WriteIpt.
func (p *Problem) ReadIpt(r io.Reader) error {
	return p.readSolution(r, InteriorSolution)
}

// ReadMIP reads a MIP solution written by WriteMIP.
func (p *Problem) ReadMIP(r io.Reader) error {
	return p.readSolution(r, MIPSolution)
}

func (p *Problem) readSolution(r io.Reader, kind SolutionKind) error {
	p.mu.RLock()
	m, n, deleted := p.m(), p.n(), p.deleted
	p.mu.RUnlock()
	if deleted {
		return ErrDeleted
	}

	sf, err := parseSolution(newLineReader(r, "sol"), kind, m, n)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if p.m() != m || p.n() != n {
		return errors.Wrap(ErrFormat, "sol: problem changed while reading")
	}
	switch kind {
	case BasicSolution:
		for i, r := range p.rows {
			if !statFits(sf.rowStat[i], r.typ) {
				return errors.Wrapf(ErrFormat, "sol: status %s invalid for row %d", sf.rowStat[i], i+1)
			}
		}
		for j, c := range p.cols {
			if !statFits(sf.colStat[j], c.typ) {
				return errors.Wrapf(ErrFormat, "sol: status %s invalid for column %d", sf.colStat[j], j+1)
			}
		}
		p.invalidateBasis()
		p.pbsStat, p.dbsStat, p.objVal = sf.pst, sf.dst, sf.obj
		p.someRay = 0
		for i, r := range p.rows {
			r.stat, r.prim, r.dual = sf.rowStat[i], sf.rp[i], sf.rd[i]
		}
		for j, c := range p.cols {
			c.stat, c.prim, c.dual = sf.colStat[j], sf.cp[j], sf.cd[j]
		}
	case InteriorSolution:
		p.iptStat, p.iptObj = sf.pst, sf.obj
		for i, r := range p.rows {
			r.pval, r.dval = sf.rp[i], sf.rd[i]
		}
		for j, c := range p.cols {
			c.pval, c.dval = sf.cp[j], sf.cd[j]
		}
	case MIPSolution:
		p.mipStat, p.mipObj = sf.pst, sf.obj
		for i, r := range p.rows {
			r.mipx = sf.rp[i]
		}
		for j, c := range p.cols {
			c.mipx = sf.cp[j]
		}
	}
	return nil
}

// statFits reports whether a non-basic status is possible for the type.
func statFits(stat VarStatus, typ BoundType) bool {
	switch stat {
	case Basic:
		return true
	case NonBasicLower:
		return typ == Lower || typ == Double
	case NonBasicUpper:
		return typ == Upper || typ == Double
	case NonBasicFree:
		return typ == Free
	case NonBasicFixed:
		return typ == Fixed
	}
	return false
}

func parseSolution(lr *lineReader, kind SolutionKind, m, n int) (*solFile, error) {
	tag := map[SolutionKind]string{BasicSolution: "bas", InteriorSolution: "ipt", MIPSolution: "mip"}[kind]
	allowed := map[SolutionKind]string{BasicSolution: "ufin", InteriorSolution: "uoin", MIPSolution: "uofn"}[kind]
	sf := &solFile{
		rowStat: make([]VarStatus, m), colStat: make([]VarStatus, n),
		rp: make([]float64, m), rd: make([]float64, m),
		cp: make([]float64, n), cd: make([]float64, n),
	}
	status := func(s string) (SolStatus, error) {
		if len(s) != 1 || !strings.Contains(allowed, s) {
			return 0, lr.errorf("invalid solution status %q", s)
		}
		st, _ := letterOf(solLetters, s)
		return st, nil
	}

	seenS, done := false, false
	rowSeen, colSeen := make([]bool, m), make([]bool, n)
	for lr.next() {
		f := strings.Fields(lr.text)
		if len(f) == 0 || f[0] == "c" {
			continue
		}
		if done {
			return nil, lr.errorf("data after end of file marker")
		}
		if !seenS && f[0] != "s" {
			return nil, lr.errorf("solution line missing")
		}
		switch f[0] {
		case "s":
			if seenS {
				return nil, lr.errorf("duplicate solution line")
			}
			seenS = true
			want := 6
			if kind == BasicSolution {
				want = 7
			}
			if len(f) != want || f[1] != tag {
				return nil, lr.errorf("wrong solution line, %s expected", tag)
			}
			mm, err := lr.int(f[2])
			if err != nil {
				return nil, err
			}
			nn, err := lr.int(f[3])
			if err != nil {
				return nil, err
			}
			if mm != m || nn != n {
				return nil, lr.errorf("solution is %d x %d, problem is %d x %d", mm, nn, m, n)
			}
			if sf.pst, err = status(f[4]); err != nil {
				return nil, err
			}
			if kind == BasicSolution {
				if sf.dst, err = status(f[5]); err != nil {
					return nil, err
				}
			}
			if sf.obj, err = lr.float(f[len(f)-1]); err != nil {
				return nil, err
			}

		case "i", "j":
			isRow := f[0] == "i"
			want := 3
			switch kind {
			case BasicSolution:
				want = 5
			case InteriorSolution:
				want = 4
			}
			if len(f) != want {
				return nil, lr.errorf("wrong number of fields")
			}
			k, err := lr.int(f[1])
			if err != nil {
				return nil, err
			}
			size, seen := n, colSeen
			if isRow {
				size, seen = m, rowSeen
			}
			if !inRange(k, 1, size) || seen[k-1] {
				return nil, lr.errorf("ordinal %d out of range or repeated", k)
			}
			seen[k-1] = true
			vals := f[2:]
			if kind == BasicSolution {
				st, ok := letterOf(statLetters, f[2])
				if !ok {
					return nil, lr.errorf("invalid status %q", f[2])
				}
				if isRow {
					sf.rowStat[k-1] = st
				} else {
					sf.colStat[k-1] = st
				}
				vals = f[3:]
			}
			prim, err := lr.float(vals[0])
			if err != nil {
				return nil, err
			}
			var dual float64
			if len(vals) > 1 {
				if dual, err = lr.float(vals[1]); err != nil {
					return nil, err
				}
			}
			if isRow {
				sf.rp[k-1], sf.rd[k-1] = prim, dual
			} else {
				sf.cp[k-1], sf.cd[k-1] = prim, dual
			}

		case "e":
			if len(f) != 3 || f[1] != "o" || f[2] != "f" {
				return nil, lr.errorf("wrong end of file marker")
			}
			done = true

		default:
			return nil, lr.errorf("unknown line type %q", f[0])
		}
	}
	if err := lr.err(); err != nil {
		return nil, err
	}
	if !done {
		return nil, errors.Wrap(ErrFormat, "sol: missing end of file marker")
	}
	for i, ok := range rowSeen {
		if !ok {
			return nil, errors.Wrapf(ErrFormat, "sol: row %d missing", i+1)
		}
	}
	for j, ok := range colSeen {
		if !ok {
			return nil, errors.Wrapf(ErrFormat, "sol: column %d missing", j+1)
		}
	}
	return sf, nil
}
