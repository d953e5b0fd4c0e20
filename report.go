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
)

func objLabel(name string) string {
	if name == "" {
		return ""
	}
	return name + " = "
}

func mipStatusLabel(s SolStatus) string {
	switch s {
	case Optimal:
		return "INTEGER OPTIMAL"
	case Feasible:
		return "INTEGER NON-OPTIMAL"
	case NoFeasible:
		return "INTEGER EMPTY"
	}
	return "INTEGER UNDEFINED"
}

// PrintSol writes a printable report of the basic solution, followed by
// the Karush-Kuhn-Tucker checks.
func (p *Problem) PrintSol(w io.Writer) error {
	return p.printSolution(w, BasicSolution)
}

// PrintIpt writes a printable report of the interior-point solution.
func (p *Problem) PrintIpt(w io.Writer) error {
	return p.printSolution(w, InteriorSolution)
}

// PrintMIP writes a printable report of the MIP solution. Integer columns
// are marked with an asterisk.
func (p *Problem) PrintMIP(w io.Writer) error {
	return p.printSolution(w, MIPSolution)
}

type reportLine struct {
	no     int
	name   string
	mark   string
	value  float64
	typ    BoundType
	lb, ub float64
	dual   string
}

func (l reportLine) write(w io.Writer) {
	fmt.Fprintf(w, "%6d ", l.no)
	if len(l.name) <= 12 {
		fmt.Fprintf(w, "%-12s ", l.name)
	} else {
		fmt.Fprintf(w, "%s\n%20s", l.name, "")
	}
	fmt.Fprintf(w, "%-2s %13.6g", l.mark, l.value)
	switch l.typ {
	case Lower, Double, Fixed:
		fmt.Fprintf(w, " %13.6g", l.lb)
	default:
		fmt.Fprintf(w, " %13s", "")
	}
	switch l.typ {
	case Upper, Double:
		fmt.Fprintf(w, " %13.6g", l.ub)
	case Fixed:
		fmt.Fprintf(w, " %13s", "=")
	default:
		fmt.Fprintf(w, " %13s", "")
	}
	if l.dual != "" {
		fmt.Fprintf(w, " %13s", l.dual)
	}
	fmt.Fprintln(w)
}

func formatMarginal(d float64, stat VarStatus) string {
	switch {
	case stat == Basic:
		return ""
	case math.Abs(d) < 1e-9:
		return "< eps"
	}
	return fmt.Sprintf("%13.6g", d)
}

func (p *Problem) printSolution(w io.Writer, kind SolutionKind) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return ErrDeleted
	}
	bw := bufio.NewWriter(w)

	var status string
	var obj float64
	switch kind {
	case BasicSolution:
		status, obj = p.status().String(), p.objVal
	case InteriorSolution:
		status, obj = p.iptStat.String(), p.iptObj
	default:
		status, obj = mipStatusLabel(p.mipStat), p.mipObj
	}
	fmt.Fprintf(bw, "%-12s%s\n", "Problem:", p.name)
	fmt.Fprintf(bw, "%-12s%d\n", "Rows:", p.m())
	if kind == MIPSolution {
		fmt.Fprintf(bw, "%-12s%d (%d integer, %d binary)\n", "Columns:", p.n(), p.numInt(), p.numBin())
	} else {
		fmt.Fprintf(bw, "%-12s%d\n", "Columns:", p.n())
	}
	fmt.Fprintf(bw, "%-12s%d\n", "Non-zeros:", p.nnz)
	fmt.Fprintf(bw, "%-12s%s\n", "Status:", status)
	fmt.Fprintf(bw, "%-12s%s%.10g (%s)\n", "Objective:", objLabel(p.objName), obj, p.dir)
	fmt.Fprintln(bw)

	header := func(what string) {
		switch kind {
		case BasicSolution:
			fmt.Fprintf(bw, "   No. %-12s St   Activity     Lower bound   Upper bound    Marginal\n", what)
			fmt.Fprintln(bw, "------ ------------ -- ------------- ------------- ------------- -------------")
		case InteriorSolution:
			fmt.Fprintf(bw, "   No. %-12s      Activity     Lower bound   Upper bound    Marginal\n", what)
			fmt.Fprintln(bw, "------ ------------    ------------- ------------- ------------- -------------")
		default:
			fmt.Fprintf(bw, "   No. %-12s      Activity     Lower bound   Upper bound\n", what)
			fmt.Fprintln(bw, "------ ------------    ------------- ------------- -------------")
		}
	}

	header("  Row name")
	for _, r := range p.rows {
		l := reportLine{no: r.i, name: r.name, typ: r.typ, lb: r.lb, ub: r.ub}
		switch kind {
		case BasicSolution:
			l.mark, l.value, l.dual = r.stat.String(), r.prim, formatMarginal(r.dual, r.stat)
		case InteriorSolution:
			l.value, l.dual = r.pval, formatMarginal(r.dval, 0)
		default:
			l.value = r.mipx
		}
		l.write(bw)
	}
	fmt.Fprintln(bw)

	header("Column name")
	for _, c := range p.cols {
		l := reportLine{no: c.j, name: c.name, typ: c.typ, lb: c.lb, ub: c.ub}
		switch kind {
		case BasicSolution:
			l.mark, l.value, l.dual = c.stat.String(), c.prim, formatMarginal(c.dual, c.stat)
		case InteriorSolution:
			l.value, l.dual = c.pval, formatMarginal(c.dval, 0)
		default:
			l.value = c.mipx
			if c.kind == Integer {
				l.mark = "*"
			}
		}
		l.write(bw)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Karush-Kuhn-Tucker optimality conditions:")
	fmt.Fprintln(bw)
	p.printKKT(bw, "PE", p.kktPE(kind), "row", "SOLUTION IS WRONG")
	p.printKKT(bw, "PB", p.kktPB(kind), "row", "SOLUTION IS INFEASIBLE")
	if kind != MIPSolution {
		p.printKKT(bw, "DE", p.kktDE(kind), "column", "SOLUTION IS WRONG")
		p.printKKT(bw, "DB", p.kktDB(kind), "row", "SOLUTION IS INFEASIBLE")
	}
	fmt.Fprintln(bw, "End of output")
	return bw.Flush()
}

func (p *Problem) printKKT(w io.Writer, cond string, e KKTError, none, wrong string) {
	where := func(k int) string {
		switch {
		case k == 0:
			return none + " 0"
		case k <= p.m():
			return fmt.Sprintf("row %d", k)
		}
		return fmt.Sprintf("column %d", k-p.m())
	}
	fmt.Fprintf(w, "KKT.%s: max.abs.err = %.2e on %s\n", cond, e.AbsErr, where(e.AbsInd))
	fmt.Fprintf(w, "        max.rel.err = %.2e on %s\n", e.RelErr, where(e.RelInd))
	switch e.Quality() {
	case 'H':
		fmt.Fprintln(w, "        High quality")
	case 'M':
		fmt.Fprintln(w, "        Medium quality")
	case 'L':
		fmt.Fprintln(w, "        Low quality")
	default:
		prefix := "PRIMAL"
		if cond[0] == 'D' {
			prefix = "DUAL"
		}
		fmt.Fprintf(w, "        %s %s\n", prefix, wrong)
	}
	fmt.Fprintln(w)
}
