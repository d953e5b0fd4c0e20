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

import "fmt"

// Direction is the optimization direction of a problem.
type Direction int

const (
	Minimize Direction = 1
	Maximize Direction = 2
)

func (d Direction) String() string {
	switch d {
	case Minimize:
		return "MINimum"
	case Maximize:
		return "MAXimum"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// BoundType describes which bounds of a row or column are active.
type BoundType int

const (
	Free   BoundType = 1 // -inf < x < +inf
	Lower  BoundType = 2 // lb <= x < +inf
	Upper  BoundType = 3 // -inf < x <= ub
	Double BoundType = 4 // lb <= x <= ub
	Fixed  BoundType = 5 // x = lb
)

func (t BoundType) String() string {
	switch t {
	case Free:
		return "free"
	case Lower:
		return "lower"
	case Upper:
		return "upper"
	case Double:
		return "double"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("BoundType(%d)", int(t))
	}
}

func (t BoundType) valid() bool {
	return t >= Free && t <= Fixed
}

// VarKind is the kind of a structural variable.
type VarKind int

const (
	Continuous VarKind = 1
	Integer    VarKind = 2
	// Binary is reported for integer columns bounded by [0,1]. Setting it
	// also sets those bounds.
	Binary VarKind = 3
)

func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("VarKind(%d)", int(k))
	}
}

// VarStatus is the status of a row or column in the current basis.
type VarStatus int

const (
	Basic         VarStatus = 1
	NonBasicLower VarStatus = 2
	NonBasicUpper VarStatus = 3
	NonBasicFree  VarStatus = 4
	NonBasicFixed VarStatus = 5
)

func (s VarStatus) String() string {
	switch s {
	case Basic:
		return "B"
	case NonBasicLower:
		return "NL"
	case NonBasicUpper:
		return "NU"
	case NonBasicFree:
		return "NF"
	case NonBasicFixed:
		return "NS"
	default:
		return fmt.Sprintf("VarStatus(%d)", int(s))
	}
}

func (s VarStatus) valid() bool {
	return s >= Basic && s <= NonBasicFixed
}

// SolStatus is the status of a solution.
type SolStatus int

const (
	Undefined  SolStatus = 1
	Feasible   SolStatus = 2
	Infeasible SolStatus = 3
	NoFeasible SolStatus = 4
	Optimal    SolStatus = 5
	Unbounded  SolStatus = 6
)

func (s SolStatus) String() string {
	switch s {
	case Undefined:
		return "UNDEFINED"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE (INTERMEDIATE)"
	case NoFeasible:
		return "INFEASIBLE (FINAL)"
	case Optimal:
		return "OPTIMAL"
	case Unbounded:
		return "UNBOUNDED"
	default:
		return fmt.Sprintf("SolStatus(%d)", int(s))
	}
}

// SolutionKind selects one of the three solutions a problem carries.
type SolutionKind int

const (
	BasicSolution    SolutionKind = 1
	InteriorSolution SolutionKind = 2
	MIPSolution      SolutionKind = 3
)

func (k SolutionKind) String() string {
	switch k {
	case BasicSolution:
		return "basic"
	case InteriorSolution:
		return "interior-point"
	case MIPSolution:
		return "MIP"
	default:
		return fmt.Sprintf("SolutionKind(%d)", int(k))
	}
}

// boundsOf infers the bound type from a pair of bounds, infinities
// meaning "no bound".
func boundsOf(lb, ub float64) BoundType {
	switch {
	case isInf(lb) && isInf(ub):
		return Free
	case isInf(ub):
		return Lower
	case isInf(lb):
		return Upper
	case lb == ub:
		return Fixed
	default:
		return Double
	}
}
