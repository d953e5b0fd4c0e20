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
	"fmt"

	"github.com/pkg/errors"
)

// SolveError is the return code of a solver entry point that did not run
// to a terminal status. Terminal statuses (optimal, infeasible, unbounded)
// are reported by the status getters with a nil error instead.
type SolveError int

const (
	ErrBadBasis         = SolveError(0x01)
	ErrSingular         = SolveError(0x02)
	ErrCond             = SolveError(0x03)
	ErrBound            = SolveError(0x04)
	ErrFail             = SolveError(0x05)
	ErrObjLowerLimit    = SolveError(0x06)
	ErrObjUpperLimit    = SolveError(0x07)
	ErrIterLimit        = SolveError(0x08)
	ErrTimeLimit        = SolveError(0x09)
	ErrNoPrimalFeasible = SolveError(0x0A)
	ErrNoDualFeasible   = SolveError(0x0B)
	ErrRoot             = SolveError(0x0C)
	ErrStop             = SolveError(0x0D)
	ErrMIPGap           = SolveError(0x0E)
	ErrNoFeasible       = SolveError(0x0F)
	ErrNoConvergence    = SolveError(0x10)
	ErrInstability      = SolveError(0x11)

	// returned by the modelling layer only
	ErrModelInfeasible = SolveError(0x40)
	ErrModelUnbounded  = SolveError(0x41)
)

// Error returns a string representation of the given error value.
func (e SolveError) Error() string {
	switch e {
	case ErrBadBasis:
		return "invalid basis"
	case ErrSingular:
		return "singular basis matrix"
	case ErrCond:
		return "ill-conditioned basis matrix"
	case ErrBound:
		return "invalid bounds"
	case ErrFail:
		return "solver failure"
	case ErrObjLowerLimit:
		return "objective lower limit reached"
	case ErrObjUpperLimit:
		return "objective upper limit reached"
	case ErrIterLimit:
		return "iteration limit exceeded"
	case ErrTimeLimit:
		return "time limit exceeded"
	case ErrNoPrimalFeasible:
		return "no primal feasible solution"
	case ErrNoDualFeasible:
		return "no dual feasible solution"
	case ErrRoot:
		return "root LP optimum not provided"
	case ErrStop:
		return "search terminated by application"
	case ErrMIPGap:
		return "relative mip gap tolerance reached"
	case ErrNoFeasible:
		return "no primal/dual feasible solution"
	case ErrNoConvergence:
		return "no convergence"
	case ErrInstability:
		return "numerical instability"
	case ErrModelInfeasible:
		return "model is infeasible"
	case ErrModelUnbounded:
		return "model is unbounded"
	default:
		return fmt.Sprintf("unrecognized solver error %d", int(e))
	}
}

// Validation errors. They are always returned wrapped with details about the
// offending argument; use errors.Is to test for them.
var (
	ErrOutOfRange      = errors.New("index out of range")
	ErrInvalidBounds   = errors.New("invalid bounds")
	ErrInvalidType     = errors.New("invalid bound type")
	ErrInvalidKind     = errors.New("invalid column kind")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidOption   = errors.New("invalid control parameter")
	ErrLength          = errors.New("invalid length")
	ErrNoIndex         = errors.New("name index does not exist")
	ErrDeleted         = errors.New("problem has been deleted")
	ErrInvalidReason   = errors.New("operation not allowed for current callback reason")
	ErrFormat          = errors.New("invalid file format")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidValue    = errors.New("invalid numeric value")
	ErrNoFactorization = errors.New("basis factorization does not exist")
	ErrForeignVariable = errors.New("variable belongs to a different model")
)

// DuplicateError reports a constraint matrix element given twice.
// Positions are 1-based indices into the element arrays.
type DuplicateError struct {
	Row, Col    int
	First, Then int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate element (%d, %d) at positions %d and %d", e.Row, e.Col, e.First, e.Then)
}

// recoverSolve turns a panic escaping a solver into ErrFail.
func recoverSolve(logger Logger, err *error) {
	if r := recover(); r != nil {
		logger.Print(fmt.Sprintf("internal solver failure: %v", r))
		*err = ErrFail
	}
}
