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

/*
GoLPK is a library for modelling and solving linear and mixed integer
programming problems, written in pure Go.

It has two layers. Problem is the low level store: rows, columns, the
constraint matrix, bases and the solvers working on them (primal and dual
simplex, exact simplex, interior point, branch-and-cut), plus readers and
writers for the usual file formats. Model is a small modelling API on top
of it.

As an example of the modelling API, the model of the following problem:

	Maximize:
	  z = x1 + 2 x2 - 3 x3
	With:
	  0 <= x1 <= 40
	  5 <= x3 <= 11
	Subject to:
	  0 <= - x1 + x2 + 5.3 x3 <= 10
	  -inf <= 2 x1 - 5 x2 + 3 x3 <= 20
	  x2 - 8 x3 = 0

can be expressed with GoLPK like this:

	package main

	import (
		"fmt"
		"math"

		"github.com/costela/golpk"
	)

	func main() {
		model, _ := golpk.NewModel("some model", golpk.Maximize)
		x1, _ := model.AddVariable("x1")
		x1.SetBounds(0, 40)
		x2, _ := model.AddVariable("x2")
		x2.SetObjectiveCoefficient(2)
		// alternatively, all information pertaining can be given at once:
		x3, _ := model.AddDefinedVariable("x3", golpk.ContinuousVariable, -3, 5, 11)

		model.AddConstraint(0, 10, []*golpk.Variable{x1, x2, x3}, []float64{-1, 1, 5.3})
		model.AddConstraint(math.Inf(-1), 20, []*golpk.Variable{x1, x2, x3}, []float64{2, -5, 3})
		model.AddConstraint(0, 0, []*golpk.Variable{x2, x3}, []float64{1, -8})

		result, _ := model.Solve() // you should check for errors

		fmt.Printf("solution optimal? %t\n", result.Status() == golpk.SolutionOptimal)
		fmt.Printf("z = %f\n", result.ObjectiveValue())
		fmt.Printf("x1 = %f\n", result.Value(x1))
	}

The same problem can be built directly on a Problem with AddRows,
AddCols, SetRowBounds, SetColBounds and LoadMatrix, and solved with
Simplex, Interior or Intopt.
*/
package golpk

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
)

/* Types */

type Model struct {
	mu   sync.RWMutex
	prob *Problem
	vars []*Variable
}

/* Model related functions */

// NewModel instantiates a new linear programming model, providing a
// name (purely informational) and a optimization direction (either
// Minimize or Maximize)
func NewModel(name string, dir Direction, opts ...Option) (*Model, error) {
	prob, err := NewProblem(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "applying model option")
	}
	if err := prob.SetName(name); err != nil {
		return nil, err
	}
	if err := prob.SetObjDir(dir); err != nil {
		return nil, err
	}

	return &Model{prob: prob}, nil
}

// Clone returns a copy of the model. It fails with ErrDeleted once the
// underlying problem was deleted through Problem.
func (model *Model) Clone() (*Model, error) {
	model.mu.RLock()
	defer model.mu.RUnlock()

	newProb, err := model.prob.Copy(true)
	if err != nil {
		return nil, errors.Wrap(err, "cloning model")
	}
	newModel := &Model{
		prob: newProb,
		vars: make([]*Variable, len(model.vars)),
	}
	for i, v := range model.vars {
		newModel.vars[i] = &Variable{
			model: newModel,
			index: v.index,
		}
	}

	return newModel, nil
}

// Problem returns the problem the model is stored in, e.g. for writing it
// to a file. Changing its rows or columns directly is not supported.
func (model *Model) Problem() *Problem {
	return model.prob
}

// Name returns the name provided upon instantiation of a model
func (model *Model) Name() string {
	return model.prob.Name()
}

// SetDirection changes the direction of the model's optimization
func (model *Model) SetDirection(dir Direction) error {
	return model.prob.SetObjDir(dir)
}

// Direction returns the model's current optimization direction
func (model *Model) Direction() Direction {
	return model.prob.ObjDir()
}

/* Column-related functions */

func (model *Model) VariableCount() int {
	return model.prob.NumCols()
}

// Variables returns a new slice with the model's variables. Changes to the
// slice will not be reflected in the model.
func (model *Model) Variables() []*Variable {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return append([]*Variable(nil), model.vars...)
}

// AddVariable adds a variable to the linear programming model and
// returns a reference to it.
// A freshly instantiated variable has the default type of
// ContinuousVariable, no bounds and an objective coefficient of 1.
//
// A variable is bound to its model. Using a variable created in one
// model with a different model returns ErrForeignVariable.
//
// Empty names will automatically replaced by a unique name.
func (model *Model) AddVariable(name string) (*Variable, error) {
	return model.AddDefinedVariable(name, ContinuousVariable, 1, math.Inf(-1), math.Inf(1))
}

// AddBinaryVariable is a convenience function for adding a single
// named binary variable to the model, with a default coefficient of 1.
// Empty names will automatically replaced by a unique name.
func (model *Model) AddBinaryVariable(name string) (*Variable, error) {
	return model.AddDefinedVariable(name, BinaryVariable, 1, 0, 1)
}

// AddIntegerVariable is a convenience function for adding a single
// named unbounded integer variable to the model, with a default
// objective coefficient of 1.
// Empty names will automatically replaced by a unique name.
func (model *Model) AddIntegerVariable(name string) (*Variable, error) {
	return model.AddDefinedVariable(name, IntegerVariable, 1, math.Inf(-1), math.Inf(1))
}

// AddDefinedVariable add a variable to the linear programming model
// with its attributes passed as arguments.
// If varType is BinaryVariable, the bounds are ignored.
// Empty names will automatically replaced by a unique name.
func (model *Model) AddDefinedVariable(name string, varType VariableType, coefficient, lowerBound, upperBound float64) (*Variable, error) {
	if varType != BinaryVariable {
		if _, err := variableBounds(lowerBound, upperBound); err != nil {
			return nil, err
		}
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	j, err := model.prob.AddCols(1)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = fmt.Sprintf("V%d", j-1)
	}
	v := &Variable{model: model, index: j - 1}
	if err := model.prob.SetColName(j, name); err != nil {
		model.prob.DelCols([]int{j})
		return nil, err
	}
	model.vars = append(model.vars, v)

	if err := v.SetType(varType); err != nil {
		return nil, err
	}
	if err := v.SetObjectiveCoefficient(coefficient); err != nil {
		return nil, err
	}
	if varType != BinaryVariable {
		if err := v.SetBounds(lowerBound, upperBound); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// SetObjectiveFunction defines the objective function for the model as
// a slice of coefficients and a slice of its respective variables.
// E.g.: an objective function of the form 2x+3y is passed as:
//
//	SetObjectiveFunction([]float64{2,3}, []*Variable{x, y})
//
// Where x and y are the return values of one of the Add*Variable
// functions.
func (model *Model) SetObjectiveFunction(coefs []float64, vars []*Variable) error {
	if len(vars) != len(coefs) {
		return errors.Wrapf(ErrLength, "inconsistent number of variables and coefficients: %d != %d", len(vars), len(coefs))
	}
	for i, v := range vars {
		if err := v.SetObjectiveCoefficient(coefs[i]); err != nil {
			return err
		}
	}
	return nil
}

/* Constraint-related functions */

// ConstraintCount returns the number of individual constraints in
// the model
func (model *Model) ConstraintCount() int {
	return model.prob.NumRows()
}

// AddConstraint adds a constraint to the model as a lower and an upper
// bounds, a slice of variables and a slice of their respective
// coefficients. Infinite bounds leave the respective side open.
func (model *Model) AddConstraint(lower, upper float64, vars []*Variable, coefs []float64) error {
	if len(vars) != len(coefs) {
		return errors.Wrapf(ErrLength, "inconsistent number of variables and coefficients: %d != %d", len(vars), len(coefs))
	}
	typ, err := variableBounds(lower, upper)
	if err != nil {
		return err
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	ind := make([]int, len(vars))
	for i, v := range vars {
		if v.model != model {
			return ErrForeignVariable
		}
		ind[i] = v.index + 1
	}

	i, err := model.prob.AddRows(1)
	if err != nil {
		return err
	}
	if err := model.prob.SetMatRow(i, ind, coefs); err != nil {
		model.prob.DelRows([]int{i})
		return err
	}
	return model.prob.SetRowBounds(i, typ, lower, upper)
}

// variableBounds maps a pair of bounds, infinities meaning no bound, to
// a bound type.
func variableBounds(lower, upper float64) (BoundType, error) {
	if math.IsNaN(lower) || math.IsNaN(upper) || math.IsInf(lower, 1) || math.IsInf(upper, -1) {
		return 0, errors.Wrapf(ErrInvalidBounds, "bounds [%g, %g]", lower, upper)
	}
	if lower > upper {
		return 0, errors.Wrapf(ErrInvalidBounds, "lower bound %g above upper bound %g", lower, upper)
	}
	return boundsOf(lower, upper), nil
}

// Solve attempts to find an optimal solution to the model.
// Information about the solution can be queried from the returned
// SolveResult value.
//
// Models with integer variables are solved with branch-and-cut, others
// with the simplex method; both after presolving. Infeasible and
// unbounded models are reported as ErrModelInfeasible and
// ErrModelUnbounded.
func (model *Model) Solve() (*SolveResult, error) {
	return model.SolveWithContext(context.Background())
}

// SolveWithContext wraps Solve() with a context. If the context is cancelled or times out, the solution search will be
// aborted and the context error will be returned.
// Note that if some integer solution has already been found, it is returned along with the error and res.Status() will
// be SolutionSuboptimal.
func (model *Model) SolveWithContext(ctx context.Context) (res *SolveResult, err error) {
	model.mu.Lock()
	defer model.mu.Unlock()

	if model.prob.NumInt() > 0 {
		return model.solveMIP(ctx)
	}
	return model.solveLP(ctx)
}

func (model *Model) solveLP(ctx context.Context) (*SolveResult, error) {
	parm := DefaultSmcp()
	parm.Presolve = true
	err := model.prob.SimplexContext(ctx, parm)
	switch {
	case errors.Is(err, ErrNoPrimalFeasible):
		return nil, ErrModelInfeasible
	case errors.Is(err, ErrNoDualFeasible):
		return nil, ErrModelUnbounded
	case err != nil:
		return nil, err
	}

	res := &SolveResult{model: model, kind: BasicSolution}
	switch model.prob.Status() {
	case Optimal:
		res.status = SolutionOptimal
	case Feasible:
		res.status = SolutionSuboptimal
	case Infeasible, NoFeasible:
		return nil, ErrModelInfeasible
	case Unbounded:
		return nil, ErrModelUnbounded
	default:
		return nil, ErrFail
	}
	return res, nil
}

func (model *Model) solveMIP(ctx context.Context) (*SolveResult, error) {
	parm := DefaultIocp()
	parm.Presolve = true
	err := model.prob.IntoptContext(ctx, parm)

	res := &SolveResult{model: model, kind: MIPSolution}
	switch model.prob.MIPStatus() {
	case Optimal:
		res.status = SolutionOptimal
	case Feasible:
		res.status = SolutionSuboptimal
	default:
		res = nil
	}

	switch {
	case errors.Is(err, ErrNoPrimalFeasible):
		return nil, ErrModelInfeasible
	case errors.Is(err, ErrNoDualFeasible):
		return nil, ErrModelUnbounded
	case err != nil:
		return res, err
	case res == nil:
		return nil, ErrModelInfeasible
	}
	return res, nil
}
