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

type Variable struct {
	model *Model
	index int
}

type VariableType int

const (
	ContinuousVariable = VariableType(Continuous)
	IntegerVariable    = VariableType(Integer)
	BinaryVariable     = VariableType(Binary)
)

/* Variable-related functions (model variables, as opposed to Go variables) */

func (v *Variable) col() int { return v.index + 1 }

func (v *Variable) Name() string {
	return v.model.prob.ColName(v.col())
}

func (v *Variable) SetType(vartype VariableType) error {
	return v.model.prob.SetColKind(v.col(), VarKind(vartype))
}

// Type returns the variable's type. Integer variables bounded by [0,1]
// are reported as BinaryVariable.
func (v *Variable) Type() VariableType {
	return VariableType(v.model.prob.ColKind(v.col()))
}

// SetBounds sets the boundaries for the given variable.
// To leave a side unbounded, pass math.Inf(-1) as lower or math.Inf(1)
// as upper bound.
func (v *Variable) SetBounds(lower, upper float64) error {
	typ, err := variableBounds(lower, upper)
	if err != nil {
		return err
	}
	return v.model.prob.SetColBounds(v.col(), typ, lower, upper)
}

// Bounds returns the variable's bounds, infinite on the open sides.
func (v *Variable) Bounds() (lower, upper float64) {
	return v.model.prob.ColLower(v.col()), v.model.prob.ColUpper(v.col())
}

func (v *Variable) SetObjectiveCoefficient(coef float64) error {
	return v.model.prob.SetObjCoef(v.col(), coef)
}

func (v *Variable) Coefficient() float64 {
	return v.model.prob.ObjCoef(v.col())
}
