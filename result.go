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

/* Types */

type SolveResult struct {
	model  *Model
	status SolveStatus
	kind   SolutionKind
}

type SolveStatus int

const (
	SolutionOptimal SolveStatus = iota
	SolutionSuboptimal
)

func (res SolveResult) Status() SolveStatus {
	return res.status
}

func (res SolveResult) Value(v *Variable) float64 {
	return res.PrimalValue(v)
}

func (res SolveResult) PrimalValue(v *Variable) float64 {
	if res.kind == MIPSolution {
		return res.model.prob.MIPColVal(v.col())
	}
	return res.model.prob.ColPrim(v.col())
}

// DualValue returns the reduced cost of v. MIP solutions carry no duals
// and report 0.
func (res SolveResult) DualValue(v *Variable) float64 {
	if res.kind == MIPSolution {
		return 0
	}
	return res.model.prob.ColDual(v.col())
}

func (res SolveResult) ObjectiveValue() float64 {
	if res.kind == MIPSolution {
		return res.model.prob.MIPObjVal()
	}
	return res.model.prob.ObjVal()
}
