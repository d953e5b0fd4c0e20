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
package golpk_test

import (
	"fmt"
	"math"

	"github.com/costela/golpk"
)

func ExampleModel() {
	model, _ := golpk.NewModel("plant", golpk.Maximize, golpk.WithTermOut(false))
	x1, _ := model.AddDefinedVariable("x1", golpk.ContinuousVariable, 10, 0, math.Inf(1))
	x2, _ := model.AddDefinedVariable("x2", golpk.ContinuousVariable, 6, 0, math.Inf(1))
	x3, _ := model.AddDefinedVariable("x3", golpk.ContinuousVariable, 4, 0, math.Inf(1))
	vars := []*golpk.Variable{x1, x2, x3}

	model.AddConstraint(math.Inf(-1), 100, vars, []float64{1, 1, 1})
	model.AddConstraint(math.Inf(-1), 600, vars, []float64{10, 4, 5})
	model.AddConstraint(math.Inf(-1), 300, vars, []float64{2, 2, 6})

	result, err := model.Solve()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("z = %.2f\n", result.ObjectiveValue())
	fmt.Printf("x1 = %.2f, x2 = %.2f\n", result.Value(x1), result.Value(x2))
	// Output:
	// z = 733.33
	// x1 = 33.33, x2 = 66.67
}

func ExampleProblem_Intopt() {
	p, _ := golpk.NewProblem(golpk.WithTermOut(false))
	p.SetObjDir(golpk.Maximize)
	p.AddRows(1)
	p.AddCols(1)
	p.SetMatRow(1, []int{1}, []float64{2})
	p.SetRowBounds(1, golpk.Upper, 0, 7)
	p.SetColBounds(1, golpk.Lower, 0, 0)
	p.SetColKind(1, golpk.Integer)
	p.SetObjCoef(1, 1)

	parm := golpk.DefaultIocp()
	parm.Presolve = true
	if err := p.Intopt(parm); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(p.MIPStatus(), p.MIPColVal(1))
	// Output:
	// OPTIMAL 3
}
