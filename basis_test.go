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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStatCorrection(t *testing.T) {
	p := buildProblem(t, plantData())

	require.NoError(t, p.SetRowStat(1, NonBasicLower))
	assert.Equal(t, NonBasicUpper, p.RowStat(1))
	require.NoError(t, p.SetColStat(1, NonBasicFree))
	assert.Equal(t, NonBasicLower, p.ColStat(1))
	require.NoError(t, p.SetColStat(2, Basic))
	assert.Equal(t, Basic, p.ColStat(2))

	assert.ErrorIs(t, p.SetRowStat(4, Basic), ErrOutOfRange)
	assert.ErrorIs(t, p.SetColStat(1, VarStatus(42)), ErrInvalidStatus)
}

func TestCrashBases(t *testing.T) {
	for name, crash := range map[string]func(*Problem) error{
		"std": (*Problem).StdBasis,
		"adv": (*Problem).AdvBasis,
		"cpx": (*Problem).CpxBasis,
	} {
		t.Run(name, func(t *testing.T) {
			p := buildProblem(t, plantData())
			require.NoError(t, crash(p))

			basic := 0
			for i := 1; i <= p.NumRows(); i++ {
				if p.RowStat(i) == Basic {
					basic++
				}
			}
			for j := 1; j <= p.NumCols(); j++ {
				if p.ColStat(j) == Basic {
					basic++
				}
			}
			assert.Equal(t, p.NumRows(), basic)

			require.NoError(t, p.Simplex(nil))
			assert.Equal(t, Optimal, p.Status())
			assert.InDelta(t, 2200.0/3, p.ObjVal(), 1e-6)
		})
	}
}

func TestWarmUp(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.StdBasis())
	require.NoError(t, p.WarmUp())
	assert.True(t, p.BfExists())
	assert.Equal(t, Feasible, p.PrimStatus())
	assert.Equal(t, Infeasible, p.DualStatus())
	assert.Equal(t, 0.0, p.ObjVal())

	require.NoError(t, p.Simplex(nil))
	require.NoError(t, p.WarmUp())
	assert.Equal(t, Feasible, p.PrimStatus())
	assert.Equal(t, Feasible, p.DualStatus())
	assert.InDelta(t, 2200.0/3, p.ObjVal(), 1e-6)
	assert.Equal(t, Optimal, p.Status())
}

func TestFactorizationTypes(t *testing.T) {
	var objs []float64
	for _, typ := range []BfType{BfDenseLU, BfSparseLU} {
		p := buildProblem(t, plantData())
		parm := DefaultBfcp()
		parm.Type = typ
		require.NoError(t, p.SetBfcp(parm))
		assert.Equal(t, typ, p.Bfcp().Type)

		require.NoError(t, p.Simplex(nil))
		assert.Equal(t, Optimal, p.Status())
		objs = append(objs, p.ObjVal())

		// a new factorization from scratch has no updates
		require.NoError(t, p.Factorize())
		assert.True(t, p.BfExists())
		assert.False(t, p.BfUpdated())
	}
	assert.InDelta(t, objs[0], objs[1], 1e-9)

	p := buildProblem(t, plantData())
	require.NoError(t, p.Factorize())
	bad := DefaultBfcp()
	bad.PivTol = 2
	assert.ErrorIs(t, p.SetBfcp(bad), ErrInvalidOption)
	assert.True(t, p.BfExists())
	require.NoError(t, p.SetBfcp(nil))
	assert.False(t, p.BfExists())
	assert.Equal(t, *DefaultBfcp(), p.Bfcp())
}

func TestEvalTabReportsWorkingSpaceErrors(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.Simplex(nil))
	require.True(t, p.BfExists())

	m := p.NumRows()
	basic, nonBasic := 0, 0
	for k := 1; k <= m+p.NumCols(); k++ {
		var st VarStatus
		if k <= m {
			st = p.RowStat(k)
		} else {
			st = p.ColStat(k - m)
		}
		if st == Basic && basic == 0 {
			basic = k
		} else if st != Basic && nonBasic == 0 {
			nonBasic = k
		}
	}
	require.NotZero(t, basic)
	require.NotZero(t, nonBasic)

	// inconsistent bounds slipped in behind the setters
	c := p.cols[p.NumCols()-1]
	c.typ, c.lb, c.ub = Double, 2, 1

	_, _, err := p.EvalTabRow(basic)
	assert.ErrorIs(t, err, ErrBound)
	_, _, err = p.EvalTabCol(nonBasic)
	assert.ErrorIs(t, err, ErrBound)
}
