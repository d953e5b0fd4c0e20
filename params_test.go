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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmcpSetAndSnapshot(t *testing.T) {
	parm := DefaultSmcp()

	require.NoError(t, parm.Set("meth", float64(Dual)))
	require.NoError(t, parm.Set("presolve", 1))
	require.NoError(t, parm.Set("it_lim", 25))
	assert.Equal(t, Dual, parm.Meth)
	assert.True(t, parm.Presolve)
	assert.Equal(t, 25, parm.ItLim)

	snap := parm.Snapshot()
	assert.Equal(t, float64(Dual), snap["meth"])
	assert.Equal(t, 1.0, snap["presolve"])
	assert.Equal(t, 1e-7, snap["tol_bnd"])
	assert.Len(t, snap, len(SmcpKeys()))
	assert.NoError(t, parm.validate())
}

func TestParamSetErrors(t *testing.T) {
	tests := map[string]struct {
		key string
		val float64
	}{
		"unknown key":      {"no_such_key", 1},
		"not a number":     {"tol_bnd", math.NaN()},
		"enum":             {"meth", 7},
		"bool":             {"presolve", 0.5},
		"fractional int":   {"it_lim", 1.5},
		"negative int":     {"tm_lim", -1},
		"float too large":  {"tol_dj", 0.5},
		"float too small":  {"tol_piv", 0},
		"zero output freq": {"out_frq", 0},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			parm := DefaultSmcp()
			before := *parm
			err := parm.Set(tt.key, tt.val)
			assert.ErrorIs(t, err, ErrInvalidOption)
			assert.Equal(t, before, *parm)
		})
	}
}

func TestParamUpdate(t *testing.T) {
	parm := DefaultIocp()

	warnings, err := parm.Update(map[string]float64{
		"br_tech":  float64(BranchMost),
		"gmi_cuts": 1,
		"mip_gap":  0.01,
		"bogus":    3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"unknown control parameter bogus"}, warnings)
	assert.Equal(t, BranchMost, parm.BrTech)
	assert.True(t, parm.GMICuts)
	assert.Equal(t, 0.01, parm.MIPGap)

	// keys are applied in sorted order, so br_tech is set before the
	// invalid tol_int stops the update
	parm = DefaultIocp()
	_, err = parm.Update(map[string]float64{
		"br_tech": float64(BranchFirst),
		"tol_int": 1,
	})
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.Equal(t, BranchFirst, parm.BrTech)
}

func TestParamValidate(t *testing.T) {
	smcp := DefaultSmcp()
	smcp.ObjLL, smcp.ObjUL = 1, 0
	assert.ErrorIs(t, smcp.validate(), ErrInvalidOption)

	iocp := DefaultIocp()
	iocp.CbSize = 1000
	assert.ErrorIs(t, iocp.validate(), ErrInvalidOption)

	iptcp := DefaultIptcp()
	iptcp.TolGap = -1
	assert.ErrorIs(t, iptcp.validate(), ErrInvalidOption)

	var bfcp *Bfcp
	assert.ErrorIs(t, bfcp.validate(), ErrInvalidOption)
	_, err := NewProblem(WithBfcp(&Bfcp{}))
	assert.ErrorIs(t, err, ErrInvalidOption)

	p, err := NewProblem(WithBfcp(DefaultBfcp()))
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestParamKeys(t *testing.T) {
	for name, keys := range map[string][]string{
		"smcp":  SmcpKeys(),
		"iptcp": IptcpKeys(),
		"iocp":  IocpKeys(),
		"bfcp":  BfcpKeys(),
	} {
		assert.IsIncreasing(t, keys, name)
	}
	assert.Contains(t, IocpKeys(), "msg_lev")
	assert.Contains(t, SmcpKeys(), "tol_bnd")
	assert.Contains(t, IocpKeys(), "mip_gap")
	assert.Contains(t, BfcpKeys(), "piv_tol")
}
