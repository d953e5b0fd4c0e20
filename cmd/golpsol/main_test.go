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
package main

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costela/golpk"
)

// plant builds max 10 x1 + 6 x2 + 4 x3 subject to three capacity rows.
func plant(t *testing.T, integer bool) *golpk.Problem {
	t.Helper()

	p, err := golpk.NewProblem(golpk.WithName("plant"), golpk.WithTermOut(false))
	require.NoError(t, err)
	require.NoError(t, p.SetObjDir(golpk.Maximize))
	_, err = p.AddRows(3)
	require.NoError(t, err)
	_, err = p.AddCols(3)
	require.NoError(t, err)

	rows := [][]float64{{1, 1, 1}, {10, 4, 5}, {2, 2, 6}}
	caps := []float64{100, 600, 300}
	for i, r := range rows {
		require.NoError(t, p.SetMatRow(i+1, []int{1, 2, 3}, r))
		require.NoError(t, p.SetRowBounds(i+1, golpk.Upper, 0, caps[i]))
	}
	for j, c := range []float64{10, 6, 4} {
		require.NoError(t, p.SetObjCoef(j+1, c))
		require.NoError(t, p.SetColBounds(j+1, golpk.Lower, 0, 0))
		if integer {
			require.NoError(t, p.SetColKind(j+1, golpk.Integer))
		}
	}
	return p
}

func writeProblem(t *testing.T, name string, write func(*os.File) error) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, write(f))
	require.NoError(t, f.Close())
	return path
}

func runCmd(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunLP(t *testing.T) {
	p := plant(t, false)
	path := writeProblem(t, "plant.lp", func(f *os.File) error { return p.WriteLP(f) })

	for name, args := range map[string][]string{
		"primal":   {"-o", "-", path},
		"dual":     {"-dual", "-o", "-", path},
		"presolve": {"-presolve", "-o", "-", path},
		"exact":    {"-exact", "-o", "-", path},
		"interior": {"-interior", "-o", "-", path},
	} {
		t.Run(name, func(t *testing.T) {
			code, out, errOut := runCmd(args...)
			require.Equal(t, 0, code, errOut)
			assert.Contains(t, out, "OPTIMAL")
			assert.Contains(t, out, "733.33")
			assert.Contains(t, errOut, "3 rows, 3 columns, 9 non-zeros")
		})
	}
}

func TestRunMIPGzip(t *testing.T) {
	p := plant(t, true)
	path := writeProblem(t, "plant.mps.gz", func(f *os.File) error {
		zw := gzip.NewWriter(f)
		if err := p.WriteMPS(zw, golpk.MPSDeck); err != nil {
			return err
		}
		return zw.Close()
	})

	code, out, errOut := runCmd("-o", "-", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "3 integer variables")
	assert.Contains(t, out, "INTEGER OPTIMAL")
	assert.Contains(t, out, "732 (")

	// the relaxation only
	code, out, errOut = runCmd("-nomip", "-o", "-", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "733.33")

	code, _, errOut = runCmd("-interior", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--nomip")
}

func TestRunRawSolution(t *testing.T) {
	p := plant(t, true)
	path := writeProblem(t, "plant.glp", func(f *os.File) error { return p.WriteProb(f) })
	sol := filepath.Join(t.TempDir(), "plant.sol")

	code, _, errOut := runCmd("-cuts", "-presolve", "-w", sol, path)
	require.Equal(t, 0, code, errOut)

	f, err := os.Open(sol)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, p.ReadMIP(f))
	assert.Equal(t, golpk.Optimal, p.MIPStatus())
	assert.InDelta(t, 732, p.MIPObjVal(), 1e-9)
}

func TestRunCheckAndConvert(t *testing.T) {
	p := plant(t, false)
	path := writeProblem(t, "plant.mps", func(f *os.File) error { return p.WriteMPS(f, golpk.MPSDeck) })
	dir := t.TempDir()
	lp := filepath.Join(dir, "plant.lp")
	glp := filepath.Join(dir, "plant.glp.gz")

	code, out, errOut := runCmd("-check", "-wlp", lp, "-wglp", glp, "-wfreemps", "-", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "ROWS")
	assert.NotContains(t, errOut, "Time used")

	q, err := golpk.NewProblem()
	require.NoError(t, err)
	f, err := os.Open(lp)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, q.ReadLP(f))
	assert.Equal(t, 3, q.NumRows())
	assert.Equal(t, 9, q.NumNonzeros())

	code, _, errOut = runCmd("-min", "-o", "-", glp)
	assert.Equal(t, 0, code, errOut)
}

func TestRunRanges(t *testing.T) {
	p := plant(t, false)
	path := writeProblem(t, "plant.lp", func(f *os.File) error { return p.WriteLP(f) })

	code, out, errOut := runCmd("-ranges", "-", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "End of report")

	code, _, errOut = runCmd("-interior", "-ranges", "-", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "sensitivity analysis")
}

func TestRunLimits(t *testing.T) {
	p := plant(t, false)
	path := writeProblem(t, "plant.lp", func(f *os.File) error { return p.WriteLP(f) })

	code, _, errOut := runCmd("-scale=false", "-itlim", "1", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "solver failed")
}

func TestRunUsageErrors(t *testing.T) {
	tests := map[string]struct {
		args []string
		code int
	}{
		"no input":        {nil, 2},
		"two inputs":      {[]string{"a.lp", "b.lp"}, 2},
		"unknown format":  {[]string{"problem.txt"}, 2},
		"two formats":     {[]string{"-mps", "-lp", "problem"}, 2},
		"min and max":     {[]string{"-min", "-max", "a.lp"}, 2},
		"primal and dual": {[]string{"-primal", "-dual", "a.lp"}, 2},
		"exact interior":  {[]string{"-exact", "-interior", "a.lp"}, 2},
		"unknown flag":    {[]string{"-bogus", "a.lp"}, 2},
		"missing file":    {[]string{filepath.Join(t.TempDir(), "missing.lp")}, 1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			code, _, _ := runCmd(tt.args...)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestFormatFromName(t *testing.T) {
	for name, want := range map[string]string{
		"a.mps":    "mps",
		"A.MPS.GZ": "mps",
		"b.lp":     "lp",
		"c.glp.gz": "glp",
		"d.txt":    "",
		"lp":       "",
	} {
		assert.Equal(t, want, formatFromName(name), name)
	}
}
