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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// snapshot is everything the problem formats carry.
type snapshot struct {
	Name, ObjName string
	Dir           Direction
	C0            float64
	Rows          []rowSnapshot
	Cols          []colSnapshot
}

type rowSnapshot struct {
	Name   string
	Type   BoundType
	Lb, Ub float64
	Ind    []int
	Val    []float64
}

type colSnapshot struct {
	Name   string
	Kind   VarKind
	Type   BoundType
	Lb, Ub float64
	Coef   float64
}

func takeSnapshot(p *Problem) snapshot {
	s := snapshot{Name: p.Name(), ObjName: p.ObjName(), Dir: p.ObjDir(), C0: p.ObjCoef(0)}
	for i := 1; i <= p.NumRows(); i++ {
		ind, val := p.MatRow(i)
		s.Rows = append(s.Rows, rowSnapshot{p.RowName(i), p.RowType(i), p.RowLower(i), p.RowUpper(i), ind, val})
	}
	for j := 1; j <= p.NumCols(); j++ {
		s.Cols = append(s.Cols, colSnapshot{p.ColName(j), p.ColKind(j), p.ColType(j), p.ColLower(j), p.ColUpper(j), p.ObjCoef(j)})
	}
	return s
}

type FormatSuite struct {
	suite.Suite
	p *Problem
}

func TestFormatSuite(t *testing.T) {
	suite.Run(t, new(FormatSuite))
}

// SetupTest builds a problem using every bound type, integer and binary
// columns and a free row.
func (s *FormatSuite) SetupTest() {
	p := buildProblem(s.T(), lpData{
		dir: Maximize,
		c:   []float64{3, 2, -4, 1, 5, 0, 0.25},
		a: [][]float64{
			{1, 1, 2, 1, 0, 0, 0},
			{1, 3, 1, 0, 1, 0, 0},
			{1, -1, 0, 0, 0, 1, 0},
			{0, 0, 0, 1, 1, 0, 1},
			{1, 0, 0, 1, 0, 0, 0},
		},
		rlb: []float64{-inf, 1, -2, 7, -inf},
		rub: []float64{4, inf, 5, 7, inf},
		clb: []float64{0, -inf, -inf, 0, 0, 2.5, 3},
		cub: []float64{40, inf, 10, 10, 1, inf, 3},
	})
	s.Require().NoError(p.SetName("sample"))
	s.Require().NoError(p.SetObjName("profit"))
	s.Require().NoError(p.SetObjCoef(0, 1.5))
	for i, name := range []string{"c1", "c2", "c3", "c4", "c5"} {
		s.Require().NoError(p.SetRowName(i+1, name))
	}
	for j, name := range []string{"x", "y", "z", "w", "sw", "lo", "fx"} {
		s.Require().NoError(p.SetColName(j+1, name))
	}
	s.Require().NoError(p.SetColKind(4, Integer))
	s.Require().NoError(p.SetColKind(5, Binary))
	s.p = p
}

func (s *FormatSuite) roundTrip(write func(*Problem, *bytes.Buffer) error, read func(*Problem, *bytes.Buffer) error) snapshot {
	var buf bytes.Buffer
	s.Require().NoError(write(s.p, &buf))

	q, err := NewProblem()
	s.Require().NoError(err)
	s.Require().NoError(read(q, &buf))
	return takeSnapshot(q)
}

func (s *FormatSuite) TestNativeRoundTrip() {
	got := s.roundTrip(
		func(p *Problem, b *bytes.Buffer) error { return p.WriteProb(b) },
		func(q *Problem, b *bytes.Buffer) error { return q.ReadProb(b) },
	)
	s.Equal(takeSnapshot(s.p), got)
}

func (s *FormatSuite) TestNativeRoundTripUnnamed() {
	q, err := s.p.Copy(false)
	s.Require().NoError(err)
	s.p = q

	got := s.roundTrip(
		func(p *Problem, b *bytes.Buffer) error { return p.WriteProb(b) },
		func(q *Problem, b *bytes.Buffer) error { return q.ReadProb(b) },
	)
	s.Equal(takeSnapshot(s.p), got)
}

func (s *FormatSuite) TestMPSRoundTrip() {
	for _, format := range []MPSFormat{MPSDeck, MPSFile} {
		got := s.roundTrip(
			func(p *Problem, b *bytes.Buffer) error { return p.WriteMPS(b, format) },
			func(q *Problem, b *bytes.Buffer) error { return q.ReadMPS(b, format) },
		)
		s.Equal(takeSnapshot(s.p), got, "format %d", format)
	}
}

func (s *FormatSuite) TestMPSGeneratedNames() {
	s.Require().NoError(s.p.SetColName(1, "much_too_long"))
	s.Require().NoError(s.p.SetRowName(2, ""))

	var buf bytes.Buffer
	s.Require().NoError(s.p.WriteMPS(&buf, MPSDeck))
	q, err := NewProblem()
	s.Require().NoError(err)
	s.Require().NoError(q.ReadMPS(&buf, MPSDeck))
	s.Equal("C1", q.ColName(1))
	s.Equal("R2", q.RowName(2))

	buf.Reset()
	s.Require().NoError(s.p.WriteMPS(&buf, MPSFile))
	s.Require().NoError(q.ReadMPS(&buf, MPSFile))
	s.Equal("much_too_long", q.ColName(1))
}

func (s *FormatSuite) TestLPRoundTrip() {
	got := s.roundTrip(
		func(p *Problem, b *bytes.Buffer) error { return p.WriteLP(b) },
		func(q *Problem, b *bytes.Buffer) error { return q.ReadLP(b) },
	)
	want := takeSnapshot(s.p)
	want.Name = ""
	s.Equal(want, got)
}

func (s *FormatSuite) TestReadMPSFixed() {
	src := `NAME          TESTPROB
ROWS
 N  COST
 L  LIM1
 G  LIM2
 E  MYEQN
COLUMNS
    XONE      COST                 1   LIM1                 1
    XONE      LIM2                 1
    MARKER    'MARKER'                 'INTORG'
    YTWO      COST                 2   LIM1                 1
    YTWO      MYEQN               -1
    MARKER    'MARKER'                 'INTEND'
    ZTHREE    COST                -1   MYEQN                1
RHS
    RHS       LIM1                 4   LIM2                 1
    RHS       MYEQN                7
RANGES
    RNG       LIM1               2.5
BOUNDS
 UP BND       XONE                 4
 LO BND       YTWO                -1
 UP BND       YTWO                 1
ENDATA
`
	q, err := NewProblem()
	s.Require().NoError(err)
	s.Require().NoError(q.ReadMPS(strings.NewReader(src), MPSDeck))

	s.Equal("TESTPROB", q.Name())
	s.Equal("COST", q.ObjName())
	s.Equal(3, q.NumRows())
	s.Equal(3, q.NumCols())
	s.Equal(Double, q.RowType(1))
	s.Equal(1.5, q.RowLower(1))
	s.Equal(4.0, q.RowUpper(1))
	s.Equal(Lower, q.RowType(2))
	s.Equal(Fixed, q.RowType(3))
	s.Equal(7.0, q.RowLower(3))
	s.Equal(Integer, q.ColKind(2))
	s.Equal(-1.0, q.ColLower(2))
	s.Equal(1.0, q.ColUpper(2))
	s.Equal(Continuous, q.ColKind(3))
	s.Equal(Lower, q.ColType(3))
	s.Equal(-1.0, q.ObjCoef(3))
}

func (s *FormatSuite) TestReadLP() {
	src := `\ a small model
Minimize
 cost: 2 x + 3 y - z + 4
Subject To
 -3 <= x - y <= 8
 cap: x + y + z >= 2
 \* a block
    comment *\
 bal: 2 x - 1 z = 0
Bounds
 x <= 10
 -1 <= y <= 1
 z free
Generals
 y
End
`
	q, err := NewProblem()
	s.Require().NoError(err)
	s.Require().NoError(q.ReadLP(strings.NewReader(src)))

	s.Equal("cost", q.ObjName())
	s.Equal(Minimize, q.ObjDir())
	s.Equal(4.0, q.ObjCoef(0))
	s.Equal(3, q.NumRows())
	s.Equal("r_1", q.RowName(1))
	s.Equal(Double, q.RowType(1))
	s.Equal(-3.0, q.RowLower(1))
	s.Equal(Fixed, q.RowType(3))
	ind, val := q.MatRow(3)
	s.Equal([]int{1, 3}, ind)
	s.Equal([]float64{2, -1}, val)
	s.Equal(Double, q.ColType(1))
	s.Equal(Integer, q.ColKind(2))
	s.Equal(Free, q.ColType(3))
}

func (s *FormatSuite) TestReadErrorsLeaveProblemUnchanged() {
	before := takeSnapshot(s.p)
	for name, read := range map[string]func() error{
		"native truncated": func() error { return s.p.ReadProb(strings.NewReader("p lp min 1 1 1\ni 1 u 4\n")) },
		"native bad count": func() error { return s.p.ReadProb(strings.NewReader("p lp min 1 1 2\na 1 1 1\ne o f\n")) },
		"mps no endata":  func() error { return s.p.ReadMPS(strings.NewReader("NAME x\nROWS\n N obj\n"), MPSFile) },
		"mps bad order":  func() error { return s.p.ReadMPS(strings.NewReader("COLUMNS\nROWS\nENDATA\n"), MPSFile) },
		"mps unknown row": func() error {
			return s.p.ReadMPS(strings.NewReader("ROWS\n N obj\nCOLUMNS\n x foo 1\nENDATA\n"), MPSFile)
		},
		"lp no objective": func() error { return s.p.ReadLP(strings.NewReader("Subject To\n x >= 1\nEnd\n")) },
		"lp twice":        func() error { return s.p.ReadLP(strings.NewReader("min\n x\nst\n x + x >= 1\nend\n")) },
	} {
		err := read()
		s.ErrorIs(err, ErrFormat, name)
		s.Equal(before, takeSnapshot(s.p), name)
	}

	err := s.p.ReadProb(strings.NewReader("p lp min 1 1 2\na 1 1 1\na 1 1 2\ne o f\n"))
	var dup *DuplicateError
	s.Require().ErrorAs(err, &dup)
	s.Equal(1, dup.First)
	s.Equal(2, dup.Then)
	s.Equal(before, takeSnapshot(s.p))
}

func TestSolutionFiles(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.Simplex(nil))
	require.NoError(t, p.Interior(nil))

	var sol, ipt bytes.Buffer
	require.NoError(t, p.WriteSol(&sol))
	require.NoError(t, p.WriteIpt(&ipt))

	q := buildProblem(t, plantData())
	require.NoError(t, q.ReadSol(&sol))
	require.NoError(t, q.ReadIpt(&ipt))
	for _, kind := range []SolutionKind{BasicSolution, InteriorSolution} {
		want, err := p.Solution(kind)
		require.NoError(t, err)
		got, err := q.Solution(kind)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.False(t, q.BfExists(), "a read basis is not factorized")

	m := buildProblem(t, knapsackData())
	require.NoError(t, m.Simplex(nil))
	require.NoError(t, m.Intopt(nil))
	var mip bytes.Buffer
	require.NoError(t, m.WriteMIP(&mip))
	n := buildProblem(t, knapsackData())
	require.NoError(t, n.ReadMIP(&mip))
	assert.Equal(t, Optimal, n.MIPStatus())
	assert.Equal(t, m.MIPObjVal(), n.MIPObjVal())
	assert.Equal(t, []float64{0, 1, 1, 1}, n.MIPColsVal([]int{1, 2, 3, 4}))
}

func TestSolutionFileMismatch(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.Simplex(nil))
	var sol bytes.Buffer
	require.NoError(t, p.WriteSol(&sol))

	q := buildProblem(t, knapsackData())
	assert.ErrorIs(t, q.ReadSol(&sol), ErrFormat)
	assert.Equal(t, Undefined, q.Status())

	assert.ErrorIs(t, q.ReadSol(strings.NewReader("s bas 1 4 f f 0\n")), ErrFormat)
}

func TestReports(t *testing.T) {
	p := buildProblem(t, plantData())
	require.NoError(t, p.SetColName(1, "a_rather_long_column_name"))
	require.NoError(t, p.Simplex(nil))

	var out bytes.Buffer
	require.NoError(t, p.PrintSol(&out))
	report := out.String()
	assert.Contains(t, report, "OPTIMAL")
	assert.Contains(t, report, "733.3333333")
	assert.Contains(t, report, "a_rather_long_column_name")
	assert.Contains(t, report, "KKT.PE")
	assert.Contains(t, report, "KKT.DB")
	assert.True(t, strings.HasSuffix(report, "End of output\n"))

	out.Reset()
	require.NoError(t, p.PrintRanges(&out, nil))
	assert.NotEmpty(t, out.String())

	m := buildProblem(t, knapsackData())
	require.NoError(t, m.Simplex(nil))
	require.NoError(t, m.Intopt(nil))
	out.Reset()
	require.NoError(t, m.PrintMIP(&out))
	assert.Contains(t, out.String(), "INTEGER OPTIMAL")
	assert.NotContains(t, out.String(), "KKT.DE")
}
