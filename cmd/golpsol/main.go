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

// Command golpsol reads an LP/MIP problem from a file, solves it and
// writes the solution.
//
//	golpsol [options] FILE
//
// The input format is taken from the flags or, failing that, from the file
// extension (.mps, .lp, .glp, optionally followed by .gz).
package main

import (
	"compress/gzip"
	"flag"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/costela/golpk"
)

type config struct {
	format   string
	input    string
	check    bool
	dir      string
	scale    bool
	presolve bool
	method   string
	exact    bool
	interior bool
	nomip    bool
	tmLim    int
	itLim    int
	mipGap   float64
	cuts     bool
	output   string
	rawSol   string
	ranges   string
	writes   map[string]*string
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("golpsol", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := &config{writes: map[string]*string{}}

	mps := fs.Bool("mps", false, "read problem in fixed MPS format")
	freemps := fs.Bool("freemps", false, "read problem in free MPS format")
	lp := fs.Bool("lp", false, "read problem in CPLEX LP format")
	glp := fs.Bool("glp", false, "read problem in native format")
	fs.BoolVar(&cfg.check, "check", false, "do not solve the problem, check input only")
	minimize := fs.Bool("min", false, "minimization")
	maximize := fs.Bool("max", false, "maximization")
	fs.BoolVar(&cfg.scale, "scale", true, "scale the problem")
	fs.BoolVar(&cfg.presolve, "presolve", false, "use presolver")
	primal := fs.Bool("primal", false, "use primal simplex")
	dual := fs.Bool("dual", false, "use dual simplex")
	fs.BoolVar(&cfg.exact, "exact", false, "use simplex method based on exact arithmetic")
	fs.BoolVar(&cfg.interior, "interior", false, "use interior point method (LP only)")
	fs.BoolVar(&cfg.nomip, "nomip", false, "consider all integer variables as continuous")
	fs.IntVar(&cfg.tmLim, "tmlim", 0, "limit solution time to `seconds`")
	fs.IntVar(&cfg.itLim, "itlim", 0, "limit simplex iterations")
	fs.Float64Var(&cfg.mipGap, "mipgap", 0, "relative MIP gap tolerance")
	fs.BoolVar(&cfg.cuts, "cuts", false, "generate all cutting planes")
	fs.StringVar(&cfg.output, "o", "", "write solution report to `filename`")
	fs.StringVar(&cfg.rawSol, "w", "", "write solution in raw format to `filename`")
	fs.StringVar(&cfg.ranges, "ranges", "", "write sensitivity analysis report to `filename`")
	for _, f := range []string{"wmps", "wfreemps", "wlp", "wglp"} {
		cfg.writes[f] = fs.String(f, "", "write problem to `filename` in "+strings.TrimPrefix(f, "w")+" format")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, errors.New("exactly one input file expected")
	}
	cfg.input = fs.Arg(0)

	for name, set := range map[string]bool{"mps": *mps, "freemps": *freemps, "lp": *lp, "glp": *glp} {
		if !set {
			continue
		}
		if cfg.format != "" {
			return nil, errors.New("only one input format allowed")
		}
		cfg.format = name
	}
	if cfg.format == "" {
		cfg.format = formatFromName(cfg.input)
		if cfg.format == "" {
			return nil, errors.Errorf("cannot guess the format of %q", cfg.input)
		}
	}
	switch {
	case *minimize && *maximize:
		return nil, errors.New("--min and --max are mutually exclusive")
	case *minimize:
		cfg.dir = "min"
	case *maximize:
		cfg.dir = "max"
	}
	switch {
	case *primal && *dual:
		return nil, errors.New("--primal and --dual are mutually exclusive")
	case *dual:
		cfg.method = "dual"
	default:
		cfg.method = "primal"
	}
	if cfg.exact && cfg.interior {
		return nil, errors.New("--exact and --interior are mutually exclusive")
	}
	return cfg, nil
}

func formatFromName(name string) string {
	name = strings.TrimSuffix(strings.ToLower(name), ".gz")
	switch {
	case strings.HasSuffix(name, ".mps"):
		return "mps"
	case strings.HasSuffix(name, ".lp"):
		return "lp"
	case strings.HasSuffix(name, ".glp"):
		return "glp"
	}
	return ""
}

func openInput(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "%s", name)
	}
	return readCloser{zr, f}, nil
}

type readCloser struct {
	io.Reader
	f *os.File
}

func (rc readCloser) Close() error { return rc.f.Close() }

// writeFile creates name, gzip compressed for a .gz suffix, and passes it
// to write. "-" is standard output.
func writeFile(name string, stdout io.Writer, write func(io.Writer) error) error {
	if name == "-" {
		return write(stdout)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(name, ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}
	err = write(w)
	if zw != nil {
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return errors.Wrapf(err, "%s", name)
}

func readProblem(p *golpk.Problem, cfg *config) error {
	r, err := openInput(cfg.input)
	if err != nil {
		return err
	}
	defer r.Close()

	switch cfg.format {
	case "mps":
		err = p.ReadMPS(r, golpk.MPSDeck)
	case "freemps":
		err = p.ReadMPS(r, golpk.MPSFile)
	case "lp":
		err = p.ReadLP(r)
	case "glp":
		err = p.ReadProb(r)
	}
	return errors.Wrapf(err, "reading %s", cfg.input)
}

func writeProblems(p *golpk.Problem, cfg *config, stdout io.Writer) error {
	writers := map[string]func(io.Writer) error{
		"wmps":     func(w io.Writer) error { return p.WriteMPS(w, golpk.MPSDeck) },
		"wfreemps": func(w io.Writer) error { return p.WriteMPS(w, golpk.MPSFile) },
		"wlp":      p.WriteLP,
		"wglp":     p.WriteProb,
	}
	for _, key := range []string{"wmps", "wfreemps", "wlp", "wglp"} {
		name := *cfg.writes[key]
		if name == "" {
			continue
		}
		if err := writeFile(name, stdout, writers[key]); err != nil {
			return err
		}
	}
	return nil
}

func solve(p *golpk.Problem, cfg *config) (golpk.SolutionKind, error) {
	tmLim := 0
	if cfg.tmLim > 0 {
		tmLim = int(time.Duration(cfg.tmLim) * time.Second / time.Millisecond)
	}
	if cfg.nomip {
		for j := 1; j <= p.NumCols(); j++ {
			if err := p.SetColKind(j, golpk.Continuous); err != nil {
				return 0, err
			}
		}
	}

	if cfg.interior {
		if p.NumInt() > 0 {
			return 0, errors.New("interior-point method cannot solve MIP problems; use --nomip")
		}
		parm := golpk.DefaultIptcp()
		if cfg.itLim > 0 {
			parm.ItLim = cfg.itLim
		}
		return golpk.InteriorSolution, p.Interior(parm)
	}

	if cfg.scale && !cfg.presolve {
		if err := p.Scale(golpk.ScaleAuto); err != nil {
			return 0, err
		}
	}
	smcp := golpk.DefaultSmcp()
	if cfg.method == "dual" {
		smcp.Meth = golpk.DualPrimal
	}
	if cfg.itLim > 0 {
		smcp.ItLim = cfg.itLim
	}
	if tmLim > 0 {
		smcp.TmLim = tmLim
	}
	smcp.Presolve = cfg.presolve

	mip := p.NumInt() > 0
	if !cfg.presolve || !mip {
		if err := p.AdvBasis(); err != nil {
			return 0, err
		}
		var err error
		if cfg.exact {
			err = p.Exact(smcp)
		} else {
			err = p.Simplex(smcp)
		}
		if !mip || err != nil || p.Status() != golpk.Optimal {
			return golpk.BasicSolution, err
		}
	}

	iocp := golpk.DefaultIocp()
	iocp.Presolve = cfg.presolve
	iocp.MIPGap = cfg.mipGap
	if tmLim > 0 {
		iocp.TmLim = tmLim
	}
	if cfg.cuts {
		iocp.GMICuts, iocp.MIRCuts, iocp.CovCuts, iocp.ClqCuts = true, true, true, true
	}
	return golpk.MIPSolution, p.Intopt(iocp)
}

func writeResults(p *golpk.Problem, kind golpk.SolutionKind, cfg *config, stdout io.Writer) error {
	if cfg.output != "" {
		report := map[golpk.SolutionKind]func(io.Writer) error{
			golpk.BasicSolution:    p.PrintSol,
			golpk.InteriorSolution: p.PrintIpt,
			golpk.MIPSolution:      p.PrintMIP,
		}[kind]
		if err := writeFile(cfg.output, stdout, report); err != nil {
			return err
		}
	}
	if cfg.rawSol != "" {
		write := map[golpk.SolutionKind]func(io.Writer) error{
			golpk.BasicSolution:    p.WriteSol,
			golpk.InteriorSolution: p.WriteIpt,
			golpk.MIPSolution:      p.WriteMIP,
		}[kind]
		if err := writeFile(cfg.rawSol, stdout, write); err != nil {
			return err
		}
	}
	if cfg.ranges != "" {
		if kind != golpk.BasicSolution || p.Status() != golpk.Optimal {
			return errors.New("sensitivity analysis needs an optimal basic solution")
		}
		if !p.BfExists() {
			if err := p.Factorize(); err != nil {
				return err
			}
		}
		return writeFile(cfg.ranges, stdout, func(w io.Writer) error { return p.PrintRanges(w, nil) })
	}
	return nil
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "", 0)
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if err != flag.ErrHelp {
			logger.Print(err)
		}
		return 2
	}

	p, err := golpk.NewProblem(golpk.WithLogger(logger))
	if err != nil {
		logger.Print(err)
		return 1
	}
	logger.Printf("GOLPSOL: golpk %s LP/MIP solver", golpk.Version())
	if err := readProblem(p, cfg); err != nil {
		logger.Print(err)
		return 1
	}
	switch cfg.dir {
	case "min":
		p.SetObjDir(golpk.Minimize)
	case "max":
		p.SetObjDir(golpk.Maximize)
	}
	logger.Printf("%d rows, %d columns, %d non-zeros", p.NumRows(), p.NumCols(), p.NumNonzeros())
	if n := p.NumInt(); n > 0 {
		logger.Printf("%d integer variables, %d of which are binary", n, p.NumBin())
	}

	if err := writeProblems(p, cfg, stdout); err != nil {
		logger.Print(err)
		return 1
	}
	if cfg.check {
		return 0
	}

	start := time.Now()
	kind, err := solve(p, cfg)
	logger.Printf("Time used:   %.1f secs", time.Since(start).Seconds())
	if err != nil {
		logger.Printf("solver failed: %v", err)
		var serr golpk.SolveError
		if errors.As(err, &serr) {
			// limits and infeasibility still leave a solution worth writing
			if werr := writeResults(p, kind, cfg, stdout); werr != nil {
				logger.Print(werr)
			}
		}
		return 1
	}
	if err := writeResults(p, kind, cfg, stdout); err != nil {
		logger.Print(err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
