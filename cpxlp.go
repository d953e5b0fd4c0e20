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
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

type lpKind int

const (
	lpEOF lpKind = iota
	lpName
	lpNumber
	lpPlus
	lpMinus
	lpColon
	lpLE
	lpGE
	lpEQ
)

type lpToken struct {
	kind lpKind
	s    string
	v    float64
	bol  bool // first token on its line
	line int
}

// lpHuge is the magnitude from which bounds count as infinite.
const lpHuge = 1e30

const lpSpecial = "!\"#$%&()/,.;?@_`'{}|~"

func isLPNameChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(lpSpecial, r)
}

func lpTokenize(src string) ([]lpToken, error) {
	var toks []lpToken
	line, bol := 1, true
	rs := []rune(src)
	for k := 0; k < len(rs); {
		r := rs[k]
		switch {
		case r == '\n':
			line++
			bol = true
			k++
			continue
		case unicode.IsSpace(r):
			k++
			continue
		case r == '\\':
			if k+1 < len(rs) && rs[k+1] == '*' {
				end := -1
				for e := k + 2; e+1 < len(rs); e++ {
					if rs[e] == '*' && rs[e+1] == '\\' {
						end = e
						break
					}
				}
				if end < 0 {
					return nil, errors.Wrapf(ErrFormat, "lp:%d: unterminated comment", line)
				}
				for _, c := range rs[k:end] {
					if c == '\n' {
						line++
						bol = true
					}
				}
				k = end + 2
				continue
			}
			for k < len(rs) && rs[k] != '\n' {
				k++
			}
			continue
		}

		tok := lpToken{bol: bol, line: line}
		bol = false
		switch {
		case unicode.IsDigit(r) || (r == '.' && k+1 < len(rs) && unicode.IsDigit(rs[k+1])):
			start := k
			for k < len(rs) && (unicode.IsDigit(rs[k]) || rs[k] == '.') {
				k++
			}
			if k < len(rs) && (rs[k] == 'e' || rs[k] == 'E') {
				e := k + 1
				if e < len(rs) && (rs[e] == '+' || rs[e] == '-') {
					e++
				}
				if e < len(rs) && unicode.IsDigit(rs[e]) {
					k = e
					for k < len(rs) && unicode.IsDigit(rs[k]) {
						k++
					}
				}
			}
			tok.kind, tok.s = lpNumber, string(rs[start:k])
			v, err := strconv.ParseFloat(tok.s, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrFormat, "lp:%d: invalid number %q", line, tok.s)
			}
			tok.v = v
		case isLPNameChar(r):
			start := k
			for k < len(rs) && isLPNameChar(rs[k]) {
				k++
			}
			tok.kind, tok.s = lpName, string(rs[start:k])
		case r == '+':
			tok.kind = lpPlus
			k++
		case r == '-':
			tok.kind = lpMinus
			k++
		case r == ':':
			tok.kind = lpColon
			k++
		case r == '<' || r == '>' || r == '=':
			k++
			next := rune(0)
			if k < len(rs) {
				next = rs[k]
			}
			switch {
			case r == '<':
				tok.kind = lpLE
			case r == '>':
				tok.kind = lpGE
			case next == '<':
				tok.kind = lpLE
			case next == '>':
				tok.kind = lpGE
			default:
				tok.kind = lpEQ
			}
			if next == '=' || (r == '=' && (next == '<' || next == '>')) {
				k++
			}
		default:
			return nil, errors.Wrapf(ErrFormat, "lp:%d: unexpected character %q", line, r)
		}
		toks = append(toks, tok)
	}
	return append(toks, lpToken{kind: lpEOF, line: line}), nil
}

type lpParser struct {
	toks []lpToken
	pos  int
	q    *Problem

	cols   map[string]int
	rows   map[string]bool
	ia, ja []int
	ar     []float64
}

// ReadLP replaces the problem by the one read from r in CPLEX LP format.
// The problem is unchanged on error.
func (p *Problem) ReadLP(r io.Reader) error {
	if err := p.checkAlive(); err != nil {
		return err
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "lp: read error")
	}
	toks, err := lpTokenize(string(src))
	if err != nil {
		return err
	}
	lp := &lpParser{toks: toks, q: scratch(), cols: map[string]int{}, rows: map[string]bool{}}
	if err := lp.parse(); err != nil {
		return err
	}
	return p.commit(lp.q)
}

func (lp *lpParser) peek() lpToken { return lp.toks[lp.pos] }

func (lp *lpParser) peekAt(k int) lpToken {
	if lp.pos+k >= len(lp.toks) {
		return lp.toks[len(lp.toks)-1]
	}
	return lp.toks[lp.pos+k]
}

func (lp *lpParser) take() lpToken {
	t := lp.toks[lp.pos]
	if t.kind != lpEOF {
		lp.pos++
	}
	return t
}

func (lp *lpParser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrFormat, "lp:%d: %s", lp.peek().line, fmt.Sprintf(format, args...))
}

// keyword returns the section starting at the current token, if any, and
// the number of tokens it spans.
func (lp *lpParser) keyword() (string, int) {
	t := lp.peek()
	if t.kind != lpName || !t.bol {
		return "", 0
	}
	next := strings.ToLower(lp.peekAt(1).s)
	switch strings.ToLower(t.s) {
	case "minimize", "minimise", "minimum", "min":
		return "min", 1
	case "maximize", "maximise", "maximum", "max":
		return "max", 1
	case "subject":
		if next == "to" {
			return "st", 2
		}
	case "such":
		if next == "that" {
			return "st", 2
		}
	case "st", "s.t.", "st.":
		return "st", 1
	case "bounds", "bound":
		return "bounds", 1
	case "general", "generals", "gen", "integer", "integers", "int":
		return "general", 1
	case "binary", "binaries", "bin":
		return "binary", 1
	case "end":
		return "end", 1
	}
	return "", 0
}

func (lp *lpParser) atSection() bool {
	kw, _ := lp.keyword()
	return kw != "" || lp.peek().kind == lpEOF
}

func (lp *lpParser) col(name string) int {
	if j, ok := lp.cols[name]; ok {
		return j
	}
	j := lp.q.addCols(1)
	c := lp.q.cols[j-1]
	c.name = name
	lp.q.setColBounds(c, Lower, 0, 0)
	lp.cols[name] = j
	return j
}

// label consumes "name:" if present.
func (lp *lpParser) label() string {
	if lp.peek().kind == lpName && lp.peekAt(1).kind == lpColon {
		name := lp.take().s
		lp.take()
		return name
	}
	return ""
}

func lpInf(s string) bool {
	switch strings.ToLower(s) {
	case "inf", "infinity":
		return true
	}
	return false
}

// number parses an optionally signed number, infinities included.
func (lp *lpParser) number() (float64, bool) {
	save := lp.pos
	sign := 1.0
	for lp.peek().kind == lpPlus || lp.peek().kind == lpMinus {
		if lp.take().kind == lpMinus {
			sign = -sign
		}
	}
	t := lp.peek()
	switch {
	case t.kind == lpNumber:
		lp.take()
		return sign * t.v, true
	case t.kind == lpName && lpInf(t.s):
		lp.take()
		return sign * math.Inf(1), true
	}
	lp.pos = save
	return 0, false
}

type lpTerm struct {
	col  int
	coef float64
}

// expr parses a linear expression. Constants are summed into c0.
func (lp *lpParser) expr() ([]lpTerm, float64, error) {
	var terms []lpTerm
	var c0 float64
	for !lp.atSection() {
		t := lp.peek()
		if t.kind == lpName && lp.peekAt(1).kind == lpColon {
			break
		}
		if t.kind != lpPlus && t.kind != lpMinus && t.kind != lpNumber && t.kind != lpName {
			break
		}
		sign := 1.0
		signed := false
		for lp.peek().kind == lpPlus || lp.peek().kind == lpMinus {
			if lp.take().kind == lpMinus {
				sign = -sign
			}
			signed = true
		}
		coef := 1.0
		hasCoef := false
		if lp.peek().kind == lpNumber {
			coef = lp.take().v
			hasCoef = true
		}
		t = lp.peek()
		if t.kind == lpName && !lp.atSection() && lp.peekAt(1).kind != lpColon {
			lp.take()
			terms = append(terms, lpTerm{lp.col(t.s), sign * coef})
			continue
		}
		if !hasCoef {
			if signed {
				return nil, 0, lp.errorf("missing term after sign")
			}
			break
		}
		c0 += sign * coef
	}
	return terms, c0, nil
}

func (lp *lpParser) parse() error {
	kw, span := lp.keyword()
	switch kw {
	case "min":
		lp.q.dir = Minimize
	case "max":
		lp.q.dir = Maximize
	default:
		return lp.errorf("objective section missing")
	}
	lp.pos += span
	lp.q.objName = lp.label()
	terms, c0, err := lp.expr()
	if err != nil {
		return err
	}
	seen := map[int]bool{}
	for _, t := range terms {
		if seen[t.col] {
			return lp.errorf("variable %q appears twice in the objective", lp.q.cols[t.col-1].name)
		}
		seen[t.col] = true
		lp.q.cols[t.col-1].coef = t.coef
	}
	lp.q.c0 = c0

	if kw, span = lp.keyword(); kw != "st" {
		return lp.errorf("constraints section missing")
	}
	lp.pos += span
	for !lp.atSection() {
		if err := lp.constraint(); err != nil {
			return err
		}
	}

	for {
		kw, span = lp.keyword()
		lp.pos += span
		switch kw {
		case "bounds":
			for !lp.atSection() {
				if err := lp.bound(); err != nil {
					return err
				}
			}
		case "general", "binary":
			for !lp.atSection() {
				t := lp.take()
				if t.kind != lpName {
					return lp.errorf("variable name expected")
				}
				c := lp.q.cols[lp.col(t.s)-1]
				if kw == "binary" {
					lp.q.setColKind(c, Binary)
				} else {
					c.kind = Integer
				}
			}
		case "end", "":
			if lp.peek().kind != lpEOF && kw == "" {
				return lp.errorf("unexpected %q", lp.peek().s)
			}
			if err := checkTriplets(lp.q.m(), lp.q.n(), lp.ia, lp.ja, lp.ar); err != nil {
				return errors.Wrap(err, "lp")
			}
			lp.q.loadMatrix(lp.ia, lp.ja, lp.ar)
			return nil
		default:
			return lp.errorf("misplaced section %q", kw)
		}
	}
}

func (lp *lpParser) relation() (lpKind, bool) {
	switch k := lp.peek().kind; k {
	case lpLE, lpGE, lpEQ:
		lp.take()
		return k, true
	}
	return 0, false
}

// limit narrows [lb, ub] by "expr rel v".
func limit(lb, ub *float64, rel lpKind, v float64) {
	switch rel {
	case lpLE:
		*ub = v
	case lpGE:
		*lb = v
	default:
		*lb, *ub = v, v
	}
}

// flip turns "v rel expr" into "expr rel' v".
func flip(rel lpKind) lpKind {
	switch rel {
	case lpLE:
		return lpGE
	case lpGE:
		return lpLE
	}
	return rel
}

func (lp *lpParser) constraint() error {
	name := lp.label()
	i := lp.q.m() + 1
	if name == "" {
		name = fmt.Sprintf("r_%d", i)
	}
	if lp.rows[name] {
		return lp.errorf("row %q defined twice", name)
	}
	lp.rows[name] = true

	lb, ub := math.Inf(-1), math.Inf(1)
	lhs := false
	save := lp.pos
	if v, ok := lp.number(); ok {
		if rel, ok := lp.relation(); ok {
			limit(&lb, &ub, flip(rel), v)
			lhs = true
		} else {
			lp.pos = save
		}
	}
	terms, c0, err := lp.expr()
	if err != nil {
		return err
	}
	rel, ok := lp.relation()
	if !ok {
		if !lhs {
			return lp.errorf("relation expected")
		}
	} else {
		v, ok := lp.number()
		if !ok {
			return lp.errorf("right-hand side expected")
		}
		limit(&lb, &ub, rel, v)
	}
	if !isInf(lb) {
		lb -= c0
	}
	if !isInf(ub) {
		ub -= c0
	}
	if lb <= -lpHuge {
		lb = math.Inf(-1)
	}
	if ub >= lpHuge {
		ub = math.Inf(1)
	}
	if lb > ub {
		return lp.errorf("row %q: lower bound %g above upper bound %g", name, lb, ub)
	}

	lp.q.addRows(1)
	r := lp.q.rows[i-1]
	r.name = name
	lp.q.setRowBounds(r, boundsOf(lb, ub), lb, ub)
	seen := map[int]bool{}
	for _, t := range terms {
		if seen[t.col] {
			return lp.errorf("variable %q appears twice in row %q", lp.q.cols[t.col-1].name, name)
		}
		seen[t.col] = true
		lp.ia, lp.ja, lp.ar = append(lp.ia, i), append(lp.ja, t.col), append(lp.ar, t.coef)
	}
	return nil
}

func (lp *lpParser) bound() error {
	var j int
	var lb, ub float64
	setLimit := func(rel lpKind, v float64) {
		limit(&lb, &ub, rel, v)
	}
	if v, ok := lp.number(); ok {
		rel, ok := lp.relation()
		if !ok {
			return lp.errorf("relation expected")
		}
		t := lp.take()
		if t.kind != lpName {
			return lp.errorf("variable name expected")
		}
		j = lp.col(t.s)
		c := lp.q.cols[j-1]
		lb, ub = c.lb, c.ub
		setLimit(flip(rel), v)
		if rel, ok := lp.relation(); ok {
			v, ok := lp.number()
			if !ok {
				return lp.errorf("number expected")
			}
			setLimit(rel, v)
		}
	} else {
		t := lp.take()
		if t.kind != lpName {
			return lp.errorf("variable name expected")
		}
		j = lp.col(t.s)
		c := lp.q.cols[j-1]
		lb, ub = c.lb, c.ub
		if n := lp.peek(); n.kind == lpName && strings.EqualFold(n.s, "free") {
			lp.take()
			lb, ub = math.Inf(-1), math.Inf(1)
		} else {
			rel, ok := lp.relation()
			if !ok {
				return lp.errorf("relation expected")
			}
			v, ok := lp.number()
			if !ok {
				return lp.errorf("number expected")
			}
			setLimit(rel, v)
		}
	}
	if lb <= -lpHuge {
		lb = math.Inf(-1)
	}
	if ub >= lpHuge {
		ub = math.Inf(1)
	}
	c := lp.q.cols[j-1]
	if lb > ub {
		return lp.errorf("column %q: lower bound %g above upper bound %g", c.name, lb, ub)
	}
	lp.q.setColBounds(c, boundsOf(lb, ub), lb, ub)
	return nil
}

var lpKeywords = map[string]bool{
	"minimize": true, "minimise": true, "minimum": true, "min": true,
	"maximize": true, "maximise": true, "maximum": true, "max": true,
	"subject": true, "such": true, "st": true, "s.t.": true, "st.": true,
	"bounds": true, "bound": true, "general": true, "generals": true, "gen": true,
	"integer": true, "integers": true, "int": true,
	"binary": true, "binaries": true, "bin": true, "end": true,
	"free": true, "inf": true, "infinity": true,
}

func lpValidName(s string) bool {
	if s == "" || len(s) > 255 || lpKeywords[strings.ToLower(s)] {
		return false
	}
	if unicode.IsDigit(rune(s[0])) || s[0] == '.' {
		return false
	}
	for _, r := range s {
		if !isLPNameChar(r) {
			return false
		}
	}
	return true
}

// WriteLP writes the problem in CPLEX LP format. Names that the format
// cannot carry are replaced by r_ and x_ followed by the ordinal. Free rows
// are written with an infinite lower bound of -1e+30.
func (p *Problem) WriteLP(w io.Writer) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return ErrDeleted
	}
	bw := bufio.NewWriter(w)
	p.writeLP(bw)
	return errors.Wrap(bw.Flush(), "could not write problem")
}

type lpLine struct {
	w   *bufio.Writer
	len int
}

func (l *lpLine) put(s string) {
	if l.len+len(s)+1 > 72 && l.len > 0 {
		fmt.Fprint(l.w, "\n")
		l.len = 0
	}
	fmt.Fprint(l.w, " ", s)
	l.len += len(s) + 1
}

func (l *lpLine) end() {
	fmt.Fprint(l.w, "\n")
	l.len = 0
}

func lpTermString(coef float64, name string) string {
	switch {
	case coef == 1:
		return "+ " + name
	case coef == -1:
		return "- " + name
	case coef < 0:
		return "- " + formatFloat(-coef) + " " + name
	}
	return "+ " + formatFloat(coef) + " " + name
}

func lpNum(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return formatFloat(v)
}

func (p *Problem) writeLP(w *bufio.Writer) {
	rowName := func(r *row) string {
		if lpValidName(r.name) {
			return r.name
		}
		return fmt.Sprintf("r_%d", r.i)
	}
	colName := func(c *column) string {
		if lpValidName(c.name) {
			return c.name
		}
		return fmt.Sprintf("x_%d", c.j)
	}

	fmt.Fprintf(w, "\\* Problem: %s *\\\n\n", strings.ReplaceAll(p.name, "*\\", ""))
	if p.dir == Maximize {
		fmt.Fprintln(w, "Maximize")
	} else {
		fmt.Fprintln(w, "Minimize")
	}
	obj := p.objName
	if !lpValidName(obj) {
		obj = "obj"
	}
	l := &lpLine{w: w}
	l.put(obj + ":")
	// every column is listed to keep the column order on reading
	for _, c := range p.cols {
		l.put(lpTermString(c.coef, colName(c)))
	}
	switch {
	case p.c0 < 0:
		l.put("- " + formatFloat(-p.c0))
	case p.c0 > 0 || p.n() == 0:
		l.put("+ " + formatFloat(p.c0))
	}
	l.end()

	fmt.Fprintln(w, "\nSubject To")
	for _, r := range p.rows {
		l.put(rowName(r) + ":")
		if r.typ == Double {
			l.put(formatFloat(r.lb) + " <=")
		}
		if r.ptr == nil {
			l.put("0")
		}
		for e := r.ptr; e != nil; e = e.rnext {
			l.put(lpTermString(e.val, colName(e.col)))
		}
		switch r.typ {
		case Free:
			l.put(">= -1e+30")
		case Lower:
			l.put(">= " + formatFloat(r.lb))
		case Upper, Double:
			l.put("<= " + formatFloat(r.ub))
		case Fixed:
			l.put("= " + formatFloat(r.lb))
		}
		l.end()
	}

	var bounds []string
	var generals, binaries []string
	for _, c := range p.cols {
		name := colName(c)
		binary := c.isBinary()
		switch {
		case binary:
			binaries = append(binaries, name)
		case c.kind == Integer:
			generals = append(generals, name)
		}
		switch c.typ {
		case Free:
			bounds = append(bounds, name+" free")
		case Lower:
			if c.lb != 0 {
				bounds = append(bounds, name+" >= "+formatFloat(c.lb))
			}
		case Upper:
			bounds = append(bounds, "-inf <= "+name+" <= "+formatFloat(c.ub))
		case Double:
			if !binary {
				bounds = append(bounds, formatFloat(c.lb)+" <= "+name+" <= "+formatFloat(c.ub))
			}
		case Fixed:
			bounds = append(bounds, name+" = "+formatFloat(c.lb))
		}
	}
	if len(bounds) > 0 {
		fmt.Fprintln(w, "\nBounds")
		for _, b := range bounds {
			fmt.Fprintf(w, " %s\n", b)
		}
	}
	for _, sec := range []struct {
		title string
		names []string
	}{{"Generals", generals}, {"Binaries", binaries}} {
		if len(sec.names) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", sec.title)
		for _, name := range sec.names {
			l.put(name)
		}
		l.end()
	}
	fmt.Fprintln(w, "\nEnd")
}
