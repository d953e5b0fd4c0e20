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

	"github.com/pkg/errors"
)

// lineReader reads a text file line by line, keeping the line number for
// error messages.
type lineReader struct {
	sc   *bufio.Scanner
	what string
	line int
	text string
}

func newLineReader(r io.Reader, what string) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &lineReader{sc: sc, what: what}
}

func (lr *lineReader) next() bool {
	if !lr.sc.Scan() {
		return false
	}
	lr.line++
	lr.text = strings.TrimRight(lr.sc.Text(), "\r")
	return true
}

func (lr *lineReader) err() error {
	if err := lr.sc.Err(); err != nil {
		return errors.Wrapf(err, "%s: read error after line %d", lr.what, lr.line)
	}
	return nil
}

func (lr *lineReader) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrFormat, "%s:%d: %s", lr.what, lr.line, fmt.Sprintf(format, args...))
}

func (lr *lineReader) float(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, lr.errorf("invalid number %q", s)
	}
	return v, nil
}

func (lr *lineReader) int(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, lr.errorf("invalid integer %q", s)
	}
	return v, nil
}

// formatFloat prints v with the fewest digits that parse back to v.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// scratch returns an empty problem for readers to fill before commit.
func scratch() *Problem {
	q := &Problem{logger: noopLogger{}, bfcp: *DefaultBfcp()}
	q.reset()
	return q
}

// commit replaces the content of p by q. Readers parse into a scratch
// problem so p is untouched on error.
func (p *Problem) commit(q *Problem) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	bfcp, indexed := p.bfcp, p.index != nil
	q.copyTo(p, true)
	p.bfcp = bfcp
	if indexed {
		p.createIndex()
	}
	return nil
}

func (p *Problem) checkAlive() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.deleted {
		return ErrDeleted
	}
	return nil
}
