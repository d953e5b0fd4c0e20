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

import "github.com/pkg/errors"

// nameIndex maps names to rows and columns. Names need not be unique;
// lookups return the lowest ordinal.
type nameIndex struct {
	rows map[string][]*row
	cols map[string][]*column
}

func (x *nameIndex) addRow(r *row) {
	if r.name != "" {
		x.rows[r.name] = append(x.rows[r.name], r)
	}
}

func (x *nameIndex) removeRow(r *row) {
	list := x.rows[r.name]
	for k, o := range list {
		if o == r {
			list = append(list[:k], list[k+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(x.rows, r.name)
	} else {
		x.rows[r.name] = list
	}
}

func (x *nameIndex) addCol(c *column) {
	if c.name != "" {
		x.cols[c.name] = append(x.cols[c.name], c)
	}
}

func (x *nameIndex) removeCol(c *column) {
	list := x.cols[c.name]
	for k, o := range list {
		if o == c {
			list = append(list[:k], list[k+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(x.cols, c.name)
	} else {
		x.cols[c.name] = list
	}
}

// CreateIndex builds the name index used by FindRow and FindCol. It is
// kept up to date until DeleteIndex is called.
func (p *Problem) CreateIndex() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	p.createIndex()
	return nil
}

func (p *Problem) createIndex() {
	if p.index != nil {
		return
	}
	p.index = &nameIndex{
		rows: make(map[string][]*row),
		cols: make(map[string][]*column),
	}
	for _, r := range p.rows {
		p.index.addRow(r)
	}
	for _, c := range p.cols {
		p.index.addCol(c)
	}
}

func (p *Problem) DeleteIndex() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	p.index = nil
	return nil
}

// FindRow returns the lowest ordinal of a row called name, or 0 if there
// is none.
func (p *Problem) FindRow(name string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return 0, ErrDeleted
	}
	if p.index == nil {
		return 0, errors.Wrap(ErrNoIndex, "FindRow")
	}
	best := 0
	for _, r := range p.index.rows[name] {
		if best == 0 || r.i < best {
			best = r.i
		}
	}
	return best, nil
}

// FindCol returns the lowest ordinal of a column called name, or 0 if
// there is none.
func (p *Problem) FindCol(name string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.deleted {
		return 0, ErrDeleted
	}
	if p.index == nil {
		return 0, errors.Wrap(ErrNoIndex, "FindCol")
	}
	best := 0
	for _, c := range p.index.cols[name] {
		if best == 0 || c.j < best {
			best = c.j
		}
	}
	return best, nil
}
