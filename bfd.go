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

	"github.com/pkg/errors"
)

// errRefactor asks the caller to factorize the basis from scratch instead
// of updating the current factorization.
var errRefactor = errors.New("basis factorization needs refresh")

// bfd is the factorization of the current basis matrix: an LU factorization
// of the basis at the last refresh followed by a product-form eta file, one
// eta matrix per column replacement.
type bfd struct {
	parm Bfcp
	m    int
	lu   luFactor
	etas []eta
}

// eta replaces basis slot p; col is the ftran'ed entering column without
// its p-th element piv.
type eta struct {
	p   int
	piv float64
	col spvec
}

func newBFD(parm *Bfcp, m int, cols []spvec) (*bfd, error) {
	lu, err := newLUFactor(parm, m, cols)
	if err != nil {
		return nil, err
	}
	return &bfd{parm: *parm, m: m, lu: lu}, nil
}

// ftran overwrites x with B^-1 x.
func (b *bfd) ftran(x []float64) {
	b.lu.solve(x)
	for _, e := range b.etas {
		xp := x[e.p] / e.piv
		x[e.p] = xp
		if xp == 0 {
			continue
		}
		for t, i := range e.col.ind {
			x[i] -= e.col.val[t] * xp
		}
	}
}

// btran overwrites x with B^-T x.
func (b *bfd) btran(x []float64) {
	for k := len(b.etas) - 1; k >= 0; k-- {
		e := b.etas[k]
		s := x[e.p]
		for t, i := range e.col.ind {
			s -= e.col.val[t] * x[i]
		}
		x[e.p] = s / e.piv
	}
	b.lu.solveTrans(x)
}

// update replaces the column in slot p by the column whose ftran is alpha.
// It returns errRefactor when the eta file is full or the pivot is too
// small relative to the column.
func (b *bfd) update(p int, alpha []float64) error {
	if len(b.etas) >= b.parm.NfsMax {
		return errRefactor
	}
	big := 0.0
	for _, v := range alpha {
		big = math.Max(big, math.Abs(v))
	}
	if math.Abs(alpha[p]) < b.parm.UpdTol*big || alpha[p] == 0 {
		return errRefactor
	}
	e := eta{p: p, piv: alpha[p]}
	for i, v := range alpha {
		if i != p && v != 0 {
			e.col.ind = append(e.col.ind, i)
			e.col.val = append(e.col.val, v)
		}
	}
	b.etas = append(b.etas, e)
	return nil
}

func (b *bfd) updated() bool {
	return len(b.etas) > 0
}
