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
	"context"
)

// Simplex solves the LP relaxation of the problem with the simplex method,
// starting from the current basis. A nil parm uses DefaultSmcp.
//
// A nil error means the method ran to a terminal status; Status tells
// whether the solution is optimal, infeasible or unbounded.
func (p *Problem) Simplex(parm *Smcp) error {
	return p.SimplexContext(context.Background(), parm)
}

// SimplexContext is like Simplex and stops early, returning the context's
// error, when ctx is done. The context is checked between iterations.
func (p *Problem) SimplexContext(ctx context.Context, parm *Smcp) (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return ErrDeleted
	}
	if parm == nil {
		parm = DefaultSmcp()
	}
	if err := parm.validate(); err != nil {
		return err
	}
	defer recoverSolve(p.logger, &err)

	return p.simplex(ctx, parm)
}

func (p *Problem) simplex(ctx context.Context, parm *Smcp) error {
	p.pbsStat, p.dbsStat = Undefined, Undefined
	p.someRay = 0
	if parm.Presolve {
		return p.presolveLP(ctx, parm)
	}
	return p.runSimplex(ctx, parm)
}

func (p *Problem) runSimplex(ctx context.Context, parm *Smcp) error {
	if p.termOut {
		p.msgf(parm.MsgLev, MsgAll, "simplex: %d rows, %d columns, %d non-zeros", p.m(), p.n(), p.nnz)
	}
	sx, err := newSpx(ctx, p, parm)
	if err != nil {
		if p.termOut {
			p.msgf(parm.MsgLev, MsgErr, "simplex: unable to start: %v", err)
		}
		p.invalidateBasis()
		return err
	}

	err = sx.run()
	switch err {
	case ErrSingular, ErrCond, ErrFail:
		if p.termOut {
			p.msgf(parm.MsgLev, MsgErr, "simplex: numerical failure: %v", err)
		}
		p.invalidateBasis()
		return err
	}
	sx.store()
	return err
}

func (sx *spx) run() error {
	switch sx.parm.Meth {
	case Dual, DualPrimal:
		if !sx.makeDualFeasible() {
			sx.msg(MsgAll, "initial basis is not dual feasible; switching to primal simplex")
			return sx.primal()
		}
		err := sx.dual()
		if err == errNotDualFeasible || (err == ErrFail && sx.parm.Meth == DualPrimal) {
			sx.msg(MsgAll, "switching to primal simplex")
			sx.phase = 0
			sx.resetWeights()
			return sx.primal()
		}
		return err
	default:
		return sx.primal()
	}
}
