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

// Reason tells a branch-and-cut callback why it was called.
type Reason int

const (
	ReasonSelect Reason = 1 // a node has to be selected for processing
	ReasonPrepro Reason = 2 // the node's bounds are set, its LP not solved yet
	ReasonRowGen Reason = 3 // the node's LP relaxation was solved
	ReasonHeur   Reason = 4 // a heuristic solution may be provided
	ReasonCutGen Reason = 5 // cuts may be added at the root
	ReasonBranch Reason = 6 // a branching variable has to be chosen
	ReasonBingo  Reason = 7 // a better integer solution was found
)

func (r Reason) String() string {
	switch r {
	case ReasonSelect:
		return "select"
	case ReasonPrepro:
		return "prepro"
	case ReasonRowGen:
		return "rowgen"
	case ReasonHeur:
		return "heur"
	case ReasonCutGen:
		return "cutgen"
	case ReasonBranch:
		return "branch"
	case ReasonBingo:
		return "bingo"
	default:
		return "unknown"
	}
}

// node is a subproblem of the search tree. Its column bounds are complete
// copies; stat is the final basis of the parent, used as warm start.
type node struct {
	id     int
	level  int
	lb, ub []float64

	// bound is the LP objective of the parent in minimization sense, and
	// after solving, of the node itself.
	bound float64
	est   float64

	rowStat []VarStatus
	colStat []VarStatus

	// branching that created the node, for pseudo-cost updates
	brCol  int // 0-based, -1 at the root
	brDown bool
	brFrac float64

	data []byte
}

// Tree is handed to the branch-and-cut callback. Queries are available
// under any reason; mutators only under the reasons they document and
// return ErrInvalidReason otherwise.
//
// The problem being solved stays locked while the callback runs: calling
// its methods from the callback deadlocks.
type Tree struct {
	ios    *ios
	reason Reason
}

// Reason returns the reason of the current call.
func (t *Tree) Reason() Reason {
	return t.reason
}

// CurrLevel returns the level of the current node, 0 for the root, or -1
// if no node is current.
func (t *Tree) CurrLevel() int {
	if t.ios.curr == nil {
		return -1
	}
	return t.ios.curr.level
}

// NodeCount returns the number of active nodes and the number of nodes
// created so far.
func (t *Tree) NodeCount() (active, total int) {
	return len(t.ios.active), t.ios.nextID
}

// ActiveNodes returns the identifiers of the active nodes.
func (t *Tree) ActiveNodes() []int {
	ids := make([]int, len(t.ios.active))
	for k, nd := range t.ios.active {
		ids[k] = nd.id
	}
	return ids
}

// BestBound returns the best bound over all unexplored nodes, in the sense
// of the objective.
func (t *Tree) BestBound() float64 {
	return t.ios.sign * t.ios.bestBound()
}

// MIPGap returns the relative gap between the incumbent and the best
// bound, or +Inf without an incumbent.
func (t *Tree) MIPGap() float64 {
	return t.ios.gap()
}

// Incumbent returns the objective value of the best integer solution found
// so far.
func (t *Tree) Incumbent() (float64, bool) {
	return t.ios.incObj, t.ios.hasInc
}

// ColPrim returns the value of column j in the LP relaxation of the
// current node.
func (t *Tree) ColPrim(j int) float64 {
	if !inRange(j, 1, t.ios.n) {
		return math.NaN()
	}
	return t.ios.wp.cols[j-1].prim
}

// NodeData returns the application data of the current node: Iocp.CbSize
// zeroed bytes when the node was created.
func (t *Tree) NodeData() []byte {
	if t.ios.curr == nil {
		return nil
	}
	return t.ios.curr.data
}

func (t *Tree) require(r Reason, more ...Reason) error {
	if t.reason == r {
		return nil
	}
	for _, m := range more {
		if t.reason == m {
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidReason, "called under reason %s", t.reason)
}

// SelectNode chooses the active node to process next. Valid under
// ReasonSelect.
func (t *Tree) SelectNode(id int) error {
	if err := t.require(ReasonSelect); err != nil {
		return err
	}
	for _, nd := range t.ios.active {
		if nd.id == id {
			t.ios.selected = nd
			return nil
		}
	}
	return errors.Wrapf(ErrOutOfRange, "node %d is not active", id)
}

// AddCut adds the constraint sum val[t]*x[ind[t]] (typ) rhs to every
// subproblem. typ is Lower, Upper or Fixed. Valid under ReasonRowGen and
// ReasonCutGen.
func (t *Tree) AddCut(ind []int, val []float64, typ BoundType, rhs float64) error {
	if err := t.require(ReasonRowGen, ReasonCutGen); err != nil {
		return err
	}
	if len(ind) != len(val) {
		return errors.Wrapf(ErrLength, "%d indices, %d values", len(ind), len(val))
	}
	seen := make(map[int]bool, len(ind))
	for k, j := range ind {
		if !inRange(j, 1, t.ios.n) {
			return errors.Wrapf(ErrOutOfRange, "column %d", j)
		}
		if seen[j] {
			return errors.Wrapf(ErrInvalidValue, "column %d given twice", j)
		}
		seen[j] = true
		if !isFinite(val[k]) {
			return errors.Wrapf(ErrInvalidValue, "coefficient %g", val[k])
		}
	}
	if !isFinite(rhs) {
		return errors.Wrapf(ErrInvalidValue, "right-hand side %g", rhs)
	}
	switch typ {
	case Lower, Upper, Fixed:
	default:
		return errors.Wrapf(ErrInvalidType, "cut type %s", typ)
	}
	cols := make([]int, len(ind))
	for k, j := range ind {
		cols[k] = j - 1
	}
	t.ios.addCut(cols, val, typ, rhs)
	return nil
}

// HeurSolution offers values for all columns as an integer feasible
// solution. It is accepted if it is feasible and better than the
// incumbent. Valid under ReasonHeur.
func (t *Tree) HeurSolution(x []float64) (bool, error) {
	if err := t.require(ReasonHeur); err != nil {
		return false, err
	}
	if len(x) != t.ios.n {
		return false, errors.Wrapf(ErrLength, "%d values for %d columns", len(x), t.ios.n)
	}
	return t.ios.offer(x, "heuristic", true), nil
}

// CanBranch reports whether column j can be branched upon, i.e. it is an
// integer column with a fractional value. Valid under ReasonBranch.
func (t *Tree) CanBranch(j int) (bool, error) {
	if err := t.require(ReasonBranch); err != nil {
		return false, err
	}
	if !inRange(j, 1, t.ios.n) {
		return false, errors.Wrapf(ErrOutOfRange, "column %d", j)
	}
	return t.ios.fractional(j - 1), nil
}

// BranchUpon selects column j for branching; down tells which child is
// processed first. Valid under ReasonBranch.
func (t *Tree) BranchUpon(j int, down bool) error {
	ok, err := t.CanBranch(j)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrInvalidValue, "column %d cannot be branched upon", j)
	}
	t.ios.brSel, t.ios.brDown = j-1, down
	return nil
}

// logCallback is used when the callback is enabled without a function.
func logCallback(t *Tree) {
	d := t.ios
	if d.p.termOut {
		d.p.msgf(d.parm.MsgLev, MsgDbg, "callback: reason %s, level %d", t.reason, t.CurrLevel())
	}
}
