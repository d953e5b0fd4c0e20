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
	"sort"

	"github.com/pkg/errors"
)

// Method selects the simplex algorithm.
type Method int

const (
	Primal     Method = 1 // two-phase primal simplex
	DualPrimal Method = 2 // dual simplex, primal if it fails
	Dual       Method = 3 // dual simplex, primal phase 1 if the start is not dual feasible
)

// Pricing selects the simplex pricing rule.
type Pricing int

const (
	PricingStd Pricing = 0x11 // textbook (Dantzig)
	PricingPSE Pricing = 0x22 // projected steepest edge (devex weights)
)

// RatioTest selects the simplex ratio test.
type RatioTest int

const (
	RatioStd    RatioTest = 0x11 // textbook
	RatioHarris RatioTest = 0x22 // Harris' two-pass
)

// AntiCycle selects the anti-cycling rule of the simplex method.
type AntiCycle int

const (
	CycleNone  AntiCycle = 0
	CycleBland AntiCycle = 1
)

// Smcp holds the simplex control parameters. They belong to a single call.
type Smcp struct {
	MsgLev    MsgLevel
	Meth      Method
	Pricing   Pricing
	RTest     RatioTest
	AntiCycle AntiCycle
	TolBnd    float64 // primal feasibility tolerance
	TolDj     float64 // dual feasibility tolerance
	TolPiv    float64 // pivot tolerance
	ObjLL     float64 // lower objective limit (dual simplex, maximization)
	ObjUL     float64 // upper objective limit (dual simplex, minimization)
	ItLim     int     // iteration limit
	TmLim     int     // time limit in milliseconds
	OutFrq    int     // iterations between progress lines
	OutDly    int     // milliseconds before the first progress line
	Presolve  bool
}

// DefaultSmcp returns the default simplex control parameters.
func DefaultSmcp() *Smcp {
	return &Smcp{
		MsgLev:    MsgAll,
		Meth:      Primal,
		Pricing:   PricingPSE,
		RTest:     RatioHarris,
		AntiCycle: CycleBland,
		TolBnd:    1e-7,
		TolDj:     1e-7,
		TolPiv:    1e-9,
		ObjLL:     -math.MaxFloat64,
		ObjUL:     +math.MaxFloat64,
		ItLim:     math.MaxInt32,
		TmLim:     math.MaxInt32,
		OutFrq:    500,
		OutDly:    0,
	}
}

// OrdAlg selects the ordering algorithm for the normal equations.
type OrdAlg int

const (
	OrdNone   OrdAlg = 0
	OrdQMD    OrdAlg = 1
	OrdAMD    OrdAlg = 2
	OrdSymAMD OrdAlg = 3
)

// Iptcp holds the interior-point control parameters.
type Iptcp struct {
	MsgLev  MsgLevel
	OrdAlg  OrdAlg
	ItLim   int
	TolFeas float64 // relative primal and dual feasibility tolerance
	TolGap  float64 // relative duality gap tolerance
}

// DefaultIptcp returns the default interior-point control parameters.
func DefaultIptcp() *Iptcp {
	return &Iptcp{
		MsgLev:  MsgAll,
		OrdAlg:  OrdAMD,
		ItLim:   100,
		TolFeas: 1e-8,
		TolGap:  1e-8,
	}
}

// BranchTech selects the branching variable.
type BranchTech int

const (
	BranchFirst BranchTech = 1 // first fractional variable
	BranchLast  BranchTech = 2 // last fractional variable
	BranchMost  BranchTech = 3 // most fractional variable
	BranchDTH   BranchTech = 4 // Driebeck-Tomlin penalties
	BranchPCH   BranchTech = 5 // hybrid pseudo-cost
)

// BacktrackTech selects the next active node when backtracking.
type BacktrackTech int

const (
	BacktrackDFS BacktrackTech = 1 // depth first
	BacktrackBFS BacktrackTech = 2 // breadth first
	BacktrackBLB BacktrackTech = 3 // best local bound
	BacktrackBPH BacktrackTech = 4 // best projection
)

// PreprocessTech selects where bound preprocessing is done.
type PreprocessTech int

const (
	PPNone PreprocessTech = 0
	PPRoot PreprocessTech = 1
	PPAll  PreprocessTech = 2
)

// Iocp holds the branch-and-cut control parameters.
type Iocp struct {
	MsgLev   MsgLevel
	BrTech   BranchTech
	BtTech   BacktrackTech
	PPTech   PreprocessTech
	FPHeur   bool
	GMICuts  bool
	MIRCuts  bool
	CovCuts  bool
	ClqCuts  bool
	Presolve bool
	Binarize bool
	TolInt   float64
	TolObj   float64
	MIPGap   float64
	TmLim    int // milliseconds
	OutFrq   int // milliseconds between progress lines
	OutDly   int // milliseconds before the first progress line
	CbSize   int // bytes of application data attached to each node

	// CbFunc enables the callback. With no Callback set a built-in one
	// logging every invocation is used.
	CbFunc   bool
	Callback func(*Tree)
}

// DefaultIocp returns the default branch-and-cut control parameters.
func DefaultIocp() *Iocp {
	return &Iocp{
		MsgLev: MsgAll,
		BrTech: BranchDTH,
		BtTech: BacktrackBLB,
		PPTech: PPAll,
		TolInt: 1e-5,
		TolObj: 1e-7,
		TmLim:  math.MaxInt32,
		OutFrq: 5000,
		OutDly: 10000,
	}
}

// BfType selects the basis factorization.
type BfType int

const (
	BfDenseLU  BfType = 1 // dense LU (gonum)
	BfSparseLU BfType = 2 // sparse Markowitz LU
)

// Bfcp holds the basis factorization parameters of a problem.
type Bfcp struct {
	Type   BfType
	LUSize int     // initial capacity hint of the sparse factors, 0 is automatic
	PivTol float64 // threshold pivoting tolerance
	PivLim int     // number of candidate columns searched per pivot
	Suhl   bool    // search candidates among columns and rows alike
	EpsTol float64 // entries below this are treated as zero
	MaxGro float64 // maximal growth of the active submatrix elements
	NfsMax int     // maximal number of eta updates before refactorization
	UpdTol float64 // relative pivot tolerance of an eta update
	NrsMax int
	RsSize int
}

// DefaultBfcp returns the default factorization parameters.
func DefaultBfcp() *Bfcp {
	return &Bfcp{
		Type:   BfSparseLU,
		PivTol: 0.10,
		PivLim: 4,
		Suhl:   true,
		EpsTol: 1e-15,
		MaxGro: 1e10,
		NfsMax: 100,
		UpdTol: 1e-6,
		NrsMax: 70,
	}
}

// paramSet describes the named keys of one control parameter struct.
type paramSet[T any] struct {
	keys map[string]paramKey[T]
}

type paramKey[T any] struct {
	get func(*T) float64
	set func(*T, float64) error
}

func (ps paramSet[T]) set(parm *T, key string, val float64) error {
	k, ok := ps.keys[key]
	if !ok {
		return errors.Wrapf(ErrInvalidOption, "unknown key %q", key)
	}
	if math.IsNaN(val) {
		return errors.Wrapf(ErrInvalidOption, "%s: not a number", key)
	}
	return errors.WithMessage(k.set(parm, val), key)
}

// update applies vals in sorted key order. Unknown keys are collected as
// warnings, invalid values stop the update.
func (ps paramSet[T]) update(parm *T, vals map[string]float64) ([]string, error) {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var warnings []string
	for _, k := range keys {
		if _, ok := ps.keys[k]; !ok {
			warnings = append(warnings, "unknown control parameter "+k)
			continue
		}
		if err := ps.set(parm, k, vals[k]); err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}

func (ps paramSet[T]) snapshot(parm *T) map[string]float64 {
	out := make(map[string]float64, len(ps.keys))
	for k, v := range ps.keys {
		out[k] = v.get(parm)
	}
	return out
}

func (ps paramSet[T]) names() []string {
	out := make([]string, 0, len(ps.keys))
	for k := range ps.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func intKey[T any](field func(*T) *int, lo int) paramKey[T] {
	return paramKey[T]{
		get: func(t *T) float64 { return float64(*field(t)) },
		set: func(t *T, v float64) error {
			if v != math.Trunc(v) || v < float64(lo) || v > math.MaxInt32 {
				return errors.Wrapf(ErrInvalidOption, "%g is not an integer >= %d", v, lo)
			}
			*field(t) = int(v)
			return nil
		},
	}
}

func boolKey[T any](field func(*T) *bool) paramKey[T] {
	return paramKey[T]{
		get: func(t *T) float64 { return boolf(*field(t)) },
		set: func(t *T, v float64) error {
			switch v {
			case 0, 1:
				*field(t) = v == 1
				return nil
			}
			return errors.Wrapf(ErrInvalidOption, "%g is not 0 or 1", v)
		},
	}
}

// floatKey accepts values in [lo, hi].
func floatKey[T any](field func(*T) *float64, lo, hi float64) paramKey[T] {
	return paramKey[T]{
		get: func(t *T) float64 { return *field(t) },
		set: func(t *T, v float64) error {
			if v < lo || v > hi {
				return errors.Wrapf(ErrInvalidOption, "%g not in [%g, %g]", v, lo, hi)
			}
			*field(t) = v
			return nil
		},
	}
}

// enumKey accepts only the listed values.
func enumKey[T any, E ~int](field func(*T) *E, allowed ...E) paramKey[T] {
	return paramKey[T]{
		get: func(t *T) float64 { return float64(*field(t)) },
		set: func(t *T, v float64) error {
			for _, a := range allowed {
				if float64(a) == v {
					*field(t) = a
					return nil
				}
			}
			return errors.Wrapf(ErrInvalidOption, "%g is not an allowed value", v)
		},
	}
}

var msgLevels = []MsgLevel{MsgOff, MsgErr, MsgOn, MsgAll, MsgDbg}

var smcpKeys = paramSet[Smcp]{keys: map[string]paramKey[Smcp]{
	"msg_lev":  enumKey(func(p *Smcp) *MsgLevel { return &p.MsgLev }, msgLevels...),
	"meth":     enumKey(func(p *Smcp) *Method { return &p.Meth }, Primal, DualPrimal, Dual),
	"pricing":  enumKey(func(p *Smcp) *Pricing { return &p.Pricing }, PricingStd, PricingPSE),
	"r_test":   enumKey(func(p *Smcp) *RatioTest { return &p.RTest }, RatioStd, RatioHarris),
	"anti_cyc": enumKey(func(p *Smcp) *AntiCycle { return &p.AntiCycle }, CycleNone, CycleBland),
	"it_lim":   intKey(func(p *Smcp) *int { return &p.ItLim }, 0),
	"tm_lim":   intKey(func(p *Smcp) *int { return &p.TmLim }, 0),
	"out_frq":  intKey(func(p *Smcp) *int { return &p.OutFrq }, 1),
	"out_dly":  intKey(func(p *Smcp) *int { return &p.OutDly }, 0),
	"presolve": boolKey(func(p *Smcp) *bool { return &p.Presolve }),
	"tol_bnd":  floatKey(func(p *Smcp) *float64 { return &p.TolBnd }, 1e-15, 1e-1),
	"tol_dj":   floatKey(func(p *Smcp) *float64 { return &p.TolDj }, 1e-15, 1e-1),
	"tol_piv":  floatKey(func(p *Smcp) *float64 { return &p.TolPiv }, 1e-15, 1e-1),
	"obj_ll":   floatKey(func(p *Smcp) *float64 { return &p.ObjLL }, -math.MaxFloat64, math.MaxFloat64),
	"obj_ul":   floatKey(func(p *Smcp) *float64 { return &p.ObjUL }, -math.MaxFloat64, math.MaxFloat64),
}}

// Set changes a single parameter by name.
func (p *Smcp) Set(key string, val float64) error { return smcpKeys.set(p, key, val) }

// Update changes several parameters by name. Unknown keys are skipped and
// returned as warnings.
func (p *Smcp) Update(vals map[string]float64) ([]string, error) { return smcpKeys.update(p, vals) }

// Snapshot returns all parameters by name.
func (p *Smcp) Snapshot() map[string]float64 { return smcpKeys.snapshot(p) }

// SmcpKeys lists the simplex parameter names.
func SmcpKeys() []string { return smcpKeys.names() }

func (p *Smcp) validate() error {
	for k, v := range smcpKeys.snapshot(p) {
		q := *p
		if err := smcpKeys.set(&q, k, v); err != nil {
			return err
		}
	}
	if p.ObjLL > p.ObjUL {
		return errors.Wrap(ErrInvalidOption, "obj_ll > obj_ul")
	}
	return nil
}

var iptcpKeys = paramSet[Iptcp]{keys: map[string]paramKey[Iptcp]{
	"msg_lev":  enumKey(func(p *Iptcp) *MsgLevel { return &p.MsgLev }, msgLevels...),
	"ord_alg":  enumKey(func(p *Iptcp) *OrdAlg { return &p.OrdAlg }, OrdNone, OrdQMD, OrdAMD, OrdSymAMD),
	"it_lim":   intKey(func(p *Iptcp) *int { return &p.ItLim }, 1),
	"tol_feas": floatKey(func(p *Iptcp) *float64 { return &p.TolFeas }, 1e-15, 1e-1),
	"tol_gap":  floatKey(func(p *Iptcp) *float64 { return &p.TolGap }, 1e-15, 1e-1),
}}

func (p *Iptcp) Set(key string, val float64) error { return iptcpKeys.set(p, key, val) }

func (p *Iptcp) Update(vals map[string]float64) ([]string, error) {
	return iptcpKeys.update(p, vals)
}

func (p *Iptcp) Snapshot() map[string]float64 { return iptcpKeys.snapshot(p) }

// IptcpKeys lists the interior-point parameter names.
func IptcpKeys() []string { return iptcpKeys.names() }

func (p *Iptcp) validate() error {
	for k, v := range iptcpKeys.snapshot(p) {
		q := *p
		if err := iptcpKeys.set(&q, k, v); err != nil {
			return err
		}
	}
	return nil
}

var iocpKeys = paramSet[Iocp]{keys: map[string]paramKey[Iocp]{
	"msg_lev":  enumKey(func(p *Iocp) *MsgLevel { return &p.MsgLev }, msgLevels...),
	"br_tech":  enumKey(func(p *Iocp) *BranchTech { return &p.BrTech }, BranchFirst, BranchLast, BranchMost, BranchDTH, BranchPCH),
	"bt_tech":  enumKey(func(p *Iocp) *BacktrackTech { return &p.BtTech }, BacktrackDFS, BacktrackBFS, BacktrackBLB, BacktrackBPH),
	"pp_tech":  enumKey(func(p *Iocp) *PreprocessTech { return &p.PPTech }, PPNone, PPRoot, PPAll),
	"fp_heur":  boolKey(func(p *Iocp) *bool { return &p.FPHeur }),
	"gmi_cuts": boolKey(func(p *Iocp) *bool { return &p.GMICuts }),
	"mir_cuts": boolKey(func(p *Iocp) *bool { return &p.MIRCuts }),
	"cov_cuts": boolKey(func(p *Iocp) *bool { return &p.CovCuts }),
	"clq_cuts": boolKey(func(p *Iocp) *bool { return &p.ClqCuts }),
	"presolve": boolKey(func(p *Iocp) *bool { return &p.Presolve }),
	"binarize": boolKey(func(p *Iocp) *bool { return &p.Binarize }),
	"cb_func":  boolKey(func(p *Iocp) *bool { return &p.CbFunc }),
	"tm_lim":   intKey(func(p *Iocp) *int { return &p.TmLim }, 0),
	"out_frq":  intKey(func(p *Iocp) *int { return &p.OutFrq }, 1),
	"out_dly":  intKey(func(p *Iocp) *int { return &p.OutDly }, 0),
	"cb_size":  intKey(func(p *Iocp) *int { return &p.CbSize }, 0),
	"tol_int":  floatKey(func(p *Iocp) *float64 { return &p.TolInt }, 1e-15, 1e-1),
	"tol_obj":  floatKey(func(p *Iocp) *float64 { return &p.TolObj }, 1e-15, 1e-1),
	"mip_gap":  floatKey(func(p *Iocp) *float64 { return &p.MIPGap }, 0, math.MaxFloat64),
}}

func (p *Iocp) Set(key string, val float64) error { return iocpKeys.set(p, key, val) }

func (p *Iocp) Update(vals map[string]float64) ([]string, error) { return iocpKeys.update(p, vals) }

func (p *Iocp) Snapshot() map[string]float64 { return iocpKeys.snapshot(p) }

// IocpKeys lists the branch-and-cut parameter names.
func IocpKeys() []string { return iocpKeys.names() }

func (p *Iocp) validate() error {
	for k, v := range iocpKeys.snapshot(p) {
		q := *p
		if err := iocpKeys.set(&q, k, v); err != nil {
			return err
		}
	}
	if p.CbSize > 256 {
		return errors.Wrapf(ErrInvalidOption, "cb_size %d too large", p.CbSize)
	}
	return nil
}

var bfcpKeys = paramSet[Bfcp]{keys: map[string]paramKey[Bfcp]{
	"type":    enumKey(func(p *Bfcp) *BfType { return &p.Type }, BfDenseLU, BfSparseLU),
	"lu_size": intKey(func(p *Bfcp) *int { return &p.LUSize }, 0),
	"piv_lim": intKey(func(p *Bfcp) *int { return &p.PivLim }, 1),
	"suhl":    boolKey(func(p *Bfcp) *bool { return &p.Suhl }),
	"nfs_max": intKey(func(p *Bfcp) *int { return &p.NfsMax }, 1),
	"nrs_max": intKey(func(p *Bfcp) *int { return &p.NrsMax }, 1),
	"rs_size": intKey(func(p *Bfcp) *int { return &p.RsSize }, 0),
	"piv_tol": floatKey(func(p *Bfcp) *float64 { return &p.PivTol }, 1e-15, 1),
	"eps_tol": floatKey(func(p *Bfcp) *float64 { return &p.EpsTol }, 0, 1e-3),
	"max_gro": floatKey(func(p *Bfcp) *float64 { return &p.MaxGro }, 1, math.MaxFloat64),
	"upd_tol": floatKey(func(p *Bfcp) *float64 { return &p.UpdTol }, 1e-15, 1),
}}

func (p *Bfcp) Set(key string, val float64) error { return bfcpKeys.set(p, key, val) }

func (p *Bfcp) Update(vals map[string]float64) ([]string, error) { return bfcpKeys.update(p, vals) }

func (p *Bfcp) Snapshot() map[string]float64 { return bfcpKeys.snapshot(p) }

// BfcpKeys lists the factorization parameter names.
func BfcpKeys() []string { return bfcpKeys.names() }

func (p *Bfcp) validate() error {
	if p == nil {
		return errors.Wrap(ErrInvalidOption, "nil factorization parameters")
	}
	for k, v := range bfcpKeys.snapshot(p) {
		q := *p
		if err := bfcpKeys.set(&q, k, v); err != nil {
			return err
		}
	}
	return nil
}
