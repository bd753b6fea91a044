// Package theory holds closed-form expected-discrepancy formulas.
// Everything here is pure and RNG-free.
//
// Formulas assume binary initial values (each process starts at 0 or 1) and
// are keyed by algorithm, process count, round count and delivery model. A
// combination the theory does not cover reports ok=false; callers must keep
// that distinct from a prediction of 0.
package theory

import (
	"errors"
	"fmt"
	"math"

	"github.com/inference-sim/agreement-sim/sim"
)

// ErrNoFormula is returned by Require when no closed form exists.
var ErrNoFormula = errors.New("no theoretical formula")

// ThreeProcessThreshold is the boundary θ separating the three regions of the
// 3-process analysis: p < θ, θ ≤ p ≤ 1-θ, p > 1-θ.
const ThreeProcessThreshold = 0.346

// ConditionedMaximum caps at-least-one-message predictions.
const ConditionedMaximum = 1.0 / 3

// Params carries the algorithm parameters and the initial configuration.
type Params struct {
	// MeetingPoint is AMP's target a.
	MeetingPoint float64
	// InitialValues must be binary when set. Empty means one process holds 1
	// and the rest hold 0 (the canonical split; [0,1] for two processes).
	InitialValues []float64
}

// Region names the 3-process regime of p.
type Region string

const (
	RegionLow  Region = "low"  // p < θ
	RegionMid  Region = "mid"  // θ ≤ p ≤ 1-θ
	RegionHigh Region = "high" // p > 1-θ
)

// ThreeProcessRegion classifies p against ThreeProcessThreshold.
func ThreeProcessRegion(p float64) Region {
	switch {
	case p < ThreeProcessThreshold:
		return RegionLow
	case p > 1-ThreeProcessThreshold:
		return RegionHigh
	default:
		return RegionMid
	}
}

// Terms exposes the intermediate quantities behind a prediction.
type Terms struct {
	Zeros       int     `json:"zeros"`
	A           float64 `json:"a"`
	B           float64 `json:"b"`
	C           float64 `json:"c"`
	SingleRound float64 `json:"singleRound"`
	Factor      float64 `json:"factor"`
	Value       float64 `json:"value"`
	Region      Region  `json:"region,omitempty"`
	Formula     string  `json:"formula"`
}

// Discrepancy returns the expected discrepancy after rounds rounds.
// ok is false when no closed form covers the configuration.
func Discrepancy(p float64, kind sim.Kind, n, rounds int, params Params, delivery sim.Delivery) (float64, bool) {
	t, ok := Breakdown(p, kind, n, rounds, params, delivery)
	return t.Value, ok
}

// Require is Discrepancy with ErrNoFormula in place of ok=false.
func Require(p float64, kind sim.Kind, n, rounds int, params Params, delivery sim.Delivery) (float64, error) {
	v, ok := Discrepancy(p, kind, n, rounds, params, delivery)
	if !ok {
		return 0, fmt.Errorf("%s with n=%d under %s delivery: %w", kind, n, delivery, ErrNoFormula)
	}
	return v, nil
}

// Breakdown computes the prediction and the terms it was built from.
func Breakdown(p float64, kind sim.Kind, n, rounds int, params Params, delivery sim.Delivery) (Terms, bool) {
	if p < 0 || p > 1 || math.IsNaN(p) || n < 2 || rounds < 0 {
		return Terms{}, false
	}
	if !hasFormula(kind) {
		return Terms{}, false
	}
	m, ok := zeroCount(n, params.InitialValues)
	if !ok {
		return Terms{}, false
	}
	t := Terms{Zeros: m}
	if n == 3 {
		t.Region = ThreeProcessRegion(p)
	}
	if m == 0 || m == n {
		t.Formula = "unanimous"
		return t, true
	}
	if rounds == 0 {
		t.Formula = "initial"
		t.Value = 1
		return t, true
	}

	switch delivery.Mode {
	case sim.DeliveryGuaranteed, sim.DeliveryAtLeastK:
		return conditioned(t, p, kind, n, rounds, delivery)
	case sim.DeliveryCorrelated:
		return correlated(t, p, kind, n, rounds, params)
	default:
		return standard(t, p, kind, n, rounds, params)
	}
}

// hasFormula excludes kinds with no closed form.
func hasFormula(kind sim.Kind) bool {
	switch kind {
	case sim.KindAMP, sim.KindFV, sim.KindCourteous, sim.KindCourteousCorrelated:
		return true
	default:
		return false
	}
}

// zeroCount returns m, the number of zero-valued processes.
func zeroCount(n int, initial []float64) (int, bool) {
	if len(initial) == 0 {
		return n - 1, true
	}
	if len(initial) != n || !sim.IsBinary(sim.Scalars(initial...)) {
		return 0, false
	}
	m := 0
	for _, v := range initial {
		if math.Abs(v) <= sim.Epsilon {
			m++
		}
	}
	return m, true
}

func standard(t Terms, p float64, kind sim.Kind, n, rounds int, params Params) (Terms, bool) {
	q := 1 - p
	switch {
	case n == 2 && kind == sim.KindAMP:
		t.SingleRound, t.Factor = q, q
		t.Value = math.Pow(q, float64(rounds))
		t.Formula = "(1-p)^R"
		return t, true
	case n == 2 && kind == sim.KindFV:
		f := p*p + q*q
		t.SingleRound, t.Factor = f, f
		t.Value = math.Pow(f, float64(rounds))
		t.Formula = "(p^2+q^2)^R"
		return t, true
	case n == 3 && kind == sim.KindCourteous:
		f := Courteous(p)
		t.SingleRound, t.Factor = f, f
		t.Value = math.Pow(f, float64(rounds))
		t.Formula = "(1-2p+4p^2-4p^3+p^4)^R"
		return t, true
	case n == 3 && kind == sim.KindAMP:
		t.SingleRound = ThreeProcessAMP(p, params.MeetingPoint, t.Zeros)
		t.A, t.B, _ = inclusionExclusion(q, n, t.Zeros)
		return scaled(t, rounds, "3-process AMP(a)"), true
	case n >= 3 && (kind == sim.KindAMP || kind == sim.KindFV):
		a, b, c := inclusionExclusion(q, n, t.Zeros)
		t.A, t.B, t.C = a, b, c
		if kind == sim.KindAMP {
			t.SingleRound = GeneralAMP(a, b, params.MeetingPoint)
			return scaled(t, rounds, "AMP inclusion-exclusion"), true
		}
		t.SingleRound = GeneralFV(a, b, c)
		return scaled(t, rounds, "FV inclusion-exclusion"), true
	}
	return Terms{}, false
}

func correlated(t Terms, p float64, kind sim.Kind, n, rounds int, params Params) (Terms, bool) {
	switch {
	case n == 2 && (kind == sim.KindAMP || kind == sim.KindFV):
		// With two processes each sender has one outgoing edge, so per-sender
		// and per-edge draws coincide.
		return standard(t, p, kind, n, rounds, params)
	case n == 3 && (kind == sim.KindCourteous || kind == sim.KindCourteousCorrelated):
		f := CourteousCorrelated(p)
		t.SingleRound, t.Factor = f, f
		t.Value = math.Pow(f, float64(rounds))
		t.Formula = "(q^3+2p^2q)^R"
		return t, true
	}
	return Terms{}, false
}

func conditioned(t Terms, p float64, kind sim.Kind, n, rounds int, delivery sim.Delivery) (Terms, bool) {
	if n != 2 {
		return Terms{}, false
	}
	var f float64
	switch {
	case delivery.Mode == sim.DeliveryGuaranteed && kind == sim.KindAMP:
		f = GuaranteedAMP(p)
		t.Formula = "(pq+q^2/2)^R"
	case delivery.Mode == sim.DeliveryGuaranteed && kind == sim.KindFV:
		f = GuaranteedFV(p)
		t.Formula = "(p^2)^R"
	case delivery.Mode == sim.DeliveryGuaranteed:
		return Terms{}, false
	case delivery.K != 1 || p <= 0:
		// At p=0 no draw can satisfy the condition and sampling falls back to
		// an unconditioned round.
		return Terms{}, false
	case kind == sim.KindAMP:
		f = ConditionedAMP(p)
		t.Formula = "(pq/(1-q^2))^R"
	case kind == sim.KindFV:
		f = ConditionedFV(p)
		t.Formula = "(p^2/(1-q^2))^R"
	default:
		return Terms{}, false
	}
	t.SingleRound, t.Factor = f, f
	t.Value = math.Pow(f, float64(rounds))
	return t, true
}

// scaled applies multi-round scaling: E_R = E_1 · factor^(R-1), where the
// factor is the single-round reduction relative to the initial discrepancy of 1.
func scaled(t Terms, rounds int, formula string) Terms {
	t.Factor = t.SingleRound
	t.Value = t.SingleRound * math.Pow(t.Factor, float64(rounds-1))
	t.Formula = formula
	return t
}
