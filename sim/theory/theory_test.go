package theory

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/agreement-sim/sim"
)

var grid = []float64{0, 0.1, 0.25, 0.346, 0.5, 0.7, 0.9, 1}

func TestDiscrepancy_TwoProcessSingleRound(t *testing.T) {
	for _, p := range grid {
		// AMP: 1-p
		got, ok := Discrepancy(p, sim.KindAMP, 2, 1, Params{}, sim.Standard())
		require.True(t, ok)
		assert.InDelta(t, 1-p, got, 1e-9, "amp p=%v", p)

		// FV: p² + (1-p)²
		got, ok = Discrepancy(p, sim.KindFV, 2, 1, Params{}, sim.Standard())
		require.True(t, ok)
		assert.InDelta(t, p*p+(1-p)*(1-p), got, 1e-9, "fv p=%v", p)
	}
}

func TestDiscrepancy_TwoProcessMultiRound(t *testing.T) {
	got, ok := Discrepancy(0.7, sim.KindAMP, 2, 3, Params{}, sim.Standard())
	require.True(t, ok)
	assert.InDelta(t, math.Pow(0.3, 3), got, 1e-12)

	got, ok = Discrepancy(0.7, sim.KindFV, 2, 2, Params{InitialValues: []float64{1, 0}}, sim.Correlated())
	require.True(t, ok)
	assert.InDelta(t, math.Pow(0.58, 2), got, 1e-12)
}

func TestDiscrepancy_Courteous(t *testing.T) {
	for _, p := range grid {
		got, ok := Discrepancy(p, sim.KindCourteous, 3, 1, Params{InitialValues: []float64{0, 1, 1}}, sim.Standard())
		require.True(t, ok)
		assert.InDelta(t, 1-2*p+4*p*p-4*p*p*p+p*p*p*p, got, 1e-12)
	}

	// unanimous start
	got, ok := Discrepancy(0.5, sim.KindCourteous, 3, 1, Params{InitialValues: []float64{1, 1, 1}}, sim.Standard())
	require.True(t, ok)
	assert.Equal(t, 0.0, got)
}

func TestDiscrepancy_CourteousCorrelated(t *testing.T) {
	p, q := 0.6, 0.4
	got, ok := Discrepancy(p, sim.KindCourteousCorrelated, 3, 1, Params{}, sim.Correlated())
	require.True(t, ok)
	assert.InDelta(t, q*q*q+2*p*p*q, got, 1e-12)

	_, ok = Discrepancy(p, sim.KindCourteousCorrelated, 3, 1, Params{}, sim.Standard())
	assert.False(t, ok, "no standard-delivery formula for the correlated variant")
}

func TestDiscrepancy_ThreeProcessAMP(t *testing.T) {
	p, q, a := 0.4, 0.6, 0.3
	// default split: two zeros, one process at 1
	got, ok := Discrepancy(p, sim.KindAMP, 3, 1, Params{MeetingPoint: a}, sim.Standard())
	require.True(t, ok)
	assert.InDelta(t, (1-a)*q*q+a*(1-p*p), got, 1e-12)

	// mirrored split
	got, ok = Discrepancy(p, sim.KindAMP, 3, 1, Params{MeetingPoint: a, InitialValues: []float64{0, 1, 1}}, sim.Standard())
	require.True(t, ok)
	assert.InDelta(t, a*q*q+(1-a)*(1-p*p), got, 1e-12)
}

func TestDiscrepancy_ThreeProcessFVMatchesClosedForm(t *testing.T) {
	p, q := 0.3, 0.7
	got, ok := Discrepancy(p, sim.KindFV, 3, 1, Params{}, sim.Standard())
	require.True(t, ok)
	assert.InDelta(t, 1-q*q*(p*p+1-q*q), got, 1e-12)
}

func TestDiscrepancy_GeneralNScaling(t *testing.T) {
	// GIVEN n=5 with two zeros
	params := Params{MeetingPoint: 0.5, InitialValues: []float64{0, 0, 1, 1, 1}}
	one, ok := Discrepancy(0.5, sim.KindAMP, 5, 1, params, sim.Standard())
	require.True(t, ok)
	three, ok := Discrepancy(0.5, sim.KindAMP, 5, 3, params, sim.Standard())
	require.True(t, ok)

	// THEN E_R = E_1 · E_1^(R-1)
	assert.InDelta(t, math.Pow(one, 3), three, 1e-12)

	terms, ok := Breakdown(0.5, sim.KindAMP, 5, 1, params, sim.Standard())
	require.True(t, ok)
	q := 0.5
	assert.Equal(t, 2, terms.Zeros)
	assert.InDelta(t, math.Pow(1-math.Pow(q, 3), 2), terms.A, 1e-12)
	assert.InDelta(t, math.Pow(1-math.Pow(q, 2), 3), terms.B, 1e-12)
	assert.InDelta(t, math.Pow(q, 6), terms.C, 1e-12)
}

func TestDiscrepancy_ConditionedMaximum(t *testing.T) {
	for _, kind := range []sim.Kind{sim.KindAMP, sim.KindFV} {
		got, ok := Discrepancy(0.5, kind, 2, 1, Params{}, sim.AtLeastK(1))
		require.True(t, ok)
		assert.InDelta(t, 1.0/3, got, 1e-12, kind.String())
	}
	// the cap holds away from p=0.5
	got, _ := Discrepancy(0.9, sim.KindFV, 2, 1, Params{}, sim.AtLeastK(1))
	assert.LessOrEqual(t, got, ConditionedMaximum)

	_, ok := Discrepancy(0, sim.KindAMP, 2, 1, Params{}, sim.AtLeastK(1))
	assert.False(t, ok)
	_, ok = Discrepancy(0.5, sim.KindAMP, 2, 1, Params{}, sim.AtLeastK(2))
	assert.False(t, ok)
}

func TestDiscrepancy_GuaranteedForcedPair(t *testing.T) {
	for _, p := range grid {
		q := 1 - p
		// GIVEN forced-pair delivery, which repairs an empty round with one random edge
		// WHEN the two-process prediction is requested
		amp, ok := Discrepancy(p, sim.KindAMP, 2, 1, Params{MeetingPoint: 0.3}, sim.Guaranteed())
		require.True(t, ok)
		fv, ok := Discrepancy(p, sim.KindFV, 2, 1, Params{}, sim.Guaranteed())
		require.True(t, ok)
		amp3, ok := Discrepancy(p, sim.KindAMP, 2, 3, Params{MeetingPoint: 0.5}, sim.Guaranteed())
		require.True(t, ok)

		// THEN AMP keeps pq + q²/2 whatever the meeting point, FV keeps p², and rounds multiply
		assert.InDelta(t, p*q+q*q/2, amp, 1e-12, "amp p=%v", p)
		assert.InDelta(t, p*p, fv, 1e-12, "fv p=%v", p)
		assert.InDelta(t, math.Pow(p*q+q*q/2, 3), amp3, 1e-12, "amp R=3 p=%v", p)
	}
	// at p=0.5 the forced pair differs from E[D | ≥1 msg] = 1/3
	amp, _ := Discrepancy(0.5, sim.KindAMP, 2, 1, Params{}, sim.Guaranteed())
	assert.InDelta(t, 0.375, amp, 1e-12)
	fv, _ := Discrepancy(0.5, sim.KindFV, 2, 1, Params{}, sim.Guaranteed())
	assert.InDelta(t, 0.25, fv, 1e-12)

	_, ok := Discrepancy(0.5, sim.KindCourteous, 2, 1, Params{}, sim.Guaranteed())
	assert.False(t, ok)
}

func TestDiscrepancy_NoFormula(t *testing.T) {
	tests := []struct {
		name     string
		kind     sim.Kind
		n        int
		params   Params
		delivery sim.Delivery
	}{
		{"min", sim.KindMin, 2, Params{}, sim.Standard()},
		{"recursive amp", sim.KindRecursiveAMP, 3, Params{}, sim.Standard()},
		{"leader", sim.KindLeader, 3, Params{}, sim.Standard()},
		{"selfish", sim.KindSelfish, 3, Params{}, sim.Standard()},
		{"cyclic", sim.KindCyclic, 3, Params{}, sim.Standard()},
		{"biased0", sim.KindBiased0, 3, Params{}, sim.Standard()},
		{"courteous n=4", sim.KindCourteous, 4, Params{}, sim.Standard()},
		{"non-binary start", sim.KindAMP, 2, Params{InitialValues: []float64{0, 0.5}}, sim.Standard()},
		{"wrong length start", sim.KindAMP, 3, Params{InitialValues: []float64{0, 1}}, sim.Standard()},
		{"conditioned n=3", sim.KindAMP, 3, Params{}, sim.Guaranteed()},
		{"correlated amp n=4", sim.KindAMP, 4, Params{}, sim.Correlated()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := Discrepancy(0.5, tt.kind, tt.n, 1, tt.params, tt.delivery)
			assert.False(t, ok)
			assert.Equal(t, 0.0, v)

			_, err := Require(0.5, tt.kind, tt.n, 1, tt.params, tt.delivery)
			assert.True(t, errors.Is(err, ErrNoFormula))
		})
	}
}

func TestDiscrepancy_ZeroRoundsIsInitialDiscrepancy(t *testing.T) {
	got, ok := Discrepancy(0.5, sim.KindFV, 2, 0, Params{}, sim.Standard())
	require.True(t, ok)
	assert.Equal(t, 1.0, got)
}

func TestThreeProcessRegion(t *testing.T) {
	assert.Equal(t, RegionLow, ThreeProcessRegion(0.2))
	assert.Equal(t, RegionMid, ThreeProcessRegion(0.5))
	assert.Equal(t, RegionMid, ThreeProcessRegion(ThreeProcessThreshold))
	assert.Equal(t, RegionHigh, ThreeProcessRegion(0.8))

	terms, ok := Breakdown(0.2, sim.KindCourteous, 3, 1, Params{}, sim.Standard())
	require.True(t, ok)
	assert.Equal(t, RegionLow, terms.Region)
}
