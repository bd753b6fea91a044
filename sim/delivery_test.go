package sim

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliver_Standard_RowMajorDrawOrder(t *testing.T) {
	// GIVEN n=3 and draws that deliver only the 2nd and 6th messages in row-major order
	// (0→1, 0→2, 1→0, 1→2, 2→0, 2→1)
	src := &scriptedSource{floats: []float64{0.9, 0.1, 0.9, 0.9, 0.9, 0.1}}

	// WHEN drawn at p=0.5
	out := Deliver(3, 0.5, Standard(), src)

	// THEN exactly 0→2 and 2→1 are delivered and the diagonal stays false
	assert.True(t, out.Delivered[0][2])
	assert.True(t, out.Delivered[2][1])
	assert.Equal(t, 2, out.Count())
	for i := 0; i < 3; i++ {
		assert.False(t, out.Delivered[i][i])
	}
	assert.False(t, out.WasConditioned)
	assert.Equal(t, 1, out.Attempts)
}

func TestDeliver_Standard_BoundaryProbabilities(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 0, Deliver(4, 0, Standard(), rng).Count(), "p=0 never delivers")
	assert.Equal(t, 12, Deliver(4, 1, Standard(), rng).Count(), "p=1 always delivers")
}

func TestDeliver_Guaranteed_ForcesOnePairWhenNothingArrives(t *testing.T) {
	// GIVEN a standard draw where nothing arrives and a forced pair index 3
	// (row-major off-diagonal: 0→1, 0→2, 1→0, 1→2, ...)
	src := noneDelivered(3)
	src.ints = []int{3}

	// WHEN drawn under guaranteed delivery
	out := Deliver(3, 0.5, Guaranteed(), src)

	// THEN exactly 1→2 is delivered and the outcome is flagged conditioned
	assert.Equal(t, 1, out.Count())
	assert.True(t, out.Delivered[1][2])
	assert.True(t, out.WasConditioned)
}

func TestDeliver_Guaranteed_KeepsNaturalSuccesses(t *testing.T) {
	// GIVEN a draw where every message arrives
	out := Deliver(3, 0.5, Guaranteed(), allDelivered(3))

	// THEN nothing is forced
	assert.Equal(t, 6, out.Count())
	assert.False(t, out.WasConditioned)
}

func TestDeliver_Guaranteed_AlwaysAtLeastOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		require.GreaterOrEqual(t, Deliver(3, 0.05, Guaranteed(), rng).Count(), 1)
	}
}

func TestDeliver_Correlated_SharesOutcomePerSender(t *testing.T) {
	// GIVEN one draw per sender: sender 1 fails, senders 0 and 2 succeed
	src := &scriptedSource{floats: []float64{0.1, 0.9, 0.1}}

	// WHEN drawn under correlated delivery
	out := Deliver(3, 0.5, Correlated(), src)

	// THEN each sender's outgoing messages share its outcome
	assert.True(t, out.Delivered[0][1] && out.Delivered[0][2])
	assert.False(t, out.Delivered[1][0] || out.Delivered[1][2])
	assert.True(t, out.Delivered[2][0] && out.Delivered[2][1])
	assert.Empty(t, src.floats, "exactly n draws consumed")
}

func TestDeliver_AtLeastK_RetriesUntilThresholdMet(t *testing.T) {
	// GIVEN n=2, K=1: first attempt delivers nothing, second delivers one message
	src := &scriptedSource{floats: []float64{0.9, 0.9, 0.1, 0.9}}

	// WHEN drawn
	out := Deliver(2, 0.5, AtLeastK(1), src)

	// THEN the second attempt is accepted
	assert.True(t, out.WasConditioned)
	assert.Equal(t, 2, out.Attempts)
	assert.True(t, out.Delivered[0][1])
	assert.Equal(t, 1, out.Count())
}

func TestDeliver_AtLeastK_ExhaustionFallsBackUnconditioned(t *testing.T) {
	// GIVEN a threshold that is practically unreachable at low p
	const n, p, k = 3, 0.01, 6
	limit := ConditioningAttemptCap(n, p, k)
	require.Equal(t, MaxConditioningAttempts, limit)

	// WHEN every attempt fails to reach K
	src := &scriptedSource{floats: make([]float64, limit*n*(n-1))}
	for i := range src.floats {
		src.floats[i] = 0.5
	}
	out := Deliver(n, p, AtLeastK(k), src)

	// THEN the last draw is returned, flagged unconditioned, with Attempts = cap
	assert.False(t, out.WasConditioned)
	assert.Equal(t, limit, out.Attempts)
	assert.Equal(t, 0, out.Count())
}

func TestConditioningAttemptCap(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		p       float64
		k       int
		want    int
		atLeast int
	}{
		{name: "certain delivery", n: 3, p: 1, k: 6, want: 1},
		{name: "zero probability", n: 3, p: 0, k: 1, want: 1},
		{name: "k out of range", n: 2, p: 0.5, k: 3, want: 1},
		// tail = 1 - 0.25 = 0.75; ceil(ln 0.001 / ln 0.25) = 5
		{name: "n=2 k=1 p=0.5", n: 2, p: 0.5, k: 1, want: 5},
		{name: "rare event hits ceiling", n: 3, p: 0.01, k: 6, want: MaxConditioningAttempts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConditioningAttemptCap(tt.n, tt.p, tt.k))
		})
	}
}

func TestDelivery_Validate(t *testing.T) {
	assert.NoError(t, Standard().Validate(3))
	assert.NoError(t, Delivery{}.Validate(3))
	assert.NoError(t, AtLeastK(6).Validate(3))

	for _, d := range []Delivery{AtLeastK(0), AtLeastK(7), {Mode: "bursty"}} {
		err := d.Validate(3)
		require.Error(t, err, d.String())
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	}
}

func TestParseDeliveryMode(t *testing.T) {
	m, err := ParseDeliveryMode("")
	require.NoError(t, err)
	assert.Equal(t, DeliveryStandard, m)

	m, err = ParseDeliveryMode("at-least-k")
	require.NoError(t, err)
	assert.Equal(t, DeliveryAtLeastK, m)

	_, err = ParseDeliveryMode("lossy")
	assert.Error(t, err)
}

func TestDelivery_String(t *testing.T) {
	assert.Equal(t, "standard", Delivery{}.String())
	assert.Equal(t, "guaranteed", Guaranteed().String())
	assert.Equal(t, "at-least-k(2)", AtLeastK(2).String())
}
