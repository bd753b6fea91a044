package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExperiment_ZeroRounds_ReturnsInitialState(t *testing.T) {
	// GIVEN an initial configuration
	initial := Scalars(0, 1, 0.25)
	cfg := ExperimentConfig{P: 0.7, Rounds: 0, Algorithm: AMP(0.5), Delivery: Standard()}

	// WHEN run for zero rounds
	h, err := RunExperiment(initial, cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	// THEN exactly one entry equal to the initial state is returned
	require.Len(t, h.Rounds, 1)
	assert.Equal(t, 0, h.Rounds[0].Round)
	assert.Equal(t, initial, h.Rounds[0].Values)
	assert.Equal(t, 1.0, h.Rounds[0].Discrepancy)
}

func TestRunExperiment_ZeroRounds_StillValidates(t *testing.T) {
	cfg := ExperimentConfig{P: 0.7, Rounds: 0, Algorithm: Of(KindCyclic)}
	_, err := RunExperiment(Scalars(0, 1), cfg, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestRunExperiment_NegativeRounds(t *testing.T) {
	_, err := RunExperiment(Scalars(0, 1), ExperimentConfig{P: 0.5, Rounds: -1, Algorithm: FV()}, rand.New(rand.NewSource(1)))
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "rounds", cfgErr.Field)
}

func TestRunExperiment_HistoryLengthAndNonNegativeDiscrepancy(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, k := range Kinds() {
		for _, p := range []float64{0, 0.3, 1} {
			cfg := ExperimentConfig{P: p, Rounds: 4, Algorithm: Of(k), Delivery: Standard()}
			h, err := RunExperiment(Scalars(0, 1, 1), cfg, rng)
			require.NoError(t, err, k.String())
			require.Len(t, h.Rounds, 5)
			for r, rec := range h.Rounds {
				assert.Equal(t, r, rec.Round)
				assert.GreaterOrEqual(t, rec.Discrepancy, 0.0)
			}
		}
	}
}

func TestRunExperiment_MinKnownSetsOnlyGrow(t *testing.T) {
	// GIVEN MIN over 4 processes for 6 rounds
	initial := Scalars(0.9, 0.1, 0.5, 0.7)
	cfg := ExperimentConfig{P: 0.4, Rounds: 6, Algorithm: Min(), Delivery: Standard()}

	h, err := RunExperiment(initial, cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	// THEN KnownValueSet(i, r) ⊆ KnownValueSet(i, r+1) and own original is always known
	for r := 0; r+1 < len(h.Rounds); r++ {
		for i := range initial {
			assert.True(t, h.Rounds[r].State.Known[i].SubsetOf(h.Rounds[r+1].State.Known[i]), "process %d round %d", i, r)
			assert.True(t, h.Rounds[r+1].State.Known[i].Contains(initial[i]))
		}
	}
	// AND values stay put until the final round
	for r := 1; r < len(h.Rounds)-1; r++ {
		assert.Equal(t, initial, h.Rounds[r].Values)
		assert.Equal(t, h.Rounds[0].Discrepancy, h.Rounds[r].Discrepancy)
	}
}

func TestRunExperiment_MinFinalDecisionIsMinOfKnown(t *testing.T) {
	cfg := ExperimentConfig{P: 1, Rounds: 2, Algorithm: Min(), Delivery: Standard()}
	h, err := RunExperiment(Scalars(0.9, 0.1, 0.5), cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, []Scalar{0.1, 0.1, 0.1}, h.Final().Values)
	assert.Equal(t, 0.0, h.Final().Discrepancy)
}

func TestRunExperiment_LeaderRevertsWithoutLeaderMessage(t *testing.T) {
	// GIVEN leader 0 and round 1 delivers everything, round 2 nothing
	src := &scriptedSource{floats: []float64{0, 0, 0.99, 0.99}}
	cfg := ExperimentConfig{P: 0.5, Rounds: 2, Algorithm: Leader(0), Delivery: Standard()}

	h, err := RunExperiment(Scalars(1, 0), cfg, src)
	require.NoError(t, err)

	// THEN process 1 follows the leader, then reverts to its original value
	assert.Equal(t, []Scalar{1, 1}, h.Rounds[1].Values)
	assert.Equal(t, []Scalar{1, 0}, h.Rounds[2].Values)
}

func TestRunPolicy_MixedSteps(t *testing.T) {
	// GIVEN a two-step policy with everything delivered in both rounds
	steps := []AlgorithmSpec{AMP(0.5), FV()}
	src := allDeliveredRounds(2, len(steps))
	h, err := RunPolicy(Scalars(0, 1), 0.5, steps, Standard(), MetricEuclidean, src)
	require.NoError(t, err)

	// THEN AMP meets at 0.5 and FV keeps the agreement
	assert.Equal(t, []Scalar{0.5, 0.5}, h.Final().Values)
	r, ok := h.FirstConsensusRound()
	require.True(t, ok)
	assert.Equal(t, 1, r)
	assert.Equal(t, []float64{1, 0, 0}, h.Discrepancies())
	assert.Empty(t, src.floats, "each round consumes exactly n(n-1) draws")
}

func TestRunPolicy_MinOnlyNeedsNonNegativeWhenUsed(t *testing.T) {
	_, err := RunPolicy(Scalars(-1, 1), 0.5, []AlgorithmSpec{FV()}, Standard(), "", allDelivered(2))
	assert.NoError(t, err)

	_, err = RunPolicy(Scalars(-1, 1), 0.5, []AlgorithmSpec{FV(), Min()}, Standard(), "", allDelivered(2))
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestFirstConsensusRound_NeverAgreed(t *testing.T) {
	h, err := RunExperiment(Scalars(0, 1), ExperimentConfig{P: 0, Rounds: 3, Algorithm: FV()}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	_, ok := h.FirstConsensusRound()
	assert.False(t, ok)
}

func TestRunExperiment_ScalarAndOneDimensionalVectorAgree(t *testing.T) {
	// GIVEN the same initial values as scalars and as 1-D vectors
	starts := [][]float64{{0, 1, 1}, {0.2, 0.9, 0.5}}
	deliveries := []Delivery{Standard(), Guaranteed(), Correlated(), AtLeastK(2)}

	for _, k := range Kinds() {
		for _, d := range deliveries {
			for si, start := range starts {
				name := fmt.Sprintf("%s/%s/start%d", k, d, si)
				t.Run(name, func(t *testing.T) {
					spec := Of(k)
					switch k {
					case KindAMP:
						spec = AMP(0.5)
					case KindRecursiveAMP:
						spec = RecursiveAMP(0.3)
					case KindLeader:
						spec = Leader(1)
					}
					cfg := ExperimentConfig{P: 0.45, Rounds: 5, Algorithm: spec, Delivery: d}
					vectors := make([]Vector, len(start))
					for i, x := range start {
						vectors[i] = Vector{x}
					}

					// WHEN both run with identical seeds
					hs, err := RunExperiment(Scalars(start...), cfg, rand.New(rand.NewSource(99)))
					require.NoError(t, err)
					hv, err := RunExperiment(vectors, cfg, rand.New(rand.NewSource(99)))
					require.NoError(t, err)

					// THEN their discrepancy trajectories are identical
					assert.Equal(t, hs.Discrepancies(), hv.Discrepancies())
					for r := range hs.Rounds {
						for i := range start {
							assert.Equal(t, float64(hs.Rounds[r].Values[i]), hv.Rounds[r].Values[i][0])
						}
					}
				})
			}
		}
	}
}
