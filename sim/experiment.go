package sim

// ExperimentConfig groups the parameters of a multi-round experiment.
type ExperimentConfig struct {
	P         float64
	Rounds    int
	Algorithm AlgorithmSpec
	Delivery  Delivery
	Metric    Metric
}

// History is the ordered record of an experiment. Rounds[0] is the initial
// state; Rounds[r] is the state after round r. len(Rounds) == rounds+1.
type History[V Value[V]] struct {
	Rounds []RoundResult[V] `json:"rounds"`
}

// Final returns the last record.
func (h History[V]) Final() RoundResult[V] {
	return h.Rounds[len(h.Rounds)-1]
}

// Discrepancies returns the discrepancy trajectory, round 0 first.
func (h History[V]) Discrepancies() []float64 {
	out := make([]float64, len(h.Rounds))
	for i, r := range h.Rounds {
		out[i] = r.Discrepancy
	}
	return out
}

// FirstConsensusRound returns the first round whose values are all equal.
func (h History[V]) FirstConsensusRound() (int, bool) {
	for _, r := range h.Rounds {
		if AllEqual(r.Values) {
			return r.Round, true
		}
	}
	return 0, false
}

// RunExperiment runs cfg.Rounds rounds of one algorithm from initial values.
func RunExperiment[V Value[V]](initial []V, cfg ExperimentConfig, src Source) (History[V], error) {
	if cfg.Rounds < 0 {
		return History[V]{}, invalidf("rounds", "must be non-negative, got %d", cfg.Rounds)
	}
	steps := make([]AlgorithmSpec, cfg.Rounds)
	for i := range steps {
		steps[i] = cfg.Algorithm
	}
	if cfg.Rounds == 0 {
		// Still reject a bad algorithm even when no round runs.
		dims, err := validateValues(initial)
		if err != nil {
			return History[V]{}, err
		}
		rc := RoundConfig{P: cfg.P, Algorithm: cfg.Algorithm, Delivery: cfg.Delivery, Metric: cfg.Metric}
		if err := rc.Validate(len(initial), dims); err != nil {
			return History[V]{}, err
		}
	}
	return RunPolicy(initial, cfg.P, steps, cfg.Delivery, cfg.Metric, src)
}

// RunPolicy runs one round per entry of steps, threading state between rounds.
// MIN decides only when its step is the last one.
func RunPolicy[V Value[V]](initial []V, p float64, steps []AlgorithmSpec, delivery Delivery, metric Metric, src Source) (History[V], error) {
	dims, err := validateValues(initial)
	if err != nil {
		return History[V]{}, err
	}
	n := len(initial)
	usesMin := false
	for _, spec := range steps {
		rc := RoundConfig{P: p, Algorithm: spec, Delivery: delivery, Metric: metric}
		if err := rc.Validate(n, dims); err != nil {
			return History[V]{}, err
		}
		usesMin = usesMin || spec.Kind == KindMin
	}
	if err := validateProbability("p", p); err != nil {
		return History[V]{}, err
	}
	if usesMin {
		if err := validateNonNegative(initial); err != nil {
			return History[V]{}, err
		}
	}

	state := NewState(initial)
	values := append([]V(nil), initial...)
	history := History[V]{Rounds: make([]RoundResult[V], 0, len(steps)+1)}
	history.Rounds = append(history.Rounds, RoundResult[V]{
		Round:       0,
		Values:      values,
		Discrepancy: Discrepancy(metric, values),
		State:       state,
	})

	for r, spec := range steps {
		rc := RoundContext{Round: r + 1, Final: r == len(steps)-1}
		cfg := RoundConfig{P: p, Algorithm: spec, Delivery: delivery, Metric: metric}
		res := simulateRound(values, cfg, state, rc, src)
		history.Rounds = append(history.Rounds, res)
		values = res.Values
		state = res.State
	}
	return history, nil
}
