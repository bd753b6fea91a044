package sim

import (
	"github.com/sirupsen/logrus"
)

// Message is one directed transmission in a round. From is never equal to To.
type Message[V Value[V]] struct {
	From      int  `json:"from"`
	To        int  `json:"to"`
	Value     V    `json:"value"`
	Delivered bool `json:"delivered"`
}

// RoundConfig groups the per-round parameters.
type RoundConfig struct {
	P         float64       // per-message (or per-sender) success probability
	Algorithm AlgorithmSpec // update rule for this round
	Delivery  Delivery      // delivery model
	Metric    Metric        // discrepancy metric; empty = euclidean
}

// RoundContext positions a round within an experiment.
type RoundContext struct {
	Round int  // 1-based round index
	Final bool // MIN decides only on the final round
}

// RoundResult is the immutable outcome of one round.
type RoundResult[V Value[V]] struct {
	Round          int          `json:"round"`
	Values         []V          `json:"values"`
	Messages       []Message[V] `json:"messages,omitempty"`
	Discrepancy    float64      `json:"discrepancy"`
	State          State[V]     `json:"state"`
	WasConditioned bool         `json:"wasConditioned,omitempty"`
	Attempts       int          `json:"attempts,omitempty"`
}

// Validate checks p, delivery, algorithm and metric for n processes of dimension dims.
func (c RoundConfig) Validate(n, dims int) error {
	if err := validateProbability("p", c.P); err != nil {
		return err
	}
	if !validMetrics[c.Metric] {
		return invalidf("metric", "unknown metric %q", c.Metric)
	}
	if err := c.Delivery.Validate(n); err != nil {
		return err
	}
	return c.Algorithm.Validate(n, dims)
}

// SimulateRound runs one synchronous round: draw deliveries, collect inbound
// values per process, apply the configured rule, measure discrepancy.
//
// values and prior are never modified. A zero prior is seeded from values.
// rc.Round labels the result; rc.Final lets MIN decide.
func SimulateRound[V Value[V]](values []V, cfg RoundConfig, prior State[V], rc RoundContext, src Source) (RoundResult[V], error) {
	dims, err := validateValues(values)
	if err != nil {
		return RoundResult[V]{}, err
	}
	if err := cfg.Validate(len(values), dims); err != nil {
		return RoundResult[V]{}, err
	}
	if len(prior.Original) == 0 {
		prior = NewState(values)
	} else if len(prior.Original) != len(values) || len(prior.Known) != len(values) {
		return RoundResult[V]{}, invalidf("state", "holds %d processes, values have %d", len(prior.Original), len(values))
	}
	if cfg.Algorithm.Kind == KindMin {
		if err := validateNonNegative(prior.Original); err != nil {
			return RoundResult[V]{}, err
		}
	}
	return simulateRound(values, cfg, prior, rc, src), nil
}

// simulateRound is SimulateRound without validation, used by the runners
// after validating once.
func simulateRound[V Value[V]](values []V, cfg RoundConfig, prior State[V], rc RoundContext, src Source) RoundResult[V] {
	n := len(values)
	dims := values[0].Dim()
	spec := cfg.Algorithm
	outcome := Deliver(n, cfg.P, cfg.Delivery, src)

	// MIN broadcasts original values, never intermediate ones.
	outgoing := values
	if spec.Kind == KindMin {
		outgoing = prior.Original
	}

	messages := make([]Message[V], 0, n*(n-1))
	inbound := make([][]Inbound[V], n)
	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			if from == to {
				continue
			}
			ok := outcome.Delivered[from][to]
			messages = append(messages, Message[V]{From: from, To: to, Value: outgoing[from], Delivered: ok})
			if ok {
				inbound[to] = append(inbound[to], Inbound[V]{From: from, Value: outgoing[from]})
			}
		}
	}

	known := prior.Known
	if spec.Kind.UsesKnownSet() {
		known = make([]KnownSet[V], n)
		for i := 0; i < n; i++ {
			received := make([]V, len(inbound[i]))
			for j, m := range inbound[i] {
				received[j] = m.Value
			}
			known[i] = prior.Known[i].With(received...)
		}
	}

	rule := updateRule[V](spec.Kind)
	meeting := meetingValue[V](spec, dims)
	next := make([]V, n)
	for i := 0; i < n; i++ {
		next[i] = rule(&updateInput[V]{
			self:     i,
			own:      values[i],
			original: prior.Original[i],
			received: inbound[i],
			known:    known[i],
			spec:     spec,
			meeting:  meeting,
			final:    rc.Final,
		})
	}

	d := Discrepancy(cfg.Metric, next)
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.Debugf("round %d: %s delivered=%d/%d discrepancy=%.6f", rc.Round, spec.Label(), outcome.Count(), n*(n-1), d)
	}

	return RoundResult[V]{
		Round:          rc.Round,
		Values:         next,
		Messages:       messages,
		Discrepancy:    d,
		State:          prior.withKnown(known),
		WasConditioned: outcome.WasConditioned,
		Attempts:       outcome.Attempts,
	}
}

// validateValues checks there are at least two processes of a common positive dimension.
func validateValues[V Value[V]](values []V) (int, error) {
	if len(values) < 2 {
		return 0, invalidf("values", "need at least 2 processes, got %d", len(values))
	}
	dims := values[0].Dim()
	if dims < 1 {
		return 0, invalidf("values", "process 0 has no coordinates")
	}
	for i, v := range values {
		if v.Dim() != dims {
			return 0, invalidf("values", "process %d has %d coordinates, process 0 has %d", i, v.Dim(), dims)
		}
	}
	return dims, nil
}

func validateNonNegative[V Value[V]](values []V) error {
	for i, v := range values {
		for d := 0; d < v.Dim(); d++ {
			if v.Coord(d) < 0 {
				return invalidf("values", "min requires non-negative values; process %d has %v", i, v.Coord(d))
			}
		}
	}
	return nil
}
