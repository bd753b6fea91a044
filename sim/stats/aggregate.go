package stats

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/agreement-sim/sim"
	"github.com/inference-sim/agreement-sim/sim/theory"
)

// Config groups the parameters of a repeated experiment.
type Config struct {
	Experiment  sim.ExperimentConfig
	Repetitions int
	// KeepSamples retains every final discrepancy in Summary.Samples.
	KeepSamples bool
}

// RunMultipleExperiments runs cfg.Repetitions independent experiments with
// identical parameters, drawing sequentially from src, and summarizes the
// final-round discrepancies together with the matching theoretical value.
func RunMultipleExperiments[V sim.Value[V]](initial []V, cfg Config, src sim.Source) (Summary, error) {
	if cfg.Repetitions < 1 {
		return Summary{}, &sim.ConfigError{Field: "repetitions", Reason: fmt.Sprintf("must be positive, got %d", cfg.Repetitions)}
	}
	finals := make([]float64, 0, cfg.Repetitions)
	for rep := 0; rep < cfg.Repetitions; rep++ {
		h, err := sim.RunExperiment(initial, cfg.Experiment, src)
		if err != nil {
			return Summary{}, fmt.Errorf("repetition %d: %w", rep, err)
		}
		finals = append(finals, h.Final().Discrepancy)
	}

	s := Summarize(finals)
	if cfg.KeepSamples {
		s.Samples = finals
	}
	if v, ok := Theoretical(initial, cfg.Experiment); ok {
		s.Theoretical = &v
	}
	logrus.Debugf("%d repetitions of %s: mean=%.6f se=%.6f theory=%v",
		cfg.Repetitions, cfg.Experiment.Algorithm.Label(), s.Mean, s.StdErr, s.Theoretical != nil)
	return s, nil
}

// Theoretical looks up the closed-form prediction for a scalar (or
// 1-dimensional) configuration. Multi-dimensional values have no formula.
func Theoretical[V sim.Value[V]](initial []V, cfg sim.ExperimentConfig) (float64, bool) {
	values := make([]float64, len(initial))
	for i, v := range initial {
		if v.Dim() != 1 {
			return 0, false
		}
		values[i] = v.Coord(0)
	}
	params := theory.Params{MeetingPoint: cfg.Algorithm.MeetingPoint, InitialValues: values}
	return theory.Discrepancy(cfg.P, cfg.Algorithm.Kind, len(initial), cfg.Rounds, params, cfg.Delivery)
}
