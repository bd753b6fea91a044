// Package search evaluates fixed-length algorithm policies across a grid of
// delivery probabilities and delivery modes.
//
// Each (policy, p, delivery) combination is a unit. Units are independent:
// every unit draws from its own RNG stream derived from the master seed and
// the unit index, so results do not depend on worker count or scheduling.
package search

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/agreement-sim/sim"
	"github.com/inference-sim/agreement-sim/sim/stats"
	"github.com/inference-sim/agreement-sim/sim/trace"
)

// Config describes a policy search.
type Config struct {
	InitialValues []float64      `json:"initialValues"`
	Horizon       int            `json:"horizon"`
	PGrid         []float64      `json:"pGrid"`
	Deliveries    []sim.Delivery `json:"deliveries"` // empty = standard only
	Repetitions   int            `json:"repetitions"`
	Objective     Objective      `json:"objective"`
	MeetingPoints []float64      `json:"meetingPoints"` // empty = DefaultMeetingPoints
	// Policies, when set, replaces catalog enumeration.
	Policies []Policy   `json:"policies,omitempty"`
	Cap      int        `json:"cap"`
	Metric   sim.Metric `json:"metric"`
	Seed     int64      `json:"seed"`
	// Workers bounds concurrency; 0 = runtime.NumCPU().
	Workers int `json:"workers"`
	// KeepTrace attaches the full per-unit trace to the Report.
	KeepTrace bool `json:"keepTrace"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	n := len(c.InitialValues)
	if n < 2 {
		return &sim.ConfigError{Field: "initial_values", Reason: fmt.Sprintf("need at least 2 processes, got %d", n)}
	}
	if c.Horizon < 1 {
		return &sim.ConfigError{Field: "horizon", Reason: fmt.Sprintf("must be positive, got %d", c.Horizon)}
	}
	if len(c.PGrid) == 0 {
		return &sim.ConfigError{Field: "p_grid", Reason: "must not be empty"}
	}
	for i, p := range c.PGrid {
		if p < 0 || p > 1 || p != p {
			return &sim.ConfigError{Field: fmt.Sprintf("p_grid[%d]", i), Reason: fmt.Sprintf("must be in [0,1], got %v", p)}
		}
	}
	for _, d := range c.Deliveries {
		if err := d.Validate(n); err != nil {
			return err
		}
	}
	if c.Repetitions < 1 {
		return &sim.ConfigError{Field: "repetitions", Reason: fmt.Sprintf("must be positive, got %d", c.Repetitions)}
	}
	if !validObjectives[c.Objective] {
		return &sim.ConfigError{Field: "objective", Reason: fmt.Sprintf("unknown objective %q", c.Objective)}
	}
	for i, mp := range c.MeetingPoints {
		if mp < 0 || mp > 1 || mp != mp {
			return &sim.ConfigError{Field: fmt.Sprintf("meeting_points[%d]", i), Reason: fmt.Sprintf("must be in [0,1], got %v", mp)}
		}
	}
	for i, pol := range c.Policies {
		if len(pol.Steps) != c.Horizon {
			return &sim.ConfigError{Field: fmt.Sprintf("policies[%d]", i), Reason: fmt.Sprintf("has %d steps, horizon is %d", len(pol.Steps), c.Horizon)}
		}
		for _, s := range pol.Steps {
			if err := s.Validate(n, 1); err != nil {
				return err
			}
		}
	}
	if _, err := sim.ParseMetric(string(c.Metric)); err != nil {
		return err
	}
	if c.Workers < 0 {
		return &sim.ConfigError{Field: "workers", Reason: fmt.Sprintf("must be non-negative, got %d", c.Workers)}
	}
	return nil
}

// Result scores one unit.
type Result struct {
	Policy      string              `json:"policy"`
	Steps       []sim.AlgorithmSpec `json:"steps"`
	P           float64             `json:"p"`
	Delivery    sim.Delivery        `json:"delivery"`
	Repetitions int                 `json:"repetitions"`
	Successes   int                 `json:"successes"`
	// SuccessRate is the fraction of repetitions ending with every process
	// equal to the objective target.
	SuccessRate    float64 `json:"successRate"`
	AvgDiscrepancy float64 `json:"avgDiscrepancy"`
	// AvgConsensusRound averages the first all-equal round over successful
	// repetitions only; nil when none succeeded.
	AvgConsensusRound *float64 `json:"avgConsensusRound"`
}

// Progress is reported after each unit completes.
type Progress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Result    Result `json:"result"`
}

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(Progress)

// Report is the outcome of a search.
type Report struct {
	RunID       string              `json:"runId"`
	Objective   Objective           `json:"objective"`
	Target      float64             `json:"target"`
	Enumeration EnumerationInfo     `json:"enumeration"`
	Results     []Result            `json:"results"`
	Summary     *trace.TraceSummary `json:"summary"`
	Trace       *trace.SearchTrace  `json:"trace,omitempty"`
}

type unit struct {
	index    int
	policy   Policy
	p        float64
	delivery sim.Delivery
}

// Run evaluates every unit on a bounded worker pool. Results are returned in
// (policy, p, delivery) order. Cancellation is checked between units; a
// cancelled search returns the context error and no partial report.
func Run(ctx context.Context, cfg Config, progress ProgressFunc) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	target, err := cfg.Objective.Target(cfg.InitialValues)
	if err != nil {
		return Report{}, err
	}
	objective := cfg.Objective
	if objective == "" {
		objective = ObjectiveMode
	}
	deliveries := cfg.Deliveries
	if len(deliveries) == 0 {
		deliveries = []sim.Delivery{sim.Standard()}
	}

	n := len(cfg.InitialValues)
	policies, info := cfg.Policies, EnumerationInfo{}
	if len(policies) > 0 {
		info = EnumerationInfo{Total: len(policies), Cap: len(policies), Evaluated: len(policies)}
	} else {
		catalog := Catalog(n, cfg.MeetingPoints)
		if slices.Min(cfg.InitialValues) < 0 {
			catalog = withoutKind(catalog, sim.KindMin)
			logrus.Warnf("initial values include negatives: %s dropped from the catalog", sim.KindMin)
		}
		policies, info = Enumerate(catalog, cfg.Horizon, cfg.Cap)
	}
	if info.Truncated {
		logrus.Warnf("policy space truncated: evaluating %d of %d policies (cap %d)", info.Evaluated, info.Total, info.Cap)
	}

	units := make([]unit, 0, len(policies)*len(cfg.PGrid)*len(deliveries))
	for _, pol := range policies {
		for _, p := range cfg.PGrid {
			for _, d := range deliveries {
				units = append(units, unit{index: len(units), policy: pol, p: p, delivery: d})
			}
		}
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	runID := uuid.NewString()
	logrus.Infof("search %s: %d units (%d policies x %d p x %d deliveries) on %d workers",
		runID, len(units), len(policies), len(cfg.PGrid), len(deliveries), workers)

	initial := sim.Scalars(cfg.InitialValues...)
	results := make([]Result, len(units))
	var mu sync.Mutex
	completed := 0

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, u := range units {
		if gCtx.Err() != nil {
			break
		}
		u := u
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			start := time.Now()
			rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)).ForSubsystem(sim.SubsystemSearchUnit(u.index))
			res, err := evaluate(u, initial, sim.Scalar(target), cfg, rng)
			if err != nil {
				return fmt.Errorf("unit %d (%s, p=%g, %s): %w", u.index, u.policy.Label(), u.p, u.delivery, err)
			}
			results[u.index] = res

			unitsTotal.WithLabelValues(u.delivery.String()).Inc()
			experimentsTotal.Add(float64(cfg.Repetitions))
			unitDuration.Observe(time.Since(start).Seconds())
			unitSuccessRate.Observe(res.SuccessRate)

			mu.Lock()
			completed++
			if progress != nil {
				progress(Progress{Completed: completed, Total: len(units), Result: res})
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	st := trace.NewSearchTrace(runID)
	for i, res := range results {
		st.Record(trace.UnitRecord{
			Unit:              i,
			Policy:            res.Policy,
			P:                 res.P,
			Delivery:          res.Delivery.String(),
			Repetitions:       res.Repetitions,
			Successes:         res.Successes,
			SuccessRate:       res.SuccessRate,
			AvgDiscrepancy:    res.AvgDiscrepancy,
			AvgConsensusRound: res.AvgConsensusRound,
		})
	}
	report := Report{
		RunID:       runID,
		Objective:   objective,
		Target:      target,
		Enumeration: info,
		Results:     results,
		Summary:     trace.Summarize(st),
	}
	if cfg.KeepTrace {
		report.Trace = st
	}
	logrus.Infof("search %s complete: best success rate %.4f", runID, report.Summary.MaxSuccessRate)
	return report, nil
}

// evaluate runs the unit's repetitions on src.
func evaluate(u unit, initial []sim.Scalar, target sim.Scalar, cfg Config, src sim.Source) (Result, error) {
	res := Result{
		Policy:      u.policy.Label(),
		Steps:       u.policy.Steps,
		P:           u.p,
		Delivery:    u.delivery,
		Repetitions: cfg.Repetitions,
	}
	finals := make([]float64, 0, cfg.Repetitions)
	var rounds []int
	for rep := 0; rep < cfg.Repetitions; rep++ {
		h, err := sim.RunPolicy(initial, u.p, u.policy.Steps, u.delivery, cfg.Metric, src)
		if err != nil {
			return Result{}, err
		}
		final := h.Final()
		finals = append(finals, final.Discrepancy)
		if reachedTarget(final.Values, target) {
			res.Successes++
			if r, ok := h.FirstConsensusRound(); ok {
				rounds = append(rounds, r)
			}
		}
	}
	res.SuccessRate = float64(res.Successes) / float64(cfg.Repetitions)
	res.AvgDiscrepancy = stats.Mean(finals)
	if len(rounds) > 0 {
		avg := stats.Mean(rounds)
		res.AvgConsensusRound = &avg
	}
	return res, nil
}

func reachedTarget(values []sim.Scalar, target sim.Scalar) bool {
	for _, v := range values {
		if !sim.Equal(v, target) {
			return false
		}
	}
	return true
}
