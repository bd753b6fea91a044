package cmd

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/agreement-sim/sim"
	"github.com/inference-sim/agreement-sim/sim/initial"
	"github.com/inference-sim/agreement-sim/sim/stats"
)

var (
	// Experiment flags shared by run, stats, theory and search
	numProcesses  int       // Process count for the default binary start
	initialValues []float64 // Explicit initial values
	dims          int       // Value dimension (>1 selects vector mode)
	probability   float64   // Per-message delivery probability
	rounds        int       // Rounds per experiment
	repetitions   int       // Repetitions for stats and search
	algorithmName string    // Base algorithm kind
	meetingPoint  float64   // AMP meeting point
	alpha         float64   // Recursive AMP interpolation weight
	leaderIndex   int       // LEADER process index
	deliveryName  string    // Delivery mode
	deliveryK     int       // Threshold for at-least-k delivery
	metricName    string    // Discrepancy metric
)

// experimentSetup is the resolved input of a run or stats invocation.
type experimentSetup struct {
	Initial     initial.Spec
	Config      sim.ExperimentConfig
	Repetitions int
	Seed        int64
}

// resolveExperiment merges the config file (if any) with explicitly set flags.
// With no config file every flag, default or not, applies.
func resolveExperiment(cmd *cobra.Command, fc *FileConfig) (experimentSetup, error) {
	flags := cmd.Flags()
	override := func(name string) bool {
		return fc == nil || flags.Changed(name)
	}

	setup := experimentSetup{Seed: resolveSeed(cmd, fc), Repetitions: repetitions}
	if fc != nil {
		setup.Config = sim.ExperimentConfig{P: fc.P, Rounds: fc.Rounds, Algorithm: fc.Algorithm, Delivery: fc.Delivery, Metric: fc.Metric}
		if fc.Repetitions > 0 && !flags.Changed("repetitions") {
			setup.Repetitions = fc.Repetitions
		}
	}
	cfg := &setup.Config
	if override("p") {
		cfg.P = probability
	}
	if override("rounds") {
		cfg.Rounds = rounds
	}
	if override("algorithm") {
		k, err := sim.ParseKind(algorithmName)
		if err != nil {
			return experimentSetup{}, err
		}
		cfg.Algorithm.Kind = k
	}
	if override("meeting-point") {
		cfg.Algorithm.MeetingPoint = meetingPoint
	}
	if override("alpha") {
		cfg.Algorithm.Alpha = alpha
	}
	if override("leader") {
		cfg.Algorithm.Leader = leaderIndex
	}
	if override("delivery") {
		mode, err := sim.ParseDeliveryMode(deliveryName)
		if err != nil {
			return experimentSetup{}, err
		}
		cfg.Delivery.Mode = mode
	}
	if override("k") {
		cfg.Delivery.K = deliveryK
	}
	if override("metric") {
		m, err := sim.ParseMetric(metricName)
		if err != nil {
			return experimentSetup{}, err
		}
		cfg.Metric = m
	}

	setup.Initial = initialFromFlags(cmd, fc)
	if err := setup.Initial.Validate(); err != nil {
		return experimentSetup{}, err
	}
	return setup, nil
}

// initialFromFlags picks the initial configuration: --initial first, then the
// config file, then a binary start over --n processes. --n and --dims still
// apply to a file spec when set explicitly.
func initialFromFlags(cmd *cobra.Command, fc *FileConfig) initial.Spec {
	flags := cmd.Flags()
	var spec initial.Spec
	fromFile := fc != nil && fc.hasInitial()
	switch {
	case flags.Changed("initial"):
		spec = initial.Explicit(initialValues...)
	case fromFile:
		spec = fc.Initial
		if flags.Changed("n") && (spec.Type == initial.TypeBinary || spec.Type == initial.TypeUniform) {
			spec.N = numProcesses
		}
	default:
		spec = initial.Spec{Type: initial.TypeBinary, N: numProcesses}
	}
	if flags.Changed("dims") || !fromFile {
		if flags.Lookup("dims") != nil {
			spec.Dims = dims
		}
	}
	return spec
}

// registerExperimentFlags attaches the flags describing one experiment.
func registerExperimentFlags(c *cobra.Command) {
	c.Flags().IntVar(&numProcesses, "n", 2, "Number of processes (binary start: one process at 1, the rest at 0)")
	c.Flags().Float64SliceVar(&initialValues, "initial", nil, "Comma-separated explicit initial values (overrides --n)")
	c.Flags().IntVar(&dims, "dims", 1, "Value dimension; >1 runs the vector engine")
	c.Flags().Float64Var(&probability, "p", 0.5, "Per-message delivery probability")
	c.Flags().IntVar(&rounds, "rounds", 1, "Number of rounds")
	c.Flags().StringVar(&algorithmName, "algorithm", "amp", "Algorithm (amp, recursive-amp, fv, min, leader, courteous, courteous-correlated, selfish, cyclic, biased0)")
	c.Flags().Float64Var(&meetingPoint, "meeting-point", 0.5, "AMP meeting point in [0,1]")
	c.Flags().Float64Var(&alpha, "alpha", 0.5, "Recursive AMP interpolation weight in [0,1]")
	c.Flags().IntVar(&leaderIndex, "leader", 0, "LEADER process index")
	c.Flags().StringVar(&deliveryName, "delivery", "standard", "Delivery mode (standard, guaranteed, correlated, at-least-k)")
	c.Flags().IntVar(&deliveryK, "k", 1, "Minimum delivered messages for at-least-k delivery")
	c.Flags().StringVar(&metricName, "metric", "euclidean", "Discrepancy metric (euclidean, l1, linf)")
}

// runCmd executes one experiment and prints its history
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one multi-round experiment and print its history",
	Run: func(cmd *cobra.Command, args []string) {
		setup, err := resolveExperiment(cmd, loadFileConfig())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Starting experiment: %s, p=%v, rounds=%d, delivery=%s, seed=%d",
			setup.Config.Algorithm.Label(), setup.Config.P, setup.Config.Rounds, setup.Config.Delivery, setup.Seed)

		result, err := runExperiment(setup)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := writeJSON(outputPath, result); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Experiment complete.")
	},
}

// statsCmd repeats an experiment and prints summary statistics
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Repeat an experiment and summarize final discrepancies against theory",
	Run: func(cmd *cobra.Command, args []string) {
		setup, err := resolveExperiment(cmd, loadFileConfig())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Starting %d repetitions: %s, p=%v, rounds=%d, delivery=%s, seed=%d",
			setup.Repetitions, setup.Config.Algorithm.Label(), setup.Config.P, setup.Config.Rounds, setup.Config.Delivery, setup.Seed)

		start := time.Now()
		summary, err := runStats(setup, keepSamples)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := writeJSON(outputPath, summary); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Stats complete in %v.", time.Since(start))
	},
}

var keepSamples bool // Include every final discrepancy in stats output

// runExperiment dispatches to the scalar or vector engine.
func runExperiment(setup experimentSetup) (any, error) {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(setup.Seed))
	if setup.Initial.IsVector() {
		values, err := setup.Initial.BuildVectors(rng.ForSubsystem(sim.SubsystemInitial))
		if err != nil {
			return nil, err
		}
		return sim.RunExperiment(values, setup.Config, rng.ForSubsystem(sim.SubsystemDelivery))
	}
	values, err := setup.Initial.Scalars(rng.ForSubsystem(sim.SubsystemInitial))
	if err != nil {
		return nil, err
	}
	return sim.RunExperiment(values, setup.Config, rng.ForSubsystem(sim.SubsystemDelivery))
}

// runStats dispatches to the scalar or vector aggregator.
func runStats(setup experimentSetup, keep bool) (stats.Summary, error) {
	if setup.Repetitions < 1 {
		return stats.Summary{}, fmt.Errorf("--repetitions must be positive, got %d", setup.Repetitions)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(setup.Seed))
	cfg := stats.Config{Experiment: setup.Config, Repetitions: setup.Repetitions, KeepSamples: keep}
	if setup.Initial.IsVector() {
		values, err := setup.Initial.BuildVectors(rng.ForSubsystem(sim.SubsystemInitial))
		if err != nil {
			return stats.Summary{}, err
		}
		return stats.RunMultipleExperiments(values, cfg, rng.ForSubsystem(sim.SubsystemDelivery))
	}
	values, err := setup.Initial.Scalars(rng.ForSubsystem(sim.SubsystemInitial))
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.RunMultipleExperiments(values, cfg, rng.ForSubsystem(sim.SubsystemDelivery))
}

func init() {
	registerExperimentFlags(runCmd)
	registerExperimentFlags(statsCmd)
	statsCmd.Flags().IntVar(&repetitions, "repetitions", 1000, "Number of independent repetitions")
	statsCmd.Flags().BoolVar(&keepSamples, "samples", false, "Include every final discrepancy in the output")
}
