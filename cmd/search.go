package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/agreement-sim/sim"
	"github.com/inference-sim/agreement-sim/sim/search"
)

var (
	// Search-only CLI flags
	horizon        int       // Policy length in rounds
	pGrid          []float64 // Delivery probabilities to evaluate
	deliveryNames  []string  // Delivery modes; at-least-k takes ":k"
	objectiveName  string    // Target objective
	meetingPoints  []float64 // AMP meeting points added to the catalog
	policyCap      int       // Maximum number of enumerated policies
	searchWorkers  int       // Concurrent units; 0 = NumCPU
	keepTrace      bool      // Attach the per-unit trace to the report
	metricsFile    string    // Prometheus text-format metrics output
	searchReps     int       // Repetitions per unit
	progressPeriod int       // Log every N completed units
	dbPath         string    // SQLite archive for search reports
)

// searchCmd enumerates policies and scores them over a p grid
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search round-by-round algorithm policies for the best success rate",
	Run: func(cmd *cobra.Command, args []string) {
		fc := loadFileConfig()
		cfg, err := resolveSearch(cmd, fc)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		report, err := search.Run(ctx, cfg, logProgress(progressPeriod))
		if err != nil {
			logrus.Fatalf("Search failed: %v", err)
		}
		logrus.Infof("Search %s complete in %v: %d results", report.RunID, time.Since(start), len(report.Results))

		if metricsFile != "" {
			if err := prometheus.WriteToTextfile(metricsFile, prometheus.DefaultGatherer); err != nil {
				logrus.Fatalf("Writing metrics: %v", err)
			}
			logrus.Infof("Metrics written to %s", metricsFile)
		}
		if dbPath != "" {
			if err := archiveReport(ctx, dbPath, report); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		if err := writeJSON(outputPath, report); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// logProgress logs every period-th completed unit and the last one.
func logProgress(period int) search.ProgressFunc {
	if period < 1 {
		period = 1
	}
	return func(pr search.Progress) {
		if pr.Completed%period != 0 && pr.Completed != pr.Total {
			return
		}
		logrus.Infof("[%d/%d] %s p=%v %s success=%.3f",
			pr.Completed, pr.Total, pr.Result.Policy, pr.Result.P, pr.Result.Delivery, pr.Result.SuccessRate)
	}
}

// parseDelivery accepts "standard", "guaranteed", "correlated" and "at-least-k:K".
func parseDelivery(s string) (sim.Delivery, error) {
	name, kText, hasK := strings.Cut(strings.TrimSpace(s), ":")
	mode, err := sim.ParseDeliveryMode(name)
	if err != nil {
		return sim.Delivery{}, err
	}
	d := sim.Delivery{Mode: mode}
	if mode == sim.DeliveryAtLeastK {
		if !hasK {
			return sim.Delivery{}, fmt.Errorf("delivery %q: at-least-k needs a threshold, e.g. at-least-k:2", s)
		}
		k, err := strconv.Atoi(kText)
		if err != nil {
			return sim.Delivery{}, fmt.Errorf("delivery %q: invalid threshold: %w", s, err)
		}
		d.K = k
	} else if hasK {
		return sim.Delivery{}, fmt.Errorf("delivery %q: only at-least-k takes a threshold", s)
	}
	return d, nil
}

// resolveSearch merges the config file's search section with explicitly set flags.
func resolveSearch(cmd *cobra.Command, fc *FileConfig) (search.Config, error) {
	flags := cmd.Flags()
	var sc SearchConfig
	if fc != nil && fc.Search != nil {
		sc = *fc.Search
	}
	override := func(name string) bool {
		return fc == nil || fc.Search == nil || flags.Changed(name)
	}

	cfg := search.Config{
		Horizon:       sc.Horizon,
		PGrid:         sc.PGrid,
		Deliveries:    sc.Deliveries,
		Objective:     search.Objective(sc.Objective),
		MeetingPoints: sc.MeetingPoints,
		Policies:      sc.Policies,
		Cap:           sc.Cap,
		Workers:       sc.Workers,
		KeepTrace:     sc.KeepTrace,
		Repetitions:   searchReps,
		Seed:          resolveSeed(cmd, fc),
	}
	if fc != nil {
		cfg.Metric = fc.Metric
		if fc.Repetitions > 0 && !flags.Changed("repetitions") {
			cfg.Repetitions = fc.Repetitions
		}
	}
	if override("horizon") {
		cfg.Horizon = horizon
	}
	if override("p-grid") {
		cfg.PGrid = pGrid
	}
	if override("deliveries") {
		cfg.Deliveries = nil
		for _, name := range deliveryNames {
			d, err := parseDelivery(name)
			if err != nil {
				return search.Config{}, err
			}
			cfg.Deliveries = append(cfg.Deliveries, d)
		}
	}
	if override("objective") {
		cfg.Objective = search.Objective(objectiveName)
	}
	if !search.IsValidObjective(string(cfg.Objective)) {
		return search.Config{}, fmt.Errorf("unknown objective %q (valid: mode, median, mean, min, max)", cfg.Objective)
	}
	if override("meeting-points") {
		cfg.MeetingPoints = meetingPoints
	}
	if override("cap") {
		cfg.Cap = policyCap
	}
	if override("workers") {
		cfg.Workers = searchWorkers
	}
	if flags.Changed("keep-trace") {
		cfg.KeepTrace = keepTrace
	}
	if flags.Changed("metric") || fc == nil {
		m, err := sim.ParseMetric(metricName)
		if err != nil {
			return search.Config{}, err
		}
		cfg.Metric = m
	}

	spec := initialFromFlags(cmd, fc)
	values, err := spec.Floats(sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)).ForSubsystem(sim.SubsystemInitial))
	if err != nil {
		return search.Config{}, err
	}
	cfg.InitialValues = values
	return cfg, cfg.Validate()
}

// registerSearchFlags attaches the search flags.
func registerSearchFlags(c *cobra.Command) {
	c.Flags().IntVar(&numProcesses, "n", 2, "Number of processes (binary start: one process at 1, the rest at 0)")
	c.Flags().Float64SliceVar(&initialValues, "initial", nil, "Comma-separated explicit initial values (overrides --n)")
	c.Flags().StringVar(&metricName, "metric", "euclidean", "Discrepancy metric (euclidean, l1, linf)")
	c.Flags().IntVar(&horizon, "horizon", 2, "Policy length in rounds")
	c.Flags().Float64SliceVar(&pGrid, "p-grid", []float64{0.1, 0.3, 0.5, 0.7, 0.9}, "Comma-separated delivery probabilities")
	c.Flags().StringSliceVar(&deliveryNames, "deliveries", []string{"standard"}, "Comma-separated delivery modes (at-least-k:K for a threshold)")
	c.Flags().IntVar(&searchReps, "repetitions", 200, "Repetitions per unit")
	c.Flags().StringVar(&objectiveName, "objective", "mode", "Target objective (mode, median, mean, min, max)")
	c.Flags().Float64SliceVar(&meetingPoints, "meeting-points", []float64{0.5}, "AMP and recursive-AMP parameters added to the catalog")
	c.Flags().IntVar(&policyCap, "cap", search.DefaultPolicyCap, "Maximum number of enumerated policies")
	c.Flags().IntVar(&searchWorkers, "workers", 0, "Concurrent units (0 = number of CPUs)")
	c.Flags().BoolVar(&keepTrace, "keep-trace", false, "Include the per-unit trace in the report")
	c.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus text-format metrics to this file")
	c.Flags().StringVar(&dbPath, "db", "", "Also store the report in this SQLite database")
	c.Flags().IntVar(&progressPeriod, "progress-every", 10, "Log progress every N completed units")
}

func init() {
	registerSearchFlags(searchCmd)
}
