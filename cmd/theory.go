package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/agreement-sim/sim"
	"github.com/inference-sim/agreement-sim/sim/theory"
)

// theoryOutput is the JSON written by the theory command.
type theoryOutput struct {
	Algorithm string  `json:"algorithm"`
	N         int     `json:"n"`
	P         float64 `json:"p"`
	Rounds    int     `json:"rounds"`
	Delivery  string  `json:"delivery"`
	// Value is null when no closed form covers the configuration.
	Value *float64      `json:"value"`
	Terms *theory.Terms `json:"terms,omitempty"`
}

// theoryCmd prints the closed-form expected discrepancy without simulating
var theoryCmd = &cobra.Command{
	Use:   "theory",
	Short: "Print the closed-form expected discrepancy for a configuration",
	Run: func(cmd *cobra.Command, args []string) {
		setup, err := resolveExperiment(cmd, loadFileConfig())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		out, err := predict(setup)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if out.Value == nil {
			logrus.Warnf("No theoretical formula for %s with n=%d under %s delivery", out.Algorithm, out.N, out.Delivery)
		}
		if err := writeJSON(outputPath, out); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// predict evaluates the theory for a resolved setup. Vector setups have no formula.
func predict(setup experimentSetup) (theoryOutput, error) {
	cfg := setup.Config
	out := theoryOutput{
		Algorithm: cfg.Algorithm.Label(),
		P:         cfg.P,
		Rounds:    cfg.Rounds,
		Delivery:  cfg.Delivery.String(),
	}
	if setup.Initial.IsVector() {
		values, err := setup.Initial.BuildVectors(sim.NewPartitionedRNG(sim.NewSimulationKey(setup.Seed)).ForSubsystem(sim.SubsystemInitial))
		if err != nil {
			return theoryOutput{}, err
		}
		out.N = len(values)
		return out, nil
	}
	values, err := setup.Initial.Floats(sim.NewPartitionedRNG(sim.NewSimulationKey(setup.Seed)).ForSubsystem(sim.SubsystemInitial))
	if err != nil {
		return theoryOutput{}, err
	}
	out.N = len(values)
	params := theory.Params{MeetingPoint: cfg.Algorithm.MeetingPoint, InitialValues: values}
	terms, ok := theory.Breakdown(cfg.P, cfg.Algorithm.Kind, len(values), cfg.Rounds, params, cfg.Delivery)
	if ok {
		out.Value = &terms.Value
		out.Terms = &terms
	}
	return out, nil
}

func init() {
	registerExperimentFlags(theoryCmd)
}
