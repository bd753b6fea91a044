package search

import (
	"fmt"
	"math"
	"sort"

	"github.com/inference-sim/agreement-sim/sim"
)

// Objective maps the original initial values to the consensus target a
// policy must reach for a repetition to count as a success.
type Objective string

const (
	// ObjectiveMode is the most frequent value; ties go to the smallest.
	ObjectiveMode Objective = "mode"
	// ObjectiveMedian is the lower middle element of the sorted values.
	ObjectiveMedian Objective = "median"
	// ObjectiveMean is the arithmetic mean rounded to the nearest integer
	// (halves away from zero).
	ObjectiveMean Objective = "mean"
	ObjectiveMin  Objective = "min"
	ObjectiveMax  Objective = "max"
)

// validObjectives maps accepted objective names. Empty defaults to mode.
var validObjectives = map[Objective]bool{
	"":              true,
	ObjectiveMode:   true,
	ObjectiveMedian: true,
	ObjectiveMean:   true,
	ObjectiveMin:    true,
	ObjectiveMax:    true,
}

// IsValidObjective returns true if name is a recognized objective.
func IsValidObjective(name string) bool {
	return validObjectives[Objective(name)]
}

// Target computes the consensus target for values.
func (o Objective) Target(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, &sim.ConfigError{Field: "initial_values", Reason: "must not be empty"}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	switch o {
	case ObjectiveMode, "":
		return mode(sorted), nil
	case ObjectiveMedian:
		return sorted[(len(sorted)-1)/2], nil
	case ObjectiveMean:
		sum := 0.0
		for _, v := range sorted {
			sum += v
		}
		return math.Round(sum / float64(len(sorted))), nil
	case ObjectiveMin:
		return sorted[0], nil
	case ObjectiveMax:
		return sorted[len(sorted)-1], nil
	default:
		return 0, &sim.ConfigError{Field: "objective", Reason: fmt.Sprintf("unknown objective %q; valid: mode, median, mean, min, max", string(o))}
	}
}

// mode scans sorted values in runs of equal elements (within sim.Epsilon).
// Strict comparison keeps the smallest value on ties.
func mode(sorted []float64) float64 {
	best, bestCount := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && math.Abs(sorted[j]-sorted[i]) <= sim.Epsilon {
			j++
		}
		if j-i > bestCount {
			best, bestCount = sorted[i], j-i
		}
		i = j
	}
	return best
}
