package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Metric selects the distance used for discrepancy in vector mode.
// For scalars every metric reduces to the absolute difference.
type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricL1        Metric = "l1"
	MetricLInf      Metric = "linf"
)

// validMetrics maps accepted metric names. Empty defaults to euclidean.
var validMetrics = map[Metric]bool{
	"":              true,
	MetricEuclidean: true,
	MetricL1:        true,
	MetricLInf:      true,
}

// ParseMetric converts a CLI/config string to a Metric.
func ParseMetric(s string) (Metric, error) {
	m := Metric(s)
	if !validMetrics[m] {
		return "", &ConfigError{Field: "metric", Reason: fmt.Sprintf("unknown metric %q; valid: euclidean, l1, linf", s)}
	}
	if m == "" {
		m = MetricEuclidean
	}
	return m, nil
}

// norm returns the L-norm order understood by floats.Distance.
func (m Metric) norm() float64 {
	switch m {
	case MetricL1:
		return 1
	case MetricLInf:
		return math.Inf(1)
	default:
		return 2
	}
}

// Distance returns the distance between a and b under metric m.
func Distance[V Value[V]](m Metric, a, b V) float64 {
	return floats.Distance(Coords(a), Coords(b), m.norm())
}

// Discrepancy returns the maximum pairwise distance among values.
// Returns 0 for fewer than two values.
func Discrepancy[V Value[V]](m Metric, values []V) float64 {
	coords := make([][]float64, len(values))
	for i, v := range values {
		coords[i] = Coords(v)
	}
	l := m.norm()
	maxDist := 0.0
	for i := 0; i < len(coords); i++ {
		for j := i + 1; j < len(coords); j++ {
			if d := floats.Distance(coords[i], coords[j], l); d > maxDist {
				maxDist = d
			}
		}
	}
	return maxDist
}
