// Package stats repeats experiments and summarizes their final discrepancies.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of final discrepancies across repetitions.
type Summary struct {
	Repetitions int     `json:"repetitions"`
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Variance    float64 `json:"variance"`
	StdDev      float64 `json:"std"`
	StdErr      float64 `json:"se"`
	CILower     float64 `json:"ciLower"`
	CIUpper     float64 `json:"ciUpper"`
	// Theoretical is nil when no closed form covers the configuration.
	Theoretical *float64  `json:"theoretical"`
	Samples     []float64 `json:"samples,omitempty"`
}

type IntOrFloat64 interface {
	int | int64 | float64
}

// Percentile returns the p-th percentile (0..100) of sorted data using linear
// interpolation between closest ranks. Returns 0 for empty input.
func Percentile[T IntOrFloat64](sorted []T, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	rank := p / 100.0 * float64(n-1)
	lowerIdx := int(math.Floor(rank))
	upperIdx := int(math.Ceil(rank))
	if upperIdx >= n {
		return float64(sorted[n-1])
	}
	if lowerIdx == upperIdx {
		return float64(sorted[lowerIdx])
	}
	lowerVal := float64(sorted[lowerIdx])
	upperVal := float64(sorted[upperIdx])
	return lowerVal + (upperVal-lowerVal)*(rank-float64(lowerIdx))
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean[T IntOrFloat64](numbers []T) float64 {
	if len(numbers) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, number := range numbers {
		sum += float64(number)
	}
	return sum / float64(len(numbers))
}

// Summarize computes descriptive statistics of samples. Variance is
// Bessel-corrected when there is more than one sample and 0 otherwise;
// SE = std/√n and the 95% interval is mean ± 2·SE. samples is not modified.
func Summarize(samples []float64) Summary {
	s := Summary{Repetitions: len(samples)}
	if len(samples) == 0 {
		return s
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	s.Median = Percentile(sorted, 50)
	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	if len(sorted) > 1 {
		s.Variance = stat.Variance(sorted, nil)
	}
	s.StdDev = math.Sqrt(s.Variance)
	s.StdErr = s.StdDev / math.Sqrt(float64(len(sorted)))
	s.CILower = s.Mean - 2*s.StdErr
	s.CIUpper = s.Mean + 2*s.StdErr
	return s
}
