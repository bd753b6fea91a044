package search

import (
	"math"
	"strings"

	"github.com/inference-sim/agreement-sim/sim"
)

// DefaultPolicyCap bounds enumeration when no cap is configured.
const DefaultPolicyCap = 10000

// DefaultMeetingPoints is used when a catalog is built without explicit points.
var DefaultMeetingPoints = []float64{0.5}

// baseKinds is the catalog order. COURTEOUS_CORRELATED is not a base kind.
var baseKinds = []sim.Kind{
	sim.KindAMP,
	sim.KindRecursiveAMP,
	sim.KindFV,
	sim.KindMin,
	sim.KindLeader,
	sim.KindCourteous,
	sim.KindSelfish,
	sim.KindCyclic,
	sim.KindBiased0,
}

// Catalog expands the base kinds into concrete algorithm instances for n
// processes: one AMP and one Recursive AMP (as alpha) per meeting point, one
// LEADER per process index, and the 3-process-only kinds only when n == 3.
func Catalog(n int, meetingPoints []float64) []sim.AlgorithmSpec {
	if len(meetingPoints) == 0 {
		meetingPoints = DefaultMeetingPoints
	}
	var out []sim.AlgorithmSpec
	for _, k := range baseKinds {
		if k.ThreeProcessOnly() && n != 3 {
			continue
		}
		switch k {
		case sim.KindAMP:
			for _, mp := range meetingPoints {
				out = append(out, sim.AMP(mp))
			}
		case sim.KindRecursiveAMP:
			for _, mp := range meetingPoints {
				out = append(out, sim.RecursiveAMP(mp))
			}
		case sim.KindLeader:
			for i := 0; i < n; i++ {
				out = append(out, sim.Leader(i))
			}
		default:
			out = append(out, sim.Of(k))
		}
	}
	return out
}

// withoutKind filters every instance of k out of catalog.
func withoutKind(catalog []sim.AlgorithmSpec, k sim.Kind) []sim.AlgorithmSpec {
	out := make([]sim.AlgorithmSpec, 0, len(catalog))
	for _, spec := range catalog {
		if spec.Kind != k {
			out = append(out, spec)
		}
	}
	return out
}

// Policy is a round-indexed sequence of algorithm choices; Steps[r] runs in round r+1.
type Policy struct {
	Steps []sim.AlgorithmSpec `json:"steps" yaml:"steps"`
}

// Label joins the step labels, e.g. "amp(0.5) > fv".
func (p Policy) Label() string {
	labels := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		labels[i] = s.Label()
	}
	return strings.Join(labels, " > ")
}

// EnumerationInfo reports how much of the policy space was generated.
type EnumerationInfo struct {
	// Total is |catalog|^horizon, saturating at math.MaxInt.
	Total     int  `json:"total"`
	Cap       int  `json:"cap"`
	Evaluated int  `json:"evaluated"`
	Truncated bool `json:"truncated"`
}

// Enumerate generates length-horizon sequences drawn with repetition from
// catalog, depth-first in catalog order, stopping after cap sequences.
// cap <= 0 means DefaultPolicyCap.
func Enumerate(catalog []sim.AlgorithmSpec, horizon, cap int) ([]Policy, EnumerationInfo) {
	if cap <= 0 {
		cap = DefaultPolicyCap
	}
	info := EnumerationInfo{Cap: cap}
	if horizon < 1 || len(catalog) == 0 {
		return nil, info
	}
	info.Total = saturatingPow(len(catalog), horizon)

	policies := make([]Policy, 0, min(info.Total, cap))
	steps := make([]sim.AlgorithmSpec, 0, horizon)
	var walk func() bool
	walk = func() bool {
		if len(steps) == horizon {
			policies = append(policies, Policy{Steps: append([]sim.AlgorithmSpec(nil), steps...)})
			return len(policies) < cap
		}
		for _, spec := range catalog {
			steps = append(steps, spec)
			more := walk()
			steps = steps[:len(steps)-1]
			if !more {
				return false
			}
		}
		return true
	}
	walk()

	info.Evaluated = len(policies)
	info.Truncated = info.Evaluated < info.Total
	return policies, info
}

func saturatingPow(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		if result > math.MaxInt/base {
			return math.MaxInt
		}
		result *= base
	}
	return result
}
