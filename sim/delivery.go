package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// DeliveryMode names a model deciding which directed messages succeed.
type DeliveryMode string

const (
	// DeliveryStandard draws one independent Bernoulli(p) per directed pair.
	DeliveryStandard DeliveryMode = "standard"
	// DeliveryGuaranteed draws as standard; if nothing arrives, one uniformly
	// random directed pair is forced to succeed.
	DeliveryGuaranteed DeliveryMode = "guaranteed"
	// DeliveryCorrelated draws one Bernoulli(p) per sender, shared by all of
	// that sender's outgoing messages.
	DeliveryCorrelated DeliveryMode = "correlated"
	// DeliveryAtLeastK rejection-samples standard draws until at least K
	// messages succeed, bounded by ConditioningAttemptCap.
	DeliveryAtLeastK DeliveryMode = "at-least-k"
)

// MaxConditioningAttempts is the hard ceiling on rejection-sampling attempts.
const MaxConditioningAttempts = 10000

// conditioningConfidence is the success probability the attempt cap targets.
const conditioningConfidence = 0.999

// validDeliveryModes maps accepted delivery mode strings. Empty defaults to standard.
var validDeliveryModes = map[DeliveryMode]bool{
	"":                 true,
	DeliveryStandard:   true,
	DeliveryGuaranteed: true,
	DeliveryCorrelated: true,
	DeliveryAtLeastK:   true,
}

// ParseDeliveryMode converts a CLI/config string to a DeliveryMode.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	m := DeliveryMode(s)
	if !validDeliveryModes[m] {
		return "", invalidf("delivery.mode", "unknown delivery mode %q; valid: standard, guaranteed, correlated, at-least-k", s)
	}
	if m == "" {
		m = DeliveryStandard
	}
	return m, nil
}

// Delivery configures the delivery model for a round.
type Delivery struct {
	Mode DeliveryMode `json:"mode" yaml:"mode"`
	K    int          `json:"k,omitempty" yaml:"k,omitempty"` // only for at-least-k
}

// Standard returns the independent per-edge delivery model.
func Standard() Delivery { return Delivery{Mode: DeliveryStandard} }

// Guaranteed returns the force-one-message delivery model.
func Guaranteed() Delivery { return Delivery{Mode: DeliveryGuaranteed} }

// Correlated returns the per-sender delivery model.
func Correlated() Delivery { return Delivery{Mode: DeliveryCorrelated} }

// AtLeastK returns the rejection-sampling model conditioned on ≥k successes.
func AtLeastK(k int) Delivery { return Delivery{Mode: DeliveryAtLeastK, K: k} }

func (d Delivery) String() string {
	if d.Mode == DeliveryAtLeastK {
		return fmt.Sprintf("%s(%d)", d.Mode, d.K)
	}
	if d.Mode == "" {
		return string(DeliveryStandard)
	}
	return string(d.Mode)
}

// Conditioned reports whether the model conditions on message success.
func (d Delivery) Conditioned() bool {
	return d.Mode == DeliveryGuaranteed || d.Mode == DeliveryAtLeastK
}

// Validate checks the mode and, for at-least-k, that 1 ≤ K ≤ n(n-1).
func (d Delivery) Validate(n int) error {
	if !validDeliveryModes[d.Mode] {
		return invalidf("delivery.mode", "unknown delivery mode %q", d.Mode)
	}
	if d.Mode == DeliveryAtLeastK {
		edges := n * (n - 1)
		if d.K < 1 || d.K > edges {
			return invalidf("delivery.k", "must be in [1,%d] for n=%d, got %d", edges, n, d.K)
		}
	}
	return nil
}

// DeliveryOutcome is the per-round delivery decision.
type DeliveryOutcome struct {
	// Delivered[from][to]; the diagonal is always false.
	Delivered      [][]bool
	WasConditioned bool
	// Attempts is the number of standard draws consumed by at-least-k (1 otherwise).
	Attempts int
}

// Count returns the number of delivered messages.
func (o DeliveryOutcome) Count() int {
	c := 0
	for i := range o.Delivered {
		for j := range o.Delivered[i] {
			if o.Delivered[i][j] {
				c++
			}
		}
	}
	return c
}

// Deliver draws a delivery outcome for n processes under model d.
// Draws are consumed in row-major (sender, receiver) order, independent of the
// value type being simulated.
func Deliver(n int, p float64, d Delivery, src Source) DeliveryOutcome {
	switch d.Mode {
	case DeliveryGuaranteed:
		return deliverGuaranteed(n, p, src)
	case DeliveryCorrelated:
		return DeliveryOutcome{Delivered: drawCorrelated(n, p, src), Attempts: 1}
	case DeliveryAtLeastK:
		return deliverAtLeastK(n, p, d.K, src)
	default:
		return DeliveryOutcome{Delivered: drawStandard(n, p, src), Attempts: 1}
	}
}

func newDeliveryMatrix(n int) [][]bool {
	m := make([][]bool, n)
	for i := range m {
		m[i] = make([]bool, n)
	}
	return m
}

func drawStandard(n int, p float64, src Source) [][]bool {
	m := newDeliveryMatrix(n)
	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			if from == to {
				continue
			}
			m[from][to] = src.Float64() < p
		}
	}
	return m
}

func drawCorrelated(n int, p float64, src Source) [][]bool {
	m := newDeliveryMatrix(n)
	for from := 0; from < n; from++ {
		ok := src.Float64() < p
		for to := 0; to < n; to++ {
			if from != to {
				m[from][to] = ok
			}
		}
	}
	return m
}

func deliverGuaranteed(n int, p float64, src Source) DeliveryOutcome {
	out := DeliveryOutcome{Delivered: drawStandard(n, p, src), Attempts: 1}
	if out.Count() > 0 || n < 2 {
		return out
	}
	// Pair index k enumerates off-diagonal cells row-major.
	k := src.Intn(n * (n - 1))
	from := k / (n - 1)
	to := k % (n - 1)
	if to >= from {
		to++
	}
	out.Delivered[from][to] = true
	out.WasConditioned = true
	return out
}

func deliverAtLeastK(n int, p float64, k int, src Source) DeliveryOutcome {
	limit := ConditioningAttemptCap(n, p, k)
	var last [][]bool
	for attempt := 1; attempt <= limit; attempt++ {
		last = drawStandard(n, p, src)
		out := DeliveryOutcome{Delivered: last, Attempts: attempt}
		if out.Count() >= k {
			out.WasConditioned = true
			return out
		}
	}
	logrus.Debugf("at-least-%d delivery exhausted %d attempts at p=%v; using unconditioned draw", k, limit, p)
	return DeliveryOutcome{Delivered: last, Attempts: limit}
}

// ConditioningAttemptCap returns the rejection-sampling attempt budget for
// reaching at least k successes among n(n-1) Bernoulli(p) messages.
//
// With tail = P(X ≥ k), X ~ Binomial(n(n-1), p), the cap is the smallest
// attempt count whose success probability reaches 99.9%, clamped to
// [1, MaxConditioningAttempts]. An impossible event (tail = 0) gets one attempt.
func ConditioningAttemptCap(n int, p float64, k int) int {
	edges := n * (n - 1)
	if k <= 0 || k > edges || p <= 0 || p >= 1 {
		return 1
	}
	tail := distuv.Binomial{N: float64(edges), P: p}.Survival(float64(k - 1))
	if tail <= 0 || tail >= 1 || math.IsNaN(tail) {
		return 1
	}
	attempts := math.Ceil(math.Log1p(-conditioningConfidence) / math.Log1p(-tail))
	if attempts < 1 {
		return 1
	}
	if attempts > MaxConditioningAttempts {
		return MaxConditioningAttempts
	}
	return int(attempts)
}
