package sim

import (
	"fmt"
	"strings"
)

// Kind tags a base update algorithm.
type Kind int

const (
	KindAMP Kind = iota
	KindRecursiveAMP
	KindFV
	KindMin
	KindLeader
	KindCourteous
	KindCourteousCorrelated
	KindSelfish
	KindCyclic
	KindBiased0
)

var kindNames = [...]string{
	KindAMP:                 "amp",
	KindRecursiveAMP:        "recursive-amp",
	KindFV:                  "fv",
	KindMin:                 "min",
	KindLeader:              "leader",
	KindCourteous:           "courteous",
	KindCourteousCorrelated: "courteous-correlated",
	KindSelfish:             "selfish",
	KindCyclic:              "cyclic",
	KindBiased0:             "biased0",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts the canonical names case-insensitively; underscores are
// treated as hyphens so "COURTEOUS_CORRELATED" parses.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for i, name := range kindNames {
		if name == norm {
			return Kind(i), nil
		}
	}
	return 0, invalidf("algorithm.kind", "unknown algorithm %q; valid: %s", s, strings.Join(kindNames[:], ", "))
}

// MarshalText implements encoding.TextMarshaler (JSON and YAML).
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (JSON and YAML).
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ThreeProcessOnly reports kinds whose decision table is defined for n=3.
func (k Kind) ThreeProcessOnly() bool {
	return k == KindSelfish || k == KindCyclic || k == KindBiased0
}

// UsesKnownSet reports kinds that accumulate a KnownSet.
func (k Kind) UsesKnownSet() bool {
	return k == KindMin || k == KindRecursiveAMP
}

// AlgorithmSpec is a parameterized instance of a base algorithm.
type AlgorithmSpec struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// MeetingPoint is AMP's absolute target, broadcast across coordinates in vector mode.
	MeetingPoint float64 `json:"meetingPoint,omitempty" yaml:"meeting_point,omitempty"`
	// MeetingVector overrides MeetingPoint in vector mode when set.
	MeetingVector []float64 `json:"meetingVector,omitempty" yaml:"meeting_vector,omitempty"`
	// Alpha is Recursive AMP's interpolation weight inside the hull.
	Alpha float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	// Leader is LEADER's process index.
	Leader int `json:"leader,omitempty" yaml:"leader,omitempty"`
}

func AMP(meetingPoint float64) AlgorithmSpec {
	return AlgorithmSpec{Kind: KindAMP, MeetingPoint: meetingPoint}
}

func RecursiveAMP(alpha float64) AlgorithmSpec {
	return AlgorithmSpec{Kind: KindRecursiveAMP, Alpha: alpha}
}

func FV() AlgorithmSpec { return AlgorithmSpec{Kind: KindFV} }

func Min() AlgorithmSpec { return AlgorithmSpec{Kind: KindMin} }

func Leader(index int) AlgorithmSpec {
	return AlgorithmSpec{Kind: KindLeader, Leader: index}
}

// Of returns the parameterless instance of k.
func Of(k Kind) AlgorithmSpec { return AlgorithmSpec{Kind: k} }

// Label renders a compact identifier, e.g. "amp(0.5)" or "leader(1)".
func (s AlgorithmSpec) Label() string {
	switch s.Kind {
	case KindAMP:
		if len(s.MeetingVector) > 0 {
			return fmt.Sprintf("amp(%v)", s.MeetingVector)
		}
		return fmt.Sprintf("amp(%g)", s.MeetingPoint)
	case KindRecursiveAMP:
		return fmt.Sprintf("recursive-amp(%g)", s.Alpha)
	case KindLeader:
		return fmt.Sprintf("leader(%d)", s.Leader)
	default:
		return s.Kind.String()
	}
}

// Validate checks the instance against process count n and value dimension dims.
func (s AlgorithmSpec) Validate(n, dims int) error {
	if s.Kind < 0 || int(s.Kind) >= len(kindNames) {
		return invalidf("algorithm.kind", "unknown kind %d", int(s.Kind))
	}
	if s.Kind.ThreeProcessOnly() && n != 3 {
		return invalidf("algorithm.kind", "%s is defined only for 3 processes, got n=%d", s.Kind, n)
	}
	switch s.Kind {
	case KindAMP:
		if err := validateProbability("algorithm.meeting_point", s.MeetingPoint); err != nil {
			return err
		}
		if len(s.MeetingVector) > 0 {
			if len(s.MeetingVector) != dims {
				return invalidf("algorithm.meeting_vector", "has %d coordinates, values have %d", len(s.MeetingVector), dims)
			}
			for i, c := range s.MeetingVector {
				if err := validateProbability(fmt.Sprintf("algorithm.meeting_vector[%d]", i), c); err != nil {
					return err
				}
			}
		}
	case KindRecursiveAMP:
		if err := validateProbability("algorithm.alpha", s.Alpha); err != nil {
			return err
		}
	case KindLeader:
		if s.Leader < 0 || s.Leader >= n {
			return invalidf("algorithm.leader", "must be in [0,%d), got %d", n, s.Leader)
		}
	}
	return nil
}

// meetingValue returns AMP's target as a value of dimension dims.
func meetingValue[V Value[V]](s AlgorithmSpec, dims int) V {
	if len(s.MeetingVector) == dims && dims > 0 {
		var zero V
		return zero.FromCoords(s.MeetingVector)
	}
	return Broadcast[V](s.MeetingPoint, dims)
}
