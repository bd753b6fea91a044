package theory

import "math"

// Courteous is the single-round expected discrepancy of COURTEOUS with three
// processes from a non-unanimous binary start under standard delivery.
func Courteous(p float64) float64 {
	return 1 - 2*p + 4*p*p - 4*p*p*p + p*p*p*p
}

// CourteousCorrelated is the single-round expected discrepancy of the
// courteous rule with three processes under correlated delivery: q³ + 2p²q.
func CourteousCorrelated(p float64) float64 {
	q := 1 - p
	return q*q*q + 2*p*p*q
}

// ThreeProcessAMP is the single-round expected discrepancy of AMP(a) with
// three processes, zeros of which start at 0 and the rest at 1.
//
// With one process at 1 (zeros=2) the lone 1 moves to a unless both zeros
// miss it (q²), and the zeros both move only if both hear it (p²):
// E = (1-a)·q² + a·(1-p²). The mirrored start swaps a and 1-a.
func ThreeProcessAMP(p, a float64, zeros int) float64 {
	q := 1 - p
	switch zeros {
	case 2:
		return (1-a)*q*q + a*(1-p*p)
	case 1:
		return a*q*q + (1-a)*(1-p*p)
	default:
		return 0
	}
}

// inclusionExclusion returns the general-n terms for m zero-valued processes:
//
//	A = (1-q^(n-m))^m   every zero hears from some one
//	B = (1-q^m)^(n-m)   every one hears from some zero
//	C = q^(m(n-m))      no message crosses in one direction
func inclusionExclusion(q float64, n, m int) (a, b, c float64) {
	a = math.Pow(1-math.Pow(q, float64(n-m)), float64(m))
	b = math.Pow(1-math.Pow(q, float64(m)), float64(n-m))
	c = math.Pow(q, float64(m*(n-m)))
	return a, b, c
}

// GeneralAMP combines the inclusion-exclusion terms for AMP with meeting point
// mp: discrepancy 1 if both sides keep a holdout, 1-mp if only the zeros all
// moved, mp if only the ones all moved, 0 if everyone moved.
func GeneralAMP(a, b, mp float64) float64 {
	return (1-a)*(1-b) + a*(1-b)*(1-mp) + (1-a)*b*mp
}

// GeneralFV approximates FV: agreement needs one side to convert entirely
// while nothing flows the other way, giving 1 - C·(A+B).
func GeneralFV(a, b, c float64) float64 {
	return 1 - c*(a+b)
}

// GuaranteedAMP is the single-round expected discrepancy of two-process AMP
// when an empty round is repaired by forcing one random pair: pq + q²/2.
// A lone delivered edge leaves distance a or 1-a with equal probability, so
// the meeting point cancels, and the same expression is the per-round chance
// that a split survives.
func GuaranteedAMP(p float64) float64 {
	q := 1 - p
	return p*q + q*q/2
}

// GuaranteedFV is the single-round expected discrepancy of two-process FV
// under forced-pair delivery: only a full swap (p²) keeps the split.
func GuaranteedFV(p float64) float64 {
	return p * p
}

// ConditionedAMP is E[D | ≥1 message] for two-process AMP: pq/(1-q²), capped
// at ConditionedMaximum.
func ConditionedAMP(p float64) float64 {
	q := 1 - p
	return math.Min(p*q/(1-q*q), ConditionedMaximum)
}

// ConditionedFV is E[D | ≥1 message] for two-process FV: p²/(1-q²), capped
// at ConditionedMaximum.
func ConditionedFV(p float64) float64 {
	q := 1 - p
	return math.Min(p*p/(1-q*q), ConditionedMaximum)
}
