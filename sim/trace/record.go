// Package trace provides per-unit recording for policy-search analysis.
// This package has no dependencies on sim/ or sim/search/; it stores pure data types.
package trace

// UnitRecord captures the outcome of one (policy, p, delivery) search unit.
type UnitRecord struct {
	Unit              int      `json:"unit"`
	Policy            string   `json:"policy"`
	P                 float64  `json:"p"`
	Delivery          string   `json:"delivery"`
	Repetitions       int      `json:"repetitions"`
	Successes         int      `json:"successes"`
	SuccessRate       float64  `json:"successRate"`
	AvgDiscrepancy    float64  `json:"avgDiscrepancy"`
	AvgConsensusRound *float64 `json:"avgConsensusRound"` // nil when no repetition succeeded
}
