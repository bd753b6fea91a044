package trace

import "sort"

// BestPolicy is the highest-scoring policy for one (delivery, p) point.
type BestPolicy struct {
	Delivery       string  `json:"delivery"`
	P              float64 `json:"p"`
	Policy         string  `json:"policy"`
	SuccessRate    float64 `json:"successRate"`
	AvgDiscrepancy float64 `json:"avgDiscrepancy"`
}

// TraceSummary aggregates statistics from a SearchTrace.
type TraceSummary struct {
	TotalUnits      int          `json:"totalUnits"`
	UniquePolicies  int          `json:"uniquePolicies"`
	MeanSuccessRate float64      `json:"meanSuccessRate"`
	MaxSuccessRate  float64      `json:"maxSuccessRate"`
	Best            []BestPolicy `json:"best"`
}

type point struct {
	delivery string
	p        float64
}

// Summarize computes aggregate statistics from a SearchTrace.
// Best holds one entry per (delivery, p), ordered by delivery then p. A higher
// success rate wins, then a lower average discrepancy, then the earlier record.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SearchTrace) *TraceSummary {
	summary := &TraceSummary{Best: make([]BestPolicy, 0)}
	if st == nil || len(st.Units) == 0 {
		return summary
	}

	summary.TotalUnits = len(st.Units)
	policies := make(map[string]bool)
	best := make(map[point]BestPolicy)
	total := 0.0
	for _, u := range st.Units {
		policies[u.Policy] = true
		total += u.SuccessRate
		if u.SuccessRate > summary.MaxSuccessRate {
			summary.MaxSuccessRate = u.SuccessRate
		}
		key := point{delivery: u.Delivery, p: u.P}
		cur, seen := best[key]
		if !seen || better(u, cur) {
			best[key] = BestPolicy{
				Delivery:       u.Delivery,
				P:              u.P,
				Policy:         u.Policy,
				SuccessRate:    u.SuccessRate,
				AvgDiscrepancy: u.AvgDiscrepancy,
			}
		}
	}
	summary.UniquePolicies = len(policies)
	summary.MeanSuccessRate = total / float64(len(st.Units))

	for _, b := range best {
		summary.Best = append(summary.Best, b)
	}
	sort.Slice(summary.Best, func(i, j int) bool {
		if summary.Best[i].Delivery != summary.Best[j].Delivery {
			return summary.Best[i].Delivery < summary.Best[j].Delivery
		}
		return summary.Best[i].P < summary.Best[j].P
	})
	return summary
}

func better(u UnitRecord, cur BestPolicy) bool {
	if u.SuccessRate != cur.SuccessRate {
		return u.SuccessRate > cur.SuccessRate
	}
	return u.AvgDiscrepancy < cur.AvgDiscrepancy
}
