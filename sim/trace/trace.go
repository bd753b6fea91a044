package trace

// SearchTrace collects unit records during a policy search.
type SearchTrace struct {
	RunID string       `json:"runId"`
	Units []UnitRecord `json:"units"`
}

// NewSearchTrace creates a SearchTrace ready for recording.
func NewSearchTrace(runID string) *SearchTrace {
	return &SearchTrace{
		RunID: runID,
		Units: make([]UnitRecord, 0),
	}
}

// Record appends a unit record.
func (st *SearchTrace) Record(record UnitRecord) {
	st.Units = append(st.Units, record)
}
