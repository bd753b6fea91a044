package trace

import (
	"testing"
)

func TestSearchTrace_Record_AppendsInOrder(t *testing.T) {
	// GIVEN an empty trace
	st := NewSearchTrace("run-1")

	// WHEN two unit records are recorded
	st.Record(UnitRecord{Unit: 0, Policy: "amp(0.5)", P: 0.3, Delivery: "standard"})
	st.Record(UnitRecord{Unit: 1, Policy: "fv", P: 0.3, Delivery: "standard"})

	// THEN both are kept in recording order under the run ID
	if st.RunID != "run-1" {
		t.Errorf("expected run ID run-1, got %s", st.RunID)
	}
	if len(st.Units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(st.Units))
	}
	if st.Units[0].Policy != "amp(0.5)" || st.Units[1].Policy != "fv" {
		t.Errorf("unexpected order: %q, %q", st.Units[0].Policy, st.Units[1].Policy)
	}
}

func TestNewSearchTrace_EmptyUnitsNotNil(t *testing.T) {
	// GIVEN a new trace
	st := NewSearchTrace("")

	// THEN Units is an empty, non-nil slice (serializes as [] not null)
	if st.Units == nil {
		t.Error("expected non-nil Units")
	}
}
