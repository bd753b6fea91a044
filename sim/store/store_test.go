package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/agreement-sim/sim"
	"github.com/inference-sim/agreement-sim/sim/search"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleReport(runID string) search.Report {
	round := 1.5
	return search.Report{
		RunID:       runID,
		Objective:   search.ObjectiveMode,
		Target:      0,
		Enumeration: search.EnumerationInfo{Total: 64, Cap: 2, Evaluated: 2, Truncated: true},
		Results: []search.Result{
			{
				Policy:            "amp(0.5) > fv",
				Steps:             []sim.AlgorithmSpec{sim.AMP(0.5), sim.FV()},
				P:                 0.5,
				Delivery:          sim.AtLeastK(2),
				Repetitions:       10,
				Successes:         4,
				SuccessRate:       0.4,
				AvgDiscrepancy:    0.25,
				AvgConsensusRound: &round,
			},
			{
				Policy:         "min > min",
				Steps:          []sim.AlgorithmSpec{sim.Min(), sim.Min()},
				P:              0.1,
				Delivery:       sim.Standard(),
				Repetitions:    10,
				AvgDiscrepancy: 0.9,
			},
		},
	}
}

func TestStore_SaveReport_ResultsRoundTripInOrder(t *testing.T) {
	// GIVEN an empty store and a report with two results
	s := openTestStore(t)
	ctx := context.Background()
	report := sampleReport("run-1")

	// WHEN the report is saved and read back
	require.NoError(t, s.SaveReport(ctx, report))
	got, err := s.Results(ctx, "run-1")

	// THEN the results come back unchanged and in report order
	require.NoError(t, err)
	assert.Equal(t, report.Results, got)
}

func TestStore_Runs_ListsSavedRuns(t *testing.T) {
	// GIVEN two saved runs
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveReport(ctx, sampleReport("run-a")))
	require.NoError(t, s.SaveReport(ctx, sampleReport("run-b")))

	// WHEN runs are listed
	runs, err := s.Runs(ctx)

	// THEN both appear in insertion order with their enumeration info
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].RunID)
	assert.Equal(t, "run-b", runs[1].RunID)
	assert.Equal(t, search.ObjectiveMode, runs[0].Objective)
	assert.Equal(t, search.EnumerationInfo{Total: 64, Cap: 2, Evaluated: 2, Truncated: true}, runs[0].Enumeration)
	assert.Equal(t, 2, runs[0].Units)
	assert.False(t, runs[0].CreatedAt.IsZero())
}

func TestStore_SaveReport_DuplicateRunRejected(t *testing.T) {
	// GIVEN a saved run
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveReport(ctx, sampleReport("run-1")))

	// WHEN the same run is saved again
	err := s.SaveReport(ctx, sampleReport("run-1"))

	// THEN it fails and the stored results are untouched
	require.Error(t, err)
	got, err := s.Results(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_Results_UnknownRunEmpty(t *testing.T) {
	// GIVEN an empty store
	s := openTestStore(t)

	// WHEN an unknown run is queried
	got, err := s.Results(context.Background(), "nope")

	// THEN the result is empty, not an error
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Reopen_KeepsData(t *testing.T) {
	// GIVEN a run saved to a database file that is then closed
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveReport(context.Background(), sampleReport("run-1")))
	require.NoError(t, s.Close())

	// WHEN the file is reopened
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(context.Background())

	// THEN the run is still there
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
}
