// Package store persists policy-search reports in SQLite so runs can be
// listed and compared after the process exits.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/inference-sim/agreement-sim/sim"
	"github.com/inference-sim/agreement-sim/sim/search"
)

// Store is a SQLite-backed archive of search reports.
type Store struct {
	db *sql.DB
}

// RunInfo describes one stored search run.
type RunInfo struct {
	RunID       string                 `json:"runId"`
	Objective   search.Objective       `json:"objective"`
	Target      float64                `json:"target"`
	Enumeration search.EnumerationInfo `json:"enumeration"`
	Units       int                    `json:"units"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens the database at path, creating it and its schema if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport stores a report and all of its results in one transaction.
// Saving the same run twice fails.
func (s *Store) SaveReport(ctx context.Context, r search.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	e := r.Enumeration
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, objective, target, total, cap, evaluated, truncated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, string(r.Objective), r.Target, e.Total, e.Cap, e.Evaluated, e.Truncated,
		time.Now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, idx, policy, steps, p, delivery, repetitions, successes,
			success_rate, avg_discrepancy, avg_consensus_round)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, res := range r.Results {
		steps, err := json.Marshal(res.Steps)
		if err != nil {
			return fmt.Errorf("failed to marshal steps: %w", err)
		}
		delivery, err := json.Marshal(res.Delivery)
		if err != nil {
			return fmt.Errorf("failed to marshal delivery: %w", err)
		}
		var round sql.NullFloat64
		if res.AvgConsensusRound != nil {
			round = sql.NullFloat64{Float64: *res.AvgConsensusRound, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.RunID, i, res.Policy, string(steps), res.P, string(delivery),
			res.Repetitions, res.Successes, res.SuccessRate, res.AvgDiscrepancy, round); err != nil {
			return fmt.Errorf("failed to insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", r.RunID, err)
	}
	logrus.Debugf("stored run %s with %d results", r.RunID, len(r.Results))
	return nil
}

// Runs lists stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.objective, r.target, r.total, r.cap, r.evaluated, r.truncated, r.created_at,
			(SELECT COUNT(*) FROM results WHERE run_id = r.id)
		FROM runs r
		ORDER BY r.created_at, r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		var (
			info      RunInfo
			objective string
			createdAt string
		)
		e := &info.Enumeration
		if err := rows.Scan(&info.RunID, &objective, &info.Target, &e.Total, &e.Cap, &e.Evaluated,
			&e.Truncated, &createdAt, &info.Units); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.Objective = search.Objective(objective)
		if info.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("run %s: bad created_at %q: %w", info.RunID, createdAt, err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// Results returns a run's results in report order. An unknown run yields
// an empty slice.
func (s *Store) Results(ctx context.Context, runID string) ([]search.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT policy, steps, p, delivery, repetitions, successes, success_rate, avg_discrepancy,
			avg_consensus_round
		FROM results WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := []search.Result{}
	for rows.Next() {
		var (
			res      search.Result
			steps    string
			delivery string
			round    sql.NullFloat64
		)
		if err := rows.Scan(&res.Policy, &steps, &res.P, &delivery, &res.Repetitions, &res.Successes,
			&res.SuccessRate, &res.AvgDiscrepancy, &round); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(steps), &res.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
		var d sim.Delivery
		if err := json.Unmarshal([]byte(delivery), &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal delivery: %w", err)
		}
		res.Delivery = d
		if round.Valid {
			v := round.Float64
			res.AvgConsensusRound = &v
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
