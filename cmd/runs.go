package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/agreement-sim/sim/search"
	"github.com/inference-sim/agreement-sim/sim/store"
)

var runID string // Stored run to print; empty lists all runs

// runsCmd reads search reports archived with search --db
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived search runs, or print one run's results",
	Run: func(cmd *cobra.Command, args []string) {
		if dbPath == "" {
			logrus.Fatalf("--db is required")
		}
		out, err := readArchive(cmd.Context(), dbPath, runID)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := writeJSON(outputPath, out); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// archiveReport appends a search report to the SQLite archive at path.
func archiveReport(ctx context.Context, path string, report search.Report) error {
	s, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer s.Close()
	if err := s.SaveReport(ctx, report); err != nil {
		return err
	}
	logrus.Infof("Run %s archived to %s", report.RunID, path)
	return nil
}

// readArchive returns every stored run, or the results of one run when id is set.
func readArchive(ctx context.Context, path, id string) (any, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer s.Close()
	if id == "" {
		return s.Runs(ctx)
	}
	return s.Results(ctx, id)
}

func init() {
	runsCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database written by search --db")
	runsCmd.Flags().StringVar(&runID, "run-id", "", "Print the results of this run instead of the run list")
}
