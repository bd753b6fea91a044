package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Persistent CLI flags shared by every subcommand
	seed       int64  // Master seed for all random draws
	logLevel   string // Log verbosity level
	configPath string // Optional YAML config file
	outputPath string // JSON output file; empty = stdout
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "agreement-sim",
	Short: "Stochastic simulator for approximate agreement over unreliable channels",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadFileConfig returns the --config file, or nil when none was given.
func loadFileConfig() *FileConfig {
	if configPath == "" {
		return nil
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	logrus.Infof("Loaded config %s", configPath)
	return cfg
}

// resolveSeed applies the precedence --seed flag > config file > flag default.
func resolveSeed(cmd *cobra.Command, fc *FileConfig) int64 {
	if fc != nil && fc.Seed != nil && !cmd.Flags().Changed("seed") {
		return *fc.Seed
	}
	return seed
}

// init sets up persistent flags and subcommands
func init() {
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "Seed for all random draws")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file; explicitly set flags override its values")
	rootCmd.PersistentFlags().StringVar(&outputPath, "output", "", "Write JSON results to this file instead of stdout")

	rootCmd.AddCommand(runCmd, statsCmd, theoryCmd, searchCmd, runsCmd)
}
