// Package sim provides the round-based simulation engine for approximate
// agreement over unreliable channels.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - value.go: Scalar and Vector process values and the equality policy
//   - delivery.go: delivery models (standard, guaranteed, correlated, at-least-k)
//   - update.go: the update rules behind each algorithm Kind
//   - round.go: one synchronous round (deliver, collect, update, measure)
//   - experiment.go: multi-round runs and the ExperimentHistory
//
// # Architecture
//
// The engine is generic over the process value type: Scalar and Vector both
// satisfy Value, and a single round simulator serves both. Cross-round state
// (original values and per-process known sets) lives in an explicit State that
// each round consumes and returns.
//
// Sub-packages build on the engine:
//   - sim/theory/: closed-form expected-discrepancy formulas (no randomness)
//   - sim/stats/: repeated experiments and summary statistics
//   - sim/search/: enumeration and scoring of round-by-round policies
//   - sim/trace/: per-unit search records and summaries
//   - sim/initial/: initial-configuration specs
//
// # Randomness
//
// All draws come from a Source (satisfied by *rand.Rand). PartitionedRNG
// derives isolated, reproducible streams per subsystem from one seed.
package sim
