package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Source is the randomness consumed by the engine. *rand.Rand satisfies it.
// Tests inject scripted sources to force specific delivery outcomes.
type Source interface {
	// Float64 returns a draw in [0,1). A message is delivered iff draw < p.
	Float64() float64
	// Intn returns a draw in [0,n).
	Intn(n int) int
}

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemDelivery is the RNG subsystem for message delivery draws.
	// Uses master seed directly so --seed maps to a plain rand.NewSource(seed).
	SubsystemDelivery = "delivery"

	// SubsystemInitial is the RNG subsystem for random initial configurations.
	SubsystemInitial = "initial"
)

// SubsystemSearchUnit returns the subsystem name for policy-search unit N.
// Each (policy, p, delivery) unit draws from its own stream, so results do not
// depend on which worker evaluates which unit.
func SubsystemSearchUnit(id int) string {
	return fmt.Sprintf("search_unit_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemDelivery: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemDelivery {
		derivedSeed = int64(p.key)
	} else {
		derivedSeed = int64(p.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
