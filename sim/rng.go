package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible simulation run.
// Two runs with the same key and configuration produce identical series.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemWeather is the RNG subsystem for the weather generator.
	// Uses the master seed directly so --seed maps straight onto the series.
	SubsystemWeather = "weather"
)

// SubsystemRealization returns the subsystem name for Monte Carlo realization n.
func SubsystemRealization(n int) string {
	return fmt.Sprintf("realization_%d", n)
}

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation:
//   - SubsystemWeather: masterSeed
//   - anything else:    masterSeed XOR fnv1a64(name)
//
// Not thread-safe. Each realization in a batch owns its own PartitionedRNG.
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
// The same name always returns the same cached *rand.Rand. Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.DeriveSeed(name)))
	p.subsystems[name] = rng
	return rng
}

// DeriveSeed returns the seed ForSubsystem uses for name.
func (p *PartitionedRNG) DeriveSeed(name string) int64 {
	if name == SubsystemWeather {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
