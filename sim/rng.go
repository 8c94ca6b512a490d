package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey seeds every random draw of a run. Two runs with the same key
// and problem produce bit-identical fields.
type SimulationKey int64

// NewSimulationKey wraps a seed.
func NewSimulationKey(seed int64) SimulationKey { return SimulationKey(seed) }

// SubsystemInitial is the stream for initial-condition draws not tied to a
// single buffer. It is seeded with the key itself.
const SubsystemInitial = "initial"

// SubsystemBuffer names the stream that seeds the initial condition of one
// buffer. Declaring another noisy buffer never shifts this buffer's samples.
func SubsystemBuffer(name string) string { return "buffer_" + name }

// PartitionedRNG hands out one independent *rand.Rand per named stream.
// Streams other than SubsystemInitial are seeded with key XOR FNV-1a(name).
// Not safe for concurrent use.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates an empty set of streams for key.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream for name, creating it on first use.
// Repeated calls return the same instance, so draws continue the sequence.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	r, ok := p.streams[name]
	if !ok {
		r = rand.New(rand.NewSource(p.seedFor(name)))
		p.streams[name] = r
	}
	return r
}

// Key returns the run key.
func (p *PartitionedRNG) Key() SimulationKey { return p.key }

func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemInitial {
		return int64(p.key)
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(p.key) ^ int64(h.Sum64())
}
