// Package memory implements the organism's capacity-bounded episodic store.
// Entries are immutable compressed snapshots with integrity checksums,
// recalled by entropy-weighted sampling by default, and pruned by policy.
// See design doc Section 6.
package memory

import (
	"crypto/sha256"
	"errors"
	"math"
	"time"

	"github.com/talgya/animus/internal/coupling"
	"github.com/talgya/animus/internal/entropy"
	"github.com/talgya/animus/internal/manifold"
	"github.com/talgya/animus/internal/state"
)

// Retrieval errors. Corrupt data never leaves the store.
var (
	ErrUnavailable = errors.New("memory: entry unavailable")
	ErrCorrupt     = errors.New("memory: entry failed integrity check")
)

// Weight blend: how much the distance novelty of a new entry counts against
// the influence reading it was stored under.
const (
	weightDistanceShare  = 0.6
	weightInfluenceShare = 0.4
)

// entry is one stored snapshot. The vec field is the quantized working
// copy used for distance math; it matches the compressed bytes exactly.
type entry struct {
	step       uint64
	storedAt   time.Time
	weight     float64
	compressed []byte
	sum        [sha256.Size]byte
	vec        []float64
}

// Snapshot is what retrieval hands back: the decompressed state vector
// plus entry metadata.
type Snapshot struct {
	Step     uint64    `json:"step"`
	StoredAt time.Time `json:"stored_at"`
	Weight   float64   `json:"weight"`
	Vector   []float64 `json:"vector"`
}

// Stats summarizes store activity for metrics reporting.
type Stats struct {
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Stored    uint64 `json:"stored"`
	Evicted   uint64 `json:"evicted"`
	Reads     uint64 `json:"reads"`
	Corrupted uint64 `json:"corrupted"`
}

// Store is the bounded episodic memory. Entries are appended, never
// mutated, and evicted oldest-first on overflow. Not safe for concurrent
// use; one organism owns one store.
type Store struct {
	capacity int
	entries  []entry
	src      *entropy.Source

	stored    uint64
	evicted   uint64
	reads     uint64
	corrupted uint64
}

// NewStore creates a store holding at most capacity entries. Sampling draws
// randomness from src so recall is part of the deterministic trajectory.
func NewStore(capacity int, src *entropy.Source) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{capacity: capacity, src: src}
}

// Store snapshots the state at the given step. The entry weight blends the
// snapshot's distance novelty against the influence it was stored under, so
// later recall prefers genuinely informative moments. Oldest entries are
// evicted once capacity is exceeded.
func (s *Store) Store(c state.Creative, step uint64, inf coupling.Influence) {
	compressed := state.Compress(c.Vector())
	vec := state.Decompress(compressed)

	novelty := 1.0
	if _, d, ok := s.Nearest(vec); ok {
		novelty = 1 - math.Exp(-d)
	}
	weight := manifold.Clamp(
		weightDistanceShare*novelty+weightInfluenceShare*(0.5*inf.Novelty+0.5*inf.Coherence), 0, 1)

	s.entries = append(s.entries, entry{
		step:       step,
		storedAt:   time.Now(),
		weight:     weight,
		compressed: compressed,
		sum:        state.Checksum(compressed),
		vec:        vec,
	})
	s.stored++
	for len(s.entries) > s.capacity {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:len(s.entries)-1]
		s.evicted++
	}
}

// Retrieve returns the entry at index after verifying its checksum. A
// mismatch counts as corruption and returns ErrCorrupt instead of data.
func (s *Store) Retrieve(index int) (Snapshot, error) {
	if index < 0 || index >= len(s.entries) {
		return Snapshot{}, ErrUnavailable
	}
	return s.checked(index)
}

// checked verifies and snapshots one entry, tracking read/corruption counts.
func (s *Store) checked(index int) (Snapshot, error) {
	s.reads++
	e := s.entries[index]
	if state.Checksum(e.compressed) != e.sum {
		s.corrupted++
		return Snapshot{}, ErrCorrupt
	}
	return Snapshot{
		Step:     e.step,
		StoredAt: e.storedAt,
		Weight:   e.weight,
		Vector:   state.Decompress(e.compressed),
	}, nil
}

// Nearest returns the stored vector closest to v and its distance. The
// returned slice is the store's working copy; callers must not modify it.
// ok is false while the store is empty.
func (s *Store) Nearest(v []float64) ([]float64, float64, bool) {
	best := -1
	bestD := 0.0
	for i := range s.entries {
		if len(s.entries[i].vec) != len(v) {
			continue
		}
		d := manifold.Distance(v, s.entries[i].vec)
		if best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return nil, 0, false
	}
	return s.entries[best].vec, bestD, true
}

// Centroid returns the mean stored vector. ok is false while the store is
// empty.
func (s *Store) Centroid() ([]float64, bool) {
	if len(s.entries) == 0 {
		return nil, false
	}
	out := make([]float64, len(s.entries[0].vec))
	count := 0
	for i := range s.entries {
		if len(s.entries[i].vec) != len(out) {
			continue
		}
		for j, x := range s.entries[i].vec {
			out[j] += x
		}
		count++
	}
	if count == 0 {
		return nil, false
	}
	inv := 1.0 / float64(count)
	for j := range out {
		out[j] *= inv
	}
	return out, true
}

// Health scores the store for the monitor: integrity errors hurt, and a
// full store leaves less room to absorb new experience.
func (s *Store) Health() float64 {
	errRate := 0.0
	if s.reads > 0 {
		errRate = float64(s.corrupted) / float64(s.reads)
	}
	util := float64(len(s.entries)) / float64(s.capacity)
	return (1 - errRate) * (0.5 + 0.5*(1-util))
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Capacity returns the maximum number of entries.
func (s *Store) Capacity() int {
	return s.capacity
}

// Stats returns activity counters for metrics reporting.
func (s *Store) Stats() Stats {
	return Stats{
		Size:      len(s.entries),
		Capacity:  s.capacity,
		Stored:    s.stored,
		Evicted:   s.evicted,
		Reads:     s.reads,
		Corrupted: s.corrupted,
	}
}
