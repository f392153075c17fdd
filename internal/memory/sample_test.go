package memory

import (
	"testing"

	"github.com/talgya/animus/internal/entropy"
	"github.com/talgya/animus/internal/state"
)

func fill(s *Store, n int) {
	for i := 1; i <= n; i++ {
		s.Store(makeState(float64(i)*0.1), uint64(i), neutral())
	}
}

func TestSampleReturnsExactCount(t *testing.T) {
	strategies := []SampleStrategy{SampleEntropyWeighted, SampleUniform, SampleRecent, SampleDiverse}
	for _, strat := range strategies {
		s := NewStore(100, entropy.NewSource(42))
		fill(s, 50)
		got := s.Sample(10, strat)
		if len(got) != 10 {
			t.Fatalf("strategy %d: sampled %d entries, want 10", strat, len(got))
		}
		seen := map[uint64]bool{}
		for _, snap := range got {
			if seen[snap.Step] {
				t.Fatalf("strategy %d: step %d sampled twice", strat, snap.Step)
			}
			seen[snap.Step] = true
		}
	}
}

func TestSampleFullDimensionality(t *testing.T) {
	dims := state.DefaultDims()
	src := entropy.NewSource(7)
	s := NewStore(100, src)
	for i := 1; i <= 50; i++ {
		s.Store(state.RandomCreative(src, dims), uint64(i), neutral())
	}

	got := s.Sample(10, SampleEntropyWeighted)
	if len(got) != 10 {
		t.Fatalf("sampled %d entries, want 10", len(got))
	}
	seen := map[uint64]bool{}
	for _, snap := range got {
		if seen[snap.Step] {
			t.Fatalf("step %d sampled twice", snap.Step)
		}
		seen[snap.Step] = true
		if len(snap.Vector) != dims.Total() {
			t.Fatalf("snapshot vector has %d dims, want %d", len(snap.Vector), dims.Total())
		}
	}
}

func TestSampleMoreThanStoredReturnsAll(t *testing.T) {
	s := NewStore(100, entropy.NewSource(42))
	fill(s, 4)
	if got := s.Sample(10, SampleUniform); len(got) != 4 {
		t.Fatalf("sampled %d entries, want all 4", len(got))
	}
}

func TestSampleEntropyWeightedPrefersHeavyEntries(t *testing.T) {
	s := NewStore(20, entropy.NewSource(42))
	fill(s, 10)
	for i := range s.entries {
		s.entries[i].weight = 0.01
	}
	s.entries[0].weight = 0.9
	heavyStep := s.entries[0].step

	hits := 0
	for i := 0; i < 200; i++ {
		got := s.Sample(1, SampleEntropyWeighted)
		if len(got) == 1 && got[0].Step == heavyStep {
			hits++
		}
	}
	// Expected hit rate is ~0.91; anything near uniform (~0.1) is a failure.
	if hits < 100 {
		t.Fatalf("heavy entry sampled %d/200 times, want a clear majority", hits)
	}
}

func TestSampleRecentNewestFirst(t *testing.T) {
	s := NewStore(20, entropy.NewSource(42))
	fill(s, 5)
	got := s.Sample(3, SampleRecent)
	want := []uint64{5, 4, 3}
	for i, snap := range got {
		if snap.Step != want[i] {
			t.Fatalf("recent sample %d = step %d, want %d", i, snap.Step, want[i])
		}
	}
}

func TestSampleDiverseFindsOutlier(t *testing.T) {
	s := NewStore(20, entropy.NewSource(42))
	for i := 1; i <= 5; i++ {
		s.Store(makeState(1+float64(i)*0.01), uint64(i), neutral())
	}
	s.Store(makeState(8), 99, neutral())
	// Seed selection starts from the heaviest entry; make that the cluster.
	for i := range s.entries {
		s.entries[i].weight = 0.9
	}
	s.entries[5].weight = 0.1

	got := s.Sample(2, SampleDiverse)
	foundOutlier := false
	for _, snap := range got {
		if snap.Step == 99 {
			foundOutlier = true
		}
	}
	if !foundOutlier {
		t.Fatal("diverse sampling missed the outlier")
	}
}

func TestSampleSkipsCorruptEntries(t *testing.T) {
	s := NewStore(20, entropy.NewSource(42))
	fill(s, 3)
	s.entries[1].compressed[0] ^= 0xFF
	got := s.Sample(3, SampleRecent)
	if len(got) != 2 {
		t.Fatalf("sampled %d entries, want 2 after skipping the corrupt one", len(got))
	}
}

func TestSampleDeterministic(t *testing.T) {
	build := func() *Store {
		s := NewStore(50, entropy.NewSource(42))
		fill(s, 30)
		return s
	}
	a, b := build(), build()
	for i := 0; i < 10; i++ {
		sa := a.Sample(5, SampleEntropyWeighted)
		sb := b.Sample(5, SampleEntropyWeighted)
		if len(sa) != len(sb) {
			t.Fatalf("draw %d: lengths differ", i)
		}
		for j := range sa {
			if sa[j].Step != sb[j].Step {
				t.Fatalf("draw %d: step %d vs %d", i, sa[j].Step, sb[j].Step)
			}
		}
	}
}

func TestPruneOldest(t *testing.T) {
	s := NewStore(20, entropy.NewSource(42))
	fill(s, 10)
	removed := s.Prune(PruneOldest, 0.3)
	if removed != 3 || s.Len() != 7 {
		t.Fatalf("removed %d, len %d; want 3 removed, 7 left", removed, s.Len())
	}
	snap, err := s.Retrieve(0)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if snap.Step != 4 {
		t.Fatalf("oldest surviving step = %d, want 4", snap.Step)
	}
}

func TestPruneLowestWeight(t *testing.T) {
	s := NewStore(20, entropy.NewSource(42))
	fill(s, 5)
	for i := range s.entries {
		s.entries[i].weight = float64(i)
	}
	if removed := s.Prune(PruneLowestWeight, 0.4); removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}
	for i := range s.entries {
		if s.entries[i].step <= 2 {
			t.Fatalf("light entry step %d survived", s.entries[i].step)
		}
	}
}

func TestPruneRandomAndMinimumOne(t *testing.T) {
	s := NewStore(20, entropy.NewSource(42))
	fill(s, 10)
	if removed := s.Prune(PruneRandom, 0.01); removed != 1 {
		t.Fatalf("removed %d, want the one-entry minimum", removed)
	}
	if removed := s.Prune(PruneRandom, 0.5); removed != 4 {
		t.Fatalf("removed %d, want 4", removed)
	}
	if s.Len() != 5 {
		t.Fatalf("len = %d, want 5", s.Len())
	}
}

func TestPruneEmptyAndZeroFraction(t *testing.T) {
	s := NewStore(20, entropy.NewSource(42))
	if removed := s.Prune(PruneOldest, 0.5); removed != 0 {
		t.Fatalf("pruned %d from empty store", removed)
	}
	fill(s, 5)
	if removed := s.Prune(PruneOldest, 0); removed != 0 {
		t.Fatalf("pruned %d with zero fraction", removed)
	}
}
