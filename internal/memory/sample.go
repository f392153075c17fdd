// Sampling and pruning policies for the episodic store.
// See design doc Section 6.1.
package memory

// SampleStrategy selects how Sample draws entries.
type SampleStrategy uint8

const (
	// SampleEntropyWeighted draws with probability proportional to stored
	// weight, the default recall mode. High-information moments surface
	// more often, but nothing is ever certain to repeat.
	SampleEntropyWeighted SampleStrategy = iota
	// SampleUniform draws every entry with equal probability.
	SampleUniform
	// SampleRecent returns the newest entries, newest first.
	SampleRecent
	// SampleDiverse greedily picks entries far from those already picked.
	SampleDiverse
)

// PruneStrategy selects which entries Prune discards.
type PruneStrategy uint8

const (
	PruneOldest PruneStrategy = iota
	PruneLowestWeight
	PruneRandom
)

// Sample draws up to n distinct entries under the strategy. Entries that
// fail their integrity check are skipped, so the result may be shorter
// than n even on a large store.
func (s *Store) Sample(n int, strat SampleStrategy) []Snapshot {
	if n <= 0 || len(s.entries) == 0 {
		return nil
	}
	if n > len(s.entries) {
		n = len(s.entries)
	}

	var picked []int
	switch strat {
	case SampleUniform:
		picked = s.src.Perm(len(s.entries))[:n]
	case SampleRecent:
		for i := len(s.entries) - 1; i >= len(s.entries)-n; i-- {
			picked = append(picked, i)
		}
	case SampleDiverse:
		picked = s.pickDiverse(n)
	default:
		picked = s.pickWeighted(n)
	}

	out := make([]Snapshot, 0, len(picked))
	for _, idx := range picked {
		snap, err := s.checked(idx)
		if err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// pickWeighted draws n indices without replacement, each draw proportional
// to the remaining entries' weights. Weightless stores degrade to uniform.
func (s *Store) pickWeighted(n int) []int {
	remaining := make([]int, len(s.entries))
	total := 0.0
	for i := range s.entries {
		remaining[i] = i
		total += s.entries[i].weight
	}

	picked := make([]int, 0, n)
	for len(picked) < n && len(remaining) > 0 {
		var choice int
		if total <= 0 {
			choice = s.src.Intn(len(remaining))
		} else {
			r := s.src.Float() * total
			choice = len(remaining) - 1
			for j, idx := range remaining {
				r -= s.entries[idx].weight
				if r <= 0 {
					choice = j
					break
				}
			}
		}
		idx := remaining[choice]
		picked = append(picked, idx)
		total -= s.entries[idx].weight
		remaining = append(remaining[:choice], remaining[choice+1:]...)
	}
	return picked
}

// pickDiverse seeds with the heaviest entry, then greedily adds whichever
// entry maximizes the minimum distance to everything already picked.
func (s *Store) pickDiverse(n int) []int {
	seed := 0
	for i := range s.entries {
		if s.entries[i].weight > s.entries[seed].weight {
			seed = i
		}
	}
	picked := []int{seed}
	minDist := make([]float64, len(s.entries))
	for i := range s.entries {
		minDist[i] = dist(s.entries[i].vec, s.entries[seed].vec)
	}

	for len(picked) < n {
		best := -1
		for i := range s.entries {
			if contains(picked, i) {
				continue
			}
			if best < 0 || minDist[i] > minDist[best] {
				best = i
			}
		}
		if best < 0 {
			break
		}
		picked = append(picked, best)
		for i := range s.entries {
			if d := dist(s.entries[i].vec, s.entries[best].vec); d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return picked
}

// Prune discards a fraction of the store under the strategy and reports how
// many entries were removed. A positive fraction always removes at least
// one entry from a non-empty store.
func (s *Store) Prune(strat PruneStrategy, fraction float64) int {
	if fraction <= 0 || len(s.entries) == 0 {
		return 0
	}
	if fraction > 1 {
		fraction = 1
	}
	n := int(fraction * float64(len(s.entries)))
	if n == 0 {
		n = 1
	}

	var drop []int
	switch strat {
	case PruneLowestWeight:
		drop = s.lowestWeights(n)
	case PruneRandom:
		drop = s.src.Perm(len(s.entries))[:n]
	default: // PruneOldest
		for i := 0; i < n; i++ {
			drop = append(drop, i)
		}
	}

	keep := s.entries[:0]
	for i := range s.entries {
		if !contains(drop, i) {
			keep = append(keep, s.entries[i])
		}
	}
	removed := len(s.entries) - len(keep)
	s.entries = keep
	s.evicted += uint64(removed)
	return removed
}

// lowestWeights returns the indices of the n lightest entries.
func (s *Store) lowestWeights(n int) []int {
	idx := make([]int, len(s.entries))
	for i := range idx {
		idx[i] = i
	}
	out := make([]int, 0, n)
	for len(out) < n && len(idx) > 0 {
		min := 0
		for j := range idx {
			if s.entries[idx[j]].weight < s.entries[idx[min]].weight {
				min = j
			}
		}
		out = append(out, idx[min])
		idx = append(idx[:min], idx[min+1:]...)
	}
	return out
}

func contains(list []int, x int) bool {
	for _, v := range list {
		if v == x {
			return true
		}
	}
	return false
}

// dist is squared distance; diverse selection only ever compares.
func dist(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var ss float64
	for i, x := range a {
		d := x - b[i]
		ss += d * d
	}
	return ss
}
