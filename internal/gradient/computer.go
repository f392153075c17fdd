package gradient

import (
	"log/slog"

	"github.com/talgya/animus/internal/entropy"
	"github.com/talgya/animus/internal/manifold"
)

// Computer runs the strategy chain and owns the shared validation stage.
// Every direction handed to the step loop has passed through validate,
// whichever strategy produced it.
type Computer struct {
	strategies []Strategy
	maxNorm    float64
	minNorm    float64
	src        *entropy.Source

	served    map[string]uint64
	failures  uint64
	emergency uint64
}

// Stats reports how often each strategy served a request and how often the
// whole chain fell through to the emergency direction.
type Stats struct {
	Served    map[string]uint64 `json:"served"`
	Failures  uint64            `json:"failures"`
	Emergency uint64            `json:"emergency"`
}

// NewComputer builds the standard chain: analytical first, then finite
// difference, then heuristics.
func NewComputer(maxNorm, minNorm float64, src *entropy.Source) *Computer {
	return &Computer{
		strategies: []Strategy{Analytical{}, FiniteDifference{}, Heuristic{}},
		maxNorm:    maxNorm,
		minNorm:    minNorm,
		src:        src,
		served:     make(map[string]uint64),
	}
}

// Direction returns a sanitized, norm-bounded descent direction for the
// request. Strategy failures fall through the chain; when every strategy
// fails the emergency direction points away from the memory centroid, or
// in a seeded random direction when memory has nothing to offer.
func (c *Computer) Direction(req Request) []float64 {
	for _, s := range c.strategies {
		dir, ok := s.Direction(req)
		if !ok {
			c.failures++
			continue
		}
		c.served[s.Name()]++
		return c.validate(dir)
	}
	c.emergency++
	slog.Debug("gradient chain exhausted, using emergency direction")
	return c.validate(c.emergencyDirection(req))
}

// validate sanitizes the direction, caps its norm, and lifts feeble but
// nonzero norms up to the floor so exploration pressure survives. An
// exactly zero direction passes through untouched: that is the cold start,
// not a degenerate gradient.
func (c *Computer) validate(dir []float64) []float64 {
	dir = manifold.Sanitize(dir)
	n := manifold.Norm(dir)
	switch {
	case n > c.maxNorm:
		return manifold.Scale(dir, c.maxNorm/n)
	case n > 0 && n < c.minNorm:
		return manifold.Scale(dir, c.minNorm/n)
	}
	return dir
}

func (c *Computer) emergencyDirection(req Request) []float64 {
	if req.Mem != nil {
		if cen, ok := req.Mem.Centroid(); ok && len(cen) == len(req.X) {
			away := manifold.Sub(manifold.Sanitize(req.X), cen)
			if manifold.Norm(away) > 1e-9 {
				return manifold.ToSphere(away, 1)
			}
		}
	}
	return manifold.ToSphere(c.src.NormVector(len(req.X), 1), 1)
}

// Stats returns a copy of the serving counters.
func (c *Computer) Stats() Stats {
	served := make(map[string]uint64, len(c.served))
	for k, v := range c.served {
		served[k] = v
	}
	return Stats{Served: served, Failures: c.failures, Emergency: c.emergency}
}
