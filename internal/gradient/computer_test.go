package gradient

import (
	"math"
	"testing"

	"github.com/talgya/animus/internal/energy"
	"github.com/talgya/animus/internal/entropy"
	"github.com/talgya/animus/internal/manifold"
	"github.com/talgya/animus/internal/state"
)

var chainDims = state.Dims{Texture: 6, Themes: 5, Direction: 4}

type stubMem struct {
	vec []float64
}

func (s *stubMem) Nearest(v []float64) ([]float64, float64, bool) {
	if s.vec == nil {
		return nil, 0, false
	}
	return s.vec, manifold.Distance(v, s.vec), true
}

func (s *stubMem) Centroid() ([]float64, bool) {
	if s.vec == nil {
		return nil, false
	}
	return s.vec, true
}

func validPoint(t *testing.T) []float64 {
	t.Helper()
	texture := []float64{1.5, -2.0, 0.5, 3.0, -0.3, 2.0}
	themes := manifold.ToSimplex([]float64{0.5, 0.2, 0.1, 0.15, 0.05})
	direction := manifold.ToSphere([]float64{1, 2, -1, 0.5}, 1)
	x := make([]float64, 0, chainDims.Total())
	x = append(x, texture...)
	x = append(x, themes...)
	return append(x, direction...)
}

func testRequest(t *testing.T) Request {
	t.Helper()
	x := validPoint(t)
	prev := make([]float64, len(x))
	copy(prev, x)
	prev[0] -= 0.2

	mem := &stubMem{vec: make([]float64, len(x))}
	copy(mem.vec, x)
	mem.vec[1] += 1.0

	return Request{
		X:     x,
		XPrev: prev,
		Con:   energy.Constraints{Novelty: 0.8, Risk: 0.5, Coherence: 0.4},
		Model: energy.NewLandscape(chainDims, mem),
		Mem:   mem,
		Dims:  chainDims,
	}
}

func TestAnalyticalServesOnValidState(t *testing.T) {
	req := testRequest(t)
	c := NewComputer(10, 0.01, entropy.NewSource(7))

	dir := c.Direction(req)
	if len(dir) != len(req.X) {
		t.Fatalf("direction length = %d, want %d", len(dir), len(req.X))
	}
	for i, d := range dir {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			t.Fatalf("dir[%d] = %v, want finite", i, d)
		}
	}

	stats := c.Stats()
	if stats.Served["analytical"] != 1 {
		t.Errorf("analytical served = %d, want 1", stats.Served["analytical"])
	}
	if stats.Emergency != 0 {
		t.Errorf("emergency count = %d, want 0", stats.Emergency)
	}
}

func TestDirectionDescendsEnergy(t *testing.T) {
	req := testRequest(t)
	c := NewComputer(10, 0.01, entropy.NewSource(7))

	dir := c.Direction(req)
	before := req.Model.Evaluate(req.X, req.XPrev, req.Con)
	stepped := manifold.Add(req.X, manifold.Scale(dir, 1e-4))
	after := req.Model.Evaluate(stepped, req.XPrev, req.Con)
	if after >= before {
		t.Errorf("energy rose along descent direction: %.9f -> %.9f", before, after)
	}
}

func TestChainFallsBackOnNonFiniteState(t *testing.T) {
	req := testRequest(t)
	req.X[2] = math.NaN()
	c := NewComputer(10, 0.01, entropy.NewSource(7))

	dir := c.Direction(req)
	for i, d := range dir {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			t.Fatalf("dir[%d] = %v, want finite despite NaN input", i, d)
		}
	}

	stats := c.Stats()
	if stats.Served["analytical"] != 0 {
		t.Errorf("analytical served despite NaN state")
	}
	if stats.Served["finite-difference"] != 1 {
		t.Errorf("finite-difference served = %d, want 1", stats.Served["finite-difference"])
	}
	if stats.Failures == 0 {
		t.Errorf("failures = 0, want at least one recorded")
	}
}

func TestHeuristicServesWithoutModel(t *testing.T) {
	req := testRequest(t)
	req.Model = nil
	req.Con = energy.Constraints{Novelty: 1.0}

	c := NewComputer(10, 0.01, entropy.NewSource(7))
	dir := c.Direction(req)

	if c.Stats().Served["heuristic"] != 1 {
		t.Fatalf("heuristic served = %d, want 1", c.Stats().Served["heuristic"])
	}

	// Repulsion from the nearest memory should move away from it.
	away := manifold.Sub(req.X, req.Mem.(*stubMem).vec)
	dot := 0.0
	for i := range dir {
		dot += dir[i] * away[i]
	}
	if dot <= 0 {
		t.Errorf("heuristic direction does not point away from memory, dot = %.6f", dot)
	}
}

func TestEmergencyDirectionWhenChainExhausted(t *testing.T) {
	// No model, no memory, no previous state, zero-value dims: nothing for
	// any strategy to work from.
	x := validPoint(t)
	req := Request{X: x}
	c := NewComputer(10, 0.01, entropy.NewSource(7))

	dir := c.Direction(req)
	if n := manifold.Norm(dir); math.Abs(n-1) > 1e-9 {
		t.Errorf("emergency direction norm = %.9f, want 1", n)
	}
	if c.Stats().Emergency != 1 {
		t.Errorf("emergency count = %d, want 1", c.Stats().Emergency)
	}
}

func TestEmergencyPointsAwayFromCentroid(t *testing.T) {
	x := validPoint(t)
	cen := make([]float64, len(x))
	copy(cen, x)
	cen[0] -= 2.0

	c := NewComputer(10, 0.01, entropy.NewSource(7))
	c.strategies = nil

	dir := c.Direction(Request{X: x, Mem: &stubMem{vec: cen}})
	away := manifold.Sub(x, cen)
	want := manifold.ToSphere(away, 1)
	for i := range dir {
		if math.Abs(dir[i]-want[i]) > 1e-9 {
			t.Fatalf("dir[%d] = %.9f, want %.9f", i, dir[i], want[i])
		}
	}
}

func TestEmergencyDeterministicAcrossComputers(t *testing.T) {
	x := validPoint(t)
	a := NewComputer(10, 0.01, entropy.NewSource(99))
	b := NewComputer(10, 0.01, entropy.NewSource(99))
	a.strategies = nil
	b.strategies = nil

	da := a.Direction(Request{X: x})
	db := b.Direction(Request{X: x})
	for i := range da {
		if da[i] != db[i] {
			t.Fatalf("emergency directions diverge at %d: %v vs %v", i, da[i], db[i])
		}
	}
}

func TestValidateCapsNorm(t *testing.T) {
	c := NewComputer(2, 0.01, entropy.NewSource(7))
	dir := c.validate([]float64{30, 40})
	if n := manifold.Norm(dir); math.Abs(n-2) > 1e-9 {
		t.Errorf("capped norm = %.9f, want 2", n)
	}
	// Direction is preserved, only magnitude changes.
	if math.Abs(dir[0]/dir[1]-0.75) > 1e-9 {
		t.Errorf("clipping changed direction: %v", dir)
	}
}

func TestValidateRaisesFeebleNorm(t *testing.T) {
	c := NewComputer(10, 0.5, entropy.NewSource(7))
	dir := c.validate([]float64{1e-8, 0})
	if n := manifold.Norm(dir); math.Abs(n-0.5) > 1e-9 {
		t.Errorf("raised norm = %.9f, want 0.5", n)
	}
}

func TestValidatePassesZeroThrough(t *testing.T) {
	c := NewComputer(10, 0.5, entropy.NewSource(7))
	dir := c.validate([]float64{0, 0, 0})
	for i, d := range dir {
		if d != 0 {
			t.Errorf("dir[%d] = %v, want 0", i, d)
		}
	}
}

func TestValidateSanitizesBeforeBounding(t *testing.T) {
	c := NewComputer(10, 0.01, entropy.NewSource(7))
	dir := c.validate([]float64{math.NaN(), math.Inf(1), math.Inf(-1)})
	want := []float64{0, 1, -1}
	for i := range dir {
		if dir[i] != want[i] {
			t.Errorf("dir[%d] = %v, want %v", i, dir[i], want[i])
		}
	}
}

func TestFiniteDifferenceMatchesAnalytical(t *testing.T) {
	req := testRequest(t)
	an, ok := Analytical{}.Direction(req)
	if !ok {
		t.Fatal("analytical failed on valid request")
	}
	fd, ok := FiniteDifference{}.Direction(req)
	if !ok {
		t.Fatal("finite difference failed on valid request")
	}
	for i := range an {
		tol := 1e-4 + 1e-4*math.Abs(an[i])
		if math.Abs(an[i]-fd[i]) > tol {
			t.Errorf("strategies disagree at %d: analytical %.8f, fd %.8f", i, an[i], fd[i])
		}
	}
}

func TestHeuristicFailsWithNothingToWorkFrom(t *testing.T) {
	if _, ok := (Heuristic{}.Direction(Request{X: make([]float64, 4)})); ok {
		t.Error("heuristic served with no memory, no velocity, no dims")
	}
}
