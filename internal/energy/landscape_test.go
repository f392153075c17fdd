package energy

import (
	"math"
	"testing"

	"github.com/talgya/animus/internal/manifold"
	"github.com/talgya/animus/internal/state"
)

type stubMem struct{ vecs [][]float64 }

func (s stubMem) Nearest(v []float64) ([]float64, float64, bool) {
	best := -1
	bestD := 0.0
	for i, m := range s.vecs {
		d := manifold.Distance(v, m)
		if best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return nil, 0, false
	}
	return s.vecs[best], bestD, true
}

func smallDims() state.Dims {
	return state.Dims{Texture: 6, Themes: 5, Direction: 4}
}

// testPoint builds a smooth interior point: texture with one element past
// the soft radius, interior simplex themes, unit direction.
func testPoint(dims state.Dims) []float64 {
	x := make([]float64, 0, dims.Total())
	texture := []float64{1.5, -2, 0.5, 9, -0.3, 3}
	themes := manifold.ToSimplex([]float64{0.4, 0.1, 0.3, 0.15, 0.05})
	direction := manifold.ToSphere([]float64{1, -1, 0.5, 2}, 1)
	x = append(x, texture...)
	x = append(x, themes...)
	return append(x, direction...)
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	dims := smallDims()
	x := testPoint(dims)

	prev := append([]float64(nil), x...)
	for i := range prev {
		prev[i] += 0.1 * float64(i%3)
	}
	memVec := append([]float64(nil), x...)
	memVec[0] += 1.2
	memVec[7] += 0.05

	l := NewLandscape(dims, stubMem{vecs: [][]float64{memVec}})
	con := Constraints{Novelty: 1.2, Risk: 0.7, Coherence: 0.9}

	grad := l.Gradient(x, prev, con)
	h := 1e-6
	for i := range x {
		xp := append([]float64(nil), x...)
		xm := append([]float64(nil), x...)
		xp[i] += h
		xm[i] -= h
		fd := (l.Evaluate(xp, prev, con) - l.Evaluate(xm, prev, con)) / (2 * h)
		if math.Abs(fd-grad[i]) > 1e-4+1e-4*math.Abs(grad[i]) {
			t.Fatalf("component %d: analytical %v vs finite-difference %v", i, grad[i], fd)
		}
	}
}

func TestEnergyRewardsDistanceFromMemory(t *testing.T) {
	dims := smallDims()
	near := testPoint(dims)
	mem := append([]float64(nil), near...)
	mem[0] += 0.05

	far := append([]float64(nil), near...)
	far[1] += 4
	far[2] -= 4

	l := NewLandscape(dims, stubMem{vecs: [][]float64{mem}})
	con := Constraints{Novelty: 1}
	if eNear, eFar := l.Evaluate(near, nil, con), l.Evaluate(far, nil, con); eFar >= eNear {
		t.Fatalf("energy did not fall with distance from memory: near %v, far %v", eNear, eFar)
	}
}

func TestRiskPenalizesVelocity(t *testing.T) {
	dims := smallDims()
	x := testPoint(dims)
	slow := append([]float64(nil), x...)
	slow[0] += 0.01
	fast := append([]float64(nil), x...)
	fast[0] += 3

	l := NewLandscape(dims, stubMem{})
	con := Constraints{Risk: 1}
	if eSlow, eFast := l.Evaluate(slow, x, con), l.Evaluate(fast, x, con); eFast <= eSlow {
		t.Fatalf("large step not penalized: slow %v, fast %v", eSlow, eFast)
	}
}

func TestCoherenceRewardsConcentration(t *testing.T) {
	dims := smallDims()
	base := testPoint(dims)

	uniform := append([]float64(nil), base...)
	copy(uniform[dims.Texture:dims.Texture+dims.Themes], manifold.Uniform(dims.Themes))

	peaked := append([]float64(nil), base...)
	copy(peaked[dims.Texture:dims.Texture+dims.Themes],
		manifold.ToSimplex([]float64{5, 0, 0, 0, 0}))

	l := NewLandscape(dims, stubMem{})
	con := Constraints{Coherence: 1}
	if eU, eP := l.Evaluate(uniform, nil, con), l.Evaluate(peaked, nil, con); eP >= eU {
		t.Fatalf("concentration not rewarded: uniform %v, peaked %v", eU, eP)
	}
}

func TestBoundaryTermOnlyOutsideRadius(t *testing.T) {
	dims := smallDims()
	inside := testPoint(dims)
	inside[3] = 2 // pull the one out-of-radius element back in

	l := NewLandscape(dims, stubMem{})
	if terms := l.EvaluateTerms(inside, nil, Constraints{}); terms.Boundary != 0 {
		t.Fatalf("boundary = %v inside the radius, want 0", terms.Boundary)
	}

	outside := append([]float64(nil), inside...)
	outside[3] = 9.5
	if terms := l.EvaluateTerms(outside, nil, Constraints{}); terms.Boundary <= 0 {
		t.Fatalf("boundary = %v outside the radius, want > 0", terms.Boundary)
	}
}

func TestTermsTotalConsistent(t *testing.T) {
	dims := smallDims()
	x := testPoint(dims)
	prev := append([]float64(nil), x...)
	prev[0] += 0.5
	mem := append([]float64(nil), x...)
	mem[1] -= 1

	l := NewLandscape(dims, stubMem{vecs: [][]float64{mem}})
	con := Constraints{Novelty: 0.8, Risk: 0.6, Coherence: 0.4}
	terms := l.EvaluateTerms(x, prev, con)
	want := -terms.Novelty + con.Risk*terms.Risk - con.Coherence*terms.Coherence + terms.Boundary
	if math.Abs(terms.Total-want) > 1e-12 {
		t.Fatalf("total %v does not match terms %v", terms.Total, want)
	}
}

func TestEvaluateFiniteOnGarbage(t *testing.T) {
	dims := smallDims()
	x := make([]float64, dims.Total())
	for i := range x {
		x[i] = math.NaN()
	}
	x[0] = math.Inf(1)
	l := NewLandscape(dims, stubMem{})
	e := l.Evaluate(x, nil, Constraints{Novelty: 1, Risk: 1, Coherence: 1})
	if math.IsNaN(e) || math.IsInf(e, 0) {
		t.Fatalf("energy not finite: %v", e)
	}
}

func TestGradientFiniteOnValidInput(t *testing.T) {
	dims := smallDims()
	x := testPoint(dims)
	mem := append([]float64(nil), x...)
	mem[0] += 1
	l := NewLandscape(dims, stubMem{vecs: [][]float64{mem}})
	for _, g := range l.Gradient(x, nil, Constraints{Novelty: 1, Risk: 1, Coherence: 1}) {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			t.Fatalf("gradient not finite: %v", g)
		}
	}
}

func TestGradientSubspaceSeparation(t *testing.T) {
	dims := smallDims()
	x := testPoint(dims)

	// With only coherence active, texture and direction receive nothing.
	l := NewLandscape(dims, stubMem{})
	grad := l.Gradient(x, nil, Constraints{Coherence: 1})
	for i := 0; i < dims.Texture; i++ {
		if i == 3 {
			continue // element past the soft radius carries boundary gradient
		}
		if grad[i] != 0 {
			t.Fatalf("texture[%d] got coherence gradient %v", i, grad[i])
		}
	}
	for i := dims.Texture + dims.Themes; i < dims.Total(); i++ {
		if grad[i] != 0 {
			t.Fatalf("direction[%d] got coherence gradient %v", i-dims.Texture-dims.Themes, grad[i])
		}
	}
}
