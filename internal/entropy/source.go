// Package entropy supplies every random draw an organism makes. All
// randomness flows through one seeded Source, which is what makes
// trajectories reproducible: two organisms built on the same seed consume
// identical streams. See design doc Section 7.1.
package entropy

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Derived-field seed offsets. Each smooth field gets its own seed so the
// fields are decorrelated from each other and from the primary stream.
const (
	textureFieldOffset = 1
	themeFieldOffset   = 2
)

// Source is a deterministic entropy supply: a seeded PRNG stream plus two
// smooth simplex-noise fields used when seeding fresh states. Not safe for
// concurrent use; each organism owns exactly one.
type Source struct {
	seed int64
	rng  *rand.Rand

	textureField opensimplex.Noise
	themeField   opensimplex.Noise
}

// NewSource creates a Source from a seed. Equal seeds yield equal streams.
func NewSource(seed int64) *Source {
	return &Source{
		seed:         seed,
		rng:          rand.New(rand.NewSource(seed)),
		textureField: opensimplex.NewNormalized(seed + textureFieldOffset),
		themeField:   opensimplex.NewNormalized(seed + themeFieldOffset),
	}
}

// Seed returns the seed this source was built from.
func (s *Source) Seed() int64 {
	return s.seed
}

// Float returns the next float64 in [0, 1) from the primary stream.
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// Norm returns the next standard-normal draw from the primary stream.
func (s *Source) Norm() float64 {
	return s.rng.NormFloat64()
}

// Intn returns the next int in [0, n) from the primary stream.
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

// Perm returns a random permutation of [0, n).
func (s *Source) Perm(n int) []int {
	return s.rng.Perm(n)
}

// NormVector returns n standard-normal draws scaled by sigma.
func (s *Source) NormVector(n int, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.rng.NormFloat64() * sigma
	}
	return out
}

// TextureNoise samples the fractal texture field at (x, y), in [0, 1].
// Neighboring coordinates give correlated values, so state components
// seeded from it vary smoothly rather than as independent noise.
func (s *Source) TextureNoise(x, y float64) float64 {
	return octaveNoise(s.textureField, x, y, 4, 0.05, 0.5)
}

// ThemeNoise samples the fractal theme field at (x, y), in [0, 1].
func (s *Source) ThemeNoise(x, y float64) float64 {
	return octaveNoise(s.themeField, x, y, 3, 0.1, 0.5)
}

// octaveNoise layers multiple octaves of simplex noise for fractal detail.
// Each octave doubles frequency and scales amplitude by persistence.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	var total, maxValue float64
	amplitude := 1.0
	freq := frequency

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*freq, y*freq) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		freq *= 2
	}

	if maxValue == 0 {
		return 0
	}
	return total / maxValue
}
