package random

import (
	"math/rand"
	"time"
)

// #region source

// Source is the shared randomness of one simulation instance. Reseeding is an
// explicit call so that episode reproducibility is visible at the call site.
type Source struct {
	rng  *rand.Rand
	seed int64
}

// New creates a source. A zero seed picks one from the clock.
func New(seed int64) *Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Source{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed resets the sequence.
func (s *Source) Seed(seed int64) {
	s.seed = seed
	s.rng.Seed(seed)
}

// LastSeed returns the seed the current sequence started from.
func (s *Source) LastSeed() int64 {
	return s.seed
}

// Intn returns a uniform integer in [0, n). n must be positive.
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

// Float64 returns a uniform float in [0, 1).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// #endregion source
