package engine

import "math/rand"

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every call. It satisfies world.Random and
// instance.IDSource.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Int63n returns a random integer in [0, n).
func (r *RNG) Int63n(n int64) int64 {
	r.pos++
	return r.src.Int63n(n)
}

// Float64 returns a random float in [0, 1).
func (r *RNG) Float64() float64 {
	r.pos++
	return r.src.Float64()
}

// Range returns a random float in [lo, hi).
func (r *RNG) Range(lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of RNG calls made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}
