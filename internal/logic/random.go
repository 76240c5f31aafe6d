package logic

import "math/rand"

// Source yields uniform draws in [0,1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewRandomSource returns a math/rand generator for the given seed. Callers
// that want run-to-run variety seed it from the clock.
func NewRandomSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
