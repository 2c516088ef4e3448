// Package random provides the seeded randomness used by the compositor's
// strategy objects. Every random decision draws from an explicit Source so a
// run can be replayed from its seed.
package random

import (
	"math/rand/v2"
	"time"
)

// Source is the subset of *rand.Rand the compositor draws from.
type Source interface {
	Float64() float64
	IntN(n int) int
}

const streamSalt = 0x9e3779b97f4a7c15

// New returns a PCG backed source for seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^streamSalt))
}

// Seed returns seed unchanged unless it is zero, in which case a time based
// seed is produced.
func Seed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return uint64(time.Now().UnixNano())
}

// Derive returns an independent source for the i-th consumer of a seed.
func Derive(seed uint64, i int) *rand.Rand {
	return New(seed + uint64(i+1)*streamSalt)
}

// Uniform draws from [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// IntRange draws an integer from [lo, hi] inclusive.
func IntRange(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// Bool draws a fair coin.
func Bool(src Source) bool {
	return src.IntN(2) == 1
}

// Pick returns a uniformly chosen element. items must not be empty.
func Pick[T any](src Source, items []T) T {
	return items[src.IntN(len(items))]
}
