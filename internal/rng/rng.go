// Package rng derives the per-tick deterministic random stream the
// simulation runs on. Every component that needs randomness (Poisson
// arrivals, search-start coin flips, outcome/blowout draws) consumes a
// Stream constructed for the current tick; nothing keeps a package-level
// generator, so two runs with identical (seed, config, population) are
// byte-identical at every tick per spec §5/§8.
package rng

import (
	"math"
	"math/rand"
)

// Stream is a tick-scoped random source.
type Stream struct {
	r *rand.Rand
}

// ForTick derives the stream for the given global seed and current_time.
// Spec §5: "Each tick derives a stream from seed ⊕ current_time (wrapping
// add)." Go's uint64 addition wraps on overflow, matching that.
func ForTick(seed uint64, currentTime int64) Stream {
	derived := seed + uint64(currentTime)
	return Stream{r: rand.New(rand.NewSource(int64(derived)))}
}

// Float64 returns a uniform sample in [0, 1).
func (s Stream) Float64() float64 {
	return s.r.Float64()
}

// Intn returns a uniform sample in [0, n).
func (s Stream) Intn(n int) int {
	return s.r.Intn(n)
}

// Poisson draws a non-negative integer from Poisson(lambda) via Knuth's
// multiplication method (multiply uniforms until the product drops to
// e^-lambda), matching the reference implementation's
// poisson_sample. Always returns >= 0 per spec §7.
func (s Stream) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= s.Float64()
		if p <= l {
			break
		}
	}
	return k - 1
}
