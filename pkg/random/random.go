// Package random provides the random-source abstraction behind every
// randomized draw in postermill.
//
// Sampling, scale, rotation, offsets and text styling all take a [Source]
// instead of reaching for global randomness, so a fixed seed reproduces a
// poster exactly:
//
//	rng := random.New(42)
//	angle := random.Between(rng, -45, 45)
//
// Batches derive one independent stream per attempt with [ForAttempt], which
// keeps output identical regardless of how attempts are scheduled.
package random

import "math/rand/v2"

// Source is the subset of *rand.Rand used by postermill.
// Tests may substitute scripted implementations.
type Source interface {
	// IntN returns a uniform integer in [0, n). It panics if n <= 0.
	IntN(n int) int
	// Float64 returns a uniform float in [0.0, 1.0).
	Float64() float64
}

// New returns a PCG-backed generator for seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// ForAttempt returns the generator for the given attempt of a batch seeded
// with seed. Distinct attempts get well-separated streams.
func ForAttempt(seed uint64, attempt int) *rand.Rand {
	return New(mix(seed + uint64(attempt)*0x9e3779b97f4a7c15))
}

// mix is the splitmix64 finalizer.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Between returns a uniform integer in the closed range [lo, hi].
// If hi <= lo it returns lo without consuming randomness.
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// Uniform returns a uniform float in [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// Sample returns k distinct indices from [0, n) in random order.
// k is clamped to [0, n].
func Sample(src Source, n, k int) []int {
	k = max(0, min(k, n))
	if k == 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher-Yates: only the first k slots are settled.
	for i := 0; i < k; i++ {
		j := i + src.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
