// Package rng provides a small deterministic pseudo-random generator keyed
// by a string seed. Two generators built from the same seed produce the same
// sequence for the same call order, across processes and platforms.
package rng

import "math"

// RNG is a 32-bit mix-and-avalanche generator.
// Not safe for concurrent use.
type RNG struct {
	state uint32
}

// New creates a generator whose state is derived from seed.
func New(seed string) *RNG {
	return &RNG{state: HashString(seed)}
}

// HashString returns the 32-bit multiplicative/rotate hash used to seed
// generators. It is also used as a stable bucket index for ids.
func HashString(s string) uint32 {
	h := uint32(1779033703) ^ uint32(len(s))
	for i := 0; i < len(s); i++ {
		h = (h ^ uint32(s[i])) * 3432918353
		h = h<<13 | h>>19
	}
	return h
}

// Next returns a float in [0, 1).
func (r *RNG) Next() float64 {
	r.state += 0x6D2B79F5
	v := r.state
	v = (v ^ v>>15) * (v | 1)
	v ^= v + (v^v>>7)*(v|61)
	return float64(v^v>>14) / 4294967296
}

// Float is an alias of Next, read better in simulation code.
func (r *RNG) Float() float64 {
	return r.Next()
}

// Int returns an integer in [min, max], both inclusive.
func (r *RNG) Int(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return int(math.Floor(r.Next()*float64(max-min+1))) + min
}

// Range returns a float in [min, max).
func (r *RNG) Range(min, max float64) float64 {
	return min + r.Next()*(max-min)
}

// Chance reports whether a roll falls under p.
func (r *RNG) Chance(p float64) bool {
	return r.Next() < p
}

// Pick returns a uniformly chosen element of list.
// Panics on an empty list, like indexing would.
func Pick[T any](r *RNG, list []T) T {
	return list[r.Int(0, len(list)-1)]
}

// Shuffle returns a shuffled copy of list (Fisher-Yates from the end).
func Shuffle[T any](r *RNG, list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	for i := len(out) - 1; i > 0; i-- {
		j := int(math.Floor(r.Next() * float64(i+1)))
		out[i], out[j] = out[j], out[i]
	}
	return out
}
