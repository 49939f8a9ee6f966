// Package dist implements immutable discrete probability mass functions over
// integer outcomes, the common currency of the dicetab evaluation engine.
package dist

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// epsilon is the mass floor applied during normalization. Entries whose
// normalized mass falls below it are pruned so repeated convolution does not
// accumulate negligible floating-point artifacts.
const epsilon = 1e-12

// ErrInvalidRange is returned when a uniform range has high < low.
var ErrInvalidRange = errors.New("invalid range")

// Distribution is an immutable probability mass function over integers.
//
// Invariant: outcome keys are unique, every stored mass is positive, and the
// masses sum to 1 within numerical tolerance. Every combinator returns a
// fresh Distribution; a constructed value is never mutated.
type Distribution struct {
	masses map[int]float64
}

// FromSingleton returns the distribution with all mass on value.
func FromSingleton(value int) Distribution {
	return Distribution{masses: map[int]float64{value: 1}}
}

// FromUniform returns the distribution with equal mass on every integer in
// [low, high].
//
// Postcondition: Get(v) == 1/(high-low+1) for each v in [low, high], or
// ErrInvalidRange when high < low.
func FromUniform(low, high int) (Distribution, error) {
	if high < low {
		return Distribution{}, fmt.Errorf("dist: uniform [%d, %d]: %w", low, high, ErrInvalidRange)
	}
	n := high - low + 1
	masses := make(map[int]float64, n)
	p := 1.0 / float64(n)
	for v := low; v <= high; v++ {
		masses[v] = p
	}
	return Distribution{masses: masses}, nil
}

// FromMasses builds a distribution from raw non-negative weights, rescaling
// them so the total mass is 1. Weights need not sum to 1 on input, which lets
// callers hand over unnormalized accumulator tables directly.
//
// Precondition: no weight is negative and at least one is strictly positive.
// Panics otherwise; weights are always machine-built, so a violation is a bug.
func FromMasses(weights map[int]float64) Distribution {
	masses := make(map[int]float64, len(weights))
	for v, w := range weights {
		if w < 0 {
			panic(fmt.Sprintf("dist: FromMasses precondition violated: negative weight %g at %d", w, v))
		}
		if w > 0 {
			masses[v] = w
		}
	}
	return Distribution{masses: normalize(masses)}
}

// Get returns the probability mass at value, or 0 when value is not an
// attainable outcome. Never errors.
func (d Distribution) Get(value int) float64 {
	return d.masses[value]
}

// Keys returns every attainable outcome in ascending order. The slice is a
// fresh copy on each call.
func (d Distribution) Keys() []int {
	keys := make([]int, 0, len(d.masses))
	for v := range d.masses {
		keys = append(keys, v)
	}
	sort.Ints(keys)
	return keys
}

// Len returns the number of distinct attainable outcomes.
func (d Distribution) Len() int {
	return len(d.masses)
}

// Min returns the smallest attainable outcome.
//
// Precondition: the distribution was built by a constructor (never empty).
func (d Distribution) Min() int {
	if len(d.masses) == 0 {
		panic("dist: Min on empty distribution")
	}
	first := true
	min := 0
	for v := range d.masses {
		if first || v < min {
			min = v
			first = false
		}
	}
	return min
}

// Max returns the largest attainable outcome.
//
// Precondition: the distribution was built by a constructor (never empty).
func (d Distribution) Max() int {
	if len(d.masses) == 0 {
		panic("dist: Max on empty distribution")
	}
	first := true
	max := 0
	for v := range d.masses {
		if first || v > max {
			max = v
			first = false
		}
	}
	return max
}

// Mean returns the expected value, Σ value·mass. Recomputed on each call;
// the distribution holds no derived state.
func (d Distribution) Mean() float64 {
	mean := 0.0
	for v, m := range d.masses {
		mean += float64(v) * m
	}
	return mean
}

// Stdev returns the standard deviation, sqrt(Σ mass·(value−mean)²).
func (d Distribution) Stdev() float64 {
	mean := d.Mean()
	variance := 0.0
	for v, m := range d.masses {
		dev := float64(v) - mean
		variance += m * dev * dev
	}
	return math.Sqrt(variance)
}

// normalize rescales masses to a total of exactly 1 and prunes entries whose
// normalized mass is below epsilon. The map is modified in place and returned.
//
// Precondition: masses has positive total weight.
func normalize(masses map[int]float64) map[int]float64 {
	total := 0.0
	for _, m := range masses {
		total += m
	}
	if total <= 0 {
		panic("dist: normalize precondition violated: no positive mass")
	}
	for v, m := range masses {
		if m/total < epsilon {
			delete(masses, v)
		}
	}
	total = 0.0
	for _, m := range masses {
		total += m
	}
	for v, m := range masses {
		masses[v] = m / total
	}
	return masses
}
