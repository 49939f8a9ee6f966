// Package query exposes a finished outcome distribution to consumers: row
// iteration with cumulative odds, point probabilities, and a statistics
// summary, plus terminal renderers for the CLI and the Telnet service.
package query

import (
	"github.com/cory-johannsen/dicetab/internal/dist"
)

// Row is a single outcome together with its cumulative odds.
type Row struct {
	// Value is the outcome total.
	Value int
	// Mass is P(X == Value).
	Mass float64
	// AtLeast is P(X >= Value).
	AtLeast float64
	// AtMost is P(X <= Value).
	AtMost float64
}

// Summary carries the headline statistics of a distribution.
type Summary struct {
	Expression string
	Mean       float64
	Stdev      float64
	Min        int
	Max        int
	Outcomes   int
}

// Result pairs a computed distribution with the canonical expression it
// came from. It is immutable and safe for concurrent readers.
type Result struct {
	expression string
	d          dist.Distribution
}

// New wraps a distribution for querying.
//
// Precondition: d must hold at least one outcome.
// Postcondition: Returns a Result whose queries reflect d exactly.
func New(expression string, d dist.Distribution) *Result {
	if d.Len() == 0 {
		panic("query: empty distribution")
	}
	return &Result{expression: expression, d: d}
}

// Expression returns the canonical expression the distribution came from.
func (r *Result) Expression() string {
	return r.expression
}

// Distribution returns the wrapped distribution.
func (r *Result) Distribution() dist.Distribution {
	return r.d
}

// P returns the probability of the outcome being exactly v.
func (r *Result) P(v int) float64 {
	return r.d.Get(v)
}

// AtLeast returns the probability of the outcome being v or higher.
func (r *Result) AtLeast(v int) float64 {
	total := 0.0
	for _, k := range r.d.Keys() {
		if k >= v {
			total += r.d.Get(k)
		}
	}
	return total
}

// AtMost returns the probability of the outcome being v or lower.
func (r *Result) AtMost(v int) float64 {
	total := 0.0
	for _, k := range r.d.Keys() {
		if k <= v {
			total += r.d.Get(k)
		}
	}
	return total
}

// Rows returns every outcome in ascending order with cumulative odds.
// Both cumulative columns are computed as direct sums rather than
// complements, so they stay exact at the distribution tails.
//
// Postcondition: Returns a non-empty slice ordered by ascending Value.
func (r *Result) Rows() []Row {
	keys := r.d.Keys()
	rows := make([]Row, len(keys))

	// Suffix sums for the at-least column.
	atLeast := make([]float64, len(keys))
	acc := 0.0
	for i := len(keys) - 1; i >= 0; i-- {
		acc += r.d.Get(keys[i])
		atLeast[i] = acc
	}

	atMost := 0.0
	for i, v := range keys {
		mass := r.d.Get(v)
		atMost += mass
		rows[i] = Row{
			Value:   v,
			Mass:    mass,
			AtLeast: atLeast[i],
			AtMost:  atMost,
		}
	}
	return rows
}

// Summary returns the headline statistics of the distribution.
func (r *Result) Summary() Summary {
	return Summary{
		Expression: r.expression,
		Mean:       r.d.Mean(),
		Stdev:      r.d.Stdev(),
		Min:        r.d.Min(),
		Max:        r.d.Max(),
		Outcomes:   r.d.Len(),
	}
}
