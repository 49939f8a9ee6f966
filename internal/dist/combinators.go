package dist

import (
	"errors"
	"fmt"
)

// ErrDivisionByZero is returned when a divisor distribution places mass on 0.
var ErrDivisionByZero = errors.New("division by zero")

// Add returns the distribution of the sum of independent draws from d and o
// (discrete convolution).
func (d Distribution) Add(o Distribution) Distribution {
	out := make(map[int]float64, len(d.masses)+len(o.masses))
	for a, pa := range d.masses {
		for b, pb := range o.masses {
			out[a+b] += pa * pb
		}
	}
	return Distribution{masses: normalize(out)}
}

// Sub returns the distribution of a draw from d minus an independent draw
// from o.
func (d Distribution) Sub(o Distribution) Distribution {
	return d.Add(o.Neg())
}

// Mul returns the distribution of the product of independent draws. All key
// pairs are enumerated; unlike Add there is no shift structure to exploit.
func (d Distribution) Mul(o Distribution) Distribution {
	out := make(map[int]float64, len(d.masses)*len(o.masses))
	for a, pa := range d.masses {
		for b, pb := range o.masses {
			out[a*b] += pa * pb
		}
	}
	return Distribution{masses: normalize(out)}
}

// FloorDiv returns the distribution of a draw from d divided by an
// independent draw from o, rounding toward negative infinity (so -1 divided
// by 2 yields -1, matching dice-notation floor semantics).
//
// Postcondition: returns ErrDivisionByZero when o places mass on 0. The
// check happens here at construction time, never at query time.
func (d Distribution) FloorDiv(o Distribution) (Distribution, error) {
	if o.Get(0) > 0 {
		return Distribution{}, fmt.Errorf("dist: floor division: %w", ErrDivisionByZero)
	}
	out := make(map[int]float64, len(d.masses))
	for a, pa := range d.masses {
		for b, pb := range o.masses {
			out[floorDiv(a, b)] += pa * pb
		}
	}
	return Distribution{masses: normalize(out)}, nil
}

// Neg returns the distribution of the negated outcome. Mass is preserved
// key-for-key, so no renormalization is needed.
func (d Distribution) Neg() Distribution {
	out := make(map[int]float64, len(d.masses))
	for v, m := range d.masses {
		out[-v] = m
	}
	return Distribution{masses: out}
}

// Advantage returns the distribution of the larger of two independent
// draws from d. For a single die this matches rolling twice and keeping
// the highest.
func (d Distribution) Advantage() Distribution {
	out := make(map[int]float64, len(d.masses))
	for a, pa := range d.masses {
		for b, pb := range d.masses {
			v := a
			if b > v {
				v = b
			}
			out[v] += pa * pb
		}
	}
	return Distribution{masses: normalize(out)}
}

// Disadvantage returns the distribution of the smaller of two independent
// draws from d.
func (d Distribution) Disadvantage() Distribution {
	out := make(map[int]float64, len(d.masses))
	for a, pa := range d.masses {
		for b, pb := range d.masses {
			v := a
			if b < v {
				v = b
			}
			out[v] += pa * pb
		}
	}
	return Distribution{masses: normalize(out)}
}

// ClampMin raises every outcome below bound to bound, merging collided
// masses.
func (d Distribution) ClampMin(bound int) Distribution {
	out := make(map[int]float64, len(d.masses))
	for v, m := range d.masses {
		if v < bound {
			v = bound
		}
		out[v] += m
	}
	return Distribution{masses: normalize(out)}
}

// ClampMax lowers every outcome above bound to bound, merging collided
// masses.
func (d Distribution) ClampMax(bound int) Distribution {
	out := make(map[int]float64, len(d.masses))
	for v, m := range d.masses {
		if v > bound {
			v = bound
		}
		out[v] += m
	}
	return Distribution{masses: normalize(out)}
}

// floorDiv divides rounding toward negative infinity rather than toward zero.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
