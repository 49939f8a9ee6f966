// Package pool computes exact outcome distributions for homogeneous dice
// pools, including rank-based selections such as keep-highest. It never
// enumerates the faces^count raw outcome space; modified pools are solved by
// dynamic programming over sorted face blocks, so cost stays polynomial in
// the pool size.
package pool

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/dicetab/internal/dist"
)

// DefaultMaxArea bounds count*faces for a single pool when no explicit
// ceiling is configured.
const DefaultMaxArea = 1024

// ErrInvalidDie is returned for a malformed die term (count or faces < 1).
var ErrInvalidDie = errors.New("invalid die")

// ErrPoolTooLarge is returned when count*faces exceeds the configured
// ceiling. This is a resource limit, not a correctness failure; callers
// recover by choosing a smaller pool.
var ErrPoolTooLarge = errors.New("pool too large")

// Calculator computes pool distributions under a resource ceiling.
type Calculator struct {
	maxArea int
}

// NewCalculator returns a Calculator that rejects pools whose count*faces
// area exceeds maxArea. A maxArea of 0 selects DefaultMaxArea.
func NewCalculator(maxArea int) *Calculator {
	if maxArea == 0 {
		maxArea = DefaultMaxArea
	}
	return &Calculator{maxArea: maxArea}
}

// MaxArea returns the active ceiling on count*faces.
func (c *Calculator) MaxArea() int {
	return c.maxArea
}

// Sum returns the distribution of the plain sum of count dY dice by repeated
// convolution. It agrees with RankSum over the all-ranks set; the convolution
// route just avoids the order-statistics table when no ranking is needed.
func (c *Calculator) Sum(count, faces int) (dist.Distribution, error) {
	if err := c.check(count, faces); err != nil {
		return dist.Distribution{}, err
	}
	die, err := dist.FromUniform(1, faces)
	if err != nil {
		return dist.Distribution{}, err
	}
	total := die
	for i := 1; i < count; i++ {
		total = total.Add(die)
	}
	return total, nil
}

// check validates a die term against structural and resource limits.
func (c *Calculator) check(count, faces int) error {
	if count < 1 {
		return fmt.Errorf("pool: count %d must be >= 1: %w", count, ErrInvalidDie)
	}
	if faces < 1 {
		return fmt.Errorf("pool: d%d must have >= 1 face: %w", faces, ErrInvalidDie)
	}
	if count*faces > c.maxArea {
		return fmt.Errorf("pool: %dd%d area %d exceeds ceiling %d: %w",
			count, faces, count*faces, c.maxArea, ErrPoolTooLarge)
	}
	return nil
}
