package pool

import (
	"errors"
	"fmt"
)

// ErrModifierRange is returned when a keep/drop count or rank position lies
// outside the pool.
var ErrModifierRange = errors.New("modifier out of range")

// RankSet marks which sorted rank positions of a pool contribute to the sum.
// Rank 1 is the lowest die, rank n the highest.
type RankSet struct {
	size int
	sel  []bool // sel[i] reports whether rank i+1 is summed
}

// NewRankSet builds a RankSet over a pool of size dice from explicit rank
// positions. Duplicate positions are allowed and collapse to one.
//
// Postcondition: returns ErrModifierRange when size < 0 or any rank lies
// outside [1, size].
func NewRankSet(size int, ranks []int) (RankSet, error) {
	if size < 0 {
		return RankSet{}, fmt.Errorf("pool: rank set over %d dice: %w", size, ErrModifierRange)
	}
	sel := make([]bool, size)
	for _, r := range ranks {
		if r < 1 || r > size {
			return RankSet{}, fmt.Errorf("pool: rank %d of %d dice: %w", r, size, ErrModifierRange)
		}
		sel[r-1] = true
	}
	return RankSet{size: size, sel: sel}, nil
}

// Top returns the rank set selecting the k highest dice of a size-dice pool.
// k = 0 selects nothing.
//
// Postcondition: returns ErrModifierRange unless 0 <= k <= size.
func Top(size, k int) (RankSet, error) {
	if k < 0 || k > size {
		return RankSet{}, fmt.Errorf("pool: top %d of %d dice: %w", k, size, ErrModifierRange)
	}
	sel := make([]bool, size)
	for i := size - k; i < size; i++ {
		sel[i] = true
	}
	return RankSet{size: size, sel: sel}, nil
}

// Bottom returns the rank set selecting the k lowest dice of a size-dice
// pool. k = 0 selects nothing.
//
// Postcondition: returns ErrModifierRange unless 0 <= k <= size.
func Bottom(size, k int) (RankSet, error) {
	if k < 0 || k > size {
		return RankSet{}, fmt.Errorf("pool: bottom %d of %d dice: %w", k, size, ErrModifierRange)
	}
	sel := make([]bool, size)
	for i := 0; i < k; i++ {
		sel[i] = true
	}
	return RankSet{size: size, sel: sel}, nil
}

// Size returns the pool size the set was built for.
func (r RankSet) Size() int {
	return r.size
}

// Count returns the number of selected ranks.
func (r RankSet) Count() int {
	n := 0
	for _, s := range r.sel {
		if s {
			n++
		}
	}
	return n
}

// Contains reports whether the given rank position is selected.
func (r RankSet) Contains(rank int) bool {
	return rank >= 1 && rank <= r.size && r.sel[rank-1]
}
