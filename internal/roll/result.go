package roll

import (
	"fmt"
	"strings"
)

// PoolRoll records one dice pool's contribution to a sample. Kept and
// Dropped are sorted in the modifier's ranking direction; unmodified pools
// keep their roll order and drop nothing.
type PoolRoll struct {
	Notation string // canonical pool notation, e.g. "4d6kh2"
	Kept     []int  // faces counted into the total
	Dropped  []int  // faces discarded by the keep/drop modifier
}

// String renders one pool audit, e.g. "4d6kh2[6 5 | 3 1]" or "2d6[4 5]".
func (p PoolRoll) String() string {
	if len(p.Dropped) == 0 {
		return fmt.Sprintf("%s%v", p.Notation, p.Kept)
	}
	kept := strings.Trim(fmt.Sprintf("%v", p.Kept), "[]")
	dropped := strings.Trim(fmt.Sprintf("%v", p.Dropped), "[]")
	return fmt.Sprintf("%s[%s | %s]", p.Notation, kept, dropped)
}

// RollResult holds the full audit trail for a single sampled evaluation.
// Pools appear in left-to-right evaluation order.
type RollResult struct {
	Expression string     // canonical expression, from Node.String()
	Pools      []PoolRoll // one entry per dice pool in the tree
	Total      int        // sampled value of the whole expression
}

// String returns a human-readable audit string in the format:
//
//	"(2d6kh1+4) → 2d6kh1[6 | 3] = 10"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("roll: RollResult.String() precondition violated: Expression must be non-empty")
	}
	if len(r.Pools) == 0 {
		return fmt.Sprintf("%s → %d", r.Expression, r.Total)
	}
	audits := make([]string, len(r.Pools))
	for i, p := range r.Pools {
		audits[i] = p.String()
	}
	return fmt.Sprintf("%s → %s = %d", r.Expression, strings.Join(audits, " "), r.Total)
}
