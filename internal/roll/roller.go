package roll

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/dicetab/internal/dist"
	"github.com/cory-johannsen/dicetab/internal/engine"
	"github.com/cory-johannsen/dicetab/internal/expr"
	"github.com/cory-johannsen/dicetab/internal/pool"
)

// Roll samples node once using src and returns the audit trail. The error
// kinds match the analysis path: an expression the engine rejects is
// rejected here for the same sentinel, and a sampled divisor of zero
// surfaces as dist.ErrDivisionByZero.
//
// Precondition: src must be non-nil.
// Postcondition: result.Total is the sampled value of the whole tree and
// result.Pools holds one entry per dice pool.
func Roll(node expr.Node, src Source) (RollResult, error) {
	if src == nil {
		panic("roll: Roll called with nil Source")
	}
	w := &walker{src: src}
	total, err := w.sample(node)
	if err != nil {
		return RollResult{}, err
	}
	return RollResult{
		Expression: node.String(),
		Pools:      w.pools,
		Total:      total,
	}, nil
}

// RollExpr parses input and samples it using src in a single call.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a RollResult or a parse/roll error.
func RollExpr(input string, src Source) (RollResult, error) {
	node, err := expr.Parse(input)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(node, src)
}

// walker accumulates pool audits while sampling a tree.
type walker struct {
	src   Source
	pools []PoolRoll
}

func (w *walker) sample(node expr.Node) (int, error) {
	switch n := node.(type) {
	case expr.Constant:
		return n.Value, nil

	case expr.DicePool:
		return w.samplePool(n)

	case expr.BinaryOp:
		if n.Left == nil || n.Right == nil {
			return 0, fmt.Errorf("roll: binary operator missing operand: %w", engine.ErrMalformedTree)
		}
		left, err := w.sample(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := w.sample(n.Right)
		if err != nil {
			return 0, err
		}
		return combine(n.Op, left, right)

	case expr.UnaryClamp:
		if n.Child == nil {
			return 0, fmt.Errorf("roll: clamp missing child: %w", engine.ErrMalformedTree)
		}
		v, err := w.sample(n.Child)
		if err != nil {
			return 0, err
		}
		switch n.Kind {
		case expr.ClampMin:
			if v < n.Bound {
				v = n.Bound
			}
		case expr.ClampMax:
			if v > n.Bound {
				v = n.Bound
			}
		default:
			return 0, fmt.Errorf("roll: unknown clamp kind %d: %w", n.Kind, engine.ErrMalformedTree)
		}
		return v, nil

	case nil:
		return 0, fmt.Errorf("roll: nil node: %w", engine.ErrMalformedTree)

	default:
		return 0, fmt.Errorf("roll: unknown node type %T: %w", node, engine.ErrMalformedTree)
	}
}

// samplePool rolls every die in the pool, applies the keep/drop modifier,
// and records the audit entry.
func (w *walker) samplePool(p expr.DicePool) (int, error) {
	if p.Count < 1 || p.Faces < 1 {
		return 0, fmt.Errorf("roll: %d dice with %d faces: %w", p.Count, p.Faces, pool.ErrInvalidDie)
	}

	rolled := make([]int, p.Count)
	for i := range rolled {
		rolled[i] = w.src.Intn(p.Faces) + 1
	}

	m := p.Modifier
	var kept, dropped []int
	if m.Kind == expr.ModNone {
		kept = rolled
	} else {
		sorted := make([]int, len(rolled))
		copy(sorted, rolled)
		switch m.Kind {
		case expr.ModKeepHigh, expr.ModDropHigh:
			sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
		case expr.ModKeepLow, expr.ModDropLow:
			sort.Ints(sorted)
		default:
			return 0, fmt.Errorf("roll: unknown modifier kind %d: %w", m.Kind, engine.ErrMalformedTree)
		}
		if m.K < 0 || m.K > p.Count {
			return 0, fmt.Errorf("roll: %s on %d dice: %w", m, p.Count, pool.ErrModifierRange)
		}
		switch m.Kind {
		case expr.ModKeepHigh, expr.ModKeepLow:
			kept, dropped = sorted[:m.K], sorted[m.K:]
		default:
			dropped, kept = sorted[:m.K], sorted[m.K:]
		}
	}

	total := 0
	for _, face := range kept {
		total += face
	}
	w.pools = append(w.pools, PoolRoll{
		Notation: p.String(),
		Kept:     kept,
		Dropped:  dropped,
	})
	return total, nil
}

// combine applies a binary operator to two sampled operands.
func combine(op expr.Op, left, right int) (int, error) {
	switch op {
	case expr.OpAdd:
		return left + right, nil
	case expr.OpSub:
		return left - right, nil
	case expr.OpMul:
		return left * right, nil
	case expr.OpDiv:
		if right == 0 {
			return 0, fmt.Errorf("roll: sampled divisor is zero: %w", dist.ErrDivisionByZero)
		}
		return floorDiv(left, right), nil
	}
	return 0, fmt.Errorf("roll: unknown operator %d: %w", op, engine.ErrMalformedTree)
}

// floorDiv divides rounding toward negative infinity, matching the
// distribution combinator's semantics.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
