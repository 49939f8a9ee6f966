// Package engine evaluates dice-expression operator trees into exact outcome
// distributions.
//
// Evaluation is a pure bottom-up fold: leaves become base distributions,
// pool modifiers resolve through rank selections, and binary operators
// convolve independent subtree results. An Engine carries no mutable state
// and is safe for concurrent use.
package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicetab/internal/dist"
	"github.com/cory-johannsen/dicetab/internal/expr"
	"github.com/cory-johannsen/dicetab/internal/pool"
)

// ErrMalformedTree is returned when the reducer is handed a structurally
// impossible tree, such as a binary node missing an operand. It indicates a
// bug in the producer of the tree, not bad user input.
var ErrMalformedTree = errors.New("malformed tree")

// Engine reduces operator trees under a configured pool ceiling.
type Engine struct {
	calc   *pool.Calculator
	logger *zap.Logger
}

// New returns an Engine whose pools are bounded by maxPoolArea (count*faces;
// 0 selects pool.DefaultMaxArea). A nil logger disables evaluation logging.
func New(maxPoolArea int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		calc:   pool.NewCalculator(maxPoolArea),
		logger: logger,
	}
}

// MaxPoolArea returns the active ceiling on count*faces per pool.
func (e *Engine) MaxPoolArea() int {
	return e.calc.MaxArea()
}

// Evaluate computes the exact outcome distribution of node.
//
// Postcondition: on success the returned distribution's masses sum to 1; on
// failure no partial distribution is returned and the error wraps one of the
// construction-time kinds (pool.ErrInvalidDie, pool.ErrModifierRange,
// pool.ErrPoolTooLarge, dist.ErrDivisionByZero, ErrMalformedTree).
func (e *Engine) Evaluate(node expr.Node) (dist.Distribution, error) {
	start := time.Now()
	d, err := e.reduce(node)
	if err != nil {
		return dist.Distribution{}, err
	}
	e.logger.Debug("expression evaluated",
		zap.String("expression", node.String()),
		zap.Int("outcomes", d.Len()),
		zap.Float64("mean", d.Mean()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return d, nil
}

// EvaluateExpr parses input and evaluates it in a single call.
func (e *Engine) EvaluateExpr(input string) (dist.Distribution, error) {
	node, err := expr.Parse(input)
	if err != nil {
		return dist.Distribution{}, err
	}
	return e.Evaluate(node)
}

// reduce dispatches over the closed node set, recursing into children first.
func (e *Engine) reduce(node expr.Node) (dist.Distribution, error) {
	switch n := node.(type) {
	case expr.Constant:
		return dist.FromSingleton(n.Value), nil

	case expr.DicePool:
		return e.resolvePool(n)

	case expr.BinaryOp:
		if n.Left == nil || n.Right == nil {
			return dist.Distribution{}, fmt.Errorf("engine: binary operator missing operand: %w", ErrMalformedTree)
		}
		left, err := e.reduce(n.Left)
		if err != nil {
			return dist.Distribution{}, err
		}
		right, err := e.reduce(n.Right)
		if err != nil {
			return dist.Distribution{}, err
		}
		return combine(n.Op, left, right)

	case expr.UnaryClamp:
		if n.Child == nil {
			return dist.Distribution{}, fmt.Errorf("engine: clamp missing child: %w", ErrMalformedTree)
		}
		child, err := e.reduce(n.Child)
		if err != nil {
			return dist.Distribution{}, err
		}
		switch n.Kind {
		case expr.ClampMin:
			return child.ClampMin(n.Bound), nil
		case expr.ClampMax:
			return child.ClampMax(n.Bound), nil
		}
		return dist.Distribution{}, fmt.Errorf("engine: unknown clamp kind %d: %w", n.Kind, ErrMalformedTree)

	case nil:
		return dist.Distribution{}, fmt.Errorf("engine: nil node: %w", ErrMalformedTree)

	default:
		return dist.Distribution{}, fmt.Errorf("engine: unknown node type %T: %w", node, ErrMalformedTree)
	}
}

// combine applies a binary operator to two independent subtree results.
func combine(op expr.Op, left, right dist.Distribution) (dist.Distribution, error) {
	switch op {
	case expr.OpAdd:
		return left.Add(right), nil
	case expr.OpSub:
		return left.Sub(right), nil
	case expr.OpMul:
		return left.Mul(right), nil
	case expr.OpDiv:
		return left.FloorDiv(right)
	}
	return dist.Distribution{}, fmt.Errorf("engine: unknown operator %d: %w", op, ErrMalformedTree)
}

// resolvePool maps a pool's modifier onto a rank selection and delegates to
// the calculator. Unmodified pools take the plain convolution route, which
// agrees exactly with selecting every rank.
func (e *Engine) resolvePool(p expr.DicePool) (dist.Distribution, error) {
	if p.Modifier.Kind == expr.ModNone {
		return e.calc.Sum(p.Count, p.Faces)
	}
	ranks, err := rankSetFor(p.Count, p.Modifier)
	if err != nil {
		return dist.Distribution{}, err
	}
	return e.calc.RankSum(p.Count, p.Faces, ranks)
}

// rankSetFor translates keep/drop notation into sorted rank positions:
// keeping the highest k selects the top k ranks, dropping the lowest k
// selects everything but the bottom k. Out-of-range counts surface as
// pool.ErrModifierRange from the constructors.
func rankSetFor(count int, m expr.Modifier) (pool.RankSet, error) {
	switch m.Kind {
	case expr.ModKeepHigh:
		return pool.Top(count, m.K)
	case expr.ModKeepLow:
		return pool.Bottom(count, m.K)
	case expr.ModDropHigh:
		return pool.Bottom(count, count-m.K)
	case expr.ModDropLow:
		return pool.Top(count, count-m.K)
	}
	return pool.RankSet{}, fmt.Errorf("engine: unknown modifier kind %d: %w", m.Kind, ErrMalformedTree)
}
