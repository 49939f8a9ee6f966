package roll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicetab/internal/dist"
	"github.com/cory-johannsen/dicetab/internal/engine"
	"github.com/cory-johannsen/dicetab/internal/expr"
	"github.com/cory-johannsen/dicetab/internal/pool"
	"github.com/cory-johannsen/dicetab/internal/roll"
)

func sum(faces []int) int {
	total := 0
	for _, f := range faces {
		total += f
	}
	return total
}

// TestPoolRoll_String verifies the audit format with and without drops.
func TestPoolRoll_String(t *testing.T) {
	p := roll.PoolRoll{Notation: "4d6kh2", Kept: []int{6, 5}, Dropped: []int{3, 1}}
	assert.Equal(t, "4d6kh2[6 5 | 3 1]", p.String())

	plain := roll.PoolRoll{Notation: "2d6", Kept: []int{4, 5}}
	assert.Equal(t, "2d6[4 5]", plain.String())
}

// TestRollResult_String verifies the audit line format.
func TestRollResult_String(t *testing.T) {
	r := roll.RollResult{
		Expression: "(2d6+3)",
		Pools:      []roll.PoolRoll{{Notation: "2d6", Kept: []int{4, 5}}},
		Total:      12,
	}
	s := r.String()
	require.Contains(t, s, "(2d6+3)", "String() must contain the expression")
	require.Contains(t, s, "2d6[4 5]", "String() must contain the pool audit")
	assert.Equal(t, "(2d6+3) → 2d6[4 5] = 12", s)
}

// TestRollResult_String_NoPools verifies constant expressions render without
// an audit section.
func TestRollResult_String_NoPools(t *testing.T) {
	r := roll.RollResult{Expression: "(3+4)", Total: 7}
	assert.Equal(t, "(3+4) → 7", r.String())
}

// TestRollResult_String_PanicsOnEmptyExpression verifies that String()
// enforces its precondition and panics when Expression is empty.
func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := roll.RollResult{Total: 4}
	assert.Panics(t, func() { _ = r.String() })
}

// TestCryptoSource_Intn_InRange verifies the postcondition:
// every value returned by Intn(6) is in [0, 6).
func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := roll.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

// TestCryptoSource_Intn_PanicsOnZero verifies the precondition:
// Intn panics when called with n <= 0.
func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := roll.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

// TestSeededSource_Deterministic verifies two sources built from the same
// seed produce identical draw sequences.
func TestSeededSource_Deterministic(t *testing.T) {
	a := roll.NewSeededSource(42)
	b := roll.NewSeededSource(42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000), "draw %d diverged", i)
	}
}

func TestSeededSource_Intn_PanicsOnZero(t *testing.T) {
	src := roll.NewSeededSource(1)
	assert.Panics(t, func() { src.Intn(0) })
}

// TestRoll_PlainPoolAudit verifies an unmodified pool keeps every die and
// drops none.
func TestRoll_PlainPoolAudit(t *testing.T) {
	r, err := roll.RollExpr("3d6", roll.NewSeededSource(7))
	require.NoError(t, err)

	require.Len(t, r.Pools, 1)
	p := r.Pools[0]
	assert.Equal(t, "3d6", p.Notation)
	assert.Len(t, p.Kept, 3)
	assert.Empty(t, p.Dropped)
	for _, face := range p.Kept {
		assert.GreaterOrEqual(t, face, 1)
		assert.LessOrEqual(t, face, 6)
	}
	assert.Equal(t, sum(p.Kept), r.Total)
}

// TestRoll_KeepHighAudit verifies kh splits the pool so every kept die is
// at least every dropped die.
func TestRoll_KeepHighAudit(t *testing.T) {
	r, err := roll.RollExpr("4d6kh2", roll.NewSeededSource(11))
	require.NoError(t, err)

	require.Len(t, r.Pools, 1)
	p := r.Pools[0]
	assert.Len(t, p.Kept, 2)
	assert.Len(t, p.Dropped, 2)
	assert.GreaterOrEqual(t, p.Kept[0], p.Kept[1], "kept faces sorted high to low")
	assert.GreaterOrEqual(t, p.Kept[1], p.Dropped[0], "every kept face >= every dropped face")
	assert.Equal(t, sum(p.Kept), r.Total)
}

// TestRoll_DropLowAudit verifies dl discards only the lowest faces.
func TestRoll_DropLowAudit(t *testing.T) {
	r, err := roll.RollExpr("4d6dl1", roll.NewSeededSource(3))
	require.NoError(t, err)

	p := r.Pools[0]
	assert.Len(t, p.Kept, 3)
	assert.Len(t, p.Dropped, 1)
	assert.LessOrEqual(t, p.Dropped[0], p.Kept[0], "dropped face <= every kept face")
	assert.Equal(t, sum(p.Kept), r.Total)
}

// TestRoll_ConstantExpression verifies a dice-free tree samples to its
// arithmetic value with no pool audits.
func TestRoll_ConstantExpression(t *testing.T) {
	r, err := roll.RollExpr("3 + 4", roll.NewSeededSource(1))
	require.NoError(t, err)
	assert.Equal(t, 7, r.Total)
	assert.Empty(t, r.Pools)
	assert.Equal(t, "(3+4) → 7", r.String())
}

// TestRoll_ClampFloor verifies mi raises every sampled total to the bound.
func TestRoll_ClampFloor(t *testing.T) {
	src := roll.NewSeededSource(5)
	for i := 0; i < 100; i++ {
		r, err := roll.RollExpr("2d6mi7", src)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.Total, 7)
	}
}

// TestRoll_Deterministic verifies the same seed reproduces the same audit.
func TestRoll_Deterministic(t *testing.T) {
	first, err := roll.RollExpr("2d20kh1 + 1d4", roll.NewSeededSource(99))
	require.NoError(t, err)
	second, err := roll.RollExpr("2d20kh1 + 1d4", roll.NewSeededSource(99))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.String(), second.String())
}

// TestRoll_MatchesRollExpr verifies the parsed-tree and string entry points
// agree when fed the same seed.
func TestRoll_MatchesRollExpr(t *testing.T) {
	node := expr.MustParse("4d6dl1 + 2")
	byNode, err := roll.Roll(node, roll.NewSeededSource(21))
	require.NoError(t, err)
	byString, err := roll.RollExpr("4d6dl1 + 2", roll.NewSeededSource(21))
	require.NoError(t, err)
	assert.Equal(t, byNode, byString)
}

// TestRoll_TotalsWithinSupport verifies every sampled total is an outcome
// the exact distribution assigns positive mass.
func TestRoll_TotalsWithinSupport(t *testing.T) {
	eng := engine.New(0, nil)
	exprs := []string{
		"2d6",
		"1d8 + 4",
		"4d6kh2",
		"2d20kh1",
		"4d6dl1",
		"1d6 / 2",
		"2d6mi7",
		"-2d6 + 20",
	}
	for _, input := range exprs {
		d, err := eng.EvaluateExpr(input)
		require.NoError(t, err, "evaluating %s", input)

		src := roll.NewSeededSource(17)
		for i := 0; i < 100; i++ {
			r, err := roll.RollExpr(input, src)
			require.NoError(t, err, "sampling %s", input)
			assert.Greater(t, d.Get(r.Total), 0.0,
				"%s sampled %d which has no mass", input, r.Total)
		}
	}
}

// TestRoll_SampledDivisorZero verifies a certain-zero divisor fails with
// the division sentinel.
func TestRoll_SampledDivisorZero(t *testing.T) {
	_, err := roll.RollExpr("1d1/(1d1-1)", roll.NewSeededSource(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, dist.ErrDivisionByZero)
}

// TestRoll_ModifierOutOfRange verifies keeping more dice than rolled fails
// with the modifier sentinel, matching the analysis path.
func TestRoll_ModifierOutOfRange(t *testing.T) {
	_, err := roll.RollExpr("2d6kh3", roll.NewSeededSource(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, pool.ErrModifierRange)
}

// TestRoll_InvalidDie verifies hand-built pools with impossible geometry
// fail with the die sentinel.
func TestRoll_InvalidDie(t *testing.T) {
	_, err := roll.Roll(expr.DicePool{Count: 0, Faces: 6}, roll.NewSeededSource(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, pool.ErrInvalidDie)

	_, err = roll.Roll(expr.DicePool{Count: 2, Faces: 0}, roll.NewSeededSource(1))
	assert.ErrorIs(t, err, pool.ErrInvalidDie)
}

// TestRoll_MalformedTree verifies hand-built trees with missing pieces are
// rejected with the reducer's sentinel.
func TestRoll_MalformedTree(t *testing.T) {
	src := roll.NewSeededSource(1)

	_, err := roll.Roll(nil, src)
	assert.ErrorIs(t, err, engine.ErrMalformedTree)

	_, err = roll.Roll(expr.BinaryOp{Op: expr.OpAdd, Left: expr.Constant{Value: 1}}, src)
	assert.ErrorIs(t, err, engine.ErrMalformedTree)

	_, err = roll.Roll(expr.UnaryClamp{Kind: expr.ClampMin, Bound: 3}, src)
	assert.ErrorIs(t, err, engine.ErrMalformedTree)
}

// TestRollExpr_ParseError verifies parse failures pass through unchanged.
func TestRollExpr_ParseError(t *testing.T) {
	_, err := roll.RollExpr("2d", roll.NewSeededSource(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, expr.ErrSyntax)
}

// TestLoggedRoller verifies the logging wrapper samples and returns results.
func TestLoggedRoller(t *testing.T) {
	roller := roll.NewLoggedRoller(roll.NewSeededSource(13), zaptest.NewLogger(t))

	r, err := roller.RollExpr("2d6")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.Total, 2)
	assert.LessOrEqual(t, r.Total, 12)

	r, err = roller.Roll(expr.MustParse("1d4 + 1"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.Total, 2)
	assert.LessOrEqual(t, r.Total, 5)
}

// TestLoggedRoller_ParseError verifies parse failures surface through the
// logging wrapper.
func TestLoggedRoller_ParseError(t *testing.T) {
	roller := roll.NewLoggedRoller(roll.NewSeededSource(1), zaptest.NewLogger(t))
	_, err := roller.RollExpr("d")
	assert.Error(t, err)
}

// TestRoll_PoolPartition_Property verifies, for arbitrary pools, that kept
// and dropped always partition the dice and the total sums the kept faces.
func TestRoll_PoolPartition_Property(t *testing.T) {
	suffixes := []string{"kh", "kl", "dh", "dl"}
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 8).Draw(rt, "count")
		faces := rapid.IntRange(1, 12).Draw(rt, "faces")
		k := rapid.IntRange(0, count).Draw(rt, "k")
		suffix := suffixes[rapid.IntRange(0, 3).Draw(rt, "suffix")]
		seed := rapid.Int64().Draw(rt, "seed")

		input := expr.DicePool{
			Count: count,
			Faces: faces,
			Modifier: expr.Modifier{
				Kind: modifierKind(suffix),
				K:    k,
			},
		}
		r, err := roll.Roll(input, roll.NewSeededSource(seed))
		require.NoError(rt, err)

		p := r.Pools[0]
		assert.Equal(rt, count, len(p.Kept)+len(p.Dropped),
			"kept and dropped must partition the pool")
		assert.Equal(rt, sum(p.Kept), r.Total)
		for _, face := range append(append([]int{}, p.Kept...), p.Dropped...) {
			assert.GreaterOrEqual(rt, face, 1)
			assert.LessOrEqual(rt, face, faces)
		}
	})
}

func modifierKind(suffix string) expr.ModifierKind {
	switch suffix {
	case "kh":
		return expr.ModKeepHigh
	case "kl":
		return expr.ModKeepLow
	case "dh":
		return expr.ModDropHigh
	default:
		return expr.ModDropLow
	}
}
