package expr_test

import (
	"testing"

	"github.com/cory-johannsen/dicetab/internal/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestParse_PlainPool covers the basic NdY forms.
func TestParse_PlainPool(t *testing.T) {
	n, err := expr.Parse("2d6")
	require.NoError(t, err)
	assert.Equal(t, expr.DicePool{Count: 2, Faces: 6}, n)
}

// TestParse_ImpliedCount verifies a bare dY defaults to one die.
func TestParse_ImpliedCount(t *testing.T) {
	n, err := expr.Parse("d20")
	require.NoError(t, err)
	assert.Equal(t, expr.DicePool{Count: 1, Faces: 20}, n)
}

// TestParse_Constants covers literals including the folded unary minus.
func TestParse_Constants(t *testing.T) {
	n, err := expr.Parse("42")
	require.NoError(t, err)
	assert.Equal(t, expr.Constant{Value: 42}, n)

	n, err = expr.Parse("-7")
	require.NoError(t, err)
	assert.Equal(t, expr.Constant{Value: -7}, n)
}

// TestParse_KeepDropModifiers covers all four keep/drop kinds and the ph/pl
// aliases.
func TestParse_KeepDropModifiers(t *testing.T) {
	cases := []struct {
		input string
		want  expr.Modifier
	}{
		{"4d6kh3", expr.Modifier{Kind: expr.ModKeepHigh, K: 3}},
		{"4d6kl2", expr.Modifier{Kind: expr.ModKeepLow, K: 2}},
		{"4d6dh1", expr.Modifier{Kind: expr.ModDropHigh, K: 1}},
		{"4d6dl1", expr.Modifier{Kind: expr.ModDropLow, K: 1}},
		{"4d6ph1", expr.Modifier{Kind: expr.ModDropHigh, K: 1}},
		{"4d6pl1", expr.Modifier{Kind: expr.ModDropLow, K: 1}},
	}
	for _, tc := range cases {
		n, err := expr.Parse(tc.input)
		require.NoError(t, err, tc.input)
		pool, ok := n.(expr.DicePool)
		require.True(t, ok, tc.input)
		assert.Equal(t, tc.want, pool.Modifier, tc.input)
	}
}

// TestParse_AliasCanonicalizes verifies ph/pl render as dh/dl.
func TestParse_AliasCanonicalizes(t *testing.T) {
	n, err := expr.Parse("4d6pl1")
	require.NoError(t, err)
	assert.Equal(t, "4d6dl1", n.String())
}

// TestParse_Precedence verifies * and / bind tighter than + and -.
func TestParse_Precedence(t *testing.T) {
	n, err := expr.Parse("1+2*3")
	require.NoError(t, err)
	assert.Equal(t, expr.BinaryOp{
		Op:   expr.OpAdd,
		Left: expr.Constant{Value: 1},
		Right: expr.BinaryOp{
			Op:    expr.OpMul,
			Left:  expr.Constant{Value: 2},
			Right: expr.Constant{Value: 3},
		},
	}, n)
}

// TestParse_LeftAssociative verifies chains fold left to right.
func TestParse_LeftAssociative(t *testing.T) {
	n, err := expr.Parse("8-3-2")
	require.NoError(t, err)
	assert.Equal(t, "((8-3)-2)", n.String())
}

// TestParse_Parens verifies grouping overrides precedence.
func TestParse_Parens(t *testing.T) {
	n, err := expr.Parse("(2d6+1)*2")
	require.NoError(t, err)
	assert.Equal(t, expr.BinaryOp{
		Op: expr.OpMul,
		Left: expr.BinaryOp{
			Op:    expr.OpAdd,
			Left:  expr.DicePool{Count: 2, Faces: 6},
			Right: expr.Constant{Value: 1},
		},
		Right: expr.Constant{Value: 2},
	}, n)
}

// TestParse_UnaryMinusOnPool verifies non-literal negation desugars to a
// subtraction from zero.
func TestParse_UnaryMinusOnPool(t *testing.T) {
	n, err := expr.Parse("-2d6")
	require.NoError(t, err)
	assert.Equal(t, expr.BinaryOp{
		Op:    expr.OpSub,
		Left:  expr.Constant{Value: 0},
		Right: expr.DicePool{Count: 2, Faces: 6},
	}, n)
}

// TestParse_Clamps covers min/max suffixes on pools and groups, including
// stacking and negative bounds.
func TestParse_Clamps(t *testing.T) {
	n, err := expr.Parse("14d6mi2")
	require.NoError(t, err)
	assert.Equal(t, expr.UnaryClamp{
		Kind:  expr.ClampMin,
		Child: expr.DicePool{Count: 14, Faces: 6},
		Bound: 2,
	}, n)

	n, err = expr.Parse("(2d6+1)ma10")
	require.NoError(t, err)
	clamp, ok := n.(expr.UnaryClamp)
	require.True(t, ok)
	assert.Equal(t, expr.ClampMax, clamp.Kind)
	assert.Equal(t, 10, clamp.Bound)

	n, err = expr.Parse("2d6mi2ma10")
	require.NoError(t, err)
	outer, ok := n.(expr.UnaryClamp)
	require.True(t, ok)
	assert.Equal(t, expr.ClampMax, outer.Kind)
	inner, ok := outer.Child.(expr.UnaryClamp)
	require.True(t, ok)
	assert.Equal(t, expr.ClampMin, inner.Kind)

	n, err = expr.Parse("1d4mi-2")
	require.NoError(t, err)
	assert.Equal(t, -2, n.(expr.UnaryClamp).Bound)
}

// TestParse_ClampAfterKeep verifies modifier ordering on a single pool.
func TestParse_ClampAfterKeep(t *testing.T) {
	n, err := expr.Parse("4d6kh3mi5")
	require.NoError(t, err)
	clamp, ok := n.(expr.UnaryClamp)
	require.True(t, ok)
	pool, ok := clamp.Child.(expr.DicePool)
	require.True(t, ok)
	assert.Equal(t, expr.ModKeepHigh, pool.Modifier.Kind)
}

// TestParse_CaseAndWhitespace verifies input is case-insensitive and spaces
// between arithmetic tokens are ignored.
func TestParse_CaseAndWhitespace(t *testing.T) {
	n, err := expr.Parse("  2D6 + 4 ")
	require.NoError(t, err)
	assert.Equal(t, "(2d6+4)", n.String())

	n, err = expr.Parse("4D6KH3")
	require.NoError(t, err)
	assert.Equal(t, "4d6kh3", n.String())
}

// TestParse_SyntaxErrors covers the malformed-input table.
func TestParse_SyntaxErrors(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"2d",
		"2d0",
		"0d6",
		"2d6kh",
		"xyz",
		"(2d6",
		"2d6)",
		"4d6kh3kl2",
		"2d6mi",
		"2d6+",
		"*3",
		"3 d6",
		"2d6mi2kh1",
	}
	for _, input := range inputs {
		_, err := expr.Parse(input)
		require.Error(t, err, "input %q", input)
		assert.ErrorIs(t, err, expr.ErrSyntax, "input %q", input)
	}
}

// TestParse_UnsupportedModifiers verifies reroll and exploding suffixes are
// rejected with their own error, not a generic syntax failure.
func TestParse_UnsupportedModifiers(t *testing.T) {
	for _, input := range []string{"2d6rr1", "4d6ro1", "1d6ra2", "3d6e"} {
		_, err := expr.Parse(input)
		require.Error(t, err, "input %q", input)
		assert.ErrorIs(t, err, expr.ErrUnsupportedModifier, "input %q", input)
	}
}

// TestMustParse_PanicsOnError verifies the panic path.
func TestMustParse_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() { expr.MustParse("not dice") })
	assert.NotPanics(t, func() { expr.MustParse("2d6") })
}

// genNode builds an arbitrary operator tree of bounded depth.
func genNode(rt *rapid.T, depth int) expr.Node {
	max := 3
	if depth <= 0 {
		max = 1
	}
	switch rapid.IntRange(0, max).Draw(rt, "variant") {
	case 0:
		return expr.Constant{Value: rapid.IntRange(-99, 99).Draw(rt, "value")}
	case 1:
		pool := expr.DicePool{
			Count: rapid.IntRange(1, 9).Draw(rt, "count"),
			Faces: rapid.IntRange(1, 99).Draw(rt, "faces"),
		}
		kind := expr.ModifierKind(rapid.IntRange(0, 4).Draw(rt, "modKind"))
		if kind != expr.ModNone {
			pool.Modifier = expr.Modifier{Kind: kind, K: rapid.IntRange(0, 9).Draw(rt, "k")}
		}
		return pool
	case 2:
		return expr.BinaryOp{
			Op:    expr.Op(rapid.IntRange(0, 3).Draw(rt, "op")),
			Left:  genNode(rt, depth-1),
			Right: genNode(rt, depth-1),
		}
	default:
		return expr.UnaryClamp{
			Kind:  expr.ClampKind(rapid.IntRange(0, 1).Draw(rt, "clampKind")),
			Child: genNode(rt, depth-1),
			Bound: rapid.IntRange(-20, 20).Draw(rt, "bound"),
		}
	}
}

// TestParse_RoundTrip_Property verifies String() is a faithful canonical
// form: parsing it reproduces the exact tree.
func TestParse_RoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tree := genNode(rt, 3)
		rendered := tree.String()

		reparsed, err := expr.Parse(rendered)
		require.NoError(rt, err, "rendering %q", rendered)
		assert.Equal(rt, tree, reparsed, "rendering %q", rendered)
		assert.Equal(rt, rendered, reparsed.String())
	})
}
