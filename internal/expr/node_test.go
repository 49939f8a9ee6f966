package expr_test

import (
	"testing"

	"github.com/cory-johannsen/dicetab/internal/expr"
	"github.com/stretchr/testify/assert"
)

// TestNodeString_Canonical verifies the canonical rendering of each node
// variant.
func TestNodeString_Canonical(t *testing.T) {
	cases := []struct {
		node expr.Node
		want string
	}{
		{expr.Constant{Value: 42}, "42"},
		{expr.Constant{Value: -7}, "-7"},
		{expr.DicePool{Count: 2, Faces: 6}, "2d6"},
		{
			expr.DicePool{Count: 4, Faces: 6, Modifier: expr.Modifier{Kind: expr.ModKeepHigh, K: 3}},
			"4d6kh3",
		},
		{
			expr.DicePool{Count: 4, Faces: 6, Modifier: expr.Modifier{Kind: expr.ModDropLow, K: 1}},
			"4d6dl1",
		},
		{
			expr.BinaryOp{
				Op:    expr.OpAdd,
				Left:  expr.DicePool{Count: 2, Faces: 6},
				Right: expr.Constant{Value: 4},
			},
			"(2d6+4)",
		},
		{
			expr.UnaryClamp{
				Kind:  expr.ClampMin,
				Child: expr.DicePool{Count: 14, Faces: 6},
				Bound: 2,
			},
			"14d6mi2",
		},
		{
			expr.UnaryClamp{Kind: expr.ClampMax, Child: expr.Constant{Value: 3}, Bound: 10},
			"(3)ma10",
		},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.node.String())
	}
}

// TestModifierSuffixes verifies the keep/drop notation table.
func TestModifierSuffixes(t *testing.T) {
	assert.Equal(t, "", expr.ModNone.Suffix())
	assert.Equal(t, "kh", expr.ModKeepHigh.Suffix())
	assert.Equal(t, "kl", expr.ModKeepLow.Suffix())
	assert.Equal(t, "dh", expr.ModDropHigh.Suffix())
	assert.Equal(t, "dl", expr.ModDropLow.Suffix())
	assert.Equal(t, "", expr.Modifier{}.String())
}

// TestOpString verifies operator rendering and the closed-set panic.
func TestOpString(t *testing.T) {
	assert.Equal(t, "+", expr.OpAdd.String())
	assert.Equal(t, "-", expr.OpSub.String())
	assert.Equal(t, "*", expr.OpMul.String())
	assert.Equal(t, "/", expr.OpDiv.String())
	assert.Panics(t, func() { _ = expr.Op(99).String() })
}
