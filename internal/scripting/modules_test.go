package scripting_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicetab/internal/engine"
	"github.com/cory-johannsen/dicetab/internal/scripting"
)

func newModuleState(t testing.TB) *lua.LState {
	t.Helper()
	L, cancel := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	t.Cleanup(func() {
		cancel()
		L.Close()
	})
	scripting.RegisterDiceModule(L, engine.New(0, zaptest.NewLogger(t)))
	return L
}

// luaNumber runs src, which must assign the global result, and returns it.
func luaNumber(t *testing.T, L *lua.LState, src string) float64 {
	t.Helper()
	require.NoError(t, L.DoString(src))
	n, ok := L.GetGlobal("result").(lua.LNumber)
	require.True(t, ok, "expected numeric result, got %T", L.GetGlobal("result"))
	return float64(n)
}

func TestDiceEval_TwoD6_Table(t *testing.T) {
	L := newModuleState(t)
	require.NoError(t, L.DoString(`result = dice.eval("2d6")`))

	tbl, ok := L.GetGlobal("result").(*lua.LTable)
	require.True(t, ok, "expected table, got %T", L.GetGlobal("result"))
	assert.Equal(t, lua.LString("2d6"), tbl.RawGetString("expression"))
	assert.Equal(t, lua.LNumber(2), tbl.RawGetString("min"))
	assert.Equal(t, lua.LNumber(12), tbl.RawGetString("max"))

	mean, ok := tbl.RawGetString("mean").(lua.LNumber)
	require.True(t, ok)
	assert.InDelta(t, 7.0, float64(mean), 1e-12)

	masses, ok := tbl.RawGetString("masses").(*lua.LTable)
	require.True(t, ok, "expected masses table")
	seven, ok := masses.RawGetInt(7).(lua.LNumber)
	require.True(t, ok)
	assert.InDelta(t, 6.0/36.0, float64(seven), 1e-12)
}

func TestDiceEval_CanonicalExpression(t *testing.T) {
	L := newModuleState(t)
	require.NoError(t, L.DoString(`result = dice.eval("2d6 + 4").expression`))
	assert.Equal(t, lua.LString("(2d6+4)"), L.GetGlobal("result"))
}

func TestDiceProb_TwoD6_Seven(t *testing.T) {
	L := newModuleState(t)
	p := luaNumber(t, L, `result = dice.prob("2d6", 7)`)
	assert.InDelta(t, 6.0/36.0, p, 1e-12)
}

func TestDiceAtLeast_AtMost_D6(t *testing.T) {
	L := newModuleState(t)
	assert.InDelta(t, 0.5, luaNumber(t, L, `result = dice.atleast("1d6", 4)`), 1e-12)
	assert.InDelta(t, 0.5, luaNumber(t, L, `result = dice.atmost("1d6", 3)`), 1e-12)
}

func TestDiceAtLeast_KeepHighest(t *testing.T) {
	L := newModuleState(t)
	p := luaNumber(t, L, `result = dice.atleast("2d20kh1", 20)`)
	assert.InDelta(t, 39.0/400.0, p, 1e-12)
}

func TestDiceMean_DropLowest(t *testing.T) {
	L := newModuleState(t)
	m := luaNumber(t, L, `result = dice.mean("4d6dl1")`)
	assert.InDelta(t, 12.2446, m, 1e-3)
}

func TestDiceStdev_TwoD6(t *testing.T) {
	L := newModuleState(t)
	s := luaNumber(t, L, `result = dice.stdev("2d6")`)
	assert.InDelta(t, 2.41523, s, 1e-4)
}

func TestDiceAdvantage_D20(t *testing.T) {
	L := newModuleState(t)
	p := luaNumber(t, L, `result = dice.advantage("1d20").masses[20]`)
	assert.InDelta(t, 39.0/400.0, p, 1e-12)
}

func TestDiceDisadvantage_D20(t *testing.T) {
	L := newModuleState(t)
	p := luaNumber(t, L, `result = dice.disadvantage("1d20").masses[1]`)
	assert.InDelta(t, 39.0/400.0, p, 1e-12)
}

func TestDiceEval_SyntaxError_RaisesLuaError(t *testing.T) {
	L := newModuleState(t)
	err := L.DoString(`result = dice.eval("2d")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dice.eval")
}

func TestDiceEval_PcallTrapsFailure(t *testing.T) {
	L := newModuleState(t)
	require.NoError(t, L.DoString(`
		local ok = pcall(function() return dice.eval("9999d9999") end)
		result = ok
	`))
	assert.Equal(t, lua.LFalse, L.GetGlobal("result"))
}

func TestDiceProb_MissingArgument_RaisesLuaError(t *testing.T) {
	L := newModuleState(t)
	assert.Error(t, L.DoString(`result = dice.prob("2d6")`))
}

func TestProperty_MassesSumToOne(t *testing.T) {
	L := newModuleState(t)
	rapid.Check(t, func(rt *rapid.T) {
		e := rapid.SampledFrom([]string{
			"1d4", "2d6", "4d6kh2", "2d20kh1", "1d8 + 2", "3d6mi5",
		}).Draw(rt, "expr")
		src := fmt.Sprintf(`
			local r = dice.eval(%q)
			local sum = 0
			for _, m in pairs(r.masses) do sum = sum + m end
			result = sum
		`, e)
		require.NoError(rt, L.DoString(src))
		n, ok := L.GetGlobal("result").(lua.LNumber)
		require.True(rt, ok)
		assert.InDelta(rt, 1.0, float64(n), 1e-9, "masses of %s must sum to 1", e)
	})
}

func TestProperty_CumulativeAtExtremes(t *testing.T) {
	L := newModuleState(t)
	rapid.Check(t, func(rt *rapid.T) {
		e := rapid.SampledFrom([]string{
			"1d6", "2d8", "4d6dl1", "2d10kl1", "1d12 - 3",
		}).Draw(rt, "expr")
		src := fmt.Sprintf(`
			local r = dice.eval(%q)
			result = dice.atleast(%q, r.min) + dice.atmost(%q, r.max)
		`, e, e, e)
		require.NoError(rt, L.DoString(src))
		n, ok := L.GetGlobal("result").(lua.LNumber)
		require.True(rt, ok)
		assert.InDelta(rt, 2.0, float64(n), 1e-9, "cumulative odds at the extremes of %s", e)
	})
}
