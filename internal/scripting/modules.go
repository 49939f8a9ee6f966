package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/dicetab/internal/dist"
	"github.com/cory-johannsen/dicetab/internal/engine"
	"github.com/cory-johannsen/dicetab/internal/expr"
	"github.com/cory-johannsen/dicetab/internal/query"
)

// RegisterDiceModule registers the dice.* Lua table into L, backed by eng.
//
// Scripts see:
//
//	dice.eval(expr)          -> table{expression, mean, stdev, min, max, masses}
//	dice.prob(expr, v)       -> P(X == v)
//	dice.atleast(expr, v)    -> P(X >= v)
//	dice.atmost(expr, v)     -> P(X <= v)
//	dice.mean(expr)          -> number
//	dice.stdev(expr)         -> number
//	dice.advantage(expr)     -> table for the higher of two evaluations
//	dice.disadvantage(expr)  -> table for the lower of two evaluations
//
// Evaluation failures (syntax errors, oversized pools, division by zero)
// surface as Lua errors carrying the function name; scripts may trap them
// with pcall.
//
// Precondition: L must be from NewSandboxedState; eng must be non-nil.
// Postcondition: dice global is defined in L.
func RegisterDiceModule(L *lua.LState, eng *engine.Engine) {
	m := &diceModule{eng: eng}
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"eval":         m.eval,
		"prob":         m.prob,
		"atleast":      m.atleast,
		"atmost":       m.atmost,
		"mean":         m.mean,
		"stdev":        m.stdev,
		"advantage":    m.advantage,
		"disadvantage": m.disadvantage,
	})
	L.SetGlobal("dice", mod)
}

// diceModule binds an engine to the functions of the dice table.
type diceModule struct {
	eng *engine.Engine
}

// evaluate parses and evaluates input, raising a Lua error named after fn on
// failure. The canonical rendering is returned alongside the distribution so
// result tables echo what the engine computed.
func (m *diceModule) evaluate(L *lua.LState, fn, input string) (string, dist.Distribution) {
	node, err := expr.Parse(input)
	if err != nil {
		L.RaiseError("%s: %v", fn, err)
	}
	d, err := m.eng.Evaluate(node)
	if err != nil {
		L.RaiseError("%s: %v", fn, err)
	}
	return node.String(), d
}

func (m *diceModule) eval(L *lua.LState) int {
	canonical, d := m.evaluate(L, "dice.eval", L.CheckString(1))
	L.Push(distTable(L, canonical, d))
	return 1
}

func (m *diceModule) prob(L *lua.LState) int {
	input, v := L.CheckString(1), L.CheckInt(2)
	canonical, d := m.evaluate(L, "dice.prob", input)
	L.Push(lua.LNumber(query.New(canonical, d).P(v)))
	return 1
}

func (m *diceModule) atleast(L *lua.LState) int {
	input, v := L.CheckString(1), L.CheckInt(2)
	canonical, d := m.evaluate(L, "dice.atleast", input)
	L.Push(lua.LNumber(query.New(canonical, d).AtLeast(v)))
	return 1
}

func (m *diceModule) atmost(L *lua.LState) int {
	input, v := L.CheckString(1), L.CheckInt(2)
	canonical, d := m.evaluate(L, "dice.atmost", input)
	L.Push(lua.LNumber(query.New(canonical, d).AtMost(v)))
	return 1
}

func (m *diceModule) mean(L *lua.LState) int {
	_, d := m.evaluate(L, "dice.mean", L.CheckString(1))
	L.Push(lua.LNumber(d.Mean()))
	return 1
}

func (m *diceModule) stdev(L *lua.LState) int {
	_, d := m.evaluate(L, "dice.stdev", L.CheckString(1))
	L.Push(lua.LNumber(d.Stdev()))
	return 1
}

func (m *diceModule) advantage(L *lua.LState) int {
	canonical, d := m.evaluate(L, "dice.advantage", L.CheckString(1))
	L.Push(distTable(L, canonical, d.Advantage()))
	return 1
}

func (m *diceModule) disadvantage(L *lua.LState) int {
	canonical, d := m.evaluate(L, "dice.disadvantage", L.CheckString(1))
	L.Push(distTable(L, canonical, d.Disadvantage()))
	return 1
}

// distTable converts d into a Lua table with summary fields and a masses
// sub-table keyed by outcome value.
func distTable(L *lua.LState, expression string, d dist.Distribution) *lua.LTable {
	masses := L.NewTable()
	for _, v := range d.Keys() {
		masses.RawSetInt(v, lua.LNumber(d.Get(v)))
	}
	tbl := L.NewTable()
	L.SetField(tbl, "expression", lua.LString(expression))
	L.SetField(tbl, "mean", lua.LNumber(d.Mean()))
	L.SetField(tbl, "stdev", lua.LNumber(d.Stdev()))
	L.SetField(tbl, "min", lua.LNumber(d.Min()))
	L.SetField(tbl, "max", lua.LNumber(d.Max()))
	L.SetField(tbl, "masses", masses)
	return tbl
}
