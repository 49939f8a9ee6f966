// Package expr defines the dice-expression operator tree and its textual
// parser.
//
// Grammar (case-insensitive, whitespace between arithmetic tokens ignored):
//
//	expression := term (("+" | "-") term)*
//	term       := unary (("*" | "/") unary)*
//	unary      := "-" unary | primary
//	primary    := INT | dice | "(" expression ")" clamp*
//	dice       := [INT] "d" INT [keep] clamp*
//	keep       := ("kh" | "kl" | "dh" | "dl" | "ph" | "pl") INT
//	clamp      := ("mi" | "ma") ["-"] INT
//
// "ph" and "pl" are accepted as aliases for "dh" and "dl". Division is floor
// division. Unary minus parses to a subtraction from zero, keeping the node
// set closed over the four variants below. Reroll ("rr", "ro", "ra") and
// exploding ("e") suffixes are recognized and rejected as unsupported.
package expr

import (
	"fmt"
	"strconv"
)

// Node is one node of a parsed dice expression. The node set is closed:
// Constant, DicePool, BinaryOp, and UnaryClamp are the only implementations,
// and evaluators switch exhaustively over them.
type Node interface {
	// String renders the node in canonical notation. The rendering is stable
	// and reparses to an equal tree, so it doubles as a cache key.
	String() string
	aNode() // marker method restricting implementations to this package
}

// ModifierKind enumerates the keep/drop selection rules for a dice pool.
type ModifierKind uint8

const (
	// ModNone sums every die in the pool.
	ModNone ModifierKind = iota
	// ModKeepHigh sums only the K highest dice.
	ModKeepHigh
	// ModKeepLow sums only the K lowest dice.
	ModKeepLow
	// ModDropHigh discards the K highest dice and sums the rest.
	ModDropHigh
	// ModDropLow discards the K lowest dice and sums the rest.
	ModDropLow
)

// Suffix returns the canonical notation suffix for the kind, or "" for
// ModNone.
func (k ModifierKind) Suffix() string {
	switch k {
	case ModNone:
		return ""
	case ModKeepHigh:
		return "kh"
	case ModKeepLow:
		return "kl"
	case ModDropHigh:
		return "dh"
	case ModDropLow:
		return "dl"
	}
	panic(fmt.Sprintf("expr: unknown modifier kind %d", k))
}

// Modifier is a pool selection rule: keep or drop K dice from one end.
// The zero value means no modifier.
type Modifier struct {
	Kind ModifierKind
	K    int
}

func (m Modifier) String() string {
	if m.Kind == ModNone {
		return ""
	}
	return m.Kind.Suffix() + strconv.Itoa(m.K)
}

// Op enumerates the binary arithmetic operators.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	// OpDiv is floor division, rounding toward negative infinity.
	OpDiv
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	}
	panic(fmt.Sprintf("expr: unknown operator %d", o))
}

// ClampKind enumerates the unary clamp directions.
type ClampKind uint8

const (
	// ClampMin raises outcomes below the bound to the bound ("mi").
	ClampMin ClampKind = iota
	// ClampMax lowers outcomes above the bound to the bound ("ma").
	ClampMax
)

// Suffix returns the notation suffix for the kind.
func (k ClampKind) Suffix() string {
	switch k {
	case ClampMin:
		return "mi"
	case ClampMax:
		return "ma"
	}
	panic(fmt.Sprintf("expr: unknown clamp kind %d", k))
}

// Constant is an integer literal leaf.
type Constant struct {
	Value int
}

func (c Constant) String() string { return strconv.Itoa(c.Value) }
func (Constant) aNode()           {}

// DicePool is a pool of Count identical Faces-sided dice with an optional
// keep/drop modifier.
type DicePool struct {
	Count    int
	Faces    int
	Modifier Modifier
}

func (d DicePool) String() string {
	return fmt.Sprintf("%dd%d%s", d.Count, d.Faces, d.Modifier)
}
func (DicePool) aNode() {}

// BinaryOp combines two independent subtrees with an arithmetic operator.
// Its rendering is always fully parenthesized, which keeps the canonical
// form unambiguous regardless of precedence.
type BinaryOp struct {
	Op    Op
	Left  Node
	Right Node
}

func (b BinaryOp) String() string {
	return "(" + b.Left.String() + b.Op.String() + b.Right.String() + ")"
}
func (BinaryOp) aNode() {}

// UnaryClamp clamps the child subtree's outcome against a constant bound.
// The clamp applies to the subtree's total, so "2d6mi4" raises the summed
// roll to at least 4 rather than clamping each die.
type UnaryClamp struct {
	Kind  ClampKind
	Child Node
	Bound int
}

func (u UnaryClamp) String() string {
	child := u.Child.String()
	// A bare literal cannot carry a suffix in the grammar, so it renders
	// parenthesized to keep the form reparseable.
	if _, ok := u.Child.(Constant); ok {
		child = "(" + child + ")"
	}
	return child + u.Kind.Suffix() + strconv.Itoa(u.Bound)
}
func (UnaryClamp) aNode() {}
