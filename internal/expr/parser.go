package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is returned for malformed expression text.
var ErrSyntax = errors.New("syntax error")

// ErrUnsupportedModifier is returned for recognized dice suffixes outside
// the supported set: rerolls ("rr", "ro", "ra") and exploding dice ("e").
var ErrUnsupportedModifier = errors.New("unsupported modifier")

// Parse parses a dice expression in standard notation into its operator
// tree.
//
// Postcondition: the returned tree is finite and acyclic, every DicePool has
// Count >= 1 and Faces >= 1, and every clamp bound is a literal integer.
// Keep/drop counts are checked against the pool size at evaluation time, not
// here.
func Parse(input string) (Node, error) {
	p := &parser{input: strings.ToLower(input)}
	p.skipSpaces()
	if p.eof() {
		return nil, p.errorf("empty expression")
	}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.rest())
	}
	return node, nil
}

// MustParse parses input and panics on error. Intended for fixed expressions
// in tests and built-in content.
func MustParse(input string) Node {
	n, err := Parse(input)
	if err != nil {
		panic("expr: MustParse failed for " + input + ": " + err.Error())
	}
	return n
}

type parser struct {
	input string
	pos   int
}

func (p *parser) parseExpression() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpaces()
		var op Op
		switch {
		case p.accept('+'):
			op = OpAdd
		case p.accept('-'):
			op = OpSub
		default:
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpaces()
		var op Op
		switch {
		case p.accept('*'):
			op = OpMul
		case p.accept('/'):
			op = OpDiv
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	p.skipSpaces()
	if p.accept('-') {
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Literals fold; anything else subtracts from zero so the node set
		// needs no dedicated negation variant.
		if c, ok := child.(Constant); ok {
			return Constant{Value: -c.Value}, nil
		}
		return BinaryOp{Op: OpSub, Left: Constant{}, Right: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	p.skipSpaces()
	if p.accept('(') {
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if !p.accept(')') {
			return nil, p.errorf("missing closing parenthesis")
		}
		return p.parseClamps(inner)
	}
	if p.peekDigit() || p.peekByte('d') {
		return p.parseNumberOrDice()
	}
	return nil, p.errorf("expected number, dice, or parenthesized group")
}

// parseNumberOrDice handles both integer literals and dice terms, which
// share a leading run of digits.
func (p *parser) parseNumberOrDice() (Node, error) {
	count := 1
	haveCount := false
	if p.peekDigit() {
		n, err := p.scanInt()
		if err != nil {
			return nil, err
		}
		count = n
		haveCount = true
	}
	if !p.accept('d') {
		if !haveCount {
			return nil, p.errorf("expected number or dice")
		}
		return Constant{Value: count}, nil
	}
	if !p.peekDigit() {
		return nil, p.errorf("expected face count after 'd'")
	}
	faces, err := p.scanInt()
	if err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, p.errorf("dice count must be >= 1")
	}
	if faces < 1 {
		return nil, p.errorf("dice faces must be >= 1")
	}

	pool := DicePool{Count: count, Faces: faces}
	if kind, ok := p.peekKeepDrop(); ok {
		p.pos += 2
		if !p.peekDigit() {
			return nil, p.errorf("expected count after %q", kind.Suffix())
		}
		k, err := p.scanInt()
		if err != nil {
			return nil, err
		}
		pool.Modifier = Modifier{Kind: kind, K: k}
	}
	if kind, ok := p.peekKeepDrop(); ok {
		return nil, p.errorf("at most one keep/drop modifier per pool, got extra %q", kind.Suffix())
	}
	return p.parseClamps(pool)
}

// parseClamps parses trailing mi/ma suffixes around node and rejects any
// leftover modifier notation that cannot follow a clamp.
func (p *parser) parseClamps(node Node) (Node, error) {
	for {
		kind, ok := p.peekClamp()
		if !ok {
			break
		}
		p.pos += 2
		negative := p.accept('-')
		if !p.peekDigit() {
			return nil, p.errorf("expected bound after %q", kind.Suffix())
		}
		bound, err := p.scanInt()
		if err != nil {
			return nil, err
		}
		if negative {
			bound = -bound
		}
		node = UnaryClamp{Kind: kind, Child: node, Bound: bound}
	}
	if kind, ok := p.peekKeepDrop(); ok {
		return nil, p.errorf("%q must come directly after the dice pool", kind.Suffix())
	}
	if suffix, ok := p.peekUnsupported(); ok {
		return nil, fmt.Errorf("expr: modifier %q in %q: %w", suffix, p.input, ErrUnsupportedModifier)
	}
	return node, nil
}

func (p *parser) peekKeepDrop() (ModifierKind, bool) {
	switch {
	case p.hasPrefix("kh"):
		return ModKeepHigh, true
	case p.hasPrefix("kl"):
		return ModKeepLow, true
	case p.hasPrefix("dh"), p.hasPrefix("ph"):
		return ModDropHigh, true
	case p.hasPrefix("dl"), p.hasPrefix("pl"):
		return ModDropLow, true
	}
	return ModNone, false
}

func (p *parser) peekClamp() (ClampKind, bool) {
	switch {
	case p.hasPrefix("mi"):
		return ClampMin, true
	case p.hasPrefix("ma"):
		return ClampMax, true
	}
	return 0, false
}

func (p *parser) peekUnsupported() (string, bool) {
	for _, s := range []string{"rr", "ro", "ra"} {
		if p.hasPrefix(s) {
			return s, true
		}
	}
	if p.hasPrefix("e") {
		return "e", true
	}
	return "", false
}

func (p *parser) scanInt() (int, error) {
	start := p.pos
	for p.pos < len(p.input) && isDigit(p.input[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expected number")
	}
	n, err := strconv.Atoi(p.input[start:p.pos])
	if err != nil {
		return 0, p.errorf("number %q out of range", p.input[start:p.pos])
	}
	return n, nil
}

func (p *parser) errorf(format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return fmt.Errorf("expr: %s at offset %d in %q: %w", detail, p.pos, p.input, ErrSyntax)
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) accept(ch byte) bool {
	if p.peekByte(ch) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) peekByte(ch byte) bool {
	return p.pos < len(p.input) && p.input[p.pos] == ch
}

func (p *parser) peekDigit() bool {
	return p.pos < len(p.input) && isDigit(p.input[p.pos])
}

func (p *parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.input[p.pos:], s)
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) rest() string {
	r := p.input[p.pos:]
	if len(r) > 20 {
		r = r[:20] + "..."
	}
	return r
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
