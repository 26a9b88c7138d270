// Package cexpr evaluates the constant expressions found on the right-hand
// side of preprocessor #define lines.
//
// The grammar is the arithmetic subset of C: literals, identifiers bound in
// an explicit Env, casts to known scalar types, unary and binary operators
// and the conditional operator. Nothing outside the Env is visible to an
// expression. Arithmetic is exact (go/constant) and follows C where the two
// differ: integer division truncates, comparisons yield 0 or 1.
package cexpr

import (
	"fmt"
	"go/constant"
	"go/scanner"
	"go/token"
	"strings"

	"github.com/ardanlabs/ffi-bindgen/ctype"
	"github.com/ardanlabs/ffi-bindgen/errors"
)

// Value is the result of an evaluation: either a constant or, for defines
// such as `#define BOOL int`, a type.
type Value struct {
	Const constant.Value
	Type  ctype.Type
}

// IsType reports whether v names a type rather than a value.
func (v Value) IsType() bool { return v.Type != nil }

func (v Value) String() string {
	if v.Type != nil {
		return v.Type.String()
	}
	if v.Const == nil {
		return "<nil>"
	}
	return v.Const.ExactString()
}

// Env is everything an expression may refer to.
type Env interface {
	Constant(name string) (Value, bool)
	Type(spelling string) (ctype.Type, bool)
}

// MapEnv is an Env over plain maps.
type MapEnv struct {
	Consts map[string]Value
	Types  map[string]ctype.Type
}

func (m MapEnv) Constant(name string) (Value, bool) {
	v, ok := m.Consts[name]
	return v, ok
}

func (m MapEnv) Type(spelling string) (ctype.Type, bool) {
	t, ok := m.Types[spelling]
	return t, ok
}

// question stands in for '?', which go/scanner reports as ILLEGAL.
const question = token.ILLEGAL

type tok struct {
	kind token.Token
	lit  string
}

func tokenize(src string) ([]tok, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var scanErr error
	var s scanner.Scanner
	s.Init(file, []byte(src), func(pos token.Position, msg string) {
		if pos.Offset < len(src) && src[pos.Offset] == '?' {
			return
		}
		if scanErr == nil {
			scanErr = errors.Newf("%s at offset %d", msg, pos.Offset)
		}
	}, 0)

	var toks []tok
	for {
		_, kind, lit := s.Scan()
		if kind == token.EOF {
			break
		}
		if kind == token.SEMICOLON && lit == "\n" {
			continue
		}
		if kind == token.ILLEGAL && lit != "?" {
			return nil, errors.Newf("unexpected character %q", lit)
		}
		if kind == token.IMAG || ((kind == token.INT || kind == token.FLOAT) && !isCNumber(lit)) {
			return nil, errors.Newf("unsupported literal %s", lit)
		}
		toks = append(toks, tok{kind: kind, lit: lit})
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return toks, nil
}

// isCNumber rejects the numeric literal forms only Go accepts: digit
// separators and 0o octal.
func isCNumber(lit string) bool {
	if strings.Contains(lit, "_") {
		return false
	}
	return !strings.HasPrefix(lit, "0o") && !strings.HasPrefix(lit, "0O")
}

// Eval evaluates expr against env.
func Eval(expr string, env Env) (v Value, err error) {
	toks, err := tokenize(expr)
	if err != nil {
		return Value{}, err
	}
	if len(toks) == 0 {
		return Value{}, errors.New("empty expression")
	}

	// go/constant panics on operand kinds it cannot combine.
	defer func() {
		if r := recover(); r != nil {
			v, err = Value{}, errors.Newf("invalid operands in %q: %v", expr, r)
		}
	}()

	p := &parser{toks: toks, env: env}

	if t, ok := p.typeName(); ok && p.done() {
		return Value{Type: t}, nil
	}
	p.pos = 0

	v, err = p.conditional()
	if err != nil {
		return Value{}, err
	}
	if !p.done() {
		return Value{}, errors.Newf("unexpected %s after expression", p.peek().describe())
	}
	return v, nil
}

func (t tok) describe() string {
	if t.lit != "" {
		return fmt.Sprintf("%q", t.lit)
	}
	return t.kind.String()
}

type parser struct {
	toks []tok
	pos  int
	env  Env
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() tok {
	if p.done() {
		return tok{kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) next() tok {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(kind token.Token) error {
	if t := p.next(); t.kind != kind {
		return errors.Newf("expected %s, found %s", kind, t.describe())
	}
	return nil
}

var precedence = map[token.Token]int{
	token.LOR:  1,
	token.LAND: 2,
	token.OR:   3,
	token.XOR:  4,
	token.AND:  5,
	token.EQL:  6, token.NEQ: 6,
	token.LSS: 7, token.LEQ: 7, token.GTR: 7, token.GEQ: 7,
	token.SHL: 8, token.SHR: 8,
	token.ADD: 9, token.SUB: 9,
	token.MUL: 10, token.QUO: 10, token.REM: 10,
}

func (p *parser) conditional() (Value, error) {
	cond, err := p.binary(1)
	if err != nil {
		return Value{}, err
	}
	if t := p.peek(); t.kind != question || t.lit != "?" {
		return cond, nil
	}
	p.next()

	whenTrue, err := p.conditional()
	if err != nil {
		return Value{}, err
	}
	if err := p.expect(token.COLON); err != nil {
		return Value{}, err
	}
	whenFalse, err := p.conditional()
	if err != nil {
		return Value{}, err
	}

	ok, err := truth(cond)
	if err != nil {
		return Value{}, err
	}
	if ok {
		return whenTrue, nil
	}
	return whenFalse, nil
}

func (p *parser) binary(minPrec int) (Value, error) {
	lhs, err := p.unary()
	if err != nil {
		return Value{}, err
	}
	for {
		op := p.peek().kind
		prec, ok := precedence[op]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		p.next()

		rhs, err := p.binary(prec + 1)
		if err != nil {
			return Value{}, err
		}
		if lhs, err = apply(lhs, op, rhs); err != nil {
			return Value{}, err
		}
	}
}

func (p *parser) unary() (Value, error) {
	switch op := p.peek().kind; op {
	case token.ADD, token.SUB, token.NOT, token.TILDE:
		p.next()
		x, err := p.unary()
		if err != nil {
			return Value{}, err
		}
		return applyUnary(op, x)
	}
	return p.primary()
}

func (p *parser) primary() (Value, error) {
	t := p.next()
	switch t.kind {
	case token.INT, token.FLOAT, token.CHAR:
		v := constant.MakeFromLiteral(t.lit, t.kind, 0)
		if v.Kind() == constant.Unknown {
			return Value{}, errors.Newf("malformed literal %s", t.lit)
		}
		return Value{Const: v}, nil

	case token.STRING:
		s := constant.StringVal(constant.MakeFromLiteral(t.lit, token.STRING, 0))
		var sb strings.Builder
		sb.WriteString(s)
		for p.peek().kind == token.STRING {
			sb.WriteString(constant.StringVal(constant.MakeFromLiteral(p.next().lit, token.STRING, 0)))
		}
		return Value{Const: constant.MakeString(sb.String())}, nil

	case token.IDENT:
		if p.peek().kind == token.LPAREN {
			return Value{}, errors.Newf("call to %s is not a constant expression", t.lit)
		}
		if v, ok := p.env.Constant(t.lit); ok {
			return v, nil
		}
		return Value{}, errors.Newf("undefined: %s", t.lit)

	case token.LPAREN:
		start := p.pos
		if target, ok := p.typeName(); ok && p.peek().kind == token.RPAREN {
			p.next()
			if !p.startsOperand() {
				return Value{Type: target}, nil
			}
			x, err := p.unary()
			if err != nil {
				return Value{}, err
			}
			return convert(x, target)
		}
		p.pos = start

		inner, err := p.conditional()
		if err != nil {
			return Value{}, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return Value{}, err
		}
		return inner, nil
	}
	return Value{}, errors.Newf("unexpected %s", t.describe())
}

func (p *parser) startsOperand() bool {
	switch p.peek().kind {
	case token.INT, token.FLOAT, token.CHAR, token.STRING, token.IDENT, token.LPAREN,
		token.ADD, token.SUB, token.NOT, token.TILDE:
		return true
	}
	return false
}

var typeKeywords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true, "_Bool": true,
	"const": true, "volatile": true,
}

// typeName consumes a type spelling followed by any number of '*'. A plain
// identifier only counts as a type when it is not also a constant.
func (p *parser) typeName() (ctype.Type, bool) {
	start := p.pos
	var words []string
	for p.peek().kind == token.IDENT && typeKeywords[p.peek().lit] {
		if w := p.next().lit; w != "const" && w != "volatile" {
			words = append(words, w)
		}
	}

	var spelling string
	switch {
	case len(words) > 0:
		spelling = strings.Join(words, " ")
	case p.peek().kind == token.IDENT:
		name := p.peek().lit
		if _, isConst := p.env.Constant(name); isConst || p.pos+1 < len(p.toks) && p.toks[p.pos+1].kind == token.LPAREN {
			p.pos = start
			return nil, false
		}
		p.next()
		spelling = name
	default:
		p.pos = start
		return nil, false
	}

	t, ok := p.env.Type(spelling)
	if !ok {
		p.pos = start
		return nil, false
	}
	for p.peek().kind == token.MUL {
		p.next()
		t = ctype.PointerTo(t)
	}
	return t, true
}
