package cexpr

import (
	"go/constant"
	"go/token"
	"math"
	"regexp"

	"github.com/ardanlabs/ffi-bindgen/ctype"
	"github.com/ardanlabs/ffi-bindgen/errors"
)

var (
	zero = constant.MakeInt64(0)
	one  = constant.MakeInt64(1)
)

func boolInt(b bool) constant.Value {
	if b {
		return one
	}
	return zero
}

func scalar(v Value) (constant.Value, error) {
	if v.Type != nil {
		return nil, errors.Newf("type %s used as a value", v.Type)
	}
	return v.Const, nil
}

func numeric(v constant.Value) bool {
	k := v.Kind()
	return k == constant.Int || k == constant.Float
}

func truth(v Value) (bool, error) {
	c, err := scalar(v)
	if err != nil {
		return false, err
	}
	switch c.Kind() {
	case constant.Bool:
		return constant.BoolVal(c), nil
	case constant.Int, constant.Float:
		return constant.Sign(c) != 0, nil
	case constant.String:
		return true, nil
	}
	return false, errors.Newf("%s has no truth value", c)
}

func applyUnary(op token.Token, v Value) (Value, error) {
	if op == token.NOT {
		ok, err := truth(v)
		if err != nil {
			return Value{}, err
		}
		return Value{Const: boolInt(!ok)}, nil
	}

	x, err := scalar(v)
	if err != nil {
		return Value{}, err
	}
	if !numeric(x) {
		return Value{}, errors.Newf("operator %s not defined on %s", op, x)
	}
	switch op {
	case token.SUB, token.ADD:
		return Value{Const: constant.UnaryOp(op, x, 0)}, nil
	case token.TILDE:
		if x.Kind() != constant.Int {
			return Value{}, errors.Newf("operator ~ not defined on %s", x)
		}
		return Value{Const: constant.UnaryOp(token.XOR, x, 0)}, nil
	}
	return Value{}, errors.Newf("unsupported unary operator %s", op)
}

func apply(lv Value, op token.Token, rv Value) (Value, error) {
	if op == token.LAND || op == token.LOR {
		l, err := truth(lv)
		if err != nil {
			return Value{}, err
		}
		r, err := truth(rv)
		if err != nil {
			return Value{}, err
		}
		if op == token.LAND {
			return Value{Const: boolInt(l && r)}, nil
		}
		return Value{Const: boolInt(l || r)}, nil
	}

	x, err := scalar(lv)
	if err != nil {
		return Value{}, err
	}
	y, err := scalar(rv)
	if err != nil {
		return Value{}, err
	}

	bothInt := x.Kind() == constant.Int && y.Kind() == constant.Int

	switch op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		comparable := numeric(x) && numeric(y) ||
			x.Kind() == constant.String && y.Kind() == constant.String
		if !comparable {
			return Value{}, errors.Newf("cannot compare %s and %s", x, y)
		}
		return Value{Const: boolInt(constant.Compare(x, op, y))}, nil

	case token.ADD:
		if x.Kind() == constant.String && y.Kind() == constant.String {
			return Value{Const: constant.BinaryOp(x, op, y)}, nil
		}
		fallthrough
	case token.SUB, token.MUL:
		if !numeric(x) || !numeric(y) {
			return Value{}, errors.Newf("operator %s not defined on %s and %s", op, x, y)
		}
		return Value{Const: constant.BinaryOp(x, op, y)}, nil

	case token.QUO:
		if !numeric(x) || !numeric(y) {
			return Value{}, errors.Newf("operator / not defined on %s and %s", x, y)
		}
		if constant.Sign(y) == 0 {
			return Value{}, errors.New("division by zero")
		}
		if bothInt {
			return Value{Const: constant.BinaryOp(x, token.QUO_ASSIGN, y)}, nil
		}
		return Value{Const: constant.BinaryOp(x, op, y)}, nil

	case token.REM, token.AND, token.OR, token.XOR:
		if !bothInt {
			return Value{}, errors.Newf("operator %s requires integers, got %s and %s", op, x, y)
		}
		if op == token.REM && constant.Sign(y) == 0 {
			return Value{}, errors.New("division by zero")
		}
		return Value{Const: constant.BinaryOp(x, op, y)}, nil

	case token.SHL, token.SHR:
		if !bothInt {
			return Value{}, errors.Newf("operator %s requires integers, got %s and %s", op, x, y)
		}
		s, exact := constant.Uint64Val(y)
		if !exact || s > 1024 {
			return Value{}, errors.Newf("invalid shift count %s", y)
		}
		return Value{Const: constant.Shift(x, op, uint(s))}, nil
	}
	return Value{}, errors.Newf("unsupported operator %s", op)
}

// convert applies a C cast to a scalar type.
func convert(v Value, target ctype.Type) (Value, error) {
	x, err := scalar(v)
	if err != nil {
		return Value{}, err
	}
	if !numeric(x) {
		return Value{}, errors.Newf("cannot convert %s to %s", x, target)
	}

	var bits int
	var signed bool
	switch t := ctype.Underlying(target).(type) {
	case *ctype.Primitive:
		if t.IsVoid() {
			return Value{}, errors.Newf("cannot convert %s to void", x)
		}
		if t.Float {
			return Value{Const: constant.ToFloat(x)}, nil
		}
		if t == ctype.Bool {
			return Value{Const: boolInt(constant.Sign(x) != 0)}, nil
		}
		bits, signed = t.Size*8, t.Signed
	case *ctype.Enum:
		bits, signed = 32, t.Signed()
	default:
		return Value{}, errors.Newf("cannot convert %s to %s", x, target)
	}

	if x.Kind() == constant.Float {
		f, _ := constant.Float64Val(x)
		x = constant.ToInt(constant.MakeFloat64(math.Trunc(f)))
		if x.Kind() != constant.Int {
			return Value{}, errors.Newf("cannot convert %v to %s", f, target)
		}
	}
	return Value{Const: wrap(x, bits, signed)}, nil
}

// wrap reduces x modulo 2^bits into the signed or unsigned range.
func wrap(x constant.Value, bits int, signed bool) constant.Value {
	modulus := constant.Shift(one, token.SHL, uint(bits))
	mask := constant.BinaryOp(modulus, token.SUB, one)
	x = constant.BinaryOp(x, token.AND, mask)
	if signed {
		half := constant.Shift(one, token.SHL, uint(bits-1))
		if constant.Compare(x, token.GEQ, half) {
			x = constant.BinaryOp(x, token.SUB, modulus)
		}
	}
	return x
}

var (
	hexSuffix     = regexp.MustCompile(`(^|[^\w.])(0[xX][0-9a-fA-F]+)[uUlL]+\b`)
	decimalSuffix = regexp.MustCompile(`(^|[^\w.])(\d+\.?\d*(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?)[uUlLfFdD]+\b`)
)

// StripSuffixes removes C type suffixes from numeric literals:
// 10UL -> 10, 1.5f -> 1.5, 0x10u -> 0x10.
func StripSuffixes(expr string) string {
	expr = hexSuffix.ReplaceAllString(expr, "${1}${2}")
	return decimalSuffix.ReplaceAllString(expr, "${1}${2}")
}
