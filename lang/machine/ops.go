package machine

import (
	"fmt"
	"math"
	"reflect"

	"github.com/mna/tarn/lang/token"
)

// Truth returns the truthy value of v, which is True for every value except
// False and Nil.
func Truth(v Value) Bool {
	switch v := v.(type) {
	case Bool:
		return v
	case NilType:
		return False
	default:
		return True
	}
}

// Equal reports whether two values are equal.
func Equal(x, y Value) bool {
	ok, _ := Compare(token.EQEQ, x, y)
	return ok
}

// Compare compares two values. The comparison operation must be one of EQEQ,
// BANGEQ, LT, LE, GT, or GE. Compare returns an error if an ordered comparison
// was requested for a pair of values that do not support it.
func Compare(op token.Token, x, y Value) (bool, error) {
	if sameType(x, y) {
		if xcomp, ok := x.(Ordered); ok {
			return threeway(op, xcomp.Cmp(y)), nil
		}

		// use identity comparison
		switch op {
		case token.EQEQ:
			return x == y, nil
		case token.BANGEQ:
			return x != y, nil
		}
		return false, fmt.Errorf("%s %s %s not implemented", x.Type(), op, y.Type())
	}

	// int/float ordered comparisons
	switch x := x.(type) {
	case Int:
		if y, ok := y.(Float); ok {
			return threeway(op, -floatIntCmp(y, x)), nil
		}
	case Float:
		if y, ok := y.(Int); ok {
			return threeway(op, floatIntCmp(x, y)), nil
		}
	}

	// All other values of different types compare unequal.
	switch op {
	case token.EQEQ:
		return false, nil
	case token.BANGEQ:
		return true, nil
	}
	return false, fmt.Errorf("%s %s %s not implemented", x.Type(), op, y.Type())
}

// floatIntCmp compares a float and an int, NaN being greater than any int.
func floatIntCmp(x Float, y Int) int {
	if x != x {
		return +1 // x is NaN
	}
	if math.IsInf(float64(x), 0) {
		if x > 0 {
			return +1
		}
		return -1
	}
	if yf := float64(y); float64(x) == yf {
		return 0
	} else if yf < float64(x) {
		return +1
	}
	return -1
}

func sameType(x, y Value) bool {
	return reflect.TypeOf(x) == reflect.TypeOf(y)
}

// threeway interprets a three-way comparison value cmp (-1, 0, +1)
// as a boolean comparison (e.g. x < y).
func threeway(op token.Token, cmp int) bool {
	switch op {
	case token.EQEQ:
		return cmp == 0
	case token.BANGEQ:
		return cmp != 0
	case token.LE:
		return cmp <= 0
	case token.LT:
		return cmp < 0
	case token.GE:
		return cmp >= 0
	case token.GT:
		return cmp > 0
	}
	panic(op)
}

// Unary applies a unary operator to its operand.
func Unary(op token.Token, x Value) (Value, error) {
	switch op {
	case token.MINUS:
		switch x := x.(type) {
		case Int:
			return -x, nil
		case Float:
			return -x, nil
		}
	case token.NOT:
		return !Truth(x), nil
	}
	return nil, fmt.Errorf("unsupported unary op: %s%s", op, x.Type())
}

// Binary applies a binary arithmetic operator to its operands. For equality
// tests or ordered comparisons, use Compare instead.
//
// If both operands are integers, the operation is performed over integers and
// the result is an integer, except for the float division. Otherwise, if both
// operands are numbers, they are converted to floats and the result is a
// float. The + operator also concatenates strings.
func Binary(op token.Token, l, r Value) (Value, error) {
	if op == token.PLUS {
		if ls, ok := l.(String); ok {
			if rs, ok := r.(String); ok {
				return ls + rs, nil
			}
			goto unknown
		}
	}

	if li, ok := l.(Int); ok {
		if ri, ok := r.(Int); ok {
			switch op {
			case token.PLUS:
				return li + ri, nil
			case token.MINUS:
				return li - ri, nil
			case token.STAR:
				return li * ri, nil
			case token.SLASH:
				if ri == 0 {
					return nil, fmt.Errorf("floating-point division by zero")
				}
				return Float(li) / Float(ri), nil
			case token.PERCENT:
				if ri == 0 {
					return nil, fmt.Errorf("integer modulo by zero")
				}
				return modInt(li, ri), nil
			}
			goto unknown
		}
	}

	if lf, ok := toFloat(l); ok {
		if rf, ok := toFloat(r); ok {
			switch op {
			case token.PLUS:
				return lf + rf, nil
			case token.MINUS:
				return lf - rf, nil
			case token.STAR:
				return lf * rf, nil
			case token.SLASH:
				if rf == 0.0 {
					return nil, fmt.Errorf("floating-point division by zero")
				}
				return lf / rf, nil
			case token.PERCENT:
				if rf == 0.0 {
					return nil, fmt.Errorf("floating-point modulo by zero")
				}
				return modFloat(lf, rf), nil
			}
		}
	}

unknown:
	return nil, fmt.Errorf("unsupported binary op: %s %s %s", l.Type(), op, r.Type())
}

func toFloat(v Value) (Float, bool) {
	switch v := v.(type) {
	case Int:
		return Float(v), true
	case Float:
		return v, true
	}
	return 0, false
}

// modInt returns the remainder of the floored division of l by r, its sign
// is the sign of r.
func modInt(l, r Int) Int {
	m := l % r
	if m != 0 && (m < 0) != (r < 0) {
		m += r
	}
	return m
}

func modFloat(l, r Float) Float {
	m := Float(math.Mod(float64(l), float64(r)))
	if m != 0 && (m < 0) != (r < 0) {
		m += r
	}
	return m
}
