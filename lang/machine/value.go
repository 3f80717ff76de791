package machine

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is the interface implemented by any value manipulated by the machine.
type Value interface {
	// String returns the string representation of the value.
	String() string

	// Type returns a short string describing the value's type.
	Type() string
}

// An Ordered type is a type whose values are ordered: if x and y are of the
// same Ordered type, then x must be less than y, greater than y, or equal to
// y.
type Ordered interface {
	Value
	// Cmp compares two values x and y of the same ordered type. It returns
	// negative if x < y, positive if x > y, and zero if the values are equal.
	Cmp(y Value) int
}

// A Callable value f may be the operand of a function call, f(x). Clients
// should use the Thread.Call method, never the CallInternal method.
type Callable interface {
	Value
	Name() string
	CallInternal(th *Thread, args []Value) (Value, error)
}

var (
	_ Value    = Nil
	_ Value    = True
	_ Ordered  = Int(0)
	_ Ordered  = Float(0)
	_ Ordered  = String("")
	_ Callable = (*Builtin)(nil)
	_ Callable = (*Closure)(nil)
)

// NilType is the type of nil. Its only legal value is Nil. (We represent it as
// a number, not struct{}, so that Nil may be constant.)
type NilType byte

const Nil = NilType(0)

func (NilType) String() string { return "nil" }
func (NilType) Type() string   { return "nil" }

// Bool is the type of boolean values.
type Bool bool

const (
	False Bool = false
	True  Bool = true
)

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b Bool) Type() string { return "bool" }

// Int is the type of an integer value.
type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Type() string   { return "int" }

func (i Int) Cmp(v Value) int {
	j := v.(Int)
	if i > j {
		return +1
	} else if i < j {
		return -1
	}
	return 0
}

// Float is the type of a floating point number.
type Float float64

func (f Float) String() string { return fmt.Sprintf("%g", float64(f)) }
func (f Float) Type() string   { return "float" }

func (f Float) Cmp(v Value) int {
	return floatCmp(f, v.(Float))
}

// floatCmp performs a three-valued comparison on floats, which are totally
// ordered with NaN > +Inf.
func floatCmp(x, y Float) int {
	if x > y {
		return +1
	} else if x < y {
		return -1
	} else if x == y {
		return 0
	}

	// At least one operand is NaN.
	if x == x {
		return -1 // y is NaN
	} else if y == y {
		return +1 // x is NaN
	}
	return 0 // both NaN
}

// String is the type of a text string. It encapsulates an immutable sequence
// of bytes.
type String string

func (s String) String() string { return strconv.Quote(string(s)) }
func (s String) Type() string   { return "string" }

func (s String) Cmp(y Value) int {
	return strings.Compare(string(s), string(y.(String)))
}

// A Builtin is a function implemented in Go.
type Builtin struct {
	name string
	fn   func(th *Thread, args []Value) (Value, error)
}

// NewBuiltin returns a new built-in function value with the specified name
// and implementation.
func NewBuiltin(name string, fn func(th *Thread, args []Value) (Value, error)) *Builtin {
	return &Builtin{name: name, fn: fn}
}

func (b *Builtin) Name() string   { return b.name }
func (b *Builtin) String() string { return fmt.Sprintf("<built-in function %s>", b.name) }
func (b *Builtin) Type() string   { return "builtin_function" }

func (b *Builtin) CallInternal(th *Thread, args []Value) (Value, error) {
	return b.fn(th, args)
}

// valueOf converts a compiled constant to its Value.
func valueOf(c any) (Value, error) {
	switch c := c.(type) {
	case int64:
		return Int(c), nil
	case float64:
		return Float(c), nil
	case string:
		return String(c), nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", c)
	}
}
