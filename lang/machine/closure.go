package machine

import (
	"fmt"

	"github.com/mna/tarn/lang/compiler"
)

// A Closure is a function value: the compiled code of a function statement or
// expression, the module it belongs to and the upvalues it captured when it
// was instantiated. The top-level function of a module is also represented by
// a Closure, without upvalues.
type Closure struct {
	Funcode  *compiler.Funcode
	Module   *Module
	Upvalues []*Upvalue // in the order of Funcode.Captures
}

func (c *Closure) String() string { return fmt.Sprintf("<function %s>", c.Name()) }
func (c *Closure) Type() string   { return "function" }

func (c *Closure) Name() string {
	nm := c.Funcode.Name
	if nm == "" {
		nm = "unknown"
	}
	return nm
}

func (c *Closure) CallInternal(th *Thread, args []Value) (Value, error) {
	return th.run(c, args)
}

// InternalError is returned when the machine detects an inconsistency in the
// compiled code it executes. It aborts the thread.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

func internalErrorf(format string, args ...any) *InternalError {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// instantiate creates a closure of fn in the frame fr, which must be the
// frame of the function that encloses fn. A capture of a local of fr opens
// (or shares) the upvalue of its slot, a capture of an upvalue copies the
// reference from the upvalues of the closure running in fr. Values are never
// copied.
func instantiate(fn *compiler.Funcode, mod *Module, fr *Frame) (*Closure, error) {
	var parent []*Upvalue
	if c, ok := fr.callable.(*Closure); ok {
		parent = c.Upvalues
	}

	var upvalues []*Upvalue
	if len(fn.Captures) > 0 {
		upvalues = make([]*Upvalue, len(fn.Captures))
	}
	for i, cp := range fn.Captures {
		switch cp.Kind {
		case compiler.CaptureLocal:
			if int(cp.Index) >= len(fr.locals) {
				return nil, internalErrorf("function %s: capture %d: local slot %d out of range", fn.Name, i, cp.Index)
			}
			upvalues[i] = fr.openUpvalue(int(cp.Index))
		case compiler.CaptureUpvalue:
			if int(cp.Index) >= len(parent) {
				return nil, internalErrorf("function %s: capture %d: upvalue %d out of range", fn.Name, i, cp.Index)
			}
			upvalues[i] = parent[cp.Index]
		default:
			return nil, internalErrorf("function %s: capture %d: invalid kind %s", fn.Name, i, cp.Kind)
		}
	}
	return &Closure{Funcode: fn, Module: mod, Upvalues: upvalues}, nil
}
