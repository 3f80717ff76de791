// Package machine implements the virtual machine that executes the compiled
// modules of the compiler package.
//
// # Closures
//
// A closure is created by the MAKEFUNC instruction from the compiled code of a
// function, in the frame of the function that encloses it. Each capture of
// the compiled function gives one upvalue of the closure: a capture of a local
// of the enclosing function opens an upvalue on the slot of that local (or
// shares the one already open on it), while a capture of an upvalue of the
// enclosing function shares that upvalue.
//
// # Upvalues
//
// An open upvalue reads and writes the slot of its frame. Each frame keeps its
// open upvalues ordered by slot, with at most one per slot. The CLOSE
// instruction closes the upvalues of the slots going out of scope, and all
// remaining upvalues of a frame are closed when its function returns, before
// its part of the thread stack is reused. A closed upvalue holds the value
// itself.
package machine

import (
	"errors"
	"fmt"

	"github.com/mna/tarn/lang/compiler"
	"github.com/mna/tarn/lang/token"
	"github.com/tliron/commonlog"
	"golang.org/x/exp/slices"
)

var log = commonlog.GetLogger("tarn.machine")

// An EvalError is a runtime error with the source position where it
// occurred.
type EvalError struct {
	Pos token.Position
	Err error
}

func (e *EvalError) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Err) }
func (e *EvalError) Unwrap() error { return e.Err }

// call pushes a new frame and calls v with args in it.
func (th *Thread) call(v Value, args []Value) (Value, error) {
	cb, ok := v.(Callable)
	if !ok {
		return nil, fmt.Errorf("invalid call of non-function (%s)", v.Type())
	}
	if th.MaxCallStackDepth > 0 && len(th.callStack) >= th.MaxCallStackDepth {
		return nil, fmt.Errorf("call stack depth exceeded (max %d)", th.MaxCallStackDepth)
	}

	// Allocate and push a new frame. As an optimization, use slack portion of
	// thread.callStack slice as a freelist of empty frames.
	var fr *Frame
	if n := len(th.callStack); n < cap(th.callStack) {
		fr = th.callStack[n : n+1][0]
	}
	if fr == nil {
		fr = new(Frame)
	}
	th.callStack = append(th.callStack, fr) // push
	fr.callable = cb

	// Use defer to ensure that panics from built-ins pass through the
	// interpreter without leaving it in a bad state.
	defer func() {
		// clear out any references
		*fr = Frame{}
		th.callStack = th.callStack[:len(th.callStack)-1] // pop
	}()

	if log.AllowLevel(commonlog.Debug) {
		log.Debugf("%s: call %s (depth %d)", th.Name, cb.Name(), len(th.callStack))
	}

	if _, ok := cb.(*Closure); !ok {
		// a built-in could keep a reference to its arguments
		args = slices.Clone(args)
	}
	result, err := cb.CallInternal(th, args)

	// Sanity check: nil is not a valid value.
	if result == nil && err == nil {
		err = internalErrorf("nil (not Nil) returned from %s", cb.Name())
	}
	return result, err
}

// run executes closure c in the frame at the top of the call stack.
func (th *Thread) run(c *Closure, args []Value) (result Value, err error) {
	fr := th.frame()
	fcode := c.Funcode
	mod := c.Module

	if len(args) != fcode.NumParams {
		return nil, fmt.Errorf("function %s takes %d arguments (%d given)", c.Name(), fcode.NumParams, len(args))
	}

	// carve the locals and operand stack from the thread's stack
	nlocals := fcode.NumLocals
	base := th.sp
	top := base + nlocals + fcode.MaxStack
	if top > len(th.stack) {
		return nil, errStackOverflow
	}
	th.sp = top
	space := th.stack[base:top]
	for i := range space {
		space[i] = Nil
	}
	locals := space[:nlocals:nlocals] // local variables, starting with parameters
	stack := space[nlocals:]          // operand stack
	copy(locals, args)
	fr.locals = locals

	defer func() {
		// upvalues must be closed before the stack window is given back
		if n := fr.closeUpvalues(0); n > 0 && log.AllowLevel(commonlog.Debug) {
			log.Debugf("%s: %s returns, closed %d upvalues", th.Name, c.Name(), n)
		}
		clear(space)
		fr.locals = nil
		th.sp = base
	}()

	var (
		pc uint32
		sp int
	)
	code := fcode.Code

loop:
	for {
		th.steps++
		if th.steps >= th.maxSteps {
			th.ctxCancel(errStepLimit)
			err = fmt.Errorf("thread cancelled: %w", errStepLimit)
			break loop
		}
		if th.cancelled.Load() {
			err = th.cancelErr()
			break loop
		}
		if int(pc) >= len(code) {
			err = internalErrorf("function %s: pc %d out of range", c.Name(), pc)
			break loop
		}

		fr.pc = pc

		op := compiler.Opcode(code[pc])
		pc++
		var arg uint32
		if op >= compiler.OpcodeArgMin {
			for s := uint(0); ; s += 7 {
				if int(pc) >= len(code) {
					err = internalErrorf("function %s: truncated argument at pc %d", c.Name(), fr.pc)
					break loop
				}
				b := code[pc]
				pc++
				arg |= uint32(b&0x7f) << s
				if b < 0x80 {
					break
				}
			}
			if op <= compiler.CJMP {
				// jump arguments are padded to 4 bytes
				pc = fr.pc + 5
			}
		}

		if pops, pushes := operands(op, arg); sp < pops {
			err = internalErrorf("function %s: operand stack underflow at pc %d", c.Name(), fr.pc)
			break loop
		} else if sp-pops+pushes > len(stack) {
			err = internalErrorf("function %s: operand stack overflow at pc %d", c.Name(), fr.pc)
			break loop
		}

		switch op {
		case compiler.NOP:
			// nop

		case compiler.DUP:
			stack[sp] = stack[sp-1]
			sp++

		case compiler.POP:
			sp--

		case compiler.PLUS, compiler.MINUS, compiler.STAR, compiler.SLASH, compiler.PERCENT:
			binop := token.Token(op-compiler.PLUS) + token.PLUS
			y := stack[sp-1]
			x := stack[sp-2]
			sp -= 2
			z, err2 := Binary(binop, x, y)
			if err2 != nil {
				err = err2
				break loop
			}
			stack[sp] = z
			sp++

		case compiler.LT, compiler.LE, compiler.GT, compiler.GE, compiler.EQL, compiler.NEQ:
			cmpop := token.Token(op-compiler.LT) + token.LT
			y := stack[sp-1]
			x := stack[sp-2]
			sp -= 2
			ok, err2 := Compare(cmpop, x, y)
			if err2 != nil {
				err = err2
				break loop
			}
			stack[sp] = Bool(ok)
			sp++

		case compiler.UMINUS:
			y, err2 := Unary(token.MINUS, stack[sp-1])
			if err2 != nil {
				err = err2
				break loop
			}
			stack[sp-1] = y

		case compiler.NOT:
			stack[sp-1] = !Truth(stack[sp-1])

		case compiler.NIL:
			stack[sp] = Nil
			sp++

		case compiler.TRUE:
			stack[sp] = True
			sp++

		case compiler.FALSE:
			stack[sp] = False
			sp++

		case compiler.RETURN:
			result = stack[sp-1]
			sp--
			if fcode == mod.Program.Toplevel {
				mod.setExports(locals)
			}
			break loop

		case compiler.JMP:
			pc = arg

		case compiler.CJMP:
			if Truth(stack[sp-1]) {
				pc = arg
			}
			sp--

		case compiler.CONSTANT:
			if int(arg) >= len(mod.Constants) {
				err = internalErrorf("function %s: constant %d out of range", c.Name(), arg)
				break loop
			}
			stack[sp] = mod.Constants[arg]
			sp++

		case compiler.MAKEFUNC:
			if int(arg) >= len(mod.Program.Functions) {
				err = internalErrorf("function %s: function %d out of range", c.Name(), arg)
				break loop
			}
			cl, err2 := instantiate(mod.Program.Functions[arg], mod, fr)
			if err2 != nil {
				err = err2
				break loop
			}
			stack[sp] = cl
			sp++

		case compiler.LOCAL:
			if int(arg) >= len(locals) {
				err = internalErrorf("function %s: local slot %d out of range", c.Name(), arg)
				break loop
			}
			stack[sp] = locals[arg]
			sp++

		case compiler.SETLOCAL:
			if int(arg) >= len(locals) {
				err = internalErrorf("function %s: local slot %d out of range", c.Name(), arg)
				break loop
			}
			locals[arg] = stack[sp-1]
			sp--

		case compiler.UPVALUE:
			if int(arg) >= len(c.Upvalues) {
				err = internalErrorf("function %s: upvalue %d out of range", c.Name(), arg)
				break loop
			}
			stack[sp] = c.Upvalues[arg].Get()
			sp++

		case compiler.SETUPVALUE:
			if int(arg) >= len(c.Upvalues) {
				err = internalErrorf("function %s: upvalue %d out of range", c.Name(), arg)
				break loop
			}
			c.Upvalues[arg].Set(stack[sp-1])
			sp--

		case compiler.CLOSE:
			if int(arg) > len(locals) {
				err = internalErrorf("function %s: local slot %d out of range", c.Name(), arg)
				break loop
			}
			if n := fr.closeUpvalues(int(arg)); n > 0 && log.AllowLevel(commonlog.Debug) {
				log.Debugf("%s: %s closed %d upvalues from slot %d", th.Name, c.Name(), n, arg)
			}

		case compiler.PREDECLARED:
			if int(arg) >= len(mod.Program.Names) {
				err = internalErrorf("function %s: name %d out of range", c.Name(), arg)
				break loop
			}
			name := mod.Program.Names[arg]
			x, ok := th.Predeclared.Get(name)
			if !ok {
				err = fmt.Errorf("undefined predeclared name: %s", name)
				break loop
			}
			stack[sp] = x
			sp++

		case compiler.CALL:
			n := int(arg)
			args := stack[sp-n : sp]
			sp -= n
			fn := stack[sp-1]
			z, err2 := th.call(fn, args)
			if err2 != nil {
				err = err2
				break loop
			}
			stack[sp-1] = z

		default:
			err = internalErrorf("function %s: invalid opcode %s", c.Name(), op)
			break loop
		}
	}

	if err != nil {
		var ie *InternalError
		if errors.As(err, &ie) {
			// internal errors abort the thread
			th.ctxCancel(ie)
		}
		var ee *EvalError
		if !errors.As(err, &ee) {
			err = &EvalError{Pos: fr.Position(), Err: err}
		}
		return nil, err
	}
	return result, nil
}

// operands returns the number of values that op pops from the operand stack
// and the number it pushes.
func operands(op compiler.Opcode, arg uint32) (pops, pushes int) {
	switch op {
	case compiler.NOP, compiler.JMP, compiler.CLOSE:
		return 0, 0
	case compiler.DUP:
		return 1, 2
	case compiler.POP, compiler.RETURN, compiler.CJMP, compiler.SETLOCAL, compiler.SETUPVALUE:
		return 1, 0
	case compiler.UMINUS, compiler.NOT:
		return 1, 1
	case compiler.NIL, compiler.TRUE, compiler.FALSE, compiler.CONSTANT, compiler.MAKEFUNC,
		compiler.LOCAL, compiler.UPVALUE, compiler.PREDECLARED:
		return 0, 1
	case compiler.CALL:
		return int(arg) + 1, 1
	case compiler.PLUS, compiler.MINUS, compiler.STAR, compiler.SLASH, compiler.PERCENT,
		compiler.LT, compiler.LE, compiler.GT, compiler.GE, compiler.EQL, compiler.NEQ:
		return 2, 1
	}
	return 0, 0
}
