package machine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/mna/tarn/lang/compiler"
)

// DefaultStackSize is the number of value slots of the stack of a thread
// when Thread.StackSize is not set.
const DefaultStackSize = 4096

var (
	errStepLimit     = errors.New("step limit exceeded")
	errStackOverflow = errors.New("stack overflow")
)

// A Thread executes compiled modules. A thread is not safe for concurrent use,
// but it may be used to run many modules, one after the other.
type Thread struct {
	// Name is an optional name that describes the thread, mostly for debugging.
	Name string

	// Stdout is the standard output of the thread, used by the print
	// built-in. If nil, os.Stdout is used.
	Stdout io.Writer

	// MaxSteps is the maximum number of "steps", a deliberately unspecified
	// measure of machine execution time, before the thread is cancelled. A value
	// <= 0 means no limit.
	MaxSteps int

	// MaxCallStackDepth limits the number of nested function calls. If the limit
	// is reached, the call fails. A value <= 0 means no limit.
	MaxCallStackDepth int

	// StackSize is the number of value slots of the thread's stack, where the
	// locals and operands of all active frames are stored. A value <= 0 means
	// DefaultStackSize. It is fixed on the first run of the thread.
	StackSize int

	// Predeclared is the environment of predeclared names, looked up by the
	// PREDECLARED instruction.
	Predeclared *Env

	ctx       context.Context
	ctxCancel context.CancelCauseFunc
	cancelled *atomic.Bool // per run, set when ctx is done
	callStack []*Frame

	stack []Value
	sp    int // index of the first free slot of stack

	steps, maxSteps uint64
}

// start prepares the thread for a run bounded by ctx. The returned function
// must be called when the run is done.
func (th *Thread) start(ctx context.Context) (done func()) {
	if th.stack == nil {
		n := th.StackSize
		if n <= 0 {
			n = DefaultStackSize
		}
		th.stack = make([]Value, n)
	}

	th.steps = 0
	if th.MaxSteps <= 0 {
		th.maxSteps = 0
		th.maxSteps-- // (MaxUint64)
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	th.ctx, th.ctxCancel = ctx, cancel
	cancelled := new(atomic.Bool)
	th.cancelled = cancelled
	stop := context.AfterFunc(ctx, func() {
		cancelled.Store(true)
	})
	return func() {
		stop()
		cancel(nil)
	}
}

// RunModule executes the top-level function of the compiled module p. It
// returns the runtime module, with its exports set, and the value returned by
// the top-level function.
func (th *Thread) RunModule(ctx context.Context, p *compiler.Module) (*Module, Value, error) {
	mod, err := newModule(p)
	if err != nil {
		return nil, nil, err
	}
	top := &Closure{Funcode: p.Toplevel, Module: mod}
	res, err := th.Call(ctx, top)
	if err != nil {
		return nil, nil, err
	}
	return mod, res, nil
}

// Call calls the function or Callable value fn with the specified arguments.
// When called from a built-in function executing in th, the call is part of
// the same run and ctx is ignored.
func (th *Thread) Call(ctx context.Context, fn Value, args ...Value) (Value, error) {
	if len(th.callStack) == 0 {
		done := th.start(ctx)
		defer done()
	}
	return th.call(fn, args)
}

// CallStackDepth returns the number of active frames.
func (th *Thread) CallStackDepth() int { return len(th.callStack) }

// CallFrame returns the frame at the specified depth, 0 being the innermost.
func (th *Thread) CallFrame(depth int) *Frame {
	return th.callStack[len(th.callStack)-1-depth]
}

func (th *Thread) frame() *Frame { return th.callStack[len(th.callStack)-1] }

func (th *Thread) stdout() io.Writer {
	if th.Stdout != nil {
		return th.Stdout
	}
	return os.Stdout
}

// cancelErr returns the error that cancelled the thread.
func (th *Thread) cancelErr() error {
	return fmt.Errorf("thread cancelled: %w", context.Cause(th.ctx))
}
