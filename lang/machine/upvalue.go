package machine

import "fmt"

// An Upvalue is a reference to a variable captured by a closure. While the
// function that declared the variable is running, the upvalue is open and
// designates the variable's slot in the frame of that function. When the
// variable goes out of scope, the upvalue is closed: the current value is
// moved into the upvalue, which holds it from then on.
//
// All closures that capture the same variable of the same frame share the
// same Upvalue, so that they observe each other's writes, before and after
// it is closed. An upvalue never transitions back to the open state.
type Upvalue struct {
	frame *Frame // nil once closed
	slot  int
	value Value
}

// Get returns the current value of the captured variable.
func (uv *Upvalue) Get() Value {
	if uv.frame != nil {
		return uv.frame.locals[uv.slot]
	}
	return uv.value
}

// Set sets the value of the captured variable.
func (uv *Upvalue) Set(v Value) {
	if uv.frame != nil {
		uv.frame.locals[uv.slot] = v
		return
	}
	uv.value = v
}

// IsOpen returns true if the upvalue still designates a slot of its frame.
func (uv *Upvalue) IsOpen() bool { return uv.frame != nil }

// close moves the value out of the frame's slot and into the upvalue. It is
// a no-op if the upvalue is already closed.
func (uv *Upvalue) close() {
	if uv.frame == nil {
		return
	}
	uv.value = uv.frame.locals[uv.slot]
	uv.frame = nil
}

func (uv *Upvalue) String() string {
	if uv.frame != nil {
		return fmt.Sprintf("upvalue(open %d)", uv.slot)
	}
	return fmt.Sprintf("upvalue(closed %v)", uv.value)
}
