package machine

import (
	"github.com/mna/tarn/lang/token"
	"golang.org/x/exp/slices"
)

const builtinFilename = "<builtin>"

// Frame records a call to a Callable value (including module toplevel) or a
// built-in function.
type Frame struct {
	callable Callable // current function (or toplevel) or built-in
	pc       uint32   // program counter (non built-in only)

	// locals is the window of the thread's stack that holds the locals of the
	// running closure, nil for built-ins.
	locals []Value

	// open is the registry of open upvalues of this frame, ordered by slot,
	// with at most one upvalue per slot.
	open []*Upvalue
}

// Position returns the source position of the current point of execution in
// this frame.
func (fr *Frame) Position() token.Position {
	if c, ok := fr.callable.(*Closure); ok {
		return c.Funcode.Position(fr.pc)
	}
	return token.Position{Filename: builtinFilename}
}

// Callable returns the function or built-in executing in this frame.
func (fr *Frame) Callable() Callable { return fr.callable }

func cmpUpvalueSlot(uv *Upvalue, slot int) int { return uv.slot - slot }

// openUpvalue returns the open upvalue for slot, creating and registering it
// if this frame has none yet. Closures that capture the same slot share the
// returned upvalue.
func (fr *Frame) openUpvalue(slot int) *Upvalue {
	i, found := slices.BinarySearchFunc(fr.open, slot, cmpUpvalueSlot)
	if found {
		return fr.open[i]
	}
	uv := &Upvalue{frame: fr, slot: slot}
	fr.open = slices.Insert(fr.open, i, uv)
	return uv
}

// closeUpvalues closes all open upvalues on a slot >= minSlot and removes
// them from the registry. It returns the number of upvalues closed.
func (fr *Frame) closeUpvalues(minSlot int) int {
	i, _ := slices.BinarySearchFunc(fr.open, minSlot, cmpUpvalueSlot)
	n := len(fr.open) - i
	for j := i; j < len(fr.open); j++ {
		fr.open[j].close()
		fr.open[j] = nil
	}
	fr.open = fr.open[:i]
	return n
}
