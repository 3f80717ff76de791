package resolver

import "fmt"

// CaptureKind indicates how a nested function reaches a captured variable.
type CaptureKind uint8

const (
	// CaptureLocal is a direct capture of a local of the immediately
	// enclosing function, the Capture's Index is a slot in its frame.
	CaptureLocal CaptureKind = iota
	// CaptureUpvalue is a capture relayed through the immediately enclosing
	// function, the Capture's Index is a position in its own Captures.
	CaptureUpvalue
)

var captureKindNames = [...]string{
	CaptureLocal:   "local",
	CaptureUpvalue: "upvalue",
}

func (k CaptureKind) String() string {
	if int(k) >= len(captureKindNames) {
		return fmt.Sprintf("<invalid CaptureKind %d>", k)
	}
	return captureKindNames[k]
}

// Capture describes a variable captured by a function. The position of a
// Capture in its function's Captures is the position of the corresponding
// upvalue in the closures created at runtime.
type Capture struct {
	Kind  CaptureKind
	Index int
	Name  string
}

// resolveCapture resolves name as a variable captured by the function at
// position depth in the stack of functions being resolved. It returns the
// index of the capture in that function's Captures and the binding of the
// originating declaration, or -1 and nil if no enclosing function declares
// name. It returns -1 and a non-nil binding if the capture exists but cannot
// be added because of the limit on the number of captures.
func (r *resolver) resolveCapture(name string, depth int) (int, *Binding) {
	if depth <= 0 {
		return -1, nil
	}

	enclosing := r.fns[depth-1]
	if l := enclosing.resolveLocal(name); l != nil {
		ix := r.fns[depth].addCapture(Capture{Kind: CaptureLocal, Index: l.Slot, Name: name})
		if ix < 0 {
			return -1, l.Binding
		}
		l.Captured = true
		if l.Binding.Scope == Local {
			l.Binding.Scope = Cell
		}
		return ix, l.Binding
	}

	ix, orig := r.resolveCapture(name, depth-1)
	if ix < 0 {
		return -1, orig
	}
	return r.fns[depth].addCapture(Capture{Kind: CaptureUpvalue, Index: ix, Name: name}), orig
}

// addCapture adds c to the function's captures unless an identical
// descriptor already exists, and returns its index. It returns -1 if the
// function has too many captures.
func (fs *funcState) addCapture(c Capture) int {
	for i, cc := range fs.fn.Captures {
		if cc.Kind == c.Kind && cc.Index == c.Index {
			return i
		}
	}
	if len(fs.fn.Captures) >= MaxCaptures {
		return -1
	}
	fs.fn.Captures = append(fs.fn.Captures, c)
	return len(fs.fn.Captures) - 1
}
