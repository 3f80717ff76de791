package compiler

import (
	"errors"
	"fmt"

	"github.com/mna/tarn/lang/token"
	"golang.org/x/exp/slices"
)

// A Module is the compiled form of a chunk: the top-level function, the
// functions it defines and its exports, along with the pools of names and
// constants shared by all its functions. A Module is read-only once built.
type Module struct {
	Filename  string
	Names     []string
	Constants []any // int64, float64 or string
	Toplevel  *Funcode
	Functions []*Funcode
	Exports   []Export
}

// Export binds an exported name to the function (index in Module.Functions)
// defined by the statement that declared it, stored in the top-level frame
// at Slot.
type Export struct {
	Name     string `cbor:"1,keyasint"`
	Function uint32 `cbor:"2,keyasint"`
	Slot     int    `cbor:"3,keyasint"`
}

// A Funcode is the code of a compiled function. It is immutable once
// returned by FuncBuilder.Finalize.
type Funcode struct {
	Name      string         `cbor:"1,keyasint"`
	Pos       token.Position `cbor:"2,keyasint"` // position of the fn keyword or start of chunk
	Code      []byte         `cbor:"3,keyasint"`
	NumParams int            `cbor:"4,keyasint"`
	NumLocals int            `cbor:"5,keyasint"` // size of the locals window of a frame
	MaxStack  int            `cbor:"6,keyasint"`

	Locals   []Binding `cbor:"7,keyasint,omitempty"` // for debugging, distinct locals may share a slot
	Cells    []int     `cbor:"8,keyasint,omitempty"` // slots of locals captured by nested functions
	Captures []Capture `cbor:"9,keyasint,omitempty"` // in order of the upvalues of a closure

	// Positions maps instruction addresses to source positions, sorted by PC.
	Positions []PCPos `cbor:"10,keyasint,omitempty"`
}

// Binding is the compiled debug information of a local.
type Binding struct {
	Name string         `cbor:"1,keyasint"`
	Slot int            `cbor:"2,keyasint"`
	Pos  token.Position `cbor:"3,keyasint,omitempty"`
}

// CaptureKind indicates how a closure reaches a captured variable when it is
// instantiated.
type CaptureKind uint8

const (
	// CaptureLocal captures the slot Index of the frame instantiating the
	// closure.
	CaptureLocal CaptureKind = iota
	// CaptureUpvalue reuses the upvalue at Index of the closure running in
	// the frame instantiating the closure.
	CaptureUpvalue
)

func (k CaptureKind) String() string {
	switch k {
	case CaptureLocal:
		return "local"
	case CaptureUpvalue:
		return "upvalue"
	default:
		return fmt.Sprintf("<invalid CaptureKind %d>", k)
	}
}

// Capture is the compiled capture descriptor of a variable of an enclosing
// function.
type Capture struct {
	Kind  CaptureKind `cbor:"1,keyasint"`
	Index uint32      `cbor:"2,keyasint"`
	Name  string      `cbor:"3,keyasint,omitempty"`
}

// PCPos records the source position of the instruction at address PC.
type PCPos struct {
	PC   uint32 `cbor:"1,keyasint"`
	Line int32  `cbor:"2,keyasint"`
	Col  int32  `cbor:"3,keyasint"`
}

// Position returns the source position of the instruction at pc, which is
// the position of the closest preceding recorded instruction.
func (fn *Funcode) Position(pc uint32) token.Position {
	i, found := slices.BinarySearchFunc(fn.Positions, pc, func(p PCPos, pc uint32) int {
		switch {
		case p.PC < pc:
			return -1
		case p.PC > pc:
			return +1
		}
		return 0
	})
	if !found {
		i--
	}
	if i < 0 {
		return token.Position{Filename: fn.Pos.Filename}
	}
	p := fn.Positions[i]
	return token.Position{Filename: fn.Pos.Filename, Line: int(p.Line), Col: int(p.Col)}
}

// validate checks the structural consistency of the module, it is called
// by ModuleBuilder.Build and when a module is loaded by Asm or Decode.
func (m *Module) validate() error {
	if m.Toplevel == nil {
		return errors.New("missing top-level function")
	}
	for i, fn := range m.Functions {
		if fn == nil {
			return fmt.Errorf("function %d is not finalized", i)
		}
	}
	for _, fn := range append([]*Funcode{m.Toplevel}, m.Functions...) {
		if fn.NumParams > fn.NumLocals {
			return fmt.Errorf("function %s: %d parameters exceed %d locals", fn.Name, fn.NumParams, fn.NumLocals)
		}
	}

	seen := make(map[string]bool, len(m.Exports))
	for _, exp := range m.Exports {
		if seen[exp.Name] {
			return fmt.Errorf("duplicate export: %s", exp.Name)
		}
		seen[exp.Name] = true

		if exp.Function >= uint32(len(m.Functions)) {
			return fmt.Errorf("export %s: undefined function %d", exp.Name, exp.Function)
		}
		if exp.Slot < 0 || exp.Slot >= m.Toplevel.NumLocals {
			return fmt.Errorf("export %s: invalid top-level slot %d", exp.Name, exp.Slot)
		}
	}
	return nil
}
