package resolver

import (
	"fmt"

	"github.com/mna/tarn/lang/ast"
)

// The Scope of Binding indicates what kind of scope it has.
type Scope uint8

const (
	Undefined   Scope = iota // name is not defined
	Local                    // name is local to its function
	Cell                     // name is function-local but captured by a nested function
	Free                     // name is captured from an enclosing function
	Predeclared              // name is predeclared for this module (provided to its environment)
)

var scopeNames = [...]string{
	Undefined:   "undefined",
	Local:       "local",
	Cell:        "cell",
	Free:        "free",
	Predeclared: "predeclared",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid Scope %d>", s)
	}
	return scopeNames[s]
}

// A Binding contains resolver information about an identifier. The resolver
// creates a binding for each declaration and it ties together all identifiers
// that denote the same variable in the same function.
type Binding struct {
	Scope Scope

	// Index records the index into the enclosing
	// - function's frame slots, if Scope==Local or Scope==Cell
	// - function's Captures, if Scope==Free
	// It is zero if Scope is Predeclared or Undefined.
	Index int

	// Const is true if the binding cannot be assigned to after its
	// declaration.
	Const bool

	// Decl is the identifier that declares this binding.
	Decl *ast.IdentExpr
}

// LocalVar is the compile-time record of a local variable declared in a
// function.
type LocalVar struct {
	Name string

	// Depth is the scope depth of the declaration in its function, 1 being
	// the function's own scope (parameters, or top-level of a chunk).
	Depth int

	// Slot is the index of the local in the function's frame. Slots are
	// reused by later declarations once the scope of the local is closed,
	// unless the local is captured.
	Slot int

	// Captured is set if a nested function captures this local.
	Captured bool

	Binding *Binding
}

// BlockScope describes the slots used by an *ast.Block. It is set as the
// Scope field of the block.
type BlockScope struct {
	// FirstSlot is the first slot available to locals declared in this block.
	FirstSlot int

	// Captured is true if at least one local declared in this block is
	// captured by a nested function, in which case the upvalues opened on
	// slots >= FirstSlot must be closed when the block exits.
	Captured bool
}

// Function is the resolved information about a function (or top-level
// chunk).
type Function struct {
	Definition ast.Node // *ast.Chunk, *ast.FuncStmt or *ast.FuncExpr
	Name       string
	NumParams  int

	// Locals lists every local declared in this function, in declaration
	// order (parameters first). Distinct locals may share the same slot.
	Locals []*LocalVar

	// Captures is the ordered list of variables captured from enclosing
	// functions.
	Captures []Capture

	// NumSlots is the number of slots required for the locals in a frame of
	// this function.
	NumSlots int
}
