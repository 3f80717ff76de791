package compiler

import (
	"errors"
	"fmt"

	"github.com/mna/tarn/lang/token"
)

// A FuncBuilder accumulates the code and metadata of a function. Building is
// append-only, and once Finalize is called the builder must not be used
// anymore: any further call panics.
type FuncBuilder struct {
	fn *Funcode

	pos   token.Pos // position of the next emitted instruction, if known
	stack int       // current depth of the operand stack
}

// NewFuncBuilder returns a builder for a function named name, starting at
// pos and taking numParams parameters.
func NewFuncBuilder(name string, pos token.Position, numParams int) *FuncBuilder {
	return &FuncBuilder{
		fn: &Funcode{
			Name:      name,
			Pos:       pos,
			NumParams: numParams,
			NumLocals: numParams,
		},
	}
}

func (b *FuncBuilder) funcode() *Funcode {
	if b.fn == nil {
		panic("compiler: function builder used after Finalize")
	}
	return b.fn
}

// PC returns the address of the next instruction.
func (b *FuncBuilder) PC() uint32 {
	return uint32(len(b.funcode().Code))
}

// SetPos sets the source position of the next instruction. It should be
// called prior to any instruction that can fail at runtime.
func (b *FuncBuilder) SetPos(p token.Pos) {
	b.funcode()
	b.pos = p
}

// Emit emits an instruction without argument.
func (b *FuncBuilder) Emit(op Opcode) {
	if op >= OpcodeArgMin {
		panic("missing argument for opcode " + op.String())
	}
	b.emit(op, 0)
}

// Emit1 emits an instruction with an immediate operand. Jumps should use
// EmitJump or JumpTo instead.
func (b *FuncBuilder) Emit1(op Opcode, arg uint32) {
	if op < OpcodeArgMin {
		panic("unwanted arg: " + op.String())
	}
	b.emit(op, arg)
}

// EmitJump emits a forward jump instruction to be patched later with
// PatchJump. It returns the address of the jump instruction.
func (b *FuncBuilder) EmitJump(op Opcode) uint32 {
	if !isJump(op) {
		panic("not a jump: " + op.String())
	}
	at := b.PC()
	b.emit(op, 0)
	return at
}

// PatchJump sets the target of the jump instruction at address at to the
// current address.
func (b *FuncBuilder) PatchJump(at uint32) {
	fn := b.funcode()
	if int(at)+5 > len(fn.Code) || !isJump(Opcode(fn.Code[at])) {
		panic(fmt.Sprintf("no jump instruction at address %d", at))
	}
	// the argument of a jump always takes 4 bytes, overwrite in place
	target := uint32(len(fn.Code))
	if target >= 1<<28 {
		panic(fmt.Sprintf("function %s: jump target %d out of range", fn.Name, target))
	}
	addUint32(fn.Code[:at+1], target, 4)
}

// JumpTo emits a jump instruction to the known address target.
func (b *FuncBuilder) JumpTo(op Opcode, target uint32) {
	if !isJump(op) {
		panic("not a jump: " + op.String())
	}
	b.emit(op, target)
}

func (b *FuncBuilder) emit(op Opcode, arg uint32) {
	fn := b.funcode()
	if b.pos.IsValid() {
		l, c := b.pos.LineCol()
		pc := uint32(len(fn.Code))
		if n := len(fn.Positions); n > 0 && fn.Positions[n-1].PC == pc {
			fn.Positions = fn.Positions[:n-1]
		}
		fn.Positions = append(fn.Positions, PCPos{PC: pc, Line: int32(l), Col: int32(c)})
		b.pos = token.NoPos
	}
	fn.Code = encodeInsn(fn.Code, op, arg)

	b.stack += StackEffect(op, arg)
	if b.stack < 0 {
		panic(fmt.Sprintf("function %s: stack underflow after %s", fn.Name, op))
	}
	if b.stack > fn.MaxStack {
		fn.MaxStack = b.stack
	}
}

// SetNumLocals sets the number of local slots of the function's frames.
func (b *FuncBuilder) SetNumLocals(n int) {
	fn := b.funcode()
	if n < fn.NumParams {
		panic(fmt.Sprintf("function %s: %d locals for %d parameters", fn.Name, n, fn.NumParams))
	}
	fn.NumLocals = n
}

// AddLocal records the debug information of a local.
func (b *FuncBuilder) AddLocal(l Binding) {
	fn := b.funcode()
	fn.Locals = append(fn.Locals, l)
}

// AddCell records that slot holds a local captured by a nested function.
func (b *FuncBuilder) AddCell(slot int) {
	fn := b.funcode()
	for _, c := range fn.Cells {
		if c == slot {
			return
		}
	}
	fn.Cells = append(fn.Cells, slot)
}

// AddCapture appends a capture descriptor and returns its index, which is
// the index of the corresponding upvalue in the closures of this function.
func (b *FuncBuilder) AddCapture(c Capture) uint32 {
	fn := b.funcode()
	fn.Captures = append(fn.Captures, c)
	return uint32(len(fn.Captures) - 1)
}

// Finalize returns the immutable compiled function.
func (b *FuncBuilder) Finalize() *Funcode {
	fn := b.funcode()
	b.fn = nil
	return fn
}

// A ModuleBuilder collects the finalized functions of a module and its
// exports.
type ModuleBuilder struct {
	Pool *Pool

	filename  string
	toplevel  *Funcode
	functions []*Funcode
	exports   []Export
	built     bool
}

// NewModuleBuilder returns a builder for the module of the chunk filename.
func NewModuleBuilder(filename string) *ModuleBuilder {
	return &ModuleBuilder{Pool: NewPool(), filename: filename}
}

// Reserve reserves the index of a function that is not finalized yet, so
// that functions are indexed in definition order even when nested. The
// function must be defined with Define before the module is built.
func (b *ModuleBuilder) Reserve() uint32 {
	b.functions = append(b.functions, nil)
	return uint32(len(b.functions) - 1)
}

// Define sets the finalized function at index ix, previously reserved.
func (b *ModuleBuilder) Define(ix uint32, fn *Funcode) {
	if fn == nil {
		panic("compiler: nil function")
	}
	if ix >= uint32(len(b.functions)) || b.functions[ix] != nil {
		panic(fmt.Sprintf("compiler: function index %d is not reserved", ix))
	}
	b.functions[ix] = fn
}

// AddFunction adds a finalized function and returns its index.
func (b *ModuleBuilder) AddFunction(fn *Funcode) uint32 {
	ix := b.Reserve()
	b.Define(ix, fn)
	return ix
}

// SetToplevel sets the finalized top-level function of the module.
func (b *ModuleBuilder) SetToplevel(fn *Funcode) {
	b.toplevel = fn
}

// Export exports name, bound to the function at index fn and stored in the
// top-level slot.
func (b *ModuleBuilder) Export(name string, fn uint32, slot int) {
	b.exports = append(b.exports, Export{Name: name, Function: fn, Slot: slot})
}

// Build returns the module. It fails if the module has no top-level
// function, if a reserved function was never defined or if an export does
// not reference a finalized function. A module can only be built once.
func (b *ModuleBuilder) Build() (*Module, error) {
	if b.built {
		return nil, errors.New("module already built")
	}

	m := &Module{
		Filename:  b.filename,
		Names:     b.Pool.Names(),
		Constants: b.Pool.Constants(),
		Toplevel:  b.toplevel,
		Functions: b.functions,
		Exports:   b.exports,
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", b.filename, err)
	}
	b.built = true
	return m, nil
}

func encodeInsn(code []byte, op Opcode, arg uint32) []byte {
	code = append(code, byte(op))
	if op >= OpcodeArgMin {
		if isJump(op) {
			code = addUint32(code, arg, 4) // pad arg to 4 bytes
		} else {
			code = addUint32(code, arg, 0)
		}
	}
	return code
}

// addUint32 encodes x as 7-bit little-endian varint.
func addUint32(code []byte, x uint32, min int) []byte {
	end := len(code) + min
	for x >= 0x80 {
		code = append(code, byte(x)|0x80)
		x >>= 7
	}
	code = append(code, byte(x))
	// Pad the operand with NOPs to exactly min bytes.
	for len(code) < end {
		code = append(code, byte(NOP))
	}
	return code
}
