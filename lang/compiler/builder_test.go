package compiler_test

import (
	"math"
	"testing"

	"github.com/mna/tarn/lang/compiler"
	"github.com/mna/tarn/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	p := compiler.NewPool()

	assert.Equal(t, uint32(0), p.Constant(int64(1)))
	assert.Equal(t, uint32(1), p.Constant(1.0))
	assert.Equal(t, uint32(2), p.Constant("1"))
	assert.Equal(t, uint32(0), p.Constant(int64(1)))
	assert.Equal(t, uint32(1), p.Constant(1.0))
	assert.Equal(t, uint32(2), p.Constant("1"))

	// distinct bit patterns are distinct constants
	zero, negZero := 0.0, math.Copysign(0, -1)
	assert.Equal(t, uint32(3), p.Constant(zero))
	assert.Equal(t, uint32(4), p.Constant(negZero))
	nan := math.NaN()
	assert.Equal(t, uint32(5), p.Constant(nan))
	assert.Equal(t, uint32(5), p.Constant(nan))
	assert.Len(t, p.Constants(), 6)

	assert.Equal(t, uint32(0), p.Name("print"))
	assert.Equal(t, uint32(1), p.Name("len"))
	assert.Equal(t, uint32(0), p.Name("print"))
	assert.Equal(t, []string{"print", "len"}, p.Names())

	assert.Panics(t, func() { p.Constant(true) })
}

func TestFuncBuilder(t *testing.T) {
	fb := compiler.NewFuncBuilder("f", token.Position{Filename: "test"}, 1)
	fb.SetNumLocals(2)
	fb.AddLocal(compiler.Binding{Name: "a", Slot: 0})
	fb.AddCell(1)
	fb.AddCell(1)
	assert.Equal(t, uint32(0), fb.AddCapture(compiler.Capture{Kind: compiler.CaptureUpvalue, Index: 2}))

	top := fb.PC()
	fb.Emit1(compiler.LOCAL, 0)
	fb.SetPos(token.MakePos(3, 4))
	fb.Emit(compiler.NOT)
	jmp := fb.EmitJump(compiler.CJMP)
	fb.Emit1(compiler.CONSTANT, 200)
	fb.Emit1(compiler.CONSTANT, 0)
	fb.SetPos(token.MakePos(5, 6))
	fb.Emit(compiler.PLUS)
	fb.Emit(compiler.POP)
	fb.JumpTo(compiler.JMP, top)
	fb.PatchJump(jmp)
	fb.Emit(compiler.NIL)
	fb.Emit(compiler.RETURN)

	fn := fb.Finalize()
	assert.Equal(t, 2, fn.MaxStack)
	assert.Equal(t, 1, fn.NumParams)
	assert.Equal(t, 2, fn.NumLocals)
	assert.Equal(t, []int{1}, fn.Cells)
	assert.Equal(t, []byte{
		byte(compiler.LOCAL), 0,
		byte(compiler.NOT),
		byte(compiler.CJMP), 20, 0, 0, 0,
		byte(compiler.CONSTANT), 200, 1,
		byte(compiler.CONSTANT), 0,
		byte(compiler.PLUS),
		byte(compiler.POP),
		byte(compiler.JMP), 0, 0, 0, 0,
		byte(compiler.NIL),
		byte(compiler.RETURN),
	}, fn.Code)
	assert.Equal(t, []compiler.PCPos{{PC: 2, Line: 3, Col: 4}, {PC: 13, Line: 5, Col: 6}}, fn.Positions)

	assert.Equal(t, token.Position{Filename: "test"}, fn.Position(0))
	assert.Equal(t, token.Position{Filename: "test", Line: 3, Col: 4}, fn.Position(2))
	assert.Equal(t, token.Position{Filename: "test", Line: 3, Col: 4}, fn.Position(8))
	assert.Equal(t, token.Position{Filename: "test", Line: 5, Col: 6}, fn.Position(13))
	assert.Equal(t, token.Position{Filename: "test", Line: 5, Col: 6}, fn.Position(100))

	// the builder is unusable after Finalize
	assert.Panics(t, func() { fb.Emit(compiler.NOP) })
	assert.Panics(t, func() { fb.AddCapture(compiler.Capture{}) })
	assert.Panics(t, func() { fb.Finalize() })
}

func TestFuncBuilderMisuse(t *testing.T) {
	fb := compiler.NewFuncBuilder("f", token.Position{}, 2)
	assert.Panics(t, func() { fb.Emit(compiler.CALL) })
	assert.Panics(t, func() { fb.Emit1(compiler.NIL, 1) })
	assert.Panics(t, func() { fb.EmitJump(compiler.CONSTANT) })
	assert.Panics(t, func() { fb.PatchJump(0) })
	assert.Panics(t, func() { fb.SetNumLocals(1) })
	assert.Panics(t, func() { fb.Emit(compiler.POP) }) // stack underflow
}

func TestModuleBuilder(t *testing.T) {
	newFn := func(name string, locals int) *compiler.Funcode {
		fb := compiler.NewFuncBuilder(name, token.Position{}, 0)
		fb.SetNumLocals(locals)
		fb.Emit(compiler.NIL)
		fb.Emit(compiler.RETURN)
		return fb.Finalize()
	}

	t.Run("valid", func(t *testing.T) {
		mb := compiler.NewModuleBuilder("test")
		ix := mb.Reserve()
		g := mb.AddFunction(newFn("g", 0))
		mb.Define(ix, newFn("f", 0))
		mb.SetToplevel(newFn("toplevel", 2))
		mb.Export("f", ix, 0)
		mb.Export("g", g, 1)
		mb.Pool.Constant("x")

		m, err := mb.Build()
		require.NoError(t, err)
		assert.Equal(t, "test", m.Filename)
		assert.Equal(t, []any{"x"}, m.Constants)
		require.Len(t, m.Functions, 2)
		assert.Equal(t, "f", m.Functions[0].Name)
		assert.Equal(t, "g", m.Functions[1].Name)
		assert.Len(t, m.Exports, 2)

		_, err = mb.Build()
		require.ErrorContains(t, err, "module already built")
	})

	t.Run("missing toplevel", func(t *testing.T) {
		mb := compiler.NewModuleBuilder("test")
		_, err := mb.Build()
		require.ErrorContains(t, err, "missing top-level function")
	})

	t.Run("export undefined function", func(t *testing.T) {
		mb := compiler.NewModuleBuilder("test")
		mb.SetToplevel(newFn("toplevel", 1))
		mb.Export("f", 0, 0)
		_, err := mb.Build()
		require.ErrorContains(t, err, "test: export f: undefined function 0")
	})

	t.Run("export unfinalized function", func(t *testing.T) {
		mb := compiler.NewModuleBuilder("test")
		mb.SetToplevel(newFn("toplevel", 1))
		ix := mb.Reserve()
		mb.Export("f", ix, 0)
		_, err := mb.Build()
		require.ErrorContains(t, err, "function 0 is not finalized")

		// once defined, the module builds
		mb.Define(ix, newFn("f", 0))
		_, err = mb.Build()
		require.NoError(t, err)
	})

	t.Run("duplicate export", func(t *testing.T) {
		mb := compiler.NewModuleBuilder("test")
		mb.SetToplevel(newFn("toplevel", 1))
		ix := mb.AddFunction(newFn("f", 0))
		mb.Export("f", ix, 0)
		mb.Export("f", ix, 0)
		_, err := mb.Build()
		require.ErrorContains(t, err, "duplicate export: f")
	})

	t.Run("invalid define", func(t *testing.T) {
		mb := compiler.NewModuleBuilder("test")
		assert.Panics(t, func() { mb.Define(0, newFn("f", 0)) })
		ix := mb.AddFunction(newFn("f", 0))
		assert.Panics(t, func() { mb.Define(ix, newFn("f", 0)) })
		assert.Panics(t, func() { mb.AddFunction(nil) })
	})
}
