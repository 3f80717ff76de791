// Much of the compiler package is adapted from the Starlark source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler takes a resolved AST and compiles it to bytecode that can
// be executed by the virtual machine. It also provides a pseudo-assembly
// serialization and deserialization to encode in textual form a module that
// closely matches the binary format of the compiled form, and a binary
// encoding of compiled modules.
package compiler

import (
	"context"
	"fmt"
	"math"

	"github.com/mna/tarn/lang/ast"
	"github.com/mna/tarn/lang/resolver"
	"github.com/mna/tarn/lang/token"
)

// Compile takes the list of chunks from a successful resolve result and
// compiles each one to a Module.
//
// An AST that resulted in errors in the resolve phase should never be
// passed to the compiler, the behavior is undefined. If a module fails to
// build, the returned error is a token.ErrorList and no module is returned.
func Compile(ctx context.Context, chunks []*ast.Chunk) ([]*Module, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	var errs token.ErrorList
	mods := make([]*Module, 0, len(chunks))
	for _, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mcomp := &mcomp{
			filename: ch.Name,
			mb:       NewModuleBuilder(ch.Name),
			fnIndex:  make(map[*resolver.Binding]uint32),
		}
		m, err := mcomp.chunk(ch)
		if err != nil {
			errs.Add(token.Position{Filename: ch.Name}, err.Error())
			continue
		}
		mods = append(mods, m)
	}

	errs.Sort()
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return mods, nil
}

// An mcomp holds the compiler state for a Module.
type mcomp struct {
	filename string
	mb       *ModuleBuilder

	// fnIndex maps the bindings declared by function statements to the index
	// of their function, for exports.
	fnIndex map[*resolver.Binding]uint32
}

func (mcomp *mcomp) chunk(ch *ast.Chunk) (*Module, error) {
	fn := ch.Function.(*resolver.Function)
	mcomp.mb.SetToplevel(mcomp.function(fn, ch.Block))
	return mcomp.mb.Build()
}

func (mcomp *mcomp) position(p token.Pos) token.Position {
	return token.MakePosition(mcomp.filename, p)
}

func (mcomp *mcomp) function(f *resolver.Function, body *ast.Block) *Funcode {
	start, _ := f.Definition.Span()
	fb := NewFuncBuilder(f.Name, mcomp.position(start), f.NumParams)
	fb.SetNumLocals(f.NumSlots)

	for _, l := range f.Locals {
		fb.AddLocal(Binding{Name: l.Name, Slot: l.Slot, Pos: mcomp.position(l.Binding.Decl.Start)})
		if l.Captured {
			fb.AddCell(l.Slot)
		}
	}
	for _, c := range f.Captures {
		kind := CaptureLocal
		if c.Kind == resolver.CaptureUpvalue {
			kind = CaptureUpvalue
		}
		fb.AddCapture(Capture{Kind: kind, Index: uint32(c.Index), Name: c.Name})
	}

	fcomp := &fcomp{mcomp: mcomp, fb: fb}
	// the frame closes all its upvalues on return, the body's captured
	// locals need no explicit CLOSE.
	fcomp.stmts(body.Stmts)
	fb.Emit(NIL)
	fb.Emit(RETURN)
	return fb.Finalize()
}

// An fcomp holds the compiler state for a Funcode.
type fcomp struct {
	mcomp *mcomp
	fb    *FuncBuilder
}

func (fcomp *fcomp) block(b *ast.Block) {
	fcomp.stmts(b.Stmts)
	if bs, ok := b.Scope.(*resolver.BlockScope); ok && bs.Captured {
		fcomp.fb.Emit1(CLOSE, uint32(bs.FirstSlot))
	}
}

func (fcomp *fcomp) stmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		fcomp.stmt(stmt)
	}
}

func (fcomp *fcomp) stmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.AssignStmt:
		if stmt.Right != nil {
			fcomp.expr(stmt.Right)
		} else {
			// slots may be reused, always initialize a declared local
			fcomp.fb.Emit(NIL)
		}
		fcomp.set(stmt.Left)

	case *ast.DoStmt:
		fcomp.block(stmt.Body)

	case *ast.ExportStmt:
		for _, id := range stmt.Names {
			bdg := id.Binding.(*resolver.Binding)
			ix, ok := fcomp.mcomp.fnIndex[bdg]
			if !ok {
				// fails the module build
				ix = math.MaxUint32
			}
			fcomp.mcomp.mb.Export(id.Lit, ix, bdg.Index)
		}

	case *ast.ExprStmt:
		// compute the expression and ignore the resulting value (pop it off
		// the stack)
		fcomp.expr(stmt.Expr)
		fcomp.fb.Emit(POP)

	case *ast.FuncStmt:
		ix := fcomp.function(stmt.Function.(*resolver.Function), stmt.Body)
		fcomp.set(stmt.Name)
		if bdg, ok := stmt.Name.Binding.(*resolver.Binding); ok {
			fcomp.mcomp.fnIndex[bdg] = ix
		}

	case *ast.IfStmt:
		fcomp.expr(stmt.Cond)
		fcomp.fb.Emit(NOT)
		toElse := fcomp.fb.EmitJump(CJMP)
		fcomp.block(stmt.True)
		if stmt.False != nil {
			toEnd := fcomp.fb.EmitJump(JMP)
			fcomp.fb.PatchJump(toElse)
			fcomp.block(stmt.False)
			fcomp.fb.PatchJump(toEnd)
		} else {
			fcomp.fb.PatchJump(toElse)
		}

	case *ast.ReturnStmt:
		if stmt.Expr != nil {
			fcomp.expr(stmt.Expr)
		} else {
			fcomp.fb.Emit(NIL)
		}
		fcomp.fb.Emit(RETURN)

	case *ast.WhileStmt:
		top := fcomp.fb.PC()
		fcomp.expr(stmt.Cond)
		fcomp.fb.Emit(NOT)
		toEnd := fcomp.fb.EmitJump(CJMP)
		fcomp.block(stmt.Body)
		fcomp.fb.JumpTo(JMP, top)
		fcomp.fb.PatchJump(toEnd)

	default:
		panic(fmt.Sprintf("unexpected stmt %T", stmt))
	}
}

func (fcomp *fcomp) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.BinOpExpr:
		fcomp.expr(e.Left)
		fcomp.expr(e.Right)
		fcomp.fb.SetPos(e.Op)
		fcomp.fb.Emit(binop(e.Type))

	case *ast.CallExpr:
		fcomp.expr(e.Fn)
		for _, arg := range e.Args {
			fcomp.expr(arg)
		}
		fcomp.fb.SetPos(e.Lparen)
		fcomp.fb.Emit1(CALL, uint32(len(e.Args)))

	case *ast.FuncExpr:
		fcomp.function(e.Function.(*resolver.Function), e.Body)

	case *ast.IdentExpr:
		fcomp.lookup(e)

	case *ast.LiteralExpr:
		switch e.Type {
		case token.NULL:
			fcomp.fb.Emit(NIL)
		case token.TRUE:
			fcomp.fb.Emit(TRUE)
		case token.FALSE:
			fcomp.fb.Emit(FALSE)
		default:
			// e.Value is int64, float64, string
			fcomp.fb.Emit1(CONSTANT, fcomp.mcomp.mb.Pool.Constant(e.Value))
		}

	case *ast.ParenExpr:
		fcomp.expr(e.Expr)

	case *ast.UnaryOpExpr:
		fcomp.expr(e.Right)
		fcomp.fb.SetPos(e.Op)
		switch e.Type {
		case token.MINUS:
			fcomp.fb.Emit(UMINUS)
		case token.NOT:
			fcomp.fb.Emit(NOT)
		default:
			panic(fmt.Sprintf("%s: unexpected unary op: %s", fcomp.mcomp.position(e.Op), e.Type))
		}

	default:
		panic(fmt.Sprintf("unexpected expr %T", e))
	}
}

func binop(tok token.Token) Opcode {
	switch {
	case tok.IsArith():
		return PLUS + Opcode(tok-token.PLUS)
	case tok.IsCompare():
		return LT + Opcode(tok-token.LT)
	}
	panic(fmt.Sprintf("unexpected binary op: %s", tok))
}

// function compiles the nested function f and emits the MAKEFUNC
// instruction that creates its closure. It returns the index of the function
// in the module.
func (fcomp *fcomp) function(f *resolver.Function, body *ast.Block) uint32 {
	mb := fcomp.mcomp.mb
	ix := mb.Reserve()
	mb.Define(ix, fcomp.mcomp.function(f, body))
	fcomp.fb.Emit1(MAKEFUNC, ix)
	return ix
}

// lookup emits code to push the value of the specified variable.
func (fcomp *fcomp) lookup(id *ast.IdentExpr) {
	bind := id.Binding.(*resolver.Binding)
	switch bind.Scope {
	case resolver.Local, resolver.Cell:
		fcomp.fb.Emit1(LOCAL, uint32(bind.Index))
	case resolver.Free:
		fcomp.fb.Emit1(UPVALUE, uint32(bind.Index))
	case resolver.Predeclared:
		fcomp.fb.SetPos(id.Start)
		fcomp.fb.Emit1(PREDECLARED, fcomp.mcomp.mb.Pool.Name(id.Lit))
	default:
		panic(fmt.Sprintf("%s: compiler.lookup(%s): scope = %s", fcomp.mcomp.position(id.Start), id.Lit, bind.Scope))
	}
}

// set emits code to store the top-of-stack value to the specified variable.
func (fcomp *fcomp) set(id *ast.IdentExpr) {
	bind := id.Binding.(*resolver.Binding)
	switch bind.Scope {
	case resolver.Local, resolver.Cell:
		fcomp.fb.Emit1(SETLOCAL, uint32(bind.Index))
	case resolver.Free:
		fcomp.fb.Emit1(SETUPVALUE, uint32(bind.Index))
	default:
		panic(fmt.Sprintf("%s: compiler.set(%s): scope = %s", fcomp.mcomp.position(id.Start), id.Lit, bind.Scope))
	}
}
