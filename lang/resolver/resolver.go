// Much of the resolver package is adapted from the Starlark source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolver implements the resolver that takes an abstract syntax
// tree and resolves the identifiers to bindings.
//
// # Scopes
//
// Bindings are either "undefined" (which generates an error), "local" to a
// function (which may be the top-level), "free" (a reference to a binding
// declared in an enclosing function, i.e. a closure) or "predeclared" (from
// a list of bindings provided to the environment). There is no concept of
// global variables.
//
// When a local binding is used as a free binding, it becomes a "cell" (a
// function's local that is captured by at least one nested function).
//
// # Slots
//
// Each local is assigned a slot in its function's frame. Slots are dense and
// the slots of a block's locals are reused by later declarations once the
// block exits, unless one of those locals is captured: the slots of captured
// locals are retained until the function returns. The compiler closes the
// upvalues of a block's captured locals when the block exits, so that each
// execution of the block (e.g. each iteration of a loop) captures a fresh
// variable.
//
// # Captures
//
// A function that references a name declared in an enclosing function
// records a capture: either a direct capture of a local of the immediately
// enclosing function, or a capture relayed through the immediately
// enclosing function's own captures. Repeated references to the same
// variable from a function share a single capture.
//
// # Const
//
// Constant variables cannot be assigned after declaration. Names declared by
// const declarations and function statements are constants, as well as
// predeclared bindings.
//
// # Exports
//
// Only names declared by function statements in the top-level scope of a
// chunk can be exported, and only by an export statement in that same scope.
package resolver

import (
	"context"
	"fmt"

	"github.com/mna/tarn/lang/ast"
	"github.com/mna/tarn/lang/token"
)

// Limits on the number of locals and captures of a function.
const (
	MaxLocals   = 1<<16 - 1
	MaxCaptures = 1<<16 - 1
)

// Resolve takes the list of chunks produced by the front end and resolves
// the bindings used in the source code. On success, the AST is enriched with
// binding resolution information and is ready to be compiled to bytecode for
// virtual machine execution.
//
// Resolution continues after an error so that all errors are reported. The
// returned error, if non-nil, is guaranteed to be a token.ErrorList, and the
// AST must not be compiled.
func Resolve(ctx context.Context, chunks []*ast.Chunk, isPredeclared func(name string) bool) error {
	if len(chunks) == 0 {
		return nil
	}

	var r resolver
	r.isPredeclared = isPredeclared
	if isPredeclared == nil {
		r.isPredeclared = func(name string) bool { return false }
	}

	for _, ch := range chunks {
		if err := ctx.Err(); err != nil {
			r.errors.Add(token.Position{Filename: ch.Name}, err.Error())
			break
		}
		r.init(ch.Name)
		r.chunk(ch)
	}
	r.errors.Sort()
	return r.errors.Err()
}

type resolver struct {
	filename string
	errors   token.ErrorList

	// fns is the stack of functions being resolved, the innermost last. The
	// first entry is the top-level of the chunk.
	fns []*funcState

	// globals saves the bindings of predeclared names when they are first
	// referenced.
	globals map[string]*Binding

	// funcDecls records the bindings declared by function statements, and
	// exported the names already exported.
	funcDecls map[*Binding]bool
	exported  map[string]bool

	isPredeclared func(name string) bool
}

func (r *resolver) init(filename string) {
	r.filename = filename
	r.fns = r.fns[:0]
	r.globals = make(map[string]*Binding)
	r.funcDecls = make(map[*Binding]bool)
	r.exported = make(map[string]bool)
}

func (r *resolver) errorf(p token.Pos, format string, args ...interface{}) {
	r.errors.Add(token.MakePosition(r.filename, p), fmt.Sprintf(format, args...))
}

func (r *resolver) current() *funcState { return r.fns[len(r.fns)-1] }

func (r *resolver) push(fn *Function, blk *ast.Block) {
	fs := newFuncState(fn)
	r.fns = append(r.fns, fs)
	fs.beginScope(blk)
}

func (r *resolver) pop() {
	r.current().endScope()
	r.fns = r.fns[:len(r.fns)-1]
}

func (r *resolver) chunk(ch *ast.Chunk) {
	fn := &Function{Definition: ch, Name: "toplevel"}
	blk := ch.Block
	if blk == nil {
		blk = &ast.Block{Start: ch.EOF, End: ch.EOF}
		ch.Block = blk
	}
	r.push(fn, blk)
	r.stmts(blk.Stmts)
	r.pop()
	ch.Function = fn
}

func (r *resolver) function(def ast.Node, name string, params []*ast.IdentExpr, body *ast.Block) *Function {
	fn := &Function{Definition: def, Name: name, NumParams: len(params)}
	r.push(fn, nil)
	for _, p := range params {
		r.bind(p, false)
	}
	r.block(body)
	r.pop()
	return fn
}

func (r *resolver) block(b *ast.Block) {
	fs := r.current()
	fs.beginScope(b)
	r.stmts(b.Stmts)
	fs.endScope()
}

func (r *resolver) stmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		r.stmt(stmt)
	}
}

func (r *resolver) stmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.AssignStmt:
		// resolve the rhs first, a declaration is not visible in its own value
		if stmt.Right != nil {
			r.expr(stmt.Right)
		}
		if stmt.DeclType != token.ILLEGAL {
			r.bind(stmt.Left, stmt.DeclType == token.CONST)
		} else {
			r.use(stmt.Left, true)
		}

	case *ast.DoStmt:
		r.block(stmt.Body)

	case *ast.ExportStmt:
		r.export(stmt)

	case *ast.ExprStmt:
		r.expr(stmt.Expr)

	case *ast.FuncStmt:
		// bind the name before the body, as it can be used by itself
		if bdg := r.bind(stmt.Name, true); bdg != nil {
			r.funcDecls[bdg] = true
		}
		stmt.Function = r.function(stmt, stmt.Name.Lit, stmt.Params, stmt.Body)

	case *ast.IfStmt:
		r.expr(stmt.Cond)
		r.block(stmt.True)
		if stmt.False != nil {
			r.block(stmt.False)
		}

	case *ast.ReturnStmt:
		if stmt.Expr != nil {
			r.expr(stmt.Expr)
		}

	case *ast.WhileStmt:
		r.expr(stmt.Cond)
		r.block(stmt.Body)

	default:
		panic(fmt.Sprintf("unexpected stmt %T", stmt))
	}
}

func (r *resolver) expr(expr ast.Expr) {
	switch expr := expr.(type) {
	case *ast.BinOpExpr:
		r.expr(expr.Left)
		r.expr(expr.Right)

	case *ast.CallExpr:
		r.expr(expr.Fn)
		for _, arg := range expr.Args {
			r.expr(arg)
		}

	case *ast.FuncExpr:
		expr.Function = r.function(expr, "anonymous", expr.Params, expr.Body)

	case *ast.IdentExpr:
		r.use(expr, false)

	case *ast.LiteralExpr:
		// nothing to resolve

	case *ast.ParenExpr:
		r.expr(expr.Expr)

	case *ast.UnaryOpExpr:
		r.expr(expr.Right)

	default:
		panic(fmt.Sprintf("unexpected expr %T", expr))
	}
}

func (r *resolver) export(stmt *ast.ExportStmt) {
	fs := r.current()
	topLevel := len(r.fns) == 1 && fs.depth() == 1
	if !topLevel {
		r.errorf(stmt.Export, "invalid export outside top-level")
	}

	for _, id := range stmt.Names {
		var l *LocalVar
		if topLevel {
			l = fs.resolveLocal(id.Lit)
		}
		switch {
		case !topLevel:
			id.Binding = &Binding{Scope: Undefined}
		case l == nil:
			r.errorf(id.Start, "undefined: %s", id.Lit)
			id.Binding = &Binding{Scope: Undefined}
		case !r.funcDecls[l.Binding]:
			r.errorf(id.Start, "export of non-function: %s", id.Lit)
			id.Binding = l.Binding
		case r.exported[id.Lit]:
			r.errorf(id.Start, "already exported: %s", id.Lit)
			id.Binding = l.Binding
		default:
			r.exported[id.Lit] = true
			id.Binding = l.Binding
		}
	}
}

// bind declares ident in the current scope and returns its binding, or nil
// if the declaration failed.
func (r *resolver) bind(ident *ast.IdentExpr, isConst bool) *Binding {
	fs := r.current()
	if fs.nextSlot >= MaxLocals {
		r.errorf(ident.Start, "too many locals in function %s", fs.fn.Name)
		ident.Binding = &Binding{Scope: Undefined}
		return nil
	}

	l := fs.declare(ident, isConst)
	if l == nil {
		// rule: can only shadow in a child block
		r.errorf(ident.Start, "already declared in this block: %s", ident.Lit)
		ident.Binding = &Binding{Scope: Undefined}
		return nil
	}
	ident.Binding = l.Binding
	return l.Binding
}

func (r *resolver) use(ident *ast.IdentExpr, isAssign bool) {
	fs := r.current()
	if l := fs.resolveLocal(ident.Lit); l != nil {
		if isAssign && l.Binding.Const {
			r.errorf(ident.Start, "assignment to immutable variable: %s", ident.Lit)
		}
		ident.Binding = l.Binding
		return
	}

	// not a local, look in the enclosing functions
	ix, orig := r.resolveCapture(ident.Lit, len(r.fns)-1)
	if orig != nil {
		if ix < 0 {
			r.errorf(ident.Start, "too many captures in function %s", fs.fn.Name)
			ident.Binding = &Binding{Scope: Undefined}
			return
		}
		if isAssign && orig.Const {
			r.errorf(ident.Start, "assignment to immutable variable: %s", ident.Lit)
		}
		ident.Binding = &Binding{
			Scope: Free,
			Index: ix,
			Const: orig.Const,
			Decl:  orig.Decl,
		}
		return
	}

	if r.isPredeclared(ident.Lit) {
		if isAssign {
			r.errorf(ident.Start, "assignment to immutable variable: %s", ident.Lit)
		}

		bdg, ok := r.globals[ident.Lit]
		if !ok {
			bdg = &Binding{Scope: Predeclared, Decl: ident, Const: true}
			r.globals[ident.Lit] = bdg
		}
		ident.Binding = bdg
		return
	}

	r.errorf(ident.Start, "undefined: %s", ident.Lit)
	ident.Binding = &Binding{Scope: Undefined}
}
