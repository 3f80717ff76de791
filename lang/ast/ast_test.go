package ast_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mna/tarn/internal/asttest"
	"github.com/mna/tarn/lang/ast"
	"github.com/mna/tarn/lang/token"
	"github.com/stretchr/testify/assert"
)

func TestWalk(t *testing.T) {
	var b asttest.Builder
	ch := b.Chunk("test",
		b.Let("x", b.Int(1)),
		b.Fn("f", []string{"a"},
			b.Return(b.Bin(b.Ident("a"), token.PLUS, b.Ident("x"))),
		),
		b.While(b.Bool(true), b.Expr(b.CallName("f", b.Int(2)))),
	)

	var enter []string
	ast.Walk(ast.VisitorFunc(func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		enter = append(enter, strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast."))
		return ast.VisitorFunc(func(n ast.Node, dir ast.VisitDirection) ast.Visitor { return nil })
	}), ch)

	// the returned visitor skips grandchildren
	assert.Equal(t, []string{"Chunk"}, enter)

	enter = enter[:0]
	var visit ast.VisitorFunc
	visit = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir == ast.VisitEnter {
			lbl := strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast.")
			if id, ok := n.(*ast.IdentExpr); ok {
				lbl += " " + id.Lit
			}
			enter = append(enter, lbl)
		}
		return visit
	}
	ast.Walk(visit, ch)
	assert.Equal(t, []string{
		"Chunk", "Block",
		"AssignStmt", "IdentExpr x", "LiteralExpr",
		"FuncStmt", "IdentExpr f", "IdentExpr a", "Block",
		"ReturnStmt", "BinOpExpr", "IdentExpr a", "IdentExpr x",
		"WhileStmt", "LiteralExpr", "Block",
		"ExprStmt", "CallExpr", "IdentExpr f", "LiteralExpr",
	}, enter)
}

func TestUnwrap(t *testing.T) {
	var b asttest.Builder
	id := b.Ident("x")
	assert.Same(t, id, ast.Unwrap(b.Paren(b.Paren(id))))
	assert.Same(t, id, ast.Unwrap(id))
}

func TestSpan(t *testing.T) {
	var b asttest.Builder
	id := b.Ident("abc")
	start, end := id.Span()
	sl, sc := start.LineCol()
	el, ec := end.LineCol()
	assert.Equal(t, sl, el)
	assert.Equal(t, sc+3, ec)

	decl := b.Let("y", nil)
	start, _ = decl.Span()
	assert.Equal(t, decl.DeclStart, start)

	bin := b.Bin(b.Int(1), token.PLUS, b.Int(2))
	start, end = bin.Span()
	ls, _ := bin.Left.Span()
	_, re := bin.Right.Span()
	assert.Equal(t, ls, start)
	assert.Equal(t, re, end)
}

func TestInspect(t *testing.T) {
	var b asttest.Builder
	ch := b.Chunk("test",
		b.Fn("f", nil, b.Return(b.Ident("a"))),
		b.Expr(b.CallName("g", b.Ident("b"))),
	)

	// skip function bodies
	var idents []string
	ast.Inspect(ch, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncStmt:
			return false
		case *ast.IdentExpr:
			idents = append(idents, n.Lit)
		}
		return true
	})
	assert.Equal(t, []string{"g", "b"}, idents)
}
