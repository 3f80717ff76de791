// Package asttest provides helpers to build abstract syntax trees in tests,
// without going through a parser. Each node created by a Builder is given a
// distinct position on its own line, in creation order.
package asttest

import (
	"strconv"

	"github.com/mna/tarn/lang/ast"
	"github.com/mna/tarn/lang/token"
)

// Builder creates AST nodes with increasing positions. The zero value is
// ready to use.
type Builder struct {
	line int
}

func (b *Builder) pos() token.Pos {
	b.line++
	return token.MakePos(b.line, 1)
}

// Line returns the line of the last position generated.
func (b *Builder) Line() int { return b.line }

// Chunk returns a chunk named name with the provided statements.
func (b *Builder) Chunk(name string, stmts ...ast.Stmt) *ast.Chunk {
	blk := b.Block(stmts...)
	return &ast.Chunk{Name: name, Block: blk, EOF: blk.End}
}

// Block returns a block of statements.
func (b *Builder) Block(stmts ...ast.Stmt) *ast.Block {
	start := b.pos()
	return &ast.Block{Start: start, Stmts: stmts, End: b.pos()}
}

// Ident returns an identifier expression.
func (b *Builder) Ident(name string) *ast.IdentExpr {
	return &ast.IdentExpr{Start: b.pos(), Lit: name}
}

// Idents returns a list of identifier expressions.
func (b *Builder) Idents(names ...string) []*ast.IdentExpr {
	ids := make([]*ast.IdentExpr, len(names))
	for i, nm := range names {
		ids[i] = b.Ident(nm)
	}
	return ids
}

// Int returns an integer literal.
func (b *Builder) Int(v int64) *ast.LiteralExpr {
	return &ast.LiteralExpr{Type: token.INT, Start: b.pos(), Raw: strconv.FormatInt(v, 10), Value: v}
}

// Float returns a float literal.
func (b *Builder) Float(v float64) *ast.LiteralExpr {
	return &ast.LiteralExpr{Type: token.FLOAT, Start: b.pos(), Raw: strconv.FormatFloat(v, 'g', -1, 64), Value: v}
}

// Str returns a string literal.
func (b *Builder) Str(v string) *ast.LiteralExpr {
	return &ast.LiteralExpr{Type: token.STRING, Start: b.pos(), Raw: strconv.Quote(v), Value: v}
}

// Null returns the null literal.
func (b *Builder) Null() *ast.LiteralExpr {
	return &ast.LiteralExpr{Type: token.NULL, Start: b.pos(), Raw: token.NULL.String()}
}

// Bool returns the true or false literal.
func (b *Builder) Bool(v bool) *ast.LiteralExpr {
	tok := token.FALSE
	if v {
		tok = token.TRUE
	}
	return &ast.LiteralExpr{Type: tok, Start: b.pos(), Raw: tok.String()}
}

// Bin returns a binary operator expression.
func (b *Builder) Bin(left ast.Expr, op token.Token, right ast.Expr) *ast.BinOpExpr {
	return &ast.BinOpExpr{Left: left, Type: op, Op: b.pos(), Right: right}
}

// Unary returns a unary operator expression.
func (b *Builder) Unary(op token.Token, right ast.Expr) *ast.UnaryOpExpr {
	return &ast.UnaryOpExpr{Type: op, Op: b.pos(), Right: right}
}

// Paren wraps e in parentheses.
func (b *Builder) Paren(e ast.Expr) *ast.ParenExpr {
	return &ast.ParenExpr{Lparen: b.pos(), Expr: e, Rparen: b.pos()}
}

// Call returns a call expression of fn with args.
func (b *Builder) Call(fn ast.Expr, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Fn: fn, Lparen: b.pos(), Args: args, Rparen: b.pos()}
}

// CallName is a shorthand for a call of the function identified by name.
func (b *Builder) CallName(name string, args ...ast.Expr) *ast.CallExpr {
	return b.Call(b.Ident(name), args...)
}

// Lambda returns a function literal.
func (b *Builder) Lambda(params []string, body ...ast.Stmt) *ast.FuncExpr {
	return &ast.FuncExpr{Fn: b.pos(), Params: b.Idents(params...), Body: b.Block(body...), End: b.pos()}
}

// Let returns a let declaration of name. If e is nil, the declaration has no
// value.
func (b *Builder) Let(name string, e ast.Expr) *ast.AssignStmt {
	return b.decl(token.LET, name, e)
}

// Const returns a const declaration of name.
func (b *Builder) Const(name string, e ast.Expr) *ast.AssignStmt {
	return b.decl(token.CONST, name, e)
}

func (b *Builder) decl(tok token.Token, name string, e ast.Expr) *ast.AssignStmt {
	stmt := &ast.AssignStmt{DeclType: tok, DeclStart: b.pos(), Left: b.Ident(name), Right: e}
	if e != nil {
		stmt.AssignPos = b.pos()
	}
	return stmt
}

// Assign returns an assignment of e to name.
func (b *Builder) Assign(name string, e ast.Expr) *ast.AssignStmt {
	return &ast.AssignStmt{Left: b.Ident(name), AssignPos: b.pos(), Right: e}
}

// Expr returns an expression statement.
func (b *Builder) Expr(e ast.Expr) *ast.ExprStmt {
	return &ast.ExprStmt{Expr: e}
}

// Return returns a return statement, e may be nil.
func (b *Builder) Return(e ast.Expr) *ast.ReturnStmt {
	return &ast.ReturnStmt{Return: b.pos(), Expr: e}
}

// Fn returns a function declaration statement.
func (b *Builder) Fn(name string, params []string, body ...ast.Stmt) *ast.FuncStmt {
	return &ast.FuncStmt{Fn: b.pos(), Name: b.Ident(name), Params: b.Idents(params...), Body: b.Block(body...), End: b.pos()}
}

// Do returns a do block statement.
func (b *Builder) Do(body ...ast.Stmt) *ast.DoStmt {
	return &ast.DoStmt{Do: b.pos(), Body: b.Block(body...), End: b.pos()}
}

// While returns a while loop statement.
func (b *Builder) While(cond ast.Expr, body ...ast.Stmt) *ast.WhileStmt {
	return &ast.WhileStmt{While: b.pos(), Cond: cond, Body: b.Block(body...), End: b.pos()}
}

// If returns an if statement, with an else block if els is not nil.
func (b *Builder) If(cond ast.Expr, then []ast.Stmt, els []ast.Stmt) *ast.IfStmt {
	stmt := &ast.IfStmt{If: b.pos(), Cond: cond, True: b.Block(then...)}
	if els != nil {
		stmt.Else = b.pos()
		stmt.False = b.Block(els...)
	}
	stmt.End = b.pos()
	return stmt
}

// Export returns an export statement of the provided names.
func (b *Builder) Export(names ...string) *ast.ExportStmt {
	return &ast.ExportStmt{Export: b.pos(), Names: b.Idents(names...)}
}

// Stmts is a convenience function to create a list of statements, e.g. for
// the If builder.
func Stmts(stmts ...ast.Stmt) []ast.Stmt {
	if stmts == nil {
		return []ast.Stmt{}
	}
	return stmts
}
