package ast

import "github.com/mna/tarn/lang/token"

type (
	// BinOpExpr represents a binary expression, e.g. x + y.
	BinOpExpr struct {
		Left  Expr
		Type  token.Token // binary operator token type
		Op    token.Pos
		Right Expr
	}

	// CallExpr represents a function call, e.g. x(y, z).
	CallExpr struct {
		Fn     Expr
		Lparen token.Pos
		Args   []Expr
		Rparen token.Pos
	}

	// FuncExpr represents a function literal.
	FuncExpr struct {
		Fn     token.Pos
		Params []*IdentExpr
		Body   *Block
		End    token.Pos

		// Function is set by the resolver to the *resolver.Function.
		Function any
	}

	// IdentExpr represents an identifier.
	IdentExpr struct {
		Start token.Pos
		Lit   string

		// Binding is set by the resolver to the *resolver.Binding.
		Binding any
	}

	// LiteralExpr represents a literal string, number, null, true or false.
	LiteralExpr struct {
		Type  token.Token // NULL, TRUE, FALSE, STRING, INT or FLOAT
		Start token.Pos
		Raw   string // uninterpreted text
		Value any    // = string | int64 | float64 (nil for null/true/false)
	}

	// ParenExpr represents an expression wrapped in parentheses.
	ParenExpr struct {
		Lparen token.Pos
		Expr   Expr
		Rparen token.Pos
	}

	// UnaryOpExpr represents a unary operator expression, e.g. -4 or not x.
	UnaryOpExpr struct {
		Type  token.Token // MINUS or NOT
		Op    token.Pos
		Right Expr
	}
)

func (n *BinOpExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *BinOpExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *BinOpExpr) expr() {}

func (n *CallExpr) Span() (start, end token.Pos) {
	start, _ = n.Fn.Span()
	return start, n.Rparen.Add(1)
}
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Fn)
	for _, e := range n.Args {
		Walk(v, e)
	}
}
func (n *CallExpr) expr() {}

func (n *FuncExpr) Span() (start, end token.Pos) {
	return n.Fn, n.End.Add(1)
}
func (n *FuncExpr) Walk(v Visitor) {
	for _, e := range n.Params {
		Walk(v, e)
	}
	Walk(v, n.Body)
}
func (n *FuncExpr) expr() {}

func (n *IdentExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start.Add(len(n.Lit))
}
func (n *IdentExpr) Walk(_ Visitor) {}
func (n *IdentExpr) expr()          {}

func (n *LiteralExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start.Add(len(n.Raw))
}
func (n *LiteralExpr) Walk(_ Visitor) {}
func (n *LiteralExpr) expr()          {}

func (n *ParenExpr) Span() (start, end token.Pos) {
	return n.Lparen, n.Rparen.Add(1)
}
func (n *ParenExpr) Walk(v Visitor) {
	Walk(v, n.Expr)
}
func (n *ParenExpr) expr() {}

func (n *UnaryOpExpr) Span() (start, end token.Pos) {
	_, end = n.Right.Span()
	return n.Op, end
}
func (n *UnaryOpExpr) Walk(v Visitor) {
	Walk(v, n.Right)
}
func (n *UnaryOpExpr) expr() {}
