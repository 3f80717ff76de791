package ast

import "github.com/mna/tarn/lang/token"

type (
	// AssignStmt represents an assignment statement, e.g. x = y + z. It is
	// also used to represent declarations, e.g. let x = 1 or const y = 2.
	AssignStmt struct {
		DeclType  token.Token // LET or CONST, ILLEGAL if not a declaration
		DeclStart token.Pos   // zero if not a declaration
		Left      *IdentExpr
		AssignPos token.Pos // may be 0 for a declaration without value
		Right     Expr      // may be nil for a declaration without value
	}

	// DoStmt represents a do..end block statement, which opens a new scope.
	DoStmt struct {
		Do   token.Pos
		Body *Block
		End  token.Pos
	}

	// ExportStmt represents the export of top-level function names from the
	// module.
	ExportStmt struct {
		Export token.Pos
		Names  []*IdentExpr
	}

	// ExprStmt represents an expression used as statement.
	ExprStmt struct {
		Expr Expr
	}

	// FuncStmt represents a function declaration statement.
	FuncStmt struct {
		Fn     token.Pos
		Name   *IdentExpr
		Params []*IdentExpr
		Body   *Block
		End    token.Pos

		// Function is set by the resolver to the *resolver.Function.
		Function any
	}

	// IfStmt represents an if..else statement.
	IfStmt struct {
		If    token.Pos
		Cond  Expr
		True  *Block
		Else  token.Pos // zero if no else
		False *Block    // nil if no else
		End   token.Pos
	}

	// ReturnStmt represents a return statement.
	ReturnStmt struct {
		Return token.Pos
		Expr   Expr // may be nil
	}

	// WhileStmt represents a while loop statement.
	WhileStmt struct {
		While token.Pos
		Cond  Expr
		Body  *Block
		End   token.Pos
	}
)

func (n *AssignStmt) Span() (start, end token.Pos) {
	if n.DeclStart.IsValid() {
		start = n.DeclStart
	} else {
		start, _ = n.Left.Span()
	}
	if n.Right != nil {
		_, end = n.Right.Span()
	} else {
		_, end = n.Left.Span()
	}
	return start, end
}
func (n *AssignStmt) Walk(v Visitor) {
	Walk(v, n.Left)
	if n.Right != nil {
		Walk(v, n.Right)
	}
}
func (n *AssignStmt) stmt() {}

func (n *DoStmt) Span() (start, end token.Pos) { return n.Do, n.End.Add(1) }
func (n *DoStmt) Walk(v Visitor)               { Walk(v, n.Body) }
func (n *DoStmt) stmt()                        {}

func (n *ExportStmt) Span() (start, end token.Pos) {
	end = n.Export.Add(len(token.EXPORT.String()))
	if len(n.Names) > 0 {
		_, end = n.Names[len(n.Names)-1].Span()
	}
	return n.Export, end
}
func (n *ExportStmt) Walk(v Visitor) {
	for _, e := range n.Names {
		Walk(v, e)
	}
}
func (n *ExportStmt) stmt() {}

func (n *ExprStmt) Span() (start, end token.Pos) { return n.Expr.Span() }
func (n *ExprStmt) Walk(v Visitor)               { Walk(v, n.Expr) }
func (n *ExprStmt) stmt()                        {}

func (n *FuncStmt) Span() (start, end token.Pos) { return n.Fn, n.End.Add(1) }
func (n *FuncStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	for _, e := range n.Params {
		Walk(v, e)
	}
	Walk(v, n.Body)
}
func (n *FuncStmt) stmt() {}

func (n *IfStmt) Span() (start, end token.Pos) { return n.If, n.End.Add(1) }
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.True)
	if n.False != nil {
		Walk(v, n.False)
	}
}
func (n *IfStmt) stmt() {}

func (n *ReturnStmt) Span() (start, end token.Pos) {
	if n.Expr != nil {
		_, end = n.Expr.Span()
		return n.Return, end
	}
	return n.Return, n.Return.Add(len(token.RETURN.String()))
}
func (n *ReturnStmt) Walk(v Visitor) {
	if n.Expr != nil {
		Walk(v, n.Expr)
	}
}
func (n *ReturnStmt) stmt() {}

func (n *WhileStmt) Span() (start, end token.Pos) { return n.While, n.End.Add(1) }
func (n *WhileStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
}
func (n *WhileStmt) stmt() {}
