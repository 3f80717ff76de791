package ast

// VisitDirection tells a Visitor if Walk is entering or leaving a node.
type VisitDirection int

// List of visit directions.
const (
	VisitEnter VisitDirection = iota
	VisitExit
)

// A Visitor is called by Walk for each node of the tree, once when entering
// the node and once when leaving it. The Visitor returned on enter is used for
// the children of the node and for the exit call; if it is nil, the children
// and the exit call are skipped.
type Visitor interface {
	Visit(n Node, dir VisitDirection) (w Visitor)
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(n Node, dir VisitDirection) Visitor

// Visit calls f(n, dir).
func (f VisitorFunc) Visit(n Node, dir VisitDirection) Visitor {
	return f(n, dir)
}

// Walk traverses the tree rooted at node in depth-first order using v.
func Walk(v Visitor, node Node) {
	w := v.Visit(node, VisitEnter)
	if w == nil {
		return
	}
	node.Walk(w)
	w.Visit(node, VisitExit)
}

// Inspect traverses the tree rooted at node in depth-first order and calls
// fn for each node on enter. The children of a node are skipped if fn
// returns false.
func Inspect(node Node, fn func(Node) bool) {
	var v VisitorFunc
	v = func(n Node, dir VisitDirection) Visitor {
		if dir == VisitExit || !fn(n) {
			return nil
		}
		return v
	}
	Walk(v, node)
}
