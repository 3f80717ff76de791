package ast

import "github.com/mna/tarn/lang/token"

type (
	// Chunk represents a source unit, which compiles to a module. It keeps
	// track of its name and the EOF, which is useful for empty chunks to get a
	// valid position.
	Chunk struct {
		// Name is the filename, which may be empty if the chunk is not a file.
		Name string

		// Block is the block of statements contained in the chunk.
		Block *Block
		EOF   token.Pos // position of the EOF marker

		// Function is set by the resolver to the *resolver.Function of the
		// top-level.
		Function any
	}

	// Block represents a block of statements, which opens a lexical scope.
	Block struct {
		Start token.Pos
		End   token.Pos
		Stmts []Stmt

		// Scope is set by the resolver to the *resolver.BlockScope describing
		// the local slots of this block.
		Scope any
	}
)

func (n *Chunk) Span() (start, end token.Pos) {
	if n.Block != nil {
		return n.Block.Span()
	}
	return n.EOF, n.EOF
}
func (n *Chunk) Walk(v Visitor) {
	if n.Block != nil {
		Walk(v, n.Block)
	}
}

func (n *Block) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}
