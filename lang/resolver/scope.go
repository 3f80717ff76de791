package resolver

import "github.com/mna/tarn/lang/ast"

// funcState is the compile-time context of a function being resolved. The
// resolver keeps a stack of those, the innermost function last.
type funcState struct {
	fn     *Function
	scopes []scope

	// active locals, the innermost declaration last.
	locals []*LocalVar

	nextSlot int
	// slots below floor hold captured locals of closed scopes and cannot be
	// reused until the function returns.
	floor int
}

type scope struct {
	localsStart int
	slotStart   int
	block       *BlockScope
}

func newFuncState(fn *Function) *funcState {
	return &funcState{fn: fn}
}

// depth returns the current scope depth, 0 if no scope is open.
func (fs *funcState) depth() int { return len(fs.scopes) }

func (fs *funcState) beginScope(blk *ast.Block) {
	bs := &BlockScope{FirstSlot: fs.nextSlot}
	if blk != nil {
		blk.Scope = bs
	}
	fs.scopes = append(fs.scopes, scope{
		localsStart: len(fs.locals),
		slotStart:   fs.nextSlot,
		block:       bs,
	})
}

func (fs *funcState) endScope() *BlockScope {
	sc := fs.scopes[len(fs.scopes)-1]
	fs.scopes = fs.scopes[:len(fs.scopes)-1]

	top := -1
	for _, l := range fs.locals[sc.localsStart:] {
		if l.Captured && l.Slot > top {
			top = l.Slot
		}
	}
	if top >= 0 {
		sc.block.Captured = true
		if top+1 > fs.floor {
			fs.floor = top + 1
		}
	}

	fs.locals = fs.locals[:sc.localsStart]
	fs.nextSlot = max(sc.slotStart, fs.floor)
	return sc.block
}

// declare adds a local named ident.Lit in the current scope and returns it,
// or returns nil if the name is already declared in that same scope.
func (fs *funcState) declare(ident *ast.IdentExpr, isConst bool) *LocalVar {
	sc := fs.scopes[len(fs.scopes)-1]
	for _, l := range fs.locals[sc.localsStart:] {
		if l.Name == ident.Lit {
			return nil
		}
	}

	slot := fs.nextSlot
	fs.nextSlot++
	if fs.nextSlot > fs.fn.NumSlots {
		fs.fn.NumSlots = fs.nextSlot
	}

	bdg := &Binding{Scope: Local, Index: slot, Const: isConst, Decl: ident}
	l := &LocalVar{
		Name:    ident.Lit,
		Depth:   fs.depth(),
		Slot:    slot,
		Binding: bdg,
	}
	fs.locals = append(fs.locals, l)
	fs.fn.Locals = append(fs.fn.Locals, l)
	return l
}

// resolveLocal looks up name in the active scopes of this function only,
// from innermost to outermost.
func (fs *funcState) resolveLocal(name string) *LocalVar {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if l := fs.locals[i]; l.Name == name {
			return l
		}
	}
	return nil
}
