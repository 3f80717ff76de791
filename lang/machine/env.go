package machine

import (
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

// An Env is a set of named values, used for the predeclared names available
// to a thread. The zero value is not usable, call NewEnv.
type Env struct {
	vals  *swiss.Map[string, Value]
	names []string
}

// NewEnv returns an empty environment with room for n values.
func NewEnv(n int) *Env {
	return &Env{vals: swiss.NewMap[string, Value](uint32(max(n, 1)))}
}

// Get returns the value of name and true if it is defined, nil and false
// otherwise. It is valid to call Get on a nil Env.
func (e *Env) Get(name string) (Value, bool) {
	if e == nil {
		return nil, false
	}
	return e.vals.Get(name)
}

// Set defines or replaces the value of name.
func (e *Env) Set(name string, v Value) {
	if _, ok := e.vals.Get(name); !ok {
		i, _ := slices.BinarySearch(e.names, name)
		e.names = slices.Insert(e.names, i, name)
	}
	e.vals.Put(name, v)
}

// Names returns the defined names in sorted order.
func (e *Env) Names() []string {
	if e == nil {
		return nil
	}
	return slices.Clone(e.names)
}
