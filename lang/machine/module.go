package machine

import (
	"github.com/mna/tarn/lang/compiler"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// A Module is the dynamic counterpart to a compiler.Module, which is the unit
// of compilation. All closures of the same compiled module share a Module.
type Module struct {
	Program   *compiler.Module
	Constants []Value

	// Exports is set when the top-level function of the module returns. An
	// exported name maps to the closure of its function, or to Nil if the
	// top-level slot of the name did not hold it when the function returned.
	Exports map[string]Value
}

func newModule(p *compiler.Module) (*Module, error) {
	m := &Module{Program: p}
	if len(p.Constants) > 0 {
		m.Constants = make([]Value, len(p.Constants))
	}
	for i, c := range p.Constants {
		v, err := valueOf(c)
		if err != nil {
			return nil, internalErrorf("constant %d: %s", i, err)
		}
		m.Constants[i] = v
	}
	return m, nil
}

// ExportNames returns the exported names of the module in sorted order.
func (m *Module) ExportNames() []string {
	names := maps.Keys(m.Exports)
	slices.Sort(names)
	return names
}

// setExports records the exports from the locals of the top-level frame.
func (m *Module) setExports(locals []Value) {
	m.Exports = make(map[string]Value, len(m.Program.Exports))
	for _, e := range m.Program.Exports {
		var v Value = Nil
		if e.Slot >= 0 && e.Slot < len(locals) && int(e.Function) < len(m.Program.Functions) {
			if c, ok := locals[e.Slot].(*Closure); ok && c.Funcode == m.Program.Functions[e.Function] {
				v = c
			}
		}
		m.Exports[e.Name] = v
	}
}
