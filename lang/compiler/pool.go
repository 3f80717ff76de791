package compiler

import (
	"fmt"
	"math"

	"github.com/dolthub/swiss"
)

// Pool deduplicates the names and constants referenced by the code of a
// module. Instructions refer to its entries by index. The zero value is not
// usable, call NewPool.
type Pool struct {
	names     []string
	nameIx    *swiss.Map[string, uint32]
	constants []any
	constIx   *swiss.Map[constKey, uint32]
}

// constKey identifies a constant by type and value. Floats are keyed by their
// bits so that -0.0 and 0.0 are distinct constants and NaN can be pooled.
type constKey struct {
	kind byte
	bits uint64
	str  string
}

const (
	kindInt byte = iota + 1
	kindFloat
	kindString
)

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		nameIx:  swiss.NewMap[string, uint32](8),
		constIx: swiss.NewMap[constKey, uint32](8),
	}
}

// Name returns the index of name in the pool, adding it if necessary.
func (p *Pool) Name(name string) uint32 {
	if ix, ok := p.nameIx.Get(name); ok {
		return ix
	}
	ix := uint32(len(p.names))
	p.nameIx.Put(name, ix)
	p.names = append(p.names, name)
	return ix
}

// Constant returns the index of the constant v in the pool, adding it if
// necessary. It panics if v is not an int64, float64 or string.
func (p *Pool) Constant(v any) uint32 {
	key := makeConstKey(v)
	if ix, ok := p.constIx.Get(key); ok {
		return ix
	}
	ix := uint32(len(p.constants))
	p.constIx.Put(key, ix)
	p.constants = append(p.constants, v)
	return ix
}

func makeConstKey(v any) constKey {
	switch v := v.(type) {
	case int64:
		return constKey{kind: kindInt, bits: uint64(v)}
	case float64:
		return constKey{kind: kindFloat, bits: math.Float64bits(v)}
	case string:
		return constKey{kind: kindString, str: v}
	default:
		panic(fmt.Sprintf("unsupported constant type: %T", v))
	}
}

// Names returns the names in index order.
func (p *Pool) Names() []string { return p.names }

// Constants returns the constants in index order.
func (p *Pool) Constants() []any { return p.constants }
