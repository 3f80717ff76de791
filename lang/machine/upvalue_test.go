package machine

import (
	"testing"

	"github.com/mna/tarn/lang/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFrame(n int) *Frame {
	locals := make([]Value, n)
	for i := range locals {
		locals[i] = Nil
	}
	return &Frame{locals: locals}
}

func TestOpenUpvalueShared(t *testing.T) {
	fr := newTestFrame(4)

	uv2 := fr.openUpvalue(2)
	uv0 := fr.openUpvalue(0)
	uv3 := fr.openUpvalue(3)
	assert.Same(t, uv2, fr.openUpvalue(2))
	assert.Same(t, uv0, fr.openUpvalue(0))
	require.Len(t, fr.open, 3)

	// registry is ordered by slot
	for i, uv := range []*Upvalue{uv0, uv2, uv3} {
		assert.Same(t, uv, fr.open[i])
	}

	// reads and writes go through the frame
	fr.locals[2] = Int(1)
	assert.Equal(t, Int(1), uv2.Get())
	uv2.Set(String("x"))
	assert.Equal(t, String("x"), fr.locals[2])
}

func TestCloseUpvalues(t *testing.T) {
	fr := newTestFrame(4)
	uv0 := fr.openUpvalue(0)
	uv1 := fr.openUpvalue(1)
	uv3 := fr.openUpvalue(3)
	fr.locals[1] = Int(10)
	fr.locals[3] = Int(30)

	assert.Equal(t, 2, fr.closeUpvalues(1))
	assert.True(t, uv0.IsOpen())
	assert.False(t, uv1.IsOpen())
	assert.False(t, uv3.IsOpen())
	require.Len(t, fr.open, 1)
	assert.Same(t, uv0, fr.open[0])

	// a closed upvalue keeps its value when the slot is reused
	fr.locals[1] = Int(99)
	assert.Equal(t, Int(10), uv1.Get())
	uv1.Set(Int(11))
	assert.Equal(t, Int(11), uv1.Get())
	assert.Equal(t, Int(99), fr.locals[1])

	// closing is idempotent and never reopens
	uv1.close()
	assert.Equal(t, Int(11), uv1.Get())
	assert.Equal(t, 0, fr.closeUpvalues(1))

	// a new capture of a closed slot gets a new upvalue
	uv1b := fr.openUpvalue(1)
	assert.NotSame(t, uv1, uv1b)
	assert.True(t, uv1b.IsOpen())
	assert.Equal(t, Int(99), uv1b.Get())

	assert.Equal(t, 2, fr.closeUpvalues(0))
	assert.Empty(t, fr.open)
}

func TestInstantiate(t *testing.T) {
	mod := &Module{Program: &compiler.Module{}}
	fr := newTestFrame(3)
	fr.callable = &Closure{
		Funcode:  &compiler.Funcode{Name: "outer"},
		Module:   mod,
		Upvalues: []*Upvalue{{value: Int(7)}, {value: Int(8)}},
	}
	outer := fr.callable.(*Closure)

	fn := &compiler.Funcode{
		Name: "inner",
		Captures: []compiler.Capture{
			{Kind: compiler.CaptureLocal, Index: 2},
			{Kind: compiler.CaptureUpvalue, Index: 1},
			{Kind: compiler.CaptureLocal, Index: 0},
		},
	}

	c1, err := instantiate(fn, mod, fr)
	require.NoError(t, err)
	c2, err := instantiate(fn, mod, fr)
	require.NoError(t, err)

	require.Len(t, c1.Upvalues, len(fn.Captures))
	assert.Same(t, fr.openUpvalue(2), c1.Upvalues[0])
	assert.Same(t, outer.Upvalues[1], c1.Upvalues[1])
	assert.Same(t, fr.openUpvalue(0), c1.Upvalues[2])

	// both instances share the same upvalues
	for i := range c1.Upvalues {
		assert.Same(t, c1.Upvalues[i], c2.Upvalues[i])
	}
	assert.Len(t, fr.open, 2)

	t.Run("upvalue out of range", func(t *testing.T) {
		bad := &compiler.Funcode{Name: "bad", Captures: []compiler.Capture{{Kind: compiler.CaptureUpvalue, Index: 2}}}
		_, err := instantiate(bad, mod, fr)
		var ie *InternalError
		require.ErrorAs(t, err, &ie)
		assert.Contains(t, ie.Error(), "upvalue 2 out of range")
	})

	t.Run("local out of range", func(t *testing.T) {
		bad := &compiler.Funcode{Name: "bad", Captures: []compiler.Capture{{Kind: compiler.CaptureLocal, Index: 3}}}
		_, err := instantiate(bad, mod, fr)
		var ie *InternalError
		require.ErrorAs(t, err, &ie)
		assert.Contains(t, ie.Error(), "local slot 3 out of range")
	})

	t.Run("no captures", func(t *testing.T) {
		c, err := instantiate(&compiler.Funcode{Name: "plain"}, mod, fr)
		require.NoError(t, err)
		assert.Nil(t, c.Upvalues)
		assert.Same(t, mod, c.Module)
	})
}

func TestEnv(t *testing.T) {
	var nilEnv *Env
	_, ok := nilEnv.Get("x")
	assert.False(t, ok)
	assert.Nil(t, nilEnv.Names())

	env := NewEnv(0)
	env.Set("b", Int(1))
	env.Set("a", Int(2))
	env.Set("b", Int(3))
	v, ok := env.Get("b")
	assert.True(t, ok)
	assert.Equal(t, Int(3), v)
	assert.Equal(t, []string{"a", "b"}, env.Names())
}
