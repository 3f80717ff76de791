package compiler

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so that a module always encodes to the
// same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("compiler: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// image is the serialized form of a Module.
type image struct {
	Version   int        `cbor:"1,keyasint"`
	Filename  string     `cbor:"2,keyasint,omitempty"`
	Names     []string   `cbor:"3,keyasint,omitempty"`
	Constants []constant `cbor:"4,keyasint,omitempty"`
	Toplevel  *Funcode   `cbor:"5,keyasint"`
	Functions []*Funcode `cbor:"6,keyasint,omitempty"`
	Exports   []Export   `cbor:"7,keyasint,omitempty"`
}

// constant keeps the Go type of a constant across encoding, exactly one
// field is set.
type constant struct {
	Int    *int64   `cbor:"1,keyasint,omitempty"`
	Float  *float64 `cbor:"2,keyasint,omitempty"`
	String *string  `cbor:"3,keyasint,omitempty"`
}

// Encode serializes a module to its binary form.
func Encode(m *Module) ([]byte, error) {
	img := image{
		Version:   Version,
		Filename:  m.Filename,
		Names:     m.Names,
		Toplevel:  m.Toplevel,
		Functions: m.Functions,
		Exports:   m.Exports,
	}
	if len(m.Constants) > 0 {
		img.Constants = make([]constant, len(m.Constants))
	}
	for i, c := range m.Constants {
		switch c := c.(type) {
		case int64:
			img.Constants[i].Int = &c
		case float64:
			img.Constants[i].Float = &c
		case string:
			img.Constants[i].String = &c
		default:
			return nil, fmt.Errorf("compiler: encode module: unsupported constant type: %T", c)
		}
	}

	b, err := cborEncMode.Marshal(img)
	if err != nil {
		return nil, fmt.Errorf("compiler: encode module: %w", err)
	}
	return b, nil
}

// Decode deserializes a module from its binary form. The decoded module is
// validated before it is returned.
func Decode(data []byte) (*Module, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("compiler: unmarshal module: %w", err)
	}
	if img.Version != Version {
		return nil, fmt.Errorf("compiler: unsupported module version %d (want %d)", img.Version, Version)
	}

	m := &Module{
		Filename:  img.Filename,
		Names:     img.Names,
		Toplevel:  img.Toplevel,
		Functions: img.Functions,
		Exports:   img.Exports,
	}
	if len(img.Constants) > 0 {
		m.Constants = make([]any, len(img.Constants))
	}
	for i, c := range img.Constants {
		switch {
		case c.Int != nil:
			m.Constants[i] = *c.Int
		case c.Float != nil:
			m.Constants[i] = *c.Float
		case c.String != nil:
			m.Constants[i] = *c.String
		default:
			return nil, fmt.Errorf("compiler: decode module: invalid constant %d", i)
		}
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("compiler: decode module: %w", err)
	}
	return m, nil
}
