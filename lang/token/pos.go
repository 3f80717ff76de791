package token

import "strconv"

const (
	lineBits = 18
	colBits  = 32 - lineBits

	// MaxLines is the maximum 1-based line number value that can be encoded in
	// Pos.
	MaxLines = (1 << lineBits) - 1
	// MaxCols is the maximum 1-based column number value that can be encoded in
	// Pos.
	MaxCols = (1 << colBits) - 1

	lineMask = MaxLines
	colMask  = MaxCols
)

// Pos is an efficient encoding of a 1-based line and column position in a
// 32-bit unsigned integer. A value of 0 for either line or column should be
// interpreted as "unknown".
type Pos uint32

// NoPos is the zero value of Pos, an unknown position.
const NoPos Pos = 0

// MakePos creates a Pos value encoding the provided line and col. Values
// above the maximum are clamped.
func MakePos(line, col int) Pos {
	if line > MaxLines {
		line = MaxLines
	}
	if col > MaxCols {
		col = MaxCols
	}
	if line < 0 || col < 0 {
		return NoPos
	}
	return Pos(col<<lineBits | line)
}

// LineCol returns the line and column values encoded in Pos.
func (p Pos) LineCol() (int, int) {
	l := p & lineMask
	c := (p >> lineBits) & colMask
	return int(l), int(c)
}

// Unknown returns true if either line or column value is unknown.
func (p Pos) Unknown() bool {
	l, c := p.LineCol()
	return l == 0 || c == 0
}

// IsValid returns true if both line and column are known.
func (p Pos) IsValid() bool { return !p.Unknown() }

// Add returns the position n columns after p, on the same line. It returns p
// unchanged if p is unknown.
func (p Pos) Add(n int) Pos {
	if p.Unknown() {
		return p
	}
	l, c := p.LineCol()
	return MakePos(l, c+n)
}

// Position is a resolved source position, in a named chunk.
type Position struct {
	Filename string `cbor:"1,keyasint,omitempty"`
	Line     int    `cbor:"2,keyasint,omitempty"`
	Col      int    `cbor:"3,keyasint,omitempty"`
}

// MakePosition returns the Position of p in the chunk named filename.
func MakePosition(filename string, p Pos) Position {
	l, c := p.LineCol()
	return Position{Filename: filename, Line: l, Col: c}
}

// String returns the position formatted as filename:line:col, where unknown
// line or column are printed as '-'.
func (p Position) String() string {
	line, col := "-", "-"
	if p.Line > 0 {
		line = strconv.Itoa(p.Line)
	}
	if p.Col > 0 {
		col = strconv.Itoa(p.Col)
	}
	return p.Filename + ":" + line + ":" + col
}
