package token

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosLineCol(t *testing.T) {
	cases := []struct {
		line, col         int
		wantLine, wantCol int
	}{
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{12, 34, 12, 34},
		{MaxLines, MaxCols, MaxLines, MaxCols},
		{MaxLines + 1, MaxCols + 1, MaxLines, MaxCols},
		{-1, 3, 0, 0},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%d:%d", c.line, c.col), func(t *testing.T) {
			l, col := MakePos(c.line, c.col).LineCol()
			assert.Equal(t, c.wantLine, l)
			assert.Equal(t, c.wantCol, col)
		})
	}
}

func TestPosUnknown(t *testing.T) {
	assert.True(t, NoPos.Unknown())
	assert.True(t, MakePos(1, 0).Unknown())
	assert.True(t, MakePos(0, 1).Unknown())
	assert.True(t, MakePos(3, 4).IsValid())
}

func TestPosAdd(t *testing.T) {
	p := MakePos(3, 4).Add(5)
	l, c := p.LineCol()
	assert.Equal(t, 3, l)
	assert.Equal(t, 9, c)
	assert.Equal(t, NoPos, NoPos.Add(3))
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "a.tarn:3:4", MakePosition("a.tarn", MakePos(3, 4)).String())
	assert.Equal(t, "a.tarn:-:-", MakePosition("a.tarn", NoPos).String())
	assert.Equal(t, ":1:2", MakePosition("", MakePos(1, 2)).String())
}
