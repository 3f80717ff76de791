package token

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok <= maxToken; tok++ {
		if tok.String() == "" {
			t.Errorf("missing string representation of token %d", tok)
		}
	}
}

func TestTokenGoString(t *testing.T) {
	assert.Equal(t, "'+'", fmt.Sprintf("%#v", PLUS))
	assert.Equal(t, "'='", fmt.Sprintf("%#v", EQ))
	assert.Equal(t, "let", fmt.Sprintf("%#v", LET))
	assert.Equal(t, "illegal token", Token(-1).String())
}

func TestTokenClasses(t *testing.T) {
	for _, tok := range []Token{PLUS, MINUS, STAR, SLASH, PERCENT} {
		assert.True(t, tok.IsArith(), tok.String())
		assert.False(t, tok.IsCompare(), tok.String())
	}
	for _, tok := range []Token{LT, LE, GT, GE, EQEQ, BANGEQ} {
		assert.True(t, tok.IsCompare(), tok.String())
		assert.False(t, tok.IsArith(), tok.String())
	}
	assert.False(t, NOT.IsArith())
	assert.False(t, EQ.IsCompare())
}
