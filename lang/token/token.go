package token

// A Token represents a lexical token. The front end that produces the
// abstract syntax tree is external to this module, only the tokens that the
// resolver and compiler need to interpret are defined.
type Token int8

//nolint:revive
const (
	ILLEGAL Token = iota
	EOF

	// Tokens with values
	IDENT  // x
	INT    // 123
	FLOAT  // 1.23e45
	STRING // "foo"

	// Punctuation

	// operators - order must match compiler.Opcode
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %

	// relational operators - order must match compiler.Opcode
	LT     // <
	LE     // <=
	GT     // >
	GE     // >=
	EQEQ   // ==
	BANGEQ // !=

	EQ // =

	// Keywords
	FN
	NULL
	TRUE
	FALSE
	NOT
	IF
	ELSE
	WHILE
	DO
	LET
	CONST
	RETURN
	EXPORT

	maxToken             = EXPORT
	punctStart, punctEnd = PLUS, EQ
)

func (tok Token) String() string {
	if tok < 0 || tok > maxToken {
		return tokenNames[ILLEGAL]
	}
	return tokenNames[tok]
}

// GoString is like String but quotes punctuation tokens. Use Sprintf("%#v",
// tok) when constructing error messages.
func (tok Token) GoString() string {
	if tok >= punctStart && tok <= punctEnd {
		return "'" + tok.String() + "'"
	}
	return tok.String()
}

var tokenNames = [...]string{
	ILLEGAL: "illegal token",
	EOF:     "end of file",

	IDENT:  "identifier",
	INT:    "int literal",
	FLOAT:  "float literal",
	STRING: "string literal",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",

	LT:     "<",
	LE:     "<=",
	GT:     ">",
	GE:     ">=",
	EQEQ:   "==",
	BANGEQ: "!=",

	EQ: "=",

	FN:     "fn",
	NULL:   "null",
	TRUE:   "true",
	FALSE:  "false",
	NOT:    "not",
	IF:     "if",
	ELSE:   "else",
	WHILE:  "while",
	DO:     "do",
	LET:    "let",
	CONST:  "const",
	RETURN: "return",
	EXPORT: "export",
}

// IsArith returns true if tok is a binary arithmetic operator.
func (tok Token) IsArith() bool { return tok >= PLUS && tok <= PERCENT }

// IsCompare returns true if tok is a relational operator.
func (tok Token) IsCompare() bool { return tok >= LT && tok <= BANGEQ }
