package compiler

import "fmt"

// Increment this to force recompilation of saved bytecode files.
const Version = 1

type Opcode uint8

// "x DUP x x" is a "stack picture" that describes the state of the stack
// before and after execution of the instruction.
//
// OP<index> indicates an immediate operand that is an index into the specified
// table: locals, names, captures, constants, functions.
const ( //nolint:revive
	NOP Opcode = iota // - NOP -

	// stack operations
	DUP //   x DUP x x
	POP //   x POP -

	// binary arithmetic (order must match token.Token)
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT

	// binary comparisons (order must match token.Token)
	LT
	LE
	GT
	GE
	EQL
	NEQ

	// unary operators
	UMINUS // x UMINUS -x
	NOT    // x NOT    bool

	NIL   // - NIL Nil
	TRUE  // - TRUE True
	FALSE // - FALSE False

	RETURN // value RETURN -

	// --- opcodes with an argument must go below this line ---

	// control flow
	JMP  //    - JMP<addr>  -
	CJMP // cond CJMP<addr> -   (jumps if cond is truthy)

	CONSTANT    //                  - CONSTANT<constant>  value
	MAKEFUNC    //                  - MAKEFUNC<func>      fn      (captures resolved against the current frame)
	LOCAL       //                  - LOCAL<local>        value
	SETLOCAL    //              value SETLOCAL<local>     -
	UPVALUE     //                  - UPVALUE<capture>    value   (value of the closure's upvalue)
	SETUPVALUE  //              value SETUPVALUE<capture> -
	CLOSE       //                  - CLOSE<local>        -       (closes the frame's upvalues on slots >= local)
	PREDECLARED //                  - PREDECLARED<name>   value
	CALL        //    fn arg1 ... argN CALL<n>             result

	OpcodeArgMin = JMP
	OpcodeMax    = CALL
	opcodeJMPMin = JMP
	opcodeJMPMax = CJMP
)

var opcodeNames = [...]string{
	CALL:        "call",
	CJMP:        "cjmp",
	CLOSE:       "close",
	CONSTANT:    "constant",
	DUP:         "dup",
	EQL:         "eql",
	FALSE:       "false",
	GE:          "ge",
	GT:          "gt",
	JMP:         "jmp",
	LE:          "le",
	LOCAL:       "local",
	LT:          "lt",
	MAKEFUNC:    "makefunc",
	MINUS:       "minus",
	NEQ:         "neq",
	NIL:         "nil",
	NOP:         "nop",
	NOT:         "not",
	PERCENT:     "percent",
	PLUS:        "plus",
	POP:         "pop",
	PREDECLARED: "predeclared",
	RETURN:      "return",
	SETLOCAL:    "setlocal",
	SETUPVALUE:  "setupvalue",
	SLASH:       "slash",
	STAR:        "star",
	TRUE:        "true",
	UMINUS:      "uminus",
	UPVALUE:     "upvalue",
}

var reverseLookupOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, s := range opcodeNames {
		m[s] = Opcode(op)
	}
	return m
}()

func isJump(op Opcode) bool {
	// Jump op argument is always encoded with 4 bytes
	return opcodeJMPMin <= op && op <= opcodeJMPMax
}

// returns the number of bytes required to encode the Opcode with its argument
// (if it applies).
func encodedSize(op Opcode, arg uint32) int {
	if op >= OpcodeArgMin {
		if isJump(op) {
			// jumps are always encoded on 4 bytes, padded with NOPs if the jump
			// requires less.
			return 1 + 4
		}
		return 1 + varArgLen(arg)
	}
	return 1
}

// returns the number of bytes required to encode x as a VarInt.
func varArgLen(x uint32) int {
	n := 0
	for x >= 0x80 {
		n++
		x >>= 7
	}
	return n + 1
}

const variableStackEffect = 0x7f

// stackEffect records the effect on the size of the operand stack of
// each kind of instruction. For some instructions this requires computation.
var stackEffect = [...]int8{
	CALL:        variableStackEffect,
	CJMP:        -1,
	CLOSE:       0,
	CONSTANT:    +1,
	DUP:         +1,
	EQL:         -1,
	FALSE:       +1,
	GE:          -1,
	GT:          -1,
	JMP:         0,
	LE:          -1,
	LOCAL:       +1,
	LT:          -1,
	MAKEFUNC:    +1,
	MINUS:       -1,
	NEQ:         -1,
	NIL:         +1,
	NOP:         0,
	NOT:         0,
	PERCENT:     -1,
	PLUS:        -1,
	POP:         -1,
	PREDECLARED: +1,
	RETURN:      -1,
	SETLOCAL:    -1,
	SETUPVALUE:  -1,
	SLASH:       -1,
	STAR:        -1,
	TRUE:        +1,
	UMINUS:      0,
	UPVALUE:     +1,
}

// StackEffect returns the effect of the instruction on the size of the
// operand stack.
func StackEffect(op Opcode, arg uint32) int {
	se := int(stackEffect[op])
	if se == variableStackEffect {
		switch op {
		case CALL:
			// pops the function and its arguments, pushes the result
			se = -int(arg)
		default:
			panic(op)
		}
	}
	return se
}

func (op Opcode) String() string {
	if op <= OpcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// DecodeArg decodes the varint argument of the instruction at code[pc], which
// must be an opcode with an argument. It returns the argument and the address
// of the next instruction, or -1 if the argument is invalid.
func DecodeArg(code []byte, pc int) (arg uint32, next int) {
	var shift uint
	for i := pc + 1; i < len(code) && shift < 35; i++ {
		b := code[i]
		arg |= uint32(b&0x7f) << shift
		if b < 0x80 {
			next = i + 1
			if isJump(Opcode(code[pc])) && next < pc+5 {
				next = pc + 5
			}
			return arg, next
		}
		shift += 7
	}
	return 0, -1
}
