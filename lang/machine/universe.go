package machine

import (
	"fmt"
	"strings"
)

// Universe returns a new environment with the built-ins core to the
// language. More names may be added to it before it is set as the
// Thread.Predeclared environment.
func Universe() *Env {
	env := NewEnv(2)
	env.Set("print", NewBuiltin("print", builtinPrint))
	env.Set("type", NewBuiltin("type", builtinType))
	return env
}

// print(x...) writes its arguments separated by spaces to the thread's
// standard output, followed by a newline. Strings are written without quotes.
func builtinPrint(th *Thread, args []Value) (Value, error) {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if s, ok := arg.(String); ok {
			sb.WriteString(string(s))
		} else {
			sb.WriteString(arg.String())
		}
	}
	sb.WriteByte('\n')
	if _, err := fmt.Fprint(th.stdout(), sb.String()); err != nil {
		return nil, err
	}
	return Nil, nil
}

// type(x) returns the name of the type of x.
func builtinType(_ *Thread, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("type: got %d arguments, want 1", len(args))
	}
	return String(args[0].Type()), nil
}
