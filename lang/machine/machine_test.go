package machine_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mna/tarn/lang/compiler"
	"github.com/mna/tarn/lang/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rxAssert = regexp.MustCompile(`(?m)^\s*###\s*([a-z]+):\s*(.*)$`)

// TestExecAsm loads the assembly files in testdata/asm/*.asm and runs the
// resulting module. Expected results are provided as comments in the asm file
// in the form of:
//   - ### fail: <error message>
//   - ### result: <value>
//   - ### output: <line printed to stdout>
//
// Values can be 'nil', a number, a quoted string or 'true' and 'false'. If
// fail is not specified, no error is expected.
func TestExecAsm(t *testing.T) {
	dir := filepath.Join("testdata", "asm")
	des, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, de := range des {
		if de.IsDir() || !de.Type().IsRegular() || filepath.Ext(de.Name()) != ".asm" {
			continue
		}
		t.Run(de.Name(), func(t *testing.T) {
			filename := filepath.Join(dir, de.Name())
			b, err := os.ReadFile(filename)
			require.NoError(t, err)

			cmod, err := compiler.Asm(b)
			require.NoError(t, err)

			var buf bytes.Buffer
			th := machine.Thread{Name: de.Name(), Stdout: &buf, Predeclared: machine.Universe()}
			_, res, err := th.RunModule(context.Background(), cmod)

			ms := rxAssert.FindAllStringSubmatch(string(b), -1)
			require.NotNil(t, ms, "no assertion provided")
			var errAsserted bool
			for _, m := range ms {
				want := strings.TrimSpace(m[2])
				switch m[1] {
				case "fail":
					errAsserted = true
					assert.ErrorContains(t, err, want, "result: %v", res)
				case "result":
					if assert.NoError(t, err, "result: %v", res) {
						assertValue(t, want, res)
					}
				case "output":
					assert.Equal(t, want+"\n", buf.String())
				default:
					t.Fatalf("unknown assertion: %s", m[1])
				}
			}
			if !errAsserted {
				require.NoError(t, err)
			}
		})
	}
}

func assertValue(t *testing.T, want string, got machine.Value) bool {
	t.Helper()
	if want == "nil" {
		return assert.Equal(t, machine.Nil, got)
	} else if want == "true" || want == "false" {
		return assert.Equal(t, machine.Bool(want == "true"), got)
	} else if qs, err := strconv.Unquote(want); err == nil {
		return assert.Equal(t, machine.String(qs), got)
	} else if n, err := strconv.ParseInt(want, 10, 64); err == nil {
		return assert.Equal(t, machine.Int(n), got)
	} else if f, err := strconv.ParseFloat(want, 64); err == nil {
		return assert.Equal(t, machine.Float(f), got)
	}
	return assert.Fail(t, "unexpected result", fmt.Sprintf("want %s, got %v (%[2]T)", want, got))
}

func TestThreadCancelled(t *testing.T) {
	// an infinite loop
	cmod, err := compiler.Asm([]byte(`
		program: loop
		function: toplevel 0 0 0
			code:
				NOP
				JMP 0
	`))
	require.NoError(t, err)

	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)

		var th machine.Thread
		_, _, err := th.RunModule(ctx, cmod)
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorContains(t, err, "thread cancelled")
	})

	t.Run("steps", func(t *testing.T) {
		th := machine.Thread{MaxSteps: 1000}
		_, _, err := th.RunModule(context.Background(), cmod)
		require.ErrorContains(t, err, "thread cancelled: step limit exceeded")

		// the thread can be reused
		th.MaxSteps = 0
		ok, err := compiler.Asm([]byte(`
			program: ok
			function: toplevel 1 0 0
				code:
					TRUE
					RETURN
		`))
		require.NoError(t, err)
		_, res, err := th.RunModule(context.Background(), ok)
		require.NoError(t, err)
		assert.Equal(t, machine.True, res)
	})
}

func TestCallStackDepth(t *testing.T) {
	// f calls itself forever
	cmod, err := compiler.Asm([]byte(`
		program: depth
		function: toplevel 1 0 1
			locals:
				f 0
			cells:
				0
			code:
				MAKEFUNC 0
				SETLOCAL 0
				LOCAL 0
				CALL 0
				RETURN
		function: f 1 0 0
			captures:
				local 0 f
			code:
				UPVALUE 0
				CALL 0
				RETURN
	`))
	require.NoError(t, err)

	th := machine.Thread{MaxCallStackDepth: 10}
	_, _, err = th.RunModule(context.Background(), cmod)
	require.ErrorContains(t, err, "call stack depth exceeded (max 10)")
	assert.Equal(t, 0, th.CallStackDepth())
}

func TestBuiltinCallback(t *testing.T) {
	// apply(f, 2) calls back into the thread
	cmod, err := compiler.Asm([]byte(`
		program: callback
			names:
				apply
			constants:
				int 2
				int 1
		function: toplevel 3 0 1
			locals:
				n 0
			cells:
				0
			code:
				CONSTANT 1
				SETLOCAL 0
				PREDECLARED 0
				MAKEFUNC 0
				CONSTANT 0
				CALL 2
				RETURN
		function: add 2 1 1
			locals:
				x 0
			captures:
				local 0 n
			code:
				LOCAL 0
				UPVALUE 0
				PLUS
				RETURN
	`))
	require.NoError(t, err)

	var depth int
	th := machine.Thread{Predeclared: machine.NewEnv(1)}
	th.Predeclared.Set("apply", machine.NewBuiltin("apply", func(th *machine.Thread, args []machine.Value) (machine.Value, error) {
		depth = th.CallStackDepth()
		return th.Call(context.Background(), args[0], args[1:]...)
	}))
	_, res, err := th.RunModule(context.Background(), cmod)
	require.NoError(t, err)
	assert.Equal(t, machine.Int(3), res)
	assert.Equal(t, 2, depth)
}
