package maincmd_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/mna/tarn/internal/filetest"
	"github.com/mna/tarn/internal/maincmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpdateExecTests = flag.Bool("test.update-exec-tests", false, "If set, replace expected exec test results with actual results.")

func runMain(t *testing.T, args ...string) (mainer.ExitCode, string, string) {
	t.Helper()
	var buf, ebuf bytes.Buffer
	stdio := mainer.Stdio{
		Stdout: &buf,
		Stderr: &ebuf,
	}
	var c maincmd.Cmd
	code := c.Main(append([]string{"tarn"}, args...), stdio)
	return code, buf.String(), ebuf.String()
}

func TestExec(t *testing.T) {
	srcDir := filepath.Join("testdata", "in")
	golden := filetest.Golden{Dir: filepath.Join("testdata", "out"), Update: testUpdateExecTests}

	for _, name := range filetest.SourceFiles(t, srcDir, ".asm") {
		t.Run(name, func(t *testing.T) {
			// exit code is ignored, errors are printed to stderr
			_, stdout, stderr := runMain(t, "exec", filepath.Join(srcDir, name))
			golden.Output(t, name, stdout)
			golden.Errors(t, name, stderr)

			if t.Failed() && testing.Verbose() {
				b, err := os.ReadFile(filepath.Join(srcDir, name))
				if assert.NoError(t, err) {
					t.Logf("source file:\n%s\n", string(b))
				}
			}
		})
	}
}

func TestAsmDasm(t *testing.T) {
	src := filepath.Join("testdata", "in", "counter.asm")
	out := filepath.Join(t.TempDir(), "counter"+maincmd.ImageExt)

	code, stdout, stderr := runMain(t, "-o", out, "asm", src)
	require.Equal(t, mainer.Success, code, stderr)
	assert.Empty(t, stdout)

	code, fromImage, stderr := runMain(t, "dasm", out)
	require.Equal(t, mainer.Success, code, stderr)
	code, fromSource, stderr := runMain(t, "dasm", src)
	require.Equal(t, mainer.Success, code, stderr)
	assert.Equal(t, fromSource, fromImage)
	assert.Contains(t, fromImage, "function: inc 2 0 0")

	// the image executes like the source
	code, stdout, stderr = runMain(t, "exec", out)
	require.Equal(t, mainer.Success, code, stderr)
	assert.Equal(t, "3\nexport mk = <function mk>\n", stdout)
}

func TestExecConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tarn.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("max-call-stack-depth = 1\n"), 0600))

	code, _, stderr := runMain(t, "--config", cfg, "exec", filepath.Join("testdata", "in", "counter.asm"))
	assert.Equal(t, mainer.Failure, code)
	assert.Contains(t, stderr, "call stack depth exceeded (max 1)")

	code, _, stderr = runMain(t, "--config", filepath.Join(dir, "nope.toml"), "exec", filepath.Join("testdata", "in", "counter.asm"))
	assert.Equal(t, mainer.Failure, code)
	assert.Contains(t, stderr, "cannot read")
}

func TestMainArgs(t *testing.T) {
	cases := []struct {
		desc string
		args []string
		code mainer.ExitCode
		out  string // stdout contains this string
		err  string // stderr contains this string
	}{
		{"help", []string{"-h"}, mainer.Success, "usage: tarn", ""},
		{"version", []string{"--version"}, mainer.Success, "tarn ", ""},
		{"no command", nil, mainer.InvalidArgs, "", "no command specified"},
		{"unknown command", []string{"nope"}, mainer.InvalidArgs, "", "unknown command: nope"},
		{"no file", []string{"exec"}, mainer.InvalidArgs, "", "exec: at least one file must be provided"},
		{"output with exec", []string{"-o", "x", "exec", "y.asm"}, mainer.InvalidArgs, "", "exec: invalid flag 'output'"},
		{"output with many files", []string{"--output", "x", "asm", "y.asm", "z.asm"}, mainer.InvalidArgs, "", "asm: flag 'output' requires a single file"},
		{"missing file", []string{"dasm", "nope.asm"}, mainer.Failure, "", "nope.asm"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			code, stdout, stderr := runMain(t, c.args...)
			assert.Equal(t, c.code, code)
			assert.Contains(t, stdout, c.out)
			assert.Contains(t, stderr, c.err)
		})
	}
}
