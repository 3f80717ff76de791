// Package filetest provides helpers for tests driven by the files of a
// testdata directory, where the expected results are stored in golden files
// next to the sources.
package filetest

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/diff"
	"golang.org/x/exp/slices"
)

var testUpdateAllGolden = flag.Bool("test.update-all-golden", false, "If set, replace all golden files with the actual results.")

// SourceFiles returns the names of the regular files in dir that have one of
// the extensions, in sorted order. With no extension, all regular files are
// returned.
func SourceFiles(t *testing.T, dir string, exts ...string) []string {
	t.Helper()

	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, dent := range dents {
		if !dent.Type().IsRegular() {
			continue
		}
		if len(exts) > 0 && !slices.Contains(exts, filepath.Ext(dent.Name())) {
			continue
		}
		names = append(names, dent.Name())
	}
	return names
}

// Golden compares the results of a test with golden files stored in Dir.
// If Update points to true, the golden files are replaced with the results
// instead.
type Golden struct {
	Dir    string
	Update *bool
}

// Output compares the standard output of the test for source file name with
// its ".want" golden file.
func (g Golden) Output(t *testing.T, name, got string) {
	t.Helper()
	g.Diff(t, "output", name+".want", got)
}

// Errors compares the error output of the test for source file name with its
// ".err" golden file.
func (g Golden) Errors(t *testing.T, name, got string) {
	t.Helper()
	g.Diff(t, "errors", name+".err", got)
}

// Diff compares got with the golden file. A missing golden file is the same
// as an empty one. The label identifies the kind of result in the logs.
func (g Golden) Diff(t *testing.T, label, file, got string) {
	t.Helper()

	goldFile := filepath.Join(g.Dir, file)
	if (g.Update != nil && *g.Update) || *testUpdateAllGolden {
		if got == "" {
			if err := os.Remove(goldFile); err != nil && !os.IsNotExist(err) {
				t.Fatal(err)
			}
			return
		}
		if err := os.WriteFile(goldFile, []byte(got), 0600); err != nil {
			t.Fatal(err)
		}
		return
	}

	b, err := os.ReadFile(goldFile)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	want := string(b)
	if patch := diff.Diff(want, got); patch != "" {
		if testing.Verbose() {
			t.Logf("want %s:\n%s\ngot %s:\n%s\n", label, want, label, got)
		}
		t.Errorf("diff %s:\n%s\n", label, patch)
	}
}
