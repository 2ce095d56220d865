package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// geometryTree: a.f90 defines geometry, b.f90 uses it, c.f90 is unrelated.
// Resolves to c, a, b.
var geometryTree = map[string]string{
	"a.f90": "module geometry\nend module geometry\n",
	"b.f90": "program main\n  use geometry\nend program main\n",
	"c.f90": "subroutine helper()\nend subroutine helper\n",
}

// executeCommand runs cmd with args and returns what it wrote to stdout
// and stderr.
func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// joined returns dir-prefixed names joined by sep.
func joined(dir, sep string, names ...string) string {
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return strings.Join(paths, sep)
}
