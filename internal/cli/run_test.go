package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/runfortran/internal/ir"
	"github.com/roach88/runfortran/internal/store"
	"github.com/roach88/runfortran/internal/testutil"
)

func TestRunPrintsOrder(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "-p", dir)
	require.NoError(t, err)

	// No trailing newline.
	assert.Equal(t, joined(dir, " ", "c.f90", "a.f90", "b.f90"), out)
}

func TestRunPositionalPathAndSeparator(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, dir, "--sep", ",")
	require.NoError(t, err)
	assert.Equal(t, joined(dir, ",", "c.f90", "a.f90", "b.f90"), out)
}

func TestRunMultipleRoots(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"lib/shapes.f90": "module shapes\nend module shapes\n",
		"app/main.f90":   "program main\n  use shapes\nend program main\n",
	})
	app := filepath.Join(dir, "app")
	lib := filepath.Join(dir, "lib")

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "-p", app, "-p", lib)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lib, "shapes.f90")+" "+filepath.Join(app, "main.f90"), out)
}

func TestRunJSON(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)

	cmd := NewRunCommand(&RootOptions{Format: "json"})
	out, _, err := executeCommand(t, cmd, "-p", dir)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, strings.Split(joined(dir, " ", "c.f90", "a.f90", "b.f90"), " "), resp.Data.Order)
	assert.Len(t, resp.Data.Digest, 64)
	assert.Empty(t, resp.Data.RunID)
}

func TestRunDigestIsStable(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)

	digest := func() string {
		cmd := NewRunCommand(&RootOptions{Format: "json"})
		out, _, err := executeCommand(t, cmd, "-p", dir)
		require.NoError(t, err)
		var resp struct {
			Data RunResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data.Digest
	}

	assert.Equal(t, digest(), digest())
}

func TestRunOutputFile(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)
	base := filepath.Join(t.TempDir(), "modules")

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	_, _, err := executeCommand(t, cmd, "-p", dir, "-o", base)
	require.NoError(t, err)

	data, err := os.ReadFile(base + ".json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n \""), "snapshot should be indented by one space: %s", data)

	var snap ir.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, strings.Split(joined(dir, " ", "c.f90", "a.f90", "b.f90"), " "), snap.Paths())
	assert.True(t, snap[2].Namespace.Used.Contains(ir.NewModule("geometry", false)))
}

func TestRunOutputFileFoldsSpelling(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"a.f90": "MODULE Geometry\nEND MODULE Geometry\n",
		"b.f90": "PROGRAM main\n  USE GEOMETRY\nEND PROGRAM main\n",
	})
	base := filepath.Join(t.TempDir(), "modules")

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	_, _, err := executeCommand(t, cmd, "-p", dir, "-o", base)
	require.NoError(t, err)

	data, err := os.ReadFile(base + ".json")
	require.NoError(t, err)

	var entries map[string]struct {
		Defined []map[string]bool `json:"defined"`
		Used    []map[string]bool `json:"used"`
	}
	require.NoError(t, json.Unmarshal(data, &entries))

	a := entries[filepath.Join(dir, "a.f90")]
	b := entries[filepath.Join(dir, "b.f90")]
	assert.Equal(t, []map[string]bool{{"geometry": false}}, a.Defined)
	assert.Equal(t, []map[string]bool{{"geometry": false}}, b.Used)
}

func TestRunOutputFileWriteError(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)
	base := filepath.Join(t.TempDir(), "missing", "modules")

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "-p", dir, "-o", base)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E007]")
}

func TestRunResolutionErrors(t *testing.T) {
	tests := []struct {
		name string
		tree map[string]string
		code string
	}{
		{
			name: "unresolved",
			tree: map[string]string{"p.f90": "program p\n  use missing\nend program p\n"},
			code: "E202",
		},
		{
			name: "ambiguous",
			tree: map[string]string{
				"a.f90": "module m\nend module m\n",
				"b.f90": "module m\nend module m\n",
			},
			code: "E201",
		},
		{
			name: "cycle",
			tree: map[string]string{
				"f.f90": "module f\n  use g\nend module f\n",
				"g.f90": "module g\n  use f\nend module g\n",
			},
			code: "E203",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.WriteTree(t, tt.tree)

			cmd := NewRunCommand(&RootOptions{Format: "text"})
			out, _, err := executeCommand(t, cmd, "-p", dir)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestRunAmbiguousJSONDetails(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"a.f90": "module m\nend module m\n",
		"b.f90": "module M\nend module M\n",
	})

	cmd := NewRunCommand(&RootOptions{Format: "json"})
	out, _, err := executeCommand(t, cmd, "-p", dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E201", resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "m", details["module"])
	assert.Len(t, details["paths"], 2)
}

func TestRunIntrinsicsFlag(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"p.f90": "program p\n  use mpi\nend program p\n",
	})

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	_, _, err := executeCommand(t, cmd, "-p", dir)
	require.Error(t, err, "mpi is not a default intrinsic")

	cmd = NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "-p", dir, "-i", "mpi,netcdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "p.f90"), out)
}

func TestRunIntrinsicQualifier(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"p.f90": "program p\n  use, intrinsic :: my_vendor_mod\nend program p\n",
	})

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "-p", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "p.f90"), out)
}

func TestRunExclude(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"src/m.f90":   "module m\nend module m\n",
		"build/m.f90": "module m\nend module m\n",
	})

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	_, _, err := executeCommand(t, cmd, "-p", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	cmd = NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "-p", dir, "--exclude", "build/**")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "src", "m.f90"), out)
}

func TestRunExtensions(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"a.f90": "module m\nend module m\n",
		"b.F90": "program p\n  use m\nend program p\n",
	})

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "-p", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.f90"), out)

	cmd = NewRunCommand(&RootOptions{Format: "text"})
	out, _, err = executeCommand(t, cmd, "-p", dir, "--extensions", ".f90,.F90")
	require.NoError(t, err)
	assert.Equal(t, joined(dir, " ", "a.f90", "b.F90"), out)
}

func TestRunConfigFile(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"p.f90": "program p\n  use mpi\nend program p\n",
		"q.f90": "program q\nend program q\n",
	})
	cfgPath := filepath.Join(t.TempDir(), "run-fortran.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`intrinsics: ["mpi"]
separator: ";"
`), 0o644))

	cmd := NewRunCommand(&RootOptions{Format: "text", ConfigPath: cfgPath})
	out, _, err := executeCommand(t, cmd, "-p", dir)
	require.NoError(t, err)
	// Unrelated files: the later one is placed first.
	assert.Equal(t, joined(dir, ";", "q.f90", "p.f90"), out)

	// An explicit flag beats the file.
	cmd = NewRunCommand(&RootOptions{Format: "text", ConfigPath: cfgPath})
	out, _, err = executeCommand(t, cmd, "-p", dir, "-s", "|")
	require.NoError(t, err)
	assert.Equal(t, joined(dir, "|", "q.f90", "p.f90"), out)
}

func TestRunInvalidConfig(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)
	cfgPath := filepath.Join(t.TempDir(), "run-fortran.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`colour: "blue"`), 0o644))

	cmd := NewRunCommand(&RootOptions{Format: "text", ConfigPath: cfgPath})
	out, _, err := executeCommand(t, cmd, "-p", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]")
}

func TestRunMissingConfigFile(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)

	cmd := NewRunCommand(&RootOptions{Format: "text", ConfigPath: filepath.Join(dir, "nope.cue")})
	out, _, err := executeCommand(t, cmd, "-p", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "config file not found")
}

func TestRunNonExistentPath(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "-p", "/nonexistent/fortran/src")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "source path not found")
}

func TestRunInvalidExcludePattern(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "-p", dir, "--exclude", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NotEmpty(t, out)
}

func TestRunEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "-p", dir)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunRecordsToDatabase(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	opts := &RunOptions{
		RootOptions:    &RootOptions{Format: "json"},
		RunIDGenerator: testutil.NewFixedRunIDGenerator("run-1"),
	}
	out, _, err := executeCommand(t, newRunCommand(opts), "-p", dir, "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "run-1", resp.Data.RunID)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, resp.Data.Order, run.Order())
	assert.Equal(t, resp.Data.Digest, run.Digest)
	assert.Equal(t, []string{dir}, run.Roots)
	assert.Equal(t, int64(1), run.Seq)
}

func TestRunDefaultRunIDIsUUID(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	cmd := NewRunCommand(&RootOptions{Format: "json"})
	out, _, err := executeCommand(t, cmd, "-p", dir, "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data.RunID, 36)
}

func TestRunVerboseLogsToStderr(t *testing.T) {
	dir := testutil.WriteTree(t, geometryTree)

	cmd := NewRunCommand(&RootOptions{Format: "json", Verbose: true})
	out, errOut, err := executeCommand(t, cmd, "-p", dir)
	require.NoError(t, err)

	assert.Contains(t, errOut, "found 3 Fortran files")
	assert.Contains(t, errOut, "snapshot digest")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "stdout must stay valid JSON")
}

func TestRunHelpText(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := executeCommand(t, cmd, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "--path")
	assert.Contains(t, out, "--output-file-name")
	assert.Contains(t, out, "Exit codes")
}

func TestDisplayPaths(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	file := filepath.Join(dir, "main.f90")

	got, err := displayPaths(
		[]string{src, file},
		[]string{filepath.Join(src, "a.f90"), filepath.Join(src, "sub", "b.f90"), file},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(src, "a.f90"),
		filepath.Join(src, "sub", "b.f90"),
		file,
	}, got)
}

func TestDisplayPathsRelativeRoot(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	got, err := displayPaths([]string{"./src"}, []string{filepath.Join(wd, "src", "a.f90")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("src", "a.f90")}, got)
}
