package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTree(t *testing.T) {
	dir := WriteTree(t, map[string]string{
		"a.f90":        "module a\n",
		"nested/b.f90": "use a\n",
		"nested/x/c.f": "",
	})

	data, err := os.ReadFile(filepath.Join(dir, "nested", "b.f90"))
	require.NoError(t, err)
	assert.Equal(t, "use a\n", string(data))

	info, err := os.Stat(filepath.Join(dir, "nested", "x", "c.f"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestFixedRunIDGenerator(t *testing.T) {
	gen := NewFixedRunIDGenerator("run-1")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-1", gen.Generate())

	assert.Equal(t, "test-run-default", NewFixedRunIDGenerator("").Generate())
}
