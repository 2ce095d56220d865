package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/runfortran/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSnapshot returns a resolved two-file snapshot:
// geometry.f90 defines geometry, main.f90 uses it and iso_c_binding.
func createTestSnapshot() ir.Snapshot {
	geometry := ir.NewNamespace()
	geometry.Define("Geometry")

	main := ir.NewNamespace()
	main.Use(ir.NewModule("Geometry", false))
	main.Use(ir.NewModule("iso_c_binding", true))

	return ir.Snapshot{
		{Path: "src/geometry.f90", Namespace: geometry},
		{Path: "src/main.f90", Namespace: main},
	}
}

// createTestRun builds a run for createTestSnapshot with the given ID.
func createTestRun(t *testing.T, id string) Run {
	t.Helper()
	run, err := NewRun(fixedID(id), []string{"src"}, createTestSnapshot())
	if err != nil {
		t.Fatalf("NewRun() failed: %v", err)
	}
	return run
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }
