package store

import (
	"context"
	"testing"

	"github.com/roach88/runfortran/internal/ir"
	"github.com/roach88/runfortran/internal/testutil"
)

func TestNewRun(t *testing.T) {
	snap := createTestSnapshot()
	run, err := NewRun(testutil.NewFixedRunIDGenerator("run-1"), []string{"src"}, snap)
	if err != nil {
		t.Fatalf("NewRun() failed: %v", err)
	}

	want, _ := ir.SnapshotDigest(snap)
	if run.ID != "run-1" {
		t.Errorf("ID = %q, want %q", run.ID, "run-1")
	}
	if run.Digest != want {
		t.Errorf("Digest = %q, want %q", run.Digest, want)
	}
	if run.ToolVersion != ir.Version || run.SnapshotVersion != ir.SnapshotVersion {
		t.Errorf("versions = %q/%q", run.ToolVersion, run.SnapshotVersion)
	}
	if run.Seq != 0 {
		t.Errorf("Seq = %d before write, want 0", run.Seq)
	}
}

func TestWriteRun_AssignsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.WriteRun(ctx, createTestRun(t, "run-a"))
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	second, err := s.WriteRun(ctx, createTestRun(t, "run-b"))
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("seqs = %d, %d; want 1, 2", first.Seq, second.Seq)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun(t, "run-a")
	first, err := s.WriteRun(ctx, run)
	if err != nil {
		t.Fatalf("first WriteRun() failed: %v", err)
	}
	again, err := s.WriteRun(ctx, run)
	if err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}

	if again.Seq != first.Seq {
		t.Errorf("rewrite Seq = %d, want %d", again.Seq, first.Seq)
	}

	var files int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM run_files WHERE run_id = ?", "run-a").Scan(&files); err != nil {
		t.Fatalf("count files: %v", err)
	}
	if files != 2 {
		t.Errorf("run_files rows = %d, want 2", files)
	}
}

func TestWriteRun_StoresModules(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteRun(ctx, createTestRun(t, "run-a")); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM run_modules
		WHERE run_id = 'run-a' AND role = 'used' AND position = 1
	`).Scan(&count)
	if err != nil {
		t.Fatalf("count modules: %v", err)
	}
	if count != 2 {
		t.Errorf("used modules of main.f90 = %d, want 2", count)
	}

	var name, key string
	err = s.db.QueryRow(`
		SELECT name, name_key FROM run_modules
		WHERE run_id = 'run-a' AND role = 'defined' AND position = 0
	`).Scan(&name, &key)
	if err != nil {
		t.Fatalf("query defined module: %v", err)
	}
	if name != "Geometry" || key != "geometry" {
		t.Errorf("defined module = %q (key %q), want Geometry (key geometry)", name, key)
	}
}

func TestWriteRun_EmptyID(t *testing.T) {
	s := createTestStore(t)

	run := createTestRun(t, "x")
	run.ID = ""
	if _, err := s.WriteRun(context.Background(), run); err == nil {
		t.Error("WriteRun() with empty ID should fail")
	}
}

func TestWriteRun_EmptySnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run, err := NewRun(fixedID("empty"), nil, ir.Snapshot{})
	if err != nil {
		t.Fatalf("NewRun() failed: %v", err)
	}
	if _, err := s.WriteRun(ctx, run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "empty")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if len(got.Snapshot) != 0 || len(got.Roots) != 0 {
		t.Errorf("ReadRun() = %+v, want no files and no roots", got)
	}
}

func TestMarshalRoots(t *testing.T) {
	got, err := marshalRoots([]string{"src", "lib/<old>&new"})
	if err != nil {
		t.Fatalf("marshalRoots() failed: %v", err)
	}
	want := `["src","lib/<old>&new"]`
	if got != want {
		t.Errorf("marshalRoots() = %s, want %s", got, want)
	}

	roots, err := unmarshalRoots(got)
	if err != nil {
		t.Fatalf("unmarshalRoots() failed: %v", err)
	}
	if len(roots) != 2 || roots[1] != "lib/<old>&new" {
		t.Errorf("unmarshalRoots() = %v", roots)
	}
}
