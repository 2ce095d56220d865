package store

import (
	"context"
	"fmt"

	"github.com/roach88/runfortran/internal/ir"
)

// VerifyResult reports whether a stored run still matches its digest.
type VerifyResult struct {
	RunID    string
	Stored   string
	Computed string
}

// OK reports whether the digests match.
func (r VerifyResult) OK() bool {
	return r.Stored == r.Computed
}

// VerifyRun reloads a run and recomputes its snapshot digest. A mismatch
// means the rows were changed after the run was written.
func (s *Store) VerifyRun(ctx context.Context, id string) (VerifyResult, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return VerifyResult{}, err
	}

	computed, err := ir.SnapshotDigest(run.Snapshot)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("verify run %s: %w", id, err)
	}

	return VerifyResult{RunID: id, Stored: run.Digest, Computed: computed}, nil
}

// SameSnapshot reports whether two stored runs produced the same
// compilation order and namespaces.
func SameSnapshot(a, b Run) bool {
	return a.Digest == b.Digest
}
