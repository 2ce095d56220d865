package store

import (
	"fmt"

	"github.com/roach88/runfortran/internal/ir"
)

// Run is one stored resolution.
type Run struct {
	ID string

	// Seq orders runs; assigned by WriteRun.
	Seq int64

	// Digest is ir.SnapshotDigest of Snapshot.
	Digest string

	ToolVersion     string
	SnapshotVersion string

	// Roots are the search paths the run discovered files under.
	Roots []string

	// Snapshot holds the unfolded namespaces in compilation order.
	// ListRuns leaves it nil.
	Snapshot ir.Snapshot
}

// Order returns the stored compilation order.
func (r Run) Order() []string {
	return r.Snapshot.Paths()
}

// NewRun builds a run record for snap with an ID from gen and the current
// tool and snapshot versions.
func NewRun(gen RunIDGenerator, roots []string, snap ir.Snapshot) (Run, error) {
	digest, err := ir.SnapshotDigest(snap)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	return Run{
		ID:              gen.Generate(),
		Digest:          digest,
		ToolVersion:     ir.Version,
		SnapshotVersion: ir.SnapshotVersion,
		Roots:           roots,
		Snapshot:        snap,
	}, nil
}
