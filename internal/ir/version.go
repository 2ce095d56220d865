package ir

const (
	// Version is the run-fortran release version.
	Version = "0.1.1"

	// SnapshotVersion is the version of the exported snapshot layout.
	SnapshotVersion = "1"
)
