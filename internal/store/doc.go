// Package store provides SQLite-backed storage for resolved runs.
//
// Each run records the compilation order and the unfolded namespace of
// every file, so that a later invocation can show or compare it without
// re-reading sources:
//   - runs: one row per resolution, with its snapshot digest
//   - run_files: the files of a run, by position in compilation order
//   - run_modules: defined and used modules of each file
//
// Runs are ordered by seq, a logical counter assigned on insert, never by
// wall time. Run IDs come from a RunIDGenerator; production code uses
// UUIDv7 so IDs also sort by creation.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
