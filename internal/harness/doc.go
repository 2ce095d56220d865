// Package harness runs conformance scenarios against the resolver.
//
// A scenario is a YAML file holding a small Fortran source tree and the
// expected outcome: either a resolution error (kind, module, paths) or a
// set of assertions over the compilation order and the unfolded
// namespaces. Run materializes the tree in a temporary directory and
// drives the same pipeline as the run command: discovery, parsing,
// resolution, and export of the run into an in-memory store.
//
// Golden files under testdata/golden hold the canonical JSON of each
// scenario's snapshot. To regenerate them:
//
//	go test ./internal/harness -update
package harness
