// Package depgraph turns per-file namespaces into a compilation order.
//
// Resolution runs in two phases over an immutable snapshot of the input:
//
//  1. Unfold computes, for every file, the transitive closure of the
//     modules it uses. Using a module means depending on everything its
//     home file uses and defines, so each resolved step merges both sets.
//  2. Order inserts files one by one into a growing sequence so that a
//     file defining a module precedes every file that uses it.
//
// Resolution fails on the first inconsistency: a module defined by more
// than one file (AmbiguityError), a used module with no definition that is
// neither intrinsic nor allowlisted (UnresolvedModuleError), or a cycle of
// use relations between files (CyclicDependencyError). No partial result
// is returned on failure.
//
// The output order depends on the input order for files that are not
// related by any dependency. Callers pass files in a stable order (see
// source.Discover) to get reproducible output.
package depgraph
