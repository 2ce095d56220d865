// Package ir provides the core value types shared by every stage of the
// ordering pipeline: modules, module sets, per-file namespaces and the
// exported snapshot of a resolved run.
//
// This package contains type definitions and their serialization only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Module identity is case-insensitive: ModuleKey holds the folded name,
//     Module keeps the spelling found in source for diagnostics
//   - A defined module is never intrinsic (enforced by Namespace.Define)
//   - Every iteration that reaches output goes through a sorted view
//     (ModuleSet.Sorted, NameSet.Sorted) so runs are reproducible
package ir
