package depgraph

import (
	"slices"

	"github.com/roach88/runfortran/internal/ir"
)

// Order arranges unfolded files so that a file defining a module precedes
// every file using it.
//
// Files are taken in input order and inserted into a growing sequence. For
// a file F:
//   - lower is the first position whose file uses something F defines
//     (F must come no later than that file), 0 if none;
//   - upper is one past the last position whose file defines something F
//     uses (F must come after that file), 0 if none.
//
// F is inserted at max(lower, upper). The result is one valid linear
// extension of the dependency order; unrelated files keep an order that
// depends on the input order.
//
// Order expects the output of Unfold: with direct usages only, transitive
// constraints are not guaranteed.
func Order(files []ir.FileNamespace) []ir.FileNamespace {
	placed := make([]ir.FileNamespace, 0, len(files))

	for _, f := range files {
		lower, upper := -1, 0
		for i, p := range placed {
			if lower < 0 && p.Namespace.Used.Intersects(f.Namespace.Defined) {
				lower = i
			}
			if p.Namespace.Defined.Intersects(f.Namespace.Used) {
				upper = i + 1
			}
		}
		lower = max(lower, 0)

		placed = slices.Insert(placed, max(lower, upper), f)
	}

	return placed
}
