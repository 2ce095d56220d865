package depgraph

import (
	"github.com/roach88/runfortran/internal/ir"
)

// Result is the outcome of a successful resolution.
type Result struct {
	// Snapshot holds the unfolded namespaces in compilation order.
	Snapshot ir.Snapshot

	// Order is the compilation order of file paths.
	Order []string
}

// Resolve unfolds and orders files. files must be in a stable order for the
// result to be reproducible. On error no result is returned.
func Resolve(files []ir.FileNamespace, opts Options) (*Result, error) {
	unfolded, err := Unfold(files, opts)
	if err != nil {
		return nil, err
	}

	ordered := Order(unfolded)
	opts.logger().Debug("resolved compilation order", "files", len(ordered))

	return &Result{
		Snapshot: ir.Snapshot(ordered),
		Order:    ir.Paths(ordered),
	}, nil
}

// Diagnose reports every resolution problem instead of stopping at the first:
// all ambiguous definitions, every unresolved direct usage (in file order)
// and every use cycle. An empty result means Resolve would succeed.
func Diagnose(files []ir.FileNamespace, opts Options) []error {
	r := newResolver(files, opts)

	var errs []error
	for _, e := range r.ambiguities() {
		errs = append(errs, e)
	}

	for _, f := range files {
		for _, m := range f.Namespace.Used.Sorted() {
			if r.resolve(m).kind == unresolved {
				errs = append(errs, &UnresolvedModuleError{Module: m.Name, Path: f.Path})
			}
		}
	}

	for _, c := range analyzeCycles(r) {
		errs = append(errs, c)
	}

	return errs
}
