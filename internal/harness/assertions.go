package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/runfortran/internal/depgraph"
	"github.com/roach88/runfortran/internal/ir"
	"github.com/roach88/runfortran/internal/store"
)

// intrinsicPrefix marks an intrinsic module in Assertion.Modules.
const intrinsicPrefix = "intrinsic:"

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Order    []string // Full compilation order for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nCompilation order:\n")
	for i, p := range e.Order {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, p)
	}

	return buf.String()
}

// AssertionContext carries what assertions need beyond the result.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertOrder:
		return assertOrder(result.Order, a)
	case AssertBefore:
		return assertBefore(result.Order, a)
	case AssertUses:
		return assertUses(result, a)
	case AssertDefiners:
		return assertDefiners(result.Order, a, actx)
	case AssertCount:
		return assertCount(result.Order, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertOrder checks that the compilation order is exactly a.Paths.
func assertOrder(order []string, a Assertion) error {
	if slices.Equal(order, a.Paths) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOrder,
		Expected: fmt.Sprintf("order %v", a.Paths),
		Actual:   fmt.Sprintf("order %v", order),
		Order:    order,
	}
}

// assertBefore checks that files appear in the given relative order.
// Files don't need to be adjacent.
func assertBefore(order []string, a Assertion) error {
	for _, p := range a.Paths {
		if !slices.Contains(order, p) {
			return &AssertionError{
				Type:     AssertBefore,
				Expected: fmt.Sprintf("all files present: %v", a.Paths),
				Actual:   fmt.Sprintf("missing file: %s", p),
				Order:    order,
			}
		}
	}

	for i := 1; i < len(a.Paths); i++ {
		prev, curr := a.Paths[i-1], a.Paths[i]
		pp, cp := slices.Index(order, prev), slices.Index(order, curr)
		if pp >= cp {
			return &AssertionError{
				Type:     AssertBefore,
				Expected: fmt.Sprintf("files in order: %v", a.Paths),
				Actual:   fmt.Sprintf("%s (pos %d) should be before %s (pos %d)", prev, pp+1, curr, cp+1),
				Order:    order,
			}
		}
	}

	return nil
}

// assertUses checks the unfolded used set of one file.
func assertUses(result *Result, a Assertion) error {
	idx := slices.IndexFunc(result.Snapshot, func(f ir.FileNamespace) bool { return f.Path == a.Path })
	if idx < 0 {
		return &AssertionError{
			Type:     AssertUses,
			Expected: fmt.Sprintf("file %s in snapshot", a.Path),
			Actual:   "file not found",
			Order:    result.Order,
		}
	}

	used := result.Snapshot[idx].Namespace.Used
	for _, ref := range a.Modules {
		m := parseModuleRef(ref)
		if !used.Contains(m) {
			return &AssertionError{
				Type:     AssertUses,
				Expected: fmt.Sprintf("%s uses %s", a.Path, m),
				Actual:   fmt.Sprintf("used set %v", moduleStrings(used)),
				Order:    result.Order,
			}
		}
	}
	return nil
}

// assertDefiners queries the stored run for the files defining a module.
func assertDefiners(order []string, a Assertion, actx *AssertionContext) error {
	if actx == nil || actx.Store == nil {
		return fmt.Errorf("definers assertion requires a store")
	}

	paths, err := actx.Store.FindDefiners(actx.Ctx, actx.RunID, a.Module)
	if err != nil {
		return fmt.Errorf("query definers: %w", err)
	}

	want := a.Paths
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(paths, want) {
		return &AssertionError{
			Type:     AssertDefiners,
			Expected: fmt.Sprintf("%s defined by %v", a.Module, want),
			Actual:   fmt.Sprintf("defined by %v", paths),
			Order:    order,
		}
	}
	return nil
}

func assertCount(order []string, a Assertion) error {
	if len(order) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCount,
		Expected: fmt.Sprintf("%d files", a.Count),
		Actual:   fmt.Sprintf("%d files", len(order)),
		Order:    order,
	}
}

// checkExpectedError compares a resolution error with the expectation and
// returns the mismatches.
func checkExpectedError(err error, expect *ExpectClause) []string {
	var failures []string

	want := map[string]depgraph.ErrorCode{
		ErrorAmbiguous:  depgraph.ErrCodeAmbiguous,
		ErrorUnresolved: depgraph.ErrCodeUnresolved,
		ErrorCycle:      depgraph.ErrCodeCyclic,
	}[expect.Error]
	if got := depgraph.CodeOf(err); got != want {
		return []string{fmt.Sprintf("expected %s error (%s), got %s: %v", expect.Error, want, got, err)}
	}

	module, paths := errorDetails(err)
	if expect.Module != "" && ir.FoldName(expect.Module) != ir.FoldName(module) {
		failures = append(failures, fmt.Sprintf("expected module %q, got %q", expect.Module, module))
	}
	if len(expect.Paths) > 0 && !slices.Equal(expect.Paths, paths) {
		failures = append(failures, fmt.Sprintf("expected paths %v, got %v", expect.Paths, paths))
	}
	return failures
}

// errorDetails extracts the module name and file paths a resolution error
// refers to.
func errorDetails(err error) (string, []string) {
	var (
		amb   *depgraph.AmbiguityError
		unres *depgraph.UnresolvedModuleError
		cyc   *depgraph.CyclicDependencyError
	)
	switch {
	case errors.As(err, &amb):
		return amb.Module, amb.Paths
	case errors.As(err, &unres):
		return unres.Module, []string{unres.Path}
	case errors.As(err, &cyc):
		return "", cyc.Files
	}
	return "", nil
}

func parseModuleRef(ref string) ir.Module {
	if name, ok := strings.CutPrefix(ref, intrinsicPrefix); ok {
		return ir.NewModule(name, true)
	}
	return ir.NewModule(ref, false)
}

func moduleStrings(s ir.ModuleSet) []string {
	var out []string
	for _, m := range s.Sorted() {
		out = append(out, m.String())
	}
	return out
}
