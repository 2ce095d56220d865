package harness

import (
	"github.com/roach88/runfortran/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the outcome matched every expectation.
	Pass bool `json:"pass"`

	// Order is the compilation order, paths relative to the scenario tree.
	// Empty when resolution failed.
	Order []string `json:"order"`

	// Snapshot holds the unfolded namespaces in Order.
	Snapshot ir.Snapshot `json:"snapshot"`

	// Digest is the snapshot digest of the stored run.
	Digest string `json:"digest,omitempty"`

	// ErrorCode is the resolution error code (E201, E202, E203), if any.
	ErrorCode string `json:"error_code,omitempty"`

	// ErrorMessage is the resolution error text, if any.
	ErrorMessage string `json:"error_message,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Order:    []string{},
		Snapshot: ir.Snapshot{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
