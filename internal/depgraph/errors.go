package depgraph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a resolution failure category.
type ErrorCode string

const (
	// ErrCodeAmbiguous indicates a module defined by more than one file.
	ErrCodeAmbiguous ErrorCode = "E201"

	// ErrCodeUnresolved indicates a used module that nothing defines.
	ErrCodeUnresolved ErrorCode = "E202"

	// ErrCodeCyclic indicates files that depend on each other.
	ErrCodeCyclic ErrorCode = "E203"
)

// ResolutionError is implemented by every error that invalidates a run's
// dependency graph.
type ResolutionError interface {
	error
	Code() ErrorCode
}

// AmbiguityError reports a module name defined in more than one file.
type AmbiguityError struct {
	Module string   // module name as first spelled
	Paths  []string // every defining file, sorted
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("module %q is ambiguous: defined in %d files: %s",
		e.Module, len(e.Paths), strings.Join(e.Paths, ", "))
}

// Code implements ResolutionError.
func (e *AmbiguityError) Code() ErrorCode { return ErrCodeAmbiguous }

// UnresolvedModuleError reports a used module that no file defines and
// that is neither marked intrinsic nor in the intrinsic allowlist.
type UnresolvedModuleError struct {
	Module string // module name as spelled in the use statement
	Path   string // file containing the use statement
}

func (e *UnresolvedModuleError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("module %q is not defined by any file", e.Module)
	}
	return fmt.Sprintf("module %q used in %s is not defined by any file", e.Module, e.Path)
}

// Code implements ResolutionError.
func (e *UnresolvedModuleError) Code() ErrorCode { return ErrCodeUnresolved }

// CyclicDependencyError reports files whose use relations form a cycle.
type CyclicDependencyError struct {
	Files []string // members of the cycle, sorted
	Path  []string // one traversal of the cycle: [a, b, ..., a]
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic module dependency: %s", strings.Join(e.Path, " -> "))
}

// Code implements ResolutionError.
func (e *CyclicDependencyError) Code() ErrorCode { return ErrCodeCyclic }

// IsAmbiguity reports whether err wraps an AmbiguityError.
func IsAmbiguity(err error) bool {
	var e *AmbiguityError
	return errors.As(err, &e)
}

// IsUnresolved reports whether err wraps an UnresolvedModuleError.
func IsUnresolved(err error) bool {
	var e *UnresolvedModuleError
	return errors.As(err, &e)
}

// IsCycle reports whether err wraps a CyclicDependencyError.
func IsCycle(err error) bool {
	var e *CyclicDependencyError
	return errors.As(err, &e)
}

// CodeOf returns the resolution code carried by err, or "" if err is not
// a ResolutionError.
func CodeOf(err error) ErrorCode {
	var re ResolutionError
	if errors.As(err, &re) {
		return re.Code()
	}
	return ""
}
