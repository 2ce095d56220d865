package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/roach88/runfortran/internal/depgraph"
	"github.com/roach88/runfortran/internal/ir"
	"github.com/roach88/runfortran/internal/source"
)

// SourceOptions holds the discovery flags shared by run and validate.
// Intrinsics, Extensions and Exclude reach the command through the
// config layer, which binds the flags by name.
type SourceOptions struct {
	Paths      []string
	Intrinsics []string
	Extensions []string
	Exclude    []string
}

func (o *SourceOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringArrayVarP(&o.Paths, "path", "p", nil, "source directory or file (repeatable, default is the working directory)")
	flags.StringSliceVarP(&o.Intrinsics, "intrinsics", "i", nil, "comma-separated modules resolvable without a defining file")
	flags.StringSliceVar(&o.Extensions, "extensions", nil, "comma-separated source extensions, including the dot")
	flags.StringSliceVar(&o.Exclude, "exclude", nil, "glob patterns of paths to skip, relative to each root")
}

// roots returns --path values followed by positional paths.
func (o *SourceOptions) roots(args []string) []string {
	roots := append(slices.Clone(o.Paths), args...)
	if len(roots) == 0 {
		return []string{"."}
	}
	return roots
}

// LoadMode controls how errors are handled during source loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the parsed sources found under the search roots.
type LoadResult struct {
	Roots     []string
	Files     []ir.FileNamespace // in discovery order, paths as displayed
	FileCount int                // number of Fortran files found
}

// LoadError represents an error that occurred during source loading.
type LoadError struct {
	Code    string
	Message string
	Path    string // offending source file, if any
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSources discovers and parses the Fortran files under roots.
// If mode is LoadModeFailFast, returns on first unreadable file.
// If mode is LoadModeCollectAll, every readable file is parsed and all
// read errors are returned.
//
// Paths in the result are spelled relative to the root they were found
// under, joined to that root as given, e.g. root "./src" yields
// "src/geometry.f90".
func LoadSources(roots []string, opts source.DiscoverOptions, mode LoadMode) (*LoadResult, []error) {
	if len(roots) == 0 {
		roots = []string{"."}
	}

	for _, root := range roots {
		_, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("source path not found: %s", root)}}
		}
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing source path: %v", err)}}
		}
	}

	paths, err := source.Discover(roots, opts)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning sources: %v", err)}}
	}

	display, err := displayPaths(roots, paths)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: err.Error()}}
	}

	result := &LoadResult{
		Roots:     roots,
		Files:     make([]ir.FileNamespace, 0, len(paths)),
		FileCount: len(paths),
	}

	var errs []error
	for i, path := range paths {
		ns, err := source.ParseFile(path)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeReadFailed, Message: err.Error(), Path: display[i]})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Files = append(result.Files, ir.FileNamespace{Path: display[i], Namespace: ns})
	}

	return result, errs
}

// displayPaths maps absolute discovered paths back onto the first root
// containing them.
func displayPaths(roots, paths []string) ([]string, error) {
	abs := make([]string, len(roots))
	for i, root := range roots {
		a, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", root, err)
		}
		abs[i] = a
	}

	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p
		for j, a := range abs {
			if p == a {
				out[i] = filepath.Clean(roots[j])
				break
			}
			rel, err := filepath.Rel(a, p)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				continue
			}
			out[i] = filepath.Join(roots[j], rel)
			break
		}
	}
	return out, nil
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Source scan error (including bad exclude patterns)
	ErrCodeNoFiles     = "E003" // No Fortran files found
	ErrCodeReadFailed  = "E004" // Source file unreadable
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeConfig      = "E006" // Invalid configuration
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Run database error
	ErrCodeScenario    = "E009" // Scenario load error
)

// resolutionDetails returns the structured fields of a resolution error
// for the error envelope.
func resolutionDetails(err error) any {
	var amb *depgraph.AmbiguityError
	var unres *depgraph.UnresolvedModuleError
	var cyc *depgraph.CyclicDependencyError
	switch {
	case errors.As(err, &amb):
		return map[string]any{"module": amb.Module, "paths": amb.Paths}
	case errors.As(err, &unres):
		return map[string]any{"module": unres.Module, "path": unres.Path}
	case errors.As(err, &cyc):
		return map[string]any{"files": cyc.Files, "cycle": cyc.Path}
	default:
		return nil
	}
}

// errorCode returns the code for err: the resolution code when err is a
// resolution error, the load code for a LoadError, else fallback.
func errorCode(err error, fallback string) string {
	if code := depgraph.CodeOf(err); code != "" {
		return string(code)
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return fallback
}

// reportLoadError outputs a load failure as a command error.
func reportLoadError(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		var details any
		if loadErr.Path != "" {
			details = map[string]string{"path": loadErr.Path}
		}
		return f.Fail(ExitCommandError, loadErr.Code, loadErr.Message, details)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}
