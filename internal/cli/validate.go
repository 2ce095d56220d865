package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/runfortran/internal/config"
	"github.com/roach88/runfortran/internal/depgraph"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	SourceOptions
}

// ValidationIssue is one problem found in the sources.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Module  string `json:"module,omitempty"`
}

// ValidationSummary counts issues by kind.
type ValidationSummary struct {
	Files      int `json:"files"`
	Ambiguous  int `json:"ambiguous"`
	Unresolved int `json:"unresolved"`
	Cyclic     int `json:"cyclic"`
	Unreadable int `json:"unreadable"`
}

// Total returns the number of issues.
func (s ValidationSummary) Total() int {
	return s.Ambiguous + s.Unresolved + s.Cyclic + s.Unreadable
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Summary ValidationSummary `json:"summary"`
	Errors  []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Report every module problem without ordering",
		Long: `Check Fortran sources for ambiguous, unresolved and cyclic modules.

Unlike run, which stops at the first problem, validate reports all of them:
every module defined by more than one file, every use of a module nothing
defines and every cycle between files.

Exit codes:
  0 - All sources resolve
  1 - One or more problems found
  2 - Command error (invalid paths, no sources, bad config)`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	opts.addFlags(cmd.Flags())

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd, formatter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	roots := opts.roots(args)
	result, err := ValidateSources(roots, cfg, formatter)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateSources loads every readable source under roots and collects
// all resolution problems. The error is non-nil only when the sources
// could not be listed at all.
func ValidateSources(roots []string, cfg *config.Config, formatter *OutputFormatter) (*ValidationResult, error) {
	loadResult, loadErrors := LoadSources(roots, cfg.DiscoverOptions(), LoadModeCollectAll)
	if loadResult == nil {
		return nil, loadErrors[0]
	}
	if loadResult.FileCount == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no Fortran files found in %s", strings.Join(roots, ", "))}
	}

	formatter.VerboseLog("Found %d Fortran file(s) in %s", loadResult.FileCount, strings.Join(roots, ", "))

	result := &ValidationResult{
		Errors:  []ValidationIssue{},
		Summary: ValidationSummary{Files: loadResult.FileCount},
	}

	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    loadErr.Code,
				Message: loadErr.Message,
				Path:    loadErr.Path,
			})
			result.Summary.Unreadable++
		}
	}

	problems := depgraph.Diagnose(loadResult.Files, depgraph.Options{
		Intrinsics: cfg.IntrinsicSet(),
		Logger:     formatter.Logger,
	})
	for _, err := range problems {
		issue := ValidationIssue{Code: string(depgraph.CodeOf(err)), Message: err.Error()}

		var amb *depgraph.AmbiguityError
		var unres *depgraph.UnresolvedModuleError
		switch {
		case errors.As(err, &amb):
			issue.Module = amb.Module
			result.Summary.Ambiguous++
		case errors.As(err, &unres):
			issue.Module = unres.Module
			issue.Path = unres.Path
			result.Summary.Unresolved++
		case depgraph.IsCycle(err):
			result.Summary.Cyclic++
		}
		result.Errors = append(result.Errors, issue)
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result *ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d source file(s) resolve\n", result.Summary.Files)
	return nil
}

// outputValidationErrors outputs every issue followed by the summary.
func outputValidationErrors(formatter *OutputFormatter, result *ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Errors[0].Code,
				Message: result.Errors[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range result.Errors {
		if issue.Path != "" && issue.Code == ErrCodeReadFailed {
			fmt.Fprintf(formatter.Writer, "%s\n", issue.Path)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	s := result.Summary
	fmt.Fprintf(formatter.Writer, "%d error(s) in %d file(s): %d ambiguous, %d unresolved, %d cyclic, %d unreadable\n",
		s.Total(), s.Files, s.Ambiguous, s.Unresolved, s.Cyclic, s.Unreadable)

	return failure
}
