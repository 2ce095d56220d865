package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// Exit codes shared by every command.
const (
	ExitSuccess      = 0 // order printed, sources valid, scenarios passed
	ExitFailure      = 1 // ambiguous, unresolved or cyclic modules; failed scenarios; digest mismatch
	ExitCommandError = 2 // bad paths, bad config, unreadable sources, store errors
)

// ExitError carries the process exit code of a command that has already
// reported its failure.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// NewExitError creates an ExitError.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// GetExitCode returns the exit code carried by err, ExitFailure when err
// is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results to stdout in text or JSON and
// diagnostics to stderr.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer   // diagnostics; Writer when nil
	Verbose   bool
	Logger    *log.Logger // built on ErrWriter when nil
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failure: a command code (E001-E009) or a
// resolution code (E201-E203).
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"` // offending module, paths or cycle
}

// Success writes data in the ok envelope. Text output is command specific,
// so callers only use it with --format json.
func (f *OutputFormatter) Success(data any) error {
	return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
}

// Error reports a failure. Text output is the single line
// "Error [CODE]: message"; messages already name the files involved, so
// details only appear in JSON.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

// Fail reports an error and returns the ExitError the command should end
// with.
func (f *OutputFormatter) Fail(exitCode int, code, message string, details any) error {
	if err := f.Error(code, message, details); err != nil {
		return err
	}
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

// VerboseLog emits a debug record when --verbose is set. Records never go
// to stdout unless no ErrWriter is configured.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	if f.Logger == nil {
		w := f.ErrWriter
		if w == nil {
			w = f.Writer
		}
		f.Logger = newLogger(w, true)
	}
	f.Logger.Debug(fmt.Sprintf(format, args...))
}
