package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/runfortran/internal/ir"
	"github.com/roach88/runfortran/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database  string
	RunID     string // empty means the latest run
	List      bool
	Module    string
	Verify    bool
	Separator string
}

// RunSummary describes a stored run without its snapshot.
type RunSummary struct {
	ID              string   `json:"id"`
	Seq             int64    `json:"seq"`
	Digest          string   `json:"digest"`
	ToolVersion     string   `json:"tool_version"`
	SnapshotVersion string   `json:"snapshot_version"`
	Roots           []string `json:"roots"`
}

// ShowResult is the JSON payload for a single run.
type ShowResult struct {
	RunSummary
	Order    []string    `json:"order"`
	Snapshot ir.Snapshot `json:"snapshot"`
}

// DefinersResult is the JSON payload of show --module.
type DefinersResult struct {
	RunID  string   `json:"run_id"`
	Module string   `json:"module"`
	Paths  []string `json:"paths"`
}

// VerifyResult is the JSON payload of show --verify.
type VerifyResult struct {
	RunID    string `json:"run_id"`
	OK       bool   `json:"ok"`
	Stored   string `json:"stored_digest"`
	Computed string `json:"computed_digest"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show runs recorded with run --db",
		Long: `Show compilation orders recorded in a run database.

Without flags the latest run's order is printed the way run prints it.

Examples:
  run-fortran show --db ./runs.db
  run-fortran show --db ./runs.db --list
  run-fortran show --db ./runs.db --run 0192f0c4-... --format json
  run-fortran show --db ./runs.db --module geometry
  run-fortran show --db ./runs.db --verify`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (default is the latest run)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list every recorded run")
	cmd.Flags().StringVar(&opts.Module, "module", "", "print the files defining this module")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompute the snapshot digest and compare it with the stored one")
	cmd.Flags().StringVarP(&opts.Separator, "sep", "s", " ", "separator between paths in the printed order")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	// store.Open would create a missing database.
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	if opts.List {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		return outputRunList(formatter, runs)
	}

	var run store.Run
	if opts.RunID != "" {
		run, err = st.ReadRun(ctx, opts.RunID)
	} else {
		run, err = st.LatestRun(ctx)
	}
	if errors.Is(err, sql.ErrNoRows) {
		msg := "no runs recorded"
		if opts.RunID != "" {
			msg = fmt.Sprintf("run not found: %s", opts.RunID)
		}
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, msg, nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	formatter.VerboseLog("run %s (seq %d, digest %s)", run.ID, run.Seq, run.Digest)

	switch {
	case opts.Verify:
		return verifyRun(formatter, st, cmd, run.ID)
	case opts.Module != "":
		paths, err := st.FindDefiners(ctx, run.ID, opts.Module)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		if formatter.Format == "json" {
			return formatter.Success(DefinersResult{RunID: run.ID, Module: opts.Module, Paths: paths})
		}
		for _, p := range paths {
			fmt.Fprintln(formatter.Writer, p)
		}
		return nil
	}

	if formatter.Format == "json" {
		return formatter.Success(ShowResult{
			RunSummary: summarize(run),
			Order:      run.Order(),
			Snapshot:   run.Snapshot,
		})
	}
	_, err = io.WriteString(formatter.Writer, strings.Join(run.Order(), opts.Separator))
	return err
}

func verifyRun(formatter *OutputFormatter, st *store.Store, cmd *cobra.Command, id string) error {
	res, err := st.VerifyRun(cmd.Context(), id)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if !res.OK() {
		return formatter.Fail(ExitFailure, ErrCodeStore,
			fmt.Sprintf("run %s does not match its digest (stored %s, computed %s)", id, res.Stored, res.Computed),
			VerifyResult{RunID: id, OK: false, Stored: res.Stored, Computed: res.Computed})
	}

	if formatter.Format == "json" {
		return formatter.Success(VerifyResult{RunID: id, OK: true, Stored: res.Stored, Computed: res.Computed})
	}
	fmt.Fprintf(formatter.Writer, "✓ run %s verified (%s)\n", id, res.Computed)
	return nil
}

func outputRunList(formatter *OutputFormatter, runs []store.Run) error {
	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		summaries = append(summaries, summarize(r))
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "%d\t%s\t%s\t%s\n", s.Seq, s.ID, s.Digest, strings.Join(s.Roots, ","))
	}
	return nil
}

func summarize(r store.Run) RunSummary {
	return RunSummary{
		ID:              r.ID,
		Seq:             r.Seq,
		Digest:          r.Digest,
		ToolVersion:     r.ToolVersion,
		SnapshotVersion: r.SnapshotVersion,
		Roots:           r.Roots,
	}
}
