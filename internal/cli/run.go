package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/runfortran/internal/depgraph"
	"github.com/roach88/runfortran/internal/ir"
	"github.com/roach88/runfortran/internal/store"
)

// SnapshotFileExtension is appended to --output-file-name.
const SnapshotFileExtension = ".json"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	SourceOptions
	Separator      string
	OutputFileName string
	Database       string

	// RunIDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator store.RunIDGenerator
}

// RunResult is the JSON payload of a successful run.
type RunResult struct {
	Order      []string `json:"order"`
	Digest     string   `json:"digest"`
	OutputFile string   `json:"output_file,omitempty"`
	RunID      string   `json:"run_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Print the compilation order of Fortran sources",
		Long: `Order Fortran source files so that every file comes after the files
defining the modules it uses, directly or through other modules.

Sources are searched under --path (repeatable) and any positional paths,
defaulting to the working directory. The order is written to stdout joined
by --sep, without a trailing newline.

Exit codes:
  0 - Order printed
  1 - Ambiguous, unresolved or cyclic modules
  2 - Command error (invalid paths, bad config, write failures)

Examples:
  run-fortran run -p ./src
  run-fortran run ./src ./vendor --sep ';'
  run-fortran run -p ./src -o modules
  run-fortran run -p ./src --intrinsics mpi,netcdf --exclude 'build/**'
  run-fortran run -p ./src --db ./runs.db --format json`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args, cmd)
		},
	}

	opts.addFlags(cmd.Flags())
	cmd.Flags().StringVarP(&opts.Separator, "sep", "s", " ", "separator between paths in the printed order")
	cmd.Flags().StringVarP(&opts.OutputFileName, "output-file-name", "o", "", "file name to save module relations to (\""+SnapshotFileExtension+"\" is added)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to record the run in")

	return cmd
}

func runResolve(opts *RunOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd, f)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	roots := opts.roots(args)

	loaded, errs := LoadSources(roots, cfg.DiscoverOptions(), LoadModeFailFast)
	if len(errs) > 0 {
		return reportLoadError(f, errs[0])
	}
	f.VerboseLog("found %d Fortran files under %s", loaded.FileCount, strings.Join(roots, ", "))

	res, err := depgraph.Resolve(loaded.Files, depgraph.Options{
		Intrinsics: cfg.IntrinsicSet(),
		Logger:     f.Logger,
	})
	if err != nil {
		return f.Fail(ExitFailure, errorCode(err, ErrCodeGeneric), err.Error(), resolutionDetails(err))
	}

	digest, err := ir.SnapshotDigest(res.Snapshot)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to digest snapshot: %v", err), nil)
	}
	f.VerboseLog("snapshot digest %s", digest)

	result := RunResult{Order: res.Order, Digest: digest}

	if opts.OutputFileName != "" {
		path := opts.OutputFileName + SnapshotFileExtension
		if err := writeSnapshotFile(path, res.Snapshot); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("failed to write snapshot: %v", err), map[string]string{"path": path})
		}
		result.OutputFile = path
		f.VerboseLog("wrote module relations to %s", path)
	}

	if opts.Database != "" {
		run, err := recordRun(cmd.Context(), opts, roots, res.Snapshot)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to record run: %v", err), map[string]string{"db": opts.Database})
		}
		result.RunID = run.ID
		f.VerboseLog("recorded run %s (seq %d) in %s", run.ID, run.Seq, opts.Database)
	}

	if opts.Format == "json" {
		return f.Success(result)
	}

	// No trailing newline: the order is meant to be spliced into a
	// compiler command line.
	_, err = io.WriteString(cmd.OutOrStdout(), strings.Join(res.Order, cfg.Separator))
	return err
}

// writeSnapshotFile writes the unfolded namespaces, in compilation order,
// as JSON indented by one space.
func writeSnapshotFile(path string, snap ir.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// recordRun stores the resolved snapshot as a new run.
func recordRun(ctx context.Context, opts *RunOptions, roots []string, snap ir.Snapshot) (store.Run, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()

	gen := opts.RunIDGenerator
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}

	run, err := store.NewRun(gen, roots, snap)
	if err != nil {
		return store.Run{}, err
	}
	return st.WriteRun(ctx, run)
}
