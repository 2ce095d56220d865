package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/roach88/runfortran/internal/config"
	"github.com/roach88/runfortran/internal/depgraph"
	"github.com/roach88/runfortran/internal/ir"
	"github.com/roach88/runfortran/internal/source"
	"github.com/roach88/runfortran/internal/store"
	"github.com/roach88/runfortran/internal/testutil"
)

// Harness is the state of one scenario execution.
type Harness struct {
	dir    string
	store  *store.Store
	runIDs *testutil.FixedRunIDGenerator
	logger *log.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh temporary tree and a fresh in-memory
// database for isolation.
//
// Execution flow:
// 1. Write the scenario files to a temporary directory
// 2. Discover and parse them, with paths relative to the tree
// 3. Resolve the compilation order
// 4. Check the expected error, or store the run and evaluate assertions
//
// An error is returned only when the scenario could not be executed;
// mismatches are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, nil)
}

// RunWithLogger is Run with resolver debug records sent to logger.
func RunWithLogger(scenario *Scenario, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	dir, err := os.MkdirTemp("", "run-fortran-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario tree: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		dir:    dir,
		store:  st,
		runIDs: testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: logger,
	}

	files, err := h.materialize(scenario.Files)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()

	res, err := depgraph.Resolve(files, depgraph.Options{
		Intrinsics: scenarioIntrinsics(scenario),
		Logger:     h.logger,
	})
	if err != nil {
		if depgraph.CodeOf(err) == "" {
			return nil, fmt.Errorf("failed to resolve: %w", err)
		}
		result.ErrorCode = string(depgraph.CodeOf(err))
		result.ErrorMessage = err.Error()
		if scenario.Expect == nil {
			result.AddError(fmt.Sprintf("unexpected resolution error: %v", err))
		} else {
			for _, msg := range checkExpectedError(err, scenario.Expect) {
				result.AddError(msg)
			}
		}
		return result, nil
	}

	result.Order = res.Order
	result.Snapshot = res.Snapshot

	if scenario.Expect != nil {
		result.AddError(fmt.Sprintf("expected %s error, resolution succeeded with order %v",
			scenario.Expect.Error, res.Order))
		return result, nil
	}

	run, err := store.NewRun(h.runIDs, []string{"."}, res.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to build run: %w", err)
	}
	run, err = h.store.WriteRun(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}
	result.Digest = run.Digest

	actx := &AssertionContext{
		Store: h.store,
		Ctx:   ctx,
		RunID: run.ID,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario executed", "scenario", scenario.Name, "pass", result.Pass)
	return result, nil
}

// materialize writes the files under h.dir and parses them back through
// discovery, returning namespaces with slash paths relative to the tree.
func (h *Harness) materialize(tree map[string]string) ([]ir.FileNamespace, error) {
	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		path := filepath.Join(h.dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(tree[name]), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	paths, err := source.Discover([]string{h.dir}, source.DiscoverOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to discover sources: %w", err)
	}

	files, err := source.ParseFiles(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sources: %w", err)
	}

	root, err := filepath.Abs(h.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scenario tree: %w", err)
	}
	for i := range files {
		rel, err := filepath.Rel(root, files[i].Path)
		if err != nil {
			return nil, fmt.Errorf("failed to relativize %s: %w", files[i].Path, err)
		}
		files[i].Path = filepath.ToSlash(rel)
	}

	return files, nil
}

func scenarioIntrinsics(s *Scenario) ir.NameSet {
	if s.Intrinsics == nil {
		return config.DefaultConfig().IntrinsicSet()
	}
	return ir.NewNameSet(s.Intrinsics...)
}
