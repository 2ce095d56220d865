package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/runfortran/internal/ir"
)

// ReadRun retrieves a run with its snapshot by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, digest, tool_version, snapshot_version, roots
		FROM runs
		WHERE id = ?
	`, id)
	return s.completeRun(ctx, row)
}

// LatestRun retrieves the run with the highest seq.
// Returns sql.ErrNoRows if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, digest, tool_version, snapshot_version, roots
		FROM runs
		ORDER BY seq DESC
		LIMIT 1
	`)
	return s.completeRun(ctx, row)
}

// ListRuns returns every run ordered by seq ASC, without snapshots.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, digest, tool_version, snapshot_version, roots
		FROM runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// FindDefiners returns the paths, in compilation order, of the files in a
// run that define module name. Names compare case-insensitively.
func (s *Store) FindDefiners(ctx context.Context, runID, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.path
		FROM run_modules m
		JOIN run_files f ON f.run_id = m.run_id AND f.position = m.position
		WHERE m.run_id = ? AND m.role = ? AND m.name_key = ? AND m.intrinsic = 0
		ORDER BY f.position ASC
	`, runID, roleDefined, ir.FoldName(name))
	if err != nil {
		return nil, fmt.Errorf("query definers: %w", err)
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan definer: %w", err)
		}
		paths = append(paths, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate definers: %w", err)
	}

	return paths, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		rootsJSON string
	)
	if err := row.Scan(&run.ID, &run.Seq, &run.Digest, &run.ToolVersion, &run.SnapshotVersion, &rootsJSON); err != nil {
		return Run{}, err
	}

	roots, err := unmarshalRoots(rootsJSON)
	if err != nil {
		return Run{}, err
	}
	run.Roots = roots
	return run, nil
}

// completeRun scans a run row and loads its snapshot. sql.ErrNoRows is
// returned unwrapped so callers can compare against it.
func (s *Store) completeRun(ctx context.Context, row *sql.Row) (Run, error) {
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	snap, err := s.readSnapshot(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	run.Snapshot = snap
	return run, nil
}

func (s *Store) readSnapshot(ctx context.Context, runID string) (ir.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, path
		FROM run_files
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}

	snap := ir.Snapshot{}
	index := make(map[int]int)
	for rows.Next() {
		var (
			pos  int
			path string
		)
		if err := rows.Scan(&pos, &path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		index[pos] = len(snap)
		snap = append(snap, ir.FileNamespace{Path: path, Namespace: ir.NewNamespace()})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate run files: %w", err)
	}
	rows.Close()

	// A single connection is shared, so the file rows must be closed
	// before the module query runs.
	rows, err = s.db.QueryContext(ctx, `
		SELECT position, role, name, intrinsic
		FROM run_modules
		WHERE run_id = ?
		ORDER BY position ASC, role ASC, name_key ASC, intrinsic ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run modules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pos       int
			role      string
			name      string
			intrinsic int
		)
		if err := rows.Scan(&pos, &role, &name, &intrinsic); err != nil {
			return nil, fmt.Errorf("scan run module: %w", err)
		}
		i, ok := index[pos]
		if !ok {
			return nil, fmt.Errorf("module %s refers to missing file position %d", name, pos)
		}
		m := ir.NewModule(name, intrinsic == 1)
		switch role {
		case roleDefined:
			snap[i].Namespace.Defined.Add(m)
		case roleUsed:
			snap[i].Namespace.Used.Add(m)
		default:
			return nil, fmt.Errorf("module %s has unknown role %q", name, role)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run modules: %w", err)
	}

	return snap, nil
}
