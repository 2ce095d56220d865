package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/runfortran/internal/ir"
)

// WriteRun stores run with its files and modules in one transaction and
// returns it with Seq assigned.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a run whose ID
// already exists stores nothing and returns the existing Seq.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, fmt.Errorf("write run: empty run ID")
	}

	rootsJSON, err := marshalRoots(run.Roots)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, digest, tool_version, snapshot_version, roots)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Digest,
		run.ToolVersion,
		run.SnapshotVersion,
		rootsJSON,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Run{}, fmt.Errorf("write run: rows affected: %w", err)
	}

	if affected > 0 {
		if err := writeFiles(ctx, tx, run.ID, run.Snapshot); err != nil {
			return Run{}, fmt.Errorf("write run: %w", err)
		}
	}

	if err := tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: read seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}

	return run, nil
}

func writeFiles(ctx context.Context, tx *sql.Tx, runID string, snap ir.Snapshot) error {
	for pos, f := range snap {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_files (run_id, position, path)
			VALUES (?, ?, ?)
		`, runID, pos, f.Path); err != nil {
			return fmt.Errorf("file %s: %w", f.Path, err)
		}

		if err := writeModules(ctx, tx, runID, pos, roleDefined, f.Namespace.Defined); err != nil {
			return fmt.Errorf("file %s: %w", f.Path, err)
		}
		if err := writeModules(ctx, tx, runID, pos, roleUsed, f.Namespace.Used); err != nil {
			return fmt.Errorf("file %s: %w", f.Path, err)
		}
	}
	return nil
}

func writeModules(ctx context.Context, tx *sql.Tx, runID string, pos int, role string, mods ir.ModuleSet) error {
	for _, m := range mods.Sorted() {
		key := m.Key()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_modules (run_id, position, role, name, name_key, intrinsic)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, pos, role, m.Name, key.Name, boolToInt(m.Intrinsic)); err != nil {
			return fmt.Errorf("%s module %s: %w", role, m.Name, err)
		}
	}
	return nil
}
