package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jward/compgraph/internal/graph"
)

// CommitBatch inserts a buffered run within a single transaction and
// returns the new run ID. Rows keep the order they were buffered in through
// their ordinal column.
//
// Insert order respects FK dependencies:
//  1. Run
//  2. Files
//  3. Units
//  4. Edges
//  5. State slots
func (s *Store) CommitBatch(batch *Batch) (int64, error) {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	run := &batch.Run
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.FileCount = len(batch.Files)

	// 1. Run
	res, err := tx.Exec(
		`INSERT INTO runs (root, created_at, duration_ms, file_count, unit_count, edge_count, slot_count, graph_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Root, run.CreatedAt, run.Duration.Milliseconds(), run.FileCount,
		run.UnitCount, run.EdgeCount, run.SlotCount, run.GraphHash,
	)
	if err != nil {
		return 0, fmt.Errorf("commit batch: run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("commit batch: last insert id: %w", err)
	}

	// 2. Files
	for i := range batch.Files {
		f := &batch.Files[i]
		f.RunID = runID
		if f.ID, err = insertFileTx(tx, f); err != nil {
			return 0, fmt.Errorf("commit batch: file %q: %w", f.Path, err)
		}
	}

	// 3. Units
	for i, u := range batch.Units {
		if err := insertUnitTx(tx, runID, i, u); err != nil {
			return 0, fmt.Errorf("commit batch: unit %q: %w", u.ID, err)
		}
	}

	// 4. Edges
	for i, e := range batch.Edges {
		_, err := tx.Exec(
			"INSERT INTO edges (run_id, ordinal, source, target, props) VALUES (?, ?, ?, ?, ?)",
			runID, i, e.Source, e.Target, marshalOptional(e.Props),
		)
		if err != nil {
			return 0, fmt.Errorf("commit batch: edge %s -> %s: %w", e.Source, e.Target, err)
		}
	}

	// 5. State slots
	for i, sl := range batch.Slots {
		_, err := tx.Exec(
			`INSERT INTO state_slots (run_id, ordinal, name, setter, owner_id, owner_name, consumers)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, i, sl.Name, sl.Setter, sl.OwnerID, sl.OwnerName, marshalStrings(sl.Consumers),
		)
		if err != nil {
			return 0, fmt.Errorf("commit batch: state slot %q: %w", sl.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: commit: %w", err)
	}
	run.ID = runID
	return runID, nil
}

func insertFileTx(tx *sql.Tx, f *File) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO files (run_id, path, name, hash, size, unit_id) VALUES (?, ?, ?, ?, ?, ?)",
		f.RunID, f.Path, f.Name, f.Hash, f.Size, nullString(f.UnitID),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertUnitTx(tx *sql.Tx, runID int64, ordinal int, u graph.Unit) error {
	_, err := tx.Exec(
		`INSERT INTO units (run_id, ordinal, unit_id, name, kind, file_path, imports, exports,
			uses_state, uses_effect, uses_props, degree)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ordinal, u.ID, u.Name, string(u.Kind), u.FilePath,
		marshalStrings(u.Imports), marshalStrings(u.Exports),
		u.UsesState, u.UsesEffect, u.UsesProps, u.Degree,
	)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
