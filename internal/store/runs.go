package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jward/compgraph/internal/graph"
)

// --- Run operations ---

// SaveRun writes run, its input files and its assembled graph in one
// transaction. The run's counters, hash and ID are filled in.
func (s *Store) SaveRun(run *Run, files []File, g *graph.Graph) error {
	if g == nil {
		g = &graph.Graph{}
	}
	batch := NewBatch(*run)
	for _, f := range files {
		batch.AddFile(f)
	}
	batch.SetGraph(g)
	if _, err := s.CommitBatch(batch); err != nil {
		return err
	}
	*run = batch.Run
	return nil
}

const runColumns = "id, root, created_at, duration_ms, file_count, unit_count, edge_count, slot_count, graph_hash"

func scanRun(sc interface{ Scan(...any) error }) (*Run, error) {
	r := &Run{}
	var (
		ms   int64
		hash sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.Root, &r.CreatedAt, &ms, &r.FileCount,
		&r.UnitCount, &r.EdgeCount, &r.SlotCount, &hash); err != nil {
		return nil, err
	}
	r.Duration = time.Duration(ms) * time.Millisecond
	r.GraphHash = hash.String
	return r, nil
}

// Runs returns every run, newest first.
func (s *Store) Runs() ([]*Run, error) {
	rows, err := s.db.Query("SELECT " + runColumns + " FROM runs ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunByID returns the run with the given ID, or ErrRunNotFound.
func (s *Store) RunByID(id int64) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recent run, or ErrRunNotFound when there are
// none.
func (s *Store) LatestRun() (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT " + runColumns + " FROM runs ORDER BY id DESC LIMIT 1"))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// DeleteRun removes a run and all of its rows.
func (s *Store) DeleteRun(id int64) error {
	res, err := s.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return nil
}

// --- Graph reads ---

// FilesByRun returns the input files of a run in path order.
func (s *Store) FilesByRun(runID int64) ([]*File, error) {
	rows, err := s.db.Query(
		"SELECT id, run_id, path, name, hash, size, unit_id FROM files WHERE run_id = ? ORDER BY path", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("files by run: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		var name, hash, unitID sql.NullString
		if err := rows.Scan(&f.ID, &f.RunID, &f.Path, &name, &hash, &f.Size, &unitID); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Name, f.Hash, f.UnitID = name.String, hash.String, unitID.String
		files = append(files, f)
	}
	return files, rows.Err()
}

// UnitsByRun returns the nodes of a run in their original order.
func (s *Store) UnitsByRun(runID int64) ([]graph.Unit, error) {
	rows, err := s.db.Query(
		`SELECT unit_id, name, kind, file_path, imports, exports, uses_state, uses_effect, uses_props, degree
		 FROM units WHERE run_id = ? ORDER BY ordinal`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("units by run: %w", err)
	}
	defer rows.Close()
	units := []graph.Unit{}
	for rows.Next() {
		var (
			u                graph.Unit
			kind             string
			imports, exports string
		)
		if err := rows.Scan(&u.ID, &u.Name, &kind, &u.FilePath, &imports, &exports,
			&u.UsesState, &u.UsesEffect, &u.UsesProps, &u.Degree); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.Kind = graph.Kind(kind)
		u.Imports = UnmarshalStrings(imports)
		u.Exports = UnmarshalStrings(exports)
		units = append(units, u)
	}
	return units, rows.Err()
}

// EdgesByRun returns the links of a run in their original order.
func (s *Store) EdgesByRun(runID int64) ([]graph.Edge, error) {
	rows, err := s.db.Query(
		"SELECT source, target, props FROM edges WHERE run_id = ? ORDER BY ordinal", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("edges by run: %w", err)
	}
	defer rows.Close()
	edges := []graph.Edge{}
	for rows.Next() {
		var (
			e     graph.Edge
			props sql.NullString
		)
		if err := rows.Scan(&e.Source, &e.Target, &props); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Props = unmarshalOptional(props)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// StateSlotsByRun returns the state slots of a run in their original order.
func (s *Store) StateSlotsByRun(runID int64) ([]graph.StateSlot, error) {
	rows, err := s.db.Query(
		`SELECT name, setter, owner_id, owner_name, consumers
		 FROM state_slots WHERE run_id = ? ORDER BY ordinal`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("state slots by run: %w", err)
	}
	defer rows.Close()
	slots := []graph.StateSlot{}
	for rows.Next() {
		var (
			sl        graph.StateSlot
			consumers string
		)
		if err := rows.Scan(&sl.Name, &sl.Setter, &sl.OwnerID, &sl.OwnerName, &consumers); err != nil {
			return nil, fmt.Errorf("scan state slot: %w", err)
		}
		sl.Consumers = UnmarshalStrings(consumers)
		slots = append(slots, sl)
	}
	return slots, rows.Err()
}

// LoadGraph rebuilds the graph persisted for a run.
func (s *Store) LoadGraph(runID int64) (*graph.Graph, error) {
	if _, err := s.RunByID(runID); err != nil {
		return nil, err
	}
	units, err := s.UnitsByRun(runID)
	if err != nil {
		return nil, err
	}
	edges, err := s.EdgesByRun(runID)
	if err != nil {
		return nil, err
	}
	slots, err := s.StateSlotsByRun(runID)
	if err != nil {
		return nil, err
	}
	return &graph.Graph{Nodes: units, Links: edges, StateVariables: slots}, nil
}
