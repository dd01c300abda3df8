package compgraph

import (
	"errors"
	"fmt"

	"github.com/jward/compgraph/internal/graph"
	"github.com/jward/compgraph/internal/store"
)

var (
	// ErrUnitNotFound is returned by graph queries rooted at a unit ID that
	// is not part of the run.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrRunNotFound is returned for a run ID that does not exist, and for
	// run 0 when no run has been stored yet.
	ErrRunNotFound = store.ErrRunNotFound
)

// QueryBuilder provides a read-side query API over stored runs. Every method
// taking a runID treats 0 as the latest run.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder creates a QueryBuilder over an already-open Store.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// resolveRun maps runID 0 to the latest run and checks that a store exists.
func (q *QueryBuilder) resolveRun(runID int64) (int64, error) {
	if q.store == nil {
		return 0, ErrNoDatabase
	}
	if runID != 0 {
		return runID, nil
	}
	run, err := q.store.LatestRun()
	if err != nil {
		return 0, err
	}
	return run.ID, nil
}

// Runs returns every stored run, newest first.
func (q *QueryBuilder) Runs() ([]*Run, error) {
	if q.store == nil {
		return nil, fmt.Errorf("runs: %w", ErrNoDatabase)
	}
	runs, err := q.store.Runs()
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	return runs, nil
}

// Run returns one stored run.
func (q *QueryBuilder) Run(runID int64) (*Run, error) {
	id, err := q.resolveRun(runID)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	run, err := q.store.RunByID(id)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return run, nil
}

// Graph returns the full graph persisted for a run.
func (q *QueryBuilder) Graph(runID int64) (*Graph, error) {
	id, err := q.resolveRun(runID)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	g, err := q.store.LoadGraph(id)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	return g, nil
}

// Edges returns the links of a run in analysis order.
func (q *QueryBuilder) Edges(runID int64) ([]Edge, error) {
	id, err := q.resolveRun(runID)
	if err != nil {
		return nil, fmt.Errorf("edges: %w", err)
	}
	edges, err := q.store.EdgesByRun(id)
	if err != nil {
		return nil, fmt.Errorf("edges: %w", err)
	}
	return edges, nil
}

// StateSlots returns the state slots of a run in analysis order.
func (q *QueryBuilder) StateSlots(runID int64) ([]StateSlot, error) {
	id, err := q.resolveRun(runID)
	if err != nil {
		return nil, fmt.Errorf("state slots: %w", err)
	}
	slots, err := q.store.StateSlotsByRun(id)
	if err != nil {
		return nil, fmt.Errorf("state slots: %w", err)
	}
	return slots, nil
}

// Files returns the input files recorded for a run, in path order.
func (q *QueryBuilder) Files(runID int64) ([]*File, error) {
	id, err := q.resolveRun(runID)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	files, err := q.store.FilesByRun(id)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

// Summary returns the counts of a stored run's graph.
func (q *QueryBuilder) Summary(runID int64) (Stats, error) {
	g, err := q.Graph(runID)
	if err != nil {
		return Stats{}, err
	}
	return graph.Summarize(g), nil
}

// loadIndex loads a run's graph and indexes it. The graph is bulk-loaded
// once per call; traversals then run in memory.
func (q *QueryBuilder) loadIndex(runID int64) (*Graph, *graph.Index, error) {
	g, err := q.Graph(runID)
	if err != nil {
		return nil, nil, err
	}
	return g, graph.NewIndex(g), nil
}
