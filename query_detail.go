package compgraph

import (
	"database/sql"
	"errors"
	"fmt"
)

// UnitDetail is one unit together with its edges and the state slots it
// owns or consumes.
type UnitDetail struct {
	Unit     Unit
	Incoming []Edge      // edges targeting the unit
	Outgoing []Edge      // edges leaving the unit
	Owned    []StateSlot // slots declared in the unit's file
	Consumed []StateSlot // slots whose value flows into the unit
}

// Unit returns the detail of one unit of a run, or nil if the run has no
// such unit.
func (q *QueryBuilder) Unit(runID int64, id string) (*UnitDetail, error) {
	_, idx, err := q.loadIndex(runID)
	if err != nil {
		return nil, fmt.Errorf("unit detail: %w", err)
	}
	u, ok := idx.Unit(id)
	if !ok {
		return nil, nil
	}
	return &UnitDetail{
		Unit:     u,
		Incoming: idx.Incoming(id),
		Outgoing: idx.Outgoing(id),
		Owned:    idx.Owned(id),
		Consumed: idx.Consumed(id),
	}, nil
}

// UnitByFile returns the detail of the unit produced by a file of a run, or
// nil if the file produced no connected unit.
func (q *QueryBuilder) UnitByFile(runID int64, path string) (*UnitDetail, error) {
	id, err := q.resolveRun(runID)
	if err != nil {
		return nil, fmt.Errorf("unit by file: %w", err)
	}
	var unitID string
	err = q.store.DB().QueryRow(
		"SELECT unit_id FROM units WHERE run_id = ? AND file_path = ?", id, path,
	).Scan(&unitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("unit by file: %w", err)
	}
	return q.Unit(id, unitID)
}
