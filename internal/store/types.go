package store

import "time"

// Run is one persisted analysis of a source tree.
type Run struct {
	ID        int64
	Root      string
	CreatedAt time.Time
	Duration  time.Duration
	FileCount int
	UnitCount int
	EdgeCount int
	SlotCount int
	// GraphHash identifies the graph content; two runs with the same hash
	// produced identical graphs.
	GraphHash string
}

// File is one input file of a run. UnitID is empty when the file produced
// no unit.
type File struct {
	ID     int64
	RunID  int64
	Path   string
	Name   string
	Hash   string
	Size   int64
	UnitID string
}
