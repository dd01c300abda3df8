package store

import (
	"sync"

	"github.com/jward/compgraph/internal/graph"
)

// Batch buffers a whole run in memory so it can be written in a single
// transaction by CommitBatch.
//
// Thread safety: the mutex protects the slices while files are added from
// several goroutines. CommitBatch must only be called once all writers are
// done.
type Batch struct {
	mu sync.Mutex

	Run   Run
	Files []File
	Units []graph.Unit
	Edges []graph.Edge
	Slots []graph.StateSlot
}

// NewBatch creates a Batch for run.
func NewBatch(run Run) *Batch {
	return &Batch{Run: run}
}

// AddFile buffers one input file record.
func (b *Batch) AddFile(f File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Files = append(b.Files, f)
}

// SetGraph buffers the assembled graph and fills the run's counters and
// graph hash from it.
func (b *Batch) SetGraph(g *graph.Graph) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Units = g.Nodes
	b.Edges = g.Links
	b.Slots = g.StateVariables
	b.Run.UnitCount = len(g.Nodes)
	b.Run.EdgeCount = len(g.Links)
	b.Run.SlotCount = len(g.StateVariables)
	b.Run.GraphHash = ComputeGraphHash(g)
}
