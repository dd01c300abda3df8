package compgraph

import (
	"fmt"

	"github.com/jward/compgraph/internal/graph"
)

// maxTraversalDepth caps Dependencies and Dependents.
const maxTraversalDepth = 100

// DependencyGraph is a transitive closure rooted at a unit.
// The run's graph is bulk-loaded then traversed with BFS.
type DependencyGraph struct {
	Root  string           // starting unit ID
	Nodes []DependencyNode // root first, then units in BFS order
	Edges []Edge           // edges among the visited units, in link order
	Depth int              // actual max depth reached (may be < maxDepth if graph is shallow)
}

// DependencyNode is a unit in a DependencyGraph with its distance from the
// root. Targets that are not nodes of the run (dangling edges) carry only
// their ID.
type DependencyNode struct {
	Unit  Unit
	Depth int // BFS depth from root (0 = root itself)
}

// Dependencies returns every unit reachable from id along outgoing edges,
// up to maxDepth. maxDepth of 0 returns only the root node. Negative returns
// an error; values above 100 are capped. Returns an error wrapping
// ErrUnitNotFound if id is not a unit of the run.
func (q *QueryBuilder) Dependencies(runID int64, id string, maxDepth int) (*DependencyGraph, error) {
	res, err := q.traverse(runID, id, maxDepth, forward)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	return res, nil
}

// Dependents returns every unit that reaches id along edges, up to maxDepth,
// with the same depth rules as Dependencies.
func (q *QueryBuilder) Dependents(runID int64, id string, maxDepth int) (*DependencyGraph, error) {
	res, err := q.traverse(runID, id, maxDepth, reverse)
	if err != nil {
		return nil, fmt.Errorf("dependents: %w", err)
	}
	return res, nil
}

type direction int

const (
	forward direction = iota
	reverse
)

func (q *QueryBuilder) traverse(runID int64, id string, maxDepth int, dir direction) (*DependencyGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("maxDepth must be non-negative, got %d", maxDepth)
	}
	maxDepth = min(maxDepth, maxTraversalDepth)

	g, idx, err := q.loadIndex(runID)
	if err != nil {
		return nil, err
	}
	root, ok := idx.Unit(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrUnitNotFound)
	}
	return walk(g, idx, root, maxDepth, dir), nil
}

// walk runs the BFS. Neighbors are visited in link order so the node order
// is deterministic.
func walk(g *Graph, idx *graph.Index, root Unit, maxDepth int, dir direction) *DependencyGraph {
	result := &DependencyGraph{
		Root:  root.ID,
		Nodes: []DependencyNode{{Unit: root, Depth: 0}},
		Edges: []Edge{},
	}
	if maxDepth == 0 {
		return result
	}

	visited := map[string]int{root.ID: 0} // unit ID -> depth
	type bfsEntry struct {
		id    string
		depth int
	}
	queue := []bfsEntry{{id: root.ID, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		// Don't explore further if at maxDepth
		if current.depth >= maxDepth {
			continue
		}

		var next []Edge
		if dir == forward {
			next = idx.Outgoing(current.id)
		} else {
			next = idx.Incoming(current.id)
		}
		for _, e := range next {
			nid := e.Target
			if dir == reverse {
				nid = e.Source
			}
			if _, seen := visited[nid]; seen {
				continue
			}
			newDepth := current.depth + 1
			visited[nid] = newDepth
			result.Depth = max(result.Depth, newDepth)
			queue = append(queue, bfsEntry{id: nid, depth: newDepth})

			u, ok := idx.Unit(nid)
			if !ok {
				u = Unit{ID: nid}
			}
			result.Nodes = append(result.Nodes, DependencyNode{Unit: u, Depth: newDepth})
		}
	}

	for _, e := range g.Links {
		_, srcVisited := visited[e.Source]
		_, dstVisited := visited[e.Target]
		if srcVisited && dstVisited {
			result.Edges = append(result.Edges, e.Clone())
		}
	}
	return result
}

// Flow returns the owners and consumers of every state slot whose value is
// named name, with the edges among them. The result is empty, not an error,
// when the run has no such slot.
func (q *QueryBuilder) Flow(runID int64, name string) (*Graph, error) {
	g, err := q.Graph(runID)
	if err != nil {
		return nil, fmt.Errorf("flow: %w", err)
	}
	sub := graph.FlowSubgraph(g, name)
	return &sub, nil
}

// GraphDiff lists the units and edges that differ between two runs.
// Units are matched by ID and edges by (source, target).
type GraphDiff struct {
	From, To     int64 // run IDs
	AddedUnits   []Unit
	RemovedUnits []Unit
	ChangedUnits []UnitChange
	AddedEdges   []Edge
	RemovedEdges []Edge
}

// UnitChange records a unit present in both runs whose kind or degree moved.
type UnitChange struct {
	ID         string
	FromKind   Kind
	ToKind     Kind
	FromDegree int
	ToDegree   int
}

// Empty reports whether the two runs have identical units and edges.
func (d *GraphDiff) Empty() bool {
	return len(d.AddedUnits) == 0 && len(d.RemovedUnits) == 0 && len(d.ChangedUnits) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// Diff compares run from against run to. Either ID may be 0 for the latest
// run. Added entries follow to's order, removed entries follow from's order.
func (q *QueryBuilder) Diff(from, to int64) (*GraphDiff, error) {
	fromID, err := q.resolveRun(from)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	toID, err := q.resolveRun(to)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	a, err := q.store.LoadGraph(fromID)
	if err != nil {
		return nil, fmt.Errorf("diff: load run %d: %w", fromID, err)
	}
	b, err := q.store.LoadGraph(toID)
	if err != nil {
		return nil, fmt.Errorf("diff: load run %d: %w", toID, err)
	}

	d := diffGraphs(a, b)
	d.From, d.To = fromID, toID
	return d, nil
}

func diffGraphs(a, b *Graph) *GraphDiff {
	d := &GraphDiff{
		AddedUnits:   []Unit{},
		RemovedUnits: []Unit{},
		ChangedUnits: []UnitChange{},
		AddedEdges:   []Edge{},
		RemovedEdges: []Edge{},
	}

	before := make(map[string]Unit, len(a.Nodes))
	for _, u := range a.Nodes {
		before[u.ID] = u
	}
	after := make(map[string]bool, len(b.Nodes))
	for _, u := range b.Nodes {
		after[u.ID] = true
		old, ok := before[u.ID]
		switch {
		case !ok:
			d.AddedUnits = append(d.AddedUnits, u)
		case old.Kind != u.Kind || old.Degree != u.Degree:
			d.ChangedUnits = append(d.ChangedUnits, UnitChange{
				ID:         u.ID,
				FromKind:   old.Kind,
				ToKind:     u.Kind,
				FromDegree: old.Degree,
				ToDegree:   u.Degree,
			})
		}
	}
	for _, u := range a.Nodes {
		if !after[u.ID] {
			d.RemovedUnits = append(d.RemovedUnits, u)
		}
	}

	key := func(e Edge) string { return e.Source + "\x00" + e.Target }
	oldEdges := make(map[string]bool, len(a.Links))
	for _, e := range a.Links {
		oldEdges[key(e)] = true
	}
	newEdges := make(map[string]bool, len(b.Links))
	for _, e := range b.Links {
		newEdges[key(e)] = true
		if !oldEdges[key(e)] {
			d.AddedEdges = append(d.AddedEdges, e)
		}
	}
	for _, e := range a.Links {
		if !newEdges[key(e)] {
			d.RemovedEdges = append(d.RemovedEdges, e)
		}
	}
	return d
}
