package compgraph

import (
	"github.com/jward/compgraph/internal/graph"
	"github.com/jward/compgraph/internal/store"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// APIs. These are Go type aliases (=) so no conversion is needed.

type SourceFile = graph.SourceFile
type Unit = graph.Unit
type Edge = graph.Edge
type StateSlot = graph.StateSlot
type Graph = graph.Graph
type Kind = graph.Kind
type Stats = graph.Stats

type Store = store.Store
type Run = store.Run
type File = store.File

const (
	KindComponent = graph.KindComponent
	KindHook      = graph.KindHook
	KindUtility   = graph.KindUtility
)

// ParseKind maps "component", "hook", "util" or "utility" to a Kind.
func ParseKind(s string) (Kind, bool) {
	return graph.ParseKind(s)
}

// Summarize counts the units, edges, state slots and flows of g.
func Summarize(g *Graph) Stats {
	return graph.Summarize(g)
}
