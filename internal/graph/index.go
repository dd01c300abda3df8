package graph

import "sort"

// Index is a read-only lookup view over a Graph.
type Index struct {
	g     *Graph
	byID  map[string]int
	out   map[string][]int
	in    map[string][]int
	slots map[string][]int
}

// NewIndex builds lookup tables for g. g must not be modified while the
// index is in use.
func NewIndex(g *Graph) *Index {
	idx := &Index{
		g:     g,
		byID:  make(map[string]int, len(g.Nodes)),
		out:   make(map[string][]int),
		in:    make(map[string][]int),
		slots: make(map[string][]int),
	}
	for i, n := range g.Nodes {
		idx.byID[n.ID] = i
	}
	for i, e := range g.Links {
		idx.out[e.Source] = append(idx.out[e.Source], i)
		idx.in[e.Target] = append(idx.in[e.Target], i)
	}
	for i, s := range g.StateVariables {
		idx.slots[s.Name] = append(idx.slots[s.Name], i)
	}
	return idx
}

// Unit returns the node with the given ID. Edges may reference IDs that are
// not nodes; ok is false for those.
func (x *Index) Unit(id string) (Unit, bool) {
	i, ok := x.byID[id]
	if !ok {
		return Unit{}, false
	}
	return x.g.Nodes[i], true
}

// Outgoing returns the edges whose source is id, in link order.
func (x *Index) Outgoing(id string) []Edge {
	return x.edges(x.out[id])
}

// Incoming returns the edges whose target is id, in link order.
func (x *Index) Incoming(id string) []Edge {
	return x.edges(x.in[id])
}

func (x *Index) edges(ids []int) []Edge {
	out := make([]Edge, 0, len(ids))
	for _, i := range ids {
		out = append(out, x.g.Links[i])
	}
	return out
}

// Owned returns the state slots whose owner is id.
func (x *Index) Owned(id string) []StateSlot {
	var out []StateSlot
	for _, s := range x.g.StateVariables {
		if s.OwnerID == id {
			out = append(out, s)
		}
	}
	return out
}

// Consumed returns the state slots that list id as a consumer.
func (x *Index) Consumed(id string) []StateSlot {
	var out []StateSlot
	for _, s := range x.g.StateVariables {
		if s.HasConsumer(id) {
			out = append(out, s)
		}
	}
	return out
}

// SlotsNamed returns every state slot whose value name is name.
func (x *Index) SlotsNamed(name string) []StateSlot {
	ids := x.slots[name]
	out := make([]StateSlot, 0, len(ids))
	for _, i := range ids {
		out = append(out, x.g.StateVariables[i])
	}
	return out
}

// FlowSubgraph keeps the owners and consumers of every state slot named
// name, the edges among them and the matching slots. Units keep their
// assembled degree.
func FlowSubgraph(g *Graph, name string) Graph {
	keep := make(map[string]bool)
	sub := Graph{Nodes: []Unit{}, Links: []Edge{}, StateVariables: []StateSlot{}}
	for _, s := range g.StateVariables {
		if s.Name != name {
			continue
		}
		keep[s.OwnerID] = true
		for _, c := range s.Consumers {
			keep[c] = true
		}
		sub.StateVariables = append(sub.StateVariables, s.Clone())
	}
	for _, n := range g.Nodes {
		if keep[n.ID] {
			sub.Nodes = append(sub.Nodes, n.Clone())
		}
	}
	for _, e := range g.Links {
		if keep[e.Source] && keep[e.Target] {
			sub.Links = append(sub.Links, e.Clone())
		}
	}
	return sub
}

// Stats summarizes a graph.
type Stats struct {
	Units      int          `json:"units"`
	Edges      int          `json:"edges"`
	StateSlots int          `json:"state_slots"`
	Flows      int          `json:"flows"`
	ByKind     map[Kind]int `json:"by_kind"`
	MaxDegree  int          `json:"max_degree"`
}

// Summarize counts the contents of g. Flows is the number of
// (slot, consumer) pairs.
func Summarize(g *Graph) Stats {
	st := Stats{
		Units:      len(g.Nodes),
		Edges:      len(g.Links),
		StateSlots: len(g.StateVariables),
		ByKind:     make(map[Kind]int),
	}
	for _, n := range g.Nodes {
		st.ByKind[n.Kind]++
		st.MaxDegree = max(st.MaxDegree, n.Degree)
	}
	for _, s := range g.StateVariables {
		st.Flows += len(s.Consumers)
	}
	return st
}

// ByDegree returns the nodes of g sorted by descending degree. Ties keep
// node order.
func ByDegree(g *Graph) []Unit {
	out := make([]Unit, len(g.Nodes))
	copy(out, g.Nodes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Degree > out[j].Degree
	})
	return out
}
