package graph

// Assemble computes the degree of every unit from edges, drops units without
// edges and returns the final graph.
//
// Nodes keep the order of units, links the order of edges and state
// variables the order of slots. The inputs are copied, never modified, so
// assembling the same inputs twice gives the same graph.
func Assemble(units []Unit, edges []Edge, slots []StateSlot) Graph {
	degree := make(map[string]int, len(units))
	for _, e := range edges {
		degree[e.Source]++
		degree[e.Target]++
	}

	g := Graph{
		Nodes:          make([]Unit, 0, len(units)),
		Links:          make([]Edge, 0, len(edges)),
		StateVariables: make([]StateSlot, 0, len(slots)),
	}
	for _, u := range units {
		d := degree[u.ID]
		if d == 0 {
			continue
		}
		n := u.Clone()
		n.Degree = d
		g.Nodes = append(g.Nodes, n)
	}
	for _, e := range edges {
		g.Links = append(g.Links, e.Clone())
	}
	for _, s := range slots {
		g.StateVariables = append(g.StateVariables, s.Clone())
	}
	return g
}
