package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/compgraph/internal/graph"
)

// ContentHash returns the hex SHA-256 of a file's content.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// ComputeGraphHash computes a deterministic hash of a graph's content.
// Covers units (with flags, imports, exports and degree), edges with props,
// and state slots with consumers. Node, edge and consumer order do NOT
// affect the hash.
func ComputeGraphHash(g *graph.Graph) string {
	h := sha256.New()

	units := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		units[i] = fmt.Sprintf("unit:%s:%s:%s:%s:%s:%s:%v:%v:%v:%d",
			n.ID, n.Name, n.Kind, n.FilePath,
			strings.Join(n.Imports, ","), strings.Join(n.Exports, ","),
			n.UsesState, n.UsesEffect, n.UsesProps, n.Degree)
	}
	sort.Strings(units)
	for _, u := range units {
		fmt.Fprintln(h, u)
	}

	edges := make([]string, len(g.Links))
	for i, e := range g.Links {
		edges[i] = fmt.Sprintf("edge:%s:%s:%s", e.Source, e.Target, strings.Join(e.Props, ","))
	}
	sort.Strings(edges)
	for _, e := range edges {
		fmt.Fprintln(h, e)
	}

	slots := make([]string, len(g.StateVariables))
	for i, s := range g.StateVariables {
		consumers := make([]string, len(s.Consumers))
		copy(consumers, s.Consumers)
		sort.Strings(consumers)
		slots[i] = fmt.Sprintf("slot:%s:%s:%s:%s", s.Name, s.Setter, s.OwnerID, strings.Join(consumers, ","))
	}
	sort.Strings(slots)
	for _, s := range slots {
		fmt.Fprintln(h, s)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
