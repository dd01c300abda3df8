package main

import (
	"time"

	"github.com/jward/compgraph"
)

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command" yaml:"command"`
	Results    any    `json:"results" yaml:"results"`
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIRun is a JSON-friendly run representation.
type CLIRun struct {
	ID         int64     `json:"id" yaml:"id"`
	Root       string    `json:"root" yaml:"root"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	FileCount  int       `json:"file_count" yaml:"file_count"`
	UnitCount  int       `json:"unit_count" yaml:"unit_count"`
	EdgeCount  int       `json:"edge_count" yaml:"edge_count"`
	SlotCount  int       `json:"slot_count" yaml:"slot_count"`
	GraphHash  string    `json:"graph_hash" yaml:"graph_hash"`
}

// CLIUnit is a JSON-friendly unit representation.
type CLIUnit struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Kind       string   `json:"kind" yaml:"kind"`
	File       string   `json:"file" yaml:"file"`
	Imports    []string `json:"imports" yaml:"imports"`
	Exports    []string `json:"exports" yaml:"exports"`
	UsesState  bool     `json:"uses_state" yaml:"uses_state"`
	UsesEffect bool     `json:"uses_effect" yaml:"uses_effect"`
	UsesProps  bool     `json:"uses_props" yaml:"uses_props"`
	Degree     int      `json:"degree" yaml:"degree"`
	// Depth is set by traversal queries.
	Depth *int `json:"depth,omitempty" yaml:"depth,omitempty"`
}

// CLIEdge is a JSON-friendly edge.
type CLIEdge struct {
	Source string   `json:"source" yaml:"source"`
	Target string   `json:"target" yaml:"target"`
	Props  []string `json:"props,omitempty" yaml:"props,omitempty"`
}

// CLIStateSlot is a JSON-friendly state slot.
type CLIStateSlot struct {
	Name      string   `json:"name" yaml:"name"`
	Setter    string   `json:"setter" yaml:"setter"`
	Owner     string   `json:"owner" yaml:"owner"`
	OwnerName string   `json:"owner_name" yaml:"owner_name"`
	Consumers []string `json:"consumers" yaml:"consumers"`
}

// CLIUnitDetail is a unit with its incident edges and state slots.
type CLIUnitDetail struct {
	Unit     CLIUnit        `json:"unit" yaml:"unit"`
	Incoming []CLIEdge      `json:"incoming" yaml:"incoming"`
	Outgoing []CLIEdge      `json:"outgoing" yaml:"outgoing"`
	Owned    []CLIStateSlot `json:"owned" yaml:"owned"`
	Consumed []CLIStateSlot `json:"consumed" yaml:"consumed"`
}

// CLIGraph is a subgraph: traversal results and state flows.
type CLIGraph struct {
	Root  string         `json:"root,omitempty" yaml:"root,omitempty"`
	Depth int            `json:"depth" yaml:"depth"`
	Units []CLIUnit      `json:"units" yaml:"units"`
	Edges []CLIEdge      `json:"edges" yaml:"edges"`
	State []CLIStateSlot `json:"state,omitempty" yaml:"state,omitempty"`
}

// CLIUnitChange is a unit present in both runs whose kind or degree changed.
type CLIUnitChange struct {
	ID         string `json:"id" yaml:"id"`
	FromKind   string `json:"from_kind" yaml:"from_kind"`
	ToKind     string `json:"to_kind" yaml:"to_kind"`
	FromDegree int    `json:"from_degree" yaml:"from_degree"`
	ToDegree   int    `json:"to_degree" yaml:"to_degree"`
}

// CLIDiff is a JSON-friendly comparison of two runs.
type CLIDiff struct {
	From         int64           `json:"from" yaml:"from"`
	To           int64           `json:"to" yaml:"to"`
	AddedUnits   []CLIUnit       `json:"added_units" yaml:"added_units"`
	RemovedUnits []CLIUnit       `json:"removed_units" yaml:"removed_units"`
	ChangedUnits []CLIUnitChange `json:"changed_units" yaml:"changed_units"`
	AddedEdges   []CLIEdge       `json:"added_edges" yaml:"added_edges"`
	RemovedEdges []CLIEdge       `json:"removed_edges" yaml:"removed_edges"`
}

// CLISummary is the analyze command result and the query summary result.
type CLISummary struct {
	Run        *CLIRun        `json:"run,omitempty" yaml:"run,omitempty"`
	Units      int            `json:"units" yaml:"units"`
	Edges      int            `json:"edges" yaml:"edges"`
	StateSlots int            `json:"state_slots" yaml:"state_slots"`
	Flows      int            `json:"flows" yaml:"flows"`
	ByKind     map[string]int `json:"by_kind" yaml:"by_kind"`
	MaxDegree  int            `json:"max_degree" yaml:"max_degree"`
	Output     string         `json:"output,omitempty" yaml:"output,omitempty"`
	HTML       string         `json:"html,omitempty" yaml:"html,omitempty"`
}

// CLIValidation is the validate command result.
type CLIValidation struct {
	File       string   `json:"file" yaml:"file"`
	Valid      bool     `json:"valid" yaml:"valid"`
	Violations []string `json:"violations,omitempty" yaml:"violations,omitempty"`
}

func runToCLI(r *compgraph.Run) CLIRun {
	return CLIRun{
		ID:         r.ID,
		Root:       r.Root,
		CreatedAt:  r.CreatedAt,
		DurationMS: r.Duration.Milliseconds(),
		FileCount:  r.FileCount,
		UnitCount:  r.UnitCount,
		EdgeCount:  r.EdgeCount,
		SlotCount:  r.SlotCount,
		GraphHash:  r.GraphHash,
	}
}

func unitToCLI(u compgraph.Unit) CLIUnit {
	return CLIUnit{
		ID:         u.ID,
		Name:       u.Name,
		Kind:       string(u.Kind),
		File:       u.FilePath,
		Imports:    u.Imports,
		Exports:    u.Exports,
		UsesState:  u.UsesState,
		UsesEffect: u.UsesEffect,
		UsesProps:  u.UsesProps,
		Degree:     u.Degree,
	}
}

func unitsToCLI(units []compgraph.Unit) []CLIUnit {
	out := make([]CLIUnit, 0, len(units))
	for _, u := range units {
		out = append(out, unitToCLI(u))
	}
	return out
}

func edgesToCLI(edges []compgraph.Edge) []CLIEdge {
	out := make([]CLIEdge, 0, len(edges))
	for _, e := range edges {
		out = append(out, CLIEdge{Source: e.Source, Target: e.Target, Props: e.Props})
	}
	return out
}

func slotsToCLI(slots []compgraph.StateSlot) []CLIStateSlot {
	out := make([]CLIStateSlot, 0, len(slots))
	for _, s := range slots {
		out = append(out, CLIStateSlot{
			Name:      s.Name,
			Setter:    s.Setter,
			Owner:     s.OwnerID,
			OwnerName: s.OwnerName,
			Consumers: s.Consumers,
		})
	}
	return out
}

func dependencyGraphToCLI(d *compgraph.DependencyGraph) CLIGraph {
	units := make([]CLIUnit, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		u := unitToCLI(n.Unit)
		depth := n.Depth
		u.Depth = &depth
		units = append(units, u)
	}
	return CLIGraph{
		Root:  d.Root,
		Depth: d.Depth,
		Units: units,
		Edges: edgesToCLI(d.Edges),
	}
}

func diffToCLI(d *compgraph.GraphDiff) CLIDiff {
	changed := make([]CLIUnitChange, 0, len(d.ChangedUnits))
	for _, c := range d.ChangedUnits {
		changed = append(changed, CLIUnitChange{
			ID:         c.ID,
			FromKind:   string(c.FromKind),
			ToKind:     string(c.ToKind),
			FromDegree: c.FromDegree,
			ToDegree:   c.ToDegree,
		})
	}
	return CLIDiff{
		From:         d.From,
		To:           d.To,
		AddedUnits:   unitsToCLI(d.AddedUnits),
		RemovedUnits: unitsToCLI(d.RemovedUnits),
		ChangedUnits: changed,
		AddedEdges:   edgesToCLI(d.AddedEdges),
		RemovedEdges: edgesToCLI(d.RemovedEdges),
	}
}

func statsToCLI(st compgraph.Stats) CLISummary {
	byKind := make(map[string]int, len(st.ByKind))
	for k, n := range st.ByKind {
		byKind[string(k)] = n
	}
	return CLISummary{
		Units:      st.Units,
		Edges:      st.Edges,
		StateSlots: st.StateSlots,
		Flows:      st.Flows,
		ByKind:     byKind,
		MaxDegree:  st.MaxDegree,
	}
}
