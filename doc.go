// Package compgraph builds a dependency graph of the components, hooks and
// utility modules of a JavaScript / TypeScript UI codebase. It finds who
// imports whom, who renders whom, and which pieces of local state are handed
// to which consumers as attributes.
//
// The analysis is a heuristic structural extractor. It builds no syntax tree
// and does no type checking; it scans tokens and markup sites.
//
// # Pipeline
//
// Analysis runs in two passes over an ordered set of source files:
//
//  1. First pass: every file is classified independently (component, hook,
//     utility or nothing), its local imports are extracted and its state
//     slots are recorded. In parallel mode this runs on a worker pool.
//
//  2. Second pass: once the whole set of units is known, every file that
//     produced a unit is linked against every other unit. An edge fires when
//     the target is imported or rendered; state slots whose value appears in
//     a rendered target's attributes gain that target as a consumer.
//
// Finally the graph is assembled: each edge adds one to the degree of both
// endpoints and units without edges are dropped.
//
// # Usage
//
//	e, err := compgraph.New(compgraph.WithDatabase(".compgraph/graph.db"))
//	if err != nil { ... }
//	defer e.Close()
//
//	g, run, err := e.AnalyzeDirectory(ctx, "path/to/app")
//
//	q := e.Query()
//	deps, err := q.Dependencies(run.ID, "src/App", 3)
//
// [Engine.Analyze] works purely in memory on [SourceFile] records and never
// fails; an empty graph means no connected units were found.
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] reads persisted runs:
//
//   - [QueryBuilder.Runs] and [QueryBuilder.Graph]: stored runs and graphs.
//   - [QueryBuilder.Units], [QueryBuilder.Search], [QueryBuilder.Hotspots]:
//     discovery.
//   - [QueryBuilder.Unit]: one unit with its edges and state slots.
//   - [QueryBuilder.Dependencies], [QueryBuilder.Dependents]: transitive
//     closure along edges.
//   - [QueryBuilder.Flow]: owners and consumers of a state value.
//   - [QueryBuilder.Diff]: units and edges added or removed between runs.
package compgraph
