package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/compgraph"
	"github.com/jward/compgraph/internal/store"
)

var (
	flagRun        int64
	flagLimit      int
	flagOffset     int
	flagKinds      kindsValue
	flagPathPrefix string
	flagUsesState  triState
	flagDepth      int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query stored analysis runs",
	Long:  "Run queries against stored component graphs. --run selects a run; the default 0 is the latest.",
}

func init() {
	pf := queryCmd.PersistentFlags()
	pf.Int64Var(&flagRun, "run", 0, "run ID (0 = latest)")
	pf.IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	pf.IntVar(&flagOffset, "offset", 0, "pagination offset")

	for _, c := range []*cobra.Command{nodesCmd, searchCmd} {
		c.Flags().Var(&flagKinds, "kind", "filter by kind: component|hook|util (repeatable)")
		c.Flags().StringVar(&flagPathPrefix, "path", "", "filter by file path prefix")
		c.Flags().Var(&flagUsesState, "uses-state", "filter by state use")
		c.Flags().Lookup("uses-state").NoOptDefVal = "true"
	}
	for _, c := range []*cobra.Command{depsCmd, dependentsCmd} {
		c.Flags().IntVar(&flagDepth, "depth", 5, "maximum traversal depth (max 100)")
	}

	queryCmd.AddCommand(runsCmd)
	queryCmd.AddCommand(summaryCmd)
	queryCmd.AddCommand(nodesCmd)
	queryCmd.AddCommand(unitCmd)
	queryCmd.AddCommand(searchCmd)
	queryCmd.AddCommand(hotspotsCmd)
	queryCmd.AddCommand(edgesCmd)
	queryCmd.AddCommand(stateCmd)
	queryCmd.AddCommand(flowCmd)
	queryCmd.AddCommand(depsCmd)
	queryCmd.AddCommand(dependentsCmd)
	queryCmd.AddCommand(diffCmd)
}

// --- Helpers ---

// openStore opens the Store from the --db flag path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'compgraph analyze' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// withQuery opens the store, runs fn with a QueryBuilder and closes the
// store again.
func withQuery(command string, fn func(q *compgraph.QueryBuilder) (CLIResult, error)) error {
	s, err := openStore()
	if err != nil {
		return outputError(command, err)
	}
	defer s.Close()

	result, err := fn(compgraph.NewQueryBuilder(s))
	if err != nil {
		return outputError(command, err)
	}
	result.Command = command
	return outputResult(result)
}

// parseRunArg parses a positional run ID.
func parseRunArg(value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid run %q: must be a non-negative integer", value)
	}
	return n, nil
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() compgraph.Pagination {
	return compgraph.Pagination{Limit: flagLimit, Offset: flagOffset}
}

// buildFilter creates a UnitFilter from CLI flags.
func buildFilter() compgraph.UnitFilter {
	return compgraph.UnitFilter{
		Kinds:      flagKinds.kinds,
		PathPrefix: flagPathPrefix,
		UsesState:  flagUsesState.Ptr(),
	}
}

func pagedToCLI(p *compgraph.PagedResult[compgraph.Unit]) CLIResult {
	total := p.TotalCount
	return CLIResult{Results: unitsToCLI(p.Items), TotalCount: &total}
}

func counted[T any](items []T) CLIResult {
	n := len(items)
	return CLIResult{Results: items, TotalCount: &n}
}

// --- Run Commands ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("runs", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			runs, err := q.Runs()
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIRun, 0, len(runs))
			for _, r := range runs {
				out = append(out, runToCLI(r))
			}
			return counted(out), nil
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the counts of a run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("summary", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			run, err := q.Run(flagRun)
			if err != nil {
				return CLIResult{}, err
			}
			st, err := q.Summary(run.ID)
			if err != nil {
				return CLIResult{}, err
			}
			summary := statsToCLI(st)
			r := runToCLI(run)
			summary.Run = &r
			return CLIResult{Results: summary}, nil
		})
	},
}

// --- Discovery Commands ---

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the units of a run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("nodes", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			page, err := q.Units(flagRun, buildFilter(), buildPagination())
			if err != nil {
				return CLIResult{}, err
			}
			return pagedToCLI(page), nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Find units by name, ID or export (case-insensitive substring)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("search", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			page, err := q.Search(flagRun, args[0], buildFilter(), buildPagination())
			if err != nil {
				return CLIResult{}, err
			}
			return pagedToCLI(page), nil
		})
	},
}

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "List the units with the most edges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("hotspots", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			units, err := q.Hotspots(flagRun, flagLimit)
			if err != nil {
				return CLIResult{}, err
			}
			return counted(unitsToCLI(units)), nil
		})
	},
}

var unitCmd = &cobra.Command{
	Use:   "unit <id>",
	Short: "Show one unit with its edges and state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("unit", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			d, err := q.Unit(flagRun, args[0])
			if err != nil {
				return CLIResult{}, err
			}
			if d == nil {
				// Fall back to a file path lookup.
				d, err = q.UnitByFile(flagRun, args[0])
				if err != nil {
					return CLIResult{}, err
				}
			}
			if d == nil {
				return CLIResult{Results: nil}, nil
			}
			return CLIResult{Results: CLIUnitDetail{
				Unit:     unitToCLI(d.Unit),
				Incoming: edgesToCLI(d.Incoming),
				Outgoing: edgesToCLI(d.Outgoing),
				Owned:    slotsToCLI(d.Owned),
				Consumed: slotsToCLI(d.Consumed),
			}}, nil
		})
	},
}

var edgesCmd = &cobra.Command{
	Use:   "edges",
	Short: "List the edges of a run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("edges", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			edges, err := q.Edges(flagRun)
			if err != nil {
				return CLIResult{}, err
			}
			return counted(edgesToCLI(edges)), nil
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "List the state slots of a run and where their values flow",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("state", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			slots, err := q.StateSlots(flagRun)
			if err != nil {
				return CLIResult{}, err
			}
			return counted(slotsToCLI(slots)), nil
		})
	},
}

// --- Graph Commands ---

var flowCmd = &cobra.Command{
	Use:   "flow <state-name>",
	Short: "Show the owners and consumers of a state value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("flow", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			g, err := q.Flow(flagRun, args[0])
			if err != nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: CLIGraph{
				Units: unitsToCLI(g.Nodes),
				Edges: edgesToCLI(g.Links),
				State: slotsToCLI(g.StateVariables),
			}}, nil
		})
	},
}

var depsCmd = &cobra.Command{
	Use:   "deps <id>",
	Short: "Show the units a unit transitively uses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("deps", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			d, err := q.Dependencies(flagRun, args[0], flagDepth)
			if err != nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: dependencyGraphToCLI(d)}, nil
		})
	},
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <id>",
	Short: "Show the units that transitively use a unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("dependents", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			d, err := q.Dependents(flagRun, args[0], flagDepth)
			if err != nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: dependencyGraphToCLI(d)}, nil
		})
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <from-run> [to-run]",
	Short: "Compare two runs (to-run defaults to the latest)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseRunArg(args[0])
		if err != nil {
			return outputError("diff", err)
		}
		var to int64
		if len(args) == 2 {
			if to, err = parseRunArg(args[1]); err != nil {
				return outputError("diff", err)
			}
		}
		return withQuery("diff", func(q *compgraph.QueryBuilder) (CLIResult, error) {
			d, err := q.Diff(from, to)
			if err != nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: diffToCLI(d)}, nil
		})
	},
}
