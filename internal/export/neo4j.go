// Package export writes analysis graphs to external targets: a Neo4j
// database, a standalone HTML page, and schema-checked JSON.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/jward/compgraph/internal/graph"
)

// CypherRunner executes one Cypher statement.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *driverRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if r.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.database))
	}
	_, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	return err
}

// Neo4jLoader loads analysis graphs into Neo4j using batched UNWIND
// statements.
type Neo4jLoader struct {
	runner CypherRunner
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// Neo4jOptions locates the target database.
type Neo4jOptions struct {
	URI      string
	User     string
	Password string
	// Database is empty for the server default.
	Database string
}

// NewNeo4jLoader connects to Neo4j and verifies connectivity.
func NewNeo4jLoader(ctx context.Context, o Neo4jOptions, logger *slog.Logger) (*Neo4jLoader, error) {
	driver, err := neo4j.NewDriverWithContext(o.URI, neo4j.BasicAuth(o.User, o.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j at %s: %w", o.URI, err)
	}
	l := NewLoaderWithRunner(&driverRunner{driver: driver, database: o.Database}, logger)
	l.driver = driver
	return l, nil
}

// NewLoaderWithRunner builds a loader on top of an arbitrary runner.
func NewLoaderWithRunner(r CypherRunner, logger *slog.Logger) *Neo4jLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Neo4jLoader{runner: r, logger: logger}
}

// Close releases the driver, if any.
func (l *Neo4jLoader) Close(ctx context.Context) error {
	if l.driver == nil {
		return nil
	}
	return l.driver.Close(ctx)
}

func (l *Neo4jLoader) runAll(ctx context.Context, queries []string) error {
	for _, q := range queries {
		if err := l.runner.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("neo4j: %w", err)
		}
	}
	return nil
}

// CreateIndexes ensures the lookup indexes exist.
func (l *Neo4jLoader) CreateIndexes(ctx context.Context) error {
	l.logger.DebugContext(ctx, "creating neo4j indexes")
	return l.runAll(ctx, []string{
		"CREATE INDEX compgraph_unit_id IF NOT EXISTS FOR (n:Unit) ON (n.id)",
		"CREATE INDEX compgraph_slot_key IF NOT EXISTS FOR (n:StateSlot) ON (n.key)",
	})
}

// Clean removes every node and relationship a previous load created.
func (l *Neo4jLoader) Clean(ctx context.Context) error {
	l.logger.DebugContext(ctx, "cleaning neo4j graph")
	return l.runAll(ctx, []string{
		"MATCH ()-[r:USES]->() DELETE r",
		"MATCH ()-[r:OWNED_BY]->() DELETE r",
		"MATCH ()-[r:FLOWS_TO]->() DELETE r",
		"MATCH (n:StateSlot) DETACH DELETE n",
		"MATCH (n:Unit) DETACH DELETE n",
	})
}

// LoadGraph upserts units, edges and state slots. Edges whose endpoints
// are missing from the graph are skipped by the MATCH.
func (l *Neo4jLoader) LoadGraph(ctx context.Context, g *graph.Graph) error {
	if g == nil {
		return nil
	}
	steps := []struct {
		name   string
		cypher string
		batch  []map[string]any
	}{
		{"units", loadUnitsCypher, unitRows(g.Nodes)},
		{"edges", loadEdgesCypher, edgeRows(g.Links)},
		{"state slots", loadSlotsCypher, slotRows(g.StateVariables)},
	}
	for _, s := range steps {
		if len(s.batch) == 0 {
			continue
		}
		l.logger.DebugContext(ctx, "loading", "kind", s.name, "count", len(s.batch))
		if err := l.runner.Run(ctx, s.cypher, map[string]any{"batch": s.batch}); err != nil {
			return fmt.Errorf("neo4j: load %s: %w", s.name, err)
		}
	}
	return nil
}

const loadUnitsCypher = `UNWIND $batch AS row
MERGE (n:Unit {id: row.id})
SET n.name = row.name, n.kind = row.kind, n.file_path = row.file_path,
    n.imports = row.imports, n.exports = row.exports,
    n.uses_state = row.uses_state, n.uses_effect = row.uses_effect,
    n.uses_props = row.uses_props, n.degree = row.degree`

const loadEdgesCypher = `UNWIND $batch AS row
MATCH (s:Unit {id: row.source})
MATCH (t:Unit {id: row.target})
MERGE (s)-[r:USES]->(t)
SET r.props = row.props`

const loadSlotsCypher = `UNWIND $batch AS row
MERGE (v:StateSlot {key: row.key})
SET v.name = row.name, v.setter = row.setter
WITH v, row
MATCH (o:Unit {id: row.owner})
MERGE (v)-[:OWNED_BY]->(o)
WITH v, row
UNWIND row.consumers AS consumer
MATCH (c:Unit {id: consumer})
MERGE (v)-[:FLOWS_TO]->(c)`

func unitRows(units []graph.Unit) []map[string]any {
	rows := make([]map[string]any, 0, len(units))
	for _, u := range units {
		rows = append(rows, map[string]any{
			"id":          u.ID,
			"name":        u.Name,
			"kind":        string(u.Kind),
			"file_path":   u.FilePath,
			"imports":     nonNil(u.Imports),
			"exports":     nonNil(u.Exports),
			"uses_state":  u.UsesState,
			"uses_effect": u.UsesEffect,
			"uses_props":  u.UsesProps,
			"degree":      int64(u.Degree),
		})
	}
	return rows
}

func edgeRows(edges []graph.Edge) []map[string]any {
	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, map[string]any{
			"source": e.Source,
			"target": e.Target,
			"props":  nonNil(e.Props),
		})
	}
	return rows
}

// slotRows keys slots by owner and value name. Slots sharing both collapse
// into one node.
func slotRows(slots []graph.StateSlot) []map[string]any {
	rows := make([]map[string]any, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, map[string]any{
			"key":       SlotKey(s),
			"name":      s.Name,
			"setter":    s.Setter,
			"owner":     s.OwnerID,
			"consumers": nonNil(s.Consumers),
		})
	}
	return rows
}

// SlotKey identifies a state slot across exports.
func SlotKey(s graph.StateSlot) string {
	return s.OwnerID + "#" + s.Name
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
