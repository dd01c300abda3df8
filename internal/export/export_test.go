package export_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/compgraph/internal/export"
	"github.com/jward/compgraph/internal/graph"
)

func sampleGraph() *graph.Graph {
	units := []graph.Unit{
		{ID: "src/App", Name: "App", Kind: graph.KindComponent, FilePath: "src/App.jsx",
			Imports: []string{"Counter"}, Exports: []string{"App"}, UsesState: true},
		{ID: "src/Counter", Name: "Counter", Kind: graph.KindComponent, FilePath: "src/Counter.jsx",
			Imports: []string{"useTimer"}, Exports: []string{"Counter"}, UsesProps: true},
		{ID: "src/useTimer", Name: "useTimer", Kind: graph.KindHook, FilePath: "src/useTimer.js",
			Imports: []string{}, Exports: []string{"useTimer"}, UsesEffect: true},
	}
	edges := []graph.Edge{
		{Source: "src/App", Target: "src/Counter", Props: []string{"count"}},
		{Source: "src/Counter", Target: "src/useTimer"},
	}
	slots := []graph.StateSlot{
		{Name: "count", Setter: "setCount", OwnerID: "src/App", OwnerName: "App", Consumers: []string{"src/Counter"}},
	}
	g := graph.Assemble(units, edges, slots)
	return &g
}

type call struct {
	cypher string
	params map[string]any
}

type recordingRunner struct {
	calls []call
	err   error
}

func (r *recordingRunner) Run(_ context.Context, cypher string, params map[string]any) error {
	r.calls = append(r.calls, call{cypher: cypher, params: params})
	return r.err
}

func TestNeo4jLoader_LoadGraph(t *testing.T) {
	t.Parallel()

	r := &recordingRunner{}
	l := export.NewLoaderWithRunner(r, nil)
	require.NoError(t, l.LoadGraph(context.Background(), sampleGraph()))
	require.Len(t, r.calls, 3)

	assert.Contains(t, r.calls[0].cypher, "MERGE (n:Unit {id: row.id})")
	units := r.calls[0].params["batch"].([]map[string]any)
	require.Len(t, units, 3)
	assert.Equal(t, "src/App", units[0]["id"])
	assert.Equal(t, "component", units[0]["kind"])
	assert.Equal(t, int64(1), units[0]["degree"])
	assert.Equal(t, int64(2), units[1]["degree"])

	assert.Contains(t, r.calls[1].cypher, "MERGE (s)-[r:USES]->(t)")
	edges := r.calls[1].params["batch"].([]map[string]any)
	require.Len(t, edges, 2)
	assert.Equal(t, []string{"count"}, edges[0]["props"])
	assert.Equal(t, []string{}, edges[1]["props"])

	assert.Contains(t, r.calls[2].cypher, "FLOWS_TO")
	slots := r.calls[2].params["batch"].([]map[string]any)
	require.Len(t, slots, 1)
	assert.Equal(t, "src/App#count", slots[0]["key"])
	assert.Equal(t, []string{"src/Counter"}, slots[0]["consumers"])
}

func TestNeo4jLoader_SkipsEmptyBatches(t *testing.T) {
	t.Parallel()

	r := &recordingRunner{}
	l := export.NewLoaderWithRunner(r, nil)
	g := sampleGraph()
	g.StateVariables = nil

	require.NoError(t, l.LoadGraph(context.Background(), g))
	assert.Len(t, r.calls, 2)

	require.NoError(t, l.LoadGraph(context.Background(), nil))
	assert.Len(t, r.calls, 2)
}

func TestNeo4jLoader_IndexesAndClean(t *testing.T) {
	t.Parallel()

	r := &recordingRunner{}
	l := export.NewLoaderWithRunner(r, nil)
	require.NoError(t, l.CreateIndexes(context.Background()))
	require.NoError(t, l.Clean(context.Background()))

	require.Len(t, r.calls, 7)
	for _, c := range r.calls[:2] {
		assert.True(t, strings.HasPrefix(c.cypher, "CREATE INDEX"), c.cypher)
	}
	assert.Contains(t, r.calls[len(r.calls)-1].cypher, "MATCH (n:Unit) DETACH DELETE n")
	require.NoError(t, l.Close(context.Background()))
}

func TestNeo4jLoader_PropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	l := export.NewLoaderWithRunner(&recordingRunner{err: boom}, nil)

	err := l.LoadGraph(context.Background(), sampleGraph())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load units")

	require.ErrorIs(t, l.CreateIndexes(context.Background()), boom)
}

func TestSlotKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "src/Form#name", export.SlotKey(graph.StateSlot{OwnerID: "src/Form", Name: "name"}))
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, export.RenderHTML(&buf, sampleGraph(), "demo graph"))

	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "demo graph")
	assert.Contains(t, out, "Counter")
	assert.Contains(t, out, "useTimer")
	assert.Contains(t, out, "force")
}

func TestRenderHTML_NilGraph(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, export.RenderHTML(&buf, nil, "empty"))
	assert.Positive(t, buf.Len())
}

func TestValidateGraph_Accepts(t *testing.T) {
	t.Parallel()
	require.NoError(t, export.ValidateGraph(sampleGraph()))

	empty := graph.Assemble(nil, nil, nil)
	require.NoError(t, export.ValidateGraph(&empty))
}

func TestValidateJSON_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"missing sections", `{"nodes": []}`},
		{"bad kind", `{"nodes": [{"id": "a", "name": "A", "type": "widget", "filePath": "a.js",
			"imports": [], "exports": [], "usesState": false, "usesEffect": false,
			"usesProps": false, "complexity": 1}], "links": [], "stateVariables": []}`},
		{"zero degree", `{"nodes": [{"id": "a", "name": "A", "type": "util", "filePath": "a.js",
			"imports": [], "exports": [], "usesState": false, "usesEffect": false,
			"usesProps": false, "complexity": 0}], "links": [], "stateVariables": []}`},
		{"edge without target", `{"nodes": [], "links": [{"source": "a"}], "stateVariables": []}`},
		{"null consumers", `{"nodes": [], "links": [], "stateVariables": [{"name": "v",
			"setterName": "setV", "sourceComponentId": "a", "sourceComponentName": "A",
			"consumers": null}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := export.ValidateJSON([]byte(tt.doc))
			require.ErrorIs(t, err, export.ErrInvalidGraph)

			var verr *export.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Violations)
		})
	}
}

func TestValidateJSON_ReportsEveryViolation(t *testing.T) {
	t.Parallel()

	err := export.ValidateJSON([]byte(`{"links": [{"source": 1, "target": "b"}]}`))
	var verr *export.ValidationError
	require.ErrorAs(t, err, &verr)
	// nodes and stateVariables missing, source has the wrong type.
	assert.Len(t, verr.Violations, 3)
}

func TestValidateJSON_Malformed(t *testing.T) {
	t.Parallel()

	err := export.ValidateJSON([]byte(`{"nodes": [`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, export.ErrInvalidGraph)
}

func TestGraphSchema_IsJSON(t *testing.T) {
	t.Parallel()
	assert.True(t, json.Valid(export.GraphSchema()))
}
