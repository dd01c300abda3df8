package compgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findModuleRoot walks up from cwd to find go.mod, returning the repo root.
func findModuleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find module root")
		}
		dir = parent
	}
}

// newIntegrationEngine creates an Engine backed by a temp DB.
func newIntegrationEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "integration.db")
	e, err := New(append([]Option{WithDatabase(dbPath)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// writeSourceFile writes source under dir, creating parent directories.
func writeSourceFile(t testing.TB, dir, name, src string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
}

// appFiles is a root component importing and rendering two children with
// distinct parameters, one child importing a hook, the hook importing a
// utility. The root's count state is passed to Display.
func appFiles() []SourceFile {
	return []SourceFile{
		{Path: "src/App.jsx", Name: "App.jsx", Content: `import { useState } from 'react';
import Display from './Display';
import Controls from './Controls';

function App() {
  const [count, setCount] = useState(0);
  return (
    <main>
      <Display count={count} />
      <Controls onReset={() => setCount(0)} />
    </main>
  );
}

export default App;
`},
		{Path: "src/Display.jsx", Name: "Display.jsx", Content: `export const Display = ({ count }) => <p>{count}</p>;
`},
		{Path: "src/Controls.jsx", Name: "Controls.jsx", Content: `import { useShortcut } from './useShortcut';

export default function Controls({ onReset }) {
  useShortcut('r', onReset);
  return <button onClick={onReset}>reset</button>;
}
`},
		{Path: "src/useShortcut.js", Name: "useShortcut.js", Content: `import { useEffect } from 'react';
import { normalizeKey } from './keys';

export function useShortcut(key, handler) {
  useEffect(() => {
    const listener = (e) => normalizeKey(e.key) === key && handler();
    window.addEventListener('keydown', listener);
    return () => window.removeEventListener('keydown', listener);
  }, [key, handler]);
}
`},
		{Path: "src/keys.js", Name: "keys.js", Content: `export const normalizeKey = (k) => k.toLowerCase();
`},
	}
}

func TestIntegration_FiveFileApp(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		e, err := New(WithParallel(parallel))
		require.NoError(t, err)

		g := e.Analyze(context.Background(), appFiles())
		require.NoError(t, e.Close())

		require.Len(t, g.Nodes, 5)
		require.Len(t, g.Links, 4)
		require.NotEmpty(t, g.StateVariables)

		assert.Equal(t, []Edge{
			{Source: "src/App", Target: "src/Display", Props: []string{"count"}},
			{Source: "src/App", Target: "src/Controls", Props: []string{"onReset"}},
			{Source: "src/Controls", Target: "src/useShortcut"},
			{Source: "src/useShortcut", Target: "src/keys"},
		}, g.Links)

		kinds := map[string]Kind{}
		degrees := map[string]int{}
		for _, n := range g.Nodes {
			kinds[n.ID] = n.Kind
			degrees[n.ID] = n.Degree
		}
		assert.Equal(t, map[string]Kind{
			"src/App":         KindComponent,
			"src/Display":     KindComponent,
			"src/Controls":    KindComponent,
			"src/useShortcut": KindHook,
			"src/keys":        KindUtility,
		}, kinds)
		assert.Equal(t, map[string]int{
			"src/App": 2, "src/Display": 1, "src/Controls": 2, "src/useShortcut": 2, "src/keys": 1,
		}, degrees)

		require.Len(t, g.StateVariables, 1)
		slot := g.StateVariables[0]
		assert.Equal(t, "count", slot.Name)
		assert.Equal(t, "setCount", slot.Setter)
		assert.Equal(t, "src/App", slot.OwnerID)
		assert.Equal(t, "App", slot.OwnerName)
		assert.Equal(t, []string{"src/Display"}, slot.Consumers)
	}
}

func TestIntegration_AnalyzeDirectoryPersistsAndQueries(t *testing.T) {
	root := t.TempDir()
	for _, f := range appFiles() {
		writeSourceFile(t, root, f.Path, f.Content)
	}
	writeSourceFile(t, root, "src/styles.css", "main { color: red; }\n")
	writeSourceFile(t, root, "node_modules/react/index.js", "export function useState() {}\n")

	e := newIntegrationEngine(t)
	ctx := context.Background()

	g, run, err := e.AnalyzeDirectory(ctx, root)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Positive(t, run.ID)
	assert.Equal(t, 5, run.FileCount)
	assert.Equal(t, 5, run.UnitCount)
	assert.Equal(t, 4, run.EdgeCount)
	assert.Equal(t, 1, run.SlotCount)
	assert.NotEmpty(t, run.GraphHash)

	q := e.Query()
	stored, err := q.Graph(run.ID)
	require.NoError(t, err)
	assert.Equal(t, g, stored)

	files, err := q.Files(run.ID)
	require.NoError(t, err)
	require.Len(t, files, 5)
	assert.Equal(t, "src/App.jsx", files[0].Path)
	assert.Equal(t, "src/App", files[0].UnitID)

	deps, err := q.Dependencies(0, "src/App", 10)
	require.NoError(t, err)
	assert.Len(t, deps.Nodes, 5)
	assert.Equal(t, 3, deps.Depth)

	flow, err := q.Flow(0, "count")
	require.NoError(t, err)
	assert.Len(t, flow.Nodes, 2)

	// Drop the hook's utility import and re-analyze.
	writeSourceFile(t, root, "src/useShortcut.js", `import { useEffect } from 'react';

export function useShortcut(key, handler) {
  useEffect(() => {}, [key, handler]);
}
`)
	_, second, err := e.AnalyzeDirectory(ctx, root)
	require.NoError(t, err)

	d, err := q.Diff(run.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/keys"}, unitIDs(d.RemovedUnits))
	assert.Equal(t, []Edge{{Source: "src/useShortcut", Target: "src/keys"}}, d.RemovedEdges)
	assert.Empty(t, d.AddedUnits)

	runs, err := q.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.NotEqual(t, runs[0].GraphHash, runs[1].GraphHash)
}

func TestIntegration_EmptyDirectoryIsNotPersisted(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "src/lonely.js", "export const lonely = () => 1;\n")

	e := newIntegrationEngine(t)
	g, run, err := e.AnalyzeDirectory(context.Background(), root)
	require.ErrorIs(t, err, ErrNoUnits)
	assert.Nil(t, run)
	require.NotNil(t, g)
	assert.True(t, g.Empty())

	runs, err := e.Query().Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestIntegration_GoldenCaseRoundTrip(t *testing.T) {
	root := filepath.Join(findModuleRoot(t), "testdata", "state-flow")
	e := newIntegrationEngine(t)

	g, run, err := e.AnalyzeDirectory(context.Background(), root)
	require.NoError(t, err)

	d, err := e.Query().Unit(run.ID, "src/Form")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Len(t, d.Outgoing, 3)
	assert.Len(t, d.Owned, 2)

	stored, err := e.Query().Graph(0)
	require.NoError(t, err)
	assert.Equal(t, g, stored)
}
