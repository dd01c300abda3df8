package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the compgraph command into a temp dir.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "compgraph"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "compgraph")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from this file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "go.mod not found")
		dir = parent
	}
}

// createFixture writes a small app into a fresh git-like directory.
func createFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	files := map[string]string{
		"src/App.jsx": `import { useState } from 'react';
import Counter from './Counter';

export default function App() {
  const [count, setCount] = useState(0);
  return <Counter count={count} onIncrement={() => setCount(count + 1)} />;
}
`,
		"src/Counter.jsx": `import { useTicker } from './useTicker';

export default function Counter({ count, onIncrement }) {
  useTicker();
  return <button onClick={onIncrement}>{count}</button>;
}
`,
		"src/useTicker.js": `import { useEffect } from 'react';

export function useTicker() {
  useEffect(() => {}, []);
}
`,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// run executes the binary in dir and decodes the JSON envelope on stdout.
func run(t *testing.T, bin, dir string, args ...string) (map[string]any, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	stdout, err := cmd.Output()
	if err != nil && len(stdout) == 0 {
		t.Fatalf("%v failed with no output: %v", args, err)
	}
	var result map[string]any
	require.NoError(t, json.Unmarshal(stdout, &result), "invalid JSON output: %s", string(stdout))
	return result, err
}

func TestCLI_AnalyzeAndQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createFixture(t)
	out := filepath.Join(t.TempDir(), "graph.json")

	result, err := run(t, bin, dir, "analyze", ".", "--out", out)
	require.NoError(t, err)
	assert.Equal(t, "analyze", result["command"])
	summary := result["results"].(map[string]any)
	assert.InDelta(t, 3, summary["units"], 0)
	assert.InDelta(t, 2, summary["edges"], 0)
	assert.FileExists(t, filepath.Join(dir, ".compgraph", "graph.db"))

	result, err = run(t, bin, dir, "validate", out)
	require.NoError(t, err)
	assert.Equal(t, true, result["results"].(map[string]any)["valid"])

	result, err = run(t, bin, dir, "query", "nodes", "--kind", "hook")
	require.NoError(t, err)
	nodes := result["results"].([]any)
	require.Len(t, nodes, 1)
	assert.Equal(t, "src/useTicker", nodes[0].(map[string]any)["id"])

	result, err = run(t, bin, dir, "query", "deps", "src/App")
	require.NoError(t, err)
	deps := result["results"].(map[string]any)
	assert.Len(t, deps["units"], 3)

	result, err = run(t, bin, dir, "query", "flow", "count")
	require.NoError(t, err)
	flow := result["results"].(map[string]any)
	assert.Len(t, flow["units"], 2)
}

func TestCLI_QueryWithoutDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createFixture(t)

	result, err := run(t, bin, dir, "query", "runs")
	require.Error(t, err)
	assert.Contains(t, result["error"], "database not found")
}

func TestCLI_ValidateRejectsMalformedGraph(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"nodes": []}`), 0o644))

	result, err := run(t, bin, dir, "validate", bad)
	require.Error(t, err)
	v := result["results"].(map[string]any)
	assert.Equal(t, false, v["valid"])
	assert.NotEmpty(t, v["violations"])
}
