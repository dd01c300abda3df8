package compgraph

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	e := newTestEngine(t)

	assert.Nil(t, e.Store())
	assert.True(t, e.useParallel)
	assert.Equal(t, DefaultMaxFiles, e.maxFiles)
	assert.Equal(t, DefaultExtensions, e.extensions)
	assert.Equal(t, []string{"@/"}, e.extractor.Aliases())
	assert.Nil(t, e.cache)
	require.NotNil(t, e.Query())
}

func TestNew_WithDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(WithDatabase(dbPath))
	require.NoError(t, err)
	defer e.Close()

	require.NotNil(t, e.Store())
	// Migration ran.
	require.NoError(t, e.Store().SetMetadata("k", "v"))
	runs, err := e.Query().Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNew_InvalidDatabasePath(t *testing.T) {
	_, err := New(WithDatabase("/nonexistent/dir/db.sqlite"))
	require.Error(t, err)
}

func TestClose_WithoutDatabase(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

func TestOptions(t *testing.T) {
	e := newTestEngine(t,
		WithAliases("~/", "#src/"),
		WithParallel(false),
		WithWorkers(3),
		WithCacheSize(16),
		WithMaxFiles(10),
		WithExtensions(".vue"),
		WithLogger(nil),
		WithTracerProvider(nil),
	)

	assert.Equal(t, []string{"~/", "#src/"}, e.extractor.Aliases())
	assert.False(t, e.useParallel)
	assert.Equal(t, 3, e.numWorkers(100))
	assert.Equal(t, 2, e.numWorkers(2))
	assert.Equal(t, 1, e.numWorkers(0))
	require.NotNil(t, e.cache)
	assert.Equal(t, 10, e.maxFiles)
	assert.Equal(t, []string{".vue"}, e.extensions)
	assert.NotNil(t, e.logger)
	assert.NotNil(t, e.tracer)
}

func TestWithAliases_ControlsLocalImports(t *testing.T) {
	files := []SourceFile{
		{Path: "app/Page.tsx", Name: "Page.tsx", Content: `import { Card } from '~/ui/Card';
export const Page = () => <main />;
`},
		{Path: "app/ui/Card.tsx", Name: "Card.tsx", Content: `export function Card() { return <div />; }
`},
	}

	g := newTestEngine(t).Analyze(context.Background(), files)
	assert.True(t, g.Empty(), "~/ is not local by default")

	g = newTestEngine(t, WithAliases("~/")).Analyze(context.Background(), files)
	require.Len(t, g.Links, 1)
	assert.Equal(t, Edge{Source: "app/Page", Target: "app/ui/Card"}, g.Links[0])
}

// =============================================================================
// Analyze
// =============================================================================

func TestAnalyze_EmptyInput(t *testing.T) {
	e := newTestEngine(t)

	g := e.Analyze(context.Background(), nil)
	require.NotNil(t, g)
	assert.True(t, g.Empty())
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Links)
	assert.NotNil(t, g.StateVariables)
}

func TestAnalyze_IgnoresEmptyContent(t *testing.T) {
	files := appFiles()
	files = append(files, SourceFile{Path: "src/Blank.jsx", Name: "Blank.jsx"})

	g := newTestEngine(t).Analyze(context.Background(), files)
	assert.Len(t, g.Nodes, 5)
	for _, n := range g.Nodes {
		assert.NotEqual(t, "src/Blank", n.ID)
	}
}

func TestAnalyze_PrunesIsolatedUnits(t *testing.T) {
	files := append(appFiles(), SourceFile{
		Path: "src/Orphan.jsx", Name: "Orphan.jsx",
		Content: "export const Orphan = () => <div />;\n",
	})

	g := newTestEngine(t).Analyze(context.Background(), files)
	assert.Len(t, g.Nodes, 5)
	for _, n := range g.Nodes {
		assert.Positive(t, n.Degree, n.ID)
	}
}

func TestAnalyze_DuplicateIDsKeepFullPath(t *testing.T) {
	files := []SourceFile{
		{Path: "src/App.tsx", Name: "App.tsx", Content: `import Button from './Button';
import { buttonSize } from './Button';

export const App = () => <Button size={buttonSize()} />;
`},
		{Path: "src/Button.tsx", Name: "Button.tsx", Content: `export default function Button({ size }) {
  return <button data-size={size} />;
}
`},
		{Path: "src/Button.ts", Name: "Button.ts", Content: `export const buttonSize = () => 'md';
`},
	}

	g := newTestEngine(t).Analyze(context.Background(), files)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, "src/Button", g.Nodes[1].ID)
	assert.Equal(t, "src/Button.ts", g.Nodes[2].ID)
	assert.Equal(t, []Edge{
		{Source: "src/App", Target: "src/Button", Props: []string{"size"}},
		{Source: "src/App", Target: "src/Button.ts"},
	}, g.Links)
}

func TestUniqueID(t *testing.T) {
	seen := map[string]bool{"src/a": true}
	assert.Equal(t, "src/a.ts", uniqueID("src/a.ts", seen))

	seen["src/a.ts"] = true
	assert.Equal(t, "src/a.ts#2", uniqueID("src/a.ts", seen))

	seen["src/a.ts#2"] = true
	assert.Equal(t, "src/a.ts#3", uniqueID("src/a.ts", seen))
}

func TestAnalyze_StateFlowAcrossFiles(t *testing.T) {
	files := []SourceFile{
		{Path: "Parent.jsx", Name: "Parent.jsx", Content: `import Child from './Child';
export default function Parent() {
  const [count, setCount] = useState(0);
  return (
    <div>
      <Child value={count} />
      <Child value={count} extra={setCount} />
    </div>
  );
}
`},
		{Path: "Child.jsx", Name: "Child.jsx", Content: `export const Child = (props) => <span>{props.value}</span>;
`},
	}

	g := newTestEngine(t).Analyze(context.Background(), files)
	require.Len(t, g.StateVariables, 1)
	assert.Equal(t, []string{"Child"}, g.StateVariables[0].Consumers)
	require.Len(t, g.Links, 1)
	// Only the first site feeds props.
	assert.Equal(t, []string{"value"}, g.Links[0].Props)
}

// =============================================================================
// Serial / parallel equivalence
// =============================================================================

// chainFiles builds n components where component i renders component i+1
// with a state value, plus a shared hook and utility.
func chainFiles(n int) []SourceFile {
	files := make([]SourceFile, 0, n+2)
	for i := range n {
		var b strings.Builder
		b.WriteString("import { useShared } from './useShared';\n")
		if i+1 < n {
			fmt.Fprintf(&b, "import C%d from './C%d';\n", i+1, i+1)
		}
		fmt.Fprintf(&b, "export default function C%d() {\n", i)
		fmt.Fprintf(&b, "  const [v%d, setV%d] = useState(%d);\n", i, i, i)
		b.WriteString("  useShared();\n")
		if i+1 < n {
			fmt.Fprintf(&b, "  return <C%d key=\"k\" value={v%d} />;\n", i+1, i)
		} else {
			b.WriteString("  return null;\n")
		}
		b.WriteString("}\n")
		files = append(files, SourceFile{
			Path: fmt.Sprintf("src/C%d.jsx", i), Name: fmt.Sprintf("C%d.jsx", i), Content: b.String(),
		})
	}
	files = append(files,
		SourceFile{Path: "src/useShared.js", Name: "useShared.js", Content: "import { clamp } from './math';\nexport function useShared() { useEffect(() => clamp(1)); }\n"},
		SourceFile{Path: "src/math.js", Name: "math.js", Content: "export function clamp(x) { return x; }\n"},
	)
	return files
}

func TestAnalyze_SerialAndParallelMatch(t *testing.T) {
	files := chainFiles(60)

	serial := newTestEngine(t, WithParallel(false)).Analyze(context.Background(), files)
	for _, workers := range []int{1, 2, 7, 0} {
		parallel := newTestEngine(t, WithParallel(true), WithWorkers(workers)).Analyze(context.Background(), files)
		assert.Equal(t, serial, parallel, "workers=%d", workers)
	}

	// 59 chain edges, 60 hook edges, 1 utility edge.
	assert.Len(t, serial.Links, 120)
	assert.Len(t, serial.Nodes, 62)
	require.Len(t, serial.StateVariables, 60)
	assert.Equal(t, []string{"src/C1"}, serial.StateVariables[0].Consumers)
	assert.Empty(t, serial.StateVariables[59].Consumers)
}

func TestAnalyze_Deterministic(t *testing.T) {
	e := newTestEngine(t)
	files := chainFiles(20)
	first := e.Analyze(context.Background(), files)
	for range 5 {
		assert.Equal(t, first, e.Analyze(context.Background(), files))
	}
}

// =============================================================================
// Cache
// =============================================================================

func TestAnalyze_CacheReusesFacts(t *testing.T) {
	e := newTestEngine(t, WithCacheSize(64))
	files := appFiles()

	first := e.Analyze(context.Background(), files)
	assert.Equal(t, len(files), e.cache.Len())

	second := e.Analyze(context.Background(), files)
	assert.Equal(t, first, second)
	assert.Equal(t, len(files), e.cache.Len())

	// Changed content gets a new entry.
	files[1].Content = "export const Display = ({ count }) => <b>{count}</b>;\n"
	e.Analyze(context.Background(), files)
	assert.Equal(t, len(files)+1, e.cache.Len())
}

func TestAnalyze_CacheSurvivesIDCollisions(t *testing.T) {
	files := []SourceFile{
		{Path: "a/Card.tsx", Name: "Card.tsx", Content: "export const Card = () => <Badge />;\n"},
		{Path: "a/Card.jsx", Name: "Card.jsx", Content: "export const Badge = () => <Card />;\n"},
	}
	uncached := newTestEngine(t).Analyze(context.Background(), files)

	e := newTestEngine(t, WithCacheSize(8))
	for range 3 {
		assert.Equal(t, uncached, e.Analyze(context.Background(), files))
	}
	assert.Equal(t, "a/Card.jsx", uncached.Nodes[1].ID)
}

// =============================================================================
// Observability
// =============================================================================

func TestAnalyze_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	e := newTestEngine(t, WithTracerProvider(tp))
	e.Analyze(context.Background(), appFiles())

	names := map[string]bool{}
	var root tracetest.SpanStub
	for _, s := range exporter.GetSpans() {
		names[s.Name] = true
		if s.Name == "compgraph.analyze" {
			root = s
		}
	}
	for _, want := range []string{"compgraph.analyze", "compgraph.first_pass", "compgraph.second_pass", "compgraph.assemble"} {
		assert.True(t, names[want], "missing span %s", want)
	}

	attrs := map[string]int64{}
	for _, kv := range root.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInt64()
	}
	assert.Equal(t, int64(5), attrs["compgraph.files"])
	assert.Equal(t, int64(5), attrs["compgraph.nodes"])
	assert.Equal(t, int64(4), attrs["compgraph.links"])
}

func TestAnalyze_DebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	e := newTestEngine(t, WithLogger(logger))
	e.Analyze(context.Background(), appFiles())

	out := buf.String()
	assert.Contains(t, out, "first pass complete")
	assert.Contains(t, out, "second pass complete")
	assert.Contains(t, out, "graph assembled")
	assert.Contains(t, out, "nodes=5")
}

// =============================================================================
// Persistence
// =============================================================================

func TestSave_WithoutDatabase(t *testing.T) {
	e := newTestEngine(t)
	g := e.Analyze(context.Background(), appFiles())

	_, err := e.Save(context.Background(), "/app", appFiles(), g)
	require.ErrorIs(t, err, ErrNoDatabase)
}

func TestSave_RecordsFilesAndUnits(t *testing.T) {
	e := newTestEngine(t, WithDatabase(filepath.Join(t.TempDir(), "test.db")))
	files := append(appFiles(), SourceFile{Path: "src/README.js", Name: "README.js", Content: "// nothing\n"})
	g := e.Analyze(context.Background(), files)

	run, err := e.Save(context.Background(), "/app", files, g)
	require.NoError(t, err)
	assert.Equal(t, 6, run.FileCount)
	assert.Equal(t, 5, run.UnitCount)

	stored, err := e.Query().Files(run.ID)
	require.NoError(t, err)
	byPath := map[string]string{}
	for _, f := range stored {
		byPath[f.Path] = f.UnitID
	}
	assert.Equal(t, "src/keys", byPath["src/keys.js"])
	assert.Equal(t, "", byPath["src/README.js"])
}
