package compgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jward/compgraph/internal/extract"
	"github.com/jward/compgraph/internal/graph"
	"github.com/jward/compgraph/internal/link"
	"github.com/jward/compgraph/internal/store"
)

// TracerName is the OpenTelemetry instrumentation name used for spans.
const TracerName = "compgraph"

// DefaultMaxFiles is the default cap on the number of files AnalyzeDirectory
// reads.
const DefaultMaxFiles = 200

var (
	// ErrNoUnits signals that an analyzed directory produced an empty graph.
	ErrNoUnits = errors.New("no connected units found")

	// ErrNoDatabase is returned by persistence and query operations on an
	// Engine created without WithDatabase.
	ErrNoDatabase = errors.New("no database configured")
)

// Engine orchestrates the analysis pipeline: file discovery, first pass,
// second pass, assembly, persistence and query access.
type Engine struct {
	store  *store.Store // nil without WithDatabase
	dbPath string

	extractor  *extract.Extractor
	aliases    []string
	extensions []string
	maxFiles   int

	// useParallel enables the worker pool for both passes.
	useParallel bool
	workers     int

	cacheSize int
	cache     *lru.Cache[string, *extract.Facts]

	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithDatabase persists runs to a SQLite database at path.
func WithDatabase(path string) Option {
	return func(e *Engine) {
		e.dbPath = path
	}
}

// WithAliases sets the import specifier prefixes treated as local in
// addition to relative paths. Defaults to "@/".
func WithAliases(aliases ...string) Option {
	return func(e *Engine) {
		e.aliases = append([]string(nil), aliases...)
	}
}

// WithParallel controls parallel analysis. When true (default), the first
// pass runs on a worker pool and the second pass on a bounded errgroup. Set
// to false for serial mode. Both modes produce the same graph.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers caps the number of goroutines per pass. Zero or negative means
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithCacheSize sets the number of per-file first-pass results kept between
// Analyze calls, keyed by path and content hash. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// WithLogger sets the logger for debug output. The Engine is silent by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracerProvider sets the provider spans are created from. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(TracerName)
		}
	}
}

// WithMaxFiles caps how many files AnalyzeDirectory reads. Zero or negative
// means no cap.
func WithMaxFiles(n int) Option {
	return func(e *Engine) {
		e.maxFiles = n
	}
}

// WithExtensions sets the file extensions AnalyzeDirectory considers.
// Defaults to .js, .jsx, .ts and .tsx.
func WithExtensions(exts ...string) Option {
	return func(e *Engine) {
		e.extensions = append([]string(nil), exts...)
	}
}

// New creates an Engine. With WithDatabase the SQLite store is opened and
// migrated.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		extensions:  append([]string(nil), DefaultExtensions...),
		maxFiles:    DefaultMaxFiles,
		useParallel: true, // default to parallel analysis
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(e)
	}

	var xOpts []extract.Option
	if e.aliases != nil {
		xOpts = append(xOpts, extract.WithAliases(e.aliases...))
	}
	e.extractor = extract.New(xOpts...)

	if e.cacheSize > 0 {
		c, err := lru.New[string, *extract.Facts](e.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("compgraph: create cache: %w", err)
		}
		e.cache = c
	}

	if e.dbPath != "" {
		s, err := store.NewStore(e.dbPath)
		if err != nil {
			return nil, fmt.Errorf("compgraph: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("compgraph: migrate: %w", err)
		}
		e.store = s
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the underlying Store for direct access, or nil without a
// database.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// numWorkers returns the goroutine count for n items of work.
func (e *Engine) numWorkers(n int) int {
	w := e.workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	return max(1, min(w, n))
}

// Analyze runs both passes over files and assembles the graph. Records with
// empty content are ignored. The result depends only on the files and their
// order; Analyze never fails.
func (e *Engine) Analyze(ctx context.Context, files []SourceFile) *Graph {
	ctx, span := e.tracer.Start(ctx, "compgraph.analyze",
		trace.WithAttributes(attribute.Int("compgraph.files", len(files))))
	defer span.End()

	facts := e.firstPass(ctx, files)
	facts, units, slots := resolveUnits(facts)
	e.logger.DebugContext(ctx, "first pass complete",
		"files", len(files), "units", len(units), "state_slots", len(slots))

	edges, slots := e.secondPass(ctx, facts, units, slots)
	e.logger.DebugContext(ctx, "second pass complete", "edges", len(edges))

	_, asmSpan := e.tracer.Start(ctx, "compgraph.assemble")
	g := graph.Assemble(units, edges, slots)
	asmSpan.SetAttributes(
		attribute.Int("compgraph.nodes", len(g.Nodes)),
		attribute.Int("compgraph.pruned", len(units)-len(g.Nodes)),
	)
	asmSpan.End()

	span.SetAttributes(
		attribute.Int("compgraph.nodes", len(g.Nodes)),
		attribute.Int("compgraph.links", len(g.Links)),
	)
	e.logger.DebugContext(ctx, "graph assembled",
		"nodes", len(g.Nodes), "links", len(g.Links), "pruned", len(units)-len(g.Nodes))
	return &g
}

// firstPass returns one Facts per input file, index-aligned with files.
func (e *Engine) firstPass(ctx context.Context, files []SourceFile) []*extract.Facts {
	_, span := e.tracer.Start(ctx, "compgraph.first_pass",
		trace.WithAttributes(attribute.Int("compgraph.files", len(files))))
	defer span.End()

	if e.useParallel && len(files) > 1 {
		return e.firstPassParallel(files)
	}
	out := make([]*extract.Facts, len(files))
	for i, f := range files {
		out[i] = e.extractFile(f)
	}
	return out
}

// extractFile runs the extractor on one file, going through the cache when
// one is configured. Cached Facts are shared and must not be modified.
func (e *Engine) extractFile(f SourceFile) *extract.Facts {
	if e.cache == nil || f.Content == "" {
		return e.extractor.File(f)
	}
	key := f.Path + "\x00" + store.ContentHash([]byte(f.Content))
	if facts, ok := e.cache.Get(key); ok {
		return facts
	}
	facts := e.extractor.File(f)
	e.cache.Add(key, facts)
	return facts
}

// resolveUnits builds the unit arena in file order. Facts are copied so
// cached values stay untouched. When two files derive the same unit ID the
// later one keeps its full path as ID.
func resolveUnits(in []*extract.Facts) ([]*extract.Facts, []graph.Unit, []graph.StateSlot) {
	var (
		units []graph.Unit
		slots []graph.StateSlot
		seen  = make(map[string]bool)
	)
	out := make([]*extract.Facts, len(in))
	for i, f := range in {
		if !f.HasUnit() {
			out[i] = f
			continue
		}
		u := f.Unit.Clone()
		if seen[u.ID] {
			u.ID = uniqueID(u.FilePath, seen)
		}
		seen[u.ID] = true

		fileSlots := make([]graph.StateSlot, len(f.Slots))
		for k, s := range f.Slots {
			s = s.Clone()
			s.OwnerID = u.ID
			fileSlots[k] = s
		}
		out[i] = &extract.Facts{Path: f.Path, Unit: &u, Slots: fileSlots, Markup: f.Markup}
		units = append(units, u)
		slots = append(slots, fileSlots...)
	}
	return out, units, slots
}

func uniqueID(path string, seen map[string]bool) string {
	if !seen[path] {
		return path
	}
	for n := 2; ; n++ {
		id := path + "#" + strconv.Itoa(n)
		if !seen[id] {
			return id
		}
	}
}

// secondPass links every file against the arena and merges the results in
// file order.
func (e *Engine) secondPass(ctx context.Context, facts []*extract.Facts, units []graph.Unit, slots []graph.StateSlot) ([]graph.Edge, []graph.StateSlot) {
	_, span := e.tracer.Start(ctx, "compgraph.second_pass",
		trace.WithAttributes(attribute.Int("compgraph.units", len(units))))
	defer span.End()

	linker := link.New(units, slots)
	var results []link.Result
	if e.useParallel && len(facts) > 1 {
		results = e.linkParallel(linker, facts)
	} else {
		results = make([]link.Result, len(facts))
		for i, f := range facts {
			results[i] = linker.Link(f)
		}
	}

	var edges []graph.Edge
	merged := linker.Slots()
	flows := 0
	for _, res := range results {
		edges = append(edges, res.Edges...)
		link.Apply(merged, res.Flows)
		flows += len(res.Flows)
	}
	span.SetAttributes(
		attribute.Int("compgraph.edges", len(edges)),
		attribute.Int("compgraph.flows", flows),
	)
	return edges, merged
}

// AnalyzeDirectory discovers source files under root, analyzes them and,
// when a database is configured, persists the run. An empty graph is
// returned together with an error wrapping ErrNoUnits and is not persisted.
func (e *Engine) AnalyzeDirectory(ctx context.Context, root string) (*Graph, *Run, error) {
	paths, err := ListSourceFiles(root, SourceOptions{Extensions: e.extensions, MaxFiles: e.maxFiles})
	if err != nil {
		return nil, nil, fmt.Errorf("compgraph: list files: %w", err)
	}
	files, err := LoadSourceFiles(root, paths)
	if err != nil {
		return nil, nil, fmt.Errorf("compgraph: load files: %w", err)
	}
	e.logger.DebugContext(ctx, "source files loaded", "root", root, "listed", len(paths), "loaded", len(files))

	start := time.Now()
	g := e.Analyze(ctx, files)
	elapsed := time.Since(start)

	if g.Empty() {
		return g, nil, fmt.Errorf("compgraph: analyze %s: %w", root, ErrNoUnits)
	}
	if e.store == nil {
		return g, nil, nil
	}
	run, err := e.save(ctx, &Run{Root: root, Duration: elapsed}, files, g)
	if err != nil {
		return g, nil, err
	}
	return g, run, nil
}

// Save persists an analysis of files under root.
func (e *Engine) Save(ctx context.Context, root string, files []SourceFile, g *Graph) (*Run, error) {
	return e.save(ctx, &Run{Root: root}, files, g)
}

func (e *Engine) save(ctx context.Context, run *Run, files []SourceFile, g *Graph) (*Run, error) {
	if e.store == nil {
		return nil, fmt.Errorf("compgraph: save: %w", ErrNoDatabase)
	}
	unitByPath := make(map[string]string)
	if g != nil {
		for _, n := range g.Nodes {
			unitByPath[n.FilePath] = n.ID
		}
	}
	records := make([]store.File, 0, len(files))
	for _, f := range files {
		records = append(records, store.File{
			Path:   f.Path,
			Name:   f.Name,
			Hash:   store.ContentHash([]byte(f.Content)),
			Size:   int64(len(f.Content)),
			UnitID: unitByPath[f.Path],
		})
	}
	if err := e.store.SaveRun(run, records, g); err != nil {
		return nil, fmt.Errorf("compgraph: save run: %w", err)
	}
	e.logger.DebugContext(ctx, "run saved", "run", run.ID, "hash", run.GraphHash)
	return run, nil
}
