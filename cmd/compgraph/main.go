package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jward/compgraph"
	"github.com/jward/compgraph/internal/config"
	"github.com/jward/compgraph/internal/export"
	"github.com/jward/compgraph/internal/observability"
)

const serviceName = "compgraph"

var (
	flagDB       string
	flagFormat   = formatValue("json")
	flagConfig   string
	flagLogLevel string
	flagTrace    bool
)

// Set up by the root command's PersistentPreRunE.
var (
	cfg       = config.Default()
	logger    = slog.New(slog.DiscardHandler)
	providers observability.Providers
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "compgraph",
	Short:         "Component dependency graphs for JavaScript and TypeScript UI code",
	Long:          "compgraph classifies components, hooks and utility modules, links them by imports and markup usage, traces state flows, and stores each analysis in a SQLite database for queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if providers.Shutdown == nil {
			return nil
		}
		return providers.Shutdown(context.Background())
	},
	// No Run: prints help by default.
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", "", "database path (default: .compgraph/graph.db relative to repo root)")
	pf.Var(&flagFormat, "format", "output format: json|text|yaml")
	pf.StringVar(&flagConfig, "config", "", "config file (default: .compgraph.yaml in cwd or repo root)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	pf.BoolVar(&flagTrace, "trace", false, "log a record for every analysis span")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(validateCmd)
}

// setup loads configuration and builds the logger and tracer provider.
func setup() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	loaded, err := config.Load(flagConfig, findRepoRoot(cwd))
	if err != nil {
		return err
	}
	cfg = loaded

	levelName := cfg.Logging.Level
	if flagLogLevel != "" {
		levelName = flagLogLevel
	}
	level, err := config.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger = observability.NewLogger(os.Stderr, level, cfg.Logging.Format, serviceName)

	providers, err = observability.Init(observability.Config{
		ServiceName: serviceName,
		Trace:       flagTrace,
		Logger:      logger,
	})
	return err
}

var (
	flagMaxFiles int
	flagAliases  []string
	flagWorkers  int
	flagSerial   bool
	flagNoSave   bool
	flagOut      string
	flagHTML     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a source tree and store the component graph",
	Long:  "Discovers .js/.jsx/.ts/.tsx files, builds the component graph, and writes a new run to the SQLite database unless --no-save is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.IntVar(&flagMaxFiles, "max-files", compgraph.DefaultMaxFiles, "maximum number of files to read (0 = no limit)")
	f.StringSliceVar(&flagAliases, "alias", nil, "import prefix treated as local, repeatable (default: @/)")
	f.IntVar(&flagWorkers, "workers", 0, "goroutines per pass (0 = number of CPUs)")
	f.BoolVar(&flagSerial, "serial", false, "analyze on a single goroutine")
	f.BoolVar(&flagNoSave, "no-save", false, "do not write a run to the database")
	f.StringVar(&flagOut, "out", "", "also write the graph JSON to this file")
	f.StringVar(&flagHTML, "html", "", "also write an interactive HTML view to this file")
}

// engineOptions merges configuration with analyze flags. Flags win when set.
func engineOptions(cmd *cobra.Command) []compgraph.Option {
	a := cfg.Analysis
	maxFiles := a.MaxFiles
	if cmd.Flags().Changed("max-files") {
		maxFiles = flagMaxFiles
	}
	aliases := a.Aliases
	if cmd.Flags().Changed("alias") {
		aliases = flagAliases
	}
	workers := a.Workers
	if cmd.Flags().Changed("workers") {
		workers = flagWorkers
	}

	opts := []compgraph.Option{
		compgraph.WithMaxFiles(maxFiles),
		compgraph.WithWorkers(workers),
		compgraph.WithParallel(a.Parallel && !flagSerial),
		compgraph.WithCacheSize(a.CacheSize),
		compgraph.WithLogger(logger),
		compgraph.WithTracerProvider(providers.TracerProvider),
	}
	if len(aliases) > 0 {
		opts = append(opts, compgraph.WithAliases(aliases...))
	}
	if len(a.Extensions) > 0 {
		opts = append(opts, compgraph.WithExtensions(a.Extensions...))
	}
	return opts
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("analyze", err)
	}
	repoRoot := findRepoRoot(targetDir)

	opts := engineOptions(cmd)
	dbPath := ""
	if !flagNoSave {
		dbPath = resolveDBPath(repoRoot)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return outputError("analyze", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err))
		}
		opts = append(opts, compgraph.WithDatabase(dbPath))
	}

	engine, err := compgraph.New(opts...)
	if err != nil {
		return outputError("analyze", fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	g, run, err := engine.AnalyzeDirectory(cmd.Context(), targetDir)
	if err != nil {
		if errors.Is(err, compgraph.ErrNoUnits) {
			return outputError("analyze", fmt.Errorf("no connected components, hooks or utilities found under %s", targetDir))
		}
		return outputError("analyze", err)
	}

	summary := statsToCLI(compgraph.Summarize(g))
	if run != nil {
		r := runToCLI(run)
		summary.Run = &r
	}
	if flagOut != "" {
		if err := writeGraphJSON(flagOut, g); err != nil {
			return outputError("analyze", err)
		}
		summary.Output = flagOut
	}
	if flagHTML != "" {
		if err := writeGraphHTML(flagHTML, g, filepath.Base(targetDir)); err != nil {
			return outputError("analyze", err)
		}
		summary.HTML = flagHTML
	}

	fmt.Fprintf(os.Stderr, "Analyzed %s in %s (%s units, %s edges, %s state slots)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		humanize.Comma(int64(summary.Units)),
		humanize.Comma(int64(summary.Edges)),
		humanize.Comma(int64(summary.StateSlots)),
	)
	if dbPath != "" {
		fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	}

	return outputResult(CLIResult{Command: "analyze", Results: summary})
}

// writeGraphJSON writes g as indented JSON to path.
func writeGraphJSON(path string, g *compgraph.Graph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// writeGraphHTML renders g to an HTML file at path.
func writeGraphHTML(path string, g *compgraph.Graph, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.RenderHTML(f, g, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// resolveTargetDir returns the absolute path of the directory to analyze.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag, the config,
// or the default, relative to repoRoot unless absolute.
func resolveDBPath(repoRoot string) string {
	p := flagDB
	if p == "" {
		p = cfg.Database.Path
	}
	if p == "" {
		p = config.DefaultDatabasePath
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, filepath.FromSlash(p))
}
