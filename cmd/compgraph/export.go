package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jward/compgraph"
	"github.com/jward/compgraph/internal/export"
)

var (
	flagExportOut   string
	flagNeo4jURI    string
	flagNeo4jUser   string
	flagNeo4jPass   string
	flagNeo4jDB     string
	flagNeo4jClean  bool
	flagHTMLTitle   string
	flagSkipIndexes bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored run",
	Long:  "Write a stored run's graph as JSON, YAML or HTML, or load it into Neo4j. --run selects a run; the default 0 is the latest.",
}

func init() {
	exportCmd.PersistentFlags().Int64Var(&flagRun, "run", 0, "run ID (0 = latest)")
	for _, c := range []*cobra.Command{exportJSONCmd, exportYAMLCmd, exportHTMLCmd} {
		c.Flags().StringVarP(&flagExportOut, "out", "o", "", "output file (default: stdout)")
	}
	exportHTMLCmd.Flags().StringVar(&flagHTMLTitle, "title", "", "page title (default: the run's root directory name)")

	f := exportNeo4jCmd.Flags()
	f.StringVar(&flagNeo4jURI, "uri", "", "Neo4j URI (default: neo4j.uri from config)")
	f.StringVar(&flagNeo4jUser, "user", "", "Neo4j user (default: neo4j.user from config)")
	f.StringVar(&flagNeo4jPass, "password", "", "Neo4j password (default: neo4j.password from config)")
	f.StringVar(&flagNeo4jDB, "database", "", "Neo4j database (default: server default)")
	f.BoolVar(&flagNeo4jClean, "clean", false, "remove previously loaded units and state slots first")
	f.BoolVar(&flagSkipIndexes, "skip-indexes", false, "do not create lookup indexes")

	exportCmd.AddCommand(exportJSONCmd)
	exportCmd.AddCommand(exportYAMLCmd)
	exportCmd.AddCommand(exportHTMLCmd)
	exportCmd.AddCommand(exportNeo4jCmd)
}

// loadRunGraph opens the store and loads one run with its graph.
func loadRunGraph() (*compgraph.Run, *compgraph.Graph, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	defer s.Close()

	q := compgraph.NewQueryBuilder(s)
	run, err := q.Run(flagRun)
	if err != nil {
		return nil, nil, err
	}
	g, err := q.Graph(run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, g, nil
}

// withOutput runs write against the --out file, or stdout when unset.
func withOutput(write func(w io.Writer) error) error {
	if flagExportOut == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(flagExportOut)
	if err != nil {
		return fmt.Errorf("creating %s: %w", flagExportOut, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var exportJSONCmd = &cobra.Command{
	Use:   "json",
	Short: "Write the graph as {nodes, links, stateVariables} JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, g, err := loadRunGraph()
		if err != nil {
			return outputError("export json", err)
		}
		err = withOutput(func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		})
		if err != nil {
			return outputError("export json", err)
		}
		return nil
	},
}

var exportYAMLCmd = &cobra.Command{
	Use:   "yaml",
	Short: "Write the graph as YAML with the JSON field names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, g, err := loadRunGraph()
		if err != nil {
			return outputError("export yaml", err)
		}
		err = withOutput(func(w io.Writer) error {
			return encodeGraphYAML(w, g)
		})
		if err != nil {
			return outputError("export yaml", err)
		}
		return nil
	},
}

// encodeGraphYAML writes g as YAML keyed by its JSON field names.
func encodeGraphYAML(w io.Writer, g *compgraph.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	return enc.Close()
}

var exportHTMLCmd = &cobra.Command{
	Use:   "html",
	Short: "Write an interactive force-directed view of the graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		run, g, err := loadRunGraph()
		if err != nil {
			return outputError("export html", err)
		}
		title := flagHTMLTitle
		if title == "" {
			title = filepath.Base(run.Root)
		}
		err = withOutput(func(w io.Writer) error {
			return export.RenderHTML(w, g, title)
		})
		if err != nil {
			return outputError("export html", err)
		}
		return nil
	},
}

var exportNeo4jCmd = &cobra.Command{
	Use:   "neo4j",
	Short: "Load the graph into a Neo4j database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		run, g, err := loadRunGraph()
		if err != nil {
			return outputError("export neo4j", err)
		}

		o := export.Neo4jOptions{
			URI:      firstNonEmpty(flagNeo4jURI, cfg.Neo4j.URI),
			User:     firstNonEmpty(flagNeo4jUser, cfg.Neo4j.User),
			Password: firstNonEmpty(flagNeo4jPass, cfg.Neo4j.Password),
			Database: firstNonEmpty(flagNeo4jDB, cfg.Neo4j.Database),
		}
		ctx := cmd.Context()
		loader, err := export.NewNeo4jLoader(ctx, o, logger)
		if err != nil {
			return outputError("export neo4j", err)
		}
		defer loader.Close(ctx)

		if !flagSkipIndexes {
			if err := loader.CreateIndexes(ctx); err != nil {
				return outputError("export neo4j", err)
			}
		}
		if flagNeo4jClean {
			if err := loader.Clean(ctx); err != nil {
				return outputError("export neo4j", err)
			}
		}
		if err := loader.LoadGraph(ctx, g); err != nil {
			return outputError("export neo4j", err)
		}

		fmt.Fprintf(os.Stderr, "Loaded run %d into %s\n", run.ID, o.URI)
		summary := statsToCLI(compgraph.Summarize(g))
		r := runToCLI(run)
		summary.Run = &r
		return outputResult(CLIResult{Command: "export neo4j", Results: summary})
	},
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var validateCmd = &cobra.Command{
	Use:   "validate <file.json>",
	Short: "Check a graph JSON file against the output schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return outputError("validate", fmt.Errorf("reading %s: %w", path, err))
	}

	err = export.ValidateJSON(data)
	var verr *export.ValidationError
	switch {
	case err == nil:
		return outputResult(CLIResult{
			Command: "validate",
			Results: CLIValidation{File: path, Valid: true},
		})
	case errors.As(err, &verr):
		errorHandled = true
		if outErr := outputResult(CLIResult{
			Command: "validate",
			Results: CLIValidation{File: path, Valid: false, Violations: verr.Violations},
		}); outErr != nil {
			return outErr
		}
		return err
	default:
		return outputError("validate", err)
	}
}
