package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	badColor    = color.New(color.FgRed)
	mutedColor  = color.New(color.FgYellow)
)

// newTable returns a borderless table that writes to w on Render.
func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false
	return tbl
}

func flagMark(b bool) string {
	if b {
		return "x"
	}
	return ""
}

// formatRunsText formats stored runs as a table.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"ID", "CREATED", "ROOT", "FILES", "UNITS", "EDGES", "SLOTS", "TOOK"})
	for _, r := range runs {
		tbl.AppendRow(table.Row{
			r.ID,
			humanize.Time(r.CreatedAt),
			r.Root,
			humanize.Comma(int64(r.FileCount)),
			humanize.Comma(int64(r.UnitCount)),
			humanize.Comma(int64(r.EdgeCount)),
			humanize.Comma(int64(r.SlotCount)),
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
		})
	}
	tbl.Render()
}

// formatUnitsText formats units as a table. Traversal depth is shown when
// present.
func formatUnitsText(w io.Writer, units []CLIUnit) {
	withDepth := len(units) > 0 && units[0].Depth != nil
	tbl := newTable(w)
	header := table.Row{"ID", "NAME", "KIND", "DEGREE", "STATE", "EFFECT", "PROPS"}
	if withDepth {
		header = append(table.Row{"DEPTH"}, header...)
	}
	tbl.AppendHeader(header)
	for _, u := range units {
		row := table.Row{u.ID, u.Name, u.Kind, u.Degree, flagMark(u.UsesState), flagMark(u.UsesEffect), flagMark(u.UsesProps)}
		if withDepth {
			depth := 0
			if u.Depth != nil {
				depth = *u.Depth
			}
			row = append(table.Row{depth}, row...)
		}
		tbl.AppendRow(row)
	}
	tbl.Render()
}

// formatEdgesText formats edges as a table.
func formatEdgesText(w io.Writer, edges []CLIEdge) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"SOURCE", "TARGET", "PROPS"})
	for _, e := range edges {
		tbl.AppendRow(table.Row{e.Source, e.Target, strings.Join(e.Props, ", ")})
	}
	tbl.Render()
}

// formatSlotsText formats state slots as a table.
func formatSlotsText(w io.Writer, slots []CLIStateSlot) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"NAME", "SETTER", "OWNER", "CONSUMERS"})
	for _, s := range slots {
		tbl.AppendRow(table.Row{s.Name, s.Setter, s.Owner, strings.Join(s.Consumers, ", ")})
	}
	tbl.Render()
}

// formatUnitDetailText formats a unit and its neighborhood.
func formatUnitDetailText(w io.Writer, d CLIUnitDetail) {
	u := d.Unit
	headerColor.Fprintf(w, "%s (%s)\n", u.ID, u.Kind)
	fmt.Fprintf(w, "Name: %s\n", u.Name)
	fmt.Fprintf(w, "File: %s\n", u.File)
	fmt.Fprintf(w, "Degree: %d\n", u.Degree)
	if len(u.Exports) > 0 {
		fmt.Fprintf(w, "Exports: %s\n", strings.Join(u.Exports, ", "))
	}
	if len(u.Imports) > 0 {
		fmt.Fprintf(w, "Imports: %s\n", strings.Join(u.Imports, ", "))
	}
	sections := []struct {
		title string
		edges []CLIEdge
	}{
		{"Used by", d.Incoming},
		{"Uses", d.Outgoing},
	}
	for _, s := range sections {
		if len(s.edges) == 0 {
			continue
		}
		fmt.Fprintln(w)
		headerColor.Fprintln(w, s.title+":")
		formatEdgesText(w, s.edges)
	}
	if len(d.Owned) > 0 {
		fmt.Fprintln(w)
		headerColor.Fprintln(w, "Owns state:")
		formatSlotsText(w, d.Owned)
	}
	if len(d.Consumed) > 0 {
		fmt.Fprintln(w)
		headerColor.Fprintln(w, "Receives state:")
		formatSlotsText(w, d.Consumed)
	}
}

// formatGraphText formats a subgraph.
func formatGraphText(w io.Writer, g CLIGraph) {
	if g.Root != "" {
		headerColor.Fprintf(w, "%s (depth %d)\n", g.Root, g.Depth)
	}
	formatUnitsText(w, g.Units)
	if len(g.Edges) > 0 {
		fmt.Fprintln(w)
		formatEdgesText(w, g.Edges)
	}
	if len(g.State) > 0 {
		fmt.Fprintln(w)
		formatSlotsText(w, g.State)
	}
}

// formatDiffText formats a run comparison with +/- markers.
func formatDiffText(w io.Writer, d CLIDiff) {
	headerColor.Fprintf(w, "Run %d -> run %d\n", d.From, d.To)
	empty := true
	for _, u := range d.AddedUnits {
		okColor.Fprintf(w, "+ unit %s (%s)\n", u.ID, u.Kind)
		empty = false
	}
	for _, u := range d.RemovedUnits {
		badColor.Fprintf(w, "- unit %s (%s)\n", u.ID, u.Kind)
		empty = false
	}
	for _, c := range d.ChangedUnits {
		mutedColor.Fprintf(w, "~ unit %s: %s/%d -> %s/%d\n", c.ID, c.FromKind, c.FromDegree, c.ToKind, c.ToDegree)
		empty = false
	}
	for _, e := range d.AddedEdges {
		okColor.Fprintf(w, "+ edge %s -> %s\n", e.Source, e.Target)
		empty = false
	}
	for _, e := range d.RemovedEdges {
		badColor.Fprintf(w, "- edge %s -> %s\n", e.Source, e.Target)
		empty = false
	}
	if empty {
		fmt.Fprintln(w, "No changes")
	}
}

// formatSummaryText formats analysis counts.
func formatSummaryText(w io.Writer, s CLISummary) {
	headerColor.Fprintln(w, "Component Graph Summary")
	fmt.Fprintln(w, "=======================")
	if s.Run != nil {
		fmt.Fprintf(w, "Run: %d (%s)\n", s.Run.ID, humanize.Time(s.Run.CreatedAt))
	}
	fmt.Fprintf(w, "Units: %s\n", humanize.Comma(int64(s.Units)))
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %s\n", k, humanize.Comma(int64(s.ByKind[k])))
	}
	fmt.Fprintf(w, "Edges: %s\n", humanize.Comma(int64(s.Edges)))
	fmt.Fprintf(w, "State slots: %s (%s flows)\n", humanize.Comma(int64(s.StateSlots)), humanize.Comma(int64(s.Flows)))
	fmt.Fprintf(w, "Max degree: %d\n", s.MaxDegree)
	if s.Output != "" {
		fmt.Fprintf(w, "Graph JSON: %s\n", s.Output)
	}
	if s.HTML != "" {
		fmt.Fprintf(w, "HTML view: %s\n", s.HTML)
	}
}

// formatValidationText reports a schema check.
func formatValidationText(w io.Writer, v CLIValidation) {
	if v.Valid {
		okColor.Fprintf(w, "Graph is valid (%s)\n", v.File)
		return
	}
	badColor.Fprintf(w, "Graph validation failed (%s)\n", v.File)
	fmt.Fprintf(w, "\n%s:\n", english.Plural(len(v.Violations), "Violation", "Violations"))
	for _, msg := range v.Violations {
		badColor.Fprintf(w, "  - %s\n", msg)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLIRun:
		formatRunsText(w, v)
	case CLIRun:
		formatRunsText(w, []CLIRun{v})
	case []CLIUnit:
		formatUnitsText(w, v)
	case []CLIEdge:
		formatEdgesText(w, v)
	case []CLIStateSlot:
		formatSlotsText(w, v)
	case CLIUnitDetail:
		formatUnitDetailText(w, v)
	case CLIGraph:
		formatGraphText(w, v)
	case CLIDiff:
		formatDiffText(w, v)
	case CLISummary:
		formatSummaryText(w, v)
	case CLIValidation:
		formatValidationText(w, v)
	case nil:
		// No output for nil results (e.g., unknown unit).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %s results\n", shown, humanize.Comma(int64(count)))
		}
	}

	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIRun:
		return len(r)
	case []CLIUnit:
		return len(r)
	case []CLIEdge:
		return len(r)
	case []CLIStateSlot:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// writeResult encodes result to w in the selected structured format.
func writeResult(w io.Writer, format string, result CLIResult) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

// outputResult writes a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	return writeResult(os.Stdout, string(flagFormat), result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON and YAML mode the error is written to
// stdout as a CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	_ = writeResult(os.Stdout, string(flagFormat), CLIResult{
		Command: command,
		Error:   err.Error(),
	})
	return err
}
