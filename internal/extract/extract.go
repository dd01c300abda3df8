// Package extract implements the file-local first pass: unit classification,
// local import extraction and state slot detection.
//
// Everything here works on one file at a time and never looks at other
// files, so an Extractor can be shared by any number of goroutines.
package extract

import (
	"strings"

	"github.com/jward/compgraph/internal/graph"
	"github.com/jward/compgraph/internal/lexer"
)

// DefaultAliases are the import specifier prefixes treated as project-root
// aliases when no others are configured.
var DefaultAliases = []string{"@/"}

// Extractor runs the first pass over single files.
type Extractor struct {
	aliases []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithAliases replaces the project-root alias prefixes. Relative specifiers
// (starting with ".") are always local. Empty prefixes are ignored.
func WithAliases(aliases ...string) Option {
	return func(x *Extractor) {
		x.aliases = x.aliases[:0]
		for _, a := range aliases {
			if a = strings.TrimSpace(a); a != "" {
				x.aliases = append(x.aliases, a)
			}
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	x := &Extractor{aliases: append([]string(nil), DefaultAliases...)}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Aliases returns the configured alias prefixes.
func (x *Extractor) Aliases() []string {
	return append([]string(nil), x.aliases...)
}

// Facts is everything the first pass learns about one file.
type Facts struct {
	Path string
	// Unit is nil when the file matches no detection rule. Its ID is
	// derived from Path; the engine may replace it to resolve collisions.
	Unit *graph.Unit
	// Slots are the state slots declared in the file, owned by Unit.
	Slots []graph.StateSlot
	// Markup indexes the raw text of files that produced a unit.
	Markup *lexer.MarkupIndex
}

// HasUnit reports whether the file produced a unit.
func (f *Facts) HasUnit() bool {
	return f != nil && f.Unit != nil
}

// File runs the first pass over f. Files with empty content produce facts
// without a unit.
func (x *Extractor) File(f graph.SourceFile) *Facts {
	facts := &Facts{Path: f.Path}
	if f.Content == "" {
		return facts
	}
	toks := lexer.Scan(lexer.StripComments(f.Content))
	u := classifyTokens(toks, f.Path)
	if u == nil {
		return facts
	}
	u.Imports = x.importsFromTokens(toks)
	facts.Unit = u
	facts.Slots = slotsFromTokens(toks, u)
	facts.Markup = lexer.IndexMarkup(f.Content)
	return facts
}

// Classify detects the unit declared by text. It returns nil when nothing
// matches. Imports are left empty; use File for the full first pass.
func Classify(text, path string) *graph.Unit {
	return classifyTokens(lexer.Scan(lexer.StripComments(text)), path)
}

// Imports returns the local imported names of text in order of appearance.
func (x *Extractor) Imports(text string) []string {
	return x.importsFromTokens(lexer.Scan(lexer.StripComments(text)))
}

// StateSlots returns the state slots declared in text, owned by owner.
func StateSlots(text string, owner graph.Unit) []graph.StateSlot {
	return slotsFromTokens(lexer.Scan(lexer.StripComments(text)), &owner)
}

func (x *Extractor) isLocal(spec string) bool {
	if strings.HasPrefix(spec, ".") {
		return true
	}
	for _, a := range x.aliases {
		if strings.HasPrefix(spec, a) {
			return true
		}
	}
	return false
}
