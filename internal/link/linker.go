// Package link implements the second pass: usage edges between units and
// state flow into the units that receive a slot's value.
//
// A Linker is built once from the complete first-pass output and is
// read-only afterwards. Link may be called from many goroutines at once;
// each call only reads the shared snapshot and returns its own Result.
package link

import (
	"strings"

	"github.com/jward/compgraph/internal/extract"
	"github.com/jward/compgraph/internal/graph"
	"github.com/jward/compgraph/internal/lexer"
)

// Linker links source files against the full set of first-pass units.
type Linker struct {
	targets []graph.Unit
	slots   []graph.StateSlot
}

// New snapshots the first-pass units and state slots. Both are copied.
func New(units []graph.Unit, slots []graph.StateSlot) *Linker {
	l := &Linker{
		targets: make([]graph.Unit, len(units)),
		slots:   make([]graph.StateSlot, len(slots)),
	}
	for i, u := range units {
		l.targets[i] = u.Clone()
	}
	for i, s := range slots {
		l.slots[i] = s.Clone()
	}
	return l
}

// Result is the second-pass output of one source file.
type Result struct {
	Edges []graph.Edge
	Flows []Flow
}

// Link evaluates the source file against every other unit, in first-pass
// order. Files without a unit produce an empty Result.
func (l *Linker) Link(src *extract.Facts) Result {
	var res Result
	if !src.HasUnit() {
		return res
	}
	self := src.Unit
	imported := make(map[string]bool, len(self.Imports))
	for _, name := range self.Imports {
		imported[name] = true
	}

	for _, target := range l.targets {
		if target.ID == self.ID {
			continue
		}
		sites := src.Markup.Sites(target.Name)
		if !imported[target.Name] && len(sites) == 0 {
			continue
		}
		res.Edges = append(res.Edges, graph.Edge{
			Source: self.ID,
			Target: target.ID,
			Props:  passedProps(sites),
		})
		res.Flows = append(res.Flows, l.flows(target.ID, sites)...)
	}
	return res
}

// passedProps returns the attribute names of the first site that carries an
// attribute region, structural attributes removed. Bare "<Name>" openings
// are skipped. It returns nil when nothing remains.
func passedProps(sites []lexer.Site) []string {
	var first *lexer.Site
	for i := range sites {
		if strings.TrimSpace(sites[i].Attrs) != "" {
			first = &sites[i]
			break
		}
	}
	if first == nil {
		return nil
	}
	var props []string
	for _, name := range lexer.AttributeNames(first.Attrs) {
		if !lexer.IsExcludedAttr(name) {
			props = append(props, name)
		}
	}
	return props
}
