// Package graph holds the component dependency graph model shared by every
// stage of the analysis, and the assembler that turns first- and second-pass
// output into the final graph.
package graph

import (
	"path"
	"strings"
)

// Kind is the category of a detected unit.
type Kind string

const (
	KindComponent Kind = "component"
	KindHook      Kind = "hook"
	KindUtility   Kind = "util"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindComponent, KindHook, KindUtility:
		return true
	}
	return false
}

// ParseKind maps user input ("component", "hook", "util" or "utility") to a
// Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "component":
		return KindComponent, true
	case "hook":
		return KindHook, true
	case "util", "utility":
		return KindUtility, true
	}
	return "", false
}

// SourceFile is one input record supplied by the retrieval collaborator.
type SourceFile struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
}

// Unit is a detected component, hook or utility module. One file yields at
// most one Unit.
type Unit struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Kind       Kind     `json:"type"`
	FilePath   string   `json:"filePath"`
	Imports    []string `json:"imports"`
	Exports    []string `json:"exports"`
	UsesState  bool     `json:"usesState"`
	UsesEffect bool     `json:"usesEffect"`
	UsesProps  bool     `json:"usesProps"`
	// Degree counts the edges touching the unit. Only set by Assemble.
	Degree int `json:"complexity"`
}

// Clone returns a deep copy of u.
func (u Unit) Clone() Unit {
	u.Imports = cloneStrings(u.Imports)
	u.Exports = cloneStrings(u.Exports)
	return u
}

// Edge is a directed relationship: Source imports or renders Target.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Props  []string `json:"props,omitempty"`
}

// Clone returns a deep copy of e.
func (e Edge) Clone() Edge {
	if e.Props != nil {
		e.Props = cloneStrings(e.Props)
	}
	return e
}

// StateSlot is a value/updater pair created by a state initializer inside a
// unit, plus the units that receive the value as a passed parameter.
type StateSlot struct {
	Name      string   `json:"name"`
	Setter    string   `json:"setterName"`
	OwnerID   string   `json:"sourceComponentId"`
	OwnerName string   `json:"sourceComponentName"`
	Consumers []string `json:"consumers"`
}

// AddConsumer records id as a consumer. Adding the same id twice has no
// effect. It reports whether id was new.
func (s *StateSlot) AddConsumer(id string) bool {
	for _, c := range s.Consumers {
		if c == id {
			return false
		}
	}
	s.Consumers = append(s.Consumers, id)
	return true
}

// HasConsumer reports whether id consumes the slot.
func (s StateSlot) HasConsumer(id string) bool {
	for _, c := range s.Consumers {
		if c == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of s. Consumers is never nil in the copy.
func (s StateSlot) Clone() StateSlot {
	s.Consumers = cloneStrings(s.Consumers)
	return s
}

// Graph is the analysis result handed to downstream consumers.
type Graph struct {
	Nodes          []Unit      `json:"nodes"`
	Links          []Edge      `json:"links"`
	StateVariables []StateSlot `json:"stateVariables"`
}

// Empty reports whether the analysis found no connected units.
func (g *Graph) Empty() bool {
	return g == nil || len(g.Nodes) == 0
}

// UnitID derives a unit ID from a file path by removing the extension of
// the final path element.
func UnitID(filePath string) string {
	ext := path.Ext(filePath)
	if ext == "" || ext == filePath || strings.HasSuffix(filePath, "/"+ext) {
		return filePath
	}
	return strings.TrimSuffix(filePath, ext)
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
