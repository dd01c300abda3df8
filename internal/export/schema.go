package export

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jward/compgraph/internal/graph"
)

//go:embed graph.schema.json
var graphSchema []byte

// GraphSchema returns the JSON schema of the serialized graph.
func GraphSchema() []byte {
	out := make([]byte, len(graphSchema))
	copy(out, graphSchema)
	return out
}

// ErrInvalidGraph is wrapped by every schema violation report.
var ErrInvalidGraph = errors.New("graph does not match schema")

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d violation(s): %s",
		ErrInvalidGraph, len(e.Violations), strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidGraph }

// ValidateJSON checks data against the graph schema. It returns a
// *ValidationError when the document is well-formed JSON but violates the
// schema.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(graphSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate graph: %w", err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, re.String())
	}
	return &ValidationError{Violations: violations}
}

// ValidateGraph serializes g and validates it.
func ValidateGraph(g *graph.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	return ValidateJSON(data)
}
