package extract

import (
	"github.com/jward/compgraph/internal/graph"
	"github.com/jward/compgraph/internal/lexer"
)

// slotsFromTokens finds "const [value, setter] = useState" declarations
// (also let / var and React.useState). Consumers start empty.
func slotsFromTokens(toks []lexer.Token, owner *graph.Unit) []graph.StateSlot {
	var slots []graph.StateSlot
	for i := range toks {
		if !isDeclKeyword(toks[i]) || !at(toks, i+1).Is(lexer.Punct, "[") {
			continue
		}
		value, comma, setter, closing := at(toks, i+2), at(toks, i+3), at(toks, i+4), at(toks, i+5)
		if value.Kind != lexer.Ident || !comma.Is(lexer.Punct, ",") || setter.Kind != lexer.Ident || !closing.Is(lexer.Punct, "]") {
			continue
		}
		if !at(toks, i+6).Is(lexer.Punct, "=") {
			continue
		}
		init := i + 7
		if at(toks, init).Is(lexer.Ident, "React") && at(toks, init+1).Is(lexer.Punct, ".") {
			init += 2
		}
		if !at(toks, init).Is(lexer.Ident, "useState") {
			continue
		}
		slots = append(slots, graph.StateSlot{
			Name:      value.Text,
			Setter:    setter.Text,
			OwnerID:   owner.ID,
			OwnerName: owner.Name,
			Consumers: []string{},
		})
	}
	return slots
}
