package extract

import "github.com/jward/compgraph/internal/lexer"

// importsFromTokens walks every import declaration and returns the bound
// names of the local ones. Type-only declarations and entries, namespace
// imports and side-effect imports contribute nothing.
func (x *Extractor) importsFromTokens(toks []lexer.Token) []string {
	names := []string{}
	for i := 0; i < len(toks); i++ {
		if !toks[i].Is(lexer.Ident, "import") {
			continue
		}
		decl, next := parseImport(toks, i+1)
		i = next - 1
		if decl.spec == "" || !x.isLocal(decl.spec) {
			continue
		}
		names = append(names, decl.names...)
	}
	return names
}

type importDecl struct {
	names []string
	spec  string
}

// parseImport parses the declaration following an "import" keyword at i. It
// returns the declaration and the index to resume scanning at. A zero spec
// means the tokens did not form a static import with bindings.
func parseImport(toks []lexer.Token, i int) (importDecl, int) {
	var decl importDecl
	t := at(toks, i)

	if t.Is(lexer.Ident, "type") && !at(toks, i+1).Is(lexer.Ident, "from") {
		return decl, i + 1
	}

	if t.Kind == lexer.Ident && t.Text != "from" {
		decl.names = append(decl.names, t.Text)
		i++
		if !at(toks, i).Is(lexer.Punct, ",") {
			return withSpec(decl, toks, i)
		}
		i++
		t = at(toks, i)
	}

	switch {
	case t.Is(lexer.Punct, "{"):
		named, next := namedList(toks, i+1)
		decl.names = append(decl.names, named...)
		return withSpec(decl, toks, next)
	case t.Is(lexer.Punct, "*"):
		// * as ns
		return withSpec(decl, toks, i+3)
	}
	return importDecl{}, i
}

// withSpec expects "from 'spec'" at i.
func withSpec(decl importDecl, toks []lexer.Token, i int) (importDecl, int) {
	if !at(toks, i).Is(lexer.Ident, "from") || at(toks, i+1).Kind != lexer.String {
		return importDecl{}, i
	}
	decl.spec = toks[i+1].Text
	return decl, i + 2
}

// namedList parses "a, b as c, type D }" starting after the "{". It returns
// the original names and the index after the closing "}".
func namedList(toks []lexer.Token, i int) ([]string, int) {
	var names []string
	entry := []lexer.Token{}
	flush := func() {
		if name, ok := importedName(entry); ok {
			names = append(names, name)
		}
		entry = entry[:0]
	}
	for ; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Is(lexer.Punct, "}"):
			flush()
			return names, i + 1
		case t.Is(lexer.Punct, ","):
			flush()
		case t.Kind == lexer.Ident || t.Kind == lexer.String:
			entry = append(entry, t)
		default:
			// Anything else means this was not an import list.
			return nil, i
		}
	}
	return nil, i
}

// importedName returns the original name of one list entry: "a" or
// "a as b". Type entries ("type a", "type a as b") are skipped.
func importedName(entry []lexer.Token) (string, bool) {
	switch {
	case len(entry) == 1:
		return entry[0].Text, true
	case len(entry) == 3 && entry[1].Is(lexer.Ident, "as"):
		return entry[0].Text, true
	}
	return "", false
}
