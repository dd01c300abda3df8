package extract

import (
	"github.com/jward/compgraph/internal/graph"
	"github.com/jward/compgraph/internal/lexer"
)

// maxAnnotation bounds how far a type annotation between a declared name and
// its "=" is followed.
const maxAnnotation = 64

// classifyTokens applies the detection rules in precedence order: component,
// then hook, then utility.
func classifyTokens(toks []lexer.Token, path string) *graph.Unit {
	var (
		kind  graph.Kind
		names []string
	)
	if names = componentNames(toks); len(names) > 0 {
		kind = graph.KindComponent
	} else if name := hookName(toks); name != "" {
		kind, names = graph.KindHook, []string{name}
	} else if names = utilityNames(toks); len(names) > 0 {
		kind = graph.KindUtility
	} else {
		return nil
	}

	u := &graph.Unit{
		ID:         graph.UnitID(path),
		Name:       names[0],
		Kind:       kind,
		FilePath:   path,
		Imports:    []string{},
		Exports:    names,
		UsesState:  usesState(toks),
		UsesEffect: usesEffect(toks),
	}
	if kind != graph.KindUtility {
		u.UsesProps = usesProps(toks)
	}
	return u
}

// componentNames collects arrow declarations, then function declarations,
// then class declarations, de-duplicated in that order.
func componentNames(toks []lexer.Token) []string {
	var arrows, funcs, classes []string
	for i := range toks {
		switch {
		case isDeclKeyword(toks[i]):
			name := at(toks, i+1)
			if name.Kind != lexer.Ident || !isComponentName(name.Text) {
				continue
			}
			if eq, ok := assignment(toks, i+2); ok && arrowFunction(toks, eq+1) {
				arrows = append(arrows, name.Text)
			}
		case toks[i].Is(lexer.Ident, "function"):
			name := at(toks, i+1)
			if name.Kind == lexer.Ident && isComponentName(name.Text) && at(toks, i+2).Is(lexer.Punct, "(") {
				funcs = append(funcs, name.Text)
			}
		case toks[i].Is(lexer.Ident, "class"):
			name := at(toks, i+1)
			if name.Kind == lexer.Ident && isComponentName(name.Text) && extendsComponent(toks, i+2) {
				classes = append(classes, name.Text)
			}
		}
	}
	return dedupe(append(append(arrows, funcs...), classes...))
}

// hookName returns the first hook function declaration, or failing that the
// first hook variable declaration.
func hookName(toks []lexer.Token) string {
	for i := range toks {
		if !toks[i].Is(lexer.Ident, "function") {
			continue
		}
		name := at(toks, i+1)
		if name.Kind == lexer.Ident && isHookName(name.Text) && at(toks, i+2).Is(lexer.Punct, "(") {
			return name.Text
		}
	}
	for i := range toks {
		if !isDeclKeyword(toks[i]) {
			continue
		}
		name := at(toks, i+1)
		if name.Kind != lexer.Ident || !isHookName(name.Text) {
			continue
		}
		if _, ok := assignment(toks, i+2); ok {
			return name.Text
		}
	}
	return ""
}

// utilityNames collects exported lowercase functions, then exported
// lowercase variables.
func utilityNames(toks []lexer.Token) []string {
	var funcs, vars []string
	for i := range toks {
		if !toks[i].Is(lexer.Ident, "export") {
			continue
		}
		j := i + 1
		if at(toks, j).Is(lexer.Ident, "async") {
			j++
		}
		if at(toks, j).Is(lexer.Ident, "function") {
			name := at(toks, j+1)
			if name.Kind == lexer.Ident && isUtilityName(name.Text) && at(toks, j+2).Is(lexer.Punct, "(") {
				funcs = append(funcs, name.Text)
			}
			continue
		}
		if isDeclKeyword(at(toks, i+1)) {
			name := at(toks, i+2)
			if name.Kind != lexer.Ident || !isUtilityName(name.Text) {
				continue
			}
			if _, ok := assignment(toks, i+3); ok {
				vars = append(vars, name.Text)
			}
		}
	}
	return dedupe(append(funcs, vars...))
}

// assignment reports the index of the "=" that follows a declared name,
// skipping an optional ": Type" annotation. A ">=" closing a generic
// annotation counts as the "=".
func assignment(toks []lexer.Token, i int) (int, bool) {
	t := at(toks, i)
	if t.Is(lexer.Punct, "=") {
		return i, true
	}
	if !t.Is(lexer.Punct, ":") {
		return 0, false
	}
	depth := 0
	for j := i + 1; j < len(toks) && j <= i+maxAnnotation; j++ {
		t := toks[j]
		if t.Kind == lexer.Ident && (isDeclKeyword(t) || t.Text == "function") {
			return 0, false
		}
		if t.Kind != lexer.Punct {
			continue
		}
		switch t.Text {
		case "(", "[", "{", "<":
			depth++
		case ")", "]", "}", ">":
			depth--
		case ">=":
			if depth == 1 {
				return j, true
			}
		case "=":
			if depth == 0 {
				return j, true
			}
		case ";":
			return 0, false
		}
		if depth < 0 {
			return 0, false
		}
	}
	return 0, false
}

// arrowFunction reports whether an arrow function starts at i: a
// parenthesized parameter list or a single identifier, an optional return
// type annotation, then "=>".
func arrowFunction(toks []lexer.Token, i int) bool {
	t := at(toks, i)
	if t.Kind == lexer.Ident {
		return at(toks, i+1).Kind == lexer.Arrow
	}
	if !t.Is(lexer.Punct, "(") {
		return false
	}
	closing := matchParen(toks, i)
	if closing < 0 {
		return false
	}
	next := at(toks, closing+1)
	if next.Kind == lexer.Arrow {
		return true
	}
	if !next.Is(lexer.Punct, ":") {
		return false
	}
	depth := 0
	for j := closing + 2; j < len(toks) && j <= closing+1+maxAnnotation; j++ {
		switch tok := toks[j]; {
		case tok.Kind == lexer.Arrow && depth == 0:
			return true
		case tok.Is(lexer.Punct, "(") || tok.Is(lexer.Punct, "<") || tok.Is(lexer.Punct, "["):
			depth++
		case tok.Is(lexer.Punct, ")") || tok.Is(lexer.Punct, ">") || tok.Is(lexer.Punct, "]"):
			depth--
		case tok.Is(lexer.Punct, "{") || tok.Is(lexer.Punct, ";") || tok.Is(lexer.Punct, "="):
			return false
		}
		if depth < 0 {
			return false
		}
	}
	return false
}

// matchParen returns the index of the ")" balancing the "(" at i, or -1.
func matchParen(toks []lexer.Token, i int) int {
	depth := 0
	for j := i; j < len(toks); j++ {
		switch {
		case toks[j].Is(lexer.Punct, "("):
			depth++
		case toks[j].Is(lexer.Punct, ")"):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func extendsComponent(toks []lexer.Token, i int) bool {
	if !at(toks, i).Is(lexer.Ident, "extends") {
		return false
	}
	base := at(toks, i+1)
	if base.Is(lexer.Ident, "React") && at(toks, i+2).Is(lexer.Punct, ".") {
		base = at(toks, i+3)
	}
	return base.Is(lexer.Ident, "Component") || base.Is(lexer.Ident, "PureComponent")
}

func usesState(toks []lexer.Token) bool {
	for _, t := range toks {
		if t.Is(lexer.Ident, "useState") {
			return true
		}
	}
	return false
}

func usesEffect(toks []lexer.Token) bool {
	for _, t := range toks {
		if t.Is(lexer.Ident, "useEffect") || t.Is(lexer.Ident, "useLayoutEffect") {
			return true
		}
	}
	return false
}

// usesProps looks for "props." access, a destructured parameter list "({"
// or a "} = props" destructuring.
func usesProps(toks []lexer.Token) bool {
	for i, t := range toks {
		next := at(toks, i+1)
		switch {
		case t.Is(lexer.Ident, "props") && (next.Is(lexer.Punct, ".") || next.Is(lexer.Punct, "?.")):
			return true
		case t.Is(lexer.Punct, "(") && next.Is(lexer.Punct, "{"):
			return true
		case t.Is(lexer.Punct, "}") && next.Is(lexer.Punct, "=") && at(toks, i+2).Is(lexer.Ident, "props"):
			return true
		}
	}
	return false
}

// at returns toks[i], or the zero Token when i is out of range.
func at(toks []lexer.Token, i int) lexer.Token {
	if i < 0 || i >= len(toks) {
		return lexer.Token{}
	}
	return toks[i]
}

func isDeclKeyword(t lexer.Token) bool {
	return t.Kind == lexer.Ident && (t.Text == "const" || t.Text == "let" || t.Text == "var")
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

func isAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isUpper(c) && !isLower(c) && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// isComponentName matches [A-Z][A-Za-z0-9]*.
func isComponentName(s string) bool {
	return s != "" && isUpper(s[0]) && isAlnum(s)
}

// isHookName matches use[A-Z][A-Za-z0-9]*.
func isHookName(s string) bool {
	return len(s) > 3 && s[:3] == "use" && isUpper(s[3]) && isAlnum(s)
}

// isUtilityName matches [a-z][A-Za-z0-9]*.
func isUtilityName(s string) bool {
	return s != "" && isLower(s[0]) && isAlnum(s)
}

func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
