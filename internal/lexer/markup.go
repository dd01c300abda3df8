package lexer

import "strings"

// Site is one markup invocation: "<Name" followed by whitespace, "/" or ">".
type Site struct {
	Name   string
	Offset int
	// Attrs is the attribute region between the name and the closing ">",
	// trailing "/" removed. Empty when the tag never closes.
	Attrs  string
	Closed bool
}

// MarkupIndex holds every markup site of one text, grouped by tag name.
// Sites of the same name are kept in text order.
type MarkupIndex struct {
	byName map[string][]Site
	count  int
}

// IndexMarkup scans raw source text (comments included) for markup sites.
func IndexMarkup(src string) *MarkupIndex {
	idx := &MarkupIndex{byName: make(map[string][]Site)}
	for i := 0; i < len(src); i++ {
		if src[i] != '<' || i+1 >= len(src) || !isIdentStart(src[i+1]) {
			continue
		}
		end := i + 1
		for end < len(src) && isIdentPart(src[end]) {
			end++
		}
		if end >= len(src) || !isTagBoundary(src[end]) {
			continue
		}
		name := src[i+1 : end]
		attrs, closed := attributeRegion(src, end)
		idx.byName[name] = append(idx.byName[name], Site{
			Name:   name,
			Offset: i,
			Attrs:  attrs,
			Closed: closed,
		})
		idx.count++
		// Nested markup inside attribute expressions is found by
		// continuing right after the tag name.
		i = end - 1
	}
	return idx
}

// Len returns the total number of sites.
func (m *MarkupIndex) Len() int {
	if m == nil {
		return 0
	}
	return m.count
}

// Has reports whether name is invoked at least once.
func (m *MarkupIndex) Has(name string) bool {
	if m == nil {
		return false
	}
	return len(m.byName[name]) > 0
}

// First returns the first site of name in text order.
func (m *MarkupIndex) First(name string) (Site, bool) {
	if m == nil {
		return Site{}, false
	}
	sites := m.byName[name]
	if len(sites) == 0 {
		return Site{}, false
	}
	return sites[0], true
}

// Sites returns every site of name in text order. The slice must not be
// modified.
func (m *MarkupIndex) Sites(name string) []Site {
	if m == nil {
		return nil
	}
	return m.byName[name]
}

func isTagBoundary(c byte) bool {
	return isSpace(c) || c == '/' || c == '>'
}

// attributeRegion returns the text from start up to the ">" that closes the
// tag. Braces nest expressions; quoted strings and template literals inside
// them are skipped so "=>" or ">" in an expression does not end the tag.
func attributeRegion(src string, start int) (string, bool) {
	depth := 0
	i := start
	for i < len(src) {
		c := src[i]
		switch {
		case c == '{':
			depth++
		case c == '}':
			if depth > 0 {
				depth--
			}
		case c == '"' || c == '\'':
			i = skipString(src, i, c)
			continue
		case c == '`' && depth > 0:
			i = skipString(src, i, c)
			continue
		case c == '>' && depth == 0:
			region := strings.TrimRight(src[start:i], " \t\r\n")
			region = strings.TrimSuffix(region, "/")
			return strings.TrimRight(region, " \t\r\n"), true
		}
		i++
	}
	return "", false
}

// skipString returns the offset just past the literal opened at src[i].
func skipString(src string, i int, q byte) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return len(src)
}

// excludedAttrs are structural or presentational attributes that never count
// as passed parameters.
var excludedAttrs = map[string]bool{
	"key":       true,
	"ref":       true,
	"className": true,
	"class":     true,
	"style":     true,
	"children":  true,
}

// IsExcludedAttr reports whether name is one of the structural attributes
// dropped from passed parameters.
func IsExcludedAttr(name string) bool {
	return excludedAttrs[name]
}

// AttributeNames returns every "name =" in an attribute region, outside
// expression braces and string literals, in order of appearance. Names are
// plain identifiers: "data-id=" yields "id".
func AttributeNames(region string) []string {
	var names []string
	depth := 0
	i := 0
	for i < len(region) {
		c := region[i]
		switch {
		case c == '{':
			depth++
			i++
		case c == '}':
			if depth > 0 {
				depth--
			}
			i++
		case c == '"' || c == '\'' || c == '`':
			i = skipString(region, i, c)
		case depth == 0 && isIdentStart(c):
			start := i
			for i < len(region) && isIdentPart(region[i]) {
				i++
			}
			name := region[start:i]
			j := i
			for j < len(region) && isSpace(region[j]) {
				j++
			}
			if j < len(region) && region[j] == '=' && (j+1 >= len(region) || region[j+1] != '=' && region[j+1] != '>') {
				names = append(names, name)
			}
		default:
			i++
		}
	}
	return names
}

// ContainsIdent reports whether name occurs in text as a whole word.
func ContainsIdent(text, name string) bool {
	if name == "" {
		return false
	}
	for from := 0; from <= len(text)-len(name); {
		k := strings.Index(text[from:], name)
		if k < 0 {
			return false
		}
		at := from + k
		end := at + len(name)
		before := at == 0 || !isWordChar(text[at-1])
		after := end == len(text) || !isWordChar(text[end])
		if before && after {
			return true
		}
		from = at + 1
	}
	return false
}
