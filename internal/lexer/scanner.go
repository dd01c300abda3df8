// Package lexer turns JavaScript / TypeScript source text into the small
// token stream the unit classifier and import extractor work on, and indexes
// markup invocation sites for the usage linker.
//
// Nothing here builds a syntax tree. The scanner only knows enough about the
// language to keep identifiers, strings and operators apart.
package lexer

import "strings"

// Kind classifies a Token.
type Kind uint8

const (
	Ident  Kind = iota + 1 // identifiers and keywords
	Punct                  // operators and delimiters
	Arrow                  // =>
	String                 // quoted or template literal; Text holds the body
	Number
)

func (k Kind) String() string {
	switch k {
	case Ident:
		return "ident"
	case Punct:
		return "punct"
	case Arrow:
		return "arrow"
	case String:
		return "string"
	case Number:
		return "number"
	}
	return "unknown"
}

// Token is a single lexical element with its byte offset in the scanned text.
type Token struct {
	Kind   Kind
	Text   string
	Offset int
}

// Is reports whether t is a token of kind k with text s.
func (t Token) Is(k Kind, s string) bool {
	return t.Kind == k && t.Text == s
}

// multiPunct lists operators scanned as one token, longest first.
var multiPunct = []string{
	"===", "!==", "...",
	"==", "!=", "<=", ">=", "?.", "??", "&&", "||",
}

// Scan tokenizes src. Whitespace is dropped. Unterminated strings run to the
// end of their line (quotes) or the end of the input (template literals).
func Scan(src string) []Token {
	s := scanner{src: src}
	return s.run()
}

type scanner struct {
	src  string
	pos  int
	toks []Token
}

func (s *scanner) run() []Token {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case isIdentStart(c):
			s.ident()
		case isDigit(c):
			s.number()
		case c == '"' || c == '\'':
			s.quoted(c)
		case c == '`':
			s.template()
		default:
			s.punct()
		}
	}
	return s.toks
}

func (s *scanner) emit(k Kind, text string, start int) {
	s.toks = append(s.toks, Token{Kind: k, Text: text, Offset: start})
}

func (s *scanner) ident() {
	start := s.pos
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	s.emit(Ident, s.src[start:s.pos], start)
}

func (s *scanner) number() {
	start := s.pos
	for s.pos < len(s.src) && (isIdentPart(s.src[s.pos]) || s.src[s.pos] == '.') {
		s.pos++
	}
	s.emit(Number, s.src[start:s.pos], start)
}

func (s *scanner) quoted(q byte) {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.pos += 2
			continue
		case c == q:
			s.emit(String, s.src[start+1:s.pos], start)
			s.pos++
			return
		case c == '\n' || c == '\r':
			s.emit(String, s.src[start+1:s.pos], start)
			return
		}
		s.pos++
	}
	s.pos = len(s.src)
	s.emit(String, s.src[start+1:], start)
}

func (s *scanner) template() {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' {
			s.pos += 2
			continue
		}
		if c == '`' {
			s.emit(String, s.src[start+1:s.pos], start)
			s.pos++
			return
		}
		s.pos++
	}
	s.pos = len(s.src)
	s.emit(String, s.src[start+1:], start)
}

func (s *scanner) punct() {
	start := s.pos
	rest := s.src[s.pos:]
	if strings.HasPrefix(rest, "=>") {
		s.pos += 2
		s.emit(Arrow, "=>", start)
		return
	}
	for _, op := range multiPunct {
		if strings.HasPrefix(rest, op) {
			s.pos += len(op)
			s.emit(Punct, op, start)
			return
		}
	}
	s.pos++
	s.emit(Punct, s.src[start:s.pos], start)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$' || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// isWordChar mirrors the \w class: identifier characters without '$'.
func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || isDigit(c)
}
