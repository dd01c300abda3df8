package lexer

import "strings"

// StripComments removes block comments and then line comments from src.
//
// The removal is purely textual: a "//" inside a string literal (a URL, for
// example) also truncates the rest of its line. An unterminated "/*" is left
// in place.
func StripComments(src string) string {
	return stripLineComments(stripBlockComments(src))
}

func stripBlockComments(src string) string {
	if !strings.Contains(src, "/*") {
		return src
	}
	var b strings.Builder
	b.Grow(len(src))
	rest := src
	for {
		open := strings.Index(rest, "/*")
		if open < 0 {
			break
		}
		end := strings.Index(rest[open+2:], "*/")
		if end < 0 {
			break
		}
		b.WriteString(rest[:open])
		rest = rest[open+2+end+2:]
	}
	b.WriteString(rest)
	return b.String()
}

func stripLineComments(src string) string {
	if !strings.Contains(src, "//") {
		return src
	}
	var b strings.Builder
	b.Grow(len(src))
	rest := src
	for {
		open := strings.Index(rest, "//")
		if open < 0 {
			break
		}
		b.WriteString(rest[:open])
		rest = rest[open:]
		eol := strings.IndexAny(rest, "\r\n")
		if eol < 0 {
			rest = ""
			break
		}
		rest = rest[eol:]
	}
	b.WriteString(rest)
	return b.String()
}
