// Package selector implements the key=value selector-chain grammar from
// spec.md §4.B: lexing, parsing, node matching, chain resolution, and
// canonical selector synthesis for auto-healing. The lexer/parser shape
// follows the teacher's internal/filter where-expression engine, adapted
// from a boolean query language to the selector-chain grammar.
package selector

import (
	"fmt"
	"strings"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokString
	tokEquals
	tokOr // "||"
)

type token struct {
	typ tokenType
	val string
	pos int
}

// lex splits a single segment-or-chain string into key/value/operator
// tokens. Quoted values ("..." or '...') honor backslash escapes (the
// backslash is dropped, the escaped character kept); unquoted values run
// until the next whitespace, '=' or "||".
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	n := len(input)

	for i < n {
		ch := input[i]
		if isSpace(ch) {
			i++
			continue
		}
		if ch == '|' && i+1 < n && input[i+1] == '|' {
			toks = append(toks, token{typ: tokOr, pos: i})
			i += 2
			continue
		}
		if ch == '=' {
			toks = append(toks, token{typ: tokEquals, pos: i})
			i++
			continue
		}
		if ch == '"' || ch == '\'' {
			val, next, err := lexQuoted(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{typ: tokString, val: val, pos: i})
			i = next
			continue
		}

		start := i
		for i < n && !isDelimiter(input, i) {
			i++
		}
		if i == start {
			return nil, fmt.Errorf("unexpected character %q at %d", input[start], start)
		}
		toks = append(toks, token{typ: tokIdent, val: input[start:i], pos: start})
	}

	toks = append(toks, token{typ: tokEOF, pos: n})
	return toks, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// isDelimiter reports whether input[i] starts a new token: whitespace,
// '=', or the two-character "||" fallback operator.
func isDelimiter(input string, i int) bool {
	b := input[i]
	if isSpace(b) || b == '=' {
		return true
	}
	if b == '|' && i+1 < len(input) && input[i+1] == '|' {
		return true
	}
	return false
}

// lexQuoted reads a "..."  or '...' literal starting at start, honoring
// backslash escapes, and returns the unescaped value plus the index just
// past the closing quote.
func lexQuoted(input string, start int) (string, int, error) {
	quote := input[start]
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		if c == '\\' && i+1 < len(input) {
			b.WriteByte(input[i+1])
			i += 2
			continue
		}
		if c == quote {
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("unclosed quote starting at %d", start)
}
