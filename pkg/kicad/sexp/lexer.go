package sexp

import (
	"fmt"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenLeftParen
	tokenRightParen
	tokenSymbol
	tokenString
)

type token struct {
	kind   tokenKind
	text   string // decoded value for tokenString, raw text otherwise
	trivia string // whitespace/comments between the previous token and this one
	start  int    // byte offset of the token itself (after trivia)
	end    int    // byte offset one past the token
}

// lexer tokenizes a source buffer, keeping byte offsets so the parser can
// record exact spans, and capturing inter-token trivia for the renderer.
type lexer struct {
	src []byte
	pos int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src}
}

// next returns the next token. Trivia (spaces, tabs, newlines and #-comments
// running to end of line) is attached to the token that follows it.
func (l *lexer) next() (token, error) {
	triviaStart := l.pos
	l.skipTrivia()
	trivia := string(l.src[triviaStart:l.pos])

	if l.pos >= len(l.src) {
		return token{kind: tokenEOF, trivia: trivia, start: l.pos, end: l.pos}, nil
	}

	start := l.pos
	switch l.src[l.pos] {
	case '(':
		l.pos++
		return token{kind: tokenLeftParen, text: "(", trivia: trivia, start: start, end: l.pos}, nil
	case ')':
		l.pos++
		return token{kind: tokenRightParen, text: ")", trivia: trivia, start: start, end: l.pos}, nil
	case '"':
		return l.readString(trivia)
	default:
		return l.readSymbol(trivia)
	}
}

func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) readString(trivia string) (token, error) {
	start := l.pos
	l.pos++ // opening quote

	var out []byte
	for {
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("unterminated string at offset %d", start)
		}
		c := l.src[l.pos]

		if c == '"' {
			l.pos++
			return token{kind: tokenString, text: string(out), trivia: trivia, start: start, end: l.pos}, nil
		}

		if c == '\\' {
			if l.pos+1 >= len(l.src) {
				return token{}, fmt.Errorf("dangling backslash at offset %d", l.pos)
			}
			l.pos++
			switch l.src[l.pos] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '\\':
				out = append(out, '\\')
			case '"':
				out = append(out, '"')
			case 'x':
				if l.pos+2 < len(l.src) {
					hi, okHi := hexVal(l.src[l.pos+1])
					lo, okLo := hexVal(l.src[l.pos+2])
					if okHi && okLo {
						out = append(out, hi<<4|lo)
						l.pos += 2
						break
					}
				}
				out = append(out, '\\', 'x')
			default:
				// Unknown escape: keep it verbatim, KiCad does the same.
				out = append(out, '\\', l.src[l.pos])
			}
			l.pos++
			continue
		}

		out = append(out, c)
		l.pos++
	}
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (l *lexer) readSymbol(trivia string) (token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRune(l.src[l.pos:])
		if r == '(' || r == ')' || r == '"' ||
			r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v' {
			break
		}
		l.pos += size
	}
	if l.pos == start {
		return token{}, fmt.Errorf("empty symbol at offset %d", start)
	}
	return token{kind: tokenSymbol, text: string(l.src[start:l.pos]), trivia: trivia, start: start, end: l.pos}, nil
}
