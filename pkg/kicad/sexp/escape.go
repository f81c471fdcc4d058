package sexp

import (
	"fmt"
	"strings"
)

// Quote renders a string as a quoted s-expression token. Backslashes,
// double quotes, and control characters are escaped; all other content,
// including multi-byte Unicode, passes through untouched. Control
// characters without a short form come out as \xHH.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// needsQuoting reports whether a token cannot be emitted bare. Bare tokens
// end at whitespace, parens, or quotes, so anything containing those (or
// nothing at all) must be quoted.
func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	if strings.ContainsAny(s, `() "\`) {
		return true
	}
	for _, r := range s {
		if r < 0x20 {
			return true
		}
	}
	return false
}
