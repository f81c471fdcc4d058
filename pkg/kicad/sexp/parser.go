package sexp

import (
	"fmt"
	"os"
)

// Document is a parsed file: one root list plus the trivia around it and the
// original source buffer that clean subtrees render from.
type Document struct {
	root     *List
	src      []byte
	leading  string // trivia before the root's opening paren
	trailing string // trivia after the root's closing paren
}

// Root returns the document's top-level list, e.g. (kicad_sch ...).
func (d *Document) Root() *List { return d.root }

// Parse parses a complete KiCad document from a source buffer. Exactly one
// top-level list is expected, which is what every KiCad file format provides.
func Parse(src []byte) (*Document, error) {
	lx := newLexer(src)

	tok, err := lx.next()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokenEOF {
		return nil, fmt.Errorf("empty document")
	}
	if tok.kind != tokenLeftParen {
		return nil, fmt.Errorf("expected '(' at offset %d, got %q", tok.start, tok.text)
	}

	doc := &Document{src: src, leading: tok.trivia}
	root, err := parseList(lx, tok)
	if err != nil {
		return nil, err
	}
	doc.root = root

	end, err := lx.next()
	if err != nil {
		return nil, err
	}
	if end.kind != tokenEOF {
		return nil, fmt.Errorf("unexpected content after document root at offset %d", end.start)
	}
	doc.trailing = end.trivia

	return doc, nil
}

// ParseFile reads and parses a document from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// parseList consumes tokens following an already-read '(' and builds the
// list node, recording each child's leading trivia and the list's span.
func parseList(lx *lexer, open token) (*List, error) {
	l := &List{start: open.start, end: -1}

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}

		switch tok.kind {
		case tokenRightParen:
			l.closeTrivia = tok.trivia
			l.end = tok.end
			return l, nil

		case tokenEOF:
			return nil, fmt.Errorf("unterminated list starting at offset %d", open.start)

		case tokenLeftParen:
			sub, err := parseList(lx, tok)
			if err != nil {
				return nil, err
			}
			sub.parent = l
			l.children = append(l.children, sub)
			l.trivia = append(l.trivia, tok.trivia)

		case tokenSymbol:
			l.children = append(l.children, Atom{Text: tok.text, Quoted: false, start: tok.start, end: tok.end})
			l.trivia = append(l.trivia, tok.trivia)

		case tokenString:
			l.children = append(l.children, Atom{Text: tok.text, Quoted: true, start: tok.start, end: tok.end})
			l.trivia = append(l.trivia, tok.trivia)
		}
	}
}
