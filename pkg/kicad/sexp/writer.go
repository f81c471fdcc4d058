package sexp

import (
	"bytes"
	"strings"
)

// Bytes renders the document. Subtrees that were never mutated are copied
// verbatim from the source buffer, so an untouched element round-trips
// byte-identical no matter how it was formatted. Dirty lists re-emit their
// own parentheses and separators: children keep the trivia recorded at parse
// time, and synthesized children are indented in canonical KiCad style.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(d.leading)
	d.render(&buf, d.root, 0)
	buf.WriteString(d.trailing)
	return buf.Bytes()
}

func (d *Document) render(buf *bytes.Buffer, node Sexp, depth int) {
	switch n := node.(type) {
	case Atom:
		if start, end := n.span(); start >= 0 && end <= len(d.src) {
			buf.Write(d.src[start:end])
			return
		}
		buf.WriteString(n.String())

	case *List:
		if !n.dirty {
			if start, end := n.span(); start >= 0 && end <= len(d.src) {
				buf.Write(d.src[start:end])
				return
			}
		}
		d.renderDirty(buf, n, depth)
	}
}

func (d *Document) renderDirty(buf *bytes.Buffer, l *List, depth int) {
	buf.WriteByte('(')

	hasChildLists := false
	for i, child := range l.children {
		sep := ""
		if i < len(l.trivia) {
			sep = l.trivia[i]
		}
		if sep == "" && i > 0 && synthesized(child) {
			sep = defaultSeparator(child, depth)
		}
		if _, ok := child.(*List); ok {
			hasChildLists = true
		}
		buf.WriteString(sep)
		d.render(buf, child, depth+1)
	}

	closing := l.closeTrivia
	if closing == "" && hasChildLists {
		closing = "\n" + indent(depth)
	}
	buf.WriteString(closing)
	buf.WriteByte(')')
}

// synthesized reports whether a node was built in memory rather than parsed,
// in which case it has no recorded source span or trivia.
func synthesized(node Sexp) bool {
	start, _ := node.span()
	return start < 0
}

// defaultSeparator picks the trivia for a child that was inserted after
// parsing: atoms continue the current line, nested lists start a new one.
func defaultSeparator(child Sexp, depth int) string {
	if child.IsLeaf() {
		return " "
	}
	return "\n" + indent(depth+1)
}

func indent(depth int) string {
	return strings.Repeat("\t", depth)
}

// String renders the list inline with single spaces. Diagnostic use only;
// document output goes through Document.Bytes.
func (l *List) String() string {
	parts := make([]string, len(l.children))
	for i, c := range l.children {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}
