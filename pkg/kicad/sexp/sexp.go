// Package sexp implements the S-expression document format used by KiCad
// files (.kicad_sch, .kicad_pcb) as a lossless, editable tree.
//
// Unlike a plain parser, every node remembers its byte span in the source
// buffer and every list child keeps the whitespace that preceded it. A
// document that is parsed and rendered without modification is byte-identical
// to its input, and mutating one element never reformats its siblings. This
// is what lets a synchronization pass rewrite two properties deep inside a
// 40k-line schematic while the rest of the file survives untouched.
package sexp

// Sexp is a node in the document tree: either an Atom or a *List.
type Sexp interface {
	// IsLeaf returns true for atoms.
	IsLeaf() bool

	// String renders the node in canonical style, ignoring source
	// formatting. Rendering with source fidelity goes through
	// Document.Bytes.
	String() string

	span() (start, end int)
}

// Atom is a leaf token: a bare symbol, a number, or a quoted string.
// Atoms are immutable; to change a value, replace the atom in its list.
type Atom struct {
	Text   string // decoded text (escapes resolved for quoted atoms)
	Quoted bool   // true if the source token was a quoted string

	start, end int
}

// NewAtom creates a bare (unquoted) atom, used for keywords and numbers.
func NewAtom(text string) Atom {
	return Atom{Text: text, Quoted: false, start: -1, end: -1}
}

// NewQuoted creates a quoted-string atom. The text is stored decoded;
// escaping happens at render time.
func NewQuoted(text string) Atom {
	return Atom{Text: text, Quoted: true, start: -1, end: -1}
}

func (a Atom) IsLeaf() bool { return true }

func (a Atom) String() string {
	if a.Quoted || needsQuoting(a.Text) {
		return Quote(a.Text)
	}
	return a.Text
}

func (a Atom) span() (int, int) { return a.start, a.end }

// List is an ordered sequence of child nodes. Each child carries the trivia
// (whitespace and comments) that separated it from the previous token in the
// source; synthesized children have empty trivia and are indented by the
// renderer.
type List struct {
	children    []Sexp
	trivia      []string // leading trivia per child; "" means synthesized
	closeTrivia string   // trivia before the closing paren
	parent      *List

	start, end int
	dirty      bool
}

// NewList creates a detached, synthesized list with the given children.
func NewList(children ...Sexp) *List {
	l := &List{start: -1, end: -1, dirty: true}
	for _, c := range children {
		l.adopt(c)
		l.children = append(l.children, c)
		l.trivia = append(l.trivia, "")
	}
	return l
}

func (l *List) IsLeaf() bool { return false }

func (l *List) span() (int, int) { return l.start, l.end }

// Len returns the number of children.
func (l *List) Len() int { return len(l.children) }

// Get returns the child at index, or nil when out of range.
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.children) {
		return nil
	}
	return l.children[index]
}

// Name returns the list's leading symbol ("symbol", "property", "at", ...)
// or "" when the list is empty or starts with a nested list.
func (l *List) Name() string {
	if len(l.children) == 0 {
		return ""
	}
	if a, ok := l.children[0].(Atom); ok && !a.Quoted {
		return a.Text
	}
	return ""
}

// Children returns the child slice. Callers must not modify it directly;
// use the mutation methods so dirty tracking stays correct.
func (l *List) Children() []Sexp { return l.children }

func (l *List) adopt(c Sexp) {
	if sub, ok := c.(*List); ok {
		sub.parent = l
	}
}

// markDirty flags this list and its spine up to the root. A dirty list is
// re-rendered from its children; clean subtrees still print from source.
func (l *List) markDirty() {
	for n := l; n != nil && !n.dirty; n = n.parent {
		n.dirty = true
	}
}
