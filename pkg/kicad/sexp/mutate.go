package sexp

// Mutation methods. Every edit marks the spine from the edited list up to
// the root dirty, which is what switches rendering from source-span copy to
// re-emission for exactly the affected path.

// Append adds a child at the end of the list.
func (l *List) Append(child Sexp) {
	l.adopt(child)
	l.children = append(l.children, child)
	l.trivia = append(l.trivia, "")
	l.markDirty()
}

// InsertAfter inserts a child after the given index. An index of -1 inserts
// at the front.
func (l *List) InsertAfter(index int, child Sexp) {
	if index < -1 || index >= len(l.children) {
		l.Append(child)
		return
	}
	l.adopt(child)
	at := index + 1
	l.children = append(l.children, nil)
	copy(l.children[at+1:], l.children[at:])
	l.children[at] = child
	l.trivia = append(l.trivia, "")
	copy(l.trivia[at+1:], l.trivia[at:])
	l.trivia[at] = ""
	l.markDirty()
}

// RemoveChild removes the child at the given index along with its leading
// trivia. Removing an element this way leaves no blank hole in the output.
func (l *List) RemoveChild(index int) {
	if index < 0 || index >= len(l.children) {
		return
	}
	l.children = append(l.children[:index], l.children[index+1:]...)
	l.trivia = append(l.trivia[:index], l.trivia[index+1:]...)
	l.markDirty()
}

// RemoveNode removes the first child identical to the given node; used to
// detach an element handle's subtree from its parent.
func (l *List) RemoveNode(node Sexp) bool {
	for i, c := range l.children {
		if c == node {
			l.RemoveChild(i)
			return true
		}
	}
	return false
}

// ReplaceChild swaps the child at index for a new node, keeping the original
// separator so an in-place value edit does not disturb the line layout.
func (l *List) ReplaceChild(index int, child Sexp) {
	if index < 0 || index >= len(l.children) {
		return
	}
	l.adopt(child)
	l.children[index] = child
	l.markDirty()
}

// SetString replaces the child at index with a quoted-string atom.
func (l *List) SetString(index int, text string) {
	l.ReplaceChild(index, NewQuoted(text))
}

// SetSymbol replaces the child at index with a bare atom (keyword, number).
func (l *List) SetSymbol(index int, text string) {
	l.ReplaceChild(index, NewAtom(text))
}
