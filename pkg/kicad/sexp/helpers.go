package sexp

import (
	"fmt"
	"strconv"
)

// Navigation helpers shared by the schematic and board layers. Index 0 of a
// list is its keyword; values start at index 1.

// FindNode returns the first child list whose keyword matches key, or the
// bare atom itself for flag-style children like (symbol ... hide ...).
func FindNode(s Sexp, key string) (Sexp, bool) {
	l, ok := s.(*List)
	if !ok {
		return nil, false
	}
	for _, child := range l.children {
		switch c := child.(type) {
		case Atom:
			if !c.Quoted && c.Text == key {
				return c, true
			}
		case *List:
			if c.Name() == key {
				return c, true
			}
		}
	}
	return nil, false
}

// FindList returns the first child list with the given keyword.
func FindList(s Sexp, key string) (*List, bool) {
	l, ok := s.(*List)
	if !ok {
		return nil, false
	}
	for _, child := range l.children {
		if c, ok := child.(*List); ok && c.Name() == key {
			return c, true
		}
	}
	return nil, false
}

// FindAllLists returns every child list with the given keyword, in order.
func FindAllLists(s Sexp, key string) []*List {
	l, ok := s.(*List)
	if !ok {
		return nil
	}
	var out []*List
	for _, child := range l.children {
		if c, ok := child.(*List); ok && c.Name() == key {
			out = append(out, c)
		}
	}
	return out
}

// GetString extracts the atom text at the given index, quoted or bare.
func GetString(s Sexp, index int) (string, error) {
	l, ok := s.(*List)
	if !ok {
		return "", fmt.Errorf("expected list, got leaf")
	}
	child := l.Get(index)
	if child == nil {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, l.Len())
	}
	a, ok := child.(Atom)
	if !ok {
		return "", fmt.Errorf("expected atom at index %d, got list", index)
	}
	return a.Text, nil
}

// GetFloat extracts a float64 value at the given index.
func GetFloat(s Sexp, index int) (float64, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}
	return val, nil
}

// GetInt extracts an int value at the given index.
func GetInt(s Sexp, index int) (int, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}
	return val, nil
}

// HasFlag reports whether the list contains either a bare atom with the
// given name or a (name yes) child, the two spellings KiCad uses for
// boolean markers such as dnp and hide.
func HasFlag(s Sexp, name string) bool {
	node, found := FindNode(s, name)
	if !found {
		return false
	}
	if _, ok := node.(Atom); ok {
		return true
	}
	val, err := GetString(node, 1)
	return err == nil && val == "yes"
}

// FormatFloat renders a coordinate the way KiCad writes them: a plain
// decimal with trailing zeros trimmed, never scientific notation.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	// Trim trailing zeros but keep at least one digit after a bare minus.
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 1 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
