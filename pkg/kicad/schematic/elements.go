package schematic

import (
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// Label is a handle bound to a local or global net label.
type Label struct {
	sch    *Schematic
	node   *sexp.List
	global bool
}

// Text returns the net name the label carries.
func (l *Label) Text() string {
	t, _ := sexp.GetString(l.node, 1)
	return t
}

// Global reports whether this is a global label rather than a local one.
func (l *Label) Global() bool { return l.global }

// Position returns the label anchor position.
func (l *Label) Position() sexp.Position {
	if node, found := sexp.FindList(l.node, "at"); found {
		x, _ := sexp.GetFloat(node, 1)
		y, _ := sexp.GetFloat(node, 2)
		return sexp.Position{X: x, Y: y}
	}
	return sexp.Position{}
}

// Angle returns the label rotation in degrees.
func (l *Label) Angle() sexp.Angle {
	if node, found := sexp.FindList(l.node, "at"); found {
		if a, err := sexp.GetFloat(node, 3); err == nil {
			return sexp.Angle(a)
		}
	}
	return 0
}

// UUID returns the label identity token.
func (l *Label) UUID() string {
	if node, found := sexp.FindList(l.node, "uuid"); found {
		u, _ := sexp.GetString(node, 1)
		return u
	}
	return ""
}

// SetText rewrites the net name, leaving position and styling untouched.
func (l *Label) SetText(text string) {
	l.node.SetString(1, text)
}

// Wire is a read handle for one wire segment.
type Wire struct {
	node *sexp.List
}

// Points returns the polyline points of the wire.
func (w *Wire) Points() []sexp.Position {
	var pts []sexp.Position
	if node, found := sexp.FindList(w.node, "pts"); found {
		for _, xy := range sexp.FindAllLists(node, "xy") {
			x, _ := sexp.GetFloat(xy, 1)
			y, _ := sexp.GetFloat(xy, 2)
			pts = append(pts, sexp.Position{X: x, Y: y})
		}
	}
	return pts
}

// UUID returns the wire identity token.
func (w *Wire) UUID() string {
	if node, found := sexp.FindList(w.node, "uuid"); found {
		u, _ := sexp.GetString(node, 1)
		return u
	}
	return ""
}

// Junction is a read handle for a wire junction dot.
type Junction struct {
	node *sexp.List
}

// Position returns the junction position.
func (j *Junction) Position() sexp.Position {
	if node, found := sexp.FindList(j.node, "at"); found {
		x, _ := sexp.GetFloat(node, 1)
		y, _ := sexp.GetFloat(node, 2)
		return sexp.Position{X: x, Y: y}
	}
	return sexp.Position{}
}

// NoConnect is a read handle for a no-connect marker.
type NoConnect struct {
	node *sexp.List
}

// Position returns the marker position.
func (nc *NoConnect) Position() sexp.Position {
	if node, found := sexp.FindList(nc.node, "at"); found {
		x, _ := sexp.GetFloat(node, 1)
		y, _ := sexp.GetFloat(node, 2)
		return sexp.Position{X: x, Y: y}
	}
	return sexp.Position{}
}

// Sheet is a read handle for a hierarchical sheet reference.
type Sheet struct {
	node *sexp.List
}

// Name returns the sheet name (the "Sheetname" property).
func (sh *Sheet) Name() string {
	return sh.property("Sheetname")
}

// FileName returns the referenced file (the "Sheetfile" property).
func (sh *Sheet) FileName() string {
	return sh.property("Sheetfile")
}

// Position returns the sheet outline origin.
func (sh *Sheet) Position() sexp.Position {
	if node, found := sexp.FindList(sh.node, "at"); found {
		x, _ := sexp.GetFloat(node, 1)
		y, _ := sexp.GetFloat(node, 2)
		return sexp.Position{X: x, Y: y}
	}
	return sexp.Position{}
}

// Size returns the sheet outline dimensions.
func (sh *Sheet) Size() sexp.Size {
	if node, found := sexp.FindList(sh.node, "size"); found {
		w, _ := sexp.GetFloat(node, 1)
		h, _ := sexp.GetFloat(node, 2)
		return sexp.Size{Width: w, Height: h}
	}
	return sexp.Size{}
}

// UUID returns the sheet identity token.
func (sh *Sheet) UUID() string {
	if node, found := sexp.FindList(sh.node, "uuid"); found {
		u, _ := sexp.GetString(node, 1)
		return u
	}
	return ""
}

func (sh *Sheet) property(key string) string {
	for _, n := range sexp.FindAllLists(sh.node, "property") {
		if k, err := sexp.GetString(n, 1); err == nil && k == key {
			v, _ := sexp.GetString(n, 2)
			return v
		}
	}
	return ""
}
