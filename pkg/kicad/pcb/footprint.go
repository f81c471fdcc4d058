package pcb

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// Footprint is a handle bound to one placed footprint. Reads walk the
// underlying node; mutations edit it in place.
type Footprint struct {
	board *Board
	node  *sexp.List
}

// LibID returns the footprint library identifier
// (e.g. "Resistor_SMD:R_0603_1608Metric").
func (f *Footprint) LibID() string {
	id, _ := sexp.GetString(f.node, 1)
	return id
}

// Layer returns the placement layer ("F.Cu" or "B.Cu").
func (f *Footprint) Layer() string {
	if node, found := sexp.FindList(f.node, "layer"); found {
		l, _ := sexp.GetString(node, 1)
		return l
	}
	return ""
}

// Position returns the footprint anchor position on the board.
func (f *Footprint) Position() sexp.Position {
	if node, found := sexp.FindList(f.node, "at"); found {
		x, _ := sexp.GetFloat(node, 1)
		y, _ := sexp.GetFloat(node, 2)
		return sexp.Position{X: x, Y: y}
	}
	return sexp.Position{}
}

// Angle returns the footprint rotation in degrees.
func (f *Footprint) Angle() sexp.Angle {
	if node, found := sexp.FindList(f.node, "at"); found {
		if a, err := sexp.GetFloat(node, 3); err == nil {
			return sexp.Angle(a)
		}
	}
	return 0
}

// UUID returns the footprint identity token.
func (f *Footprint) UUID() string {
	if node, found := sexp.FindList(f.node, "uuid"); found {
		u, _ := sexp.GetString(node, 1)
		return u
	}
	// KiCad 6 wrote tstamp instead of uuid.
	if node, found := sexp.FindList(f.node, "tstamp"); found {
		u, _ := sexp.GetString(node, 1)
		return u
	}
	return ""
}

// Reference returns the reference designator ("R1").
func (f *Footprint) Reference() string {
	v, _ := f.Property("Reference")
	return v
}

// Value returns the value field ("10k").
func (f *Footprint) Value() string {
	v, _ := f.Property("Value")
	return v
}

// Property returns the named property value and whether it exists.
// Boards before KiCad 8 carry Reference/Value as fp_text nodes instead;
// both spellings are read.
func (f *Footprint) Property(key string) (string, bool) {
	for _, n := range sexp.FindAllLists(f.node, "property") {
		if k, err := sexp.GetString(n, 1); err == nil && k == key {
			v, err := sexp.GetString(n, 2)
			return v, err == nil
		}
	}
	if kind := fpTextKind(key); kind != "" {
		for _, n := range sexp.FindAllLists(f.node, "fp_text") {
			if k, err := sexp.GetString(n, 1); err == nil && k == kind {
				v, err := sexp.GetString(n, 2)
				return v, err == nil
			}
		}
	}
	return "", false
}

// DNP reports the do-not-populate flag. Boards spell it as a bare token
// inside the (attr ...) list.
func (f *Footprint) DNP() bool {
	return f.HasAttr("dnp")
}

// HasAttr reports whether the (attr ...) list contains the given token
// (smd, through_hole, dnp, exclude_from_bom, ...).
func (f *Footprint) HasAttr(name string) bool {
	attr, found := sexp.FindList(f.node, "attr")
	if !found {
		return false
	}
	for i := 1; i < attr.Len(); i++ {
		if a, ok := attr.Get(i).(sexp.Atom); ok && a.Text == name {
			return true
		}
	}
	return false
}

// SetReference rewrites the reference designator in place.
func (f *Footprint) SetReference(ref string) {
	f.setProperty("Reference", ref)
}

// SetValue rewrites the value field in place.
func (f *Footprint) SetValue(value string) {
	f.setProperty("Value", value)
}

// setProperty rewrites the value atom of an existing property or fp_text
// node, creating a property node when neither exists. The node's own
// (at ...) is never touched, so an edit never moves text on the board.
func (f *Footprint) setProperty(key, value string) {
	for _, n := range sexp.FindAllLists(f.node, "property") {
		if k, err := sexp.GetString(n, 1); err == nil && k == key {
			n.SetString(2, value)
			return
		}
	}
	if kind := fpTextKind(key); kind != "" {
		for _, n := range sexp.FindAllLists(f.node, "fp_text") {
			if k, err := sexp.GetString(n, 1); err == nil && k == kind {
				n.SetString(2, value)
				return
			}
		}
	}

	pos := f.Position()
	f.node.Append(sexp.NewList(
		sexp.NewAtom("property"), sexp.NewQuoted(key), sexp.NewQuoted(value),
		sexp.NewList(sexp.NewAtom("at"),
			sexp.NewAtom(sexp.FormatFloat(pos.X)),
			sexp.NewAtom(sexp.FormatFloat(pos.Y)),
			sexp.NewAtom("0")),
		sexp.NewList(sexp.NewAtom("layer"), sexp.NewQuoted("F.Fab")),
		sexp.NewList(sexp.NewAtom("effects"),
			sexp.NewList(sexp.NewAtom("font"),
				sexp.NewList(sexp.NewAtom("size"), sexp.NewAtom("1.27"), sexp.NewAtom("1.27")))),
	))
}

// SetDNP adds or removes the dnp token in the (attr ...) list.
func (f *Footprint) SetDNP(dnp bool) {
	attr, found := sexp.FindList(f.node, "attr")
	if !found {
		if !dnp {
			return
		}
		f.node.Append(sexp.NewList(sexp.NewAtom("attr"), sexp.NewAtom("dnp")))
		return
	}
	for i := 1; i < attr.Len(); i++ {
		if a, ok := attr.Get(i).(sexp.Atom); ok && a.Text == "dnp" {
			if !dnp {
				attr.RemoveChild(i)
			}
			return
		}
	}
	if dnp {
		attr.Append(sexp.NewAtom("dnp"))
	}
}

// SetPosition moves the footprint anchor, leaving rotation untouched.
func (f *Footprint) SetPosition(pos sexp.Position) {
	node, found := sexp.FindList(f.node, "at")
	if !found {
		f.node.Append(sexp.NewList(sexp.NewAtom("at"),
			sexp.NewAtom(sexp.FormatFloat(pos.X)),
			sexp.NewAtom(sexp.FormatFloat(pos.Y))))
		return
	}
	node.SetSymbol(1, sexp.FormatFloat(pos.X))
	node.SetSymbol(2, sexp.FormatFloat(pos.Y))
}

// SetAngle rotates the footprint in place, leaving position untouched.
func (f *Footprint) SetAngle(angle sexp.Angle) {
	node, found := sexp.FindList(f.node, "at")
	if !found {
		pos := f.Position()
		f.node.Append(sexp.NewList(sexp.NewAtom("at"),
			sexp.NewAtom(sexp.FormatFloat(pos.X)),
			sexp.NewAtom(sexp.FormatFloat(pos.Y)),
			sexp.NewAtom(sexp.FormatFloat(float64(angle)))))
		return
	}
	if node.Len() > 3 {
		node.SetSymbol(3, sexp.FormatFloat(float64(angle)))
	} else {
		node.Append(sexp.NewAtom(sexp.FormatFloat(float64(angle))))
	}
}

// padHalfExtent is the half-size assumed for footprints with no pads.
const padHalfExtent = 1.27

// Bounds estimates the board-space bounding box of the footprint from its
// pad positions and sizes. Footprints with no pads get a fixed-size box
// around their anchor.
func (f *Footprint) Bounds() sexp.BoundingBox {
	pos := f.Position()
	rad := float64(f.Angle()) * math.Pi / 180.0
	cos, sin := math.Cos(rad), math.Sin(rad)

	box := sexp.NewBoundingBox()
	for _, pad := range sexp.FindAllLists(f.node, "pad") {
		at, found := sexp.FindList(pad, "at")
		if !found {
			continue
		}
		px, _ := sexp.GetFloat(at, 1)
		py, _ := sexp.GetFloat(at, 2)

		halfW, halfH := padHalfExtent, padHalfExtent
		if size, found := sexp.FindList(pad, "size"); found {
			w, _ := sexp.GetFloat(size, 1)
			h, _ := sexp.GetFloat(size, 2)
			halfW, halfH = w/2, h/2
		}

		// Footprint angle rotates pad offsets; KiCad board Y grows down
		// and footprint rotation is counter-clockwise.
		rx := px*cos + py*sin
		ry := -px*sin + py*cos
		half := math.Max(halfW, halfH)
		box.Expand(sexp.Position{X: pos.X + rx - half, Y: pos.Y + ry - half})
		box.Expand(sexp.Position{X: pos.X + rx + half, Y: pos.Y + ry + half})
	}

	if box.IsEmpty() {
		box.Expand(sexp.Position{X: pos.X - padHalfExtent, Y: pos.Y - padHalfExtent})
		box.Expand(sexp.Position{X: pos.X + padHalfExtent, Y: pos.Y + padHalfExtent})
	}
	return box
}

// fpTextKind maps a property key to the legacy fp_text kind word.
func fpTextKind(key string) string {
	switch key {
	case "Reference":
		return "reference"
	case "Value":
		return "value"
	}
	return ""
}
