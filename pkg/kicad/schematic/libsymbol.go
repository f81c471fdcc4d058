package schematic

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// LibSymbol is a read handle for an embedded library symbol definition.
// Pin coordinates are in library space: millimeters with Y growing upward,
// the opposite of sheet space.
type LibSymbol struct {
	node *sexp.List
}

// LibPin is one pin of a library symbol definition.
type LibPin struct {
	Number   string
	Name     string
	Position sexp.Position // library space
	Angle    sexp.Angle    // direction the pin points away from its anchor
	Length   float64
	Hidden   bool
}

// LibSymbols returns every embedded library symbol definition.
func (s *Schematic) LibSymbols() []*LibSymbol {
	lib, found := sexp.FindList(s.root, "lib_symbols")
	if !found {
		return nil
	}
	nodes := sexp.FindAllLists(lib, "symbol")
	out := make([]*LibSymbol, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &LibSymbol{node: n})
	}
	return out
}

// LibSymbol returns the embedded definition for a library identifier.
func (s *Schematic) LibSymbol(libID string) (*LibSymbol, bool) {
	for _, ls := range s.LibSymbols() {
		if ls.Name() == libID {
			return ls, true
		}
	}
	return nil, false
}

// HasLibSymbol reports whether the document embeds a definition for the
// given library identifier. Instances without one still load in KiCad but
// render as placeholders, so callers report it.
func (s *Schematic) HasLibSymbol(libID string) bool {
	_, found := s.LibSymbol(libID)
	return found
}

// Name returns the definition's library identifier (e.g. "Device:R").
func (ls *LibSymbol) Name() string {
	n, _ := sexp.GetString(ls.node, 1)
	return n
}

// Pins returns the pins of all units of the definition.
func (ls *LibSymbol) Pins() []LibPin {
	var pins []LibPin
	collectPins(ls.node, &pins)
	return pins
}

// Pin returns the pin with the given number.
func (ls *LibSymbol) Pin(number string) (LibPin, bool) {
	for _, p := range ls.Pins() {
		if p.Number == number {
			return p, true
		}
	}
	return LibPin{}, false
}

// collectPins walks the unit sub-symbols; pin nodes may sit at any depth.
func collectPins(node *sexp.List, out *[]LibPin) {
	for _, pn := range sexp.FindAllLists(node, "pin") {
		*out = append(*out, parseLibPin(pn))
	}
	for _, unit := range sexp.FindAllLists(node, "symbol") {
		collectPins(unit, out)
	}
}

func parseLibPin(node *sexp.List) LibPin {
	pin := LibPin{Hidden: sexp.HasFlag(node, "hide")}
	if at, found := sexp.FindList(node, "at"); found {
		pin.Position.X, _ = sexp.GetFloat(at, 1)
		pin.Position.Y, _ = sexp.GetFloat(at, 2)
		if a, err := sexp.GetFloat(at, 3); err == nil {
			pin.Angle = sexp.Angle(a)
		}
	}
	if ln, found := sexp.FindList(node, "length"); found {
		pin.Length, _ = sexp.GetFloat(ln, 1)
	}
	if name, found := sexp.FindList(node, "name"); found {
		pin.Name, _ = sexp.GetString(name, 1)
	}
	if num, found := sexp.FindList(node, "number"); found {
		pin.Number, _ = sexp.GetString(num, 1)
	}
	return pin
}

// PinPosition computes the absolute sheet position of a pin anchor on a
// placed symbol: the library pin offset flipped into sheet space, rotated
// and mirrored by the instance transform, then translated to the instance
// position. Returns ok=false when the document embeds no definition for
// the instance's lib_id or the definition has no such pin.
func (s *Schematic) PinPosition(sym *Symbol, pinNumber string) (sexp.Position, bool) {
	ls, found := s.LibSymbol(sym.LibID())
	if !found {
		return sexp.Position{}, false
	}
	pin, found := ls.Pin(pinNumber)
	if !found {
		return sexp.Position{}, false
	}
	off := instanceOffset(pin.Position, sym.Angle(), sym.Mirror())
	pos := sym.Position()
	return sexp.Position{X: pos.X + off.X, Y: pos.Y + off.Y}, true
}

// instanceOffset maps a library-space offset into sheet space: flip Y
// (library Y grows up, sheet Y grows down), rotate by the instance angle,
// apply the mirror axis. Cardinal angles stay exact; anything else goes
// through trig.
func instanceOffset(p sexp.Position, angle sexp.Angle, mirror string) sexp.Position {
	x, y := p.X, -p.Y

	switch angle {
	case 0:
	case 90:
		x, y = y, -x
	case 180:
		x, y = -x, -y
	case 270:
		x, y = -y, x
	default:
		rad := float64(angle) * math.Pi / 180.0
		cos, sin := math.Cos(rad), math.Sin(rad)
		x, y = x*cos+y*sin, -x*sin+y*cos
	}

	switch mirror {
	case "x":
		y = -y
	case "y":
		x = -x
	case "xy":
		x, y = -x, -y
	}

	return sexp.Position{X: x, Y: y}
}

// defaultHalfExtent is the body half-size assumed for instances whose
// library definition is missing. Two grid units on each side.
const defaultHalfExtent = 2.54

// SymbolBounds estimates the sheet-space bounding box of a placed symbol
// from its library definition's pins and body graphics. Instances with no
// embedded definition get a fixed-size box around their anchor.
func (s *Schematic) SymbolBounds(sym *Symbol) sexp.BoundingBox {
	pos := sym.Position()
	ls, found := s.LibSymbol(sym.LibID())
	if !found {
		box := sexp.NewBoundingBox()
		box.Expand(sexp.Position{X: pos.X - defaultHalfExtent, Y: pos.Y - defaultHalfExtent})
		box.Expand(sexp.Position{X: pos.X + defaultHalfExtent, Y: pos.Y + defaultHalfExtent})
		return box
	}

	local := libExtent(ls)
	angle, mirror := sym.Angle(), sym.Mirror()

	box := sexp.NewBoundingBox()
	corners := [4]sexp.Position{
		{X: local.Min.X, Y: local.Min.Y},
		{X: local.Max.X, Y: local.Min.Y},
		{X: local.Min.X, Y: local.Max.Y},
		{X: local.Max.X, Y: local.Max.Y},
	}
	for _, c := range corners {
		off := instanceOffset(c, angle, mirror)
		box.Expand(sexp.Position{X: pos.X + off.X, Y: pos.Y + off.Y})
	}
	return box
}

// LibExtent returns the library-space extent of the definition for a
// library identifier, for sizing an instance before it is placed. The
// fallback box is returned when the document embeds no definition.
func (s *Schematic) LibExtent(libID string) sexp.BoundingBox {
	ls, found := s.LibSymbol(libID)
	if !found {
		box := sexp.NewBoundingBox()
		box.Expand(sexp.Position{X: -defaultHalfExtent, Y: -defaultHalfExtent})
		box.Expand(sexp.Position{X: defaultHalfExtent, Y: defaultHalfExtent})
		return box
	}
	return libExtent(ls)
}

// libExtent computes the library-space extent of a definition: pin anchors,
// pin endpoints, and body graphics.
func libExtent(ls *LibSymbol) sexp.BoundingBox {
	box := sexp.NewBoundingBox()

	for _, pin := range ls.Pins() {
		box.Expand(pin.Position)
		rad := float64(pin.Angle) * math.Pi / 180.0
		box.Expand(sexp.Position{
			X: pin.Position.X + pin.Length*math.Cos(rad),
			Y: pin.Position.Y + pin.Length*math.Sin(rad),
		})
	}

	expandGraphics(ls.node, &box)

	if box.IsEmpty() {
		box.Expand(sexp.Position{X: -defaultHalfExtent, Y: -defaultHalfExtent})
		box.Expand(sexp.Position{X: defaultHalfExtent, Y: defaultHalfExtent})
	}
	return box
}

func expandGraphics(node *sexp.List, box *sexp.BoundingBox) {
	for _, rect := range sexp.FindAllLists(node, "rectangle") {
		expandPoint(rect, "start", box)
		expandPoint(rect, "end", box)
	}
	for _, circ := range sexp.FindAllLists(node, "circle") {
		if center, found := sexp.FindList(circ, "center"); found {
			cx, _ := sexp.GetFloat(center, 1)
			cy, _ := sexp.GetFloat(center, 2)
			r := 0.0
			if rn, found := sexp.FindList(circ, "radius"); found {
				r, _ = sexp.GetFloat(rn, 1)
			}
			box.Expand(sexp.Position{X: cx - r, Y: cy - r})
			box.Expand(sexp.Position{X: cx + r, Y: cy + r})
		}
	}
	for _, poly := range sexp.FindAllLists(node, "polyline") {
		if pts, found := sexp.FindList(poly, "pts"); found {
			for _, xy := range sexp.FindAllLists(pts, "xy") {
				x, _ := sexp.GetFloat(xy, 1)
				y, _ := sexp.GetFloat(xy, 2)
				box.Expand(sexp.Position{X: x, Y: y})
			}
		}
	}
	for _, arc := range sexp.FindAllLists(node, "arc") {
		expandPoint(arc, "start", box)
		expandPoint(arc, "mid", box)
		expandPoint(arc, "end", box)
	}
	for _, unit := range sexp.FindAllLists(node, "symbol") {
		expandGraphics(unit, box)
	}
}

func expandPoint(node *sexp.List, key string, box *sexp.BoundingBox) {
	if pt, found := sexp.FindList(node, key); found {
		x, _ := sexp.GetFloat(pt, 1)
		y, _ := sexp.GetFloat(pt, 2)
		box.Expand(sexp.Position{X: x, Y: y})
	}
}
