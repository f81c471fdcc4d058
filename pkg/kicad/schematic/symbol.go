package schematic

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// Property is one key/value entry of a symbol instance.
type Property struct {
	Key   string
	Value string
}

// Symbol is a handle bound to one placed symbol instance. Reads walk the
// underlying node; mutations edit it in place and leave every other node
// of the document untouched.
type Symbol struct {
	sch  *Schematic
	node *sexp.List
}

// LibID returns the library identifier (e.g. "Device:R").
func (y *Symbol) LibID() string {
	if node, found := sexp.FindList(y.node, "lib_id"); found {
		id, _ := sexp.GetString(node, 1)
		return id
	}
	return ""
}

// Position returns the symbol anchor position on the sheet.
func (y *Symbol) Position() sexp.Position {
	if node, found := sexp.FindList(y.node, "at"); found {
		x, _ := sexp.GetFloat(node, 1)
		yy, _ := sexp.GetFloat(node, 2)
		return sexp.Position{X: x, Y: yy}
	}
	return sexp.Position{}
}

// Angle returns the symbol rotation in degrees.
func (y *Symbol) Angle() sexp.Angle {
	if node, found := sexp.FindList(y.node, "at"); found {
		if a, err := sexp.GetFloat(node, 3); err == nil {
			return sexp.Angle(a)
		}
	}
	return 0
}

// Mirror returns the mirror axis ("x", "y") or "" when not mirrored.
func (y *Symbol) Mirror() string {
	if node, found := sexp.FindList(y.node, "mirror"); found {
		m, _ := sexp.GetString(node, 1)
		return m
	}
	return ""
}

// UUID returns the instance identity token.
func (y *Symbol) UUID() string {
	if node, found := sexp.FindList(y.node, "uuid"); found {
		u, _ := sexp.GetString(node, 1)
		return u
	}
	return ""
}

// Unit returns the unit number for multi-unit symbols (1 when absent).
func (y *Symbol) Unit() int {
	if node, found := sexp.FindList(y.node, "unit"); found {
		u, _ := sexp.GetInt(node, 1)
		return u
	}
	return 1
}

// DNP reports the do-not-populate flag.
func (y *Symbol) DNP() bool {
	return sexp.HasFlag(y.node, "dnp")
}

// Reference returns the reference designator ("R1").
func (y *Symbol) Reference() string {
	v, _ := y.Property("Reference")
	return v
}

// Value returns the value field ("10k").
func (y *Symbol) Value() string {
	v, _ := y.Property("Value")
	return v
}

// Footprint returns the footprint field.
func (y *Symbol) Footprint() string {
	v, _ := y.Property("Footprint")
	return v
}

// Property returns the named property value and whether it exists.
func (y *Symbol) Property(key string) (string, bool) {
	if node := y.propertyNode(key); node != nil {
		v, err := sexp.GetString(node, 2)
		return v, err == nil
	}
	return "", false
}

// Properties returns all property entries in document order.
func (y *Symbol) Properties() []Property {
	nodes := sexp.FindAllLists(y.node, "property")
	props := make([]Property, 0, len(nodes))
	for _, n := range nodes {
		key, err := sexp.GetString(n, 1)
		if err != nil {
			continue
		}
		value, _ := sexp.GetString(n, 2)
		props = append(props, Property{Key: key, Value: value})
	}
	return props
}

// IsPower reports whether this instance is a power marker symbol.
func (y *Symbol) IsPower() bool {
	return strings.HasPrefix(y.Reference(), "#PWR") ||
		strings.HasPrefix(y.LibID(), "power:")
}

func (y *Symbol) propertyNode(key string) *sexp.List {
	for _, n := range sexp.FindAllLists(y.node, "property") {
		if k, err := sexp.GetString(n, 1); err == nil && k == key {
			return n
		}
	}
	return nil
}

// SetReference rewrites the reference designator. The instances block, when
// present, carries the reference a second time and is kept in step so the
// file stays consistent for KiCad's project view.
func (y *Symbol) SetReference(ref string) {
	y.SetProperty("Reference", ref)
	for _, inst := range sexp.FindAllLists(y.node, "instances") {
		updateInstanceReferences(inst, ref)
	}
}

func updateInstanceReferences(node *sexp.List, ref string) {
	for _, child := range node.Children() {
		sub, ok := child.(*sexp.List)
		if !ok {
			continue
		}
		if sub.Name() == "reference" {
			sub.SetString(1, ref)
			continue
		}
		updateInstanceReferences(sub, ref)
	}
}

// SetValue rewrites the value field.
func (y *Symbol) SetValue(value string) {
	y.SetProperty("Value", value)
}

// SetFootprint rewrites the footprint field.
func (y *Symbol) SetFootprint(fp string) {
	y.SetProperty("Footprint", fp)
}

// SetProperty rewrites the named property value, creating the property
// node if it does not exist. Only the value atom of an existing property
// is replaced; its (at ...) node and effects are left byte-identical, so
// a value edit never moves the text on the sheet.
func (y *Symbol) SetProperty(key, value string) {
	if node := y.propertyNode(key); node != nil {
		node.SetString(2, value)
		return
	}

	pos := y.Position()
	prop := sexp.NewList(
		sexp.NewAtom("property"), sexp.NewQuoted(key), sexp.NewQuoted(value),
		sexp.NewList(sexp.NewAtom("at"),
			sexp.NewAtom(sexp.FormatFloat(pos.X)),
			sexp.NewAtom(sexp.FormatFloat(pos.Y)),
			sexp.NewAtom("0")),
		sexp.NewList(sexp.NewAtom("effects"),
			sexp.NewList(sexp.NewAtom("font"),
				sexp.NewList(sexp.NewAtom("size"), sexp.NewAtom("1.27"), sexp.NewAtom("1.27"))),
			sexp.NewList(sexp.NewAtom("hide"), sexp.NewAtom("yes"))),
	)

	// Keep property nodes grouped: insert after the last existing one.
	props := sexp.FindAllLists(y.node, "property")
	if len(props) > 0 {
		last := props[len(props)-1]
		for i, child := range y.node.Children() {
			if child == sexp.Sexp(last) {
				y.node.InsertAfter(i, prop)
				return
			}
		}
	}
	y.node.Append(prop)
}

// RemoveProperty deletes the named property node. Returns false when the
// property does not exist.
func (y *Symbol) RemoveProperty(key string) bool {
	if node := y.propertyNode(key); node != nil {
		return y.node.RemoveNode(node)
	}
	return false
}

// SetDNP sets the do-not-populate flag, creating the node if the file
// predates it.
func (y *Symbol) SetDNP(dnp bool) {
	word := "no"
	if dnp {
		word = "yes"
	}
	if node, found := sexp.FindList(y.node, "dnp"); found {
		node.SetSymbol(1, word)
		return
	}
	dnpNode := sexp.NewList(sexp.NewAtom("dnp"), sexp.NewAtom(word))
	// KiCad writes dnp next to the other placement flags, before uuid.
	if node, found := sexp.FindList(y.node, "on_board"); found {
		for i, child := range y.node.Children() {
			if child == sexp.Sexp(node) {
				y.node.InsertAfter(i, dnpNode)
				return
			}
		}
	}
	y.node.Append(dnpNode)
}

// SetPosition moves the symbol anchor, leaving rotation untouched.
func (y *Symbol) SetPosition(pos sexp.Position) {
	node, found := sexp.FindList(y.node, "at")
	if !found {
		y.node.Append(sexp.NewList(sexp.NewAtom("at"),
			sexp.NewAtom(sexp.FormatFloat(pos.X)),
			sexp.NewAtom(sexp.FormatFloat(pos.Y)),
			sexp.NewAtom("0")))
		return
	}
	node.SetSymbol(1, sexp.FormatFloat(pos.X))
	node.SetSymbol(2, sexp.FormatFloat(pos.Y))
}

// SetAngle rotates the symbol in place, leaving position untouched.
func (y *Symbol) SetAngle(angle sexp.Angle) {
	node, found := sexp.FindList(y.node, "at")
	if !found {
		pos := y.Position()
		y.node.Append(sexp.NewList(sexp.NewAtom("at"),
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
