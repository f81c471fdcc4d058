package schematic

import (
	"sort"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// SymbolSpec describes a new symbol instance to place on the sheet.
type SymbolSpec struct {
	LibID      string
	At         sexp.PositionAngle
	UUID       string
	Reference  string
	Value      string
	Footprint  string
	Properties map[string]string // extra properties (Description, MPN, ...)
	DNP        bool
	InBOM      bool
	OnBoard    bool
}

// PowerSpec describes a new power marker symbol. The net name becomes the
// displayed value; the reference comes from the caller's #PWR counter.
type PowerSpec struct {
	LibID     string
	NetName   string
	Reference string
	UUID      string
	At        sexp.PositionAngle
}

// AddSymbol appends a new symbol instance in canonical KiCad style and
// returns its handle. Existing elements are not re-rendered.
func (s *Schematic) AddSymbol(spec SymbolSpec) *Symbol {
	node := newSymbolNode(spec.LibID, spec.At, spec.UUID, spec.InBOM, spec.OnBoard, spec.DNP)

	node.Append(propertyNode("Reference", spec.Reference,
		sexp.Position{X: spec.At.X + 2.54, Y: spec.At.Y - 1.27}, false))
	node.Append(propertyNode("Value", spec.Value,
		sexp.Position{X: spec.At.X + 2.54, Y: spec.At.Y + 1.27}, false))
	node.Append(propertyNode("Footprint", spec.Footprint, spec.At.Position, true))
	node.Append(propertyNode("Datasheet", "~", spec.At.Position, true))
	for _, key := range sortedKeys(spec.Properties) {
		node.Append(propertyNode(key, spec.Properties[key], spec.At.Position, true))
	}

	s.root.Append(node)
	return &Symbol{sch: s, node: node}
}

// AddPowerSymbol appends a power marker: an instance of a power-library
// symbol whose value property displays the net name.
func (s *Schematic) AddPowerSymbol(spec PowerSpec) *Symbol {
	node := newSymbolNode(spec.LibID, spec.At, spec.UUID, true, true, false)

	node.Append(propertyNode("Reference", spec.Reference,
		sexp.Position{X: spec.At.X, Y: spec.At.Y + 6.35}, true))
	node.Append(propertyNode("Value", spec.NetName,
		sexp.Position{X: spec.At.X, Y: spec.At.Y + 3.81}, false))

	s.root.Append(node)
	return &Symbol{sch: s, node: node}
}

// AddLabel appends a local net label at the given position.
func (s *Schematic) AddLabel(text string, at sexp.PositionAngle, uuid string) *Label {
	node := sexp.NewList(
		sexp.NewAtom("label"), sexp.NewQuoted(text),
		atNode(at),
		sexp.NewList(sexp.NewAtom("effects"),
			sexp.NewList(sexp.NewAtom("font"),
				sexp.NewList(sexp.NewAtom("size"), sexp.NewAtom("1.27"), sexp.NewAtom("1.27"))),
			sexp.NewList(sexp.NewAtom("justify"), sexp.NewAtom("left"), sexp.NewAtom("bottom"))),
		sexp.NewList(sexp.NewAtom("uuid"), sexp.NewQuoted(uuid)),
	)
	s.root.Append(node)
	return &Label{sch: s, node: node}
}

// RemoveSymbol detaches a symbol instance from the document. The handle is
// dead afterwards.
func (s *Schematic) RemoveSymbol(sym *Symbol) bool {
	return s.root.RemoveNode(sym.node)
}

// RemoveLabel detaches a label from the document.
func (s *Schematic) RemoveLabel(l *Label) bool {
	return s.root.RemoveNode(l.node)
}

func newSymbolNode(libID string, at sexp.PositionAngle, uuid string, inBOM, onBoard, dnp bool) *sexp.List {
	return sexp.NewList(
		sexp.NewAtom("symbol"),
		sexp.NewList(sexp.NewAtom("lib_id"), sexp.NewQuoted(libID)),
		atNode(at),
		sexp.NewList(sexp.NewAtom("unit"), sexp.NewAtom("1")),
		sexp.NewList(sexp.NewAtom("exclude_from_sim"), sexp.NewAtom("no")),
		sexp.NewList(sexp.NewAtom("in_bom"), sexp.NewAtom(yesNo(inBOM))),
		sexp.NewList(sexp.NewAtom("on_board"), sexp.NewAtom(yesNo(onBoard))),
		sexp.NewList(sexp.NewAtom("dnp"), sexp.NewAtom(yesNo(dnp))),
		sexp.NewList(sexp.NewAtom("uuid"), sexp.NewQuoted(uuid)),
	)
}

func propertyNode(key, value string, at sexp.Position, hidden bool) *sexp.List {
	effects := sexp.NewList(sexp.NewAtom("effects"),
		sexp.NewList(sexp.NewAtom("font"),
			sexp.NewList(sexp.NewAtom("size"), sexp.NewAtom("1.27"), sexp.NewAtom("1.27"))))
	if hidden {
		effects.Append(sexp.NewList(sexp.NewAtom("hide"), sexp.NewAtom("yes")))
	} else {
		effects.Append(sexp.NewList(sexp.NewAtom("justify"), sexp.NewAtom("left")))
	}
	return sexp.NewList(
		sexp.NewAtom("property"), sexp.NewQuoted(key), sexp.NewQuoted(value),
		sexp.NewList(sexp.NewAtom("at"),
			sexp.NewAtom(sexp.FormatFloat(at.X)),
			sexp.NewAtom(sexp.FormatFloat(at.Y)),
			sexp.NewAtom("0")),
		effects,
	)
}

func atNode(at sexp.PositionAngle) *sexp.List {
	return sexp.NewList(sexp.NewAtom("at"),
		sexp.NewAtom(sexp.FormatFloat(at.X)),
		sexp.NewAtom(sexp.FormatFloat(at.Y)),
		sexp.NewAtom(sexp.FormatFloat(float64(at.Angle))))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// sortedKeys orders extra property keys so repeated runs serialize the
// same bytes.
func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
