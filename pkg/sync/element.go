package sync

import (
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/schematic"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// Element is the matcher's and classifier's view of one document element,
// covering both schematic symbols and board footprints. UUID is the
// identity token; Type is the element's fundamental class (the library
// identifier), which the engine refuses to change in place.
type Element interface {
	UUID() string
	Reference() string
	Type() string
	Value() string
	Footprint() string
	Position() sexp.Position
	Angle() sexp.Angle
}

var (
	_ Element = symElement{}
	_ Element = fpElement{}
)

// symElement adapts a schematic symbol instance.
type symElement struct {
	*schematic.Symbol
}

func (e symElement) Type() string { return e.LibID() }

// fpElement adapts a board footprint. On a board the footprint class is
// both the type identifier and the footprint field. The handle is a
// named field rather than embedded: promotion would collide with the
// Footprint method the Element interface needs.
type fpElement struct {
	fp *pcb.Footprint
}

func (e fpElement) UUID() string            { return e.fp.UUID() }
func (e fpElement) Reference() string       { return e.fp.Reference() }
func (e fpElement) Type() string            { return e.fp.LibID() }
func (e fpElement) Value() string           { return e.fp.Value() }
func (e fpElement) Footprint() string       { return e.fp.LibID() }
func (e fpElement) Position() sexp.Position { return e.fp.Position() }
func (e fpElement) Angle() sexp.Angle       { return e.fp.Angle() }
func (e fpElement) DNP() bool               { return e.fp.DNP() }

func (e fpElement) Property(key string) (string, bool) { return e.fp.Property(key) }

// schematicElements collects matchable elements from a sheet. Power
// markers are excluded: they belong to net realization, not component
// matching.
func schematicElements(sch *schematic.Schematic) []Element {
	var out []Element
	for _, sym := range sch.Symbols() {
		if sym.IsPower() {
			continue
		}
		out = append(out, symElement{sym})
	}
	return out
}

// boardElements collects matchable elements from a board.
func boardElements(brd *pcb.Board) []Element {
	var out []Element
	for _, fp := range brd.Footprints() {
		out = append(out, fpElement{fp})
	}
	return out
}
