package pcb

import (
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// FootprintSpec describes a new footprint to place on the board.
type FootprintSpec struct {
	LibID     string
	Layer     string // "F.Cu" when empty
	At        sexp.PositionAngle
	UUID      string
	Reference string
	Value     string
	DNP       bool
}

// AddFootprint appends a new footprint in canonical KiCad style and
// returns its handle. The footprint carries no pads; KiCad fills in the
// library shape on the next "update from library". Existing elements are
// not re-rendered.
func (b *Board) AddFootprint(spec FootprintSpec) *Footprint {
	layer := spec.Layer
	if layer == "" {
		layer = "F.Cu"
	}

	node := sexp.NewList(
		sexp.NewAtom("footprint"), sexp.NewQuoted(spec.LibID),
		sexp.NewList(sexp.NewAtom("layer"), sexp.NewQuoted(layer)),
		sexp.NewList(sexp.NewAtom("uuid"), sexp.NewQuoted(spec.UUID)),
		sexp.NewList(sexp.NewAtom("at"),
			sexp.NewAtom(sexp.FormatFloat(spec.At.X)),
			sexp.NewAtom(sexp.FormatFloat(spec.At.Y)),
			sexp.NewAtom(sexp.FormatFloat(float64(spec.At.Angle)))),
	)

	node.Append(boardPropertyNode("Reference", spec.Reference, spec.At.Position, "F.SilkS"))
	node.Append(boardPropertyNode("Value", spec.Value, spec.At.Position, "F.Fab"))

	attr := sexp.NewList(sexp.NewAtom("attr"), sexp.NewAtom("smd"))
	if spec.DNP {
		attr.Append(sexp.NewAtom("dnp"))
	}
	node.Append(attr)

	b.root.Append(node)
	return &Footprint{board: b, node: node}
}

// RemoveFootprint detaches a footprint from the board. The handle is dead
// afterwards.
func (b *Board) RemoveFootprint(fp *Footprint) bool {
	return b.root.RemoveNode(fp.node)
}

func boardPropertyNode(key, value string, at sexp.Position, layer string) *sexp.List {
	return sexp.NewList(
		sexp.NewAtom("property"), sexp.NewQuoted(key), sexp.NewQuoted(value),
		sexp.NewList(sexp.NewAtom("at"),
			sexp.NewAtom(sexp.FormatFloat(at.X)),
			sexp.NewAtom(sexp.FormatFloat(at.Y)),
			sexp.NewAtom("0")),
		sexp.NewList(sexp.NewAtom("layer"), sexp.NewQuoted(layer)),
		sexp.NewList(sexp.NewAtom("effects"),
			sexp.NewList(sexp.NewAtom("font"),
				sexp.NewList(sexp.NewAtom("size"), sexp.NewAtom("1.27"), sexp.NewAtom("1.27")))),
	)
}
