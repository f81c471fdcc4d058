package sync

import (
	"github.com/OpenTraceLab/OpenTraceSync/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// brdApplier replays a change set onto a board. The board side is
// narrower than the schematic side: footprint identity, reference,
// value, dnp, and placement. Pad nets stay untouched; KiCad rebuilds
// them from its own netlist import.
type brdApplier struct {
	brd    *pcb.Board
	cfg    *Config
	alloc  *Allocator
	report *Report
}

func newBrdApplier(brd *pcb.Board, cfg *Config, report *Report) *brdApplier {
	var occupied []sexp.BoundingBox
	for _, fp := range brd.Footprints() {
		occupied = append(occupied, fp.Bounds())
	}
	return &brdApplier{
		brd:    brd,
		cfg:    cfg,
		alloc:  NewAllocator(cfg, occupied),
		report: report,
	}
}

func (a *brdApplier) apply(cs *ChangeSet) {
	for _, e := range cs.Removed {
		fp := e.(fpElement).fp
		a.brd.RemoveFootprint(fp)
		a.report.Removed = append(a.report.Removed, fp.Reference())
	}

	for _, pair := range cs.Unsupported {
		a.report.Matched = append(a.report.Matched, pair.Comp.Ref)
		a.report.diag(diagf(DiagUnsupportedChange,
			"%s: footprint change %s → %s cannot be applied in place; skipped",
			pair.Elem.Reference(), pair.Elem.Type(), pair.Comp.Footprint))
	}

	done := make(map[Element]bool)
	handle := func(ch Change) {
		fp := ch.Elem.(fpElement).fp
		oldRef := fp.Reference()

		if ch.Diff.Renamed {
			fp.SetReference(ch.Comp.Ref)
			a.report.Renamed = append(a.report.Renamed, Rename{From: oldRef, To: ch.Comp.Ref})
		}
		if ch.Diff.Value {
			fp.SetValue(ch.Comp.Value)
		}
		if ch.Diff.DNP {
			fp.SetDNP(ch.Comp.Attrs.DNP)
		}
		if ch.Diff.Position {
			fp.SetPosition(sexp.Position{X: ch.Comp.At.X, Y: ch.Comp.At.Y})
		}
		if ch.Diff.Rotation {
			fp.SetAngle(sexp.Angle(ch.Comp.At.Rotation))
		}
		if ch.Diff.updated() {
			a.report.Updated = append(a.report.Updated, ch.Comp.Ref)
		}
	}

	for _, ch := range cs.Updated {
		handle(ch)
		done[ch.Elem] = true
	}
	for _, ch := range cs.Renamed {
		if !done[ch.Elem] {
			handle(ch)
		}
	}

	for _, pair := range cs.Preserved {
		a.report.Preserved = append(a.report.Preserved, pair.Comp.Ref)
		a.report.Matched = append(a.report.Matched, pair.Comp.Ref)
	}
	for _, ch := range cs.Updated {
		a.report.Matched = append(a.report.Matched, ch.Comp.Ref)
	}
	for _, ch := range cs.Renamed {
		if !ch.Diff.updated() {
			a.report.Matched = append(a.report.Matched, ch.Comp.Ref)
		}
	}

	for _, comp := range cs.Added {
		a.add(comp)
	}
	a.report.sortRefs()
}

func (a *brdApplier) add(comp *circuit.Component) {
	token := comp.Token
	if token == "" {
		token = a.cfg.Tokens()
	}

	var at sexp.PositionAngle
	if comp.At != nil {
		at = sexp.PositionAngle{
			Position: sexp.Position{X: comp.At.X, Y: comp.At.Y},
			Angle:    sexp.Angle(comp.At.Rotation),
		}
	} else {
		// The fresh footprint carries no pads yet, so size it by grid.
		at.Position = a.alloc.Allocate(2*a.cfg.Grid, 2*a.cfg.Grid)
	}

	a.brd.AddFootprint(pcb.FootprintSpec{
		LibID:     comp.Footprint,
		Layer:     comp.Attrs.Layer,
		At:        at,
		UUID:      token,
		Reference: comp.Ref,
		Value:     comp.Value,
		DNP:       comp.Attrs.DNP,
	})
	a.report.Added = append(a.report.Added, comp.Ref)
}
