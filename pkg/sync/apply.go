package sync

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/schematic"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// schApplier replays a change set onto one schematic. Removals run
// first, then in-place updates and renames, then additions; that order
// frees a renamed element's old reference before a new element could
// want the same slot.
type schApplier struct {
	sch    *schematic.Schematic
	cfg    *Config
	alloc  *Allocator
	report *Report

	// netNames holds the circuit's net names, so a label sitting at a
	// removed symbol's pin can be attributed to the engine's own net
	// realization rather than to the human.
	netNames map[string]bool
}

func newSchApplier(sch *schematic.Schematic, cfg *Config, report *Report, nets []*circuit.Net) *schApplier {
	var occupied []sexp.BoundingBox
	for _, sym := range sch.Symbols() {
		occupied = append(occupied, sch.SymbolBounds(sym))
	}
	for _, w := range sch.Wires() {
		box := sexp.NewBoundingBox()
		for _, pt := range w.Points() {
			box.Expand(pt)
		}
		occupied = append(occupied, box)
	}
	netNames := make(map[string]bool, len(nets))
	for _, n := range nets {
		netNames[n.Name] = true
	}
	return &schApplier{
		sch:      sch,
		cfg:      cfg,
		alloc:    NewAllocator(cfg, occupied),
		report:   report,
		netNames: netNames,
	}
}

func (a *schApplier) apply(cs *ChangeSet) {
	for _, e := range cs.Removed {
		a.remove(e.(symElement))
	}
	for _, pair := range cs.Unsupported {
		a.report.Matched = append(a.report.Matched, pair.Comp.Ref)
		a.report.diag(diagf(DiagUnsupportedChange,
			"%s: type change %s → %s cannot be applied in place; skipped",
			pair.Elem.Reference(), pair.Elem.Type(), pair.Comp.LibID))
	}
	a.applyMatched(cs)
	for _, comp := range cs.Added {
		a.add(comp)
	}
	a.report.sortRefs()
}

// remove deletes a symbol the circuit no longer wants, along with the
// net realizations the engine owns at its pins. A human-drawn wire
// ending at one of those pins is not deleted; it stays behind with a
// dangling-reference warning.
func (a *schApplier) remove(e symElement) {
	sym := e.Symbol
	anchors := a.pinAnchors(sym)

	for _, w := range a.sch.Wires() {
		if touchesAny(w.Points(), anchors, a.cfg.PositionTolerance) {
			a.report.diag(diagf(DiagDanglingReference,
				"wire %s still ends at a pin of removed %s; left in place",
				w.UUID(), sym.Reference()))
		}
	}

	for _, l := range a.sch.Labels() {
		if !nearAny(l.Position(), anchors, a.cfg.PositionTolerance) {
			continue
		}
		if a.netNames[l.Text()] {
			a.sch.RemoveLabel(l)
			continue
		}
		a.report.diag(diagf(DiagDanglingReference,
			"label %q still sits at a pin of removed %s; left in place",
			l.Text(), sym.Reference()))
	}
	for _, p := range a.sch.PowerSymbols() {
		if nearAny(p.Position(), anchors, a.cfg.PositionTolerance) {
			a.sch.RemoveSymbol(p)
		}
	}

	a.sch.RemoveSymbol(sym)
	a.report.Removed = append(a.report.Removed, sym.Reference())
}

// applyMatched walks every matched pair once, writing only the fields
// its diff names. Identity token and layer are never touched; position
// and rotation only move on an explicit hint change.
func (a *schApplier) applyMatched(cs *ChangeSet) {
	done := make(map[Element]bool)

	handle := func(ch Change) {
		sym := ch.Elem.(symElement).Symbol
		oldRef := sym.Reference()

		if ch.Diff.Renamed {
			sym.SetReference(ch.Comp.Ref)
			a.report.Renamed = append(a.report.Renamed, Rename{From: oldRef, To: ch.Comp.Ref})
		}
		if ch.Diff.Value {
			sym.SetValue(ch.Comp.Value)
		}
		if ch.Diff.Footprint {
			sym.SetFootprint(ch.Comp.Footprint)
		}
		if ch.Diff.DNP {
			sym.SetDNP(ch.Comp.Attrs.DNP)
		}
		for _, key := range ch.Diff.Attrs {
			sym.SetProperty(key, a.attrValue(ch.Comp, key))
		}
		if ch.Diff.Position {
			sym.SetPosition(sexp.Position{X: ch.Comp.At.X, Y: ch.Comp.At.Y})
		}
		if ch.Diff.Rotation {
			sym.SetAngle(sexp.Angle(ch.Comp.At.Rotation))
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
}

func (a *schApplier) attrValue(c *circuit.Component, key string) string {
	switch key {
	case "Description":
		return c.Attrs.Description
	case "MPN":
		return c.Attrs.PartNumber
	}
	return c.Attrs.Extra[key]
}

// add places a new symbol: identity token from the component or the
// token source, position from the spatial hint when present, otherwise
// from the allocator.
func (a *schApplier) add(comp *circuit.Component) {
	token := comp.Token
	if token == "" {
		token = a.cfg.Tokens()
	}

	if !a.sch.HasLibSymbol(comp.LibID) {
		a.report.diag(diagf(DiagMissingLibSymbol,
			"%s: document embeds no definition for %s", comp.Ref, comp.LibID))
	}

	var at sexp.PositionAngle
	if comp.At != nil {
		at = sexp.PositionAngle{
			Position: sexp.Position{X: comp.At.X, Y: comp.At.Y},
			Angle:    sexp.Angle(comp.At.Rotation),
		}
	} else {
		ext := a.sch.LibExtent(comp.LibID)
		halfW := math.Max(ext.Width()/2, a.cfg.Grid)
		halfH := math.Max(ext.Height()/2, a.cfg.Grid)
		at.Position = a.alloc.Allocate(halfW, halfH)
	}

	props := make(map[string]string)
	if comp.Attrs.Description != "" {
		props["Description"] = comp.Attrs.Description
	}
	if comp.Attrs.PartNumber != "" {
		props["MPN"] = comp.Attrs.PartNumber
	}
	for k, v := range comp.Attrs.Extra {
		props[k] = v
	}

	a.sch.AddSymbol(schematic.SymbolSpec{
		LibID:      comp.LibID,
		At:         at,
		UUID:       token,
		Reference:  comp.Ref,
		Value:      comp.Value,
		Footprint:  comp.Footprint,
		Properties: props,
		DNP:        comp.Attrs.DNP,
		InBOM:      !comp.Attrs.DNP,
		OnBoard:    true,
	})
	a.report.Added = append(a.report.Added, comp.Ref)
}

// pinAnchors returns the absolute positions of every pin of a symbol,
// falling back to the symbol anchor when the library definition is gone.
func (a *schApplier) pinAnchors(sym *schematic.Symbol) []sexp.Position {
	ls, found := a.sch.LibSymbol(sym.LibID())
	if !found {
		return []sexp.Position{sym.Position()}
	}
	var anchors []sexp.Position
	for _, pin := range ls.Pins() {
		if pos, ok := a.sch.PinPosition(sym, pin.Number); ok {
			anchors = append(anchors, pos)
		}
	}
	if len(anchors) == 0 {
		anchors = append(anchors, sym.Position())
	}
	return anchors
}

func nearAny(pos sexp.Position, anchors []sexp.Position, tol float64) bool {
	for _, a := range anchors {
		if math.Abs(pos.X-a.X) <= tol && math.Abs(pos.Y-a.Y) <= tol {
			return true
		}
	}
	return false
}

func touchesAny(points []sexp.Position, anchors []sexp.Position, tol float64) bool {
	for _, p := range points {
		if nearAny(p, anchors, tol) {
			return true
		}
	}
	return false
}
