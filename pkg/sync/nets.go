package sync

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/schematic"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// netKind is how a net is realized on the sheet.
type netKind int

const (
	kindSignal netKind = iota // point label carrying the net name
	kindPower                 // one power marker symbol per pin
)

// classifyNet decides how a net renders: an explicit class wins, then
// the configured power vocabulary (case-sensitive exact match), then
// signal.
func classifyNet(net *circuit.Net, cfg *Config) netKind {
	switch net.Class {
	case circuit.ClassPower:
		return kindPower
	case circuit.ClassSignal:
		return kindSignal
	}
	if cfg.IsPowerNet(net.Name) {
		return kindPower
	}
	return kindSignal
}

// pinKey identifies one component pin for realization bookkeeping.
type pinKey struct {
	Ref string
	Pin string
}

// realization is one desired or existing net attachment at a pin.
type realization struct {
	net    string
	kind   netKind
	anchor sexp.Position
	symbol string // power marker lib id, when kind == kindPower
}

// netRenderer reconciles net realizations (labels and power markers)
// with the desired nets, keyed on (component pin, net name) so adding a
// connection to one pin never perturbs what other pins carry.
type netRenderer struct {
	sch    *schematic.Schematic
	cfg    *Config
	report *Report
	pwrRef *powerRefCounter
}

func newNetRenderer(sch *schematic.Schematic, cfg *Config, report *Report) *netRenderer {
	return &netRenderer{
		sch:    sch,
		cfg:    cfg,
		report: report,
		pwrRef: newPowerRefCounter(sch),
	}
}

func (r *netRenderer) render(nets []*circuit.Net) {
	desired := r.desiredRealizations(nets)

	// Index every synced pin's anchor so existing labels and markers
	// can be attributed to pins.
	anchorIndex := make(map[posKey]pinKey)
	for key, real := range desired {
		anchorIndex[keyOf(real.anchor, r.cfg.PositionTolerance)] = key
	}
	// Pins of synced components with no desired net still count: a
	// stale label there must go.
	for _, sym := range r.sch.Symbols() {
		if sym.IsPower() {
			continue
		}
		ls, found := r.sch.LibSymbol(sym.LibID())
		if !found {
			continue
		}
		for _, pin := range ls.Pins() {
			if pos, ok := r.sch.PinPosition(sym, pin.Number); ok {
				pk := pinKey{Ref: sym.Reference(), Pin: pin.Number}
				if _, taken := desired[pk]; !taken {
					anchorIndex[keyOf(pos, r.cfg.PositionTolerance)] = pk
				}
			}
		}
	}

	satisfied := make(map[pinKey]bool)

	// Pass 1: existing labels. Keep, relabel, or remove.
	for _, l := range r.sch.Labels() {
		pk, at := r.pinAt(anchorIndex, l.Position())
		if !at {
			continue // human label elsewhere, not ours
		}
		want, wanted := desired[pk]
		switch {
		case wanted && want.kind == kindSignal && l.Text() == want.net:
			satisfied[pk] = true
		case wanted && want.kind == kindSignal:
			old := l.Text()
			l.SetText(want.net)
			satisfied[pk] = true
			r.report.Nets.Relabeled = append(r.report.Nets.Relabeled,
				NetChange{Net: old + "→" + want.net, Ref: pk.Ref, Pin: pk.Pin})
		default:
			r.sch.RemoveLabel(l)
			r.report.Nets.Removed = append(r.report.Nets.Removed,
				NetChange{Net: l.Text(), Ref: pk.Ref, Pin: pk.Pin})
		}
	}

	// Pass 2: existing power markers.
	for _, p := range r.sch.PowerSymbols() {
		pk, at := r.pinAt(anchorIndex, p.Position())
		if !at {
			continue
		}
		want, wanted := desired[pk]
		if wanted && want.kind == kindPower && p.Value() == want.net {
			satisfied[pk] = true
			continue
		}
		r.sch.RemoveSymbol(p)
		change := NetChange{Net: p.Value(), Ref: pk.Ref, Pin: pk.Pin}
		if wanted && want.kind == kindPower {
			// Same kind, different rail: count it as a relabel even
			// though the marker is rebuilt, pass 3 adds the new one.
			r.report.Nets.Relabeled = append(r.report.Nets.Relabeled,
				NetChange{Net: p.Value() + "→" + want.net, Ref: pk.Ref, Pin: pk.Pin})
		} else {
			r.report.Nets.Removed = append(r.report.Nets.Removed, change)
		}
	}

	// Pass 3: create what is still missing, in net order for stable
	// reference numbering.
	for _, net := range nets {
		for _, node := range net.Nodes {
			pk := pinKey{Ref: node.Ref, Pin: node.Pin}
			want, wanted := desired[pk]
			if !wanted || satisfied[pk] || want.net != net.Name {
				continue
			}
			satisfied[pk] = true

			if want.kind == kindSignal {
				r.sch.AddLabel(want.net, sexp.PositionAngle{Position: want.anchor}, r.cfg.Tokens())
			} else {
				r.sch.AddPowerSymbol(schematic.PowerSpec{
					LibID:     want.symbol,
					NetName:   want.net,
					Reference: r.pwrRef.next(),
					UUID:      r.cfg.Tokens(),
					At:        sexp.PositionAngle{Position: want.anchor},
				})
			}
			r.report.Nets.Added = append(r.report.Nets.Added,
				NetChange{Net: want.net, Ref: pk.Ref, Pin: pk.Pin})
		}
	}
}

// desiredRealizations maps every connected pin to the single realization
// the circuit wants there. A pin named by two nets keeps the first; the
// circuit builder is expected not to produce that.
func (r *netRenderer) desiredRealizations(nets []*circuit.Net) map[pinKey]realization {
	desired := make(map[pinKey]realization)

	for _, net := range nets {
		kind := classifyNet(net, r.cfg)
		symbol := net.PowerSymbol
		if symbol == "" {
			symbol = r.cfg.PowerSymbolPrefix + net.Name
		}

		for _, node := range net.Nodes {
			pk := pinKey{Ref: node.Ref, Pin: node.Pin}
			if _, taken := desired[pk]; taken {
				continue
			}
			anchor, ok := r.anchorFor(node)
			if !ok {
				continue
			}
			desired[pk] = realization{net: net.Name, kind: kind, anchor: anchor, symbol: symbol}
		}
	}
	return desired
}

// anchorFor locates the attachment point for a net node. When the pin
// cannot be resolved the realization falls back to a fixed offset from
// the symbol origin so the connection is at least visible, with a
// diagnostic naming the gap.
func (r *netRenderer) anchorFor(node circuit.NetNode) (sexp.Position, bool) {
	sym := r.sch.SymbolByReference(node.Ref)
	if sym == nil {
		return sexp.Position{}, false
	}
	if pos, ok := r.sch.PinPosition(sym, node.Pin); ok {
		return pos, true
	}

	pos := sym.Position()
	fallback := sexp.Position{X: pos.X + 2*r.cfg.Grid, Y: pos.Y}
	if r.sch.HasLibSymbol(sym.LibID()) {
		r.report.diag(diagf(DiagMissingPin,
			"%s has no pin %q; attaching near the symbol origin", node.Ref, node.Pin))
	}
	return fallback, true
}

func (r *netRenderer) pinAt(index map[posKey]pinKey, pos sexp.Position) (pinKey, bool) {
	pk, found := index[keyOf(pos, r.cfg.PositionTolerance)]
	return pk, found
}

// posKey buckets a position for exact-ish lookup within tolerance.
type posKey struct{ x, y int }

func keyOf(pos sexp.Position, tol float64) posKey {
	if tol <= 0 {
		tol = 0.01
	}
	return posKey{
		x: int(math.Round(pos.X / tol)),
		y: int(math.Round(pos.Y / tol)),
	}
}

// powerRefCounter allocates the dedicated sequential reference space for
// power markers. It is carried through the run, never global, and seeds
// itself from the highest #PWR number already in the document so two
// runs over identical input allocate identical references.
type powerRefCounter struct {
	n int
}

func newPowerRefCounter(sch *schematic.Schematic) *powerRefCounter {
	highest := 0
	for _, p := range sch.PowerSymbols() {
		suffix := strings.TrimPrefix(p.Reference(), "#PWR")
		if n, err := strconv.Atoi(suffix); err == nil && n > highest {
			highest = n
		}
	}
	return &powerRefCounter{n: highest}
}

func (c *powerRefCounter) next() string {
	c.n++
	return fmt.Sprintf("#PWR%04d", c.n)
}
