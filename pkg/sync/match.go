package sync

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/circuit"
)

// Strategy identifies which rule of the matching chain bound a pair.
type Strategy int

const (
	// StrategyToken matched on equal identity tokens. Unconditional:
	// the pair may differ in reference, position, and every attribute.
	StrategyToken Strategy = iota
	// StrategyReference matched on equal reference labels.
	StrategyReference
	// StrategyPosition matched on equal type/value/footprint at the
	// same position, inferring a rename done in the document tool.
	StrategyPosition
)

func (s Strategy) String() string {
	switch s {
	case StrategyToken:
		return "token"
	case StrategyReference:
		return "reference"
	case StrategyPosition:
		return "position"
	}
	return "unknown"
}

// target selects which circuit-side field corresponds to an element's
// fundamental type: the symbol lib id on schematics, the footprint class
// on boards.
type target int

const (
	targetSchematic target = iota
	targetBoard
)

func (t target) typeOf(c *circuit.Component) string {
	if t == targetBoard {
		return c.Footprint
	}
	return c.LibID
}

// Pair is one matched (circuit component, document element)
// correspondence.
type Pair struct {
	Comp     *circuit.Component
	Elem     Element
	Strategy Strategy
}

// Correspondence is the result of the matching chain: a bijection over
// the matched subset plus the leftovers on each side, in input order.
type Correspondence struct {
	Pairs               []Pair
	UnmatchedComponents []*circuit.Component
	UnmatchedElements   []Element
}

// Match runs the ordered strategy chain over the circuit components and
// document elements. Each strategy only sees what earlier strategies left
// unmatched, so no element is ever claimed twice. Degenerate position
// ambiguities are refused with a diagnostic rather than guessed at.
func Match(comps []*circuit.Component, elems []Element, cfg *Config, tgt target) (*Correspondence, []Diagnostic) {
	corr := &Correspondence{}
	var diags []Diagnostic

	compLeft := append([]*circuit.Component(nil), comps...)
	elemLeft := append([]Element(nil), elems...)

	// Strategy 1: identity token.
	byToken := make(map[string]Element, len(elemLeft))
	for _, e := range elemLeft {
		if tok := e.UUID(); tok != "" {
			byToken[tok] = e
		}
	}
	compLeft, elemLeft = claim(corr, compLeft, elemLeft, StrategyToken,
		func(c *circuit.Component) Element {
			if c.Token == "" {
				return nil
			}
			return byToken[c.Token]
		})

	// Strategy 2: reference label.
	byRef := make(map[string]Element, len(elemLeft))
	for _, e := range elemLeft {
		byRef[e.Reference()] = e
	}
	compLeft, elemLeft = claim(corr, compLeft, elemLeft, StrategyReference,
		func(c *circuit.Component) Element {
			return byRef[c.Ref]
		})

	// Strategy 3: position fingerprint.
	compLeft, elemLeft, posDiags := matchByPosition(corr, compLeft, elemLeft, cfg, tgt)
	diags = append(diags, posDiags...)

	corr.UnmatchedComponents = compLeft
	corr.UnmatchedElements = elemLeft
	return corr, diags
}

// claim pairs each remaining component with the element the lookup
// returns, skipping elements already claimed in this pass, and returns
// the leftovers on both sides.
func claim(corr *Correspondence, comps []*circuit.Component, elems []Element, strategy Strategy, lookup func(*circuit.Component) Element) ([]*circuit.Component, []Element) {
	claimed := make(map[Element]bool)
	var compLeft []*circuit.Component

	for _, c := range comps {
		e := lookup(c)
		if e == nil || claimed[e] {
			compLeft = append(compLeft, c)
			continue
		}
		claimed[e] = true
		corr.Pairs = append(corr.Pairs, Pair{Comp: c, Elem: e, Strategy: strategy})
	}

	var elemLeft []Element
	for _, e := range elems {
		if !claimed[e] {
			elemLeft = append(elemLeft, e)
		}
	}
	return compLeft, elemLeft
}

// matchByPosition pairs components with elements of identical
// type/value/footprint sitting within the position tolerance. Pairs whose
// references already agree are skipped (that case belongs to the
// reference strategy, and reporting it here would fake a rename). When
// several components or several elements collapse onto one slot, nothing
// is matched and an ambiguous-match diagnostic is recorded.
func matchByPosition(corr *Correspondence, comps []*circuit.Component, elems []Element, cfg *Config, tgt target) ([]*circuit.Component, []Element, []Diagnostic) {
	tol := cfg.PositionTolerance

	// Spatial buckets keep the candidate scan near-linear on large
	// sheets. Cell size equals the tolerance, so all candidates for a
	// position sit in its 3x3 cell neighborhood.
	type cell struct{ x, y int }
	cellOf := func(x, y float64) cell {
		return cell{int(math.Floor(x / tol)), int(math.Floor(y / tol))}
	}
	buckets := make(map[cell][]Element)
	for _, e := range elems {
		pos := e.Position()
		buckets[cellOf(pos.X, pos.Y)] = append(buckets[cellOf(pos.X, pos.Y)], e)
	}

	// One-to-many candidate lists on both sides; a match is taken only
	// when it is unique in both directions.
	candidates := make(map[*circuit.Component][]Element)
	wantedBy := make(map[Element][]*circuit.Component)

	for _, c := range comps {
		if c.At == nil {
			continue
		}
		home := cellOf(c.At.X, c.At.Y)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for _, e := range buckets[cell{home.x + dx, home.y + dy}] {
					if !fingerprintEqual(c, e, tol, tgt) {
						continue
					}
					candidates[c] = append(candidates[c], e)
					wantedBy[e] = append(wantedBy[e], c)
				}
			}
		}
	}

	var diags []Diagnostic
	claimed := make(map[Element]bool)
	var compLeft []*circuit.Component

	for _, c := range comps {
		cands := candidates[c]
		switch {
		case len(cands) == 0:
			compLeft = append(compLeft, c)

		case len(cands) == 1 && len(wantedBy[cands[0]]) == 1:
			claimed[cands[0]] = true
			corr.Pairs = append(corr.Pairs, Pair{Comp: c, Elem: cands[0], Strategy: StrategyPosition})

		default:
			// Several same-typed parts collapsed onto one slot. An
			// arbitrary pick could silently discard one of them, so
			// both sides stay unmatched and become add+remove.
			diags = append(diags, diagf(DiagAmbiguousMatch,
				"%s has %d position candidates at (%s, %s); treating as add+remove",
				c.Ref, len(cands), trimFloat(c.At.X), trimFloat(c.At.Y)))
			compLeft = append(compLeft, c)
		}
	}

	var elemLeft []Element
	for _, e := range elems {
		if !claimed[e] {
			elemLeft = append(elemLeft, e)
		}
	}
	return compLeft, elemLeft, diags
}

// fingerprintEqual reports whether a component and element look like the
// same part in a different name: identical type, value, and footprint,
// within tolerance of the same position, and NOT already sharing a
// reference.
func fingerprintEqual(c *circuit.Component, e Element, tol float64, tgt target) bool {
	if c.Ref == e.Reference() {
		return false
	}
	if tgt.typeOf(c) != e.Type() || c.Value != e.Value() {
		return false
	}
	if tgt == targetSchematic && c.Footprint != e.Footprint() {
		return false
	}
	pos := e.Position()
	return math.Abs(c.At.X-pos.X) <= tol && math.Abs(c.At.Y-pos.Y) <= tol
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
