package sync

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// fakeElement is a standalone Element for matcher/classifier tests.
type fakeElement struct {
	uuid      string
	ref       string
	typ       string
	value     string
	footprint string
	pos       sexp.Position
	angle     sexp.Angle
	dnp       bool
	props     map[string]string
}

func (f *fakeElement) UUID() string            { return f.uuid }
func (f *fakeElement) Reference() string       { return f.ref }
func (f *fakeElement) Type() string            { return f.typ }
func (f *fakeElement) Value() string           { return f.value }
func (f *fakeElement) Footprint() string       { return f.footprint }
func (f *fakeElement) Position() sexp.Position { return f.pos }
func (f *fakeElement) Angle() sexp.Angle       { return f.angle }
func (f *fakeElement) DNP() bool               { return f.dnp }
func (f *fakeElement) Property(key string) (string, bool) {
	v, ok := f.props[key]
	return v, ok
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Tokens = SequentialTokens("tok")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return cfg
}

func TestMatchByToken(t *testing.T) {
	cfg := testConfig(t)

	// Renamed, moved, and re-valued all at once: the token still wins.
	comps := []*circuit.Component{
		{Token: "t1", Ref: "R2", LibID: "Device:R", Value: "22k"},
	}
	elems := []Element{
		&fakeElement{uuid: "t1", ref: "R1", typ: "Device:R", value: "10k", pos: sexp.Position{X: 50, Y: 50}},
	}

	corr, diags := Match(comps, elems, cfg, targetSchematic)
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if len(corr.Pairs) != 1 || corr.Pairs[0].Strategy != StrategyToken {
		t.Fatalf("Pairs = %+v, want one token match", corr.Pairs)
	}
	if len(corr.UnmatchedComponents) != 0 || len(corr.UnmatchedElements) != 0 {
		t.Error("leftovers after a full match")
	}
}

func TestMatchByReference(t *testing.T) {
	cfg := testConfig(t)

	comps := []*circuit.Component{
		{Ref: "R1", LibID: "Device:R", Value: "10k"},
	}
	elems := []Element{
		&fakeElement{ref: "R1", typ: "Device:R", value: "999k", pos: sexp.Position{X: 10, Y: 10}},
	}

	corr, _ := Match(comps, elems, cfg, targetSchematic)
	if len(corr.Pairs) != 1 || corr.Pairs[0].Strategy != StrategyReference {
		t.Fatalf("Pairs = %+v, want one reference match", corr.Pairs)
	}
}

func TestMatchTokenBeatsReference(t *testing.T) {
	cfg := testConfig(t)

	// The component's token points at one element while its reference
	// points at another; the token strategy runs first and wins.
	comps := []*circuit.Component{
		{Token: "t9", Ref: "R1", LibID: "Device:R"},
	}
	elems := []Element{
		&fakeElement{uuid: "t0", ref: "R1", typ: "Device:R"},
		&fakeElement{uuid: "t9", ref: "R5", typ: "Device:R"},
	}

	corr, _ := Match(comps, elems, cfg, targetSchematic)
	if len(corr.Pairs) != 1 {
		t.Fatalf("Pairs = %d, want 1", len(corr.Pairs))
	}
	if corr.Pairs[0].Elem.Reference() != "R5" || corr.Pairs[0].Strategy != StrategyToken {
		t.Errorf("matched %s by %v, want R5 by token", corr.Pairs[0].Elem.Reference(), corr.Pairs[0].Strategy)
	}
	if len(corr.UnmatchedElements) != 1 || corr.UnmatchedElements[0].Reference() != "R1" {
		t.Errorf("unmatched = %v, want the stale R1 element", corr.UnmatchedElements)
	}
}

func TestMatchByPositionFingerprint(t *testing.T) {
	cfg := testConfig(t)

	// The user renumbered R1 to R7 in the document; no tokens anywhere.
	comps := []*circuit.Component{
		{Ref: "R1", LibID: "Device:R", Value: "10k", Footprint: "R_0603",
			At: &circuit.Placement{X: 50.8, Y: 50.8}},
	}
	elems := []Element{
		&fakeElement{ref: "R7", typ: "Device:R", value: "10k", footprint: "R_0603",
			pos: sexp.Position{X: 50.8, Y: 50.8}},
	}

	corr, diags := Match(comps, elems, cfg, targetSchematic)
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if len(corr.Pairs) != 1 || corr.Pairs[0].Strategy != StrategyPosition {
		t.Fatalf("Pairs = %+v, want one position match", corr.Pairs)
	}
}

func TestMatchPositionRequiresEqualFingerprint(t *testing.T) {
	cfg := testConfig(t)

	comps := []*circuit.Component{
		{Ref: "R1", LibID: "Device:R", Value: "10k", Footprint: "R_0603",
			At: &circuit.Placement{X: 50.8, Y: 50.8}},
	}
	// Same place, different value: not the same part.
	elems := []Element{
		&fakeElement{ref: "R7", typ: "Device:R", value: "22k", footprint: "R_0603",
			pos: sexp.Position{X: 50.8, Y: 50.8}},
	}

	corr, _ := Match(comps, elems, cfg, targetSchematic)
	if len(corr.Pairs) != 0 {
		t.Errorf("matched across a value difference: %+v", corr.Pairs)
	}
}

func TestMatchPositionToleranceBound(t *testing.T) {
	cfg := testConfig(t)

	comps := []*circuit.Component{
		{Ref: "R1", LibID: "Device:R", Value: "10k", Footprint: "R_0603",
			At: &circuit.Placement{X: 50.8, Y: 50.8}},
	}
	// One full grid unit away: outside tolerance (grid/10).
	elems := []Element{
		&fakeElement{ref: "R7", typ: "Device:R", value: "10k", footprint: "R_0603",
			pos: sexp.Position{X: 52.07, Y: 50.8}},
	}

	corr, _ := Match(comps, elems, cfg, targetSchematic)
	if len(corr.Pairs) != 0 {
		t.Errorf("matched outside tolerance: %+v", corr.Pairs)
	}
}

func TestMatchPositionSkipsEqualReferences(t *testing.T) {
	cfg := testConfig(t)

	// Same name at the same place but, say, a token mismatch upstream:
	// the position strategy must not report this no-op as a rename.
	comps := []*circuit.Component{
		{Token: "t-new", Ref: "R1", LibID: "Device:R", Value: "10k", Footprint: "R_0603",
			At: &circuit.Placement{X: 50.8, Y: 50.8}},
	}
	elems := []Element{
		&fakeElement{uuid: "t-old", ref: "R1", typ: "Device:R", value: "10k", footprint: "R_0603",
			pos: sexp.Position{X: 50.8, Y: 50.8}},
	}

	corr, _ := Match(comps, elems, cfg, targetSchematic)
	for _, p := range corr.Pairs {
		if p.Strategy == StrategyPosition {
			t.Errorf("position strategy claimed an equal-reference pair")
		}
	}
	// Reference strategy still gets it.
	if len(corr.Pairs) != 1 || corr.Pairs[0].Strategy != StrategyReference {
		t.Errorf("Pairs = %+v, want one reference match", corr.Pairs)
	}
}

func TestMatchAmbiguityRefused(t *testing.T) {
	cfg := testConfig(t)

	// Two identical unmatched components at the same document position:
	// the matcher must not guess.
	comps := []*circuit.Component{
		{Ref: "R1", LibID: "Device:R", Value: "10k", Footprint: "R_0603",
			At: &circuit.Placement{X: 50.8, Y: 50.8}},
		{Ref: "R2", LibID: "Device:R", Value: "10k", Footprint: "R_0603",
			At: &circuit.Placement{X: 50.8, Y: 50.8}},
	}
	elems := []Element{
		&fakeElement{ref: "R7", typ: "Device:R", value: "10k", footprint: "R_0603",
			pos: sexp.Position{X: 50.8, Y: 50.8}},
	}

	corr, diags := Match(comps, elems, cfg, targetSchematic)
	if len(corr.Pairs) != 0 {
		t.Errorf("ambiguous case was matched: %+v", corr.Pairs)
	}
	if len(corr.UnmatchedComponents) != 2 || len(corr.UnmatchedElements) != 1 {
		t.Errorf("leftovers = %d comps, %d elems; want 2 and 1",
			len(corr.UnmatchedComponents), len(corr.UnmatchedElements))
	}
	found := false
	for _, d := range diags {
		if d.Kind == DiagAmbiguousMatch {
			found = true
		}
	}
	if !found {
		t.Errorf("no ambiguous-match diagnostic in %v", diags)
	}
}

func TestMatchBijective(t *testing.T) {
	cfg := testConfig(t)

	// Two components sharing one reference target: only one may claim it.
	comps := []*circuit.Component{
		{Ref: "R1", LibID: "Device:R"},
		{Ref: "R1", LibID: "Device:R"},
	}
	elems := []Element{
		&fakeElement{ref: "R1", typ: "Device:R"},
	}

	corr, _ := Match(comps, elems, cfg, targetSchematic)
	if len(corr.Pairs) != 1 {
		t.Fatalf("Pairs = %d, want 1", len(corr.Pairs))
	}
	if len(corr.UnmatchedComponents) != 1 {
		t.Errorf("second component was not left unmatched")
	}
}
