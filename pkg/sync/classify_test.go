package sync

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

func classifyOne(t *testing.T, comp *circuit.Component, elem Element) *ChangeSet {
	t.Helper()
	cfg := testConfig(t)
	corr := &Correspondence{Pairs: []Pair{{Comp: comp, Elem: elem, Strategy: StrategyToken}}}
	return Classify(corr, cfg, targetSchematic)
}

func TestClassifyPreserved(t *testing.T) {
	cs := classifyOne(t,
		&circuit.Component{Token: "t1", Ref: "R1", LibID: "Device:R", Value: "10k", Footprint: "R_0603"},
		&fakeElement{uuid: "t1", ref: "R1", typ: "Device:R", value: "10k", footprint: "R_0603",
			pos: sexp.Position{X: 50, Y: 50}},
	)
	if len(cs.Preserved) != 1 {
		t.Fatalf("Preserved = %d, want 1", len(cs.Preserved))
	}
	if len(cs.Updated)+len(cs.Renamed)+len(cs.Unsupported) != 0 {
		t.Error("identical pair classified as changed")
	}
}

func TestClassifyUpdated(t *testing.T) {
	cs := classifyOne(t,
		&circuit.Component{Token: "t1", Ref: "R1", LibID: "Device:R", Value: "22k", Footprint: "R_0805",
			Attrs: circuit.Attributes{DNP: true}},
		&fakeElement{uuid: "t1", ref: "R1", typ: "Device:R", value: "10k", footprint: "R_0603"},
	)
	if len(cs.Updated) != 1 {
		t.Fatalf("Updated = %d, want 1", len(cs.Updated))
	}
	diff := cs.Updated[0].Diff
	if !diff.Value || !diff.Footprint || !diff.DNP {
		t.Errorf("Diff = %+v, want value+footprint+dnp", diff)
	}
	if diff.Renamed || len(cs.Renamed) != 0 {
		t.Error("attribute change reported as a rename")
	}
}

func TestClassifyRenamedAndUpdatedNotExclusive(t *testing.T) {
	cs := classifyOne(t,
		&circuit.Component{Token: "t1", Ref: "R2", LibID: "Device:R", Value: "22k", Footprint: "R_0603"},
		&fakeElement{uuid: "t1", ref: "R1", typ: "Device:R", value: "10k", footprint: "R_0603"},
	)
	if len(cs.Renamed) != 1 || len(cs.Updated) != 1 {
		t.Fatalf("Renamed = %d, Updated = %d, want 1 and 1", len(cs.Renamed), len(cs.Updated))
	}
	if len(cs.Preserved) != 0 {
		t.Error("changed pair also preserved")
	}
}

func TestClassifyPureRename(t *testing.T) {
	cs := classifyOne(t,
		&circuit.Component{Token: "t1", Ref: "R2", LibID: "Device:R", Value: "10k", Footprint: "R_0603"},
		&fakeElement{uuid: "t1", ref: "R1", typ: "Device:R", value: "10k", footprint: "R_0603"},
	)
	if len(cs.Renamed) != 1 {
		t.Fatalf("Renamed = %d, want 1", len(cs.Renamed))
	}
	if len(cs.Updated) != 0 {
		t.Error("pure rename also counted as updated")
	}
}

func TestClassifyTypeSwapUnsupported(t *testing.T) {
	cs := classifyOne(t,
		&circuit.Component{Token: "t1", Ref: "R1", LibID: "Device:C", Value: "100n"},
		&fakeElement{uuid: "t1", ref: "R1", typ: "Device:R", value: "10k"},
	)
	if len(cs.Unsupported) != 1 {
		t.Fatalf("Unsupported = %d, want 1", len(cs.Unsupported))
	}
	if len(cs.Updated)+len(cs.Renamed)+len(cs.Preserved) != 0 {
		t.Error("type swap leaked into another set")
	}
}

func TestClassifyPositionHint(t *testing.T) {
	// A hint matching the document position is not a change.
	cs := classifyOne(t,
		&circuit.Component{Token: "t1", Ref: "R1", LibID: "Device:R", Value: "10k", Footprint: "R_0603",
			At: &circuit.Placement{X: 50, Y: 50}},
		&fakeElement{uuid: "t1", ref: "R1", typ: "Device:R", value: "10k", footprint: "R_0603",
			pos: sexp.Position{X: 50, Y: 50}},
	)
	if len(cs.Preserved) != 1 {
		t.Errorf("matching hint classified as change: %+v", cs.Updated)
	}

	// A moved hint is a position-only change; rotation stays untouched.
	cs = classifyOne(t,
		&circuit.Component{Token: "t1", Ref: "R1", LibID: "Device:R", Value: "10k", Footprint: "R_0603",
			At: &circuit.Placement{X: 60, Y: 50}},
		&fakeElement{uuid: "t1", ref: "R1", typ: "Device:R", value: "10k", footprint: "R_0603",
			pos: sexp.Position{X: 50, Y: 50}},
	)
	if len(cs.Updated) != 1 || !cs.Updated[0].Diff.Position {
		t.Fatalf("moved hint not classified as position change: %+v", cs)
	}
	if cs.Updated[0].Diff.Rotation {
		t.Error("position change dragged rotation along")
	}
}

func TestClassifyExtraAttributes(t *testing.T) {
	cs := classifyOne(t,
		&circuit.Component{Token: "t1", Ref: "R1", LibID: "Device:R", Value: "10k", Footprint: "R_0603",
			Attrs: circuit.Attributes{
				PartNumber: "RC0603FR-0710KL",
				Extra:      map[string]string{"Tolerance": "1%"},
			}},
		&fakeElement{uuid: "t1", ref: "R1", typ: "Device:R", value: "10k", footprint: "R_0603",
			props: map[string]string{"MPN": "RC0603FR-0710KL"}},
	)
	if len(cs.Updated) != 1 {
		t.Fatalf("Updated = %d, want 1", len(cs.Updated))
	}
	attrs := cs.Updated[0].Diff.Attrs
	if len(attrs) != 1 || attrs[0] != "Tolerance" {
		t.Errorf("Attrs = %v, want [Tolerance] (MPN already equal)", attrs)
	}
}

func TestClassifyUnmatchedFlowThrough(t *testing.T) {
	cfg := testConfig(t)
	compA := &circuit.Component{Ref: "C9", LibID: "Device:C"}
	elemB := &fakeElement{ref: "R9", typ: "Device:R"}

	corr := &Correspondence{
		UnmatchedComponents: []*circuit.Component{compA},
		UnmatchedElements:   []Element{elemB},
	}
	cs := Classify(corr, cfg, targetSchematic)
	if len(cs.Added) != 1 || cs.Added[0] != compA {
		t.Error("unmatched component not in Added")
	}
	if len(cs.Removed) != 1 || cs.Removed[0] != Element(elemB) {
		t.Error("unmatched element not in Removed")
	}
}
