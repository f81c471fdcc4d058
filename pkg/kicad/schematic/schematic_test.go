package schematic

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// testSheet is a small but structurally real schematic: embedded library
// definitions for a resistor and a ground marker, two placed resistors
// (R2 rotated 90° and carrying an odd triple-space in its at node), one
// wire, and one label.
const testSheet = `(kicad_sch
	(version 20231120)
	(generator "eeschema")
	(uuid "11111111-0000-0000-0000-000000000000")
	(paper "A4")
	(lib_symbols
		(symbol "Device:R"
			(pin_numbers hide)
			(pin_names (offset 0))
			(in_bom yes)
			(on_board yes)
			(property "Reference" "R" (at 2.032 0 90) (effects (font (size 1.27 1.27))))
			(property "Value" "R" (at 0 0 90) (effects (font (size 1.27 1.27))))
			(symbol "R_0_1"
				(rectangle (start -1.016 -2.54) (end 1.016 2.54)
					(stroke (width 0.254) (type default))
					(fill (type none))
				)
			)
			(symbol "R_1_1"
				(pin passive line (at 0 3.81 270) (length 1.27)
					(name "~" (effects (font (size 1.27 1.27))))
					(number "1" (effects (font (size 1.27 1.27))))
				)
				(pin passive line (at 0 -3.81 90) (length 1.27)
					(name "~" (effects (font (size 1.27 1.27))))
					(number "2" (effects (font (size 1.27 1.27))))
				)
			)
		)
		(symbol "power:GND"
			(power)
			(pin_names (offset 0))
			(in_bom yes)
			(on_board yes)
			(property "Reference" "#PWR" (at 0 -6.35 0) (effects (font (size 1.27 1.27)) hide))
			(property "Value" "GND" (at 0 -3.81 0) (effects (font (size 1.27 1.27))))
			(symbol "GND_1_1"
				(pin power_in line (at 0 0 270) (length 0)
					(name "GND" (effects (font (size 1.27 1.27))))
					(number "1" (effects (font (size 1.27 1.27))))
				)
			)
		)
	)
	(symbol
		(lib_id "Device:R")
		(at 50.8 50.8 0)
		(unit 1)
		(in_bom yes)
		(on_board yes)
		(dnp no)
		(uuid "aaaa0001-0000-0000-0000-000000000000")
		(property "Reference" "R1" (at 53.34 49.53 0) (effects (font (size 1.27 1.27)) (justify left)))
		(property "Value" "10k" (at 53.34 52.07 0) (effects (font (size 1.27 1.27)) (justify left)))
		(property "Footprint" "Resistor_SMD:R_0603_1608Metric" (at 49.022 50.8 90) (effects (font (size 1.27 1.27)) hide))
		(instances
			(project "demo"
				(path "/11111111-0000-0000-0000-000000000000"
					(reference "R1")
					(unit 1)
				)
			)
		)
	)
	(symbol
		(lib_id "Device:R")
		(at 76.2  50.8 90)
		(unit 1)
		(in_bom yes)
		(on_board yes)
		(uuid "aaaa0002-0000-0000-0000-000000000000")
		(property "Reference" "R2" (at 76.2 48.26 90) (effects (font (size 1.27 1.27))))
		(property "Value" "22k" (at 76.2 53.34 90) (effects (font (size 1.27 1.27))))
		(property "Footprint" "" (at 76.2 50.8 0) (effects (font (size 1.27 1.27)) hide))
	)
	(wire
		(pts (xy 50.8 54.61) (xy 50.8 60.96))
		(stroke (width 0) (type default))
		(uuid "cccc0001-0000-0000-0000-000000000000")
	)
	(label "SENSE"
		(at 50.8 60.96 0)
		(effects (font (size 1.27 1.27)) (justify left bottom))
		(uuid "dddd0001-0000-0000-0000-000000000000")
	)
	(sheet_instances (path "/" (page "1")))
)`

func loadTestSheet(t *testing.T) *Schematic {
	t.Helper()
	sch, err := Parse([]byte(testSheet))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return sch
}

func TestParseAccessors(t *testing.T) {
	sch := loadTestSheet(t)

	if sch.Version() != 20231120 {
		t.Errorf("Version = %d, want 20231120", sch.Version())
	}
	if sch.Generator() != "eeschema" {
		t.Errorf("Generator = %q", sch.Generator())
	}
	if sch.Paper() != "A4" {
		t.Errorf("Paper = %q", sch.Paper())
	}

	symbols := sch.Symbols()
	if len(symbols) != 2 {
		t.Fatalf("got %d symbols, want 2 (library definitions must not count)", len(symbols))
	}

	r1 := sch.SymbolByReference("R1")
	if r1 == nil {
		t.Fatal("R1 not found")
	}
	if r1.LibID() != "Device:R" {
		t.Errorf("R1 lib_id = %q", r1.LibID())
	}
	if r1.Value() != "10k" {
		t.Errorf("R1 value = %q", r1.Value())
	}
	if r1.Footprint() != "Resistor_SMD:R_0603_1608Metric" {
		t.Errorf("R1 footprint = %q", r1.Footprint())
	}
	if pos := r1.Position(); pos.X != 50.8 || pos.Y != 50.8 {
		t.Errorf("R1 position = %v", pos)
	}
	if r1.Angle() != 0 {
		t.Errorf("R1 angle = %v", r1.Angle())
	}
	if r1.DNP() {
		t.Error("R1 dnp should be false")
	}
	if r1.UUID() != "aaaa0001-0000-0000-0000-000000000000" {
		t.Errorf("R1 uuid = %q", r1.UUID())
	}

	r2 := sch.SymbolByUUID("aaaa0002-0000-0000-0000-000000000000")
	if r2 == nil {
		t.Fatal("R2 not found by uuid")
	}
	if r2.Reference() != "R2" {
		t.Errorf("R2 reference = %q", r2.Reference())
	}
	if r2.Angle() != 90 {
		t.Errorf("R2 angle = %v", r2.Angle())
	}

	if len(sch.PowerSymbols()) != 0 {
		t.Error("no power symbols expected")
	}
	if len(sch.Wires()) != 1 {
		t.Errorf("got %d wires, want 1", len(sch.Wires()))
	}
	labels := sch.Labels()
	if len(labels) != 1 || labels[0].Text() != "SENSE" {
		t.Fatalf("labels = %v", labels)
	}
	if pos := labels[0].Position(); pos.X != 50.8 || pos.Y != 60.96 {
		t.Errorf("label position = %v", pos)
	}
}

func TestParseRejectsWrongRoot(t *testing.T) {
	if _, err := Parse([]byte(`(kicad_pcb (version 20231120))`)); err == nil {
		t.Error("expected error for non-schematic root")
	}
	if _, err := Parse([]byte(`(kicad_sch (version 20200101))`)); err == nil {
		t.Error("expected error for pre-6.0 version")
	}
	if _, err := Parse([]byte(`(kicad_sch (generator "x"))`)); err == nil {
		t.Error("expected error for missing version")
	}
}

func TestMutatorsPreservePositionBytes(t *testing.T) {
	sch := loadTestSheet(t)

	r1 := sch.SymbolByReference("R1")
	r1.SetValue("47k")
	r1.SetFootprint("Resistor_SMD:R_0805_2012Metric")
	r1.SetProperty("Description", "pull-up")

	out := string(sch.Bytes())

	// The symbol's own at node and the property at nodes keep their bytes.
	if !strings.Contains(out, "(at 50.8 50.8 0)") {
		t.Error("symbol position changed by attribute edit")
	}
	if !strings.Contains(out, "(at 53.34 52.07 0)") {
		t.Error("value property position changed by value edit")
	}
	if !strings.Contains(out, `"47k"`) || strings.Contains(out, `"10k"`) {
		t.Error("value not rewritten")
	}
	// Untouched R2 keeps its odd triple-space formatting.
	if !strings.Contains(out, "(at 76.2  50.8 90)") {
		t.Error("untouched sibling symbol was reformatted")
	}
	// New property lands inside the symbol node with the symbol position.
	if !strings.Contains(out, `(property "Description" "pull-up"`) {
		t.Error("new property missing")
	}

	if v, ok := r1.Property("Description"); !ok || v != "pull-up" {
		t.Errorf("Property(Description) = %q, %v", v, ok)
	}
}

func TestSetReferenceUpdatesInstances(t *testing.T) {
	sch := loadTestSheet(t)

	r1 := sch.SymbolByReference("R1")
	r1.SetReference("R9")

	out := string(sch.Bytes())
	if strings.Contains(out, `(reference "R1")`) {
		t.Error("instances block still carries old reference")
	}
	if !strings.Contains(out, `(reference "R9")`) {
		t.Error("instances block not updated")
	}
	if sch.SymbolByReference("R9") == nil {
		t.Error("rename not visible through lookup")
	}
	// Rename must not move the part.
	if !strings.Contains(out, "(at 50.8 50.8 0)") {
		t.Error("rename changed the symbol position")
	}
}

func TestSetPositionAndAngleIndependent(t *testing.T) {
	sch := loadTestSheet(t)
	r2 := sch.SymbolByReference("R2")

	r2.SetPosition(sexp.Position{X: 101.6, Y: 63.5})
	if r2.Angle() != 90 {
		t.Errorf("position change altered angle: %v", r2.Angle())
	}
	if pos := r2.Position(); pos.X != 101.6 || pos.Y != 63.5 {
		t.Errorf("position = %v", pos)
	}

	r2.SetAngle(180)
	if pos := r2.Position(); pos.X != 101.6 || pos.Y != 63.5 {
		t.Errorf("angle change altered position: %v", pos)
	}
	if r2.Angle() != 180 {
		t.Errorf("angle = %v", r2.Angle())
	}
}

func TestSetDNP(t *testing.T) {
	sch := loadTestSheet(t)

	r1 := sch.SymbolByReference("R1") // has (dnp no)
	r1.SetDNP(true)
	if !r1.DNP() {
		t.Error("R1 dnp not set")
	}

	r2 := sch.SymbolByReference("R2") // has no dnp node at all
	if r2.DNP() {
		t.Error("R2 dnp should start false")
	}
	r2.SetDNP(true)
	if !r2.DNP() {
		t.Error("R2 dnp not created")
	}

	out := string(sch.Bytes())
	if strings.Count(out, "(dnp yes)") != 2 {
		t.Errorf("expected two (dnp yes) nodes:\n%s", out)
	}
}

func TestPinPosition(t *testing.T) {
	sch := loadTestSheet(t)

	cases := []struct {
		ref  string
		pin  string
		x, y float64
	}{
		// R1 at (50.8, 50.8), no rotation: pin 1 above, pin 2 below.
		{"R1", "1", 50.8, 46.99},
		{"R1", "2", 50.8, 54.61},
		// R2 rotated 90° counterclockwise: pin 1 to the left.
		{"R2", "1", 72.39, 50.8},
		{"R2", "2", 80.01, 50.8},
	}
	for _, tc := range cases {
		sym := sch.SymbolByReference(tc.ref)
		pos, ok := sch.PinPosition(sym, tc.pin)
		if !ok {
			t.Fatalf("%s pin %s: not found", tc.ref, tc.pin)
		}
		if math.Abs(pos.X-tc.x) > 1e-9 || math.Abs(pos.Y-tc.y) > 1e-9 {
			t.Errorf("%s pin %s anchor = (%v, %v), want (%v, %v)",
				tc.ref, tc.pin, pos.X, pos.Y, tc.x, tc.y)
		}
	}

	r1 := sch.SymbolByReference("R1")
	if _, ok := sch.PinPosition(r1, "3"); ok {
		t.Error("nonexistent pin reported a position")
	}
}

func TestPinPositionMirrored(t *testing.T) {
	// A mirrored copy of the sheet's R2: mirror y flips the X offset.
	mirrored := strings.Replace(testSheet,
		"(at 76.2  50.8 90)\n\t\t(unit 1)",
		"(at 76.2  50.8 90)\n\t\t(mirror y)\n\t\t(unit 1)", 1)
	sch, err := Parse([]byte(mirrored))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	r2 := sch.SymbolByReference("R2")
	if r2.Mirror() != "y" {
		t.Fatalf("mirror = %q", r2.Mirror())
	}
	pos, ok := sch.PinPosition(r2, "1")
	if !ok {
		t.Fatal("pin 1 not found")
	}
	if math.Abs(pos.X-80.01) > 1e-9 || math.Abs(pos.Y-50.8) > 1e-9 {
		t.Errorf("mirrored pin 1 anchor = (%v, %v), want (80.01, 50.8)", pos.X, pos.Y)
	}
}

func TestHasLibSymbol(t *testing.T) {
	sch := loadTestSheet(t)
	if !sch.HasLibSymbol("Device:R") {
		t.Error("Device:R definition not found")
	}
	if !sch.HasLibSymbol("power:GND") {
		t.Error("power:GND definition not found")
	}
	if sch.HasLibSymbol("Device:C") {
		t.Error("Device:C should not exist")
	}
}

func TestAddSymbol(t *testing.T) {
	sch := loadTestSheet(t)

	sym := sch.AddSymbol(SymbolSpec{
		LibID:      "Device:R",
		At:         sexp.PositionAngle{Position: sexp.Position{X: 25.4, Y: 25.4}},
		UUID:       "bbbb0001-0000-0000-0000-000000000000",
		Reference:  "R3",
		Value:      "1k",
		Footprint:  "Resistor_SMD:R_0603_1608Metric",
		Properties: map[string]string{"MPN": "RC0603FR-071KL"},
		InBOM:      true,
		OnBoard:    true,
	})

	if sym.Reference() != "R3" || sym.Value() != "1k" {
		t.Errorf("added symbol reads back %q/%q", sym.Reference(), sym.Value())
	}
	if sch.SymbolByReference("R3") == nil {
		t.Error("added symbol not found by reference")
	}
	if len(sch.Symbols()) != 3 {
		t.Errorf("got %d symbols after add", len(sch.Symbols()))
	}

	out := string(sch.Bytes())
	if !strings.Contains(out, `(lib_id "Device:R")`) {
		t.Error("lib_id missing")
	}
	if !strings.Contains(out, `(property "MPN" "RC0603FR-071KL"`) {
		t.Error("extra property missing from output")
	}
	// The original text before the addition is untouched.
	if !strings.Contains(out, "(at 76.2  50.8 90)") {
		t.Error("existing elements were reformatted by the addition")
	}

	// The new document must parse again.
	if _, err := Parse(sch.Bytes()); err != nil {
		t.Fatalf("output does not re-parse: %v", err)
	}
}

func TestAddPowerSymbolAndLabel(t *testing.T) {
	sch := loadTestSheet(t)

	pwr := sch.AddPowerSymbol(PowerSpec{
		LibID:     "power:GND",
		NetName:   "GND",
		Reference: "#PWR01",
		UUID:      "eeee0001-0000-0000-0000-000000000000",
		At:        sexp.PositionAngle{Position: sexp.Position{X: 50.8, Y: 54.61}},
	})
	if pwr.Value() != "GND" || !pwr.IsPower() {
		t.Errorf("power marker value=%q ispower=%v", pwr.Value(), pwr.IsPower())
	}
	if len(sch.PowerSymbols()) != 1 {
		t.Errorf("PowerSymbols() = %d, want 1", len(sch.PowerSymbols()))
	}

	lbl := sch.AddLabel("NET1", sexp.PositionAngle{Position: sexp.Position{X: 80.01, Y: 50.8}},
		"ffff0001-0000-0000-0000-000000000000")
	if lbl.Text() != "NET1" {
		t.Errorf("label text = %q", lbl.Text())
	}
	if len(sch.Labels()) != 2 {
		t.Errorf("got %d labels", len(sch.Labels()))
	}

	if !sch.RemoveLabel(lbl) {
		t.Error("RemoveLabel failed")
	}
	if len(sch.Labels()) != 1 {
		t.Error("label not removed")
	}
}

func TestRemoveSymbol(t *testing.T) {
	sch := loadTestSheet(t)
	r1 := sch.SymbolByReference("R1")

	if !sch.RemoveSymbol(r1) {
		t.Fatal("RemoveSymbol failed")
	}
	if sch.SymbolByReference("R1") != nil {
		t.Error("R1 still present after removal")
	}
	if len(sch.Symbols()) != 1 {
		t.Errorf("got %d symbols after removal", len(sch.Symbols()))
	}

	out := string(sch.Bytes())
	if strings.Contains(out, "aaaa0001") {
		t.Error("removed symbol bytes still in output")
	}
	// The wire and label survive untouched.
	if !strings.Contains(out, "(xy 50.8 54.61)") || !strings.Contains(out, `(label "SENSE"`) {
		t.Error("unrelated elements disturbed by removal")
	}
}

func TestSymbolBounds(t *testing.T) {
	sch := loadTestSheet(t)
	r1 := sch.SymbolByReference("R1")

	box := sch.SymbolBounds(r1)
	// Lib extent: pins reach ±3.81 in Y, body rectangle ±1.016 in X.
	if math.Abs(box.Min.Y-46.99) > 1e-9 || math.Abs(box.Max.Y-54.61) > 1e-9 {
		t.Errorf("R1 bounds Y = [%v, %v]", box.Min.Y, box.Max.Y)
	}
	if math.Abs(box.Min.X-49.784) > 1e-9 || math.Abs(box.Max.X-51.816) > 1e-9 {
		t.Errorf("R1 bounds X = [%v, %v]", box.Min.X, box.Max.X)
	}

	// R2 is rotated, so its long axis lies along X.
	r2 := sch.SymbolByReference("R2")
	box2 := sch.SymbolBounds(r2)
	if box2.Width() <= box2.Height() {
		t.Errorf("rotated symbol bounds not rotated: %vx%v", box2.Width(), box2.Height())
	}
}

func TestExtent(t *testing.T) {
	sch := loadTestSheet(t)
	ext := sch.Extent()
	if ext.IsEmpty() {
		t.Fatal("extent empty")
	}
	// The label at (50.8, 60.96) is the lowest element.
	if ext.Max.Y < 60.96 {
		t.Errorf("extent does not cover label: %v", ext.Max.Y)
	}
	if ext.Min.X > 49.784+1e-9 {
		t.Errorf("extent does not cover R1 body: %v", ext.Min.X)
	}
}

func TestSaveAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.kicad_sch")

	sch := loadTestSheet(t)
	if err := sch.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(data, []byte(testSheet)) {
		t.Error("saved unmodified document differs from source")
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if again.SymbolByReference("R1") == nil {
		t.Error("reload lost symbols")
	}

	// No temp litter left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
