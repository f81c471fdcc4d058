package sexp

import (
	"bytes"
	"strings"
	"testing"
)

func TestRoundTripByteIdentical(t *testing.T) {
	inputs := []string{
		"(kicad_sch (version 20231120))",
		"(kicad_sch\n\t(version 20231120)\n\t(generator \"eeschema\")\n)",
		"(a\r\n  (b   1   2)\t(c \"x y\")\n\n)",
		"# leading comment\n(root (child 1)) # trailing comment\n",
		"(odd(tight)(parens))",
		"(uni \"Ω ≤ µ\" (nested \"日本語\"))",
		"\n\n(root)\n\n",
	}

	for _, input := range inputs {
		doc, err := Parse([]byte(input))
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", input, err)
		}
		out := doc.Bytes()
		if !bytes.Equal(out, []byte(input)) {
			t.Errorf("Round trip not byte-identical:\n in: %q\nout: %q", input, out)
		}
	}
}

func TestMutationIsLocal(t *testing.T) {
	input := "(kicad_sch\n" +
		"\t(version 20231120)\n" +
		"\t(symbol\n\t\t(lib_id \"Device:R\")\n\t\t(property \"Reference\" \"R1\"\n\t\t\t(at 100 50 0)\n\t\t)\n\t)\n" +
		"\t(symbol\n\t\t(lib_id \"Device:C\")\n\t\t(property \"Reference\" \"C1\"\n\t\t\t(at 120   50 0)\n\t\t)\n\t)\n" +
		")"

	doc, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Rewrite R1's reference value only.
	symbols := FindAllLists(doc.Root(), "symbol")
	if len(symbols) != 2 {
		t.Fatalf("Expected 2 symbols, got %d", len(symbols))
	}
	prop, found := FindList(symbols[0], "property")
	if !found {
		t.Fatal("property node not found")
	}
	prop.SetString(2, "R99")

	out := string(doc.Bytes())

	if !strings.Contains(out, `"R99"`) {
		t.Error("Edited value missing from output")
	}
	if strings.Contains(out, `"R1"`) {
		t.Error("Old value still present in output")
	}
	// The untouched second symbol must keep its original bytes, including
	// the odd triple-space run.
	if !strings.Contains(out, "(at 120   50 0)") {
		t.Error("Untouched sibling element was reformatted")
	}
	// The edited property keeps its own (at ...) node bytes.
	if !strings.Contains(out, "(at 100 50 0)") {
		t.Error("Position of edited element changed")
	}
}

func TestAppendRendersCanonically(t *testing.T) {
	input := "(kicad_sch\n\t(version 20231120)\n)"

	doc, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	label := NewList(
		NewAtom("label"), NewQuoted("NET1"),
		NewList(NewAtom("at"), NewAtom("50"), NewAtom("50"), NewAtom("0")),
		NewList(NewAtom("uuid"), NewQuoted("aaaa-bbbb")),
	)
	doc.Root().Append(label)

	out := string(doc.Bytes())
	want := "(kicad_sch\n\t(version 20231120)\n\t(label \"NET1\"\n\t\t(at 50 50 0)\n\t\t(uuid \"aaaa-bbbb\")\n\t)\n)"
	if out != want {
		t.Errorf("Appended element rendering mismatch:\nwant: %q\n got: %q", want, out)
	}
}

func TestRemoveChildLeavesNoHole(t *testing.T) {
	input := "(root\n\t(keep 1)\n\t(drop 2)\n\t(keep 3)\n)"

	doc, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	drop, found := FindList(doc.Root(), "drop")
	if !found {
		t.Fatal("drop node not found")
	}
	if !doc.Root().RemoveNode(drop) {
		t.Fatal("RemoveNode failed")
	}

	out := string(doc.Bytes())
	want := "(root\n\t(keep 1)\n\t(keep 3)\n)"
	if out != want {
		t.Errorf("Removal left wrong output:\nwant: %q\n got: %q", want, out)
	}
}

func TestRenderAfterDoubleParse(t *testing.T) {
	// Render output must itself parse and render identically (stability).
	input := "(root (a 1) (b \"two\"))"
	doc, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	doc.Root().Append(NewList(NewAtom("c"), NewAtom("3")))
	first := doc.Bytes()

	doc2, err := Parse(first)
	if err != nil {
		t.Fatalf("Reparse failed: %v", err)
	}
	second := doc2.Bytes()
	if !bytes.Equal(first, second) {
		t.Errorf("Second render differs:\nfirst:  %q\nsecond: %q", first, second)
	}
}

func TestReplaceKeepsSeparator(t *testing.T) {
	input := "(property \"Value\"   \"10k\")"
	doc, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	doc.Root().SetString(2, "22k")

	out := string(doc.Bytes())
	// The unusual three-space separator before the value survives the edit.
	want := "(property \"Value\"   \"22k\")"
	if out != want {
		t.Errorf("Separator not preserved:\nwant: %q\n got: %q", want, out)
	}
}
