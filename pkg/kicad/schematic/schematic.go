// Package schematic is an edit layer over KiCad schematic files
// (.kicad_sch). A loaded Schematic wraps the lossless s-expression
// document and hands out typed element handles (Symbol, Label, Wire, ...)
// that read and mutate their underlying nodes in place. Elements that are
// never touched through a handle serialize byte-identical to the input,
// which is the property a synchronization pass depends on when it edits a
// hand-drawn sheet.
package schematic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// Minimum supported KiCad version for schematics (6.0 = 20211014)
const MinSupportedVersion = 20211014

// Schematic is a loaded .kicad_sch document.
type Schematic struct {
	doc  *sexp.Document
	root *sexp.List
}

// Parse parses a schematic from a source buffer.
func Parse(data []byte) (*Schematic, error) {
	doc, err := sexp.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	root := doc.Root()
	if root.Name() != "kicad_sch" {
		return nil, fmt.Errorf("not a KiCad schematic file: expected 'kicad_sch', got '%s'", root.Name())
	}

	ver, found := sexp.FindList(root, "version")
	if !found {
		return nil, fmt.Errorf("missing required 'version' field")
	}
	v, err := sexp.GetInt(ver, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version: %w", err)
	}
	if v < MinSupportedVersion {
		return nil, fmt.Errorf("unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", v, MinSupportedVersion)
	}

	return &Schematic{doc: doc, root: root}, nil
}

// Load reads and parses a schematic file from disk.
func Load(path string) (*Schematic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sch, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sch, nil
}

// Bytes renders the document, preserving the original bytes of every
// element that was not mutated.
func (s *Schematic) Bytes() []byte {
	return s.doc.Bytes()
}

// Save writes the rendered document to path. The content is written to a
// temporary file in the same directory and renamed over the destination,
// so a crash mid-write never leaves a truncated schematic behind.
func (s *Schematic) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ots-*.kicad_sch")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(s.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Version returns the file format version.
func (s *Schematic) Version() int {
	if node, found := sexp.FindList(s.root, "version"); found {
		v, _ := sexp.GetInt(node, 1)
		return v
	}
	return 0
}

// Generator returns the generator string (e.g. "eeschema").
func (s *Schematic) Generator() string {
	if node, found := sexp.FindList(s.root, "generator"); found {
		g, _ := sexp.GetString(node, 1)
		return g
	}
	return ""
}

// Paper returns the paper size (e.g. "A4").
func (s *Schematic) Paper() string {
	if node, found := sexp.FindList(s.root, "paper"); found {
		p, _ := sexp.GetString(node, 1)
		return p
	}
	return ""
}

// UUID returns the schematic's own identity token.
func (s *Schematic) UUID() string {
	if node, found := sexp.FindList(s.root, "uuid"); found {
		u, _ := sexp.GetString(node, 1)
		return u
	}
	return ""
}

// Symbols returns handles for every symbol instance on the sheet.
// Library definitions under lib_symbols are not included.
func (s *Schematic) Symbols() []*Symbol {
	nodes := sexp.FindAllLists(s.root, "symbol")
	symbols := make([]*Symbol, 0, len(nodes))
	for _, n := range nodes {
		symbols = append(symbols, &Symbol{sch: s, node: n})
	}
	return symbols
}

// SymbolByUUID returns the symbol instance carrying the given identity
// token, or nil.
func (s *Schematic) SymbolByUUID(uuid string) *Symbol {
	for _, sym := range s.Symbols() {
		if sym.UUID() == uuid {
			return sym
		}
	}
	return nil
}

// SymbolByReference returns the symbol instance with the given reference
// designator, or nil.
func (s *Schematic) SymbolByReference(ref string) *Symbol {
	for _, sym := range s.Symbols() {
		if sym.Reference() == ref {
			return sym
		}
	}
	return nil
}

// PowerSymbols returns the symbol instances acting as power markers
// (reference prefix "#PWR").
func (s *Schematic) PowerSymbols() []*Symbol {
	var out []*Symbol
	for _, sym := range s.Symbols() {
		if strings.HasPrefix(sym.Reference(), "#PWR") {
			out = append(out, sym)
		}
	}
	return out
}

// Labels returns handles for the local net labels.
func (s *Schematic) Labels() []*Label {
	nodes := sexp.FindAllLists(s.root, "label")
	labels := make([]*Label, 0, len(nodes))
	for _, n := range nodes {
		labels = append(labels, &Label{sch: s, node: n})
	}
	return labels
}

// GlobalLabels returns handles for the global labels.
func (s *Schematic) GlobalLabels() []*Label {
	nodes := sexp.FindAllLists(s.root, "global_label")
	labels := make([]*Label, 0, len(nodes))
	for _, n := range nodes {
		labels = append(labels, &Label{sch: s, node: n, global: true})
	}
	return labels
}

// Wires returns handles for the wire segments.
func (s *Schematic) Wires() []*Wire {
	nodes := sexp.FindAllLists(s.root, "wire")
	wires := make([]*Wire, 0, len(nodes))
	for _, n := range nodes {
		wires = append(wires, &Wire{node: n})
	}
	return wires
}

// Junctions returns handles for the wire junctions.
func (s *Schematic) Junctions() []*Junction {
	nodes := sexp.FindAllLists(s.root, "junction")
	junctions := make([]*Junction, 0, len(nodes))
	for _, n := range nodes {
		junctions = append(junctions, &Junction{node: n})
	}
	return junctions
}

// NoConnects returns handles for the no-connect markers.
func (s *Schematic) NoConnects() []*NoConnect {
	nodes := sexp.FindAllLists(s.root, "no_connect")
	ncs := make([]*NoConnect, 0, len(nodes))
	for _, n := range nodes {
		ncs = append(ncs, &NoConnect{node: n})
	}
	return ncs
}

// Sheets returns handles for the hierarchical sheet references.
func (s *Schematic) Sheets() []*Sheet {
	nodes := sexp.FindAllLists(s.root, "sheet")
	sheets := make([]*Sheet, 0, len(nodes))
	for _, n := range nodes {
		sheets = append(sheets, &Sheet{node: n})
	}
	return sheets
}

// Extent returns the bounding box of everything currently placed on the
// sheet. Used as the starting point for overflow placement of new parts.
func (s *Schematic) Extent() sexp.BoundingBox {
	bbox := sexp.NewBoundingBox()
	for _, sym := range s.Symbols() {
		bbox.ExpandBox(s.SymbolBounds(sym))
	}
	for _, w := range s.Wires() {
		for _, pt := range w.Points() {
			bbox.Expand(pt)
		}
	}
	for _, l := range s.Labels() {
		bbox.Expand(l.Position())
	}
	for _, l := range s.GlobalLabels() {
		bbox.Expand(l.Position())
	}
	for _, j := range s.Junctions() {
		bbox.Expand(j.Position())
	}
	for _, sh := range s.Sheets() {
		pos, size := sh.Position(), sh.Size()
		bbox.Expand(pos)
		bbox.Expand(sexp.Position{X: pos.X + size.Width, Y: pos.Y + size.Height})
	}
	return bbox
}
