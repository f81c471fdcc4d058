// Package pcb is an edit layer over KiCad board files (.kicad_pcb), the
// board-side counterpart of the schematic package. A loaded Board wraps
// the lossless s-expression document and hands out Footprint handles that
// read and mutate their nodes in place; tracks, zones, and graphics the
// synchronizer never touches serialize byte-identical to the input.
package pcb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// Minimum supported KiCad version for boards (6.0 = 20211014)
const MinSupportedVersion = 20211014

// Board is a loaded .kicad_pcb document.
type Board struct {
	doc  *sexp.Document
	root *sexp.List
}

// Parse parses a board from a source buffer.
func Parse(data []byte) (*Board, error) {
	doc, err := sexp.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	root := doc.Root()
	if root.Name() != "kicad_pcb" {
		return nil, fmt.Errorf("not a KiCad board file: expected 'kicad_pcb', got '%s'", root.Name())
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

	return &Board{doc: doc, root: root}, nil
}

// Load reads and parses a board file from disk.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	brd, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return brd, nil
}

// Bytes renders the document, preserving the original bytes of every
// element that was not mutated.
func (b *Board) Bytes() []byte {
	return b.doc.Bytes()
}

// Save writes the rendered document to path via a temp file and rename,
// so a crash mid-write never leaves a truncated board behind.
func (b *Board) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ots-*.kicad_pcb")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b.Bytes()); err != nil {
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
func (b *Board) Version() int {
	if node, found := sexp.FindList(b.root, "version"); found {
		v, _ := sexp.GetInt(node, 1)
		return v
	}
	return 0
}

// Generator returns the generator string (e.g. "pcbnew").
func (b *Board) Generator() string {
	if node, found := sexp.FindList(b.root, "generator"); found {
		g, _ := sexp.GetString(node, 1)
		return g
	}
	return ""
}

// Footprints returns handles for every footprint on the board.
func (b *Board) Footprints() []*Footprint {
	nodes := sexp.FindAllLists(b.root, "footprint")
	fps := make([]*Footprint, 0, len(nodes))
	for _, n := range nodes {
		fps = append(fps, &Footprint{board: b, node: n})
	}
	return fps
}

// FootprintByUUID returns the footprint carrying the given identity token,
// or nil.
func (b *Board) FootprintByUUID(uuid string) *Footprint {
	for _, fp := range b.Footprints() {
		if fp.UUID() == uuid {
			return fp
		}
	}
	return nil
}

// FootprintByReference returns the footprint with the given reference
// designator, or nil.
func (b *Board) FootprintByReference(ref string) *Footprint {
	for _, fp := range b.Footprints() {
		if fp.Reference() == ref {
			return fp
		}
	}
	return nil
}

// Extent returns the bounding box of all placed footprints. Used as the
// starting point for overflow placement of new parts.
func (b *Board) Extent() sexp.BoundingBox {
	bbox := sexp.NewBoundingBox()
	for _, fp := range b.Footprints() {
		bbox.ExpandBox(fp.Bounds())
	}
	return bbox
}
