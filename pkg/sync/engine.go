package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/schematic"
)

// Engine runs the synchronization pipeline. One engine may be reused
// across runs and targets; each Run owns its target document exclusively
// for the duration of the call, so concurrent runs against the same file
// are the caller's error to prevent.
type Engine struct {
	cfg     *Config
	flatten circuit.Flattener

	// DryRun computes the full report but never writes the target back.
	DryRun bool
}

// New builds an engine. The config is validated once here; nil means
// defaults.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, flatten: circuit.SingleSheet{IsPower: cfg.IsPowerNet}}, nil
}

// Run synchronizes a schematic target against the circuit:
// load → flatten → match → classify → apply → render nets → save.
// The file is rewritten atomically, and only when its rendered bytes
// actually differ, so an unchanged circuit leaves the file untouched.
func (e *Engine) Run(ctx context.Context, ckt *circuit.Circuit, docPath string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flat, err := e.flatten.Flatten(ckt)
	if err != nil {
		return nil, err
	}
	if err := flat.Validate(); err != nil {
		return nil, err
	}

	original, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("sync: failed to read %s: %w", docPath, err)
	}
	sch, err := schematic.Parse(original)
	if err != nil {
		return nil, fmt.Errorf("sync: %s: %w", docPath, err)
	}

	report := e.runSchematic(flat, sch)

	out := sch.Bytes()
	if !e.DryRun && !bytes.Equal(out, original) {
		if err := sch.Save(docPath); err != nil {
			return report, err
		}
	}
	return report, nil
}

// runSchematic is the in-memory pipeline, shared by Run and the tests
// that assert on bytes without touching disk.
func (e *Engine) runSchematic(flat *circuit.Circuit, sch *schematic.Schematic) *Report {
	report := &Report{}

	corr, diags := Match(flat.Components, schematicElements(sch), e.cfg, targetSchematic)
	report.diags(diags)

	cs := Classify(corr, e.cfg, targetSchematic)
	newSchApplier(sch, e.cfg, report, flat.Nets).apply(cs)
	newNetRenderer(sch, e.cfg, report).render(flat.Nets)

	return report
}

// RunBoard synchronizes a board target. Only footprint identity,
// reference, value, dnp, and placement are reconciled; net-level changes
// are reported, not applied.
func (e *Engine) RunBoard(ctx context.Context, ckt *circuit.Circuit, docPath string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flat, err := e.flatten.Flatten(ckt)
	if err != nil {
		return nil, err
	}
	if err := flat.Validate(); err != nil {
		return nil, err
	}

	original, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("sync: failed to read %s: %w", docPath, err)
	}
	brd, err := pcb.Parse(original)
	if err != nil {
		return nil, fmt.Errorf("sync: %s: %w", docPath, err)
	}

	report := e.runBoard(flat, brd)

	out := brd.Bytes()
	if !e.DryRun && !bytes.Equal(out, original) {
		if err := brd.Save(docPath); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (e *Engine) runBoard(flat *circuit.Circuit, brd *pcb.Board) *Report {
	report := &Report{}

	// Components with no footprint cannot exist on a board; they are
	// simply absent from this target, not an error.
	var comps []*circuit.Component
	for _, c := range flat.Components {
		if c.Footprint != "" {
			comps = append(comps, c)
		}
	}

	corr, diags := Match(comps, boardElements(brd), e.cfg, targetBoard)
	report.diags(diags)

	cs := Classify(corr, e.cfg, targetBoard)
	newBrdApplier(brd, e.cfg, report).apply(cs)

	if len(flat.Nets) > 0 {
		report.diag(diagf(DiagUnsupportedChange,
			"%d nets not applied: board targets take connectivity from the netlist import", len(flat.Nets)))
	}
	return report
}

// RunFile dispatches on the target extension: .kicad_sch or .kicad_pcb.
func (e *Engine) RunFile(ctx context.Context, ckt *circuit.Circuit, docPath string) (*Report, error) {
	switch strings.ToLower(filepath.Ext(docPath)) {
	case ".kicad_sch":
		return e.Run(ctx, ckt, docPath)
	case ".kicad_pcb":
		return e.RunBoard(ctx, ckt, docPath)
	}
	return nil, fmt.Errorf("sync: unsupported target %q (want .kicad_sch or .kicad_pcb)", docPath)
}

// SheetResult pairs one sub-document's path with its report.
type SheetResult struct {
	Name   string
	Path   string
	Report *Report
}

// RunProject synchronizes several independently-addressable
// sub-documents in parallel, one goroutine per sheet, each exclusively
// owning its file for the whole run. The sheets map goes from
// sub-circuit name (the root circuit's own name included) to target
// path. The first error cancels the remaining sheets.
func (e *Engine) RunProject(ctx context.Context, ckt *circuit.Circuit, sheets map[string]string) ([]SheetResult, error) {
	names := make([]string, 0, len(sheets))
	for name := range sheets {
		names = append(names, name)
	}
	// Deterministic result order regardless of map iteration.
	sort.Strings(names)

	results := make([]SheetResult, len(names))
	g, gctx := errgroup.WithContext(ctx)

	for i, name := range names {
		i, name := i, name
		sub := findCircuit(ckt, name)
		if sub == nil {
			return nil, fmt.Errorf("sync: no sub-circuit named %q", name)
		}
		g.Go(func() error {
			report, err := e.RunFile(gctx, sub, sheets[name])
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			results[i] = SheetResult{Name: name, Path: sheets[name], Report: report}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func findCircuit(c *circuit.Circuit, name string) *circuit.Circuit {
	if c.Name == name {
		return c
	}
	for _, child := range c.Children {
		if found := findCircuit(child, name); found != nil {
			return found
		}
	}
	return nil
}
