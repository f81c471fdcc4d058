package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/schematic"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <target_file> [component]",
	Short: "Show KiCad document information",
	Long: `Display information about a KiCad document (.kicad_sch or .kicad_pcb).

Without component argument: shows a document summary
With component argument: shows details for that specific component`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".kicad_sch":
		sch, err := schematic.Load(filename)
		if err != nil {
			return fmt.Errorf("error parsing schematic: %w", err)
		}
		if len(args) >= 2 {
			return showSymbolDetails(sch, args[1])
		}
		showSchematicSummary(sch, filename)
		return nil
	case ".kicad_pcb":
		brd, err := pcb.Load(filename)
		if err != nil {
			return fmt.Errorf("error parsing board: %w", err)
		}
		if len(args) >= 2 {
			return showFootprintDetails(brd, args[1])
		}
		showBoardSummary(brd, filename)
		return nil
	}
	return fmt.Errorf("unsupported file %q (want .kicad_sch or .kicad_pcb)", filename)
}

func showSchematicSummary(sch *schematic.Schematic, filename string) {
	fmt.Printf("Schematic: %s\n", filename)
	fmt.Printf("Version: %d\n", sch.Version())
	fmt.Printf("Generator: %s\n", sch.Generator())
	fmt.Printf("Paper: %s\n", sch.Paper())
	fmt.Println()

	symbols := sch.Symbols()
	fmt.Println("Statistics:")
	fmt.Printf("  Components: %d\n", len(symbols))
	fmt.Printf("  Power markers: %d\n", len(sch.PowerSymbols()))
	fmt.Printf("  Library symbols: %d\n", len(sch.LibSymbols()))
	fmt.Printf("  Wires: %d\n", len(sch.Wires()))
	fmt.Printf("  Junctions: %d\n", len(sch.Junctions()))
	fmt.Printf("  Labels: %d\n", len(sch.Labels()))
	fmt.Printf("  Global labels: %d\n", len(sch.GlobalLabels()))
	fmt.Printf("  Sheets: %d\n", len(sch.Sheets()))
	fmt.Printf("  No-connects: %d\n", len(sch.NoConnects()))
	fmt.Println()

	var refs []string
	for _, sym := range symbols {
		if ref := sym.Reference(); ref != "" {
			refs = append(refs, ref)
		}
	}
	printGroupedRefs("Components:", refs)

	var labels []string
	seen := map[string]bool{}
	for _, l := range sch.Labels() {
		if !seen[l.Text()] {
			seen[l.Text()] = true
			labels = append(labels, l.Text())
		}
	}
	if len(labels) > 0 {
		fmt.Println("Net Labels:")
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Printf("  %s\n", l)
		}
		fmt.Println()
	}
}

func showSymbolDetails(sch *schematic.Schematic, ref string) error {
	sym := sch.SymbolByReference(ref)
	if sym == nil {
		return fmt.Errorf("component '%s' not found", ref)
	}

	fmt.Printf("Component: %s\n", ref)
	fmt.Printf("Library: %s\n", sym.LibID())
	fmt.Printf("Value: %s\n", sym.Value())
	if sym.Footprint() != "" {
		fmt.Printf("Footprint: %s\n", sym.Footprint())
	}
	pos := sym.Position()
	fmt.Printf("Position: (%.2f, %.2f)\n", pos.X, pos.Y)
	if sym.Angle() != 0 {
		fmt.Printf("Rotation: %.1f°\n", float64(sym.Angle()))
	}
	if sym.Mirror() != "" {
		fmt.Printf("Mirror: %s\n", sym.Mirror())
	}
	if sym.DNP() {
		fmt.Println("DNP: yes")
	}
	fmt.Printf("Token: %s\n", sym.UUID())

	if ls, found := sch.LibSymbol(sym.LibID()); found {
		pins := ls.Pins()
		if len(pins) > 0 {
			fmt.Println()
			fmt.Println("Pins:")
			for _, pin := range pins {
				if anchor, ok := sch.PinPosition(sym, pin.Number); ok {
					fmt.Printf("  %s (%s) at (%.2f, %.2f)\n", pin.Number, pin.Name, anchor.X, anchor.Y)
				}
			}
		}
	}
	return nil
}

func showBoardSummary(brd *pcb.Board, filename string) {
	fmt.Printf("Board: %s\n", filename)
	fmt.Printf("Version: %d\n", brd.Version())
	fmt.Printf("Generator: %s\n", brd.Generator())
	fmt.Println()

	footprints := brd.Footprints()
	fmt.Println("Statistics:")
	fmt.Printf("  Footprints: %d\n", len(footprints))
	fmt.Println()

	var refs []string
	for _, fp := range footprints {
		if ref := fp.Reference(); ref != "" {
			refs = append(refs, ref)
		}
	}
	printGroupedRefs("Footprints:", refs)
}

func showFootprintDetails(brd *pcb.Board, ref string) error {
	fp := brd.FootprintByReference(ref)
	if fp == nil {
		return fmt.Errorf("footprint '%s' not found", ref)
	}

	fmt.Printf("Footprint: %s\n", ref)
	fmt.Printf("Library: %s\n", fp.LibID())
	fmt.Printf("Value: %s\n", fp.Value())
	fmt.Printf("Layer: %s\n", fp.Layer())
	pos := fp.Position()
	fmt.Printf("Position: (%.2f, %.2f)\n", pos.X, pos.Y)
	if fp.Angle() != 0 {
		fmt.Printf("Rotation: %.1f°\n", float64(fp.Angle()))
	}
	if fp.DNP() {
		fmt.Println("DNP: yes")
	}
	fmt.Printf("Token: %s\n", fp.UUID())
	return nil
}

// printGroupedRefs prints references grouped by their letter prefix.
func printGroupedRefs(header string, refs []string) {
	if len(refs) == 0 {
		return
	}
	byPrefix := make(map[string][]string)
	for _, ref := range refs {
		prefix := refPrefix(ref)
		byPrefix[prefix] = append(byPrefix[prefix], ref)
	}

	var prefixes []string
	for p := range byPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	fmt.Println(header)
	for _, prefix := range prefixes {
		group := byPrefix[prefix]
		sort.Strings(group)
		fmt.Printf("  %s: %s\n", prefix, strings.Join(group, ", "))
	}
	fmt.Println()
}

func refPrefix(ref string) string {
	for i, c := range ref {
		if c >= '0' && c <= '9' {
			return ref[:i]
		}
	}
	return ref
}
