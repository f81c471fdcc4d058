package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSync/pkg/sync"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	syncCheck bool
	syncWatch bool
)

var syncCmd = &cobra.Command{
	Use:   "sync <circuit_file> <target_file>",
	Short: "Synchronize a circuit into a KiCad document",
	Long: `Synchronize a circuit description into a KiCad document.

The circuit file is .otc or .json; the target is .kicad_sch or
.kicad_pcb. Existing elements are matched by identity token, reference,
or position, then edited in place. Human-made placement, wiring, and
annotations survive the run.

With --check the target is analyzed but never written, and the exit
status is nonzero when it is out of sync. With --watch the command keeps
running and re-synchronizes every time the circuit file changes.`,
	Args: cobra.ExactArgs(2),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncCheck, "check", false, "report changes without writing the target")
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "re-run whenever the circuit file changes")
}

func runSync(cmd *cobra.Command, args []string) error {
	circuitPath, targetPath := args[0], args[1]

	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	eng, err := sync.New(cfg)
	if err != nil {
		return err
	}
	eng.DryRun = syncCheck

	report, err := syncOnce(eng, circuitPath, targetPath)
	if err != nil {
		return err
	}
	if syncWatch {
		return watchAndSync(eng, circuitPath, targetPath)
	}
	if syncCheck && report.Changed() {
		return fmt.Errorf("%s is out of sync with %s", targetPath, circuitPath)
	}
	return nil
}

func syncOnce(eng *sync.Engine, circuitPath, targetPath string) (*sync.Report, error) {
	ckt, err := circuit.Load(circuitPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		fmt.Printf("circuit: %d components, %d nets\n", len(ckt.Components), len(ckt.Nets))
	}

	report, err := eng.RunFile(context.Background(), ckt, targetPath)
	if err != nil {
		return nil, err
	}
	fmt.Printf("%s:\n%s", targetPath, report.Summary())
	return report, nil
}

// watchAndSync re-runs the synchronization on every write to the circuit
// file. The watch is on the directory: editors typically replace the
// file, which would silently drop a watch on the file itself.
func watchAndSync(eng *sync.Engine, circuitPath, targetPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(circuitPath)); err != nil {
		return err
	}
	fmt.Printf("watching %s\n", circuitPath)

	base := filepath.Base(circuitPath)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if _, err := syncOnce(eng, circuitPath, targetPath); err != nil {
				// Keep watching: the circuit is probably mid-edit.
				fmt.Printf("error: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
