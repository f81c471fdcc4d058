package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/sync"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ots",
	Short: "OpenTraceSync - circuit to KiCad synchronization",
	Long: `OpenTraceSync (ots) keeps a circuit description and hand-edited
KiCad documents in step:
  - sync a circuit (.otc or .json) into a schematic or board
  - preserve human placement, wiring, and annotation edits
  - report everything a run matched, added, removed, or updated

Examples:
  ots sync board.otc main.kicad_sch           # Synchronize a schematic
  ots sync --check board.otc main.kicad_sch   # Report without writing
  ots sync --watch board.otc main.kicad_sch   # Re-run on circuit edits
  ots info main.kicad_sch                     # Show document summary`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "project config file (ots.yaml)")
}

// loadEngineConfig resolves the engine configuration: the --config file
// when given, defaults otherwise.
func loadEngineConfig() (*sync.Config, error) {
	if configPath != "" {
		return sync.LoadConfig(configPath)
	}
	cfg := sync.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
