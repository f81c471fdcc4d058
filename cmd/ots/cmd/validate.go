package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/circuit"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <circuit_file>",
	Short: "Validate a circuit description",
	Long: `Parse and validate a circuit description (.otc or .json) without
touching any KiCad document. Reports duplicate references, nets naming
unknown components, and syntax errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ckt, err := circuit.Load(args[0])
	if err != nil {
		return err
	}
	if err := ckt.Validate(); err != nil {
		return err
	}

	fmt.Printf("%s: ok\n", args[0])
	fmt.Printf("  components: %d\n", len(ckt.Components))
	fmt.Printf("  nets: %d\n", len(ckt.Nets))
	if len(ckt.Children) > 0 {
		fmt.Printf("  sub-circuits: %d\n", len(ckt.Children))
	}
	return nil
}
