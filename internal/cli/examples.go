package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewExamplesCmd creates the examples command
func NewExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Lista consultas de ejemplo y sustancias conocidas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			info := cliCtx.App.Processor.CatalogInfo()
			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd, info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Consultas de ejemplo:")
			for _, e := range info.Examples {
				fmt.Fprintf(out, "  %s\n", e)
			}
			fmt.Fprintf(out, "\nSustancias conocidas: %s\n", strings.Join(info.AvailableSubstances, ", "))
			fmt.Fprintf(out, "Endpoints soportados: %d (catálogo %s)\n",
				info.SimulatorStats.SupportedEndpoints, info.SimulatorStats.Version)
			return nil
		},
	}
}
