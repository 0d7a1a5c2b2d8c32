package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seanankenbruck/qsar-chat/internal/chat"
	"github.com/seanankenbruck/qsar-chat/internal/report"
)

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:     "report <pregunta>",
		Short:   "Genera el reporte QSAR de una consulta",
		Example: `  qsarctl report --file reporte.txt "Análisis completo de seguridad química para etanol"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			processor := cliCtx.App.Processor
			question := strings.Join(args, " ")

			resp, err := processor.ProcessMessage(cmd.Context(), question)
			if err != nil {
				return err
			}
			if resp.Type != chat.ResponseSuccess {
				printChatResponse(cmd, resp)
				return fmt.Errorf("no se puede generar un reporte para una consulta no válida")
			}

			generated, err := processor.GenerateReport(cmd.Context(), report.Request{
				Substance: resp.Query.Substance,
				Results:   resp.Results,
				UserQuery: question,
			})
			if err != nil {
				return err
			}

			download, err := processor.DownloadReport(cmd.Context(), generated.ReportID, "")
			if err != nil {
				return err
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(download.Content), 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
			}

			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd, generated)
			}
			if outFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Reporte guardado en %s\n", outFile)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), download.Content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "file", "f", "", "write the report to this file")
	return cmd
}
