package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seanankenbruck/qsar-chat/internal/chat"
)

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ask <pregunta>",
		Short:   "Interpreta una pregunta y muestra las predicciones",
		Example: `  qsarctl ask "¿El benceno es irritante dérmico según QSAR?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			resp, err := cliCtx.App.Processor.ProcessMessage(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd, resp)
			}
			printChatResponse(cmd, resp)
			return nil
		},
	}
}

func printChatResponse(cmd *cobra.Command, resp *chat.ChatResponse) {
	out := cmd.OutOrStdout()
	if resp.Type == chat.ResponseSuccess {
		fmt.Fprintln(out, resp.ResponseES)
		return
	}

	fmt.Fprintln(out, "No se pudo interpretar la consulta.")
	for _, s := range resp.Suggestions {
		fmt.Fprintf(out, "  - %s\n", s)
	}
	if len(resp.Examples) > 0 {
		fmt.Fprintln(out, "\nEjemplos:")
		for _, e := range resp.Examples {
			fmt.Fprintf(out, "  %s\n", e)
		}
	}
}
