// Package cli implements qsarctl, a local command-line client for the chat
// pipeline.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seanankenbruck/qsar-chat/internal/app"
	"github.com/seanankenbruck/qsar-chat/internal/config"
	"github.com/seanankenbruck/qsar-chat/internal/observability"
)

// Version is injected at build time via ldflags.
var Version = "dev"

const (
	OutputText = "text"
	OutputJSON = "json"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	CatalogPath  string
	OutputFormat string
	Seed         int64
	NoDelay      bool
	LogLevel     string
}

// CLIContext carries the assembled application through the command tree.
type CLIContext struct {
	App          *app.App
	OutputFormat string
}

type cliContextKey struct{}

// NewRootCommand creates the qsarctl root command and its subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "qsarctl",
		Short:   "Consultas QSAR de toxicidad en lenguaje natural",
		Long:    "qsarctl interpreta preguntas en español sobre toxicidad química y devuelve\npredicciones QSAR simuladas por endpoint toxicológico.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cliCtx, err := GetCLIContext(cmd); err == nil {
				return cliCtx.App.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "optional YAML config file")
	pf.StringVar(&opts.CatalogPath, "catalog", "", "catalog YAML file (default: embedded catalog)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json)")
	pf.Int64Var(&opts.Seed, "seed", 0, "seed for simulated predictions (0 = random)")
	pf.BoolVar(&opts.NoDelay, "no-delay", false, "skip the artificial prediction delay")
	pf.StringVar(&opts.LogLevel, "log-level", "error", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		NewAskCmd(),
		NewExamplesCmd(),
		NewReportCmd(),
	)

	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	format := strings.ToLower(opts.OutputFormat)
	if format != OutputText && format != OutputJSON {
		return fmt.Errorf("unsupported output format %q (use text or json)", opts.OutputFormat)
	}

	if err := observability.ConfigureLogging(observability.LogConfig{
		Level:  opts.LogLevel,
		Format: "console",
	}); err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cfg, err := initConfig(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	ctx := context.WithValue(cmd.Context(), cliContextKey{}, &CLIContext{
		App:          a,
		OutputFormat: format,
	})
	cmd.SetContext(ctx)
	return nil
}

// initConfig loads the service configuration and pins everything the CLI
// runs locally: in-memory stores, unsigned reports and no rate limiting.
func initConfig(ctx context.Context, opts *RootOptions) (*config.Config, error) {
	loader, err := config.NewDefaultLoader(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	if opts.CatalogPath != "" {
		cfg.Catalog.Path = opts.CatalogPath
	}
	if opts.Seed != 0 {
		cfg.Predictor.Seed = opts.Seed
	}
	if opts.NoDelay {
		cfg.Predictor.DelayMin = 0
		cfg.Predictor.DelayJitter = 0
	}
	cfg.Report.Store = "memory"
	cfg.Report.SigningSecret = ""
	cfg.History.Backend = "memory"
	cfg.RateLimit.Requests = 0

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetCLIContext extracts the CLIContext set by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, fmt.Errorf("command context is nil")
	}

	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, fmt.Errorf("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs qsarctl and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(rootCmd, err)
		return 1
	}
	return 0
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintError writes err to stderr, using the user-facing message when the
// error carries one.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", um.UserMessage())
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}
