// Package cli implements scholarctl, an operator tool for trying the
// extraction and summarization pipeline against local files.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/scholarly/internal/config"
	"github.com/dgallion1/scholarly/internal/llm"
)

type app struct {
	cfg     config.Config
	log     *slog.Logger
	verbose bool
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the scholarctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "scholarctl",
		Short: "Inspect and summarize academic documents from the command line",
		Long: `scholarctl runs the same parsing, sectioning and summarization code as the
scholarly server, without the HTTP layer.

Example usage:
  scholarctl sections "papers/**/*.pdf"        # List detected sections
  scholarctl summarize paper.pdf -q "methods"  # Summarize with the configured provider
  scholarctl search "graph neural networks"    # Query OpenAlex`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg

			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newSectionsCmd(a),
		newSummarizeCmd(a),
		newSearchCmd(a),
	)
	return root
}

// generator builds the configured text-generation client.
func (a *app) generator() (llm.Generator, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	bare, err := llm.New(llm.Options{
		Provider: a.cfg.GenerationProvider,
		APIKey:   a.cfg.ProviderAPIKey(),
		Model:    a.cfg.ProviderModel(),
		BaseURL:  a.cfg.ProviderBaseURL(),
	})
	if err != nil {
		return nil, err
	}
	return llm.Chain(bare, a.cfg.GenerationProvider, nil, a.log), nil
}
