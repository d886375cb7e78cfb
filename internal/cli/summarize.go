package cli

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dgallion1/scholarly/internal/summarize"
)

func newSummarizeCmd(a *app) *cobra.Command {
	var (
		query       string
		concurrency int
		noProgress  bool
	)

	cmd := &cobra.Command{
		Use:   "summarize <file>",
		Short: "Summarize a local document with the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := a.generator()
			if err != nil {
				return err
			}
			doc, err := a.parseFile(args[0])
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			cfg := summarize.Config{
				WordLimit:   a.cfg.SectionWordLimit,
				Concurrency: a.cfg.SummarizeConcurrency,
				MaxTokens:   a.cfg.SummaryMaxTokens,
				Temperature: a.cfg.SummaryTemperature,
			}
			if concurrency > 0 {
				cfg.Concurrency = concurrency
			}
			pipeline := summarize.New(gen, cfg, a.log)

			var hooks *summarize.Hooks
			if !noProgress {
				hooks = progressHooks(cmd)
			}

			result, err := pipeline.Run(cmd.Context(), doc, query, hooks)
			if err != nil {
				return fmt.Errorf("summarize %s: %s", args[0], summarize.PublicMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "focus the summaries on this question")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "sections summarized in parallel (default from config)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

// progressHooks draws a bar on stderr once the section count is known.
func progressHooks(cmd *cobra.Command) *summarize.Hooks {
	var (
		mu   sync.Mutex
		bar  *progressbar.ProgressBar
		skip int
	)
	return &summarize.Hooks{
		OnSections: func(total int) {
			mu.Lock()
			defer mu.Unlock()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Summarizing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(cmd.ErrOrStderr())
				}),
			)
		},
		OnSection: func(title string, summarized bool) {
			mu.Lock()
			defer mu.Unlock()
			if bar == nil {
				return
			}
			if !summarized {
				skip++
				bar.Describe(fmt.Sprintf("[cyan]Summarizing[reset] [yellow]%d skipped[reset]", skip))
			}
			bar.Add(1)
		},
	}
}
