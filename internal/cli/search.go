package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/scholarly/internal/scholar"
)

func newSearchCmd(a *app) *cobra.Command {
	var perPage int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search OpenAlex by title, one paper per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := scholar.NewClient(a.cfg.OpenAlexURL, a.cfg.SearchTimeout, a.log, scholar.WithPerPage(perPage))
			papers, err := client.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(papers) == 0 {
				fmt.Fprintln(out, dimStyle.Render("no papers found"))
				return nil
			}
			for _, p := range papers {
				fmt.Fprintln(out, formatPaper(p))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&perPage, "limit", "n", scholar.DefaultPerPage, "number of papers to request")
	return cmd
}

func formatPaper(p scholar.Paper) string {
	year := "n.d."
	if p.Year != nil {
		year = strconv.Itoa(*p.Year)
	}
	return fmt.Sprintf("%s %s %s %s",
		sectionStyle.Render(p.Title),
		dimStyle.Render("("+year+")"),
		strings.Join(p.Authors, ", "),
		dimStyle.Render(p.Link))
}
