package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/dgallion1/scholarly/internal/chunker"
	"github.com/dgallion1/scholarly/internal/document"
	"github.com/dgallion1/scholarly/internal/parser"
	"github.com/dgallion1/scholarly/internal/segment"
)

func newSectionsCmd(a *app) *cobra.Command {
	var showBody bool

	cmd := &cobra.Command{
		Use:   "sections <glob>...",
		Short: "List the sections detected in local documents",
		Long: `Parse each matching file and print the sections the summarizer would see,
with word counts and whether the section would be truncated. No network access.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandGlobs(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no supported files match %v", args)
			}

			out := cmd.OutOrStdout()
			var failed int
			for _, path := range files {
				if err := a.printSections(out, path, showBody); err != nil {
					fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("%s: %v", path, err)))
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be read", failed, len(files))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showBody, "body", false, "print each section body")
	return cmd
}

// expandGlobs resolves doublestar patterns to supported files, sorted and de-duplicated.
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || !parser.IsSupportedExtension(m) {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (a *app) printSections(w io.Writer, path string, showBody bool) error {
	doc, err := a.parseFile(path)
	if err != nil {
		return err
	}
	sections := segment.ExtractDocument(doc)

	fmt.Fprintf(w, "%s %s\n", fileStyle.Render(path),
		dimStyle.Render(fmt.Sprintf("(%q, %d pages, %d words, %d sections)", doc.Title, len(doc.Pages), doc.WordCount(), len(sections))))

	limit := a.cfg.SectionWordLimit
	for _, sec := range sections {
		words := chunker.CountWords(sec.Body)
		meta := fmt.Sprintf("%d words", words)
		line := "  " + sectionStyle.Render(sec.Title) + " " + dimStyle.Render(meta)
		if limit > 0 && words > limit {
			line += " " + warnStyle.Render(fmt.Sprintf("truncated to %d", limit))
		}
		fmt.Fprintln(w, line)
		if showBody {
			fmt.Fprintf(w, "    %s\n", sec.Body)
		}
	}
	return nil
}

func (a *app) parseFile(path string) (*document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.ParseFile(f, path, parser.Options{FallbackPdftotext: a.cfg.PDFFallbackPdftotext})
}
