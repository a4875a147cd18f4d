package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

// filterFlags are the prompt filters shared by search and export.
type filterFlags struct {
	content string
	example string
	tags    []string
	project int64
	style   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.content, "content", "", "substring of the preview value")
	cmd.Flags().StringVar(&f.example, "example", "", "substring of an example completion")
	cmd.Flags().StringArrayVar(&f.tags, "tag", nil, "substring of a prompt tag (repeatable, any matches)")
	cmd.Flags().Int64VarP(&f.project, "project", "p", 0, "project id")
	cmd.Flags().StringVarP(&f.style, "style", "s", "", "style id or id text")
}

func (f *filterFlags) filter(cmd *cobra.Command, a *app) (core.SearchFilter, error) {
	filter := core.SearchFilter{
		Content:   f.content,
		Example:   f.example,
		Tags:      f.tags,
		ProjectID: f.project,
	}
	if f.style != "" {
		style, err := resolveStyle(cmd.Context(), a.store, f.style, f.project)
		if err != nil {
			return filter, err
		}
		filter.StyleID = style.ID
	}
	return filter, nil
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		flags  filterFlags
		limit  int
		offset int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search prompts",
		Long: `Search prompts by preview text, example completion, tags, project and style.

Every filter is optional. Text filters match substrings; several --tag flags
match prompts carrying any of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			filter, err := flags.filter(cmd, a)
			if err != nil {
				return err
			}
			filter.Limit = limit
			filter.Offset = offset

			page, err := a.store.SearchPrompts(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), page)
			}

			out := cmd.OutOrStdout()
			if len(page.Results) == 0 {
				fmt.Fprintf(out, "No prompts (%d total).\n", page.Total)
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROJECT\tSTYLE\tTAGS\tPREVIEW")
			for _, r := range page.Results {
				fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n", r.Prompt.ID, r.Prompt.ProjectID, r.Prompt.StyleID,
					strings.Join(r.Tags, ","), oneLine(r.PreviewValue, 60))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nShowing %d of %d.\n", len(page.Results), page.Total)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "page size (default: search.default_limit)")
	cmd.Flags().IntVar(&offset, "offset", 0, "results to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
