package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

func newExportsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List finished export files",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List exports, newest first",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			exports, err := a.store.ListExports(cmd.Context())
			if err != nil {
				return err
			}
			if len(exports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No exports.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILENAME\tCREATED")
			for _, e := range exports {
				fmt.Fprintf(w, "%d\t%s\t%s\n", e.ID, e.Filename, shortTime(e.CreatedAt))
			}
			return w.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an export and where its file is",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("export", args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			export, err := a.store.GetExport(cmd.Context(), id)
			if err != nil {
				return err
			}
			if export == nil {
				return core.ErrNotFound("export", id)
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				*core.Export
				Path string `json:"path"`
			}{export, filepath.Join(a.cfg.Exports.Dir, export.Filename)})
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}
