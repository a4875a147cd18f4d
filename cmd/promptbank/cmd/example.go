package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

func newExampleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "example",
		Short: "Manage example completions of a prompt",
	}

	var (
		addCompletion string
		addTags       []string
	)
	addCmd := &cobra.Command{
		Use:   "add <prompt-id>",
		Short: "Attach an example completion to a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			promptID, err := parseID("prompt", args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			prompt, err := a.store.GetPrompt(cmd.Context(), promptID)
			if err != nil {
				return err
			}
			if prompt == nil {
				return core.ErrNotFound("prompt", promptID)
			}
			id, err := a.store.AddExample(cmd.Context(), promptID, addCompletion, addTags)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created example %d\n", id)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&addCompletion, "completion", "c", "", "completion text")
	addCmd.Flags().StringArrayVar(&addTags, "tag", nil, "example tag (repeatable)")
	_ = addCmd.MarkFlagRequired("completion")

	listCmd := &cobra.Command{
		Use:     "list <prompt-id>",
		Short:   "List the examples of a prompt",
		Aliases: []string{"ls"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			promptID, err := parseID("prompt", args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			examples, err := a.store.ListExamplesByPrompt(cmd.Context(), promptID, true)
			if err != nil {
				return err
			}
			if len(examples) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No examples.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tTAGS\tCOMPLETION")
			for _, e := range examples {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, shortTime(e.CreatedAt),
					strings.Join(e.Tags, ","), oneLine(e.Completion, 60))
			}
			return w.Flush()
		},
	}

	var (
		updCompletion string
		updTags       []string
		updClearTags  bool
	)
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an example's completion or replace its tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("example", args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			example, err := a.store.GetExample(cmd.Context(), id)
			if err != nil {
				return err
			}
			if example == nil {
				return core.ErrNotFound("example", id)
			}
			var tags []string
			switch {
			case updClearTags:
				tags = []string{}
			case cmd.Flags().Changed("tag"):
				tags = updTags
			}
			if err := a.store.UpdateExample(cmd.Context(), id, updCompletion, tags); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated example %d\n", id)
			return nil
		},
	}
	updateCmd.Flags().StringVarP(&updCompletion, "completion", "c", "", "new completion text")
	updateCmd.Flags().StringArrayVar(&updTags, "tag", nil, "replacement tag (repeatable)")
	updateCmd.Flags().BoolVar(&updClearTags, "clear-tags", false, "remove every tag")
	updateCmd.MarkFlagsMutuallyExclusive("tag", "clear-tags")

	deleteCmd := &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete an example",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("example", args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			example, err := a.store.GetExample(cmd.Context(), id)
			if err != nil {
				return err
			}
			if example == nil {
				return core.ErrNotFound("example", id)
			}
			if err := a.store.DeleteExample(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted example %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd, updateCmd, deleteCmd)
	return cmd
}

// oneLine flattens whitespace and truncates s to n runes for table output.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
