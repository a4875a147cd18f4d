package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

// promptView is the JSON shape of `prompt show`.
type promptView struct {
	*core.Prompt
	Values   map[string]string `json:"values"`
	Tags     []string          `json:"tags"`
	Examples []core.Example    `json:"examples"`
}

func newPromptCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Manage prompts",
		Long: `A prompt fills in the placeholders of a style. Values are given as
repeated --value key=value flags.`,
	}

	var (
		addStyle   string
		addProject int64
		addValues  []string
		addTags    []string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a prompt",
		Example: `  promptbank prompt add --style qa --value question="Capital of France?" --tag geo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := parseValues(addValues)
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			style, err := resolveStyle(cmd.Context(), a.store, addStyle, addProject)
			if err != nil {
				return err
			}
			projectID := addProject
			if projectID == 0 {
				projectID = style.ProjectID
			}
			if projectID != style.ProjectID {
				return core.ErrValidation(core.CodeStyleMismatch,
					fmt.Sprintf("style %d belongs to project %d, not %d", style.ID, style.ProjectID, projectID))
			}
			if err := checkKeys(cmd.Context(), a.store, style.ID, values); err != nil {
				return err
			}

			id, err := a.store.AddPrompt(cmd.Context(), projectID, style.ID, values, addTags)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created prompt %d\n", id)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&addStyle, "style", "s", "", "style id or id text")
	addCmd.Flags().Int64VarP(&addProject, "project", "p", 0, "project id (default: the style's project)")
	addCmd.Flags().StringArrayVar(&addValues, "value", nil, "placeholder value as key=value (repeatable)")
	addCmd.Flags().StringArrayVar(&addTags, "tag", nil, "prompt tag (repeatable)")
	_ = addCmd.MarkFlagRequired("style")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a prompt with its values, tags and examples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("prompt", args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			prompt, err := a.store.GetPrompt(ctx, id)
			if err != nil {
				return err
			}
			if prompt == nil {
				return core.ErrNotFound("prompt", id)
			}
			view := promptView{Prompt: prompt, Values: map[string]string{}, Tags: []string{}}

			values, err := a.store.ListPromptValues(ctx, id)
			if err != nil {
				return err
			}
			for _, v := range values {
				view.Values[v.Key] = v.Value
			}
			tags, err := a.store.ListPromptTags(ctx, id)
			if err != nil {
				return err
			}
			for _, t := range tags {
				view.Tags = append(view.Tags, t.Value)
			}
			if view.Examples, err = a.store.ListExamplesByPrompt(ctx, id, true); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), view)
		},
	}

	var (
		updValues    []string
		updTags      []string
		updClearTags bool
	)
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change prompt values or replace its tags",
		Long: `Set prompt values with --value key=value. Keys not given keep their value.

Passing --tag replaces every tag of the prompt; --clear-tags removes them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("prompt", args[0])
			if err != nil {
				return err
			}
			values, err := parseValues(updValues)
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			prompt, err := a.store.GetPrompt(cmd.Context(), id)
			if err != nil {
				return err
			}
			if prompt == nil {
				return core.ErrNotFound("prompt", id)
			}
			if err := checkKeys(cmd.Context(), a.store, prompt.StyleID, values); err != nil {
				return err
			}

			var tags []string
			switch {
			case updClearTags:
				tags = []string{}
			case cmd.Flags().Changed("tag"):
				tags = updTags
			}
			if err := a.store.UpdatePrompt(cmd.Context(), id, values, tags); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated prompt %d\n", id)
			return nil
		},
	}
	updateCmd.Flags().StringArrayVar(&updValues, "value", nil, "placeholder value as key=value (repeatable)")
	updateCmd.Flags().StringArrayVar(&updTags, "tag", nil, "replacement tag (repeatable)")
	updateCmd.Flags().BoolVar(&updClearTags, "clear-tags", false, "remove every tag")
	updateCmd.MarkFlagsMutuallyExclusive("tag", "clear-tags")

	deleteCmd := &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete a prompt with its examples",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("prompt", args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			prompt, err := a.store.GetPrompt(cmd.Context(), id)
			if err != nil {
				return err
			}
			if prompt == nil {
				return core.ErrNotFound("prompt", id)
			}
			if err := a.store.DeletePrompt(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted prompt %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(addCmd, showCmd, updateCmd, deleteCmd)
	return cmd
}
