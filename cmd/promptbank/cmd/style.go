package cmd

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/promptbank/internal/adapters/sqlite"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/fsutil"
	"github.com/hugo-lorenzo-mato/promptbank/internal/template"
)

type styleFlags struct {
	template      string
	templateFile  string
	completionKey string
	previewKey    string
}

func (f *styleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "template text with {placeholders}")
	cmd.Flags().StringVar(&f.templateFile, "template-file", "", "read the template from a file")
	cmd.Flags().StringVar(&f.completionKey, "completion-key", "", "placeholder holding the completion")
	cmd.Flags().StringVar(&f.previewKey, "preview-key", "", "placeholder shown and matched by search")
	cmd.MarkFlagsMutuallyExclusive("template", "template-file")
}

func (f *styleFlags) templateText() (string, error) {
	if f.templateFile == "" {
		return f.template, nil
	}
	data, err := fsutil.ReadFileScoped(f.templateFile)
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}
	return string(data), nil
}

// styleKeys extracts the placeholders of tmpl and checks that the completion
// and preview keys are among them.
func styleKeys(tmpl, completionKey, previewKey string) ([]string, error) {
	keys, err := template.NamedArguments(tmpl)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidTemplate, "style template is malformed").WithCause(err)
	}
	for _, k := range []string{completionKey, previewKey} {
		if !slices.Contains(keys, k) {
			return nil, core.ErrValidation(core.CodeUnknownKey,
				fmt.Sprintf("%q is not a placeholder of the template", k))
		}
	}
	return keys, nil
}

func newStyleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "style",
		Short: "Manage prompt styles",
		Long: `A style is a template with named {placeholders}. One placeholder holds the
example completion and one is used as the search preview.

Styles can be referred to by numeric id or by their id text.`,
	}

	var (
		addFlags   styleFlags
		addProject int64
	)
	addCmd := &cobra.Command{
		Use:   "add <id-text>",
		Short: "Create a style",
		Example: `  promptbank style add qa --project 1 \
    --template "Q: {question}\nA: {answer}" \
    --completion-key answer --preview-key question`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := addFlags.templateText()
			if err != nil {
				return err
			}
			keys, err := styleKeys(tmpl, addFlags.completionKey, addFlags.previewKey)
			if err != nil {
				return err
			}

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireProject(cmd, a, addProject); err != nil {
				return err
			}
			id, err := a.store.AddStyle(cmd.Context(), core.Style{
				IDText:        args[0],
				Template:      tmpl,
				CompletionKey: addFlags.completionKey,
				PreviewKey:    addFlags.previewKey,
				ProjectID:     addProject,
			}, keys)
			if err != nil {
				return err
			}
			a.logger.WithStyle(id).Debug("style created", "keys", keys)
			fmt.Fprintf(cmd.OutOrStdout(), "Created style %d\n", id)
			return nil
		},
	}
	addFlags.register(addCmd)
	addCmd.Flags().Int64VarP(&addProject, "project", "p", 0, "owning project id")
	_ = addCmd.MarkFlagRequired("project")
	_ = addCmd.MarkFlagRequired("completion-key")
	_ = addCmd.MarkFlagRequired("preview-key")

	var listProject int64
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List styles",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var styles []core.Style
			if listProject != 0 {
				styles, err = a.store.ListStylesByProject(cmd.Context(), listProject)
			} else {
				styles, err = a.store.ListStyles(cmd.Context())
			}
			if err != nil {
				return err
			}
			if len(styles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No styles.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPROJECT\tCOMPLETION\tPREVIEW\tCREATED")
			for _, s := range styles {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
					s.ID, s.IDText, s.ProjectID, s.CompletionKey, s.PreviewKey, shortTime(s.CreatedAt))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().Int64VarP(&listProject, "project", "p", 0, "only styles of this project")

	showCmd := &cobra.Command{
		Use:   "show <style>",
		Short: "Show a style and its placeholders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			style, err := resolveStyle(cmd.Context(), a.store, args[0], 0)
			if err != nil {
				return err
			}
			keys, err := a.store.ListStyleKeys(cmd.Context(), style.ID)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(keys))
			for _, k := range keys {
				names = append(names, k.Name)
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				*core.Style
				Keys []string `json:"keys"`
			}{style, names})
		},
	}

	var (
		updFlags  styleFlags
		updIDText string
	)
	updateCmd := &cobra.Command{
		Use:   "update <style>",
		Short: "Change a style",
		Long: `Change a style's id text, template, completion key or preview key.

A new template replaces the style's placeholders: values stored under
placeholders that disappear are deleted from every prompt of the style.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := updFlags.templateText()
			if err != nil {
				return err
			}

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			style, err := resolveStyle(cmd.Context(), a.store, args[0], 0)
			if err != nil {
				return err
			}

			effective := *style
			if tmpl != "" {
				effective.Template = tmpl
			}
			if updFlags.completionKey != "" {
				effective.CompletionKey = updFlags.completionKey
			}
			if updFlags.previewKey != "" {
				effective.PreviewKey = updFlags.previewKey
			}
			if _, err := styleKeys(effective.Template, effective.CompletionKey, effective.PreviewKey); err != nil {
				return err
			}

			if err := a.store.UpdateStyle(cmd.Context(), style.ID, sqlite.StyleUpdate{
				IDText:        updIDText,
				Template:      tmpl,
				CompletionKey: updFlags.completionKey,
				PreviewKey:    updFlags.previewKey,
			}); err != nil {
				return err
			}
			a.logger.WithStyle(style.ID).Info("style updated", "template_changed", tmpl != "")
			fmt.Fprintf(cmd.OutOrStdout(), "Updated style %d\n", style.ID)
			return nil
		},
	}
	updFlags.register(updateCmd)
	updateCmd.Flags().StringVar(&updIDText, "id-text", "", "new id text")

	deleteCmd := &cobra.Command{
		Use:     "delete <style>",
		Short:   "Delete a style with its prompts and examples",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			style, err := resolveStyle(cmd.Context(), a.store, args[0], 0)
			if err != nil {
				return err
			}
			if err := a.store.DeleteStyle(cmd.Context(), style.ID); err != nil {
				return err
			}
			a.logger.WithStyle(style.ID).Info("style deleted")
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted style %d\n", style.ID)
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd, showCmd, updateCmd, deleteCmd)
	return cmd
}
