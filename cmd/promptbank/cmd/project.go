package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

func newProjectCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long: `Projects group styles and the prompts created from them.

Deleting a project removes its styles, prompts, examples and tags.`,
	}

	var description string
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.store.AddProject(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			a.logger.WithProject(id).Debug("project created")
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %d\n", id)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&description, "description", "d", "", "project description")

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List projects, newest first",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			projects, err := a.store.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED\tDESCRIPTION")
			for _, p := range projects {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, shortTime(p.CreatedAt), p.Description)
			}
			return w.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project and its styles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			project, err := a.store.GetProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			if project == nil {
				return core.ErrNotFound("project", id)
			}
			styles, err := a.store.ListStylesByProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				*core.Project
				Styles []core.Style `json:"styles"`
			}{project, styles})
		},
	}

	var newName, newDescription string
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a project or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireProject(cmd, a, id); err != nil {
				return err
			}
			if err := a.store.UpdateProject(cmd.Context(), id, newName, newDescription); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %d\n", id)
			return nil
		},
	}
	updateCmd.Flags().StringVar(&newName, "name", "", "new name")
	updateCmd.Flags().StringVarP(&newDescription, "description", "d", "", "new description")

	deleteCmd := &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete a project and everything in it",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireProject(cmd, a, id); err != nil {
				return err
			}
			if err := a.store.DeleteProject(cmd.Context(), id); err != nil {
				return err
			}
			a.logger.WithProject(id).Info("project deleted")
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd, showCmd, updateCmd, deleteCmd)
	return cmd
}

func requireProject(cmd *cobra.Command, a *app, id int64) error {
	project, err := a.store.GetProject(cmd.Context(), id)
	if err != nil {
		return err
	}
	if project == nil {
		return core.ErrNotFound("project", id)
	}
	return nil
}
