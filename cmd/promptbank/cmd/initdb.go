package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitDBCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema",
		Long: `Create the database file and its tables.

A new or empty database file is initialized automatically on first use. On an
existing database this command drops every table and recreates the schema, so
it requires --force.`,
		Args: cobra.NoArgs,
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
			if len(projects) > 0 && !force {
				return fmt.Errorf("database %s already holds %d project(s), use --force to wipe it", a.store.Path(), len(projects))
			}
			if err := a.store.Reset(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("database initialized", "path", a.store.Path())
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", a.store.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "drop existing data")
	return cmd
}
