package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/promptbank/internal/bulk"
)

func newWorkerCmd() *cobra.Command {
	var jobPath string
	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run a bulk job file (started by import and export)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bulk.RunJobFile(cmd.Context(), jobPath)
		},
	}
	cmd.Flags().StringVar(&jobPath, "job", "", "job file")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}
