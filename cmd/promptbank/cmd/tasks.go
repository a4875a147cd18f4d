package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

func newTasksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect background import and export tasks",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List tasks, newest first",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.store.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Fail in-progress tasks whose worker is gone",
		Long: `Check every in-progress task against the process table.

A task fails when its worker no longer runs or was not started by this
process. Run from a shell other than the one that started the worker,
every in-progress task is reported failed; use 'tasks watch' to follow
progress from elsewhere.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.monitor().Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "running: %v\nfailed: %v\n", result.Running, result.Failed)
			if result.WarnParallelism {
				fmt.Fprintln(cmd.ErrOrStderr(), parallelismWarning)
			}
			return nil
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the task list whenever it changes",
		Long: `Print the task list now and after every change until interrupted.

Watching never fails tasks, so it is safe from any shell.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watchTasks(ctx, a, cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(listCmd, checkCmd, watchCmd)
	return cmd
}

func watchTasks(ctx context.Context, a *app, out io.Writer) error {
	var printErr error
	err := a.monitor().Watch(ctx, func(tasks []core.Task) {
		fmt.Fprintln(out, "---")
		if err := printTasks(out, tasks); err != nil && printErr == nil {
			printErr = err
		}
	})
	if err != nil {
		return err
	}
	return printErr
}

func printTasks(out io.Writer, tasks []core.Task) error {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPID\tCREATED\tERROR")
	for _, t := range tasks {
		pid := "-"
		if t.PID != 0 {
			pid = fmt.Sprint(t.PID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Type, t.Status, pid, shortTime(t.CreatedAt), t.Error)
	}
	return w.Flush()
}
