package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/promptbank/internal/bulk"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

const parallelismWarning = "warning: a background worker is using the database; with bulk.mode=clone, changes made before it finishes are lost"

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		style   string
		project int64
		tags    []string
		wait    bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import prompts from a JSON or YAML file in the background",
		Long: `Import a list of items, each a mapping from placeholder name to value.

Every item becomes a prompt of the given style. The value under the style's
completion key becomes an example of that prompt; an item without it becomes
a prompt with no example.

The import runs in a detached worker. Follow it with 'promptbank tasks check'
or pass --wait.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := bulk.LoadItems(args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := resolveStyle(cmd.Context(), a.store, style, project)
			if err != nil {
				return err
			}
			runner, err := a.runner()
			if err != nil {
				return err
			}
			status, err := runner.Import(cmd.Context(), bulk.ImportRequest{
				Items:     items,
				Tags:      tags,
				ProjectID: project,
				StyleID:   st.ID,
			})
			if err != nil {
				return err
			}
			return reportJob(cmd, a, status, wait)
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", "", "style id or id text")
	cmd.Flags().Int64VarP(&project, "project", "p", 0, "project id (default: the style's project)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag added to every imported prompt (repeatable)")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the worker to finish")
	_ = cmd.MarkFlagRequired("style")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		flags filterFlags
		wait  bool
	)
	cmd := &cobra.Command{
		Use:   "export [filename]",
		Short: "Export matching prompts as rendered JSON records in the background",
		Long: `Export every prompt matching the filters that has at least one matching
example. Each example becomes one flat JSON object mapping placeholder names
to values, with the completion under the style's completion key.

The file is written to the exports directory under the given name
(default: exports.default_filename).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filename string
			if len(args) == 1 {
				filename = args[0]
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			filter, err := flags.filter(cmd, a)
			if err != nil {
				return err
			}
			runner, err := a.runner()
			if err != nil {
				return err
			}
			status, err := runner.Export(cmd.Context(), bulk.ExportRequest{Filename: filename, Filter: filter})
			if err != nil {
				return err
			}
			return reportJob(cmd, a, status, wait)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the worker to finish")
	return cmd
}

// reportJob prints the spawned task and, with wait, blocks until it ends.
// A failed task is returned as an execution error.
func reportJob(cmd *cobra.Command, a *app, status core.JobStatus, wait bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Started task %d (worker pid %d)\n", status.TaskID, status.PID)
	if status.WarnParallelism {
		fmt.Fprintln(cmd.ErrOrStderr(), parallelismWarning)
	}
	if !wait {
		return nil
	}

	task, err := a.monitor().Wait(cmd.Context(), status.TaskID)
	if err != nil {
		return err
	}
	printTaskLine(out, task)
	if task.Status == core.TaskStatusFailed {
		return core.ErrExecution(core.CodeWorkerFailed, fmt.Sprintf("task %d failed: %s", task.ID, task.Error))
	}
	return nil
}

func printTaskLine(w io.Writer, t *core.Task) {
	if t.Error != "" {
		fmt.Fprintf(w, "Task %d %s: %s\n", t.ID, t.Status, t.Error)
		return
	}
	fmt.Fprintf(w, "Task %d %s\n", t.ID, t.Status)
}
