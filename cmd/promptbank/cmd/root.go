package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/promptbank/internal/bulk"
)

// Version info - set via SetVersion()
var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersion records build metadata for the version command.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

// rootOptions is the state shared by every subcommand of one root command.
type rootOptions struct {
	cfgFile   string
	logLevel  string
	logFormat string
	dbPath    string
	v         *viper.Viper

	// spawner overrides the worker launcher; nil re-executes this binary.
	spawner bulk.Spawner
}

// Execute runs the CLI with os.Args.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// NewRootCmd builds the full command tree. Each call returns independent
// flag state.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{v: viper.New()})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "promptbank",
		Short: "Store, search and export prompt templates and their examples",
		Long: `promptbank keeps prompt styles (templates with named placeholders), the
prompts filled in from them and example completions in a local SQLite file.

Bulk imports and exports run in a detached worker process. Use
'promptbank tasks check' to see how they are doing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "config file (default: .promptbank/config.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "auto", "log format (auto, text, json)")
	pf.StringVar(&opts.dbPath, "db", "", "database file (default: .promptbank/promptbank.db)")

	// Bind flags to viper (errors are nil when flag exists)
	_ = opts.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = opts.v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = opts.v.BindPFlag("database.path", pf.Lookup("db"))

	root.AddCommand(
		newInitDBCmd(opts),
		newConfigCmd(opts),
		newProjectCmd(opts),
		newStyleCmd(opts),
		newPromptCmd(opts),
		newExampleCmd(opts),
		newSearchCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newTasksCmd(opts),
		newExportsCmd(opts),
		newWorkerCmd(),
		newVersionCmd(),
	)
	return root
}
