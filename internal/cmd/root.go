package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/wfrun/cratebuilder/internal/log"
)

var (
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "cratebuilder",
	Short: "Workflow-run provenance crate builder",
	Long: `cratebuilder packages the provenance of a workflow run as an RO-Crate:
it reads the user's run manifest and the runtime's execution log, resolves the
application sources and the datasets the run touched, and produces a crate
folder with the JSON-LD metadata and, optionally, the data itself.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetDefaultLogger(log.New(log.Config{
			Level:  log.ParseLevel(logLevelFlag),
			Format: log.ParseFormat(logFormatFlag),
			Output: log.OutputStderr(),
		}))
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with the given context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "text", "Log format (text, json)")
}
