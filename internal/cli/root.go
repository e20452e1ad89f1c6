// Package cli implements plotctl, a command line front end that runs the
// ingestion pipeline over local files.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/plotapi/internal/logging"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=...".
var version = "dev"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "plotctl",
	Short: "Inspect tabular files the way the plotting API sees them",
	Long: `plotctl parses CSV, TXT, XLSX and XLS files with the same pipeline as
the HTTP service and reports the inferred column types and a preview.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		slog.SetDefault(logging.New(cmd.ErrOrStderr(), logLevel, "text"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
