package cmd

import (
	"github.com/spf13/cobra"

	"schooldir/internal/store"
)

var (
	dataDir string
	driver  string
	dsn     string
	rootCmd = &cobra.Command{
		Use:   "schooldir",
		Short: "School Directory - ingest and explore school listings",
		Long: `School Directory scrapes public school listings (the EDB district
school lists and similar directories), classifies and normalizes each school,
and reconciles it into a local database without duplicating or clobbering
existing rows.

When run without commands, it launches an interactive TUI.
Use subcommands for CLI mode with JSON output.`,
		Run: func(cmd *cobra.Command, args []string) {
			// No subcommand specified - launch TUI
			LaunchTUI(dbOptions())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "tmpdata/", "Directory holding the database and err.log")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", store.DriverDuckDB, "Database driver: duckdb or sqlite")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database file (defaults to schools.<driver> in the data directory)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
