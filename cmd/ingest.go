package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"schooldir/internal/config"
	"schooldir/internal/report"
	"schooldir/internal/sources"
)

var (
	ingestSource    string
	ingestConfig    string
	ingestDistricts []string
	ingestTrust     string
	ingestForce     bool
	ingestInsecure  bool
	ingestDelay     string
	ingestTimeout   string
	ingestAttempts  int
	outputFormat    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Scrape a source and reconcile it into the database",
	Long: `Fetch every listing page of a source profile, classify and normalize the
schools on it, and insert or update them in the database. Each page commits
in its own transaction; a failing page is reported and the run continues.

Settings come from --config (json5 or yaml, with an optional
<name>.local.<ext> override) and flags given on the command line win.

Examples:
  schooldir ingest --source edb
  schooldir ingest --source edb --district "Wan Chai" --district "Sha Tin"
  schooldir ingest --config ingest.json5 --format markdown`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run, err := ingestSettings(cmd)
		if err != nil {
			HandleError(err, "Invalid ingest settings")
		}
		cfg, err := run.Pipeline()
		if err != nil {
			HandleError(err, "Invalid ingest settings")
		}

		db, cleanup := openDB()
		defer cleanup()

		ingester, ok := db.(Ingester)
		if !ok {
			HandleError(fmt.Errorf("database does not support ingestion"), "Unsupported operation")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := ingester.Ingest(ctx, cfg)
		if err != nil {
			HandleError(err, "Ingest failed")
		}

		printRun(result)

		if counts := result.StatusCounts(); len(result.Units) > 0 && counts[report.StatusFailed] == len(result.Units) {
			cleanup()
			os.Exit(1)
		}
	},
}

// ingestSettings loads --config when given and lays explicit flags over it.
func ingestSettings(cmd *cobra.Command) (config.Run, error) {
	var run config.Run
	if ingestConfig != "" {
		var err error
		run, err = config.ReadConfig[config.Run](ingestConfig)
		if errors.Is(err, os.ErrNotExist) {
			return run, fmt.Errorf("config file %s not found", ingestConfig)
		}
		if err != nil {
			return run, err
		}
	}

	flags := cmd.Flags()
	if run.Source == "" || flags.Changed("source") {
		run.Source = ingestSource
	}
	if flags.Changed("district") {
		run.Districts = ingestDistricts
		run.Units = nil
	}
	if flags.Changed("trust") {
		run.Trust = ingestTrust
	}
	if flags.Changed("force") {
		run.Force = &ingestForce
	}
	if flags.Changed("insecure") {
		run.InsecureSkipVerify = &ingestInsecure
	}
	if flags.Changed("delay") {
		run.Delay = ingestDelay
	}
	if flags.Changed("timeout") {
		run.Timeout = ingestTimeout
	}
	if flags.Changed("attempts") {
		run.Attempts = ingestAttempts
	}
	return run, nil
}

// printRun writes a run report in the selected --format.
func printRun(run *report.Run) {
	switch outputFormat {
	case "json":
		data, err := run.JSON()
		if err != nil {
			HandleError(err, "Failed to encode JSON")
		}
		fmt.Println(string(data))
	case "markdown", "md":
		content := report.Markdown(run)
		if RenderMarkdown != nil {
			if rendered, err := RenderMarkdown(content, 120); err == nil {
				content = rendered
			}
		}
		fmt.Print(content)
	default:
		report.Table(os.Stdout, run)
	}
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "edb", "Source profile ("+strings.Join(sources.IDs(), ", ")+")")
	ingestCmd.Flags().StringVarP(&ingestConfig, "config", "c", "", "Run settings file (json5 or yaml)")
	ingestCmd.Flags().StringSliceVar(&ingestDistricts, "district", nil, "Limit the run to these districts (name or page slug)")
	ingestCmd.Flags().StringVar(&ingestTrust, "trust", "", "Override the source trust (manual, directory, registry)")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "Overwrite provenance of rows from higher-trust sources")
	ingestCmd.Flags().BoolVar(&ingestInsecure, "insecure", false, "Skip TLS certificate verification")
	ingestCmd.Flags().StringVar(&ingestDelay, "delay", "", "Delay between requests to the same host (e.g., 1s)")
	ingestCmd.Flags().StringVar(&ingestTimeout, "timeout", "", "Per-request timeout (e.g., 30s)")
	ingestCmd.Flags().IntVar(&ingestAttempts, "attempts", 0, "Fetch attempts per page")
	ingestCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "Report format: table, markdown or json")
	rootCmd.AddCommand(ingestCmd)
}
