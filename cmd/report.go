package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"schooldir/internal/report"
)

var (
	listRuns  bool
	runsLimit int
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Show an ingestion run report",
	Long: `Show the report of the most recent ingestion run, or of the run with
the given ID. Use --list to see recent runs.

Examples:
  schooldir report
  schooldir report --format markdown
  schooldir report --list
  schooldir report 6f1c0c1e-5d0b-4a8e-9a59-0b3f8a7e2d11 --format json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, cleanup := openDB()
		defer cleanup()

		runs, ok := db.(RunStore)
		if !ok {
			HandleError(fmt.Errorf("database does not store run reports"), "Unsupported operation")
		}

		if listRuns {
			recent, err := runs.ListRuns(runsLimit)
			if err != nil {
				HandleError(err, "Failed to list runs")
			}
			printRunList(recent)
			return
		}

		var (
			run *report.Run
			err error
		)
		if len(args) == 1 {
			run, err = runs.GetRun(args[0])
		} else {
			run, err = runs.LatestRun()
		}
		if err != nil {
			HandleError(err, "Failed to load run report")
		}
		if run == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "No ingestion runs found")
			return
		}

		printRun(run)
	},
}

func printRunList(runs []*report.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Source", "Started", "Units", "Failed", "Inserted", "Updated"})
	for _, r := range runs {
		tot := r.Totals()
		t.AppendRow(table.Row{
			r.ID, r.Source, r.StartedAt.Format("2006-01-02 15:04"),
			len(r.Units), r.StatusCounts()[report.StatusFailed], tot.Inserted, tot.Updated,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func init() {
	reportCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "Report format: table, markdown or json")
	reportCmd.Flags().BoolVar(&listRuns, "list", false, "List recent runs instead of showing one")
	reportCmd.Flags().IntVarP(&runsLimit, "limit", "l", 20, "Number of runs to list")
	rootCmd.AddCommand(reportCmd)
}
