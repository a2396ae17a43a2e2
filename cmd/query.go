package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var queryString string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the database (SQL)",
	Long: `Execute the requested QUERY against the school database.
The dialect follows --driver: DuckDB SQL by default, SQLite otherwise.

Examples:
  schooldir query --sql "SELECT name, district FROM schools LIMIT 5"
  schooldir query --sql "SELECT level, COUNT(*) AS total FROM schools GROUP BY level"
  schooldir query --sql "SELECT id, source, started_at FROM ingest_runs"`,
	Run: func(cmd *cobra.Command, args []string) {
		if queryString == "" {
			HandleError(fmt.Errorf("query is required"), "Missing query parameter")
		}

		db, cleanup := openDB()
		defer cleanup()

		rows, err := extended(db).ExecuteQuery(queryString)
		if err != nil {
			HandleError(err, "Failed to execute query")
		}

		output, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			HandleError(err, "Failed to encode JSON")
		}

		fmt.Println(string(output))
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryString, "sql", "q", "", "SQL query to execute (required)")
	_ = queryCmd.MarkFlagRequired("sql")
	rootCmd.AddCommand(queryCmd)
}
