package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	regionFilter string
	levelFilter  string
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for schools",
	Long: `Search for schools by English or Chinese name, district, or address.
Results are returned as JSON.

Examples:
  schooldir search "Riverside"
  schooldir search --level primary "Sha Tin"
  schooldir search --limit 10 "Secondary"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := args[0]

		db, cleanup := openDB()
		defer cleanup()

		schools, err := db.SearchSchools(query, regionFilter, levelFilter, searchLimit)
		if err != nil {
			HandleError(err, "Failed to search schools")
		}

		output, err := json.MarshalIndent(schools, "", "  ")
		if err != nil {
			HandleError(err, "Failed to encode JSON")
		}

		fmt.Println(string(output))
	},
}

func init() {
	searchCmd.Flags().StringVarP(&regionFilter, "region", "r", "", "Filter by region (e.g., Hong Kong)")
	searchCmd.Flags().StringVarP(&levelFilter, "level", "L", "", "Filter by level (kindergarten, primary, secondary, tertiary)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 50, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
