package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List schools",
	Long: `List every stored school, optionally filtered by region and level,
ordered by name. Results are returned as JSON.

Examples:
  schooldir list
  schooldir list --level secondary
  schooldir list --region "Hong Kong" --level kindergarten`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		db, cleanup := openDB()
		defer cleanup()

		schools, err := db.ListSchools(regionFilter, levelFilter)
		if err != nil {
			HandleError(err, "Failed to list schools")
		}

		output, err := json.MarshalIndent(schools, "", "  ")
		if err != nil {
			HandleError(err, "Failed to encode JSON")
		}

		fmt.Println(string(output))
	},
}

func init() {
	listCmd.Flags().StringVarP(&regionFilter, "region", "r", "", "Filter by region (e.g., Hong Kong)")
	listCmd.Flags().StringVarP(&levelFilter, "level", "L", "", "Filter by level (kindergarten, primary, secondary, tertiary)")
	rootCmd.AddCommand(listCmd)
}
