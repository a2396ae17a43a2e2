package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var detailsCmd = &cobra.Command{
	Use:   "details [school-id]",
	Short: "Get detailed information about a school",
	Long: `Get detailed information about a specific school by its database ID.
Returns school data as JSON.

Example:
  schooldir details 42`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		schoolID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			HandleError(err, "Invalid school ID")
		}

		db, cleanup := openDB()
		defer cleanup()

		school, err := db.GetSchoolByID(schoolID)
		if err != nil {
			HandleError(err, "Failed to get school details")
		}

		if school == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "No school found with ID: %d\n", schoolID)
			return
		}

		output, err := json.MarshalIndent(school, "", "  ")
		if err != nil {
			HandleError(err, "Failed to encode JSON")
		}

		fmt.Println(string(output))
	},
}

func init() {
	rootCmd.AddCommand(detailsCmd)
}
