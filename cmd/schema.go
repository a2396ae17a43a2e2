package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// SchemaOutput represents the schema information for a table
type SchemaOutput struct {
	TableName   string       `json:"table_name"`
	ColumnCount int          `json:"column_count"`
	Columns     []ColumnInfo `json:"columns"`
}

// ColumnInfo represents information about a single column
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable string `json:"nullable"`
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Retrieve a summary of the database schema",
	Long: `Retrieve a summary of the local database schema.
This command returns the columns of the schools and ingest_runs tables.

Examples:
  schooldir schema
  schooldir --driver sqlite --dsn app.db schema`,
	Run: func(cmd *cobra.Command, args []string) {
		db, cleanup := openDB()
		defer cleanup()

		tables := []string{"schools", "ingest_runs"}
		schemas := make([]SchemaOutput, 0, len(tables))

		for _, tableName := range tables {
			schema, err := getTableSchema(extended(db), tableName)
			if err != nil {
				// Skip tables that don't exist
				continue
			}
			schemas = append(schemas, schema)
		}

		output, err := json.MarshalIndent(schemas, "", "  ")
		if err != nil {
			HandleError(err, "Failed to encode JSON")
		}

		fmt.Println(string(output))
	},
}

// getTableSchema retrieves schema information for a specific table
func getTableSchema(db DBInterfaceExtended, tableName string) (SchemaOutput, error) {
	query := fmt.Sprintf("PRAGMA table_info('%s')", tableName)
	rows, err := db.ExecuteQuery(query)
	if err != nil {
		return SchemaOutput{}, fmt.Errorf("failed to get schema for table %s: %w", tableName, err)
	}
	if len(rows) == 0 {
		return SchemaOutput{}, fmt.Errorf("table %s not found", tableName)
	}

	schema := SchemaOutput{
		TableName: tableName,
		Columns:   []ColumnInfo{},
	}

	for _, row := range rows {
		// PRAGMA table_info returns: cid, name, type, notnull, dflt_value, pk
		name, _ := row["name"].(string)
		colType, _ := row["type"].(string)

		nullable := "YES"
		if notNull(row["notnull"]) {
			nullable = "NO"
		}

		schema.Columns = append(schema.Columns, ColumnInfo{
			Name:     name,
			Type:     colType,
			Nullable: nullable,
		})
	}

	schema.ColumnCount = len(schema.Columns)

	return schema, nil
}

// notNull reads the notnull column, a bool on DuckDB and an integer on SQLite.
func notNull(v interface{}) bool {
	switch v := v.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int32:
		return v != 0
	case string:
		return v == "1" || v == "true"
	}
	return false
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
