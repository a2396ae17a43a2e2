package cmd

import (
	"context"
	"fmt"
	"os"

	"schooldir/internal/pipeline"
	"schooldir/internal/report"
)

// SchoolData represents a school record (matches store.School)
type SchoolData struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	NameCN      *string `json:"name_cn,omitempty"`
	Region      *string `json:"region,omitempty"`
	Country     *string `json:"country,omitempty"`
	City        *string `json:"city,omitempty"`
	District    *string `json:"district,omitempty"`
	Level       *string `json:"level,omitempty"`
	FinanceType *string `json:"finance_type,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Address     *string `json:"address,omitempty"`
	AddressCN   *string `json:"address_cn,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Fax         *string `json:"fax,omitempty"`
	Website     *string `json:"website,omitempty"`
	Principal   *string `json:"principal,omitempty"`
	Supervisor  *string `json:"supervisor,omitempty"`
	SchoolCode  *string `json:"school_code,omitempty"`
	Source      *string `json:"source,omitempty"`
	SourceTrust string  `json:"source_trust"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// DBOptions selects the store backing a command
type DBOptions struct {
	DataDir string
	Driver  string
	DSN     string
}

// DBInterface wraps database operations for CLI commands
type DBInterface interface {
	ListSchools(region, level string) ([]SchoolData, error)
	SearchSchools(query, region, level string, limit int) ([]SchoolData, error)
	GetSchoolByID(id int64) (*SchoolData, error)
	Close() error
}

// DBInterfaceExtended adds raw SQL access for the schema and query commands
type DBInterfaceExtended interface {
	DBInterface
	ExecuteQuery(query string) ([]map[string]interface{}, error)
}

// RunStore reads persisted ingestion reports
type RunStore interface {
	LatestRun() (*report.Run, error)
	GetRun(id string) (*report.Run, error)
	ListRuns(limit int) ([]*report.Run, error)
}

// Ingester runs the ingestion pipeline against the open store
type Ingester interface {
	Ingest(ctx context.Context, cfg pipeline.Config) (*report.Run, error)
}

// These variables will be set by main package
var (
	LaunchTUI      func(opts DBOptions)
	InitDB         func(opts DBOptions) (DBInterface, func(), error)
	StartServer    func(db DBInterface, port int) error
	RenderMarkdown func(content string, width int) (string, error)
)

// HandleError prints error and exits
func HandleError(err error, message string) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, err)
	os.Exit(1)
}

func dbOptions() DBOptions {
	return DBOptions{DataDir: dataDir, Driver: driver, DSN: dsn}
}

// openDB initializes the store or exits
func openDB() (DBInterface, func()) {
	db, cleanup, err := InitDB(dbOptions())
	if err != nil {
		HandleError(err, "Failed to initialize database")
	}
	return db, cleanup
}

func extended(db DBInterface) DBInterfaceExtended {
	dbExt, ok := db.(DBInterfaceExtended)
	if !ok {
		HandleError(fmt.Errorf("database does not support ExecuteQuery"), "Unsupported operation")
	}
	return dbExt
}
