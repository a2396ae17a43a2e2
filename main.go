package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/glamour"

	"schooldir/cmd"
	"schooldir/internal/pipeline"
	"schooldir/internal/report"
	"schooldir/internal/store"
)

const (
	maxResults = 100
)

var logger *slog.Logger

// setupLogger creates and configures the application logger
func setupLogger(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	logPath := filepath.Join(dataDir, "err.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true, // Include file:line information
	})

	logger = slog.New(handler)
	slog.SetDefault(logger)
	logger.Info("Application started", "version", "1.0", "data_dir", dataDir)

	return nil
}

// renderMarkdown renders markdown content with glamour for terminal display
func renderMarkdown(content string, width int) (string, error) {
	// Account for borders, padding, and glamour's internal gutter
	const glamourGutter = 2
	const borderWidth = 4

	renderWidth := width - borderWidth - glamourGutter
	if renderWidth < 40 {
		renderWidth = 40 // Minimum width for readable content
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return "", err
	}

	return renderer.Render(content)
}

// openStore opens the store selected by opts
func openStore(opts cmd.DBOptions) (*store.Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = store.DriverDuckDB
	}
	dsn := opts.DSN
	if dsn == "" {
		dsn = store.DefaultDSN(driver, opts.DataDir)
	}
	return store.Open(driver, dsn, logger)
}

// initDB initializes the database for CLI commands
func initDB(opts cmd.DBOptions) (cmd.DBInterface, func(), error) {
	if err := setupLogger(opts.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to setup logger: %v\n", err)
	}

	st, err := openStore(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cleanup := func() {
		st.Close()
	}

	return &dbAdapter{store: st}, cleanup, nil
}

// dbAdapter adapts *store.Store to the cmd interfaces
type dbAdapter struct {
	store *store.Store
}

func (a *dbAdapter) ListSchools(region, level string) ([]cmd.SchoolData, error) {
	schools, err := a.store.ListSchools(context.Background(), store.Filter{Region: region, Level: level})
	if err != nil {
		return nil, err
	}
	return convertSchoolsToCmd(schools), nil
}

func (a *dbAdapter) SearchSchools(query, region, level string, limit int) ([]cmd.SchoolData, error) {
	schools, err := a.store.SearchSchools(context.Background(), query, store.Filter{Region: region, Level: level}, limit)
	if err != nil {
		return nil, err
	}
	return convertSchoolsToCmd(schools), nil
}

func (a *dbAdapter) GetSchoolByID(id int64) (*cmd.SchoolData, error) {
	school, err := a.store.GetSchoolByID(context.Background(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data := convertSchoolToCmd(*school)
	return &data, nil
}

func (a *dbAdapter) ExecuteQuery(query string) ([]map[string]interface{}, error) {
	return a.store.ExecuteQuery(context.Background(), query)
}

func (a *dbAdapter) LatestRun() (*report.Run, error) {
	rec, err := a.store.LatestRun(context.Background())
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return report.Decode([]byte(rec.Report))
}

func (a *dbAdapter) GetRun(id string) (*report.Run, error) {
	rec, err := a.store.GetRun(context.Background(), id)
	if err != nil {
		return nil, err
	}
	return report.Decode([]byte(rec.Report))
}

func (a *dbAdapter) ListRuns(limit int) ([]*report.Run, error) {
	return listRuns(context.Background(), a.store, limit)
}

func (a *dbAdapter) Ingest(ctx context.Context, cfg pipeline.Config) (*report.Run, error) {
	return pipeline.New(a.store, pipeline.WithLogger(logger)).Run(ctx, cfg)
}

func (a *dbAdapter) Close() error {
	return a.store.Close()
}

// listRuns decodes the most recent run reports
func listRuns(ctx context.Context, st *store.Store, limit int) ([]*report.Run, error) {
	recs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	runs := make([]*report.Run, 0, len(recs))
	for _, rec := range recs {
		run, err := report.Decode([]byte(rec.Report))
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", rec.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func convertSchoolsToCmd(schools []store.School) []cmd.SchoolData {
	out := make([]cmd.SchoolData, len(schools))
	for i, s := range schools {
		out[i] = convertSchoolToCmd(s)
	}
	return out
}

// convertSchoolToCmd converts store.School to cmd.SchoolData
func convertSchoolToCmd(s store.School) cmd.SchoolData {
	data := cmd.SchoolData{
		ID:          s.ID,
		Name:        s.Name,
		SourceTrust: s.Trust().String(),
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.UTC().Format(time.RFC3339),
	}

	data.NameCN = optional(s.NameCN.String, s.NameCN.Valid)
	data.Region = optional(s.Region.String, s.Region.Valid)
	data.Country = optional(s.Country.String, s.Country.Valid)
	data.City = optional(s.City.String, s.City.Valid)
	data.District = optional(s.District.String, s.District.Valid)
	data.Level = optional(s.Level.String, s.Level.Valid)
	data.FinanceType = optional(s.FinanceType.String, s.FinanceType.Valid)
	data.Gender = optional(s.Gender.String, s.Gender.Valid)
	data.Address = optional(s.Address.String, s.Address.Valid)
	data.AddressCN = optional(s.AddressCN.String, s.AddressCN.Valid)
	data.Phone = optional(s.Phone.String, s.Phone.Valid)
	data.Fax = optional(s.Fax.String, s.Fax.Valid)
	data.Website = optional(s.Website.String, s.Website.Valid)
	data.Principal = optional(s.Principal.String, s.Principal.Valid)
	data.Supervisor = optional(s.Supervisor.String, s.Supervisor.Valid)
	data.SchoolCode = optional(s.SchoolCode.String, s.SchoolCode.Valid)
	data.Source = optional(s.Source.String, s.Source.Valid)

	return data
}

func optional(v string, valid bool) *string {
	if !valid || v == "" {
		return nil
	}
	return &v
}

func main() {
	// Set up cmd package callbacks
	cmd.LaunchTUI = launchTUI
	cmd.InitDB = initDB
	cmd.StartServer = startServer
	cmd.RenderMarkdown = renderMarkdown

	// Execute the CLI
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
