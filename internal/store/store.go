// Package store persists school rows and ingestion run history. It speaks
// to DuckDB by default and to SQLite for the web application's database
// file; both dialects share the same column names.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "modernc.org/sqlite"
)

const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

var ErrNotFound = errors.New("not found")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs statements against the database or an open transaction.
type Queries struct {
	q querier
}

type Store struct {
	*Queries
	conn   *sql.DB
	driver string
	logger *slog.Logger
}

// DefaultDSN returns the database file used when no DSN is configured.
func DefaultDSN(driver, dataDir string) string {
	if driver == DriverSQLite {
		return filepath.Join(dataDir, "schools.sqlite")
	}
	return filepath.Join(dataDir, "schools.duckdb")
}

// Open connects to the database and creates missing tables. An empty dsn
// opens an in-memory database.
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch driver {
	case DriverDuckDB, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	if dsn != "" && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if driver == DriverSQLite && dsn == "" {
		dsn = ":memory:"
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "driver", driver, "dsn", dsn)
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// One connection keeps in-memory databases alive and serializes
		// writers.
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	s := &Store{
		Queries: &Queries{q: conn},
		conn:    conn,
		driver:  driver,
		logger:  logger,
	}
	if err := s.migrate(context.Background()); err != nil {
		conn.Close()
		logger.Error("Database migration failed", "error", err, "driver", driver, "dsn", dsn)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := duckDBSchema
	if s.driver == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", firstLine(stmt), err)
		}
	}

	// Databases created by the web application predate source_trust.
	cols, err := s.columns(ctx, "schools")
	if err != nil {
		return err
	}
	if !cols["source_trust"] {
		s.logger.Info("Adding source_trust column to schools table")
		if _, err := s.conn.ExecContext(ctx, `ALTER TABLE schools ADD COLUMN source_trust INTEGER`); err != nil {
			return fmt.Errorf("failed to add source_trust column: %w", err)
		}
	}
	return nil
}

func (s *Store) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.ExecuteQuery(ctx, fmt.Sprintf("PRAGMA table_info('%s')", table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	cols := make(map[string]bool, len(rows))
	for _, row := range rows {
		if name, ok := row["name"].(string); ok {
			cols[name] = true
		}
	}
	return cols, nil
}

// WithTx runs fn inside one transaction, committing when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Ignore error - will fail if transaction was committed
	}()

	if err := fn(&Queries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ExecuteQuery runs an ad-hoc query and returns every row as a column map.
func (s *Store) ExecuteQuery(ctx context.Context, query string) ([]map[string]interface{}, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var duckDBSchema = []string{
	`CREATE SEQUENCE IF NOT EXISTS schools_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS schools (
		id BIGINT PRIMARY KEY DEFAULT nextval('schools_id_seq'),
		name VARCHAR NOT NULL,
		name_cn VARCHAR,
		region VARCHAR,
		country VARCHAR,
		city VARCHAR,
		district VARCHAR,
		level VARCHAR,
		finance_type VARCHAR,
		gender VARCHAR,
		address VARCHAR,
		address_cn VARCHAR,
		phone VARCHAR,
		fax VARCHAR,
		website VARCHAR,
		principal VARCHAR,
		supervisor VARCHAR,
		school_code VARCHAR,
		source VARCHAR,
		source_trust INTEGER,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id VARCHAR PRIMARY KEY,
		source VARCHAR NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		report VARCHAR NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS schools (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		name_cn TEXT,
		region TEXT,
		country TEXT,
		city TEXT,
		district TEXT,
		level TEXT,
		finance_type TEXT,
		gender TEXT,
		address TEXT,
		address_cn TEXT,
		phone TEXT,
		fax TEXT,
		website TEXT,
		principal TEXT,
		supervisor TEXT,
		school_code TEXT,
		source TEXT,
		source_trust INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schools_name ON schools(name)`,
	`CREATE INDEX IF NOT EXISTS idx_schools_code ON schools(school_code)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		report TEXT NOT NULL
	)`,
}
