// Package duckdb wraps the local analytical data engine. The manager owns
// one database/sql handle; callers that process questions in parallel
// should each open their own manager.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/askduck/askduck/internal/schema"
)

// InMemory is the path value for a non-persistent database
const InMemory = ":memory:"

// Manager manages a DuckDB connection and its operations
type Manager struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
}

// NewManager opens a DuckDB database at path, or an in-memory database
// when path is ":memory:"
func NewManager(path string, queryTimeout time.Duration) (*Manager, error) {
	dsn := path
	if path == InMemory {
		dsn = ""
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newManagerWithDB(db, path, queryTimeout), nil
}

// newManagerWithDB wires a manager around an existing handle; tests use
// this with sqlmock
func newManagerWithDB(db *sql.DB, path string, queryTimeout time.Duration) *Manager {
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}

	return &Manager{db: db, path: path, queryTimeout: queryTimeout}
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.queryTimeout)
}

// Plan asks the engine to plan a statement without executing it
func (m *Manager) Plan(ctx context.Context, sqlText string) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	rows, err := m.db.QueryContext(ctx, "EXPLAIN "+sqlText)
	if err != nil {
		return err
	}

	return rows.Close()
}

// Execute runs a statement and returns column names and row tuples
func (m *Manager) Execute(ctx context.Context, sqlText string) ([]string, [][]any, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	rows, err := m.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	resultRows := make([][]any, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))

		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		resultRows = append(resultRows, normalizeValues(values))
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return columns, resultRows, nil
}

// LoadCSV registers a CSV file as a table
func (m *Manager) LoadCSV(ctx context.Context, table, path string) error {
	return m.loadFile(ctx, table, path, "read_csv_auto")
}

// LoadParquet registers a Parquet file as a table
func (m *Manager) LoadParquet(ctx context.Context, table, path string) error {
	return m.loadFile(ctx, table, path, "read_parquet")
}

// LoadJSON registers a JSON file as a table
func (m *Manager) LoadJSON(ctx context.Context, table, path string) error {
	return m.loadFile(ctx, table, path, "read_json_auto")
}

func (m *Manager) loadFile(ctx context.Context, table, path, reader string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("data file not found: %s", path)
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s(%s)",
		quoteIdent(table), reader, quoteString(path))

	if _, err := m.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to load %s into table %s: %w", path, table, err)
	}

	return nil
}

// ListTables returns the names of all registered tables
func (m *Manager) ListTables(ctx context.Context) ([]string, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	rows, err := m.db.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}

		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// DescribeTable returns the engine's view of a table's columns
func (m *Manager) DescribeTable(ctx context.Context, table string) ([]schema.ColumnDescription, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	rows, err := m.db.QueryContext(ctx, "DESCRIBE "+quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read describe columns: %w", err)
	}

	var described []schema.ColumnDescription

	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))

		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan describe row: %w", err)
		}

		// DESCRIBE returns column_name, column_type, null, key, default, extra.
		desc := schema.ColumnDescription{
			Name: asString(values[0]),
			Type: asString(values[1]),
		}

		if len(values) > 2 {
			desc.Nullable = strings.EqualFold(asString(values[2]), "YES")
		}

		described = append(described, desc)
	}

	return described, rows.Err()
}

// SampleRows returns up to limit rows from a table
func (m *Manager) SampleRows(ctx context.Context, table string, limit int) ([]string, [][]any, error) {
	if limit <= 0 {
		limit = 5
	}

	return m.Execute(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(table), limit))
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))

	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}

	return normalized
}

func asString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
