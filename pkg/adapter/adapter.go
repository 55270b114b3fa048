// Package adapter provides the relational engine binding for deebase:
// connection lifecycle, statement execution, placeholder style, error
// classification, and table introspection.
package adapter

import (
	"context"
	"database/sql"

	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

// Config holds the configuration for connecting to a database.
type Config struct {
	// Type specifies the database type (e.g., "sqlite", "postgres", "duckdb")
	Type string

	// Path is the file path for file-based databases (e.g., SQLite, DuckDB)
	// Use ":memory:" for in-memory databases
	Path string

	// Host is the hostname for network-based databases
	Host string

	// Port is the port number for network-based databases
	Port int

	// Database is the database name
	Database string

	// Username for authentication
	Username string

	// Password for authentication
	Password string

	// Schema is the default schema to use
	Schema string

	// Options contains additional driver-specific options
	Options map[string]string
}

// DBTX is implemented by both *sql.DB and *sql.Tx, allowing statement
// execution to work identically inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Conn returns the underlying connection pool.
	Conn() *sql.DB

	// DialectName returns the SQL dialect name for this adapter
	// (e.g., "sqlite", "postgres", "duckdb").
	DialectName() string

	// Placeholder returns the parameter placeholder for the n-th argument
	// (1-based): "?" for sqlite/duckdb, "$n" for postgres.
	Placeholder(n int) string

	// ClassifyError re-wraps a driver error into the core error taxonomy.
	// Errors that do not map to a known kind are returned unchanged.
	ClassifyError(table string, err error) error

	// TableDefinition introspects an existing table or view and returns
	// its metadata: columns in position order, primary-key column order,
	// and the foreign-key list.
	TableDefinition(ctx context.Context, table string) (*core.TableDefinition, error)

	// Tables lists the user table names in the connected database.
	Tables(ctx context.Context) ([]string, error)
}
