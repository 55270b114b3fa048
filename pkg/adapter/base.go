package adapter

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close and Conn implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Conn returns the underlying connection pool.
func (b *BaseSQLAdapter) Conn() *sql.DB {
	return b.DB
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// QuestionPlaceholder is the Placeholder implementation for engines using
// positional "?" parameters (sqlite, duckdb).
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder is the Placeholder implementation for engines using
// numbered "$n" parameters (postgres).
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }
