// Package postgres provides a PostgreSQL engine binding on pgx's
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/rahulcredcore/deebase-sub000/pkg/adapter"
	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

func init() {
	adapter.Register("postgres", func() adapter.Adapter { return New(nil) })
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string { return "postgres" }

// Placeholder returns the numbered parameter marker.
func (a *Adapter) Placeholder(n int) string { return adapter.DollarPlaceholder(n) }

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &core.ConnectionError{Target: cfg.Host + "/" + cfg.Database, Err: err}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("sslmode=%s", sslmode),
	}
	if cfg.Database != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", cfg.Database))
	}
	if cfg.Username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}
	if cfg.Schema != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", cfg.Schema))
	}
	return strings.Join(parts, " ")
}

// ClassifyError maps PostgreSQL errors into the core taxonomy using
// SQLSTATE codes (class 23 = integrity constraint violation).
func (a *Adapter) ClassifyError(table string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		constraint := core.ConstraintUnique
		if strings.Contains(pgErr.ConstraintName, "pkey") {
			constraint = core.ConstraintPrimaryKey
		}
		return &core.IntegrityError{Table: table, Constraint: constraint, Err: err}
	case "23503": // foreign_key_violation
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintForeignKey, Err: err}
	case "23502": // not_null_violation
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintNotNull, Err: err}
	case "23514": // check_violation
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintCheck, Err: err}
	}
	if strings.HasPrefix(pgErr.Code, "23") {
		return &core.IntegrityError{Table: table, Err: err}
	}
	if strings.HasPrefix(pgErr.Code, "08") { // connection exception
		return &core.ConnectionError{Target: a.Cfg.Host, Err: err}
	}
	return err
}

// TableDefinition introspects a table or view via information_schema.
func (a *Adapter) TableDefinition(ctx context.Context, table string) (*core.TableDefinition, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema := a.Cfg.Schema
	if schema == "" {
		schema = "public"
	}
	if parts := strings.Split(table, "."); len(parts) == 2 {
		schema, table = parts[0], parts[1]
	}

	columns, err := a.tableColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &core.SchemaError{Table: table}
	}

	pkOrder, err := a.primaryKey(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		for _, pk := range pkOrder {
			if columns[i].Name == pk {
				columns[i].PrimaryKey = true
			}
		}
	}

	fks, err := a.foreignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	return &core.TableDefinition{
		Name:        table,
		Columns:     columns,
		PrimaryKey:  pkOrder,
		ForeignKeys: fks,
	}, nil
}

func (a *Adapter) tableColumns(ctx context.Context, schema, table string) ([]core.Column, error) {
	rows, err := a.DB.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, ordinal_position, column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		var dflt sql.NullString
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position, &dflt); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		if dflt.Valid {
			col.Default = dflt.String
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return columns, nil
}

func (a *Adapter) primaryKey(ctx context.Context, schema, table string) ([]string, error) {
	rows, err := a.DB.QueryContext(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pk []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan primary key metadata: %w", err)
		}
		pk = append(pk, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary key metadata: %w", err)
	}
	return pk, nil
}

func (a *Adapter) foreignKeys(ctx context.Context, schema, table string) ([]core.ForeignKey, error) {
	rows, err := a.DB.QueryContext(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		 AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign key metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fks []core.ForeignKey
	for rows.Next() {
		var column, refTable, refColumn string
		if err := rows.Scan(&column, &refTable, &refColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key metadata: %w", err)
		}
		fks = append(fks, core.ForeignKey{
			Column:     column,
			References: refTable + "." + refColumn,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign key metadata: %w", err)
	}
	return fks, nil
}

// Tables lists the user tables in the configured schema.
func (a *Adapter) Tables(ctx context.Context) ([]string, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	schema := a.Cfg.Schema
	if schema == "" {
		schema = "public"
	}
	rows, err := a.DB.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table names: %w", err)
	}
	return names, nil
}

// Ensure Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
