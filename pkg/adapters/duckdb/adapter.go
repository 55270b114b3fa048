// Package duckdb provides a DuckDB engine binding.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/rahulcredcore/deebase-sub000/pkg/adapter"
	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

func init() {
	adapter.Register("duckdb", func() adapter.Adapter { return New(nil) })
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
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
func (a *Adapter) DialectName() string { return "duckdb" }

// Placeholder returns the positional parameter marker.
func (a *Adapter) Placeholder(n int) string { return adapter.QuestionPlaceholder(n) }

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if path == ":memory:" {
		path = ""
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", cfg.Path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &core.ConnectionError{Target: cfg.Path, Err: err}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// ClassifyError maps DuckDB constraint failures into the core taxonomy.
// The driver surfaces failures as "Constraint Error" messages.
func (a *Adapter) ClassifyError(table string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintUnique, Err: err}
	case strings.Contains(msg, "primary key"):
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintPrimaryKey, Err: err}
	case strings.Contains(msg, "foreign key"):
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintForeignKey, Err: err}
	case strings.Contains(msg, "not null constraint"), strings.Contains(msg, "null value"):
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintNotNull, Err: err}
	case strings.Contains(msg, "check constraint"):
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintCheck, Err: err}
	case strings.Contains(msg, "constraint error"):
		return &core.IntegrityError{Table: table, Err: err}
	}
	return err
}

// TableDefinition introspects a table or view using information_schema and
// duckdb_constraints().
func (a *Adapter) TableDefinition(ctx context.Context, table string) (*core.TableDefinition, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema := "main"
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

	pkOrder, fks, err := a.constraints(ctx, schema, table)
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
		WHERE table_schema = ? AND table_name = ?
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

func (a *Adapter) constraints(ctx context.Context, schema, table string) ([]string, []core.ForeignKey, error) {
	rows, err := a.DB.QueryContext(ctx, `
		SELECT constraint_type, constraint_column_names, referenced_table, referenced_column_names
		FROM duckdb_constraints()
		WHERE schema_name = ? AND table_name = ?`, schema, table)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query constraint metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pk []string
	var fks []core.ForeignKey
	for rows.Next() {
		var (
			cType         string
			cols, refCols any
			refTable      sql.NullString
		)
		if err := rows.Scan(&cType, &cols, &refTable, &refCols); err != nil {
			return nil, nil, fmt.Errorf("failed to scan constraint metadata: %w", err)
		}
		switch cType {
		case "PRIMARY KEY":
			pk = toStringList(cols)
		case "FOREIGN KEY":
			local := toStringList(cols)
			referenced := toStringList(refCols)
			for i, col := range local {
				refColumn := "id"
				if i < len(referenced) {
					refColumn = referenced[i]
				}
				fks = append(fks, core.ForeignKey{
					Column:     col,
					References: refTable.String + "." + refColumn,
				})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating constraint metadata: %w", err)
	}
	return pk, fks, nil
}

// toStringList normalizes a DuckDB VARCHAR[] value, which the driver
// materializes as []any, into a string slice.
func toStringList(v any) []string {
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case []string:
		return list
	case string:
		trimmed := strings.Trim(list, "[]")
		if trimmed == "" {
			return nil
		}
		parts := strings.Split(trimmed, ",")
		out := make([]string, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	}
	return nil
}

// Tables lists the user tables in the main schema.
func (a *Adapter) Tables(ctx context.Context) ([]string, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	rows, err := a.DB.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'main' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
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
