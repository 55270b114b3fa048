// Package sqlite provides a SQLite engine binding on the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/rahulcredcore/deebase-sub000/pkg/adapter"
	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

func init() {
	adapter.Register("sqlite", func() adapter.Adapter { return New(nil) })
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
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
func (a *Adapter) DialectName() string { return "sqlite" }

// Placeholder returns the positional parameter marker.
func (a *Adapter) Placeholder(n int) string { return adapter.QuestionPlaceholder(n) }

// Connect establishes a connection to SQLite.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	// Foreign-key enforcement is off by default in SQLite.
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}

	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &core.ConnectionError{Target: path, Err: err}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// ClassifyError maps SQLite constraint failures into the core taxonomy.
// The driver exposes failures through the error text, so classification
// inspects the message the same way the engine reports it.
func (a *Adapter) ClassifyError(table string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"):
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintUnique, Err: err}
	case strings.Contains(msg, "primary key constraint"):
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintPrimaryKey, Err: err}
	case strings.Contains(msg, "foreign key constraint"):
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintForeignKey, Err: err}
	case strings.Contains(msg, "not null constraint"):
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintNotNull, Err: err}
	case strings.Contains(msg, "check constraint"):
		return &core.IntegrityError{Table: table, Constraint: core.ConstraintCheck, Err: err}
	case strings.Contains(msg, "constraint"):
		return &core.IntegrityError{Table: table, Err: err}
	}
	return err
}

// TableDefinition introspects a table or view via PRAGMA queries.
func (a *Adapter) TableDefinition(ctx context.Context, table string) (*core.TableDefinition, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	columns, pkOrder, err := a.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &core.SchemaError{Table: table}
	}

	fks, err := a.foreignKeys(ctx, table)
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

func (a *Adapter) tableColumns(ctx context.Context, table string) ([]core.Column, []string, error) {
	rows, err := a.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query table_info for %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	type pkCol struct {
		name  string
		order int
	}
	var columns []core.Column
	var pkCols []pkCol

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, nil, fmt.Errorf("failed to scan table_info row: %w", err)
		}
		col := core.Column{
			Name:       name,
			Type:       colType,
			Nullable:   notNull == 0 && pk == 0,
			PrimaryKey: pk > 0,
			Position:   cid + 1,
		}
		if dflt.Valid {
			col.Default = dflt.String
		}
		columns = append(columns, col)
		if pk > 0 {
			pkCols = append(pkCols, pkCol{name: name, order: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating table_info: %w", err)
	}

	sort.Slice(pkCols, func(i, j int) bool { return pkCols[i].order < pkCols[j].order })
	pkOrder := make([]string, len(pkCols))
	for i, c := range pkCols {
		pkOrder[i] = c.name
	}
	return columns, pkOrder, nil
}

func (a *Adapter) foreignKeys(ctx context.Context, table string) ([]core.ForeignKey, error) {
	rows, err := a.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign_key_list for %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var fks []core.ForeignKey
	for rows.Next() {
		var (
			id, seq                     int
			refTable, from              string
			to                          sql.NullString
			onUpdate, onDelete, matchBy string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &matchBy); err != nil {
			return nil, fmt.Errorf("failed to scan foreign_key_list row: %w", err)
		}
		refColumn := "id"
		if to.Valid && to.String != "" {
			refColumn = to.String
		}
		fks = append(fks, core.ForeignKey{
			Column:     from,
			References: refTable + "." + refColumn,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign_key_list: %w", err)
	}
	return fks, nil
}

// Tables lists the user tables in the database.
func (a *Adapter) Tables(ctx context.Context) ([]string, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	rows, err := a.DB.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
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
