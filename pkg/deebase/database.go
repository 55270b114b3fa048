package deebase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rahulcredcore/deebase-sub000/internal/config"
	"github.com/rahulcredcore/deebase-sub000/pkg/adapter"
	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

// Database is the entry point of the data-access layer. It owns the
// engine binding, a cache of mounted table and view handles, and the
// transaction support shared by every handle.
type Database struct {
	adapter adapter.Adapter
	sqlDB   *sql.DB
	logger  *slog.Logger

	mu     sync.RWMutex
	tables map[string]*Table
	views  map[string]*View
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the structured logger. Defaults to a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Database) { d.logger = logger }
}

// Open connects to the database described by cfg using the registered
// adapter for cfg.Type.
func Open(ctx context.Context, cfg adapter.Config, opts ...Option) (*Database, error) {
	a, err := adapter.New(cfg.Type)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return newDatabase(a, opts...), nil
}

// OpenFromDir loads deebase.yaml from dir (walking up to the project
// root) and connects to its configured target.
func OpenFromDir(ctx context.Context, dir string, opts ...Option) (*Database, error) {
	root := config.FindProjectRoot(dir)
	if root == "" {
		return nil, fmt.Errorf("no %s found in or above %s", config.FileName, dir)
	}
	cfg, err := config.LoadFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil || cfg.Target == nil {
		return nil, fmt.Errorf("config in %s has no target", root)
	}
	if err := cfg.Target.Validate(); err != nil {
		return nil, err
	}
	return Open(ctx, cfg.Target.AdapterConfig(), opts...)
}

func newDatabase(a adapter.Adapter, opts ...Option) *Database {
	d := &Database{
		adapter: a,
		sqlDB:   a.Conn(),
		logger:  slog.New(slog.DiscardHandler),
		tables:  make(map[string]*Table),
		views:   make(map[string]*View),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Close closes the engine binding.
func (d *Database) Close() error {
	return d.adapter.Close()
}

// Adapter exposes the engine binding for external tooling.
func (d *Database) Adapter() adapter.Adapter {
	return d.adapter
}

// Mount installs a handle for an externally compiled table definition
// (declared field definitions or introspected metadata, both opaque here)
// and returns it. Mounting the same name again replaces the cached handle.
func (d *Database) Mount(def core.TableDefinition) *Table {
	t := newTable(d, &def)
	d.mu.Lock()
	d.tables[def.Name] = t
	d.mu.Unlock()
	return t
}

// MountView installs a read-only handle for a view definition.
func (d *Database) MountView(def core.TableDefinition) *View {
	def.PrimaryKey = nil
	v := &View{table: newTable(d, &def)}
	d.mu.Lock()
	d.views[def.Name] = v
	d.mu.Unlock()
	return v
}

// Install replaces the cached handle for t's table with t itself. Handles
// are immutable, so a Bind or Filter derivative only takes effect for
// relationship navigation (which resolves targets through the cache) once
// installed here.
func (d *Database) Install(t *Table) {
	d.mu.Lock()
	d.tables[t.def.Name] = t
	d.mu.Unlock()
}

// Table returns the cached handle for name.
func (d *Database) Table(name string) (*Table, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[name]
	return t, ok
}

// View returns the cached view handle for name.
func (d *Database) View(name string) (*View, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.views[name]
	return v, ok
}

// Reflect introspects every user table in the database and mounts a
// handle for each. Tables already mounted (e.g. with a bound shape) are
// left untouched.
func (d *Database) Reflect(ctx context.Context) error {
	names, err := d.adapter.Tables(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := d.Table(name); ok {
			continue
		}
		if _, err := d.ReflectTable(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// ReflectTable introspects one table and mounts its handle, returning the
// cached handle when one exists.
func (d *Database) ReflectTable(ctx context.Context, name string) (*Table, error) {
	if t, ok := d.Table(name); ok {
		return t, nil
	}
	def, err := d.adapter.TableDefinition(ctx, name)
	if err != nil {
		return nil, err
	}
	return d.Mount(*def), nil
}

// ReflectView introspects one view and mounts a read-only handle,
// returning the cached handle when one exists.
func (d *Database) ReflectView(ctx context.Context, name string) (*View, error) {
	if v, ok := d.View(name); ok {
		return v, nil
	}
	def, err := d.adapter.TableDefinition(ctx, name)
	if err != nil {
		return nil, err
	}
	return d.MountView(*def), nil
}

// tableForRef resolves a table handle for relationship navigation,
// reflecting it on demand when not mounted.
func (d *Database) tableForRef(ctx context.Context, name string) (*Table, error) {
	return d.ReflectTable(ctx, name)
}

// Query is the raw passthrough escape hatch: it executes an ad-hoc
// statement bypassing the statement executor and materializes the result
// as generic records. It participates in the ambient unit-of-work.
func (d *Database) Query(ctx context.Context, query string, args ...any) ([]core.Record, error) {
	rows, err := d.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return core.ScanRecords(rows)
}

// Exec executes an ad-hoc statement that returns no rows, bypassing the
// statement executor. It participates in the ambient unit-of-work.
func (d *Database) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := d.querier(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}
