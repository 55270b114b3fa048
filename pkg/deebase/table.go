package deebase

import (
	"log/slog"

	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

// Table is the schema handle for one database table: metadata plus the
// record operations that run against it. A Table value is immutable;
// Filter and Bind return new handles and never mutate the source, so a
// handle can be shared freely across call chains.
type Table struct {
	db      *Database
	def     *core.TableDefinition
	filters map[string]any
	shape   *shape
	logger  *slog.Logger
}

func newTable(db *Database, def *core.TableDefinition) *Table {
	return &Table{
		db:     db,
		def:    def,
		logger: db.logger.With(slog.String("table", def.Name)),
	}
}

// Name returns the table name.
func (t *Table) Name() string { return t.def.Name }

// Columns returns the declared column metadata in position order.
func (t *Table) Columns() []core.Column {
	out := make([]core.Column, len(t.def.Columns))
	copy(out, t.def.Columns)
	return out
}

// PrimaryKey returns the primary-key column names in declared order.
func (t *Table) PrimaryKey() []string {
	out := make([]string, len(t.def.PrimaryKey))
	copy(out, t.def.PrimaryKey)
	return out
}

// ForeignKeys returns the foreign-key definitions for this table.
func (t *Table) ForeignKeys() []core.ForeignKey {
	out := make([]core.ForeignKey, len(t.def.ForeignKeys))
	copy(out, t.def.ForeignKeys)
	return out
}

// Definition returns a copy of the full table definition, for external
// DDL and code-generation tooling.
func (t *Table) Definition() core.TableDefinition {
	return core.TableDefinition{
		Name:        t.def.Name,
		Columns:     t.Columns(),
		PrimaryKey:  t.PrimaryKey(),
		ForeignKeys: t.ForeignKeys(),
	}
}

// Filters returns the active filter predicates of this handle.
func (t *Table) Filters() map[string]any {
	out := make(map[string]any, len(t.filters))
	for k, v := range t.filters {
		out[k] = v
	}
	return out
}

func (t *Table) clone() *Table {
	c := *t
	c.filters = t.Filters()
	return &c
}

// Filter returns a new handle with the given equality predicates added to
// the active filter set. Every operation performed through the returned
// handle applies them: reads as extra WHERE conditions, writes by
// injecting the values and scoping update/delete. The receiver is left
// unchanged.
func (t *Table) Filter(predicates map[string]any) *Table {
	c := t.clone()
	for col, val := range predicates {
		c.filters[col] = val
	}
	return c
}

// Bind returns a new handle whose outputs are instances of the prototype's
// struct type (as pointers) instead of generic records. The bound shape is
// sticky: every subsequent output from the returned handle uses it until
// changed. Inputs may mix shapes freely regardless of the bound output.
func (t *Table) Bind(prototype any) (*Table, error) {
	s, err := newShape(prototype)
	if err != nil {
		return nil, err
	}
	c := t.clone()
	c.shape = s
	return c, nil
}

// Unbind returns a new handle emitting generic records.
func (t *Table) Unbind() *Table {
	c := t.clone()
	c.shape = nil
	return c
}

// toOutput converts a materialized row into this handle's bound shape.
func (t *Table) toOutput(rec core.Record) (any, error) {
	if t.shape == nil {
		return rec, nil
	}
	return t.shape.instantiate(rec)
}
