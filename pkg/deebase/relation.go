package deebase

import (
	"context"
	"fmt"

	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

// RelationFunc navigates one declared foreign-key edge from a record to
// its parent.
type RelationFunc func(ctx context.Context, record any) (any, error)

// Parent resolves the foreign-key edge declared on fkColumn for the given
// record and fetches the referenced row. Each navigation is one query; no
// eager loading is performed.
//
// A nil foreign-key value returns (nil, nil): nullable foreign keys are a
// policy, not an error. A non-nil value with no matching parent row (a
// dangling foreign key) also returns (nil, nil). The target handle is
// resolved through the database cache, so the result follows the cached
// handle's bound shape; use Database.Install to cache a bound handle when
// typed parents are wanted.
func (t *Table) Parent(ctx context.Context, record any, fkColumn string) (any, error) {
	if !t.def.HasColumn(fkColumn) {
		return nil, &core.SchemaError{Table: t.def.Name, Column: fkColumn}
	}
	fk, ok := t.def.ForeignKeyFor(fkColumn)
	if !ok {
		return nil, &core.ValidationError{
			Table: t.def.Name,
			Field: fkColumn,
			Msg:   fmt.Sprintf("column %q is not declared as a foreign key", fkColumn),
		}
	}

	data, err := fromInput(record)
	if err != nil {
		return nil, err
	}
	value, ok := data[fkColumn]
	if !ok || value == nil {
		return nil, nil
	}

	target, err := t.db.tableForRef(ctx, fk.RefTable())
	if err != nil {
		return nil, err
	}

	// Fetch by the referenced column rather than the target's primary key:
	// a foreign key may reference any unique column.
	s := target.buildSelect([]cond{{col: fk.RefColumn(), val: value}}, 1)
	rows, err := t.db.querier(ctx).QueryContext(ctx, s.sql(), s.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %q: %w", target.def.Name, err)
	}
	row, err := core.ScanRecord(rows)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return target.toOutput(row)
}

// Children fetches the rows of child whose fkColumn equals this record's
// primary-key value. child is a *Table, *View, or table name resolved
// through the database handle cache. The result is a possibly empty,
// never nil slice in the child handle's bound shape.
func (t *Table) Children(ctx context.Context, record any, child any, fkColumn string) ([]any, error) {
	childTable, err := t.db.resolveChild(ctx, child)
	if err != nil {
		return nil, err
	}

	pk := t.def.PrimaryKey
	if len(pk) != 1 {
		return nil, &core.ValidationError{
			Table: t.def.Name,
			Msg:   fmt.Sprintf("child navigation requires a single-column primary key, table has %d", len(pk)),
		}
	}

	data, err := fromInput(record)
	if err != nil {
		return nil, err
	}
	value, ok := data[pk[0]]
	if !ok || value == nil {
		return nil, &core.ValidationError{
			Table: t.def.Name,
			Field: pk[0],
			Msg:   fmt.Sprintf("primary key column %q missing from record", pk[0]),
		}
	}

	return childTable.Select(ctx, SelectOptions{Where: map[string]any{fkColumn: value}})
}

// Relation is the convenience form of Parent:
//
//	author, err := posts.Relation("author_id")(ctx, post)
//
// is equivalent to posts.Parent(ctx, post, "author_id").
func (t *Table) Relation(fkColumn string) RelationFunc {
	return func(ctx context.Context, record any) (any, error) {
		return t.Parent(ctx, record, fkColumn)
	}
}

func (d *Database) resolveChild(ctx context.Context, child any) (*Table, error) {
	switch c := child.(type) {
	case *Table:
		return c, nil
	case *View:
		return c.table, nil
	case string:
		return d.tableForRef(ctx, c)
	}
	return nil, &core.ValidationError{
		Msg: fmt.Sprintf("child must be a *Table, *View, or table name, got %T", child),
	}
}
