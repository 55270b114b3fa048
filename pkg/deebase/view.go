package deebase

import (
	"context"

	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

// View is a read-only handle over the same metadata as a Table. Read
// operations delegate unchanged; every mutating call fails with a
// read-only violation regardless of input.
type View struct {
	table *Table
}

// Name returns the view name.
func (v *View) Name() string { return v.table.Name() }

// Columns returns the view's column metadata in position order.
func (v *View) Columns() []core.Column { return v.table.Columns() }

// Definition returns a copy of the view definition.
func (v *View) Definition() core.TableDefinition { return v.table.Definition() }

// Filter returns a new view handle with the predicates added.
func (v *View) Filter(predicates map[string]any) *View {
	return &View{table: v.table.Filter(predicates)}
}

// Bind returns a new view handle with a bound output shape.
func (v *View) Bind(prototype any) (*View, error) {
	t, err := v.table.Bind(prototype)
	if err != nil {
		return nil, err
	}
	return &View{table: t}, nil
}

// Unbind returns a new view handle emitting generic records.
func (v *View) Unbind() *View {
	return &View{table: v.table.Unbind()}
}

// Select returns the records matching opts.
func (v *View) Select(ctx context.Context, opts SelectOptions) ([]any, error) {
	return v.table.Select(ctx, opts)
}

// SelectKeyed is Select with extracted pseudo-keys. Views carry no
// declared primary key, so the first column stands in.
func (v *View) SelectKeyed(ctx context.Context, opts SelectOptions) ([]core.Keyed, error) {
	return v.table.SelectKeyed(ctx, opts)
}

// Get fetches a single row by the view's pseudo-key (first column).
func (v *View) Get(ctx context.Context, key any) (any, error) {
	return v.table.Get(ctx, key)
}

// Lookup returns a single record matching the given equality conditions.
func (v *View) Lookup(ctx context.Context, conditions map[string]any) (any, error) {
	return v.table.Lookup(ctx, conditions)
}

// Insert fails: views are read-only.
func (v *View) Insert(context.Context, any) (any, error) {
	return nil, &core.ReadOnlyError{View: v.table.Name(), Op: "insert"}
}

// Update fails: views are read-only.
func (v *View) Update(context.Context, any) (any, error) {
	return nil, &core.ReadOnlyError{View: v.table.Name(), Op: "update"}
}

// Delete fails: views are read-only.
func (v *View) Delete(context.Context, any) error {
	return &core.ReadOnlyError{View: v.table.Name(), Op: "delete"}
}

// Upsert fails: views are read-only.
func (v *View) Upsert(context.Context, any) (any, error) {
	return nil, &core.ReadOnlyError{View: v.table.Name(), Op: "upsert"}
}
