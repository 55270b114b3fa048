package core

import "strings"

// Column describes one column of a table or view.
type Column struct {
	// Name is the column name.
	Name string

	// Type is the engine-reported data type (informational).
	Type string

	// Nullable indicates whether the column allows NULL values.
	Nullable bool

	// PrimaryKey indicates whether the column is part of the primary key.
	PrimaryKey bool

	// Position is the ordinal position of the column in the table.
	Position int

	// Default is an immutable scalar default pushed into the schema by
	// external DDL tooling. Opaque to this layer.
	Default any

	// DefaultFunc is a converter-layer default evaluated at insert time
	// when the column is absent from the input record. Mutable defaults
	// (timestamps, generated tokens) live here, never in the schema.
	DefaultFunc func() any
}

// ForeignKey maps a local column to a referenced "table.column". It is the
// single source feeding both constraint declaration (external tooling) and
// relationship navigation. Declared and introspected foreign keys are
// unified into the same definition at handle construction.
type ForeignKey struct {
	Column     string
	References string
}

// RefTable returns the referenced table name.
func (fk ForeignKey) RefTable() string {
	table, _, _ := strings.Cut(fk.References, ".")
	return table
}

// RefColumn returns the referenced column name, defaulting to "id" when
// the reference names only a table.
func (fk ForeignKey) RefColumn() string {
	_, column, ok := strings.Cut(fk.References, ".")
	if !ok || column == "" {
		return "id"
	}
	return column
}

// TableDefinition is the pre-populated metadata a schema compiler or
// engine introspection supplies for one table or view. It is treated as an
// opaque input: this layer never derives columns or constraints itself.
type TableDefinition struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
}

// Column returns the named column, if declared.
func (d TableDefinition) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the named column is declared.
func (d TableDefinition) HasColumn(name string) bool {
	_, ok := d.Column(name)
	return ok
}

// ColumnNames returns the declared column names in position order.
func (d TableDefinition) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// ForeignKeyFor returns the foreign-key definition for the given local
// column, if the column is declared as a foreign key.
func (d TableDefinition) ForeignKeyFor(column string) (ForeignKey, bool) {
	for _, fk := range d.ForeignKeys {
		if fk.Column == column {
			return fk, true
		}
	}
	return ForeignKey{}, false
}
