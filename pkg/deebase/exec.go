package deebase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/rahulcredcore/deebase-sub000/pkg/adapter"
	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

// SelectOptions controls a Select or SelectKeyed call.
type SelectOptions struct {
	// Where holds equality conditions applied on top of the handle's
	// filter predicates.
	Where map[string]any

	// Limit caps the number of returned rows when > 0.
	Limit int
}

// stmt accumulates SQL text and arguments, numbering placeholders in the
// adapter's dialect.
type stmt struct {
	b    strings.Builder
	args []any
	ph   func(int) string
}

func (t *Table) newStmt() *stmt {
	return &stmt{ph: t.db.adapter.Placeholder}
}

func (s *stmt) write(text string) { s.b.WriteString(text) }

func (s *stmt) arg(v any) {
	s.args = append(s.args, v)
	s.b.WriteString(s.ph(len(s.args)))
}

func (s *stmt) sql() string { return s.b.String() }

// cond is one equality condition in declared order.
type cond struct {
	col string
	val any
}

func quoteIdent(name string) string { return `"` + name + `"` }

// sortedColumns returns map keys in sorted order so generated statements
// are deterministic.
func sortedColumns(m map[string]any) []string {
	cols := make([]string, 0, len(m))
	for col := range m {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func (t *Table) validateColumns(m map[string]any) error {
	for _, col := range sortedColumns(m) {
		if !t.def.HasColumn(col) {
			return &core.SchemaError{Table: t.def.Name, Column: col}
		}
	}
	return nil
}

// keyColumns returns the primary-key columns, falling back to the first
// declared column for handles without one (views).
func (t *Table) keyColumns() []string {
	if len(t.def.PrimaryKey) > 0 {
		return t.def.PrimaryKey
	}
	if len(t.def.Columns) > 0 {
		return []string{t.def.Columns[0].Name}
	}
	return nil
}

// normalizeKey turns a caller-supplied key (scalar, []any, or core.Key)
// into an ordered tuple matching the declared primary-key column order.
func (t *Table) normalizeKey(key any) (core.Key, error) {
	kcols := t.keyColumns()

	var vals core.Key
	switch k := key.(type) {
	case core.Key:
		vals = k
	case []any:
		vals = core.Key(k)
	default:
		if len(kcols) > 1 {
			return nil, &core.ValidationError{
				Table: t.def.Name,
				Field: "primary_key",
				Value: key,
				Msg:   fmt.Sprintf("composite primary key requires an ordered tuple, got %T", key),
			}
		}
		vals = core.Key{key}
	}

	if len(vals) != len(kcols) {
		return nil, &core.ValidationError{
			Table: t.def.Name,
			Field: "primary_key",
			Msg:   fmt.Sprintf("primary key mismatch: expected %d values, got %d", len(kcols), len(vals)),
		}
	}
	return vals, nil
}

// filterConds returns the handle's filter predicates as ordered conditions.
func (t *Table) filterConds() []cond {
	conds := make([]cond, 0, len(t.filters))
	for _, col := range sortedColumns(t.filters) {
		conds = append(conds, cond{col: col, val: t.filters[col]})
	}
	return conds
}

// buildSelect assembles a SELECT over the declared columns with the given
// conditions and limit.
func (t *Table) buildSelect(conds []cond, limit int) *stmt {
	s := t.newStmt()
	s.write("SELECT ")
	for i, name := range t.def.ColumnNames() {
		if i > 0 {
			s.write(", ")
		}
		s.write(quoteIdent(name))
	}
	s.write(" FROM ")
	s.write(quoteIdent(t.def.Name))
	writeWhere(s, conds)
	if limit > 0 {
		s.write(fmt.Sprintf(" LIMIT %d", limit))
	}
	return s
}

func writeWhere(s *stmt, conds []cond) {
	for i, c := range conds {
		if i == 0 {
			s.write(" WHERE ")
		} else {
			s.write(" AND ")
		}
		s.write(quoteIdent(c.col))
		if c.val == nil {
			s.write(" IS NULL")
			continue
		}
		s.write(" = ")
		s.arg(c.val)
	}
}

// getRow fetches a single row by key through q, applying the handle's
// filter predicates. Returns (nil, nil) when no row matches.
func (t *Table) getRow(ctx context.Context, q adapter.DBTX, key core.Key) (core.Record, error) {
	kcols := t.keyColumns()
	conds := make([]cond, 0, len(kcols)+len(t.filters))
	for i, col := range kcols {
		conds = append(conds, cond{col: col, val: key[i]})
	}
	conds = append(conds, t.filterConds()...)

	s := t.buildSelect(conds, 1)
	rows, err := q.QueryContext(ctx, s.sql(), s.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %q: %w", t.def.Name, err)
	}
	return core.ScanRecord(rows)
}

// Select returns the records matching opts, in the handle's bound shape.
// The handle's filter predicates always apply. The result is never nil.
func (t *Table) Select(ctx context.Context, opts SelectOptions) ([]any, error) {
	recs, err := t.selectRecords(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(recs))
	for _, rec := range recs {
		shaped, err := t.toOutput(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, shaped)
	}
	return out, nil
}

// SelectKeyed is Select with each record paired with its extracted key:
// scalar for single-column primary keys, an ordered tuple for composite
// ones.
func (t *Table) SelectKeyed(ctx context.Context, opts SelectOptions) ([]core.Keyed, error) {
	recs, err := t.selectRecords(ctx, opts)
	if err != nil {
		return nil, err
	}
	kcols := t.keyColumns()
	out := make([]core.Keyed, 0, len(recs))
	for _, rec := range recs {
		key := make(core.Key, len(kcols))
		for i, col := range kcols {
			key[i] = rec[col]
		}
		shaped, err := t.toOutput(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, core.Keyed{Key: key, Record: shaped})
	}
	return out, nil
}

func (t *Table) selectRecords(ctx context.Context, opts SelectOptions) ([]core.Record, error) {
	if err := t.validateColumns(opts.Where); err != nil {
		return nil, err
	}
	conds := make([]cond, 0, len(opts.Where)+len(t.filters))
	for _, col := range sortedColumns(opts.Where) {
		conds = append(conds, cond{col: col, val: opts.Where[col]})
	}
	conds = append(conds, t.filterConds()...)

	s := t.buildSelect(conds, opts.Limit)
	t.logger.Debug("select", slog.String("sql", s.sql()), slog.String("tx", sessionID(ctx)))

	rows, err := t.db.querier(ctx).QueryContext(ctx, s.sql(), s.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %q: %w", t.def.Name, err)
	}
	return core.ScanRecords(rows)
}

// Get fetches a single record by primary key. Composite keys are ordered
// tuples matching the declared primary-key column order. Returns NotFound
// when no row matches the key and the handle's filter predicates.
func (t *Table) Get(ctx context.Context, key any) (any, error) {
	k, err := t.normalizeKey(key)
	if err != nil {
		return nil, err
	}
	row, err := t.getRow(ctx, t.db.querier(ctx), k)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &core.NotFoundError{Table: t.def.Name, Filters: t.keyFilters(k)}
	}
	return t.toOutput(row)
}

func (t *Table) keyFilters(key core.Key) map[string]any {
	filters := t.Filters()
	for i, col := range t.keyColumns() {
		filters[col] = key[i]
	}
	return filters
}

// Lookup returns a single record matching the given equality conditions.
// When multiple rows qualify, the first match is returned with no
// ambiguity signal; that is the documented policy.
func (t *Table) Lookup(ctx context.Context, conditions map[string]any) (any, error) {
	if len(conditions) == 0 {
		return nil, &core.ValidationError{
			Table: t.def.Name,
			Msg:   "lookup requires at least one condition",
		}
	}
	if err := t.validateColumns(conditions); err != nil {
		return nil, err
	}

	conds := make([]cond, 0, len(conditions)+len(t.filters))
	for _, col := range sortedColumns(conditions) {
		conds = append(conds, cond{col: col, val: conditions[col]})
	}
	conds = append(conds, t.filterConds()...)

	s := t.buildSelect(conds, 1)
	rows, err := t.db.querier(ctx).QueryContext(ctx, s.sql(), s.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %q: %w", t.def.Name, err)
	}
	row, err := core.ScanRecord(rows)
	if err != nil {
		return nil, err
	}
	if row == nil {
		filters := t.Filters()
		for col, val := range conditions {
			filters[col] = val
		}
		return nil, &core.NotFoundError{Table: t.def.Name, Filters: filters}
	}
	return t.toOutput(row)
}

// Insert writes a record and returns it in the handle's bound shape, with
// engine-generated values (auto-increment keys, server defaults) captured
// by re-reading the row inside the same unit-of-work.
//
// Values conflicting with an active filter predicate are rejected as a
// validation failure before reaching the backend; absent filter columns
// are injected with the predicate value. A composite primary key with more
// than one generated column is not supported: at most one key column may
// be absent from the input.
func (t *Table) Insert(ctx context.Context, record any) (any, error) {
	data, err := t.writeData(record)
	if err != nil {
		return nil, err
	}

	for _, col := range t.def.Columns {
		if col.DefaultFunc == nil {
			continue
		}
		if v, ok := data[col.Name]; !ok || v == nil {
			data[col.Name] = col.DefaultFunc()
		}
	}

	pk := t.def.PrimaryKey
	var generated string
	for _, col := range pk {
		if v, ok := data[col]; !ok || v == nil {
			if generated != "" {
				return nil, &core.ValidationError{
					Table: t.def.Name,
					Field: col,
					Msg:   "composite primary key with more than one generated column is not supported",
				}
			}
			generated = col
			delete(data, col)
		}
	}

	cols := sortedColumns(data)
	s := t.newStmt()
	s.write("INSERT INTO ")
	s.write(quoteIdent(t.def.Name))
	if len(cols) == 0 {
		s.write(" DEFAULT VALUES")
	} else {
		s.write(" (")
		for i, col := range cols {
			if i > 0 {
				s.write(", ")
			}
			s.write(quoteIdent(col))
		}
		s.write(") VALUES (")
		for i, col := range cols {
			if i > 0 {
				s.write(", ")
			}
			s.arg(data[col])
		}
		s.write(")")
	}
	if generated != "" {
		s.write(" RETURNING ")
		s.write(quoteIdent(generated))
	}

	t.logger.Debug("insert", slog.String("sql", s.sql()), slog.String("tx", sessionID(ctx)))

	var out any
	err = t.db.withUnit(ctx, func(q adapter.DBTX) error {
		if generated != "" {
			var gen any
			if err := q.QueryRowContext(ctx, s.sql(), s.args...).Scan(&gen); err != nil {
				return t.db.adapter.ClassifyError(t.def.Name, err)
			}
			data[generated] = gen
		} else {
			if _, err := q.ExecContext(ctx, s.sql(), s.args...); err != nil {
				return t.db.adapter.ClassifyError(t.def.Name, err)
			}
		}

		if len(pk) == 0 {
			// No key to re-read by; return what was written.
			shaped, err := t.toOutput(data)
			if err != nil {
				return err
			}
			out = shaped
			return nil
		}

		key := make(core.Key, len(pk))
		for i, col := range pk {
			key[i] = data[col]
		}
		row, err := t.getRow(ctx, q, key)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("table %q: failed to re-read inserted row %v", t.def.Name, key)
		}
		shaped, err := t.toOutput(row)
		if err != nil {
			return err
		}
		out = shaped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the row addressed by the record's primary key and
// returns the updated row. Fails with a validation error when a key column
// is missing from the record, and with NotFound when no row matches the
// key within the handle's filter scope.
func (t *Table) Update(ctx context.Context, record any) (any, error) {
	data, err := t.writeData(record)
	if err != nil {
		return nil, err
	}

	pk := t.def.PrimaryKey
	if len(pk) == 0 {
		return nil, &core.ValidationError{
			Table: t.def.Name,
			Msg:   "cannot update a table without a primary key",
		}
	}
	key := make(core.Key, len(pk))
	pkSet := make(map[string]bool, len(pk))
	for i, col := range pk {
		v, ok := data[col]
		if !ok || v == nil {
			return nil, &core.ValidationError{
				Table: t.def.Name,
				Field: col,
				Msg:   fmt.Sprintf("primary key column %q missing from record", col),
			}
		}
		key[i] = v
		pkSet[col] = true
	}

	var setCols []string
	for _, col := range sortedColumns(data) {
		if !pkSet[col] {
			setCols = append(setCols, col)
		}
	}
	if len(setCols) == 0 {
		return nil, &core.ValidationError{
			Table: t.def.Name,
			Msg:   "record has no non-key columns to update",
		}
	}

	s := t.newStmt()
	s.write("UPDATE ")
	s.write(quoteIdent(t.def.Name))
	s.write(" SET ")
	for i, col := range setCols {
		if i > 0 {
			s.write(", ")
		}
		s.write(quoteIdent(col))
		s.write(" = ")
		s.arg(data[col])
	}
	conds := make([]cond, 0, len(pk)+len(t.filters))
	for i, col := range pk {
		conds = append(conds, cond{col: col, val: key[i]})
	}
	conds = append(conds, t.filterConds()...)
	writeWhere(s, conds)

	t.logger.Debug("update", slog.String("sql", s.sql()), slog.String("tx", sessionID(ctx)))

	var out any
	err = t.db.withUnit(ctx, func(q adapter.DBTX) error {
		res, err := q.ExecContext(ctx, s.sql(), s.args...)
		if err != nil {
			return t.db.adapter.ClassifyError(t.def.Name, err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return &core.NotFoundError{Table: t.def.Name, Filters: t.keyFilters(key)}
		}

		row, err := t.getRow(ctx, q, key)
		if err != nil {
			return err
		}
		if row == nil {
			return &core.NotFoundError{Table: t.def.Name, Filters: t.keyFilters(key)}
		}
		shaped, err := t.toOutput(row)
		if err != nil {
			return err
		}
		out = shaped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the row addressed by key. Fails with NotFound when no row
// matches the key within the handle's filter scope.
func (t *Table) Delete(ctx context.Context, key any) error {
	k, err := t.normalizeKey(key)
	if err != nil {
		return err
	}

	kcols := t.keyColumns()
	s := t.newStmt()
	s.write("DELETE FROM ")
	s.write(quoteIdent(t.def.Name))
	conds := make([]cond, 0, len(kcols)+len(t.filters))
	for i, col := range kcols {
		conds = append(conds, cond{col: col, val: k[i]})
	}
	conds = append(conds, t.filterConds()...)
	writeWhere(s, conds)

	t.logger.Debug("delete", slog.String("sql", s.sql()), slog.String("tx", sessionID(ctx)))

	return t.db.withUnit(ctx, func(q adapter.DBTX) error {
		res, err := q.ExecContext(ctx, s.sql(), s.args...)
		if err != nil {
			return t.db.adapter.ClassifyError(t.def.Name, err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return &core.NotFoundError{Table: t.def.Name, Filters: t.keyFilters(k)}
		}
		return nil
	})
}

// Upsert inserts the record when it carries no complete primary key,
// otherwise selects by key and updates when the row exists, inserting
// when it does not.
func (t *Table) Upsert(ctx context.Context, record any) (any, error) {
	data, err := fromInput(record)
	if err != nil {
		return nil, err
	}

	pk := t.def.PrimaryKey
	if len(pk) == 0 {
		return t.Insert(ctx, record)
	}
	key := make(core.Key, len(pk))
	for i, col := range pk {
		v, ok := data[col]
		if !ok || v == nil {
			return t.Insert(ctx, record)
		}
		key[i] = v
	}

	row, err := t.getRow(ctx, t.db.querier(ctx), key)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return t.Update(ctx, record)
	}
	return t.Insert(ctx, record)
}

// writeData converts a write input to a generic map, rejects undeclared
// columns, verifies it against the active filter predicates, and injects
// the predicate values.
func (t *Table) writeData(record any) (core.Record, error) {
	data, err := fromInput(record)
	if err != nil {
		return nil, err
	}
	if err := t.validateColumns(data); err != nil {
		return nil, err
	}
	for _, col := range sortedColumns(t.filters) {
		want := t.filters[col]
		if got, ok := data[col]; ok && !equalValue(got, want) {
			return nil, &core.ValidationError{
				Table: t.def.Name,
				Field: col,
				Value: got,
				Msg:   fmt.Sprintf("%s=%v violates filter %s=%v", col, got, col, want),
			}
		}
		data[col] = want
	}
	return data, nil
}
