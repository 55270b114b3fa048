package core

import (
	"database/sql"
	"fmt"
)

// ScanRecords materializes all remaining rows as generic records keyed by
// column name, then closes the rows.
func ScanRecords(rows *sql.Rows) ([]Record, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// ScanRecord materializes a single row from rows positioned before the
// first row. Returns (nil, nil) when no row is present; the caller decides
// whether absence is an error.
func ScanRecord(rows *sql.Rows) (Record, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating rows: %w", err)
		}
		return nil, nil
	}
	return scanRecord(rows, cols)
}

func scanRecord(rows *sql.Rows, cols []string) (Record, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	rec := make(Record, len(cols))
	for i, name := range cols {
		v := values[i]
		// Drivers hand back []byte for text columns; normalize to string
		// so records compare and convert predictably.
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		rec[name] = v
	}
	return rec, nil
}
