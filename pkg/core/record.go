package core

import "fmt"

// Record is the generic key-value representation of a table row.
// Keys are column names; order is irrelevant.
type Record = map[string]any

// Key is an ordered primary-key value. For single-column keys it holds one
// element; for composite keys the elements follow the declared primary-key
// column order.
type Key []any

// NewKey builds a Key from the given values in order.
func NewKey(values ...any) Key {
	return Key(values)
}

// ScalarKey wraps a single value as a Key.
func ScalarKey(v any) Key {
	return Key{v}
}

// Scalar returns the single element of a one-column key, or the key itself
// when composite. Used when emitting keys to callers so scalar keys stay
// scalar.
func (k Key) Scalar() any {
	if len(k) == 1 {
		return k[0]
	}
	return k
}

// String formats the key for error messages.
func (k Key) String() string {
	if len(k) == 1 {
		return fmt.Sprintf("%v", k[0])
	}
	return fmt.Sprintf("%v", []any(k))
}

// Keyed pairs a record with its extracted primary key.
type Keyed struct {
	Key    Key
	Record any
}
