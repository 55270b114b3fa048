package deebase

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

// The record converter makes every operation indifferent to whether the
// caller thinks in generic maps or bound struct types. Conversion is purely
// structural: field types are never validated here, so malformed values
// surface as the engine's own constraint failure.
//
// Struct fields map to columns through a `db:"name"` tag, falling back to
// the snake-cased field name. A tag of "-" excludes the field; the
// ",omitempty" option drops zero values on input, which is how generated
// columns (auto-increment keys, server defaults) are left to the engine.

// shape describes a bound struct output type: column name to field index.
type shape struct {
	typ    reflect.Type
	fields map[string]int
}

func newShape(prototype any) (*shape, error) {
	typ := reflect.TypeOf(prototype)
	if typ == nil {
		return nil, &core.ValidationError{Msg: "cannot bind a nil output shape"}
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, &core.ValidationError{
			Msg: fmt.Sprintf("cannot bind output shape %s: not a struct type", typ),
		}
	}

	fields := make(map[string]int, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _ := fieldColumn(f)
		if name == "" {
			continue
		}
		fields[name] = i
	}
	return &shape{typ: typ, fields: fields}, nil
}

// instantiate builds a pointer to a new struct of the bound type from a
// generic record, field by field, over declared columns only. Columns with
// no matching field are dropped; fields with no matching column stay zero.
func (s *shape) instantiate(rec core.Record) (any, error) {
	out := reflect.New(s.typ)
	elem := out.Elem()
	for column, idx := range s.fields {
		v, ok := rec[column]
		if !ok {
			continue
		}
		if err := assignValue(elem.Field(idx), v); err != nil {
			return nil, fmt.Errorf("column %q: %w", column, err)
		}
	}
	return out.Interface(), nil
}

// fromInput converts an input record into a generic map. Maps pass through
// (copied, so filter injection never mutates the caller's value); structs
// and pointers to structs flatten via their declared fields; anything else
// is rejected.
func fromInput(record any) (core.Record, error) {
	if record == nil {
		return nil, &core.ValidationError{Msg: "record is nil"}
	}

	if m, ok := record.(core.Record); ok {
		out := make(core.Record, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	}

	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, &core.ValidationError{Msg: "record is a nil pointer"}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, &core.ValidationError{
			Msg: fmt.Sprintf("cannot convert %T to a record", record),
		}
	}

	typ := v.Type()
	out := make(core.Record, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		name, omitempty := fieldColumn(f)
		if name == "" {
			continue
		}
		fv := v.Field(i)
		if omitempty && fv.IsZero() {
			continue
		}
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				out[name] = nil
				continue
			}
			fv = fv.Elem()
		}
		out[name] = fv.Interface()
	}
	return out, nil
}

// fieldColumn resolves the column name and omitempty option for a struct
// field. An empty name means the field is excluded.
func fieldColumn(f reflect.StructField) (name string, omitempty bool) {
	tag, ok := f.Tag.Lookup("db")
	if !ok {
		return snakeCase(f.Name), false
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "-" {
		return "", false
	}
	if name == "" {
		name = snakeCase(f.Name)
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty
}

// snakeCase converts a Go field name to its column form:
// "AuthorID" -> "author_id", "CreatedAt" -> "created_at".
func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			prevLower := i > 0 && isLower(runes[i-1])
			nextLower := i+1 < len(runes) && isLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

// assignValue sets a struct field from an engine-materialized value,
// widening the numeric representations database/sql hands back (int64 for
// every integer column, float64 for floats, []byte for text).
func assignValue(field reflect.Value, v any) error {
	if v == nil {
		field.SetZero()
		return nil
	}

	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := assignValue(elem.Elem(), v); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	val := reflect.ValueOf(v)
	switch {
	case val.Type().AssignableTo(field.Type()):
		field.Set(val)
	case field.Kind() == reflect.Bool && isIntKind(val.Kind()):
		// SQLite materializes booleans as 0/1 integers.
		field.SetBool(val.Int() != 0)
	case field.Kind() == reflect.String && val.Kind() == reflect.Slice && val.Type().Elem().Kind() == reflect.Uint8:
		field.SetString(string(val.Bytes()))
	case val.Type().ConvertibleTo(field.Type()):
		field.Set(val.Convert(field.Type()))
	default:
		return fmt.Errorf("cannot assign %T to field of type %s", v, field.Type())
	}
	return nil
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

// equalValue compares a write value against a filter-predicate value,
// normalizing the representations the engine and the caller may use for
// the same datum.
func equalValue(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		// Values past MaxInt64 have no int64 form; widening would wrap
		// negative and collide with genuine negatives.
		if n > math.MaxInt64 {
			return n
		}
		return int64(n)
	case float32:
		return float64(n)
	case []byte:
		return string(n)
	case bool:
		if n {
			return int64(1)
		}
		return int64(0)
	}
	return v
}
