package deebase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

type user struct {
	ID    int64  `db:"id,omitempty"`
	Name  string `db:"name"`
	Email string
	Admin bool   `db:"is_admin"`
	Note  *string
}

type tagged struct {
	Kept     string `db:"kept"`
	Excluded string `db:"-"`
	Implicit string `db:",omitempty"`
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Name", "name"},
		{"AuthorID", "author_id"},
		{"CreatedAt", "created_at"},
		{"HTTPStatus", "http_status"},
		{"ID", "id"},
		{"A", "a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, snakeCase(tt.in), tt.in)
	}
}

func TestFromInput(t *testing.T) {
	t.Run("map is copied", func(t *testing.T) {
		in := core.Record{"id": 1, "name": "ada"}
		out, err := fromInput(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)

		out["name"] = "changed"
		assert.Equal(t, "ada", in["name"])
	})

	t.Run("struct flattens via tags", func(t *testing.T) {
		out, err := fromInput(user{ID: 7, Name: "ada", Email: "a@b.c", Admin: true})
		require.NoError(t, err)
		assert.Equal(t, core.Record{
			"id":       int64(7),
			"name":     "ada",
			"email":    "a@b.c",
			"is_admin": true,
			"note":     nil,
		}, out)
	})

	t.Run("omitempty drops zero values", func(t *testing.T) {
		out, err := fromInput(user{Name: "ada"})
		require.NoError(t, err)
		_, hasID := out["id"]
		assert.False(t, hasID)
	})

	t.Run("pointer to struct", func(t *testing.T) {
		out, err := fromInput(&user{Name: "ada"})
		require.NoError(t, err)
		assert.Equal(t, "ada", out["name"])
	})

	t.Run("nil pointer field maps to nil", func(t *testing.T) {
		out, err := fromInput(user{Name: "ada"})
		require.NoError(t, err)
		v, ok := out["note"]
		assert.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("dash tag excludes, empty tag name falls back", func(t *testing.T) {
		out, err := fromInput(tagged{Kept: "k", Excluded: "x", Implicit: "i"})
		require.NoError(t, err)
		assert.Equal(t, core.Record{"kept": "k", "implicit": "i"}, out)
	})

	t.Run("nil rejected", func(t *testing.T) {
		_, err := fromInput(nil)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("scalar rejected", func(t *testing.T) {
		_, err := fromInput(42)
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestShapeInstantiate(t *testing.T) {
	s, err := newShape(user{})
	require.NoError(t, err)

	t.Run("driver representations", func(t *testing.T) {
		out, err := s.instantiate(core.Record{
			"id":       int64(3),
			"name":     []byte("ada"),
			"email":    "a@b.c",
			"is_admin": int64(1),
			"note":     "hi",
		})
		require.NoError(t, err)
		u, ok := out.(*user)
		require.True(t, ok)
		assert.Equal(t, int64(3), u.ID)
		assert.Equal(t, "ada", u.Name)
		assert.True(t, u.Admin)
		require.NotNil(t, u.Note)
		assert.Equal(t, "hi", *u.Note)
	})

	t.Run("null maps to zero value", func(t *testing.T) {
		out, err := s.instantiate(core.Record{"name": nil, "note": nil})
		require.NoError(t, err)
		u := out.(*user)
		assert.Empty(t, u.Name)
		assert.Nil(t, u.Note)
	})

	t.Run("extra columns dropped", func(t *testing.T) {
		out, err := s.instantiate(core.Record{"name": "ada", "unknown": 1})
		require.NoError(t, err)
		assert.Equal(t, "ada", out.(*user).Name)
	})

	t.Run("incompatible value errors", func(t *testing.T) {
		_, err := s.instantiate(core.Record{"id": "not-a-number"})
		assert.Error(t, err)
	})
}

func TestNewShape(t *testing.T) {
	_, err := newShape(&user{})
	assert.NoError(t, err)

	_, err = newShape(42)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = newShape(nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestEqualValue(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"int vs int64", 5, int64(5), true},
		{"uint64 vs int64", uint64(5), int64(5), true},
		{"huge uint64 vs wrapped negative", uint64(math.MaxInt64) + 1, int64(math.MinInt64), false},
		{"float32 vs float64", float32(1.5), 1.5, true},
		{"bytes vs string", []byte("x"), "x", true},
		{"bool vs sqlite int", true, int64(1), true},
		{"mismatch", 5, 6, false},
		{"string vs int", "5", 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, equalValue(tt.a, tt.b))
		})
	}
}
