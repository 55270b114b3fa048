package deebase

import (
	"context"
	"database/sql/driver"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulcredcore/deebase-sub000/pkg/adapter"
	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

// mockEngine binds a sqlmock pool so tests can assert the exact statements
// the executor generates.
type mockEngine struct {
	adapter.BaseSQLAdapter
}

func (m *mockEngine) Connect(context.Context, adapter.Config) error { return nil }
func (m *mockEngine) DialectName() string                           { return "mock" }
func (m *mockEngine) Placeholder(n int) string                      { return adapter.DollarPlaceholder(n) }
func (m *mockEngine) ClassifyError(_ string, err error) error       { return err }

func (m *mockEngine) TableDefinition(context.Context, string) (*core.TableDefinition, error) {
	return nil, assert.AnError
}

func (m *mockEngine) Tables(context.Context) ([]string, error) { return nil, assert.AnError }

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	eng := &mockEngine{}
	eng.DB = db
	eng.Logger = slog.New(slog.DiscardHandler)
	return newDatabase(eng), mock
}

func usersDef() core.TableDefinition {
	return core.TableDefinition{
		Name: "users",
		Columns: []core.Column{
			{Name: "id", Type: "INTEGER", PrimaryKey: true, Position: 1},
			{Name: "name", Type: "TEXT", Position: 2},
			{Name: "org", Type: "TEXT", Position: 3},
		},
		PrimaryKey: []string{"id"},
	}
}

func TestSelect_SQL(t *testing.T) {
	tests := []struct {
		name    string
		filter  map[string]any
		opts    SelectOptions
		wantSQL string
		args    []any
	}{
		{
			name:    "plain",
			wantSQL: `SELECT "id", "name", "org" FROM "users"`,
		},
		{
			name:    "where and limit",
			opts:    SelectOptions{Where: map[string]any{"name": "ada"}, Limit: 5},
			wantSQL: `SELECT "id", "name", "org" FROM "users" WHERE "name" = $1 LIMIT 5`,
			args:    []any{"ada"},
		},
		{
			name:    "filter predicates appended",
			filter:  map[string]any{"org": "acme"},
			opts:    SelectOptions{Where: map[string]any{"name": "ada"}},
			wantSQL: `SELECT "id", "name", "org" FROM "users" WHERE "name" = $1 AND "org" = $2`,
			args:    []any{"ada", "acme"},
		},
		{
			name:    "nil condition becomes IS NULL",
			opts:    SelectOptions{Where: map[string]any{"org": nil}},
			wantSQL: `SELECT "id", "name", "org" FROM "users" WHERE "org" IS NULL`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDatabase(t)
			users := db.Mount(usersDef())
			if tt.filter != nil {
				users = users.Filter(tt.filter)
			}

			drvArgs := make([]driver.Value, 0, len(tt.args))
			for _, a := range tt.args {
				drvArgs = append(drvArgs, a)
			}
			mock.ExpectQuery(tt.wantSQL).
				WithArgs(drvArgs...).
				WillReturnRows(sqlmock.NewRows([]string{"id", "name", "org"}))

			out, err := users.Select(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.NotNil(t, out)
			assert.Empty(t, out)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInsert_SQL(t *testing.T) {
	t.Run("generated key returns and re-reads", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		users := db.Mount(usersDef())

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "users" ("name", "org") VALUES ($1, $2) RETURNING "id"`).
			WithArgs("ada", "acme").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
		mock.ExpectQuery(`SELECT "id", "name", "org" FROM "users" WHERE "id" = $1 LIMIT 1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "org"}).AddRow(int64(1), "ada", "acme"))
		mock.ExpectCommit()

		out, err := users.Insert(context.Background(), core.Record{"name": "ada", "org": "acme"})
		require.NoError(t, err)
		assert.Equal(t, core.Record{"id": int64(1), "name": "ada", "org": "acme"}, out)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("explicit key skips returning", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		users := db.Mount(usersDef())

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "users" ("id", "name", "org") VALUES ($1, $2, $3)`).
			WithArgs(int64(7), "ada", "acme").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT "id", "name", "org" FROM "users" WHERE "id" = $1 LIMIT 1`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "org"}).AddRow(int64(7), "ada", "acme"))
		mock.ExpectCommit()

		_, err := users.Insert(context.Background(), core.Record{"id": int64(7), "name": "ada", "org": "acme"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filter conflict rejected before the backend", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		users := db.Mount(usersDef()).Filter(map[string]any{"org": "acme"})

		_, err := users.Insert(context.Background(), core.Record{"name": "ada", "org": "other"})
		assert.ErrorIs(t, err, core.ErrValidation)

		// An explicit nil differs from the predicate value the same way.
		_, err = users.Insert(context.Background(), core.Record{"name": "ada", "org": nil})
		assert.ErrorIs(t, err, core.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filter value injected", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		users := db.Mount(usersDef()).Filter(map[string]any{"org": "acme"})

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "users" ("name", "org") VALUES ($1, $2) RETURNING "id"`).
			WithArgs("ada", "acme").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
		mock.ExpectQuery(`SELECT "id", "name", "org" FROM "users" WHERE "id" = $1 AND "org" = $2 LIMIT 1`).
			WithArgs(int64(1), "acme").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "org"}).AddRow(int64(1), "ada", "acme"))
		mock.ExpectCommit()

		_, err := users.Insert(context.Background(), core.Record{"name": "ada"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("undeclared column rejected", func(t *testing.T) {
		db, _ := newMockDatabase(t)
		users := db.Mount(usersDef())

		_, err := users.Insert(context.Background(), core.Record{"nope": 1})
		assert.ErrorIs(t, err, core.ErrSchemaMismatch)
	})
}

func TestUpdate_SQL(t *testing.T) {
	t.Run("set non-key columns by key", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		users := db.Mount(usersDef())

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "users" SET "name" = $1, "org" = $2 WHERE "id" = $3`).
			WithArgs("ada", "acme", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT "id", "name", "org" FROM "users" WHERE "id" = $1 LIMIT 1`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "org"}).AddRow(int64(7), "ada", "acme"))
		mock.ExpectCommit()

		_, err := users.Update(context.Background(), core.Record{"id": int64(7), "name": "ada", "org": "acme"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected is not found", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		users := db.Mount(usersDef())

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "users" SET "name" = $1 WHERE "id" = $2`).
			WithArgs("ada", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := users.Update(context.Background(), core.Record{"id": int64(7), "name": "ada"})
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing key column rejected", func(t *testing.T) {
		db, _ := newMockDatabase(t)
		users := db.Mount(usersDef())

		_, err := users.Update(context.Background(), core.Record{"name": "ada"})
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestDelete_SQL(t *testing.T) {
	t.Run("by key with filter scope", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		users := db.Mount(usersDef()).Filter(map[string]any{"org": "acme"})

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "users" WHERE "id" = $1 AND "org" = $2`).
			WithArgs(int64(7), "acme").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := users.Delete(context.Background(), int64(7))
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected is not found", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		users := db.Mount(usersDef())

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "users" WHERE "id" = $1`).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := users.Delete(context.Background(), int64(7))
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNormalizeKey(t *testing.T) {
	db, _ := newMockDatabase(t)

	composite := db.Mount(core.TableDefinition{
		Name: "memberships",
		Columns: []core.Column{
			{Name: "org", Position: 1, PrimaryKey: true},
			{Name: "user_id", Position: 2, PrimaryKey: true},
		},
		PrimaryKey: []string{"org", "user_id"},
	})

	t.Run("scalar for composite key rejected", func(t *testing.T) {
		_, err := composite.normalizeKey("acme")
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("arity mismatch rejected", func(t *testing.T) {
		_, err := composite.normalizeKey(core.NewKey("acme"))
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("ordered tuple accepted", func(t *testing.T) {
		k, err := composite.normalizeKey([]any{"acme", int64(7)})
		require.NoError(t, err)
		assert.Equal(t, core.NewKey("acme", int64(7)), k)
	})

	t.Run("scalar for single-column key", func(t *testing.T) {
		users := db.Mount(usersDef())
		k, err := users.normalizeKey(int64(7))
		require.NoError(t, err)
		assert.Equal(t, core.ScalarKey(int64(7)), k)
	})
}

func TestRawPassthrough_SQL(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectQuery(`SELECT count(*) AS n FROM "users" WHERE "org" = $1`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(2)))

	recs, err := db.Query(context.Background(), `SELECT count(*) AS n FROM "users" WHERE "org" = $1`, "acme")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(2), recs[0]["n"])

	mock.ExpectExec("TRUNCATE users").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, db.Exec(context.Background(), "TRUNCATE users"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
