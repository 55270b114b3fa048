package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulcredcore/deebase-sub000/pkg/adapter"
	"github.com/rahulcredcore/deebase-sub000/pkg/core"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 sslmode=disable dbname=testdb user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 sslmode=require dbname=proddb user=admin",
		},
		{
			name: "defaults",
			config: adapter.Config{
				Database: "mydb",
			},
			expected: "host=localhost port=5432 sslmode=disable dbname=mydb",
		},
		{
			name: "with schema search path",
			config: adapter.Config{
				Host:     "db.example.com",
				Port:     5433,
				Database: "analytics",
				Username: "analyst",
				Schema:   "reporting",
			},
			expected: "host=db.example.com port=5433 sslmode=disable dbname=analytics user=analyst search_path=reporting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestAdapter_Registered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"))
}

func TestAdapter_Placeholder(t *testing.T) {
	adp := New(nil)
	assert.Equal(t, "postgres", adp.DialectName())
	assert.Equal(t, "$1", adp.Placeholder(1))
	assert.Equal(t, "$4", adp.Placeholder(4))
}

func TestAdapter_ClassifyError(t *testing.T) {
	tests := []struct {
		name           string
		code           string
		constraintName string
		wantConstraint string
		wantKind       error
	}{
		{
			name:           "unique violation",
			code:           "23505",
			constraintName: "users_email_key",
			wantConstraint: core.ConstraintUnique,
			wantKind:       core.ErrIntegrity,
		},
		{
			name:           "primary key violation",
			code:           "23505",
			constraintName: "users_pkey",
			wantConstraint: core.ConstraintPrimaryKey,
			wantKind:       core.ErrIntegrity,
		},
		{
			name:           "foreign key violation",
			code:           "23503",
			wantConstraint: core.ConstraintForeignKey,
			wantKind:       core.ErrIntegrity,
		},
		{
			name:           "not null violation",
			code:           "23502",
			wantConstraint: core.ConstraintNotNull,
			wantKind:       core.ErrIntegrity,
		},
		{
			name:           "check violation",
			code:           "23514",
			wantConstraint: core.ConstraintCheck,
			wantKind:       core.ErrIntegrity,
		},
		{
			name:     "other class 23",
			code:     "23001",
			wantKind: core.ErrIntegrity,
		},
		{
			name:     "connection exception",
			code:     "08006",
			wantKind: core.ErrConnection,
		},
	}

	adp := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tt.code, ConstraintName: tt.constraintName}
			got := adp.ClassifyError("users", fmt.Errorf("exec: %w", pgErr))
			require.ErrorIs(t, got, tt.wantKind)
			if tt.wantConstraint != "" {
				var ie *core.IntegrityError
				require.ErrorAs(t, got, &ie)
				assert.Equal(t, tt.wantConstraint, ie.Constraint)
			}
		})
	}

	t.Run("non-pg error untouched", func(t *testing.T) {
		err := errors.New("context deadline exceeded")
		assert.Same(t, err, adp.ClassifyError("users", err))
	})

	t.Run("unknown sqlstate untouched", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "42P01"}
		assert.Same(t, pgErr, adp.ClassifyError("users", pgErr))
	})

	assert.NoError(t, adp.ClassifyError("users", nil))
}
