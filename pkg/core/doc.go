// Package core defines the shared types of the deebase data-access layer:
// records and keys, table metadata (columns, primary keys, foreign keys),
// the error taxonomy callers branch on, and row materialization helpers.
//
// The package has no dependencies on the adapter or table layers so that
// external tooling (schema compilers, code generators) can consume the
// metadata types directly.
package core
