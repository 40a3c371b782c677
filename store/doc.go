// Package store persists goAccount accounts in SQLite (modernc.org/sqlite)
// or PostgreSQL (pgx).
//
// The schema is applied by goose from embedded migrations. Email uniqueness
// is enforced by a unique index, so concurrent Create calls for the same
// address produce exactly one row; the loser gets goAccount.ErrDuplicateEmail.
// Times are stored as Unix milliseconds.
package store
