// Package schemarecon brings a relational database to the state described by
// a declarative [Target]: an ordered list of additive schema operations (add a
// column, an index, a foreign key, or create a table), each with an existence
// predicate evaluated against the database catalog.
//
// Operations whose predicate already holds are skipped, the rest are applied,
// and failures caused by a concurrent run creating the same object are
// tolerated. Once a target is fully reconciled it is recorded in a ledger
// table, and later runs return immediately.
//
// Postgres, MySQL and SQLite are supported through the [Dialect] interface.
// The package does not register any database/sql driver; import the driver
// you use (pgx/v5/stdlib, go-sql-driver/mysql or mattn/go-sqlite3) yourself.
package schemarecon

import (
	"context"
	"database/sql"
)

// Reconcile applies a single target using a [Reconciler] with default
// settings. See [Reconciler.Reconcile].
func Reconcile(ctx context.Context, db *sql.DB, dialect Dialect, target Target, logger Logger) (Result, error) {
	reconciler := NewReconciler(dialect, target)
	reconciler.Logger = logger
	return reconciler.Reconcile(ctx, db, target)
}

// Verify reports whether every operation of target is already satisfied.
// See [Reconciler.Verify].
func Verify(ctx context.Context, db *sql.DB, dialect Dialect, target Target, logger Logger) (bool, error) {
	reconciler := NewReconciler(dialect, target)
	reconciler.Logger = logger
	return reconciler.Verify(ctx, db, target)
}

// Plan returns the operations of target that a reconcile would apply. See
// [Reconciler.Plan].
func Plan(ctx context.Context, db *sql.DB, dialect Dialect, target Target, logger Logger) ([]Operation, error) {
	reconciler := NewReconciler(dialect, target)
	reconciler.Logger = logger
	return reconciler.Plan(ctx, db, target)
}

// Applied returns the entries of the default ledger table. See
// [Reconciler.Applied].
func Applied(ctx context.Context, db *sql.DB, dialect Dialect, logger Logger) ([]LedgerEntry, error) {
	reconciler := NewReconciler(dialect)
	reconciler.Logger = logger
	return reconciler.Applied(ctx, db)
}
