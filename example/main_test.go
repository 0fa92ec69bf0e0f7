package main

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"golang.org/x/exp/slog"

	"github.com/optyshop/schemarecon"
	"github.com/optyshop/schemarecon/internal/targets"
	"github.com/optyshop/schemarecon/internal/testdb"
	"github.com/optyshop/schemarecon/internal/withdb"
)

const storefront = `
	CREATE TABLE categories (id SERIAL PRIMARY KEY, name TEXT NOT NULL);
	CREATE TABLE banners (id SERIAL PRIMARY KEY, title TEXT NOT NULL);
	CREATE TABLE brands (id SERIAL PRIMARY KEY, name TEXT NOT NULL);
	CREATE TABLE products (id SERIAL PRIMARY KEY, name TEXT NOT NULL);
`

// Restarting the service reconciles again without changing anything.
func TestReconcileSchemaOnStartup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	err := withdb.WithDB(ctx, "postgres", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, storefront)
		assert.Nil(t, err)

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		assert.Nil(t, reconcileSchema(ctx, db, logger))
		check.True(t, strings.Contains(buf.String(), "add_banner_columns: 5 applied, 0 skipped"))

		buf.Reset()
		assert.Nil(t, reconcileSchema(ctx, db, logger))
		check.True(t, strings.Contains(buf.String(), "add_banner_columns: already applied"))
		check.True(t, strings.Contains(buf.String(), "create_flash_offers_tables: already applied"))

		var count int
		assert.Nil(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
		check.Equal(t, 3, count)
		return nil
	})
	assert.Nil(t, err)
}

// newDB opens a connection to a unique, fully-isolated database whose schema
// has already been reconciled. It is deleted when the test is done.
func newDB(t *testing.T) *sql.DB {
	t.Helper()
	reconciler := schemarecon.NewReconciler(schemarecon.Postgres, targets.All()...)
	reconciler.Logger = schemarecon.NewTestLogger(t)
	db := testdb.New(t, "postgres", testdb.NewMigrator(storefront, reconciler))
	assert.NotEqual(t, nil, db)
	return db
}

// A service starting against an up-to-date database only reads the ledger.
func TestStartupOnReconciledDatabase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newDB(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	assert.Nil(t, reconcileSchema(ctx, db, logger))
	for _, name := range targets.Names() {
		check.True(t, strings.Contains(buf.String(), name+": already applied"))
	}

	// the banner columns exist and have their defaults
	_, err := db.ExecContext(ctx, `INSERT INTO banners (title) VALUES ('spring sale')`)
	assert.Nil(t, err)
	var pageType string
	assert.Nil(t, db.QueryRowContext(ctx, `SELECT page_type FROM banners`).Scan(&pageType))
	check.Equal(t, "home", pageType)
}
