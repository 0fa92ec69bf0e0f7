package schemarecon_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/optyshop/schemarecon"
	"github.com/optyshop/schemarecon/internal/withdb"
)

func productColumns() schemarecon.Target {
	return schemarecon.Target{
		Name: "add_product_columns",
		Operations: []schemarecon.Operation{
			schemarecon.AddColumn("products", schemarecon.Column{Name: "sku", Type: "VARCHAR(64)"}),
		},
	}
}

func TestMarkApplied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := schemarecon.NewTestLogger(t)
	err := withdb.WithSQLite(ctx, func(db *sql.DB) error {
		createStorefront(ctx, t, db)
		target := bannerColumns()
		reconciler := schemarecon.NewReconciler(schemarecon.SQLite, target)
		reconciler.Logger = logger

		marked, err := reconciler.MarkApplied(ctx, db, target.Name, "does_not_exist")
		assert.Nil(t, err)
		assert.Equal(t, 1, len(marked))
		check.Equal(t, target.Name, marked[0].Name)
		check.Equal(t, target.Checksum(), marked[0].Checksum)
		check.Equal(t, 0, marked[0].AppliedSteps)

		// The ledger short-circuits even though nothing was applied.
		result, err := reconciler.Reconcile(ctx, db, target)
		assert.Nil(t, err)
		check.True(t, result.AlreadyApplied)
		ok, err := reconciler.Verify(ctx, db, target)
		assert.Nil(t, err)
		check.Equal(t, false, ok)

		// Marking twice is a no-op.
		marked, err = reconciler.MarkApplied(ctx, db, target.Name)
		assert.Nil(t, err)
		check.Equal(t, 0, len(marked))
		return nil
	})
	assert.Nil(t, err)
}

func TestMarkAllApplied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := schemarecon.NewTestLogger(t)
	err := withdb.WithSQLite(ctx, func(db *sql.DB) error {
		reconciler := schemarecon.NewReconciler(schemarecon.SQLite, bannerColumns(), productColumns())
		reconciler.Logger = logger
		marked, err := reconciler.MarkAllApplied(ctx, db)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(marked))

		applied, err := reconciler.Applied(ctx, db)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(applied))
		names := []string{applied[0].Name, applied[1].Name}
		check.In(t, "add_banner_columns", names)
		check.In(t, "add_product_columns", names)

		verrs, err := reconciler.VerifyLedger(ctx, db)
		assert.Nil(t, err)
		check.Equal(t, 0, len(verrs))
		return nil
	})
	assert.Nil(t, err)
}

func TestMarkRolledBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := schemarecon.NewTestLogger(t)
	err := withdb.WithSQLite(ctx, func(db *sql.DB) error {
		createStorefront(ctx, t, db)
		target := productColumns()
		reconciler := schemarecon.NewReconciler(schemarecon.SQLite, target)
		reconciler.Logger = logger

		// Without a ledger there is nothing to roll back.
		_, err := reconciler.MarkRolledBack(ctx, db, target.Name)
		check.Error(t, err)

		_, err = reconciler.Reconcile(ctx, db, target)
		assert.Nil(t, err)

		rolledBack, err := reconciler.MarkRolledBack(ctx, db, target.Name, "not_in_ledger")
		assert.Nil(t, err)
		assert.Equal(t, 1, len(rolledBack))
		check.Equal(t, target.Name, rolledBack[0].Name)
		check.NotEqual(t, (*time.Time)(nil), rolledBack[0].RolledBackAt)

		applied, err := reconciler.Applied(ctx, db)
		assert.Nil(t, err)
		assert.Equal(t, 1, len(applied))
		check.NotEqual(t, (*time.Time)(nil), applied[0].RolledBackAt)

		// rolling back again is a no-op
		rolledBack, err = reconciler.MarkRolledBack(ctx, db, target.Name)
		assert.Nil(t, err)
		check.Equal(t, 0, len(rolledBack))

		// The schema was not touched, so the next run skips everything and
		// revives the entry.
		result, err := reconciler.Reconcile(ctx, db, target)
		assert.Nil(t, err)
		check.Equal(t, false, result.AlreadyApplied)
		check.Equal(t, 1, len(result.Skipped))
		check.True(t, result.LedgerWritten)

		applied, err = reconciler.Applied(ctx, db)
		assert.Nil(t, err)
		assert.Equal(t, 1, len(applied))
		check.Equal(t, (*time.Time)(nil), applied[0].RolledBackAt)
		check.Equal(t, 0, applied[0].AppliedSteps)

		result, err = reconciler.Reconcile(ctx, db, target)
		assert.Nil(t, err)
		check.True(t, result.AlreadyApplied)
		return nil
	})
	assert.Nil(t, err)
}

func TestVerifyLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := schemarecon.NewTestLogger(t)
	err := withdb.WithSQLite(ctx, func(db *sql.DB) error {
		createStorefront(ctx, t, db)
		target := productColumns()
		retired := bannerColumns()
		reconciler := schemarecon.NewReconciler(schemarecon.SQLite, target, retired)
		reconciler.Logger = logger
		_, err := reconciler.ReconcileAll(ctx, db)
		assert.Nil(t, err)

		verrs, err := reconciler.VerifyLedger(ctx, db)
		assert.Nil(t, err)
		check.Equal(t, 0, len(verrs))

		// The product target has been edited since it was applied, and the
		// banner target is no longer known.
		edited := target
		edited.Operations = []schemarecon.Operation{
			schemarecon.AddColumn("products", schemarecon.Column{Name: "sku", Type: "VARCHAR(128)"}),
		}
		reconciler.Targets = []schemarecon.Target{edited}
		verrs, err = reconciler.VerifyLedger(ctx, db)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(verrs))
		for _, verr := range verrs {
			switch verr.Fields["target"] {
			case edited.Name:
				check.Equal(t, "found ledger entry with a different checksum", verr.Message)
				check.Equal(t, target.Checksum(), verr.Fields["checksum_from_db"].(string))
				check.Equal(t, edited.Checksum(), verr.Fields["calculated_checksum"].(string))
			case retired.Name:
				check.Equal(t, "found ledger entry for an unknown target", verr.Message)
			default:
				t.Errorf("unexpected verification error: %s %v", verr.Message, verr.Fields)
			}
		}

		// Rolled back entries are not verified.
		_, err = reconciler.MarkRolledBack(ctx, db, retired.Name)
		assert.Nil(t, err)
		verrs, err = reconciler.VerifyLedger(ctx, db)
		assert.Nil(t, err)
		check.Equal(t, 1, len(verrs))
		return nil
	})
	assert.Nil(t, err)
}
