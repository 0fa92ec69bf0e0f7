// testdb hands out isolated postgres databases whose schema has already been
// reconciled, using pgtestdb template databases. The template is built once
// per distinct base schema and set of targets; every test gets a cheap clone.
//
// For more information, see https://github.com/peterldowns/pgtestdb
package testdb

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/peterldowns/pgtestdb"

	"github.com/optyshop/schemarecon"
)

// Migrator is a pgtestdb.Migrator that runs Base (plain SQL creating the
// tables the targets extend) and then reconciles every target of Reconciler.
type Migrator struct {
	Base       string
	Reconciler *schemarecon.Reconciler
}

func NewMigrator(base string, reconciler *schemarecon.Reconciler) *Migrator {
	return &Migrator{Base: base, Reconciler: reconciler}
}

// Hash identifies the template. It changes whenever the base schema, the
// ledger table or any target changes.
func (m *Migrator) Hash() (string, error) {
	h := md5.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", m.Base, m.Reconciler.Dialect.Name(), m.Reconciler.TableName)
	for _, target := range m.Reconciler.Targets {
		fmt.Fprintf(h, "\x00%s:%s", target.Name, target.Checksum())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Prepare is a no-op.
func (m *Migrator) Prepare(context.Context, *sql.DB, pgtestdb.Config) error {
	return nil
}

func (m *Migrator) Migrate(ctx context.Context, db *sql.DB, _ pgtestdb.Config) error {
	if m.Base != "" {
		if _, err := db.ExecContext(ctx, m.Base); err != nil {
			return fmt.Errorf("base schema: %w", err)
		}
	}
	if _, err := m.Reconciler.ReconcileAll(ctx, db); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	return nil
}

// Verify checks that every target is satisfied and recorded in the ledger.
func (m *Migrator) Verify(ctx context.Context, db *sql.DB, _ pgtestdb.Config) error {
	for _, target := range m.Reconciler.Targets {
		ok, err := m.Reconciler.Verify(ctx, db, target)
		if err != nil {
			return fmt.Errorf("verify %s: %w", target.Name, err)
		}
		if !ok {
			return fmt.Errorf("target %s is not satisfied", target.Name)
		}
	}
	verrs, err := m.Reconciler.VerifyLedger(ctx, db)
	if err != nil {
		return err
	}
	if len(verrs) != 0 {
		return fmt.Errorf("ledger: %s %v", verrs[0].Message, verrs[0].Fields)
	}
	return nil
}

// Config points at the local postgres server from docker-compose.yml.
func Config(driverName string) pgtestdb.Config {
	return pgtestdb.Config{
		DriverName: driverName,
		Host:       "localhost",
		User:       "postgres",
		Password:   "password",
		Port:       "5433",
		Database:   "postgres",
		Options:    "sslmode=disable",
	}
}

// New returns a connection to a fresh database cloned from the template
// m describes. The database is dropped when the test passes.
func New(t *testing.T, driverName string, m *Migrator) *sql.DB {
	t.Helper()
	return pgtestdb.New(t, Config(driverName), m)
}
