package schemarecon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// LedgerEntry is a row of the ledger table recording that a target was
// applied.
type LedgerEntry struct {
	ID       string
	Name     string
	Checksum string
	// StartedAt is when the run that applied the target started checking its
	// operations.
	StartedAt time.Time
	// FinishedAt is when the target was recorded as applied.
	FinishedAt time.Time
	// RolledBackAt is set by [Reconciler.MarkRolledBack]. An entry that has
	// been rolled back no longer short-circuits reconciliation.
	RolledBackAt *time.Time
	// AppliedSteps is the number of operations the recording run applied or
	// tolerated. It is zero for [Reconciler.MarkApplied].
	AppliedSteps int
	Logs         string
}

// ensureLedgerTable will create the ledger table if it does not exist. Two
// processes creating it at the same time is harmless.
func (r *Reconciler) ensureLedgerTable(ctx context.Context, db Executor) error {
	r.debug(ctx, "ensuring ledger table exists", LogField{Key: "table_name", Value: r.TableName})
	for _, query := range r.Dialect.CreateLedgerTable(r.TableName) {
		r.debug(ctx, query)
		if _, err := db.ExecContext(ctx, query); err != nil {
			if r.Dialect.Classify(err) == BenignRace || r.Dialect.DuplicateKey(err) {
				continue
			}
			return fmt.Errorf("ensureLedgerTable: %w", err)
		}
	}
	return nil
}

// hasLedgerTable returns true if the ledger table exists, false otherwise.
func (r *Reconciler) hasLedgerTable(ctx context.Context, db Executor) (bool, error) {
	exists, err := r.check(ctx, db, r.Dialect.ObjectExists(TableRef(r.TableName)))
	if err != nil {
		return false, fmt.Errorf("hasLedgerTable: %w", err)
	}
	return exists, nil
}

func (r *Reconciler) selectLedger(where string) string {
	query := fmt.Sprintf(`
		SELECT id, migration_name, checksum, started_at, finished_at, rolled_back_at, applied_steps_count, COALESCE(logs, '')
		FROM %s`, r.Dialect.QuoteIdentifier(r.TableName))
	if where != "" {
		query += " WHERE " + where
	}
	return query + " ORDER BY finished_at, migration_name ASC"
}

// lookup returns the ledger entry for name, or nil if there is none.
func (r *Reconciler) lookup(ctx context.Context, db Executor, name string) (*LedgerEntry, error) {
	query := r.selectLedger("migration_name = " + r.Dialect.Placeholder(1))
	r.debug(ctx, query, LogField{Key: "target", Value: name})
	rows, err := db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	entries, err := scanLedgerEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// Applied returns every ledger entry, rolled back or not, in the order the
// targets were recorded (finished_at ASC, migration_name ASC).
//
// If the ledger table does not exist this returns an empty list without an
// error.
func (r *Reconciler) Applied(ctx context.Context, db Executor) ([]LedgerEntry, error) {
	hasLedger, err := r.hasLedgerTable(ctx, db)
	if err != nil {
		return nil, err
	}
	if !hasLedger {
		return nil, nil
	}
	query := r.selectLedger("")
	r.debug(ctx, query)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanLedgerEntries(rows)
}

// writeLedger upserts the ledger entry for target. It reports whether a row
// was inserted or revived; false means a concurrent run recorded the target
// first. A unique-key violation counts as success only when a live entry for
// the target exists afterwards.
func (r *Reconciler) writeLedger(ctx context.Context, db Executor, target Target, startedAt time.Time, steps int, logs string) (LedgerEntry, bool, error) {
	finishedAt := time.Now().UTC()
	entry := LedgerEntry{
		ID:           newLedgerID(finishedAt),
		Name:         target.Name,
		Checksum:     target.Checksum(),
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
		AppliedSteps: steps,
		Logs:         logs,
	}
	fields := []LogField{
		{Key: "target", Value: entry.Name},
		{Key: "checksum", Value: entry.Checksum},
		{Key: "applied_steps", Value: entry.AppliedSteps},
	}
	query := r.Dialect.UpsertLedger(r.TableName)
	r.debug(ctx, query)
	res, err := db.ExecContext(ctx, query,
		entry.ID, entry.Name, entry.Checksum, entry.StartedAt, entry.FinishedAt, entry.AppliedSteps, entry.Logs,
	)
	if err != nil {
		if r.Dialect.DuplicateKey(err) {
			existing, lerr := r.lookup(ctx, db, target.Name)
			if lerr == nil && existing != nil && existing.RolledBackAt == nil {
				r.info(ctx, "ledger entry recorded concurrently", fields...)
				return *existing, false, nil
			}
			err = errors.Join(err, lerr)
		}
		msg := "failed to record target as applied"
		r.error(ctx, err, msg, fields...)
		return entry, false, fmt.Errorf("%s: %w", msg, err)
	}
	written := true
	if n, err := res.RowsAffected(); err == nil {
		written = n > 0
	}
	r.info(ctx, "recorded as applied", append(fields, LogField{Key: "written", Value: written})...)
	return entry, written, nil
}

// newLedgerID returns a ULID, which sorts by creation time and fits the
// CHAR(26) id column.
func newLedgerID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

func scanLedgerEntries(rows *sql.Rows) ([]LedgerEntry, error) {
	defer rows.Close()
	var entries []LedgerEntry
	for rows.Next() {
		entry := LedgerEntry{}
		var rolledBackAt sql.NullTime
		err := rows.Scan(
			&entry.ID,
			&entry.Name,
			&entry.Checksum,
			&entry.StartedAt,
			&entry.FinishedAt,
			&rolledBackAt,
			&entry.AppliedSteps,
			&entry.Logs,
		)
		if err != nil {
			return nil, err
		}
		entry.StartedAt = entry.StartedAt.UTC()
		entry.FinishedAt = entry.FinishedAt.UTC()
		if rolledBackAt.Valid {
			t := rolledBackAt.Time.UTC()
			entry.RolledBackAt = &t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
