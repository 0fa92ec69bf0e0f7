package schemarecon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MarkApplied (⚠️ danger) is a manual operation that records known targets as
// applied without checking or running any of their operations.
//
// You should NOT use this as part of normal operations, it exists to help
// operators adopt a database whose schema was changed by hand.
//
// Unknown names and targets that already have a live ledger entry are skipped
// with a warning. It returns the ledger entries that were written.
func (r *Reconciler) MarkApplied(ctx context.Context, db Executor, names ...string) ([]LedgerEntry, error) {
	if err := r.ensureLedgerTable(ctx, db); err != nil {
		return nil, err
	}
	applied, err := r.Applied(ctx, db)
	if err != nil {
		return nil, err
	}
	appliedMap := map[string]LedgerEntry{}
	for _, entry := range applied {
		if entry.RolledBackAt == nil {
			appliedMap[entry.Name] = entry
		}
	}
	var toMark []Target
	for _, name := range names {
		if existing, ok := appliedMap[name]; ok {
			r.warn(ctx, "skipping previously applied target",
				LogField{Key: "target", Value: existing.Name},
				LogField{Key: "checksum", Value: existing.Checksum},
				LogField{Key: "applied_at", Value: existing.FinishedAt},
			)
			continue
		}
		target, ok := r.Target(name)
		if !ok {
			r.warn(ctx, "skipping unknown target",
				LogField{Key: "reason", Value: "does not exist"},
				LogField{Key: "target", Value: name},
			)
			continue
		}
		toMark = append(toMark, target)
	}
	var marked []LedgerEntry
	if err := r.inTx(ctx, db, func(tx Executor) error {
		for _, target := range toMark {
			entry, written, err := r.writeLedger(ctx, tx, target, time.Now().UTC(), 0, "marked as applied")
			if err != nil {
				return err
			}
			if written {
				marked = append(marked, entry)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return marked, nil
}

// MarkAllApplied (⚠️ danger) is [Reconciler.MarkApplied] for every known
// target.
func (r *Reconciler) MarkAllApplied(ctx context.Context, db Executor) ([]LedgerEntry, error) {
	names := make([]string, 0, len(r.Targets))
	for _, target := range r.Targets {
		names = append(names, target.Name)
	}
	return r.MarkApplied(ctx, db, names...)
}

// MarkRolledBack (⚠️ danger) is a manual operation that sets rolled_back_at on
// the ledger entries of the named targets. The schema itself is left alone:
// nothing this package does ever drops an object. The next reconciliation of
// a rolled-back target checks every operation again and revives the entry.
//
// It returns the ledger entries that were marked as rolled back.
func (r *Reconciler) MarkRolledBack(ctx context.Context, db Executor, names ...string) ([]LedgerEntry, error) {
	hasLedger, err := r.hasLedgerTable(ctx, db)
	if err != nil {
		return nil, err
	}
	if !hasLedger {
		return nil, fmt.Errorf("ledger table %s does not exist", r.TableName)
	}
	applied, err := r.Applied(ctx, db)
	if err != nil {
		return nil, err
	}
	appliedMap := map[string]LedgerEntry{}
	for _, entry := range applied {
		appliedMap[entry.Name] = entry
	}
	var toRollBack []LedgerEntry
	for _, name := range names {
		entry, ok := appliedMap[name]
		if !ok {
			r.warn(ctx, "skipping unknown target",
				LogField{Key: "reason", Value: "not in the ledger"},
				LogField{Key: "target", Value: name},
			)
			continue
		}
		if entry.RolledBackAt != nil {
			r.warn(ctx, "skipping target",
				LogField{Key: "reason", Value: "already rolled back"},
				LogField{Key: "target", Value: name},
				LogField{Key: "rolled_back_at", Value: *entry.RolledBackAt},
			)
			continue
		}
		toRollBack = append(toRollBack, entry)
	}
	var rolledBack []LedgerEntry
	if err := r.inTx(ctx, db, func(tx Executor) error {
		query := fmt.Sprintf(
			`UPDATE %s SET rolled_back_at = %s WHERE migration_name = %s AND rolled_back_at IS NULL`,
			r.Dialect.QuoteIdentifier(r.TableName), r.Dialect.Placeholder(1), r.Dialect.Placeholder(2),
		)
		for _, entry := range toRollBack {
			now := time.Now().UTC()
			r.debug(ctx, query)
			if _, err := tx.ExecContext(ctx, query, now, entry.Name); err != nil {
				msg := "failed to mark target as rolled back"
				r.error(ctx, err, msg, LogField{Key: "target", Value: entry.Name})
				return fmt.Errorf("%s: %w", msg, err)
			}
			r.info(ctx, "marked as rolled back", LogField{Key: "target", Value: entry.Name})
			entry.RolledBackAt = &now
			rolledBack = append(rolledBack, entry)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return rolledBack, nil
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// inTx runs cb inside a transaction when db can begin one, and directly on db
// otherwise (for instance when db is already a *sql.Tx).
func (r *Reconciler) inTx(ctx context.Context, db Executor, cb func(tx Executor) error) (final error) {
	beginner, ok := db.(txBeginner)
	if !ok {
		return cb(db)
	}
	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		msg := "tx open"
		r.error(ctx, err, msg)
		return fmt.Errorf("%s: %w", msg, err)
	}
	defer func() {
		if final != nil {
			if err := tx.Rollback(); err != nil {
				final = errors.Join(final, fmt.Errorf("tx rollback: %w", err))
			}
		} else {
			if err := tx.Commit(); err != nil {
				final = errors.Join(final, fmt.Errorf("tx commit: %w", err))
			}
		}
	}()
	return cb(tx)
}
