package schemarecon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/optyshop/schemarecon/internal/sqltools"
)

// DefaultTableName is the default name of the ledger table in which the
// reconciler records applied targets.
const DefaultTableName string = "schema_migrations"

// Executor is satisfied by *sql.DB, *sql.Conn and *sql.Tx. Every method of the
// [Reconciler] takes the handle explicitly; nothing is held between calls.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Reconciler should be instantiated with [NewReconciler] rather than used
// directly. It brings a database to the state described by a [Target] and
// records the targets it has applied in a ledger table.
type Reconciler struct {
	// Targets is the full, ordered set of known targets. It is used by
	// [Reconciler.ReconcileAll], [Reconciler.MarkApplied] and
	// [Reconciler.VerifyLedger]; [Reconciler.Reconcile] accepts any target.
	Targets []Target
	// Dialect renders DDL and catalog queries for the database engine.
	Dialect Dialect
	// Logger is used to log every decision the reconciler makes.
	//
	// [NewReconciler] defaults it to `nil`, which will prevent any messages
	// from being logged.
	Logger Logger
	// TableName is the ledger table. [NewReconciler] defaults it to
	// [DefaultTableName].
	TableName string
}

// NewReconciler creates a [Reconciler] and sets default values for all
// configurable fields:
//
//   - Logger: `nil`, no messages will be logged
//   - TableName: [DefaultTableName]
//
// To configure these fields, just set the values on the struct.
func NewReconciler(dialect Dialect, targets ...Target) *Reconciler {
	return &Reconciler{
		Targets:   targets,
		Dialect:   dialect,
		Logger:    nil,
		TableName: DefaultTableName,
	}
}

// Reconcile brings the database to the state described by target.
//
// First, the ledger table is created if it does not exist, and if it already
// holds an entry for the target that has not been rolled back, Reconcile
// returns immediately with AlreadyApplied set.
//
// Otherwise, for each operation in declared order:
//
//   - evaluate its existence predicate; if it is satisfied, skip it
//   - check that every table and column it depends on exists; a missing one
//     is a fatal [PreconditionMissing] error naming the object
//   - run the DDL statement
//   - if the statement fails because the object already exists (the driver
//     reports a duplicate column, index, constraint or table), the operation
//     is tolerated: another process got there first
//   - any other failure is fatal and stops the run
//
// When the driver error code is not conclusive the predicate is evaluated
// again, and the failure is tolerated if the object now exists.
//
// Operations after a fatal failure are not attempted, and no ledger entry is
// written, so the next run starts over and skips what already exists. When
// every operation succeeded the ledger entry is upserted; concurrent runs
// converge on a single row.
//
// Reconcile never takes a lock. A fatal error is returned as an
// [*OperationError] together with the partial [Result].
func (r *Reconciler) Reconcile(ctx context.Context, db Executor, target Target) (Result, error) {
	result := Result{Target: target.Name}
	if err := target.Validate(); err != nil {
		r.error(ctx, err, "invalid target", LogField{Key: "target", Value: target.Name})
		return result, err
	}
	if err := r.ensureLedgerTable(ctx, db); err != nil {
		return result, r.roundTripError(target, err)
	}
	entry, err := r.lookup(ctx, db, target.Name)
	if err != nil {
		return result, r.roundTripError(target, err)
	}
	if entry != nil && entry.RolledBackAt == nil {
		fields := []LogField{
			{Key: "target", Value: target.Name},
			{Key: "applied_at", Value: entry.FinishedAt},
		}
		if checksum := target.Checksum(); entry.Checksum != checksum {
			r.warn(ctx, "target changed since it was applied, changes are not re-run",
				append(fields,
					LogField{Key: "checksum_from_db", Value: entry.Checksum},
					LogField{Key: "calculated_checksum", Value: checksum},
				)...,
			)
		}
		r.info(ctx, "already applied", fields...)
		result.AlreadyApplied = true
		return result, nil
	}

	startedAt := time.Now().UTC()
	r.info(ctx, "reconciling",
		LogField{Key: "target", Value: target.Name},
		LogField{Key: "operations", Value: len(target.Operations)},
	)
	for i, op := range target.Operations {
		outcome, err := r.reconcileOperation(ctx, db, target, i, op)
		result.record(outcome)
		if err != nil {
			r.error(ctx, err, "reconciliation aborted",
				LogField{Key: "target", Value: target.Name},
				LogField{Key: "unattempted", Value: len(target.Operations) - i - 1},
			)
			return result, err
		}
	}

	_, written, err := r.writeLedger(ctx, db, target, startedAt, len(result.Applied)+len(result.Tolerated), result.Summary())
	if err != nil {
		return result, r.roundTripError(target, err)
	}
	result.LedgerWritten = written
	r.info(ctx, "reconciled",
		LogField{Key: "target", Value: target.Name},
		LogField{Key: "applied", Value: len(result.Applied)},
		LogField{Key: "skipped", Value: len(result.Skipped)},
		LogField{Key: "tolerated", Value: len(result.Tolerated)},
		LogField{Key: "ledger_written", Value: written},
	)
	return result, nil
}

// ReconcileAll reconciles every target in [Reconciler.Targets] in order,
// stopping at the first fatal error.
func (r *Reconciler) ReconcileAll(ctx context.Context, db Executor) ([]Result, error) {
	var results []Result
	for _, target := range r.Targets {
		result, err := r.Reconcile(ctx, db, target)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *Reconciler) reconcileOperation(ctx context.Context, db Executor, target Target, step int, op Operation) (Outcome, error) {
	start := time.Now()
	outcome := Outcome{Operation: op}
	fields := []LogField{
		{Key: "target", Value: target.Name},
		{Key: "step", Value: step + 1},
		{Key: "operation", Value: op.String()},
	}
	fail := func(kind ErrorKind, object *Object, err error) (Outcome, error) {
		outcome.Status = StatusFailed
		outcome.Err = err
		outcome.Duration = time.Since(start)
		operr := &OperationError{Target: target.Name, Operation: op, Kind: kind, Object: object, Err: err}
		logFields := append(fields, LogField{Key: "kind", Value: kind})
		data := sqltools.ErrorData(err)
		for _, key := range sqltools.SortedKeys(data) {
			logFields = append(logFields, LogField{Key: key, Value: data[key]})
		}
		r.error(ctx, err, "failed", logFields...)
		return outcome, operr
	}

	satisfied, err := r.satisfied(ctx, db, op)
	if err != nil {
		return fail(r.classify(err), nil, err)
	}
	if satisfied {
		outcome.Status = StatusSkipped
		outcome.Duration = time.Since(start)
		r.info(ctx, "skipped", append(fields, LogField{Key: "reason", Value: "already exists"})...)
		return outcome, nil
	}

	for _, obj := range op.Preconditions() {
		exists, err := r.check(ctx, db, r.Dialect.ObjectExists(obj))
		if err != nil {
			return fail(r.classify(err), nil, err)
		}
		if !exists {
			return fail(PreconditionMissing, &obj, fmt.Errorf("%s does not exist", obj))
		}
	}

	statement, err := r.Dialect.Render(op)
	if err != nil {
		return fail(MalformedOperation, nil, err)
	}
	r.debug(ctx, statement)
	_, err = db.ExecContext(ctx, statement)
	outcome.Duration = time.Since(start)
	if err == nil {
		outcome.Status = StatusApplied
		r.info(ctx, "applied", append(fields, LogField{Key: "duration", Value: outcome.Duration})...)
		return outcome, nil
	}

	kind := r.Dialect.Classify(err)
	if kind == UnknownError {
		if exists, cerr := r.satisfied(ctx, db, op); cerr == nil && exists {
			kind = BenignRace
		}
	}
	if kind == BenignRace {
		outcome.Status = StatusTolerated
		outcome.Err = err
		r.info(ctx, "tolerated", append(fields,
			LogField{Key: "reason", Value: "created concurrently"},
			LogField{Key: "error", Value: err},
		)...)
		return outcome, nil
	}
	return fail(kind, nil, err)
}

// satisfied evaluates the existence predicate of op.
func (r *Reconciler) satisfied(ctx context.Context, db Executor, op Operation) (bool, error) {
	check := op.Exists
	if check == nil {
		c, err := r.Dialect.Exists(op)
		if err != nil {
			return false, err
		}
		check = &c
	}
	return r.check(ctx, db, *check)
}

func (r *Reconciler) check(ctx context.Context, db Executor, check Check) (bool, error) {
	r.debug(ctx, check.Query, LogField{Key: "args", Value: check.Args})
	var ok bool
	if err := db.QueryRowContext(ctx, check.Query, check.Args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return ok, nil
}

func (r *Reconciler) classify(err error) ErrorKind {
	kind := r.Dialect.Classify(err)
	if kind == BenignRace {
		// A catalog query cannot race with DDL; treat it as unknown.
		return UnknownError
	}
	return kind
}

// roundTripError wraps a failed ledger round-trip. Connection failures keep
// their kind so that callers can tell them apart.
func (r *Reconciler) roundTripError(target Target, err error) error {
	var operr *OperationError
	if errors.As(err, &operr) {
		return err
	}
	return &OperationError{Target: target.Name, Kind: r.classify(err), Err: err}
}

// Verify reports whether every operation of target is satisfied. It never
// changes the database, does not read the ledger, and agrees with
// [Reconciler.Reconcile]: after a successful reconcile Verify returns true,
// and if Verify returns true a reconcile applies nothing.
func (r *Reconciler) Verify(ctx context.Context, db Executor, target Target) (bool, error) {
	plan, err := r.Plan(ctx, db, target)
	if err != nil {
		return false, err
	}
	return len(plan) == 0, nil
}

// Plan returns the operations of target whose predicate is not satisfied, in
// the order Reconcile would apply them.
func (r *Reconciler) Plan(ctx context.Context, db Executor, target Target) ([]Operation, error) {
	statuses, err := r.Status(ctx, db, target)
	if err != nil {
		return nil, err
	}
	var plan []Operation
	for _, status := range statuses {
		if !status.Satisfied {
			plan = append(plan, status.Operation)
		}
	}
	return plan, nil
}

// Status evaluates the predicate of every operation of target.
func (r *Reconciler) Status(ctx context.Context, db Executor, target Target) ([]OperationStatus, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	statuses := make([]OperationStatus, 0, len(target.Operations))
	for _, op := range target.Operations {
		ok, err := r.satisfied(ctx, db, op)
		if err != nil {
			return nil, &OperationError{Target: target.Name, Operation: op, Kind: r.classify(err), Err: err}
		}
		statuses = append(statuses, OperationStatus{Operation: op, Satisfied: ok})
	}
	return statuses, nil
}

// VerifyLedger returns a list of [VerificationError]s for ledger entries that:
//
//   - do not match any of the known targets.
//   - have a different checksum than the target's current checksum.
//
// Entries that have been rolled back are ignored.
func (r *Reconciler) VerifyLedger(ctx context.Context, db Executor) ([]VerificationError, error) {
	applied, err := r.Applied(ctx, db)
	if err != nil {
		return nil, err
	}
	checksums := map[string]string{}
	for _, target := range r.Targets {
		checksums[target.Name] = target.Checksum()
	}
	var verrs []VerificationError
	for _, entry := range applied {
		if entry.RolledBackAt != nil {
			continue
		}
		checksum, ok := checksums[entry.Name]
		if !ok {
			verrs = append(verrs, VerificationError{
				Message: "found ledger entry for an unknown target",
				Fields: map[string]any{
					"target":            entry.Name,
					"target_applied_at": entry.FinishedAt,
					"target_checksum":   entry.Checksum,
				},
			})
			continue
		}
		if entry.Checksum != checksum {
			verrs = append(verrs, VerificationError{
				Message: "found ledger entry with a different checksum",
				Fields: map[string]any{
					"target":              entry.Name,
					"target_applied_at":   entry.FinishedAt,
					"checksum_from_db":    entry.Checksum,
					"calculated_checksum": checksum,
				},
			})
		}
	}
	return verrs, nil
}

// Target returns the known target with the given name.
func (r *Reconciler) Target(name string) (Target, bool) {
	for _, target := range r.Targets {
		if target.Name == name {
			return target, true
		}
	}
	return Target{}, false
}

func (r *Reconciler) log(ctx context.Context, level LogLevel, msg string, args ...LogField) {
	if r.Logger != nil {
		if hl, ok := r.Logger.(Helper); ok {
			hl.Helper()
		}
		r.Logger.Log(ctx, level, msg, args...)
	}
}

func (r *Reconciler) info(ctx context.Context, msg string, args ...LogField) {
	if logger, ok := r.Logger.(Helper); ok {
		logger.Helper()
	}
	r.log(ctx, LogLevelInfo, msg, args...)
}

func (r *Reconciler) debug(ctx context.Context, msg string, args ...LogField) {
	if logger, ok := r.Logger.(Helper); ok {
		logger.Helper()
	}
	r.log(ctx, LogLevelDebug, msg, args...)
}

func (r *Reconciler) error(ctx context.Context, err error, msg string, args ...LogField) {
	args = append(args, LogField{Key: "error", Value: err})
	if logger, ok := r.Logger.(Helper); ok {
		logger.Helper()
	}
	r.log(ctx, LogLevelError, msg, args...)
}

func (r *Reconciler) warn(ctx context.Context, msg string, args ...LogField) {
	if logger, ok := r.Logger.(Helper); ok {
		logger.Helper()
	}
	r.log(ctx, LogLevelWarning, msg, args...)
}
