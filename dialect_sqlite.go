package schemarecon

import (
	"fmt"
	"strconv"

	"github.com/mattn/go-sqlite3"

	"github.com/optyshop/schemarecon/internal/sqltools"
)

// SQLite reports every DDL problem, duplicates included, as the generic
// SQLITE_ERROR. Only the codes below carry meaning; everything else is
// classified as unknown and the reconciler re-checks the predicate.
var sqliteCodes = map[string]ErrorKind{
	strconv.Itoa(int(sqlite3.ErrCantOpen)): ConnectionError,
	strconv.Itoa(int(sqlite3.ErrNotADB)):   ConnectionError,
	strconv.Itoa(int(sqlite3.ErrCorrupt)):  ConnectionError,
	strconv.Itoa(int(sqlite3.ErrPerm)):     InsufficientPrivilege,
	strconv.Itoa(int(sqlite3.ErrAuth)):     InsufficientPrivilege,
	strconv.Itoa(int(sqlite3.ErrReadonly)): InsufficientPrivilege,
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite3" }

func (sqliteDialect) QuoteIdentifier(name string) string {
	return sqltools.SQLiteIdentifier(name)
}

func (sqliteDialect) QuoteLiteral(value string) string {
	return sqltools.SQLiteLiteral(value)
}

func (sqliteDialect) Placeholder(int) string {
	return "?"
}

func (d sqliteDialect) CreateLedgerTable(table string) []string {
	return []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id CHAR(26) PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			checksum VARCHAR(64) NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			rolled_back_at DATETIME,
			applied_steps_count INTEGER NOT NULL DEFAULT 0,
			logs TEXT
		)`, d.QuoteIdentifier(table))}
}

func (d sqliteDialect) UpsertLedger(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s
		( id, migration_name, checksum, started_at, finished_at, applied_steps_count, logs )
		VALUES
		( ?, ?, ?, ?, ?, ?, ? )
		ON CONFLICT (migration_name) DO UPDATE SET
			checksum = excluded.checksum,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			applied_steps_count = excluded.applied_steps_count,
			logs = excluded.logs,
			rolled_back_at = NULL
		WHERE rolled_back_at IS NOT NULL`, d.QuoteIdentifier(table))
}

// Render refuses ADD_FOREIGN_KEY: SQLite can only declare foreign keys when a
// table is created.
func (d sqliteDialect) Render(op Operation) (string, error) {
	if op.Kind == OpAddForeignKey {
		return "", fmt.Errorf("sqlite cannot add a foreign key to an existing table, declare it in CREATE_TABLE")
	}
	return ddl{quote: d.QuoteIdentifier, literal: d.QuoteLiteral}.render(op)
}

func (d sqliteDialect) Exists(op Operation) (Check, error) {
	name, err := objectName(op)
	if err != nil {
		return Check{}, err
	}
	switch op.Kind {
	case OpAddColumn:
		return d.ObjectExists(ColumnRef(op.Table, name)), nil
	case OpCreateTable:
		return d.ObjectExists(TableRef(op.Table)), nil
	case OpAddIndex:
		return Check{
			Query: `
				SELECT EXISTS (
					SELECT 1 FROM sqlite_master
					WHERE type = 'index' AND tbl_name = ? AND name = ?
				)`,
			Args: []any{op.Table, name},
		}, nil
	case OpAddForeignKey:
		// Foreign keys are anonymous in pragma_foreign_key_list, so they are
		// matched on their columns instead of their name.
		fk := op.ForeignKey
		return Check{
			Query: `
				SELECT EXISTS (
					SELECT 1 FROM pragma_foreign_key_list(?)
					WHERE "from" = ? AND "table" = ? AND "to" = ?
				)`,
			Args: []any{op.Table, fk.Column, fk.RefTable, fk.RefColumn},
		}, nil
	}
	return Check{}, fmt.Errorf("unknown operation kind %q", op.Kind)
}

func (sqliteDialect) ObjectExists(obj Object) Check {
	if obj.Column == "" {
		return Check{
			Query: `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`,
			Args:  []any{obj.Table},
		}
	}
	return Check{
		Query: `SELECT EXISTS (SELECT 1 FROM pragma_table_info(?) WHERE name = ?)`,
		Args:  []any{obj.Table, obj.Column},
	}
}

func (sqliteDialect) Classify(err error) ErrorKind {
	derr, ok := sqltools.Extract(err)
	if !ok || derr.Driver != sqltools.DriverSQLite {
		if isConnectionError(err) {
			return ConnectionError
		}
		return UnknownError
	}
	if kind, ok := sqliteCodes[derr.Code]; ok {
		return kind
	}
	return UnknownError
}

func (sqliteDialect) DuplicateKey(err error) bool {
	derr, ok := sqltools.Extract(err)
	if !ok || derr.Driver != sqltools.DriverSQLite {
		return false
	}
	return derr.Extended == strconv.Itoa(int(sqlite3.ErrConstraintUnique)) ||
		derr.Extended == strconv.Itoa(int(sqlite3.ErrConstraintPrimaryKey))
}
