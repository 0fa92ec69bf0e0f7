package schemarecon

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/optyshop/schemarecon/internal/sqltools"
)

// MySQL server error numbers, see
// https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
var mysqlCodes = map[string]ErrorKind{
	"1050": BenignRace, // ER_TABLE_EXISTS_ERROR
	"1060": BenignRace, // ER_DUP_FIELDNAME
	"1061": BenignRace, // ER_DUP_KEYNAME
	"1826": BenignRace, // ER_FK_DUP_NAME

	"1146": PreconditionMissing, // ER_NO_SUCH_TABLE
	"1054": PreconditionMissing, // ER_BAD_FIELD_ERROR
	"1824": PreconditionMissing, // ER_FK_CANNOT_OPEN_PARENT
	"1215": PreconditionMissing, // ER_CANNOT_ADD_FOREIGN
	"1049": PreconditionMissing, // ER_BAD_DB_ERROR

	"1064": MalformedOperation, // ER_PARSE_ERROR
	"1072": MalformedOperation, // ER_KEY_COLUMN_DOES_NOT_EXITS
	"1101": MalformedOperation, // ER_BLOB_CANT_HAVE_DEFAULT
	"1170": MalformedOperation, // ER_BLOB_KEY_WITHOUT_LENGTH
	"1067": MalformedOperation, // ER_INVALID_DEFAULT

	"1142": InsufficientPrivilege, // ER_TABLEACCESS_DENIED_ERROR
	"1044": InsufficientPrivilege, // ER_DBACCESS_DENIED_ERROR
	"1045": InsufficientPrivilege, // ER_ACCESS_DENIED_ERROR

	"1040": ConnectionError, // ER_CON_COUNT_ERROR
	"1053": ConnectionError, // ER_SERVER_SHUTDOWN
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string       { return "mysql" }
func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) QuoteIdentifier(name string) string {
	return sqltools.MySQLIdentifier(name)
}

func (mysqlDialect) QuoteLiteral(value string) string {
	return sqltools.MySQLLiteral(value)
}

func (mysqlDialect) Placeholder(int) string {
	return "?"
}

func (d mysqlDialect) CreateLedgerTable(table string) []string {
	return []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id CHAR(26) NOT NULL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL,
			checksum VARCHAR(64) NOT NULL,
			started_at DATETIME(6) NOT NULL,
			finished_at DATETIME(6) NOT NULL,
			rolled_back_at DATETIME(6) NULL,
			applied_steps_count INT NOT NULL DEFAULT 0,
			logs TEXT,
			UNIQUE KEY uniq_migration_name (migration_name)
		)`, d.QuoteIdentifier(table))}
}

// UpsertLedger uses ON DUPLICATE KEY UPDATE. MySQL evaluates the assignments
// left to right, so rolled_back_at must be reset last for the IF conditions
// to see its old value.
func (d mysqlDialect) UpsertLedger(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s
		( id, migration_name, checksum, started_at, finished_at, applied_steps_count, logs )
		VALUES
		( ?, ?, ?, ?, ?, ?, ? )
		ON DUPLICATE KEY UPDATE
			checksum = IF(rolled_back_at IS NULL, checksum, VALUES(checksum)),
			started_at = IF(rolled_back_at IS NULL, started_at, VALUES(started_at)),
			finished_at = IF(rolled_back_at IS NULL, finished_at, VALUES(finished_at)),
			applied_steps_count = IF(rolled_back_at IS NULL, applied_steps_count, VALUES(applied_steps_count)),
			logs = IF(rolled_back_at IS NULL, logs, VALUES(logs)),
			rolled_back_at = NULL`, d.QuoteIdentifier(table))
}

func (d mysqlDialect) Render(op Operation) (string, error) {
	return ddl{quote: d.QuoteIdentifier, literal: d.QuoteLiteral}.render(op)
}

func (d mysqlDialect) Exists(op Operation) (Check, error) {
	name, err := objectName(op)
	if err != nil {
		return Check{}, err
	}
	schema, table := sqltools.ParseTableName(op.Table)
	switch op.Kind {
	case OpAddColumn:
		return d.ObjectExists(ColumnRef(op.Table, name)), nil
	case OpCreateTable:
		return d.ObjectExists(TableRef(op.Table)), nil
	case OpAddIndex:
		return Check{
			Query: `
				SELECT EXISTS (
					SELECT 1 FROM information_schema.STATISTICS
					WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
					AND TABLE_NAME = ? AND INDEX_NAME = ?
				)`,
			Args: []any{schema, table, name},
		}, nil
	case OpAddForeignKey:
		return Check{
			Query: `
				SELECT EXISTS (
					SELECT 1 FROM information_schema.TABLE_CONSTRAINTS
					WHERE CONSTRAINT_TYPE = 'FOREIGN KEY'
					AND TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
					AND TABLE_NAME = ? AND CONSTRAINT_NAME = ?
				)`,
			Args: []any{schema, table, name},
		}, nil
	}
	return Check{}, fmt.Errorf("unknown operation kind %q", op.Kind)
}

func (mysqlDialect) ObjectExists(obj Object) Check {
	schema, table := sqltools.ParseTableName(obj.Table)
	if obj.Column == "" {
		return Check{
			Query: `
				SELECT EXISTS (
					SELECT 1 FROM information_schema.TABLES
					WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
					AND TABLE_NAME = ?
				)`,
			Args: []any{schema, table},
		}
	}
	return Check{
		Query: `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.COLUMNS
				WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
				AND TABLE_NAME = ? AND COLUMN_NAME = ?
			)`,
		Args: []any{schema, table, obj.Column},
	}
}

func (mysqlDialect) Classify(err error) ErrorKind {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return ConnectionError
	}
	derr, ok := sqltools.Extract(err)
	if !ok || derr.Driver != sqltools.DriverMySQL {
		if isConnectionError(err) {
			return ConnectionError
		}
		return UnknownError
	}
	if kind, ok := mysqlCodes[derr.Code]; ok {
		return kind
	}
	return UnknownError
}

func (mysqlDialect) DuplicateKey(err error) bool {
	derr, ok := sqltools.Extract(err)
	return ok && derr.Driver == sqltools.DriverMySQL && (derr.Code == "1062" || derr.Code == "1022")
}
