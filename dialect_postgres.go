package schemarecon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/optyshop/schemarecon/internal/sqltools"
)

// Postgres error codes, see
// https://www.postgresql.org/docs/current/errcodes-appendix.html
var postgresCodes = map[string]ErrorKind{
	"42701": BenignRace, // duplicate_column
	"42P07": BenignRace, // duplicate_table (also relations such as indexes)
	"42710": BenignRace, // duplicate_object (constraints)
	"42P06": BenignRace, // duplicate_schema

	"42P01": PreconditionMissing, // undefined_table
	"42703": PreconditionMissing, // undefined_column
	"3F000": PreconditionMissing, // invalid_schema_name
	"42830": PreconditionMissing, // invalid_foreign_key

	"42601": MalformedOperation, // syntax_error
	"42704": MalformedOperation, // undefined_object (unknown type)
	"42804": MalformedOperation, // datatype_mismatch
	"42611": MalformedOperation, // invalid_column_definition
	"42P16": MalformedOperation, // invalid_table_definition
	"22023": MalformedOperation, // invalid_parameter_value

	"42501": InsufficientPrivilege,
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "pgx" }

func (postgresDialect) QuoteIdentifier(name string) string {
	return sqltools.Identifier(name)
}

func (postgresDialect) QuoteLiteral(value string) string {
	return sqltools.Literal(value)
}

func (postgresDialect) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (d postgresDialect) CreateLedgerTable(table string) []string {
	var statements []string
	schema, _ := sqltools.ParseTableName(table)
	if schema != "" {
		statements = append(statements, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, sqltools.Identifier(schema)))
	}
	return append(statements, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id CHAR(26) PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			checksum VARCHAR(64) NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			rolled_back_at TIMESTAMPTZ,
			applied_steps_count INTEGER NOT NULL DEFAULT 0,
			logs TEXT
		)`, d.QuoteIdentifier(table)))
}

func (d postgresDialect) UpsertLedger(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s AS ledger
		( id, migration_name, checksum, started_at, finished_at, applied_steps_count, logs )
		VALUES
		( $1, $2, $3, $4, $5, $6, $7 )
		ON CONFLICT (migration_name) DO UPDATE SET
			checksum = EXCLUDED.checksum,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			applied_steps_count = EXCLUDED.applied_steps_count,
			logs = EXCLUDED.logs,
			rolled_back_at = NULL
		WHERE ledger.rolled_back_at IS NOT NULL`, d.QuoteIdentifier(table))
}

func (d postgresDialect) Render(op Operation) (string, error) {
	return ddl{quote: d.QuoteIdentifier, literal: d.QuoteLiteral}.render(op)
}

func (d postgresDialect) Exists(op Operation) (Check, error) {
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
					SELECT 1 FROM pg_indexes
					WHERE schemaname = COALESCE(NULLIF($1::text, ''), current_schema())
					AND tablename = $2 AND indexname = $3
				)`,
			Args: []any{schema, table, name},
		}, nil
	case OpAddForeignKey:
		return Check{
			Query: `
				SELECT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE constraint_type = 'FOREIGN KEY'
					AND table_schema = COALESCE(NULLIF($1::text, ''), current_schema())
					AND table_name = $2 AND constraint_name = $3
				)`,
			Args: []any{schema, table, name},
		}, nil
	}
	return Check{}, fmt.Errorf("unknown operation kind %q", op.Kind)
}

func (postgresDialect) ObjectExists(obj Object) Check {
	schema, table := sqltools.ParseTableName(obj.Table)
	if obj.Column == "" {
		return Check{
			Query: `
				SELECT EXISTS (
					SELECT 1 FROM information_schema.tables
					WHERE table_schema = COALESCE(NULLIF($1::text, ''), current_schema())
					AND table_name = $2
				)`,
			Args: []any{schema, table},
		}
	}
	return Check{
		Query: `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_schema = COALESCE(NULLIF($1::text, ''), current_schema())
				AND table_name = $2 AND column_name = $3
			)`,
		Args: []any{schema, table, obj.Column},
	}
}

func (postgresDialect) Classify(err error) ErrorKind {
	var connerr *pgconn.ConnectError
	if errors.As(err, &connerr) {
		return ConnectionError
	}
	derr, ok := sqltools.Extract(err)
	if !ok || derr.Driver != sqltools.DriverPostgres {
		if isConnectionError(err) {
			return ConnectionError
		}
		return UnknownError
	}
	if kind, ok := postgresCodes[derr.Code]; ok {
		return kind
	}
	// Class 08: connection exception. Class 57P: operator intervention, which
	// includes the server shutting down underneath us.
	if strings.HasPrefix(derr.Code, "08") || strings.HasPrefix(derr.Code, "57P") {
		return ConnectionError
	}
	return UnknownError
}

func (postgresDialect) DuplicateKey(err error) bool {
	derr, ok := sqltools.Extract(err)
	return ok && derr.Driver == sqltools.DriverPostgres && derr.Code == "23505"
}
