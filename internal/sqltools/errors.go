package sqltools

import (
	"errors"
	"sort"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/exp/constraints"
)

// Driver names reported in [DriverError.Driver].
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// DriverError is a driver-independent view of an error reported by the
// database server. Code is the SQLSTATE for postgres, the server error number
// for mysql, and the primary result code for sqlite.
type DriverError struct {
	Driver     string
	Code       string
	Extended   string // sqlite extended result code, empty otherwise
	Message    string
	Detail     string
	Hint       string
	Schema     string
	Table      string
	Column     string
	Constraint string
}

// Extract unwraps err looking for an error produced by one of the supported
// drivers: pgx (pgconn), lib/pq, go-sql-driver/mysql or mattn/go-sqlite3.
func Extract(err error) (DriverError, bool) {
	if err == nil {
		return DriverError{}, false
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return DriverError{
			Driver:     DriverPostgres,
			Code:       pgerr.Code,
			Message:    pgerr.Message,
			Detail:     pgerr.Detail,
			Hint:       pgerr.Hint,
			Schema:     pgerr.SchemaName,
			Table:      pgerr.TableName,
			Column:     pgerr.ColumnName,
			Constraint: pgerr.ConstraintName,
		}, true
	}
	var pqerr *pq.Error
	if errors.As(err, &pqerr) {
		return DriverError{
			Driver:     DriverPostgres,
			Code:       string(pqerr.Code),
			Message:    pqerr.Message,
			Detail:     pqerr.Detail,
			Hint:       pqerr.Hint,
			Schema:     pqerr.Schema,
			Table:      pqerr.Table,
			Column:     pqerr.Column,
			Constraint: pqerr.Constraint,
		}, true
	}
	var myerr *mysql.MySQLError
	if errors.As(err, &myerr) {
		return DriverError{
			Driver:  DriverMySQL,
			Code:    strconv.Itoa(int(myerr.Number)),
			Message: myerr.Message,
		}, true
	}
	var liteerr sqlite3.Error
	if errors.As(err, &liteerr) {
		return DriverError{
			Driver:   DriverSQLite,
			Code:     strconv.Itoa(int(liteerr.Code)),
			Extended: strconv.Itoa(int(liteerr.ExtendedCode)),
			Message:  liteerr.Error(),
		}, true
	}
	return DriverError{}, false
}

// ErrorData returns as much information as possible about a driver error for
// logging purposes. It returns an empty map for errors that did not come from
// the database server.
func ErrorData(err error) map[string]any {
	data := make(map[string]any)
	derr, ok := Extract(err)
	if !ok {
		return data
	}
	data["db_driver"] = derr.Driver
	data["db_code"] = derr.Code
	if derr.Extended != "" {
		data["db_extended_code"] = derr.Extended
	}
	if derr.Detail != "" {
		data["db_detail"] = derr.Detail
	}
	if derr.Hint != "" {
		data["db_hint"] = derr.Hint
	}
	if derr.Schema != "" {
		data["db_schema"] = derr.Schema
	}
	if derr.Table != "" {
		data["db_table"] = derr.Table
	}
	if derr.Column != "" {
		data["db_column"] = derr.Column
	}
	if derr.Constraint != "" {
		data["db_constraint"] = derr.Constraint
	}
	return data
}

// SortedKeys returns the keys of m in ascending order, so that fields built
// from maps are logged in a stable order.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
