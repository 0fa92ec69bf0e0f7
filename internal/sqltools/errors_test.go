package sqltools_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/optyshop/schemarecon/internal/sqltools"
)

func TestExtractPgx(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("apply: %w", &pgconn.PgError{
		Code:       "42701",
		Message:    `column "page_type" of relation "banners" already exists`,
		TableName:  "banners",
		ColumnName: "page_type",
	})
	derr, ok := sqltools.Extract(err)
	assert.Equal(t, true, ok)
	check.Equal(t, sqltools.DriverPostgres, derr.Driver)
	check.Equal(t, "42701", derr.Code)
	check.Equal(t, "banners", derr.Table)
	check.Equal(t, "page_type", derr.Column)
}

func TestExtractPq(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("apply: %w", &pq.Error{Code: "42P07", Table: "flash_offers"})
	derr, ok := sqltools.Extract(err)
	assert.Equal(t, true, ok)
	check.Equal(t, sqltools.DriverPostgres, derr.Driver)
	check.Equal(t, "42P07", derr.Code)
	check.Equal(t, "flash_offers", derr.Table)
}

func TestExtractMySQL(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("apply: %w", &mysql.MySQLError{Number: 1060, Message: "Duplicate column name 'page_type'"})
	derr, ok := sqltools.Extract(err)
	assert.Equal(t, true, ok)
	check.Equal(t, sqltools.DriverMySQL, derr.Driver)
	check.Equal(t, "1060", derr.Code)
}

func TestExtractSQLite(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("apply: %w", sqlite3.Error{Code: sqlite3.ErrError, ExtendedCode: sqlite3.ErrNoExtended(sqlite3.ErrError)})
	derr, ok := sqltools.Extract(err)
	assert.Equal(t, true, ok)
	check.Equal(t, sqltools.DriverSQLite, derr.Driver)
	check.Equal(t, "1", derr.Code)
	check.Equal(t, "1", derr.Extended)
}

func TestExtractNonDriverError(t *testing.T) {
	t.Parallel()
	_, ok := sqltools.Extract(errors.New("boom"))
	check.False(t, ok)
	_, ok = sqltools.Extract(nil)
	check.False(t, ok)
	check.Equal(t, 0, len(sqltools.ErrorData(errors.New("boom"))))
}

func TestErrorData(t *testing.T) {
	t.Parallel()
	data := sqltools.ErrorData(&pgconn.PgError{
		Code:           "42710",
		ConstraintName: "fk_banners_category",
		Hint:           "",
	})
	check.Equal(t, map[string]any{
		"db_driver":     sqltools.DriverPostgres,
		"db_code":       "42710",
		"db_constraint": "fk_banners_category",
	}, data)
}

func TestSortedKeys(t *testing.T) {
	t.Parallel()
	keys := sqltools.SortedKeys(map[string]int{"db_table": 1, "db_code": 2, "db_driver": 3})
	check.Equal(t, []string{"db_code", "db_driver", "db_table"}, keys)
}
