package shared

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "github.com/mattn/go-sqlite3"    // sqlite3 driver

	"github.com/optyshop/schemarecon"
)

// OpenDB connects to the configured database and pings it. Any failure is a
// configuration error. A sqlite database file must already exist.
func OpenDB(ctx context.Context) (*sql.DB, schemarecon.Dialect, error) {
	return openConfigured(ctx, false)
}

// OpenOrCreateDB is like [OpenDB] but creates a missing sqlite database file,
// so that a target made only of CREATE_TABLE operations can start from
// nothing.
func OpenOrCreateDB(ctx context.Context) (*sql.DB, schemarecon.Dialect, error) {
	return openConfigured(ctx, true)
}

func openConfigured(ctx context.Context, create bool) (*sql.DB, schemarecon.Dialect, error) {
	dbVar := State.Database()
	if err := Validate(dbVar); err != nil {
		return nil, nil, err
	}
	return openDB(ctx, dbVar.Value(), create)
}

func openDB(ctx context.Context, dburl string, create bool) (*sql.DB, schemarecon.Dialect, error) {
	driverName, dsn, dialect, err := schemarecon.ParseDatabaseURL(dburl)
	if err != nil {
		return nil, nil, ConfigError(err)
	}
	switch dialect {
	case schemarecon.Postgres:
		dsn, err = setDefaultStatementCachingParameter(dsn)
	case schemarecon.SQLite:
		dsn, err = setSQLiteOpenMode(dsn, create)
	}
	if err != nil {
		return nil, nil, ConfigError(err)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, ConfigError(fmt.Errorf("open %s: %w", dialect.Name(), err))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, ConfigError(fmt.Errorf("connect to %s: %w", dialect.Name(), err))
	}
	return db, dialect, nil
}

// setSQLiteOpenMode turns a sqlite path into a "file:" URI, which is the only
// form whose query parameters go-sqlite3 hands to sqlite, and sets mode=rw
// (or mode=rwc when create is true) unless the user already chose a mode.
// In-memory databases are left alone.
func setSQLiteOpenMode(dsn string, create bool) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("sqlite database path is required")
	}
	if strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return dsn, nil
	}
	path, rawQuery, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("failed to parse sqlite parameters: %w", err)
	}
	if !query.Has("mode") {
		mode := "rw"
		if create {
			mode = "rwc"
		}
		query.Set("mode", mode)
	}
	return "file:" + path + "?" + query.Encode(), nil
}

// If the user has not explicitly specified a pgx statement caching parameter
// in their connection string, set it to "exec", which will work correctly
// even when connecting to bouncers/poolers like Pgbouncer. The default value
// pgx chooses is "cache_statement", which breaks when you connect to a
// pooler.
func setDefaultStatementCachingParameter(connstr string) (string, error) {
	eurl, err := url.Parse(connstr)
	if err != nil {
		return "", fmt.Errorf("failed to parse 'database' URL: %w", err)
	}
	query := eurl.Query()
	// https://pkg.go.dev/github.com/jackc/pgx/v5#QueryExecMode
	queryModeParam := "default_query_exec_mode"
	execModeValue := "exec"
	if !query.Has(queryModeParam) {
		query.Add(queryModeParam, execModeValue)
	}
	eurl.RawQuery = query.Encode()
	return eurl.String(), nil
}
