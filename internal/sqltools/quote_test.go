package sqltools_test

import (
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/optyshop/schemarecon/internal/sqltools"
)

func TestLiteral(t *testing.T) {
	t.Parallel()
	check.Equal(t, `'home'`, sqltools.Literal(`home`))
	check.Equal(t, `'''home'''`, sqltools.Literal(`'home'`))
	check.Equal(t, `'"home"'`, sqltools.Literal(`"home"`))
	check.Equal(t, ` E'C:\\\\banners'`, sqltools.Literal(`C:\\banners`))
	check.Equal(t, `'public.banners'`, sqltools.Literal(`public.banners`))
}

func TestIdentifier(t *testing.T) {
	t.Parallel()
	check.Equal(t, `banners`, sqltools.Identifier(`banners`))
	check.Equal(t, `shop.banners`, sqltools.Identifier(`shop.banners`))
	check.Equal(t, `shop.banners`, sqltools.Identifier(`shop`, `banners`))
	// reserved keywords are quoted
	check.Equal(t, `shop."order"`, sqltools.Identifier(`shop.order`))
	check.Equal(t, `"user"."user"`, sqltools.Identifier(`user`, `user`))
	// so is anything with upper-case characters or hyphens
	check.Equal(t, `"FlashOffers"`, sqltools.Identifier(`FlashOffers`))
	check.Equal(t, `"flash-offers"`, sqltools.Identifier(`flash-offers`))
	// embedded double quotes are doubled
	check.Equal(t, `"""quoted"""`, sqltools.Identifier(`"quoted"`))
	// single quotes are left alone
	check.Equal(t, `it's`, sqltools.Identifier(`it's`))
}

func TestParseTableName(t *testing.T) {
	t.Parallel()
	schema, tablename := sqltools.ParseTableName("banners")
	check.Equal(t, "", schema)
	check.Equal(t, "banners", tablename)

	schema, tablename = sqltools.ParseTableName("shop.banners")
	check.Equal(t, "shop", schema)
	check.Equal(t, "banners", tablename)

	schema, tablename = sqltools.ParseTableName(".banners")
	check.Equal(t, "", schema)
	check.Equal(t, "banners", tablename)

	schema, tablename = sqltools.ParseTableName("a.b.c")
	check.Equal(t, "a", schema)
	check.Equal(t, "b.c", tablename)
}

func TestMySQLIdentifier(t *testing.T) {
	t.Parallel()
	check.Equal(t, "`banners`", sqltools.MySQLIdentifier("banners"))
	check.Equal(t, "`shop`.`banners`", sqltools.MySQLIdentifier("shop.banners"))
	check.Equal(t, "`shop`.`banners`", sqltools.MySQLIdentifier("shop", "banners"))
	check.Equal(t, "`odd``name`", sqltools.MySQLIdentifier("odd`name"))
	check.Equal(t, "`order`", sqltools.MySQLIdentifier("order"))
}

func TestMySQLLiteral(t *testing.T) {
	t.Parallel()
	check.Equal(t, `'home'`, sqltools.MySQLLiteral(`home`))
	check.Equal(t, `'it''s'`, sqltools.MySQLLiteral(`it's`))
	check.Equal(t, `'a\\\\b'`, sqltools.MySQLLiteral(`a\\b`))
}

func TestSQLiteLiteral(t *testing.T) {
	t.Parallel()
	check.Equal(t, `'home'`, sqltools.SQLiteLiteral(`home`))
	check.Equal(t, `'it''s'`, sqltools.SQLiteLiteral(`it's`))
	check.Equal(t, `'a\b'`, sqltools.SQLiteLiteral(`a\b`))
}

func TestSQLiteIdentifier(t *testing.T) {
	t.Parallel()
	check.Equal(t, `"banners"`, sqltools.SQLiteIdentifier("banners"))
	check.Equal(t, `"shop.banners"`, sqltools.SQLiteIdentifier("shop.banners"))
	check.Equal(t, `"say ""hi"""`, sqltools.SQLiteIdentifier(`say "hi"`))
}
