package sqltools

import (
	"fmt"
	"strings"
)

// Literal and Identifier are derived almost exactly from lib/pq, which is
// released under the MIT License.
// https://github.com/lib/pq
//
// Copyright (c) 2011-2013, 'pq' Contributors Portions Copyright (C) 2011 Blake
// Mizerany
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Literal quotes a 'literal' (e.g. a default value in a column definition) to
// be used as part of a Postgres or SQLite statement.
//
// Any single quotes in name will be escaped. Any backslashes (i.e. "\") will be
// replaced by two backslashes (i.e. "\\") and the C-style escape identifier
// that PostgreSQL provides ('E') will be prepended to the string.
func Literal(literal string) string {
	literal = strings.ReplaceAll(literal, `'`, `''`)
	if strings.Contains(literal, `\`) {
		literal = strings.ReplaceAll(literal, `\`, `\\`)
		literal = ` E'` + literal + `'`
	} else {
		literal = `'` + literal + `'`
	}
	return literal
}

// Identifier quotes a Postgres identifier (a table, a column, an index, a
// constraint, a schema) for use in a DDL statement defining or referencing
// that object. It will return the same identifier if possible, only
// introducing quotes or modifications when:
//
//   - the identifier has an upper-case character
//   - the identifier has a hyphen
//   - the identifier is a reserved keyword in PostgreSQL
//
// For convenience, Identifier allows you to pass the parts of a fully-qualified
// "dotted" identifier, or a single un-split dotted identifier.
func Identifier(parts ...string) string {
	if len(parts) == 1 {
		parts = strings.Split(parts[0], ".")
	}
	out := make([]string, 0, len(parts))
	for _, identifier := range parts {
		if requiresQuoting(identifier) {
			identifier = fmt.Sprintf(`"%s"`, strings.ReplaceAll(identifier, `"`, `""`))
		}
		out = append(out, identifier)
	}
	return strings.Join(out, ".")
}

func requiresQuoting(identifier string) bool {
	lowered := strings.ToLower(identifier)
	if lowered != identifier {
		return true
	}
	if _, ok := postgresKeywords[lowered]; ok {
		return true
	}
	if strings.ContainsRune(lowered, '"') {
		return true
	}
	if strings.ContainsRune(lowered, '-') {
		return true
	}
	return false
}

// MySQLIdentifier quotes every part of a (possibly dotted) identifier with
// backticks, doubling any embedded backtick.
func MySQLIdentifier(parts ...string) string {
	if len(parts) == 1 {
		parts = strings.Split(parts[0], ".")
	}
	out := make([]string, 0, len(parts))
	for _, identifier := range parts {
		out = append(out, "`"+strings.ReplaceAll(identifier, "`", "``")+"`")
	}
	return strings.Join(out, ".")
}

// MySQLLiteral quotes a string literal for MySQL running with the default
// sql_mode, where backslash is an escape character.
func MySQLLiteral(literal string) string {
	literal = strings.ReplaceAll(literal, `\`, `\\`)
	literal = strings.ReplaceAll(literal, `'`, `''`)
	return `'` + literal + `'`
}

// SQLiteLiteral quotes a string literal for SQLite, which has no backslash
// escapes.
func SQLiteLiteral(literal string) string {
	return `'` + strings.ReplaceAll(literal, `'`, `''`) + `'`
}

// SQLiteIdentifier always double-quotes the identifier. SQLite has no schemas
// in the Postgres sense, so dots are kept as part of the name.
func SQLiteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// ParseTableName splits a possibly schema-qualified table name into its
// schema and table parts. An unqualified name returns an empty schema, which
// callers resolve to the connection's current schema or database.
func ParseTableName(name string) (string, string) {
	schema, table, found := strings.Cut(name, ".")
	if !found {
		return "", schema
	}
	return schema, table
}
