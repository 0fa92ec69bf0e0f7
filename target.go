package schemarecon

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"

	"github.com/optyshop/schemarecon/internal/sqltools"
)

// OpKind identifies the kind of schema change an [Operation] makes.
type OpKind string

const (
	OpAddColumn     OpKind = "ADD_COLUMN"
	OpAddIndex      OpKind = "ADD_INDEX"
	OpAddForeignKey OpKind = "ADD_FOREIGN_KEY"
	OpCreateTable   OpKind = "CREATE_TABLE"
)

// Column describes a column to add, or a column of a table to create.
type Column struct {
	Name    string
	Type    string // the column type as the database spells it, `VARCHAR(50)`
	NotNull bool
	// Default is a raw SQL expression, `CURRENT_TIMESTAMP` or `0`. Empty
	// means no DEFAULT clause.
	Default string
	// DefaultValue is a string constant, quoted by the dialect. At most one of
	// Default and DefaultValue may be set.
	DefaultValue string
}

// Index describes an index on one or more columns of a table.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// ForeignKey describes a single-column foreign key constraint.
type ForeignKey struct {
	Name      string
	Column    string
	RefTable  string
	RefColumn string
	OnDelete  string // CASCADE, SET NULL, SET DEFAULT, RESTRICT, NO ACTION or empty
	OnUpdate  string // same choices as OnDelete
}

// Table is the full definition of a table created by [OpCreateTable].
type Table struct {
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
}

// Object names a table, or a column of a table, that must exist before an
// [Operation] can be applied.
type Object struct {
	Table  string
	Column string // empty when the object is the table itself
}

// TableRef is a precondition on the existence of a table.
func TableRef(table string) Object {
	return Object{Table: table}
}

// ColumnRef is a precondition on the existence of a column.
func ColumnRef(table, column string) Object {
	return Object{Table: table, Column: column}
}

func (o Object) String() string {
	if o.Column == "" {
		return o.Table
	}
	return o.Table + "." + o.Column
}

// Check is a query that returns exactly one row with one boolean column. It is
// used to override the dialect's default existence predicate of an
// [Operation].
type Check struct {
	Query string
	Args  []any
}

// Operation is a single additive schema change. Exactly one of Column, Index,
// ForeignKey and Create is set, matching Kind.
type Operation struct {
	Kind       OpKind
	Table      string
	Column     *Column
	Index      *Index
	ForeignKey *ForeignKey
	Create     *Table
	// Requires lists objects that must exist before this operation runs, in
	// addition to the ones implied by its definition.
	Requires []Object
	// Exists overrides the dialect's existence predicate for this operation.
	Exists *Check
}

// AddColumn returns an operation adding col to table.
func AddColumn(table string, col Column) Operation {
	return Operation{Kind: OpAddColumn, Table: table, Column: &col}
}

// AddIndex returns an operation creating idx on table.
func AddIndex(table string, idx Index) Operation {
	return Operation{Kind: OpAddIndex, Table: table, Index: &idx}
}

// AddForeignKey returns an operation adding fk to table.
func AddForeignKey(table string, fk ForeignKey) Operation {
	return Operation{Kind: OpAddForeignKey, Table: table, ForeignKey: &fk}
}

// CreateTable returns an operation creating the table name.
func CreateTable(name string, def Table) Operation {
	return Operation{Kind: OpCreateTable, Table: name, Create: &def}
}

// Requiring returns a copy of the operation with extra preconditions.
func (op Operation) Requiring(objects ...Object) Operation {
	op.Requires = append(append([]Object(nil), op.Requires...), objects...)
	return op
}

// ExistsWhen returns a copy of the operation whose existence predicate is the
// given query instead of the dialect's default.
func (op Operation) ExistsWhen(query string, args ...any) Operation {
	op.Exists = &Check{Query: query, Args: args}
	return op
}

// ObjectName is the name of the object the operation creates.
func (op Operation) ObjectName() string {
	switch op.Kind {
	case OpAddColumn:
		if op.Column != nil {
			return op.Column.Name
		}
	case OpAddIndex:
		if op.Index != nil {
			return op.Index.Name
		}
	case OpAddForeignKey:
		if op.ForeignKey != nil {
			return op.ForeignKey.Name
		}
	case OpCreateTable:
		return op.Table
	}
	return ""
}

// String identifies the operation, `ADD_COLUMN banners.page_type`.
func (op Operation) String() string {
	if op.Kind == OpCreateTable {
		return fmt.Sprintf("%s %s", op.Kind, op.Table)
	}
	return fmt.Sprintf("%s %s.%s", op.Kind, op.Table, op.ObjectName())
}

// Preconditions returns every object that must exist before the operation is
// applied: the ones implied by its definition followed by Requires.
func (op Operation) Preconditions() []Object {
	var objects []Object
	switch op.Kind {
	case OpAddColumn:
		objects = append(objects, TableRef(op.Table))
	case OpAddIndex:
		objects = append(objects, TableRef(op.Table))
		if op.Index != nil {
			for _, col := range op.Index.Columns {
				objects = append(objects, ColumnRef(op.Table, col))
			}
		}
	case OpAddForeignKey:
		if op.ForeignKey != nil {
			objects = append(objects,
				ColumnRef(op.Table, op.ForeignKey.Column),
				ColumnRef(op.ForeignKey.RefTable, op.ForeignKey.RefColumn),
			)
		}
	case OpCreateTable:
		if op.Create != nil {
			for _, fk := range op.Create.ForeignKeys {
				if fk.RefTable == op.Table {
					continue
				}
				objects = append(objects, ColumnRef(fk.RefTable, fk.RefColumn))
			}
		}
	}
	return append(objects, op.Requires...)
}

// definition is the canonical description of the operation used to compute
// the checksum of a [Target].
func (op Operation) definition() string {
	var b strings.Builder
	b.WriteString(op.String())
	switch {
	case op.Column != nil:
		b.WriteString(" " + columnDefinition(*op.Column))
	case op.Index != nil:
		fmt.Fprintf(&b, " (%s) unique=%t", strings.Join(op.Index.Columns, ","), op.Index.Unique)
	case op.ForeignKey != nil:
		b.WriteString(" " + foreignKeyDefinition(*op.ForeignKey))
	case op.Create != nil:
		for _, col := range op.Create.Columns {
			b.WriteString(" " + columnDefinition(col) + ";")
		}
		fmt.Fprintf(&b, " pk(%s)", strings.Join(op.Create.PrimaryKey, ","))
		for _, fk := range op.Create.ForeignKeys {
			b.WriteString(" " + foreignKeyDefinition(fk) + ";")
		}
	}
	for _, obj := range op.Requires {
		b.WriteString(" requires " + obj.String())
	}
	if op.Exists != nil {
		fmt.Fprintf(&b, " exists %q %v", op.Exists.Query, op.Exists.Args)
	}
	return b.String()
}

func columnDefinition(col Column) string {
	def := fmt.Sprintf("%s %s", col.Name, col.Type)
	if col.NotNull {
		def += " NOT NULL"
	}
	if col.Default != "" {
		def += " DEFAULT " + col.Default
	}
	if col.DefaultValue != "" {
		def += " DEFAULT " + sqltools.Literal(col.DefaultValue)
	}
	return def
}

func foreignKeyDefinition(fk ForeignKey) string {
	def := fmt.Sprintf("%s (%s) -> %s (%s)", fk.Name, fk.Column, fk.RefTable, fk.RefColumn)
	if fk.OnDelete != "" {
		def += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		def += " ON UPDATE " + fk.OnUpdate
	}
	return def
}

// Target is a named, ordered set of additive schema operations. Operations
// are applied in the order they are declared: columns before indexes that
// reference them, tables before foreign keys that reference them.
type Target struct {
	// Name is the unique key of the target in the ledger. Historical names are
	// kept verbatim so that existing ledger rows keep matching.
	Name       string
	Operations []Operation
}

// Checksum computes the MD5 hash of the canonical description of every
// operation in the target. It is stored in the ledger when the target is
// applied so that later edits to a target can be detected.
func (t Target) Checksum() string {
	h := md5.New()
	for _, op := range t.Operations {
		_, _ = h.Write([]byte(op.definition()))
		_, _ = h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Validate reports structural problems with the target before any statement
// reaches the database. The returned error matches [ErrMalformedOperation].
func (t Target) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return &OperationError{Kind: MalformedOperation, Err: fmt.Errorf("target has no name")}
	}
	if len(t.Operations) == 0 {
		return &OperationError{Target: t.Name, Kind: MalformedOperation, Err: fmt.Errorf("target has no operations")}
	}
	seen := make(map[string]int, len(t.Operations))
	for i, op := range t.Operations {
		if err := op.validate(); err != nil {
			return &OperationError{Target: t.Name, Operation: op, Kind: MalformedOperation, Err: fmt.Errorf("step %d: %w", i+1, err)}
		}
		key := strings.ToLower(op.String())
		if prev, ok := seen[key]; ok {
			return &OperationError{Target: t.Name, Operation: op, Kind: MalformedOperation, Err: fmt.Errorf("step %d duplicates step %d", i+1, prev+1)}
		}
		seen[key] = i
	}
	return nil
}

func (op Operation) validate() error {
	if op.Table == "" {
		return fmt.Errorf("%s: missing table name", op.Kind)
	}
	set := 0
	for _, present := range []bool{op.Column != nil, op.Index != nil, op.ForeignKey != nil, op.Create != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%s %s: exactly one definition must be set, found %d", op.Kind, op.Table, set)
	}
	switch op.Kind {
	case OpAddColumn:
		if op.Column == nil {
			return fmt.Errorf("%s %s: missing column definition", op.Kind, op.Table)
		}
		return validateColumn(*op.Column)
	case OpAddIndex:
		if op.Index == nil {
			return fmt.Errorf("%s %s: missing index definition", op.Kind, op.Table)
		}
		if op.Index.Name == "" {
			return fmt.Errorf("%s %s: index has no name", op.Kind, op.Table)
		}
		if len(op.Index.Columns) == 0 {
			return fmt.Errorf("%s %s: index %s has no columns", op.Kind, op.Table, op.Index.Name)
		}
	case OpAddForeignKey:
		if op.ForeignKey == nil {
			return fmt.Errorf("%s %s: missing foreign key definition", op.Kind, op.Table)
		}
		return validateForeignKey(*op.ForeignKey)
	case OpCreateTable:
		if op.Create == nil {
			return fmt.Errorf("%s %s: missing table definition", op.Kind, op.Table)
		}
		if len(op.Create.Columns) == 0 {
			return fmt.Errorf("%s %s: table has no columns", op.Kind, op.Table)
		}
		names := map[string]bool{}
		for _, col := range op.Create.Columns {
			if err := validateColumn(col); err != nil {
				return fmt.Errorf("%s %s: %w", op.Kind, op.Table, err)
			}
			names[col.Name] = true
		}
		for _, pk := range op.Create.PrimaryKey {
			if !names[pk] {
				return fmt.Errorf("%s %s: primary key column %s is not defined", op.Kind, op.Table, pk)
			}
		}
		for _, fk := range op.Create.ForeignKeys {
			if err := validateForeignKey(fk); err != nil {
				return fmt.Errorf("%s %s: %w", op.Kind, op.Table, err)
			}
			if !names[fk.Column] {
				return fmt.Errorf("%s %s: foreign key column %s is not defined", op.Kind, op.Table, fk.Column)
			}
		}
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
	return nil
}

func validateColumn(col Column) error {
	if col.Name == "" {
		return fmt.Errorf("column has no name")
	}
	if col.Type == "" {
		return fmt.Errorf("column %s has no type", col.Name)
	}
	if col.Default != "" && col.DefaultValue != "" {
		return fmt.Errorf("column %s has both a default expression and a default value", col.Name)
	}
	return nil
}

var referentialActions = map[string]bool{
	"":            true,
	"CASCADE":     true,
	"SET NULL":    true,
	"SET DEFAULT": true,
	"RESTRICT":    true,
	"NO ACTION":   true,
}

func validateForeignKey(fk ForeignKey) error {
	if fk.Name == "" {
		return fmt.Errorf("foreign key on %s has no name", fk.Column)
	}
	if fk.Column == "" || fk.RefTable == "" || fk.RefColumn == "" {
		return fmt.Errorf("foreign key %s must name a column, a referenced table and a referenced column", fk.Name)
	}
	if !referentialActions[strings.ToUpper(fk.OnDelete)] {
		return fmt.Errorf("foreign key %s: unknown ON DELETE action %q", fk.Name, fk.OnDelete)
	}
	if !referentialActions[strings.ToUpper(fk.OnUpdate)] {
		return fmt.Errorf("foreign key %s: unknown ON UPDATE action %q", fk.Name, fk.OnUpdate)
	}
	return nil
}

// SortByName sorts targets in ascending lexicographical order by name, which
// for timestamp-prefixed names is the order they were authored in.
func SortByName(targets []Target) {
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Name < targets[j].Name
	})
}
