package schemarecon

import (
	"fmt"
	"strings"
)

// ddl renders the statements shared by every dialect. Only quoting differs
// between engines for these four kinds.
type ddl struct {
	quote   func(string) string
	literal func(string) string
}

func (d ddl) render(op Operation) (string, error) {
	switch op.Kind {
	case OpAddColumn:
		if op.Column == nil {
			break
		}
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.quote(op.Table), d.column(*op.Column)), nil
	case OpAddIndex:
		if op.Index == nil {
			break
		}
		unique := ""
		if op.Index.Unique {
			unique = "UNIQUE "
		}
		return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
			unique, d.quote(op.Index.Name), d.quote(op.Table), d.list(op.Index.Columns),
		), nil
	case OpAddForeignKey:
		if op.ForeignKey == nil {
			break
		}
		return fmt.Sprintf("ALTER TABLE %s ADD %s", d.quote(op.Table), d.foreignKey(*op.ForeignKey)), nil
	case OpCreateTable:
		if op.Create == nil {
			break
		}
		var defs []string
		for _, col := range op.Create.Columns {
			defs = append(defs, d.column(col))
		}
		if len(op.Create.PrimaryKey) > 0 {
			defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", d.list(op.Create.PrimaryKey)))
		}
		for _, fk := range op.Create.ForeignKeys {
			defs = append(defs, d.foreignKey(fk))
		}
		return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", d.quote(op.Table), strings.Join(defs, ",\n\t")), nil
	default:
		return "", fmt.Errorf("unknown operation kind %q", op.Kind)
	}
	return "", fmt.Errorf("%s %s: missing definition", op.Kind, op.Table)
}

func (d ddl) column(col Column) string {
	def := fmt.Sprintf("%s %s", d.quote(col.Name), col.Type)
	if col.NotNull {
		def += " NOT NULL"
	}
	if col.Default != "" {
		def += " DEFAULT " + col.Default
	}
	if col.DefaultValue != "" {
		def += " DEFAULT " + d.literal(col.DefaultValue)
	}
	return def
}

func (d ddl) foreignKey(fk ForeignKey) string {
	def := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.quote(fk.Name), d.quote(fk.Column), d.quote(fk.RefTable), d.quote(fk.RefColumn),
	)
	if fk.OnDelete != "" {
		def += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		def += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
	}
	return def
}

func (d ddl) list(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, d.quote(name))
	}
	return strings.Join(quoted, ", ")
}

// objectName returns the name the dialect's catalog queries match against for
// an operation, or an error if the operation has no definition.
func objectName(op Operation) (string, error) {
	name := op.ObjectName()
	if name == "" {
		return "", fmt.Errorf("%s %s: missing definition", op.Kind, op.Table)
	}
	return name, nil
}
