package schemagen

import (
	"fmt"
	"strings"
)

// DDL renders the table as ordered, idempotent statements: schema, table
// (with inline constraints), then one index statement per index. Iteration
// follows the model's field order throughout, so rendering is deterministic.
func (t *Table) DDL() string {
	var b strings.Builder

	fmt.Fprintf(&b, "CREATE SCHEMA IF NOT EXISTS %s;\n\n", t.Identity.Schema)

	if t.Description != "" {
		fmt.Fprintf(&b, "-- %s\n", t.Description)
	}
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Identity.Qualified())

	lines := make([]string, 0, len(t.Columns)+len(t.Constraints))
	for _, col := range t.Columns {
		lines = append(lines, "    "+columnDef(col))
	}
	for _, cons := range t.Constraints {
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s %s", cons.Name, cons.Clause))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n);\n")

	for _, idx := range t.Indexes {
		fmt.Fprintf(&b, "\nCREATE INDEX IF NOT EXISTS %s ON %s (%s);\n",
			idx.Name, t.Identity.Qualified(), idx.Column)
	}

	return b.String()
}

func columnDef(col Column) string {
	def := col.Name + " " + col.Type
	if col.NotNull {
		def += " NOT NULL"
	}
	if col.Default != "" {
		def += " DEFAULT " + col.Default
	}
	return def
}
