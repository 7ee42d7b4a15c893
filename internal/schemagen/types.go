package schemagen

import (
	"fmt"

	"github.com/mlahaye/graft/internal/ast"
)

// scalarTypes is the fixed kind → PostgreSQL type table.
var scalarTypes = map[ast.FieldKind]string{
	ast.FieldText:    "TEXT",
	ast.FieldInteger: "INTEGER",
	ast.FieldBoolean: "BOOLEAN",
}

// ColumnType maps a non-enum, non-reference field to its column type.
func ColumnType(f ast.FieldDefinition) (string, error) {
	switch f.Kind {
	case ast.FieldText, ast.FieldInteger, ast.FieldBoolean:
		return scalarTypes[f.Kind], nil
	case ast.FieldList:
		elem, ok := scalarTypes[f.Elem]
		if !ok {
			return "", fmt.Errorf("list element kind %q is not a scalar", f.Elem)
		}
		return elem + "[]", nil
	default:
		return "", fmt.Errorf("unknown field kind %q", f.Kind)
	}
}
