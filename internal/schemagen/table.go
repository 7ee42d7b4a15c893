package schemagen

import (
	"fmt"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
	"github.com/mlahaye/graft/internal/sqlexpr"
)

// Table is the typed shape of one generated table, rendered to DDL last.
type Table struct {
	Identity    identity.CompiledIdentity
	Description string
	Columns     []Column
	Constraints []Constraint
	Indexes     []Index
}

// Column is one column definition.
type Column struct {
	Name    string
	Type    string
	NotNull bool
	Default string // SQL expression, empty for none
}

// Constraint is one named table constraint.
type Constraint struct {
	Name   string
	Clause string // everything after "CONSTRAINT <name> "
}

// Index is one single-column index.
type Index struct {
	Name   string
	Column string
}

// Compiler translates entities into Table models. It reads identities from
// the shared registry and never re-derives names.
type Compiler struct {
	reg *identity.Registry
}

// New creates a schema compiler over a resolved registry.
func New(reg *identity.Registry) *Compiler {
	return &Compiler{reg: reg}
}

// Compile builds the Table model for one entity.
//
// Compile-time failures: a duplicate field name (DUPLICATE_FIELD) and a
// reference to an entity outside the compilation input
// (UNKNOWN_ENTITY_REFERENCE). This component emits text only; it has no
// runtime failure modes.
func (c *Compiler) Compile(e ast.Entity) (*Table, error) {
	ci, ok := c.reg.Lookup(e.Name)
	if !ok {
		return nil, &ast.CompileError{
			Code:    ast.ErrCodeUnknownEntityReference,
			Entity:  e.Name,
			Message: "entity is not part of the compilation input",
		}
	}

	t := &Table{
		Identity:    ci,
		Description: e.Description,
	}

	// Identity columns always come first.
	t.Columns = append(t.Columns,
		Column{Name: ci.PKColumn, Type: "INTEGER GENERATED ALWAYS AS IDENTITY", NotNull: false},
		Column{Name: ci.IDColumn, Type: "UUID", NotNull: true, Default: "gen_random_uuid()"},
		Column{Name: ci.SlugColumn, Type: "TEXT"},
	)
	t.Constraints = append(t.Constraints,
		Constraint{Name: "pk_" + ci.Table, Clause: fmt.Sprintf("PRIMARY KEY (%s)", ci.PKColumn)},
		Constraint{Name: "uq_" + ci.Table + "_" + ci.IDColumn, Clause: fmt.Sprintf("UNIQUE (%s)", ci.IDColumn)},
	)

	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if seen[f.Name] {
			return nil, &ast.CompileError{
				Code:    ast.ErrCodeDuplicateField,
				Entity:  e.Name,
				Field:   f.Name,
				Message: "duplicate field name",
			}
		}
		seen[f.Name] = true

		if err := c.compileField(t, e, f); err != nil {
			return nil, err
		}
	}

	// Audit and soft-delete columns always come last.
	t.Columns = append(t.Columns,
		Column{Name: identity.CreatedAtColumn, Type: "TIMESTAMPTZ", NotNull: true, Default: "now()"},
		Column{Name: identity.UpdatedAtColumn, Type: "TIMESTAMPTZ", NotNull: true, Default: "now()"},
		Column{Name: identity.UpdatedByColumn, Type: "UUID"},
		Column{Name: identity.DeletedAtColumn, Type: "TIMESTAMPTZ"},
	)

	return t, nil
}

func (c *Compiler) compileField(t *Table, e ast.Entity, f ast.FieldDefinition) error {
	ci := t.Identity
	column := ci.ColumnFor(f)

	col := Column{Name: column, NotNull: f.Required}

	switch f.Kind {
	case ast.FieldReference:
		target, ok := c.reg.Lookup(f.Ref)
		if !ok {
			return &ast.CompileError{
				Code:    ast.ErrCodeUnknownEntityReference,
				Entity:  e.Name,
				Field:   f.Name,
				Message: fmt.Sprintf("reference to unknown entity %q", f.Ref),
			}
		}
		// The foreign key column type matches the referenced surrogate key.
		col.Type = "INTEGER"
		t.Constraints = append(t.Constraints, Constraint{
			Name: "fk_" + ci.Table + "_" + identity.Slugify(f.Name),
			Clause: fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
				column, target.Qualified(), target.PKColumn),
		})
		t.Indexes = append(t.Indexes, Index{
			Name:   "idx_" + ci.Table + "_" + column,
			Column: column,
		})

	case ast.FieldEnum:
		col.Type = "TEXT"
		t.Constraints = append(t.Constraints, Constraint{
			Name:   "chk_" + ci.Table + "_" + column,
			Clause: fmt.Sprintf("CHECK (%s IN (%s))", column, enumList(f.Values)),
		})
		// Enumerated columns are read-heavy filter targets.
		t.Indexes = append(t.Indexes, Index{
			Name:   "idx_" + ci.Table + "_" + column,
			Column: column,
		})

	default:
		sqlType, err := ColumnType(f)
		if err != nil {
			return &ast.CompileError{
				Code:    ast.ErrCodeInvalidModel,
				Entity:  e.Name,
				Field:   f.Name,
				Message: err.Error(),
			}
		}
		col.Type = sqlType
	}

	if f.Default != "" {
		def, err := sqlexpr.CompileLiteral(f.Default)
		if err != nil {
			return &ast.CompileError{
				Code:    ast.ErrCodeInvalidExpression,
				Entity:  e.Name,
				Field:   f.Name,
				Message: fmt.Sprintf("default: %v", err),
			}
		}
		col.Default = def
	}

	t.Columns = append(t.Columns, col)
	return nil
}

func enumList(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += sqlexpr.QuoteLiteral(v)
	}
	return out
}
