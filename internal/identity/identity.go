package identity

import (
	"fmt"

	"github.com/mlahaye/graft/internal/ast"
)

// Naming convention constants. These are fixed, not configurable: the whole
// pipeline depends on every component agreeing on them.
const (
	// TablePrefix prefixes every entity table name.
	TablePrefix = "tb_"

	// PKPrefix prefixes the surrogate key column name.
	PKPrefix = "pk_"

	// FKPrefix prefixes foreign key column names.
	FKPrefix = "fk_"

	// IDColumn is the stable external identifier column (UUID).
	IDColumn = "id"

	// SlugColumn is the human-readable identifier column.
	SlugColumn = "identifier"

	// Audit and soft-delete columns stamped on every table.
	CreatedAtColumn = "created_at"
	UpdatedAtColumn = "updated_at"
	UpdatedByColumn = "updated_by"
	DeletedAtColumn = "deleted_at"
)

// AuditColumns lists the four audit/soft-delete columns in emission order.
func AuditColumns() []string {
	return []string{CreatedAtColumn, UpdatedAtColumn, UpdatedByColumn, DeletedAtColumn}
}

// CompiledIdentity holds every derived name for one entity. Values are
// immutable once resolved; downstream components copy them freely.
type CompiledIdentity struct {
	// Entity is the model-level entity name (e.g. "Contact").
	Entity string

	// Schema is the lower-cased owning namespace (e.g. "crm").
	Schema string

	// Table is the unqualified table name (e.g. "tb_contact").
	Table string

	// PKColumn is the surrogate integer key column (e.g. "pk_contact").
	PKColumn string

	// IDColumn is the stable external identifier column, always "id".
	IDColumn string

	// SlugColumn is the human-readable identifier column, always "identifier".
	SlugColumn string
}

// Qualified returns the schema-qualified table name.
func (ci CompiledIdentity) Qualified() string {
	return ci.Schema + "." + ci.Table
}

// PKHelper returns the qualified name of the identity-resolution function
// that converts an external identifier into the surrogate key.
func (ci CompiledIdentity) PKHelper() string {
	return fmt.Sprintf("%s.%s_pk", ci.Schema, slugify(ci.Entity))
}

// IDHelper returns the qualified name of the reverse helper that converts a
// surrogate key into the stable external identifier.
func (ci CompiledIdentity) IDHelper() string {
	return fmt.Sprintf("%s.%s_id", ci.Schema, slugify(ci.Entity))
}

// FunctionName returns the qualified function name for an action.
func (ci CompiledIdentity) FunctionName(action string) string {
	return ci.Schema + "." + slugify(action)
}

// ColumnFor returns the physical column name for a model field: reference
// fields live in fk_-prefixed integer columns, everything else keeps the
// field name.
func (ci CompiledIdentity) ColumnFor(f ast.FieldDefinition) string {
	if f.Kind == ast.FieldReference {
		return FKPrefix + slugify(f.Name)
	}
	return slugify(f.Name)
}

// Resolve derives the CompiledIdentity for an entity. It is total over any
// syntactically valid entity name and deterministic: the same input always
// yields the same names. Business-semantic validation (duplicate collisions
// across entities) happens at assembly, not here.
func Resolve(e ast.Entity) CompiledIdentity {
	name := slugify(e.Name)
	return CompiledIdentity{
		Entity:     e.Name,
		Schema:     slugify(e.Namespace),
		Table:      TablePrefix + name,
		PKColumn:   PKPrefix + name,
		IDColumn:   IDColumn,
		SlugColumn: SlugColumn,
	}
}
