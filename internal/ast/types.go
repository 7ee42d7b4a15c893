package ast

// FieldKind identifies the storage kind of an entity field.
type FieldKind string

const (
	FieldText      FieldKind = "text"
	FieldInteger   FieldKind = "integer"
	FieldBoolean   FieldKind = "boolean"
	FieldEnum      FieldKind = "enum"
	FieldReference FieldKind = "reference"
	FieldList      FieldKind = "list"
)

// ScalarKinds are the kinds allowed as list element types.
var ScalarKinds = map[FieldKind]bool{
	FieldText:    true,
	FieldInteger: true,
	FieldBoolean: true,
}

// Entity is one business entity: fields plus ordered business actions.
type Entity struct {
	Name        string            `yaml:"name" json:"name"`
	Namespace   string            `yaml:"namespace" json:"namespace"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      []FieldDefinition `yaml:"fields" json:"fields"`
	Actions     []Action          `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Field returns the field definition with the given name, if present.
func (e Entity) Field(name string) (FieldDefinition, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// ActionNamed returns the action with the given name, if present.
func (e Entity) ActionNamed(name string) (Action, bool) {
	for _, a := range e.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// FieldDefinition describes one entity field.
type FieldDefinition struct {
	Name        string    `yaml:"name" json:"name"`
	Kind        FieldKind `yaml:"kind" json:"kind"`
	Required    bool      `yaml:"required,omitempty" json:"required,omitempty"`
	Default     string    `yaml:"default,omitempty" json:"default,omitempty"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`

	// Values is the ordered value set for enum fields.
	Values []string `yaml:"values,omitempty" json:"values,omitempty"`

	// Ref names the referenced entity for reference fields.
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`

	// Elem is the element kind for list fields. Must be a scalar kind.
	Elem FieldKind `yaml:"elem,omitempty" json:"elem,omitempty"`
}

// Action is one named business action: an ordered, non-empty step list with
// an optional authorization predicate and an optional impact declaration.
type Action struct {
	Name        string             `yaml:"name" json:"name"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Requires    string             `yaml:"requires,omitempty" json:"requires,omitempty"`
	Steps       Steps              `yaml:"steps" json:"steps"`
	Impact      *ImpactDeclaration `yaml:"impact,omitempty" json:"impact,omitempty"`
}

// Assignment binds one field (or call argument) to an expression.
// The expression is written in the compiler's condition language and is
// translated to SQL by the action compiler; it is never interpolated raw.
type Assignment struct {
	Field string `yaml:"field" json:"field"`
	Value string `yaml:"value" json:"value"`
}

// ImpactDeclaration is the author-written description of what an action is
// expected to change. It is static documentation input: the compiled function
// reports the actually observed side effects alongside it, and the two may
// legitimately diverge at runtime.
type ImpactDeclaration struct {
	Primary            EntityImpact        `yaml:"primary" json:"primary"`
	SideEffects        []SideEffectImpact  `yaml:"side_effects,omitempty" json:"side_effects,omitempty"`
	CacheInvalidations []CacheInvalidation `yaml:"cache_invalidations,omitempty" json:"cache_invalidations,omitempty"`
	Idempotent         bool                `yaml:"idempotent,omitempty" json:"idempotent,omitempty"`
	OptimisticSafe     bool                `yaml:"optimistic_safe,omitempty" json:"optimistic_safe,omitempty"`
}

// EntityImpact describes the effect of an action on one entity.
type EntityImpact struct {
	Entity    string   `yaml:"entity" json:"entity"`
	Operation string   `yaml:"operation" json:"operation"` // CREATE, UPDATE, DELETE
	Fields    []string `yaml:"fields,omitempty" json:"fields,omitempty"`
	Relations []string `yaml:"relations,omitempty" json:"relations,omitempty"`
}

// SideEffectImpact is an entity impact recorded under a named result
// collection (e.g. createdNotifications).
type SideEffectImpact struct {
	EntityImpact `yaml:",inline"`
	Collection   string `yaml:"collection,omitempty" json:"collection,omitempty"`
}

// CacheInvalidation is a client cache-invalidation hint.
type CacheInvalidation struct {
	Query    string            `yaml:"query" json:"query"`
	Filter   map[string]string `yaml:"filter,omitempty" json:"filter,omitempty"`
	Strategy string            `yaml:"strategy,omitempty" json:"strategy,omitempty"` // REFETCH, REMOVE, UPDATE
}

// ValidStrategies defines the allowed cache invalidation strategies.
var ValidStrategies = map[string]bool{
	"REFETCH": true,
	"REMOVE":  true,
	"UPDATE":  true,
}

// ValidOperations defines the allowed impact operation kinds.
var ValidOperations = map[string]bool{
	"CREATE": true,
	"UPDATE": true,
	"DELETE": true,
	"NOOP":   true,
}
