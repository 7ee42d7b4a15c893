package annotate

import (
	"fmt"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"

	"github.com/mlahaye/graft/internal/actiongen"
	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
)

// scalarExternal is the fixed kind → external type table.
var scalarExternal = map[ast.FieldKind]string{
	ast.FieldText:    "String",
	ast.FieldInteger: "Int",
	ast.FieldBoolean: "Boolean",
}

// Annotator derives annotations and mutation documents for entities.
type Annotator struct {
	reg     *identity.Registry
	actions *actiongen.Compiler
}

// NewAnnotator creates an annotator over a resolved registry.
func NewAnnotator(reg *identity.Registry) *Annotator {
	return &Annotator{reg: reg, actions: actiongen.New(reg)}
}

// ExternalName converts a model field or action name to its external
// lowerCamel form.
func ExternalName(name string) string {
	return inflect.CamelizeDownFirst(identity.Slugify(name))
}

// MutationName is the external mutation name for an action.
func MutationName(action string) string {
	return ExternalName(action)
}

// MutationID derives a stable UUID for an action function, so external
// tooling can track a mutation across regenerated migrations.
func MutationID(ci identity.CompiledIdentity, action string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(ci.FunctionName(action))).String()
}

// Annotate builds the annotation set for one entity: the table's external
// type, every exposed column's external field, the identity helper pair, and
// one mutation record per action. The surrogate key and audit columns stay
// internal.
func (a *Annotator) Annotate(e ast.Entity) ([]Annotation, error) {
	ci, ok := a.reg.Lookup(e.Name)
	if !ok {
		return nil, &ast.CompileError{
			Code:    ast.ErrCodeUnknownEntityReference,
			Entity:  e.Name,
			Message: "entity is not part of the compilation input",
		}
	}

	anns := []Annotation{
		{
			Target: "TABLE " + ci.Qualified(),
			Kind:   "type",
			Body:   TypeBody{Name: e.Name, Namespace: ci.Schema, Description: e.Description},
		},
		{
			Target: fmt.Sprintf("COLUMN %s.%s", ci.Qualified(), ci.IDColumn),
			Kind:   "field",
			Body:   FieldBody{Name: "id", Type: "ID!"},
		},
		{
			Target: fmt.Sprintf("COLUMN %s.%s", ci.Qualified(), ci.SlugColumn),
			Kind:   "field",
			Body:   FieldBody{Name: "identifier", Type: "String"},
		},
	}

	for _, f := range e.Fields {
		body, err := a.fieldBody(e, f)
		if err != nil {
			return nil, err
		}
		anns = append(anns, Annotation{
			Target: fmt.Sprintf("COLUMN %s.%s", ci.Qualified(), ci.ColumnFor(f)),
			Kind:   "field",
			Body:   body,
		})
	}

	anns = append(anns,
		Annotation{
			Target: "FUNCTION " + ci.PKHelper(),
			Kind:   "helper",
			Body:   HelperBody{Entity: e.Name, Converts: "TEXT -> INTEGER"},
		},
		Annotation{
			Target: "FUNCTION " + ci.IDHelper(),
			Kind:   "helper",
			Body:   HelperBody{Entity: e.Name, Converts: "INTEGER -> UUID"},
		},
	)

	for _, act := range e.Actions {
		anns = append(anns, Annotation{
			Target: "FUNCTION " + ci.FunctionName(act.Name),
			Kind:   "mutation",
			Body: MutationBody{
				Name:   MutationName(act.Name),
				Entity: e.Name,
				ID:     MutationID(ci, act.Name),
			},
		})
	}
	return anns, nil
}

func (a *Annotator) fieldBody(e ast.Entity, f ast.FieldDefinition) (FieldBody, error) {
	t, err := a.externalType(e, f)
	if err != nil {
		return FieldBody{}, err
	}
	if f.Required {
		t += "!"
	}
	body := FieldBody{Name: ExternalName(f.Name), Type: t}
	if f.Kind == ast.FieldEnum {
		body.Values = f.Values
	}
	if f.Kind == ast.FieldReference {
		body.Cardinality = "many_to_one"
	}
	return body, nil
}

func (a *Annotator) externalType(e ast.Entity, f ast.FieldDefinition) (string, error) {
	switch f.Kind {
	case ast.FieldText, ast.FieldInteger, ast.FieldBoolean:
		return scalarExternal[f.Kind], nil
	case ast.FieldEnum:
		return "String", nil
	case ast.FieldList:
		elem, ok := scalarExternal[f.Elem]
		if !ok {
			return "", &ast.CompileError{
				Code:    ast.ErrCodeInvalidModel,
				Entity:  e.Name,
				Field:   f.Name,
				Message: fmt.Sprintf("list element kind %q is not a scalar", f.Elem),
			}
		}
		return "[" + elem + "]", nil
	case ast.FieldReference:
		if _, ok := a.reg.Lookup(f.Ref); !ok {
			return "", &ast.CompileError{
				Code:    ast.ErrCodeUnknownEntityReference,
				Entity:  e.Name,
				Field:   f.Name,
				Message: fmt.Sprintf("reference to unknown entity %q", f.Ref),
			}
		}
		return f.Ref, nil
	default:
		return "", &ast.CompileError{
			Code:    ast.ErrCodeInvalidModel,
			Entity:  e.Name,
			Field:   f.Name,
			Message: fmt.Sprintf("unknown field kind %q", f.Kind),
		}
	}
}
