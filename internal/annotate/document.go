package annotate

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/mlahaye/graft/internal/actiongen"
	"github.com/mlahaye/graft/internal/ast"
)

// MutationDocument describes one compiled action for documentation and
// client-code-generation tooling. It is additive: the function's own
// runtime-computed result stays authoritative.
type MutationDocument struct {
	ID          string        `yaml:"id"`
	Mutation    string        `yaml:"mutation"`
	Entity      string        `yaml:"entity"`
	Namespace   string        `yaml:"namespace"`
	Description string        `yaml:"description,omitempty"`
	Input       []InputField  `yaml:"input"`
	Result      ResultMapping `yaml:"result"`
	Impact      *ImpactDoc    `yaml:"impact,omitempty"`
	Example     Example       `yaml:"example"`
}

// InputField is one external input parameter.
type InputField struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required,omitempty"`
}

// ResultMapping names the external field carrying each internal result
// component.
type ResultMapping struct {
	Status        string   `yaml:"status"`
	Message       string   `yaml:"message"`
	Object        string   `yaml:"object"`
	UpdatedFields string   `yaml:"updated_fields"`
	SideEffects   []string `yaml:"side_effects,omitempty"`
}

// ImpactDoc is the declared impact in flattened form.
type ImpactDoc struct {
	Entity         string   `yaml:"entity"`
	Operation      string   `yaml:"operation"`
	Fields         []string `yaml:"fields,omitempty"`
	Relations      []string `yaml:"relations,omitempty"`
	SideEffects    []string `yaml:"side_effects,omitempty"`
	Invalidates    []string `yaml:"invalidates,omitempty"`
	Idempotent     bool     `yaml:"idempotent"`
	OptimisticSafe bool     `yaml:"optimistic_safe"`
}

// Example is an illustrative input/output pair.
type Example struct {
	Input  map[string]any `yaml:"input"`
	Output map[string]any `yaml:"output"`
}

// Document builds the mutation document for one action.
func (a *Annotator) Document(e ast.Entity, act ast.Action) (*MutationDocument, error) {
	ci, ok := a.reg.Lookup(e.Name)
	if !ok {
		return nil, &ast.CompileError{
			Code:    ast.ErrCodeUnknownEntityReference,
			Entity:  e.Name,
			Action:  act.Name,
			Message: "entity is not part of the compilation input",
		}
	}
	sig, err := a.actions.Signature(e, act)
	if err != nil {
		return nil, err
	}

	doc := &MutationDocument{
		ID:          MutationID(ci, act.Name),
		Mutation:    MutationName(act.Name),
		Entity:      e.Name,
		Namespace:   ci.Schema,
		Description: act.Description,
	}

	if sig.NeedsPrimary {
		doc.Input = append(doc.Input, InputField{Name: "id", Type: "ID", Required: true})
	}
	for _, in := range sig.Inputs {
		doc.Input = append(doc.Input, a.inputField(e, in))
	}
	doc.Input = append(doc.Input, InputField{Name: "callerId", Type: "ID"})

	collections := a.declaredCollections(act)
	doc.Result = ResultMapping{
		Status:        "status",
		Message:       "message",
		Object:        ExternalName(e.Name),
		UpdatedFields: "updatedFields",
		SideEffects:   collections,
	}

	if imp := act.Impact; imp != nil {
		doc.Impact = &ImpactDoc{
			Entity:         imp.Primary.Entity,
			Operation:      imp.Primary.Operation,
			Fields:         externalNames(imp.Primary.Fields),
			Relations:      externalNames(imp.Primary.Relations),
			SideEffects:    collections,
			Idempotent:     imp.Idempotent,
			OptimisticSafe: imp.OptimisticSafe,
		}
		for _, inv := range imp.CacheInvalidations {
			doc.Impact.Invalidates = append(doc.Impact.Invalidates, inv.Query)
		}
	}

	doc.Example = a.example(e, act, sig)
	return doc, nil
}

// Documents renders every action document of an entity as one multi-document
// YAML stream.
func (a *Annotator) Documents(e ast.Entity) ([]byte, error) {
	var buf bytes.Buffer
	for i, act := range e.Actions {
		doc, err := a.Document(e, act)
		if err != nil {
			return nil, err
		}
		raw, err := yaml.Marshal(doc)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

func (a *Annotator) inputField(e ast.Entity, name string) InputField {
	f, ok := e.Field(name)
	if !ok {
		return InputField{Name: ExternalName(name), Type: "String"}
	}
	if f.Kind == ast.FieldReference {
		return InputField{Name: ExternalName(name), Type: "ID", Required: f.Required}
	}
	t, err := a.externalType(e, f)
	if err != nil {
		t = "String"
	}
	return InputField{Name: ExternalName(name), Type: t, Required: f.Required}
}

func (a *Annotator) declaredCollections(act ast.Action) []string {
	if act.Impact == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, se := range act.Impact.SideEffects {
		name := se.Collection
		if name == "" {
			name = actiongen.DefaultCollection(se.Entity)
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func (a *Annotator) example(e ast.Entity, act ast.Action, sig actiongen.Signature) Example {
	input := make(map[string]any)
	if sig.NeedsPrimary {
		input["id"] = ExternalName(e.Name) + "-1"
	}
	for _, in := range sig.Inputs {
		input[ExternalName(in)] = exampleValue(e, in)
	}

	output := map[string]any{
		"status":  "success",
		"message": act.Name + " completed",
	}
	if act.Impact != nil && len(act.Impact.Primary.Fields) > 0 {
		output["updatedFields"] = externalNames(act.Impact.Primary.Fields)
	}
	return Example{Input: input, Output: output}
}

func exampleValue(e ast.Entity, name string) any {
	f, ok := e.Field(name)
	if !ok {
		return "example"
	}
	switch f.Kind {
	case ast.FieldInteger:
		return 1
	case ast.FieldBoolean:
		return true
	case ast.FieldEnum:
		if len(f.Values) > 0 {
			return f.Values[0]
		}
		return "example"
	case ast.FieldList:
		return []string{"example"}
	case ast.FieldReference:
		return ExternalName(f.Ref) + "-1"
	default:
		return "example"
	}
}

func externalNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ExternalName(n)
	}
	return out
}
