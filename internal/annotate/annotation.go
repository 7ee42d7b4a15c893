package annotate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mlahaye/graft/internal/sqlexpr"
)

// Marker prefixes every machine-readable comment annotation.
const Marker = "@graphql"

// Annotation is one typed record bound to a database object.
type Annotation struct {
	// Target is the comment target, e.g. "TABLE crm.tb_contact" or
	// "COLUMN crm.tb_contact.status".
	Target string

	// Kind discriminates the body: "type", "field", "helper", or "mutation".
	Kind string

	// Body is the structured payload, serialized to JSON at emission.
	Body any
}

// TypeBody maps a table to its external type.
type TypeBody struct {
	Name        string `json:"name"`
	Namespace   string `json:"namespace"`
	Description string `json:"description,omitempty"`
}

// FieldBody maps a column to its external field.
type FieldBody struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Values      []string `json:"values,omitempty"`
	Cardinality string   `json:"cardinality,omitempty"`
}

// HelperBody maps an identity helper function to the conversion it performs.
type HelperBody struct {
	Entity   string `json:"entity"`
	Converts string `json:"converts"`
}

// MutationBody maps a function to its external mutation.
type MutationBody struct {
	Name   string `json:"name"`
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

// SQL renders the annotation as a COMMENT statement.
func (an Annotation) SQL() (string, error) {
	raw, err := json.Marshal(an.Body)
	if err != nil {
		return "", fmt.Errorf("annotation on %s: %w", an.Target, err)
	}
	comment := fmt.Sprintf("%s:%s %s", Marker, an.Kind, raw)
	return fmt.Sprintf("COMMENT ON %s IS %s;", an.Target, sqlexpr.QuoteLiteral(comment)), nil
}

// Render emits one COMMENT statement per annotation, one per line.
func Render(annotations []Annotation) (string, error) {
	var b strings.Builder
	for _, an := range annotations {
		sql, err := an.SQL()
		if err != nil {
			return "", err
		}
		b.WriteString(sql)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
