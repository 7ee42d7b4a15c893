package annotate

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
	"github.com/mlahaye/graft/internal/testutil"
)

func newAnnotator(t *testing.T) *Annotator {
	t.Helper()
	reg, err := identity.NewRegistry(testutil.Model())
	require.NoError(t, err)
	return NewAnnotator(reg)
}

func TestAnnotate_Golden(t *testing.T) {
	a := newAnnotator(t)

	anns, err := a.Annotate(testutil.ContactEntity())
	require.NoError(t, err)
	sql, err := Render(anns)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "contact_annotations", []byte(sql))
}

func TestAnnotate_InternalColumnsStayInternal(t *testing.T) {
	a := newAnnotator(t)

	anns, err := a.Annotate(testutil.ContactEntity())
	require.NoError(t, err)
	sql, err := Render(anns)
	require.NoError(t, err)

	assert.NotContains(t, sql, "pk_contact")
	for _, col := range identity.AuditColumns() {
		assert.NotContains(t, sql, col)
	}
}

func TestExternalName(t *testing.T) {
	assert.Equal(t, "qualifyLead", ExternalName("qualify_lead"))
	assert.Equal(t, "displayName", ExternalName("display_name"))
	assert.Equal(t, "contact", ExternalName("Contact"))
}

func TestMutationID_Stable(t *testing.T) {
	ci := identity.Resolve(testutil.ContactEntity())
	first := MutationID(ci, "qualify_lead")
	second := MutationID(ci, "qualify_lead")
	assert.Equal(t, first, second)
	assert.Equal(t, "f44b0c20-8bbb-5fd6-b8b4-273b4808e4dd", first)
}

func TestDocument(t *testing.T) {
	a := newAnnotator(t)
	contact := testutil.ContactEntity()
	action, ok := contact.ActionNamed("qualify_lead")
	require.True(t, ok)

	doc, err := a.Document(contact, action)
	require.NoError(t, err)

	assert.Equal(t, "qualifyLead", doc.Mutation)
	assert.Equal(t, "Contact", doc.Entity)
	assert.Equal(t, "crm", doc.Namespace)
	assert.Equal(t, "f44b0c20-8bbb-5fd6-b8b4-273b4808e4dd", doc.ID)

	assert.Equal(t, []InputField{
		{Name: "id", Type: "ID", Required: true},
		{Name: "callerId", Type: "ID"},
	}, doc.Input)

	assert.Equal(t, ResultMapping{
		Status:        "status",
		Message:       "message",
		Object:        "contact",
		UpdatedFields: "updatedFields",
	}, doc.Result)

	require.NotNil(t, doc.Impact)
	assert.Equal(t, &ImpactDoc{
		Entity:         "Contact",
		Operation:      "UPDATE",
		Fields:         []string{"status"},
		Relations:      []string{"owner"},
		Invalidates:    []string{"contacts"},
		OptimisticSafe: true,
	}, doc.Impact)

	assert.Equal(t, map[string]any{"id": "contact-1"}, doc.Example.Input)
	assert.Equal(t, map[string]any{
		"status":        "success",
		"message":       "qualify_lead completed",
		"updatedFields": []string{"status"},
	}, doc.Example.Output)
}

func TestDocument_InputShape(t *testing.T) {
	a := newAnnotator(t)
	contact := testutil.ContactEntity()
	action := ast.Action{
		Name: "create_contact",
		Steps: ast.Steps{
			&ast.InsertStep{Entity: "Contact", Set: []ast.Assignment{
				{Field: "email", Value: "input.email"},
				{Field: "score", Value: "input.score"},
				{Field: "owner", Value: "input.owner"},
			}},
		},
	}

	doc, err := a.Document(contact, action)
	require.NoError(t, err)

	// No primary row reference for pure inserts.
	assert.Equal(t, []InputField{
		{Name: "email", Type: "String", Required: true},
		{Name: "score", Type: "Int"},
		{Name: "owner", Type: "ID"},
		{Name: "callerId", Type: "ID"},
	}, doc.Input)

	assert.Equal(t, "user-1", doc.Example.Input["owner"])
	assert.Equal(t, 1, doc.Example.Input["score"])
}

func TestDocuments_MultiDocStream(t *testing.T) {
	a := newAnnotator(t)

	raw, err := a.Documents(testutil.ContactEntity())
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "mutation: qualifyLead")
	assert.Contains(t, s, "id: f44b0c20-8bbb-5fd6-b8b4-273b4808e4dd")
}
