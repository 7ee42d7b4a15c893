package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlahaye/graft/internal/ast"
)

func TestResolve_Deterministic(t *testing.T) {
	e := ast.Entity{Name: "Contact", Namespace: "CRM"}

	first := Resolve(e)
	second := Resolve(e)
	assert.Equal(t, first, second)

	assert.Equal(t, "crm", first.Schema)
	assert.Equal(t, "tb_contact", first.Table)
	assert.Equal(t, "pk_contact", first.PKColumn)
	assert.Equal(t, "id", first.IDColumn)
	assert.Equal(t, "identifier", first.SlugColumn)
	assert.Equal(t, "crm.tb_contact", first.Qualified())
	assert.Equal(t, "crm.contact_pk", first.PKHelper())
	assert.Equal(t, "crm.contact_id", first.IDHelper())
	assert.Equal(t, "crm.qualify_lead", first.FunctionName("qualify_lead"))
}

func TestResolve_CamelCaseEntity(t *testing.T) {
	ci := Resolve(ast.Entity{Name: "OrderItem", Namespace: "shop"})
	assert.Equal(t, "tb_order_item", ci.Table)
	assert.Equal(t, "pk_order_item", ci.PKColumn)
}

func TestColumnFor(t *testing.T) {
	ci := Resolve(ast.Entity{Name: "Contact", Namespace: "crm"})

	assert.Equal(t, "status", ci.ColumnFor(ast.FieldDefinition{Name: "status", Kind: ast.FieldEnum}))
	assert.Equal(t, "fk_owner", ci.ColumnFor(ast.FieldDefinition{Name: "owner", Kind: ast.FieldReference, Ref: "User"}))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Contact":      "contact",
		"OrderItem":    "order_item",
		"order item":   "order_item",
		"Café":         "cafe",
		"HTTPServer":   "httpserver",
		"  spaced  ":   "spaced",
		"a--b__c":      "a_b_c",
		"Ünïcode-Näme": "unicode_name",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "slugify(%q)", in)
	}
}

func TestNewRegistry_CachesIdentities(t *testing.T) {
	entities := []ast.Entity{
		{Name: "User", Namespace: "crm", Fields: []ast.FieldDefinition{{Name: "email", Kind: ast.FieldText}}},
		{Name: "Contact", Namespace: "crm", Fields: []ast.FieldDefinition{{Name: "status", Kind: ast.FieldText}}},
	}

	reg, err := NewRegistry(entities)
	require.NoError(t, err)

	ci, ok := reg.Lookup("Contact")
	require.True(t, ok)
	assert.Equal(t, "crm.tb_contact", ci.Qualified())

	_, ok = reg.Lookup("Account")
	assert.False(t, ok)

	assert.Equal(t, []string{"User", "Contact"}, reg.Names())
}

func TestNewRegistry_DuplicateNameAcrossNamespaces(t *testing.T) {
	entities := []ast.Entity{
		{Name: "Contact", Namespace: "crm"},
		{Name: "Contact", Namespace: "billing"},
	}

	_, err := NewRegistry(entities)
	require.Error(t, err)
	assert.Equal(t, ast.ErrCodeDuplicateEntity, ast.CodeOf(err))
	assert.Contains(t, err.Error(), "billing")
	assert.Contains(t, err.Error(), "crm")
}

func TestNewRegistry_DuplicateTable(t *testing.T) {
	entities := []ast.Entity{
		{Name: "OrderItem", Namespace: "shop"},
		{Name: "order_item", Namespace: "shop"},
	}

	_, err := NewRegistry(entities)
	require.Error(t, err)
	assert.Equal(t, ast.ErrCodeDuplicateEntity, ast.CodeOf(err))
}
