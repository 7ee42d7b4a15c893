package migration

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/testutil"
)

func TestAssemble_Golden(t *testing.T) {
	asm, err := NewAssembler(testutil.Model())
	require.NoError(t, err)

	units, err := asm.AssembleAll()
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "User", units[0].Entity)
	assert.Equal(t, "Contact", units[1].Entity)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "contact_unit", []byte(units[1].SQL))
}

func TestAssemble_SectionOrder(t *testing.T) {
	asm, err := NewAssembler(testutil.Model())
	require.NoError(t, err)

	units, err := asm.AssembleAll()
	require.NoError(t, err)

	sql := units[1].SQL
	schema := strings.Index(sql, "-- Schema")
	functions := strings.Index(sql, "-- Functions")
	annotations := strings.Index(sql, "-- Annotations")
	require.NotEqual(t, -1, schema)
	require.NotEqual(t, -1, functions)
	require.NotEqual(t, -1, annotations)
	assert.Less(t, schema, functions)
	assert.Less(t, functions, annotations)
}

func TestAssembleAll_Deterministic(t *testing.T) {
	first, err := NewAssembler(testutil.Model())
	require.NoError(t, err)
	second, err := NewAssembler(testutil.Model())
	require.NoError(t, err)

	a, err := first.AssembleAll()
	require.NoError(t, err)
	b, err := second.AssembleAll()
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].SQL, b[i].SQL)
	}
}

func TestAssemble_OutOfOrderReference(t *testing.T) {
	asm, err := NewAssembler(testutil.Model())
	require.NoError(t, err)

	// Contact references User, which has not been assembled yet.
	_, err = asm.Assemble(testutil.ContactEntity())
	require.Error(t, err)
	assert.Equal(t, ast.ErrCodeOutOfOrderReference, ast.CodeOf(err))
}

func TestAssemble_UnknownReference(t *testing.T) {
	contact := testutil.ContactEntity()
	asm, err := NewAssembler([]ast.Entity{contact})
	require.NoError(t, err)

	_, err = asm.Assemble(contact)
	require.Error(t, err)
	assert.Equal(t, ast.ErrCodeUnknownEntityReference, ast.CodeOf(err))
}

func TestNewAssembler_CollectsAllValidationErrors(t *testing.T) {
	bad := ast.Entity{
		Name:      "Broken",
		Namespace: "crm",
		Fields: []ast.FieldDefinition{
			{Name: "state", Kind: ast.FieldEnum}, // empty value set
		},
		Actions: []ast.Action{
			{Name: "noop"}, // empty step list
		},
	}

	_, err := NewAssembler([]ast.Entity{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty value set")
	assert.Contains(t, err.Error(), "step list is empty")
}

func TestFoundation(t *testing.T) {
	sql := Foundation()

	assert.Contains(t, sql, "CREATE SCHEMA IF NOT EXISTS app;")
	assert.Contains(t, sql, "CREATE TYPE app.mutation_result AS (")
	assert.Contains(t, sql, "EXCEPTION WHEN duplicate_object THEN")
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS app.tb_notification (")
	assert.Contains(t, sql, "CREATE OR REPLACE FUNCTION app.log_and_return_mutation(")

	// Result columns match what compiled functions pass positionally.
	for _, col := range []string{"id UUID", "status TEXT", "message TEXT", "object_data JSONB",
		"updated_fields TEXT[]", "side_effects JSONB", "extra_metadata JSONB"} {
		assert.Contains(t, sql, col)
	}
}
