package schemagen

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
	"github.com/mlahaye/graft/internal/testutil"
)

func newCompiler(t *testing.T) *Compiler {
	t.Helper()
	reg, err := identity.NewRegistry(testutil.Model())
	require.NoError(t, err)
	return New(reg)
}

func TestCompile_Golden(t *testing.T) {
	c := newCompiler(t)

	table, err := c.Compile(testutil.ContactEntity())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "contact_table", []byte(table.DDL()))
}

func TestCompile_Deterministic(t *testing.T) {
	c := newCompiler(t)

	first, err := c.Compile(testutil.ContactEntity())
	require.NoError(t, err)
	second, err := c.Compile(testutil.ContactEntity())
	require.NoError(t, err)

	assert.Equal(t, first.DDL(), second.DDL())
}

// Every table carries the three identity columns up front and the four
// audit/soft-delete columns at the end, regardless of field content.
func TestCompile_NamingInvariant(t *testing.T) {
	c := newCompiler(t)

	for _, e := range testutil.Model() {
		table, err := c.Compile(e)
		require.NoError(t, err)

		ci := table.Identity
		n := len(table.Columns)
		require.GreaterOrEqual(t, n, 7)

		assert.Equal(t, ci.PKColumn, table.Columns[0].Name)
		assert.Equal(t, "id", table.Columns[1].Name)
		assert.Equal(t, "identifier", table.Columns[2].Name)

		assert.Equal(t, identity.AuditColumns(), []string{
			table.Columns[n-4].Name,
			table.Columns[n-3].Name,
			table.Columns[n-2].Name,
			table.Columns[n-1].Name,
		})
	}
}

func TestCompile_ReferenceIntegrity(t *testing.T) {
	c := newCompiler(t)

	table, err := c.Compile(testutil.ContactEntity())
	require.NoError(t, err)

	var fkCol *Column
	for i := range table.Columns {
		if table.Columns[i].Name == "fk_owner" {
			fkCol = &table.Columns[i]
		}
	}
	require.NotNil(t, fkCol, "fk_owner column missing")
	// Matches the referenced entity's surrogate key type.
	assert.Equal(t, "INTEGER", fkCol.Type)

	foundFK := false
	for _, cons := range table.Constraints {
		if cons.Name == "fk_tb_contact_owner" {
			foundFK = true
			assert.Contains(t, cons.Clause, "REFERENCES crm.tb_user (pk_user)")
		}
	}
	assert.True(t, foundFK, "foreign key constraint missing")

	foundIdx := false
	for _, idx := range table.Indexes {
		if idx.Column == "fk_owner" {
			foundIdx = true
		}
	}
	assert.True(t, foundIdx, "index on foreign key column missing")
}

func TestCompile_EnumConstraintAndIndex(t *testing.T) {
	c := newCompiler(t)

	table, err := c.Compile(testutil.ContactEntity())
	require.NoError(t, err)

	ddl := table.DDL()
	assert.Contains(t, ddl, "CONSTRAINT chk_tb_contact_status CHECK (status IN ('lead', 'qualified'))")
	assert.Contains(t, ddl, "CREATE INDEX IF NOT EXISTS idx_tb_contact_status ON crm.tb_contact (status);")
}

// Uniqueness is never inferred; only the stable identifier is unique.
func TestCompile_NoInferredUniqueness(t *testing.T) {
	c := newCompiler(t)

	table, err := c.Compile(testutil.ContactEntity())
	require.NoError(t, err)

	for _, cons := range table.Constraints {
		if cons.Name == "uq_tb_contact_id" {
			continue
		}
		assert.NotContains(t, cons.Clause, "UNIQUE")
	}
}

func TestCompile_UnknownReference(t *testing.T) {
	e := testutil.ContactEntity()
	e.Fields[4].Ref = "Ghost"

	reg, err := identity.NewRegistry([]ast.Entity{testutil.UserEntity(), e})
	require.NoError(t, err)

	_, err = New(reg).Compile(e)
	require.Error(t, err)
	assert.Equal(t, ast.ErrCodeUnknownEntityReference, ast.CodeOf(err))
}

func TestCompile_DuplicateField(t *testing.T) {
	e := testutil.UserEntity()
	e.Fields = append(e.Fields, ast.FieldDefinition{Name: "email", Kind: ast.FieldText})

	reg, err := identity.NewRegistry([]ast.Entity{e})
	require.NoError(t, err)

	_, err = New(reg).Compile(e)
	require.Error(t, err)
	assert.Equal(t, ast.ErrCodeDuplicateField, ast.CodeOf(err))
}

func TestCompile_ListColumnType(t *testing.T) {
	c := newCompiler(t)

	table, err := c.Compile(testutil.ContactEntity())
	require.NoError(t, err)

	found := false
	for _, col := range table.Columns {
		if col.Name == "tags" {
			found = true
			assert.Equal(t, "TEXT[]", col.Type)
		}
	}
	assert.True(t, found)
}

func TestCompile_BadDefault(t *testing.T) {
	e := testutil.UserEntity()
	e.Fields[0].Default = `email` // field reference, not a literal

	reg, err := identity.NewRegistry([]ast.Entity{e})
	require.NoError(t, err)

	_, err = New(reg).Compile(e)
	require.Error(t, err)
	assert.Equal(t, ast.ErrCodeInvalidExpression, ast.CodeOf(err))
}
