package sqlexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
)

func contactScope(rowVar string) Scope {
	e := ast.Entity{
		Name:      "Contact",
		Namespace: "crm",
		Fields: []ast.FieldDefinition{
			{Name: "email", Kind: ast.FieldText},
			{Name: "status", Kind: ast.FieldEnum, Values: []string{"lead", "qualified"}},
			{Name: "score", Kind: ast.FieldInteger},
			{Name: "active", Kind: ast.FieldBoolean},
			{Name: "owner", Kind: ast.FieldReference, Ref: "User"},
		},
	}
	return Scope{
		Entity:   e,
		Identity: identity.Resolve(e),
		RowVar:   rowVar,
		Params:   map[string]bool{"email": true, "status": true, "score": true, "active": true, "owner": true},
	}
}

func TestCompile_Conditions(t *testing.T) {
	sc := contactScope("v_current")

	cases := map[string]string{
		`status == "lead"`:                `(v_current.status = 'lead')`,
		`status != "lead"`:                `(v_current.status <> 'lead')`,
		`score >= 10 && active`:           `((v_current.score >= 10) AND v_current.active)`,
		`score < 0 || score > 100`:        `((v_current.score < 0) OR (v_current.score > 100))`,
		`!active`:                         `(NOT v_current.active)`,
		`not active`:                      `(NOT v_current.active)`,
		`email == nil`:                    `(v_current.email IS NULL)`,
		`email != nil`:                    `(v_current.email IS NOT NULL)`,
		`status in ["lead", "qualified"]`: `(v_current.status IN ('lead', 'qualified'))`,
		`input.score > score`:             `(p_score > v_current.score)`,
		`lower(email) == "x@y.co"`:        `(lower(v_current.email) = 'x@y.co')`,
		`len(email) > 3`:                  `(length(v_current.email) > 3)`,
		`active ? "yes" : "no"`:           `(CASE WHEN v_current.active THEN 'yes' ELSE 'no' END)`,
		`score + 1`:                       `(v_current.score + 1)`,
		`-score`:                          `(-v_current.score)`,
		`"it''s" == email`:                `('it''''s' = v_current.email)`,
	}
	for in, want := range cases {
		got, err := Compile(in, sc)
		require.NoError(t, err, "compile %q", in)
		assert.Equal(t, want, got, "compile %q", in)
	}
}

func TestCompile_BareColumnMode(t *testing.T) {
	sc := contactScope("")

	got, err := Compile(`status == "lead" && owner != nil`, sc)
	require.NoError(t, err)
	assert.Equal(t, `((status = 'lead') AND (fk_owner IS NOT NULL))`, got)
}

func TestCompile_UnknownIdentifier(t *testing.T) {
	_, err := Compile(`missing == 1`, contactScope("v_current"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown identifier "missing"`)
}

func TestCompile_UnknownInput(t *testing.T) {
	sc := contactScope("v_current")
	sc.Params = map[string]bool{"email": true}

	_, err := Compile(`input.other == 1`, sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown input "other"`)
}

func TestCompile_ForbiddenFunction(t *testing.T) {
	_, err := Compile(`eval(email)`, contactScope("v_current"))
	require.Error(t, err)
}

func TestCompile_FloatRejected(t *testing.T) {
	_, err := Compile(`score > 1.5`, contactScope("v_current"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float literals")
}

func TestCompile_ParseError(t *testing.T) {
	_, err := Compile(`status ==`, contactScope("v_current"))
	require.Error(t, err)
}

func TestCompileLiteral(t *testing.T) {
	got, err := CompileLiteral(`"lead"`)
	require.NoError(t, err)
	assert.Equal(t, `'lead'`, got)

	got, err = CompileLiteral(`42`)
	require.NoError(t, err)
	assert.Equal(t, `42`, got)

	got, err = CompileLiteral(`true`)
	require.NoError(t, err)
	assert.Equal(t, `TRUE`, got)

	_, err = CompileLiteral(`status`)
	require.Error(t, err)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'O''Brien'`, QuoteLiteral("O'Brien"))
}
