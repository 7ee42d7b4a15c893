package actiongen

import (
	"fmt"
	"strings"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
	"github.com/mlahaye/graft/internal/schemagen"
	"github.com/mlahaye/graft/internal/sqlexpr"
)

// Compiler translates actions into plpgsql function definitions. It reads
// identities from the shared registry and never re-derives names.
type Compiler struct {
	reg *identity.Registry
}

// New creates an action compiler over a resolved registry.
func New(reg *identity.Registry) *Compiler {
	return &Compiler{reg: reg}
}

// compilation carries per-action rendering state.
type compilation struct {
	c      *Compiler
	e      ast.Entity
	ci     identity.CompiledIdentity
	a      ast.Action
	an     *analysis
	scope  sqlexpr.Scope
	params map[string]bool
}

// CompileAction emits the stored function for one action.
func (c *Compiler) CompileAction(e ast.Entity, a ast.Action) (string, error) {
	ci, ok := c.reg.Lookup(e.Name)
	if !ok {
		return "", &ast.CompileError{
			Code:    ast.ErrCodeUnknownEntityReference,
			Entity:  e.Name,
			Action:  a.Name,
			Message: "entity is not part of the compilation input",
		}
	}
	if len(a.Steps) == 0 {
		return "", &ast.CompileError{
			Code:    ast.ErrCodeInvalidModel,
			Entity:  e.Name,
			Action:  a.Name,
			Message: "action has no steps",
		}
	}

	an, err := c.analyze(e, a)
	if err != nil {
		return "", err
	}

	params := make(map[string]bool, len(an.inputs))
	for _, in := range an.inputs {
		params[in] = true
	}

	cp := &compilation{
		c:      c,
		e:      e,
		ci:     ci,
		a:      a,
		an:     an,
		params: params,
		scope:  sqlexpr.Scope{Entity: e, Identity: ci, RowVar: "v_current", Params: params},
	}
	return cp.render()
}

func (cp *compilation) render() (string, error) {
	em := &emitter{}

	if cp.a.Description != "" {
		em.line("-- %s", cp.a.Description)
	}
	em.line("CREATE OR REPLACE FUNCTION %s(", cp.ci.FunctionName(cp.a.Name))
	em.indent++
	args := cp.signature()
	for i, arg := range args {
		sep := ","
		if i == len(args)-1 {
			sep = ""
		}
		em.line("%s%s", arg, sep)
	}
	em.indent--
	em.line(") RETURNS app.mutation_result")
	em.line("LANGUAGE plpgsql")
	em.line("AS $$")
	em.line("DECLARE")
	em.indent++
	for _, d := range cp.declarations() {
		em.line("%s;", d)
	}
	em.indent--
	em.line("BEGIN")
	em.indent++

	emitted, err := cp.prologue(em)
	if err != nil {
		return "", err
	}
	for i, step := range cp.a.Steps {
		if i > 0 || emitted {
			em.line("")
		}
		if err := cp.lowerStep(em, step); err != nil {
			return "", err
		}
	}
	if cp.an.selfUpdate {
		em.line("")
		cp.emitDiff(em)
	}
	em.line("")
	if err := cp.emitSuccess(em); err != nil {
		return "", err
	}

	em.indent--
	em.line("EXCEPTION WHEN OTHERS THEN")
	em.indent++
	cp.emitReturn(em, "NULL", "error:internal", "SQLERRM", "NULL", "ARRAY[]::TEXT[]", "'{}'::jsonb")
	em.indent--
	em.line("END;")
	em.line("$$;")

	return em.String(), nil
}

func (cp *compilation) signature() []string {
	var args []string
	if cp.an.needsRow {
		args = append(args, fmt.Sprintf("p_%s_id TEXT", identity.Slugify(cp.e.Name)))
	}
	for _, in := range cp.an.inputs {
		args = append(args, fmt.Sprintf("p_%s %s DEFAULT NULL", identity.Slugify(in), cp.paramType(in)))
	}
	args = append(args, "p_caller_id UUID DEFAULT NULL")
	return args
}

// paramType maps an input name to its parameter type. Inputs matching a
// reference field arrive as text and resolve through the target's pk helper;
// inputs with no matching field default to text.
func (cp *compilation) paramType(name string) string {
	f, ok := cp.e.Field(name)
	if !ok {
		return "TEXT"
	}
	if f.Kind == ast.FieldReference || f.Kind == ast.FieldEnum {
		return "TEXT"
	}
	if t, err := schemagen.ColumnType(f); err == nil {
		return t
	}
	return "TEXT"
}

func (cp *compilation) declarations() []string {
	var decls []string
	if cp.an.needsRow {
		decls = append(decls,
			"v_pk INTEGER",
			fmt.Sprintf("v_current %s%%ROWTYPE", cp.ci.Qualified()))
	}
	if cp.an.selfUpdate {
		decls = append(decls, "v_before JSONB", "v_after JSONB", "v_updated_fields TEXT[]")
	}
	if cp.an.primaryInsert {
		decls = append(decls, "v_new JSONB")
	}
	if cp.an.rowCapture {
		decls = append(decls, "v_row JSONB")
	}
	if cp.an.hasCall {
		decls = append(decls, "v_result app.mutation_result")
	}
	for _, ref := range cp.an.refs {
		decls = append(decls, ref.varName+" INTEGER")
	}
	decls = append(decls, "v_side_effects JSONB := "+cp.sideEffectSeed())
	return decls
}

func (cp *compilation) sideEffectSeed() string {
	if len(cp.an.collections) == 0 {
		return "'{}'::jsonb"
	}
	parts := make([]string, len(cp.an.collections))
	for i, name := range cp.an.collections {
		parts[i] = sqlexpr.QuoteLiteral(name) + ", '[]'::jsonb"
	}
	return "jsonb_build_object(" + strings.Join(parts, ", ") + ")"
}

// prologue emits identity resolution, foreign key pre-resolution, and the
// authorization check. Returns whether anything was written.
func (cp *compilation) prologue(em *emitter) (bool, error) {
	emitted := false

	if cp.an.needsRow {
		emitted = true
		em.line("v_pk := %s(p_%s_id);", cp.ci.PKHelper(), identity.Slugify(cp.e.Name))
		em.line("IF v_pk IS NULL THEN")
		em.indent++
		cp.emitReturn(em, "NULL", "error:not_found",
			sqlexpr.QuoteLiteral(cp.e.Name+" not found"), "NULL", "ARRAY[]::TEXT[]", "'{}'::jsonb")
		em.indent--
		em.line("END IF;")
		em.line("SELECT * INTO v_current FROM %s WHERE %s = v_pk;", cp.ci.Qualified(), cp.ci.PKColumn)
		if cp.an.selfUpdate {
			em.line("v_before := to_jsonb(v_current);")
		}
	}

	for _, ref := range cp.an.refs {
		if emitted {
			em.line("")
		}
		emitted = true
		if err := cp.emitRefResolution(em, ref); err != nil {
			return emitted, err
		}
	}

	if cp.a.Requires != "" {
		cond, err := cp.compileExpr(cp.a.Requires, cp.scope)
		if err != nil {
			return emitted, err
		}
		if emitted {
			em.line("")
		}
		emitted = true
		em.line("IF NOT %s THEN", cond)
		em.indent++
		cp.emitReturn(em, "v_current.id", "error:forbidden",
			sqlexpr.QuoteLiteral("caller is not permitted to "+cp.a.Name), "NULL", "ARRAY[]::TEXT[]", "'{}'::jsonb")
		em.indent--
		em.line("END IF;")
	}

	return emitted, nil
}

func (cp *compilation) emitRefResolution(em *emitter, ref refResolution) error {
	value, err := cp.compileExpr(ref.value, cp.exprScope())
	if err != nil {
		return err
	}
	em.line("%s := %s(%s);", ref.varName, ref.target.PKHelper(), value)
	if ref.required {
		em.line("IF %s IS NULL THEN", ref.varName)
	} else {
		em.line("IF %s IS NOT NULL AND %s IS NULL THEN", value, ref.varName)
	}
	em.indent++
	cp.emitReturn(em, "NULL", "error:not_found",
		sqlexpr.QuoteLiteral(ref.target.Entity+" not found for "+ref.field.Name), "NULL", "ARRAY[]::TEXT[]", "'{}'::jsonb")
	em.indent--
	em.line("END IF;")
	return nil
}

func (cp *compilation) emitDiff(em *emitter) {
	em.line("SELECT * INTO v_current FROM %s WHERE %s = v_pk;", cp.ci.Qualified(), cp.ci.PKColumn)
	em.line("v_after := to_jsonb(v_current);")
	em.line("SELECT COALESCE(array_agg(d.key ORDER BY d.key), ARRAY[]::TEXT[]) INTO v_updated_fields")
	em.line("FROM jsonb_each(v_after) AS d(key, value)")
	em.line("WHERE d.value IS DISTINCT FROM v_before -> d.key")
	em.indent++
	em.line("AND d.key NOT IN (%s);", auditList())
	em.indent--
}

func (cp *compilation) emitSuccess(em *emitter) error {
	extra, err := impactLiteral(cp.a)
	if err != nil {
		return err
	}

	id, object, updated := "NULL", "NULL", "NULL"
	switch {
	case cp.an.selfUpdate:
		id, object, updated = "v_current.id", "v_after", "v_updated_fields"
	case cp.an.primaryInsert:
		id, object = "(v_new ->> 'id')::UUID", "v_new"
	case cp.an.needsRow:
		id, object = "v_current.id", "to_jsonb(v_current)"
	}

	cp.emitReturn(em, id, "success", sqlexpr.QuoteLiteral(cp.a.Name+" completed"), object, updated,
		extra+" || "+observedImpact())
	return nil
}

func (cp *compilation) emitReturn(em *emitter, id, status, message, objectData, updatedFields, extra string) {
	em.line("RETURN app.log_and_return_mutation(p_caller_id, %s, %s, %s, %s, %s, %s, v_side_effects, %s);",
		sqlexpr.QuoteLiteral(cp.e.Name), id, sqlexpr.QuoteLiteral(status), message, objectData, updatedFields, extra)
}

// exprScope is the scope for value expressions. Without a primary row, field
// references have nothing to resolve against and are rejected.
func (cp *compilation) exprScope() sqlexpr.Scope {
	if cp.an.needsRow {
		return cp.scope
	}
	return sqlexpr.Scope{Params: cp.params}
}

func (cp *compilation) compileExpr(source string, sc sqlexpr.Scope) (string, error) {
	sql, err := sqlexpr.Compile(source, sc)
	if err != nil {
		return "", &ast.CompileError{
			Code:    ast.ErrCodeInvalidExpression,
			Entity:  cp.e.Name,
			Action:  cp.a.Name,
			Message: err.Error(),
		}
	}
	return sql, nil
}

func auditList() string {
	cols := identity.AuditColumns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = sqlexpr.QuoteLiteral(c)
	}
	return strings.Join(parts, ", ")
}
