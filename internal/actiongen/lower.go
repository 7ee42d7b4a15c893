package actiongen

import (
	"fmt"
	"strings"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
	"github.com/mlahaye/graft/internal/sqlexpr"
)

// lowerStep emits the statements for one step. The switch is exhaustive over
// the closed step set.
func (cp *compilation) lowerStep(em *emitter, step ast.Step) error {
	switch s := step.(type) {
	case *ast.ValidateStep:
		return cp.lowerValidate(em, s)
	case *ast.InsertStep:
		return cp.lowerInsert(em, s)
	case *ast.UpdateStep:
		return cp.lowerUpdate(em, s)
	case *ast.ConditionalStep:
		return cp.lowerConditional(em, s)
	case *ast.CallStep:
		return cp.lowerCall(em, s)
	case *ast.NotifyStep:
		return cp.lowerNotify(em, s)
	default:
		return fmt.Errorf("unhandled step kind %q", step.Kind())
	}
}

func (cp *compilation) lowerValidate(em *emitter, s *ast.ValidateStep) error {
	cond, err := cp.compileExpr(s.Condition, cp.scope)
	if err != nil {
		return err
	}
	em.line("IF NOT %s THEN", cond)
	em.indent++
	cp.emitReturn(em, "v_current.id", "error:"+s.ErrorCode,
		sqlexpr.QuoteLiteral(s.ErrorCode), "to_jsonb(v_current)", "ARRAY[]::TEXT[]", "'{}'::jsonb")
	em.indent--
	em.line("END IF;")
	return nil
}

func (cp *compilation) lowerInsert(em *emitter, s *ast.InsertStep) error {
	target, tci, err := cp.c.target(cp.e, cp.a, s.Entity)
	if err != nil {
		return err
	}

	cols := make([]string, 0, len(s.Set)+1)
	vals := make([]string, 0, len(s.Set)+1)
	for _, asg := range s.Set {
		col, valueSQL, err := cp.assignment(target, tci, asg, cp.exprScope())
		if err != nil {
			return err
		}
		cols = append(cols, col)
		vals = append(vals, valueSQL)
	}
	cols = append(cols, identity.UpdatedByColumn)
	vals = append(vals, "p_caller_id")

	em.line("INSERT INTO %s (%s)", tci.Qualified(), strings.Join(cols, ", "))
	em.line("VALUES (%s)", strings.Join(vals, ", "))
	if target.Name == cp.e.Name {
		em.line("RETURNING to_jsonb(%s) INTO v_new;", tci.Table)
		return nil
	}
	em.line("RETURNING to_jsonb(%s) INTO v_row;", tci.Table)
	cp.emitCollect(em, cp.c.sideEffectCollection(cp.a, target.Name), "v_row")
	return nil
}

func (cp *compilation) lowerUpdate(em *emitter, s *ast.UpdateStep) error {
	target, tci, err := cp.c.target(cp.e, cp.a, s.Entity)
	if err != nil {
		return err
	}
	self := target.Name == cp.e.Name && s.Filter == ""

	// Assignment values for the primary row compile against the row being
	// updated (bare columns); cross-entity updates see the primary row
	// through v_current.
	valueScope := cp.exprScope()
	if self {
		valueScope = sqlexpr.Scope{Entity: cp.e, Identity: cp.ci, Params: cp.params}
	}

	em.line("UPDATE %s SET", tci.Qualified())
	em.indent++
	for _, asg := range s.Set {
		col, valueSQL, err := cp.assignment(target, tci, asg, valueScope)
		if err != nil {
			return err
		}
		em.line("%s = %s,", col, valueSQL)
	}
	em.line("%s = now(),", identity.UpdatedAtColumn)
	em.line("%s = p_caller_id", identity.UpdatedByColumn)
	em.indent--

	if self {
		em.line("WHERE %s = v_pk;", tci.PKColumn)
		return nil
	}
	filterScope := sqlexpr.Scope{Entity: target, Identity: tci, Params: cp.params}
	filter, err := cp.compileExpr(s.Filter, filterScope)
	if err != nil {
		return err
	}
	em.line("WHERE %s AND %s IS NULL;", filter, identity.DeletedAtColumn)
	return nil
}

func (cp *compilation) lowerConditional(em *emitter, s *ast.ConditionalStep) error {
	cond, err := cp.compileExpr(s.Condition, cp.scope)
	if err != nil {
		return err
	}
	em.line("IF %s THEN", cond)
	em.indent++
	for i, sub := range s.Then {
		if i > 0 {
			em.line("")
		}
		if err := cp.lowerStep(em, sub); err != nil {
			return err
		}
	}
	em.indent--
	if len(s.Else) > 0 {
		em.line("ELSE")
		em.indent++
		for i, sub := range s.Else {
			if i > 0 {
				em.line("")
			}
			if err := cp.lowerStep(em, sub); err != nil {
				return err
			}
		}
		em.indent--
	}
	em.line("END IF;")
	return nil
}

func (cp *compilation) lowerCall(em *emitter, s *ast.CallStep) error {
	callee, ok := cp.e.ActionNamed(s.Action)
	if !ok {
		return &ast.CompileError{
			Code:    ast.ErrCodeInvalidModel,
			Entity:  cp.e.Name,
			Action:  cp.a.Name,
			Message: fmt.Sprintf("call of unknown action %q", s.Action),
		}
	}

	var args []string
	if actionNeedsRow(cp.e.Name, callee) {
		slug := identity.Slugify(cp.e.Name)
		args = append(args, fmt.Sprintf("p_%s_id => p_%s_id", slug, slug))
	}
	for _, arg := range s.Args {
		valueSQL, err := cp.compileExpr(arg.Value, cp.scope)
		if err != nil {
			return err
		}
		args = append(args, fmt.Sprintf("p_%s => %s", identity.Slugify(arg.Field), valueSQL))
	}
	args = append(args, "p_caller_id => p_caller_id")

	em.line("v_result := %s(%s);", cp.ci.FunctionName(s.Action), strings.Join(args, ", "))
	em.line("IF v_result.status <> 'success' THEN")
	em.indent++
	em.line("RETURN v_result;")
	em.indent--
	em.line("END IF;")
	em.line("v_side_effects := v_side_effects || COALESCE(v_result.side_effects, '{}'::jsonb);")
	return nil
}

func (cp *compilation) lowerNotify(em *emitter, s *ast.NotifyStep) error {
	recipient, err := cp.compileExpr(s.Recipient, cp.scope)
	if err != nil {
		return err
	}
	message, err := cp.messageSQL(s.Message)
	if err != nil {
		return err
	}
	em.line("INSERT INTO app.tb_notification (recipient, message, created_by)")
	em.line("VALUES (%s, %s, p_caller_id)", recipient, message)
	em.line("RETURNING to_jsonb(tb_notification) INTO v_row;")
	cp.emitCollect(em, cp.c.sideEffectCollection(cp.a, notifyEntity), "v_row")
	return nil
}

// templateSegment is one piece of a notification message template: literal
// text or the source of a {placeholder} expression.
type templateSegment struct {
	expr bool
	text string
}

// parseTemplate splits a message template into literal and placeholder
// segments. A lone template yields a single literal segment.
func parseTemplate(template string) ([]templateSegment, error) {
	var segs []templateSegment
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open == -1 {
			break
		}
		length := strings.IndexByte(rest[open:], '}')
		if length == -1 {
			return nil, fmt.Errorf("unterminated placeholder in message template %q", template)
		}
		if open > 0 {
			segs = append(segs, templateSegment{text: rest[:open]})
		}
		segs = append(segs, templateSegment{expr: true, text: rest[open+1 : open+length]})
		rest = rest[open+length+1:]
	}
	if rest != "" || len(segs) == 0 {
		segs = append(segs, templateSegment{text: rest})
	}
	return segs, nil
}

// messageSQL compiles a notification message template. Literal text passes
// through as a quoted literal; {expr} placeholders compile in the action's
// scope and the pieces concatenate with ||.
func (cp *compilation) messageSQL(template string) (string, error) {
	segs, err := parseTemplate(template)
	if err != nil {
		return "", &ast.CompileError{
			Code:    ast.ErrCodeInvalidExpression,
			Entity:  cp.e.Name,
			Action:  cp.a.Name,
			Message: err.Error(),
		}
	}
	parts := make([]string, 0, len(segs))
	for _, seg := range segs {
		if !seg.expr {
			parts = append(parts, sqlexpr.QuoteLiteral(seg.text))
			continue
		}
		expr, err := cp.compileExpr(seg.text, cp.scope)
		if err != nil {
			return "", err
		}
		parts = append(parts, expr)
	}
	return strings.Join(parts, " || "), nil
}

func (cp *compilation) emitCollect(em *emitter, collection, rowVar string) {
	em.line("v_side_effects := jsonb_set(v_side_effects, '{%s}', COALESCE(v_side_effects -> %s, '[]'::jsonb) || %s);",
		collection, sqlexpr.QuoteLiteral(collection), rowVar)
}

// assignment resolves one field assignment to a (column, value SQL) pair.
func (cp *compilation) assignment(target ast.Entity, tci identity.CompiledIdentity, asg ast.Assignment, valueScope sqlexpr.Scope) (string, string, error) {
	f, ok := target.Field(asg.Field)
	if !ok {
		return "", "", &ast.CompileError{
			Code:    ast.ErrCodeInvalidModel,
			Entity:  cp.e.Name,
			Action:  cp.a.Name,
			Message: fmt.Sprintf("assignment to unknown field %s.%s", target.Name, asg.Field),
		}
	}
	col := tci.ColumnFor(f)

	if f.Kind == ast.FieldReference {
		valueSQL, err := cp.refValueSQL(f, asg.Value)
		return col, valueSQL, err
	}
	valueSQL, err := cp.compileExpr(asg.Value, valueScope)
	return col, valueSQL, err
}

func (cp *compilation) refValueSQL(f ast.FieldDefinition, value string) (string, error) {
	switch value {
	case "nil":
		return "NULL", nil
	case "self":
		return "v_pk", nil
	default:
		name := cp.an.refVar(f.Name, value)
		if name == "" {
			return "", fmt.Errorf("no resolution registered for %s = %s", f.Name, value)
		}
		return name, nil
	}
}
