package actiongen

import (
	"fmt"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
	"github.com/mlahaye/graft/internal/sqlexpr"
)

// refResolution is one foreign key pre-resolved at the top of the function
// body. The value expression yields an external reference (TEXT) that the
// target entity's pk helper converts to a surrogate key.
type refResolution struct {
	varName  string
	field    ast.FieldDefinition
	target   identity.CompiledIdentity
	value    string
	required bool
}

// analysis is what one pass over an action's step tree discovers: the input
// parameters, the variables the body needs, the side-effect collections to
// seed, and the foreign keys to resolve up front.
type analysis struct {
	inputs        []string
	needsRow      bool
	selfUpdate    bool
	rowCapture    bool
	hasCall       bool
	primaryInsert bool
	collections   []string
	refs          []refResolution

	seenInput map[string]bool
	seenColl  map[string]bool
	refVars   map[string]string
}

func (an *analysis) addInputs(entity, action, source string) error {
	names, err := sqlexpr.Inputs(source)
	if err != nil {
		return &ast.CompileError{
			Code:    ast.ErrCodeInvalidExpression,
			Entity:  entity,
			Action:  action,
			Message: err.Error(),
		}
	}
	for _, n := range names {
		if !an.seenInput[n] {
			an.seenInput[n] = true
			an.inputs = append(an.inputs, n)
		}
	}
	return nil
}

func (an *analysis) addCollection(name string) {
	if !an.seenColl[name] {
		an.seenColl[name] = true
		an.collections = append(an.collections, name)
	}
}

// addRef registers one foreign key resolution. Equal (field, value) pairs
// share a variable; a second distinct value for the same field gets a
// numbered variant.
func (an *analysis) addRef(f ast.FieldDefinition, target identity.CompiledIdentity, value string) {
	base := "v_fk_" + identity.Slugify(f.Name)
	name := base
	for i := 2; ; i++ {
		prev, taken := an.refVars[name]
		if !taken {
			an.refVars[name] = value
			an.refs = append(an.refs, refResolution{
				varName:  name,
				field:    f,
				target:   target,
				value:    value,
				required: f.Required,
			})
			return
		}
		if prev == value {
			return
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
}

// refVar returns the resolution variable registered for a (field, value) pair.
func (an *analysis) refVar(fieldName, value string) string {
	for _, ref := range an.refs {
		if ref.field.Name == fieldName && ref.value == value {
			return ref.varName
		}
	}
	return ""
}

// needsRowSteps reports whether any step in the tree requires the primary row
// to exist. Shared between the action's own compilation and call-site argument
// generation so caller and callee always agree on the signature.
func needsRowSteps(entity string, steps ast.Steps) bool {
	for _, step := range steps {
		switch s := step.(type) {
		case *ast.ValidateStep, *ast.ConditionalStep, *ast.CallStep, *ast.NotifyStep:
			return true
		case *ast.UpdateStep:
			if (s.Entity == "" || s.Entity == entity) && s.Filter == "" {
				return true
			}
			if assignmentsUseSelf(s.Set) {
				return true
			}
		case *ast.InsertStep:
			if assignmentsUseSelf(s.Set) {
				return true
			}
		}
	}
	return false
}

func assignmentsUseSelf(set []ast.Assignment) bool {
	for _, asg := range set {
		if asg.Value == "self" {
			return true
		}
	}
	return false
}

func actionNeedsRow(entity string, a ast.Action) bool {
	return a.Requires != "" || needsRowSteps(entity, a.Steps)
}

func (c *Compiler) analyze(e ast.Entity, a ast.Action) (*analysis, error) {
	an := &analysis{
		seenInput: make(map[string]bool),
		seenColl:  make(map[string]bool),
		refVars:   make(map[string]string),
	}
	an.needsRow = actionNeedsRow(e.Name, a)

	// Declared side-effect collections seed first, so an actual count of
	// zero is still observable in the result.
	if a.Impact != nil {
		for _, se := range a.Impact.SideEffects {
			name := se.Collection
			if name == "" {
				name = DefaultCollection(se.Entity)
			}
			an.addCollection(name)
		}
	}

	if a.Requires != "" {
		if err := an.addInputs(e.Name, a.Name, a.Requires); err != nil {
			return nil, err
		}
	}
	if err := c.analyzeSteps(e, a, a.Steps, an); err != nil {
		return nil, err
	}
	return an, nil
}

func (c *Compiler) analyzeSteps(e ast.Entity, a ast.Action, steps ast.Steps, an *analysis) error {
	for _, step := range steps {
		switch s := step.(type) {
		case *ast.ValidateStep:
			if err := an.addInputs(e.Name, a.Name, s.Condition); err != nil {
				return err
			}

		case *ast.InsertStep:
			target, _, err := c.target(e, a, s.Entity)
			if err != nil {
				return err
			}
			if target.Name == e.Name {
				an.primaryInsert = true
			} else {
				an.rowCapture = true
				an.addCollection(c.sideEffectCollection(a, target.Name))
			}
			if err := c.analyzeAssignments(e, a, target, s.Set, an); err != nil {
				return err
			}

		case *ast.UpdateStep:
			target, _, err := c.target(e, a, s.Entity)
			if err != nil {
				return err
			}
			if target.Name == e.Name && s.Filter == "" {
				an.selfUpdate = true
			}
			if s.Filter != "" {
				if err := an.addInputs(e.Name, a.Name, s.Filter); err != nil {
					return err
				}
			}
			if err := c.analyzeAssignments(e, a, target, s.Set, an); err != nil {
				return err
			}

		case *ast.ConditionalStep:
			if err := an.addInputs(e.Name, a.Name, s.Condition); err != nil {
				return err
			}
			if err := c.analyzeSteps(e, a, s.Then, an); err != nil {
				return err
			}
			if err := c.analyzeSteps(e, a, s.Else, an); err != nil {
				return err
			}

		case *ast.CallStep:
			an.hasCall = true
			if _, ok := e.ActionNamed(s.Action); !ok {
				return &ast.CompileError{
					Code:    ast.ErrCodeInvalidModel,
					Entity:  e.Name,
					Action:  a.Name,
					Message: fmt.Sprintf("call of unknown action %q", s.Action),
				}
			}
			for _, arg := range s.Args {
				if err := an.addInputs(e.Name, a.Name, arg.Value); err != nil {
					return err
				}
			}

		case *ast.NotifyStep:
			an.rowCapture = true
			an.addCollection(c.sideEffectCollection(a, notifyEntity))
			if err := an.addInputs(e.Name, a.Name, s.Recipient); err != nil {
				return err
			}
			segs, err := parseTemplate(s.Message)
			if err != nil {
				return &ast.CompileError{
					Code:    ast.ErrCodeInvalidExpression,
					Entity:  e.Name,
					Action:  a.Name,
					Message: err.Error(),
				}
			}
			for _, seg := range segs {
				if !seg.expr {
					continue
				}
				if err := an.addInputs(e.Name, a.Name, seg.text); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *Compiler) analyzeAssignments(e ast.Entity, a ast.Action, target ast.Entity, set []ast.Assignment, an *analysis) error {
	for _, asg := range set {
		f, ok := target.Field(asg.Field)
		if !ok {
			return &ast.CompileError{
				Code:    ast.ErrCodeInvalidModel,
				Entity:  e.Name,
				Action:  a.Name,
				Message: fmt.Sprintf("assignment to unknown field %s.%s", target.Name, asg.Field),
			}
		}
		if err := an.addInputs(e.Name, a.Name, asg.Value); err != nil {
			return err
		}
		if f.Kind != ast.FieldReference {
			continue
		}
		switch asg.Value {
		case "nil":
			// Inline NULL, nothing to resolve.
		case "self":
			if f.Ref != e.Name {
				return &ast.CompileError{
					Code:    ast.ErrCodeInvalidModel,
					Entity:  e.Name,
					Action:  a.Name,
					Message: fmt.Sprintf("self assignment to %s.%s, which references %s", target.Name, asg.Field, f.Ref),
				}
			}
		default:
			refTarget, ok := c.reg.Lookup(f.Ref)
			if !ok {
				return &ast.CompileError{
					Code:    ast.ErrCodeUnknownEntityReference,
					Entity:  e.Name,
					Action:  a.Name,
					Message: fmt.Sprintf("field %s.%s references unknown entity %q", target.Name, asg.Field, f.Ref),
				}
			}
			an.addRef(f, refTarget, asg.Value)
		}
	}
	return nil
}

// target resolves a step's target entity. An empty name means the action's
// own entity.
func (c *Compiler) target(e ast.Entity, a ast.Action, name string) (ast.Entity, identity.CompiledIdentity, error) {
	if name == "" || name == e.Name {
		ci, _ := c.reg.Lookup(e.Name)
		return e, ci, nil
	}
	te, ok := c.reg.Entity(name)
	if !ok {
		return ast.Entity{}, identity.CompiledIdentity{}, &ast.CompileError{
			Code:    ast.ErrCodeUnknownEntityReference,
			Entity:  e.Name,
			Action:  a.Name,
			Message: fmt.Sprintf("step targets unknown entity %q", name),
		}
	}
	ci, _ := c.reg.Lookup(name)
	return te, ci, nil
}

// sideEffectCollection picks the result collection for side-effect rows of an
// entity (Notify rows key under notifyEntity): the declared name when the
// impact declaration carries one, the derived plural otherwise.
func (c *Compiler) sideEffectCollection(a ast.Action, entity string) string {
	if a.Impact != nil {
		for _, se := range a.Impact.SideEffects {
			if se.Entity == entity && se.Collection != "" {
				return se.Collection
			}
		}
	}
	return DefaultCollection(entity)
}
