package ast

import "fmt"

// Validate checks one entity against the model's structural invariants.
// Returns all errors found (does not fail fast). Cross-entity checks
// (unknown reference targets, table name collisions) happen later, at
// schema compilation and assembly, where the full entity set is known.
func Validate(e Entity) []*CompileError {
	var errs []*CompileError

	if e.Name == "" {
		errs = append(errs, &CompileError{
			Code:    ErrCodeInvalidModel,
			Message: "entity name is required",
		})
	}
	if e.Namespace == "" {
		errs = append(errs, &CompileError{
			Code:    ErrCodeInvalidModel,
			Entity:  e.Name,
			Message: "namespace is required",
		})
	}
	if len(e.Fields) == 0 {
		errs = append(errs, &CompileError{
			Code:    ErrCodeInvalidModel,
			Entity:  e.Name,
			Message: "at least one field is required",
		})
	}

	seenFields := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if seenFields[f.Name] {
			errs = append(errs, &CompileError{
				Code:    ErrCodeDuplicateField,
				Entity:  e.Name,
				Field:   f.Name,
				Message: "duplicate field name",
			})
		}
		seenFields[f.Name] = true
		errs = append(errs, validateField(e.Name, f)...)
	}

	seenActions := make(map[string]bool, len(e.Actions))
	for _, a := range e.Actions {
		if seenActions[a.Name] {
			errs = append(errs, &CompileError{
				Code:    ErrCodeDuplicateActionName,
				Entity:  e.Name,
				Action:  a.Name,
				Message: "duplicate action name",
			})
		}
		seenActions[a.Name] = true
		errs = append(errs, validateAction(e.Name, a)...)
	}

	return errs
}

func validateField(entity string, f FieldDefinition) []*CompileError {
	var errs []*CompileError

	fail := func(msg string) {
		errs = append(errs, &CompileError{
			Code:    ErrCodeInvalidModel,
			Entity:  entity,
			Field:   f.Name,
			Message: msg,
		})
	}

	if f.Name == "" {
		fail("field name is required")
	}

	switch f.Kind {
	case FieldText, FieldInteger, FieldBoolean:
		// Plain scalars carry no extra shape.
	case FieldEnum:
		if len(f.Values) == 0 {
			fail("enum field declares an empty value set")
		}
	case FieldReference:
		if f.Ref == "" {
			fail("reference field names no entity")
		}
	case FieldList:
		if !ScalarKinds[f.Elem] {
			fail(fmt.Sprintf("list element kind %q is not a scalar", f.Elem))
		}
	default:
		fail(fmt.Sprintf("unknown field kind %q", f.Kind))
	}

	return errs
}

func validateAction(entity string, a Action) []*CompileError {
	var errs []*CompileError

	if a.Name == "" {
		errs = append(errs, &CompileError{
			Code:    ErrCodeInvalidModel,
			Entity:  entity,
			Message: "action name is required",
		})
	}
	if len(a.Steps) == 0 {
		errs = append(errs, &CompileError{
			Code:    ErrCodeInvalidModel,
			Entity:  entity,
			Action:  a.Name,
			Message: "step list is empty",
		})
	}
	errs = append(errs, validateSteps(entity, a.Name, a.Steps)...)

	if a.Impact != nil {
		errs = append(errs, validateImpact(entity, a.Name, a.Impact)...)
	}

	return errs
}

func validateSteps(entity, action string, steps Steps) []*CompileError {
	var errs []*CompileError

	fail := func(msg string) {
		errs = append(errs, &CompileError{
			Code:    ErrCodeInvalidModel,
			Entity:  entity,
			Action:  action,
			Message: msg,
		})
	}

	for _, step := range steps {
		switch s := step.(type) {
		case *ValidateStep:
			if s.Condition == "" {
				fail("validate step has no condition")
			}
			if s.ErrorCode == "" {
				fail("validate step has no error code")
			}
		case *InsertStep:
			if s.Entity == "" {
				fail("insert step names no entity")
			}
		case *UpdateStep:
			if s.Entity == "" {
				fail("update step names no entity")
			}
			if len(s.Set) == 0 {
				fail("update step assigns no fields")
			}
		case *ConditionalStep:
			if s.Condition == "" {
				fail("conditional step has no condition")
			}
			if len(s.Then) == 0 {
				fail("conditional then-branch is empty")
			}
			errs = append(errs, validateSteps(entity, action, s.Then)...)
			errs = append(errs, validateSteps(entity, action, s.Else)...)
		case *CallStep:
			if s.Action == "" {
				fail("call step names no action")
			}
		case *NotifyStep:
			if s.Recipient == "" {
				fail("notify step has no recipient")
			}
			if s.Message == "" {
				fail("notify step has no message template")
			}
		}
	}

	return errs
}

func validateImpact(entity, action string, imp *ImpactDeclaration) []*CompileError {
	var errs []*CompileError

	fail := func(msg string) {
		errs = append(errs, &CompileError{
			Code:    ErrCodeInvalidModel,
			Entity:  entity,
			Action:  action,
			Message: msg,
		})
	}

	if imp.Primary.Entity == "" {
		fail("impact declares no primary entity")
	}
	if imp.Primary.Operation != "" && !ValidOperations[imp.Primary.Operation] {
		fail(fmt.Sprintf("unknown impact operation %q", imp.Primary.Operation))
	}
	for _, se := range imp.SideEffects {
		if se.Entity == "" {
			fail("side-effect impact declares no entity")
		}
		if se.Operation != "" && !ValidOperations[se.Operation] {
			fail(fmt.Sprintf("unknown impact operation %q", se.Operation))
		}
	}
	for _, ci := range imp.CacheInvalidations {
		if ci.Query == "" {
			fail("cache invalidation names no query")
		}
		if ci.Strategy != "" && !ValidStrategies[ci.Strategy] {
			fail(fmt.Sprintf("unknown cache invalidation strategy %q", ci.Strategy))
		}
	}

	return errs
}
