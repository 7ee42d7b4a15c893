package migration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mlahaye/graft/internal/actiongen"
	"github.com/mlahaye/graft/internal/annotate"
	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
	"github.com/mlahaye/graft/internal/schemagen"
)

// Unit is one assembled migration unit.
type Unit struct {
	Entity string
	SQL    string
}

// Assembler drives the full pipeline for a topologically ordered entity
// model: schema, functions, annotations, concatenated per entity in that
// fixed order (functions reference schema objects, annotations reference
// both).
type Assembler struct {
	entities []ast.Entity
	reg      *identity.Registry
	schema   *schemagen.Compiler
	actions  *actiongen.Compiler
	annot    *annotate.Annotator
	done     map[string]bool
}

// NewAssembler validates the model and resolves every identity up front.
// Validation does not fail fast: all structural errors are reported at once.
func NewAssembler(entities []ast.Entity) (*Assembler, error) {
	var errs []error
	for _, e := range entities {
		for _, ce := range ast.Validate(e) {
			errs = append(errs, ce)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	reg, err := identity.NewRegistry(entities)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		entities: entities,
		reg:      reg,
		schema:   schemagen.New(reg),
		actions:  actiongen.New(reg),
		annot:    annotate.NewAnnotator(reg),
		done:     make(map[string]bool),
	}, nil
}

// Registry exposes the resolved identities.
func (asm *Assembler) Registry() *identity.Registry {
	return asm.reg
}

// Entities returns the model in input order.
func (asm *Assembler) Entities() []ast.Entity {
	return asm.entities
}

// AssembleAll assembles one unit per entity in input order.
func (asm *Assembler) AssembleAll() ([]Unit, error) {
	units := make([]Unit, 0, len(asm.entities))
	for _, e := range asm.entities {
		u, err := asm.Assemble(e)
		if err != nil {
			return nil, err
		}
		units = append(units, *u)
	}
	return units, nil
}

// Assemble builds the migration unit for one entity. Every entity the unit
// depends on must have been assembled before it; a dependency outside the
// model is an unknown reference, a dependency not yet assembled is an
// ordering violation.
func (asm *Assembler) Assemble(e ast.Entity) (*Unit, error) {
	ci, ok := asm.reg.Lookup(e.Name)
	if !ok {
		return nil, &ast.CompileError{
			Code:    ast.ErrCodeUnknownEntityReference,
			Entity:  e.Name,
			Message: "entity is not part of the compilation input",
		}
	}
	if err := asm.checkOrder(e); err != nil {
		return nil, err
	}

	table, err := asm.schema.Compile(e)
	if err != nil {
		return nil, err
	}
	trinity, err := asm.actions.TrinityHelpers(e)
	if err != nil {
		return nil, err
	}
	annotations, err := asm.annot.Annotate(e)
	if err != nil {
		return nil, err
	}
	annSQL, err := annotate.Render(annotations)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Migration unit for %s.%s\n", ci.Schema, e.Name)
	b.WriteString("-- Generated by graft. Do not edit.\n")
	b.WriteString("\n-- Schema\n\n")
	b.WriteString(table.DDL())
	b.WriteString("\n-- Functions\n\n")
	b.WriteString(trinity)
	for _, act := range e.Actions {
		fn, err := asm.actions.CompileAction(e, act)
		if err != nil {
			return nil, err
		}
		b.WriteString("\n")
		b.WriteString(fn)
	}
	b.WriteString("\n-- Annotations\n\n")
	b.WriteString(annSQL)

	asm.done[e.Name] = true
	return &Unit{Entity: e.Name, SQL: b.String()}, nil
}

// checkOrder verifies that every entity this unit depends on exists in the
// model and is already assembled. Self references are always in order.
func (asm *Assembler) checkOrder(e ast.Entity) error {
	check := func(target, via string) error {
		if target == "" || target == e.Name {
			return nil
		}
		if _, ok := asm.reg.Lookup(target); !ok {
			return &ast.CompileError{
				Code:    ast.ErrCodeUnknownEntityReference,
				Entity:  e.Name,
				Message: fmt.Sprintf("%s references unknown entity %q", via, target),
			}
		}
		if !asm.done[target] {
			return &ast.CompileError{
				Code:    ast.ErrCodeOutOfOrderReference,
				Entity:  e.Name,
				Message: fmt.Sprintf("%s references %q, which is not assembled yet", via, target),
			}
		}
		return nil
	}

	for _, f := range e.Fields {
		if f.Kind != ast.FieldReference {
			continue
		}
		if err := check(f.Ref, "field "+f.Name); err != nil {
			return err
		}
	}
	for _, a := range e.Actions {
		if err := asm.checkStepOrder(e, a.Name, a.Steps, check); err != nil {
			return err
		}
	}
	return nil
}

func (asm *Assembler) checkStepOrder(e ast.Entity, action string, steps ast.Steps, check func(target, via string) error) error {
	via := "action " + action
	for _, step := range steps {
		switch s := step.(type) {
		case *ast.InsertStep:
			if err := check(s.Entity, via); err != nil {
				return err
			}
		case *ast.UpdateStep:
			if err := check(s.Entity, via); err != nil {
				return err
			}
		case *ast.ConditionalStep:
			if err := asm.checkStepOrder(e, action, s.Then, check); err != nil {
				return err
			}
			if err := asm.checkStepOrder(e, action, s.Else, check); err != nil {
				return err
			}
		}
	}
	return nil
}
