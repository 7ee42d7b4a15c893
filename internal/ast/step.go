package ast

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// StepKind tags the concrete variant of a Step.
type StepKind string

const (
	StepValidate    StepKind = "validate"
	StepInsert      StepKind = "insert"
	StepUpdate      StepKind = "update"
	StepConditional StepKind = "if"
	StepCall        StepKind = "call"
	StepNotify      StepKind = "notify"
)

// Step is one action step. The set of implementations is closed: exactly the
// six variants below exist, and compiler switches over them are exhaustive.
// The boundary document dispatches on the "step" tag; in memory there is no
// string dispatch.
type Step interface {
	Kind() StepKind

	// sealed prevents implementations outside this package.
	sealed()
}

// ValidateStep halts the action with a typed error result when its condition
// does not hold against the current entity state.
type ValidateStep struct {
	Condition string `yaml:"condition" json:"condition"`
	ErrorCode string `yaml:"error" json:"error"`
}

// InsertStep creates a row in the target entity's table.
type InsertStep struct {
	Entity string       `yaml:"entity" json:"entity"`
	Set    []Assignment `yaml:"set" json:"set"`
}

// UpdateStep updates rows of the target entity. An empty filter targets the
// action's primary row.
type UpdateStep struct {
	Entity string       `yaml:"entity" json:"entity"`
	Set    []Assignment `yaml:"set" json:"set"`
	Filter string       `yaml:"filter,omitempty" json:"filter,omitempty"`
}

// ConditionalStep branches on a condition. Both arms lower recursively; if
// neither arm returns, execution falls through to the following step.
type ConditionalStep struct {
	Condition string `yaml:"condition" json:"condition"`
	Then      Steps  `yaml:"then" json:"then"`
	Else      Steps  `yaml:"else,omitempty" json:"else,omitempty"`
}

// CallStep invokes another compiled action and propagates its error result.
type CallStep struct {
	Action string       `yaml:"action" json:"action"`
	Args   []Assignment `yaml:"args,omitempty" json:"args,omitempty"`
}

// NotifyStep records a notification row as a side effect.
type NotifyStep struct {
	Recipient string `yaml:"recipient" json:"recipient"`
	Message   string `yaml:"message" json:"message"`
}

func (*ValidateStep) Kind() StepKind    { return StepValidate }
func (*InsertStep) Kind() StepKind      { return StepInsert }
func (*UpdateStep) Kind() StepKind      { return StepUpdate }
func (*ConditionalStep) Kind() StepKind { return StepConditional }
func (*CallStep) Kind() StepKind        { return StepCall }
func (*NotifyStep) Kind() StepKind      { return StepNotify }

func (*ValidateStep) sealed()    {}
func (*InsertStep) sealed()      {}
func (*UpdateStep) sealed()      {}
func (*ConditionalStep) sealed() {}
func (*CallStep) sealed()        {}
func (*NotifyStep) sealed()      {}

// Steps is an ordered step list. It decodes from YAML by dispatching on each
// element's "step" tag into the matching closed variant.
type Steps []Step

// UnmarshalYAML implements yaml.Unmarshaler for the tagged step encoding.
func (s *Steps) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("steps: expected a sequence, got %s", yamlKindName(value.Kind))
	}

	out := make(Steps, 0, len(value.Content))
	for i, node := range value.Content {
		step, err := decodeStep(node)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		out = append(out, step)
	}
	*s = out
	return nil
}

func decodeStep(node *yaml.Node) (Step, error) {
	var tag struct {
		Step StepKind `yaml:"step"`
	}
	if err := node.Decode(&tag); err != nil {
		return nil, err
	}

	switch tag.Step {
	case StepValidate:
		v := &ValidateStep{}
		return v, node.Decode(v)
	case StepInsert:
		v := &InsertStep{}
		return v, node.Decode(v)
	case StepUpdate:
		v := &UpdateStep{}
		return v, node.Decode(v)
	case StepConditional:
		v := &ConditionalStep{}
		return v, node.Decode(v)
	case StepCall:
		v := &CallStep{}
		return v, node.Decode(v)
	case StepNotify:
		v := &NotifyStep{}
		return v, node.Decode(v)
	case "":
		return nil, fmt.Errorf("missing step tag")
	default:
		return nil, fmt.Errorf("unknown step kind %q", tag.Step)
	}
}

func yamlKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
