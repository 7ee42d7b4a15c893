package actiongen

import "github.com/mlahaye/graft/internal/ast"

// Signature describes the externally visible parameters of a compiled action
// function. The metadata annotator mirrors it into the mutation document.
type Signature struct {
	// NeedsPrimary reports whether the function takes the primary row
	// reference as its first parameter.
	NeedsPrimary bool

	// Inputs lists the input.<name> parameters in declaration order.
	Inputs []string
}

// Signature computes an action's signature without rendering the function.
func (c *Compiler) Signature(e ast.Entity, a ast.Action) (Signature, error) {
	an, err := c.analyze(e, a)
	if err != nil {
		return Signature{}, err
	}
	return Signature{NeedsPrimary: an.needsRow, Inputs: an.inputs}, nil
}
