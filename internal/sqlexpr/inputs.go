package sqlexpr

import (
	"fmt"

	exprast "github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

type inputCollector struct {
	names []string
	seen  map[string]bool
}

func (c *inputCollector) Visit(node *exprast.Node) {
	member, ok := (*node).(*exprast.MemberNode)
	if !ok {
		return
	}
	base, ok := member.Node.(*exprast.IdentifierNode)
	if !ok || base.Value != "input" {
		return
	}
	prop, ok := member.Property.(*exprast.StringNode)
	if !ok {
		return
	}
	if !c.seen[prop.Value] {
		c.seen[prop.Value] = true
		c.names = append(c.names, prop.Value)
	}
}

// Inputs returns the input.<name> references of an expression in first
// appearance order. The action compiler turns them into function parameters.
func Inputs(source string) ([]string, error) {
	tree, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", source, err)
	}
	c := &inputCollector{seen: make(map[string]bool)}
	exprast.Walk(&tree.Node, c)
	return c.names, nil
}
