package sqlexpr

import (
	"fmt"
	"strconv"
	"strings"

	exprast "github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
)

// Scope controls how identifiers resolve during translation.
type Scope struct {
	// Entity supplies the resolvable field names. Zero value means no fields
	// resolve (literal-only mode).
	Entity ast.Entity

	// Identity maps fields to physical column names. Must correspond to Entity.
	Identity identity.CompiledIdentity

	// RowVar, when non-empty, prefixes field references (e.g. "v_current"
	// yields v_current.status). When empty, field references render as bare
	// column names, for use inside statements targeting the entity's table.
	RowVar string

	// Params is the set of names addressable as input.<name>, rendered as
	// p_<name> function parameters. Nil forbids input references.
	Params map[string]bool
}

// binaryOps maps expr-lang binary operators to their SQL spelling.
var binaryOps = map[string]string{
	"==":  "=",
	"!=":  "<>",
	"<":   "<",
	"<=":  "<=",
	">":   ">",
	">=":  ">=",
	"&&":  "AND",
	"||":  "OR",
	"and": "AND",
	"or":  "OR",
	"+":   "+",
	"-":   "-",
	"*":   "*",
	"/":   "/",
	"%":   "%",
}

// functions whitelists callable functions and their SQL names.
var functions = map[string]string{
	"upper":    "upper",
	"lower":    "lower",
	"trim":     "trim",
	"len":      "length",
	"coalesce": "coalesce",
	"now":      "now",
	"abs":      "abs",
}

// Compile translates one expression to SQL under the given scope.
func Compile(source string, sc Scope) (string, error) {
	tree, err := parser.Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", source, err)
	}
	sql, err := walk(tree.Node, sc)
	if err != nil {
		return "", fmt.Errorf("compile %q: %w", source, err)
	}
	return sql, nil
}

// CompileLiteral translates a constant expression (no field or input
// references) to SQL. Used for schema column defaults.
func CompileLiteral(source string) (string, error) {
	return Compile(source, Scope{})
}

func walk(node exprast.Node, sc Scope) (string, error) {
	switch n := node.(type) {
	case *exprast.NilNode:
		return "NULL", nil

	case *exprast.BoolNode:
		if n.Value {
			return "TRUE", nil
		}
		return "FALSE", nil

	case *exprast.IntegerNode:
		return strconv.Itoa(n.Value), nil

	case *exprast.FloatNode:
		return "", fmt.Errorf("float literals are not supported")

	case *exprast.StringNode:
		return quoteLiteral(n.Value), nil

	case *exprast.IdentifierNode:
		return resolveField(n.Value, sc)

	case *exprast.MemberNode:
		return walkMember(n, sc)

	case *exprast.UnaryNode:
		return walkUnary(n, sc)

	case *exprast.BinaryNode:
		return walkBinary(n, sc)

	case *exprast.CallNode:
		callee, ok := n.Callee.(*exprast.IdentifierNode)
		if !ok {
			return "", fmt.Errorf("only plain function calls are supported")
		}
		return walkCall(callee.Value, n.Arguments, sc)

	case *exprast.BuiltinNode:
		return walkCall(n.Name, n.Arguments, sc)

	case *exprast.ConditionalNode:
		cond, err := walk(n.Cond, sc)
		if err != nil {
			return "", err
		}
		then, err := walk(n.Exp1, sc)
		if err != nil {
			return "", err
		}
		els, err := walk(n.Exp2, sc)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(CASE WHEN %s THEN %s ELSE %s END)", cond, then, els), nil

	default:
		return "", fmt.Errorf("unsupported expression node %T", node)
	}
}

func walkMember(n *exprast.MemberNode, sc Scope) (string, error) {
	base, ok := n.Node.(*exprast.IdentifierNode)
	if !ok {
		return "", fmt.Errorf("only input.<field> member access is supported")
	}
	prop, ok := n.Property.(*exprast.StringNode)
	if !ok {
		return "", fmt.Errorf("only static member access is supported")
	}
	if base.Value != "input" {
		return "", fmt.Errorf("unknown scope %q (only input.<field> is addressable)", base.Value)
	}
	if sc.Params == nil || !sc.Params[prop.Value] {
		return "", fmt.Errorf("unknown input %q", prop.Value)
	}
	return "p_" + identity.Slugify(prop.Value), nil
}

func walkUnary(n *exprast.UnaryNode, sc Scope) (string, error) {
	operand, err := walk(n.Node, sc)
	if err != nil {
		return "", err
	}
	switch n.Operator {
	case "not", "!":
		return fmt.Sprintf("(NOT %s)", operand), nil
	case "-":
		return fmt.Sprintf("(-%s)", operand), nil
	case "+":
		return operand, nil
	default:
		return "", fmt.Errorf("unsupported unary operator %q", n.Operator)
	}
}

func walkBinary(n *exprast.BinaryNode, sc Scope) (string, error) {
	if n.Operator == "in" {
		return walkIn(n, sc)
	}

	op, ok := binaryOps[n.Operator]
	if !ok {
		return "", fmt.Errorf("unsupported operator %q", n.Operator)
	}

	// NULL comparisons use IS / IS NOT.
	if _, isNil := n.Right.(*exprast.NilNode); isNil {
		left, err := walk(n.Left, sc)
		if err != nil {
			return "", err
		}
		switch n.Operator {
		case "==":
			return fmt.Sprintf("(%s IS NULL)", left), nil
		case "!=":
			return fmt.Sprintf("(%s IS NOT NULL)", left), nil
		}
	}

	left, err := walk(n.Left, sc)
	if err != nil {
		return "", err
	}
	right, err := walk(n.Right, sc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), nil
}

func walkIn(n *exprast.BinaryNode, sc Scope) (string, error) {
	arr, ok := n.Right.(*exprast.ArrayNode)
	if !ok {
		return "", fmt.Errorf("right side of 'in' must be a literal list")
	}
	if len(arr.Nodes) == 0 {
		return "", fmt.Errorf("'in' list is empty")
	}

	left, err := walk(n.Left, sc)
	if err != nil {
		return "", err
	}
	items := make([]string, len(arr.Nodes))
	for i, item := range arr.Nodes {
		items[i], err = walk(item, sc)
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("(%s IN (%s))", left, strings.Join(items, ", ")), nil
}

func walkCall(name string, args []exprast.Node, sc Scope) (string, error) {
	sqlName, ok := functions[name]
	if !ok {
		return "", fmt.Errorf("function %q is not allowed", name)
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		sql, err := walk(arg, sc)
		if err != nil {
			return "", err
		}
		parts[i] = sql
	}
	return fmt.Sprintf("%s(%s)", sqlName, strings.Join(parts, ", ")), nil
}

func resolveField(name string, sc Scope) (string, error) {
	f, ok := sc.Entity.Field(name)
	if !ok {
		return "", fmt.Errorf("unknown identifier %q (not a field of %s)", name, sc.Entity.Name)
	}
	column := sc.Identity.ColumnFor(f)
	if sc.RowVar != "" {
		return sc.RowVar + "." + column, nil
	}
	return column, nil
}

// quoteLiteral renders a string as a single-quoted SQL literal with quote
// doubling. Backslashes are literal in standard-conforming strings.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteLiteral is the exported form used by other generators when embedding
// model-supplied strings (error codes, enum values) into SQL text.
func QuoteLiteral(s string) string {
	return quoteLiteral(s)
}
