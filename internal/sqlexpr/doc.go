// Package sqlexpr translates condition and assignment expressions from the
// entity model into SQL text.
//
// Expressions use expr-lang syntax (status == "lead", input.amount > 0,
// a && b). The package parses them with the expr-lang parser and walks the
// resulting tree, so translation is structural: identifiers are resolved
// against the entity's field list, only a whitelisted function set is
// accepted, and every literal is rendered as a properly escaped SQL literal.
// Raw expression text never reaches the generated SQL.
package sqlexpr
