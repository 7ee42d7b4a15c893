// Package ast defines the entity model consumed by the compiler pipeline.
//
// This package contains type definitions and structural validation only. All
// other internal packages import ast; ast imports nothing internal. This
// keeps the model the foundational layer with no circular dependencies.
//
// The model is produced by an external front-end parser and handed to this
// compiler already well-formed at the syntactic level. Everything here is
// immutable input: no compiler component mutates an ast value after decoding.
//
// Action steps form a closed sum type (see Step). Adding a new step kind is
// a compile-time decision: every lowering switch in the action compiler is
// exhaustive over the concrete step types.
package ast
