// Package annotate turns compiled schema and action output into structured
// API metadata: typed comment annotations on tables, columns, and functions,
// plus a standalone mutation document per action for downstream schema and
// documentation tooling. Records stay structured in memory and flatten to
// text only at emission.
package annotate
