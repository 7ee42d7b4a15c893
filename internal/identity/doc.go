// Package identity derives the canonical names every other compiler stage
// uses: the table name and the three identity columns of each entity, plus
// the per-entity helper function names.
//
// A CompiledIdentity is computed once per entity and cached by the Registry;
// the schema compiler, the action compiler, and the annotator all read the
// same value and never re-derive a name. This is the single source of truth
// that keeps generated DDL, function bodies, and annotations from drifting
// apart.
package identity
