// Package migration assembles compiled output into migration units: one
// ordered, idempotent text block per entity, plus the shared foundation
// objects every unit depends on. Cross-entity ordering is the caller's
// responsibility; the assembler verifies it and fails loudly when violated.
package migration
