// Package schemagen compiles entities into PostgreSQL DDL.
//
// The compiler builds a typed Table model first (columns, constraints,
// indexes) and flattens it to text only at rendering. Every table carries the
// three identity columns up front and the four audit/soft-delete columns at
// the end, regardless of field content. All emitted statements are idempotent
// so a migration unit can be re-run safely.
package schemagen
