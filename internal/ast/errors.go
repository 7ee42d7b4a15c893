package ast

import (
	"errors"
	"fmt"
)

// CompileErrorCode categorizes compile-time failures. Compile errors abort
// the migration unit for the offending entity; they are never recoverable by
// the compiler itself.
type CompileErrorCode string

const (
	// ErrCodeUnknownEntityReference indicates a reference field or step names
	// an entity that is not part of the compilation input.
	ErrCodeUnknownEntityReference CompileErrorCode = "UNKNOWN_ENTITY_REFERENCE"

	// ErrCodeDuplicateField indicates two fields of one entity share a name.
	ErrCodeDuplicateField CompileErrorCode = "DUPLICATE_FIELD"

	// ErrCodeDuplicateActionName indicates two actions of one entity share a name.
	ErrCodeDuplicateActionName CompileErrorCode = "DUPLICATE_ACTION_NAME"

	// ErrCodeDuplicateEntity indicates two entities in the same namespace
	// resolve to the same table name.
	ErrCodeDuplicateEntity CompileErrorCode = "DUPLICATE_ENTITY"

	// ErrCodeOutOfOrderReference indicates a reference target entity exists in
	// the input but has not been assembled yet. Cross-entity ordering is the
	// caller's responsibility; this surfaces a violated ordering assumption.
	ErrCodeOutOfOrderReference CompileErrorCode = "OUT_OF_ORDER_REFERENCE"

	// ErrCodeInvalidModel indicates the entity model violates a structural
	// invariant (empty field list, empty step list, empty enum value set, ...).
	ErrCodeInvalidModel CompileErrorCode = "INVALID_MODEL"

	// ErrCodeInvalidExpression indicates a condition or assignment expression
	// could not be translated to SQL.
	ErrCodeInvalidExpression CompileErrorCode = "INVALID_EXPRESSION"
)

// CompileError identifies the offending model node alongside the failure.
type CompileError struct {
	Code    CompileErrorCode
	Entity  string
	Field   string
	Action  string
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Entity, e.Field, e.Message)
	case e.Action != "":
		return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Entity, e.Action, e.Message)
	case e.Entity != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Entity, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf returns the compile error code of err, or "" if err is not a
// CompileError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) CompileErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
