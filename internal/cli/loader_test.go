package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlahaye/graft/internal/ast"
)

func TestLoadModel_Directory(t *testing.T) {
	result, err := LoadModel("testdata/model")
	require.NoError(t, err)
	assert.Equal(t, 2, result.FileCount)
	require.Len(t, result.Entities, 2)

	// Lexical file order is the assembly order.
	assert.Equal(t, "User", result.Entities[0].Name)
	assert.Equal(t, "Contact", result.Entities[1].Name)

	contact := result.Entities[1]
	assert.Equal(t, "crm", contact.Namespace)
	require.Len(t, contact.Fields, 5)
	assert.Equal(t, ast.FieldReference, contact.Fields[4].Kind)
	assert.Equal(t, "User", contact.Fields[4].Ref)

	require.Len(t, contact.Actions, 1)
	steps := contact.Actions[0].Steps
	require.Len(t, steps, 2)
	validate, ok := steps[0].(*ast.ValidateStep)
	require.True(t, ok)
	assert.Equal(t, "not_a_lead", validate.ErrorCode)
	update, ok := steps[1].(*ast.UpdateStep)
	require.True(t, ok)
	assert.Equal(t, "Contact", update.Entity)

	require.NotNil(t, contact.Actions[0].Impact)
	assert.Equal(t, "UPDATE", contact.Actions[0].Impact.Primary.Operation)
	assert.True(t, contact.Actions[0].Impact.OptimisticSafe)
}

func TestLoadModel_SingleFile(t *testing.T) {
	result, err := LoadModel("testdata/model/01_user.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "User", result.Entities[0].Name)
}

func TestLoadModel_NotFound(t *testing.T) {
	_, err := LoadModel("testdata/does-not-exist")
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadModel_UnknownStepKind(t *testing.T) {
	_, err := LoadModel("testdata/bad")
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeParseFailed, loadErr.Code)
	assert.Contains(t, loadErr.Message, "teleport")
}

func TestMapCompileErrorCode(t *testing.T) {
	cases := map[ast.CompileErrorCode]string{
		ast.ErrCodeUnknownEntityReference: ErrCodeUnknownEntity,
		ast.ErrCodeDuplicateField:         ErrCodeDuplicateField,
		ast.ErrCodeDuplicateActionName:    ErrCodeDuplicateAction,
		ast.ErrCodeDuplicateEntity:        ErrCodeDuplicateEntity,
		ast.ErrCodeOutOfOrderReference:    ErrCodeOutOfOrder,
		ast.ErrCodeInvalidModel:           ErrCodeInvalidModel,
		ast.ErrCodeInvalidExpression:      ErrCodeInvalidExpression,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapCompileErrorCode(in))
	}
	assert.Equal(t, ErrCodeGeneric, MapCompileErrorCode("SOMETHING_ELSE"))
}

func TestFlattenErrors(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	c := errors.New("c")

	flat := flattenErrors(errors.Join(errors.Join(a, b), c))
	require.Len(t, flat, 3)
	assert.Equal(t, []error{a, b, c}, flat)

	assert.Nil(t, flattenErrors(nil))
}
