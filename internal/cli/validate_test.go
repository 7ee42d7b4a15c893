package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_OK(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/model")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Model valid")
}

func TestValidate_OK_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", "testdata/model")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidate_BrokenModel(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/broken")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, ErrCodeInvalidModel)
	// Structural validation reports every problem, not just the first.
	assert.Contains(t, out, "empty value set")
	assert.Contains(t, out, "step list is empty")
}

func TestValidate_BrokenModel_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", "testdata/broken")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidModel, resp.Error.Code)
}

func TestValidate_MissingPath(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/does-not-exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}
