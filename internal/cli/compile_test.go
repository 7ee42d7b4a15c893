package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_WritesUnits(t *testing.T) {
	dir := t.TempDir()
	out, _, err := execute(t, "compile", "testdata/model", "-o", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 2 entit(ies), 1 action(s)")
	assert.Contains(t, out, "crm.Contact: 5 field(s), 1 action(s)")

	foundation, err := os.ReadFile(filepath.Join(dir, "000_foundation.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(foundation), "CREATE SCHEMA IF NOT EXISTS app;")

	user, err := os.ReadFile(filepath.Join(dir, "001_user.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(user), "-- Migration unit for crm.User")
	assert.Contains(t, string(user), "CREATE TABLE IF NOT EXISTS crm.tb_user (")

	contact, err := os.ReadFile(filepath.Join(dir, "002_contact.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(contact), "CREATE TABLE IF NOT EXISTS crm.tb_contact (")
	assert.Contains(t, string(contact), "CREATE OR REPLACE FUNCTION crm.qualify_lead(")
	assert.Contains(t, string(contact), "-- Annotations")
}

func TestCompile_Docs(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "compile", "testdata/model", "-o", dir, "--docs")
	require.NoError(t, err)

	docs, err := os.ReadFile(filepath.Join(dir, "contact.mutations.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(docs), "mutation: qualifyLead")

	// User declares no actions, so no document is written for it.
	_, err = os.Stat(filepath.Join(dir, "user.mutations.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompile_DocsRequireOutput(t *testing.T) {
	out, _, err := execute(t, "compile", "testdata/model", "--docs")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "--docs requires --output")
}

func TestCompile_StdoutStream(t *testing.T) {
	out, _, err := execute(t, "compile", "testdata/model")
	require.NoError(t, err)

	// Foundation first, then units in assembly order.
	foundation := indexOf(t, out, "CREATE SCHEMA IF NOT EXISTS app;")
	user := indexOf(t, out, "-- Migration unit for crm.User")
	contact := indexOf(t, out, "-- Migration unit for crm.Contact")
	assert.Less(t, foundation, user)
	assert.Less(t, user, contact)
}

func TestCompile_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "compile", "testdata/model")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data)
}

func TestCompile_MissingPath(t *testing.T) {
	out, _, err := execute(t, "compile", "testdata/does-not-exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestCompile_BrokenModel(t *testing.T) {
	out, _, err := execute(t, "compile", "testdata/broken")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, ErrCodeInvalidModel)
}

func TestCompile_VerboseLogsToStderr(t *testing.T) {
	dir := t.TempDir()
	out, errOut, err := execute(t, "-v", "compile", "testdata/model", "-o", dir)
	require.NoError(t, err)

	assert.Contains(t, errOut, "Compiling entity: crm.Contact")
	assert.NotContains(t, out, "Compiling entity:")
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	i := strings.Index(s, sub)
	require.NotEqual(t, -1, i, "expected output to contain %q", sub)
	return i
}
