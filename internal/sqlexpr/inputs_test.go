package sqlexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputs_FirstAppearanceOrder(t *testing.T) {
	names, err := Inputs(`input.amount > 0 && input.reason != "" && input.amount < 100`)
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "reason"}, names)
}

func TestInputs_NoInputs(t *testing.T) {
	names, err := Inputs(`status == "lead"`)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestInputs_ParseError(t *testing.T) {
	_, err := Inputs(`input.amount >`)
	require.Error(t, err)
}
