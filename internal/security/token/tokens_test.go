package tokens

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(CodeBytes)
	require.NoError(t, err)
	b, err := GenerateOpaqueToken(CodeBytes)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, CodeBytes)
}

func TestGenerateOpaqueToken_InvalidSize(t *testing.T) {
	_, err := GenerateOpaqueToken(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestSHA256Base64URL(t *testing.T) {
	h := SHA256Base64URL("abc")
	assert.Equal(t, "ungWv48Bz-pBQUDeXa4iI7ADYaOWF3qctBD_YfIAFa0", h)
	assert.Equal(t, h, SHA256Base64URL("abc"))
	assert.NotEqual(t, h, SHA256Base64URL("abd"))
}
