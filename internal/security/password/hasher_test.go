package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct")
	require.NoError(t, err)
	assert.NotEqual(t, "correct", hash)
	assert.True(t, IsHash(hash))

	assert.True(t, h.Verify("correct", hash))
	assert.False(t, h.Verify("wrong", hash))
	assert.False(t, h.Verify("correct", ""))
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	a, err := h.Hash("password")
	require.NoError(t, err)
	b, err := h.Hash("password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_EmptyPassword(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNewHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).Cost)
	assert.Equal(t, DefaultCost, NewHasher(99).Cost)
}

func TestIsHash(t *testing.T) {
	assert.False(t, IsHash("secret"))
	assert.False(t, IsHash(""))
}

func TestPolicy_Validate(t *testing.T) {
	ok, reasons := Policy{}.Validate("pw")
	assert.True(t, ok)
	assert.Empty(t, reasons)

	ok, reasons = Policy{MinLength: 8, RequireDigit: true}.Validate("short")
	assert.False(t, ok)
	assert.Equal(t, []string{"too_short", "missing_digit"}, reasons)
}
