package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidScopeName(t *testing.T) {
	valid := []string{
		"a",
		"read",
		"write",
		"profile:read",
		"email:read:e2e123",
		"a_b-c.d:scope2",
		"a" + strings.Repeat("a", 62) + "b", // 64
	}
	for _, v := range valid {
		assert.True(t, ValidScopeName(v), v)
	}

	invalid := []string{
		"",
		":lead",
		"trail:",
		"bad space",
		"READ",
		"semicolon;hack",
		strings.Repeat("a", 65),
	}
	for _, v := range invalid {
		assert.False(t, ValidScopeName(v), v)
	}
}

func TestValidRedirectURI(t *testing.T) {
	assert.True(t, ValidRedirectURI("http://localhost:3000/oauth_callback"))
	assert.True(t, ValidRedirectURI("https://app.example.com/cb?x=1"))

	assert.False(t, ValidRedirectURI(""))
	assert.False(t, ValidRedirectURI("/relative/cb"))
	assert.False(t, ValidRedirectURI("javascript:alert(1)"))
	assert.False(t, ValidRedirectURI("https://app.example.com/cb#frag"))
	assert.False(t, ValidRedirectURI(" https://app.example.com/cb"))
}
