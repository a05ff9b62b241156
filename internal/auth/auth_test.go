package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	directory := NewDirectory()

	identity, ok := directory.Authenticate("alice@company.com", "password")
	require.True(t, ok)
	assert.Equal(t, "u1", identity.ID)
	assert.Equal(t, "Alice", identity.Name)
	assert.False(t, identity.HR)
}

func TestAuthenticateHRAdmin(t *testing.T) {
	directory := NewDirectory()

	identity, ok := directory.Authenticate("hr@company.com", "hr123")
	require.True(t, ok)
	assert.True(t, identity.HR)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	directory := NewDirectory()

	_, ok := directory.Authenticate("alice@company.com", "wrong")
	assert.False(t, ok)
	_, ok = directory.Authenticate("nobody@company.com", "password")
	assert.False(t, ok)
	_, ok = directory.Authenticate("", "")
	assert.False(t, ok)
}
