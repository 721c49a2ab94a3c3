package token

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	issuer := NewIssuer()

	seen := make(map[string]bool)
	for range 100 {
		tok, err := issuer.NewSessionToken()
		require.NoError(t, err)
		require.NotEmpty(t, tok)

		// URL-safe: must round-trip through base64url without padding
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		assert.Len(t, raw, sessionTokenBytes)

		assert.False(t, seen[tok], "issued token must not repeat")
		seen[tok] = true
	}
}

func TestNewPairingCode(t *testing.T) {
	issuer := NewIssuer()

	code, err := issuer.NewPairingCode(4)
	require.NoError(t, err)
	assert.Len(t, code, 4)
	for _, r := range code {
		assert.Contains(t, pairingCodeDigits, string(r))
	}
}

func TestNewPairingCodeDefaultsLength(t *testing.T) {
	issuer := NewIssuer()

	code, err := issuer.NewPairingCode(0)
	require.NoError(t, err)
	assert.Len(t, code, 4)
}

func TestNewResetCode(t *testing.T) {
	issuer := NewIssuer()

	code, err := issuer.NewResetCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, `^[0-9A-F]{6}$`, code)
}
