package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringTokens(t *testing.T) {
	keyring.MockInit()

	_, err := LoadToken("https://a.example.com")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, SaveToken("https://a.example.com", "tok-a"))
	require.NoError(t, SaveToken("https://b.example.com", "tok-b"))

	token, err := LoadToken("https://a.example.com")
	require.NoError(t, err)
	assert.Equal(t, "tok-a", token)

	require.NoError(t, DeleteToken("https://a.example.com"))
	require.NoError(t, DeleteToken("https://a.example.com"))

	_, err = LoadToken("https://a.example.com")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	token, err = LoadToken("https://b.example.com")
	require.NoError(t, err)
	assert.Equal(t, "tok-b", token)
}

func TestServerTokens(t *testing.T) {
	keyring.MockInit()

	tokens := ForServer(Default, "https://gw.example.com")
	require.NoError(t, tokens.SaveToken("abc"))

	token, err := tokens.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, tokens.DeleteToken())
	_, err = tokens.LoadToken()
	assert.Error(t, err)
}
