package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestTokenRoundTrip(t *testing.T) {
	keyring.MockInit()

	_, err := Default.LoadToken("https://clips.example.com")
	require.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, Default.SaveToken("https://clips.example.com", "tok"))
	token, err := Default.LoadToken("https://clips.example.com")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = Default.LoadToken("https://other.example.com")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, Default.DeleteToken("https://clips.example.com"))
	require.NoError(t, Default.DeleteToken("https://clips.example.com"), "deleting twice is fine")
	_, err = Default.LoadToken("https://clips.example.com")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
