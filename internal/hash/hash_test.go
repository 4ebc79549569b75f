package hash

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashRoundTrip(t *testing.T) {
	encoded, err := HashPassword("Secret123!")
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	require.True(t, CheckPassword(encoded, "Secret123!"))
	require.False(t, CheckPassword(encoded, "Secret123?"))
	require.False(t, CheckPassword(encoded, ""))
}

func TestHashUsesFreshSalt(t *testing.T) {
	first, err := HashPassword("Secret123!")
	require.NoError(t, err)
	second, err := HashPassword("Secret123!")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, CheckPassword(first, "Secret123!"))
	require.True(t, CheckPassword(second, "Secret123!"))
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	// A malformed stored hash is a mismatch, never a panic or an error.
	require.False(t, CheckPassword("not-base64!!!", "Secret123!"))
	require.False(t, CheckPassword("", "Secret123!"))

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	require.False(t, CheckPassword(short, "Secret123!"))
}
