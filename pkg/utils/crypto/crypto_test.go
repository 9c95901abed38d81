package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sealed, err := Encrypt("1//refresh-token", "secret")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "refresh-token")

	plain, err := Decrypt(sealed, "secret")
	require.NoError(t, err)
	assert.Equal(t, "1//refresh-token", plain)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	a, err := Encrypt("same", "secret")
	require.NoError(t, err)
	b, err := Encrypt("same", "secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	sealed, err := Encrypt("token", "secret")
	require.NoError(t, err)

	_, err = Decrypt(sealed, "other")
	assert.Error(t, err)

	_, err = Decrypt("not base64!", "secret")
	assert.Error(t, err)

	_, err = Decrypt("AAAA", "secret")
	assert.Error(t, err)
}

func TestEmptyKey(t *testing.T) {
	_, err := Encrypt("token", "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
