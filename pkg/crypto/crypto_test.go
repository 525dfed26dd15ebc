package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.URLEncoding.EncodeToString(key)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cipher, err := NewCipher(newTestKey(t))
	require.NoError(t, err)

	ciphertext, err := cipher.Encrypt("1//0refresh-token-value")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "refresh-token")

	plaintext, err := cipher.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "1//0refresh-token-value", plaintext)
}

func TestEncryptProducesFreshCiphertext(t *testing.T) {
	cipher, err := NewCipher(newTestKey(t))
	require.NoError(t, err)

	first, err := cipher.Encrypt("same-token")
	require.NoError(t, err)
	second, err := cipher.Encrypt("same-token")
	require.NoError(t, err)

	// Random nonce: identical plaintexts must not produce identical rows.
	assert.NotEqual(t, first, second)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	cipherA, err := NewCipher(newTestKey(t))
	require.NoError(t, err)
	cipherB, err := NewCipher(newTestKey(t))
	require.NoError(t, err)

	ciphertext, err := cipherA.Encrypt("token")
	require.NoError(t, err)

	_, err = cipherB.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptGarbageFails(t *testing.T) {
	cipher, err := NewCipher(newTestKey(t))
	require.NoError(t, err)

	for _, input := range []string{"", "not-base64!!", base64.URLEncoding.EncodeToString([]byte("short"))} {
		_, err := cipher.Decrypt(input)
		assert.ErrorIs(t, err, ErrDecrypt, "input %q", input)
	}
}

func TestNewCipherRejectsBadKeys(t *testing.T) {
	_, err := NewCipher("%%%")
	assert.Error(t, err)

	_, err = NewCipher(base64.URLEncoding.EncodeToString([]byte("too-short")))
	assert.Error(t, err)
}

func TestEmptyKeyUsesLocalDevFallback(t *testing.T) {
	cipher, err := NewCipher("")
	require.NoError(t, err)

	ciphertext, err := cipher.Encrypt("dev-token")
	require.NoError(t, err)

	// The fallback key is deterministic so local restarts can still read
	// previously stored tokens.
	again, err := NewCipher("")
	require.NoError(t, err)
	plaintext, err := again.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "dev-token", plaintext)
}
