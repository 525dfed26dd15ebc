// Package crypto provides authenticated symmetric encryption for OAuth
// tokens stored at rest. Ciphertexts are base64 strings so they can live in
// ordinary text columns; the key is a base64-encoded 32-byte secret from
// TOKEN_ENCRYPTION_KEY.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt is returned for any ciphertext that cannot be authenticated:
// wrong key, corrupted data, or truncation. Callers treat it as "no usable
// credential" rather than a fatal condition.
var ErrDecrypt = errors.New("crypto: unable to decrypt token")

type Cipher struct {
	key []byte
}

// NewCipher builds a Cipher from a base64url key. An empty key is accepted
// for local development and derives a fixed key; config.Load refuses to
// start production without an explicit key before this point is reached.
func NewCipher(encodedKey string) (*Cipher, error) {
	if encodedKey == "" {
		sum := sha256.Sum256([]byte("local-dev-key-not-for-production-use"))
		return &Cipher{key: sum[:]}, nil
	}

	key, err := base64.URLEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_ENCRYPTION_KEY: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must decode to %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	return &Cipher{key: key}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("crypto: cannot encrypt empty token")
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", ErrDecrypt
	}

	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	if len(raw) < aead.NonceSize() {
		return "", ErrDecrypt
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}

	return string(plaintext), nil
}
