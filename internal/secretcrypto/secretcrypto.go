// Package secretcrypto encrypts Secret payloads at rest using
// ChaCha20-Poly1305, keyed by a daemon-wide master key supplied at startup.
package secretcrypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/nanocl-project/nanocld/internal/errors"
)

// Box seals and opens Secret payloads with a single master key.
type Box struct {
	aead cipher.AEAD
}

// New builds a Box from a 32-byte master key. Use DeriveKey to turn an
// arbitrary passphrase into a key of the right length.
func New(key []byte) (*Box, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "init secret cipher", 500, err)
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext and returns a base64-encoded nonce||ciphertext
// blob suitable for storing in Secret.Data.
func (b *Box) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(errors.CodeInternal, "generate nonce", 500, err)
	}
	ciphertext := b.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open reverses Seal. It returns a Validation error (not Internal) on any
// failure, since a failure here almost always means the blob was tampered
// with or encrypted under a different key, not a programming bug.
func (b *Box) Open(blob string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, errors.Validation("malformed secret payload")
	}
	nonceSize := b.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, errors.Validation("malformed secret payload")
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Validation("secret payload failed to decrypt")
	}
	return plaintext, nil
}
