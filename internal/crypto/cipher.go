package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrCipher is the sentinel for all symmetric cipher failures: invalid key
// length, malformed ciphertext, or an authentication failure on decrypt.
// Callers match it with errors.Is; the wrapped cause carries detail.
var ErrCipher = errors.New("cipher error")

// Cipher performs reversible encryption of secret strings under a single
// master key using AES-GCM. The master key is process-wide configuration,
// injected once at construction and never logged.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from the master key. The key must be 16, 24, or
// 32 bytes (AES-128/192/256).
func NewCipher(masterKey []byte) (*Cipher, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCipher, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCipher, err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64 text. A random nonce is drawn
// per call and prepended to the ciphertext, so output differs between calls
// for the same input.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generate nonce: %v", ErrCipher, err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It fails with ErrCipher on malformed input,
// a truncated blob, or when the ciphertext was produced under a different
// key (GCM authentication failure).
func (c *Cipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", ErrCipher, err)
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrCipher)
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCipher, err)
	}
	return string(plaintext), nil
}
