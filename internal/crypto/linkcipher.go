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

// ErrMalformedEnvelope is returned when a ciphertext envelope is not
// valid base64 or too short to contain an IV.
var ErrMalformedEnvelope = errors.New("malformed ciphertext envelope")

const keySize = 32

// LinkCipher encrypts product download locations so the store never
// holds them in plaintext. AES-256-CTR with a fresh random IV per
// call; the envelope is base64(iv || ciphertext).
type LinkCipher struct {
	key []byte
}

// NewLinkCipher derives a fixed-size key from the configured material.
// Shorter keys are zero-padded and longer ones truncated, so the same
// configured value always yields the same key.
func NewLinkCipher(keyMaterial string) *LinkCipher {
	key := make([]byte, keySize)
	copy(key, keyMaterial)
	return &LinkCipher{key: key}
}

func (c *LinkCipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	out := make([]byte, aes.BlockSize+len(plaintext))
	copy(out, iv)
	cipher.NewCTR(block, iv).XORKeyStream(out[aes.BlockSize:], []byte(plaintext))

	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *LinkCipher) Decrypt(envelope string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", ErrMalformedEnvelope
	}
	if len(raw) < aes.BlockSize {
		return "", ErrMalformedEnvelope
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	iv, ciphertext := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(plaintext, ciphertext)

	return string(plaintext), nil
}
