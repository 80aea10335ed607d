// Package vault encrypts aggregator access tokens at rest.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Vault seals and opens small secrets with XChaCha20-Poly1305. The cipher
// key is derived once from a passphrase and per-vault salt via Argon2id.
type Vault struct {
	key []byte
}

// saltSize is the Argon2id salt length in bytes.
const saltSize = 32

// NewSalt generates a salt for a fresh vault. Persist it alongside the
// database; the same salt must be supplied on every open.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Open derives the vault key from a passphrase and salt.
func Open(passphrase string, salt []byte) (*Vault, error) {
	if passphrase == "" {
		return nil, errors.New("vault: empty passphrase")
	}
	if len(salt) != saltSize {
		return nil, fmt.Errorf("vault: salt must be %d bytes, got %d", saltSize, len(salt))
	}

	key := argon2.IDKey([]byte(passphrase), salt, 3, 64*1024, 4, chacha20poly1305.KeySize)
	return &Vault{key: key}, nil
}

// Seal encrypts plaintext and returns nonce||ciphertext.
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("vault: generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a nonce||ciphertext blob produced by Seal.
func (v *Vault) OpenSealed(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("vault: sealed data too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("vault: decryption failed (wrong passphrase?): %w", err)
	}
	return plaintext, nil
}

// SealString encrypts a string and base64-encodes the result for storage in
// a text column.
func (v *Vault) SealString(s string) (string, error) {
	sealed, err := v.Seal([]byte(s))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenString reverses SealString.
func (v *Vault) OpenString(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("vault: decode sealed string: %w", err)
	}
	plaintext, err := v.OpenSealed(sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
