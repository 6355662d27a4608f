// Package vault encrypts long-lived chat session credentials at rest using
// AES-256-GCM with a single process-wide key loaded once at startup.
//
// Blob layout: 12-byte nonce | 16-byte authentication tag | ciphertext,
// concatenated in that order. A fresh random nonce is generated per Encrypt
// call and never reused. Decrypt fails closed: any tag mismatch (tampered
// blob or wrong key) surfaces domain.ErrIntegrity instead of an empty value.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/hireloop/chatsync/internal/core/domain"
)

const (
	// KeySize is the required AES-256 key length in bytes.
	KeySize = 32

	nonceSize = 12
	tagSize   = 16
)

// Vault performs symmetric encryption of credential material. It is a pure
// transformation with no I/O and is safe for concurrent use; the key is
// read-only after construction.
type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a 32-byte AES-256 key. The key is never derived
// from user input; it comes from service configuration.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("vault: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the blob in
// the nonce|tag|ciphertext layout.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("vault: generate nonce: %w", err)
	}

	// Seal returns ciphertext followed by the tag; the stored layout puts
	// the tag before the ciphertext.
	sealed := v.aead.Seal(nil, nonce, plaintext, nil)
	cut := len(sealed) - tagSize

	blob := make([]byte, 0, nonceSize+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, sealed[cut:]...)
	blob = append(blob, sealed[:cut]...)
	return blob, nil
}

// Decrypt opens a blob produced by Encrypt. It returns domain.ErrIntegrity
// when the blob is malformed or the authentication tag does not verify.
func (v *Vault) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < nonceSize+tagSize {
		return nil, fmt.Errorf("vault: blob too short (%d bytes): %w", len(blob), domain.ErrIntegrity)
	}

	nonce := blob[:nonceSize]
	tag := blob[nonceSize : nonceSize+tagSize]
	ciphertext := blob[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("vault: open: %w", domain.ErrIntegrity)
	}
	return plaintext, nil
}
