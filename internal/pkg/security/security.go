// Package security provides password hashing for the stub API and sealing of the session token
// kept on disk by the client. Passwords are hashed with bcrypt; tokens are encrypted with
// XChaCha20-Poly1305 under a key derived from a user secret with Argon2id.
package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	formatPlain  byte = 0
	formatSealed byte = 1

	saltSize = 16
	keySize  = chacha20poly1305.KeySize
)

var (
	// ErrSecretRequired is returned when opening a sealed value without a secret.
	ErrSecretRequired = errors.New("security: value is sealed and no secret is configured")
	// ErrCorrupted is returned for values that cannot be decoded or authenticated.
	ErrCorrupted = errors.New("security: sealed value is corrupted or the secret is wrong")
)

// HashPassword takes a plaintext password and returns its bcrypt hash.
// If an error occurs during hashing, it logs the error and returns the resulting hash as a string.
func HashPassword(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Print(err.Error())
	}
	return string(hash)
}

// CheckPassword compares a bcrypt hashed password with its possible plaintext equivalent.
// It returns nil on success, or an error on failure indicating that the passwords do not match.
func CheckPassword(hashedPassword, userPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(userPassword))
}

// Sealer encrypts small values at rest. With an empty secret values are stored as-is,
// tagged so that they can be told apart from sealed ones.
type Sealer struct {
	secret []byte
}

// NewSealer creates a Sealer for secret.
func NewSealer(secret string) *Sealer {
	return &Sealer{secret: []byte(secret)}
}

// Enabled reports whether values are encrypted.
func (s *Sealer) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Seal returns the stored form of plaintext: format byte, then salt | nonce | ciphertext when sealed.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	if !s.Enabled() {
		return append([]byte{formatPlain}, plaintext...), nil
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("security: salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(s.secret, salt))
	if err != nil {
		return nil, fmt.Errorf("security: cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("security: nonce: %w", err)
	}

	out := make([]byte, 0, 1+saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, formatSealed)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte{formatSealed}), nil
}

// Open reverses Seal.
func (s *Sealer) Open(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, ErrCorrupted
	}
	switch stored[0] {
	case formatPlain:
		return stored[1:], nil
	case formatSealed:
	default:
		return nil, ErrCorrupted
	}
	if !s.Enabled() {
		return nil, ErrSecretRequired
	}

	body := stored[1:]
	if len(body) < saltSize+chacha20poly1305.NonceSizeX {
		return nil, ErrCorrupted
	}
	salt, body := body[:saltSize], body[saltSize:]
	nonce, ciphertext := body[:chacha20poly1305.NonceSizeX], body[chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(deriveKey(s.secret, salt))
	if err != nil {
		return nil, fmt.Errorf("security: cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte{formatSealed})
	if err != nil {
		return nil, ErrCorrupted
	}
	return plaintext, nil
}

func deriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, keySize)
}
