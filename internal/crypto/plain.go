package crypto

import (
	dbtypes "github.com/nikicat/secret-migrate/internal/dbus"
)

// PlainSession implements the "plain" algorithm (no encryption)
type PlainSession struct{}

// NewPlainSession creates a new plain text session
func NewPlainSession() *PlainSession {
	return &PlainSession{}
}

// Algorithm returns "plain"
func (s *PlainSession) Algorithm() string {
	return dbtypes.AlgorithmPlain
}

// Input is empty for plain sessions
func (s *PlainSession) Input() []byte {
	return nil
}

// Establish ignores the service output
func (s *PlainSession) Establish(output []byte) error {
	return nil
}

// Encrypt returns the plaintext as-is (no encryption)
func (s *PlainSession) Encrypt(plaintext []byte) (parameters, ciphertext []byte, err error) {
	return []byte{}, plaintext, nil
}

// Decrypt returns the ciphertext as-is (no decryption)
func (s *PlainSession) Decrypt(parameters, ciphertext []byte) (plaintext []byte, err error) {
	return ciphertext, nil
}

// Close is a no-op for plain sessions
func (s *PlainSession) Close() error {
	return nil
}
