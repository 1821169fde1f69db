package crypto

import (
	"fmt"

	dbtypes "github.com/nikicat/secret-migrate/internal/dbus"
)

// Session represents the client half of a Secret Service transport session
type Session interface {
	// Algorithm returns the algorithm name used by this session
	Algorithm() string

	// Input returns the value sent to the service with OpenSession
	Input() []byte

	// Establish completes the session with the output returned by OpenSession
	Establish(output []byte) error

	// Encrypt encrypts a secret value, returning parameters and ciphertext
	Encrypt(plaintext []byte) (parameters, ciphertext []byte, err error)

	// Decrypt decrypts a secret value using parameters and ciphertext
	Decrypt(parameters, ciphertext []byte) (plaintext []byte, err error)

	// Close closes the session and releases any resources
	Close() error
}

// NewSession creates a new crypto session for the given algorithm
func NewSession(algorithm string) (Session, error) {
	switch algorithm {
	case dbtypes.AlgorithmPlain:
		return NewPlainSession(), nil
	case AlgorithmDHAES:
		return NewDHSession()
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algorithm)
	}
}

// SupportedAlgorithms returns the list of supported algorithm names
func SupportedAlgorithms() []string {
	return []string{dbtypes.AlgorithmPlain, AlgorithmDHAES}
}
