package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

// DH-IETF1024-SHA256-AES128-CBC-PKCS7 algorithm constants
const (
	AlgorithmDHAES = "dh-ietf1024-sha256-aes128-cbc-pkcs7"
)

const dhKeySize = 128

// RFC 2409 MODP group 2 (1024-bit)
var (
	dhPrime = func() *big.Int {
		p, _ := new(big.Int).SetString(
			"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1"+
				"29024E088A67CC74020BBEA63B139B22514A08798E3404DD"+
				"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245"+
				"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED"+
				"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE65381"+
				"FFFFFFFFFFFFFFFF", 16)
		return p
	}()
	dhGenerator = big.NewInt(2)
)

// ErrNotEstablished is returned when encrypting before the key exchange finished
var ErrNotEstablished = errors.New("session key not established")

// DHSession implements DH key exchange with AES-128-CBC encryption
type DHSession struct {
	privateKey *big.Int
	publicKey  *big.Int
	aesKey     []byte
}

// NewDHSession creates a new DH session with a fresh key pair
func NewDHSession() (*DHSession, error) {
	// private key in [2, p-2]
	limit := new(big.Int).Sub(dhPrime, big.NewInt(3))
	privateKey, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	privateKey.Add(privateKey, big.NewInt(2))

	// Calculate public key: g^private mod p
	publicKey := new(big.Int).Exp(dhGenerator, privateKey, dhPrime)

	return &DHSession{
		privateKey: privateKey,
		publicKey:  publicKey,
	}, nil
}

// Algorithm returns the algorithm name
func (s *DHSession) Algorithm() string {
	return AlgorithmDHAES
}

// Input returns our public key, padded to 128 bytes
func (s *DHSession) Input() []byte {
	return padKey(s.publicKey.Bytes())
}

// Establish derives the AES key from the service's public key (big-endian bytes)
func (s *DHSession) Establish(output []byte) error {
	peer := new(big.Int).SetBytes(output)
	upper := new(big.Int).Sub(dhPrime, big.NewInt(1))
	if peer.Cmp(big.NewInt(1)) <= 0 || peer.Cmp(upper) >= 0 {
		return fmt.Errorf("invalid peer public key")
	}

	// Calculate shared secret: peer^private mod p
	sharedSecret := new(big.Int).Exp(peer, s.privateKey, dhPrime)

	// Derive AES key using HKDF-SHA256 with NULL salt and empty info
	hkdfReader := hkdf.New(sha256.New, padKey(sharedSecret.Bytes()), nil, nil)
	aesKey := make([]byte, 16)
	if _, err := hkdfReader.Read(aesKey); err != nil {
		return fmt.Errorf("HKDF failed: %w", err)
	}
	s.aesKey = aesKey
	return nil
}

// Encrypt encrypts plaintext using AES-128-CBC with PKCS7 padding
// Returns IV as parameters and ciphertext
func (s *DHSession) Encrypt(plaintext []byte) (parameters, ciphertext []byte, err error) {
	if s.aesKey == nil {
		return nil, nil, ErrNotEstablished
	}
	block, err := aes.NewCipher(s.aesKey)
	if err != nil {
		return nil, nil, err
	}

	// PKCS7 padding
	padLen := aes.BlockSize - (len(plaintext) % aes.BlockSize)
	padded := make([]byte, len(plaintext)+padLen)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, err
	}

	ciphertext = make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)

	return iv, ciphertext, nil
}

// Decrypt decrypts ciphertext using AES-128-CBC with PKCS7 padding
// parameters contains the IV
func (s *DHSession) Decrypt(parameters, ciphertext []byte) (plaintext []byte, err error) {
	if s.aesKey == nil {
		return nil, ErrNotEstablished
	}
	if len(parameters) != aes.BlockSize {
		return nil, fmt.Errorf("invalid IV length: %d", len(parameters))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("invalid ciphertext length: %d", len(ciphertext))
	}

	block, err := aes.NewCipher(s.aesKey)
	if err != nil {
		return nil, err
	}

	decrypted := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, parameters)
	mode.CryptBlocks(decrypted, ciphertext)

	// Remove PKCS7 padding
	padLen := int(decrypted[len(decrypted)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(decrypted) {
		return nil, fmt.Errorf("invalid padding: padLen=%d", padLen)
	}
	for i := len(decrypted) - padLen; i < len(decrypted); i++ {
		if decrypted[i] != byte(padLen) {
			return nil, fmt.Errorf("invalid padding")
		}
	}

	return decrypted[:len(decrypted)-padLen], nil
}

// Close zeroes the session key
func (s *DHSession) Close() error {
	for i := range s.aesKey {
		s.aesKey[i] = 0
	}
	s.aesKey = nil
	return nil
}

// padKey left-pads a big-endian value with zeros to the 1024-bit group size
func padKey(b []byte) []byte {
	padded := make([]byte, dhKeySize)
	copy(padded[dhKeySize-len(b):], b)
	return padded
}
