package crypto

import (
	"bytes"
	"testing"
)

func TestPlainSession(t *testing.T) {
	session, err := NewSession("plain")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer session.Close()

	if len(session.Input()) != 0 {
		t.Errorf("Expected empty input, got %v", session.Input())
	}

	if err := session.Establish(nil); err != nil {
		t.Errorf("Establish failed: %v", err)
	}

	if session.Algorithm() != "plain" {
		t.Errorf("Expected algorithm 'plain', got %s", session.Algorithm())
	}
}

func TestPlainEncryptDecrypt(t *testing.T) {
	session, err := NewSession("plain")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer session.Close()

	plaintext := []byte("test secret value")

	params, ciphertext, err := session.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if len(params) != 0 {
		t.Errorf("Expected empty params, got %v", params)
	}

	if !bytes.Equal(ciphertext, plaintext) {
		t.Errorf("Expected ciphertext to equal plaintext for plain algorithm")
	}

	decrypted, err := session.Decrypt(params, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}

	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("Expected decrypted to equal plaintext")
	}
}

func TestDHKeyExchange(t *testing.T) {
	client, err := NewDHSession()
	if err != nil {
		t.Fatalf("NewDHSession failed: %v", err)
	}
	defer client.Close()

	// the service side derives the key the same way from our public key
	service, err := NewDHSession()
	if err != nil {
		t.Fatalf("NewDHSession failed: %v", err)
	}
	defer service.Close()

	if len(client.Input()) != 128 {
		t.Fatalf("Expected 128-byte public key, got %d", len(client.Input()))
	}

	if err := client.Establish(service.Input()); err != nil {
		t.Fatalf("client Establish failed: %v", err)
	}
	if err := service.Establish(client.Input()); err != nil {
		t.Fatalf("service Establish failed: %v", err)
	}

	if !bytes.Equal(client.aesKey, service.aesKey) {
		t.Fatal("Expected both sides to derive the same key")
	}

	plaintext := []byte("s3cr3t with some length to span blocks")
	iv, ciphertext, err := client.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("Expected ciphertext to differ from plaintext")
	}

	decrypted, err := service.Decrypt(iv, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("Expected %q, got %q", plaintext, decrypted)
	}
}

func TestDHNotEstablished(t *testing.T) {
	session, err := NewDHSession()
	if err != nil {
		t.Fatalf("NewDHSession failed: %v", err)
	}
	if _, _, err := session.Encrypt([]byte("x")); err != ErrNotEstablished {
		t.Errorf("Expected ErrNotEstablished, got %v", err)
	}
}

func TestDHRejectsDegeneratePeerKey(t *testing.T) {
	session, err := NewDHSession()
	if err != nil {
		t.Fatalf("NewDHSession failed: %v", err)
	}
	for _, peer := range [][]byte{nil, {1}, dhPrime.Bytes()} {
		if err := session.Establish(peer); err == nil {
			t.Errorf("Expected error for peer key %x", peer)
		}
	}
}

func TestDHDecryptRejectsBadInput(t *testing.T) {
	a, _ := NewDHSession()
	b, _ := NewDHSession()
	if err := a.Establish(b.Input()); err != nil {
		t.Fatalf("Establish failed: %v", err)
	}

	if _, err := a.Decrypt([]byte("short"), make([]byte, 16)); err == nil {
		t.Error("Expected error for short IV")
	}
	if _, err := a.Decrypt(make([]byte, 16), make([]byte, 15)); err == nil {
		t.Error("Expected error for unaligned ciphertext")
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewSession("unsupported")
	if err == nil {
		t.Error("Expected error for unsupported algorithm")
	}
}

func TestSupportedAlgorithms(t *testing.T) {
	algorithms := SupportedAlgorithms()
	for _, alg := range algorithms {
		session, err := NewSession(alg)
		if err != nil {
			t.Errorf("NewSession(%s) failed: %v", alg, err)
			continue
		}
		if session.Algorithm() != alg {
			t.Errorf("Expected algorithm %s, got %s", alg, session.Algorithm())
		}
	}
}
