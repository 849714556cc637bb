//go:build !integration

package security

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := NewEncryptionService("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	const token = "tok_4111111111111111"
	ct, err := svc.Encrypt(token)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ct == token {
		t.Fatal("ciphertext equals plaintext")
	}

	pt, err := svc.Decrypt(ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if pt != token {
		t.Fatalf("round trip mismatch: %q", pt)
	}

	// Nonce is random, so the same plaintext never encrypts twice to the
	// same ciphertext.
	ct2, _ := svc.Encrypt(token)
	if ct == ct2 {
		t.Fatal("expected distinct ciphertexts")
	}
}

func TestEncryptionKeyLength(t *testing.T) {
	if _, err := NewEncryptionService("short"); err == nil {
		t.Fatal("want error for invalid key length")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	svc, _ := NewEncryptionService("0123456789abcdef0123456789abcdef")
	ct, _ := svc.Encrypt("tok_x")
	if _, err := svc.Decrypt(ct[:len(ct)-4] + "AAA="); err == nil {
		t.Fatal("want error for tampered ciphertext")
	}
}
