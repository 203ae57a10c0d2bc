package security

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatal(err)
	}
	key := DeriveKey("correct horse battery staple", salt)

	plaintext := []byte(`{"llm_api_key":"sk-test-1234"}`)
	encrypted, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatal(err)
	}
	if encrypted == string(plaintext) {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := Decrypt(encrypted, key)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("round trip mismatch: %q", decrypted)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	salt, _ := GenerateSalt()
	key := DeriveKey("password-one", salt)
	wrong := DeriveKey("password-two", salt)

	encrypted, err := Encrypt([]byte("secret"), key)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Decrypt(encrypted, wrong); err == nil {
		t.Error("expected decryption failure with wrong key")
	}
}

func TestDecryptGarbage(t *testing.T) {
	salt, _ := GenerateSalt()
	key := DeriveKey("pw", salt)

	if _, err := Decrypt("not-base64!!!", key); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := Decrypt("dG9vc2hvcnQ=", key); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, _ := GenerateSalt()

	k1 := DeriveKey("pw", salt)
	k2 := DeriveKey("pw", salt)
	if !bytes.Equal(k1, k2) {
		t.Error("same password and salt should derive the same key")
	}

	other, _ := GenerateSalt()
	k3 := DeriveKey("pw", other)
	if bytes.Equal(k1, k3) {
		t.Error("different salt should derive a different key")
	}
}
