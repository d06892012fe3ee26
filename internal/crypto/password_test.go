package crypto

import (
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestPasswordCipherRoundTrip(t *testing.T) {
	c, err := NewPasswordCipher(testKey)
	if err != nil {
		t.Fatalf("NewPasswordCipher: %v", err)
	}

	sealed, err := c.Seal("hunter2")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed, EncryptedPrefix) {
		t.Fatalf("sealed value %q lacks prefix", sealed)
	}
	if strings.Contains(sealed, "hunter2") {
		t.Fatal("sealed value leaks the plain password")
	}

	plain, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if plain != "hunter2" {
		t.Fatalf("Open = %q, want hunter2", plain)
	}
}

func TestPasswordCipherPlainPassthrough(t *testing.T) {
	var c *PasswordCipher

	sealed, err := c.Seal("plain")
	if err != nil || sealed != "plain" {
		t.Fatalf("nil cipher Seal = %q, %v", sealed, err)
	}
	plain, err := c.Open("plain")
	if err != nil || plain != "plain" {
		t.Fatalf("nil cipher Open = %q, %v", plain, err)
	}
	if _, err := c.Open(EncryptedPrefix + "AAAA"); err == nil {
		t.Fatal("expected error opening ciphertext without a key")
	}
}

func TestPasswordCipherWrongKey(t *testing.T) {
	a, _ := NewPasswordCipher(testKey)
	b, _ := NewPasswordCipher(strings.Repeat("x", 32))

	sealed, err := a.Seal("secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := b.Open(sealed); err == nil {
		t.Fatal("expected decryption with the wrong key to fail")
	}
}

func TestNewPasswordCipherKeyLength(t *testing.T) {
	if _, err := NewPasswordCipher("short"); err == nil {
		t.Fatal("expected error for short key")
	}
}
