package util

import (
	"errors"
	"testing"

	"github.com/passlock/go-passlock-server/types"
	"github.com/tj/assert"
)

const (
	testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testIVHex  = "000102030405060708090a0b0c0d0e0f"
	testSalt   = "pepper"
)

func newTestCipher(t *testing.T) *Cipher {
	c, err := NewCipher(testKeyHex, testIVHex, testSalt)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewCipherRejectsBadKeys(t *testing.T) {
	if _, err := NewCipher("abcd", testIVHex, testSalt); err == nil {
		t.Fatal("expected error for short key")
	}
	if _, err := NewCipher(testKeyHex, "abcd", testSalt); err == nil {
		t.Fatal("expected error for short iv")
	}
	if _, err := NewCipher("not-hex", testIVHex, testSalt); err == nil {
		t.Fatal("expected error for non hex key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newTestCipher(t)
	for _, plaintext := range []string{"a", "alice@example.com", "hunter2", "exactly 16 bytes", "a somewhat longer value spanning several cipher blocks"} {
		encrypted, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatal(err)
		}
		decrypted, err := c.Decrypt(encrypted)
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptIsDeterministic(t *testing.T) {
	c := newTestCipher(t)
	first, err := c.Encrypt("alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Encrypt("alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, first, second)
}

func TestHashIsSaltedAndDeterministic(t *testing.T) {
	c := newTestCipher(t)
	assert.Equal(t, c.Hash("hunter2"), c.Hash("hunter2"))

	other, err := NewCipher(testKeyHex, testIVHex, "different-salt")
	if err != nil {
		t.Fatal(err)
	}
	assert.NotEqual(t, c.Hash("hunter2"), other.Hash("hunter2"))
}

func TestDecryptRejectsMalformedCiphertext(t *testing.T) {
	c := newTestCipher(t)

	_, err := c.Decrypt("not hex at all")
	assert.True(t, errors.Is(err, types.ErrCrypto))

	// hex but not a block multiple
	_, err = c.Decrypt("abcdef")
	assert.True(t, errors.Is(err, types.ErrCrypto))
}

func TestDecryptRejectsForeignCiphertext(t *testing.T) {
	c := newTestCipher(t)
	foreign, err := NewCipher("1f1e1d1c1b1a191817161514131211100f0e0d0c0b0a09080706050403020100", testIVHex, testSalt)
	if err != nil {
		t.Fatal(err)
	}
	encrypted, err := foreign.Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}
	if decrypted, err := c.Decrypt(encrypted); err == nil && decrypted == "secret" {
		t.Fatal("decrypted foreign ciphertext with the wrong key")
	}
}

func TestEncryptFieldsSkipsEmpty(t *testing.T) {
	c := newTestCipher(t)
	email := "alice@example.com"
	empty := ""
	if err := c.EncryptFields([]*string{&email, &empty, nil}); err != nil {
		t.Fatal(err)
	}
	assert.NotEqual(t, "alice@example.com", email)
	assert.Equal(t, "", empty)

	if err := c.DecryptFields([]*string{&email, &empty, nil}); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "alice@example.com", email)
}

func TestGeneratePublicEncryptionKeyIsUnique(t *testing.T) {
	first := GeneratePublicEncryptionKey("alice@example.com", "hunter2", testSalt)
	second := GeneratePublicEncryptionKey("alice@example.com", "hunter2", testSalt)
	assert.Equal(t, 64, len(first))
	assert.NotEqual(t, first, second)
}
