package util

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/passlock/go-passlock-server/types"
)

// Cipher is the field encryption engine: deterministic AES-256-CBC with a
// fixed IV plus salted sha256 hashing. Determinism is deliberate, it keeps
// encrypted fields usable as equality filter keys. The trade-off (equality
// patterns leak) is documented in DESIGN.md; replacing the scheme means
// replacing this type, callers only see Encrypt/Decrypt/Hash.
type Cipher struct {
	key  []byte
	iv   []byte
	salt string
}

// NewCipher builds a Cipher from a hex encoded 32 byte key, a hex encoded
// 16 byte IV and the server-wide hash salt.
func NewCipher(keyHex, ivHex, hashSalt string) (*Cipher, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption iv: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("encryption iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	return &Cipher{key: key, iv: iv, salt: hashSalt}, nil
}

// Hash returns the salted sha256 digest of content as hex. Deterministic, so
// the digest itself can be used as an equality query key.
func (c *Cipher) Hash(content string) string {
	sum := sha256.Sum256([]byte(content + c.salt))
	return hex.EncodeToString(sum[:])
}

// Encrypt encrypts content to hex ciphertext. Identical plaintexts produce
// identical ciphertexts.
func (c *Cipher) Encrypt(content string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %s", types.ErrCrypto, err.Error())
	}
	padded := pkcs7Pad([]byte(content), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv).CryptBlocks(encrypted, padded)
	return hex.EncodeToString(encrypted), nil
}

// Decrypt decrypts hex ciphertext produced by Encrypt. Malformed or foreign
// ciphertext fails with an error wrapping types.ErrCrypto; callers must not
// mask that as "field absent".
func (c *Cipher) Decrypt(content string) (string, error) {
	raw, err := hex.DecodeString(content)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not hex", types.ErrCrypto)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a block multiple", types.ErrCrypto, len(raw))
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %s", types.ErrCrypto, err.Error())
	}
	decrypted := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, c.iv).CryptBlocks(decrypted, raw)
	unpadded, err := pkcs7Unpad(decrypted, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// EncryptFields encrypts every non-empty field in place.
func (c *Cipher) EncryptFields(fields []*string) error {
	for _, field := range fields {
		if field == nil || *field == "" {
			continue
		}
		encrypted, err := c.Encrypt(*field)
		if err != nil {
			return err
		}
		*field = encrypted
	}
	return nil
}

// DecryptFields decrypts every non-empty field in place.
func (c *Cipher) DecryptFields(fields []*string) error {
	for _, field := range fields {
		if field == nil || *field == "" {
			continue
		}
		decrypted, err := c.Decrypt(*field)
		if err != nil {
			return err
		}
		*field = decrypted
	}
	return nil
}

// GeneratePublicEncryptionKey derives the client side public encryption key
// handed out at registration. The random component makes the key unique even
// for identical credentials.
func GeneratePublicEncryptionKey(email, password, salt string) string {
	sum := sha256.Sum256([]byte(email + password + salt + uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", types.ErrCrypto)
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", types.ErrCrypto)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("%w: invalid padding", types.ErrCrypto)
		}
	}
	return data[:len(data)-padding], nil
}
