package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/saegim/proofdesk/internal/domain"
)

const phoneKeySize = 32

// PhoneCipher encrypts canonical phone numbers for storage on orders and
// hashes them for notification audit rows. Raw numbers never leave this
// package unencrypted except through Decrypt.
type PhoneCipher struct {
	aead cipher.AEAD
}

// NewPhoneCipher builds an AES-256-GCM cipher from a hex-encoded 32-byte key.
func NewPhoneCipher(hexKey string) (*PhoneCipher, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("invalid phone encryption key: %w", err)
	}
	if len(key) != phoneKeySize {
		return nil, fmt.Errorf("phone encryption key must be %d bytes, got %d", phoneKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to build gcm: %w", err)
	}

	return &PhoneCipher{aead: aead}, nil
}

// NormalizePhone reduces a raw phone string to canonical local digits.
// A +82 country prefix is rewritten to the leading 0 form.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	hadPlus82 := strings.HasPrefix(trimmed, "+82")
	if hadPlus82 {
		trimmed = trimmed[3:]
	}

	var b strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if hadPlus82 && !strings.HasPrefix(digits, "0") {
		digits = "0" + digits
	}

	if len(digits) < 9 || len(digits) > 11 {
		return "", fmt.Errorf("%w: invalid phone number", domain.ErrValidation)
	}
	return digits, nil
}

// Encrypt seals a canonical phone number. Output is base64(nonce || ciphertext).
func (c *PhoneCipher) Encrypt(canonical string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(canonical), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *PhoneCipher) Decrypt(encrypted string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("invalid encrypted phone: %w", err)
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", fmt.Errorf("invalid encrypted phone: too short")
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt phone: %w", err)
	}
	return string(plain), nil
}

// HashPhone returns the irreversible hex SHA-256 digest stored on
// notification rows.
func HashPhone(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
