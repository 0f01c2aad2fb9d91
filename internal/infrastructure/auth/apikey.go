// Package auth provides API key generation and verification primitives.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

const (
	// KeyPrefix marks every key issued by this gateway
	KeyPrefix = "ak_"
	// keyLength is the number of random characters after the prefix
	keyLength = 48
)

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// maxRandomByte is the largest multiple of len(keyAlphabet) that fits in a
// byte. Bytes at or above it are discarded so that reducing modulo the
// alphabet size stays uniform.
const maxRandomByte = 256 - (256 % len(keyAlphabet))

var keyPattern = regexp.MustCompile(`^ak_[A-Za-z0-9]{48}$`)

// APIKeyService generates and hashes bearer API keys. Keys carry enough
// entropy (48 base62 chars, ~286 bits) that a plain SHA-256 digest is a
// safe storage form; slow password hashes are unnecessary and would make
// every request pay their cost.
type APIKeyService struct{}

// NewAPIKeyService creates a new APIKeyService
func NewAPIKeyService() *APIKeyService {
	return &APIKeyService{}
}

// Generate returns a new plaintext API key. The plaintext is shown to the
// caller exactly once; only the hash is persisted.
func (s *APIKeyService) Generate() (string, error) {
	key := make([]byte, 0, keyLength)
	buf := make([]byte, keyLength)
	for len(key) < keyLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		key = appendKeyChars(key, buf)
	}
	return KeyPrefix + string(key[:keyLength]), nil
}

// appendKeyChars maps random bytes onto the key alphabet by rejection
// sampling: bytes in the partial final cycle of the modulus are dropped
// instead of aliasing onto the low characters.
func appendKeyChars(dst, random []byte) []byte {
	for _, b := range random {
		if int(b) >= maxRandomByte {
			continue
		}
		dst = append(dst, keyAlphabet[int(b)%len(keyAlphabet)])
	}
	return dst
}

// ValidateFormat reports whether the token has the shape of a key this
// gateway could have issued. It says nothing about whether the key exists.
func (s *APIKeyService) ValidateFormat(token string) bool {
	return keyPattern.MatchString(token)
}

// Hash returns the hex-encoded SHA-256 digest used as the lookup key
func (s *APIKeyService) Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
