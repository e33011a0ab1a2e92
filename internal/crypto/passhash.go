// Package crypto implements server-side secret hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32

	saltLen = 16
)

// HashSecret derives an argon2id digest of secret with a fresh random salt and
// returns it encoded as "<salt>$<hash>" (both base64, no padding). The encoded
// form is what gets stored; the plaintext never is.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypto: read salt: %w", err)
	}

	hash := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	enc := base64.RawStdEncoding
	return enc.EncodeToString(salt) + "$" + enc.EncodeToString(hash), nil
}

// VerifySecret re-derives the digest of secret with the salt embedded in the
// encoded digest and compares in constant time. A malformed digest verifies
// as false rather than returning an error.
func VerifySecret(secret, encoded string) bool {
	salt, expected, ok := decodeDigest(encoded)
	if !ok {
		return false
	}

	got := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

func decodeDigest(encoded string) (salt, hash []byte, ok bool) {
	parts := strings.SplitN(encoded, "$", 2)
	if len(parts) != 2 {
		return nil, nil, false
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[0])
	if err != nil || len(salt) == 0 {
		return nil, nil, false
	}
	hash, err = enc.DecodeString(parts[1])
	if err != nil || len(hash) == 0 {
		return nil, nil, false
	}
	return salt, hash, true
}
