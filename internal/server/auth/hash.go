package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/dmitrijs2005/demoauth/internal/common"
)

// RefreshTokenBytes is the entropy of a raw refresh token.
const RefreshTokenBytes = 32

// SHA256Hasher digests opaque refresh tokens for at-rest storage. The raw
// token already carries 256 bits of entropy, so no key or salt is involved
// and the same input always maps to the same lookup key.
type SHA256Hasher struct{}

// Hash returns the lowercase hex SHA-256 of raw (always 64 characters).
func (SHA256Hasher) Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Equal compares two digests in constant time.
func (SHA256Hasher) Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// NewRefreshToken returns a fresh raw refresh token: RefreshTokenBytes from
// crypto/rand, base64url without padding.
func NewRefreshToken() (string, error) {
	return common.MakeRandURLString(RefreshTokenBytes)
}
