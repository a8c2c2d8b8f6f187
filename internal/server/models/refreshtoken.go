package models

import "time"

// RefreshToken is the persisted record of an issued refresh token. Only the
// digest of the raw value is stored.
//
// Revoked moves from false to true exactly once and never back. ExpiresAt is
// fixed at creation; rotation inserts a new record instead of extending it.
type RefreshToken struct {
	ID        int64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// Expired reports whether the record is past its expiration instant.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Active reports whether the record can still be redeemed at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && !t.Expired(now)
}
