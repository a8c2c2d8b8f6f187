package models

import "time"

// User is the identity record the session service authenticates against.
// Role holds the employee type (admin, staff, basic).
type User struct {
	ID             string
	Email          string
	PasswordHash   []byte
	FirstName      string
	LastName       string
	Role           string
	OrganizationID string
	EmailConfirmed bool
	CreatedAt      time.Time
}

// Principal is the authenticated identity embedded in access tokens.
type Principal struct {
	ID             string
	Email          string
	OrganizationID string
	Role           string
}

// Principal projects the user onto its token-facing identity.
func (u *User) Principal() Principal {
	return Principal{
		ID:             u.ID,
		Email:          u.Email,
		OrganizationID: u.OrganizationID,
		Role:           u.Role,
	}
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
