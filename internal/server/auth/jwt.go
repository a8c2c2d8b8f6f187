// Package auth mints and verifies access tokens and digests refresh tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/dmitrijs2005/demoauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ClaimsVersion is bumped whenever the Claims layout changes.
const ClaimsVersion = 1

// MinSigningKeyLength is the shortest HMAC key accepted at startup.
const MinSigningKeyLength = 32

// Claims is the fixed claim set of an access token. Subject carries the
// email, ID the per-token jti.
type Claims struct {
	Version        int    `json:"ver"`
	UserID         string `json:"uid"`
	Email          string `json:"email"`
	OrganizationID string `json:"org"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the identity carried by the claims.
func (c *Claims) Principal() models.Principal {
	return models.Principal{
		ID:             c.UserID,
		Email:          c.Email,
		OrganizationID: c.OrganizationID,
		Role:           c.Role,
	}
}

// IssuerConfig configures an Issuer. Now defaults to time.Now.
type IssuerConfig struct {
	SigningKey    []byte
	SigningMethod string
	Issuer        string
	Audience      string
	TTL           time.Duration
	Now           func() time.Time
}

// Issuer signs access tokens. It holds no per-request state and is safe for
// concurrent use.
type Issuer struct {
	key      []byte
	method   *jwt.SigningMethodHMAC
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewIssuer validates cfg and returns an Issuer. Every error wraps
// common.ErrConfiguration and should stop the process.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("%w: signing key is missing", common.ErrConfiguration)
	}
	if len(cfg.SigningKey) < MinSigningKeyLength {
		return nil, fmt.Errorf("%w: signing key must be at least %d bytes", common.ErrConfiguration, MinSigningKeyLength)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: access token lifetime must be positive", common.ErrConfiguration)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("%w: issuer and audience are required", common.ErrConfiguration)
	}

	var method *jwt.SigningMethodHMAC
	switch strings.ToUpper(cfg.SigningMethod) {
	case "", "HS512":
		method = jwt.SigningMethodHS512
	case "HS256":
		method = jwt.SigningMethodHS256
	default:
		return nil, fmt.Errorf("%w: unsupported signing method %q", common.ErrConfiguration, cfg.SigningMethod)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	return &Issuer{
		key:      key,
		method:   method,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      now,
	}, nil
}

// TTL is the configured access-token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs an access token for p. iat and nbf are the current UTC second,
// exp is iat plus the configured lifetime, jti a fresh UUID.
func (i *Issuer) Issue(p models.Principal) (string, *Claims, error) {
	role, err := validatePrincipal(p)
	if err != nil {
		return "", nil, err
	}

	issuedAt := i.now().UTC().Truncate(time.Second)
	claims := &Claims{
		Version:        ClaimsVersion,
		UserID:         p.ID,
		Email:          p.Email,
		OrganizationID: p.OrganizationID,
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign access token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature, algorithm, issuer, audience and time claims of
// tokenString. Expired tokens yield common.ErrAccessTokenExpired, anything
// else wrong yields common.ErrInvalidToken.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrAccessTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Version != ClaimsVersion {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// validatePrincipal checks p and returns its canonical role.
func validatePrincipal(p models.Principal) (string, error) {
	switch {
	case p.ID == "":
		return "", fmt.Errorf("%w: principal id is empty", common.ErrValidation)
	case p.Email == "":
		return "", fmt.Errorf("%w: principal email is empty", common.ErrValidation)
	case p.OrganizationID == "":
		return "", fmt.Errorf("%w: principal organization is empty", common.ErrValidation)
	}
	role, ok := common.CanonicalRole(p.Role)
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q", common.ErrValidation, p.Role)
	}
	return role, nil
}
