// Package refresh manages opaque refresh tokens: creation and lookup by
// digest (Store) and the single-use rotation state machine (Engine).
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/dmitrijs2005/demoauth/internal/server/auth"
	"github.com/dmitrijs2005/demoauth/internal/server/models"
	"github.com/dmitrijs2005/demoauth/internal/server/repositories/refreshtokens"
)

// Hasher digests raw tokens for at-rest comparison.
type Hasher interface {
	Hash(raw string) string
	Equal(a, b string) bool
}

// Option customises a Store or an Engine.
type Option func(*options)

type options struct {
	hasher   Hasher
	generate func() (string, error)
	now      func() time.Time
}

// WithHasher replaces the SHA-256 hasher.
func WithHasher(h Hasher) Option { return func(o *options) { o.hasher = h } }

// WithGenerator replaces the crypto/rand token generator.
func WithGenerator(g func() (string, error)) Option { return func(o *options) { o.generate = g } }

// WithClock replaces time.Now. Returned instants are converted to UTC.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func buildOptions(opts []Option) options {
	o := options{
		hasher:   auth.SHA256Hasher{},
		generate: auth.NewRefreshToken,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Store is the persistence port for refresh tokens. Raw values only exist
// in memory between Create and the caller; the repository sees digests.
type Store struct {
	repo     refreshtokens.Repository
	lifetime time.Duration
	opts     options
}

// NewStore returns a Store that creates records valid for lifetime.
func NewStore(repo refreshtokens.Repository, lifetime time.Duration, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: refresh token repository is required", common.ErrConfiguration)
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("%w: refresh token lifetime must be positive", common.ErrConfiguration)
	}
	return &Store{repo: repo, lifetime: lifetime, opts: buildOptions(opts)}, nil
}

// Lifetime is the validity window applied to new records.
func (s *Store) Lifetime() time.Duration { return s.lifetime }

func (s *Store) now() time.Time { return s.opts.now().UTC() }

// Create persists a new active record for userID and returns the raw token
// alongside it.
func (s *Store) Create(ctx context.Context, userID string) (string, *models.RefreshToken, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("%w: user id is required", common.ErrValidation)
	}

	raw, err := s.opts.generate()
	if err != nil {
		return "", nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	now := s.now()
	rec, err := s.repo.Create(ctx, &models.RefreshToken{
		UserID:    userID,
		TokenHash: s.opts.hasher.Hash(raw),
		ExpiresAt: now.Add(s.lifetime),
		CreatedAt: now,
	})
	if err != nil {
		return "", nil, err
	}
	return raw, rec, nil
}

// FindByRawToken returns the record whose digest matches raw, whatever its
// state. It returns common.ErrorNotFound when nothing matches.
func (s *Store) FindByRawToken(ctx context.Context, raw string) (*models.RefreshToken, error) {
	if raw == "" {
		return nil, common.ErrorNotFound
	}
	digest := s.opts.hasher.Hash(raw)
	rec, err := s.repo.FindByHash(ctx, digest)
	if err != nil {
		return nil, err
	}
	if !s.opts.hasher.Equal(rec.TokenHash, digest) {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}

// Revoke flips rec to revoked. It reports true only when this call performed
// the transition.
func (s *Store) Revoke(ctx context.Context, rec *models.RefreshToken) (bool, error) {
	won, err := s.repo.Revoke(ctx, rec.ID)
	if err != nil {
		return false, err
	}
	if won {
		rec.Revoked = true
	}
	return won, nil
}

// FindByUserID returns the most recently created record of userID.
func (s *Store) FindByUserID(ctx context.Context, userID string) (*models.RefreshToken, error) {
	return s.repo.FindLatestByUserID(ctx, userID)
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrorNotFound) }
