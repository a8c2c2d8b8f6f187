// Package services contains server-side business logic. SessionService ties
// the identity collaborator, the access-token issuer and the refresh-token
// engine into login, refresh, logout and introspection.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/dmitrijs2005/demoauth/internal/logging"
	"github.com/dmitrijs2005/demoauth/internal/server/auth"
	"github.com/dmitrijs2005/demoauth/internal/server/metrics"
	"github.com/dmitrijs2005/demoauth/internal/server/models"
	"github.com/dmitrijs2005/demoauth/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// AccessTokenIssuer mints and verifies access tokens.
type AccessTokenIssuer interface {
	Issue(p models.Principal) (string, *auth.Claims, error)
	Parse(token string) (*auth.Claims, error)
}

// RefreshEngine is the refresh-token state machine.
type RefreshEngine interface {
	Issue(ctx context.Context, userID string) (string, *models.RefreshToken, error)
	Verify(ctx context.Context, raw string) (*models.RefreshToken, error)
	Rotate(ctx context.Context, raw string) (string, *models.RefreshToken, error)
	RevokeExplicit(ctx context.Context, raw string) error
	RevokeLatest(ctx context.Context, userID string) error
}

// Denylist blocks access tokens by jti until they expire.
type Denylist interface {
	Add(ctx context.Context, jti string, until time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// SessionDeps are the collaborators of a SessionService. Denylist, Metrics
// and Logger are optional.
type SessionDeps struct {
	Users    users.Repository
	Issuer   AccessTokenIssuer
	Engine   RefreshEngine
	Denylist Denylist
	Metrics  *metrics.Metrics
	Logger   logging.Logger
}

// SessionService issues and manages session credentials.
type SessionService struct {
	users    users.Repository
	issuer   AccessTokenIssuer
	engine   RefreshEngine
	denylist Denylist
	metrics  *metrics.Metrics
	log      logging.Logger

	// dummyHash is compared against on unknown emails so that both paths
	// pay for a bcrypt comparison.
	dummyHash []byte
}

func NewSessionService(d SessionDeps) (*SessionService, error) {
	if d.Users == nil || d.Issuer == nil || d.Engine == nil {
		return nil, fmt.Errorf("%w: session service needs users, issuer and engine", common.ErrConfiguration)
	}
	log := d.Logger
	if log == nil {
		log = logging.Nop{}
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("demoauth-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &SessionService{
		users:     d.Users,
		issuer:    d.Issuer,
		engine:    d.Engine,
		denylist:  d.Denylist,
		metrics:   d.Metrics,
		log:       log.With("module", "session"),
		dummyHash: dummy,
	}, nil
}

// Login authenticates email and password and returns a fresh token pair.
// Unknown users and wrong passwords both yield common.ErrInvalidCredential.
func (s *SessionService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = s.users.CheckPassword(ctx, &models.User{PasswordHash: s.dummyHash}, password)
			s.metrics.Login(false)
			return nil, common.ErrInvalidCredential
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if err := s.users.CheckPassword(ctx, user, password); err != nil {
		s.metrics.Login(false)
		s.log.Info(ctx, "login rejected", "user_id", user.ID)
		return nil, common.ErrInvalidCredential
	}

	confirmed, err := s.users.IsEmailConfirmed(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.Login(false)
			return nil, common.ErrInvalidCredential
		}
		return nil, fmt.Errorf("error checking email confirmation: %w", err)
	}
	if !confirmed {
		s.metrics.Login(false)
		return nil, common.ErrEmailNotConfirmed
	}

	access, err := s.mintAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.engine.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error issuing refresh token: %w", err)
	}
	s.metrics.TokenIssued(metrics.KindAccess)
	s.metrics.TokenIssued(metrics.KindRefresh)
	s.metrics.Login(true)
	s.log.Info(ctx, "user logged in", "user_id", user.ID)

	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh redeems a refresh token for a new pair. The presented token is
// consumed; every invalid outcome is reported as common.ErrInvalidCredential.
func (s *SessionService) Refresh(ctx context.Context, raw string) (*models.TokenPair, error) {
	rec, err := s.engine.Verify(ctx, raw)
	if err != nil {
		return nil, s.refreshFailed(ctx, err)
	}

	user, err := s.users.FindUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "refresh token owner is gone", "user_id", rec.UserID, "record_id", rec.ID)
			if rerr := s.engine.RevokeExplicit(ctx, raw); rerr != nil {
				s.log.Warn(ctx, "revoke orphaned refresh token failed", "record_id", rec.ID, "error", rerr)
			}
			return nil, s.refreshFailed(ctx, common.ErrTokenNotFound)
		}
		return nil, s.refreshFailed(ctx, fmt.Errorf("error searching user: %w", err))
	}

	// Mint before rotating so a principal that cannot be signed for keeps
	// its refresh token.
	access, err := s.mintAccess(user)
	if err != nil {
		return nil, s.refreshFailed(ctx, err)
	}

	next, _, err := s.engine.Rotate(ctx, raw)
	if err != nil {
		return nil, s.refreshFailed(ctx, err)
	}
	s.metrics.TokenIssued(metrics.KindAccess)
	s.metrics.TokenIssued(metrics.KindRefresh)
	s.metrics.RefreshOutcome(metrics.OutcomeRotated)

	return &models.TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// Logout revokes the presented refresh token and, when an access token is
// given and a denylist is configured, denies its jti until it expires. If
// only an access token is presented the user's latest refresh token is
// revoked. Logout never fails for the caller; faults are logged.
func (s *SessionService) Logout(ctx context.Context, raw, accessToken string) {
	var claims *auth.Claims
	if accessToken != "" {
		c, err := s.issuer.Parse(accessToken)
		if err == nil {
			claims = c
		}
	}

	switch {
	case raw != "":
		if err := s.engine.RevokeExplicit(ctx, raw); err != nil {
			s.log.Error(ctx, "logout revoke failed", "error", err)
		}
	case claims != nil:
		if err := s.engine.RevokeLatest(ctx, claims.UserID); err != nil {
			s.log.Error(ctx, "logout revoke failed", "user_id", claims.UserID, "error", err)
		}
	}

	if claims != nil && s.denylist != nil && claims.ExpiresAt != nil {
		if err := s.denylist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.log.Error(ctx, "denylist access token failed", "user_id", claims.UserID, "error", err)
		}
	}
}

// Introspect verifies an access token and checks it against the denylist.
// Denylist faults fail closed with common.ErrStorage.
func (s *SessionService) Introspect(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.issuer.Parse(accessToken)
	if err != nil {
		return nil, err
	}
	if s.denylist == nil {
		return claims, nil
	}
	denied, err := s.denylist.Contains(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if denied {
		return nil, common.ErrTokenDenied
	}
	return claims, nil
}

func (s *SessionService) mintAccess(user *models.User) (string, error) {
	access, _, err := s.issuer.Issue(user.Principal())
	if err != nil {
		return "", fmt.Errorf("error issuing access token: %w", err)
	}
	return access, nil
}

func (s *SessionService) refreshFailed(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrRotationRaceLost):
		s.metrics.RefreshOutcome(metrics.OutcomeRaceLost)
	case errors.Is(err, common.ErrInvalidCredential):
		s.metrics.RefreshOutcome(metrics.OutcomeInvalid)
	default:
		s.metrics.RefreshOutcome(metrics.OutcomeError)
		return err
	}
	s.log.Info(ctx, "refresh rejected", "reason", err.Error())
	return common.ErrInvalidCredential
}
