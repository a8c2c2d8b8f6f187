package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/dmitrijs2005/demoauth/internal/logging"
	"github.com/dmitrijs2005/demoauth/internal/server/models"
)

// Engine implements the refresh-token state machine. A record is Active
// while it is neither revoked nor past its expiry; Revoked and Expired are
// terminal. The store's conditional revoke is the only serialisation point.
//
// Failures surface as common.ErrTokenNotFound, common.ErrTokenRevoked,
// common.ErrTokenExpired or common.ErrRotationRaceLost, all of which match
// common.ErrInvalidCredential. Storage faults wrap common.ErrStorage.
type Engine struct {
	store *Store
	now   func() time.Time
	log   logging.Logger
}

// NewEngine builds an Engine over store. The clock option, if given, should
// be the one the store was built with.
func NewEngine(store *Store, log logging.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logging.Nop{}
	}
	o := buildOptions(opts)
	return &Engine{store: store, now: o.now, log: log.With("module", "refresh")}
}

// Issue creates a fresh refresh token for userID.
func (e *Engine) Issue(ctx context.Context, userID string) (string, *models.RefreshToken, error) {
	raw, rec, err := e.store.Create(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	e.log.Debug(ctx, "refresh token issued", "user_id", userID, "record_id", rec.ID)
	return raw, rec, nil
}

// Verify returns the record behind raw when it is Active. A found record
// that is revoked or expired is revoked again before reporting failure.
func (e *Engine) Verify(ctx context.Context, raw string) (*models.RefreshToken, error) {
	rec, err := e.store.FindByRawToken(ctx, raw)
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrTokenNotFound
		}
		return nil, err
	}

	var invalid error
	switch {
	case rec.Revoked:
		invalid = common.ErrTokenRevoked
	case rec.Expired(e.now().UTC()):
		invalid = common.ErrTokenExpired
	default:
		return rec, nil
	}

	if _, err := e.store.Revoke(ctx, rec); err != nil {
		e.log.Warn(ctx, "proactive revoke failed", "record_id", rec.ID, "error", err)
	}
	return nil, invalid
}

// Rotate redeems raw for a new token owned by the same user. Only the caller
// whose revoke performs the transition receives a token; concurrent losers
// get common.ErrRotationRaceLost.
func (e *Engine) Rotate(ctx context.Context, raw string) (string, *models.RefreshToken, error) {
	old, err := e.Verify(ctx, raw)
	if err != nil {
		return "", nil, err
	}

	won, err := e.store.Revoke(ctx, old)
	if err != nil {
		return "", nil, err
	}
	if !won {
		e.log.Warn(ctx, "refresh token rotation lost race", "user_id", old.UserID, "record_id", old.ID)
		return "", nil, common.ErrRotationRaceLost
	}

	next, rec, err := e.store.Create(ctx, old.UserID)
	if err != nil {
		return "", nil, fmt.Errorf("error issuing rotated refresh token: %w", err)
	}
	e.log.Info(ctx, "refresh token rotated", "user_id", old.UserID, "old_record_id", old.ID, "record_id", rec.ID)
	return next, rec, nil
}

// RevokeExplicit revokes raw if it exists. Unknown and already revoked
// tokens are a no-op; only storage faults are returned.
func (e *Engine) RevokeExplicit(ctx context.Context, raw string) error {
	rec, err := e.store.FindByRawToken(ctx, raw)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if rec.Revoked {
		return nil
	}
	won, err := e.store.Revoke(ctx, rec)
	if err != nil {
		return err
	}
	if won {
		e.log.Info(ctx, "refresh token revoked", "user_id", rec.UserID, "record_id", rec.ID)
	}
	return nil
}

// RevokeLatest revokes the most recent record of userID. It is used when a
// client logs out holding only an access token. A user without records is a
// no-op.
func (e *Engine) RevokeLatest(ctx context.Context, userID string) error {
	rec, err := e.store.FindByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	won, err := e.store.Revoke(ctx, rec)
	if err != nil {
		return err
	}
	if won {
		e.log.Info(ctx, "latest refresh token revoked", "user_id", userID, "record_id", rec.ID)
	}
	return nil
}
