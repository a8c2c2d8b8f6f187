// Package refreshtokens declares the persistence contract for refresh-token
// records and its SQL implementation.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/demoauth/internal/server/models"
)

// Repository stores refresh-token records keyed by the digest of the raw
// token. Missing rows yield common.ErrorNotFound; driver failures wrap
// common.ErrStorage.
type Repository interface {
	// Create inserts token and returns it with the store-assigned ID.
	Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)

	// FindByHash returns the record for tokenHash whatever its state.
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// FindLatestByUserID returns the most recently created record of userID.
	FindLatestByUserID(ctx context.Context, userID string) (*models.RefreshToken, error)

	// Revoke flips revoked from false to true for id in one conditional
	// update. It reports true only to the caller whose update changed the
	// row; a record that was already revoked (or is absent) yields false.
	Revoke(ctx context.Context, id int64) (bool, error)
}
