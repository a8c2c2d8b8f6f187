package users

import (
	"context"

	"github.com/dmitrijs2005/demoauth/internal/server/models"
)

// Repository is the identity collaborator consumed by the session service.
// Lookups return common.ErrorNotFound when no user matches.
type Repository interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	IsEmailConfirmed(ctx context.Context, id string) (bool, error)
	CheckPassword(ctx context.Context, user *models.User, password string) error
}
