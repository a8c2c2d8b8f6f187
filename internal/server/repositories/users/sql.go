package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/dmitrijs2005/demoauth/internal/dbx"
	"github.com/dmitrijs2005/demoauth/internal/server/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	selectUser = `
		SELECT id, email, password_hash, first_name, last_name, employee_type,
		       organization_id, email_confirmed, created_at
		FROM users
	`
	findByEmailQuery    = selectUser + `WHERE email = $1`
	findByIDQuery       = selectUser + `WHERE id = $1`
	emailConfirmedQuery = `SELECT email_confirmed FROM users WHERE id = $1`
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.DialectPostgres}
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.DialectSQLite}
}

// FindUserByEmail matches email case-insensitively by normalising the input
// to lower case; stored addresses are expected in lower case.
func (r *SQLRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanUser(r.db.QueryRowContext(ctx, dbx.Rebind(r.dialect, findByEmailQuery), email))
}

func (r *SQLRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, dbx.Rebind(r.dialect, findByIDQuery), id))
}

func (r *SQLRepository) IsEmailConfirmed(ctx context.Context, id string) (bool, error) {
	var confirmed bool
	err := r.db.QueryRowContext(ctx, dbx.Rebind(r.dialect, emailConfirmedQuery), id).Scan(&confirmed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("%w: db error: %w", common.ErrStorage, err)
	}
	return confirmed, nil
}

// CheckPassword compares password with the stored bcrypt hash. Any mismatch
// is reported as common.ErrInvalidCredential.
func (r *SQLRepository) CheckPassword(_ context.Context, user *models.User, password string) error {
	if user == nil || len(user.PasswordHash) == 0 {
		return common.ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return common.ErrInvalidCredential
	}
	return nil
}

func (r *SQLRepository) scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role,
		&u.OrganizationID, &u.EmailConfirmed, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStorage, err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
