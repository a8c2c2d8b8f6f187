package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/dmitrijs2005/demoauth/internal/dbx"
	"github.com/dmitrijs2005/demoauth/internal/server/models"
)

const (
	insertQuery = `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at, revoked)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id
	`
	findByHashQuery = `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	findLatestByUserQuery = `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	revokeQuery = `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE id = $1 AND revoked = FALSE
	`
)

// SQLRepository implements Repository over dbx.DBTX (satisfied by *sql.DB
// or *sql.Tx) for PostgreSQL and SQLite.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// NewPostgresRepository binds a repository to a pgx-backed handle.
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.DialectPostgres}
}

// NewSQLiteRepository binds a repository to a SQLite handle.
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.DialectSQLite}
}

func (r *SQLRepository) q(query string) string {
	return dbx.Rebind(r.dialect, query)
}

func (r *SQLRepository) Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	created := *token
	created.Revoked = false
	err := r.db.QueryRowContext(ctx, r.q(insertQuery),
		token.UserID, token.TokenHash, token.ExpiresAt.UTC(), token.CreatedAt.UTC()).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: error performing sql request: %w", common.ErrStorage, err)
	}
	return &created, nil
}

func (r *SQLRepository) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, r.q(findByHashQuery), tokenHash))
}

func (r *SQLRepository) FindLatestByUserID(ctx context.Context, userID string) (*models.RefreshToken, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, r.q(findLatestByUserQuery), userID))
}

func (r *SQLRepository) Revoke(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.q(revokeQuery), id)
	if err != nil {
		return false, fmt.Errorf("%w: db error: %w", common.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: failed to get rows affected: %w", common.ErrStorage, err)
	}
	return n == 1, nil
}

func (r *SQLRepository) scanOne(row *sql.Row) (*models.RefreshToken, error) {
	t := &models.RefreshToken{}
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.Revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStorage, err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
