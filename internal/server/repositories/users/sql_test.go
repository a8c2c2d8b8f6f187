package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/dmitrijs2005/demoauth/internal/server/models"
	"github.com/dmitrijs2005/demoauth/internal/server/testdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "employee_type",
	"organization_id", "email_confirmed", "created_at",
}

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestFindUserByEmail_NormalisesInput(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`
	mock.ExpectQuery(q).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u1", "ann@example.com", []byte("h"), "Ann", "Lee", "staff", "org1", true, time.Now()))

	u, err := repo.FindUserByEmail(context.Background(), "  Ann@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "staff", u.Role)
	assert.True(t, u.EmailConfirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindUserByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindUserByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.FindUserByID(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrStorage)
}

func TestIsEmailConfirmed(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)SELECT\s+email_confirmed\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`
	mock.ExpectQuery(q).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"email_confirmed"}).AddRow(false))
	mock.ExpectQuery(q).WithArgs("u2").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q).WithArgs("u3").WillReturnError(errors.New("timeout"))

	ok, err := repo.IsEmailConfirmed(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.IsEmailConfirmed(context.Background(), "u2")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.IsEmailConfirmed(context.Background(), "u3")
	assert.ErrorIs(t, err, common.ErrStorage)
}

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &SQLRepository{}
	u := &models.User{PasswordHash: hash}

	assert.NoError(t, repo.CheckPassword(context.Background(), u, "s3cret"))
	assert.ErrorIs(t, repo.CheckPassword(context.Background(), u, "wrong"), common.ErrInvalidCredential)
	assert.ErrorIs(t, repo.CheckPassword(context.Background(), &models.User{}, "s3cret"), common.ErrInvalidCredential)
	assert.ErrorIs(t, repo.CheckPassword(context.Background(), nil, "s3cret"), common.ErrInvalidCredential)
}

func TestSQLite_Lookups(t *testing.T) {
	db := testdb.NewSQLite(t)
	id := uuid.NewString()
	testdb.InsertUser(t, db, testdb.UserSeed{
		ID: id, Email: "bob@example.com", Password: "pw", FirstName: "Bob", LastName: "Ray",
		Role: common.RoleAdmin, OrganizationID: "org9", EmailConfirmed: true,
	})
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	byEmail, err := repo.FindUserByEmail(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
	assert.Equal(t, "org9", byEmail.OrganizationID)
	assert.NoError(t, repo.CheckPassword(ctx, byEmail, "pw"))

	byID, err := repo.FindUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, byEmail.Principal(), byID.Principal())

	ok, err := repo.IsEmailConfirmed(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
