// Package testdb opens migrated SQLite databases and seeds users. It is
// test-only: nothing outside _test.go files may import it.
package testdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/dbx"
	"github.com/dmitrijs2005/demoauth/internal/server/migrations"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// NewSQLite returns a file-backed database in t.TempDir with the schema
// applied. The pool holds a single connection so concurrent callers are
// serialised by database/sql rather than by SQLITE_BUSY retries.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "demoauth.db") + "?_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := migrations.Up(ctx, db, dbx.DialectSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// UserSeed describes a row inserted by InsertUser.
type UserSeed struct {
	ID             string
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Role           string
	OrganizationID string
	EmailConfirmed bool
}

// InsertUser stores u with a bcrypt hash of its password.
func InsertUser(t testing.TB, db *sql.DB, u UserSeed) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	_, err = db.Exec(`INSERT INTO users
		(id, email, password_hash, first_name, last_name, employee_type, organization_id, email_confirmed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, hash, u.FirstName, u.LastName, u.Role, u.OrganizationID, u.EmailConfirmed, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
}
