// Package repomanager vends dialect-specific repository implementations and
// runs the embedded goose migrations for that dialect.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/dmitrijs2005/demoauth/internal/dbx"
	"github.com/dmitrijs2005/demoauth/internal/server/migrations"
	"github.com/dmitrijs2005/demoauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/demoauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager builds repositories for one SQL dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

// SQLiteBusyTimeout is how long a SQLite connection waits on a locked
// database before failing with SQLITE_BUSY.
const SQLiteBusyTimeout = 5 * time.Second

// migrateUp is a seam for testing migrations.Up.
var migrateUp = migrations.Up

// Dialect reports the dialect repositories are built for.
func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

// Open opens a pool for dsn. SQLite pools are limited to one connection
// and get a busy timeout unless dsn already sets one, so concurrent
// writers queue instead of failing.
func (m *SQLRepositoryManager) Open(dsn string) (*sql.DB, error) {
	if m.dialect != dbx.DialectSQLite {
		return sql.Open(string(m.dialect), dsn)
	}
	db, err := sql.Open(string(m.dialect), sqliteDSN(dsn))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dsn, sep, SQLiteBusyTimeout.Milliseconds())
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	if m.dialect == dbx.DialectSQLite {
		return users.NewSQLiteRepository(db)
	}
	return users.NewPostgresRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	if m.dialect == dbx.DialectSQLite {
		return refreshtokens.NewSQLiteRepository(db)
	}
	return refreshtokens.NewPostgresRepository(db)
}

// RunMigrations applies the embedded schema for the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := migrateUp(ctx, db, m.dialect); err != nil {
		return fmt.Errorf("%w: migrations: %w", common.ErrStorage, err)
	}
	return nil
}

// NewRepositoryManager resolves driver ("pgx", "postgres", "sqlite", ...) to
// a dialect-specific manager.
func NewRepositoryManager(driver string) (RepositoryManager, error) {
	d, ok := dbx.ParseDialect(driver)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported database driver %q", common.ErrConfiguration, driver)
	}
	return &SQLRepositoryManager{dialect: d}, nil
}
