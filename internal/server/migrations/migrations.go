// Package migrations embeds the goose SQL migrations for every supported
// database dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/demoauth/internal/dbx"
	"github.com/pressly/goose/v3"
)

// Postgres holds migrations under the "postgres" directory.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds migrations under the "sqlite" directory.
//
//go:embed sqlite/*.sql
var SQLite embed.FS

var gooseMu sync.Mutex

// Up applies all pending migrations for dialect. goose keeps its base FS
// and dialect in package state, so calls are serialised.
func Up(ctx context.Context, db *sql.DB, dialect dbx.Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	switch dialect {
	case dbx.DialectPostgres:
		goose.SetBaseFS(Postgres)
		if err := goose.SetDialect("pgx"); err != nil {
			return err
		}
		return goose.UpContext(ctx, db, "postgres")
	case dbx.DialectSQLite:
		goose.SetBaseFS(SQLite)
		if err := goose.SetDialect("sqlite3"); err != nil {
			return err
		}
		return goose.UpContext(ctx, db, "sqlite")
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
}
