package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/demoauth/internal/dbx"
	"github.com/dmitrijs2005/demoauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/demoauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	Open(dsn string) (*sql.DB, error)
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
