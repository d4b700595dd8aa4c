package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/scalecoin/internal/config"
	"github.com/fastprodman/scalecoin/internal/infra/pgutils"
	"github.com/fastprodman/scalecoin/internal/infra/sqliteutil"
	"github.com/fastprodman/scalecoin/internal/repos/accounts"
	pgaccounts "github.com/fastprodman/scalecoin/internal/repos/accounts/postgres"
	liteaccounts "github.com/fastprodman/scalecoin/internal/repos/accounts/sqlite"
	"github.com/fastprodman/scalecoin/internal/repos/tokens"
	pgtokens "github.com/fastprodman/scalecoin/internal/repos/tokens/postgres"
	litetokens "github.com/fastprodman/scalecoin/internal/repos/tokens/sqlite"
)

type storage struct {
	db       *sql.DB
	accounts accounts.Accounts
	tokens   tokens.Tokens
}

// openStorage connects the configured backend. Postgres schemas are applied
// by cmd/migrator; SQLite migrates itself on open.
func openStorage(ctx context.Context, cfg config.StorageConfig) (*storage, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := pgutils.OpenDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		return &storage{db: db, accounts: pgaccounts.New(db), tokens: pgtokens.New(db)}, nil
	case "sqlite":
		db, err := sqliteutil.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		return &storage{db: db, accounts: liteaccounts.New(db), tokens: litetokens.New(db)}, nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}
