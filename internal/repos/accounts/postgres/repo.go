package accounts

import (
	"database/sql"

	"github.com/fastprodman/scalecoin/internal/repos/accounts"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

type accountsRepo struct {
	db      *sql.DB
	skipped accounts.Quarantine
}

func New(db *sql.DB) *accountsRepo {
	return &accountsRepo{db: db}
}
