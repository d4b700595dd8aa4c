// Package accounts stores ledger accounts in the embedded SQLite database.
package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/fastprodman/scalecoin/internal/infra/dbutil"
	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/repos/accounts"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

type accountsRepo struct {
	db      *sql.DB
	now     func() time.Time
	skipped accounts.Quarantine
}

func New(db *sql.DB) *accountsRepo {
	return &accountsRepo{db: db, now: time.Now}
}

func (r *accountsRepo) LoadAll(ctx context.Context) (map[string]*ledger.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, data FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*ledger.Account)

	for rows.Next() {
		var id, data string

		err = rows.Scan(&id, &data)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}

		acct, err := accounts.Decode([]byte(data))
		if err != nil {
			slog.Warn("skipping undecodable account", "id", id, "error", err)
			r.skipped.Add(id, []byte(data))

			continue
		}

		out[id] = acct
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return out, nil
}

func (r *accountsRepo) StoreAll(ctx context.Context, accts map[string]*ledger.Account) error {
	stamp := r.now().UTC().Format(time.RFC3339Nano)

	err := dbutil.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM accounts`)
		if err != nil {
			return fmt.Errorf("clear accounts: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO accounts (id, data, updated_at) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, id := range slices.Sorted(maps.Keys(accts)) {
			data, err := accounts.Encode(accts[id])
			if err != nil {
				return fmt.Errorf("account %s: %w", id, err)
			}

			_, err = stmt.ExecContext(ctx, id, string(data), stamp)
			if err != nil {
				return fmt.Errorf("insert account %s: %w", id, err)
			}
		}

		for _, row := range r.skipped.Pending(accts) {
			_, err = stmt.ExecContext(ctx, row.ID, string(row.Data), stamp)
			if err != nil {
				return fmt.Errorf("keep account %s: %w", row.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("store accounts: %w", err)
	}

	return nil
}
