package accounts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/repos/accounts"
)

// LoadAll skips rows that fail to decode and keeps them for StoreAll.
func (r *accountsRepo) LoadAll(ctx context.Context) (map[string]*ledger.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, data
		FROM accounts
	`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*ledger.Account)

	for rows.Next() {
		var (
			id   string
			data []byte
		)

		err = rows.Scan(&id, &data)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}

		acct, err := accounts.Decode(data)
		if err != nil {
			slog.Warn("skipping undecodable account", "id", id, "error", err)
			r.skipped.Add(id, data)

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
