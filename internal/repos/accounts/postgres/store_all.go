package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"

	"github.com/fastprodman/scalecoin/internal/infra/dbutil"
	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/repos/accounts"
)

// StoreAll overwrites the table with accounts in a single transaction. Rows
// LoadAll skipped are written back unless accts now holds their id.
func (r *accountsRepo) StoreAll(ctx context.Context, accts map[string]*ledger.Account) error {
	err := dbutil.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM accounts`)
		if err != nil {
			return fmt.Errorf("clear accounts: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO accounts (id, data, updated_at)
			VALUES ($1, $2, now())
		`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, id := range slices.Sorted(maps.Keys(accts)) {
			data, err := accounts.Encode(accts[id])
			if err != nil {
				return fmt.Errorf("account %s: %w", id, err)
			}

			_, err = stmt.ExecContext(ctx, id, data)
			if err != nil {
				return fmt.Errorf("insert account %s: %w", id, err)
			}
		}

		for _, row := range r.skipped.Pending(accts) {
			_, err = stmt.ExecContext(ctx, row.ID, row.Data)
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
