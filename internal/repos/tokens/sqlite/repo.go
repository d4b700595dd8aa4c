// Package tokens stores the bot token registry in the embedded SQLite database.
package tokens

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/scalecoin/internal/infra/dbutil"
	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/repos/tokens"
)

var _ tokens.Tokens = (*tokensRepo)(nil)

type tokensRepo struct{ db *sql.DB }

func New(db *sql.DB) *tokensRepo {
	return &tokensRepo{db: db}
}

func (r *tokensRepo) LoadAll(ctx context.Context) ([]*ledger.BotToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT token, bot_id, owner_id, endpoint, hooks, issued_at
		FROM bot_tokens
		ORDER BY issued_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var out []*ledger.BotToken

	for rows.Next() {
		var (
			t             ledger.BotToken
			hooks, issued string
		)

		err = rows.Scan(&t.Token, &t.BotID, &t.OwnerID, &t.Endpoint, &hooks, &issued)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}

		t.IssuedAt, err = time.Parse(time.RFC3339Nano, issued)
		if err != nil {
			return nil, fmt.Errorf("token for %s: issued_at: %w", t.BotID, err)
		}

		t.Hooks, err = tokens.DecodeHooks([]byte(hooks))
		if err != nil {
			return nil, fmt.Errorf("token for %s: %w", t.BotID, err)
		}

		out = append(out, &t)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}

	return out, nil
}

func (r *tokensRepo) StoreAll(ctx context.Context, toks []*ledger.BotToken) error {
	err := dbutil.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM bot_tokens`)
		if err != nil {
			return fmt.Errorf("clear tokens: %w", err)
		}

		for _, t := range toks {
			hooks, err := tokens.EncodeHooks(t.Hooks)
			if err != nil {
				return fmt.Errorf("token for %s: %w", t.BotID, err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO bot_tokens (token, bot_id, owner_id, endpoint, hooks, issued_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, t.Token, t.BotID, t.OwnerID, t.Endpoint, string(hooks), t.IssuedAt.UTC().Format(time.RFC3339Nano))
			if err != nil {
				return fmt.Errorf("insert token for %s: %w", t.BotID, err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("store tokens: %w", err)
	}

	return nil
}
