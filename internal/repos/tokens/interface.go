package tokens

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

// Tokens is the durable side of the bot token registry.
type Tokens interface {
	LoadAll(ctx context.Context) ([]*ledger.BotToken, error)
	StoreAll(ctx context.Context, tokens []*ledger.BotToken) error
}

func EncodeHooks(hooks map[string]ledger.Hook) ([]byte, error) {
	if hooks == nil {
		hooks = map[string]ledger.Hook{}
	}

	data, err := json.Marshal(hooks)
	if err != nil {
		return nil, fmt.Errorf("encode hooks: %w", err)
	}

	return data, nil
}

func DecodeHooks(data []byte) (map[string]ledger.Hook, error) {
	hooks := make(map[string]ledger.Hook)
	if len(data) == 0 {
		return hooks, nil
	}

	err := json.Unmarshal(data, &hooks)
	if err != nil {
		return nil, fmt.Errorf("decode hooks: %w", err)
	}

	return hooks, nil
}
