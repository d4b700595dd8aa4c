package accounts

import (
	"context"
	"errors"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

var ErrCorruptRecord = errors.New("corrupt account record")

// Accounts is the durable side of the ledger: the whole map is loaded at
// startup and overwritten on every flush.
type Accounts interface {
	LoadAll(ctx context.Context) (map[string]*ledger.Account, error)
	StoreAll(ctx context.Context, accounts map[string]*ledger.Account) error
}
