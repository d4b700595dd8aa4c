package bank

import (
	"context"
	"log/slog"
	"slices"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

// Balance is a consistent view of one account.
type Balance struct {
	ID      string
	Account *ledger.Account
	Level   ledger.Level
	// Usable excludes the value of hooks the account holds.
	Usable   int64
	Held     []ledger.Hook
	HeldFigs []ledger.Figurine
}

func (s *Service) Balance(ctx context.Context, rawID string) (Balance, error) {
	id, err := normalize(rawID)
	if err != nil {
		return Balance{}, err
	}

	_, err = s.store.GetOrCreate(ctx, id)
	if err != nil {
		return Balance{}, err
	}

	unlock := s.store.Lock(id)
	defer unlock()

	acct, ok := s.store.Get(id)
	if !ok {
		return Balance{}, ledger.Inputf(ledger.ErrUnknownIdentity, "%s has no bank account", id)
	}

	_, figs := s.store.Reserved(id)

	return Balance{
		ID:       id,
		Account:  acct.Clone(),
		Level:    ledger.XPLevel(acct.XP),
		Usable:   s.usableLocked(id, acct),
		Held:     s.store.Held(id),
		HeldFigs: figs,
	}, nil
}

// Goblinstomp deletes an account for good. Hooks it is party to disappear
// with it: value it held on behalf of others is lost with the account.
func (s *Service) Goblinstomp(_ context.Context, rawID string) error {
	id, err := normalize(rawID)
	if err != nil {
		return err
	}

	unlock := s.lockWithOwners(id)
	defer unlock()

	acct, ok := s.store.Get(id)
	if !ok {
		return ledger.Inputf(ledger.ErrUnknownIdentity, "%s has no bank account", id)
	}

	for _, h := range s.store.Held(id) {
		owner, ok := s.store.Get(h.Hooked)
		if ok {
			delete(owner.Hooks, h.ID)
		}

		s.store.UnindexHook(h)
		s.registry.RemoveHook(id, h.ID)
	}

	for _, h := range acct.Hooks {
		s.registry.RemoveHook(h.Hooker, h.ID)
	}

	s.store.Delete(id)
	s.flusher.Request()

	slog.Warn("account deleted", "id", id)

	return nil
}

// lockWithOwners locks id together with the owner of every hook id holds.
// The set is recomputed until it is stable under the lock.
func (s *Service) lockWithOwners(id string) (unlock func()) {
	for {
		parties := []string{id}
		for _, h := range s.store.Held(id) {
			parties = append(parties, h.Hooked)
		}

		unlock = s.store.Lock(parties...)

		stable := true
		for _, h := range s.store.Held(id) {
			if !slices.Contains(parties, h.Hooked) {
				stable = false
				break
			}
		}

		if stable {
			return unlock
		}

		unlock()
	}
}
