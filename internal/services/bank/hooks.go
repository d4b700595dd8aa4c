package bank

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/notify"
)

// CreateHook pays value from hooked to hooker revocably. The hooker holds the
// value but cannot spend it until the hook is gone; only hooked can revoke.
func (s *Service) CreateHook(ctx context.Context, rawHooker, rawHooked string, value ledger.Value, desc string) (ledger.Hook, error) {
	h, err := s.createHook(ctx, rawHooker, rawHooked, value, desc)
	s.observe("hook", err)

	if err != nil {
		return ledger.Hook{}, err
	}

	slog.Info("hook created", "id", h.ID, "hooker", h.Hooker, "hooked", h.Hooked, "value", h.Value.String())

	if s.isBot(h.Hooker) {
		ev := notify.Event{From: h.Hooked, To: h.Hooker, HookID: h.ID, Memo: desc}
		if h.Value.IsFig() {
			ev.Kind, ev.Fig = notify.ReceivedFig, h.Value.Fig
		} else {
			ev.Kind, ev.Cents = notify.ReceivedCents, h.Value.Cents
		}

		s.notifier.Bot(h.Hooker, ev)
	} else {
		s.notifier.User(h.Hooker, withMemo(fmt.Sprintf(
			"%s sent you %s on a hook; they can take it back until it's released.", h.Hooked, h.Value), desc))
	}

	if !s.isBot(h.Hooked) {
		s.notifier.Revocable(h.Hooked, fmt.Sprintf(
			"You hooked %s to %s. Revoke it with the button or `revoke %s`.", h.Value, h.Hooker, h.ID), h.ID)
	}

	s.flusher.Request()

	return h, nil
}

func (s *Service) createHook(ctx context.Context, rawHooker, rawHooked string, value ledger.Value, desc string) (ledger.Hook, error) {
	if !value.IsFig() && value.Cents <= 0 {
		return ledger.Hook{}, ledger.Inputf(ledger.ErrInvalidAmount, "You can only hook positive amounts, not %d", value.Cents)
	}

	hooker, hooked, err := s.pair(ctx, rawHooker, rawHooked, "You can't hook yourself!")
	if err != nil {
		return ledger.Hook{}, err
	}

	unlock := s.store.Lock(hooker, hooked)
	defer unlock()

	accts, err := s.locked(hooker, hooked)
	if err != nil {
		return ledger.Hook{}, err
	}

	holder, owner := accts[0], accts[1]

	if value.IsFig() {
		err = s.checkFigLocked(hooked, owner, *value.Fig)
	} else {
		err = s.checkFundsLocked(hooked, owner, value.Cents)
	}

	if err != nil {
		return ledger.Hook{}, err
	}

	h := ledger.Hook{
		ID:          s.newHookID(),
		Value:       value,
		Hooker:      hooker,
		Hooked:      hooked,
		Description: desc,
		CreatedAt:   s.store.Now(),
	}

	moveLocked(hooked, hooker, owner, holder, value)

	owner.Hooks[h.ID] = h
	s.store.IndexHook(h)
	s.registry.AddHook(hooker, h)

	return h, nil
}

// ListHooks returns the hooks id can revoke and the hooks whose value it holds,
// oldest first.
func (s *Service) ListHooks(ctx context.Context, rawID string) (owned, held []ledger.Hook, err error) {
	id, err := normalize(rawID)
	if err != nil {
		return nil, nil, err
	}

	_, err = s.store.GetOrCreate(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	unlock := s.store.Lock(id)
	defer unlock()

	acct, ok := s.store.Get(id)
	if !ok {
		return nil, nil, ledger.Inputf(ledger.ErrUnknownIdentity, "%s has no bank account", id)
	}

	for _, h := range acct.Hooks {
		owned = append(owned, h)
	}

	slices.SortFunc(owned, func(a, b ledger.Hook) int { return a.CreatedAt.Compare(b.CreatedAt) })

	return owned, s.store.Held(id), nil
}

// RevokeHook cancels one of the revoker's own hooks and returns its value
// from the hooker. Ids belonging to anyone else read as absent.
func (s *Service) RevokeHook(ctx context.Context, rawRevoker, hookID string) (ledger.Hook, error) {
	h, err := s.revokeHook(rawRevoker, hookID)
	s.observe("revoke", err)

	if err != nil {
		return ledger.Hook{}, err
	}

	slog.Info("hook revoked", "id", h.ID, "hooker", h.Hooker, "hooked", h.Hooked)

	if s.isBot(h.Hooker) {
		s.notifier.Bot(h.Hooker, notify.Event{
			Kind:   notify.RevokedHook,
			From:   h.Hooker,
			To:     h.Hooked,
			HookID: h.ID,
			Cents:  h.Value.Cents,
			Fig:    h.Value.Fig,
			Memo:   "hook revoked",
		})
	} else {
		s.notifier.User(h.Hooker, fmt.Sprintf("%s revoked their hook; %s went back to them.", h.Hooked, h.Value))
	}

	s.flusher.Request()

	return h, nil
}

func (s *Service) revokeHook(rawRevoker, hookID string) (ledger.Hook, error) {
	revoker, err := normalize(rawRevoker)
	if err != nil {
		return ledger.Hook{}, err
	}

	noSuchHook := ledger.Inputf(ledger.ErrNoSuchHook, "You don't have a hook with id %q", hookID)

	h, ok := s.peekHook(revoker, hookID)
	if !ok {
		return ledger.Hook{}, noSuchHook
	}

	unlock := s.store.Lock(revoker, h.Hooker)
	defer unlock()

	owner, ok := s.store.Get(revoker)
	if !ok {
		return ledger.Hook{}, noSuchHook
	}

	// may have been revoked between peek and lock
	h, ok = owner.Hooks[hookID]
	if !ok {
		return ledger.Hook{}, noSuchHook
	}

	delete(owner.Hooks, h.ID)
	s.store.UnindexHook(h)
	s.registry.RemoveHook(h.Hooker, h.ID)

	holder, ok := s.store.Get(h.Hooker)
	if !ok {
		return ledger.Hook{}, ledger.Inputf(ledger.ErrUnknownIdentity, "%s has no bank account anymore", h.Hooker)
	}

	moveLocked(h.Hooker, revoker, holder, owner, h.Value)

	return h, nil
}

func (s *Service) peekHook(revoker, hookID string) (ledger.Hook, bool) {
	unlock := s.store.Lock(revoker)
	defer unlock()

	acct, ok := s.store.Get(revoker)
	if !ok {
		return ledger.Hook{}, false
	}

	h, ok := acct.Hooks[hookID]

	return h, ok
}
