// Package bank executes every ledger mutation other than reward
// reconciliation: transfers, hooks, bot tokens and administrative removal.
package bank

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fastprodman/scalecoin/internal/config"
	"github.com/fastprodman/scalecoin/internal/identity"
	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/metrics"
	"github.com/fastprodman/scalecoin/internal/notify"
)

// Notifier is the outbound side of transfers. Both calls return immediately.
type Notifier interface {
	Bot(botID string, ev notify.Event)
	User(id, text string)
	// Revocable is User plus a control that revokes hookID.
	Revocable(id, text, hookID string)
}

type flushRequester interface {
	Request()
}

type Service struct {
	store    *ledger.Store
	registry *ledger.Registry
	notifier Notifier
	flusher  flushRequester
	metrics  *metrics.Metrics
	rewards  config.Rewards

	newHookID func() string
	newToken  func() (string, error)
}

func New(
	store *ledger.Store,
	registry *ledger.Registry,
	notifier Notifier,
	flusher flushRequester,
	rewards config.Rewards,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:     store,
		registry:  registry,
		notifier:  notifier,
		flusher:   flusher,
		metrics:   m,
		rewards:   rewards,
		newHookID: uuid.NewString,
		newToken:  randomToken,
	}
}

const tokenBytes = 32

func randomToken() (string, error) {
	b := make([]byte, tokenBytes)

	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func normalize(raw string) (string, error) {
	id, err := identity.Normalize(raw)
	if err != nil {
		return "", ledger.Inputf(ledger.ErrInvalidIdentity, "Expected a user, not %q", raw)
	}

	return id, nil
}

// pair normalizes two distinct parties and makes sure both accounts exist.
func (s *Service) pair(ctx context.Context, rawFrom, rawTo, selfMsg string) (from, to string, err error) {
	from, err = normalize(rawFrom)
	if err != nil {
		return "", "", err
	}

	to, err = normalize(rawTo)
	if err != nil {
		return "", "", err
	}

	if from == to {
		return "", "", ledger.Inputf(ledger.ErrInvalidAmount, "%s", selfMsg)
	}

	_, err = s.store.GetOrCreate(ctx, from)
	if err != nil {
		return "", "", err
	}

	_, err = s.store.GetOrCreate(ctx, to)
	if err != nil {
		return "", "", err
	}

	return from, to, nil
}

// locked fetches live accounts; the caller holds Lock on every id.
func (s *Service) locked(ids ...string) ([]*ledger.Account, error) {
	out := make([]*ledger.Account, 0, len(ids))

	for _, id := range ids {
		acct, ok := s.store.Get(id)
		if !ok {
			return nil, ledger.Inputf(ledger.ErrUnknownIdentity, "%s has no bank account", id)
		}

		out = append(out, acct)
	}

	return out, nil
}

func (s *Service) isBot(id string) bool {
	_, ok := s.registry.ByBot(id)

	return ok
}

func (s *Service) observe(kind string, err error) {
	outcome := metrics.OutcomeOK

	var ie *ledger.InputError

	switch {
	case err == nil:
	case errors.As(err, &ie):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeFailed
	}

	s.metrics.Transfers.WithLabelValues(kind, outcome).Inc()
}

// usableLocked is the balance id can spend: raw cents minus the value of the
// hooks it holds. Caller holds Lock(id).
func (s *Service) usableLocked(id string, acct *ledger.Account) int64 {
	reserved, _ := s.store.Reserved(id)

	return acct.Cents - reserved
}

// availableFigLocked counts the instances of f that id owns and has not
// committed to a hook. Caller holds Lock(id).
func (s *Service) availableFigLocked(id string, acct *ledger.Account, f ledger.Figurine) int {
	_, held := s.store.Reserved(id)

	n := acct.CountFigurine(f)
	for _, h := range held {
		if h == f {
			n--
		}
	}

	return n
}

func (s *Service) checkFundsLocked(id string, acct *ledger.Account, cents int64) error {
	usable := s.usableLocked(id, acct)
	if usable >= cents {
		return nil
	}

	if usable != acct.Cents {
		return ledger.Inputf(ledger.ErrInsufficientFunds,
			"Insufficient funds: need %s, have %s usable (%s total, the rest is held in hooks)",
			FormatCents(cents), FormatCents(usable), FormatCents(acct.Cents))
	}

	return ledger.Inputf(ledger.ErrInsufficientFunds,
		"Insufficient funds: need %s, have %s", FormatCents(cents), FormatCents(acct.Cents))
}

func (s *Service) checkFigLocked(id string, acct *ledger.Account, f ledger.Figurine) error {
	if s.availableFigLocked(id, acct, f) > 0 {
		return nil
	}

	if acct.CountFigurine(f) > 0 {
		return ledger.Inputf(ledger.ErrNoSuchFigurine, "Every %s figurine you have is held in a hook!", f)
	}

	return ledger.Inputf(ledger.ErrNoSuchFigurine, "You don't have a %s figurine!", f)
}

// moveLocked transfers v between two locked accounts and records contact stats
// for cents. Funds must already be checked.
func moveLocked(fromID, toID string, from, to *ledger.Account, v ledger.Value) {
	if v.IsFig() {
		from.RemoveFigurine(*v.Fig)
		to.Figurines = append(to.Figurines, *v.Fig)

		return
	}

	from.RecordSent(toID, v.Cents)
	to.RecordReceived(fromID, v.Cents)
	from.Cents -= v.Cents
	to.Cents += v.Cents
}
