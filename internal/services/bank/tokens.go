package bank

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

// Issued is the outcome of IssueToken. PrevOwner is empty when the bot had
// no token before.
type Issued struct {
	Token     string
	BotID     string
	PrevOwner string
}

// IssueToken gives botID a fresh API token, replacing any previous one.
// Outstanding hooks of the bot carry over.
func (s *Service) IssueToken(ctx context.Context, rawBot, rawOwner, endpoint string) (Issued, error) {
	bot, err := normalize(rawBot)
	if err != nil {
		return Issued{}, err
	}

	owner, err := normalize(rawOwner)
	if err != nil {
		return Issued{}, err
	}

	u, err := url.ParseRequestURI(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Issued{}, ledger.Inputf(ledger.ErrInvalidIdentity, "Expected an http(s) endpoint url, not %q", endpoint)
	}

	_, err = s.store.GetOrCreate(ctx, bot)
	if err != nil {
		return Issued{}, err
	}

	tok, err := s.newToken()
	if err != nil {
		return Issued{}, fmt.Errorf("issue token: %w: %w", ledger.ErrUnexpectedFailure, err)
	}

	unlock := s.store.Lock(bot)

	acct, ok := s.store.Get(bot)
	if ok {
		acct.BotToken = tok
	}

	prev := s.registry.Issue(&ledger.BotToken{
		Token:    tok,
		OwnerID:  owner,
		BotID:    bot,
		Endpoint: endpoint,
		IssuedAt: s.store.Now(),
	})

	unlock()

	out := Issued{Token: tok, BotID: bot}
	if prev != nil {
		out.PrevOwner = prev.OwnerID
	}

	slog.Info("api token issued", "bot", bot, "owner", owner, "replaced", prev != nil)
	s.flusher.Request()

	return out, nil
}

// Resolve maps an API token to its bot entry.
func (s *Service) Resolve(token string) (*ledger.BotToken, error) {
	return s.registry.Resolve(token)
}
