// Package notify delivers best-effort notifications to bots and users.
// Delivery never blocks or fails the operation that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fastprodman/scalecoin/internal/identity"
	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/metrics"
	"github.com/fastprodman/scalecoin/internal/slack"
)

// RevokeActionID tags the button that revokes a hook; its value is the hook id.
const RevokeActionID = "revoke"

type Kind string

const (
	ReceivedCents Kind = "receivedCents"
	ReceivedFig   Kind = "receivedFig"
	RevokedHook   Kind = "revokedHook"
)

// Event is the JSON body posted to a bot endpoint.
type Event struct {
	Kind   Kind             `json:"kind"`
	From   string           `json:"from"`
	To     string           `json:"to"`
	Cents  int64            `json:"cents,omitempty"`
	Fig    *ledger.Figurine `json:"fig,omitempty"`
	HookID string           `json:"hookId,omitempty"`
	Memo   string           `json:"memo,omitempty"`
}

type Poster interface {
	PostMessage(ctx context.Context, channel, text string) error
	PostButton(ctx context.Context, channel, text string, b slack.Button) error
}

type botLookup interface {
	ByBot(botID string) (*ledger.BotToken, bool)
}

type Notifier struct {
	http    *http.Client
	chat    Poster
	bots    botLookup
	metrics *metrics.Metrics
	timeout time.Duration

	wg sync.WaitGroup
}

func New(chat Poster, bots botLookup, m *metrics.Metrics, timeout time.Duration) *Notifier {
	return &Notifier{
		http:    &http.Client{Timeout: timeout},
		chat:    chat,
		bots:    bots,
		metrics: m,
		timeout: timeout,
	}
}

// Bot posts ev to the endpoint registered for botID. On failure the bot's
// owner is told by direct message.
func (n *Notifier) Bot(botID string, ev Event) {
	tok, ok := n.bots.ByBot(botID)
	if !ok {
		return
	}

	n.wg.Add(1)

	go func() {
		defer n.wg.Done()

		err := n.deliverWithTimeout(tok.Endpoint, ev)
		if err == nil {
			return
		}

		n.metrics.NotifyFailures.Inc()
		slog.Warn("bot notification failed", "bot", botID, "kind", ev.Kind, "error", err)

		text := fmt.Sprintf(
			"Couldn't tell your bot %s about a `%s` event at %s: %v",
			botID, ev.Kind, tok.Endpoint, err,
		)

		// The delivery deadline may already be spent.
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		err = n.chat.PostMessage(ctx, identity.Strip(tok.OwnerID), text)
		if err != nil {
			slog.Warn("owner fallback notification failed", "owner", tok.OwnerID, "error", err)
		}
	}()
}

// User sends text to a human account as a direct message.
func (n *Notifier) User(id, text string) {
	n.wg.Add(1)

	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		err := n.chat.PostMessage(ctx, identity.Strip(id), text)
		if err != nil {
			slog.Warn("direct message failed", "user", id, "error", err)
		}
	}()
}

// Revocable DMs the owner of hookID with a button that revokes it.
func (n *Notifier) Revocable(id, text, hookID string) {
	n.wg.Add(1)

	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		b := slack.Button{ActionID: RevokeActionID, Text: "Revoke", Value: hookID}

		err := n.chat.PostButton(ctx, identity.Strip(id), text, b)
		if err != nil {
			slog.Warn("hook message failed", "user", id, "hook", hookID, "error", err)
		}
	}()
}

func (n *Notifier) deliverWithTimeout(endpoint string, ev Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	return n.deliver(ctx, endpoint, ev)
}

func (n *Notifier) deliver(ctx context.Context, endpoint string, ev Event) error {
	if endpoint == "" {
		return fmt.Errorf("no endpoint registered")
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint answered %d", resp.StatusCode)
	}

	return nil
}

// Close waits for in-flight deliveries.
func (n *Notifier) Close(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for notifications: %w", ctx.Err())
	}
}
