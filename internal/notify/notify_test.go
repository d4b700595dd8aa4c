package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/metrics"
	"github.com/fastprodman/scalecoin/internal/slack"
)

type recordingChat struct {
	mu      sync.Mutex
	sent    map[string][]string
	buttons map[string][]slack.Button
}

func (r *recordingChat) PostMessage(_ context.Context, channel, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sent == nil {
		r.sent = make(map[string][]string)
	}

	r.sent[channel] = append(r.sent[channel], text)

	return nil
}

func (r *recordingChat) PostButton(ctx context.Context, channel, text string, b slack.Button) error {
	r.mu.Lock()
	if r.buttons == nil {
		r.buttons = make(map[string][]slack.Button)
	}

	r.buttons[channel] = append(r.buttons[channel], b)
	r.mu.Unlock()

	return r.PostMessage(ctx, channel, text)
}

func (r *recordingChat) to(channel string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sent[channel]
}

func registryWith(endpoint string) *ledger.Registry {
	reg := ledger.NewRegistry()
	reg.Issue(&ledger.BotToken{Token: "t", BotID: "<@BOT>", OwnerID: "<@OWNER>", Endpoint: endpoint})

	return reg
}

func TestBotDelivery(t *testing.T) {
	t.Parallel()

	got := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		got <- ev
	}))
	t.Cleanup(srv.Close)

	chat := &recordingChat{}
	m := metrics.Nop()
	n := New(chat, registryWith(srv.URL), m, time.Second)

	n.Bot("<@BOT>", Event{Kind: ReceivedCents, From: "<@A>", To: "<@BOT>", Cents: 250})
	require.NoError(t, n.Close(t.Context()))

	ev := <-got
	require.Equal(t, ReceivedCents, ev.Kind)
	require.Equal(t, int64(250), ev.Cents)
	require.Empty(t, chat.to("OWNER"))
	require.Zero(t, testutil.ToFloat64(m.NotifyFailures))
}

func TestBotDeliveryFailureFallsBackToOwner(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	chat := &recordingChat{}
	m := metrics.Nop()
	n := New(chat, registryWith(srv.URL), m, time.Second)

	n.Bot("<@BOT>", Event{Kind: RevokedHook, HookID: "h1"})
	require.NoError(t, n.Close(t.Context()))

	require.Len(t, chat.to("OWNER"), 1)
	require.Contains(t, chat.to("OWNER")[0], "revokedHook")
	require.Equal(t, float64(1), testutil.ToFloat64(m.NotifyFailures))
}

// deadlineChat fails like the Slack client does when its context is done.
type deadlineChat struct {
	recordingChat
}

func (d *deadlineChat) PostMessage(ctx context.Context, channel, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return d.recordingChat.PostMessage(ctx, channel, text)
}

func TestBotTimeoutStillReachesOwner(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	chat := &deadlineChat{}
	m := metrics.Nop()
	n := New(chat, registryWith(srv.URL), m, 200*time.Millisecond)

	n.Bot("<@BOT>", Event{Kind: ReceivedCents, Cents: 10})
	require.NoError(t, n.Close(t.Context()))

	require.Len(t, chat.to("OWNER"), 1)
	require.Contains(t, chat.to("OWNER")[0], "receivedCents")
	require.Equal(t, float64(1), testutil.ToFloat64(m.NotifyFailures))
}

func TestUnknownBotIsIgnored(t *testing.T) {
	t.Parallel()

	chat := &recordingChat{}
	n := New(chat, ledger.NewRegistry(), metrics.Nop(), time.Second)

	n.Bot("<@NOBODY>", Event{Kind: ReceivedCents})
	n.User("<@U1>", "hello")
	require.NoError(t, n.Close(t.Context()))

	require.Equal(t, []string{"hello"}, chat.to("U1"))
}

func TestRevocableCarriesRevokeButton(t *testing.T) {
	t.Parallel()

	chat := &recordingChat{}
	n := New(chat, ledger.NewRegistry(), metrics.Nop(), time.Second)

	n.Revocable("<@U1>", "You hooked 5 to <@U2>.", "hook-7")
	require.NoError(t, n.Close(t.Context()))

	require.Equal(t, []string{"You hooked 5 to <@U2>."}, chat.to("U1"))

	chat.mu.Lock()
	defer chat.mu.Unlock()

	require.Equal(t, []slack.Button{{ActionID: RevokeActionID, Text: "Revoke", Value: "hook-7"}}, chat.buttons["U1"])
}
