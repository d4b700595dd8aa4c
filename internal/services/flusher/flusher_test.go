package flusher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/metrics"
)

type memAccounts struct {
	mu     sync.Mutex
	calls  int
	last   map[string]*ledger.Account
	failOn error
}

func (m *memAccounts) LoadAll(context.Context) (map[string]*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.last, nil
}

func (m *memAccounts) StoreAll(_ context.Context, accts map[string]*ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.failOn != nil {
		return m.failOn
	}

	m.last = accts

	return nil
}

func (m *memAccounts) snapshot() (int, map[string]*ledger.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls, m.last
}

type memTokens struct {
	mu   sync.Mutex
	last []*ledger.BotToken
}

func (m *memTokens) LoadAll(context.Context) ([]*ledger.BotToken, error) { return m.last, nil }

func (m *memTokens) StoreAll(_ context.Context, toks []*ledger.BotToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = toks

	return nil
}

func newFixture(t *testing.T) (*Flusher, *ledger.Store, *memAccounts, *metrics.Metrics) {
	t.Helper()

	store := ledger.NewStore(nil)
	store.Load(map[string]*ledger.Account{"<@A>": {Cents: 10}})

	accts := &memAccounts{}
	m := metrics.Nop()
	f := New(store, ledger.NewRegistry(), accts, &memTokens{}, m)

	return f, store, accts, m
}

func TestRequestEventuallyFlushes(t *testing.T) {
	t.Parallel()

	f, _, accts, _ := newFixture(t)
	f.Start()
	t.Cleanup(func() { _ = f.Close(context.Background()) })

	for range 50 {
		f.Request()
	}

	require.Eventually(t, func() bool {
		calls, last := accts.snapshot()
		return calls >= 1 && last["<@A>"] != nil
	}, 2*time.Second, 10*time.Millisecond)

	calls, _ := accts.snapshot()
	require.LessOrEqual(t, calls, 50)
}

func TestCloseFlushesLatestState(t *testing.T) {
	t.Parallel()

	f, store, accts, m := newFixture(t)
	f.Start()

	unlock := store.Lock("<@A>")
	acct, _ := store.Get("<@A>")
	acct.Cents = 99
	unlock()

	require.NoError(t, f.Close(context.Background()))

	_, last := accts.snapshot()
	require.Equal(t, int64(99), last["<@A>"].Cents)
	require.GreaterOrEqual(t, testutil.ToFloat64(m.Flushes.WithLabelValues(metrics.OutcomeOK)), float64(1))
}

func TestFlushFailureIsCounted(t *testing.T) {
	t.Parallel()

	f, _, accts, m := newFixture(t)
	accts.failOn = errors.New("disk full")

	err := f.Flush(context.Background())
	require.Error(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(m.Flushes.WithLabelValues(metrics.OutcomeFailed)))
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	f, _, _, _ := newFixture(t)
	f.Start()

	require.NoError(t, f.Close(context.Background()))
	require.NoError(t, f.Close(context.Background()))
}
