// Package flusher persists the ledger and the token registry from a single
// background goroutine.
package flusher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/metrics"
	"github.com/fastprodman/scalecoin/internal/repos/accounts"
	"github.com/fastprodman/scalecoin/internal/repos/tokens"
)

// Flusher coalesces flush requests. Request never blocks; a pending request
// absorbs the ones that follow it, so at least one flush starts after the
// last request.
type Flusher struct {
	store    *ledger.Store
	registry *ledger.Registry
	accounts accounts.Accounts
	tokens   tokens.Tokens
	metrics  *metrics.Metrics

	pending chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	// mu serialises Flush calls from the loop and from Close.
	mu sync.Mutex
}

func New(
	store *ledger.Store,
	registry *ledger.Registry,
	accts accounts.Accounts,
	toks tokens.Tokens,
	m *metrics.Metrics,
) *Flusher {
	return &Flusher{
		store:    store,
		registry: registry,
		accounts: accts,
		tokens:   toks,
		metrics:  m,
		pending:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the flush loop until Close.
func (f *Flusher) Start() {
	go f.loop()
}

func (f *Flusher) Request() {
	select {
	case f.pending <- struct{}{}:
	default:
	}
}

func (f *Flusher) loop() {
	defer close(f.done)

	for {
		select {
		case <-f.stop:
			return
		case <-f.pending:
			err := f.Flush(context.Background())
			if err != nil {
				slog.Error("ledger flush failed", "error", err)
			}
		}
	}
}

// Flush writes a snapshot of both collections synchronously.
func (f *Flusher) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.store.Snapshot()
	toks := f.registry.Snapshot()

	err := f.accounts.StoreAll(ctx, snap)
	if err != nil {
		f.metrics.Flushes.WithLabelValues(metrics.OutcomeFailed).Inc()
		return fmt.Errorf("flush accounts: %w", err)
	}

	err = f.tokens.StoreAll(ctx, toks)
	if err != nil {
		f.metrics.Flushes.WithLabelValues(metrics.OutcomeFailed).Inc()
		return fmt.Errorf("flush tokens: %w", err)
	}

	f.metrics.Flushes.WithLabelValues(metrics.OutcomeOK).Inc()
	slog.Debug("ledger flushed", "accounts", len(snap), "tokens", len(toks))

	return nil
}

// Close stops the loop and performs a final flush.
func (f *Flusher) Close(ctx context.Context) error {
	f.once.Do(func() { close(f.stop) })

	select {
	case <-f.done:
	case <-ctx.Done():
		return fmt.Errorf("wait for flush loop: %w", ctx.Err())
	}

	return f.Flush(ctx)
}
