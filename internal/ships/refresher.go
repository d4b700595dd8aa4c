package ships

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher pre-warms a Cache on a cron schedule so that commands rarely
// wait on the channel history.
type Refresher struct {
	cron    *cron.Cron
	cache   *Cache
	timeout time.Duration
}

func NewRefresher(cache *Cache, spec string, timeout time.Duration) (*Refresher, error) {
	r := &Refresher{cron: cron.New(), cache: cache, timeout: timeout}

	_, err := r.cron.AddFunc(spec, r.refresh)
	if err != nil {
		return nil, fmt.Errorf("schedule ships refresh %q: %w", spec, err)
	}

	return r, nil
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_, err := r.cache.Refresh(ctx)
	if err != nil {
		slog.Error("scheduled ships refresh failed", "error", err)
	}
}

func (r *Refresher) Start() { r.cron.Start() }

// Stop waits for a running refresh to finish or ctx to expire.
func (r *Refresher) Stop(ctx context.Context) error {
	done := r.cron.Stop()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop ships refresher: %w", ctx.Err())
	}
}
