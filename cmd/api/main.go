package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fastprodman/scalecoin/internal/api"
	"github.com/fastprodman/scalecoin/internal/commands"
	"github.com/fastprodman/scalecoin/internal/config"
	"github.com/fastprodman/scalecoin/internal/infra/logging"
	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/metrics"
	"github.com/fastprodman/scalecoin/internal/notify"
	"github.com/fastprodman/scalecoin/internal/services/bank"
	"github.com/fastprodman/scalecoin/internal/services/flusher"
	"github.com/fastprodman/scalecoin/internal/services/passgo"
	"github.com/fastprodman/scalecoin/internal/ships"
	"github.com/fastprodman/scalecoin/internal/slack"
	"github.com/fastprodman/scalecoin/pkg/envconf"
	"github.com/fastprodman/scalecoin/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

//nolint:funlen
func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.LoadWithDotenv(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logCloser := logging.SetupJSONWithFile(cfg.LogLevel, cfg.LogFile)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	shutdownqueue.AddNamed("log file", func(context.Context) error {
		return logCloser.Close()
	})

	rewards, err := config.LoadRewards(cfg.RewardsFile)
	if err != nil {
		return fmt.Errorf("load rewards: %w", err)
	}

	// --- Infra ---
	st, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	shutdownqueue.AddNamed("db", func(context.Context) error {
		return st.db.Close()
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	chat := slack.New(cfg.Slack)

	// --- Ledger state ---
	store := ledger.NewStore(chat)
	registry := ledger.NewRegistry()

	// A ledger that can't be read starts empty rather than keeping the bot down.
	accts, err := st.accounts.LoadAll(ctx)
	if err != nil {
		slog.Error("load accounts, starting empty", "error", err)
	}

	store.Load(accts)

	toks, err := st.tokens.LoadAll(ctx)
	if err != nil {
		slog.Error("load tokens, starting empty", "error", err)
	}

	registry.Load(toks)

	slog.Info("ledger loaded", "accounts", len(accts), "tokens", len(toks), "driver", cfg.Storage.Driver)

	fl := flusher.New(store, registry, st.accounts, st.tokens, m)
	fl.Start()

	// Registered after the db so it runs first.
	shutdownqueue.AddNamed("flusher", fl.Close)

	notifier := notify.New(chat, registry, m, cfg.API.NotifyTimeout)
	shutdownqueue.AddNamed("notifier", notifier.Close)

	// --- Services ---
	bankSrv := bank.New(store, registry, notifier, fl, rewards, m)

	fetcher := ships.NewFetcher(chat, cfg.Ships.ChannelID, cfg.Ships.OldestTS)
	shipCache := ships.NewCache(fetcher.Fetch, cfg.Ships.CacheTTL, cfg.Ships.RefreshTimeout)

	refresher, err := ships.NewRefresher(shipCache, cfg.Ships.RefreshSpec, cfg.Ships.RefreshTimeout)
	if err != nil {
		return fmt.Errorf("ships refresher: %w", err)
	}

	refresher.Start()
	shutdownqueue.AddNamed("ships refresher", refresher.Stop)

	reconciler := passgo.New(store, shipCache, fl, rewards, m, nil)
	dispatcher := commands.NewDispatcher(bankSrv, reconciler, shipCache, cfg.Ships, cfg.AdminIDs)

	switch {
	case cfg.Slack.InsecureDev:
		slog.Warn("accepting unsigned slack requests", "env", "SLACK_INSECURE_DEV")
	case cfg.Slack.SigningSecret == "":
		slog.Warn("SLACK_SIGNING_SECRET not set, slack commands will be refused")
	}

	// --- HTTP server ---
	router := api.NewRouter(bankSrv, dispatcher, cfg.API, cfg.Slack, m, reg)
	srv := api.NewServer(cfg.Port, router)

	shutdownqueue.AddNamed("http server", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
