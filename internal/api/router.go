package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fastprodman/scalecoin/internal/config"
	"github.com/fastprodman/scalecoin/internal/metrics"
)

// NewRouter registers the bot API, health and metrics endpoints. Slack
// routes are mounted when cmds is non-nil.
func NewRouter(
	svc Bank,
	cmds Commands,
	cfg config.APIConfig,
	slackCfg config.SlackConfig,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	h := NewHandler(svc)
	limiter := newBotLimiter(cfg.RatePerMinute, cfg.RateBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(countRequests(m))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Use(limiter.middleware)

		r.Post("/pay", h.PayHandler)
		r.Post("/givefig", h.GiveFigHandler)
		r.Post("/pullhook", h.PullHookHandler)
		r.Get("/bal", h.BalanceHandler)
	})

	if cmds != nil {
		sh := NewSlackHandler(cmds, slackCfg)

		r.Post("/slack/command", sh.CommandHandler)
		r.Post("/slack/actions", sh.ActionHandler)
	}

	return r
}
