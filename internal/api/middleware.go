package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/metrics"
)

type ctxKey int

const (
	botKey ctxKey = iota
	bodyKey
)

const maxBodyBytes = 1 << 20

func botFrom(ctx context.Context) *ledger.BotToken {
	b, _ := ctx.Value(botKey).(*ledger.BotToken)
	return b
}

func bodyFrom(ctx context.Context) gjson.Result {
	b, _ := ctx.Value(bodyKey).(gjson.Result)
	return b
}

// authenticate reads the JSON body once, resolves `apiToken` (body field or
// query parameter) and makes sure the bot's account exists.
func (h *HandlerProvider) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := gjson.Result{}

		if r.Body != nil && r.Method != http.MethodGet {
			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				writeFailure(w, http.StatusBadRequest, "Couldn't read request body")
				return
			}

			if len(raw) > 0 {
				if !gjson.ValidBytes(raw) {
					writeFailure(w, http.StatusBadRequest, "Expected a JSON body")
					return
				}

				body = gjson.ParseBytes(raw)
			}
		}

		token := body.Get("apiToken").String()
		if token == "" {
			token = r.URL.Query().Get("apiToken")
		}

		bot, err := h.svc.Resolve(token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		_, err = h.svc.Balance(r.Context(), bot.BotID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), botKey, bot)
		ctx = context.WithValue(ctx, bodyKey, body)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// botLimiter throttles each bot independently.
type botLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newBotLimiter(perMinute float64, burst int) *botLimiter {
	return &botLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
	}
}

func (l *botLimiter) allow(bot string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[bot]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[bot] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}

func (l *botLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bot := botFrom(r.Context())
		if bot != nil && !l.allow(bot.BotID) {
			w.Header().Set("Retry-After", "1")
			writeFailure(w, http.StatusTooManyRequests, "Slow down! Too many requests for this token.")

			return
		}

		next.ServeHTTP(w, r)
	})
}

// countRequests records every response by route pattern and status.
func countRequests(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		})
	}
}
