package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/scalecoin/internal/config"
	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/metrics"
	"github.com/fastprodman/scalecoin/internal/notify"
	"github.com/fastprodman/scalecoin/internal/services/bank"
)

type existsAll struct{}

func (existsAll) UserExists(context.Context, string) (bool, error) { return true, nil }

type quietNotifier struct{}

func (quietNotifier) Bot(string, notify.Event)         {}
func (quietNotifier) User(string, string)              {}
func (quietNotifier) Revocable(string, string, string) {}

type nopFlusher struct{}

func (nopFlusher) Request() {}

type testEnv struct {
	srv   *httptest.Server
	store *ledger.Store
	svc   *bank.Service
	token string
	reg   *prometheus.Registry
}

const (
	botID   = "<@UBOT>"
	ownerID = "<@UOWNER>"
)

func newEnv(t *testing.T, cfg config.APIConfig, balances map[string]int64) *testEnv {
	t.Helper()

	store := ledger.NewStore(existsAll{})

	accts := make(map[string]*ledger.Account, len(balances))
	for id, cents := range balances {
		a := ledger.NewAccount()
		a.Cents = cents
		accts[id] = a
	}

	store.Load(accts)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := bank.New(store, ledger.NewRegistry(), quietNotifier{}, nopFlusher{}, config.DefaultRewards(), m)

	issued, err := svc.IssueToken(context.Background(), botID, ownerID, "https://bot.example.com/hook")
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(svc, nil, cfg, config.SlackConfig{}, m, reg))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: store, svc: svc, token: issued.Token, reg: reg}
}

func defaultAPIConfig() config.APIConfig {
	return config.APIConfig{RatePerMinute: 6000, RateBurst: 100}
}

func (e *testEnv) post(t *testing.T, path string, body map[string]any) (int, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)

	return decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) (int, map[string]any) {
	t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(data, &out), string(data))

	return resp.StatusCode, out
}

func (e *testEnv) cents(t *testing.T, id string) int64 {
	t.Helper()

	b, err := e.svc.Balance(context.Background(), id)
	require.NoError(t, err)

	return b.Account.Cents
}

func TestPay(t *testing.T) {
	env := newEnv(t, defaultAPIConfig(), map[string]int64{botID: 1000})

	code, body := env.post(t, "/api/pay", map[string]any{
		"apiToken":   env.token,
		"receiverId": "U123",
		"cents":      300,
	})

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["ok"])
	require.EqualValues(t, 700, body["newBalance"])
	require.EqualValues(t, 300, env.cents(t, "<@U123>"))
}

func TestPayAcceptsStringCents(t *testing.T) {
	env := newEnv(t, defaultAPIConfig(), map[string]int64{botID: 1000})

	code, body := env.post(t, "/api/pay", map[string]any{
		"apiToken":   env.token,
		"receiverId": "<@U123>",
		"cents":      "250",
	})

	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 750, body["newBalance"])
}

func TestPayRejections(t *testing.T) {
	env := newEnv(t, defaultAPIConfig(), map[string]int64{botID: 100})

	tests := []struct {
		name   string
		body   map[string]any
		status int
		msg    string
	}{
		{
			name:   "unknown token",
			body:   map[string]any{"apiToken": "nope", "receiverId": "U1", "cents": 1},
			status: http.StatusNotFound,
		},
		{
			name:   "missing receiver",
			body:   map[string]any{"apiToken": env.token, "cents": 1},
			status: http.StatusBadRequest,
			msg:    "Expected `receiverId` field",
		},
		{
			name:   "missing cents",
			body:   map[string]any{"apiToken": env.token, "receiverId": "U1"},
			status: http.StatusBadRequest,
			msg:    "Expected `cents` field",
		},
		{
			name:   "negative cents",
			body:   map[string]any{"apiToken": env.token, "receiverId": "U1", "cents": -5},
			status: http.StatusBadRequest,
			msg:    "You can only transact positive amounts, not -5",
		},
		{
			name:   "insufficient funds",
			body:   map[string]any{"apiToken": env.token, "receiverId": "U1", "cents": 500},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.post(t, "/api/pay", tt.body)

			require.Equal(t, tt.status, code)
			require.Equal(t, false, body["ok"])
			require.NotEmpty(t, body["error"])

			if tt.msg != "" {
				require.Equal(t, tt.msg, body["error"])
			}
		})
	}

	require.EqualValues(t, 100, env.cents(t, botID))
}

func TestHookAndPull(t *testing.T) {
	env := newEnv(t, defaultAPIConfig(), map[string]int64{botID: 1000})

	code, body := env.post(t, "/api/pay", map[string]any{
		"apiToken":   env.token,
		"receiverId": "U123",
		"cents":      400,
		"hook":       map[string]any{"desc": "deposit"},
	})
	require.Equal(t, http.StatusOK, code)

	hookID, _ := body["hookId"].(string)
	require.NotEmpty(t, hookID)
	require.EqualValues(t, 600, env.cents(t, botID))
	require.EqualValues(t, 400, env.cents(t, "<@U123>"))

	code, body = env.post(t, "/api/pullhook", map[string]any{"apiToken": env.token, "hookId": hookID})
	require.Equal(t, http.StatusOK, code, body)
	require.EqualValues(t, 1000, env.cents(t, botID))
	require.EqualValues(t, 0, env.cents(t, "<@U123>"))

	code, body = env.post(t, "/api/pullhook", map[string]any{"apiToken": env.token, "hookId": hookID})
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, false, body["ok"])
}

func TestGiveFig(t *testing.T) {
	env := newEnv(t, defaultAPIConfig(), nil)

	unlock := env.store.Lock(botID)
	acct, err := env.store.GetOrCreate(context.Background(), botID)
	require.NoError(t, err)
	acct.Figurines = append(acct.Figurines,
		ledger.Figurine{Kind: ledger.FigEmoji, ID: "tada"},
		ledger.Figurine{Kind: ledger.FigHacker, ID: "UCOOL"},
	)
	unlock()

	code, body := env.post(t, "/api/givefig", map[string]any{
		"apiToken":   env.token,
		"receiverId": "U123",
		"fig":        map[string]any{"kind": "emoji", "id": "tada"},
	})
	require.Equal(t, http.StatusOK, code, body)
	require.EqualValues(t, 1, body["newFigsLen"])

	code, body = env.post(t, "/api/givefig", map[string]any{
		"apiToken":   env.token,
		"receiverId": "U123",
		"fig":        map[string]any{"kind": "emoji", "id": "tada"},
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, false, body["ok"])

	code, body = env.post(t, "/api/givefig", map[string]any{
		"apiToken":   env.token,
		"receiverId": "U123",
		"fig":        map[string]any{"kind": "hacker"},
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Expected `fig.id` field", body["error"])
}

func TestBalance(t *testing.T) {
	env := newEnv(t, defaultAPIConfig(), map[string]int64{botID: 4200})

	resp, err := http.Get(env.srv.URL + "/api/bal?apiToken=" + env.token)
	require.NoError(t, err)

	code, body := decode(t, resp)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 4200, body["cents"])
	require.Equal(t, botID, body["botId"])
}

func TestRateLimit(t *testing.T) {
	env := newEnv(t, config.APIConfig{RatePerMinute: 1, RateBurst: 2}, map[string]int64{botID: 1000})

	req := map[string]any{"apiToken": env.token, "receiverId": "U1", "cents": 1}

	for range 2 {
		code, _ := env.post(t, "/api/pay", req)
		require.Equal(t, http.StatusOK, code)
	}

	code, body := env.post(t, "/api/pay", req)
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Equal(t, false, body["ok"])
}

func TestInvalidJSON(t *testing.T) {
	env := newEnv(t, defaultAPIConfig(), nil)

	resp, err := http.Post(env.srv.URL+"/api/pay", "application/json", bytes.NewReader([]byte("{nope")))
	require.NoError(t, err)

	code, body := decode(t, resp)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Expected a JSON body", body["error"])
}

func TestRequestMetrics(t *testing.T) {
	env := newEnv(t, defaultAPIConfig(), map[string]int64{botID: 10})

	env.post(t, "/api/pay", map[string]any{"apiToken": "bogus", "receiverId": "U1", "cents": 1})

	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, 2, testutil.CollectAndCount(env.reg, "scalecoin_http_requests_total"))
}
