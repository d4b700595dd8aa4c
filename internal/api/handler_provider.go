package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/fastprodman/scalecoin/internal/identity"
	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/services/bank"
)

// Bank is the part of the ledger the API exposes to bots.
type Bank interface {
	Resolve(token string) (*ledger.BotToken, error)
	Balance(ctx context.Context, id string) (bank.Balance, error)
	TransferCents(ctx context.Context, from, to string, cents int64, memo string) (bank.Receipt, error)
	TransferFigurine(ctx context.Context, from, to string, fig ledger.Figurine, memo string) (bank.FigReceipt, error)
	CreateHook(ctx context.Context, hooker, hooked string, v ledger.Value, desc string) (ledger.Hook, error)
	RevokeHook(ctx context.Context, revoker, hookID string) (ledger.Hook, error)
}

// HandlerProvider exposes the bot API handlers.
type HandlerProvider struct {
	svc Bank
}

func NewHandler(svc Bank) *HandlerProvider {
	return &HandlerProvider{svc: svc}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range fields {
		body[k] = v
	}

	writeJSON(w, http.StatusOK, body)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// statusFor maps ledger errors onto HTTP statuses.
func statusFor(err error) int {
	var ie *ledger.InputError

	switch {
	case errors.Is(err, ledger.ErrUnknownToken),
		errors.Is(err, ledger.ErrUnknownIdentity),
		errors.Is(err, ledger.ErrNoSuchHook):
		return http.StatusNotFound
	case errors.As(err, &ie), errors.Is(err, ledger.ErrInvalidIdentity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("api request failed", "path", r.URL.Path, "error", err)
	}

	writeFailure(w, status, ledger.UserMessage(err))
}

func badInput(format string, args ...any) error {
	return ledger.Inputf(ledger.ErrInvalidAmount, format, args...)
}

// receiver reads and normalizes `receiverId`.
func receiver(body gjson.Result) (string, error) {
	raw := body.Get("receiverId").String()
	if raw == "" {
		return "", badInput("Expected `receiverId` field")
	}

	id, err := identity.Normalize(raw)
	if err != nil {
		return "", ledger.Inputf(ledger.ErrInvalidIdentity, "Expected `receiverId` to be a user, not %q", raw)
	}

	return id, nil
}

// hookRequest reports whether the body asks for a hook and its description.
// `hook` may be `true` or an object with a `desc` field; a top-level `desc`
// is accepted as well.
func hookRequest(body gjson.Result) (bool, string) {
	hook := body.Get("hook")

	switch {
	case hook.IsObject():
		desc := hook.Get("desc").String()
		if desc == "" {
			desc = body.Get("desc").String()
		}

		return true, desc
	case hook.Type == gjson.True:
		return true, body.Get("desc").String()
	default:
		return false, ""
	}
}

func memo(body gjson.Result) string {
	if m := body.Get("memo").String(); m != "" {
		return m
	}

	return body.Get("desc").String()
}

// --- Handlers ---

// PayHandler handles POST /api/pay
func (h *HandlerProvider) PayHandler(w http.ResponseWriter, r *http.Request) {
	bot, body := botFrom(r.Context()), bodyFrom(r.Context())

	to, err := receiver(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	centsField := body.Get("cents")
	if !centsField.Exists() || centsField.String() == "" {
		writeError(w, r, badInput("Expected `cents` field"))
		return
	}

	cents, err := bank.ParseCents(centsField.String())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if hooked, desc := hookRequest(body); hooked {
		hk, err := h.svc.CreateHook(r.Context(), to, bot.BotID, ledger.CentsValue(cents), desc)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeOK(w, map[string]any{"hookId": hk.ID})

		return
	}

	rcpt, err := h.svc.TransferCents(r.Context(), bot.BotID, to, cents, memo(body))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, map[string]any{"newBalance": rcpt.SenderAfter})
}

// GiveFigHandler handles POST /api/givefig
func (h *HandlerProvider) GiveFigHandler(w http.ResponseWriter, r *http.Request) {
	bot, body := botFrom(r.Context()), bodyFrom(r.Context())

	to, err := receiver(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	fig, err := parseFig(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if hooked, desc := hookRequest(body); hooked {
		hk, err := h.svc.CreateHook(r.Context(), to, bot.BotID, ledger.FigValue(fig), desc)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeOK(w, map[string]any{"hookId": hk.ID})

		return
	}

	rcpt, err := h.svc.TransferFigurine(r.Context(), bot.BotID, to, fig, memo(body))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, map[string]any{"newFigsLen": rcpt.SenderFigs})
}

func parseFig(body gjson.Result) (ledger.Figurine, error) {
	f := body.Get("fig")

	switch {
	case !f.IsObject():
		return ledger.Figurine{}, badInput("Expected `fig` field")
	case f.Get("kind").String() == "":
		return ledger.Figurine{}, badInput("Expected `fig.kind` field")
	case f.Get("id").String() == "":
		return ledger.Figurine{}, badInput("Expected `fig.id` field")
	}

	return ledger.NewFigurine(f.Get("kind").String(), f.Get("id").String())
}

// PullHookHandler handles POST /api/pullhook
func (h *HandlerProvider) PullHookHandler(w http.ResponseWriter, r *http.Request) {
	bot, body := botFrom(r.Context()), bodyFrom(r.Context())

	id := body.Get("hookId").String()
	if id == "" {
		writeError(w, r, badInput("Expected `hookId` field"))
		return
	}

	_, err := h.svc.RevokeHook(r.Context(), bot.BotID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, nil)
}

// BalanceHandler handles GET /api/bal
func (h *HandlerProvider) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	bot := botFrom(r.Context())

	b, err := h.svc.Balance(r.Context(), bot.BotID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	figs := b.Account.Figurines
	if figs == nil {
		figs = []ledger.Figurine{}
	}

	writeOK(w, map[string]any{
		"botId":     b.ID,
		"cents":     b.Account.Cents,
		"usable":    b.Usable,
		"figurines": figs,
		"xp":        b.Account.XP,
		"level":     b.Level.Name,
		"hooksOut":  len(b.Account.Hooks),
		"hooksHeld": len(b.Held),
	})
}
