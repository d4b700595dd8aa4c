package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fastprodman/scalecoin/internal/commands"
	"github.com/fastprodman/scalecoin/internal/config"
	"github.com/fastprodman/scalecoin/internal/identity"
	"github.com/fastprodman/scalecoin/internal/notify"
)

const maxSignatureAge = 5 * time.Minute

// Commands runs chat commands on behalf of a Slack user.
type Commands interface {
	Handle(ctx context.Context, cmd commands.Command) string
	RevokeAction(ctx context.Context, invoker, hookID string) string
}

// SlackHandler receives slash commands and interactive actions.
type SlackHandler struct {
	cmds     Commands
	secret   string
	insecure bool
	now      func() time.Time
}

func NewSlackHandler(cmds Commands, cfg config.SlackConfig) *SlackHandler {
	return &SlackHandler{cmds: cmds, secret: cfg.SigningSecret, insecure: cfg.InsecureDev, now: time.Now}
}

type slackReply struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// verified reads the form body and checks the request signature. Without a
// signing secret every request is refused unless insecure mode is on.
func (h *SlackHandler) verified(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "Couldn't read request body")
		return nil, false
	}

	if !h.insecure && !h.validSignature(r.Header, raw) {
		writeFailure(w, http.StatusUnauthorized, "invalid signature")
		return nil, false
	}

	form, err := url.ParseQuery(string(raw))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "Expected a form body")
		return nil, false
	}

	return form, true
}

func (h *SlackHandler) validSignature(hdr http.Header, body []byte) bool {
	if h.secret == "" {
		return false
	}

	ts := hdr.Get("X-Slack-Request-Timestamp")

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}

	age := h.now().Sub(time.Unix(sec, 0))
	if age > maxSignatureAge || age < -maxSignatureAge {
		return false
	}

	return hmac.Equal([]byte(hdr.Get("X-Slack-Signature")), []byte(sign(h.secret, ts, body)))
}

func sign(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":"))
	mac.Write(body)

	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

// CommandHandler handles POST /slack/command
func (h *SlackHandler) CommandHandler(w http.ResponseWriter, r *http.Request) {
	form, ok := h.verified(w, r)
	if !ok {
		return
	}

	fields := strings.Fields(form.Get("text"))

	cmd := commands.Command{Invoker: form.Get("user_id")}
	if len(fields) > 0 {
		cmd.Name, cmd.Args = fields[0], fields[1:]
	}

	reply := h.cmds.Handle(r.Context(), cmd)

	writeJSON(w, http.StatusOK, slackReply{ResponseType: "ephemeral", Text: reply})
}

// ActionHandler handles POST /slack/actions
func (h *SlackHandler) ActionHandler(w http.ResponseWriter, r *http.Request) {
	form, ok := h.verified(w, r)
	if !ok {
		return
	}

	payload := gjson.Parse(form.Get("payload"))
	user := payload.Get("user.id").String()

	if user == "" {
		writeFailure(w, http.StatusBadRequest, "Expected `payload.user.id` field")
		return
	}

	var reply string

	for _, a := range payload.Get("actions").Array() {
		if a.Get("action_id").String() != notify.RevokeActionID {
			continue
		}

		reply = h.cmds.RevokeAction(r.Context(), identity.Wrap(user), a.Get("value").String())

		break
	}

	if reply == "" {
		slog.Warn("ignoring slack action", "user", user, "type", payload.Get("type").String())
		w.WriteHeader(http.StatusOK)

		return
	}

	writeJSON(w, http.StatusOK, slackReply{ResponseType: "ephemeral", Text: reply})
}
