// Package slack is a small Web API client covering the calls the ledger needs.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fastprodman/scalecoin/internal/config"
)

// ErrAPI is returned when Slack answers with ok=false.
var ErrAPI = errors.New("slack api error")

const historyPageSize = 1000

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(cfg config.SlackConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		token:   cfg.BotToken,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type Reaction struct {
	Name  string
	Count int
	Users []string
}

type Message struct {
	TS        string
	User      string
	Reactions []Reaction
}

// UserExists reports whether users.info knows the bare user ID.
func (c *Client) UserExists(ctx context.Context, bareID string) (bool, error) {
	q := url.Values{"user": {bareID}}

	res, err := c.get(ctx, "users.info", q)
	if err != nil {
		if isAPIError(res, "user_not_found") {
			return false, nil
		}

		return false, err
	}

	return res.Get("user.id").Exists(), nil
}

// Button is a single interactive button shown under a message. Clicks are
// delivered to the app's interactivity URL with ActionID and Value.
type Button struct {
	ActionID string
	Text     string
	Value    string
}

// PostMessage sends text to a channel or, given a bare user ID, as a DM.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	return c.postMessage(ctx, map[string]any{"channel": channel, "text": text})
}

// PostButton is PostMessage with one button below the text.
func (c *Client) PostButton(ctx context.Context, channel, text string, b Button) error {
	blocks := []map[string]any{
		{
			"type": "section",
			"text": map[string]string{"type": "mrkdwn", "text": text},
		},
		{
			"type": "actions",
			"elements": []map[string]any{{
				"type":      "button",
				"action_id": b.ActionID,
				"value":     b.Value,
				"text":      map[string]string{"type": "plain_text", "text": b.Text},
			}},
		},
	}

	return c.postMessage(ctx, map[string]any{"channel": channel, "text": text, "blocks": blocks})
}

func (c *Client) postMessage(ctx context.Context, msg map[string]any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	_, err = c.do(req, "chat.postMessage")

	return err
}

// History pages through conversations.history for channel since oldest.
func (c *Client) History(ctx context.Context, channel, oldest string) ([]Message, error) {
	var (
		out    []Message
		cursor string
	)

	for {
		q := url.Values{
			"channel": {channel},
			"limit":   {fmt.Sprint(historyPageSize)},
		}
		if oldest != "" {
			q.Set("oldest", oldest)
		}

		if cursor != "" {
			q.Set("cursor", cursor)
		}

		res, err := c.get(ctx, "conversations.history", q)
		if err != nil {
			return nil, err
		}

		res.Get("messages").ForEach(func(_, m gjson.Result) bool {
			out = append(out, parseMessage(m))
			return true
		})

		cursor = res.Get("response_metadata.next_cursor").String()
		if !res.Get("has_more").Bool() || cursor == "" {
			return out, nil
		}
	}
}

func parseMessage(m gjson.Result) Message {
	msg := Message{
		TS:   m.Get("ts").String(),
		User: m.Get("user").String(),
	}

	m.Get("reactions").ForEach(func(_, r gjson.Result) bool {
		react := Reaction{
			Name:  r.Get("name").String(),
			Count: int(r.Get("count").Int()),
		}

		r.Get("users").ForEach(func(_, u gjson.Result) bool {
			react.Users = append(react.Users, u.String())
			return true
		})

		msg.Reactions = append(msg.Reactions, react)

		return true
	})

	return msg
}

func (c *Client) get(ctx context.Context, method string, q url.Values) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+method+"?"+q.Encode(), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build request: %w", err)
	}

	return c.do(req, method)
}

func (c *Client) do(req *http.Request, method string) (gjson.Result, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: read body: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%s: invalid json body", method)
	}

	res := gjson.ParseBytes(raw)
	if !res.Get("ok").Bool() {
		return res, fmt.Errorf("%s: %w: %s", method, ErrAPI, res.Get("error").String())
	}

	return res, nil
}

func isAPIError(res gjson.Result, code string) bool {
	return res.Exists() && res.Get("error").String() == code
}
