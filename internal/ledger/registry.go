package ledger

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// BotToken links an opaque API token to a bot-controlled account.
type BotToken struct {
	Token    string
	OwnerID  string
	BotID    string
	Endpoint string
	IssuedAt time.Time
	// Hooks are the outstanding hooks the bot is the hooker of.
	Hooks map[string]Hook
}

func (b *BotToken) Clone() *BotToken {
	c := *b
	c.Hooks = maps.Clone(b.Hooks)
	if c.Hooks == nil {
		c.Hooks = make(map[string]Hook)
	}

	return &c
}

// Registry holds the active token of every bot. A bot has at most one token.
type Registry struct {
	mu      sync.RWMutex
	byToken map[string]*BotToken
	byBot   map[string]*BotToken
}

func NewRegistry() *Registry {
	return &Registry{
		byToken: make(map[string]*BotToken),
		byBot:   make(map[string]*BotToken),
	}
}

// Load replaces the registry contents. When several tokens name the same bot
// the most recently issued one wins.
func (r *Registry) Load(tokens []*BotToken) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byToken = make(map[string]*BotToken, len(tokens))
	r.byBot = make(map[string]*BotToken, len(tokens))

	for _, t := range tokens {
		if t.Hooks == nil {
			t.Hooks = make(map[string]Hook)
		}

		prev, ok := r.byBot[t.BotID]
		if ok && prev.IssuedAt.After(t.IssuedAt) {
			continue
		}

		if ok {
			delete(r.byToken, prev.Token)
		}

		r.byToken[t.Token] = t
		r.byBot[t.BotID] = t
	}
}

// Issue stores t as the bot's only token and returns the one it replaced.
// Outstanding hooks carry over to the new token.
func (r *Registry) Issue(t *BotToken) (prev *BotToken) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.Hooks == nil {
		t.Hooks = make(map[string]Hook)
	}

	old, ok := r.byBot[t.BotID]
	if ok {
		delete(r.byToken, old.Token)
		maps.Copy(t.Hooks, old.Hooks)
		prev = old.Clone()
	}

	r.byToken[t.Token] = t
	r.byBot[t.BotID] = t

	return prev
}

// Resolve returns a copy of the entry for token.
func (r *Registry) Resolve(token string) (*BotToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byToken[token]
	if !ok || token == "" {
		return nil, Inputf(ErrUnknownToken, "Expected valid `apiToken`")
	}

	return t.Clone(), nil
}

// ByBot returns a copy of the bot's active token entry.
func (r *Registry) ByBot(botID string) (*BotToken, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byBot[botID]
	if !ok {
		return nil, false
	}

	return t.Clone(), true
}

func (r *Registry) AddHook(botID string, h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byBot[botID]
	if ok {
		t.Hooks[h.ID] = h
	}
}

func (r *Registry) RemoveHook(botID, hookID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byBot[botID]
	if ok {
		delete(t.Hooks, hookID)
	}
}

// Snapshot returns copies of every entry ordered by bot id.
func (r *Registry) Snapshot() []*BotToken {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*BotToken, 0, len(r.byToken))
	for _, t := range r.byToken {
		out = append(out, t.Clone())
	}

	slices.SortFunc(out, func(a, b *BotToken) int {
		switch {
		case a.BotID < b.BotID:
			return -1
		case a.BotID > b.BotID:
			return 1
		default:
			return 0
		}
	})

	return out
}
