package ships

import (
	"context"
	"fmt"

	"github.com/fastprodman/scalecoin/internal/identity"
	"github.com/fastprodman/scalecoin/internal/slack"
)

type historian interface {
	History(ctx context.Context, channel, oldest string) ([]slack.Message, error)
}

// Fetcher reads the ship channel and keeps the most popular reaction of
// every message that has one.
type Fetcher struct {
	client  historian
	channel string
	oldest  string
}

func NewFetcher(client historian, channel, oldest string) *Fetcher {
	return &Fetcher{client: client, channel: channel, oldest: oldest}
}

func (f *Fetcher) Fetch(ctx context.Context) (map[string][]Observation, error) {
	msgs, err := f.client.History(ctx, f.channel, f.oldest)
	if err != nil {
		return nil, fmt.Errorf("fetch ship history: %w", err)
	}

	out := make(map[string][]Observation)

	for _, m := range msgs {
		if len(m.Reactions) == 0 || m.User == "" {
			continue
		}

		// ties keep the earliest reaction
		top := m.Reactions[0]
		for _, r := range m.Reactions[1:] {
			if r.Count > top.Count {
				top = r
			}
		}

		author := identity.Wrap(m.User)
		out[author] = append(out[author], Observation{
			MessageID:        m.TS,
			TopReactionName:  top.Name,
			TopReactionCount: top.Count,
			ReactingUserIDs:  top.Users,
		})
	}

	return out, nil
}
