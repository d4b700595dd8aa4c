// Package ships provides per-message reaction observations on ship posts.
package ships

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Observation is the top reaction on one ship message.
type Observation struct {
	MessageID        string
	TopReactionName  string
	TopReactionCount int
	ReactingUserIDs  []string
}

// Source returns observations keyed by the author's identity. Results may be
// stale up to the source's refresh interval.
type Source interface {
	ForUser(ctx context.Context, identity string) ([]Observation, error)
	All(ctx context.Context) (map[string][]Observation, error)
}

// SortOldestFirst orders observations by message timestamp. Message IDs are
// Slack timestamps; unparsable ones compare as strings after the numeric ones.
func SortOldestFirst(obs []Observation) {
	slices.SortStableFunc(obs, func(a, b Observation) int {
		fa, errA := strconv.ParseFloat(a.MessageID, 64)
		fb, errB := strconv.ParseFloat(b.MessageID, 64)

		switch {
		case errA == nil && errB == nil:
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}

			return 0
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		default:
			return strings.Compare(a.MessageID, b.MessageID)
		}
	})
}

// Link renders a Slack mrkdwn link to a ship message.
func Link(workspace, channel, messageID, text string) string {
	return fmt.Sprintf("<https://%s.slack.com/archives/%s/p%s|%s>",
		workspace, channel, strings.Replace(messageID, ".", "", 1), text)
}
