package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry_IssueReplacesPreviousToken(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	prev := r.Issue(&BotToken{Token: "t1", BotID: "<@BOT>", OwnerID: "<@OWNER1>"})
	require.Nil(t, prev)
	r.AddHook("<@BOT>", Hook{ID: "h1", Hooker: "<@BOT>"})

	prev = r.Issue(&BotToken{Token: "t2", BotID: "<@BOT>", OwnerID: "<@OWNER2>"})
	require.NotNil(t, prev)
	require.Equal(t, "<@OWNER1>", prev.OwnerID)

	_, err := r.Resolve("t1")
	require.ErrorIs(t, err, ErrUnknownToken)

	got, err := r.Resolve("t2")
	require.NoError(t, err)
	require.Equal(t, "<@BOT>", got.BotID)
	require.Contains(t, got.Hooks, "h1")

	r.RemoveHook("<@BOT>", "h1")
	got, ok := r.ByBot("<@BOT>")
	require.True(t, ok)
	require.Empty(t, got.Hooks)
}

func TestRegistry_LoadKeepsNewestPerBot(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := NewRegistry()
	r.Load([]*BotToken{
		{Token: "old", BotID: "<@BOT>", IssuedAt: now.Add(-time.Hour)},
		{Token: "new", BotID: "<@BOT>", IssuedAt: now},
		{Token: "other", BotID: "<@BOT2>", IssuedAt: now},
	})

	_, err := r.Resolve("old")
	require.ErrorIs(t, err, ErrUnknownToken)
	require.Len(t, r.Snapshot(), 2)
}
