package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type verifierFunc func(ctx context.Context, bareID string) (bool, error)

func (f verifierFunc) UserExists(ctx context.Context, bareID string) (bool, error) {
	return f(ctx, bareID)
}

func allUsersExist() Verifier {
	return verifierFunc(func(context.Context, string) (bool, error) { return true, nil })
}

func TestStore_GetOrCreate(t *testing.T) {
	t.Parallel()

	var checked []string
	s := NewStore(verifierFunc(func(_ context.Context, bareID string) (bool, error) {
		checked = append(checked, bareID)
		switch bareID {
		case "UDOWN":
			return false, errors.New("slack down")
		case "UGHOST":
			return false, nil
		default:
			return true, nil
		}
	}))

	a, err := s.GetOrCreate(t.Context(), "<@U1>")
	require.NoError(t, err)

	again, err := s.GetOrCreate(t.Context(), "<@U1>")
	require.NoError(t, err)
	require.Same(t, a, again)
	require.Equal(t, []string{"U1"}, checked)

	_, err = s.GetOrCreate(t.Context(), "<@UGHOST>")
	require.ErrorIs(t, err, ErrUnknownIdentity)
	require.Equal(t, "There is no such user, <@UGHOST>", UserMessage(err))

	_, err = s.GetOrCreate(t.Context(), "<@UDOWN>")
	require.ErrorIs(t, err, ErrUnexpectedFailure)
	require.Equal(t, 1, s.Len())
}

func TestStore_LoadRebuildsHookIndex(t *testing.T) {
	t.Parallel()

	payer := NewAccount()
	payer.Hooks["h1"] = Hook{ID: "h1", Value: CentsValue(300), Hooker: "<@BOT>", Hooked: "<@A>"}
	payer.Hooks["h2"] = Hook{ID: "h2", Value: FigValue(Figurine{Kind: FigEmoji, ID: "x"}), Hooker: "<@BOT>", Hooked: "<@A>"}

	s := NewStore(allUsersExist())
	s.Load(map[string]*Account{"<@A>": payer, "<@BOT>": NewAccount()})

	cents, figs := s.Reserved("<@BOT>")
	require.EqualValues(t, 300, cents)
	require.Equal(t, []Figurine{{Kind: FigEmoji, ID: "x"}}, figs)

	unlock := s.Lock("<@A>")
	require.True(t, s.Delete("<@A>"))
	unlock()

	cents, figs = s.Reserved("<@BOT>")
	require.Zero(t, cents)
	require.Empty(t, figs)
}

func TestStore_SnapshotWaitsForMutations(t *testing.T) {
	t.Parallel()

	s := NewStore(allUsersExist())
	a, err := s.GetOrCreate(t.Context(), "<@A>")
	require.NoError(t, err)
	b, err := s.GetOrCreate(t.Context(), "<@B>")
	require.NoError(t, err)
	a.Cents = 1000

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock := s.Lock("<@B>", "<@A>")
			defer unlock()

			a.Cents -= 10
			time.Sleep(time.Microsecond)
			b.Cents += 10
		}()
	}

	for range 20 {
		snap := s.Snapshot()
		require.EqualValues(t, 1000, snap["<@A>"].Cents+snap["<@B>"].Cents)
	}

	wg.Wait()
	require.EqualValues(t, 1000, s.TotalCents())
	require.EqualValues(t, 500, b.Cents)
}

func lockEntries(s *Store) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.locks)
}

func TestStore_LockEntriesArePruned(t *testing.T) {
	t.Parallel()

	s := NewStore(allUsersExist())

	_, err := s.GetOrCreate(t.Context(), "<@U1>")
	require.NoError(t, err)

	unlock := s.Lock("<@U1>", "<@U2>")
	require.Equal(t, 2, lockEntries(s))
	unlock()
	require.Zero(t, lockEntries(s))

	unlock = s.Lock("<@U1>")
	require.True(t, s.Delete("<@U1>"))
	unlock()
	require.Zero(t, lockEntries(s))
}

func TestStore_LockStaysExclusiveWhilePruning(t *testing.T) {
	t.Parallel()

	s := NewStore(allUsersExist())

	var (
		inside atomic.Bool
		wg     sync.WaitGroup
	)

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 200 {
				unlock := s.Lock("<@U1>")
				if !inside.CompareAndSwap(false, true) {
					t.Error("two holders of the same identity lock")
				}
				inside.Store(false)
				unlock()
			}
		}()
	}

	wg.Wait()
	require.Zero(t, lockEntries(s))
}
