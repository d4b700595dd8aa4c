package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fastprodman/scalecoin/internal/identity"
)

// Verifier tells whether a bare user ID belongs to a real platform user.
type Verifier interface {
	UserExists(ctx context.Context, bareID string) (bool, error)
}

// Store is the process-wide ledger: identity -> Account.
//
// Mutations go through Lock, which serialises work per identity set. Snapshot
// waits for every in-flight mutation, so snapshots never observe half of a
// transfer.
type Store struct {
	gate sync.RWMutex

	mu       sync.Mutex
	accounts map[string]*Account
	locks    map[string]*keyLock
	// held indexes outstanding hooks by the hooker holding their value.
	held map[string]map[string]Hook

	verifier Verifier
	now      func() time.Time
}

func NewStore(verifier Verifier) *Store {
	return &Store{
		accounts: make(map[string]*Account),
		locks:    make(map[string]*keyLock),
		held:     make(map[string]map[string]Hook),
		verifier: verifier,
		now:      time.Now,
	}
}

// Load replaces the store contents with accounts and rebuilds the hook index.
func (s *Store) Load(accounts map[string]*Account) {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = make(map[string]*Account, len(accounts))
	s.held = make(map[string]map[string]Hook)

	for id, acct := range accounts {
		s.accounts[id] = acct
		for _, h := range acct.Hooks {
			s.indexLocked(h)
		}
	}
}

// Now is the clock used for progression timestamps.
func (s *Store) Now() time.Time { return s.now() }

// SetClock overrides the clock; tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// keyLock is the per-identity mutex. It is dropped from the store once no
// goroutine holds or waits for it.
type keyLock struct {
	sync.Mutex
	refs int // guarded by Store.mu
}

// Lock acquires exclusive access to the given identities and returns the
// release func. Identities are locked in sorted order.
func (s *Store) Lock(ids ...string) (unlock func()) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	s.gate.RLock()

	s.mu.Lock()
	kls := make([]*keyLock, 0, len(ids))
	for _, id := range ids {
		kl, ok := s.locks[id]
		if !ok {
			kl = new(keyLock)
			s.locks[id] = kl
		}

		kl.refs++
		kls = append(kls, kl)
	}
	s.mu.Unlock()

	for _, kl := range kls {
		kl.Lock()
	}

	return func() {
		for i := len(kls) - 1; i >= 0; i-- {
			kls[i].Unlock()
		}

		s.mu.Lock()
		for i, id := range ids {
			kls[i].refs--
			if kls[i].refs == 0 {
				delete(s.locks, id)
			}
		}
		s.mu.Unlock()

		s.gate.RUnlock()
	}
}

// Get returns the live account for id. Callers must hold Lock(id) to read or
// write its fields.
func (s *Store) Get(id string) (*Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]

	return acct, ok
}

// GetOrCreate returns the account for id, creating a blank one after checking
// with the verifier that the user exists.
func (s *Store) GetOrCreate(ctx context.Context, id string) (*Account, error) {
	acct, ok := s.Get(id)
	if ok {
		return acct, nil
	}

	exists, err := s.verifier.UserExists(ctx, identity.Strip(id))
	if err != nil {
		return nil, fmt.Errorf("verify user %s: %w: %w", id, ErrUnexpectedFailure, err)
	}

	if !exists {
		return nil, Inputf(ErrUnknownIdentity, "There is no such user, %s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok = s.accounts[id]
	if !ok {
		acct = NewAccount()
		s.accounts[id] = acct
	}

	return acct, nil
}

// Delete removes the account and every hook it is party to from the index.
// Callers must hold Lock(id).
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return false
	}

	for _, h := range acct.Hooks {
		s.unindexLocked(h)
	}

	delete(s.accounts, id)

	return true
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.accounts)
}

// Snapshot deep-copies every account while no mutation is in flight.
func (s *Store) Snapshot() map[string]*Account {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*Account, len(s.accounts))
	for id, acct := range s.accounts {
		out[id] = acct.Clone()
	}

	return out
}

// TotalCents sums every balance under the snapshot gate.
func (s *Store) TotalCents() int64 {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, acct := range s.accounts {
		total += acct.Cents
	}

	return total
}

// IndexHook records h as held by h.Hooker. Callers must hold Lock on both parties.
func (s *Store) IndexHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.indexLocked(h)
}

// UnindexHook drops h from the index.
func (s *Store) UnindexHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unindexLocked(h)
}

// Held returns the outstanding hooks whose value hooker holds.
func (s *Store) Held(hooker string) []Hook {
	s.mu.Lock()
	defer s.mu.Unlock()

	hooks := make([]Hook, 0, len(s.held[hooker]))
	for _, h := range s.held[hooker] {
		hooks = append(hooks, h)
	}

	slices.SortFunc(hooks, func(a, b Hook) int { return a.CreatedAt.Compare(b.CreatedAt) })

	return hooks
}

// Reserved sums the cents and lists the figurines hooker holds on behalf of hooks.
func (s *Store) Reserved(hooker string) (cents int64, figs []Figurine) {
	for _, h := range s.Held(hooker) {
		if h.Value.IsFig() {
			figs = append(figs, *h.Value.Fig)
			continue
		}

		cents += h.Value.Cents
	}

	return cents, figs
}

func (s *Store) indexLocked(h Hook) {
	m, ok := s.held[h.Hooker]
	if !ok {
		m = make(map[string]Hook)
		s.held[h.Hooker] = m
	}

	m[h.ID] = h
}

func (s *Store) unindexLocked(h Hook) {
	m := s.held[h.Hooker]
	delete(m, h.ID)

	if len(m) == 0 {
		delete(s.held, h.Hooker)
	}
}
