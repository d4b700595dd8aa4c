package ledger

import (
	"maps"
	"slices"
	"time"
)

// Contact holds cumulative transfer statistics with one counterparty.
type Contact struct {
	CentsSentTo              int64 `json:"centsSentTo"`
	CentsReceivedFrom        int64 `json:"centsReceivedFrom"`
	TransactionsSentTo       int64 `json:"transactionsSentTo"`
	TransactionsReceivedFrom int64 `json:"transactionsReceivedFrom"`
}

// Hook is a revocable payment. Hooked is the original owner of Value and the
// only party allowed to revoke; Hooker holds Value but cannot spend it while
// the hook is outstanding.
type Hook struct {
	ID          string    `json:"id"`
	Value       Value     `json:"value"`
	Hooker      string    `json:"hooker"`
	Hooked      string    `json:"hooked"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Account struct {
	Cents    int64
	XP       int64
	Heat     float64
	LastXPAt time.Time

	Contacts map[string]*Contact
	// Ships maps a ship message to the reactors already credited for it.
	// Sets only ever grow.
	Ships     map[string]map[string]struct{}
	Figurines []Figurine
	// Hooks are the outstanding hooks this account is the hooked party of.
	Hooks    map[string]Hook
	BotToken string
}

func NewAccount() *Account {
	return &Account{
		Contacts: make(map[string]*Contact),
		Ships:    make(map[string]map[string]struct{}),
		Hooks:    make(map[string]Hook),
	}
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a

	c.Contacts = make(map[string]*Contact, len(a.Contacts))
	for id, ct := range a.Contacts {
		cp := *ct
		c.Contacts[id] = &cp
	}

	c.Ships = make(map[string]map[string]struct{}, len(a.Ships))
	for msg, users := range a.Ships {
		c.Ships[msg] = maps.Clone(users)
	}

	c.Figurines = slices.Clone(a.Figurines)
	c.Hooks = maps.Clone(a.Hooks)
	if c.Hooks == nil {
		c.Hooks = make(map[string]Hook)
	}

	return &c
}

func (a *Account) contact(id string) *Contact {
	ct, ok := a.Contacts[id]
	if !ok {
		ct = &Contact{}
		a.Contacts[id] = ct
	}

	return ct
}

func (a *Account) RecordSent(to string, cents int64) {
	ct := a.contact(to)
	ct.TransactionsSentTo++
	ct.CentsSentTo += cents
}

func (a *Account) RecordReceived(from string, cents int64) {
	ct := a.contact(from)
	ct.TransactionsReceivedFrom++
	ct.CentsReceivedFrom += cents
}

// HasTransactedWith reports whether any transaction happened with id, in either direction.
func (a *Account) HasTransactedWith(id string) bool {
	ct, ok := a.Contacts[id]
	if !ok {
		return false
	}

	return ct.TransactionsSentTo+ct.TransactionsReceivedFrom > 0
}

// CreditedCount is the number of reactors already credited on msg.
func (a *Account) CreditedCount(msg string) int {
	return len(a.Ships[msg])
}

// CreditedTotal is the number of reaction units credited across all ships.
func (a *Account) CreditedTotal() int {
	total := 0
	for _, users := range a.Ships {
		total += len(users)
	}

	return total
}

// IsCredited reports whether user was already credited on msg.
func (a *Account) IsCredited(msg, user string) bool {
	_, ok := a.Ships[msg][user]

	return ok
}

// MergeShip unions users into the credited set of msg.
func (a *Account) MergeShip(msg string, users []string) {
	set, ok := a.Ships[msg]
	if !ok {
		set = make(map[string]struct{}, len(users))
		a.Ships[msg] = set
	}

	for _, u := range users {
		set[u] = struct{}{}
	}
}

// RemoveFigurine removes exactly one instance equal to f.
func (a *Account) RemoveFigurine(f Figurine) bool {
	i := slices.Index(a.Figurines, f)
	if i < 0 {
		return false
	}

	a.Figurines = slices.Delete(a.Figurines, i, i+1)

	return true
}

func (a *Account) CountFigurine(f Figurine) int {
	n := 0
	for _, have := range a.Figurines {
		if have == f {
			n++
		}
	}

	return n
}
