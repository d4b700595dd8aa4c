package accounts

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

// Record is the serialized shape of one account.
type Record struct {
	Cents     int64                     `json:"cents"`
	XP        int64                     `json:"xp"`
	Heat      float64                   `json:"heat"`
	LastXPAt  time.Time                 `json:"lastXpTimestamp"`
	Contacts  map[string]ledger.Contact `json:"contacts"`
	Ships     map[string][]string       `json:"ships"`
	Figurines []ledger.Figurine         `json:"figurines"`
	Hooks     map[string]ledger.Hook    `json:"hooks"`
	BotToken  string                    `json:"botToken,omitempty"`
}

func ToRecord(a *ledger.Account) Record {
	r := Record{
		Cents:     a.Cents,
		XP:        a.XP,
		Heat:      a.Heat,
		LastXPAt:  a.LastXPAt,
		Contacts:  make(map[string]ledger.Contact, len(a.Contacts)),
		Ships:     make(map[string][]string, len(a.Ships)),
		Figurines: slices.Clone(a.Figurines),
		Hooks:     maps.Clone(a.Hooks),
		BotToken:  a.BotToken,
	}

	for id, ct := range a.Contacts {
		r.Contacts[id] = *ct
	}

	for msg, users := range a.Ships {
		r.Ships[msg] = slices.Sorted(maps.Keys(users))
	}

	if r.Figurines == nil {
		r.Figurines = []ledger.Figurine{}
	}

	if r.Hooks == nil {
		r.Hooks = map[string]ledger.Hook{}
	}

	return r
}

func FromRecord(r Record) *ledger.Account {
	a := ledger.NewAccount()
	a.Cents = r.Cents
	a.XP = r.XP
	a.Heat = r.Heat
	a.LastXPAt = r.LastXPAt
	a.Figurines = slices.Clone(r.Figurines)
	a.BotToken = r.BotToken

	for id, ct := range r.Contacts {
		a.Contacts[id] = &ct
	}

	for msg, users := range r.Ships {
		a.MergeShip(msg, users)
	}

	for id, h := range r.Hooks {
		if h.ID == "" {
			h.ID = id
		}

		a.Hooks[id] = h
	}

	return a
}

func Encode(a *ledger.Account) ([]byte, error) {
	data, err := json.Marshal(ToRecord(a))
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}

	return data, nil
}

func Decode(data []byte) (*ledger.Account, error) {
	var r Record

	err := json.Unmarshal(data, &r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}

	if r.Cents < 0 || r.XP < 0 {
		return nil, fmt.Errorf("%w: negative cents or xp", ErrCorruptRecord)
	}

	return FromRecord(r), nil
}
