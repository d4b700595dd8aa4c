package accounts

import (
	"maps"
	"slices"
	"sync"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

// RawRow is a stored account that could not be decoded.
type RawRow struct {
	ID   string
	Data []byte
}

// Quarantine holds rows LoadAll skipped so a later StoreAll writes them back
// unchanged instead of dropping them with the rest of the table.
type Quarantine struct {
	mu   sync.Mutex
	rows map[string][]byte
}

func (q *Quarantine) Add(id string, data []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.rows == nil {
		q.rows = make(map[string][]byte)
	}

	q.rows[id] = slices.Clone(data)
}

// Pending returns the held rows whose id is absent from accts, sorted by id.
// A row whose id the ledger now holds again is released for good.
func (q *Quarantine) Pending(accts map[string]*ledger.Account) []RawRow {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]RawRow, 0, len(q.rows))

	for _, id := range slices.Sorted(maps.Keys(q.rows)) {
		if _, ok := accts[id]; ok {
			delete(q.rows, id)
			continue
		}

		out = append(out, RawRow{ID: id, Data: q.rows[id]})
	}

	return out
}
