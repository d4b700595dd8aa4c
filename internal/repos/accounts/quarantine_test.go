package accounts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

func TestQuarantine_Pending(t *testing.T) {
	t.Parallel()

	var q Quarantine

	require.Empty(t, q.Pending(nil))

	q.Add("<@B>", []byte(`{bad`))
	q.Add("<@A>", []byte(`not json`))

	require.Equal(t, []RawRow{
		{ID: "<@A>", Data: []byte(`not json`)},
		{ID: "<@B>", Data: []byte(`{bad`)},
	}, q.Pending(map[string]*ledger.Account{}))

	// A re-created account replaces the held row.
	require.Equal(t, []RawRow{{ID: "<@B>", Data: []byte(`{bad`)}},
		q.Pending(map[string]*ledger.Account{"<@A>": ledger.NewAccount()}))
	require.Equal(t, []RawRow{{ID: "<@B>", Data: []byte(`{bad`)}}, q.Pending(nil))
}
