package accounts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

func TestEncodeDecode_PreservesAccount(t *testing.T) {
	t.Parallel()

	a := ledger.NewAccount()
	a.Cents = 1234
	a.XP = 50
	a.Heat = -3.5
	a.LastXPAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a.RecordSent("<@B>", 100)
	a.MergeShip("1700000000.000100", []string{"U2", "U1"})
	a.Figurines = []ledger.Figurine{{Kind: ledger.FigEmoji, ID: "parrot"}, {Kind: ledger.FigEmoji, ID: "parrot"}}
	a.Hooks["h1"] = ledger.Hook{
		ID:     "h1",
		Value:  ledger.FigValue(ledger.Figurine{Kind: ledger.FigHacker, ID: "U9"}),
		Hooker: "<@BOT>",
		Hooked: "<@A>",
	}
	a.BotToken = "tok"

	data, err := Encode(a)
	require.NoError(t, err)
	require.Contains(t, string(data), `"ships":{"1700000000.000100":["U1","U2"]}`)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestDecode_RejectsCorruptRecords(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"cents":`))
	require.ErrorIs(t, err, ErrCorruptRecord)

	_, err = Decode([]byte(`{"cents":-5}`))
	require.ErrorIs(t, err, ErrCorruptRecord)
}
