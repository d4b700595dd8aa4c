package tokens

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

func TestTokens_StoreAll_Mocked(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	issued := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM bot_tokens").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bot_tokens").
		WithArgs("tok", "<@BOT>", "<@OWNER>", "https://bot.example/hook", []byte(`{}`), issued).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = New(db).StoreAll(t.Context(), []*ledger.BotToken{{
		Token:    "tok",
		BotID:    "<@BOT>",
		OwnerID:  "<@OWNER>",
		Endpoint: "https://bot.example/hook",
		IssuedAt: issued,
	}})
	if err != nil {
		t.Fatalf("StoreAll: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTokens_LoadAll_Mocked(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bot_tokens").WillReturnRows(
		sqlmock.NewRows([]string{"token", "bot_id", "owner_id", "endpoint", "hooks", "issued_at"}).
			AddRow("tok", "<@BOT>", "<@OWNER>", "https://bot.example", []byte(`{"h1":{"id":"h1","value":{"cents":50},"hooker":"<@BOT>","hooked":"<@A>"}}`), time.Now()),
	)

	got, err := New(db).LoadAll(t.Context())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	if len(got) != 1 || got[0].Hooks["h1"].Value.Cents != 50 {
		t.Fatalf("unexpected tokens: %+v", got)
	}
}
