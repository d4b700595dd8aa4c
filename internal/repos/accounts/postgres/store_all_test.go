package accounts

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fastprodman/scalecoin/internal/ledger"
)

func TestAccounts_StoreAll_Mocked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expect  func(mock sqlmock.Sqlmock)
		wantErr bool
	}{
		{
			name: "overwrites table in one tx",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM accounts").WillReturnResult(sqlmock.NewResult(0, 7))
				prep := mock.ExpectPrepare("INSERT INTO accounts")
				prep.ExpectExec().WithArgs("<@A>", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
				prep.ExpectExec().WithArgs("<@B>", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "insert failure rolls back",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM accounts").WillReturnResult(sqlmock.NewResult(0, 0))
				prep := mock.ExpectPrepare("INSERT INTO accounts")
				prep.ExpectExec().WithArgs("<@A>", sqlmock.AnyArg()).WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock new: %v", err)
			}
			defer db.Close()

			tt.expect(mock)

			err = New(db).StoreAll(t.Context(), map[string]*ledger.Account{
				"<@B>": ledger.NewAccount(),
				"<@A>": ledger.NewAccount(),
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error: got %v, wantErr %v", err, tt.wantErr)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("expectations: %v", err)
			}
		})
	}
}

func TestAccounts_LoadAll_Mocked(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, data").WillReturnRows(
		sqlmock.NewRows([]string{"id", "data"}).
			AddRow("<@A>", []byte(`{"cents":500,"figurines":[{"kind":"emoji","id":"parrot"}]}`)),
	)

	got, err := New(db).LoadAll(t.Context())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	if got["<@A>"].Cents != 500 || len(got["<@A>"].Figurines) != 1 {
		t.Fatalf("unexpected account: %+v", got["<@A>"])
	}
}

func TestAccounts_CorruptRowSkippedAndKept(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, data").WillReturnRows(
		sqlmock.NewRows([]string{"id", "data"}).
			AddRow("<@A>", []byte(`{"cents":500}`)).
			AddRow("<@Z>", []byte(`{"cents":-5}`)),
	)

	repo := New(db)

	got, err := repo.LoadAll(t.Context())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	if len(got) != 1 || got["<@A>"].Cents != 500 {
		t.Fatalf("unexpected accounts: %+v", got)
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM accounts").WillReturnResult(sqlmock.NewResult(0, 2))
	prep := mock.ExpectPrepare("INSERT INTO accounts")
	prep.ExpectExec().WithArgs("<@A>", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("<@Z>", []byte(`{"cents":-5}`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.StoreAll(t.Context(), got)
	if err != nil {
		t.Fatalf("StoreAll: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
