package sqliteutil

import (
	"path/filepath"
	"testing"
)

func TestOpen_AppliesSchema(t *testing.T) {
	t.Parallel()

	for _, path := range []string{MemoryPath, filepath.Join(t.TempDir(), "nested", "ledger.db")} {
		db, err := Open(t.Context(), path)
		if err != nil {
			t.Fatalf("open %s: %v", path, err)
		}

		for _, table := range []string{"accounts", "bot_tokens"} {
			var n int

			err = db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
			if err != nil {
				t.Fatalf("query schema: %v", err)
			}

			if n != 1 {
				t.Fatalf("table %s missing in %s", table, path)
			}
		}

		_ = db.Close()
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Open(t.Context(), "")
	if err == nil {
		t.Fatalf("expected error for empty path")
	}
}
