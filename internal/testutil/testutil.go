// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/fehu/internal/index"
	"github.com/starford/fehu/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "fehu-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return vaultDir, store
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ChartYAML is a small valid chart with one moment and three streams.
const ChartYAML = `id: plan
name: Plan
owner: alice@test.run
start_date: 2024-01-01
stop_date: 2030-01-01
savings: 1000
moments:
  - {id: sale, name: House Sold, date: 2026-06-01}
streams:
  - {id: pension, name: Pension, amount_per_yr: 100, boundary: Date_to_Moment, start_date: 2024-01-01, stop_moment_id: sale}
  - {id: rent, name: Rent, amount_per_yr: -40, boundary: Moment_to_Duration, start_moment_id: sale, set_duration: 2}
  - {id: food, name: Food, amount_per_yr: -10, boundary: Date_to_Date, start_date: 2024-01-01, stop_date: 2030-01-01}
`
