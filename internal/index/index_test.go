package index

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/fehu/internal/apperr"
	"github.com/starford/fehu/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "fehu-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// chartYAML renders a small valid chart document.
func chartYAML(id, name, owner string) []byte {
	return []byte(fmt.Sprintf(`id: %s
name: %s
owner: %s
start_date: 2024-01-01
stop_date: 2034-01-01
savings: 1000
moments:
  - {id: sale, name: Cleveland Sold, date: 2026-03-01}
streams:
  - {id: pension, name: Pension, amount_per_yr: 80000, boundary: Date_to_Moment, start_date: 2024-01-01, stop_moment_id: sale}
  - {id: loan, name: Loan Payments, amount_per_yr: 36000, boundary: Moment_to_Duration, start_moment_id: sale, set_duration: 7}
  - {id: living, name: Living Expenses, amount_per_yr: -60000, boundary: Date_to_Date, start_date: 2024-01-01, stop_date: 2034-01-01, start_moment_id: sale}
  - {id: ltc, name: Long Term Care, amount_per_yr: -1000, boundary: Duration_to_Moment, set_duration: 2, stop_moment_id: gone}
`, id, name, owner))
}

func mustIndex(t *testing.T, db *DB, path string, data []byte, at time.Time) {
	t.Helper()
	if err := IndexFile(db, path, data, at); err != nil {
		t.Fatalf("IndexFile(%s): %v", path, err)
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"charts", "moments", "streams"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestIndexFile_AndGetChart(t *testing.T) {
	db := testDB(t)
	data := chartYAML("c1", "Plan", "alice@test.run")
	mustIndex(t, db, "plan.yaml", data, time.Now())

	got, err := db.GetChart("c1")
	if err != nil {
		t.Fatalf("GetChart: %v", err)
	}
	if got.Path != "plan.yaml" || got.Name != "Plan" {
		t.Errorf("chart = %+v", got)
	}
	if got.StartYear != 2024 || got.StopYear != 2034 || got.Savings != 1000 {
		t.Errorf("years/savings = %d..%d / %d", got.StartYear, got.StopYear, got.Savings)
	}
	if got.StreamCount != 4 || got.MomentCount != 1 {
		t.Errorf("counts = %d streams, %d moments", got.StreamCount, got.MomentCount)
	}

	cs, err := db.GetChecksum("plan.yaml")
	if err != nil || cs == "" {
		t.Errorf("GetChecksum = %q, %v", cs, err)
	}
}

func TestGetChart_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetChart("missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestChartIDAt(t *testing.T) {
	db := testDB(t)
	mustIndex(t, db, "plans/p.yaml", chartYAML("c1", "Plan", ""), time.Now())

	if id, err := db.ChartIDAt("plans/p.yaml"); err != nil || id != "c1" {
		t.Errorf("ChartIDAt = %q, %v, want c1", id, err)
	}
	if id, err := db.ChartIDAt("missing.yaml"); err != nil || id != "" {
		t.Errorf("ChartIDAt(missing) = %q, %v, want empty", id, err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestUpsertChart_DuplicateIDOtherPath(t *testing.T) {
	db := testDB(t)
	mustIndex(t, db, "a.yaml", chartYAML("same", "A", ""), time.Now())
	err := IndexFile(db, "b.yaml", chartYAML("same", "B", ""), time.Now())
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpsertChart_ReplacesChildren(t *testing.T) {
	db := testDB(t)
	mustIndex(t, db, "p.yaml", chartYAML("c1", "Old", ""), time.Now())
	mustIndex(t, db, "p.yaml", []byte("id: c2\nname: New\n"), time.Now())

	if _, err := db.GetChart("c1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old id still indexed: %v", err)
	}
	got, err := db.GetChart("c2")
	if err != nil {
		t.Fatalf("GetChart: %v", err)
	}
	if got.StreamCount != 0 || got.MomentCount != 0 {
		t.Errorf("children not replaced: %+v", got)
	}
	var orphans int
	_ = db.conn.QueryRow(`SELECT count(*) FROM streams WHERE chart_id = 'c1'`).Scan(&orphans)
	if orphans != 0 {
		t.Errorf("orphan streams = %d", orphans)
	}
}

func TestDeleteChart(t *testing.T) {
	db := testDB(t)
	mustIndex(t, db, "del.yaml", chartYAML("c1", "Gone", ""), time.Now())

	if err := db.DeleteChart("del.yaml"); err != nil {
		t.Fatalf("DeleteChart: %v", err)
	}
	cs, _ := db.GetChecksum("del.yaml")
	if cs != "" {
		t.Errorf("deleted chart still has checksum %q", cs)
	}
	usages, _ := db.MomentUsages("c1", "sale")
	if len(usages) != 0 {
		t.Errorf("usages after delete = %+v", usages)
	}
}

func TestListCharts_OrderAndOwner(t *testing.T) {
	db := testDB(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mustIndex(t, db, "old.yaml", chartYAML("old", "Old", "alice"), base)
	mustIndex(t, db, "new.yaml", chartYAML("new", "New", "alice"), base.Add(time.Hour))
	mustIndex(t, db, "bob.yaml", chartYAML("bob", "Bob", "bob"), base.Add(2*time.Hour))

	all, total, err := db.ListCharts("", 10, 0)
	if err != nil {
		t.Fatalf("ListCharts: %v", err)
	}
	if total != 3 || len(all) != 3 || all[0].ID != "bob" {
		t.Errorf("all = %+v (total %d)", all, total)
	}

	mine, total, err := db.ListCharts("alice", 10, 0)
	if err != nil {
		t.Fatalf("ListCharts: %v", err)
	}
	if total != 2 || len(mine) != 2 || mine[0].ID != "new" || mine[1].ID != "old" {
		t.Errorf("alice = %+v (total %d)", mine, total)
	}

	page, _, _ := db.ListCharts("", 1, 1)
	if len(page) != 1 || page[0].ID != "new" {
		t.Errorf("page = %+v", page)
	}
}

func TestMomentUsages_OnlyRelevantAnchors(t *testing.T) {
	db := testDB(t)
	mustIndex(t, db, "p.yaml", chartYAML("c1", "Plan", ""), time.Now())

	usages, err := db.MomentUsages("c1", "sale")
	if err != nil {
		t.Fatalf("MomentUsages: %v", err)
	}
	// "living" carries start_moment_id but is Date_to_Date, so it must not count.
	if len(usages) != 2 {
		t.Fatalf("usages = %+v, want 2", usages)
	}
	if usages[0].StreamID != "loan" || usages[0].Side != "start" {
		t.Errorf("usages[0] = %+v", usages[0])
	}
	if usages[1].StreamID != "pension" || usages[1].Side != "stop" {
		t.Errorf("usages[1] = %+v", usages[1])
	}
}

func TestDanglingReferences(t *testing.T) {
	db := testDB(t)
	mustIndex(t, db, "p.yaml", chartYAML("c1", "Plan", ""), time.Now())

	refs, err := db.DanglingReferences("c1")
	if err != nil {
		t.Fatalf("DanglingReferences: %v", err)
	}
	if len(refs) != 1 || refs[0].StreamID != "ltc" || refs[0].MomentID != "gone" {
		t.Errorf("refs = %+v", refs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	mustIndex(t, db, "s.yaml", chartYAML("c1", "Searchable", ""), time.Now())

	results, err := db.Search("Cleveland", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c1" {
		t.Errorf("search results = %+v, want 1 hit for c1", results)
	}
}

func TestSync_IndexesAndRemoves(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = store.Write("a.yaml", chartYAML("a", "A", ""))
	_ = store.Write("b.yaml", chartYAML("b", "B", ""))
	_ = store.Write("broken.yaml", []byte("id: [\n"))

	stats, err := Sync(db, store, logger)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Indexed != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	_ = store.Delete("b.yaml")
	stats, err = Sync(db, store, logger)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Removed != 1 || stats.Indexed != 0 {
		t.Errorf("second stats = %+v", stats)
	}
	if _, err := db.GetChart("b"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("b still indexed: %v", err)
	}
}
