//go:build sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM charts_fts`).Scan(&count); err != nil {
		t.Fatalf("charts_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	mustIndex(t, db, "fts.yaml", chartYAML("c1", "Retirement", "alice"), time.Now())

	results, err := db.Search("pension", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "c1" || results[0].Path != "fts.yaml" {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	mustIndex(t, db, "gone.yaml", chartYAML("c1", "Vanishing", ""), time.Now())
	_ = db.DeleteChart("gone.yaml")

	results, _ := db.Search("Vanishing", 10)
	if len(results) != 0 {
		t.Errorf("deleted chart still in FTS index: %+v", results)
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	mustIndex(t, db, "evo.yaml", []byte("id: c1\nname: Original\n"), time.Now())
	mustIndex(t, db, "evo.yaml", []byte("id: c1\nname: Replacement\n"), time.Now())

	results, _ := db.Search("Original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("Replacement", 10)
	if len(results) != 1 || results[0].Name != "Replacement" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
