package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *HistoryDB {
	t.Helper()
	db, err := NewHistoryDB(filepath.Join(t.TempDir(), "conversions.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndGetConversion(t *testing.T) {
	db := newTestDB(t)

	if err := db.RecordConversion("abc123", "Song Title", "/site/abc123.mp3", 1500*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	row, err := db.GetConversion("abc123")
	if err != nil {
		t.Fatal(err)
	}
	if row["title"] != "Song Title" || row["link"] != "/site/abc123.mp3" {
		t.Fatalf("row = %v", row)
	}
	if row["pipeline_ms"] != int64(1500) {
		t.Fatalf("pipeline_ms = %v", row["pipeline_ms"])
	}
}

func TestRecordConversionOverwritesOnRetry(t *testing.T) {
	db := newTestDB(t)

	if err := db.RecordConversion("abc123", "Song Title", "/site/abc123.mp3", time.Second); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordConversion("abc123", "Song Title", "/site/abc123.mp3", 2*time.Second); err != nil {
		t.Fatal(err)
	}

	row, err := db.GetConversion("abc123")
	if err != nil {
		t.Fatal(err)
	}
	if row["pipeline_ms"] != int64(2000) {
		t.Fatalf("pipeline_ms = %v, want updated value", row["pipeline_ms"])
	}

	rows, err := db.ListConversions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}

func TestGetConversionMissing(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.GetConversion("nope"); err == nil {
		t.Fatal("expected an error for a missing row")
	}
}
