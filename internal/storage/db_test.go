package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSourceRoundTrip(t *testing.T) {
	db := openTestDB(t)

	fetchedAt := time.Date(2025, 8, 1, 10, 30, 0, 0, time.UTC)
	row := SourceRow{URI: "https://erp.local/pendentes.xlsx", Version: "v1", RawRef: "/tmp/abc.bin", ByteCount: 1234, FetchedAt: fetchedAt}
	if err := db.UpsertSource(row); err != nil {
		t.Fatal(err)
	}

	got, found, err := db.GetSource(row.URI, "v1")
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if got.RawRef != row.RawRef || got.ByteCount != 1234 || !got.FetchedAt.Equal(fetchedAt) {
		t.Fatalf("got=%+v", got)
	}

	// upsert replaces in place
	row.ByteCount = 99
	if err := db.UpsertSource(row); err != nil {
		t.Fatal(err)
	}
	got, _, _ = db.GetSource(row.URI, "v1")
	if got.ByteCount != 99 {
		t.Fatalf("byteCount=%d", got.ByteCount)
	}

	// a different normalization version is a different entry
	_, found, err = db.GetSource(row.URI, "v2")
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}

	if err := db.DeleteSource(row.URI); err != nil {
		t.Fatal(err)
	}
	_, found, _ = db.GetSource(row.URI, "v1")
	if found {
		t.Fatal("still present after delete")
	}
}

func TestRunLog(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 3; i++ {
		err := db.InsertRun(RunRow{
			TraceID:     "trace-" + string(rune('a'+i)),
			Dataset:     "receivables",
			RowsLoaded:  100 + i,
			RowsDropped: i,
			DurationMs:  12.5,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs=%d", len(runs))
	}
	// newest first
	if runs[0].TraceID != "trace-c" || runs[0].RowsLoaded != 102 {
		t.Fatalf("first=%+v", runs[0])
	}
}
