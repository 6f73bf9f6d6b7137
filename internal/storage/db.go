package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS sources (
  uri TEXT NOT NULL,
  version TEXT NOT NULL,
  rawRef TEXT NOT NULL,
  byteCount INTEGER NOT NULL,
  fetchedAt TEXT NOT NULL,
  PRIMARY KEY(uri, version)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  dataset TEXT NOT NULL,
  rowsLoaded INTEGER NOT NULL,
  rowsDropped INTEGER NOT NULL,
  filteredRows INTEGER NOT NULL,
  durationMs REAL NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := d.conn.Exec(schema)
	return err
}

type SourceRow struct {
	URI       string
	Version   string
	RawRef    string
	ByteCount int
	FetchedAt time.Time
}

func (d *DB) UpsertSource(row SourceRow) error {
	_, err := d.conn.Exec(`
INSERT INTO sources(uri, version, rawRef, byteCount, fetchedAt)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(uri, version) DO UPDATE SET rawRef=excluded.rawRef, byteCount=excluded.byteCount, fetchedAt=excluded.fetchedAt
`, row.URI, row.Version, row.RawRef, row.ByteCount, row.FetchedAt.UTC().Format(time.RFC3339))
	return err
}

func (d *DB) GetSource(uri, version string) (SourceRow, bool, error) {
	row := d.conn.QueryRow(`SELECT uri, version, rawRef, byteCount, fetchedAt FROM sources WHERE uri = ? AND version = ?`, uri, version)

	var out SourceRow
	var fetchedAt string
	err := row.Scan(&out.URI, &out.Version, &out.RawRef, &out.ByteCount, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SourceRow{}, false, nil
	}
	if err != nil {
		return SourceRow{}, false, err
	}
	out.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return SourceRow{}, false, err
	}
	return out, true, nil
}

func (d *DB) DeleteSource(uri string) error {
	_, err := d.conn.Exec(`DELETE FROM sources WHERE uri = ?`, uri)
	return err
}

type RunRow struct {
	TraceID      string
	Dataset      string
	RowsLoaded   int
	RowsDropped  int
	FilteredRows int
	DurationMs   float64
}

func (d *DB) InsertRun(run RunRow) error {
	_, err := d.conn.Exec(`
INSERT INTO runs(traceId, dataset, rowsLoaded, rowsDropped, filteredRows, durationMs)
VALUES(?, ?, ?, ?, ?, ?)
`, run.TraceID, run.Dataset, run.RowsLoaded, run.RowsDropped, run.FilteredRows, run.DurationMs)
	return err
}

func (d *DB) ListRuns(limit int) ([]RunRow, error) {
	rows, err := d.conn.Query(`SELECT traceId, dataset, rowsLoaded, rowsDropped, filteredRows, durationMs FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RunRow{}
	for rows.Next() {
		var run RunRow
		if err := rows.Scan(&run.TraceID, &run.Dataset, &run.RowsLoaded, &run.RowsDropped, &run.FilteredRows, &run.DurationMs); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
