// Package store persists footprints in a sqlite catalog. The shape metadata
// is queryable; the pixel payload is kept as an opaque blob in the codec's
// binary format.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ivlev/img2footprint/internal/footprint"
)

type Store struct {
	db *sql.DB
}

// Record is one catalog row.
type Record struct {
	ID             string
	Source         string
	Area           int
	MinX, MinY     int
	MaxX, MaxY     int
	PeakCount      int
	Heavy          bool
	Blob           []byte
	StoredUnixNano int64
}

// Open opens (creating if needed) a footprint catalog at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS footprints (
			id TEXT PRIMARY KEY,
			source TEXT,
			area INTEGER,
			min_x INTEGER,
			min_y INTEGER,
			max_x INTEGER,
			max_y INTEGER,
			peak_count INTEGER,
			heavy INTEGER,
			blob BLOB,
			stored_unix_nanos INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_footprints_source ON footprints(source);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert writes one footprint row. blob is the codec-encoded payload; the
// metadata columns are derived from f.
func (s *Store) Insert(f *footprint.Footprint, source string, blob []byte) error {
	bbox := f.BBox()
	heavy := 0
	if f.IsHeavy() {
		heavy = 1
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO footprints
			(id, source, area, min_x, min_y, max_x, max_y, peak_count, heavy, blob, stored_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID.String(), source, f.Area(),
		bbox.X0, bbox.Y0, bbox.X1, bbox.Y1,
		len(f.Peaks()), heavy, blob, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert footprint %s: %w", f.ID, err)
	}
	return nil
}

// Get returns the row for the given footprint id, or nil when absent.
func (s *Store) Get(id string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, source, area, min_x, min_y, max_x, max_y, peak_count, heavy, blob, stored_unix_nanos
		FROM footprints WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// BySource returns all rows extracted from the given source frame, largest
// first.
func (s *Store) BySource(source string) ([]*Record, error) {
	rows, err := s.db.Query(`
		SELECT id, source, area, min_x, min_y, max_x, max_y, peak_count, heavy, blob, stored_unix_nanos
		FROM footprints WHERE source = ? ORDER BY area DESC`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Count returns the number of stored footprints.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM footprints`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var heavy int
	err := row.Scan(&rec.ID, &rec.Source, &rec.Area,
		&rec.MinX, &rec.MinY, &rec.MaxX, &rec.MaxY,
		&rec.PeakCount, &heavy, &rec.Blob, &rec.StoredUnixNano)
	if err != nil {
		return nil, err
	}
	rec.Heavy = heavy != 0
	return &rec, nil
}
