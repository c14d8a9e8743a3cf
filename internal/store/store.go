// Package store persists recognition results in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Schema for the scan store.
const schema = `
CREATE TABLE IF NOT EXISTS scans (
    id          TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    image_path  TEXT NOT NULL DEFAULT '',
    found       INTEGER NOT NULL,
    color_hex   TEXT NOT NULL DEFAULT '',
    color_name  TEXT NOT NULL DEFAULT '',
    created_ns  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_ns);

CREATE TABLE IF NOT EXISTS plates (
    scan_id     TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
    ordinal     INTEGER NOT NULL,
    text        TEXT NOT NULL,
    PRIMARY KEY (scan_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_plates_text ON plates(text);
`

// Scan records one recognition pass over one image.
type Scan struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	ImagePath string    `json:"image_path,omitempty"`
	Found     int       `json:"found"`
	Plates    []string  `json:"plates"`
	ColorHex  string    `json:"color_hex,omitempty"`
	ColorName string    `json:"color_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the SQLite scan store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and applies the
// schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveScan inserts a scan and its plates in one transaction. A missing ID is
// filled with a fresh UUID and a zero CreatedAt with the current time; both
// are written back to the passed struct.
func (s *Store) SaveScan(scan *Scan) error {
	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO scans (id, source, image_path, found, color_hex, color_name, created_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scan.ID, scan.Source, scan.ImagePath, scan.Found, scan.ColorHex, scan.ColorName, scan.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO plates (scan_id, ordinal, text) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, text := range scan.Plates {
		if _, err := stmt.Exec(scan.ID, i, text); err != nil {
			return fmt.Errorf("insert plate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetScan retrieves a scan by ID, or (nil, nil) when it does not exist.
func (s *Store) GetScan(id string) (*Scan, error) {
	var scan Scan
	var createdNs int64

	err := s.db.QueryRow(`
		SELECT id, source, image_path, found, color_hex, color_name, created_ns
		FROM scans WHERE id = ?`, id,
	).Scan(&scan.ID, &scan.Source, &scan.ImagePath, &scan.Found, &scan.ColorHex, &scan.ColorName, &createdNs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get scan: %w", err)
	}

	scan.CreatedAt = time.Unix(0, createdNs).UTC()
	if scan.Plates, err = s.loadPlates(scan.ID); err != nil {
		return nil, err
	}

	return &scan, nil
}

// RecentScans retrieves the newest scans, newest first. A non-positive limit
// means 50.
func (s *Store) RecentScans(limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, source, image_path, found, color_hex, color_name, created_ns
		FROM scans
		ORDER BY created_ns DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent scans: %w", err)
	}
	defer rows.Close()

	return s.scanScans(rows)
}

// SearchPlates retrieves scans whose plate text contains the query substring,
// newest first. Matching is case-insensitive; a scan with several matching
// plates appears once. A non-positive limit means 50.
func (s *Store) SearchPlates(query string, limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT DISTINCT s.id, s.source, s.image_path, s.found, s.color_hex, s.color_name, s.created_ns
		FROM scans s
		JOIN plates p ON p.scan_id = s.id
		WHERE p.text LIKE ?
		ORDER BY s.created_ns DESC
		LIMIT ?`, "%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query plates: %w", err)
	}
	defer rows.Close()

	return s.scanScans(rows)
}

// loadPlates retrieves a scan's plates in engine order. Never nil, so the
// JSON form is always an array.
func (s *Store) loadPlates(scanID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT text FROM plates
		WHERE scan_id = ?
		ORDER BY ordinal ASC`, scanID,
	)
	if err != nil {
		return nil, fmt.Errorf("query scan plates: %w", err)
	}
	defer rows.Close()

	plates := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan plate: %w", err)
		}
		plates = append(plates, text)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plates: %w", err)
	}

	return plates, nil
}

// scanScans is a helper to scan rows into a slice and attach each scan's
// plates.
func (s *Store) scanScans(rows *sql.Rows) ([]Scan, error) {
	var scans []Scan

	for rows.Next() {
		var scan Scan
		var createdNs int64

		if err := rows.Scan(&scan.ID, &scan.Source, &scan.ImagePath, &scan.Found, &scan.ColorHex, &scan.ColorName, &createdNs); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		scan.CreatedAt = time.Unix(0, createdNs).UTC()

		scans = append(scans, scan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}

	for i := range scans {
		plates, err := s.loadPlates(scans[i].ID)
		if err != nil {
			return nil, err
		}
		scans[i].Plates = plates
	}

	return scans, nil
}
