// ABOUTME: SQLite-backed recording library
// ABOUTME: Persists generated, trimmed and merged audio with metadata
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

// Record is one stored recording
type Record struct {
	ID        string
	Title     string
	Voice     string
	Style     string
	Duration  float64
	Timestamp time.Time
	Blob      []byte
}

// Store wraps the recordings database
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open creates or opens the library at path
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create library dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS recordings (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    voice TEXT,
    style TEXT,
    duration REAL NOT NULL,
    created_at INTEGER NOT NULL,
    blob BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recordings_created ON recordings(created_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts a record, filling in a missing ID or timestamp
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if len(rec.Blob) == 0 {
		return studioerr.MissingPrerequisite.New("recording %s has no audio", rec.ID)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings(id, title, voice, style, duration, created_at, blob)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Voice, rec.Style, rec.Duration, rec.Timestamp.UnixMilli(), rec.Blob)
	if err != nil {
		return fmt.Errorf("save recording: %w", err)
	}
	s.log.Info("recording saved", "id", rec.ID, "title", rec.Title, "duration", rec.Duration)
	return nil
}

// Get loads one record including its audio
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, voice, style, duration, created_at, blob FROM recordings WHERE id = ?`, id)

	rec, err := scanRecord(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, studioerr.MissingPrerequisite.New("recording %s not found", id)
	}
	return rec, err
}

// List returns every record newest first, without audio
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, voice, style, duration, created_at FROM recordings ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan, false)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, id, `DELETE FROM recordings WHERE id = ?`, id)
}

// Rename changes a record's title
func (s *Store) Rename(ctx context.Context, id, title string) error {
	return s.exec(ctx, id, `UPDATE recordings SET title = ? WHERE id = ?`, title, id)
}

// Update replaces a record's audio and duration, used after an edit
func (s *Store) Update(ctx context.Context, id string, blob []byte, duration float64) error {
	return s.exec(ctx, id, `UPDATE recordings SET blob = ?, duration = ? WHERE id = ?`, blob, duration, id)
}

func (s *Store) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update recording %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return studioerr.MissingPrerequisite.New("recording %s not found", id)
	}
	return nil
}

func scanRecord(scan func(...any) error, withBlob bool) (Record, error) {
	var rec Record
	var voice, style sql.NullString
	var created int64

	dest := []any{&rec.ID, &rec.Title, &voice, &style, &rec.Duration, &created}
	if withBlob {
		dest = append(dest, &rec.Blob)
	}
	if err := scan(dest...); err != nil {
		return Record{}, err
	}

	rec.Voice = voice.String
	rec.Style = style.String
	rec.Timestamp = time.UnixMilli(created)
	return rec, nil
}
