// Package sqlite implements sourcestore.Store on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"bookrules/internal/booksource"
	"bookrules/internal/sourcestore"
)

// Store keeps book sources in a single SQLite table. Timestamps are stored
// as RFC3339Nano strings; SQLite has no native timestamp type and TEXT
// affinity round-trips reliably.
type Store struct {
	db *sql.DB
}

func init() {
	sourcestore.Register("sqlite", New)
}

func New(ctx context.Context, cfg sourcestore.Config) (sourcestore.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) Init(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS book_source (
	url         TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	source_type INTEGER NOT NULL,
	enabled     INTEGER NOT NULL,
	raw         TEXT NOT NULL,
	updated_at  TEXT NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table book_source: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, src booksource.Source) error {
	const q = `
INSERT INTO book_source (url, name, source_type, enabled, raw, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	name = excluded.name,
	source_type = excluded.source_type,
	enabled = excluded.enabled,
	raw = excluded.raw,
	updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		src.BookSourceURL,
		src.BookSourceName,
		src.BookSourceType,
		boolToInt(src.IsEnabled()),
		string(src.Raw),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert source %s: %w", src.BookSourceURL, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, url string) (booksource.Source, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT raw FROM book_source WHERE url = ?`, url).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return booksource.Source{}, sourcestore.ErrNotFound
	}
	if err != nil {
		return booksource.Source{}, err
	}
	return decodeSource([]byte(raw))
}

func (s *Store) List(ctx context.Context) ([]booksource.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT raw FROM book_source ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booksource.Source
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		src, err := decodeSource([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func decodeSource(raw []byte) (booksource.Source, error) {
	var src booksource.Source
	if err := json.Unmarshal(raw, &src); err != nil {
		return booksource.Source{}, fmt.Errorf("decode stored source: %w", err)
	}
	src.Raw = raw
	return src, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
