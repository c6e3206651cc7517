// Package postgres implements sourcestore.Store on a pgx connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookrules/internal/booksource"
	"bookrules/internal/sourcestore"
)

type Store struct {
	pool *pgxpool.Pool
}

func init() {
	sourcestore.Register("postgres", New)
}

func New(ctx context.Context, cfg sourcestore.Config) (sourcestore.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Init(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS book_source (
	url         TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	source_type INTEGER NOT NULL,
	enabled     BOOLEAN NOT NULL,
	raw         JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table book_source: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, src booksource.Source) error {
	const q = `
INSERT INTO book_source (url, name, source_type, enabled, raw, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (url) DO UPDATE SET
	name = EXCLUDED.name,
	source_type = EXCLUDED.source_type,
	enabled = EXCLUDED.enabled,
	raw = EXCLUDED.raw,
	updated_at = now()`

	_, err := s.pool.Exec(ctx, q,
		src.BookSourceURL,
		src.BookSourceName,
		src.BookSourceType,
		src.IsEnabled(),
		[]byte(src.Raw),
	)
	if err != nil {
		return fmt.Errorf("upsert source %s: %w", src.BookSourceURL, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, url string) (booksource.Source, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT raw FROM book_source WHERE url = $1`, url).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return booksource.Source{}, sourcestore.ErrNotFound
	}
	if err != nil {
		return booksource.Source{}, err
	}
	return decodeSource(raw)
}

func (s *Store) List(ctx context.Context) ([]booksource.Source, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT raw FROM book_source ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booksource.Source
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		src, err := decodeSource(raw)
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
