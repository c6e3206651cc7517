// Package mssql implements sourcestore.Store on Microsoft SQL Server.
//
// Upsert is an update-then-insert rather than MERGE; MERGE has well-known
// concurrency caveats and the source import workload is single-writer.
package mssql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"bookrules/internal/booksource"
	"bookrules/internal/sourcestore"
)

type Store struct {
	db *sql.DB
}

func init() {
	sourcestore.Register("mssql", New)
}

func New(ctx context.Context, cfg sourcestore.Config) (sourcestore.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
IF NOT EXISTS (SELECT 1 FROM sys.tables WHERE name = 'book_source')
CREATE TABLE book_source (
	url         NVARCHAR(450) NOT NULL PRIMARY KEY,
	name        NVARCHAR(MAX) NOT NULL,
	source_type INT NOT NULL,
	enabled     BIT NOT NULL,
	raw         NVARCHAR(MAX) NOT NULL,
	updated_at  DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table book_source: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, src booksource.Source) error {
	const update = `
UPDATE book_source
SET name = @p2, source_type = @p3, enabled = @p4, raw = @p5, updated_at = SYSUTCDATETIME()
WHERE url = @p1`

	res, err := s.db.ExecContext(ctx, update,
		src.BookSourceURL,
		src.BookSourceName,
		src.BookSourceType,
		src.IsEnabled(),
		string(src.Raw),
	)
	if err != nil {
		return fmt.Errorf("update source %s: %w", src.BookSourceURL, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	const insert = `
INSERT INTO book_source (url, name, source_type, enabled, raw, updated_at)
VALUES (@p1, @p2, @p3, @p4, @p5, SYSUTCDATETIME())`

	_, err = s.db.ExecContext(ctx, insert,
		src.BookSourceURL,
		src.BookSourceName,
		src.BookSourceType,
		src.IsEnabled(),
		string(src.Raw),
	)
	if err != nil {
		return fmt.Errorf("insert source %s: %w", src.BookSourceURL, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, url string) (booksource.Source, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT raw FROM book_source WHERE url = @p1`, url).Scan(&raw)
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
