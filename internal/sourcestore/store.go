// Package sourcestore persists book sources. Backends register themselves by
// kind; commands pick one with -store/-dsn flags and blank-import the
// sourcestore/all package to link every backend in.
package sourcestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bookrules/internal/booksource"
)

// ErrNotFound is returned by Get when no source has the requested URL.
var ErrNotFound = errors.New("book source not found")

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Store is a backend-agnostic book source repository. The source URL is the
// primary key; Upsert replaces an existing row in place.
type Store interface {
	// Init creates the schema if it does not exist. Idempotent.
	Init(ctx context.Context) error

	Upsert(ctx context.Context, src booksource.Source) error

	// Get returns the source stored under url, or ErrNotFound.
	Get(ctx context.Context, url string) (booksource.Source, error)

	// List returns all stored sources ordered by name.
	List(ctx context.Context) ([]booksource.Source, error)

	// Close releases backend resources. Call once at shutdown.
	Close()
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "sqlite", "postgres").
// Call from an init() function in the backend package.
//
// Panics:
//   - If kind is empty, f is nil, or kind is already registered. Duplicate
//     registration fails fast to avoid ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("sourcestore: Register called with empty kind")
	}
	if f == nil {
		panic("sourcestore: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("sourcestore: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Store using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported, or whatever the
//     factory returns.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("sourcestore: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported sourcestore kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
