// Command sourceimport reads a book source collection (JSON array or single
// object), validates and converts each source, and upserts the usable ones
// into a store.
//
// Usage:
//
//	sourceimport -file sources.json -store sqlite -dsn sources.db
//	cat sources.json | sourceimport -store postgres -dsn "$DATABASE_URL"
//
// With metrics:
//
//	sourceimport -file sources.json -dsn sources.db -metrics datadog
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"bookrules/internal/booksource"
	"bookrules/internal/metrics"
	"bookrules/internal/metrics/datadog"
	"bookrules/internal/sourcestore"

	// register all store backends with the factory.
	_ "bookrules/internal/sourcestore/all"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("sourceimport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	file := fs.String("file", "", "Source collection JSON file (default: stdin)")
	storeKind := fs.String("store", "sqlite", "Store backend: sqlite, postgres, or mssql")
	dsn := fs.String("dsn", "", "Store DSN (file path for sqlite)")
	metricsBackend := fs.String("metrics", "", "Metrics backend: datadog or empty for none")
	tags := fs.String("tags", "", "Extra metrics tags, comma-separated (env:prod,service:reader)")
	flushEvery := fs.Duration("flush-every", 60*time.Second, "Metrics flush interval")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dsn == "" {
		fmt.Fprintf(stderr, "missing -dsn\n")
		return 2
	}

	switch *metricsBackend {
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			Tags:       datadog.ParseTagsCSV(*tags),
			FlushEvery: *flushEvery,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			metrics.SetBackend(b)
			// Close stops the flush loop and submits once more.
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}
	case "", "none":
		// metrics disabled; nop backend remains
	default:
		fmt.Fprintf(stderr, "unknown -metrics backend %q\n", *metricsBackend)
		return 2
	}

	in := stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			fmt.Fprintf(stderr, "open source file: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}
	if in == nil {
		fmt.Fprintf(stderr, "no input: pass -file or pipe a source collection to stdin\n")
		return 2
	}

	data, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}
	if !booksource.IsLegadoFormat(data) {
		fmt.Fprintf(stderr, "input is not a book source document\n")
		return 1
	}

	sources, res, err := booksource.Convert(bytes.NewReader(data))
	if err != nil {
		fmt.Fprintf(stderr, "convert sources: %v\n", err)
		return 1
	}

	store, err := sourcestore.New(ctx, sourcestore.Config{Kind: *storeKind, DSN: *dsn})
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		fmt.Fprintf(stderr, "init store: %v\n", err)
		return 1
	}

	stored := 0
	for _, src := range sources {
		if err := store.Upsert(ctx, src); err != nil {
			fmt.Fprintf(stderr, "store source %q: %v\n", src.BookSourceURL, err)
			continue
		}
		stored++
	}

	fmt.Fprintf(stdout, "imported=%d failed=%d skipped=%d\n", stored, res.Failed, res.Skipped)
	for _, msg := range res.SampleErrors {
		fmt.Fprintf(stderr, "sample error: %s\n", msg)
	}

	if stored == 0 && res.Failed > 0 {
		return 1
	}
	return 0
}
