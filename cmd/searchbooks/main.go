// Command searchbooks runs a stored book source's search flow end to end:
// expand the search URL with a keyword, fetch the result page, and extract
// book entries with the source's search rules.
//
// Usage:
//
//	searchbooks -dsn sources.db -source "https://a.example.com" -key "剑来"
//	searchbooks -dsn sources.db -source "https://a.example.com" -key "剑来" -json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"bookrules/internal/booksource"
	"bookrules/internal/fetch"
	"bookrules/internal/ruleengine"
	"bookrules/internal/sourcestore"

	// register all store backends with the factory.
	_ "bookrules/internal/sourcestore/all"
)

// Book is one search hit.
type Book struct {
	Name        string `json:"name"`
	Author      string `json:"author,omitempty"`
	URL         string `json:"url,omitempty"`
	LastChapter string `json:"lastChapter,omitempty"`
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, http.DefaultClient))
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer, httpClient *http.Client) int {
	fs := flag.NewFlagSet("searchbooks", flag.ContinueOnError)
	fs.SetOutput(stderr)

	storeKind := fs.String("store", "sqlite", "Store backend: sqlite, postgres, or mssql")
	dsn := fs.String("dsn", "", "Store DSN (file path for sqlite)")
	sourceURL := fs.String("source", "", "Book source URL (the store key)")
	key := fs.String("key", "", "Search keyword")
	asJSON := fs.Bool("json", false, "Print results as JSON objects, one per line")
	timeout := fs.Duration("timeout", 20*time.Second, "Timeout for the search request")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dsn == "" || *sourceURL == "" || *key == "" {
		fmt.Fprintf(stderr, "missing required flags: -dsn, -source, and -key\n")
		return 2
	}

	store, err := sourcestore.New(ctx, sourcestore.Config{Kind: *storeKind, DSN: *dsn})
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 1
	}
	defer store.Close()

	src, err := store.Get(ctx, *sourceURL)
	if err != nil {
		if errors.Is(err, sourcestore.ErrNotFound) {
			fmt.Fprintf(stderr, "source %q not found in store\n", *sourceURL)
		} else {
			fmt.Fprintf(stderr, "load source: %v\n", err)
		}
		return 1
	}
	if src.RuleSearch == nil {
		fmt.Fprintf(stderr, "source %q has no search rules\n", *sourceURL)
		return 1
	}

	books, degraded, err := search(ctx, fetch.NewLoader(httpClient, *timeout), src, *key)
	if err != nil {
		fmt.Fprintf(stderr, "search: %v\n", err)
		return 1
	}

	for _, b := range books {
		if *asJSON {
			enc := json.NewEncoder(stdout)
			enc.SetEscapeHTML(false)
			if err := enc.Encode(b); err != nil {
				fmt.Fprintf(stderr, "encode json: %v\n", err)
				return 1
			}
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", b.Name, b.Author, b.URL)
	}

	if degraded != "" {
		fmt.Fprintf(stderr, "warning: some fields were not extracted: %s\n", degraded)
	}
	return 0
}

// search fetches the source's search page for key and extracts book entries.
// A non-empty degraded return carries the last per-field extraction error;
// the books themselves are still usable.
func search(ctx context.Context, loader *fetch.Loader, src booksource.Source, key string) ([]Book, string, error) {
	req, err := booksource.ParseSearchURL(src.SearchURL)
	if err != nil {
		return nil, "", err
	}

	keyword, err := booksource.EncodeKeyword(key, req.Charset)
	if err != nil {
		return nil, "", err
	}

	interp := ruleengine.New()
	interp.SetBaseURL(src.BookSourceURL)
	interp.Engine().SetHTTPCallback(func(url, method, body string, headers map[string]string) (string, error) {
		b, err := loader.Fetch(ctx, url, fetch.Request{Method: method, Body: body})
		return string(b), err
	})

	searchURL := interp.ExpandSearchURL(req.URL, keyword)
	body := ""
	if req.Body != "" {
		body = interp.ExpandTemplate(req.Body)
	}

	page, err := loader.Fetch(ctx, searchURL, fetch.Request{Method: req.Method, Body: body})
	if err != nil {
		return nil, "", err
	}

	rules := src.RuleSearch
	entries := []string{string(page)}
	if rules.BookList != "" {
		entries, err = interp.Run(page, rules.BookList, nil)
		if err != nil {
			return nil, "", fmt.Errorf("bookList rule: %w", err)
		}
	}

	// Each Run resets the session error state, so degradation is collected
	// per field here.
	degraded := ""
	field := func(entry, rule string) string {
		return first(interp, entry, rule, &degraded)
	}

	books := make([]Book, 0, len(entries))
	for _, entry := range entries {
		b := Book{
			Name:        field(entry, rules.Name),
			Author:      field(entry, rules.Author),
			URL:         resolveURL(src.BookSourceURL, field(entry, rules.BookURL)),
			LastChapter: field(entry, rules.LastChapter),
		}
		if b.Name == "" && b.URL == "" {
			continue
		}
		books = append(books, b)
	}
	return books, degraded, nil
}

// first runs a field rule against one entry and returns the first result. A
// broken field rule yields an empty field and records the failure in
// degraded instead of aborting the whole search.
func first(interp *ruleengine.Interpreter, entry, rule string, degraded *string) string {
	if rule == "" {
		return ""
	}
	results, err := interp.Run([]byte(entry), rule, nil)
	if err != nil {
		*degraded = err.Error()
		return ""
	}
	if interp.HasError() {
		*degraded = interp.LastError()
	}
	if len(results) == 0 {
		return ""
	}
	return results[0]
}

// resolveURL makes a relative book URL absolute against the source URL.
func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
