// Package fetch loads document content for rule evaluation: from stdin, a
// local file, or HTTP, with charset normalization for non-UTF-8 book sites.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Input describes where content should come from.
type Input struct {
	// URL, if provided, is fetched via HTTP.
	URL string

	// Path, if provided (and URL is empty), is read from disk.
	Path string

	// Stdin is used when URL and Path are empty. If nil, stdin reads as empty.
	Stdin io.Reader
}

// Request carries an optional POST body; zero value means GET.
type Request struct {
	Method string
	Body   string
}

// Loader fetches or reads documents with a consistent timeout policy.
type Loader struct {
	client  *http.Client
	timeout time.Duration
}

// NewLoader creates a Loader. If client is nil, http.DefaultClient is used.
func NewLoader(client *http.Client, timeout time.Duration) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client:  client,
		timeout: timeout,
	}
}

// Load returns document bytes from stdin, a file, or a fetched URL. Fetched
// content is charset-decoded to UTF-8.
//
// On non-2xx HTTP responses, Load returns an error that includes the status
// code and up to 4KB of the response body for debugging.
func (l *Loader) Load(ctx context.Context, input Input) ([]byte, error) {
	switch {
	case strings.TrimSpace(input.URL) != "":
		return l.Fetch(ctx, input.URL, Request{})

	case strings.TrimSpace(input.Path) != "":
		b, err := os.ReadFile(input.Path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return b, nil

	default:
		if input.Stdin == nil {
			return nil, nil
		}
		b, err := io.ReadAll(input.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
}

// Fetch performs one HTTP request and returns the UTF-8 decoded body.
func (l *Loader) Fetch(ctx context.Context, url string, r Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "bookrules/1.0")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s: %w", strings.ToLower(method), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return Decode(raw, resp.Header.Get("Content-Type"))
}
