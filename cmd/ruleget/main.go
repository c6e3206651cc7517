// Command ruleget runs one extraction rule against a document and prints the
// results.
//
// Usage (stdin):
//
//	cat page.html | ruleget -rule "//dd/a/@href"
//
// Usage (fetch URL):
//
//	ruleget -url "https://example.com/book/1" -rule "@css:#list dd a@text"
//
// Template expansion (no document needed):
//
//	ruleget -template "https://example.com/s?q={{java.encodeURI(key)}}" -key "剑来"
//
// Debug (print CSS selector matches instead of running a rule):
//
//	cat page.html | ruleget -selector "div.book" -text
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"bookrules/internal/fetch"
	"bookrules/internal/htmldebug"
	"bookrules/internal/ruleengine"
)

func main() {
	os.Exit(run(
		context.Background(),
		os.Args[1:],
		os.Stdin,
		os.Stdout,
		os.Stderr,
		http.DefaultClient,
	))
}

// run is split out from main so the command can be unit tested without
// spawning an OS process.
//
// Exit codes:
//   - 0 success (including per-item degradation, which is warned on stderr)
//   - 2 usage/config errors
//   - 1 operational errors
func run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	httpClient *http.Client,
) int {
	fs := flag.NewFlagSet("ruleget", flag.ContinueOnError)
	fs.SetOutput(stderr)

	rule := fs.String("rule", "", "Extraction rule to run against the document")
	urlFlag := fs.String("url", "", "Optional: fetch the document from URL instead of stdin")
	fileFlag := fs.String("file", "", "Optional: read the document from a file instead of stdin")
	baseURL := fs.String("base-url", "", "Value bound to the baseUrl script variable")
	key := fs.String("key", "", "Value bound to the key script variable")
	template := fs.String("template", "", "Expand a template string instead of running a rule")
	debugSelector := fs.String("selector", "", "Debug: CSS selector to print matches for")
	onlyText := fs.Bool("text", false, "Debug: print text for -selector matches instead of HTML")
	asJSON := fs.Bool("json", false, "Print results as a JSON array instead of one per line")
	timeout := fs.Duration("timeout", 20*time.Second, "Timeout for -url fetch")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	loader := fetch.NewLoader(httpClient, *timeout)

	// Debug selector mode needs a document but no rule.
	if *debugSelector != "" {
		content, err := loader.Load(ctx, fetch.Input{URL: *urlFlag, Path: *fileFlag, Stdin: stdin})
		if err != nil {
			fmt.Fprintf(stderr, "load document: %v\n", err)
			return 1
		}
		if err := htmldebug.PrintSelector(stdout, content, *debugSelector, *onlyText); err != nil {
			fmt.Fprintf(stderr, "debug selector: %v\n", err)
			return 1
		}
		return 0
	}

	interp := ruleengine.New()
	interp.Engine().SetHTTPCallback(func(url, method, body string, headers map[string]string) (string, error) {
		b, err := loader.Fetch(ctx, url, fetch.Request{Method: method, Body: body})
		return string(b), err
	})
	if *baseURL != "" {
		interp.SetBaseURL(*baseURL)
	}
	if *key != "" {
		interp.SetKeyword(*key)
	}

	// Template mode expands a string; no document is read.
	if *template != "" {
		fmt.Fprintln(stdout, interp.ExpandTemplate(*template))
		if interp.HasError() {
			fmt.Fprintf(stderr, "warning: template expression failed: %s\n", interp.LastError())
		}
		return 0
	}

	if *rule == "" {
		fmt.Fprintf(stderr, "missing -rule\n")
		return 2
	}

	content, err := loader.Load(ctx, fetch.Input{URL: *urlFlag, Path: *fileFlag, Stdin: stdin})
	if err != nil {
		fmt.Fprintf(stderr, "load document: %v\n", err)
		return 1
	}

	results, err := interp.Run(content, *rule, nil)
	if err != nil {
		fmt.Fprintf(stderr, "run rule: %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(stderr, "encode json: %v\n", err)
			return 1
		}
	} else {
		for _, r := range results {
			fmt.Fprintln(stdout, r)
		}
	}

	if interp.HasError() {
		fmt.Fprintf(stderr, "warning: some items were not post-processed: %s\n", interp.LastError())
	}
	return 0
}
