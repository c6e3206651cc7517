package booksource

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"bookrules/internal/metrics"
)

// maxSampleErrors caps how many per-source failure messages a Result keeps.
const maxSampleErrors = 5

// Result summarizes one conversion run.
//
// Skipped covers administrative exclusions (unsupported content type,
// disabled source); Failed covers structurally broken sources. The two are
// reported separately because skips are expected in real source collections
// and failures are not.
type Result struct {
	Success int
	Failed  int
	Skipped int

	SampleErrors []string
}

func (r *Result) fail(err error) {
	r.Failed++
	if len(r.SampleErrors) < maxSampleErrors {
		r.SampleErrors = append(r.SampleErrors, err.Error())
	}
	metrics.IncCounter("sources_total", 1, metrics.Labels{"status": "failed"})
}

func (r *Result) skip() {
	r.Skipped++
	metrics.IncCounter("sources_total", 1, metrics.Labels{"status": "skipped"})
}

func (r *Result) succeed() {
	r.Success++
	metrics.IncCounter("sources_total", 1, metrics.Labels{"status": "ok"})
}

// Convert reads a book source document (a JSON array or a single object) and
// returns the usable sources plus per-source accounting. Array input is
// decoded element by element, so a large collection never has to fit in
// memory twice.
//
// Errors:
//   - Returns an error only when the document itself is unreadable. A broken
//     individual source is counted in Result, never fatal.
func Convert(r io.Reader) ([]Source, Result, error) {
	br := bufio.NewReader(r)

	first, err := peekByte(br)
	if err != nil {
		return nil, Result{}, fmt.Errorf("read source document: %w", err)
	}

	var (
		sources []Source
		res     Result
	)
	dec := json.NewDecoder(br)

	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return nil, Result{}, fmt.Errorf("read source array: %w", err)
		}
		for dec.More() {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, Result{}, fmt.Errorf("decode source element: %w", err)
			}
			convertOne(raw, &sources, &res)
		}
		return sources, res, nil
	}

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, Result{}, fmt.Errorf("decode source document: %w", err)
	}
	convertOne(raw, &sources, &res)
	return sources, res, nil
}

func convertOne(raw json.RawMessage, sources *[]Source, res *Result) {
	var src Source
	if err := json.Unmarshal(raw, &src); err != nil {
		res.fail(fmt.Errorf("decode source: %w", err))
		return
	}

	if src.BookSourceName == "" || src.BookSourceURL == "" || src.SearchURL == "" {
		res.fail(fmt.Errorf("source %q: missing bookSourceName, bookSourceUrl, or searchUrl", src.BookSourceURL))
		return
	}

	// Only text sources (type 0) are supported; audio and image sources are
	// skipped, as are disabled ones.
	if src.BookSourceType != 0 || !src.IsEnabled() {
		res.skip()
		return
	}

	if _, err := ParseSearchURL(src.SearchURL); err != nil {
		res.fail(fmt.Errorf("source %q: %w", src.BookSourceURL, err))
		return
	}

	src.Raw = append(json.RawMessage(nil), raw...)
	*sources = append(*sources, src)
	res.succeed()
}

// peekByte returns the first non-whitespace byte without consuming it.
func peekByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
