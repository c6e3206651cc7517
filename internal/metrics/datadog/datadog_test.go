package datadog

import (
	"context"
	"net/http"
	"os"
	"reflect"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"bookrules/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

func newTestBackend(t *testing.T, fs *fakeSubmitter) *Backend {
	t.Helper()

	b, err := NewBackend(context.Background(), Options{
		JobName:    "job1",
		FlushEvery: 24 * time.Hour,
		submitter:  fs,
		now:        func() time.Time { return time.Unix(1000, 0) },
		newTicker:  func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// TestResolveEnvTag verifies environment-tag precedence and defaults:
// ENV wins over DD_ENV, whitespace is ignored, otherwise env:unknown.
func TestResolveEnvTag(t *testing.T) {
	oldENV := os.Getenv("ENV")
	oldDDENV := os.Getenv("DD_ENV")
	t.Cleanup(func() {
		_ = os.Setenv("ENV", oldENV)
		_ = os.Setenv("DD_ENV", oldDDENV)
	})

	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_used_when_ENV_empty", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace_ignored", env: "   ", dd: "\n\t", want: "env:unknown"},
		{name: "default_unknown", env: "", dd: "", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_ = os.Setenv("ENV", tc.env)
			_ = os.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

// TestKindStatusKeyRoundTrip verifies key encoding/decoding.
func TestKindStatusKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		status string
	}{
		{name: "normal", kind: "xpath", status: "ok"},
		{name: "empty_kind", kind: "", status: "ok"},
		{name: "empty_status", kind: "css", status: ""},
		{name: "both_empty", kind: "", status: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			k := kindStatusKey(tc.kind, tc.status)
			kind, status := splitKindStatusKey(k)
			if kind != tc.kind || status != tc.status {
				t.Fatalf("roundtrip got=(%q,%q), want=(%q,%q)", kind, status, tc.kind, tc.status)
			}
		})
	}

	t.Run("split_without_separator_defaults_unknown_status", func(t *testing.T) {
		kind, status := splitKindStatusKey("no-sep")
		if kind != "no-sep" || status != "unknown" {
			t.Fatalf("splitKindStatusKey()=(%q,%q)", kind, status)
		}
	})
}

// TestWithTags verifies tag concatenation and immutability.
func TestWithTags(t *testing.T) {
	base := []string{"env:test", "job:bookrules"}
	got := withTags(base, "kind:xpath", "status:ok")
	want := []string{"env:test", "job:bookrules", "kind:xpath", "status:ok"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("withTags()=%v, want %v", got, want)
	}
	got[0] = "env:mutated"
	if base[0] == "env:mutated" {
		t.Fatalf("withTags output aliases base slice")
	}
}

// TestPercentileNearestRank verifies percentile behavior.
func TestPercentileNearestRank(t *testing.T) {
	tests := []struct {
		name string
		s    []float64
		p    float64
		want float64
	}{
		{name: "empty", s: nil, p: 0.50, want: 0},
		{name: "single", s: []float64{7}, p: 0.95, want: 7},
		{name: "p_le_0", s: []float64{1, 2, 3}, p: -1, want: 1},
		{name: "p_ge_1", s: []float64{1, 2, 3}, p: 2, want: 3},
		{name: "median", s: []float64{1, 2, 3, 4, 5}, p: 0.50, want: 3},
		{name: "p90_small_n", s: []float64{1, 2, 3, 4, 5}, p: 0.90, want: 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := percentileNearestRank(tc.s, tc.p); got != tc.want {
				t.Fatalf("percentileNearestRank(%v,%v)=%v, want %v", tc.s, tc.p, got, tc.want)
			}
		})
	}
}

// TestAddPercentiles verifies the fixed gauge set and that input samples are
// not mutated.
func TestAddPercentiles(t *testing.T) {
	orig := []float64{5, 1, 3, 2, 4}
	in := append([]float64(nil), orig...)

	var series []datadogV2.MetricSeries
	addPercentiles(&series, []string{"env:test"}, "bookrules.rules.duration_seconds", in, 999)

	if len(series) != 6 {
		t.Fatalf("series.len=%d, want 6", len(series))
	}
	if !reflect.DeepEqual(in, orig) {
		t.Fatalf("samples mutated: got %v, want %v", in, orig)
	}

	var foundSamples bool
	for _, s := range series {
		if s.Metric == "bookrules.rules.duration_seconds.samples" {
			foundSamples = true
			if s.Points[0].Value == nil || *s.Points[0].Value != 5 {
				t.Fatalf("samples gauge value=%v, want 5", s.Points[0].Value)
			}
		}
	}
	if !foundSamples {
		t.Fatalf("did not find samples gauge series")
	}
}

// TestNewBackend_Defaults verifies defaults without real HTTP.
func TestNewBackend_Defaults(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		Tags:      []string{"service:reader"},
		submitter: fs,
		now:       func() time.Time { return time.Unix(123, 0) },
		newTicker: func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	defer func() { _ = b.Close() }()

	if !contains(b.baseTags, "job:bookrules") {
		t.Fatalf("baseTags missing job:bookrules: %v", b.baseTags)
	}
	if !contains(b.baseTags, "service:reader") {
		t.Fatalf("baseTags missing service:reader: %v", b.baseTags)
	}
	if b.flushEvery != 60*time.Second {
		t.Fatalf("flushEvery=%s, want 60s", b.flushEvery)
	}
}

// TestFlush_SubmitsAndResets verifies Flush submits buffered metrics and
// resets buffers, and pins the series-name contract.
func TestFlush_SubmitsAndResets(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	b.IncCounter("rules_total", 2, metrics.Labels{"kind": "xpath", "status": "ok"})
	b.ObserveHistogram("rule_duration_seconds", 0.5, metrics.Labels{"kind": "xpath"})
	b.IncCounter("script_errors_total", 1, nil)
	b.IncCounter("sources_total", 3, metrics.Labels{"status": "ok"})
	b.IncCounter("bridge_http_requests_total", 7, metrics.Labels{"method": "GET"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v", err)
	}
	if fs.count() != 1 {
		t.Fatalf("submit calls=%d, want 1", fs.count())
	}

	if len(b.ruleCounts) != 0 || len(b.ruleDur) != 0 || b.scriptErrors != 0 ||
		len(b.sourceCounts) != 0 || len(b.bridgeCounts) != 0 {
		t.Fatalf("buffers not reset after Flush")
	}

	payload, ok := fs.last()
	if !ok {
		t.Fatalf("missing payload")
	}

	var metricNames []string
	for _, s := range payload.Series {
		metricNames = append(metricNames, s.Metric)
	}
	sort.Strings(metricNames)

	wantContains := []string{
		"bookrules.rules.total",
		"bookrules.rules.duration_seconds.p50",
		"bookrules.rules.duration_seconds.samples",
		"bookrules.script_errors.total",
		"bookrules.sources.total",
		"bookrules.bridge.http_requests.total",
	}
	for _, w := range wantContains {
		if !contains(metricNames, w) {
			t.Fatalf("payload missing metric %q; got=%v", w, metricNames)
		}
	}
}

// TestFlush_NoDataDoesNotSubmit verifies the empty path.
func TestFlush_NoDataDoesNotSubmit(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v", err)
	}
	if fs.count() != 0 {
		t.Fatalf("unexpected submission count=%d, want 0", fs.count())
	}
}

// TestLoopAndClose verifies the background loop flushes periodically and
// Close performs a final flush.
func TestLoopAndClose(t *testing.T) {
	fs := &fakeSubmitter{}

	b, err := NewBackend(context.Background(), Options{
		JobName:    "job1",
		FlushEvery: 5 * time.Millisecond,
		submitter:  fs,
		now:        func() time.Time { return time.Unix(2000, 0) },
	})
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}

	b.IncCounter("script_errors_total", 1, nil)

	deadline := time.Now().Add(250 * time.Millisecond)
	for time.Now().Before(deadline) {
		if fs.count() >= 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if fs.count() < 1 {
		_ = b.Close()
		t.Fatalf("expected at least one background Flush submission; got %d", fs.count())
	}

	b.IncCounter("script_errors_total", 1, nil)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() err=%v", err)
	}
	if fs.count() < 2 {
		t.Fatalf("expected at least 2 submissions after Close; got %d", fs.count())
	}
}

// TestBackend_ConcurrentAccess verifies thread-safety of buffering.
func TestBackend_ConcurrentAccess(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	workers := runtime.GOMAXPROCS(0) * 4
	iters := 2000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				b.IncCounter("rules_total", 1, metrics.Labels{"kind": "css", "status": "ok"})
				b.IncCounter("sources_total", 1, metrics.Labels{"status": "ok"})
				b.ObserveHistogram("rule_duration_seconds", 0.01, metrics.Labels{"kind": "css"})
			}
		}()
	}
	wg.Wait()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v", err)
	}
	if fs.count() != 1 {
		t.Fatalf("submit calls=%d, want 1", fs.count())
	}
}

// TestIncCounterAndObserveHistogram_EdgeCases verifies ignored paths and
// label defaults.
func TestIncCounterAndObserveHistogram_EdgeCases(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	// Non-positive counter, unknown metric, negative histogram: all ignored.
	b.IncCounter("rules_total", 0, nil)
	b.IncCounter("unknown_total", 1, metrics.Labels{"x": "y"})
	b.ObserveHistogram("rule_duration_seconds", -1, metrics.Labels{"kind": "xpath"})
	// Missing labels default to "unknown".
	b.IncCounter("sources_total", 1, metrics.Labels{})
	b.IncCounter("bridge_http_requests_total", 1, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v", err)
	}

	payload, ok := fs.last()
	if !ok {
		t.Fatalf("missing payload")
	}

	var sawSources, sawBridge bool
	for _, s := range payload.Series {
		if s.Metric == "bookrules.sources.total" && contains(s.Tags, "status:unknown") {
			sawSources = true
		}
		if s.Metric == "bookrules.bridge.http_requests.total" && contains(s.Tags, "method:unknown") {
			sawBridge = true
		}
		if s.Metric == "bookrules.rules.duration_seconds.p50" {
			t.Fatalf("negative histogram sample was buffered")
		}
	}
	if !sawSources {
		t.Fatalf("expected bookrules.sources.total for status:unknown")
	}
	if !sawBridge {
		t.Fatalf("expected bookrules.bridge.http_requests.total for method:unknown")
	}
}

func contains[T comparable](xs []T, v T) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty_returns_nil", in: "", want: nil},
		{
			name: "trims_and_skips_empty_segments",
			in:   " env:prod , ,service:reader,  ,team:data ",
			want: []string{"env:prod", "service:reader", "team:data"},
		},
		{name: "single_tag", in: "service:reader", want: []string{"service:reader"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ParseTagsCSV(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseTagsCSV(%q)=%v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
