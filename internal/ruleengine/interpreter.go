// Package ruleengine executes extraction rules against document content.
//
// An Interpreter owns one script engine and the variable context shared by a
// logical parse session (typically one per book source). It splits a rule
// into base selector and script tail, dispatches the base phase to the XPath
// evaluator or the script engine, and applies the tail per item.
//
// An Interpreter is not safe for concurrent use; one session, one goroutine,
// or an external mutex around Run.
package ruleengine

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"bookrules/internal/css2xpath"
	"bookrules/internal/jsengine"
	"bookrules/internal/metrics"
	"bookrules/internal/rulelang"
	"bookrules/internal/xpatheval"
)

// Interpreter runs rules for one parse session.
type Interpreter struct {
	engine *jsengine.Engine

	// Session error state. The engine tracks per-evaluation errors; these
	// fields persist across the items of one Run so a caller can detect
	// partial degradation after the fact.
	lastError string
	hasError  bool
}

// New constructs an Interpreter with a fresh script engine.
func New() *Interpreter {
	return &Interpreter{engine: jsengine.New()}
}

// Engine exposes the session's script engine so callers can install HTTP and
// log callbacks or preload variables.
func (in *Interpreter) Engine() *jsengine.Engine { return in.engine }

// SetBaseURL binds the session's baseUrl variable.
func (in *Interpreter) SetBaseURL(url string) { in.engine.SetBaseURL(url) }

// SetKeyword binds the session's search keyword variable.
func (in *Interpreter) SetKeyword(keyword string) { in.engine.SetKeyword(keyword) }

// HasError reports whether the most recent Run degraded on at least one item
// or template expression.
func (in *Interpreter) HasError() bool { return in.hasError }

// LastError returns the most recent recorded degradation message, or "".
func (in *Interpreter) LastError() string { return in.lastError }

// Run executes rule against content and returns the extracted strings in
// document order.
//
// The base phase is all-or-nothing: a bad selector, compile failure, or
// backend error returns an error and no results. The tail phase degrades per
// item: a script failure substitutes the unprocessed item, records the error
// on the session (HasError/LastError), and continues.
//
// stop may be nil. When raised it halts the tail loop between items;
// already-collected outputs are still returned successfully. The base phase
// passes it through to the XPath evaluator.
func (in *Interpreter) Run(content []byte, rule string, stop *atomic.Bool) ([]string, error) {
	in.clearError()
	start := time.Now()

	base, tail, isTemplate := rulelang.Split(rule)

	if isTemplate {
		out := in.ExpandTemplate(tail)
		observeRule("template", start)
		return []string{out}, nil
	}

	results, kind, err := in.basePhase(content, base, stop)
	if err != nil {
		metrics.IncCounter("rules_total", 1, metrics.Labels{"kind": kind, "status": "error"})
		return nil, err
	}

	if tail != "" {
		results = in.applyTail(results, tail, stop)
	}

	observeRule(kind, start)
	return results, nil
}

// basePhase resolves the base selector into an ordered result list. It also
// returns the classified kind for instrumentation.
func (in *Interpreter) basePhase(content []byte, base string, stop *atomic.Bool) ([]string, string, error) {
	if base == "" {
		return []string{string(content)}, "raw", nil
	}

	kind, body := rulelang.Classify(base)

	switch kind {
	case rulelang.KindRaw:
		// A literal rule selects nothing; the content itself is the result.
		return []string{string(content)}, kind.String(), nil

	case rulelang.KindCSS:
		expr, err := css2xpath.Compile(body)
		if err != nil {
			return nil, kind.String(), fmt.Errorf("compile css selector %q: %w", body, err)
		}
		return in.evalXPath(content, expr, stop, kind)

	case rulelang.KindJsoup:
		expr, err := css2xpath.FromJsoup(body)
		if err != nil {
			return nil, kind.String(), fmt.Errorf("compile selector %q: %w", body, err)
		}
		return in.evalXPath(content, expr, stop, kind)

	case rulelang.KindXPath:
		return in.evalXPath(content, body, stop, kind)

	case rulelang.KindJSONPath:
		results, err := in.jsonPath(content, body)
		return results, kind.String(), err

	default:
		return nil, kind.String(), fmt.Errorf("unsupported rule kind %q", kind)
	}
}

func (in *Interpreter) evalXPath(content []byte, expr string, stop *atomic.Bool, kind rulelang.Kind) ([]string, string, error) {
	results, err := xpatheval.Evaluate(content, expr, stop)
	if err != nil {
		return nil, kind.String(), err
	}
	return results, kind.String(), nil
}

// jsonPath executes a dotted-path projection by rewriting it into script
// code over the current content. The projection yields exactly one string.
// A top-level JSON array is unwrapped to its first element so dotted paths
// work against list responses.
func (in *Interpreter) jsonPath(content []byte, body string) ([]string, error) {
	path := strings.TrimPrefix(body, "$.")
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return nil, fmt.Errorf("empty json path in rule %q", body)
	}

	in.engine.SetResult(string(content))
	out, err := in.engine.Eval(
		"var data = JSON.parse(result); if (Array.isArray(data)) { data = data[0]; } data." + path)
	if err != nil {
		return nil, fmt.Errorf("json path %q: %w", body, err)
	}
	return []string{out}, nil
}

// applyTail evaluates the script tail once per item, rebinding result before
// each evaluation. A failed item passes through unchanged.
func (in *Interpreter) applyTail(items []string, tail string, stop *atomic.Bool) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if stop != nil && stop.Load() {
			break
		}

		in.engine.SetResult(item)
		v, err := in.engine.Eval(tail)
		if err != nil {
			metrics.IncCounter("script_errors_total", 1, nil)
			in.setError(in.engine.LastError())
			out = append(out, item)
			continue
		}
		out = append(out, v)
	}
	return out
}

// ExpandTemplate replaces each {{expr}} span with the script engine's
// evaluation of expr, left to right, no nesting. An unterminated trailing
// "{{" is copied through verbatim. A failed expression contributes nothing
// to the output and is recorded on the session.
//
// Expressions share the engine's persistent global scope, so state written
// by one span (java.put, assignments) is visible to later spans.
func (in *Interpreter) ExpandTemplate(template string) string {
	var b strings.Builder
	rest := template

	for {
		i := strings.Index(rest, "{{")
		if i < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:i])

		j := strings.Index(rest[i+2:], "}}")
		if j < 0 {
			b.WriteString(rest[i:])
			break
		}

		expr := rest[i+2 : i+2+j]
		v, err := in.engine.Eval(expr)
		if err != nil {
			metrics.IncCounter("script_errors_total", 1, nil)
			in.setError(in.engine.LastError())
		} else {
			b.WriteString(v)
		}
		rest = rest[i+2+j+2:]
	}
	return b.String()
}

// ExpandSearchURL binds the keyword and expands template spans in a search
// URL rule.
func (in *Interpreter) ExpandSearchURL(urlRule, keyword string) string {
	in.SetKeyword(keyword)
	return in.ExpandTemplate(urlRule)
}

func (in *Interpreter) clearError() {
	in.lastError = ""
	in.hasError = false
}

func (in *Interpreter) setError(msg string) {
	in.lastError = msg
	in.hasError = true
}

func observeRule(kind string, start time.Time) {
	metrics.IncCounter("rules_total", 1, metrics.Labels{"kind": kind, "status": "ok"})
	metrics.ObserveHistogram("rule_duration_seconds", time.Since(start).Seconds(), metrics.Labels{"kind": kind})
}
