// Package metrics is a tiny process-wide metrics facade.
//
// Core packages record counters and histograms through the package-level
// functions; commands decide at startup which Backend (if any) receives them.
// The default backend drops everything, so library code can instrument
// unconditionally without configuration.
package metrics

import "sync/atomic"

// Labels attach dimensions to a metric sample (e.g. kind, status).
type Labels map[string]string

// Backend receives metric samples. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer samples and submit them in
// batches. Flush is called by commands before exit.
type Flusher interface {
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

// holder wraps the backend so atomic.Value always stores one concrete type.
type holder struct{ b Backend }

var backend atomic.Value // of holder

func init() {
	backend.Store(holder{nopBackend{}})
}

// SetBackend installs the process-wide backend. Passing nil restores the
// no-op default.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	backend.Store(holder{b})
}

func current() Backend {
	return backend.Load().(holder).b
}

// IncCounter adds delta to a named counter on the current backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records a sample for a named histogram on the current
// backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush asks the current backend to submit buffered samples, if it buffers.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}
