// Package jsengine wraps a goja JavaScript runtime for rule scripts.
//
// One Engine backs one logical parse session. It keeps a persistent global
// namespace across Eval calls, maintains a string variable store that is
// projected into that namespace, and exposes the fixed "java" bridge object
// rule scripts call for hashing, encoding, key-value state, and HTTP.
//
// The engine is not safe for concurrent use; callers own serialization, the
// same way they own the session's execution context.
package jsengine

import (
	"fmt"

	"github.com/dop251/goja"
)

// HTTPCallback performs a network request on behalf of java.ajax/java.post.
// Implementations are expected to be synchronous.
type HTTPCallback func(url, method, body string, headers map[string]string) (string, error)

// LogCallback receives java.log messages.
type LogCallback func(msg string)

// Engine is a rule-script execution environment.
type Engine struct {
	vm   *goja.Runtime
	vars map[string]string

	httpCB HTTPCallback
	logCB  LogCallback

	lastError string
	hasError  bool
}

// New constructs an Engine with the java bridge registered. The bridge is
// bound to the engine through ordinary closure capture, so every Engine is
// fully self-contained.
func New() *Engine {
	e := &Engine{
		vm:   goja.New(),
		vars: make(map[string]string),
	}
	e.registerBridge()
	return e
}

// SetHTTPCallback installs the network callback used by java.ajax/java.post.
// Without one, those calls return stable placeholder payloads (see bridge.go).
func (e *Engine) SetHTTPCallback(cb HTTPCallback) { e.httpCB = cb }

// SetLogCallback installs the sink for java.log messages. Without one,
// messages go to the process log.
func (e *Engine) SetLogCallback(cb LogCallback) { e.logCB = cb }

// Eval runs code in the persistent global scope and returns the result
// rendered as a string (undefined and null render as "").
//
// Errors:
//   - A script exception is returned as an error, and also recorded on the
//     engine (HasError/LastError) so pipeline callers can degrade per item
//     without re-threading the error value.
func (e *Engine) Eval(code string) (string, error) {
	e.ClearError()

	v, err := e.vm.RunString(code)
	if err != nil {
		e.setError(fmt.Sprintf("js error: %v", err))
		return "", err
	}
	return valueToString(v), nil
}

// SetGlobal stores a session variable and mirrors it into the script global
// scope. The variable store is the source of truth; the JS namespace is a
// projection of it, refreshed on every write.
func (e *Engine) SetGlobal(name, value string) {
	e.vars[name] = value
	_ = e.vm.Set(name, value)
}

// Var returns a session variable, or "" when unset.
func (e *Engine) Var(name string) string { return e.vars[name] }

// SetResult binds the "result" variable scripts post-process.
func (e *Engine) SetResult(value string) { e.SetGlobal("result", value) }

// SetBaseURL binds the "baseUrl" variable.
func (e *Engine) SetBaseURL(url string) { e.SetGlobal("baseUrl", url) }

// SetKeyword binds the "key" variable used by search URL templates.
func (e *Engine) SetKeyword(keyword string) { e.SetGlobal("key", keyword) }

// HasError reports whether the most recent Eval failed.
func (e *Engine) HasError() bool { return e.hasError }

// LastError returns the most recent Eval failure message, or "".
func (e *Engine) LastError() string { return e.lastError }

// ClearError resets the error state.
func (e *Engine) ClearError() {
	e.lastError = ""
	e.hasError = false
}

func (e *Engine) setError(msg string) {
	e.lastError = msg
	e.hasError = true
}

// valueToString renders a script value the way rule authors expect:
// undefined/null become "", everything else uses JS string conversion.
func valueToString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
