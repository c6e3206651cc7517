package jsengine

import (
	"errors"
	"testing"
)

func TestBridge_HashingAndEncoding(t *testing.T) {
	t.Parallel()

	e := New()

	tests := []struct {
		code string
		want string
	}{
		{`java.md5Encode("hello")`, "5d41402abc4b2a76b9719d911017c592"},
		{`java.md5Encode16("hello")`, "bc4b2a76b9719d91"},
		{`java.base64Encode("hello")`, "aGVsbG8="},
		{`java.base64Decode("aGVsbG8=")`, "hello"},
		{`java.base64DecodeToString("aGVsbG8=")`, "hello"},
		{`java.base64Decode("%%%")`, ""},
		{`java.htmlFormat("a &amp; b &lt;c&gt;")`, "a & b <c>"},
		{`java.encodeURI("a b&c")`, "a+b%26c"},
		{`java.decodeURI("a+b%26c")`, "a b&c"},
		{`java.decodeURI("%zz")`, "%zz"},
	}

	for _, tt := range tests {
		got, err := e.Eval(tt.code)
		if err != nil {
			t.Fatalf("Eval(%q): %v", tt.code, err)
		}
		if got != tt.want {
			t.Fatalf("Eval(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestBridge_EncodeURI_GBK(t *testing.T) {
	t.Parallel()

	e := New()

	// "剑" is 0xBD 0xA3 in GBK.
	got, err := e.Eval(`java.encodeURI("剑", "gbk")`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != "%BD%A3" {
		t.Fatalf("got %q, want %q", got, "%BD%A3")
	}
}

func TestBridge_TimeFormat(t *testing.T) {
	t.Parallel()

	e := New()

	sec, err := e.Eval(`java.timeFormat(1700000000)`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	ms, err := e.Eval(`java.timeFormat(1700000000000)`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if sec != ms {
		t.Fatalf("seconds and milliseconds render differently: %q vs %q", sec, ms)
	}
	if len(sec) != len("2006-01-02 15:04:05") {
		t.Fatalf("unexpected layout: %q", sec)
	}
}

func TestBridge_PutGet(t *testing.T) {
	t.Parallel()

	e := New()

	if _, err := e.Eval(`java.put("token", "abc123")`); err != nil {
		t.Fatalf("Eval: %v", err)
	}

	// Readable through the bridge, the variable store, and the global scope.
	got, err := e.Eval(`java.get("token")`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != "abc123" {
		t.Fatalf("java.get = %q", got)
	}
	if e.Var("token") != "abc123" {
		t.Fatalf("Var = %q", e.Var("token"))
	}
	got, err = e.Eval(`token`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != "abc123" {
		t.Fatalf("global token = %q", got)
	}
}

func TestBridge_GetMissingKey(t *testing.T) {
	t.Parallel()

	e := New()
	got, err := e.Eval(`java.get("missing")`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != "" {
		t.Fatalf("got %q, want \"\"", got)
	}
}

func TestBridge_AjaxPlaceholderWithoutCallback(t *testing.T) {
	t.Parallel()

	e := New()

	got, err := e.Eval(`java.ajax("https://example.com/api")`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != `{"code":0,"msg":"mock response"}` {
		t.Fatalf("ajax placeholder = %q", got)
	}

	got, err = e.Eval(`java.post("https://example.com/api", "a=1", {})`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != `{"code":0,"msg":"mock post response"}` {
		t.Fatalf("post placeholder = %q", got)
	}
}

func TestBridge_AjaxUsesCallback(t *testing.T) {
	t.Parallel()

	e := New()

	var gotURL, gotMethod string
	e.SetHTTPCallback(func(url, method, body string, headers map[string]string) (string, error) {
		gotURL, gotMethod = url, method
		return `{"ok":true}`, nil
	})

	got, err := e.Eval(`java.ajax("https://example.com/list")`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != `{"ok":true}` {
		t.Fatalf("got %q", got)
	}
	if gotURL != "https://example.com/list" || gotMethod != "GET" {
		t.Fatalf("callback saw url=%q method=%q", gotURL, gotMethod)
	}
}

func TestBridge_PostPassesBodyAndHeaders(t *testing.T) {
	t.Parallel()

	e := New()

	var gotBody string
	var gotHeaders map[string]string
	e.SetHTTPCallback(func(url, method, body string, headers map[string]string) (string, error) {
		gotBody, gotHeaders = body, headers
		return "ok", nil
	})

	code := `java.post("https://example.com", "key=剑来", {"Content-Type": "application/x-www-form-urlencoded"})`
	if _, err := e.Eval(code); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if gotBody != "key=剑来" {
		t.Fatalf("body = %q", gotBody)
	}
	if gotHeaders["Content-Type"] != "application/x-www-form-urlencoded" {
		t.Fatalf("headers = %v", gotHeaders)
	}
}

func TestBridge_HTTPFailureDegrades(t *testing.T) {
	t.Parallel()

	e := New()
	e.SetHTTPCallback(func(url, method, body string, headers map[string]string) (string, error) {
		return "", errors.New("connection refused")
	})

	got, err := e.Eval(`java.ajax("https://example.com")`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != "" {
		t.Fatalf("got %q, want \"\"", got)
	}
	if !e.HasError() {
		t.Fatal("HasError() = false after failed ajax")
	}
}

func TestBridge_LogCallback(t *testing.T) {
	t.Parallel()

	e := New()

	var msgs []string
	e.SetLogCallback(func(msg string) { msgs = append(msgs, msg) })

	if _, err := e.Eval(`java.log("checking source")`); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(msgs) != 1 || msgs[0] != "checking source" {
		t.Fatalf("msgs = %v", msgs)
	}
}
