package ruleengine

import (
	"strings"
	"sync/atomic"
	"testing"
)

const chapterHTML = `<html><body>
<div id="list">
<dd><a href="/chapter/1">第一章</a></dd>
<dd><a href="/chapter/2">第二章</a></dd>
</div>
</body></html>`

func mustRun(t *testing.T, in *Interpreter, content, rule string) []string {
	t.Helper()
	got, err := in.Run([]byte(content), rule, nil)
	if err != nil {
		t.Fatalf("Run(%q): %v", rule, err)
	}
	return got
}

func TestRun_XPathRule(t *testing.T) {
	t.Parallel()

	in := New()
	got := mustRun(t, in, chapterHTML, "//dd/a/@href")
	if len(got) != 2 || got[0] != "/chapter/1" || got[1] != "/chapter/2" {
		t.Fatalf("got %v", got)
	}
	if in.HasError() {
		t.Fatal("HasError() = true for clean run")
	}
}

func TestRun_XPathPrefixRule(t *testing.T) {
	t.Parallel()

	in := New()
	got := mustRun(t, in, chapterHTML, "@XPath://dd/a/text()")
	if len(got) != 2 || got[0] != "第一章" {
		t.Fatalf("got %v", got)
	}
}

func TestRun_CSSRule(t *testing.T) {
	t.Parallel()

	in := New()
	got := mustRun(t, in, chapterHTML, "@css:#list dd a@href")
	if len(got) != 2 || got[0] != "/chapter/1" {
		t.Fatalf("got %v", got)
	}
}

func TestRun_JsoupRule(t *testing.T) {
	t.Parallel()

	in := New()
	got := mustRun(t, in, chapterHTML, "id.list@tag.a@text")
	if len(got) != 2 || got[1] != "第二章" {
		t.Fatalf("got %v", got)
	}
}

// TestRun_NoMarkersNoTransform verifies a marker-free rule returns the raw
// backend output untouched.
func TestRun_NoMarkersNoTransform(t *testing.T) {
	t.Parallel()

	in := New()
	direct := mustRun(t, in, chapterHTML, "//dd/a/text()")
	if len(direct) != 2 || direct[0] != "第一章" || direct[1] != "第二章" {
		t.Fatalf("got %v", direct)
	}
}

func TestRun_RawLiteralRule(t *testing.T) {
	t.Parallel()

	in := New()
	got := mustRun(t, in, "page content", "somestring")
	if len(got) != 1 || got[0] != "page content" {
		t.Fatalf("got %v", got)
	}
}

func TestRun_EmptyBaseUsesContent(t *testing.T) {
	t.Parallel()

	in := New()
	got := mustRun(t, in, "  raw  ", "@js:result.trim()")
	if len(got) != 1 || got[0] != "raw" {
		t.Fatalf("got %v", got)
	}
}

// TestRun_JSONPathEndToEnd pins the json-path-as-script rewrite with a tail
// script over a list response.
func TestRun_JSONPathEndToEnd(t *testing.T) {
	t.Parallel()

	in := New()
	got := mustRun(t, in, `[{"name":"  T  ","author":"A"}]`, "$.name@js:result.trim()")
	if len(got) != 1 || got[0] != "T" {
		t.Fatalf("got %v", got)
	}
}

func TestRun_JSONPathObjectAndPrefix(t *testing.T) {
	t.Parallel()

	in := New()
	got := mustRun(t, in, `{"book":{"name":"斗破苍穹"}}`, "@json:book.name")
	if len(got) != 1 || got[0] != "斗破苍穹" {
		t.Fatalf("got %v", got)
	}
}

func TestRun_BadSelectorIsFatal(t *testing.T) {
	t.Parallel()

	in := New()
	if _, err := in.Run([]byte(chapterHTML), "//dd[", nil); err == nil {
		t.Fatal("want error for malformed xpath")
	}
	if _, err := in.Run([]byte(chapterHTML), "@css:   ", nil); err == nil {
		t.Fatal("want error for empty css selector")
	}
}

// TestRun_TailDegradesPerItem verifies one bad item does not abort the batch:
// the unprocessed item is substituted and the session reports degradation.
func TestRun_TailDegradesPerItem(t *testing.T) {
	t.Parallel()

	in := New()
	content := `<html><body><ul><li>A</li><li>B</li></ul></body></html>`
	rule := `//li/text()@js:if (result == "B") { throw "bad item"; } result + "-ok"`

	got, err := in.Run([]byte(content), rule, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 2 || got[0] != "A-ok" || got[1] != "B" {
		t.Fatalf("got %v", got)
	}
	if !in.HasError() {
		t.Fatal("HasError() = false after degraded item")
	}
	if in.LastError() == "" {
		t.Fatal("LastError() empty after degraded item")
	}
}

func TestRun_ErrorStateResetsPerRun(t *testing.T) {
	t.Parallel()

	in := New()
	_, err := in.Run([]byte("x"), `@js:throw "boom"`, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !in.HasError() {
		t.Fatal("HasError() = false after throwing tail")
	}

	mustRun(t, in, "x", "@js:result")
	if in.HasError() {
		t.Fatal("HasError() survived into next Run")
	}
}

func TestRun_StopHaltsTailLoop(t *testing.T) {
	t.Parallel()

	var stop atomic.Bool
	stop.Store(true)

	in := New()
	got, err := in.Run([]byte(`<ul><li>A</li><li>B</li></ul>`), "//li/text()@js:result", &stop)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Raised before the first item: collected outputs (none) still returned
	// successfully.
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestRun_JsTagRule(t *testing.T) {
	t.Parallel()

	in := New()
	got := mustRun(t, in, "  hi  ", "<js>result.trim()</js>")
	if len(got) != 1 || got[0] != "hi" {
		t.Fatalf("got %v", got)
	}
}

func TestRun_TemplateRule(t *testing.T) {
	t.Parallel()

	in := New()
	in.SetBaseURL("https://example.com")
	got := mustRun(t, in, "", "{{baseUrl}}/search?page={{1+1}}")
	if len(got) != 1 || got[0] != "https://example.com/search?page=2" {
		t.Fatalf("got %v", got)
	}
}

func TestExpandTemplate(t *testing.T) {
	t.Parallel()

	in := New()

	tests := []struct {
		template string
		want     string
	}{
		{"no markers here", "no markers here"},
		{"a{{1+1}}b", "a2b"},
		{"a{{x", "a{{x"},
		{"{{'x'}}{{'y'}}", "xy"},
	}
	for _, tt := range tests {
		if got := in.ExpandTemplate(tt.template); got != tt.want {
			t.Fatalf("ExpandTemplate(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

// TestExpandTemplate_SharedState verifies state written by one span is
// visible to later spans in the same template.
func TestExpandTemplate_SharedState(t *testing.T) {
	t.Parallel()

	in := New()
	got := in.ExpandTemplate(`{{java.put("p", "2"); ""}}page={{java.get("p")}}`)
	if got != "page=2" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandTemplate_BadExpressionContributesNothing(t *testing.T) {
	t.Parallel()

	in := New()
	got := in.ExpandTemplate("a{{nosuchfn()}}b")
	if got != "ab" {
		t.Fatalf("got %q", got)
	}
	if !in.HasError() {
		t.Fatal("HasError() = false after bad template expression")
	}
}

func TestExpandSearchURL(t *testing.T) {
	t.Parallel()

	in := New()
	got := in.ExpandSearchURL("https://example.com/search?q={{java.encodeURI(key)}}", "书名 x")
	if !strings.HasPrefix(got, "https://example.com/search?q=") {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got, " ") {
		t.Fatalf("keyword not escaped: %q", got)
	}
}
