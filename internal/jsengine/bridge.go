package jsengine

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"html"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/dop251/goja"
	"golang.org/x/text/encoding/simplifiedchinese"

	"bookrules/internal/metrics"
)

// Placeholder payloads returned by java.ajax/java.post when no HTTP callback
// is configured. Rule scripts probe sources offline against these, so the
// values are a stable contract, not debug output.
const (
	mockAjaxResponse = `{"code":0,"msg":"mock response"}`
	mockPostResponse = `{"code":0,"msg":"mock post response"}`
)

const timeFormatLayout = "2006-01-02 15:04:05"

// registerBridge installs the "java" object rule scripts call. Every method
// closes over the engine; there is no global registry and no context pointer.
func (e *Engine) registerBridge() {
	java := e.vm.NewObject()

	_ = java.Set("log", e.jsLog)
	_ = java.Set("ajax", e.jsAjax)
	_ = java.Set("post", e.jsPost)
	_ = java.Set("get", e.jsGet)
	_ = java.Set("put", e.jsPut)
	_ = java.Set("md5Encode", md5Encode)
	_ = java.Set("md5Encode16", md5Encode16)
	_ = java.Set("base64Encode", base64Encode)
	_ = java.Set("base64Decode", base64Decode)
	// Legacy alias; older rule scripts call it.
	_ = java.Set("base64DecodeToString", base64Decode)
	_ = java.Set("encodeURI", e.jsEncodeURI)
	_ = java.Set("decodeURI", jsDecodeURI)
	_ = java.Set("htmlFormat", html.UnescapeString)
	_ = java.Set("timeFormat", jsTimeFormat)

	_ = e.vm.Set("java", java)
}

func (e *Engine) jsLog(msg string) {
	if e.logCB != nil {
		e.logCB(msg)
		return
	}
	log.Printf("[js] %s", msg)
}

// jsAjax implements java.ajax(url): a synchronous GET through the configured
// HTTP callback. On callback failure the error is recorded and "" returned;
// scripts are expected to handle empty responses.
func (e *Engine) jsAjax(call goja.FunctionCall) goja.Value {
	u := argString(call, 0)
	if u == "" {
		return e.vm.ToValue("")
	}

	if e.httpCB == nil {
		return e.vm.ToValue(mockAjaxResponse)
	}

	metrics.IncCounter("bridge_http_requests_total", 1, metrics.Labels{"method": "GET"})
	body, err := e.httpCB(u, "GET", "", nil)
	if err != nil {
		e.setError("ajax " + u + ": " + err.Error())
		return e.vm.ToValue("")
	}
	return e.vm.ToValue(body)
}

// jsPost implements java.post(url, body, headers).
func (e *Engine) jsPost(call goja.FunctionCall) goja.Value {
	u := argString(call, 0)
	if u == "" {
		return e.vm.ToValue("")
	}
	body := argString(call, 1)
	headers := argHeaders(call, 2)

	if e.httpCB == nil {
		return e.vm.ToValue(mockPostResponse)
	}

	metrics.IncCounter("bridge_http_requests_total", 1, metrics.Labels{"method": "POST"})
	resp, err := e.httpCB(u, "POST", body, headers)
	if err != nil {
		e.setError("post " + u + ": " + err.Error())
		return e.vm.ToValue("")
	}
	return e.vm.ToValue(resp)
}

// jsGet implements java.get(key) over the session variable store.
func (e *Engine) jsGet(key string) string { return e.vars[key] }

// jsPut implements java.put(key, value). Writes go through SetGlobal so the
// script namespace stays a faithful projection of the variable store.
func (e *Engine) jsPut(key, value string) {
	if key == "" {
		return
	}
	e.SetGlobal(key, value)
}

func md5Encode(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// md5Encode16 returns the middle 16 hex characters of the 32-character
// digest, the truncation convention book sources rely on.
func md5Encode16(s string) string {
	return md5Encode(s)[8:24]
}

func base64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// base64Decode returns "" for undecodable input rather than throwing into
// the script.
func base64Decode(s string) string {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	return string(b)
}

// jsEncodeURI implements java.encodeURI(s[, charset]). The optional charset
// re-encodes the string before percent-escaping; GBK matters because many
// book sites take GBK query strings.
func (e *Engine) jsEncodeURI(call goja.FunctionCall) goja.Value {
	s := argString(call, 0)

	switch strings.ToLower(argString(call, 1)) {
	case "gbk", "gb2312", "gb18030":
		if enc, err := simplifiedchinese.GBK.NewEncoder().String(s); err == nil {
			s = enc
		}
	}
	return e.vm.ToValue(url.QueryEscape(s))
}

// jsDecodeURI implements java.decodeURI(s); malformed escapes pass through
// unchanged.
func jsDecodeURI(s string) string {
	dec, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return dec
}

// jsTimeFormat implements java.timeFormat(ts): a unix timestamp in seconds or
// milliseconds rendered as local "YYYY-MM-DD HH:MM:SS".
func jsTimeFormat(ts int64) string {
	if ts > 9999999999 {
		ts /= 1000
	}
	return time.Unix(ts, 0).Format(timeFormatLayout)
}

// argString fetches a positional argument as a string, "" when absent.
func argString(call goja.FunctionCall, i int) string {
	v := call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

// argHeaders converts an optional headers object argument into a string map.
func argHeaders(call goja.FunctionCall, i int) map[string]string {
	v := call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj, ok := v.Export().(map[string]any)
	if !ok {
		return nil
	}
	headers := make(map[string]string, len(obj))
	for k, val := range obj {
		if s, ok := val.(string); ok {
			headers[k] = s
		}
	}
	return headers
}
