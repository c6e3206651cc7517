package booksource

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// SearchRequest is a normalized search endpoint description.
type SearchRequest struct {
	// URL may contain {{key}} template spans; the rule engine expands them
	// with the search keyword at query time.
	URL     string
	Method  string // "GET" or "POST"
	Charset string // "utf-8" or "gbk"
	Body    string // POST body, may also contain {{key}}
}

// searchOptions is the optional JSON blob trailing a search URL:
//
//	https://example.com/search,{"method":"POST","charset":"gbk","body":"kw={{key}}"}
type searchOptions struct {
	Method  string `json:"method"`
	Charset string `json:"charset"`
	Body    string `json:"body"`
}

// ParseSearchURL splits a searchUrl rule into the endpoint and its options.
// The legacy bare "searchKey" placeholder is normalized to a {{key}} span so
// every keyword slot goes through the same template expansion.
func ParseSearchURL(searchURL string) (SearchRequest, error) {
	searchURL = strings.TrimSpace(searchURL)
	if searchURL == "" {
		return SearchRequest{}, fmt.Errorf("empty search url")
	}

	req := SearchRequest{URL: searchURL, Method: "GET", Charset: "utf-8"}

	if i := strings.Index(searchURL, ",{"); i >= 0 {
		var opts searchOptions
		if err := json.Unmarshal([]byte(searchURL[i+1:]), &opts); err != nil {
			return SearchRequest{}, fmt.Errorf("search url options: %w", err)
		}
		req.URL = searchURL[:i]

		if strings.EqualFold(opts.Method, "POST") {
			req.Method = "POST"
		}
		if strings.EqualFold(opts.Charset, "gbk") {
			req.Charset = "gbk"
		}
		req.Body = opts.Body
	}

	req.URL = normalizeKeyword(req.URL)
	req.Body = normalizeKeyword(req.Body)
	return req, nil
}

func normalizeKeyword(s string) string {
	if strings.Contains(s, "{{") {
		return s
	}
	return strings.Replace(s, "searchKey", "{{key}}", 1)
}

// EncodeKeyword prepares a keyword for substitution into a search request.
// A gbk charset option means the site expects the keyword percent-encoded in
// GBK bytes; any other charset leaves the keyword untouched so rules stay
// free to encode it themselves.
func EncodeKeyword(keyword, charset string) (string, error) {
	if !strings.EqualFold(charset, "gbk") {
		return keyword, nil
	}
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(keyword)
	if err != nil {
		return "", fmt.Errorf("encode keyword as gbk: %w", err)
	}
	return url.QueryEscape(gbk), nil
}
