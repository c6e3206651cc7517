// Package booksource ingests book source documents: JSON files describing
// how to search a site and which extraction rules pull book data out of its
// pages. Conversion validates each source and normalizes its search URL; the
// rule strings themselves are interpreted lazily by the rule engine.
package booksource

import (
	"bytes"
	"encoding/json"
)

// Source is one book source. Rule fields hold raw rule strings in any of the
// supported dialects.
type Source struct {
	BookSourceName string `json:"bookSourceName"`
	BookSourceURL  string `json:"bookSourceUrl"`
	BookSourceType int    `json:"bookSourceType"`
	SearchURL      string `json:"searchUrl"`

	// Enabled defaults to true when the field is absent.
	Enabled *bool `json:"enabled,omitempty"`

	RuleSearch   *SearchRules   `json:"ruleSearch,omitempty"`
	RuleBookInfo *BookInfoRules `json:"ruleBookInfo,omitempty"`
	RuleToc      *TocRules      `json:"ruleToc,omitempty"`
	RuleContent  *ContentRules  `json:"ruleContent,omitempty"`

	// Raw is the source's original JSON document, kept for storage.
	Raw json.RawMessage `json:"-"`
}

// SearchRules extract entries from a search results page.
type SearchRules struct {
	BookList    string `json:"bookList,omitempty"`
	Name        string `json:"name,omitempty"`
	Author      string `json:"author,omitempty"`
	BookURL     string `json:"bookUrl,omitempty"`
	CoverURL    string `json:"coverUrl,omitempty"`
	Intro       string `json:"intro,omitempty"`
	LastChapter string `json:"lastChapter,omitempty"`
}

// BookInfoRules extract fields from a book's detail page.
type BookInfoRules struct {
	Name     string `json:"name,omitempty"`
	Author   string `json:"author,omitempty"`
	Intro    string `json:"intro,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
	TocURL   string `json:"tocUrl,omitempty"`
}

// TocRules extract the chapter list.
type TocRules struct {
	ChapterList string `json:"chapterList,omitempty"`
	ChapterName string `json:"chapterName,omitempty"`
	ChapterURL  string `json:"chapterUrl,omitempty"`
	NextTocURL  string `json:"nextTocUrl,omitempty"`
}

// ContentRules extract chapter text.
type ContentRules struct {
	Content        string `json:"content,omitempty"`
	NextContentURL string `json:"nextContentUrl,omitempty"`
	ReplaceRegex   string `json:"replaceRegex,omitempty"`
}

// IsEnabled reports the source's administrative state; an absent enabled
// field means enabled.
func (s *Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ChapterNameRule returns the rule for chapter titles, falling back to the
// chapter list rule when no dedicated name rule exists.
func (s *Source) ChapterNameRule() string {
	if s.RuleToc == nil {
		return ""
	}
	if s.RuleToc.ChapterName != "" {
		return s.RuleToc.ChapterName
	}
	return s.RuleToc.ChapterList
}

// IsLegadoFormat reports whether data looks like a book source document: a
// JSON object, or array of objects, carrying bookSourceUrl and
// bookSourceName. It inspects only the first array element.
func IsLegadoFormat(data []byte) bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return false
	}

	var probe json.RawMessage
	switch data[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil || len(arr) == 0 {
			return false
		}
		probe = arr[0]
	case '{':
		probe = data
	default:
		return false
	}

	var fields struct {
		URL  *string `json:"bookSourceUrl"`
		Name *string `json:"bookSourceName"`
	}
	if err := json.Unmarshal(probe, &fields); err != nil {
		return false
	}
	return fields.URL != nil && fields.Name != nil
}
