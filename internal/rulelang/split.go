// Package rulelang implements the string-level grammar of Legado extraction
// rules: splitting a raw rule into its base selector and script tail, and
// classifying the base selector's dialect.
//
// A rule is a single string that may combine a document selector (XPath, CSS,
// JSONPath, or the JSOUP-default micro-syntax) with an optional JavaScript
// tail ("@js:..." or "<js>...</js>") and/or "{{...}}" template spans.
package rulelang

import "strings"

const (
	jsMarker   = "@js:"
	jsOpenTag  = "<js>"
	jsCloseTag = "</js>"
	tplOpen    = "{{"
	tplClose   = "}}"
)

// Split separates a raw rule into its base-selector part and script-tail
// part, and reports whether the rule is a pure template.
//
// Precedence (first match wins):
//  1. "@js:" anywhere: base is everything before it, tail everything after.
//  2. "<js>" with a "</js>" strictly after it: base is everything before the
//     open tag, tail is the tag content.
//  3. Both "{{" and "}}" present anywhere: the whole rule is template input
//     (base empty, tail = rule, isTemplate true).
//  4. Otherwise the whole rule is the base selector.
//
// JS markers always win over template markers: an author who wants
// post-processing opts in explicitly, while bare "{{}}" is reserved for pure
// templates such as search URLs.
//
// Edge cases:
//   - An empty rule returns ("", "", false).
//   - "{{" without a matching "}}" is not a template trigger.
//   - "<js>" without "</js>" (or with "</js>" before it) means "no JS found",
//     not an error; the rule falls through to case 3 or 4.
func Split(rule string) (base, tail string, isTemplate bool) {
	if rule == "" {
		return "", "", false
	}

	if pos := strings.Index(rule, jsMarker); pos >= 0 {
		return rule[:pos], rule[pos+len(jsMarker):], false
	}

	open := strings.Index(rule, jsOpenTag)
	if open >= 0 {
		if end := strings.Index(rule, jsCloseTag); end > open {
			return rule[:open], rule[open+len(jsOpenTag) : end], false
		}
	}

	if strings.Contains(rule, tplOpen) && strings.Contains(rule, tplClose) {
		return "", rule, true
	}

	return rule, "", false
}

// ContainsScript reports whether a rule carries any script or template
// syntax. Used by ingestion to label sources that need the script engine.
func ContainsScript(rule string) bool {
	if strings.Contains(rule, jsMarker) || strings.Contains(rule, jsOpenTag) {
		return true
	}
	return strings.Contains(rule, tplOpen) && strings.Contains(rule, tplClose)
}
