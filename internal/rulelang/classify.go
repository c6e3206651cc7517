package rulelang

import "strings"

// Kind identifies the selector dialect of a rule's base part.
type Kind int

const (
	// KindRaw means the base is not a selector at all; it is returned as a
	// literal (or, when empty, the whole input content becomes the result).
	KindRaw Kind = iota

	// KindXPath is a native XPath expression ("//..." or "@XPath:...").
	KindXPath

	// KindCSS is a CSS-like selector ("@css:...") compiled to XPath.
	KindCSS

	// KindJSONPath is a dotted JSONPath projection ("$...." or "@json:...").
	KindJSONPath

	// KindJsoup is the JSOUP-default micro-syntax ("class.name.0@tag.a@text")
	// translated token-by-token to XPath.
	KindJsoup
)

// String returns the lower-case dialect name, used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindXPath:
		return "xpath"
	case KindCSS:
		return "css"
	case KindJSONPath:
		return "jsonpath"
	case KindJsoup:
		return "jsoup"
	default:
		return "raw"
	}
}

// Classify determines the selector dialect of a base rule (the part returned
// by Split, never the original unsplit rule) and strips the dialect prefix.
//
// Ordered checks:
//  1. "@css:" prefix -> KindCSS, body is the rest.
//  2. "@json:" prefix -> KindJSONPath, body is the rest; a bare "$." prefix
//     -> KindJSONPath with the whole string as body (dot retained).
//  3. "//" prefix, or "@XPath:"/"@xpath:" -> KindXPath, body is the rest
//     (the named prefixes match case-insensitively).
//  4. Anything containing '@' or '.' -> KindJsoup; otherwise KindRaw with the
//     string returned unmodified.
func Classify(base string) (Kind, string) {
	switch {
	case strings.HasPrefix(base, "@css:"):
		return KindCSS, base[len("@css:"):]

	case strings.HasPrefix(base, "@json:"):
		return KindJSONPath, base[len("@json:"):]

	case strings.HasPrefix(base, "$."):
		return KindJSONPath, base

	case strings.HasPrefix(base, "//"):
		return KindXPath, base

	case hasPrefixFold(base, "@xpath:"):
		return KindXPath, base[len("@xpath:"):]
	}

	if strings.ContainsAny(base, "@.") {
		return KindJsoup, base
	}
	return KindRaw, base
}

// hasPrefixFold is an ASCII case-insensitive strings.HasPrefix. Only the two
// spellings "@XPath:" and "@xpath:" occur in real sources, but mixed-case
// variants cost nothing to accept.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
