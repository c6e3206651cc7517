// Package css2xpath compiles the two HTML selector dialects of Legado rules
// into XPath: the "@css:" CSS-like selector syntax and the JSOUP-default
// micro-syntax. Both compilers are pure string transforms; they never touch
// document content.
package css2xpath

import (
	"errors"
	"strings"
)

// ErrEmptySelector is returned when a selector is empty after trimming.
var ErrEmptySelector = errors.New("css2xpath: empty selector")

// Compile translates a CSS-like selector into an XPath expression.
//
// Grammar (informal):
//
//	selector := part (SP part)* ('@' attrName)?
//	part     := tag? ('.' class)* ('#' id)* ('[' attr ('=' value)? ']')*
//
// Each part becomes "//" + tag (or "*") with one bracketed predicate joining,
// in this fixed order: contains(@class,'<class>') per class, @id='<id>',
// @<attr>='<value>' (or bare @<attr>). Space-separated parts compile to the
// descendant axis only; child/sibling combinators and selector alternation
// are deliberately not modeled.
//
// The trailing "@attrName" controls value extraction:
//
//	@text              -> /text()
//	@html, @innerHtml  -> nothing appended (the node itself is returned)
//	@anythingElse      -> /@anythingElse
//
// Examples:
//
//	"#id"                      -> "//*[@id='id']"
//	".cls"                     -> "//*[contains(@class,'cls')]"
//	"div.cls#id[data-x=1]@text" ->
//	    "//div[contains(@class,'cls') and @id='id' and @data-x='1']/text()"
func Compile(selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return "", ErrEmptySelector
	}

	sel, attrExtract := splitAttrExtract(selector)

	var b strings.Builder
	for _, part := range strings.Fields(sel) {
		b.WriteString("//")
		writePart(&b, part)
	}

	// A selector that was only an extraction suffix (e.g. "@text") still
	// needs a node test to anchor it.
	if b.Len() == 0 {
		b.WriteString("//*")
	}

	switch attrExtract {
	case "":
	case "text":
		b.WriteString("/text()")
	case "html", "innerHtml":
		// The node itself is returned.
	default:
		b.WriteString("/@")
		b.WriteString(attrExtract)
	}

	return b.String(), nil
}

// splitAttrExtract separates the trailing "@attrName" extraction suffix from
// the selector body. The scan looks for the last '@' outside of "[...]"
// predicates so attribute values containing '@' do not break the split.
func splitAttrExtract(selector string) (sel, attr string) {
	depth := 0
	at := -1
	for i := 0; i < len(selector); i++ {
		switch selector[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '@':
			if depth == 0 {
				at = i
			}
		}
	}
	if at < 0 {
		return selector, ""
	}
	return selector[:at], selector[at+1:]
}

// writePart compiles a single selector part (tag/class/id/attribute tokens)
// onto b as a node test plus one combined predicate.
func writePart(b *strings.Builder, part string) {
	var (
		tag     string
		classes []string
		id      string
		preds   []string
	)

	i := 0
	for i < len(part) && part[i] != '.' && part[i] != '#' && part[i] != '[' {
		i++
	}
	tag = part[:i]

	for i < len(part) {
		switch part[i] {
		case '.':
			i++
			start := i
			for i < len(part) && part[i] != '.' && part[i] != '#' && part[i] != '[' {
				i++
			}
			if start < i {
				classes = append(classes, part[start:i])
			}

		case '#':
			i++
			start := i
			for i < len(part) && part[i] != '.' && part[i] != '#' && part[i] != '[' {
				i++
			}
			if start < i {
				id = part[start:i]
			}

		case '[':
			i++
			start := i
			for i < len(part) && part[i] != '=' && part[i] != ']' {
				i++
			}
			name := part[start:i]
			value := ""
			hasValue := false
			if i < len(part) && part[i] == '=' {
				hasValue = true
				i++
				if i < len(part) && (part[i] == '"' || part[i] == '\'') {
					i++
				}
				vstart := i
				for i < len(part) && part[i] != '"' && part[i] != '\'' && part[i] != ']' {
					i++
				}
				value = part[vstart:i]
				for i < len(part) && part[i] != ']' {
					i++
				}
			}
			if i < len(part) { // consume ']'
				i++
			}
			if name == "" {
				continue
			}
			if hasValue {
				preds = append(preds, "@"+name+"='"+value+"'")
			} else {
				preds = append(preds, "@"+name)
			}

		default:
			// Unreachable for well-formed parts; skip a stray byte rather
			// than loop forever on it.
			i++
		}
	}

	if tag == "" {
		tag = "*"
	}
	b.WriteString(tag)

	var conds []string
	for _, c := range classes {
		conds = append(conds, "contains(@class,'"+c+"')")
	}
	if id != "" {
		conds = append(conds, "@id='"+id+"'")
	}
	conds = append(conds, preds...)

	if len(conds) > 0 {
		b.WriteString("[")
		b.WriteString(strings.Join(conds, " and "))
		b.WriteString("]")
	}
}
