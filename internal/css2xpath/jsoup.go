package css2xpath

import (
	"strconv"
	"strings"
)

// FromJsoup translates a JSOUP-default rule into an XPath expression.
//
// The dialect chains "type.name.index" tokens with '@':
//
//	class.book.0@tag.a@href  ->  //*[@class='book'][1]//a/@href
//
// Token semantics:
//
//	class.NAME[.N]  -> *[@class='NAME'] with an optional position predicate
//	id.NAME         -> *[@id='NAME']
//	tag.NAME[.N]    -> NAME with an optional position predicate
//	text            -> /text()
//	href, src       -> /@href, /@src
//	html, all       -> nothing (the node itself is returned)
//	other bare name -> /@name (attribute extraction, e.g. "content")
//
// Rule indices are 0-based while XPath positions are 1-based, so ".0" becomes
// "[1]". A non-numeric index is ignored.
func FromJsoup(rule string) (string, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return "", ErrEmptySelector
	}

	var b strings.Builder
	first := true

	for _, token := range strings.Split(rule, "@") {
		if token == "" {
			continue
		}

		typ, name, index := splitJsoupToken(token)

		switch typ {
		case "class":
			if name == "" {
				continue
			}
			b.WriteString("//*[@class='")
			b.WriteString(name)
			b.WriteString("']")
			writePosition(&b, index)
			first = false

		case "id":
			if name == "" {
				continue
			}
			b.WriteString("//*[@id='")
			b.WriteString(name)
			b.WriteString("']")
			first = false

		case "tag":
			if name == "" {
				continue
			}
			b.WriteString("//")
			b.WriteString(name)
			writePosition(&b, index)
			first = false

		case "text":
			if first {
				// An extraction token needs a preceding navigation step.
				return "", ErrEmptySelector
			}
			b.WriteString("/text()")

		case "html", "all":
			// The node itself is returned.

		default:
			if first {
				// A leading bare token is not a navigation step; the rule is
				// not expressible as XPath.
				return "", ErrEmptySelector
			}
			b.WriteString("/@")
			b.WriteString(typ)
		}
	}

	if b.Len() == 0 {
		return "", ErrEmptySelector
	}
	return b.String(), nil
}

// splitJsoupToken parses "type.name.index"; name and index may be absent.
func splitJsoupToken(token string) (typ, name, index string) {
	parts := strings.SplitN(token, ".", 3)
	typ = parts[0]
	if len(parts) > 1 {
		name = parts[1]
	}
	if len(parts) > 2 {
		index = parts[2]
	}
	return typ, name, index
}

// writePosition appends a 1-based position predicate for a 0-based rule index.
func writePosition(b *strings.Builder, index string) {
	if index == "" {
		return
	}
	n, err := strconv.Atoi(index)
	if err != nil || n < 0 {
		return
	}
	b.WriteString("[")
	b.WriteString(strconv.Itoa(n + 1))
	b.WriteString("]")
}
