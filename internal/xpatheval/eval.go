// Package xpatheval runs XPath expressions over HTML documents and returns
// string results in document order.
package xpatheval

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// Evaluate parses content as HTML and runs expr against it.
//
// Result rendering depends on what the final step of the expression selects:
//
//	/@attr  -> the attribute value
//	/text() -> the text content
//	element -> the node's outer HTML
//
// stop may be nil; when non-nil it is checked between result nodes so a
// caller can abandon a large extraction mid-way. A raised flag terminates
// rendering early and the results collected so far are returned successfully.
//
// Errors:
//   - A malformed expression or unparseable document returns an error; the
//     caller decides whether that is fatal for its pipeline phase.
func Evaluate(content []byte, expr string, stop *atomic.Bool) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("empty xpath expression")
	}

	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile xpath %q: %w", expr, err)
	}

	doc, err := htmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	nodes := htmlquery.QuerySelectorAll(doc, compiled)

	wantText := selectsValue(expr)

	results := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if stop != nil && stop.Load() {
			break
		}
		results = append(results, renderNode(node, wantText))
	}
	return results, nil
}

// selectsValue reports whether the final step of expr selects an attribute
// or text() rather than an element.
func selectsValue(expr string) bool {
	last := expr
	if i := strings.LastIndex(expr, "/"); i >= 0 {
		last = expr[i+1:]
	}
	return strings.HasPrefix(last, "@") || last == "text()"
}

// renderNode turns a result node into its string form. Attribute results
// come back from htmlquery as synthetic wrapper nodes whose inner text is the
// attribute value, so InnerText covers both attributes and text() steps.
func renderNode(node *html.Node, wantText bool) string {
	if wantText || node.Type == html.TextNode {
		return htmlquery.InnerText(node)
	}
	return htmlquery.OutputHTML(node, true)
}
