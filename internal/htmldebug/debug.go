// Package htmldebug renders selector matches for rule authors. Rules compile
// to XPath for extraction; when a compiled rule matches nothing, seeing what
// a plain CSS selector finds in the same document is the fastest way to spot
// the discrepancy.
package htmldebug

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PrintSelector prints either outer HTML or text of matches for a CSS
// selector. Used by the command's "-selector" debug mode.
func PrintSelector(w io.Writer, content []byte, selector string, textOnly bool) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if textOnly {
			fmt.Fprintln(w, strings.TrimSpace(s.Text()))
			fmt.Fprintln(w)
			return
		}
		out, err := goquery.OuterHtml(s)
		if err != nil {
			in, _ := s.Html()
			fmt.Fprintln(w, in)
			fmt.Fprintln(w)
			return
		}
		fmt.Fprintln(w, out)
		fmt.Fprintln(w)
	})
	return nil
}
