package fetch

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// Decode converts raw document bytes to UTF-8. The charset comes from the
// Content-Type header when present, otherwise from sniffing the content
// (meta tags, byte patterns). UTF-8 input passes through with only a BOM
// strip.
func Decode(raw []byte, contentType string) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if name == "utf-8" {
		return raw, nil
	}

	r := enc.NewDecoder().Reader(bytes.NewReader(raw))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", name, err)
	}
	return out, nil
}
