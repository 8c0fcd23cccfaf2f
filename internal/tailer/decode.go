package tailer

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Decoder turns raw log bytes into text. Malformed input is never an error:
// undecodable bytes become U+FFFD.
type Decoder struct {
	enc encoding.Encoding
}

// NewDecoder returns a decoder for the named charset (utf-8, windows-1252,
// iso-8859-1, ...). An empty name means UTF-8.
func NewDecoder(charset string) (*Decoder, error) {
	if strings.TrimSpace(charset) == "" {
		return &Decoder{enc: unicode.UTF8}, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown log encoding %q: %w", charset, err)
	}
	// Lines are split on the '\n' byte, which only works for ASCII-compatible
	// encodings.
	if name, _ := htmlindex.Name(enc); strings.HasPrefix(name, "utf-16") {
		return nil, fmt.Errorf("log encoding %q is not line-splittable", charset)
	}
	return &Decoder{enc: enc}, nil
}

// String decodes b, replacing anything that cannot be decoded.
func (d *Decoder) String(b []byte) string {
	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}

// decodeLine decodes one raw line. ok is false for blank lines.
func (d *Decoder) decodeLine(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	return strings.TrimRight(d.String(raw), "\r"), true
}
