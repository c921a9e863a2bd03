package ufmt

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Charset is the single-byte (or legacy multi-byte) encoding used for
// package strings whose length prefix is positive.
type Charset struct {
	name string
	enc  encoding.Encoding
}

// DefaultCharset is windows-1252.
var DefaultCharset = &Charset{name: "windows-1252", enc: charmap.Windows1252}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// LookupCharset resolves an IANA charset name such as "windows-1252" or "EUC-KR".
func LookupCharset(name string) (*Charset, error) {
	if name == "" || strings.EqualFold(name, DefaultCharset.name) {
		return DefaultCharset, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("charset %q: %w", name, ErrUnsupported)
	}
	return &Charset{name: name, enc: enc}, nil
}

// Name returns the charset name.
func (c *Charset) Name() string { return c.name }

// Decode converts charset bytes to a Go string.
func (c *Charset) Decode(b []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", c.name, err)
	}
	return string(out), nil
}

// Encode converts s to charset bytes. ok is false when s contains runes the
// charset cannot represent.
func (c *Charset) Encode(s string) (b []byte, ok bool) {
	if isASCII(s) {
		return []byte(s), true
	}
	out, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, false
	}
	return out, true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func decodeUTF16(b []byte) (string, error) {
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode utf-16: %w", err)
	}
	return string(out), nil
}

func encodeUTF16(s string) []byte {
	out, _ := utf16le.NewEncoder().Bytes([]byte(s))
	return out
}
