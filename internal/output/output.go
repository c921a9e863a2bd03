// Package output writes decoded packages and objects as JSON or
// deterministic CBOR.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Format selects the encoding of written records.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ParseFormat accepts "json" or "cbor", case-insensitively. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("output: unknown format %q (want json or cbor)", s)
	}
}

// Ext returns the file extension of f, with the dot.
func (f Format) Ext() string {
	if f == FormatCBOR {
		return ".cbor"
	}
	return ".json"
}

// encMode is Core Deterministic Encoding (RFC 8949 §4.2): the same object
// always produces identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("output: CBOR encoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v in format f. JSON is indented.
func Marshal(f Format, v any) ([]byte, error) {
	if f == FormatCBOR {
		return encMode.Marshal(v)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Write encodes v to w in format f.
func Write(w io.Writer, f Format, v any) error {
	if f == FormatCBOR {
		if err := encMode.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("output: encode cbor: %w", err)
		}
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode json: %w", err)
	}
	return nil
}

// WriteFile writes v to dir/<name><ext>. name may contain path separators
// (e.g. "Engine/Actor") for directory grouping.
func WriteFile(dir, name string, f Format, v any) (string, error) {
	path := filepath.Join(dir, name+f.Ext())
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("output: create %s: %w", path, err)
	}
	defer file.Close()
	if err := Write(file, f, v); err != nil {
		return "", err
	}
	return path, nil
}

// WriteText writes text to dir/<name>, creating parent directories.
func WriteText(dir, name, text string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("output: write %s: %w", path, err)
	}
	return path, nil
}
