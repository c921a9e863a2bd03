// Package ufmt provides shared encodings, errors and diagnostics for
// Unreal package parsing.
package ufmt

import (
	"errors"
	"fmt"
)

// Error classes shared by every decoder. Wrap them with %w and test with errors.Is.
var (
	ErrMalformed   = errors.New("malformed data")
	ErrUnsupported = errors.New("unsupported type")
	ErrNotFound    = errors.New("not found")
)

// Malformedf returns an ErrMalformed wrapped with a formatted message.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrMalformed)
}

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagTruncated       DiagKind = "truncated"
	DiagInvalid         DiagKind = "invalid"
	DiagUnknownProperty DiagKind = "unknown_property"
	DiagResidue         DiagKind = "residue"
	DiagPlaceholder     DiagKind = "placeholder"
)

// Diag records a non-fatal issue encountered during parsing.
type Diag struct {
	Offset uint64   `json:"offset"`
	Kind   DiagKind `json:"kind"`
	Msg    string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] 0x%x: %s", d.Kind, d.Offset, d.Msg)
}

// Diags accumulates diagnostics. The zero value is ready to use and a nil
// *Diags discards everything.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(offset uint64, kind DiagKind, msg string) {
	if d == nil {
		return
	}
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(offset uint64, kind DiagKind, format string, args ...any) {
	if d == nil {
		return
	}
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag {
	if d == nil {
		return nil
	}
	return d.items
}

func (d *Diags) Len() int {
	if d == nil {
		return 0
	}
	return len(d.items)
}

// Mode controls error handling behavior.
type Mode int

const (
	ModeBestEffort Mode = iota // warn, keep going, placeholders for broken refs
	ModeStrict                 // unknown properties and residual bytes are errors
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "best-effort"
}

// Options controls parsing behavior across packages.
type Options struct {
	Mode     Mode
	Charset  *Charset
	MaxDepth int // token/struct nesting cap; 0 = use default
}

// DefaultMaxDepth is the default nesting cap for recursive decoders.
const DefaultMaxDepth = 256

func (o Options) EffectiveMaxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

func (o Options) EffectiveCharset() *Charset {
	if o.Charset != nil {
		return o.Charset
	}
	return DefaultCharset
}
