package ufmt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer accumulates package data using the same encodings Stream reads.
type Writer struct {
	buf []byte
	cs  *Charset
}

// NewWriter creates an empty writer using the default charset.
func NewWriter() *Writer {
	return &Writer{cs: DefaultCharset}
}

// SetCharset selects the single-byte charset used for strings.
func (w *Writer) SetCharset(cs *Charset) {
	if cs == nil {
		cs = DefaultCharset
	}
	w.cs = cs
}

// Charset returns the charset in use.
func (w *Writer) Charset() *Charset { return w.cs }

// Bytes returns the accumulated data.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// WriteByte appends a byte. It never fails.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// Write appends p. It never fails.
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *Writer) WriteUint16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *Writer) WriteUint32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *Writer) WriteUint64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *Writer) WriteInt32(v int32)   { w.WriteUint32(uint32(v)) }
func (w *Writer) WriteInt64(v int64)   { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }

// WriteCompact appends a compact index.
func (w *Writer) WriteCompact(v int32) {
	a := int64(v)
	var lead byte
	if a < 0 {
		lead = compactSign
		a = -a
	}
	lead |= byte(a & 0x3f)
	a >>= 6
	if a == 0 {
		w.buf = append(w.buf, lead)
		return
	}
	w.buf = append(w.buf, lead|compactMoreLead)
	for i := 1; i < compactMaxBytes; i++ {
		b := byte(a & 0x7f)
		a >>= 7
		if a > 0 && i < compactMaxBytes-1 {
			b |= compactMore
		}
		w.buf = append(w.buf, b)
		if a == 0 {
			return
		}
	}
}

// WriteLine appends a length-prefixed string. Strings the charset cannot
// represent are written as UTF-16LE with a negative length.
func (w *Writer) WriteLine(s string) {
	if b, ok := w.cs.Encode(s); ok {
		w.WriteCompact(int32(len(b) + 1))
		w.buf = append(w.buf, b...)
		w.buf = append(w.buf, 0)
		return
	}
	b := encodeUTF16(s)
	w.WriteCompact(-int32(len(b)/2 + 1))
	w.buf = append(w.buf, b...)
	w.buf = append(w.buf, 0, 0)
}

// LineSize returns the encoded length of s as written by WriteLine.
func LineSize(cs *Charset, s string) int {
	if cs == nil {
		cs = DefaultCharset
	}
	if b, ok := cs.Encode(s); ok {
		return CompactSize(int32(len(b)+1)) + len(b) + 1
	}
	n := len(encodeUTF16(s))
	return CompactSize(-int32(n/2+1)) + n + 2
}

// WriteCString appends a NUL-terminated string in the writer charset.
func (w *Writer) WriteCString(s string) error {
	b, ok := w.cs.Encode(s)
	if !ok {
		return fmt.Errorf("string %q not representable in %s: %w", s, w.cs.Name(), ErrUnsupported)
	}
	w.buf = append(w.buf, b...)
	w.buf = append(w.buf, 0)
	return nil
}
