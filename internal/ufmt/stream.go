// Unreal package data stream reader.
// Implements the compact index and string encodings used by UE2 packages.
package ufmt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrStreamEOF     = errors.New("stream: unexpected end of data")
	ErrStreamOverrun = errors.New("stream: value too large")
)

// Stream reads little-endian package data.
type Stream struct {
	data []byte
	pos  int
	end  int
	base int // absolute file offset of data[0], for diagnostics
	cs   *Charset
}

// NewStream creates a stream over the given data using the default charset.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, pos: 0, end: len(data), cs: DefaultCharset}
}

// NewStreamAt creates a stream starting at offset within data.
func NewStreamAt(data []byte, offset int) *Stream {
	if offset > len(data) {
		offset = len(data)
	}
	return &Stream{data: data, pos: offset, end: len(data), cs: DefaultCharset}
}

// SetBase records the absolute file offset of the first byte of the stream.
func (s *Stream) SetBase(base int) { s.base = base }

// SetCharset selects the single-byte charset used for strings.
// A nil charset restores the default.
func (s *Stream) SetCharset(cs *Charset) {
	if cs == nil {
		cs = DefaultCharset
	}
	s.cs = cs
}

// Charset returns the charset in use.
func (s *Stream) Charset() *Charset { return s.cs }

// Position returns the current read position.
func (s *Stream) Position() int { return s.pos }

// Offset returns the absolute file offset of the read position.
func (s *Stream) Offset() int { return s.base + s.pos }

// SetPosition sets the read position.
func (s *Stream) SetPosition(pos int) {
	if pos > s.end {
		pos = s.end
	}
	s.pos = pos
}

// Remaining returns bytes left to read.
func (s *Stream) Remaining() int { return s.end - s.pos }

// Rest returns a copy of the unread bytes without consuming them.
func (s *Stream) Rest() []byte {
	if s.pos >= s.end {
		return nil
	}
	return bytes.Clone(s.data[s.pos:s.end])
}

// Skip advances the read position by n bytes.
func (s *Stream) Skip(n int) error {
	if n < 0 || s.pos+n > s.end {
		return ErrStreamEOF
	}
	s.pos += n
	return nil
}

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	if s.pos >= s.end {
		return 0, ErrStreamEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadBytes reads n bytes into a new slice.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 || s.pos+n > s.end {
		return nil, ErrStreamEOF
	}
	out := make([]byte, n)
	copy(out, s.data[s.pos:s.pos+n])
	s.pos += n
	return out, nil
}

// ReadUint16 reads a little-endian uint16.
func (s *Stream) ReadUint16() (uint16, error) {
	if s.pos+2 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	if s.pos+4 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// ReadUint64 reads a little-endian uint64.
func (s *Stream) ReadUint64() (uint64, error) {
	if s.pos+8 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint64(s.data[s.pos:])
	s.pos += 8
	return v, nil
}

// ReadInt32 reads a little-endian int32.
func (s *Stream) ReadInt32() (int32, error) {
	v, err := s.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads a little-endian int64.
func (s *Stream) ReadInt64() (int64, error) {
	v, err := s.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads a little-endian IEEE 754 float.
func (s *Stream) ReadFloat32() (float32, error) {
	v, err := s.ReadUint32()
	return math.Float32frombits(v), err
}

// Compact index encoding.
//
// First byte: bit 7 = sign, bit 6 = more bytes follow, bits 0-5 = low 6 bits.
// Following bytes: bit 7 = more bytes follow, bits 0-6 = next 7 bits.
// At most 5 bytes; the fifth byte carries the remaining high bits.
const (
	compactSign     = 0x80
	compactMoreLead = 0x40
	compactMore     = 0x80
	compactMaxBytes = 5
)

// ReadCompact reads a compact index.
func (s *Stream) ReadCompact() (int32, error) {
	b, err := s.ReadByte()
	if err != nil {
		return 0, err
	}
	neg := b&compactSign != 0
	v := int64(b & 0x3f)
	if b&compactMoreLead != 0 {
		shift := uint(6)
		for i := 1; i < compactMaxBytes; i++ {
			b, err = s.ReadByte()
			if err != nil {
				return 0, err
			}
			if i == compactMaxBytes-1 {
				v |= int64(b&0x1f) << shift
				break
			}
			v |= int64(b&0x7f) << shift
			shift += 7
			if b&compactMore == 0 {
				break
			}
		}
	}
	if v > math.MaxInt32+1 || (!neg && v > math.MaxInt32) {
		return 0, ErrStreamOverrun
	}
	if neg {
		v = -v
	}
	return int32(v), nil
}

// CompactSize returns the encoded length of v in bytes.
func CompactSize(v int32) int {
	a := int64(v)
	if a < 0 {
		a = -a
	}
	n := 1
	for a >>= 6; a > 0 && n < compactMaxBytes; a >>= 7 {
		n++
	}
	return n
}

// ReadLine reads a length-prefixed string.
//
// A positive compact length counts bytes in the stream charset including the
// trailing NUL; a negative length counts UTF-16LE code units including the
// trailing NUL; zero is the empty string.
func (s *Stream) ReadLine() (string, error) {
	n, err := s.ReadCompact()
	if err != nil {
		return "", err
	}
	switch {
	case n == 0:
		return "", nil
	case n > 0:
		b, err := s.ReadBytes(int(n))
		if err != nil {
			return "", err
		}
		if b[len(b)-1] == 0 {
			b = b[:len(b)-1]
		}
		return s.cs.Decode(b)
	default:
		b, err := s.ReadBytes(int(-n) * 2)
		if err != nil {
			return "", err
		}
		if len(b) >= 2 && b[len(b)-1] == 0 && b[len(b)-2] == 0 {
			b = b[:len(b)-2]
		}
		return decodeUTF16(b)
	}
}

// ReadCString reads a NUL-terminated string in the stream charset.
func (s *Stream) ReadCString() (string, error) {
	start := s.pos
	for s.pos < s.end {
		if s.data[s.pos] == 0 {
			raw := s.data[start:s.pos]
			s.pos++
			return s.cs.Decode(raw)
		}
		s.pos++
	}
	s.pos = start
	return "", fmt.Errorf("unterminated string at 0x%x: %w", s.base+start, ErrStreamEOF)
}
