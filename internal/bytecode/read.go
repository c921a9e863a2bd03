package bytecode

import (
	"fmt"
	"strings"

	"uepkg/internal/ufmt"
)

// Context resolves name indices found in bytecode. *upkg.Package
// implements it.
type Context interface {
	NameAt(i int) (string, error)
}

// Reader decodes tokens from a stream. It carries the conversion-table flag
// between tokens, so one Reader must be used for a whole script.
type Reader struct {
	ctx      Context
	conv     bool
	depth    int
	MaxDepth int
}

// NewReader returns a Reader resolving names through ctx.
func NewReader(ctx Context) *Reader {
	return &Reader{ctx: ctx}
}

func (r *Reader) maxDepth() int {
	if r.MaxDepth > 0 {
		return r.MaxDepth
	}
	return ufmt.DefaultMaxDepth
}

// Read decodes one token and everything nested in it.
func (r *Reader) Read(s *ufmt.Stream) (*Token, error) {
	if r.depth >= r.maxDepth() {
		return nil, ufmt.Malformedf("bytecode nesting deeper than %d", r.maxDepth())
	}
	r.depth++
	defer func() { r.depth-- }()

	off := s.Offset()
	b, err := s.ReadByte()
	if err != nil {
		return nil, err
	}

	table := TableMain
	if r.conv {
		r.conv = false
		table = TableConversion
	} else if b >= NativeExtended {
		return r.readNative(s, b, off)
	}

	info, ok := Lookup(table, b)
	if !ok {
		return nil, ufmt.Malformedf("Unknown token: %02x, table: %s", b, table)
	}
	if table == TableMain && b == OpConversionTable {
		r.conv = true
	}
	t := &Token{Op: b, Table: table, Args: make([]Arg, 0, len(info.Operands))}
	for _, kind := range info.Operands {
		a, err := r.readArg(s, kind, t.Args)
		if err != nil {
			return nil, fmt.Errorf("%s at 0x%x: %w", info.Name, off, err)
		}
		t.Args = append(t.Args, a)
	}
	return t, nil
}

func (r *Reader) readNative(s *ufmt.Stream, b byte, off int) (*Token, error) {
	idx := int(b)
	if b < NativeFirst {
		lo, err := s.ReadByte()
		if err != nil {
			return nil, err
		}
		idx = int(b-NativeExtended)<<8 + int(lo)
	}
	if idx < NativeFirst {
		return nil, ufmt.Malformedf("Invalid native index: %d", idx)
	}
	list, err := r.readParams(s)
	if err != nil {
		return nil, fmt.Errorf("native %d at 0x%x: %w", idx, off, err)
	}
	return &Token{Op: b, Native: idx, Args: []Arg{{Kind: ArgParams, List: list}}}, nil
}

func (r *Reader) readParams(s *ufmt.Stream) ([]*Token, error) {
	var list []*Token
	for {
		t, err := r.Read(s)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
		if t.isEndParams() {
			return list, nil
		}
	}
}

func (r *Reader) readArg(s *ufmt.Stream, kind Operand, prev []Arg) (Arg, error) {
	a := Arg{Kind: kind}
	var err error
	switch kind {
	case ArgToken:
		a.Token, err = r.Read(s)
	case ArgCaseExpr:
		if len(prev) > 0 && prev[len(prev)-1].Int != 0xffff {
			a.Token, err = r.Read(s)
		}
	case ArgParams:
		a.List, err = r.readParams(s)
	case ArgU8:
		var v byte
		v, err = s.ReadByte()
		a.Int = int64(v)
	case ArgU16:
		var v uint16
		v, err = s.ReadUint16()
		a.Int = int64(v)
	case ArgI32:
		var v int32
		v, err = s.ReadInt32()
		a.Int = int64(v)
	case ArgI64:
		a.Int, err = s.ReadInt64()
	case ArgF32:
		a.Float, err = s.ReadFloat32()
	case ArgObject:
		var v int32
		v, err = s.ReadCompact()
		a.Int = int64(v)
	case ArgName:
		var v int32
		if v, err = s.ReadCompact(); err == nil {
			a.Int = int64(v)
			a.Str, err = r.ctx.NameAt(int(v))
		}
	case ArgString:
		a.Str, err = s.ReadCString()
	case ArgLabels:
		a.Labels, err = r.readLabels(s)
	default:
		err = fmt.Errorf("operand %s: %w", kind, ufmt.ErrUnsupported)
	}
	return a, err
}

func (r *Reader) readLabels(s *ufmt.Stream) ([]Label, error) {
	var out []Label
	for {
		name, err := s.ReadCompact()
		if err != nil {
			return nil, err
		}
		text, err := r.ctx.NameAt(int(name))
		if err != nil {
			return nil, err
		}
		off, err := s.ReadInt32()
		if err != nil {
			return nil, err
		}
		out = append(out, Label{Name: name, Text: text, Offset: off})
		if strings.EqualFold(text, "None") {
			return out, nil
		}
	}
}

// ReadScript decodes tokens until size bytes of script have been consumed.
// Offsets of top-level tokens are relative to the start of the script.
func ReadScript(s *ufmt.Stream, ctx Context, size int) ([]*Token, error) {
	r := NewReader(ctx)
	start := s.Position()
	var out []*Token
	n := 0
	for n < size {
		t, err := r.Read(s)
		if err != nil {
			return out, err
		}
		t.Offset = n
		n += t.Size(s.Charset())
		if got := s.Position() - start; got != n {
			return out, ufmt.Malformedf("%s at script offset 0x%x: consumed %d bytes, measured %d", t.Name(), t.Offset, got, n)
		}
		out = append(out, t)
	}
	if n != size {
		return out, ufmt.Malformedf("script overruns declared size %d by %d bytes", size, n-size)
	}
	return out, nil
}
