package property

import (
	"errors"
	"fmt"
	"strings"

	"uepkg/internal/ufmt"
)

// Context resolves the name and object indices stored in a property list.
// *upkg.Package implements it.
type Context interface {
	NameAt(i int) (string, error)
	NameIndex(name string) (int, error)
	ObjectFullName(ref int32) string
}

// Schema supplies field descriptors and inherited defaults.
type Schema interface {
	// Fields returns the descriptors of a struct or class, inherited fields
	// included. An unknown struct yields an error wrapping ufmt.ErrNotFound.
	Fields(structName string) ([]*Descriptor, error)
	// Lineage returns className and its superclasses, root first.
	Lineage(className string) ([]string, error)
	// Defaults returns the values className itself sets explicitly.
	Defaults(className string) ([]*Value, error)
}

// Info byte layout.
const (
	infoKindMask  = 0x0f
	infoSizeShift = 4
	infoSizeMask  = 0x07
	infoArrayFlag = 0x80
)

// Codec reads and writes property lists for one package.
type Codec struct {
	Ctx      Context
	Schema   Schema
	Diags    *ufmt.Diags
	Mode     ufmt.Mode
	MaxDepth int
}

var fixedSizes = [5]int{1, 2, 4, 12, 16}

// sizeCode picks the size code for a payload of n bytes.
func sizeCode(n int) byte {
	for i, s := range fixedSizes {
		if n == s {
			return byte(i)
		}
	}
	switch {
	case n < 0x100:
		return 5
	case n < 0x10000:
		return 6
	}
	return 7
}

func readSize(s *ufmt.Stream, code byte) (int, error) {
	switch code {
	case 5:
		b, err := s.ReadByte()
		return int(b), err
	case 6:
		v, err := s.ReadUint16()
		return int(v), err
	case 7:
		v, err := s.ReadInt32()
		if err == nil && v < 0 {
			return 0, ufmt.Malformedf("negative property size %d", v)
		}
		return int(v), err
	}
	return fixedSizes[code], nil
}

func (c *Codec) maxDepth() int {
	if c.MaxDepth > 0 {
		return c.MaxDepth
	}
	return ufmt.DefaultMaxDepth
}

// Read decodes a property list up to and including its "None" terminator.
// Field descriptors of class are fetched only when the first entry is seen.
func (c *Codec) Read(s *ufmt.Stream, class string) ([]*Value, error) {
	return c.read(s, class, 0)
}

func (c *Codec) read(s *ufmt.Stream, class string, depth int) ([]*Value, error) {
	if depth > c.maxDepth() {
		return nil, ufmt.Malformedf("property nesting deeper than %d", c.maxDepth())
	}
	var (
		out       []*Value
		fields    []*Descriptor
		haveField bool
	)
	for {
		off := s.Offset()
		nameIdx, err := s.ReadCompact()
		if err != nil {
			return nil, fmt.Errorf("property name at 0x%x: %w", off, err)
		}
		name, err := c.Ctx.NameAt(int(nameIdx))
		if err != nil {
			return nil, fmt.Errorf("property name at 0x%x: %w", off, err)
		}
		if strings.EqualFold(name, "None") {
			return out, nil
		}

		info, err := s.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		kind := Kind(info & infoKindMask)
		arrayFlag := info&infoArrayFlag != 0
		var structIdx int32
		if kind == KindStruct {
			if structIdx, err = s.ReadCompact(); err != nil {
				return nil, fmt.Errorf("property %s: struct name: %w", name, err)
			}
		}
		size, err := readSize(s, (info>>infoSizeShift)&infoSizeMask)
		if err != nil {
			return nil, fmt.Errorf("property %s: size: %w", name, err)
		}
		slot := 0
		if arrayFlag && kind != KindBool {
			idx, err := s.ReadCompact()
			if err != nil {
				return nil, fmt.Errorf("property %s: array index: %w", name, err)
			}
			slot = int(idx)
		}

		if !haveField {
			fields, err = c.Schema.Fields(class)
			if err != nil && !errors.Is(err, ufmt.ErrNotFound) {
				return nil, fmt.Errorf("fields of %s: %w", class, err)
			}
			haveField = true
		}
		d := Find(fields, name)
		if d == nil || d.Kind.Wire() != kind.Wire() || slot < 0 || slot >= d.Dim() {
			if err := c.unknown(s, off, class, name, kind, slot, size); err != nil {
				return nil, err
			}
			continue
		}

		start := s.Position()
		var x any
		if kind == KindBool {
			if err := s.Skip(size); err != nil {
				return nil, fmt.Errorf("property %s: %w", name, err)
			}
			x = arrayFlag
		} else {
			x, err = c.readValue(s, d, depth)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", name, err)
			}
			if got := s.Position() - start; got != size {
				return nil, ufmt.Malformedf("property %s at 0x%x: payload %d bytes, declared %d", name, off, got, size)
			}
		}

		v := Lookup(out, d.Name)
		if v == nil {
			v = NewValue(d)
			v.nameIndex, v.structIndex, v.indexed = nameIdx, structIdx, true
			out = append(out, v)
		}
		v.Slots[slot] = x
	}
}

func (c *Codec) unknown(s *ufmt.Stream, off int, class, name string, kind Kind, slot, size int) error {
	if c.Mode == ufmt.ModeStrict {
		return fmt.Errorf("%s.%s (%s[%d]) at 0x%x: unknown property: %w", class, name, kind, slot, off, ufmt.ErrMalformed)
	}
	c.Diags.Addf(uint64(off), ufmt.DiagUnknownProperty, "%s.%s (%s[%d]): skipped %d bytes", class, name, kind, slot, size)
	if err := s.Skip(size); err != nil {
		return fmt.Errorf("skip property %s: %w", name, err)
	}
	return nil
}

// maxBoolElements bounds arrays of bools, whose elements take no bytes.
const maxBoolElements = 1 << 16

func (c *Codec) readValue(s *ufmt.Stream, d *Descriptor, depth int) (any, error) {
	switch d.Kind.Wire() {
	case KindByte:
		return s.ReadByte()
	case KindInt:
		return s.ReadInt32()
	case KindBool:
		// Array elements and struct fields carry no bool payload.
		return false, nil
	case KindFloat:
		return s.ReadFloat32()
	case KindObject:
		return c.readObject(s)
	case KindName:
		return c.readName(s)
	case KindStr:
		return s.ReadLine()
	case KindDelegate:
		obj, err := c.readObject(s)
		if err != nil {
			return nil, err
		}
		fn, err := c.readName(s)
		if err != nil {
			return nil, err
		}
		return Delegate{Object: obj, Function: fn}, nil
	case KindArray:
		if d.Inner == nil {
			return nil, ufmt.Malformedf("array %s has no inner property", d.Name)
		}
		n, err := s.ReadCompact()
		if err != nil {
			return nil, err
		}
		limit := s.Remaining()
		if d.Inner.Kind.Wire() == KindBool {
			limit = maxBoolElements
		}
		if n < 0 || int(n) > limit {
			return nil, ufmt.Malformedf("array %s: bad element count %d", d.Name, n)
		}
		arr := make(Array, n)
		for i := range arr {
			if arr[i], err = c.readValue(s, d.Inner, depth+1); err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return arr, nil
	case KindStruct:
		return c.readStruct(s, d.Struct, depth)
	}
	return nil, ufmt.Malformedf("unsupported property kind %s", d.Kind)
}

func (c *Codec) readObject(s *ufmt.Stream) (ObjectRef, error) {
	ref, err := s.ReadCompact()
	if err != nil {
		return ObjectRef{}, err
	}
	return ObjectRef{Index: ref, FullName: c.Ctx.ObjectFullName(ref)}, nil
}

func (c *Codec) readName(s *ufmt.Stream) (NameRef, error) {
	idx, err := s.ReadCompact()
	if err != nil {
		return NameRef{}, err
	}
	name, err := c.Ctx.NameAt(int(idx))
	if err != nil {
		return NameRef{}, err
	}
	return NameRef{Index: idx, Name: name}, nil
}

// binaryFields returns the field order of a fixed-layout struct, preferring
// the declared struct fields when the schema knows them.
func (c *Codec) binaryFields(structName string) []*Descriptor {
	builtin := binaryStructs[strings.ToLower(structName)]
	fields, err := c.Schema.Fields(structName)
	if err != nil || len(fields) != len(builtin) {
		return builtin
	}
	for _, f := range fields {
		if f.Kind != builtin[0].Kind {
			return builtin
		}
	}
	return fields
}

func (c *Codec) readStruct(s *ufmt.Stream, structName string, depth int) (Struct, error) {
	if !IsBinaryStruct(structName) {
		list, err := c.read(s, structName, depth+1)
		return Struct(list), err
	}
	fields := c.binaryFields(structName)
	out := make(Struct, 0, len(fields))
	for _, f := range fields {
		x, err := c.readValue(s, f, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", structName, f.Name, err)
		}
		v := NewValue(f)
		v.Slots[0] = x
		out = append(out, v)
	}
	return out, nil
}
