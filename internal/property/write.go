package property

import (
	"fmt"
	"strings"

	"uepkg/internal/ufmt"
)

// Write encodes list followed by the "None" terminator.
func (c *Codec) Write(w *ufmt.Writer, list []*Value) error {
	for _, v := range list {
		if err := c.writeEntry(w, v); err != nil {
			return fmt.Errorf("property %s: %w", v.Name, err)
		}
	}
	none, err := c.Ctx.NameIndex("None")
	if err != nil {
		return err
	}
	w.WriteCompact(int32(none))
	return nil
}

func (c *Codec) writeEntry(w *ufmt.Writer, v *Value) error {
	d := v.Desc
	if d == nil {
		return fmt.Errorf("no descriptor: %w", ufmt.ErrUnsupported)
	}
	kind := d.Kind.Wire()
	nameIdx, structIdx := v.nameIndex, v.structIndex
	if !v.indexed {
		i, err := c.Ctx.NameIndex(d.Name)
		if err != nil {
			return err
		}
		nameIdx = int32(i)
		if kind == KindStruct {
			i, err := c.Ctx.NameIndex(lastSegment(d.Struct))
			if err != nil {
				return err
			}
			structIdx = int32(i)
		}
	}

	for i, x := range v.Slots {
		if x == nil {
			continue
		}
		payload := ufmt.NewWriter()
		payload.SetCharset(w.Charset())
		var flag bool
		if kind == KindBool {
			b, ok := x.(bool)
			if !ok {
				return fmt.Errorf("slot %d: %T in bool property: %w", i, x, ufmt.ErrMalformed)
			}
			if i > 0 {
				return fmt.Errorf("bool slot %d: %w", i, ufmt.ErrUnsupported)
			}
			flag = b
		} else {
			flag = i > 0
			if err := c.writeValue(payload, d, x); err != nil {
				return fmt.Errorf("slot %d: %w", i, err)
			}
		}

		n := payload.Len()
		code := sizeCode(n)
		info := byte(kind) | code<<infoSizeShift
		if flag {
			info |= infoArrayFlag
		}
		w.WriteCompact(nameIdx)
		w.WriteByte(info)
		if kind == KindStruct {
			w.WriteCompact(structIdx)
		}
		switch code {
		case 5:
			w.WriteByte(byte(n))
		case 6:
			w.WriteUint16(uint16(n))
		case 7:
			w.WriteInt32(int32(n))
		}
		if i > 0 {
			w.WriteCompact(int32(i))
		}
		w.Write(payload.Bytes())
	}
	return nil
}

func (c *Codec) writeValue(w *ufmt.Writer, d *Descriptor, x any) error {
	mismatch := func() error {
		return fmt.Errorf("%T in %s property %s: %w", x, d.Kind, d.Name, ufmt.ErrMalformed)
	}
	switch d.Kind.Wire() {
	case KindByte:
		b, ok := x.(uint8)
		if !ok {
			return mismatch()
		}
		w.WriteByte(b)
	case KindInt:
		i, ok := x.(int32)
		if !ok {
			return mismatch()
		}
		w.WriteInt32(i)
	case KindBool:
		if _, ok := x.(bool); !ok {
			return mismatch()
		}
	case KindFloat:
		f, ok := x.(float32)
		if !ok {
			return mismatch()
		}
		w.WriteFloat32(f)
	case KindObject:
		o, ok := x.(ObjectRef)
		if !ok {
			return mismatch()
		}
		w.WriteCompact(o.Index)
	case KindName:
		n, ok := x.(NameRef)
		if !ok {
			return mismatch()
		}
		return c.writeName(w, n)
	case KindStr:
		s, ok := x.(string)
		if !ok {
			return mismatch()
		}
		w.WriteLine(s)
	case KindDelegate:
		dl, ok := x.(Delegate)
		if !ok {
			return mismatch()
		}
		w.WriteCompact(dl.Object.Index)
		return c.writeName(w, dl.Function)
	case KindArray:
		arr, ok := x.(Array)
		if !ok {
			return mismatch()
		}
		if d.Inner == nil {
			return fmt.Errorf("array %s has no inner property: %w", d.Name, ufmt.ErrMalformed)
		}
		w.WriteCompact(int32(len(arr)))
		for i, e := range arr {
			if err := c.writeValue(w, d.Inner, e); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	case KindStruct:
		st, ok := x.(Struct)
		if !ok {
			return mismatch()
		}
		return c.writeStruct(w, d.Struct, st)
	default:
		return fmt.Errorf("%s property %s: %w", d.Kind, d.Name, ufmt.ErrUnsupported)
	}
	return nil
}

func (c *Codec) writeName(w *ufmt.Writer, n NameRef) error {
	if name, err := c.Ctx.NameAt(int(n.Index)); err == nil && strings.EqualFold(name, n.Name) {
		w.WriteCompact(n.Index)
		return nil
	}
	i, err := c.Ctx.NameIndex(n.Name)
	if err != nil {
		return err
	}
	w.WriteCompact(int32(i))
	return nil
}

func (c *Codec) writeStruct(w *ufmt.Writer, structName string, st Struct) error {
	if !IsBinaryStruct(structName) {
		return c.Write(w, st)
	}
	for _, f := range c.binaryFields(structName) {
		fv := Lookup(st, f.Name)
		if fv == nil || fv.Get(0) == nil {
			return fmt.Errorf("%s.%s missing: %w", structName, f.Name, ufmt.ErrMalformed)
		}
		if err := c.writeValue(w, f, fv.Get(0)); err != nil {
			return fmt.Errorf("%s.%s: %w", structName, f.Name, err)
		}
	}
	return nil
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
