package object

import (
	"fmt"
	"strings"

	"uepkg/internal/bytecode"
	"uepkg/internal/property"
	"uepkg/internal/ufmt"
	"uepkg/internal/upkg"
)

// Context resolves the name and object indices of one package.
// *upkg.Package implements it.
type Context interface {
	NameAt(i int) (string, error)
	NameIndex(name string) (int, error)
	Entry(ref int32) (upkg.Entry, error)
}

// ResolveRef builds the Ref for a package-local object index.
func ResolveRef(ctx Context, idx int32) (Ref, error) {
	e, err := ctx.Entry(idx)
	if err != nil || e == nil {
		return Ref{}, err
	}
	return Ref{Index: idx, Name: e.FullName(), Class: e.FullClassName()}, nil
}

// EntryOf describes a package entry. Imports have no flags, offset or size.
func EntryOf(e upkg.Entry) EntryInfo {
	info := EntryInfo{
		Ref:        e.Ref(),
		ObjectName: e.ObjectName(),
		FullName:   e.FullName(),
		Class:      e.FullClassName(),
	}
	if p := e.Package(); p != nil {
		info.Package = p.Name
	}
	if exp, ok := e.(*upkg.Export); ok {
		info.Super = exp.SuperFullName()
		info.Flags = Flags(exp.Flags)
		info.Offset = exp.Offset
		info.Size = exp.Size
	}
	return info
}

// Decoder reads object fields from an export's bytes.
type Decoder struct {
	S   *ufmt.Stream
	Ctx Context
}

func (d *Decoder) ref() (Ref, error) {
	idx, err := d.S.ReadCompact()
	if err != nil {
		return Ref{}, err
	}
	return ResolveRef(d.Ctx, idx)
}

func (d *Decoder) name() (property.NameRef, error) {
	idx, err := d.S.ReadCompact()
	if err != nil {
		return property.NameRef{}, err
	}
	s, err := d.Ctx.NameAt(int(idx))
	if err != nil {
		return property.NameRef{}, err
	}
	return property.NameRef{Index: idx, Name: s}, nil
}

func (d *Decoder) count() (int, error) {
	n, err := d.S.ReadCompact()
	if err != nil {
		return 0, err
	}
	if n < 0 || int(n) > d.S.Remaining() {
		return 0, ufmt.Malformedf("bad element count %d", n)
	}
	return int(n), nil
}

func (d *Decoder) names() ([]property.NameRef, error) {
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	out := make([]property.NameRef, n)
	for i := range out {
		if out[i], err = d.name(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Encoder writes object fields.
type Encoder struct {
	W   *ufmt.Writer
	Ctx Context
}

func (e *Encoder) ref(r Ref) { e.W.WriteCompact(r.Index) }

// name writes n's recorded index when it still names n, else looks n up.
func (e *Encoder) name(n property.NameRef) error {
	if s, err := e.Ctx.NameAt(int(n.Index)); err == nil && strings.EqualFold(s, n.Name) {
		e.W.WriteCompact(n.Index)
		return nil
	}
	i, err := e.Ctx.NameIndex(n.Name)
	if err != nil {
		return err
	}
	e.W.WriteCompact(int32(i))
	return nil
}

func (e *Encoder) names(list []property.NameRef) error {
	e.W.WriteCompact(int32(len(list)))
	for _, n := range list {
		if err := e.name(n); err != nil {
			return err
		}
	}
	return nil
}

// FieldCodec reads and writes one serialized field of a kind.
type FieldCodec struct {
	Name  string
	Read  func(d *Decoder, o *Object) error
	Write func(e *Encoder, o *Object) error
}

var layouts = make(map[Kind][]FieldCodec)

// Layout returns the fields serialized after the state frame and property
// list for kind k, base kinds first.
func Layout(k Kind) []FieldCodec { return layouts[k] }

// DecodeFields reads the layout of o.Kind.
func DecodeFields(d *Decoder, o *Object) error {
	for _, f := range layouts[o.Kind] {
		off := d.S.Offset()
		if err := f.Read(d, o); err != nil {
			return fmt.Errorf("%s.%s at 0x%x: %w", o.Kind, f.Name, off, err)
		}
	}
	return nil
}

// EncodeFields writes the layout of o.Kind.
func EncodeFields(e *Encoder, o *Object) error {
	for _, f := range layouts[o.Kind] {
		if err := f.Write(e, o); err != nil {
			return fmt.Errorf("%s.%s: %w", o.Kind, f.Name, err)
		}
	}
	return nil
}

// ReadFrame reads the state frame present on objects with FlagHasStack.
func ReadFrame(d *Decoder) (*StateFrame, error) {
	var f StateFrame
	var err error
	if f.Node, err = d.ref(); err != nil {
		return nil, err
	}
	if f.StateNode, err = d.ref(); err != nil {
		return nil, err
	}
	if f.ProbeMask, err = d.S.ReadInt64(); err != nil {
		return nil, err
	}
	if f.LatentAction, err = d.S.ReadInt32(); err != nil {
		return nil, err
	}
	if f.Offset, err = d.S.ReadCompact(); err != nil {
		return nil, err
	}
	return &f, nil
}

// WriteFrame writes f.
func WriteFrame(e *Encoder, f *StateFrame) {
	e.ref(f.Node)
	e.ref(f.StateNode)
	e.W.WriteInt64(f.ProbeMask)
	e.W.WriteInt32(f.LatentAction)
	e.W.WriteCompact(f.Offset)
}

func refField(name string, p func(*Object) *Ref) FieldCodec {
	return FieldCodec{
		Name: name,
		Read: func(d *Decoder, o *Object) (err error) {
			*p(o), err = d.ref()
			return err
		},
		Write: func(e *Encoder, o *Object) error {
			e.ref(*p(o))
			return nil
		},
	}
}

func nameField(name string, p func(*Object) *property.NameRef) FieldCodec {
	return FieldCodec{
		Name: name,
		Read: func(d *Decoder, o *Object) (err error) {
			*p(o), err = d.name()
			return err
		},
		Write: func(e *Encoder, o *Object) error { return e.name(*p(o)) },
	}
}

func namesField(name string, p func(*Object) *[]property.NameRef) FieldCodec {
	return FieldCodec{
		Name: name,
		Read: func(d *Decoder, o *Object) (err error) {
			*p(o), err = d.names()
			return err
		},
		Write: func(e *Encoder, o *Object) error { return e.names(*p(o)) },
	}
}

func u8Field(name string, p func(*Object) *uint8) FieldCodec {
	return FieldCodec{
		Name: name,
		Read: func(d *Decoder, o *Object) (err error) {
			*p(o), err = d.S.ReadByte()
			return err
		},
		Write: func(e *Encoder, o *Object) error { return e.W.WriteByte(*p(o)) },
	}
}

func u16Field(name string, p func(*Object) *uint16) FieldCodec {
	return FieldCodec{
		Name: name,
		Read: func(d *Decoder, o *Object) (err error) {
			*p(o), err = d.S.ReadUint16()
			return err
		},
		Write: func(e *Encoder, o *Object) error {
			e.W.WriteUint16(*p(o))
			return nil
		},
	}
}

func u32Field(name string, p func(*Object) *uint32) FieldCodec {
	return FieldCodec{
		Name: name,
		Read: func(d *Decoder, o *Object) (err error) {
			*p(o), err = d.S.ReadUint32()
			return err
		},
		Write: func(e *Encoder, o *Object) error {
			e.W.WriteUint32(*p(o))
			return nil
		},
	}
}

func i32Field(name string, p func(*Object) *int32) FieldCodec {
	return FieldCodec{
		Name: name,
		Read: func(d *Decoder, o *Object) (err error) {
			*p(o), err = d.S.ReadInt32()
			return err
		},
		Write: func(e *Encoder, o *Object) error {
			e.W.WriteInt32(*p(o))
			return nil
		},
	}
}

func i64Field(name string, p func(*Object) *int64) FieldCodec {
	return FieldCodec{
		Name: name,
		Read: func(d *Decoder, o *Object) (err error) {
			*p(o), err = d.S.ReadInt64()
			return err
		},
		Write: func(e *Encoder, o *Object) error {
			e.W.WriteInt64(*p(o))
			return nil
		},
	}
}

// when makes f conditional on a predicate over fields decoded before it.
func when(cond func(*Object) bool, f FieldCodec) FieldCodec {
	read, write := f.Read, f.Write
	f.Read = func(d *Decoder, o *Object) error {
		if !cond(o) {
			return nil
		}
		return read(d, o)
	}
	f.Write = func(e *Encoder, o *Object) error {
		if !cond(o) {
			return nil
		}
		return write(e, o)
	}
	return f
}

// scriptField reads the script byte size followed by that many bytes of
// bytecode. On write the size is recomputed from the tokens.
var scriptField = FieldCodec{
	Name: "Script",
	Read: func(d *Decoder, o *Object) error {
		size, err := d.S.ReadInt32()
		if err != nil {
			return err
		}
		if size < 0 || int(size) > d.S.Remaining() {
			return ufmt.Malformedf("script size %d exceeds %d remaining bytes", size, d.S.Remaining())
		}
		o.Struct.ScriptSize = size
		o.Struct.Script, err = bytecode.ReadScript(d.S, d.Ctx, int(size))
		return err
	},
	Write: func(e *Encoder, o *Object) error {
		e.W.WriteInt32(int32(bytecode.ScriptSize(o.Struct.Script, e.W.Charset())))
		return bytecode.WriteScript(e.W, o.Struct.Script)
	},
}

var classUUIDField = FieldCodec{
	Name: "UUID",
	Read: func(d *Decoder, o *Object) error {
		b, err := d.S.ReadBytes(16)
		if err == nil {
			copy(o.Class.UUID[:], b)
		}
		return err
	},
	Write: func(e *Encoder, o *Object) error {
		_, err := e.W.Write(o.Class.UUID[:])
		return err
	},
}

var dependenciesField = FieldCodec{
	Name: "Dependencies",
	Read: func(d *Decoder, o *Object) error {
		n, err := d.count()
		if err != nil {
			return err
		}
		deps := make([]Dependency, n)
		for i := range deps {
			if deps[i].Class, err = d.ref(); err != nil {
				return err
			}
			if deps[i].Deep, err = d.S.ReadInt32(); err != nil {
				return err
			}
			if deps[i].ScriptTextCRC, err = d.S.ReadInt32(); err != nil {
				return err
			}
		}
		o.Class.Dependencies = deps
		return nil
	},
	Write: func(e *Encoder, o *Object) error {
		e.W.WriteCompact(int32(len(o.Class.Dependencies)))
		for _, dep := range o.Class.Dependencies {
			e.ref(dep.Class)
			e.W.WriteInt32(dep.Deep)
			e.W.WriteInt32(dep.ScriptTextCRC)
		}
		return nil
	},
}

var constValueField = FieldCodec{
	Name: "Value",
	Read: func(d *Decoder, o *Object) (err error) {
		o.Const.Value, err = d.S.ReadLine()
		return err
	},
	Write: func(e *Encoder, o *Object) error {
		e.W.WriteLine(o.Const.Value)
		return nil
	},
}

var textField = FieldCodec{
	Name: "Text",
	Read: func(d *Decoder, o *Object) (err error) {
		o.TextBuffer.Text, err = d.S.ReadLine()
		return err
	},
	Write: func(e *Encoder, o *Object) error {
		e.W.WriteLine(o.TextBuffer.Text)
		return nil
	},
}

func join(parts ...[]FieldCodec) []FieldCodec {
	var out []FieldCodec
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func init() {
	field := []FieldCodec{
		refField("Super", func(o *Object) *Ref { return &o.Field.Super }),
		refField("Next", func(o *Object) *Ref { return &o.Field.Next }),
	}

	prop := join(field, []FieldCodec{
		u16Field("ArrayDim", func(o *Object) *uint16 { return &o.Property.ArrayDim }),
		u16Field("ElementSize", func(o *Object) *uint16 { return &o.Property.ElementSize }),
		u32Field("Flags", func(o *Object) *uint32 { return (*uint32)(&o.Property.Flags) }),
		nameField("Category", func(o *Object) *property.NameRef { return &o.Property.Category }),
		when(func(o *Object) bool { return o.Property.Flags&property.FlagNet != 0 },
			u16Field("ReplicationOffset", func(o *Object) *uint16 { return &o.Property.ReplicationOffset })),
	})
	objectType := refField("ObjectType", func(o *Object) *Ref { return &o.Property.ObjectType })
	inner := refField("Inner", func(o *Object) *Ref { return &o.Property.Inner })

	layouts[KindObject] = nil
	layouts[KindField] = field
	layouts[KindProperty] = prop
	for _, k := range []Kind{KindIntProperty, KindBoolProperty, KindFloatProperty, KindNameProperty, KindStrProperty} {
		layouts[k] = prop
	}
	layouts[KindByteProperty] = join(prop, []FieldCodec{
		refField("Enum", func(o *Object) *Ref { return &o.Property.Enum }),
	})
	layouts[KindObjectProperty] = join(prop, []FieldCodec{objectType})
	layouts[KindClassProperty] = join(prop, []FieldCodec{
		objectType,
		refField("MetaClass", func(o *Object) *Ref { return &o.Property.MetaClass }),
	})
	layouts[KindArrayProperty] = join(prop, []FieldCodec{inner})
	layouts[KindStructProperty] = join(prop, []FieldCodec{
		refField("Struct", func(o *Object) *Ref { return &o.Property.StructType }),
	})
	layouts[KindDelegateProperty] = join(prop, []FieldCodec{
		refField("Function", func(o *Object) *Ref { return &o.Property.Function }),
	})
	layouts[KindFixedArrayProperty] = join(prop, []FieldCodec{
		inner,
		i32Field("Count", func(o *Object) *int32 { return &o.Property.Count }),
	})
	layouts[KindMapProperty] = join(prop, []FieldCodec{
		refField("Key", func(o *Object) *Ref { return &o.Property.Key }),
		refField("Value", func(o *Object) *Ref { return &o.Property.Value }),
	})

	strct := join(field, []FieldCodec{
		refField("ScriptText", func(o *Object) *Ref { return &o.Struct.ScriptText }),
		refField("Children", func(o *Object) *Ref { return &o.Struct.Children }),
		nameField("FriendlyName", func(o *Object) *property.NameRef { return &o.Struct.FriendlyName }),
		refField("CppText", func(o *Object) *Ref { return &o.Struct.CppText }),
		i32Field("Line", func(o *Object) *int32 { return &o.Struct.Line }),
		i32Field("TextPos", func(o *Object) *int32 { return &o.Struct.TextPos }),
		scriptField,
	})
	layouts[KindStruct] = strct
	layouts[KindFunction] = join(strct, []FieldCodec{
		u16Field("NativeIndex", func(o *Object) *uint16 { return &o.Function.NativeIndex }),
		u8Field("OperatorPrecedence", func(o *Object) *uint8 { return &o.Function.OperatorPrecedence }),
		u32Field("Flags", func(o *Object) *uint32 { return (*uint32)(&o.Function.Flags) }),
		when(func(o *Object) bool { return o.Function.Flags&FuncNet != 0 },
			u16Field("ReplicationOffset", func(o *Object) *uint16 { return &o.Function.ReplicationOffset })),
	})
	state := join(strct, []FieldCodec{
		i64Field("ProbeMask", func(o *Object) *int64 { return &o.State.ProbeMask }),
		i64Field("IgnoreMask", func(o *Object) *int64 { return &o.State.IgnoreMask }),
		u16Field("LabelTableOffset", func(o *Object) *uint16 { return &o.State.LabelTableOffset }),
		u32Field("Flags", func(o *Object) *uint32 { return (*uint32)(&o.State.Flags) }),
	})
	layouts[KindState] = state
	layouts[KindClass] = join(state, []FieldCodec{
		u32Field("ClassFlags", func(o *Object) *uint32 { return &o.Class.Flags }),
		classUUIDField,
		dependenciesField,
		namesField("PackageImports", func(o *Object) *[]property.NameRef { return &o.Class.PackageImports }),
		refField("Within", func(o *Object) *Ref { return &o.Class.Within }),
		nameField("ConfigName", func(o *Object) *property.NameRef { return &o.Class.ConfigName }),
		namesField("HideCategories", func(o *Object) *[]property.NameRef { return &o.Class.HideCategories }),
	})

	layouts[KindEnum] = join(field, []FieldCodec{
		namesField("Values", func(o *Object) *[]property.NameRef { return &o.Enum.Values }),
	})
	layouts[KindConst] = join(field, []FieldCodec{constValueField})
	layouts[KindTextBuffer] = []FieldCodec{
		i32Field("Pos", func(o *Object) *int32 { return &o.TextBuffer.Pos }),
		i32Field("Top", func(o *Object) *int32 { return &o.TextBuffer.Top }),
		textField,
	}
}
