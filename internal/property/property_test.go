package property

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"uepkg/internal/ufmt"
	"uepkg/internal/upkg"
)

type fakeSchema struct {
	fields   map[string][]*Descriptor
	supers   map[string]string
	defaults map[string][]*Value
}

func (f *fakeSchema) Fields(name string) ([]*Descriptor, error) {
	fs, ok := f.fields[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("struct %s: %w", name, ufmt.ErrNotFound)
	}
	return fs, nil
}

func (f *fakeSchema) Lineage(name string) ([]string, error) {
	var out []string
	for c := name; c != ""; c = f.supers[strings.ToLower(c)] {
		out = append([]string{c}, out...)
	}
	return out, nil
}

func (f *fakeSchema) Defaults(name string) ([]*Value, error) {
	return f.defaults[strings.ToLower(name)], nil
}

const (
	classActor  = "Engine.Actor"
	classPawn   = "Engine.Pawn"
	structRange = "Engine.Actor.Range"
)

func newSchema() *fakeSchema {
	intDesc := func(name string, dim int) *Descriptor {
		return &Descriptor{Name: name, Kind: KindInt, ArrayDim: dim, ElementSize: 4, Owner: classActor}
	}
	actor := []*Descriptor{
		intDesc("Health", 1),
		intDesc("Slots", 3),
		{Name: "bHidden", Kind: KindBool, ArrayDim: 1, Owner: classActor},
		{Name: "Speed", Kind: KindFloat, ArrayDim: 1, Owner: classActor},
		{Name: "Tag", Kind: KindStr, ArrayDim: 1, Owner: classActor},
		{Name: "Group", Kind: KindName, ArrayDim: 1, Owner: classActor},
		{Name: "Owner", Kind: KindObject, ArrayDim: 1, Owner: classActor},
		{Name: "Location", Kind: KindStruct, ArrayDim: 1, Struct: StructVector, Owner: classActor},
		{Name: "Range", Kind: KindStruct, ArrayDim: 1, Struct: structRange, Owner: classActor},
		{Name: "Items", Kind: KindArray, ArrayDim: 1, Inner: intDesc("Items", 1), Owner: classActor},
		{Name: "Lookup", Kind: KindMap, ArrayDim: 1, Owner: classActor},
	}
	rangeFields := []*Descriptor{
		{Name: "Min", Kind: KindFloat, ArrayDim: 1, Owner: structRange},
		{Name: "Max", Kind: KindFloat, ArrayDim: 1, Owner: structRange},
	}
	return &fakeSchema{
		fields: map[string][]*Descriptor{
			"engine.actor":       actor,
			"engine.pawn":        actor,
			"engine.actor.range": rangeFields,
		},
		supers: map[string]string{
			"engine.pawn":  classActor,
			"engine.actor": "Core.Object",
		},
		defaults: map[string][]*Value{},
	}
}

// fixture builds a property list covering every supported kind, returning
// the package supplying names and the encoded bytes.
func fixture(t *testing.T) (*upkg.Package, []byte) {
	t.Helper()
	b := upkg.NewBuilder("Engine")
	owner := b.ImportObject("Core.Object", upkg.ClassClass)
	n := func(s string) int32 { return b.Name(s) }

	w := ufmt.NewWriter()
	entry := func(name string, info byte, extra ...byte) {
		w.WriteCompact(n(name))
		w.WriteByte(info)
		w.Write(extra)
	}

	entry("Health", 0x22)
	w.WriteInt32(100)

	entry("Slots", 0xa2, 0x01)
	w.WriteInt32(7)

	entry("bHidden", 0xd3, 0x00)

	entry("Speed", 0x24)
	w.WriteFloat32(1.5)

	entry("Tag", 0x5d, 0x05)
	w.WriteLine("abc")

	entry("Group", 0x06)
	w.WriteCompact(n("Alpha"))

	entry("Owner", 0x05)
	w.WriteCompact(owner)

	entry("Location", 0x3a)
	w.WriteCompact(n("Vector"))
	w.WriteFloat32(1)
	w.WriteFloat32(2)
	w.WriteFloat32(3)

	entry("Range", 0x5a)
	w.WriteCompact(n("Range"))
	w.WriteByte(0x07)
	w.WriteCompact(n("Min"))
	w.WriteByte(0x24)
	w.WriteFloat32(0.5)
	w.WriteCompact(n("None"))

	entry("Items", 0x59, 0x09, 0x02)
	w.WriteInt32(1)
	w.WriteInt32(2)

	w.WriteCompact(n("None"))
	return b.Package(), w.Bytes()
}

func TestRead(t *testing.T) {
	pkg, data := fixture(t)
	c := &Codec{Ctx: pkg, Schema: newSchema()}
	s := ufmt.NewStream(data)
	list, err := c.Read(s, classActor)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", s.Remaining())
	}
	if len(list) != 10 {
		t.Fatalf("len(list) = %d, want 10", len(list))
	}

	tests := []struct {
		name string
		slot int
		want any
	}{
		{"Health", 0, int32(100)},
		{"slots", 1, int32(7)},
		{"Slots", 0, nil},
		{"bHidden", 0, true},
		{"Speed", 0, float32(1.5)},
		{"Tag", 0, "abc"},
		{"Group", 0, NameRef{Name: "Alpha"}},
		{"Owner", 0, ObjectRef{FullName: "Core.Object"}},
		{"Items", 0, Array{int32(1), int32(2)}},
	}
	for _, tt := range tests {
		v := Lookup(list, tt.name)
		if v == nil {
			t.Errorf("%s missing", tt.name)
			continue
		}
		if got := v.Get(tt.slot); !Equal(got, tt.want) {
			t.Errorf("%s[%d] = %#v, want %#v", tt.name, tt.slot, got, tt.want)
		}
	}

	loc, _ := Lookup(list, "Location").Get(0).(Struct)
	if len(loc) != 3 || Lookup(loc, "Z").Get(0) != float32(3) {
		t.Errorf("Location = %v, want X=1 Y=2 Z=3", loc)
	}
	rng, _ := Lookup(list, "Range").Get(0).(Struct)
	if len(rng) != 1 || Lookup(rng, "Min").Get(0) != float32(0.5) {
		t.Errorf("Range = %v, want Min=0.5", rng)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	pkg, data := fixture(t)
	c := &Codec{Ctx: pkg, Schema: newSchema()}
	list, err := c.Read(ufmt.NewStream(data), classActor)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	w := ufmt.NewWriter()
	if err := c.Write(w, list); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(w.Bytes(), data) {
		t.Errorf("Write(Read(b)) =\n%x\nwant\n%x", w.Bytes(), data)
	}
}

func TestWrite_EmptyList(t *testing.T) {
	pkg := &upkg.Package{Name: "Empty", Names: []upkg.Name{{Value: "A"}, {Value: "B"}, {Value: "None"}}}
	c := &Codec{Ctx: pkg, Schema: newSchema()}
	w := ufmt.NewWriter()
	if err := c.Write(w, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(w.Bytes(), []byte{0x02}) {
		t.Errorf("empty list = %x, want 02", w.Bytes())
	}
}

func TestWrite_NewValues(t *testing.T) {
	b := upkg.NewBuilder("Engine")
	for _, s := range []string{"Health", "bHidden", "Slots", "Location", "Vector"} {
		b.Name(s)
	}
	schema := newSchema()
	fields := schema.fields["engine.actor"]
	c := &Codec{Ctx: b.Package(), Schema: schema}

	health := NewValue(Find(fields, "Health"))
	if err := health.Set(0, int32(5)); err != nil {
		t.Fatal(err)
	}
	hidden := NewValue(Find(fields, "bHidden"))
	hidden.Slots[0] = false
	slots := NewValue(Find(fields, "Slots"))
	slots.Slots[2] = int32(9)
	if err := slots.Set(0, "wrong"); err == nil {
		t.Error("Set accepted a string in an int property")
	}

	w := ufmt.NewWriter()
	if err := c.Write(w, []*Value{health, hidden, slots}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := c.Read(ufmt.NewStream(w.Bytes()), classActor)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v := Lookup(got, "Health"); v == nil || v.Get(0) != int32(5) {
		t.Errorf("Health = %v, want 5", v)
	}
	if v := Lookup(got, "bHidden"); v == nil || v.Get(0) != false {
		t.Errorf("bHidden = %v, want false", v)
	}
	if v := Lookup(got, "Slots"); v == nil || v.Get(2) != int32(9) || v.Get(0) != nil {
		t.Errorf("Slots = %v, want [nil nil 9]", v)
	}
}

func TestRead_BoolInfoByte(t *testing.T) {
	// 0x23: kind 3 (Bool), size code 2 (4 bytes), bit 7 clear.
	b := upkg.NewBuilder("Engine")
	w := ufmt.NewWriter()
	w.WriteCompact(b.Name("bHidden"))
	w.WriteByte(0x23)
	w.WriteInt32(1)
	w.WriteCompact(b.Name("None"))

	c := &Codec{Ctx: b.Package(), Schema: newSchema()}
	s := ufmt.NewStream(w.Bytes())
	list, err := c.Read(s, classActor)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0 (4-byte payload skipped)", s.Remaining())
	}
	if v := Lookup(list, "bHidden"); v == nil || v.Get(0) != false {
		t.Errorf("bHidden = %v, want false (value comes from bit 7)", v)
	}
}

func TestRead_UnknownProperty(t *testing.T) {
	b := upkg.NewBuilder("Engine")
	w := ufmt.NewWriter()
	w.WriteCompact(b.Name("Mystery"))
	w.WriteByte(0x22)
	w.WriteInt32(42)
	w.WriteCompact(b.Name("Health"))
	w.WriteByte(0x22)
	w.WriteInt32(7)
	w.WriteCompact(b.Name("None"))

	var diags ufmt.Diags
	c := &Codec{Ctx: b.Package(), Schema: newSchema(), Diags: &diags}
	list, err := c.Read(ufmt.NewStream(w.Bytes()), classActor)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(list) != 1 || list[0].Get(0) != int32(7) {
		t.Errorf("list = %v, want only Health=7", list)
	}
	if diags.Len() != 1 || diags.Items()[0].Kind != ufmt.DiagUnknownProperty {
		t.Errorf("diags = %v, want one unknown_property", diags.Items())
	}

	c.Mode = ufmt.ModeStrict
	if _, err := c.Read(ufmt.NewStream(w.Bytes()), classActor); !errors.Is(err, ufmt.ErrMalformed) {
		t.Errorf("strict Read err = %v, want ErrMalformed", err)
	}
}

func TestRead_KindMismatchSkipped(t *testing.T) {
	b := upkg.NewBuilder("Engine")
	w := ufmt.NewWriter()
	w.WriteCompact(b.Name("Health"))
	w.WriteByte(0x24) // Float, but Health is an Int
	w.WriteFloat32(1)
	w.WriteCompact(b.Name("None"))

	var diags ufmt.Diags
	c := &Codec{Ctx: b.Package(), Schema: newSchema(), Diags: &diags}
	list, err := c.Read(ufmt.NewStream(w.Bytes()), classActor)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(list) != 0 || diags.Len() != 1 {
		t.Errorf("list = %v, diags = %v; want nothing decoded and one warning", list, diags.Items())
	}
}

func TestRead_SizeMismatch(t *testing.T) {
	b := upkg.NewBuilder("Engine")
	w := ufmt.NewWriter()
	w.WriteCompact(b.Name("Tag"))
	w.WriteByte(0x5d)
	w.WriteByte(0x09) // declared 9, actual 5
	w.WriteLine("abc")
	w.Write(make([]byte, 4))
	w.WriteCompact(b.Name("None"))

	c := &Codec{Ctx: b.Package(), Schema: newSchema()}
	if _, err := c.Read(ufmt.NewStream(w.Bytes()), classActor); !errors.Is(err, ufmt.ErrMalformed) {
		t.Errorf("Read err = %v, want ErrMalformed", err)
	}
}

func TestRead_BoolArrayCount(t *testing.T) {
	schema := newSchema()
	flags := &Descriptor{Name: "Flags", Kind: KindArray, ArrayDim: 1, Owner: classActor,
		Inner: &Descriptor{Name: "Flags", Kind: KindBool, ArrayDim: 1, Owner: classActor}}
	schema.fields["engine.actor"] = append(schema.fields["engine.actor"], flags)

	read := func(count int32) error {
		b := upkg.NewBuilder("Engine")
		payload := ufmt.NewWriter()
		payload.WriteCompact(count)
		w := ufmt.NewWriter()
		w.WriteCompact(b.Name("Flags"))
		w.WriteByte(byte(KindArray) | 5<<infoSizeShift)
		w.WriteByte(byte(payload.Len()))
		w.Write(payload.Bytes())
		w.WriteCompact(b.Name("None"))
		c := &Codec{Ctx: b.Package(), Schema: schema}
		_, err := c.Read(ufmt.NewStream(w.Bytes()), classActor)
		return err
	}

	if err := read(0x0fffffff); !errors.Is(err, ufmt.ErrMalformed) {
		t.Errorf("count 0x0fffffff: err = %v, want ErrMalformed", err)
	}
	if err := read(maxBoolElements + 1); !errors.Is(err, ufmt.ErrMalformed) {
		t.Errorf("count %d: err = %v, want ErrMalformed", maxBoolElements+1, err)
	}
	if err := read(3); err != nil {
		t.Errorf("count 3: %v", err)
	}
}

func TestWrite_Unsupported(t *testing.T) {
	b := upkg.NewBuilder("Engine")
	b.Name("Lookup")
	schema := newSchema()
	v := NewValue(Find(schema.fields["engine.actor"], "Lookup"))
	v.Slots[0] = int32(1)
	c := &Codec{Ctx: b.Package(), Schema: schema}
	if err := c.Write(ufmt.NewWriter(), []*Value{v}); !errors.Is(err, ufmt.ErrUnsupported) {
		t.Errorf("Write(Map) err = %v, want ErrUnsupported", err)
	}
}

func TestSizeCode(t *testing.T) {
	tests := []struct {
		n    int
		want byte
	}{
		{1, 0}, {2, 1}, {4, 2}, {12, 3}, {16, 4},
		{0, 5}, {3, 5}, {255, 5}, {256, 6}, {0xffff, 6}, {0x10000, 7},
	}
	for _, tt := range tests {
		if got := sizeCode(tt.n); got != tt.want {
			t.Errorf("sizeCode(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestDefaults(t *testing.T) {
	pkg, data := fixture(t)
	schema := newSchema()
	c := &Codec{Ctx: pkg, Schema: schema}
	fields := schema.fields["engine.actor"]

	health := NewValue(Find(fields, "Health"))
	health.Slots[0] = int32(100)
	rng := NewValue(Find(fields, "Range"))
	rng.Slots[0] = Struct{
		&Value{Name: "Min", Desc: schema.fields["engine.actor.range"][0], Slots: []any{float32(0.5)}},
		&Value{Name: "Max", Desc: schema.fields["engine.actor.range"][1], Slots: []any{float32(2)}},
	}
	schema.defaults["engine.actor"] = []*Value{health, rng}

	got, err := DefaultValue(schema, Find(fields, "Health"), classPawn, 0)
	if err != nil || got != int32(100) {
		t.Errorf("DefaultValue(Pawn.Health) = %v, %v; want 100", got, err)
	}
	got, err = DefaultValue(schema, Find(fields, "Speed"), classPawn, 0)
	if err != nil || got != float32(0) {
		t.Errorf("DefaultValue(Pawn.Speed) = %v, %v; want 0", got, err)
	}
	got, err = DefaultValue(schema, Find(fields, "Location"), classPawn, 0)
	if st, ok := got.(Struct); err != nil || !ok || len(st) != 3 {
		t.Errorf("DefaultValue(Pawn.Location) = %v, %v; want zero vector", got, err)
	}

	list, err := c.Read(ufmt.NewStream(data), classPawn)
	if err != nil {
		t.Fatal(err)
	}
	pruned, err := RemoveDefaults(schema, classPawn, list)
	if err != nil {
		t.Fatalf("RemoveDefaults: %v", err)
	}
	for _, gone := range []string{"Health", "Range"} {
		if Lookup(pruned, gone) != nil {
			t.Errorf("%s survived RemoveDefaults", gone)
		}
	}
	for _, kept := range []string{"Speed", "Location", "Tag", "Items", "bHidden"} {
		if Lookup(pruned, kept) == nil {
			t.Errorf("%s removed by RemoveDefaults", kept)
		}
	}
	if Lookup(list, "Health") == nil {
		t.Error("RemoveDefaults modified its input")
	}
}

func TestFlagsString(t *testing.T) {
	f := FlagEdit | FlagNet | Flags(0x80000000)
	if got := f.String(); got != "Edit|Net|0x80000000" {
		t.Errorf("Flags.String() = %q", got)
	}
}

func TestFormat(t *testing.T) {
	loc := Struct{
		{Name: "X", Slots: []any{float32(1.5)}},
		{Name: "Y", Slots: []any{float32(-2)}},
	}
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{int32(7), "7"},
		{uint8(3), "3"},
		{true, "True"},
		{float32(0.25), "0.25"},
		{"a \"b\"", `"a \"b\""`},
		{NameRef{Name: "Walking"}, "Walking"},
		{ObjectRef{FullName: "Engine.Pawn"}, "Engine.Pawn"},
		{Delegate{Object: ObjectRef{FullName: "Engine.Pawn"}, Function: NameRef{Name: "Touch"}}, "Engine.Pawn.Touch"},
		{loc, "(X=1.5,Y=-2)"},
		{Array{int32(1), int32(2)}, "(1,2)"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}

	v := &Value{Name: "Slots", Slots: []any{int32(1), nil, int32(3)}}
	got := v.Assignments()
	if len(got) != 2 || got[0] != "Slots[0]=1" || got[1] != "Slots[2]=3" {
		t.Errorf("Assignments = %v", got)
	}
}
