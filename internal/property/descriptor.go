// Package property implements the tagged property list format: the
// self-describing encoding of an object's field values against the field
// descriptors of its class.
package property

import (
	"fmt"
	"strings"
)

// Kind is the property kind ordinal stored in bits 0-3 of the info byte.
type Kind uint8

const (
	KindNone Kind = iota
	KindByte
	KindInt
	KindBool
	KindFloat
	KindObject
	KindName
	KindDelegate
	KindClass
	KindArray
	KindStruct
	KindVector  // legacy alias of KindStruct
	KindRotator // legacy alias of KindStruct
	KindStr
	KindMap
	KindFixedArray
)

var kindNames = [...]string{
	"None", "Byte", "Int", "Bool", "Float", "Object", "Name", "Delegate",
	"Class", "Array", "Struct", "Vector", "Rotator", "Str", "Map", "FixedArray",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Wire returns the kind written to the info byte for a descriptor of kind k.
// Class properties travel as Object; the legacy struct aliases as Struct.
func (k Kind) Wire() Kind {
	switch k {
	case KindClass:
		return KindObject
	case KindVector, KindRotator:
		return KindStruct
	}
	return k
}

// Flags is the property flag bitset.
type Flags uint32

const (
	FlagEdit             Flags = 0x00000001
	FlagConst            Flags = 0x00000002
	FlagInput            Flags = 0x00000004
	FlagExportObject     Flags = 0x00000008
	FlagOptionalParm     Flags = 0x00000010
	FlagNet              Flags = 0x00000020
	FlagConstRef         Flags = 0x00000040
	FlagParm             Flags = 0x00000080
	FlagOutParm          Flags = 0x00000100
	FlagSkipParm         Flags = 0x00000200
	FlagReturnParm       Flags = 0x00000400
	FlagCoerceParm       Flags = 0x00000800
	FlagNative           Flags = 0x00001000
	FlagTransient        Flags = 0x00002000
	FlagConfig           Flags = 0x00004000
	FlagLocalized        Flags = 0x00008000
	FlagTravel           Flags = 0x00010000
	FlagEditConst        Flags = 0x00020000
	FlagGlobalConfig     Flags = 0x00040000
	FlagOnDemand         Flags = 0x00100000
	FlagNew              Flags = 0x00200000
	FlagNeedCtorLink     Flags = 0x00400000
	FlagEditInline       Flags = 0x04000000
	FlagEdFindable       Flags = 0x08000000
	FlagEditInlineUse    Flags = 0x10000000
	FlagDeprecated       Flags = 0x20000000
	FlagEditInlineNotify Flags = 0x40000000
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagEdit, "Edit"}, {FlagConst, "Const"}, {FlagInput, "Input"},
	{FlagExportObject, "ExportObject"}, {FlagOptionalParm, "OptionalParm"},
	{FlagNet, "Net"}, {FlagConstRef, "ConstRef"}, {FlagParm, "Parm"},
	{FlagOutParm, "OutParm"}, {FlagSkipParm, "SkipParm"}, {FlagReturnParm, "ReturnParm"},
	{FlagCoerceParm, "CoerceParm"}, {FlagNative, "Native"}, {FlagTransient, "Transient"},
	{FlagConfig, "Config"}, {FlagLocalized, "Localized"}, {FlagTravel, "Travel"},
	{FlagEditConst, "EditConst"}, {FlagGlobalConfig, "GlobalConfig"},
	{FlagOnDemand, "OnDemand"}, {FlagNew, "New"}, {FlagNeedCtorLink, "NeedCtorLink"},
	{FlagEditInline, "EditInline"}, {FlagEdFindable, "EdFindable"},
	{FlagEditInlineUse, "EditInlineUse"}, {FlagDeprecated, "Deprecated"},
	{FlagEditInlineNotify, "EditInlineNotify"},
}

func (f Flags) String() string {
	var parts []string
	rest := f
	for _, fn := range flagNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
			rest &^= fn.f
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Descriptor is the static schema of one class or struct field.
type Descriptor struct {
	Name        string      `json:"name"`
	Kind        Kind        `json:"kind"`
	ArrayDim    int         `json:"array_dim"`
	ElementSize int         `json:"element_size"`
	Flags       Flags       `json:"flags"`
	Category    string      `json:"category,omitempty"`
	Inner       *Descriptor `json:"inner,omitempty"`  // KindArray element
	Struct      string      `json:"struct,omitempty"` // KindStruct full name
	Owner       string      `json:"owner,omitempty"`  // declaring struct/class full name
}

// Dim returns the number of slots, at least 1.
func (d *Descriptor) Dim() int {
	if d.ArrayDim < 1 {
		return 1
	}
	return d.ArrayDim
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s %s[%d]", d.Kind, d.Name, d.Dim())
}

// Find returns the descriptor named name (case-insensitive), or nil.
func Find(fields []*Descriptor, name string) *Descriptor {
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// Full names of the structs with a fixed binary layout.
const (
	StructVector  = "Core.Object.Vector"
	StructRotator = "Core.Object.Rotator"
	StructColor   = "Core.Object.Color"
)

func scalarFields(owner string, kind Kind, size int, names ...string) []*Descriptor {
	out := make([]*Descriptor, len(names))
	for i, n := range names {
		out[i] = &Descriptor{Name: n, Kind: kind, ArrayDim: 1, ElementSize: size, Owner: owner}
	}
	return out
}

var binaryStructs = map[string][]*Descriptor{
	strings.ToLower(StructVector):  scalarFields(StructVector, KindFloat, 4, "X", "Y", "Z"),
	strings.ToLower(StructRotator): scalarFields(StructRotator, KindInt, 4, "Pitch", "Yaw", "Roll"),
	strings.ToLower(StructColor):   scalarFields(StructColor, KindByte, 1, "B", "G", "R", "A"),
}

// IsBinaryStruct reports whether the named struct uses a fixed binary layout
// instead of a nested property list.
func IsBinaryStruct(name string) bool {
	_, ok := binaryStructs[strings.ToLower(name)]
	return ok
}
