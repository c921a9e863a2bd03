// Package object defines the decoded form of package exports: a kind tag with
// per-kind data, and the field layout tables that read and write each kind.
package object

import (
	"fmt"
	"strings"

	"uepkg/internal/bytecode"
	"uepkg/internal/property"
)

// Kind is the decoding strategy of an object, derived from its class.
type Kind uint8

const (
	KindObject Kind = iota
	KindField
	KindProperty
	KindByteProperty
	KindIntProperty
	KindBoolProperty
	KindFloatProperty
	KindObjectProperty
	KindClassProperty
	KindNameProperty
	KindStrProperty
	KindArrayProperty
	KindStructProperty
	KindDelegateProperty
	KindFixedArrayProperty
	KindMapProperty
	KindStruct
	KindFunction
	KindState
	KindClass
	KindEnum
	KindConst
	KindTextBuffer
)

var kindNames = [...]string{
	"Object", "Field", "Property", "ByteProperty", "IntProperty", "BoolProperty",
	"FloatProperty", "ObjectProperty", "ClassProperty", "NameProperty", "StrProperty",
	"ArrayProperty", "StructProperty", "DelegateProperty", "FixedArrayProperty",
	"MapProperty", "Struct", "Function", "State", "Class", "Enum", "Const", "TextBuffer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsProperty reports whether k is Property or one of its subkinds.
func (k Kind) IsProperty() bool { return k >= KindProperty && k <= KindMapProperty }

// IsStruct reports whether k is Struct or derives from it.
func (k Kind) IsStruct() bool { return k >= KindStruct && k <= KindClass }

// IsField reports whether k derives from Field.
func (k Kind) IsField() bool { return k >= KindField && k <= KindConst }

// PropertyKind maps a property object kind to the property value kind it
// declares.
func (k Kind) PropertyKind() property.Kind {
	switch k {
	case KindByteProperty:
		return property.KindByte
	case KindIntProperty:
		return property.KindInt
	case KindBoolProperty:
		return property.KindBool
	case KindFloatProperty:
		return property.KindFloat
	case KindObjectProperty:
		return property.KindObject
	case KindClassProperty:
		return property.KindClass
	case KindNameProperty:
		return property.KindName
	case KindStrProperty:
		return property.KindStr
	case KindArrayProperty:
		return property.KindArray
	case KindStructProperty:
		return property.KindStruct
	case KindDelegateProperty:
		return property.KindDelegate
	case KindFixedArrayProperty:
		return property.KindFixedArray
	case KindMapProperty:
		return property.KindMap
	}
	return property.KindNone
}

var coreKinds = map[string]Kind{
	"core.object":             KindObject,
	"core.field":              KindField,
	"core.property":           KindProperty,
	"core.byteproperty":       KindByteProperty,
	"core.intproperty":        KindIntProperty,
	"core.boolproperty":       KindBoolProperty,
	"core.floatproperty":      KindFloatProperty,
	"core.objectproperty":     KindObjectProperty,
	"core.classproperty":      KindClassProperty,
	"core.nameproperty":       KindNameProperty,
	"core.strproperty":        KindStrProperty,
	"core.arrayproperty":      KindArrayProperty,
	"core.structproperty":     KindStructProperty,
	"core.delegateproperty":   KindDelegateProperty,
	"core.fixedarrayproperty": KindFixedArrayProperty,
	"core.mapproperty":        KindMapProperty,
	"core.struct":             KindStruct,
	"core.function":           KindFunction,
	"core.state":              KindState,
	"core.class":              KindClass,
	"core.enum":               KindEnum,
	"core.const":              KindConst,
	"core.textbuffer":         KindTextBuffer,
}

// KindOf returns the kind registered for a full class name.
func KindOf(fullClassName string) (Kind, bool) {
	k, ok := coreKinds[strings.ToLower(fullClassName)]
	return k, ok
}

// Ref is a reference to another object: the package-local index plus the
// resolved full name and class, which form its cache key.
type Ref struct {
	Index int32  `json:"index"`
	Name  string `json:"name,omitempty"`
	Class string `json:"class,omitempty"`
}

// IsNone reports whether r is the null reference.
func (r Ref) IsNone() bool { return r.Index == 0 }

func (r Ref) String() string {
	if r.IsNone() {
		return "None"
	}
	return r.Name
}

// ObjectName returns the last segment of the referenced object's full name.
func (r Ref) ObjectName() string {
	if r.IsNone() {
		return "None"
	}
	if i := strings.LastIndexByte(r.Name, '.'); i >= 0 {
		return r.Name[i+1:]
	}
	return r.Name
}

// EntryInfo is the package entry an object was decoded from.
type EntryInfo struct {
	Package    string `json:"package"`
	Ref        int32  `json:"ref"`
	ObjectName string `json:"object_name"`
	FullName   string `json:"full_name"`
	Class      string `json:"class"`
	Super      string `json:"super,omitempty"`
	Flags      Flags  `json:"flags"`
	Offset     int32  `json:"offset"`
	Size       int32  `json:"size"`
}

// StateFrame is the script execution position of an object with FlagHasStack.
type StateFrame struct {
	Node         Ref   `json:"node"`
	StateNode    Ref   `json:"state_node"`
	ProbeMask    int64 `json:"probe_mask"`
	LatentAction int32 `json:"latent_action"`
	Offset       int32 `json:"offset"`
}

// Object is one decoded export. Exactly the data pointers matching Kind and
// its base kinds are set: a Function has Field, Struct and Function.
type Object struct {
	Kind        Kind              `json:"kind"`
	Entry       EntryInfo         `json:"entry"`
	Frame       *StateFrame       `json:"frame,omitempty"`
	Properties  []*property.Value `json:"properties,omitempty"`
	Unread      []byte            `json:"unread,omitempty"`
	Placeholder bool              `json:"placeholder,omitempty"`

	Field      *FieldData      `json:"field,omitempty"`
	Property   *PropertyData   `json:"property,omitempty"`
	Struct     *StructData     `json:"struct,omitempty"`
	Function   *FunctionData   `json:"function,omitempty"`
	State      *StateData      `json:"state,omitempty"`
	Class      *ClassData      `json:"class,omitempty"`
	Enum       *EnumData       `json:"enum,omitempty"`
	Const      *ConstData      `json:"const,omitempty"`
	TextBuffer *TextBufferData `json:"text_buffer,omitempty"`
}

// New returns an empty object of kind k with the data of k and its base
// kinds allocated.
func New(k Kind, entry EntryInfo) *Object {
	o := &Object{Kind: k, Entry: entry}
	if k.IsField() {
		o.Field = &FieldData{}
	}
	switch {
	case k.IsProperty():
		o.Property = &PropertyData{}
	case k.IsStruct():
		o.Struct = &StructData{}
	}
	switch k {
	case KindFunction:
		o.Function = &FunctionData{}
	case KindState, KindClass:
		o.State = &StateData{}
	}
	switch k {
	case KindClass:
		o.Class = &ClassData{}
	case KindEnum:
		o.Enum = &EnumData{}
	case KindConst:
		o.Const = &ConstData{}
	case KindTextBuffer:
		o.TextBuffer = &TextBufferData{}
	}
	return o
}

func (o *Object) String() string {
	return fmt.Sprintf("%s[%s]", o.Entry.FullName, o.Kind)
}

// FieldData is shared by every Field-derived kind.
type FieldData struct {
	Super Ref `json:"super"`
	Next  Ref `json:"next"`
}

// PropertyData describes a declared property. Which references are used
// depends on the property kind.
type PropertyData struct {
	ArrayDim          uint16           `json:"array_dim"`
	ElementSize       uint16           `json:"element_size"`
	Flags             property.Flags   `json:"flags"`
	Category          property.NameRef `json:"category"`
	ReplicationOffset uint16           `json:"replication_offset,omitempty"`

	Enum       Ref   `json:"enum,omitzero"`        // ByteProperty
	ObjectType Ref   `json:"object_type,omitzero"` // ObjectProperty, ClassProperty
	MetaClass  Ref   `json:"meta_class,omitzero"`  // ClassProperty
	Inner      Ref   `json:"inner,omitzero"`       // ArrayProperty, FixedArrayProperty
	StructType Ref   `json:"struct_type,omitzero"` // StructProperty
	Function   Ref   `json:"function,omitzero"`    // DelegateProperty
	Count      int32 `json:"count,omitempty"`      // FixedArrayProperty
	Key        Ref   `json:"key,omitzero"`         // MapProperty
	Value      Ref   `json:"value,omitzero"`       // MapProperty
}

// StructData is shared by Struct, Function, State and Class.
type StructData struct {
	ScriptText   Ref               `json:"script_text"`
	Children     Ref               `json:"children"`
	FriendlyName property.NameRef  `json:"friendly_name"`
	CppText      Ref               `json:"cpp_text"`
	Line         int32             `json:"line"`
	TextPos      int32             `json:"text_pos"`
	ScriptSize   int32             `json:"script_size"`
	Script       []*bytecode.Token `json:"-"`
}

// FunctionData holds the fixed fields of a function.
type FunctionData struct {
	NativeIndex        uint16        `json:"native_index"`
	OperatorPrecedence uint8         `json:"operator_precedence"`
	Flags              FunctionFlags `json:"flags"`
	ReplicationOffset  uint16        `json:"replication_offset,omitempty"`
}

// StateData is shared by State and Class.
type StateData struct {
	ProbeMask        int64      `json:"probe_mask"`
	IgnoreMask       int64      `json:"ignore_mask"`
	LabelTableOffset uint16     `json:"label_table_offset"`
	Flags            StateFlags `json:"flags"`
}

// ClassData holds the class-specific fields.
type ClassData struct {
	Flags          uint32             `json:"flags"`
	UUID           [16]byte           `json:"uuid"`
	Dependencies   []Dependency       `json:"dependencies,omitempty"`
	PackageImports []property.NameRef `json:"package_imports,omitempty"`
	Within         Ref                `json:"within"`
	ConfigName     property.NameRef   `json:"config_name"`
	HideCategories []property.NameRef `json:"hide_categories,omitempty"`
}

// Dependency is one entry of a class dependency list.
type Dependency struct {
	Class         Ref   `json:"class"`
	Deep          int32 `json:"deep"`
	ScriptTextCRC int32 `json:"script_text_crc"`
}

// EnumData lists enumerator names in ordinal order.
type EnumData struct {
	Values []property.NameRef `json:"values"`
}

// ConstData is a constant's source text.
type ConstData struct {
	Value string `json:"value"`
}

// TextBufferData is a script source text buffer.
type TextBufferData struct {
	Pos  int32  `json:"pos"`
	Top  int32  `json:"top"`
	Text string `json:"text"`
}
