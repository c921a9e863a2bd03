package property

import (
	"fmt"
	"strconv"
	"strings"
)

// NameRef is a name-table reference.
type NameRef struct {
	Index int32  `json:"index"`
	Name  string `json:"name"`
}

// ObjectRef is an object reference; FullName is "None" for the null reference.
type ObjectRef struct {
	Index    int32  `json:"index"`
	FullName string `json:"full_name"`
}

// Delegate is an object and the name of a function on it.
type Delegate struct {
	Object   ObjectRef `json:"object"`
	Function NameRef   `json:"function"`
}

// Struct is the field list of a struct value.
type Struct []*Value

// Array is the element list of a dynamic array value.
type Array []any

// Value binds a descriptor to its slot contents. Each slot is nil (absent) or
// one of: uint8, int32, bool, float32, string, ObjectRef, NameRef, Delegate,
// Struct or Array, matching Desc.Kind.
type Value struct {
	Desc  *Descriptor `json:"-"`
	Name  string      `json:"name"`
	Slots []any       `json:"slots"`

	// Name-table indices seen on decode, reused on encode.
	nameIndex   int32
	structIndex int32
	indexed     bool
}

// NewValue returns an empty value with one absent slot per array element.
func NewValue(d *Descriptor) *Value {
	return &Value{Desc: d, Name: d.Name, Slots: make([]any, d.Dim())}
}

// Get returns slot i, or nil when it is absent or out of range.
func (v *Value) Get(i int) any {
	if i < 0 || i >= len(v.Slots) {
		return nil
	}
	return v.Slots[i]
}

// Set stores x in slot i after checking it agrees with the descriptor kind.
func (v *Value) Set(i int, x any) error {
	if i < 0 || i >= len(v.Slots) {
		return fmt.Errorf("property %s: slot %d out of range [0,%d)", v.Name, i, len(v.Slots))
	}
	if x != nil && !kindAccepts(v.Desc.Kind, x) {
		return fmt.Errorf("property %s: %T does not fit kind %s", v.Name, x, v.Desc.Kind)
	}
	v.Slots[i] = x
	return nil
}

// Empty reports whether every slot is absent.
func (v *Value) Empty() bool {
	for _, s := range v.Slots {
		if s != nil {
			return false
		}
	}
	return true
}

func kindAccepts(k Kind, x any) bool {
	switch x.(type) {
	case uint8:
		return k == KindByte
	case int32:
		return k == KindInt
	case bool:
		return k == KindBool
	case float32:
		return k == KindFloat
	case string:
		return k == KindStr
	case ObjectRef:
		return k == KindObject || k == KindClass
	case NameRef:
		return k == KindName
	case Delegate:
		return k == KindDelegate
	case Struct:
		return k.Wire() == KindStruct
	case Array:
		return k == KindArray
	}
	return false
}

// Lookup returns the value named name in list (case-insensitive), or nil.
func Lookup(list []*Value, name string) *Value {
	for _, v := range list {
		if strings.EqualFold(v.Name, name) {
			return v
		}
	}
	return nil
}

// Equal compares two slot contents. Object and name references compare by
// name, case-insensitively; structs compare field by field.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case ObjectRef:
		y, ok := b.(ObjectRef)
		return ok && strings.EqualFold(x.FullName, y.FullName)
	case NameRef:
		y, ok := b.(NameRef)
		return ok && strings.EqualFold(x.Name, y.Name)
	case Delegate:
		y, ok := b.(Delegate)
		return ok && Equal(x.Object, y.Object) && Equal(x.Function, y.Function)
	case Struct:
		y, ok := b.(Struct)
		if !ok || len(x) != len(y) {
			return false
		}
		for _, fv := range x {
			other := Lookup(y, fv.Name)
			if other == nil || len(other.Slots) != len(fv.Slots) {
				return false
			}
			for i := range fv.Slots {
				if !Equal(fv.Slots[i], other.Slots[i]) {
					return false
				}
			}
		}
		return true
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// Format renders slot contents in default-properties syntax: structs as
// (X=1,Y=2), arrays as (1,2), names and objects bare, strings quoted.
func Format(x any) string {
	switch v := x.(type) {
	case nil:
		return ""
	case string:
		return strconv.Quote(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case NameRef:
		return v.Name
	case ObjectRef:
		return v.FullName
	case Delegate:
		return v.Object.FullName + "." + v.Function.Name
	case Struct:
		var parts []string
		for _, fv := range v {
			parts = append(parts, fv.Assignments()...)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case Array:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = Format(e)
		}
		return "(" + strings.Join(parts, ",") + ")"
	}
	return fmt.Sprint(x)
}

// Assignments renders each present slot of v as Name=value, or
// Name[i]=value when v has more than one slot.
func (v *Value) Assignments() []string {
	var out []string
	for i, x := range v.Slots {
		if x == nil {
			continue
		}
		if len(v.Slots) > 1 {
			out = append(out, fmt.Sprintf("%s[%d]=%s", v.Name, i, Format(x)))
		} else {
			out = append(out, v.Name+"="+Format(x))
		}
	}
	return out
}
