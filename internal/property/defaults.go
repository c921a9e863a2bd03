package property

import (
	"errors"
	"fmt"
	"strings"

	"uepkg/internal/ufmt"
)

// Zero returns the kind-specific zero value of one slot of d. Struct zeros
// are a full field list with every field zeroed.
func Zero(schema Schema, d *Descriptor) (any, error) {
	return zero(schema, d, 0)
}

func zero(schema Schema, d *Descriptor, depth int) (any, error) {
	switch d.Kind {
	case KindByte:
		return uint8(0), nil
	case KindInt:
		return int32(0), nil
	case KindBool:
		return false, nil
	case KindFloat:
		return float32(0), nil
	case KindObject, KindClass:
		return ObjectRef{FullName: "None"}, nil
	case KindName:
		return NameRef{Index: -1, Name: "None"}, nil
	case KindStr:
		return "", nil
	case KindDelegate:
		return Delegate{Object: ObjectRef{FullName: "None"}, Function: NameRef{Index: -1, Name: "None"}}, nil
	case KindArray:
		return Array{}, nil
	case KindStruct, KindVector, KindRotator:
		if depth > ufmt.DefaultMaxDepth {
			return nil, ufmt.Malformedf("struct %s nests deeper than %d", d.Struct, ufmt.DefaultMaxDepth)
		}
		fields, err := structFields(schema, d.Struct)
		if err != nil {
			return nil, err
		}
		out := make(Struct, 0, len(fields))
		for _, f := range fields {
			v := NewValue(f)
			for i := range v.Slots {
				if v.Slots[i], err = zero(schema, f, depth+1); err != nil {
					return nil, err
				}
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s property %s: %w", d.Kind, d.Name, ufmt.ErrUnsupported)
}

func structFields(schema Schema, name string) ([]*Descriptor, error) {
	fields, err := schema.Fields(name)
	if err == nil && len(fields) > 0 {
		return fields, nil
	}
	if b, ok := binaryStructs[strings.ToLower(name)]; ok {
		return b, nil
	}
	if err != nil && !errors.Is(err, ufmt.ErrNotFound) {
		return nil, err
	}
	return fields, nil
}

// DefaultValue returns the default of slot of d for an object of class owner:
// the value set by the nearest class in owner's lineage, else the zero value.
func DefaultValue(schema Schema, d *Descriptor, owner string, slot int) (any, error) {
	lineage, err := schema.Lineage(owner)
	if err != nil && !errors.Is(err, ufmt.ErrNotFound) {
		return nil, err
	}
	for i := len(lineage) - 1; i >= 0; i-- {
		defs, err := schema.Defaults(lineage[i])
		if err != nil {
			if errors.Is(err, ufmt.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if v := Lookup(defs, d.Name); v != nil && v.Get(slot) != nil {
			return v.Get(slot), nil
		}
	}
	return Zero(schema, d)
}

// RemoveDefaults returns list without the slots that equal their default for
// an object of class owner. Values left with no slots are dropped; struct
// values are pruned field by field and dropped when nothing remains.
// Fixed-layout structs are kept whole unless they equal the default exactly.
// list is not modified.
func RemoveDefaults(schema Schema, owner string, list []*Value) ([]*Value, error) {
	var out []*Value
	for _, v := range list {
		kept := &Value{Desc: v.Desc, Name: v.Name, Slots: make([]any, len(v.Slots)),
			nameIndex: v.nameIndex, structIndex: v.structIndex, indexed: v.indexed}
		for i, x := range v.Slots {
			if x == nil {
				continue
			}
			def, err := DefaultValue(schema, v.Desc, owner, i)
			if err != nil {
				return nil, fmt.Errorf("default of %s: %w", v.Name, err)
			}
			y, err := prune(schema, v.Desc, x, def, 0)
			if err != nil {
				return nil, err
			}
			kept.Slots[i] = y
		}
		if !kept.Empty() {
			out = append(out, kept)
		}
	}
	return out, nil
}

// prune returns nil when x equals def, otherwise x reduced to what differs.
func prune(schema Schema, d *Descriptor, x, def any, depth int) (any, error) {
	st, ok := x.(Struct)
	if !ok || IsBinaryStruct(d.Struct) {
		if Equal(x, def) {
			return nil, nil
		}
		return x, nil
	}
	if depth > ufmt.DefaultMaxDepth {
		return nil, ufmt.Malformedf("struct %s nests deeper than %d", d.Struct, ufmt.DefaultMaxDepth)
	}
	defStruct, _ := def.(Struct)
	var out Struct
	for _, fv := range st {
		kept := &Value{Desc: fv.Desc, Name: fv.Name, Slots: make([]any, len(fv.Slots)),
			nameIndex: fv.nameIndex, structIndex: fv.structIndex, indexed: fv.indexed}
		dv := Lookup(defStruct, fv.Name)
		for i, fx := range fv.Slots {
			if fx == nil {
				continue
			}
			var fdef any
			if dv != nil {
				fdef = dv.Get(i)
			}
			if fdef == nil {
				z, err := zero(schema, fv.Desc, depth+1)
				if err != nil {
					return nil, err
				}
				fdef = z
			}
			y, err := prune(schema, fv.Desc, fx, fdef, depth+1)
			if err != nil {
				return nil, err
			}
			kept.Slots[i] = y
		}
		if !kept.Empty() {
			out = append(out, kept)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
