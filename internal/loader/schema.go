package loader

import (
	"errors"
	"fmt"
	"strings"

	"uepkg/internal/object"
	"uepkg/internal/property"
	"uepkg/internal/ufmt"
	"uepkg/internal/upkg"
)

// coreSupers is the class hierarchy of the core kinds, used when Core
// itself is not available.
var coreSupers = map[string]string{
	"core.field":              "Core.Object",
	"core.textbuffer":         "Core.Object",
	"core.struct":             "Core.Field",
	"core.property":           "Core.Field",
	"core.enum":               "Core.Field",
	"core.const":              "Core.Field",
	"core.function":           "Core.Struct",
	"core.state":              "Core.Struct",
	"core.class":              "Core.State",
	"core.byteproperty":       "Core.Property",
	"core.intproperty":        "Core.Property",
	"core.boolproperty":       "Core.Property",
	"core.floatproperty":      "Core.Property",
	"core.objectproperty":     "Core.Property",
	"core.classproperty":      "Core.ObjectProperty",
	"core.nameproperty":       "Core.Property",
	"core.strproperty":        "Core.Property",
	"core.arrayproperty":      "Core.Property",
	"core.structproperty":     "Core.Property",
	"core.delegateproperty":   "Core.Property",
	"core.fixedarrayproperty": "Core.Property",
	"core.mapproperty":        "Core.Property",
}

var structClasses = upkg.ClassIs("Core.Struct", "Core.State", "Core.Class", "Core.Function")

func (l *Loader) superOf(class string) string {
	if exp, ok := l.resolve(class, upkg.ClassIs(upkg.ClassClass)); ok {
		return exp.SuperFullName()
	}
	return coreSupers[strings.ToLower(class)]
}

// isSubclass walks child's superclass chain looking for parent. Results are
// memoized under "parent@child".
func (l *Loader) isSubclass(parent, child string) bool {
	if strings.EqualFold(parent, child) {
		return true
	}
	key := strings.ToLower(parent) + "@" + strings.ToLower(child)
	if v, ok := l.subclass[key]; ok {
		return v
	}
	l.subclass[key] = false
	super := l.superOf(child)
	v := super != "" && l.isSubclass(parent, super)
	l.subclass[key] = v
	return v
}

func (l *Loader) structLineage(o *object.Object) ([]*object.Object, error) {
	var chain []*object.Object
	seen := make(map[*object.Object]bool)
	for cur := o; cur != nil; {
		if seen[cur] {
			return nil, ufmt.Malformedf("%s: cyclic super chain", o.Entry.FullName)
		}
		seen[cur] = true
		chain = append(chain, cur)
		if cur.Field == nil {
			break
		}
		next, err := l.resolveRef(cur.Field.Super)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (l *Loader) lineage(className string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for c := className; c != ""; c = l.superOf(c) {
		k := strings.ToLower(c)
		if seen[k] {
			return nil, ufmt.Malformedf("%s: cyclic class hierarchy", className)
		}
		seen[k] = true
		out = append(out, c)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (l *Loader) defaults(className string) ([]*property.Value, error) {
	o, err := l.find(className, upkg.ClassIs(upkg.ClassClass))
	if err != nil {
		return nil, err
	}
	return o.Properties, nil
}

// propertyFields collects the property children of a struct, then those of
// its super chain. Lists are cached once the struct is fully decoded.
func (l *Loader) propertyFields(structName string) ([]*property.Descriptor, error) {
	key := strings.ToLower(structName)
	if f, ok := l.fields[key]; ok {
		return f, nil
	}
	st, err := l.find(structName, structClasses)
	if err != nil {
		return nil, err
	}
	if st.Struct == nil {
		return nil, fmt.Errorf("%s is a %s, not a struct: %w", structName, st.Kind, ufmt.ErrNotFound)
	}

	var out []*property.Descriptor
	ref := st.Struct.Children
	for n := 0; !ref.IsNone(); n++ {
		if n > 1<<16 {
			return nil, ufmt.Malformedf("%s: field chain does not terminate", structName)
		}
		child, err := l.resolveRef(ref)
		if err != nil {
			return nil, err
		}
		if child.Field == nil {
			break
		}
		if child.Kind.IsProperty() {
			d, err := l.descriptor(child, st.Entry.FullName, 0)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		ref = child.Field.Next
	}

	if super := st.Field.Super; !super.IsNone() {
		inherited, err := l.propertyFields(super.Name)
		switch {
		case err == nil:
			out = append(out, inherited...)
		case errors.Is(err, ufmt.ErrNotFound):
			l.log.Debug("superstruct fields unavailable", "struct", structName, "super", super.Name)
		default:
			return nil, err
		}
	}

	if !l.inflight[KeyOf(st.Entry.FullName, st.Entry.Class)] && !st.Placeholder {
		l.fields[key] = out
	}
	return out, nil
}

// descriptor builds the schema of a property object.
func (l *Loader) descriptor(o *object.Object, owner string, depth int) (*property.Descriptor, error) {
	if depth > l.maxDepth() {
		return nil, ufmt.Malformedf("%s: property nesting deeper than %d", o.Entry.FullName, l.maxDepth())
	}
	p := o.Property
	d := &property.Descriptor{
		Name:        o.Entry.ObjectName,
		Kind:        o.Kind.PropertyKind(),
		ArrayDim:    int(p.ArrayDim),
		ElementSize: int(p.ElementSize),
		Flags:       p.Flags,
		Category:    p.Category.Name,
		Owner:       owner,
	}
	switch o.Kind {
	case object.KindArrayProperty, object.KindFixedArrayProperty:
		inner, err := l.resolveRef(p.Inner)
		if err != nil {
			return nil, err
		}
		if inner != nil && inner.Property != nil {
			if d.Inner, err = l.descriptor(inner, owner, depth+1); err != nil {
				return nil, err
			}
		}
	case object.KindStructProperty:
		d.Struct = p.StructType.Name
	}
	return d, nil
}

// inlineSchema serves the property codec from inside the lane.
type inlineSchema struct{ l *Loader }

func (s inlineSchema) Fields(name string) ([]*property.Descriptor, error) {
	return s.l.propertyFields(name)
}

func (s inlineSchema) Lineage(name string) ([]string, error) { return s.l.lineage(name) }

func (s inlineSchema) Defaults(name string) ([]*property.Value, error) { return s.l.defaults(name) }

// laneSchema serves callers outside the lane.
type laneSchema struct{ l *Loader }

func (s laneSchema) Fields(name string) ([]*property.Descriptor, error) {
	return s.l.PropertyFields(name)
}

func (s laneSchema) Lineage(name string) ([]string, error) { return s.l.Lineage(name) }

func (s laneSchema) Defaults(name string) ([]*property.Value, error) { return s.l.Defaults(name) }
