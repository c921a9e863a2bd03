package loader

import (
	"fmt"

	"uepkg/internal/object"
	"uepkg/internal/ufmt"
	"uepkg/internal/upkg"
)

// encode writes o in the order decode reads it: state frame, property list
// (after the class fields for classes), per-kind fields.
func (l *Loader) encode(o *object.Object) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("nil object: %w", ufmt.ErrUnsupported)
	}
	if o.Placeholder {
		return nil, fmt.Errorf("%s is a placeholder: %w", o.Entry.FullName, ufmt.ErrUnsupported)
	}
	exp, ok := l.resolve(o.Entry.FullName, upkg.ClassIs(o.Entry.Class))
	if !ok {
		return nil, fmt.Errorf("export %s: %w", o.Entry.FullName, ufmt.ErrNotFound)
	}
	pkg := exp.Package()
	w := ufmt.NewWriter()
	w.SetCharset(l.opts.Charset)
	e := &object.Encoder{W: w, Ctx: pkg}
	codec := l.codec(pkg)

	if o.Frame != nil {
		object.WriteFrame(e, o.Frame)
	}
	if o.Kind != object.KindClass {
		if err := codec.Write(w, o.Properties); err != nil {
			return nil, err
		}
	}
	if err := object.EncodeFields(e, o); err != nil {
		return nil, err
	}
	if o.Kind == object.KindClass {
		if err := codec.Write(w, o.Properties); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}
