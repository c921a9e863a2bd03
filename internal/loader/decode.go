package loader

import (
	"fmt"
	"strings"

	"uepkg/internal/object"
	"uepkg/internal/property"
	"uepkg/internal/ufmt"
	"uepkg/internal/upkg"
)

// waiter defers the default properties of a class until its superclass has
// finished its own.
type waiter struct {
	class string
	fired bool
	fn    func() error
	err   error
}

func (w *waiter) fire() {
	if w.fired {
		return
	}
	w.fired = true
	w.err = w.fn()
}

// await runs fn now if super is loaded (or empty), else queues it.
func (l *Loader) await(class, super string, fn func() error) *waiter {
	w := &waiter{class: class, fn: fn}
	k := strings.ToLower(super)
	if super == "" || l.loaded[k] {
		w.fire()
		return w
	}
	l.waiters[k] = append(l.waiters[k], w)
	return w
}

// markLoaded records that class has its default properties and fires every
// waiter queued on it.
func (l *Loader) markLoaded(class string) {
	k := strings.ToLower(class)
	l.loaded[k] = true
	ws := l.waiters[k]
	delete(l.waiters, k)
	for _, w := range ws {
		if w.fired {
			continue
		}
		w.fire()
		if w.err != nil {
			l.log.Error("deferred class properties failed", "class", w.class, "err", w.err)
			l.diags.Addf(0, ufmt.DiagInvalid, "%s: %v", w.class, w.err)
		}
	}
}

func (l *Loader) remember(p *upkg.Package) {
	if p != nil {
		l.known[strings.ToLower(p.Name)] = p
	}
}

func (l *Loader) invalidate(name string) {
	pkg := strings.ToLower(name)
	prefix := pkg + "."
	delete(l.known, pkg)
	for k := range l.cache {
		if strings.HasPrefix(k.Name, prefix) {
			delete(l.cache, k)
		}
	}
	for i, fn := range l.natives {
		if strings.EqualFold(fn.Entry.Package, name) {
			delete(l.natives, i)
		}
	}
	for c := range l.loaded {
		if strings.HasPrefix(c, prefix) {
			delete(l.loaded, c)
		}
	}
	clear(l.kinds)
	clear(l.fields)
	clear(l.subclass)
}

// resolve finds an export by full name, first in packages already seen,
// then through the environment.
func (l *Loader) resolve(fullName string, match upkg.ClassMatch) (*upkg.Export, bool) {
	pkg := fullName
	if i := strings.IndexByte(fullName, '.'); i >= 0 {
		pkg = fullName[:i]
	}
	if p, ok := l.known[strings.ToLower(pkg)]; ok {
		if e := p.FindExport(fullName, match); e != nil {
			return e, true
		}
	}
	if l.env == nil {
		return nil, false
	}
	e, ok := upkg.Resolve(l.env, fullName, match)
	if ok {
		l.remember(e.Package())
	}
	return e, ok
}

func (l *Loader) resolveExport(e upkg.Entry) (*upkg.Export, bool) {
	if e == nil {
		return nil, false
	}
	if exp, ok := e.(*upkg.Export); ok {
		return exp, true
	}
	return l.resolve(e.FullName(), upkg.ClassIs(e.FullClassName()))
}

func (l *Loader) find(fullName string, match upkg.ClassMatch) (*object.Object, error) {
	exp, ok := l.resolve(fullName, match)
	if !ok {
		return nil, fmt.Errorf("object %s: %w", fullName, ufmt.ErrNotFound)
	}
	return l.getOrCreate(exp)
}

// resolveRef materializes the object a decoded reference points to.
func (l *Loader) resolveRef(r object.Ref) (*object.Object, error) {
	if r.IsNone() {
		return nil, nil
	}
	if o, ok := l.cache[KeyOf(r.Name, r.Class)]; ok {
		return o, nil
	}
	exp, ok := l.resolve(r.Name, upkg.ClassIs(r.Class))
	if !ok {
		return l.placeholder(r.Name, r.Class), nil
	}
	return l.getOrCreate(exp)
}

func (l *Loader) getOrCreate(e upkg.Entry) (*object.Object, error) {
	if e == nil {
		return nil, fmt.Errorf("nil entry: %w", ufmt.ErrNotFound)
	}
	if o, ok := l.cache[KeyOf(e.FullName(), e.FullClassName())]; ok {
		return o, nil
	}
	l.remember(e.Package())
	exp, ok := l.resolveExport(e)
	if !ok {
		return l.placeholder(e.FullName(), e.FullClassName()), nil
	}
	key := KeyOf(exp.FullName(), exp.FullClassName())
	if o, ok := l.cache[key]; ok {
		return o, nil
	}

	kind := l.kindOf(exp.FullClassName(), 0)
	o := object.New(kind, object.EntryOf(exp))
	l.cache[key] = o
	l.inflight[key] = true
	err := l.decode(exp, o)
	delete(l.inflight, key)
	if err != nil {
		delete(l.cache, key)
		return nil, &DecodeError{Entry: exp.FullName(), Err: err}
	}
	return o, nil
}

// placeholder caches a stub for an entry no package provides. Placeholder
// classes count as loaded so their subclasses still decode.
func (l *Loader) placeholder(fullName, fullClass string) *object.Object {
	key := KeyOf(fullName, fullClass)
	if o, ok := l.cache[key]; ok {
		return o
	}
	kind, _ := object.KindOf(fullClass)
	name := fullName
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	o := object.New(kind, object.EntryInfo{ObjectName: name, FullName: fullName, Class: fullClass})
	o.Placeholder = true
	l.cache[key] = o
	l.log.Warn("unresolved reference, using placeholder", "entry", fullName, "class", fullClass)
	l.diags.Addf(0, ufmt.DiagPlaceholder, "%s (%s) not found", fullName, fullClass)
	if kind == object.KindClass {
		l.markLoaded(fullName)
	}
	return o
}

// kindOf maps a class to its decoding strategy, walking superclasses until
// a core class is found.
func (l *Loader) kindOf(fullClass string, depth int) object.Kind {
	if k, ok := object.KindOf(fullClass); ok {
		return k
	}
	key := strings.ToLower(fullClass)
	if k, ok := l.kinds[key]; ok {
		return k
	}
	k := object.KindObject
	if depth < l.maxDepth() {
		if exp, ok := l.resolve(fullClass, upkg.ClassIs(upkg.ClassClass)); ok {
			if super := exp.SuperFullName(); super != "" {
				k = l.kindOf(super, depth+1)
			}
		}
	}
	l.kinds[key] = k
	return k
}

func (l *Loader) maxDepth() int {
	if l.opts.MaxDepth > 0 {
		return l.opts.MaxDepth
	}
	return ufmt.DefaultMaxDepth
}

func (l *Loader) codec(p *upkg.Package) *property.Codec {
	return &property.Codec{Ctx: p, Schema: inlineSchema{l}, Diags: l.diags, Mode: l.opts.Mode, MaxDepth: l.opts.MaxDepth}
}

func (l *Loader) decode(exp *upkg.Export, o *object.Object) error {
	pkg := exp.Package()
	s := ufmt.NewStream(exp.Data())
	s.SetBase(int(exp.Offset))
	s.SetCharset(l.opts.Charset)
	d := &object.Decoder{S: s, Ctx: pkg}

	if object.Flags(exp.Flags)&object.FlagHasStack != 0 {
		f, err := object.ReadFrame(d)
		if err != nil {
			return fmt.Errorf("state frame: %w", err)
		}
		o.Frame = f
	}
	if o.Kind != object.KindClass {
		props, err := l.codec(pkg).Read(s, exp.FullClassName())
		if err != nil {
			return err
		}
		o.Properties = props
	}
	if err := object.DecodeFields(d, o); err != nil {
		return err
	}
	if o.Kind == object.KindFunction && o.Function.NativeIndex > 0 {
		l.registerNative(o)
	}
	if o.Kind != object.KindClass {
		return l.residue(o, s)
	}
	return l.decodeClassProperties(exp, o, s)
}

func (l *Loader) decodeClassProperties(exp *upkg.Export, o *object.Object, s *ufmt.Stream) error {
	name, super := exp.FullName(), exp.SuperFullName()
	w := l.await(name, super, func() error {
		props, err := l.codec(exp.Package()).Read(s, name)
		if err != nil {
			return err
		}
		o.Properties = props
		if err := l.residue(o, s); err != nil {
			return err
		}
		l.markLoaded(name)
		return nil
	})
	if !w.fired {
		if _, err := l.getOrCreate(exp.Super()); err != nil {
			w.fired = true
			return fmt.Errorf("superclass %s: %w", super, err)
		}
		if !w.fired {
			l.log.Debug("class properties deferred", "class", name, "super", super)
		}
	}
	return w.err
}

// residue keeps bytes left after decoding for diagnostics.
func (l *Loader) residue(o *object.Object, s *ufmt.Stream) error {
	if s.Remaining() == 0 {
		return nil
	}
	o.Unread = s.Rest()
	if l.opts.Mode == ufmt.ModeStrict {
		return ufmt.Malformedf("%d bytes left at 0x%x", len(o.Unread), s.Offset())
	}
	l.log.Warn("undecoded bytes after object", "entry", o.Entry.FullName, "class", o.Entry.Class, "offset", s.Offset(), "bytes", len(o.Unread))
	l.diags.Addf(uint64(s.Offset()), ufmt.DiagResidue, "%s: %d bytes left", o.Entry.FullName, len(o.Unread))
	return nil
}

func (l *Loader) registerNative(o *object.Object) {
	i := int(o.Function.NativeIndex)
	if prev, ok := l.natives[i]; ok && prev != o {
		l.log.Debug("native index re-registered", "index", i, "old", prev.Entry.FullName, "new", o.Entry.FullName)
	}
	l.natives[i] = o
}
