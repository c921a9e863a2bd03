// Package loader materializes package exports into decoded objects. All
// decoding runs on one goroutine: exported methods submit work to it and
// wait, while the decode code calls the unexported variants inline.
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"uepkg/internal/object"
	"uepkg/internal/property"
	"uepkg/internal/ufmt"
	"uepkg/internal/upkg"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("loader: closed")

// Key identifies a cached object: lower-cased full object and class names.
type Key struct {
	Name  string
	Class string
}

// KeyOf builds the cache key of an object.
func KeyOf(fullName, fullClass string) Key {
	return Key{Name: strings.ToLower(fullName), Class: strings.ToLower(fullClass)}
}

// DecodeError reports a failed decode of one entry.
type DecodeError struct {
	Entry string
	Err   error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Entry, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Options configures a Loader.
type Options struct {
	Log      *slog.Logger
	Mode     ufmt.Mode
	Charset  *ufmt.Charset
	MaxDepth int
}

// Loader owns the object cache and the state shared by every decode.
type Loader struct {
	env  upkg.Env
	opts Options
	log  *slog.Logger

	jobs      chan func()
	done      chan struct{}
	closeOnce sync.Once

	// Lane state. Touched only from the lane goroutine.
	cache    map[Key]*object.Object
	inflight map[Key]bool
	known    map[string]*upkg.Package
	kinds    map[string]object.Kind
	loaded   map[string]bool
	waiters  map[string][]*waiter
	natives  map[int]*object.Object
	subclass map[string]bool
	fields   map[string][]*property.Descriptor
	diags    *ufmt.Diags
}

// New starts a Loader resolving cross-package references through env.
func New(env upkg.Env, opts Options) *Loader {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Charset == nil {
		opts.Charset = ufmt.DefaultCharset
	}
	l := &Loader{
		env:      env,
		opts:     opts,
		log:      opts.Log,
		jobs:     make(chan func()),
		done:     make(chan struct{}),
		cache:    make(map[Key]*object.Object),
		inflight: make(map[Key]bool),
		known:    make(map[string]*upkg.Package),
		kinds:    make(map[string]object.Kind),
		loaded:   make(map[string]bool),
		waiters:  make(map[string][]*waiter),
		natives:  make(map[int]*object.Object),
		subclass: make(map[string]bool),
		fields:   make(map[string][]*property.Descriptor),
		diags:    &ufmt.Diags{},
	}
	go l.run()
	return l
}

func (l *Loader) run() {
	for {
		select {
		case job := <-l.jobs:
			job()
		case <-l.done:
			return
		}
	}
}

// submit runs fn on the lane and waits for it. A panic in fn is returned as
// an error and the lane keeps running.
func (l *Loader) submit(fn func() error) error {
	errc := make(chan error, 1)
	job := func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("loader: panic: %v", r)
			}
		}()
		errc <- fn()
	}
	select {
	case l.jobs <- job:
	case <-l.done:
		return ErrClosed
	}
	return <-errc
}

// Invalidate forgets package name: its cached objects, natives and loaded
// classes, every derived schema cache, and the environment's copy. Later
// lookups reopen the package.
func (l *Loader) Invalidate(name string) {
	l.submit(func() error {
		l.invalidate(name)
		return nil
	})
	if l.env != nil {
		l.env.Invalidate(name)
	}
}

// Close stops the lane. Later calls return ErrClosed.
func (l *Loader) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// GetOrCreate returns the object of e, decoding it on first use. Entries
// that resolve to no package yield a placeholder object.
func (l *Loader) GetOrCreate(e upkg.Entry) (*object.Object, error) {
	var o *object.Object
	err := l.submit(func() (err error) {
		o, err = l.getOrCreate(e)
		return err
	})
	return o, err
}

// Find returns the object named fullName whose class satisfies match,
// searching every package the environment knows. It fails with
// ufmt.ErrNotFound when nothing matches.
func (l *Loader) Find(fullName string, match upkg.ClassMatch) (*object.Object, error) {
	var o *object.Object
	err := l.submit(func() (err error) {
		o, err = l.find(fullName, match)
		return err
	})
	return o, err
}

// LoadAll decodes every export of p. Failed exports are skipped and their
// errors joined.
func (l *Loader) LoadAll(p *upkg.Package) ([]*object.Object, error) {
	var out []*object.Object
	var errs []error
	err := l.submit(func() error {
		for _, e := range p.Exports {
			o, err := l.getOrCreate(e)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, errors.Join(errs...)
}

// ResolveExport returns the export e stands for: e itself when it is an
// export, else the export found by e's full name and class.
func (l *Loader) ResolveExport(e upkg.Entry) (*upkg.Export, bool) {
	var exp *upkg.Export
	var ok bool
	l.submit(func() error {
		exp, ok = l.resolveExport(e)
		return nil
	})
	return exp, ok
}

// StructLineage returns the super chain of a struct object, root first and
// ending with o.
func (l *Loader) StructLineage(o *object.Object) ([]*object.Object, error) {
	var out []*object.Object
	err := l.submit(func() (err error) {
		out, err = l.structLineage(o)
		return err
	})
	return out, err
}

// IsSubclass reports whether child is parent or derives from it.
func (l *Loader) IsSubclass(parent, child string) bool {
	var ok bool
	l.submit(func() error {
		ok = l.isSubclass(parent, child)
		return nil
	})
	return ok
}

// NativeFunction returns the function registered for a native index.
func (l *Loader) NativeFunction(i int) (*object.Object, bool) {
	var o *object.Object
	l.submit(func() error {
		o = l.natives[i]
		return nil
	})
	return o, o != nil
}

// Object returns a cached object without decoding anything.
func (l *Loader) Object(k Key) (*object.Object, bool) {
	var o *object.Object
	l.submit(func() error {
		o = l.cache[k]
		return nil
	})
	return o, o != nil
}

// PropertyFields returns the property descriptors of a struct or class,
// its own fields first, then inherited ones.
func (l *Loader) PropertyFields(structName string) ([]*property.Descriptor, error) {
	var out []*property.Descriptor
	err := l.submit(func() (err error) {
		out, err = l.propertyFields(structName)
		return err
	})
	return out, err
}

// Lineage returns the full names of className and its superclasses, root
// first.
func (l *Loader) Lineage(className string) ([]string, error) {
	var out []string
	err := l.submit(func() (err error) {
		out, err = l.lineage(className)
		return err
	})
	return out, err
}

// Defaults returns the default properties className sets itself.
func (l *Loader) Defaults(className string) ([]*property.Value, error) {
	var out []*property.Value
	err := l.submit(func() (err error) {
		out, err = l.defaults(className)
		return err
	})
	return out, err
}

// Schema returns a property.Schema backed by l for use outside the lane,
// e.g. with property.RemoveDefaults.
func (l *Loader) Schema() property.Schema { return laneSchema{l} }

// Encode serializes o back to its export bytes, residue excluded.
func (l *Loader) Encode(o *object.Object) ([]byte, error) {
	var out []byte
	err := l.submit(func() (err error) {
		out, err = l.encode(o)
		return err
	})
	return out, err
}

// Pending returns the classes whose default properties still wait for an
// unloaded superclass.
func (l *Loader) Pending() []string {
	var out []string
	l.submit(func() error {
		for _, ws := range l.waiters {
			for _, w := range ws {
				if !w.fired {
					out = append(out, w.class)
				}
			}
		}
		return nil
	})
	sort.Strings(out)
	return out
}

// Diags returns the diagnostics recorded so far.
func (l *Loader) Diags() []ufmt.Diag {
	var out []ufmt.Diag
	l.submit(func() error {
		out = append(out, l.diags.Items()...)
		return nil
	})
	return out
}
