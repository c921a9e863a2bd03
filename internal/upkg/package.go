// Package upkg models an Unreal Engine 2 package: its name, import and export
// tables and the raw bytes of each exported object.
package upkg

import (
	"errors"
	"fmt"
	"strings"

	"uepkg/internal/ufmt"
)

// Tag is the package file signature.
const Tag uint32 = 0x9E2A83C1

const (
	// NoneName is the sentinel name terminating property lists.
	NoneName = "None"

	// ClassClass is the class of every class export (ClassRef 0).
	ClassClass = "Core.Class"
)

var (
	ErrBadTag    = errors.New("upkg: bad package tag")
	ErrEncrypted = errors.New("upkg: encrypted package")
)

// Name is one name table entry.
type Name struct {
	Value string `json:"value"`
	Flags uint32 `json:"flags"`
}

// Generation is one entry of the generation table.
type Generation struct {
	ExportCount int32 `json:"export_count"`
	NameCount   int32 `json:"name_count"`
}

// Package is a parsed package.
type Package struct {
	Name        string
	Path        string
	Version     uint16
	License     uint16
	Flags       uint32
	GUID        [16]byte
	Generations []Generation
	Heritage    [][16]byte // version < 68

	Names   []Name
	Imports []*Import
	Exports []*Export
}

// Entry is an import or export table row.
type Entry interface {
	Package() *Package
	// Ref is the package-local object reference: export i is i+1, import i is -(i+1).
	Ref() int32
	ObjectName() string
	// FullName is the dotted path including the owning package, e.g. "Engine.Actor.Tick".
	FullName() string
	// FullClassName is the dotted class path, e.g. "Core.Function".
	FullClassName() string
}

// Import references an object defined in another package.
type Import struct {
	ClassPackage int32 // name index
	ClassName    int32 // name index
	PackageRef   int32 // outer object reference
	Name         int32 // name index

	pkg   *Package
	index int
}

func (i *Import) Package() *Package  { return i.pkg }
func (i *Import) Ref() int32         { return -int32(i.index) - 1 }
func (i *Import) ObjectName() string { return i.pkg.name(i.Name) }
func (i *Import) String() string     { return i.FullName() }
func (i *Import) FullClassName() string {
	return i.pkg.name(i.ClassPackage) + "." + i.pkg.name(i.ClassName)
}

func (i *Import) FullName() string {
	if outer := i.pkg.entry(i.PackageRef); outer != nil {
		return outer.FullName() + "." + i.ObjectName()
	}
	return i.ObjectName()
}

// Export is an object defined in this package.
type Export struct {
	ClassRef   int32
	SuperRef   int32
	PackageRef int32
	Name       int32 // name index
	Flags      uint32
	Size       int32
	Offset     int32

	data  []byte
	pkg   *Package
	index int
}

func (e *Export) Package() *Package  { return e.pkg }
func (e *Export) Ref() int32         { return int32(e.index) + 1 }
func (e *Export) ObjectName() string { return e.pkg.name(e.Name) }
func (e *Export) String() string     { return e.FullName() }

func (e *Export) FullName() string {
	if outer := e.pkg.entry(e.PackageRef); outer != nil {
		return outer.FullName() + "." + e.ObjectName()
	}
	return e.pkg.Name + "." + e.ObjectName()
}

func (e *Export) FullClassName() string {
	if c := e.pkg.entry(e.ClassRef); c != nil {
		return c.FullName()
	}
	return ClassClass
}

// Super returns the superclass/superstruct entry, or nil.
func (e *Export) Super() Entry { return e.pkg.entry(e.SuperRef) }

// SuperFullName returns the superclass full name, or "" when there is none.
func (e *Export) SuperFullName() string {
	if s := e.Super(); s != nil {
		return s.FullName()
	}
	return ""
}

// Data returns the serialized object bytes.
func (e *Export) Data() []byte { return e.data }

// SetData replaces the serialized object bytes. Offsets are recomputed by Encode.
func (e *Export) SetData(b []byte) {
	e.data = b
	e.Size = int32(len(b))
}

func (p *Package) name(i int32) string {
	if i < 0 || int(i) >= len(p.Names) {
		return fmt.Sprintf("<name %d>", i)
	}
	return p.Names[i].Value
}

func (p *Package) entry(ref int32) Entry {
	switch {
	case ref > 0 && int(ref) <= len(p.Exports):
		return p.Exports[ref-1]
	case ref < 0 && int(-ref) <= len(p.Imports):
		return p.Imports[-ref-1]
	}
	return nil
}

// NameAt returns the name table value at index i.
func (p *Package) NameAt(i int) (string, error) {
	if i < 0 || i >= len(p.Names) {
		return "", ufmt.Malformedf("name index %d out of range [0,%d)", i, len(p.Names))
	}
	return p.Names[i].Value, nil
}

// NameIndex returns the index of name, compared case-insensitively.
func (p *Package) NameIndex(name string) (int, error) {
	for i, n := range p.Names {
		if strings.EqualFold(n.Value, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("name %q in %s: %w", name, p.Name, ufmt.ErrNotFound)
}

// Entry resolves an object reference. Zero is the null reference and yields nil.
func (p *Package) Entry(ref int32) (Entry, error) {
	if ref == 0 {
		return nil, nil
	}
	e := p.entry(ref)
	if e == nil {
		return nil, ufmt.Malformedf("object reference %d out of range in %s", ref, p.Name)
	}
	return e, nil
}

// ObjectFullName returns the full name a reference points at, "None" for null.
func (p *Package) ObjectFullName(ref int32) string {
	if ref == 0 {
		return NoneName
	}
	if e := p.entry(ref); e != nil {
		return e.FullName()
	}
	return fmt.Sprintf("<ref %d>", ref)
}

// ClassMatch filters entries by full class name.
type ClassMatch func(fullClassName string) bool

// AnyClass matches every class.
func AnyClass(string) bool { return true }

// ClassIs matches one class name, case-insensitively.
func ClassIs(names ...string) ClassMatch {
	return func(c string) bool {
		for _, n := range names {
			if strings.EqualFold(c, n) {
				return true
			}
		}
		return false
	}
}

// FindExport looks up an export by full name.
func (p *Package) FindExport(fullName string, match ClassMatch) *Export {
	if match == nil {
		match = AnyClass
	}
	for _, e := range p.Exports {
		if strings.EqualFold(e.FullName(), fullName) && match(e.FullClassName()) {
			return e
		}
	}
	return nil
}

// FindExportByObjectName looks up an export by its last name segment.
func (p *Package) FindExportByObjectName(name string, match ClassMatch) *Export {
	if match == nil {
		match = AnyClass
	}
	for _, e := range p.Exports {
		if strings.EqualFold(e.ObjectName(), name) && match(e.FullClassName()) {
			return e
		}
	}
	return nil
}

func (p *Package) link() {
	for i, imp := range p.Imports {
		imp.pkg, imp.index = p, i
	}
	for i, exp := range p.Exports {
		exp.pkg, exp.index = p, i
	}
}
