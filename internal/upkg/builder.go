package upkg

import (
	"strings"
)

// Builder assembles a Package in memory. Tooling uses it to synthesize
// packages; tests use it to build fixtures without files on disk.
type Builder struct {
	p       *Package
	names   map[string]int32
	imports map[string]int32 // lower-case full name -> ref
}

// NewBuilder starts a package named name. "None" is always name index 0.
func NewBuilder(name string) *Builder {
	b := &Builder{
		p:       &Package{Name: name, Version: 123, License: 0},
		names:   make(map[string]int32),
		imports: make(map[string]int32),
	}
	b.Name(NoneName)
	return b
}

// Name interns s and returns its name index.
func (b *Builder) Name(s string) int32 {
	key := strings.ToLower(s)
	if i, ok := b.names[key]; ok {
		return i
	}
	i := int32(len(b.p.Names))
	b.p.Names = append(b.p.Names, Name{Value: s, Flags: 0x00070010})
	b.names[key] = i
	return i
}

// Import adds an import row and returns its (negative) reference.
func (b *Builder) Import(classPackage, className, objectName string, outer int32) int32 {
	imp := &Import{
		ClassPackage: b.Name(classPackage),
		ClassName:    b.Name(className),
		PackageRef:   outer,
		Name:         b.Name(objectName),
	}
	b.p.Imports = append(b.p.Imports, imp)
	b.p.link()
	ref := imp.Ref()
	b.imports[strings.ToLower(imp.FullName())] = ref
	return ref
}

// ImportObject imports fullName ("Core.Object", "Engine.Actor.Tick") of class
// fullClass ("Core.Class"), creating the outer package chain as needed.
// Repeated calls return the same reference.
func (b *Builder) ImportObject(fullName, fullClass string) int32 {
	if ref, ok := b.imports[strings.ToLower(fullName)]; ok {
		return ref
	}
	var outer int32
	path := strings.Split(fullName, ".")
	for i := 1; i < len(path); i++ {
		prefix := strings.Join(path[:i], ".")
		ref, ok := b.imports[strings.ToLower(prefix)]
		if !ok {
			if i == 1 {
				ref = b.Import("Core", "Package", path[0], 0)
			} else {
				// Intermediate outers are treated as classes (e.g. a function's owner).
				ref = b.Import("Core", "Class", path[i-1], outer)
			}
		}
		outer = ref
	}
	pkg, cls := splitClass(fullClass)
	return b.Import(pkg, cls, path[len(path)-1], outer)
}

func splitClass(fullClass string) (pkg, name string) {
	if i := strings.LastIndexByte(fullClass, '.'); i >= 0 {
		return fullClass[:i], fullClass[i+1:]
	}
	return "Core", fullClass
}

// Export adds an export row and returns its (positive) reference. class 0
// means the export is itself a class.
func (b *Builder) Export(objectName string, class, super, outer int32, flags uint32) int32 {
	exp := &Export{
		ClassRef:   class,
		SuperRef:   super,
		PackageRef: outer,
		Name:       b.Name(objectName),
		Flags:      flags,
	}
	b.p.Exports = append(b.p.Exports, exp)
	b.p.link()
	return exp.Ref()
}

// SetData assigns the serialized bytes of an export.
func (b *Builder) SetData(ref int32, data []byte) {
	b.p.Exports[ref-1].SetData(data)
}

// Package returns the package under construction. The builder may continue
// to add entries; they are visible through the returned pointer.
func (b *Builder) Package() *Package { return b.p }
