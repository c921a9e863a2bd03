package upkg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"uepkg/internal/ufmt"
)

const (
	// Name table entries are compact length-prefixed from this version on.
	versionLengthPrefixedNames = 64
	// Heritage table replaced by GUID + generations from this version on.
	versionGenerations = 68
)

// encryptedMagic is the UTF-16LE "Lineage2Ver" prefix of encrypted files.
var encryptedMagic = []byte("L\x00i\x00n\x00e\x00a\x00g\x00e\x002\x00V\x00e\x00r\x00")

// Open reads and parses a package file. The package name is the file's base
// name without extension.
func Open(path string, cs *ufmt.Charset) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("upkg: %w", err)
	}
	base := filepath.Base(path)
	p, err := Parse(strings.TrimSuffix(base, filepath.Ext(base)), data, cs)
	if err != nil {
		return nil, fmt.Errorf("upkg: %s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse decodes package tables from data. Export bytes are sliced from data,
// not copied.
func Parse(name string, data []byte, cs *ufmt.Charset) (*Package, error) {
	if bytes.HasPrefix(data, encryptedMagic) {
		return nil, ErrEncrypted
	}
	s := ufmt.NewStream(data)
	s.SetCharset(cs)

	tag, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if tag != Tag {
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadTag, tag)
	}

	p := &Package{Name: name}
	var hdr [6]int32
	if p.Version, err = s.ReadUint16(); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if p.License, err = s.ReadUint16(); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if p.Flags, err = s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for i := range hdr {
		if hdr[i], err = s.ReadInt32(); err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
	}
	nameCount, nameOffset := hdr[0], hdr[1]
	exportCount, exportOffset := hdr[2], hdr[3]
	importCount, importOffset := hdr[4], hdr[5]

	if p.Version < versionGenerations {
		heritageCount, err := s.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		heritageOffset, err := s.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		if err := checkTable("heritage", heritageCount, heritageOffset, len(data)); err != nil {
			return nil, err
		}
		hs := ufmt.NewStreamAt(data, int(heritageOffset))
		for i := int32(0); i < heritageCount; i++ {
			g, err := hs.ReadBytes(16)
			if err != nil {
				return nil, fmt.Errorf("heritage %d: %w", i, err)
			}
			p.Heritage = append(p.Heritage, [16]byte(g))
		}
	} else {
		guid, err := s.ReadBytes(16)
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		p.GUID = [16]byte(guid)
		n, err := s.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		if n < 0 || int(n)*8 > s.Remaining() {
			return nil, ufmt.Malformedf("generation count %d", n)
		}
		p.Generations = make([]Generation, n)
		for i := range p.Generations {
			g := &p.Generations[i]
			g.ExportCount, _ = s.ReadInt32()
			g.NameCount, _ = s.ReadInt32()
		}
	}

	for _, t := range []struct {
		name          string
		count, offset int32
	}{
		{"name", nameCount, nameOffset},
		{"export", exportCount, exportOffset},
		{"import", importCount, importOffset},
	} {
		if err := checkTable(t.name, t.count, t.offset, len(data)); err != nil {
			return nil, err
		}
	}

	if err := p.readNames(data, nameCount, nameOffset, cs); err != nil {
		return nil, err
	}
	if err := p.readImports(data, importCount, importOffset); err != nil {
		return nil, err
	}
	if err := p.readExports(data, exportCount, exportOffset); err != nil {
		return nil, err
	}
	p.link()
	if err := p.checkOuters(); err != nil {
		return nil, err
	}
	return p, nil
}

// checkOuters rejects outer chains that loop back on themselves. Full names
// follow these chains.
func (p *Package) checkOuters() error {
	limit := len(p.Imports) + len(p.Exports)
	outerOf := func(ref int32) int32 {
		switch e := p.entry(ref).(type) {
		case *Import:
			return e.PackageRef
		case *Export:
			return e.PackageRef
		}
		return 0
	}
	for ref := int32(-len(p.Imports)); ref <= int32(len(p.Exports)); ref++ {
		if ref == 0 {
			continue
		}
		outer := outerOf(ref)
		for n := 0; outer != 0; n++ {
			if n >= limit {
				return ufmt.Malformedf("object %d: outer chain loops", ref)
			}
			outer = outerOf(outer)
		}
	}
	return nil
}

func checkTable(name string, count, offset int32, size int) error {
	if count < 0 || offset < 0 || int(offset) > size || int(count) > size {
		return ufmt.Malformedf("%s table: count %d offset %d (file size %d)", name, count, offset, size)
	}
	return nil
}

func (p *Package) readNames(data []byte, count, offset int32, cs *ufmt.Charset) error {
	s := ufmt.NewStreamAt(data, int(offset))
	s.SetCharset(cs)
	p.Names = make([]Name, count)
	for i := range p.Names {
		var err error
		if p.Version < versionLengthPrefixedNames {
			p.Names[i].Value, err = s.ReadCString()
		} else {
			p.Names[i].Value, err = s.ReadLine()
		}
		if err != nil {
			return fmt.Errorf("name %d: %w", i, err)
		}
		if p.Names[i].Flags, err = s.ReadUint32(); err != nil {
			return fmt.Errorf("name %d flags: %w", i, err)
		}
	}
	return nil
}

func (p *Package) readImports(data []byte, count, offset int32) error {
	s := ufmt.NewStreamAt(data, int(offset))
	p.Imports = make([]*Import, count)
	for i := range p.Imports {
		imp := &Import{}
		var err error
		if imp.ClassPackage, err = s.ReadCompact(); err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
		if imp.ClassName, err = s.ReadCompact(); err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
		if imp.PackageRef, err = s.ReadInt32(); err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
		if imp.Name, err = s.ReadCompact(); err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
		p.Imports[i] = imp
	}
	return nil
}

func (p *Package) readExports(data []byte, count, offset int32) error {
	s := ufmt.NewStreamAt(data, int(offset))
	p.Exports = make([]*Export, count)
	for i := range p.Exports {
		exp := &Export{}
		var err error
		if exp.ClassRef, err = s.ReadCompact(); err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
		if exp.SuperRef, err = s.ReadCompact(); err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
		if exp.PackageRef, err = s.ReadInt32(); err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
		if exp.Name, err = s.ReadCompact(); err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
		if exp.Flags, err = s.ReadUint32(); err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
		if exp.Size, err = s.ReadCompact(); err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
		if exp.Size > 0 {
			if exp.Offset, err = s.ReadCompact(); err != nil {
				return fmt.Errorf("export %d: %w", i, err)
			}
			end := int64(exp.Offset) + int64(exp.Size)
			if exp.Offset < 0 || end > int64(len(data)) {
				return ufmt.Malformedf("export %d: data [0x%x,+%d) outside file", i, exp.Offset, exp.Size)
			}
			exp.data = data[exp.Offset:end:end]
		}
		p.Exports[i] = exp
	}
	return nil
}
