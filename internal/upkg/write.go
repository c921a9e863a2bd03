package upkg

import (
	"encoding/binary"
	"fmt"

	"uepkg/internal/ufmt"
)

// Encode serializes p into package file bytes. Export data is laid out after
// the name table; export offsets and sizes are recomputed.
func Encode(p *Package, cs *ufmt.Charset) ([]byte, error) {
	w := ufmt.NewWriter()
	w.SetCharset(cs)

	w.WriteUint32(Tag)
	w.WriteUint16(p.Version)
	w.WriteUint16(p.License)
	w.WriteUint32(p.Flags)
	tables := w.Len()
	for range 6 {
		w.WriteInt32(0) // patched below
	}
	var heritagePatch int
	if p.Version < versionGenerations {
		w.WriteInt32(int32(len(p.Heritage)))
		heritagePatch = w.Len()
		w.WriteInt32(0)
	} else {
		w.Write(p.GUID[:])
		w.WriteInt32(int32(len(p.Generations)))
		for _, g := range p.Generations {
			w.WriteInt32(g.ExportCount)
			w.WriteInt32(g.NameCount)
		}
	}

	nameOffset := w.Len()
	for i, n := range p.Names {
		if p.Version < versionLengthPrefixedNames {
			if err := w.WriteCString(n.Value); err != nil {
				return nil, fmt.Errorf("name %d: %w", i, err)
			}
		} else {
			w.WriteLine(n.Value)
		}
		w.WriteUint32(n.Flags)
	}

	for _, e := range p.Exports {
		e.Size = int32(len(e.data))
		e.Offset = 0
		if e.Size > 0 {
			e.Offset = int32(w.Len())
			w.Write(e.data)
		}
	}

	importOffset := w.Len()
	for _, imp := range p.Imports {
		w.WriteCompact(imp.ClassPackage)
		w.WriteCompact(imp.ClassName)
		w.WriteInt32(imp.PackageRef)
		w.WriteCompact(imp.Name)
	}

	exportOffset := w.Len()
	for _, e := range p.Exports {
		w.WriteCompact(e.ClassRef)
		w.WriteCompact(e.SuperRef)
		w.WriteInt32(e.PackageRef)
		w.WriteCompact(e.Name)
		w.WriteUint32(e.Flags)
		w.WriteCompact(e.Size)
		if e.Size > 0 {
			w.WriteCompact(e.Offset)
		}
	}

	heritageOffset := w.Len()
	if p.Version < versionGenerations {
		for _, h := range p.Heritage {
			w.Write(h[:])
		}
	}

	out := w.Bytes()
	for i, v := range []int{len(p.Names), nameOffset, len(p.Exports), exportOffset, len(p.Imports), importOffset} {
		binary.LittleEndian.PutUint32(out[tables+4*i:], uint32(v))
	}
	if p.Version < versionGenerations {
		binary.LittleEndian.PutUint32(out[heritagePatch:], uint32(heritageOffset))
	}

	// Re-slice export data from the encoded image so p matches what Parse returns.
	for _, e := range p.Exports {
		if e.Size > 0 {
			end := e.Offset + e.Size
			e.data = out[e.Offset:end:end]
		}
	}
	return out, nil
}
