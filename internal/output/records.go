package output

import (
	"fmt"
	"strings"

	"uepkg/internal/object"
	"uepkg/internal/upkg"
)

// PackageSummary is the header and table overview of one package.
type PackageSummary struct {
	Name        string            `json:"name"`
	Path        string            `json:"path,omitempty"`
	Version     uint16            `json:"version"`
	License     uint16            `json:"license"`
	Flags       string            `json:"flags"`
	GUID        string            `json:"guid"`
	Names       int               `json:"names"`
	Imports     int               `json:"imports"`
	Exports     int               `json:"exports"`
	Generations []upkg.Generation `json:"generations,omitempty"`
	Classes     map[string]int    `json:"classes"` // export count per class
}

// Summarize builds the summary of p.
func Summarize(p *upkg.Package) PackageSummary {
	s := PackageSummary{
		Name:        p.Name,
		Path:        p.Path,
		Version:     p.Version,
		License:     p.License,
		Flags:       fmt.Sprintf("0x%08x", p.Flags),
		GUID:        fmt.Sprintf("%x", p.GUID),
		Names:       len(p.Names),
		Imports:     len(p.Imports),
		Exports:     len(p.Exports),
		Generations: p.Generations,
		Classes:     make(map[string]int),
	}
	for _, e := range p.Exports {
		s.Classes[e.FullClassName()]++
	}
	return s
}

// EntryRecord is one row of an object listing.
type EntryRecord struct {
	Ref    int32  `json:"ref"`
	Name   string `json:"name"`
	Class  string `json:"class"`
	Super  string `json:"super,omitempty"`
	Flags  string `json:"flags,omitempty"`
	Size   int32  `json:"size,omitempty"`
	Offset int32  `json:"offset,omitempty"`
}

// Entries lists the exports of p whose class satisfies match, followed by
// its imports when imports is set.
func Entries(p *upkg.Package, imports bool, match upkg.ClassMatch) []EntryRecord {
	if match == nil {
		match = upkg.AnyClass
	}
	var out []EntryRecord
	for _, e := range p.Exports {
		if !match(e.FullClassName()) {
			continue
		}
		out = append(out, EntryRecord{
			Ref:    e.Ref(),
			Name:   e.FullName(),
			Class:  e.FullClassName(),
			Super:  e.SuperFullName(),
			Flags:  object.Flags(e.Flags).String(),
			Size:   e.Size,
			Offset: e.Offset,
		})
	}
	if imports {
		for _, i := range p.Imports {
			if !match(i.FullClassName()) {
				continue
			}
			out = append(out, EntryRecord{Ref: i.Ref(), Name: i.FullName(), Class: i.FullClassName()})
		}
	}
	return out
}

// FormatEntries renders records as aligned text, one per line.
func FormatEntries(recs []EntryRecord) string {
	var b strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&b, "%6d  %-40s  %-24s", r.Ref, r.Name, r.Class)
		if r.Super != "" {
			fmt.Fprintf(&b, "  extends %s", r.Super)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
