package main

import (
	"strings"

	"uepkg/internal/callgraph"
	"uepkg/internal/disasm"
	"uepkg/internal/object"
	"uepkg/internal/upkg"
)

// function is one decoded function export with its listing.
type function struct {
	name  string // full name, e.g. "Engine.Pawn.Tick"
	owner string // class full name, e.g. "Engine.Pawn"
	obj   *object.Object
	insts []disasm.Inst
	edges []disasm.CallEdge
}

// ownerOf returns the class segment of a function full name. Functions
// declared inside states belong to the class too.
func ownerOf(fullName string) string {
	parts := strings.SplitN(fullName, ".", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// loadPackage decodes every export of p. Failures are logged and skipped
// so that one bad export does not hide the rest.
func (s *session) loadPackage(p *upkg.Package) []*object.Object {
	objs, err := s.loader.LoadAll(p)
	if err != nil {
		s.log.Warn("some exports failed to decode", "package", p.Name, "err", err)
	}
	return objs
}

// functions lists the function exports of p, optionally restricted to one
// class, disassembled after the whole package is decoded so that natives
// declared in it resolve.
func (s *session) functions(p *upkg.Package, class string) []function {
	objs := s.loadPackage(p)
	naming := s.loader.Naming(p)
	var out []function
	for _, o := range objs {
		if o.Kind != object.KindFunction {
			continue
		}
		owner := ownerOf(o.Entry.FullName)
		if class != "" && !strings.EqualFold(owner, class) {
			continue
		}
		insts := disasm.Disassemble(o.Struct.Script, disasm.Options{Naming: naming, Charset: s.opts.Charset})
		out = append(out, function{
			name:  o.Entry.FullName,
			owner: owner,
			obj:   o,
			insts: insts,
			edges: disasm.ExtractCallEdges(insts, naming),
		})
	}
	return out
}

func (f function) info() callgraph.FuncInfo {
	return callgraph.FuncInfo{Name: f.name, Insts: f.insts, CallEdges: f.edges}
}

func (f function) record() disasm.FuncRecord {
	return disasm.FuncRecord{
		Name:       f.name,
		Owner:      f.owner,
		Size:       int(f.obj.Struct.ScriptSize),
		Statements: len(f.insts),
		Native:     int(f.obj.Function.NativeIndex),
	}
}
