package main

import (
	"fmt"
	"os"

	"github.com/zboralski/lattice/render"

	"uepkg/internal/callgraph"
	"uepkg/internal/disasm"
	"uepkg/internal/object"
	uerender "uepkg/internal/render"
)

func cmdGraph(args []string) error {
	var c commonFlags
	fs := newFlagSet("graph", &c)
	hierarchy := fs.Bool("hierarchy", false, "class inheritance tree")
	calls := fs.Bool("calls", false, "function call graph")
	classes := fs.Bool("classes", false, "class-level call graph")
	maxNodes := fs.Int("max-nodes", 0, "limit of classes in --classes (0 = all)")
	out := fs.String("out", "", "write DOT to this file instead of stdout")
	s, p, err := onePackage(fs, &c, args)
	if err != nil {
		return err
	}
	defer s.Close()

	n := 0
	for _, b := range []bool{*hierarchy, *calls, *classes} {
		if b {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("exactly one of --hierarchy, --calls or --classes is required")
	}

	var dot string
	switch {
	case *hierarchy:
		dot = hierarchyDOT(s, p.Name, s.loadPackage(p))
	case *calls:
		funcs := s.functions(p, "")
		infos := make([]callgraph.FuncInfo, len(funcs))
		for i, f := range funcs {
			infos[i] = f.info()
		}
		cg := callgraph.BuildCallGraph(infos)
		dot = render.DOT(cg, p.Name+" calls")
		fmt.Fprintf(os.Stderr, "call graph: %d nodes, %d edges\n", len(cg.Nodes), len(cg.Edges))
	case *classes:
		funcs := s.functions(p, "")
		recs := make([]disasm.FuncRecord, len(funcs))
		var edges []disasm.CallEdgeRecord
		for i, f := range funcs {
			recs[i] = f.record()
			edges = append(edges, disasm.Records(f.name, f.edges)...)
		}
		dot = uerender.ClassgraphDOT(recs, edges, p.Name+" classes", uerender.NASA, *maxNodes)
	}
	s.reportDiags(20)

	if *out == "" {
		_, err = os.Stdout.WriteString(dot)
		return err
	}
	if err := os.WriteFile(*out, []byte(dot), 0644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", *out)
	return nil
}

func hierarchyDOT(s *session, title string, objs []*object.Object) string {
	methods := make(map[string]int)
	var nodes []uerender.ClassNode
	for _, o := range objs {
		switch o.Kind {
		case object.KindFunction:
			methods[ownerOf(o.Entry.FullName)]++
		case object.KindClass:
			nodes = append(nodes, uerender.ClassNode{Name: o.Entry.FullName, Super: o.Entry.Super})
		}
	}
	for i := range nodes {
		nodes[i].Methods = methods[nodes[i].Name]
	}
	s.log.Debug("class hierarchy", "classes", len(nodes))
	return uerender.ClassHierarchyDOT(nodes, title, uerender.NASA)
}
