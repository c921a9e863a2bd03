package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"uepkg/internal/disasm"
)

// ClassNode is one class of a hierarchy graph.
type ClassNode struct {
	Name        string // full name, e.g. "Engine.Pawn"
	Super       string // full name of the superclass, "" for roots
	Methods     int
	Placeholder bool
}

// Children maps each class to its direct subclasses, sorted by name.
// Supers that are not themselves in classes are keys too.
func Children(classes []ClassNode) map[string][]string {
	out := make(map[string][]string)
	for _, c := range classes {
		if c.Super != "" {
			out[c.Super] = append(out[c.Super], c.Name)
		}
	}
	for _, kids := range out {
		sort.Strings(kids)
	}
	return out
}

// ClassHierarchyDOT renders classes as an inheritance tree, one cluster per
// package. Edges point from a class to its superclass. Supers missing from
// classes are drawn as placeholders.
func ClassHierarchyDOT(classes []ClassNode, title string, t Theme) string {
	nodes := make(map[string]ClassNode, len(classes))
	for _, c := range classes {
		nodes[c.Name] = c
	}
	for _, c := range classes {
		if _, ok := nodes[c.Super]; c.Super != "" && !ok {
			nodes[c.Super] = ClassNode{Name: c.Super, Placeholder: true}
		}
	}

	byPkg := make(map[string][]string)
	for name := range nodes {
		byPkg[packageOf(name)] = append(byPkg[packageOf(name)], name)
	}
	pkgs := make([]string, 0, len(byPkg))
	for p, names := range byPkg {
		sort.Strings(names)
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)

	var b strings.Builder
	b.WriteString("digraph hierarchy {\n")
	b.WriteString("  rankdir=BT;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.5;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=\"filled,rounded\", fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=10, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.6, arrowhead=onormal, color=%q];\n", t.EdgeDirect)
	if title != "" {
		b.WriteString("  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	for i, p := range pkgs {
		indent := "  "
		if p != "" {
			fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i)
			fmt.Fprintf(&b, "    color=%q;\n    penwidth=0.5;\n", t.ClusterBorder)
			fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n", t.ClusterLabel, dotEscape(p))
			indent = "    "
		}
		for _, name := range byPkg[p] {
			n := nodes[name]
			label := dotEscape(shortName(name))
			if n.Methods > 0 {
				label = fmt.Sprintf("%s<br/><font point-size=\"7\" color=\"%s\">%d functions</font>", label, t.ExternalText, n.Methods)
			}
			attrs := ""
			if n.Placeholder {
				attrs = fmt.Sprintf(", fillcolor=%q, style=\"filled,rounded,dashed\"", t.PlaceholderFill)
			}
			fmt.Fprintf(&b, "%s%s [label=<%s>%s];\n", indent, dotID(name), label, attrs)
		}
		if p != "" {
			b.WriteString("  }\n")
		}
	}
	b.WriteByte('\n')

	for _, p := range pkgs {
		for _, name := range byPkg[p] {
			if super := nodes[name].Super; super != "" {
				fmt.Fprintf(&b, "  %s -> %s;\n", dotID(name), dotID(super))
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// ClassgraphDOT renders a class-level call graph where each owner class is
// one node and edges represent aggregated inter-class calls. Call targets are
// matched to functions by full name, then by short name with the first
// function listed winning; unmatched targets (natives of unloaded
// packages, virtual calls to functions not listed) are skipped. maxNodes
// limits rendered classes (0 = all).
func ClassgraphDOT(funcs []disasm.FuncRecord, edges []disasm.CallEdgeRecord, title string, t Theme, maxNodes int) string {
	const unowned = "(unowned)"

	funcOwner := make(map[string]string, len(funcs))
	ownerMethodCount := make(map[string]int)
	for _, f := range funcs {
		owner := f.Owner
		if owner == "" {
			owner = unowned
		}
		funcOwner[f.Name] = owner
		ownerMethodCount[owner]++
	}
	for _, f := range funcs {
		short := shortName(f.Name)
		if _, ok := funcOwner[short]; !ok {
			funcOwner[short] = funcOwner[f.Name]
		}
	}

	type classEdge struct {
		from, to string
	}
	classCounts := make(map[classEdge]int)
	for _, e := range edges {
		srcOwner := funcOwner[e.FromFunc]
		if srcOwner == "" {
			srcOwner = unowned
		}
		dstOwner, ok := funcOwner[e.Target]
		if !ok || srcOwner == dstOwner {
			continue
		}
		classCounts[classEdge{srcOwner, dstOwner}]++
	}

	classInvolvement := make(map[string]int)
	for ce, count := range classCounts {
		classInvolvement[ce.from] += count
		classInvolvement[ce.to] += count
	}

	type rankedClass struct {
		name        string
		involvement int
	}
	ranked := make([]rankedClass, 0, len(classInvolvement))
	for name, inv := range classInvolvement {
		ranked = append(ranked, rankedClass{name, inv})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].involvement != ranked[j].involvement {
			return ranked[i].involvement > ranked[j].involvement
		}
		return ranked[i].name < ranked[j].name
	})

	limit := len(ranked)
	if maxNodes > 0 && limit > maxNodes {
		limit = maxNodes
	}
	renderSet := make(map[string]bool, limit)
	for _, rc := range ranked[:limit] {
		renderSet[rc.name] = true
	}

	var b strings.Builder
	b.WriteString("digraph classgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.5;\n")
	b.WriteString("  ranksep=0.8;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=\"filled,rounded\", fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=10, fontcolor=%q, height=0.4, margin=\"0.15,0.08\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee, color=%q];\n", t.EdgeDirect)
	if title != "" {
		b.WriteString("  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	maxMethods := 1
	for name := range renderSet {
		maxMethods = max(maxMethods, ownerMethodCount[name])
	}
	for _, rc := range ranked[:limit] {
		methods := ownerMethodCount[rc.name]
		// Node height grows with method count (log scale).
		height := 0.4 + 0.3*math.Log2(float64(methods)+1)/math.Log2(float64(maxMethods)+1)
		htmlLabel := fmt.Sprintf("<<font point-size=\"10\">%s</font><br/><font point-size=\"7\" color=\"%s\">%d functions</font>>",
			dotEscape(shortName(rc.name)), t.ExternalText, methods)
		if rc.name == unowned {
			fmt.Fprintf(&b, "  %s [label=%s, fillcolor=%q, height=%.2f];\n", dotID(rc.name), htmlLabel, t.TermFill, height)
		} else {
			fmt.Fprintf(&b, "  %s [label=%s, height=%.2f];\n", dotID(rc.name), htmlLabel, height)
		}
	}
	b.WriteByte('\n')

	var shown []classEdge
	maxEdgeCount := 1
	for ce, count := range classCounts {
		if renderSet[ce.from] && renderSet[ce.to] {
			shown = append(shown, ce)
			maxEdgeCount = max(maxEdgeCount, count)
		}
	}
	sort.Slice(shown, func(i, j int) bool {
		if shown[i].from != shown[j].from {
			return shown[i].from < shown[j].from
		}
		return shown[i].to < shown[j].to
	})
	for _, ce := range shown {
		count := classCounts[ce]
		pw := 0.5 + 2.0*math.Log2(float64(count)+1)/math.Log2(float64(maxEdgeCount)+1)
		attrs := fmt.Sprintf("penwidth=%.1f", pw)
		if count > 1 {
			attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%d</font>>", t.ExternalText, count)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(ce.from), dotID(ce.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}
