// Package callgraph converts disassembled scripts into lattice call graphs
// and control flow graphs.
package callgraph

import (
	"github.com/zboralski/lattice"

	"uepkg/internal/disasm"
)

// FuncInfo holds the data needed to build call graph and CFG for one function.
type FuncInfo struct {
	Name      string
	Insts     []disasm.Inst
	CallEdges []disasm.CallEdge
}

// BuildCallGraph constructs a lattice.Graph from disassembled functions.
// Each function becomes a node. Each call edge becomes an edge; native
// calls without a registered function are kept under their native<N> name.
func BuildCallGraph(funcs []FuncInfo) *lattice.Graph {
	g := &lattice.Graph{}
	for _, f := range funcs {
		g.Nodes = append(g.Nodes, f.Name)
		for _, e := range f.CallEdges {
			if e.Target == "" || e.Target == "None" {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: f.Name,
				Callee: e.Target,
			})
		}
	}
	g.Dedup()
	return g
}
