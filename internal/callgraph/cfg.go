package callgraph

import (
	"github.com/zboralski/lattice"

	"uepkg/internal/disasm"
)

// BuildCFG constructs a lattice.CFGGraph from disassembled functions.
// Functions without statements are skipped.
func BuildCFG(funcs []FuncInfo) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, f := range funcs {
		if len(f.Insts) == 0 {
			continue
		}
		dcfg := disasm.BuildCFG(f.Name, f.Insts)
		cg.Funcs = append(cg.Funcs, convertFuncCFG(&dcfg, f.CallEdges))
	}
	return cg
}

// BuildFuncCFG builds a single-function lattice.FuncCFG from statements and
// call edges. Returns the FuncCFG and the number of basic blocks.
func BuildFuncCFG(name string, insts []disasm.Inst, edges []disasm.CallEdge) (*lattice.FuncCFG, int) {
	dcfg := disasm.BuildCFG(name, insts)
	return convertFuncCFG(&dcfg, edges), len(dcfg.Blocks)
}

// convertFuncCFG maps a disasm.FuncCFG to a lattice.FuncCFG. Call edges are
// placed in the block holding their statement; a statement with several
// calls contributes them in order.
func convertFuncCFG(dcfg *disasm.FuncCFG, edges []disasm.CallEdge) *lattice.FuncCFG {
	byOffset := make(map[int][]disasm.CallEdge, len(edges))
	for _, e := range edges {
		byOffset[e.FromOffset] = append(byOffset[e.FromOffset], e)
	}

	lcfg := &lattice.FuncCFG{Name: dcfg.Name}
	for _, db := range dcfg.Blocks {
		lb := &lattice.BasicBlock{
			ID:    db.ID,
			Start: db.Start,
			End:   db.End,
			Term:  db.IsTerm,
		}
		for _, ds := range db.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: ds.BlockID,
				Cond:    ds.Cond,
			})
		}
		for idx := db.Start; idx < db.End && idx < len(dcfg.Insts); idx++ {
			for _, e := range byOffset[dcfg.Insts[idx].Offset] {
				lb.Calls = append(lb.Calls, lattice.CallSite{
					Offset: idx,
					Callee: e.Target,
				})
			}
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
