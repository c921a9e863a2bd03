package disasm

import "sort"

// BasicBlock represents a sequence of statements with a single entry point.
type BasicBlock struct {
	ID      int
	Start   int    // index into FuncCFG.Insts (inclusive)
	End     int    // index into FuncCFG.Insts (exclusive)
	Succs   []Succ // successor edges
	IsEntry bool
	IsTerm  bool // ends with return, stop or a jump out of the script
}

// Succ describes a control-flow successor edge.
type Succ struct {
	BlockID int
	Cond    string // "" = unconditional, "T" = jump taken, "F" = fallthrough
}

// FuncCFG is a per-function control flow graph.
type FuncCFG struct {
	Name   string
	Blocks []BasicBlock
	Insts  []Inst
}

// BuildCFG constructs a control flow graph from a function's statements.
// The algorithm:
//  1. Find block leaders: index 0, branch targets, statements after terminators.
//  2. Partition statements into blocks by leaders.
//  3. Compute successor edges from each block's last statement.
//
// Conditional jumps are taken when their condition fails, so "T" is the
// edge to the jump target.
func BuildCFG(name string, insts []Inst) FuncCFG {
	if len(insts) == 0 {
		return FuncCFG{Name: name, Insts: insts}
	}

	offsetToIdx := make(map[int]int, len(insts))
	for i, inst := range insts {
		offsetToIdx[inst.Offset] = i
	}

	leaders := map[int]bool{0: true}
	for i, inst := range insts {
		bi := DecodeBranch(inst.Token)
		if bi == nil {
			continue
		}
		if i+1 < len(insts) {
			leaders[i+1] = true
		}
		if idx, ok := offsetToIdx[bi.Target]; ok && !bi.IsRet {
			leaders[idx] = true
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	blocks := make([]BasicBlock, len(sorted))
	leaderToBlock := make(map[int]int, len(sorted))
	for i, start := range sorted {
		end := len(insts)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		blocks[i] = BasicBlock{
			ID:      i,
			Start:   start,
			End:     end,
			IsEntry: start == 0,
		}
		leaderToBlock[start] = i
	}

	for i := range blocks {
		blk := &blocks[i]
		last := insts[blk.End-1]
		bi := DecodeBranch(last.Token)

		if bi == nil {
			if next, ok := leaderToBlock[blk.End]; ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: next})
			} else {
				blk.IsTerm = true // falls off the end
			}
			continue
		}
		if bi.IsRet {
			blk.IsTerm = true
			continue
		}

		target := -1
		if idx, ok := offsetToIdx[bi.Target]; ok {
			target = leaderToBlock[idx]
		}
		if bi.Cond {
			if target >= 0 {
				blk.Succs = append(blk.Succs, Succ{BlockID: target, Cond: "T"})
			}
			if next, ok := leaderToBlock[blk.End]; ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: next, Cond: "F"})
			}
			continue
		}
		if target >= 0 {
			blk.Succs = append(blk.Succs, Succ{BlockID: target})
		} else {
			blk.IsTerm = true
		}
	}

	return FuncCFG{
		Name:   name,
		Blocks: blocks,
		Insts:  insts,
	}
}
