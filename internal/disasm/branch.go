package disasm

import "uepkg/internal/bytecode"

// BranchInfo describes a statement that ends a basic block.
type BranchInfo struct {
	Target int  // script offset of the branch target, -1 when unknown
	Cond   bool // true if the statement can fall through
	IsRet  bool // true if control leaves the function
}

// DecodeBranch classifies a top-level statement. Returns nil if control
// always continues with the next statement.
//
// Jump is unconditional. JumpIfNot, a non-default Case and an Iterator
// (whose target is the loop exit) may fall through. Return and Stop leave
// the function; GotoLabel jumps through the label table and is treated as
// leaving the function too.
func DecodeBranch(t *bytecode.Token) *BranchInfo {
	if t == nil || t.IsNative() || t.Table != bytecode.TableMain {
		return nil
	}
	switch t.Op {
	case bytecode.OpReturn, bytecode.OpStop, bytecode.OpGotoLabel:
		return &BranchInfo{Target: -1, IsRet: true}
	case bytecode.OpJump:
		target, _ := t.Target()
		return &BranchInfo{Target: target}
	case bytecode.OpJumpIfNot, bytecode.OpCase, bytecode.OpIterator:
		target, ok := t.Target()
		if !ok {
			return nil // default case
		}
		return &BranchInfo{Target: target, Cond: true}
	}
	return nil
}

// IsBranchTerminator returns true if the statement terminates a basic block.
func IsBranchTerminator(t *bytecode.Token) bool {
	return DecodeBranch(t) != nil
}
