package disasm

import "testing"

func TestBuildCFG_Linear(t *testing.T) {
	script := sample()[3:]
	cfg := BuildCFG("linear", Disassemble(script, Options{}))
	if len(cfg.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(cfg.Blocks))
	}
	blk := cfg.Blocks[0]
	if blk.Start != 0 || blk.End != 2 {
		t.Errorf("block range = [%d,%d), want [0,2)", blk.Start, blk.End)
	}
	if !blk.IsTerm || !blk.IsEntry {
		t.Errorf("block = %+v, want entry and terminal", blk)
	}
	if len(blk.Succs) != 0 {
		t.Errorf("succs = %d, want 0", len(blk.Succs))
	}
}

func TestBuildCFG_Branches(t *testing.T) {
	cfg := BuildCFG("Tick", Disassemble(sample(), Options{}))

	// B0: [0,1) JumpIfNot, B1: [1,3) call + jump, B2: [3,4) native, B3: [4,5) return
	if len(cfg.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(cfg.Blocks))
	}
	ranges := [][2]int{{0, 1}, {1, 3}, {3, 4}, {4, 5}}
	for i, r := range ranges {
		if b := cfg.Blocks[i]; b.Start != r[0] || b.End != r[1] {
			t.Errorf("block %d = [%d,%d), want [%d,%d)", i, b.Start, b.End, r[0], r[1])
		}
	}

	tests := []struct {
		block int
		want  []Succ
		term  bool
	}{
		{0, []Succ{{BlockID: 2, Cond: "T"}, {BlockID: 1, Cond: "F"}}, false},
		{1, []Succ{{BlockID: 3}}, false},
		{2, []Succ{{BlockID: 3}}, false},
		{3, nil, true},
	}
	for _, tt := range tests {
		b := cfg.Blocks[tt.block]
		if len(b.Succs) != len(tt.want) {
			t.Errorf("block %d succs = %+v, want %+v", tt.block, b.Succs, tt.want)
			continue
		}
		for i := range tt.want {
			if b.Succs[i] != tt.want[i] {
				t.Errorf("block %d succ %d = %+v, want %+v", tt.block, i, b.Succs[i], tt.want[i])
			}
		}
		if b.IsTerm != tt.term {
			t.Errorf("block %d IsTerm = %v, want %v", tt.block, b.IsTerm, tt.term)
		}
	}
}

func TestBuildCFG_JumpOutside(t *testing.T) {
	script := sample()[2:3] // jump 0x0014 with nothing at 0x14
	cfg := BuildCFG("out", Disassemble(script, Options{}))
	if len(cfg.Blocks) != 1 || !cfg.Blocks[0].IsTerm {
		t.Errorf("blocks = %+v, want one terminal block", cfg.Blocks)
	}
}

func TestBuildCFG_Empty(t *testing.T) {
	cfg := BuildCFG("empty", nil)
	if len(cfg.Blocks) != 0 {
		t.Errorf("blocks = %d, want 0", len(cfg.Blocks))
	}
}
