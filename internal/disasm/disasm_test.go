package disasm

import (
	"strings"
	"testing"

	"uepkg/internal/bytecode"
)

func tok(op byte, off int, args ...bytecode.Arg) *bytecode.Token {
	return &bytecode.Token{Op: op, Offset: off, Args: args}
}

func u16(v int64) bytecode.Arg { return bytecode.Arg{Kind: bytecode.ArgU16, Int: v} }

func sub(t *bytecode.Token) bytecode.Arg { return bytecode.Arg{Kind: bytecode.ArgToken, Token: t} }

func params(ts ...*bytecode.Token) bytecode.Arg {
	ts = append(ts, tok(bytecode.OpEndFunctionParms, 0))
	return bytecode.Arg{Kind: bytecode.ArgParams, List: ts}
}

func native(index int, off int, args ...*bytecode.Token) *bytecode.Token {
	return &bytecode.Token{Op: byte(index), Native: index, Offset: off, Args: []bytecode.Arg{params(args...)}}
}

// sample is:
//
//	0x0000: if (!(IsReady())) jump 0x0010
//	0x0006: Fire(1)
//	0x000c: jump 0x0014
//	0x0010: native144()
//	0x0014: return
func sample() []*bytecode.Token {
	isReady := tok(bytecode.OpVirtualFunction, 0, bytecode.Arg{Kind: bytecode.ArgName, Int: 3, Str: "IsReady"}, params())
	fire := tok(bytecode.OpFinalFunction, 0x06, bytecode.Arg{Kind: bytecode.ArgObject, Int: 2}, params(tok(bytecode.OpIntOne, 0)))
	return []*bytecode.Token{
		tok(bytecode.OpJumpIfNot, 0x00, u16(0x10), sub(isReady)),
		fire,
		tok(bytecode.OpJump, 0x0c, u16(0x14)),
		native(0x90, 0x10),
		tok(bytecode.OpReturn, 0x14, sub(tok(bytecode.OpNothing, 0))),
	}
}

type names map[int32]string

func (n names) ObjectName(ref int32) string { return n[ref] }

func (n names) Native(i int) (bytecode.NativeInfo, bool) {
	if i == 0x90 {
		return bytecode.NativeInfo{Name: "Tick"}, true
	}
	return bytecode.NativeInfo{}, false
}

func TestDisassemble(t *testing.T) {
	insts := Disassemble(sample(), Options{Naming: names{2: "Fire"}})
	want := []struct {
		off  int
		text string
	}{
		{0x00, "if (!(IsReady())) jump 0x0010"},
		{0x06, "Fire(1)"},
		{0x0c, "jump 0x0014"},
		{0x10, "Tick()"},
		{0x14, "return"},
	}
	if len(insts) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(insts), len(want))
	}
	for i, w := range want {
		if insts[i].Offset != w.off || insts[i].Text != w.text {
			t.Errorf("inst[%d] = 0x%x %q, want 0x%x %q", i, insts[i].Offset, insts[i].Text, w.off, w.text)
		}
	}
	if insts[2].Size != 3 {
		t.Errorf("jump size = %d, want 3", insts[2].Size)
	}
}

func TestDisassembleBareNaming(t *testing.T) {
	insts := Disassemble(sample(), Options{})
	if insts[1].Text != "obj2(1)" {
		t.Errorf("final call = %q, want obj2(1)", insts[1].Text)
	}
	if insts[3].Text != "native144()" {
		t.Errorf("native call = %q, want native144()", insts[3].Text)
	}
}

func TestDisassembleMaxSteps(t *testing.T) {
	insts := Disassemble(sample(), Options{MaxSteps: 2})
	if len(insts) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insts))
	}
}

func TestDisassembleEmpty(t *testing.T) {
	if insts := Disassemble(nil, Options{}); len(insts) != 0 {
		t.Fatalf("got %d instructions for nil script", len(insts))
	}
}

func TestFormat(t *testing.T) {
	insts := Disassemble(sample(), Options{Naming: names{2: "Fire"}})
	out := Format(insts, TargetAnnotator(insts))
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "0x0000  JumpIfNot") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[3], "; from 0x0000") {
		t.Errorf("line 3 = %q, want jump target comment", lines[3])
	}
	if !strings.HasSuffix(lines[4], "return  ; from 0x000c") {
		t.Errorf("line 4 = %q", lines[4])
	}
	if strings.Contains(lines[1], ";") {
		t.Errorf("line 1 = %q, want no comment", lines[1])
	}
}

func TestDecodeBranch(t *testing.T) {
	tests := []struct {
		name string
		tok  *bytecode.Token
		want *BranchInfo
	}{
		{"jump", tok(bytecode.OpJump, 0, u16(0x20)), &BranchInfo{Target: 0x20}},
		{"jumpifnot", tok(bytecode.OpJumpIfNot, 0, u16(0x30), sub(tok(bytecode.OpTrue, 0))), &BranchInfo{Target: 0x30, Cond: true}},
		{"case", tok(bytecode.OpCase, 0, u16(0x40), bytecode.Arg{Kind: bytecode.ArgCaseExpr, Token: tok(bytecode.OpIntOne, 0)}), &BranchInfo{Target: 0x40, Cond: true}},
		{"default", tok(bytecode.OpCase, 0, u16(0xffff), bytecode.Arg{Kind: bytecode.ArgCaseExpr}), nil},
		{"return", tok(bytecode.OpReturn, 0, sub(tok(bytecode.OpNothing, 0))), &BranchInfo{Target: -1, IsRet: true}},
		{"stop", tok(bytecode.OpStop, 0), &BranchInfo{Target: -1, IsRet: true}},
		{"native", native(0x90, 0), nil},
		{"let", tok(bytecode.OpLet, 0, sub(tok(bytecode.OpIntOne, 0)), sub(tok(bytecode.OpIntOne, 0))), nil},
	}
	for _, tt := range tests {
		got := DecodeBranch(tt.tok)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("%s: DecodeBranch = %+v, want nil", tt.name, got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("%s: DecodeBranch = %+v, want %+v", tt.name, got, tt.want)
		}
		if term := IsBranchTerminator(tt.tok); term != (tt.want != nil) {
			t.Errorf("%s: IsBranchTerminator = %v", tt.name, term)
		}
	}
}

func TestExtractCallEdges(t *testing.T) {
	insts := Disassemble(sample(), Options{})
	edges := ExtractCallEdges(insts, names{2: "Fire"})
	want := []CallEdge{
		{FromOffset: 0x00, Kind: CallVirtual, Target: "IsReady"},
		{FromOffset: 0x06, Kind: CallFinal, Target: "Fire"},
		{FromOffset: 0x10, Kind: CallNative, Target: "Tick", Native: 0x90},
	}
	if len(edges) != len(want) {
		t.Fatalf("got %d edges, want %d: %+v", len(edges), len(want), edges)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge[%d] = %+v, want %+v", i, edges[i], want[i])
		}
	}

	recs := Records("Engine.Actor.Tick", edges)
	if recs[2].FromOffset != "0x0010" || recs[2].FromFunc != "Engine.Actor.Tick" {
		t.Errorf("record = %+v", recs[2])
	}
}

func TestExtractCallEdges_Nested(t *testing.T) {
	global := tok(bytecode.OpGlobalFunction, 0, bytecode.Arg{Kind: bytecode.ArgName, Str: "Spawn"}, params())
	stmt := native(0x91, 0x20, global)
	edges := ExtractCallEdges([]Inst{{Offset: 0x20, Token: stmt}}, nil)
	if len(edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(edges))
	}
	if edges[0].Target != "native145" || edges[1].Kind != CallGlobal || edges[1].Target != "Spawn" {
		t.Errorf("edges = %+v", edges)
	}
}
