package render

import (
	"strings"
	"testing"

	"uepkg/internal/bytecode"
	"uepkg/internal/disasm"
)

func TestHelpers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{dotEscape(`a<b>&"c"`), "a&lt;b&gt;&amp;&quot;c&quot;"},
		{dotID("Engine.Actor"), "n_Engine_002eActor"},
		{shortName("Engine.Actor"), "Actor"},
		{shortName("Actor"), "Actor"},
		{packageOf("Engine.Actor"), "Engine"},
		{packageOf("Actor"), ""},
		{truncLabel("abcdefgh", 6), "abc..."},
		{truncLabel("abc", 6), "abc"},
	}
	for i, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("case %d = %q, want %q", i, tt.got, tt.want)
		}
	}
}

func TestCFGDOT(t *testing.T) {
	cond := &bytecode.Token{Op: bytecode.OpTrue}
	script := []*bytecode.Token{
		{Op: bytecode.OpJumpIfNot, Offset: 0, Args: []bytecode.Arg{{Kind: bytecode.ArgU16, Int: 5}, {Kind: bytecode.ArgToken, Token: cond}}},
		{Op: bytecode.OpStop, Offset: 4},
		{Op: bytecode.OpReturn, Offset: 5, Args: []bytecode.Arg{{Kind: bytecode.ArgToken, Token: &bytecode.Token{Op: bytecode.OpNothing}}}},
	}
	cfg := disasm.BuildCFG("Engine.Actor.Tick", disasm.Disassemble(script, disasm.Options{}))
	dot := CFGDOT(cfg, NASA)

	for _, want := range []string{
		"digraph cfg {",
		"Engine.Actor.Tick",
		"bb0 [label=<0x0000: if (!(true)) jump 0x0005",
		"bb0 -> bb2 [color=\"#0B3D91\"",
		"bb0 -> bb1 [color=\"#FC3D21\"",
		"0x0005: return",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if CFGDOT(disasm.FuncCFG{}, NASA) != "" {
		t.Error("empty CFG should render nothing")
	}
}

func TestChildren(t *testing.T) {
	kids := Children([]ClassNode{
		{Name: "Engine.Pawn", Super: "Engine.Actor"},
		{Name: "Engine.Info", Super: "Engine.Actor"},
		{Name: "Engine.Actor", Super: "Core.Object"},
	})
	got := kids["Engine.Actor"]
	if len(got) != 2 || got[0] != "Engine.Info" || got[1] != "Engine.Pawn" {
		t.Errorf("children of Actor = %v", got)
	}
	if len(kids["Core.Object"]) != 1 {
		t.Errorf("children of Object = %v", kids["Core.Object"])
	}
}

func TestClassHierarchyDOT(t *testing.T) {
	dot := ClassHierarchyDOT([]ClassNode{
		{Name: "Engine.Actor", Super: "Core.Object", Methods: 3},
		{Name: "Engine.Pawn", Super: "Engine.Actor"},
	}, "classes", NASA)

	for _, want := range []string{
		"digraph hierarchy {",
		"label=<<font point-size=\"8\" color=\"#757575\">Core</font>>",
		"label=<<font point-size=\"8\" color=\"#757575\">Engine</font>>",
		"3 functions",
		"n_Engine_002ePawn -> n_Engine_002eActor;",
		"n_Engine_002eActor -> n_Core_002eObject;",
		"n_Core_002eObject [label=<Object>, fillcolor=\"#FFF3E0\"",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestClassgraphDOT(t *testing.T) {
	funcs := []disasm.FuncRecord{
		{Name: "Tick", Owner: "Engine.Pawn"},
		{Name: "Spawn", Owner: "Engine.Actor"},
		{Name: "Destroy", Owner: "Engine.Actor"},
		{Name: "Log"},
	}
	edges := []disasm.CallEdgeRecord{
		{FromFunc: "Tick", Kind: disasm.CallFinal, Target: "Spawn"},
		{FromFunc: "Tick", Kind: disasm.CallVirtual, Target: "Destroy"},
		{FromFunc: "Spawn", Kind: disasm.CallFinal, Target: "Destroy"}, // intra-class
		{FromFunc: "Spawn", Kind: disasm.CallNative, Target: "Log"},
		{FromFunc: "Tick", Kind: disasm.CallNative, Target: "native130"}, // unmatched
	}
	dot := ClassgraphDOT(funcs, edges, "calls", NASA, 0)

	if !strings.Contains(dot, "n_Engine_002ePawn -> n_Engine_002eActor [penwidth=2.5, label=") {
		t.Errorf("missing aggregated Pawn->Actor edge:\n%s", dot)
	}
	if !strings.Contains(dot, "n_Engine_002eActor -> n__0028unowned_0029 [penwidth=") {
		t.Errorf("missing Actor->unowned edge:\n%s", dot)
	}
	if strings.Count(dot, "->") != 2 {
		t.Errorf("edges = %d, want 2:\n%s", strings.Count(dot, "->"), dot)
	}

	limited := ClassgraphDOT(funcs, edges, "", NASA, 1)
	if strings.Contains(limited, "->") {
		t.Errorf("one-node graph should have no edges:\n%s", limited)
	}
}
