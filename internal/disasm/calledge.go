package disasm

import (
	"fmt"

	"uepkg/internal/bytecode"
)

// Call kinds.
const (
	CallVirtual = "virtual" // by name, dispatched on the context object
	CallFinal   = "final"   // bound to a function object
	CallGlobal  = "global"  // by name, skipping state overrides
	CallNative  = "native"  // by native index
)

// CallEdge represents a call site extracted from a script.
type CallEdge struct {
	FromOffset int    `json:"from_offset"` // offset of the enclosing statement
	Kind       string `json:"kind"`
	Target     string `json:"target"`
	Native     int    `json:"native,omitempty"`
}

// ExtractCallEdges walks every statement, nested expressions included, and
// returns the calls in script order.
func ExtractCallEdges(insts []Inst, n bytecode.Naming) []CallEdge {
	if n == nil {
		n = bareNaming{}
	}
	var edges []CallEdge
	for _, inst := range insts {
		bytecode.Walk(inst.Token, func(t *bytecode.Token) bool {
			if e, ok := callEdge(t, n); ok {
				e.FromOffset = inst.Offset
				edges = append(edges, e)
			}
			return true
		})
	}
	return edges
}

func callEdge(t *bytecode.Token, n bytecode.Naming) (CallEdge, bool) {
	if t.IsNative() {
		e := CallEdge{Kind: CallNative, Native: t.Native, Target: fmt.Sprintf("native%d", t.Native)}
		if info, ok := n.Native(t.Native); ok && info.Name != "" {
			e.Target = info.Name
		}
		return e, true
	}
	if t.Table != bytecode.TableMain || len(t.Args) == 0 {
		return CallEdge{}, false
	}
	switch t.Op {
	case bytecode.OpVirtualFunction:
		return CallEdge{Kind: CallVirtual, Target: t.Args[0].Str}, true
	case bytecode.OpGlobalFunction:
		return CallEdge{Kind: CallGlobal, Target: t.Args[0].Str}, true
	case bytecode.OpFinalFunction:
		return CallEdge{Kind: CallFinal, Target: n.ObjectName(int32(t.Args[0].Int))}, true
	}
	return CallEdge{}, false
}

// CallEdgeRecord is one line of a call edge listing.
type CallEdgeRecord struct {
	FromFunc   string `json:"from_func"`
	FromOffset string `json:"from_offset"`
	Kind       string `json:"kind"`
	Target     string `json:"target"`
}

// FuncRecord is one line of a function listing.
type FuncRecord struct {
	Name       string `json:"name"`
	Owner      string `json:"owner,omitempty"`
	Size       int    `json:"size"`
	Statements int    `json:"statements"`
	Native     int    `json:"native,omitempty"`
}

// Records converts edges of function name to listing records.
func Records(name string, edges []CallEdge) []CallEdgeRecord {
	out := make([]CallEdgeRecord, len(edges))
	for i, e := range edges {
		out[i] = CallEdgeRecord{
			FromFunc:   name,
			FromOffset: fmt.Sprintf("0x%04x", e.FromOffset),
			Kind:       e.Kind,
			Target:     e.Target,
		}
	}
	return out
}
