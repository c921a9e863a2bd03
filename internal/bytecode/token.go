package bytecode

import (
	"uepkg/internal/ufmt"
)

// Token is one decoded instruction. Native calls have Native >= NativeFirst
// and a single ArgParams argument; every other token follows the operand
// layout of its OpInfo.
type Token struct {
	Op     byte
	Table  Table
	Native int
	Offset int // byte offset within the script, set by ReadScript
	Args   []Arg
}

// Arg is one decoded operand. Which fields are meaningful depends on Kind.
type Arg struct {
	Kind   Operand
	Int    int64   // integers, object refs, name indices, code offsets
	Float  float32 // ArgF32
	Str    string  // ArgString, resolved name text for ArgName
	Token  *Token  // ArgToken, ArgCaseExpr (nil for the default case)
	List   []*Token
	Labels []Label
}

// Label is one label table entry.
type Label struct {
	Name   int32
	Text   string
	Offset int32
}

// IsNative reports whether t is a native function call.
func (t *Token) IsNative() bool { return t.Native >= NativeFirst }

// Info returns the opcode registration of t; natives have none.
func (t *Token) Info() (*OpInfo, bool) {
	if t.IsNative() {
		return nil, false
	}
	return Lookup(t.Table, t.Op)
}

// Name returns the opcode name of t.
func (t *Token) Name() string {
	if t.IsNative() {
		return "Native"
	}
	if info, ok := t.Info(); ok {
		return info.Name
	}
	return "Unknown"
}

// Size returns the exact encoded length of t in bytes, nested tokens
// included. Strings are measured in cs; nil means ufmt.DefaultCharset.
func (t *Token) Size(cs *ufmt.Charset) int {
	n := 1
	if t.IsNative() && t.Native > 0xff {
		n = 2
	}
	for _, a := range t.Args {
		n += a.size(cs)
	}
	return n
}

func (a Arg) size(cs *ufmt.Charset) int {
	switch a.Kind {
	case ArgToken:
		return a.Token.Size(cs)
	case ArgCaseExpr:
		if a.Token == nil {
			return 0
		}
		return a.Token.Size(cs)
	case ArgParams:
		n := 0
		for _, t := range a.List {
			n += t.Size(cs)
		}
		return n
	case ArgU8:
		return 1
	case ArgU16:
		return 2
	case ArgI32, ArgF32:
		return 4
	case ArgI64:
		return 8
	case ArgObject, ArgName:
		return ufmt.CompactSize(int32(a.Int))
	case ArgString:
		if cs == nil {
			cs = ufmt.DefaultCharset
		}
		b, _ := cs.Encode(a.Str)
		return len(b) + 1
	case ArgLabels:
		n := 0
		for _, l := range a.Labels {
			n += ufmt.CompactSize(l.Name) + 4
		}
		return n
	}
	return 0
}

// ScriptSize returns the encoded length of a token sequence.
func ScriptSize(script []*Token, cs *ufmt.Charset) int {
	n := 0
	for _, t := range script {
		n += t.Size(cs)
	}
	return n
}

// Params returns the call arguments of a function call token without the
// trailing EndFunctionParms marker.
func (t *Token) Params() []*Token {
	for _, a := range t.Args {
		if a.Kind != ArgParams {
			continue
		}
		list := a.List
		if n := len(list); n > 0 && list[n-1].isEndParams() {
			list = list[:n-1]
		}
		return list
	}
	return nil
}

func (t *Token) isEndParams() bool {
	return !t.IsNative() && t.Table == TableMain && t.Op == OpEndFunctionParms
}

// Target returns the code offset t transfers control to, if it has one.
// For Case it is the offset of the next case label.
func (t *Token) Target() (int, bool) {
	if t.IsNative() || t.Table != TableMain {
		return 0, false
	}
	switch t.Op {
	case OpJump, OpJumpIfNot, OpCase:
		if t.Op == OpCase && t.Args[0].Int == 0xffff {
			return 0, false
		}
		return int(t.Args[0].Int), true
	case OpIterator:
		return int(t.Args[1].Int), true
	}
	return 0, false
}

// Walk calls fn for t and every nested token, depth first, parents first.
// Returning false from fn skips the children of that token.
func Walk(t *Token, fn func(*Token) bool) {
	if t == nil || !fn(t) {
		return
	}
	for _, a := range t.Args {
		switch a.Kind {
		case ArgToken, ArgCaseExpr:
			Walk(a.Token, fn)
		case ArgParams:
			for _, c := range a.List {
				Walk(c, fn)
			}
		}
	}
}
