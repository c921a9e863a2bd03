package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// NativeInfo describes a registered native function for rendering.
type NativeInfo struct {
	Name        string
	Operator    bool
	PreOperator bool
	Precedence  int
}

// Naming resolves the references a token tree needs for display.
type Naming interface {
	// ObjectName returns the short name of the object at ref.
	ObjectName(ref int32) string
	// Native returns the function registered for a native index.
	Native(index int) (NativeInfo, bool)
}

type renderer struct {
	n Naming
}

// Render returns t as a source-like expression.
func Render(t *Token, n Naming) string {
	r := &renderer{n: n}
	return r.token(t)
}

func (r *renderer) token(t *Token) string {
	if t == nil {
		return ""
	}
	if t.IsNative() {
		return r.native(t)
	}
	info, ok := t.Info()
	if !ok || info.render == nil {
		return fmt.Sprintf("token%02x", t.Op)
	}
	return info.render(t, r)
}

func (r *renderer) object(ref int64) string {
	if ref == 0 {
		return "None"
	}
	if r.n == nil {
		return fmt.Sprintf("obj%d", ref)
	}
	return r.n.ObjectName(int32(ref))
}

func (r *renderer) args(list []*Token) string {
	parts := make([]string, len(list))
	for i, t := range list {
		parts[i] = r.token(t)
	}
	return strings.Join(parts, ", ")
}

func (r *renderer) nativeInfo(t *Token) (NativeInfo, bool) {
	if r.n == nil || !t.IsNative() {
		return NativeInfo{}, false
	}
	return r.n.Native(t.Native)
}

func (r *renderer) native(t *Token) string {
	params := t.Params()
	info, ok := r.nativeInfo(t)
	if !ok {
		return fmt.Sprintf("native%d(%s)", t.Native, r.args(params))
	}
	switch {
	case info.PreOperator && len(params) == 1:
		operand := r.token(params[0])
		if in, ok := r.nativeInfo(params[0]); params[0].IsNative() && (!ok || in.Operator || in.PreOperator) {
			operand = "(" + operand + ")"
		}
		return info.Name + operand
	case info.Operator && info.Precedence > 0 && len(params) == 2:
		left := r.operand(params[0], func(p int) bool { return p > info.Precedence })
		right := r.operand(params[1], func(p int) bool { return p >= info.Precedence })
		return left + " " + info.Name + " " + right
	case info.Operator && len(params) == 1:
		return r.token(params[0]) + info.Name
	}
	return info.Name + "(" + r.args(params) + ")"
}

// operand renders an operator argument, bracketing nested operator calls
// whose precedence satisfies wrap and nested natives that are not known.
func (r *renderer) operand(t *Token, wrap func(int) bool) string {
	s := r.token(t)
	if !t.IsNative() {
		return s
	}
	in, ok := r.nativeInfo(t)
	if !ok || in.Operator && in.Precedence > 0 && wrap(in.Precedence) {
		return "(" + s + ")"
	}
	return s
}

func renderText(s string) func(*Token, *renderer) string {
	return func(*Token, *renderer) string { return s }
}

func renderFirst(t *Token, r *renderer) string { return r.token(t.Args[0].Token) }

func renderVariable(t *Token, r *renderer) string { return r.object(t.Args[0].Int) }

func renderDefaultVariable(t *Token, r *renderer) string {
	return "Default." + r.object(t.Args[0].Int)
}

func renderReturn(t *Token, r *renderer) string {
	if v := r.token(t.Args[0].Token); v != "" {
		return "return " + v
	}
	return "return"
}

func renderSwitch(t *Token, r *renderer) string {
	return "switch (" + r.token(t.Args[1].Token) + ")"
}

func renderJump(t *Token, r *renderer) string {
	return fmt.Sprintf("jump 0x%04x", t.Args[0].Int)
}

func renderJumpIfNot(t *Token, r *renderer) string {
	return fmt.Sprintf("if (!(%s)) jump 0x%04x", r.token(t.Args[1].Token), t.Args[0].Int)
}

func renderAssert(t *Token, r *renderer) string {
	return "assert(" + r.token(t.Args[1].Token) + ")"
}

func renderCase(t *Token, r *renderer) string {
	if t.Args[0].Int == 0xffff {
		return "default:"
	}
	return "case " + r.token(t.Args[1].Token) + ":"
}

func renderLabelTable(t *Token, r *renderer) string {
	var parts []string
	for _, l := range t.Args[0].Labels {
		if strings.EqualFold(l.Text, "None") {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=0x%04x", l.Text, l.Offset))
	}
	return "labels(" + strings.Join(parts, ", ") + ")"
}

func renderGotoLabel(t *Token, r *renderer) string {
	return "goto " + r.token(t.Args[0].Token)
}

func renderLet(t *Token, r *renderer) string {
	return r.token(t.Args[0].Token) + " = " + r.token(t.Args[1].Token)
}

func renderElement(t *Token, r *renderer) string {
	return r.token(t.Args[1].Token) + "[" + r.token(t.Args[0].Token) + "]"
}

func renderNew(t *Token, r *renderer) string {
	var parts []string
	for _, a := range t.Args[:3] {
		if s := r.token(a.Token); s != "" {
			parts = append(parts, s)
		}
	}
	class := r.token(t.Args[3].Token)
	if len(parts) == 0 {
		return "new " + class
	}
	return "new (" + strings.Join(parts, ", ") + ") " + class
}

func renderClassContext(t *Token, r *renderer) string {
	return r.token(t.Args[0].Token) + ".static." + r.token(t.Args[3].Token)
}

func renderContext(t *Token, r *renderer) string {
	return r.token(t.Args[0].Token) + "." + r.token(t.Args[3].Token)
}

func renderMetacast(t *Token, r *renderer) string {
	return "class<" + r.object(t.Args[0].Int) + ">(" + r.token(t.Args[1].Token) + ")"
}

func renderSkip(t *Token, r *renderer) string {
	return fmt.Sprintf("skip 0x%04x", t.Args[0].Int)
}

func renderVirtualFunction(t *Token, r *renderer) string {
	return t.Args[0].Str + "(" + r.args(t.Params()) + ")"
}

func renderFinalFunction(t *Token, r *renderer) string {
	return r.object(t.Args[0].Int) + "(" + r.args(t.Params()) + ")"
}

func renderGlobalFunction(t *Token, r *renderer) string {
	return "Global." + t.Args[0].Str + "(" + r.args(t.Params()) + ")"
}

func renderNumber(t *Token, r *renderer) string {
	a := t.Args[0]
	if a.Kind == ArgF32 {
		return formatFloat(a.Float)
	}
	return strconv.FormatInt(a.Int, 10)
}

func formatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func renderString(t *Token, r *renderer) string { return strconv.Quote(t.Args[0].Str) }

func renderObjectConst(t *Token, r *renderer) string { return r.object(t.Args[0].Int) }

func renderNameConst(t *Token, r *renderer) string { return "'" + t.Args[0].Str + "'" }

func renderTuple(name string) func(*Token, *renderer) string {
	return func(t *Token, r *renderer) string {
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			if a.Kind == ArgF32 {
				parts[i] = formatFloat(a.Float)
			} else {
				parts[i] = strconv.FormatInt(a.Int, 10)
			}
		}
		return name + "(" + strings.Join(parts, ", ") + ")"
	}
}

func renderDynamicCast(t *Token, r *renderer) string {
	return r.object(t.Args[0].Int) + "(" + r.token(t.Args[1].Token) + ")"
}

func renderIterator(t *Token, r *renderer) string {
	return "foreach " + r.token(t.Args[0].Token)
}

func renderStructCmp(op string) func(*Token, *renderer) string {
	return func(t *Token, r *renderer) string {
		return r.token(t.Args[1].Token) + " " + op + " " + r.token(t.Args[2].Token)
	}
}

func renderStructMember(t *Token, r *renderer) string {
	return r.token(t.Args[1].Token) + "." + r.object(t.Args[0].Int)
}

func renderLength(t *Token, r *renderer) string {
	return r.token(t.Args[0].Token) + ".Length"
}

func renderArrayCall(method string) func(*Token, *renderer) string {
	return func(t *Token, r *renderer) string {
		args := make([]*Token, 0, len(t.Args)-1)
		for _, a := range t.Args[1:] {
			args = append(args, a.Token)
		}
		return r.token(t.Args[0].Token) + "." + method + "(" + r.args(args) + ")"
	}
}

func renderConversion(to string) func(*Token, *renderer) string {
	to = strings.ToLower(to)
	return func(t *Token, r *renderer) string {
		return to + "(" + r.token(t.Args[0].Token) + ")"
	}
}
