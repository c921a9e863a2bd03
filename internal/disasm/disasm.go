// Package disasm lists compiled UnrealScript as offset-addressed statements
// and builds basic-block control flow graphs over them.
package disasm

import (
	"fmt"
	"strings"

	"uepkg/internal/bytecode"
	"uepkg/internal/ufmt"
)

// Inst is one top-level statement of a script.
type Inst struct {
	Offset int // byte offset within the script
	Size   int
	Token  *bytecode.Token
	Text   string // rendered expression
}

// Annotator returns a trailing comment for an instruction, or "".
type Annotator func(Inst) string

// Options controls disassembly behavior.
type Options struct {
	Naming   bytecode.Naming // nil renders references as obj<N> and natives as native<N>
	Charset  *ufmt.Charset
	MaxSteps int // maximum statements to list; 0 = 1M
}

const defaultMaxSteps = 1_000_000

func (o Options) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

type bareNaming struct{}

func (bareNaming) ObjectName(ref int32) string            { return fmt.Sprintf("obj%d", ref) }
func (bareNaming) Native(int) (bytecode.NativeInfo, bool) { return bytecode.NativeInfo{}, false }

// Disassemble renders the statements of script, up to MaxSteps.
func Disassemble(script []*bytecode.Token, opts Options) []Inst {
	n := min(len(script), opts.effectiveMax())
	naming := opts.Naming
	if naming == nil {
		naming = bareNaming{}
	}

	result := make([]Inst, 0, n)
	for _, t := range script[:n] {
		result = append(result, Inst{
			Offset: t.Offset,
			Size:   t.Size(opts.Charset),
			Token:  t,
			Text:   bytecode.Render(t, naming),
		})
	}
	return result
}

// Format renders instructions as stable text output.
// Each line: <offset>  <opcode name>  <expression>  ; <comment>
// Annotators are checked in order; the first non-empty result is used.
func Format(insts []Inst, annotators ...Annotator) string {
	var b strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&b, "0x%04x  %-16s  %s", inst.Offset, inst.Token.Name(), inst.Text)
		for _, ann := range annotators {
			if s := ann(inst); s != "" {
				fmt.Fprintf(&b, "  ; %s", s)
				break
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// TargetAnnotator marks statements that are branch targets of other
// statements in insts.
func TargetAnnotator(insts []Inst) Annotator {
	from := make(map[int][]int)
	for _, inst := range insts {
		if bi := DecodeBranch(inst.Token); bi != nil && !bi.IsRet && bi.Target >= 0 {
			from[bi.Target] = append(from[bi.Target], inst.Offset)
		}
	}
	return func(inst Inst) string {
		srcs := from[inst.Offset]
		if len(srcs) == 0 {
			return ""
		}
		parts := make([]string, len(srcs))
		for i, s := range srcs {
			parts[i] = fmt.Sprintf("0x%04x", s)
		}
		return "from " + strings.Join(parts, ", ")
	}
}
