package bytecode

import (
	"fmt"

	"uepkg/internal/ufmt"
)

// Write encodes t and everything nested in it.
func Write(w *ufmt.Writer, t *Token) error {
	if t.IsNative() {
		if t.Native > NativeMax {
			return fmt.Errorf("native index %d: %w", t.Native, ufmt.ErrUnsupported)
		}
		if t.Native > 0xff {
			w.WriteByte(NativeExtended + byte(t.Native>>8&0x0f))
		}
		w.WriteByte(byte(t.Native))
	} else {
		info, ok := t.Info()
		if !ok {
			return ufmt.Malformedf("Unknown token: %02x, table: %s", t.Op, t.Table)
		}
		if len(t.Args) != len(info.Operands) {
			return ufmt.Malformedf("%s: %d operands, want %d", info.Name, len(t.Args), len(info.Operands))
		}
		w.WriteByte(t.Op)
	}
	for _, a := range t.Args {
		if err := writeArg(w, a); err != nil {
			return fmt.Errorf("%s: %w", t.Name(), err)
		}
	}
	return nil
}

// WriteScript encodes a token sequence.
func WriteScript(w *ufmt.Writer, script []*Token) error {
	for i, t := range script {
		if err := Write(w, t); err != nil {
			return fmt.Errorf("token %d: %w", i, err)
		}
	}
	return nil
}

func writeArg(w *ufmt.Writer, a Arg) error {
	switch a.Kind {
	case ArgToken:
		if a.Token == nil {
			return ufmt.Malformedf("missing nested token")
		}
		return Write(w, a.Token)
	case ArgCaseExpr:
		if a.Token != nil {
			return Write(w, a.Token)
		}
	case ArgParams:
		return WriteScript(w, a.List)
	case ArgU8:
		w.WriteByte(byte(a.Int))
	case ArgU16:
		w.WriteUint16(uint16(a.Int))
	case ArgI32:
		w.WriteInt32(int32(a.Int))
	case ArgI64:
		w.WriteInt64(a.Int)
	case ArgF32:
		w.WriteFloat32(a.Float)
	case ArgObject, ArgName:
		w.WriteCompact(int32(a.Int))
	case ArgString:
		return w.WriteCString(a.Str)
	case ArgLabels:
		for _, l := range a.Labels {
			w.WriteCompact(l.Name)
			w.WriteInt32(l.Offset)
		}
	default:
		return fmt.Errorf("operand %s: %w", a.Kind, ufmt.ErrUnsupported)
	}
	return nil
}
