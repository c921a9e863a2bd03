package object

import (
	"fmt"
	"math/bits"
	"strings"
)

// Flags are export object flags (RF_*).
type Flags uint32

const (
	FlagTransactional  Flags = 0x00000001
	FlagUnreachable    Flags = 0x00000002
	FlagPublic         Flags = 0x00000004
	FlagTagImp         Flags = 0x00000008
	FlagTagExp         Flags = 0x00000010
	FlagSourceModified Flags = 0x00000020
	FlagTagGarbage     Flags = 0x00000040
	FlagNeedLoad       Flags = 0x00000200
	FlagHighlighted    Flags = 0x00000400
	FlagInSingularFunc Flags = 0x00000800
	FlagSuppress       Flags = 0x00001000
	FlagInEndState     Flags = 0x00002000
	FlagTransient      Flags = 0x00004000
	FlagPreLoading     Flags = 0x00008000
	FlagLoadForClient  Flags = 0x00010000
	FlagLoadForServer  Flags = 0x00020000
	FlagLoadForEdit    Flags = 0x00040000
	FlagStandalone     Flags = 0x00080000
	FlagNotForClient   Flags = 0x00100000
	FlagNotForServer   Flags = 0x00200000
	FlagNotForEdit     Flags = 0x00400000
	FlagDestroyed      Flags = 0x00800000
	FlagNeedPostLoad   Flags = 0x01000000
	FlagHasStack       Flags = 0x02000000
	FlagNative         Flags = 0x04000000
	FlagMarked         Flags = 0x08000000
	FlagErrorShutdown  Flags = 0x10000000
	FlagDebugPostLoad  Flags = 0x20000000
	FlagDebugSerialize Flags = 0x40000000
	FlagDebugDestroy   Flags = 0x80000000
)

var objectFlagNames = map[Flags]string{
	FlagTransactional: "Transactional", FlagUnreachable: "Unreachable", FlagPublic: "Public",
	FlagTagImp: "TagImp", FlagTagExp: "TagExp", FlagSourceModified: "SourceModified",
	FlagTagGarbage: "TagGarbage", FlagNeedLoad: "NeedLoad", FlagHighlighted: "Highlighted",
	FlagInSingularFunc: "InSingularFunc", FlagSuppress: "Suppress", FlagInEndState: "InEndState",
	FlagTransient: "Transient", FlagPreLoading: "PreLoading", FlagLoadForClient: "LoadForClient",
	FlagLoadForServer: "LoadForServer", FlagLoadForEdit: "LoadForEdit", FlagStandalone: "Standalone",
	FlagNotForClient: "NotForClient", FlagNotForServer: "NotForServer", FlagNotForEdit: "NotForEdit",
	FlagDestroyed: "Destroyed", FlagNeedPostLoad: "NeedPostLoad", FlagHasStack: "HasStack",
	FlagNative: "Native", FlagMarked: "Marked", FlagErrorShutdown: "ErrorShutdown",
	FlagDebugPostLoad: "DebugPostLoad", FlagDebugSerialize: "DebugSerialize", FlagDebugDestroy: "DebugDestroy",
}

func (f Flags) String() string {
	return flagString(uint32(f), "", func(b uint32) string { return objectFlagNames[Flags(b)] })
}

// FunctionFlags are function flags (FUNC_*), one bit per flag in
// declaration order.
type FunctionFlags uint32

const (
	FuncFinal FunctionFlags = 1 << iota
	FuncDefined
	FuncIterator
	FuncLatent
	FuncPreOperator
	FuncSingular
	FuncNet
	FuncNetReliable
	FuncSimulated
	FuncExec
	FuncNative
	FuncEvent
	FuncOperator
	FuncStatic
	FuncNoExport
	FuncConst
	FuncInvariant
	FuncProtected
	_
	_
	FuncDelegate
)

var functionFlagNames = []string{
	"FINAL", "DEFINED", "ITERATOR", "LATENT", "PRE_OPERATOR", "SINGULAR", "NET",
	"NET_RELIABLE", "SIMULATED", "EXEC", "NATIVE", "EVENT", "OPERATOR", "STATIC",
	"NO_EXPORT", "CONST", "INVARIANT", "PROTECTED", "", "", "DELEGATE",
}

func (f FunctionFlags) String() string {
	return flagString(uint32(f), "FUNC_", func(b uint32) string {
		if i := bits.TrailingZeros32(b); i < len(functionFlagNames) {
			return functionFlagNames[i]
		}
		return ""
	})
}

// StateFlags are state flags (STATE_*).
type StateFlags uint32

const (
	StateEditable  StateFlags = 0x00000001
	StateAuto      StateFlags = 0x00000002
	StateSimulated StateFlags = 0x00000004
)

func (f StateFlags) String() string {
	return flagString(uint32(f), "STATE_", func(b uint32) string {
		switch StateFlags(b) {
		case StateEditable:
			return "Editable"
		case StateAuto:
			return "Auto"
		case StateSimulated:
			return "Simulated"
		}
		return ""
	})
}

// flagString joins the names of the set bits of v with "|"; bits without a
// name are printed in hex.
func flagString(v uint32, prefix string, name func(uint32) string) string {
	if v == 0 {
		return "0"
	}
	var parts []string
	for v != 0 {
		b := v & -v
		v &^= b
		if n := name(b); n != "" {
			parts = append(parts, prefix+n)
		} else {
			parts = append(parts, fmt.Sprintf("0x%x", b))
		}
	}
	return strings.Join(parts, "|")
}
