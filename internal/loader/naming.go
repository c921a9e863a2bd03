package loader

import (
	"fmt"

	"uepkg/internal/bytecode"
	"uepkg/internal/object"
	"uepkg/internal/upkg"
)

// Naming returns a bytecode.Naming resolving object references of p and
// native functions registered with l. Natives are only known once the
// functions declaring them have been decoded. The result submits to the
// lane; code running on the lane uses l.laneNaming instead.
func (l *Loader) Naming(p *upkg.Package) bytecode.Naming {
	return naming{l: l, pkg: p}
}

// laneNaming is Naming for code already running on the lane.
func (l *Loader) laneNaming(p *upkg.Package) bytecode.Naming {
	return naming{l: l, pkg: p, inline: true}
}

type naming struct {
	l      *Loader
	pkg    *upkg.Package
	inline bool
}

func (n naming) ObjectName(ref int32) string {
	e, err := n.pkg.Entry(ref)
	if err != nil || e == nil {
		return fmt.Sprintf("obj%d", ref)
	}
	return e.ObjectName()
}

func (n naming) Native(i int) (bytecode.NativeInfo, bool) {
	var fn *object.Object
	var ok bool
	if n.inline {
		fn, ok = n.l.natives[i]
	} else {
		fn, ok = n.l.NativeFunction(i)
	}
	if !ok {
		return bytecode.NativeInfo{}, false
	}
	return NativeInfo(fn), true
}

// NativeInfo describes a decoded function for rendering native calls.
func NativeInfo(fn *object.Object) bytecode.NativeInfo {
	info := bytecode.NativeInfo{Name: fn.Entry.ObjectName}
	if fn.Struct != nil && fn.Struct.FriendlyName.Name != "" && fn.Struct.FriendlyName.Name != "None" {
		info.Name = fn.Struct.FriendlyName.Name
	}
	if fn.Function != nil {
		info.Operator = fn.Function.Flags&object.FuncOperator != 0
		info.PreOperator = fn.Function.Flags&object.FuncPreOperator != 0
		info.Precedence = int(fn.Function.OperatorPrecedence)
	}
	return info
}
