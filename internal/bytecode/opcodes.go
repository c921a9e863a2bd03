// Package bytecode decodes and encodes compiled UnrealScript function bodies
// as trees of tokens, computes their exact encoded sizes and renders them as
// readable expressions.
package bytecode

import (
	"fmt"
	"log/slog"
)

// Table selects the opcode namespace a byte is looked up in.
type Table uint8

const (
	TableMain Table = iota
	TableConversion
)

func (t Table) String() string {
	if t == TableConversion {
		return "Conversion"
	}
	return "Main"
}

// Main table opcodes.
const (
	OpLocalVariable    byte = 0x00
	OpInstanceVariable byte = 0x01
	OpDefaultVariable  byte = 0x02
	OpReturn           byte = 0x04
	OpSwitch           byte = 0x05
	OpJump             byte = 0x06
	OpJumpIfNot        byte = 0x07
	OpStop             byte = 0x08
	OpAssert           byte = 0x09
	OpCase             byte = 0x0a
	OpNothing          byte = 0x0b
	OpLabelTable       byte = 0x0c
	OpGotoLabel        byte = 0x0d
	OpEatString        byte = 0x0e
	OpLet              byte = 0x0f
	OpDynArrayElement  byte = 0x10
	OpNew              byte = 0x11
	OpClassContext     byte = 0x12
	OpMetacast         byte = 0x13
	OpLetBool          byte = 0x14
	OpEndFunctionParms byte = 0x16
	OpSelf             byte = 0x17
	OpSkip             byte = 0x18
	OpContext          byte = 0x19
	OpArrayElement     byte = 0x1a
	OpVirtualFunction  byte = 0x1b
	OpFinalFunction    byte = 0x1c
	OpIntConst         byte = 0x1d
	OpFloatConst       byte = 0x1e
	OpStringConst      byte = 0x1f
	OpObjectConst      byte = 0x20
	OpNameConst        byte = 0x21
	OpRotatorConst     byte = 0x22
	OpVectorConst      byte = 0x23
	OpByteConst        byte = 0x24
	OpIntZero          byte = 0x25
	OpIntOne           byte = 0x26
	OpTrue             byte = 0x27
	OpFalse            byte = 0x28
	OpNativeParam      byte = 0x29
	OpNoObject         byte = 0x2a
	OpIntConstByte     byte = 0x2c
	OpBoolVariable     byte = 0x2d
	OpDynamicCast      byte = 0x2e
	OpIterator         byte = 0x2f
	OpIteratorPop      byte = 0x30
	OpIteratorNext     byte = 0x31
	OpStructCmpEq      byte = 0x32
	OpStructCmpNe      byte = 0x33
	OpStructMember     byte = 0x36
	OpLength           byte = 0x37
	OpGlobalFunction   byte = 0x38
	OpConversionTable  byte = 0x39
	OpInsert           byte = 0x40
	OpRemove           byte = 0x41
	OpDelegateName     byte = 0x44
	OpInt64Const       byte = 0x46
	OpDynArraySort     byte = 0x47
)

// Native call encoding: bytes 0x60-0x6F prefix a two-byte index, bytes from
// 0x70 up are the index itself.
const (
	NativeExtended byte = 0x60
	NativeFirst         = 0x70
	NativeMax           = 0xfff
)

// Operand describes one field of a token's encoding.
type Operand uint8

const (
	ArgToken   Operand = iota // nested token
	ArgParams                 // tokens up to and including EndFunctionParms
	ArgU8                     // uint8
	ArgU16                    // little-endian uint16 (code offsets, line numbers)
	ArgI32                    // little-endian int32
	ArgI64                    // little-endian int64
	ArgF32                    // IEEE float
	ArgObject                 // compact object reference
	ArgName                   // compact name index
	ArgString                 // NUL-terminated string
	ArgLabels                 // label table terminated by the "None" label
	ArgCaseExpr               // nested token unless the preceding U16 is 0xFFFF
)

var operandNames = [...]string{"token", "params", "u8", "u16", "i32", "i64", "f32", "object", "name", "string", "labels", "case"}

func (o Operand) String() string {
	if int(o) < len(operandNames) {
		return operandNames[o]
	}
	return fmt.Sprintf("Operand(%d)", uint8(o))
}

// OpInfo is the static description of one opcode.
type OpInfo struct {
	Op       byte
	Table    Table
	Name     string
	Operands []Operand
	render   func(t *Token, r *renderer) string
}

var tables [2][256]*OpInfo

// Register installs info in its table. A later registration for the same
// opcode and table replaces the earlier one.
func Register(info OpInfo) {
	if prev := tables[info.Table][info.Op]; prev != nil {
		slog.Debug("bytecode: opcode re-registered", "table", info.Table, "op", fmt.Sprintf("0x%02x", info.Op), "old", prev.Name, "new", info.Name)
	}
	tables[info.Table][info.Op] = &info
}

// Lookup returns the registration for op in table.
func Lookup(table Table, op byte) (*OpInfo, bool) {
	info := tables[table][op]
	return info, info != nil
}

func reg(table Table, op byte, name string, render func(*Token, *renderer) string, operands ...Operand) {
	Register(OpInfo{Op: op, Table: table, Name: name, Operands: operands, render: render})
}

func init() {
	m := TableMain
	reg(m, OpLocalVariable, "LocalVariable", renderVariable, ArgObject)
	reg(m, OpInstanceVariable, "InstanceVariable", renderVariable, ArgObject)
	reg(m, OpDefaultVariable, "DefaultVariable", renderDefaultVariable, ArgObject)
	reg(m, OpReturn, "Return", renderReturn, ArgToken)
	reg(m, OpSwitch, "Switch", renderSwitch, ArgU8, ArgToken)
	reg(m, OpJump, "Jump", renderJump, ArgU16)
	reg(m, OpJumpIfNot, "JumpIfNot", renderJumpIfNot, ArgU16, ArgToken)
	reg(m, OpStop, "Stop", renderText("stop"))
	reg(m, OpAssert, "Assert", renderAssert, ArgU16, ArgToken)
	reg(m, OpCase, "Case", renderCase, ArgU16, ArgCaseExpr)
	reg(m, OpNothing, "Nothing", renderText(""))
	reg(m, OpLabelTable, "LabelTable", renderLabelTable, ArgLabels)
	reg(m, OpGotoLabel, "GotoLabel", renderGotoLabel, ArgToken)
	reg(m, OpEatString, "EatString", renderFirst, ArgToken)
	reg(m, OpLet, "Let", renderLet, ArgToken, ArgToken)
	reg(m, OpDynArrayElement, "DynArrayElement", renderElement, ArgToken, ArgToken)
	reg(m, OpNew, "New", renderNew, ArgToken, ArgToken, ArgToken, ArgToken)
	reg(m, OpClassContext, "ClassContext", renderClassContext, ArgToken, ArgU16, ArgU8, ArgToken)
	reg(m, OpMetacast, "Metacast", renderMetacast, ArgObject, ArgToken)
	reg(m, OpLetBool, "LetBool", renderLet, ArgToken, ArgToken)
	reg(m, OpEndFunctionParms, "EndFunctionParms", renderText(""))
	reg(m, OpSelf, "Self", renderText("self"))
	reg(m, OpSkip, "Skip", renderSkip, ArgU16)
	reg(m, OpContext, "Context", renderContext, ArgToken, ArgU16, ArgU8, ArgToken)
	reg(m, OpArrayElement, "ArrayElement", renderElement, ArgToken, ArgToken)
	reg(m, OpVirtualFunction, "VirtualFunction", renderVirtualFunction, ArgName, ArgParams)
	reg(m, OpFinalFunction, "FinalFunction", renderFinalFunction, ArgObject, ArgParams)
	reg(m, OpIntConst, "IntConst", renderNumber, ArgI32)
	reg(m, OpFloatConst, "FloatConst", renderNumber, ArgF32)
	reg(m, OpStringConst, "StringConst", renderString, ArgString)
	reg(m, OpObjectConst, "ObjectConst", renderObjectConst, ArgObject)
	reg(m, OpNameConst, "NameConst", renderNameConst, ArgName)
	reg(m, OpRotatorConst, "RotatorConst", renderTuple("rot"), ArgI32, ArgI32, ArgI32)
	reg(m, OpVectorConst, "VectorConst", renderTuple("vect"), ArgF32, ArgF32, ArgF32)
	reg(m, OpByteConst, "ByteConst", renderNumber, ArgU8)
	reg(m, OpIntZero, "IntZero", renderText("0"))
	reg(m, OpIntOne, "IntOne", renderText("1"))
	reg(m, OpTrue, "True", renderText("true"))
	reg(m, OpFalse, "False", renderText("false"))
	reg(m, OpNativeParam, "NativeParam", renderVariable, ArgObject)
	reg(m, OpNoObject, "NoObject", renderText("None"))
	reg(m, OpIntConstByte, "IntConstByte", renderNumber, ArgU8)
	reg(m, OpBoolVariable, "BoolVariable", renderFirst, ArgToken)
	reg(m, OpDynamicCast, "DynamicCast", renderDynamicCast, ArgObject, ArgToken)
	reg(m, OpIterator, "Iterator", renderIterator, ArgToken, ArgU16)
	reg(m, OpIteratorPop, "IteratorPop", renderText(""))
	reg(m, OpIteratorNext, "IteratorNext", renderText(""))
	reg(m, OpStructCmpEq, "StructCmpEq", renderStructCmp("=="), ArgObject, ArgToken, ArgToken)
	reg(m, OpStructCmpNe, "StructCmpNe", renderStructCmp("!="), ArgObject, ArgToken, ArgToken)
	reg(m, OpStructMember, "StructMember", renderStructMember, ArgObject, ArgToken)
	reg(m, OpLength, "Length", renderLength, ArgToken)
	reg(m, OpGlobalFunction, "GlobalFunction", renderGlobalFunction, ArgName, ArgParams)
	reg(m, OpConversionTable, "ConversionTable", renderFirst, ArgToken)
	reg(m, OpInsert, "Insert", renderArrayCall("Insert"), ArgToken, ArgToken, ArgToken)
	reg(m, OpRemove, "Remove", renderArrayCall("Remove"), ArgToken, ArgToken, ArgToken)
	reg(m, OpDelegateName, "DelegateName", renderNameConst, ArgName)
	reg(m, OpInt64Const, "INT64Const", renderNumber, ArgI64)
	reg(m, OpDynArraySort, "DynArraySort", renderArrayCall("Sort"), ArgToken, ArgToken)

	reg(TableConversion, OpConversionTable, "ConversionTable", renderFirst, ArgToken)
	for i, c := range conversions {
		reg(TableConversion, 0x3a+byte(i), c.from+"To"+c.to, renderConversion(c.to), ArgToken)
	}
}

// conversions lists the Conversion table from opcode 0x3a upward.
var conversions = []struct{ from, to string }{
	{"Byte", "Int"}, {"Byte", "Bool"}, {"Byte", "Float"},
	{"Int", "Byte"}, {"Int", "Bool"}, {"Int", "Float"},
	{"Bool", "Byte"}, {"Bool", "Int"}, {"Bool", "Float"},
	{"Float", "Byte"}, {"Float", "Int"}, {"Float", "Bool"},
	{"String", "Name"}, {"Object", "Bool"}, {"Name", "Bool"},
	{"String", "Byte"}, {"String", "Int"}, {"String", "Bool"}, {"String", "Float"},
	{"String", "Vector"}, {"String", "Rotator"},
	{"Vector", "Bool"}, {"Vector", "Rotator"}, {"Rotator", "Bool"},
	{"Byte", "String"}, {"Int", "String"}, {"Bool", "String"}, {"Float", "String"},
	{"Object", "String"}, {"Name", "String"}, {"Vector", "String"}, {"Rotator", "String"},
	{"Byte", "INT64"}, {"Int", "INT64"}, {"Bool", "INT64"}, {"Float", "INT64"}, {"String", "INT64"},
	{"INT64", "Byte"}, {"INT64", "Int"}, {"INT64", "Bool"}, {"INT64", "Float"}, {"INT64", "String"},
}
