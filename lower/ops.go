package lower

import "github.com/gogpu/mixer/spirv"

var arithmeticOps = map[string]map[scalarKind]spirv.OpCode{
	"+": {kindInt: spirv.OpIAdd, kindUint: spirv.OpIAdd, kindFloat: spirv.OpFAdd},
	"-": {kindInt: spirv.OpISub, kindUint: spirv.OpISub, kindFloat: spirv.OpFSub},
	"*": {kindInt: spirv.OpIMul, kindUint: spirv.OpIMul, kindFloat: spirv.OpFMul},
	"/": {kindInt: spirv.OpSDiv, kindUint: spirv.OpUDiv, kindFloat: spirv.OpFDiv},
	"%": {kindInt: spirv.OpSRem, kindUint: spirv.OpUMod, kindFloat: spirv.OpFRem},

	"&":  {kindInt: spirv.OpBitwiseAnd, kindUint: spirv.OpBitwiseAnd},
	"|":  {kindInt: spirv.OpBitwiseOr, kindUint: spirv.OpBitwiseOr},
	"^":  {kindInt: spirv.OpBitwiseXor, kindUint: spirv.OpBitwiseXor},
	"<<": {kindInt: spirv.OpShiftLeftLogical, kindUint: spirv.OpShiftLeftLogical},
	">>": {kindInt: spirv.OpShiftRightArithmetic, kindUint: spirv.OpShiftRightLogical},

	"&&": {kindBool: spirv.OpLogicalAnd},
	"||": {kindBool: spirv.OpLogicalOr},
}

var comparisonOps = map[string]map[scalarKind]spirv.OpCode{
	"==": {kindBool: spirv.OpLogicalEqual, kindInt: spirv.OpIEqual, kindUint: spirv.OpIEqual, kindFloat: spirv.OpFOrdEqual},
	"!=": {kindBool: spirv.OpLogicalNotEqual, kindInt: spirv.OpINotEqual, kindUint: spirv.OpINotEqual, kindFloat: spirv.OpFOrdNotEqual},
	"<":  {kindInt: spirv.OpSLessThan, kindUint: spirv.OpULessThan, kindFloat: spirv.OpFOrdLessThan},
	">":  {kindInt: spirv.OpSGreaterThan, kindUint: spirv.OpUGreaterThan, kindFloat: spirv.OpFOrdGreaterThan},
	"<=": {kindInt: spirv.OpSLessThanEqual, kindUint: spirv.OpULessThanEqual, kindFloat: spirv.OpFOrdLessThanEqual},
	">=": {kindInt: spirv.OpSGreaterThanEqual, kindUint: spirv.OpUGreaterThanEqual, kindFloat: spirv.OpFOrdGreaterThanEqual},
}

// selectOp picks the instruction for `l op r`. swap reports that the
// instruction takes its operands in the opposite order (scalar * vector
// becomes OpVectorTimesScalar vector, scalar).
func selectOp(op string, l, r valueType) (opcode spirv.OpCode, result valueType, swap, ok bool) {
	if op == "*" {
		if opcode, result, swap, ok = selectMul(l, r); ok {
			return opcode, result, swap, true
		}
	}
	if l != r || l.isMatrix() {
		return 0, valueType{}, false, false
	}
	if table, found := comparisonOps[op]; found {
		opcode, ok = table[l.scalar]
		return opcode, valueType{scalar: kindBool, size: l.size}, false, ok
	}
	opcode, ok = arithmeticOps[op][l.scalar]
	return opcode, l, false, ok
}

// selectMul handles the float products between differently shaped operands.
func selectMul(l, r valueType) (spirv.OpCode, valueType, bool, bool) {
	if l.scalar != kindFloat || r.scalar != kindFloat {
		return 0, valueType{}, false, false
	}
	switch {
	case l.isVector() && r.isScalar():
		return spirv.OpVectorTimesScalar, l, false, true
	case l.isScalar() && r.isVector():
		return spirv.OpVectorTimesScalar, r, true, true
	case l.isMatrix() && r.isScalar():
		return spirv.OpMatrixTimesScalar, l, false, true
	case l.isScalar() && r.isMatrix():
		return spirv.OpMatrixTimesScalar, r, true, true
	case l.isMatrix() && r.isVector() && r.size == l.columns:
		return spirv.OpMatrixTimesVector, l.column(), false, true
	case l.isVector() && r.isMatrix() && l.size == r.size:
		return spirv.OpVectorTimesMatrix, valueType{scalar: kindFloat, size: r.columns}, false, true
	case l.isMatrix() && r.isMatrix() && l.columns == r.size:
		return spirv.OpMatrixTimesMatrix, valueType{scalar: kindFloat, size: l.size, columns: r.columns}, false, true
	}
	return 0, valueType{}, false, false
}
