package spirv

import "strconv"

// OperandKind classifies one operand of an instruction.
type OperandKind uint8

// Operand kinds relevant to decoding and identifier rewriting.
const (
	KindIdResultType OperandKind = iota + 1
	KindIdResult
	KindIdRef
	KindLiteralInteger
	KindLiteralString
	// KindPairIdRefLiteralInteger is an (IdRef, LiteralInteger) pair.
	KindPairIdRefLiteralInteger
	// KindPairLiteralIntegerIdRef is a (LiteralInteger, IdRef) pair.
	KindPairLiteralIntegerIdRef
	// KindPairIdRefIdRef is an (IdRef, IdRef) pair.
	KindPairIdRefIdRef
)

var operandKindNames = [...]string{
	KindIdResultType:            "IdResultType",
	KindIdResult:                "IdResult",
	KindIdRef:                   "IdRef",
	KindLiteralInteger:          "LiteralInteger",
	KindLiteralString:           "LiteralString",
	KindPairIdRefLiteralInteger: "PairIdRefLiteralInteger",
	KindPairLiteralIntegerIdRef: "PairLiteralIntegerIdRef",
	KindPairIdRefIdRef:          "PairIdRefIdRef",
}

// String returns the grammar name of the kind.
func (k OperandKind) String() string {
	if int(k) < len(operandKindNames) && operandKindNames[k] != "" {
		return operandKindNames[k]
	}
	return "UnknownOperandKind"
}

// wordSize returns the fixed number of words of the kind, or 0 for strings.
func (k OperandKind) wordSize() int {
	switch k {
	case KindLiteralString:
		return 0
	case KindPairIdRefLiteralInteger, KindPairLiteralIntegerIdRef, KindPairIdRefIdRef:
		return 2
	default:
		return 1
	}
}

// ReferencesID reports whether operands of this kind carry an identifier
// that names another instruction.
func (k OperandKind) ReferencesID() bool {
	switch k {
	case KindIdResultType, KindIdRef,
		KindPairIdRefLiteralInteger, KindPairLiteralIntegerIdRef, KindPairIdRefIdRef:
		return true
	}
	return false
}

// Quantifier says how many times an operand slot may repeat.
type Quantifier uint8

// Quantifiers
const (
	One Quantifier = iota
	Optional
	Variadic
)

// Slot is one operand position of an opcode signature.
type Slot struct {
	Kind       OperandKind
	Quantifier Quantifier
}

// Section is the logical layout section an instruction belongs to.
type Section uint8

// Module sections in the order SPIR-V requires them.
const (
	SectionCapability Section = iota
	SectionExtension
	SectionExtInstImport
	SectionMemoryModel
	SectionEntryPoint
	SectionExecutionMode
	SectionDebug
	SectionAnnotation
	SectionDeclaration
	SectionFunction
	// SectionAny marks instructions legal in both streams.
	SectionAny
)

// Signature describes the operand layout of an opcode.
type Signature struct {
	Name    string
	Section Section
	Slots   []Slot
}

// HasResult reports whether the opcode defines an IdResult.
func (s *Signature) HasResult() bool {
	for _, slot := range s.Slots {
		if slot.Kind == KindIdResult {
			return true
		}
	}
	return false
}

// resultIndex returns the operand index of the IdResult slot or -1.
func (s *Signature) resultIndex() int {
	for i, slot := range s.Slots {
		if slot.Kind == KindIdResult {
			return i
		}
	}
	return -1
}

var (
	rt  = Slot{Kind: KindIdResultType}
	res = Slot{Kind: KindIdResult}
	ref = Slot{Kind: KindIdRef}
	lit = Slot{Kind: KindLiteralInteger}
	str = Slot{Kind: KindLiteralString}

	optRef  = Slot{Kind: KindIdRef, Quantifier: Optional}
	optStr  = Slot{Kind: KindLiteralString, Quantifier: Optional}
	manyRef = Slot{Kind: KindIdRef, Quantifier: Variadic}
	manyLit = Slot{Kind: KindLiteralInteger, Quantifier: Variadic}
)

func sig(name string, section Section, slots ...Slot) *Signature {
	return &Signature{Name: name, Section: section, Slots: slots}
}

var signatures = map[OpCode]*Signature{
	OpNop:                 sig("OpNop", SectionAny),
	OpUndef:               sig("OpUndef", SectionAny, rt, res),
	OpSource:              sig("OpSource", SectionDebug, lit, lit, optRef, optStr),
	OpName:                sig("OpName", SectionDebug, ref, str),
	OpMemberName:          sig("OpMemberName", SectionDebug, ref, lit, str),
	OpString:              sig("OpString", SectionDebug, res, str),
	OpExtension:           sig("OpExtension", SectionExtension, str),
	OpExtInstImport:       sig("OpExtInstImport", SectionExtInstImport, res, str),
	OpExtInst:             sig("OpExtInst", SectionFunction, rt, res, ref, lit, manyRef),
	OpMemoryModel:         sig("OpMemoryModel", SectionMemoryModel, lit, lit),
	OpEntryPoint:          sig("OpEntryPoint", SectionEntryPoint, lit, ref, str, manyRef),
	OpExecutionMode:       sig("OpExecutionMode", SectionExecutionMode, ref, lit, manyLit),
	OpCapability:          sig("OpCapability", SectionCapability, lit),
	OpTypeVoid:            sig("OpTypeVoid", SectionDeclaration, res),
	OpTypeBool:            sig("OpTypeBool", SectionDeclaration, res),
	OpTypeInt:             sig("OpTypeInt", SectionDeclaration, res, lit, lit),
	OpTypeFloat:           sig("OpTypeFloat", SectionDeclaration, res, lit),
	OpTypeVector:          sig("OpTypeVector", SectionDeclaration, res, ref, lit),
	OpTypeMatrix:          sig("OpTypeMatrix", SectionDeclaration, res, ref, lit),
	OpTypeArray:           sig("OpTypeArray", SectionDeclaration, res, ref, ref),
	OpTypeRuntimeArray:    sig("OpTypeRuntimeArray", SectionDeclaration, res, ref),
	OpTypeStruct:          sig("OpTypeStruct", SectionDeclaration, res, manyRef),
	OpTypePointer:         sig("OpTypePointer", SectionDeclaration, res, lit, ref),
	OpTypeFunction:        sig("OpTypeFunction", SectionDeclaration, res, ref, manyRef),
	OpConstantTrue:        sig("OpConstantTrue", SectionDeclaration, rt, res),
	OpConstantFalse:       sig("OpConstantFalse", SectionDeclaration, rt, res),
	OpConstant:            sig("OpConstant", SectionDeclaration, rt, res, lit, manyLit),
	OpConstantComposite:   sig("OpConstantComposite", SectionDeclaration, rt, res, manyRef),
	OpConstantNull:        sig("OpConstantNull", SectionDeclaration, rt, res),
	OpFunction:            sig("OpFunction", SectionFunction, rt, res, lit, ref),
	OpFunctionParameter:   sig("OpFunctionParameter", SectionFunction, rt, res),
	OpFunctionEnd:         sig("OpFunctionEnd", SectionFunction),
	OpFunctionCall:        sig("OpFunctionCall", SectionFunction, rt, res, ref, manyRef),
	OpVariable:            sig("OpVariable", SectionAny, rt, res, lit, optRef),
	OpLoad:                sig("OpLoad", SectionFunction, rt, res, ref, manyLit),
	OpStore:               sig("OpStore", SectionFunction, ref, ref, manyLit),
	OpAccessChain:         sig("OpAccessChain", SectionFunction, rt, res, ref, manyRef),
	OpDecorate:            sig("OpDecorate", SectionAnnotation, ref, lit, manyLit),
	OpMemberDecorate:      sig("OpMemberDecorate", SectionAnnotation, ref, lit, lit, manyLit),
	OpGroupMemberDecorate: sig("OpGroupMemberDecorate", SectionAnnotation, ref, Slot{KindPairIdRefLiteralInteger, Variadic}),
	OpVectorShuffle:       sig("OpVectorShuffle", SectionFunction, rt, res, ref, ref, manyLit),
	OpCompositeConstruct:  sig("OpCompositeConstruct", SectionFunction, rt, res, manyRef),
	OpCompositeExtract:    sig("OpCompositeExtract", SectionFunction, rt, res, ref, manyLit),
	OpPhi:                 sig("OpPhi", SectionFunction, rt, res, Slot{KindPairIdRefIdRef, Variadic}),
	OpLoopMerge:           sig("OpLoopMerge", SectionFunction, ref, ref, lit, manyLit),
	OpSelectionMerge:      sig("OpSelectionMerge", SectionFunction, ref, lit),
	OpLabel:               sig("OpLabel", SectionFunction, res),
	OpBranch:              sig("OpBranch", SectionFunction, ref),
	OpBranchConditional:   sig("OpBranchConditional", SectionFunction, ref, ref, ref, manyLit),
	OpSwitch:              sig("OpSwitch", SectionFunction, ref, ref, Slot{KindPairLiteralIntegerIdRef, Variadic}),
	OpKill:                sig("OpKill", SectionFunction),
	OpReturn:              sig("OpReturn", SectionFunction),
	OpReturnValue:         sig("OpReturnValue", SectionFunction, ref),
	OpUnreachable:         sig("OpUnreachable", SectionFunction),
	OpDecorateID:          sig("OpDecorateId", SectionAnnotation, ref, lit, manyRef),

	OpSDSLVariable:          sig("OpSDSLVariable", SectionAny, rt, res, lit, str, optRef),
	OpSDSLFunctionParameter: sig("OpSDSLFunctionParameter", SectionFunction, rt, res, str),
	OpSDSLIOVariable:        sig("OpSDSLIOVariable", SectionDeclaration, rt, res, lit, lit, str),
	OpSDSLImportVariable:    sig("OpSDSLImportVariable", SectionDeclaration, rt, res, str),
}

func init() {
	unary := map[OpCode]string{
		OpConvertFToU: "OpConvertFToU",
		OpConvertFToS: "OpConvertFToS",
		OpConvertSToF: "OpConvertSToF",
		OpConvertUToF: "OpConvertUToF",
		OpBitcast:     "OpBitcast",
		OpSNegate:     "OpSNegate",
		OpFNegate:     "OpFNegate",
		OpLogicalNot:  "OpLogicalNot",
		OpNot:         "OpNot",
	}
	for op, name := range unary {
		signatures[op] = sig(name, SectionFunction, rt, res, ref)
	}

	binary := map[OpCode]string{
		OpIAdd:                 "OpIAdd",
		OpFAdd:                 "OpFAdd",
		OpISub:                 "OpISub",
		OpFSub:                 "OpFSub",
		OpIMul:                 "OpIMul",
		OpFMul:                 "OpFMul",
		OpUDiv:                 "OpUDiv",
		OpSDiv:                 "OpSDiv",
		OpFDiv:                 "OpFDiv",
		OpUMod:                 "OpUMod",
		OpSRem:                 "OpSRem",
		OpSMod:                 "OpSMod",
		OpFRem:                 "OpFRem",
		OpFMod:                 "OpFMod",
		OpVectorTimesScalar:    "OpVectorTimesScalar",
		OpMatrixTimesScalar:    "OpMatrixTimesScalar",
		OpVectorTimesMatrix:    "OpVectorTimesMatrix",
		OpMatrixTimesVector:    "OpMatrixTimesVector",
		OpMatrixTimesMatrix:    "OpMatrixTimesMatrix",
		OpDot:                  "OpDot",
		OpLogicalOr:            "OpLogicalOr",
		OpLogicalAnd:           "OpLogicalAnd",
		OpShiftRightLogical:    "OpShiftRightLogical",
		OpShiftRightArithmetic: "OpShiftRightArithmetic",
		OpShiftLeftLogical:     "OpShiftLeftLogical",
		OpBitwiseOr:            "OpBitwiseOr",
		OpBitwiseXor:           "OpBitwiseXor",
		OpBitwiseAnd:           "OpBitwiseAnd",
		OpLogicalEqual:         "OpLogicalEqual",
		OpLogicalNotEqual:      "OpLogicalNotEqual",
		OpIEqual:               "OpIEqual",
		OpINotEqual:            "OpINotEqual",
		OpUGreaterThan:         "OpUGreaterThan",
		OpSGreaterThan:         "OpSGreaterThan",
		OpUGreaterThanEqual:    "OpUGreaterThanEqual",
		OpSGreaterThanEqual:    "OpSGreaterThanEqual",
		OpULessThan:            "OpULessThan",
		OpSLessThan:            "OpSLessThan",
		OpULessThanEqual:       "OpULessThanEqual",
		OpSLessThanEqual:       "OpSLessThanEqual",
		OpFOrdEqual:            "OpFOrdEqual",
		OpFOrdNotEqual:         "OpFOrdNotEqual",
		OpFOrdLessThan:         "OpFOrdLessThan",
		OpFOrdGreaterThan:      "OpFOrdGreaterThan",
		OpFOrdLessThanEqual:    "OpFOrdLessThanEqual",
		OpFOrdGreaterThanEqual: "OpFOrdGreaterThanEqual",
	}
	for op, name := range binary {
		signatures[op] = sig(name, SectionFunction, rt, res, ref, ref)
	}
	signatures[OpSelect] = sig("OpSelect", SectionFunction, rt, res, ref, ref, ref)
}

// LookupSignature returns the operand signature of op.
func LookupSignature(op OpCode) (*Signature, bool) {
	s, ok := signatures[op]
	return s, ok
}

// String returns the grammar name of the opcode.
func (op OpCode) String() string {
	if s, ok := signatures[op]; ok {
		return s.Name
	}
	return "Op" + strconv.FormatUint(uint64(op), 10)
}

// IsType reports whether op declares a type.
func (op OpCode) IsType() bool {
	return op >= OpTypeVoid && op <= OpTypeFunction
}

// SectionOf returns the layout section of op. Unknown opcodes are treated as
// function body instructions.
func SectionOf(op OpCode) Section {
	if s, ok := signatures[op]; ok {
		return s.Section
	}
	return SectionFunction
}
